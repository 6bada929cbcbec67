package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// CreateAudioFile records an uploaded file. A zero ID is replaced with a new random one.
func (db *DB) CreateAudioFile(ctx context.Context, audio *types.AudioFile) error {
	if audio.ID == uuid.Nil {
		audio.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO audio_files (id, user_id, filename, file_path)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		audio.ID, audio.UserID, audio.Filename, audio.FilePath,
	).Scan(&audio.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	return nil
}

// GetAudioFile retrieves an audio file record by ID
func (db *DB) GetAudioFile(ctx context.Context, audioID uuid.UUID) (*types.AudioFile, error) {
	var audio types.AudioFile
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, file_path, created_at
		 FROM audio_files WHERE id = $1`,
		audioID,
	).Scan(&audio.ID, &audio.UserID, &audio.Filename, &audio.FilePath, &audio.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audio file: %w", err)
	}
	return &audio, nil
}
