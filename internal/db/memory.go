package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// MemoryStore is an in-process Store. Jobs are lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]types.Job
	claims map[uuid.UUID]struct{}
	audio  map[uuid.UUID]types.AudioFile
	users  map[uuid.UUID]types.User
	byName map[string]uuid.UUID
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[uuid.UUID]types.Job),
		claims: make(map[uuid.UUID]struct{}),
		audio:  make(map[uuid.UUID]types.AudioFile),
		users:  make(map[uuid.UUID]types.User),
		byName: make(map[string]uuid.UUID),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob persists a new job in the created state and returns its ID
func (m *MemoryStore) CreateJob(_ context.Context, audioID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.audio[audioID]; !ok {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", ErrAudioNotFound)
	}

	now := m.now()
	job := types.Job{
		ID:        uuid.New(),
		AudioID:   audioID,
		Status:    types.JobStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job
	return job.ID, nil
}

// GetJob returns a copy of the job joined with its audio file
func (m *MemoryStore) GetJob(_ context.Context, jobID uuid.UUID) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	if job.ErrorMessage != nil {
		msg := *job.ErrorMessage
		job.ErrorMessage = &msg
	}
	if audio, ok := m.audio[job.AudioID]; ok {
		job.Audio = &audio
	}
	return &job, nil
}

// UpdateJobStatus applies a status write under the store lock
func (m *MemoryStore) UpdateJobStatus(_ context.Context, jobID uuid.UUID, status types.JobStatus, errMsg *string) error {
	errMsg, err := checkStatusWrite(jobID, status, errMsg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if !types.CanTransition(job.Status, status) {
		return &types.TransitionError{JobID: jobID, From: job.Status, To: status}
	}

	job.Status = status
	job.ErrorMessage = nil
	if errMsg != nil {
		msg := *errMsg
		job.ErrorMessage = &msg
	}
	job.UpdatedAt = m.now()
	m.jobs[jobID] = job
	return nil
}

// ClaimJob takes ownership of a created job under the store lock
func (m *MemoryStore) ClaimJob(_ context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if _, claimed := m.claims[jobID]; claimed || job.Status != types.JobStatusCreated {
		return fmt.Errorf("%w: %s", types.ErrJobClaimed, jobID)
	}
	m.claims[jobID] = struct{}{}
	return nil
}

// CreateAudioFile records an uploaded file. A zero ID is replaced with a new random one.
func (m *MemoryStore) CreateAudioFile(_ context.Context, audio *types.AudioFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[audio.UserID]; !ok {
		return fmt.Errorf("failed to create audio file: unknown user %s", audio.UserID)
	}
	if audio.ID == uuid.Nil {
		audio.ID = uuid.New()
	}
	audio.CreatedAt = m.now()
	m.audio[audio.ID] = *audio
	return nil
}

// GetAudioFile retrieves an audio file record by ID
func (m *MemoryStore) GetAudioFile(_ context.Context, audioID uuid.UUID) (*types.AudioFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	audio, ok := m.audio[audioID]
	if !ok {
		return nil, nil
	}
	return &audio, nil
}

// CreateUser inserts a user with an already hashed password
func (m *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byName[username]; taken {
		return nil, ErrUsernameTaken
	}
	user := types.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    m.now(),
	}
	m.users[user.ID] = user
	m.byName[username] = user.ID
	return &user, nil
}

// GetUser retrieves a user by ID
func (m *MemoryStore) GetUser(_ context.Context, userID uuid.UUID) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	user := m.users[id]
	return &user, nil
}
