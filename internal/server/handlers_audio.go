package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/server/middleware"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// allowedAudioExtensions lists the accepted upload extensions (lowercase).
var allowedAudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
}

// multipartOverhead is slack on top of MaxUploadSize for multipart boundaries and headers.
const multipartOverhead = 1 << 20

// handleUpload stores a multipart "file" under UploadDir/<user_id>/<audio_id><ext>.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, &ErrPayloadTooLarge{Limit: s.maxUploadSize})
			return
		}
		writeError(w, &ErrValidation{Field: "file", Message: "a multipart file field is required"})
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExtensions[ext] {
		writeError(w, &ErrValidation{Field: "file", Message: "unsupported file type " + ext + "; use .mp3, .wav or .m4a"})
		return
	}
	if header.Size > s.maxUploadSize {
		writeError(w, &ErrPayloadTooLarge{Limit: s.maxUploadSize})
		return
	}

	audio := &types.AudioFile{ID: uuid.New(), UserID: userID, Filename: filename}
	audio.FilePath, err = s.saveUpload(file, userID, audio.ID, ext)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.CreateAudioFile(r.Context(), audio); err != nil {
		_ = os.Remove(audio.FilePath)
		writeError(w, fmt.Errorf("failed to record audio file: %w", err))
		return
	}

	log.Printf("[server] stored audio %s for user %s (%s)", audio.ID, userID, filename)
	jsonResponse(w, http.StatusCreated, types.AudioUploadResponse{
		AudioID:  audio.ID.String(),
		Filename: audio.Filename,
	})
}

// saveUpload copies src to disk, enforcing the size limit on the bytes actually read.
// Nothing is left behind on failure.
func (s *Server) saveUpload(src io.Reader, userID, audioID uuid.UUID, ext string) (_ string, err error) {
	dir := filepath.Join(s.uploadDir, userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, audioID.String()+ext)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close upload file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	n, err := io.Copy(dst, io.LimitReader(src, s.maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if n > s.maxUploadSize {
		return "", &ErrPayloadTooLarge{Limit: s.maxUploadSize}
	}
	return path, nil
}
