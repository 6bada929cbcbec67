package db

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store implementation must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	newAudio := func(t *testing.T) *types.AudioFile {
		t.Helper()
		user, err := store.CreateUser(ctx, "user-"+uuid.NewString(), "hash")
		require.NoError(t, err)
		audio := &types.AudioFile{UserID: user.ID, Filename: "standup.mp3", FilePath: "/tmp/standup.mp3"}
		require.NoError(t, store.CreateAudioFile(ctx, audio))
		return audio
	}

	t.Run("users", func(t *testing.T) {
		name := "alice-" + uuid.NewString()
		user, err := store.CreateUser(ctx, name, "bcrypt-hash")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		_, err = store.CreateUser(ctx, name, "other")
		assert.ErrorIs(t, err, ErrUsernameTaken)

		byName, err := store.GetUserByUsername(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, byName)
		assert.Equal(t, user.ID, byName.ID)
		assert.Equal(t, "bcrypt-hash", byName.PasswordHash)

		byID, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, name, byID.Username)

		missing, err := store.GetUserByUsername(ctx, "missing-"+uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)

		missing, err = store.GetUser(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("audio files", func(t *testing.T) {
		audio := newAudio(t)
		assert.NotEqual(t, uuid.Nil, audio.ID)

		got, err := store.GetAudioFile(ctx, audio.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, audio.UserID, got.UserID)
		assert.Equal(t, "/tmp/standup.mp3", got.FilePath)

		got, err = store.GetAudioFile(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("create and get job", func(t *testing.T) {
		audio := newAudio(t)

		jobID, err := store.CreateJob(ctx, audio.ID)
		require.NoError(t, err)

		job, err := store.GetJob(ctx, jobID)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, types.JobStatusCreated, job.Status)
		assert.Nil(t, job.ErrorMessage)
		assert.Equal(t, audio.ID, job.AudioID)
		require.NotNil(t, job.Audio)
		assert.Equal(t, audio.UserID, job.Audio.UserID)
		assert.Equal(t, audio.FilePath, job.Audio.FilePath)
	})

	t.Run("create job for unknown audio", func(t *testing.T) {
		_, err := store.CreateJob(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrAudioNotFound)
	})

	t.Run("get unknown job", func(t *testing.T) {
		job, err := store.GetJob(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("success path transitions", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)
		created, _ := store.GetJob(ctx, jobID)

		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusTranscribed, nil))
		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusSummarized, nil))

		job, err := store.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusSummarized, job.Status)
		assert.Nil(t, job.ErrorMessage)
		assert.False(t, job.UpdatedAt.Before(created.UpdatedAt))

		// Terminal: nothing may follow
		for _, next := range types.AllJobStatuses() {
			err := store.UpdateJobStatus(ctx, jobID, next, nil)
			assert.ErrorIs(t, err, types.ErrInvalidTransition, "summarized -> %s", next)
		}
	})

	t.Run("failure records message and is terminal", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)
		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusTranscribed, nil))

		msg := "AssemblyAI error: Audio file is corrupt"
		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusFailed, &msg))

		job, err := store.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Equal(t, msg, *job.ErrorMessage)

		err = store.UpdateJobStatus(ctx, jobID, types.JobStatusSummarized, nil)
		var transitionErr *types.TransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, types.JobStatusFailed, transitionErr.From)
		assert.Equal(t, types.JobStatusSummarized, transitionErr.To)
	})

	t.Run("skipping a stage is rejected", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)

		assert.ErrorIs(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusSummarized, nil), types.ErrInvalidTransition)
		assert.ErrorIs(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusCreated, nil), types.ErrInvalidTransition)

		job, _ := store.GetJob(ctx, jobID)
		assert.Equal(t, types.JobStatusCreated, job.Status)
	})

	t.Run("error message dropped for non-failed status", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)

		msg := "ignored"
		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusTranscribed, &msg))

		job, _ := store.GetJob(ctx, jobID)
		assert.Nil(t, job.ErrorMessage)
	})

	t.Run("claim succeeds once", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)

		const runs = 20
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			won     int
			claimed int
		)
		for i := 0; i < runs; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.ClaimJob(ctx, jobID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, types.ErrJobClaimed):
					claimed++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, won)
		assert.Equal(t, runs-1, claimed)

		// claiming does not change what readers see
		job, err := store.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusCreated, job.Status)
	})

	t.Run("claim refuses jobs past created", func(t *testing.T) {
		jobID, err := store.CreateJob(ctx, newAudio(t).ID)
		require.NoError(t, err)
		msg := "boom"
		require.NoError(t, store.UpdateJobStatus(ctx, jobID, types.JobStatusFailed, &msg))

		assert.ErrorIs(t, store.ClaimJob(ctx, jobID), types.ErrJobClaimed)
		assert.ErrorIs(t, store.ClaimJob(ctx, uuid.New()), ErrJobNotFound)
	})

	t.Run("unknown job and invalid status", func(t *testing.T) {
		assert.ErrorIs(t, store.UpdateJobStatus(ctx, uuid.New(), types.JobStatusTranscribed, nil), ErrJobNotFound)
		assert.ErrorIs(t, store.UpdateJobStatus(ctx, uuid.New(), types.JobStatus("DONE"), nil), types.ErrInvalidTransition)
	})
}
