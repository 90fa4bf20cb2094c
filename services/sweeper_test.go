package services

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/audit"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/store"
	"github.com/lightgrid/lightgrid-services-uploads/validation"
)

func sweeperSession(id string, status models.UploadStatus, ttl time.Duration) models.UploadSession {
	now := time.Now().UTC()
	return models.UploadSession{
		UploadID:    id,
		OwnerID:     ownerAlice,
		FileName:    "show.fseq",
		FileSize:    64,
		Category:    validation.CategoryRendered,
		ChunkSize:   32,
		TotalChunks: 2,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestSweepOnceReclaimsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()
	sessions := store.NewMemorySessionStore()
	objects := store.NewLocalObjectStorage(afero.NewMemMapFs(), "/objects", logger)
	auditor := &recordingSink{}

	require.NoError(t, sessions.Create(ctx, sweeperSession("abandoned", models.StatusUploading, -time.Minute)))
	require.NoError(t, sessions.Create(ctx, sweeperSession("active", models.StatusUploading, time.Hour)))
	require.NoError(t, objects.StageChunk(ctx, "abandoned", 0, []byte("staged bytes")))

	sweeper := NewExpirySweeper(ctx, sessions, objects, auditor, time.Hour, logger)
	require.Equal(t, 1, sweeper.SweepOnce(ctx))

	_, err := sessions.Get(ctx, "abandoned")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = sessions.Get(ctx, "active")
	require.NoError(t, err)

	require.Len(t, auditor.byType(audit.EventSessionExpired), 1)

	// nothing left to reclaim
	require.Equal(t, 0, sweeper.SweepOnce(ctx))
}

func TestSweepOnceSkipsProcessingSessions(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()
	sessions := store.NewMemorySessionStore()
	objects := store.NewLocalObjectStorage(afero.NewMemMapFs(), "/objects", logger)

	// finalize may run past the deadline; its session must not be swept
	require.NoError(t, sessions.Create(ctx, sweeperSession("finalizing", models.StatusProcessing, -time.Minute)))

	sweeper := NewExpirySweeper(ctx, sessions, objects, &recordingSink{}, time.Hour, logger)
	require.Equal(t, 0, sweeper.SweepOnce(ctx))

	_, err := sessions.Get(ctx, "finalizing")
	require.NoError(t, err)
}
