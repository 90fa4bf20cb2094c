package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/models"
)

func newRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisSessionStore(client), mr
}

func TestRedisSessionStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	session := newTestSession("u1", 3, time.Hour)
	require.NoError(t, s.Create(ctx, session))
	require.Error(t, s.Create(ctx, session), "duplicate create must fail")

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, session.FileName, got.FileName)
	require.Equal(t, models.StatusInitiated, got.Status)

	require.NoError(t, s.Delete(ctx, "u1"))

	_, err = s.Get(ctx, "u1")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRedisSessionStoreTransitionStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	require.NoError(t, s.Create(ctx, newTestSession("u1", 1, time.Hour)))

	require.NoError(t, s.TransitionStatus(ctx, "u1", models.StatusInitiated, models.StatusUploading))

	err := s.TransitionStatus(ctx, "u1", models.StatusInitiated, models.StatusUploading)
	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, models.StatusUploading, conflict.Actual)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, models.StatusUploading, got.Status)
}

func TestRedisSessionStoreTransitionStatusAfterDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	require.NoError(t, s.Create(ctx, newTestSession("u1", 1, time.Hour)))
	require.NoError(t, s.SetStatus(ctx, "u1", models.StatusAllChunksUploaded))
	require.NoError(t, s.Delete(ctx, "u1"))

	// a missing status key is a discarded session, never a silent success
	err := s.TransitionStatus(ctx, "u1", models.StatusAllChunksUploaded, models.StatusProcessing)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	err = s.SetStatus(ctx, "u1", models.StatusExpired)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRedisSessionStoreAddChunk(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	require.NoError(t, s.Create(ctx, newTestSession("u1", 3, time.Hour)))

	count, err := s.AddChunk(ctx, "u1", 1)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = s.AddChunk(ctx, "u1", 1)
	var conflict *ChunkConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, 1, conflict.Index)

	count, err = s.AddChunk(ctx, "u1", 0)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	received, err := s.ReceivedChunks(ctx, "u1")
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 1}, received)
}

func TestRedisSessionStoreAddChunkAfterDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	require.NoError(t, s.Create(ctx, newTestSession("u1", 3, time.Hour)))

	_, err := s.AddChunk(ctx, "u1", 0)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "u1"))

	// the accept must not resurrect the chunk set for a dead session
	_, err = s.AddChunk(ctx, "u1", 1)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.False(t, mr.Exists("upload:chunks:u1"))
}

func TestRedisSessionStoreExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	require.NoError(t, s.Create(ctx, newTestSession("live", 1, time.Hour)))
	require.NoError(t, s.Create(ctx, newTestSession("dead", 1, -time.Minute)))

	expired, err := s.ExpiredSessions(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "dead", expired[0].UploadID)

	// reclaimed sessions disappear from the sweep
	require.NoError(t, s.Delete(ctx, "dead"))
	expired, err = s.ExpiredSessions(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, expired)
}
