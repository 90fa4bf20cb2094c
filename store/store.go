package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/health"
	"github.com/lightgrid/lightgrid-services-uploads/models"
)

// SessionStore tracks in-progress upload sessions. Implementations must
// make AddChunk an atomic per-index check-and-set and TransitionStatus a
// compare-and-swap, so the state machine never races under concurrent
// chunk submissions or concurrent finalize attempts.
type SessionStore interface {
	// Create stores a new session. The upload id must not already exist.
	Create(ctx context.Context, session models.UploadSession) error

	// Get returns the session or apperrors.ErrSessionNotFound.
	Get(ctx context.Context, uploadID string) (*models.UploadSession, error)

	// ReceivedChunks returns the set of chunk indices recorded so far.
	ReceivedChunks(ctx context.Context, uploadID string) ([]int, error)

	// AddChunk records index as received. Exactly one concurrent caller
	// for a given index wins; the rest get *ChunkConflictError. The
	// returned count is the number of received chunks including this one.
	AddChunk(ctx context.Context, uploadID string, index int) (int, error)

	// RemoveChunk undoes an AddChunk, used when staging the bytes fails
	// after the index was recorded.
	RemoveChunk(ctx context.Context, uploadID string, index int) error

	// TransitionStatus atomically moves the session from one status to
	// another. A mismatch returns *StatusConflictError with the status
	// actually held.
	TransitionStatus(ctx context.Context, uploadID string, from, to models.UploadStatus) error

	// SetStatus unconditionally overwrites the session status.
	SetStatus(ctx context.Context, uploadID string, status models.UploadStatus) error

	// Delete removes the session and its received-chunk set.
	Delete(ctx context.Context, uploadID string) error

	// ExpiredSessions lists sessions whose expiry passed before now, for
	// the background sweeper.
	ExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.UploadSession, error)

	health.ReadinessCheck
}

// ChunkConflictError reports a duplicate AddChunk for an index.
type ChunkConflictError struct {
	UploadID string
	Index    int
}

func (e *ChunkConflictError) Error() string {
	return fmt.Sprintf("chunk %d already recorded for upload %s", e.Index, e.UploadID)
}

// ContentHashConflictError reports a Create whose content hash is
// already recorded: the caller lost a dedup race against a concurrent
// upload of identical bytes.
type ContentHashConflictError struct {
	ContentHash string
}

func (e *ContentHashConflictError) Error() string {
	return fmt.Sprintf("content hash %s is already stored", e.ContentHash)
}

// StatusConflictError reports a failed status compare-and-swap.
type StatusConflictError struct {
	UploadID string
	Expected models.UploadStatus
	Actual   models.UploadStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("upload %s is %s, not %s", e.UploadID, e.Actual, e.Expected)
}

// FileStore persists StoredFile records. Lookup by content hash backs
// cross-user deduplication.
type FileStore interface {
	// Create persists the record. Content-hash uniqueness is enforced at
	// write time: a duplicate hash returns *ContentHashConflictError so
	// concurrent identical uploads cannot both create records.
	Create(ctx context.Context, file models.StoredFile) error
	GetByID(ctx context.Context, fileID string) (*models.StoredFile, error)
	// GetByHash returns the stored file with the given content hash, or
	// apperrors.ErrFileNotFound.
	GetByHash(ctx context.Context, contentHash string) (*models.StoredFile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.StoredFile, error)

	health.ReadinessCheck
}

// ObjectStorage is the binary side: a per-upload staging area plus the
// durable object store for finalized files. Staged data for one upload is
// never visible to another.
type ObjectStorage interface {
	// StageChunk writes one chunk's bytes into the upload's staging area.
	StageChunk(ctx context.Context, uploadID string, index int, data []byte) error

	// AssembleStaged streams staged chunks 0..totalChunks-1 in strict
	// index order into w.
	AssembleStaged(ctx context.Context, uploadID string, totalChunks int, w io.Writer) error

	// DeleteStaged discards the upload's entire staging area.
	DeleteStaged(ctx context.Context, uploadID string) error

	// Put persists the assembled stream under key in durable storage.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes a durable object.
	Delete(ctx context.Context, key string) error

	// PresignDownload returns a time-limited download URL for key.
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}
