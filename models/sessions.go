package models

import (
	"fmt"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/validation"
)

// UploadStatus is the upload session state machine:
//
//	INITIATED -> UPLOADING -> ALL_CHUNKS_UPLOADED -> PROCESSING -> COMPLETED
//
// with EXPIRED and ABORTED reachable from any non-terminal state.
// COMPLETED, EXPIRED, and ABORTED are terminal.
type UploadStatus string

const (
	StatusInitiated         UploadStatus = "INITIATED"
	StatusUploading         UploadStatus = "UPLOADING"
	StatusAllChunksUploaded UploadStatus = "ALL_CHUNKS_UPLOADED"
	StatusProcessing        UploadStatus = "PROCESSING"
	StatusCompleted         UploadStatus = "COMPLETED"
	StatusExpired           UploadStatus = "EXPIRED"
	StatusAborted           UploadStatus = "ABORTED"
)

func ParseUploadStatus(s string) (UploadStatus, error) {
	switch UploadStatus(s) {
	case StatusInitiated, StatusUploading, StatusAllChunksUploaded,
		StatusProcessing, StatusCompleted, StatusExpired, StatusAborted:
		return UploadStatus(s), nil
	}
	return "", fmt.Errorf("invalid upload status %q", s)
}

func (s UploadStatus) String() string { return string(s) }

// Terminal reports whether the session can no longer be mutated.
func (s UploadStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusAborted
}

// UploadSession is the working-set record for one in-progress chunked
// upload. The received-chunk set itself lives beside this record in the
// session store so that per-index accepts stay atomic.
type UploadSession struct {
	UploadID string `json:"upload_id"`
	OwnerID  string `json:"owner_id"` // identity of the initiating user

	FileName string                  `json:"file_name"`
	FileSize int64                   `json:"file_size"`
	MimeType string                  `json:"mime_type"`
	Category validation.FileCategory `json:"category"`

	ChunkSize   int64 `json:"chunk_size"`
	TotalChunks int   `json:"total_chunks"`

	Status UploadStatus `json:"status"`

	ProductID string `json:"product_id,omitempty"`
	VersionID string `json:"version_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session's TTL has elapsed as of now.
func (s *UploadSession) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TotalChunksFor computes ceil(fileSize / chunkSize).
func TotalChunksFor(fileSize, chunkSize int64) int {
	return int((fileSize + chunkSize - 1) / chunkSize)
}
