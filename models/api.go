package models

import "time"

// Request and response envelopes for the uploads HTTP API.

type InitiateUploadRequest struct {
	FileName  string `json:"file_name" binding:"required"`
	FileSize  int64  `json:"file_size" binding:"required"`
	MimeType  string `json:"mime_type"`
	Category  string `json:"category" binding:"required"`
	ProductID string `json:"product_id"`
	VersionID string `json:"version_id"`
}

type InitiateUploadResponse struct {
	UploadID    string    `json:"upload_id"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	ExpiresAt   time.Time `json:"expires_at"`
	Warnings    []string  `json:"warnings,omitempty"`
}

type SubmitChunkResponse struct {
	UploadID       string  `json:"upload_id"`
	ChunkIndex     int     `json:"chunk_index"`
	ChunksReceived int     `json:"chunks_received"`
	TotalChunks    int     `json:"total_chunks"`
	Progress       float64 `json:"progress"` // received/total, in [0,1]
}

type CompleteUploadResponse struct {
	FileID       string        `json:"file_id"`
	StorageKey   string        `json:"storage_key"`
	ContentHash  string        `json:"content_hash"`
	Deduplicated bool          `json:"deduplicated"`
	Metadata     *FileMetadata `json:"metadata,omitempty"`
}

type AbortUploadResponse struct {
	UploadID       string `json:"upload_id"`
	ChunksReceived int    `json:"chunks_received"`
	TotalChunks    int    `json:"total_chunks"`
}

type UploadStatusResponse struct {
	UploadID       string       `json:"upload_id"`
	Status         UploadStatus `json:"status"`
	ChunksReceived int          `json:"chunks_received"`
	TotalChunks    int          `json:"total_chunks"`
	MissingChunks  []int        `json:"missing_chunks,omitempty"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

type FilesResponse struct {
	Files []StoredFile `json:"files"`
}

type DownloadURLResponse struct {
	FileID      string    `json:"file_id"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ErrorResponse is returned for any failed API request. Details enumerate
// individual violated constraints for validation failures.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
