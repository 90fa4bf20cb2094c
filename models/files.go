package models

import "time"

// StoredFile is the durable record of a validated, deduplicated artifact.
// ContentHash is globally unique across all stored files; a second upload
// of identical bytes resolves to the existing record.
type StoredFile struct {
	FileID      string `dynamodbav:"file_id" json:"file_id"`
	OwnerID     string `dynamodbav:"owner_id" json:"owner_id"`
	Name        string `dynamodbav:"file_name" json:"file_name"`
	Category    string `dynamodbav:"category" json:"category"`
	Size        int64  `dynamodbav:"file_size" json:"file_size"`
	ContentHash string `dynamodbav:"content_hash" json:"content_hash"`
	StorageKey  string `dynamodbav:"storage_key" json:"storage_key"`
	MimeType    string `dynamodbav:"mime_type" json:"mime_type"`

	Metadata *FileMetadata `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`

	ProductID string `dynamodbav:"product_id,omitempty" json:"product_id,omitempty"`
	VersionID string `dynamodbav:"version_id,omitempty" json:"version_id,omitempty"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
}

// MetadataKind discriminates the FileMetadata union.
type MetadataKind string

const (
	MetadataKindSequence MetadataKind = "sequence"
)

// FileMetadata is a tagged union over known format families. Absent
// metadata is represented by a nil *FileMetadata, not an empty bag.
type FileMetadata struct {
	Kind MetadataKind `dynamodbav:"kind" json:"kind"`

	Sequence *SequenceMetadata `dynamodbav:"sequence,omitempty" json:"sequence,omitempty"`
}

// SequenceMetadata is extracted from rendered show file headers.
type SequenceMetadata struct {
	ChannelCount   uint32 `dynamodbav:"channel_count" json:"channel_count"`
	FrameCount     uint32 `dynamodbav:"frame_count" json:"frame_count"`
	StepTimeMillis uint8  `dynamodbav:"step_time_ms" json:"step_time_ms"`
	DurationMillis uint64 `dynamodbav:"duration_ms" json:"duration_ms"`
}
