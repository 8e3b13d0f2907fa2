package store

import (
	"context"
	"errors"
)

// Processing status of a video record. A record starts as processing and is
// moved exactly once, by the worker, to done or failed.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// VideoRecord is the metadata kept for one submitted video.
type VideoRecord struct {
	VideoID string `json:"video_id"`
	// Name is the original filename of the upload.
	Name string `json:"name"`
	// Size is the byte length of the original upload.
	Size int64 `json:"size"`
	// Length is the duration of the compressed video in whole seconds.
	// Zero until the job completes.
	Length       int64  `json:"length"`
	CreationDate string `json:"creation_date"`
	Status       string `json:"processing_status"`
}

// MetadataStore is the single source of truth for video processing status.
type MetadataStore interface {
	// Create inserts a new record. Returns ErrAlreadyExists when the video ID
	// is already present.
	Create(ctx context.Context, record VideoRecord) error

	// Get returns the record for the video ID, or ErrNotFound.
	Get(ctx context.Context, videoID string) (VideoRecord, error)

	// UpdateTerminal moves a record to a terminal status. Status and length
	// change together; a concurrent Get never observes one without the other.
	// Returns ErrNotFound when the record is missing. A second terminal write
	// overwrites the first, so callers must check the current status before
	// calling; repeated identical writes are idempotent, which is what makes
	// duplicate queue deliveries safe.
	UpdateTerminal(ctx context.Context, videoID string, status string, length int64) error

	// Delete removes the record, or returns ErrNotFound.
	Delete(ctx context.Context, videoID string) error
}

// BlobStore holds the raw and compressed video bytes under deterministic keys.
type BlobStore interface {
	// Put writes the blob. Overwriting a key with identical content is safe.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
