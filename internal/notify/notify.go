package notify

import "context"

// JobStatus is a lifecycle transition announced to subscribers. These are
// progress events, distinct from the durable processing status in the
// metadata store.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusTranscoding JobStatus = "transcoding"
	StatusUploading   JobStatus = "uploading"
	StatusFinished    JobStatus = "finished"
	StatusFailed      JobStatus = "failed"
)

// Notifier publishes job lifecycle transitions.
type Notifier interface {
	Publish(ctx context.Context, videoID string, status JobStatus) error
}
