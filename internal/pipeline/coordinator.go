package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shrinkray/internal/notify"
	"shrinkray/internal/queue"
	"shrinkray/internal/store"
)

// Coordinator binds the metadata store, the blob store and the job queue into
// the submit/status/fetch/delete lifecycle.
type Coordinator struct {
	meta     store.MetadataStore
	blobs    store.BlobStore
	jobs     queue.Publisher
	notifier notify.Notifier
}

// NewCoordinator wires the coordinator. notifier may be nil.
func NewCoordinator(meta store.MetadataStore, blobs store.BlobStore, jobs queue.Publisher, notifier notify.Notifier) *Coordinator {
	return &Coordinator{meta: meta, blobs: blobs, jobs: jobs, notifier: notifier}
}

// Submit records a new video and queues its transcode job. The record is
// created before the job is published, so a worker can never pick up a job
// whose record does not exist yet.
func (c *Coordinator) Submit(ctx context.Context, name string, size int64, data []byte) (string, error) {
	videoID := uuid.NewString()
	record := store.VideoRecord{
		VideoID:      videoID,
		Name:         name,
		Size:         size,
		Length:       0,
		CreationDate: time.Now().UTC().Format(time.RFC3339),
		Status:       store.StatusProcessing,
	}
	if err := c.meta.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to create the record: %w", err)
	}
	if err := c.jobs.Publish(ctx, queue.Job{VideoID: videoID, Name: name, Payload: data}); err != nil {
		return "", fmt.Errorf("failed to publish the job: %w", err)
	}

	if c.notifier != nil {
		if err := c.notifier.Publish(ctx, videoID, notify.StatusQueued); err != nil {
			log.Error().Err(err).Str("videoId", videoID).Msg("failed to publish the notification")
		}
	}
	log.Info().Str("videoId", videoID).Str("name", name).Int64("size", size).Msg("submitted the video")
	return videoID, nil
}

// Status returns the metadata record, or store.ErrNotFound.
func (c *Coordinator) Status(ctx context.Context, videoID string) (store.VideoRecord, error) {
	return c.meta.Get(ctx, videoID)
}

// Open returns the stored bytes of one artifact, or store.ErrNotFound.
func (c *Coordinator) Open(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	key, ok := BlobKey(videoID, kind)
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.blobs.Get(ctx, key)
}

// Delete removes both blobs and then the metadata record. Blobs go first: a
// partially completed delete leaves a discoverable record rather than
// unreferenced blobs.
func (c *Coordinator) Delete(ctx context.Context, videoID string) error {
	for _, kind := range []Kind{KindOriginal, KindDerived} {
		key, _ := BlobKey(videoID, kind)
		if err := c.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete blob %s: %w", key, err)
		}
	}
	if err := c.meta.Delete(ctx, videoID); err != nil {
		return err
	}
	log.Info().Str("videoId", videoID).Msg("deleted the video")
	return nil
}
