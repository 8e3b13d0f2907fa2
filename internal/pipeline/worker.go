package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"shrinkray/internal/notify"
	"shrinkray/internal/queue"
	"shrinkray/internal/store"
)

// Worker consumes transcode jobs and drives each one to a terminal status.
// Deliveries are at least once; the status recheck at the top of Handle is
// what makes duplicates harmless.
type Worker struct {
	meta     store.MetadataStore
	blobs    store.BlobStore
	backend  TranscodeBackend
	notifier notify.Notifier
}

// TranscodeBackend is the transform applied to each job. It matches
// transcode.Backend; declared here so the pipeline does not depend on a
// concrete encoder.
type TranscodeBackend interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
	Duration(ctx context.Context, path string) (int64, error)
}

// NewWorker wires the worker. notifier may be nil.
func NewWorker(meta store.MetadataStore, blobs store.BlobStore, backend TranscodeBackend, notifier notify.Notifier) *Worker {
	return &Worker{meta: meta, blobs: blobs, backend: backend, notifier: notifier}
}

// Run handles deliveries until ctx is cancelled or the consumer closes.
func (w *Worker) Run(ctx context.Context, consumer queue.Consumer) error {
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume the queue: %w", err)
	}
	for delivery := range deliveries {
		w.Handle(ctx, delivery)
	}
	return nil
}

// Handle runs one delivery through the state machine and settles its
// acknowledgement.
func (w *Worker) Handle(ctx context.Context, delivery queue.Delivery) {
	job := delivery.Job

	record, err := w.meta.Get(ctx, job.VideoID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The record was deleted before the job ran; nothing to do.
		log.Info().Str("videoId", job.VideoID).Msg("record is gone, discarding the job")
		w.ack(delivery, job.VideoID)
		return
	case err != nil:
		// Transient store failure; let the broker redeliver.
		log.Error().Err(err).Str("videoId", job.VideoID).Msg("failed to look up the record")
		w.nack(delivery, job.VideoID)
		return
	}
	if record.Status != store.StatusProcessing {
		// Duplicate delivery of a job that already reached a terminal status.
		log.Info().Str("videoId", job.VideoID).Str("status", record.Status).Msg("record is already terminal, discarding the job")
		w.ack(delivery, job.VideoID)
		return
	}

	length, err := w.process(ctx, job)
	if err != nil {
		// The record must never stay processing after a terminal attempt.
		log.Error().Err(err).Str("videoId", job.VideoID).Msg("failed to process the job")
		w.fail(ctx, job.VideoID)
		w.ack(delivery, job.VideoID)
		return
	}

	if err := w.meta.UpdateTerminal(ctx, job.VideoID, store.StatusDone, length); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted while transcoding; drop the blobs written above.
			log.Info().Str("videoId", job.VideoID).Msg("record vanished, cleaning up the blobs")
			w.cleanupBlobs(ctx, job.VideoID)
			w.ack(delivery, job.VideoID)
			return
		}
		// Redelivery rewrites the same blobs and retries the update.
		log.Error().Err(err).Str("videoId", job.VideoID).Msg("failed to record the result")
		w.nack(delivery, job.VideoID)
		return
	}

	w.notify(ctx, job.VideoID, notify.StatusFinished)
	log.Info().Str("videoId", job.VideoID).Int64("length", length).Msg("successfully processed the job")
	w.ack(delivery, job.VideoID)
}

// process fetches the payload into a scratch directory, transcodes it and
// uploads both artifacts. The scratch directory is removed on every path.
func (w *Worker) process(ctx context.Context, job queue.Job) (int64, error) {
	w.notify(ctx, job.VideoID, notify.StatusTranscoding)

	tempDirPath, err := os.MkdirTemp("", "transcode")
	if err != nil {
		return 0, fmt.Errorf("failed to create the temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDirPath); err != nil {
			log.Error().Err(err).Str("videoId", job.VideoID).Msg("failed to clean up the temp directory")
		}
	}()

	inputPath := filepath.Join(tempDirPath, "input.mp4")
	outputPath := filepath.Join(tempDirPath, "compressed.mp4")
	if err := os.WriteFile(inputPath, job.Payload, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write the input file: %w", err)
	}

	if err := w.backend.Transcode(ctx, inputPath, outputPath); err != nil {
		return 0, fmt.Errorf("failed to transcode: %w", err)
	}
	length, err := w.backend.Duration(ctx, outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to probe the output duration: %w", err)
	}
	derived, err := os.ReadFile(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read the output file: %w", err)
	}

	w.notify(ctx, job.VideoID, notify.StatusUploading)
	originalKey, _ := BlobKey(job.VideoID, KindOriginal)
	if err := w.blobs.Put(ctx, originalKey, job.Payload); err != nil {
		return 0, fmt.Errorf("failed to upload the original blob: %w", err)
	}
	derivedKey, _ := BlobKey(job.VideoID, KindDerived)
	if err := w.blobs.Put(ctx, derivedKey, derived); err != nil {
		return 0, fmt.Errorf("failed to upload the derived blob: %w", err)
	}
	return length, nil
}

// fail marks the record failed. A record that vanished underneath the job is
// not an error here.
func (w *Worker) fail(ctx context.Context, videoID string) {
	if err := w.meta.UpdateTerminal(ctx, videoID, store.StatusFailed, 0); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to mark the record failed")
	}
	w.notify(ctx, videoID, notify.StatusFailed)
}

func (w *Worker) cleanupBlobs(ctx context.Context, videoID string) {
	for _, kind := range []Kind{KindOriginal, KindDerived} {
		key, _ := BlobKey(videoID, kind)
		if err := w.blobs.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("videoId", videoID).Str("key", key).Msg("failed to delete the orphaned blob")
		}
	}
}

func (w *Worker) ack(delivery queue.Delivery, videoID string) {
	if err := delivery.Ack(); err != nil {
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to ack the message")
	}
}

func (w *Worker) nack(delivery queue.Delivery, videoID string) {
	if err := delivery.Nack(true); err != nil {
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to nack the message")
	}
}

func (w *Worker) notify(ctx context.Context, videoID string, status notify.JobStatus) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Publish(ctx, videoID, status); err != nil {
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to publish the notification")
	}
}
