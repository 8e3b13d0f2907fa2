package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"shrinkray/internal/queue"
	"shrinkray/internal/store"
)

func takeDelivery(t *testing.T, q *queue.MemoryQueue) queue.Delivery {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("failed to consume the queue: %v", err)
	}
	select {
	case delivery := <-deliveries:
		return delivery
	case <-time.After(time.Second):
		t.Fatal("no delivery arrived")
		return queue.Delivery{}
	}
}

func TestSubmitAndStatus(t *testing.T) {
	ctx := context.Background()
	meta := store.NewMemoryMetadataStore()
	blobs := store.NewMemoryBlobStore()
	jobs := queue.NewMemoryQueue(1)
	coordinator := NewCoordinator(meta, blobs, jobs, nil)

	payload := []byte("raw video bytes")
	videoID, err := coordinator.Submit(ctx, "clip.mp4", 1024, payload)
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	if videoID == "" {
		t.Fatal("empty video ID")
	}

	record, err := coordinator.Status(ctx, videoID)
	if err != nil {
		t.Fatalf("failed to read the status: %v", err)
	}
	if record.Status != store.StatusProcessing {
		t.Errorf("status = %q, want %q", record.Status, store.StatusProcessing)
	}
	if record.Length != 0 {
		t.Errorf("length = %d, want 0", record.Length)
	}
	if record.Name != "clip.mp4" || record.Size != 1024 {
		t.Errorf("record = %+v", record)
	}

	delivery := takeDelivery(t, jobs)
	if delivery.Job.VideoID != videoID {
		t.Errorf("job video ID = %q, want %q", delivery.Job.VideoID, videoID)
	}
	if !bytes.Equal(delivery.Job.Payload, payload) {
		t.Error("job payload does not match the upload")
	}
}

// recheckingPublisher verifies the record is already readable when the job is
// published.
type recheckingPublisher struct {
	meta store.MetadataStore
	t    *testing.T
}

func (p *recheckingPublisher) Publish(ctx context.Context, job queue.Job) error {
	if _, err := p.meta.Get(ctx, job.VideoID); err != nil {
		p.t.Errorf("job published before its record exists: %v", err)
	}
	return nil
}

func TestSubmitCreatesRecordBeforePublish(t *testing.T) {
	meta := store.NewMemoryMetadataStore()
	coordinator := NewCoordinator(meta, store.NewMemoryBlobStore(), &recheckingPublisher{meta: meta, t: t}, nil)
	if _, err := coordinator.Submit(context.Background(), "clip.mp4", 4, []byte("data")); err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
}

func TestDeleteCompleteness(t *testing.T) {
	ctx := context.Background()
	meta := store.NewMemoryMetadataStore()
	blobs := store.NewMemoryBlobStore()
	jobs := queue.NewMemoryQueue(1)
	coordinator := NewCoordinator(meta, blobs, jobs, nil)
	worker := NewWorker(meta, blobs, &fakeBackend{duration: 42}, nil)

	videoID, err := coordinator.Submit(ctx, "clip.mp4", 4, []byte("data"))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	worker.Handle(ctx, takeDelivery(t, jobs))

	if err := coordinator.Delete(ctx, videoID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	if _, err := coordinator.Status(ctx, videoID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("record still readable after delete: %v", err)
	}
	for _, kind := range []Kind{KindOriginal, KindDerived} {
		key, _ := BlobKey(videoID, kind)
		if _, err := blobs.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("blob %s still readable after delete", key)
		}
	}
}

func TestDeleteUnknownVideo(t *testing.T) {
	coordinator := NewCoordinator(store.NewMemoryMetadataStore(), store.NewMemoryBlobStore(), queue.NewMemoryQueue(1), nil)
	if err := coordinator.Delete(context.Background(), "vid-unknown"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete of an unknown video = %v, want ErrNotFound", err)
	}
}

func TestDeleteBeforeWorkerRuns(t *testing.T) {
	ctx := context.Background()
	meta := store.NewMemoryMetadataStore()
	blobs := store.NewMemoryBlobStore()
	jobs := queue.NewMemoryQueue(1)
	coordinator := NewCoordinator(meta, blobs, jobs, nil)
	worker := NewWorker(meta, blobs, &fakeBackend{duration: 42}, nil)

	videoID, err := coordinator.Submit(ctx, "clip.mp4", 4, []byte("data"))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	delivery := takeDelivery(t, jobs)

	if err := coordinator.Delete(ctx, videoID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	// The queued job arrives after the delete; the recheck must discard it
	// without writing anything.
	worker.Handle(ctx, delivery)
	for _, kind := range []Kind{KindOriginal, KindDerived} {
		key, _ := BlobKey(videoID, kind)
		if _, err := blobs.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("orphaned blob %s after delete-before-worker", key)
		}
	}
	if _, err := meta.Get(ctx, videoID); !errors.Is(err, store.ErrNotFound) {
		t.Error("record reappeared after delete")
	}
}

func TestOpenUnknownKind(t *testing.T) {
	coordinator := NewCoordinator(store.NewMemoryMetadataStore(), store.NewMemoryBlobStore(), queue.NewMemoryQueue(1), nil)
	if _, err := coordinator.Open(context.Background(), "vid-1", Kind("thumbnail")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("open with an unknown kind = %v, want ErrNotFound", err)
	}
}
