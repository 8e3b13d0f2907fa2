package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
)

func record(videoID string) VideoRecord {
	return VideoRecord{
		VideoID:      videoID,
		Name:         "clip.mp4",
		Size:         1024,
		CreationDate: "2024-01-01T00:00:00Z",
		Status:       StatusProcessing,
	}
}

func TestMetadataCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	if err := s.Create(ctx, record("vid-1")); err != nil {
		t.Fatalf("failed to create: %v", err)
	}
	got, err := s.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got.Name != "clip.mp4" || got.Status != StatusProcessing {
		t.Errorf("record = %+v", got)
	}

	if err := s.Create(ctx, record("vid-1")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.Get(ctx, "vid-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get of a missing record = %v, want ErrNotFound", err)
	}
}

func TestMetadataUpdateTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()
	if err := s.Create(ctx, record("vid-1")); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateTerminal(ctx, "vid-1", StatusDone, 42); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	got, _ := s.Get(ctx, "vid-1")
	if got.Status != StatusDone || got.Length != 42 {
		t.Errorf("record = %+v, want done/42", got)
	}

	if err := s.UpdateTerminal(ctx, "vid-missing", StatusFailed, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of a missing record = %v, want ErrNotFound", err)
	}
}

// A reader racing the terminal update must see status and length change
// together: done always comes with the final length.
func TestMetadataUpdateTerminalAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()
	if err := s.Create(ctx, record("vid-1")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := s.Get(ctx, "vid-1")
			if err != nil {
				continue
			}
			if got.Status == StatusDone && got.Length != 42 {
				t.Errorf("observed a half-updated record: %+v", got)
				return
			}
		}
	}()

	if err := s.UpdateTerminal(ctx, "vid-1", StatusDone, 42); err != nil {
		t.Fatal(err)
	}
	close(stop)
	wg.Wait()
}

func TestMetadataDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()
	if err := s.Create(ctx, record("vid-1")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "vid-1"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := s.Get(ctx, "vid-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "vid-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestBlobPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()

	if err := s.Put(ctx, "vid-1/video", []byte("bytes")); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	// Overwriting with identical content is part of the contract.
	if err := s.Put(ctx, "vid-1/video", []byte("bytes")); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	got, err := s.Get(ctx, "vid-1/video")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !bytes.Equal(got, []byte("bytes")) {
		t.Errorf("blob = %q, want %q", got, "bytes")
	}
	if _, err := s.Get(ctx, "vid-1/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get of a missing blob = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "vid-1/video"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := s.Get(ctx, "vid-1/video"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "vid-1/video"); err != nil {
		t.Errorf("delete of a missing blob = %v, want nil", err)
	}
}

func TestBlobGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()
	if err := s.Put(ctx, "k", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "k")
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if !bytes.Equal(again, []byte("abc")) {
		t.Error("stored blob was mutated through a returned slice")
	}
}
