package transcode

import (
	"context"
	"errors"
)

var NotAvailable = errors.New("the selected backend is not available")

// Backend turns an uploaded video file into its compressed rendition.
type Backend interface {
	Available() bool
	// Transcode reads inputPath and writes the compressed rendition to
	// outputPath.
	Transcode(ctx context.Context, inputPath, outputPath string) error
	// Duration returns the length of the media at path in whole seconds.
	Duration(ctx context.Context, path string) (int64, error)
}
