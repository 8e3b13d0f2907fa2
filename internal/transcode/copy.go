package transcode

import (
	"context"
	"fmt"
	"io"
	"os"
)

// CopyBackend passes the input through unchanged. Useful on hosts without
// ffmpeg; the reported duration is zero since nothing probes the media.
type CopyBackend struct{}

func (b *CopyBackend) Available() bool {
	return true
}

func (b *CopyBackend) Transcode(ctx context.Context, inputPath, outputPath string) error {
	input, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open the input file: %w", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create the output file: %w", err)
	}
	defer output.Close()

	if _, err := io.Copy(output, input); err != nil {
		return fmt.Errorf("failed to copy the file: %w", err)
	}
	return nil
}

func (b *CopyBackend) Duration(ctx context.Context, path string) (int64, error) {
	return 0, nil
}
