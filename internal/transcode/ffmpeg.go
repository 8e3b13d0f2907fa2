package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FfmpegBackend shells out to ffmpeg for the transcode and ffprobe for the
// duration probe.
type FfmpegBackend struct {
	// Target resolution of the compressed rendition. Zero values fall back
	// to 480x360.
	Width  int
	Height int
}

func (b *FfmpegBackend) Available() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return false
	}
	return true
}

func (b *FfmpegBackend) buildArgs(inputPath, outputPath string) []string {
	width, height := b.Width, b.Height
	if width <= 0 {
		width = 480
	}
	if height <= 0 {
		height = 360
	}
	return []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "96k",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
}

func (b *FfmpegBackend) Transcode(ctx context.Context, inputPath, outputPath string) error {
	var logBuffer bytes.Buffer
	command := exec.CommandContext(ctx, "ffmpeg", b.buildArgs(inputPath, outputPath)...)
	command.Stderr = &logBuffer
	if err := command.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, logBuffer.String())
	}
	return nil
}

func (b *FfmpegBackend) Duration(ctx context.Context, path string) (int64, error) {
	command := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := command.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse the ffprobe output: %w", err)
	}
	return int64(seconds), nil
}
