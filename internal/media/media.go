// Package media turns a stored video into a handful of inline-encodable
// still frames for multimodal judgment.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// MaxDuration is the ceiling on analyzable video length.
	MaxDuration = 600.0 // seconds

	frameCount = 5
)

// frameOffsets are the relative positions sampled from the video.
var frameOffsets = [frameCount]float64{0.1, 0.3, 0.5, 0.7, 0.9}

var (
	// ErrDurationExceeded means the video is longer than MaxDuration. It is
	// the only preprocessing error surfaced to the end user.
	ErrDurationExceeded = errors.New("video is too long. Maximum allowed duration is 10 minutes")

	// ErrProbe means the container duration could not be determined.
	ErrProbe = errors.New("could not probe video metadata")

	// ErrExtraction means frame decode/encode failed.
	ErrExtraction = errors.New("frame extraction failed")
)

// Frame is one extracted still, base64-encoded JPEG, tagged with the
// relative offset it was sampled at.
type Frame struct {
	Base64 string
	Offset float64
}

// Preprocessor probes and samples video files with ffmpeg.
type Preprocessor struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// NewPreprocessor resolves the ffmpeg and ffprobe binaries from PATH.
func NewPreprocessor(logger *slog.Logger) (*Preprocessor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Preprocessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger.With("component", "media"),
	}, nil
}

// ExtractFrames samples up to five frames from the video at fixed relative
// offsets and returns them as in-memory base64 payloads. Scratch frame files
// are written next to the source and deleted as soon as they are read; the
// source video itself is never touched.
func (p *Preprocessor) ExtractFrames(ctx context.Context, videoPath string) ([]Frame, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("%w: video file not readable at '%s': %v", ErrExtraction, videoPath, err)
	}

	duration, err := p.Duration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if duration > MaxDuration {
		return nil, ErrDurationExceeded
	}

	scratchDir := filepath.Dir(videoPath)
	baseName := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	frames := make([]Frame, 0, frameCount)
	for i, offset := range frameOffsets {
		framePath := filepath.Join(scratchDir, fmt.Sprintf("%s-frame-%d.jpg", baseName, i+1))

		if err := p.extractFrameAt(ctx, videoPath, framePath, duration*offset); err != nil {
			p.cleanupScratch(scratchDir, baseName)
			return nil, err
		}

		data, err := os.ReadFile(framePath)
		removeErr := os.Remove(framePath)
		if err != nil {
			p.cleanupScratch(scratchDir, baseName)
			return nil, fmt.Errorf("%w: reading frame '%s': %v", ErrExtraction, framePath, err)
		}
		if removeErr != nil {
			p.logger.Warn("failed to remove scratch frame", "path", framePath, "error", removeErr)
		}

		frames = append(frames, Frame{
			Base64: base64.StdEncoding.EncodeToString(data),
			Offset: offset,
		})
	}

	p.logger.Debug("extracted frames", "video", videoPath, "count", len(frames), "duration", duration)
	return frames, nil
}

func (p *Preprocessor) extractFrameAt(ctx context.Context, videoPath, framePath string, timestamp float64) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		framePath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg at %.2fs: %v\noutput: %s", ErrExtraction, timestamp, err, string(output))
	}
	if _, err := os.Stat(framePath); err != nil {
		return fmt.Errorf("%w: ffmpeg produced no frame at %.2fs", ErrExtraction, timestamp)
	}
	return nil
}

// cleanupScratch best-effort deletes any frame files produced so far, so a
// mid-sequence failure does not leave scratch files behind.
func (p *Preprocessor) cleanupScratch(scratchDir, baseName string) {
	for i := 1; i <= frameCount; i++ {
		framePath := filepath.Join(scratchDir, fmt.Sprintf("%s-frame-%d.jpg", baseName, i))
		if err := os.Remove(framePath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to clean up scratch frame", "path", framePath, "error", err)
		}
	}
}
