package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vidnarrate/utils"
)

// Muxer combines the original video stream with fitted narration audio.
type Muxer struct {
	tool         utils.MediaTool
	prober       *MediaProber
	audioBitrate string
	logger       *zap.Logger
}

// NewMuxer creates a muxer encoding narration as AAC at audioBitrate.
func NewMuxer(tool utils.MediaTool, prober *MediaProber, audioBitrate string, logger *zap.Logger) *Muxer {
	if audioBitrate == "" {
		audioBitrate = "192k"
	}
	return &Muxer{tool: tool, prober: prober, audioBitrate: audioBitrate, logger: logger.Named("muxer")}
}

// Merge writes outputPath with the video stream copied untouched and audioPath
// as the only audio track, cut to the video's duration. outputPath appears
// only once the mux has fully succeeded.
func (m *Muxer) Merge(ctx context.Context, videoPath, audioPath, outputPath string) (string, error) {
	if videoPath == "" || audioPath == "" || outputPath == "" {
		return "", &MergeError{Err: errors.New("video, audio and output paths are required")}
	}

	videoDur, err := m.prober.ProbeDuration(ctx, videoPath)
	if err != nil {
		return "", &MergeError{Stderr: stderrOf(err), Err: err}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &MergeError{Err: fmt.Errorf("failed to create output directory: %w", err)}
	}
	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(filepath.Base(outputPath), ext)
	tmp, err := os.CreateTemp(dir, "."+base+"-*"+ext)
	if err != nil {
		return "", &MergeError{Err: fmt.Errorf("failed to create temp output: %w", err)}
	}
	tmpPath := tmp.Name()
	tmp.Close()

	err = m.tool.RunFFmpeg(ctx,
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", m.audioBitrate,
		"-t", utils.FormatSeconds(videoDur.Seconds),
		"-y", tmpPath,
	)
	if err != nil {
		os.Remove(tmpPath)
		return "", &MergeError{Stderr: stderrOf(err), Err: err}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return "", &MergeError{Err: fmt.Errorf("failed to move output into place: %w", err)}
	}

	m.logger.Info("merged narration into video",
		zap.String("output", outputPath),
		zap.Float64("duration", videoDur.Seconds))
	return outputPath, nil
}
