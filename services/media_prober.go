package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidnarrate/models"
	"vidnarrate/utils"
)

// MediaProber reads container metadata through ffprobe. Results are never cached.
type MediaProber struct {
	tool utils.MediaTool
}

func NewMediaProber(tool utils.MediaTool) *MediaProber {
	return &MediaProber{tool: tool}
}

// ProbeDuration returns the container duration of path in seconds.
func (p *MediaProber) ProbeDuration(ctx context.Context, path string) (models.MediaDuration, error) {
	out, err := p.tool.RunFFprobe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return models.MediaDuration{}, &ProbeError{Path: path, Stderr: stderrOf(err), Err: err}
	}

	seconds, err := parseDuration(string(out))
	if err != nil {
		return models.MediaDuration{}, &ProbeError{Path: path, Err: err}
	}
	return models.MediaDuration{Seconds: seconds, SourcePath: path}, nil
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeInfo returns format and stream details for path.
func (p *MediaProber) ProbeInfo(ctx context.Context, path string) (models.MediaInfo, error) {
	out, err := p.tool.RunFFprobe(ctx,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return models.MediaInfo{}, &ProbeError{Path: path, Stderr: stderrOf(err), Err: err}
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return models.MediaInfo{}, &ProbeError{Path: path, Err: fmt.Errorf("failed to parse ffprobe output: %w", err)}
	}

	info := models.MediaInfo{
		Path:   path,
		Format: probe.Format.FormatName,
	}
	if probe.Format.Duration != "" {
		if info.Duration, err = parseDuration(probe.Format.Duration); err != nil {
			return models.MediaInfo{}, &ProbeError{Path: path, Err: err}
		}
	}
	if probe.Format.Size != "" {
		info.Size, _ = strconv.ParseInt(probe.Format.Size, 10, 64)
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = s.CodecName
			}
		}
	}

	return info, nil
}

func parseDuration(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" {
		return 0, errors.New("duration not reported")
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return seconds, nil
}
