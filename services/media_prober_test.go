package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeDuration(t *testing.T) {
	tool := newFakeTool()
	tool.durations["/v.mp4"] = 12.345

	d, err := NewMediaProber(tool).ProbeDuration(context.Background(), "/v.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 12.345, d.Seconds, 1e-9)
	assert.Equal(t, "/v.mp4", d.SourcePath)
	require.Len(t, tool.probeCalls, 1)
	assert.Equal(t, []string{"-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", "/v.mp4"}, tool.probeCalls[0])
}

func TestProbeDurationIsNeverCached(t *testing.T) {
	tool := newFakeTool()
	tool.durations["/a.mp3"] = 3
	p := NewMediaProber(tool)

	_, err := p.ProbeDuration(context.Background(), "/a.mp3")
	require.NoError(t, err)
	tool.durations["/a.mp3"] = 4
	d, err := p.ProbeDuration(context.Background(), "/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 4.0, d.Seconds)
	assert.Len(t, tool.probeCalls, 2)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"10.500000\n", 10.5, false},
		{" 3 ", 3, false},
		{"N/A\n", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
		{"NaN", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestProbeInfo(t *testing.T) {
	tool := newFakeTool()
	tool.probeJSON = []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "audio", "codec_name": "mp3"}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "30.033333", "size": "1048576"}
	}`)

	info, err := NewMediaProber(tool).ProbeInfo(context.Background(), "/in.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/in.mp4", info.Path)
	assert.InDelta(t, 30.033333, info.Duration, 1e-9)
	assert.Equal(t, int64(1048576), info.Size)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.True(t, info.HasVideo)
	assert.True(t, info.HasAudio)
}

func TestProbeInfoMalformedOutput(t *testing.T) {
	tool := newFakeTool()
	tool.probeJSON = []byte("not json")

	_, err := NewMediaProber(tool).ProbeInfo(context.Background(), "/in.mp4")
	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, "/in.mp4", probeErr.Path)
}
