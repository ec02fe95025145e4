package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MediaTool runs the external media binaries. Every call blocks only the
// calling goroutine and honours ctx: cancellation kills the child process.
type MediaTool interface {
	RunFFmpeg(ctx context.Context, args ...string) error
	RunFFprobe(ctx context.Context, args ...string) ([]byte, error)
}

// CommandError is returned when a media binary exits non-zero, times out or
// cannot be started.
type CommandError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s error: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s error: %v, stderr: %s", e.Tool, e.Err, lastLines(stderr, 20))
}

func (e *CommandError) Unwrap() error { return e.Err }

// FFmpegRunner executes ffmpeg/ffprobe as child processes.
type FFmpegRunner struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// NewFFmpegRunner creates a runner; timeout bounds every single invocation.
func NewFFmpegRunner(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpegRunner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegRunner{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, timeout: timeout}
}

// RunFFmpeg executes an FFmpeg command
func (r *FFmpegRunner) RunFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	_, err := r.run(ctx, r.ffmpegPath, full)
	return err
}

// RunFFprobe executes an ffprobe command and returns its stdout
func (r *FFmpegRunner) RunFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	return r.run(ctx, r.ffprobePath, args)
}

// CheckInstalled verifies both binaries can be started.
func (r *FFmpegRunner) CheckInstalled(ctx context.Context) error {
	if _, err := r.run(ctx, r.ffmpegPath, []string{"-version"}); err != nil {
		return err
	}
	_, err := r.run(ctx, r.ffprobePath, []string{"-version"})
	return err
}

func (r *FFmpegRunner) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return nil, &CommandError{
			Tool:   filepath.Base(bin),
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}

// FormatSeconds renders a duration in seconds the way ffmpeg's -t expects it.
func FormatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
