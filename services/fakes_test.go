package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"

	"vidnarrate/models"
	"vidnarrate/utils"
)

// fakeTool stands in for ffmpeg/ffprobe. Probes answer from durations (or
// defaultDuration); ffmpeg calls are recorded and write their last argument.
type fakeTool struct {
	mu              sync.Mutex
	durations       map[string]float64
	defaultDuration float64
	probeJSON       []byte
	ffmpegCalls     [][]string
	probeCalls      [][]string
	// failFFmpeg, when it returns non-nil, makes the call fail without output.
	failFFmpeg func(args []string) error
	// block makes RunFFmpeg wait for ctx cancellation.
	block bool
}

func newFakeTool() *fakeTool {
	return &fakeTool{durations: make(map[string]float64)}
}

func (f *fakeTool) RunFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls = append(f.probeCalls, args)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := args[len(args)-1]
	if slices.Contains(args, "-show_streams") && f.probeJSON != nil {
		return f.probeJSON, nil
	}
	d, ok := f.durations[path]
	if !ok {
		if f.defaultDuration == 0 {
			return nil, &utils.CommandError{
				Tool:   "ffprobe",
				Args:   args,
				Stderr: path + ": No such file or directory",
				Err:    errors.New("exit status 1"),
			}
		}
		d = f.defaultDuration
	}
	return []byte(fmt.Sprintf("%.6f\n", d)), nil
}

func (f *fakeTool) RunFFmpeg(ctx context.Context, args ...string) error {
	f.mu.Lock()
	f.ffmpegCalls = append(f.ffmpegCalls, args)
	fail := f.failFFmpeg
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return &utils.CommandError{Tool: "ffmpeg", Args: args, Err: ctx.Err()}
	}
	if fail != nil {
		if err := fail(args); err != nil {
			return err
		}
	}
	return os.WriteFile(args[len(args)-1], []byte("rendered"), 0644)
}

func (f *fakeTool) calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ffmpegCalls)
}

func failIfContains(flag string) func([]string) error {
	return func(args []string) error {
		if slices.Contains(args, flag) {
			return &utils.CommandError{
				Tool:   "ffmpeg",
				Args:   args,
				Stderr: "Invalid argument " + flag,
				Err:    errors.New("exit status 1"),
			}
		}
		return nil
	}
}

// fakeSynth returns audio or err and counts calls.
type fakeSynth struct {
	kind  models.ProviderKind
	audio []byte
	err   error

	mu    sync.Mutex
	texts []string
	langs []string
}

func (s *fakeSynth) Kind() models.ProviderKind { return s.kind }

func (s *fakeSynth) Synthesize(_ context.Context, text, languageCode, _ string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.langs = append(s.langs, languageCode)
	if s.err != nil {
		return nil, &SynthesisError{Provider: s.kind, Err: s.err}
	}
	return s.audio, nil
}

func (s *fakeSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

type fakeTranslator struct {
	out   string
	err   error
	calls int
}

func (t *fakeTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", &TranslationError{Language: lang, Err: t.err}
	}
	return t.out, nil
}

func nopLogger() *zap.Logger { return zap.NewNop() }
