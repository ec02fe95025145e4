package services

import (
	"errors"
	"fmt"
	"strings"

	"vidnarrate/models"
	"vidnarrate/utils"
)

var (
	// ErrEmptyDescription is returned when a job has no narration text.
	ErrEmptyDescription = errors.New("description text is required")
	// ErrDescriptionTooLong is returned before any external call is made.
	ErrDescriptionTooLong = errors.New("description text exceeds maximum length")
)

// TranslationError reports a failed translation request.
type TranslationError struct {
	Language string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation to %q failed: %v", e.Language, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// SynthesisError reports a failed call to one speech provider.
type SynthesisError struct {
	Provider models.ProviderKind
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ExhaustedError means no provider produced audio for the request.
type ExhaustedError struct {
	Language string
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("all providers exhausted for %q: no providers configured", e.Language)
	}
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("all providers exhausted for %q: %s", e.Language, strings.Join(msgs, "; "))
}

func (e *ExhaustedError) Unwrap() []error { return e.Attempts }

// ProbeError reports an ffprobe failure or unusable output.
type ProbeError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ReconciliationError reports a failed duration-fitting step.
type ReconciliationError struct {
	Strategy models.Strategy
	Stderr   string
	Err      error
}

func (e *ReconciliationError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("reconcile audio: %v", e.Err)
	}
	return fmt.Sprintf("reconcile audio (%s): %v", e.Strategy, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// MergeError reports a failed mux of video and narration.
type MergeError struct {
	Stderr string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed: %v", e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// stderrOf extracts tool stderr from a utils.CommandError anywhere in err's chain.
func stderrOf(err error) string {
	var cmdErr *utils.CommandError
	if errors.As(err, &cmdErr) {
		return strings.TrimSpace(cmdErr.Stderr)
	}
	return ""
}
