package services

import (
	"context"
	"strings"

	"vidnarrate/models"
)

// Synthesizer turns text into MP3 audio bytes.
type Synthesizer interface {
	Kind() models.ProviderKind
	Synthesize(ctx context.Context, text, languageCode, voice string) ([]byte, error)
}

var googleVoiceMarkers = []string{"-Standard-", "-Wavenet-", "-Neural2-", "-Studio-", "-Chirp"}

// isGoogleVoice reports whether voice is named like a Cloud Text-to-Speech voice
// (e.g. "te-IN-Standard-A").
func isGoogleVoice(voice string) bool {
	for _, marker := range googleVoiceMarkers {
		if strings.Contains(voice, marker) {
			return true
		}
	}
	return false
}
