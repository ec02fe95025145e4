package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidnarrate/config"
	"vidnarrate/models"
)

func defaultSettings() config.Settings {
	return config.Settings{
		DefaultVoice:         "nova",
		TranslationEnabled:   true,
		MaxDescriptionLength: 5000,
		ProviderOrder:        []string{"openai", "google"},
		FallbackEnabled:      true,
	}
}

func TestNarrationPrimarySucceeds(t *testing.T) {
	primary := &fakeSynth{kind: models.ProviderPrimary, audio: []byte("p")}
	fallback := &fakeSynth{kind: models.ProviderFallback, audio: []byte("f")}
	tr := &fakeTranslator{out: "నమస్కారం"}
	m := NewNarrationManager(tr, []Synthesizer{primary, fallback}, nopLogger())

	res, err := m.Synthesize(context.Background(), models.NarrationRequest{
		Text: "Hello", TargetLanguage: "te", Voice: "nova", TranslateEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderPrimary, res.Provider)
	assert.Equal(t, []byte("p"), res.Audio)
	assert.True(t, res.WasTranslated)
	assert.Equal(t, "నమస్కారం", res.Text)
	assert.Equal(t, []string{"నమస్కారం"}, primary.texts)
	assert.Zero(t, fallback.callCount())
}

func TestNarrationFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &fakeSynth{kind: models.ProviderPrimary, err: errors.New("429 rate limited")}
	fallback := &fakeSynth{kind: models.ProviderFallback, audio: []byte("f")}
	m := NewNarrationManager(nil, []Synthesizer{primary, fallback}, nopLogger())

	res, err := m.Synthesize(context.Background(), models.NarrationRequest{Text: "Hello", TargetLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderFallback, res.Provider)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestNarrationExhausted(t *testing.T) {
	primary := &fakeSynth{kind: models.ProviderPrimary, err: errors.New("boom")}
	fallback := &fakeSynth{kind: models.ProviderFallback, err: errors.New("bang")}
	m := NewNarrationManager(nil, []Synthesizer{primary, fallback}, nopLogger())

	_, err := m.Synthesize(context.Background(), models.NarrationRequest{Text: "Hello", TargetLanguage: "hi"})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "hi", exhausted.Language)
	require.Len(t, exhausted.Attempts, 2)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, models.ProviderPrimary, synthErr.Provider)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestNarrationNoProvidersFailsImmediately(t *testing.T) {
	tr := &fakeTranslator{out: "x"}
	m := NewNarrationManager(tr, []Synthesizer{nil, nil}, nopLogger())

	_, err := m.Synthesize(context.Background(), models.NarrationRequest{
		Text: "Hello", TargetLanguage: "te", TranslateEnabled: true,
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Empty(t, exhausted.Attempts)
	assert.Zero(t, tr.calls, "no network call of any kind")
}

func TestNarrationTranslationRules(t *testing.T) {
	tests := []struct {
		name      string
		req       models.NarrationRequest
		trErr     error
		wantCalls int
		wantText  string
		wantFlag  bool
	}{
		{"disabled", models.NarrationRequest{Text: "Hello", TargetLanguage: "te"}, nil, 0, "Hello", false},
		{"source language", models.NarrationRequest{Text: "Hello", TargetLanguage: "en", TranslateEnabled: true}, nil, 0, "Hello", false},
		{"empty text", models.NarrationRequest{Text: "", TargetLanguage: "te", TranslateEnabled: true}, nil, 0, "", false},
		{"translated", models.NarrationRequest{Text: "Hello", TargetLanguage: "es", TranslateEnabled: true}, nil, 1, "Hola", true},
		{"failure absorbed", models.NarrationRequest{Text: "Hello", TargetLanguage: "es", TranslateEnabled: true}, errors.New("503"), 1, "Hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslator{out: "Hola", err: tt.trErr}
			synth := &fakeSynth{kind: models.ProviderPrimary, audio: []byte("a")}
			m := NewNarrationManager(tr, []Synthesizer{synth}, nopLogger())

			res, err := m.Synthesize(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, tr.calls)
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantFlag, res.WasTranslated)
			assert.Equal(t, []string{tt.wantText}, synth.texts)
			assert.Equal(t, []string{tt.req.TargetLanguage}, synth.langs)
		})
	}
}

func TestNarrationForSettings(t *testing.T) {
	primary := &fakeSynth{kind: models.ProviderPrimary, err: errors.New("down")}
	fallback := &fakeSynth{kind: models.ProviderFallback, audio: []byte("f")}
	m := NewNarrationManager(nil, []Synthesizer{primary, fallback}, nopLogger())

	s := defaultSettings()
	s.ProviderOrder = []string{"google", "openai"}
	assert.Equal(t, []models.ProviderKind{models.ProviderFallback, models.ProviderPrimary}, m.ForSettings(s).Providers())

	s = defaultSettings()
	s.FallbackEnabled = false
	restricted := m.ForSettings(s)
	assert.Equal(t, []models.ProviderKind{models.ProviderPrimary}, restricted.Providers())

	_, err := restricted.Synthesize(context.Background(), models.NarrationRequest{Text: "Hi", TargetLanguage: "en"})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Zero(t, fallback.callCount())
}

func TestNarrationStopsOnCancellation(t *testing.T) {
	primary := &fakeSynth{kind: models.ProviderPrimary, audio: []byte("p")}
	m := NewNarrationManager(nil, []Synthesizer{primary}, nopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Synthesize(ctx, models.NarrationRequest{Text: "Hi", TargetLanguage: "en"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, primary.callCount())
}

func TestNarrationReportsSynthesisAfterTranslation(t *testing.T) {
	tests := []struct {
		name  string
		req   models.NarrationRequest
		trErr error
		want  []string
	}{
		{"translated", models.NarrationRequest{Text: "Hello", TargetLanguage: "te", TranslateEnabled: true}, nil, []string{StageSynthesizing}},
		{"translation failed", models.NarrationRequest{Text: "Hello", TargetLanguage: "te", TranslateEnabled: true}, errors.New("503"), []string{StageSynthesizing}},
		{"no translation step", models.NarrationRequest{Text: "Hello", TargetLanguage: "en", TranslateEnabled: true}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslator{out: "నమస్కారం", err: tt.trErr}
			synth := &fakeSynth{kind: models.ProviderPrimary, audio: []byte("a")}
			var stages []string
			m := NewNarrationManager(tr, []Synthesizer{synth}, nopLogger()).
				ForSettings(defaultSettings()).
				WithStages(func(stage string) { stages = append(stages, stage) })

			_, err := m.Synthesize(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stages)
		})
	}
}
