package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/models"
)

// NarrationManager turns description text into narration audio, translating
// first when asked and trying each available provider once in order.
type NarrationManager struct {
	translator Translator
	providers  []Synthesizer
	onStage    func(stage string)
	logger     *zap.Logger
}

// NewNarrationManager keeps only non-nil providers, in the order given.
// translator may be nil, in which case requests are voiced untranslated.
func NewNarrationManager(translator Translator, providers []Synthesizer, logger *zap.Logger) *NarrationManager {
	available := make([]Synthesizer, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			available = append(available, p)
		}
	}
	return &NarrationManager{
		translator: translator,
		providers:  available,
		logger:     logger.Named("narration"),
	}
}

// ForSettings returns a manager whose attempt list follows the snapshot's
// provider order. With fallback disabled only the first available provider is kept.
func (m *NarrationManager) ForSettings(s config.Settings) *NarrationManager {
	ordered := make([]Synthesizer, 0, len(m.providers))
	for _, name := range s.ProviderOrder {
		for _, p := range m.providers {
			if string(p.Kind()) == name {
				ordered = append(ordered, p)
			}
		}
	}
	if len(s.ProviderOrder) == 0 {
		ordered = append(ordered, m.providers...)
	}
	if !s.FallbackEnabled && len(ordered) > 1 {
		ordered = ordered[:1]
	}
	return &NarrationManager{translator: m.translator, providers: ordered, onStage: m.onStage, logger: m.logger}
}

// WithStages returns a manager that reports StageSynthesizing to fn once a
// translation step has finished.
func (m *NarrationManager) WithStages(fn func(stage string)) *NarrationManager {
	c := *m
	c.onStage = fn
	return &c
}

// Providers reports the attempt order.
func (m *NarrationManager) Providers() []models.ProviderKind {
	kinds := make([]models.ProviderKind, len(m.providers))
	for i, p := range m.providers {
		kinds[i] = p.Kind()
	}
	return kinds
}

// Synthesize produces one narration for req. A translation failure is logged
// and the original text is voiced instead.
func (m *NarrationManager) Synthesize(ctx context.Context, req models.NarrationRequest) (*models.NarrationResult, error) {
	if len(m.providers) == 0 {
		return nil, &ExhaustedError{Language: req.TargetLanguage}
	}

	text := req.Text
	translated := false
	if req.TranslateEnabled && req.TargetLanguage != models.SourceLanguage && req.Text != "" {
		text, translated = m.translate(ctx, req)
		if m.onStage != nil {
			m.onStage(StageSynthesizing)
		}
	}

	var attempts []error
	for _, provider := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		audio, err := provider.Synthesize(ctx, text, req.TargetLanguage, req.Voice)
		if err != nil {
			m.logger.Warn("provider failed",
				zap.String("provider", string(provider.Kind())),
				zap.String("language", req.TargetLanguage),
				zap.Error(err))
			attempts = append(attempts, err)
			continue
		}

		m.logger.Info("narration synthesized",
			zap.String("provider", string(provider.Kind())),
			zap.String("language", req.TargetLanguage),
			zap.Bool("translated", translated),
			zap.Int("bytes", len(audio)),
			zap.Duration("took", time.Since(start)))
		return &models.NarrationResult{
			Audio:         audio,
			Provider:      provider.Kind(),
			WasTranslated: translated,
			Text:          text,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, &ExhaustedError{Language: req.TargetLanguage, Attempts: attempts}
}

func (m *NarrationManager) translate(ctx context.Context, req models.NarrationRequest) (string, bool) {
	if m.translator == nil {
		m.logger.Warn("translation requested but no translator is configured",
			zap.String("language", req.TargetLanguage))
		return req.Text, false
	}

	out, err := m.translator.Translate(ctx, req.Text, req.TargetLanguage)
	if err != nil {
		m.logger.Warn("translation failed, using original text",
			zap.String("language", req.TargetLanguage),
			zap.Error(err))
		return req.Text, false
	}
	return out, true
}
