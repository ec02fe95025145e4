package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/utils"
)

// NewPipelineFromConfig wires the translator, both speech providers, the media
// tool and the pipeline stages from cfg. Providers without credentials are
// left out; the pipeline still builds so the API can report exhaustion per job.
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, *utils.FFmpegRunner, error) {
	tool := utils.NewFFmpegRunner(cfg.FFmpegPath, cfg.FFprobePath, cfg.MediaTimeout)

	var translator Translator
	if t := NewChatTranslator(TranslatorConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.TranslateTimeout,
	}, logger); t != nil {
		translator = t
	} else {
		logger.Warn("GEMINI_API_KEY not set, narration will not be translated")
	}

	var providers []Synthesizer
	if primary := NewOpenAITTS(utils.NewAPIKeyPool(cfg.OpenAIAPIKeys, cfg.KeyCooldown), OpenAITTSConfig{
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAITTSModel,
		DefaultVoice: cfg.DefaultVoice,
		Timeout:      cfg.SynthTimeout,
	}, logger); primary != nil {
		providers = append(providers, primary)
	}

	fallback, err := NewGoogleTTS(ctx, GoogleTTSConfig{
		CredentialsFile: cfg.GoogleTTSCredentialsFile,
		UseADC:          cfg.GoogleTTSUseADC,
		Endpoint:        cfg.GoogleTTSEndpoint,
		Timeout:         cfg.SynthTimeout,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure google tts: %w", err)
	}
	if fallback != nil {
		providers = append(providers, fallback)
	}
	if len(providers) == 0 {
		logger.Warn("no speech providers configured, every job will fail")
	}

	narrator := NewNarrationManager(translator, providers, logger)
	prober := NewMediaProber(tool)
	pipeline := NewPipeline(
		narrator,
		NewReconciler(tool, prober, logger),
		NewMuxer(tool, prober, "192k", logger),
		cfg.TempDir,
		cfg.OutputDir,
		logger,
	)

	logger.Info("pipeline configured",
		zap.Any("providers", narrator.Providers()),
		zap.Bool("translation", translator != nil))
	return pipeline, tool, nil
}
