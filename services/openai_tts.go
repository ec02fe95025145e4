package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"vidnarrate/models"
	"vidnarrate/utils"
)

// OpenAITTSConfig configures the primary speech provider.
type OpenAITTSConfig struct {
	BaseURL      string
	Model        string
	DefaultVoice string
	Timeout      time.Duration
}

// OpenAITTS is the primary synthesizer backed by the OpenAI speech endpoint.
type OpenAITTS struct {
	apiPool      *utils.APIKeyPool
	client       *openai.Client
	model        string
	defaultVoice string
	chunker      *TextProcessor
	logger       *zap.Logger
}

// NewOpenAITTS returns nil when the key pool is empty. Keys are attached per
// request, so one client serves every key in the pool.
func NewOpenAITTS(apiPool *utils.APIKeyPool, cfg OpenAITTSConfig, logger *zap.Logger) *OpenAITTS {
	if apiPool == nil {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = openai.SpeechModelTTS1
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "nova"
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return &OpenAITTS{
		apiPool:      apiPool,
		client:       &client,
		model:        cfg.Model,
		defaultVoice: cfg.DefaultVoice,
		chunker:      NewRuneTextProcessor(OpenAITTSMaxChars),
		logger:       logger.Named("openai_tts"),
	}
}

func (s *OpenAITTS) Kind() models.ProviderKind { return models.ProviderPrimary }

// Synthesize requests each chunk of text with the next pool key and joins
// the MP3 streams. The language code is not sent: the model infers it.
func (s *OpenAITTS) Synthesize(ctx context.Context, text, languageCode, voice string) ([]byte, error) {
	voice = s.resolveVoice(voice)

	chunks := s.chunker.SplitForSynthesis(text)
	if len(chunks) == 0 {
		return nil, &SynthesisError{Provider: s.Kind(), Err: errors.New("empty text")}
	}

	var audio []byte
	for i, chunk := range chunks {
		apiKey, err := s.apiPool.Next()
		if err != nil {
			return nil, &SynthesisError{Provider: s.Kind(), Err: err}
		}

		data, err := s.callSpeech(ctx, chunk, voice, apiKey)
		if err != nil {
			if keyAtFault(ctx, err) {
				s.apiPool.MarkFailed(apiKey)
				stats := s.apiPool.Stats()
				s.logger.Warn("api key benched",
					zap.Int("available", stats.Available),
					zap.Int("blacklisted", stats.Blacklisted),
					zap.Error(err))
			}
			return nil, &SynthesisError{Provider: s.Kind(), Err: fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)}
		}
		s.apiPool.MarkSuccess(apiKey)
		audio = append(audio, data...)
	}

	s.logger.Debug("synthesized audio",
		zap.String("language", languageCode),
		zap.String("voice", voice),
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", len(audio)))
	return audio, nil
}

// resolveVoice swaps a fallback-provider voice name for the default voice.
func (s *OpenAITTS) resolveVoice(voice string) string {
	if voice == "" || isGoogleVoice(voice) {
		return s.defaultVoice
	}
	return voice
}

func (s *OpenAITTS) callSpeech(ctx context.Context, text, voice, apiKey string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          s.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("empty audio payload")
	}
	return body, nil
}

// keyAtFault reports whether err should bench the key that made the request.
// Cancellation by the caller and rejected input say nothing about the key.
func keyAtFault(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized,
		apiErr.StatusCode == http.StatusForbidden,
		apiErr.StatusCode == http.StatusTooManyRequests,
		apiErr.StatusCode >= http.StatusInternalServerError:
		return true
	}
	return false
}
