package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"vidnarrate/models"
)

// GoogleTTSConfig configures the fallback speech provider. Endpoint overrides
// the gRPC host:port of the Text-to-Speech API.
type GoogleTTSConfig struct {
	CredentialsFile string
	UseADC          bool
	Endpoint        string
	Timeout         time.Duration
}

// speechClient is the part of the Text-to-Speech client GoogleTTS uses.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleTTS is the fallback synthesizer backed by Cloud Text-to-Speech.
type GoogleTTS struct {
	client  speechClient
	timeout time.Duration
	chunker *TextProcessor
	logger  *zap.Logger
}

// NewGoogleTTS returns (nil, nil) when no credentials are configured.
func NewGoogleTTS(ctx context.Context, cfg GoogleTTSConfig, logger *zap.Logger) (*GoogleTTS, error) {
	var creds *google.Credentials
	var err error
	scopes := texttospeech.DefaultAuthScopes()
	switch {
	case cfg.CredentialsFile != "":
		data, readErr := os.ReadFile(cfg.CredentialsFile)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read google credentials: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, scopes...)
	case cfg.UseADC:
		creds, err = google.FindDefaultCredentials(ctx, scopes...)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load google credentials: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(creds.TokenSource)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	return newGoogleTTS(client, cfg.Timeout, logger), nil
}

func newGoogleTTS(client speechClient, timeout time.Duration, logger *zap.Logger) *GoogleTTS {
	return &GoogleTTS{
		client:  client,
		timeout: timeout,
		chunker: NewByteTextProcessor(GoogleTTSMaxBytes),
		logger:  logger.Named("google_tts"),
	}
}

func (s *GoogleTTS) Kind() models.ProviderKind { return models.ProviderFallback }

// Close releases the client connection.
func (s *GoogleTTS) Close() error {
	return s.client.Close()
}

// Synthesize requests MP3 audio for text in the locale derived from
// languageCode, one request per chunk within the backend's input limit.
// A voice meant for another provider is replaced by the language's voice.
func (s *GoogleTTS) Synthesize(ctx context.Context, text, languageCode, voice string) ([]byte, error) {
	params := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: LanguageLocale(languageCode),
		Name:         LanguageVoice(languageCode),
	}
	if isGoogleVoice(voice) {
		params.Name = voice
	}

	chunks := s.chunker.SplitForSynthesis(text)
	if len(chunks) == 0 {
		return nil, &SynthesisError{Provider: s.Kind(), Err: errors.New("empty text")}
	}

	var audio []byte
	for i, chunk := range chunks {
		data, err := s.callSynthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: params,
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			},
		})
		if err != nil {
			return nil, &SynthesisError{Provider: s.Kind(), Err: fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)}
		}
		audio = append(audio, data...)
	}

	s.logger.Debug("synthesized audio",
		zap.String("language", params.LanguageCode),
		zap.String("voice", params.Name),
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", len(audio)))
	return audio, nil
}

func (s *GoogleTTS) callSynthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("empty audio payload")
	}
	return resp.GetAudioContent(), nil
}
