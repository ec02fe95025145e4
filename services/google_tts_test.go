package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vidnarrate/models"
)

type fakeSpeechClient struct {
	mu       sync.Mutex
	requests []*texttospeechpb.SynthesizeSpeechRequest
	audio    []byte
	err      error
	block    bool
	closed   bool
}

func (f *fakeSpeechClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, status.Error(codes.DeadlineExceeded, "context deadline exceeded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.audio}, nil
}

func (f *fakeSpeechClient) Close() error {
	f.closed = true
	return nil
}

func TestGoogleTTSSynthesize(t *testing.T) {
	client := &fakeSpeechClient{audio: []byte("mp3-bytes")}
	s := newGoogleTTS(client, time.Second, nopLogger())

	audio, err := s.Synthesize(context.Background(), "నమస్కారం", "te", "te-IN-Standard-B")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, models.ProviderFallback, s.Kind())

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "నమస్కారం", req.GetInput().GetText())
	assert.Equal(t, "te-IN", req.GetVoice().GetLanguageCode())
	assert.Equal(t, "te-IN-Standard-B", req.GetVoice().GetName())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, req.GetAudioConfig().GetAudioEncoding())

	require.NoError(t, s.Close())
	assert.True(t, client.closed)
}

func TestGoogleTTSVoiceSelection(t *testing.T) {
	tests := []struct {
		name     string
		language string
		voice    string
		locale   string
		want     string
	}{
		{"foreign voice uses language voice", "te", "nova", "te-IN", "te-IN-Standard-A"},
		{"empty voice uses language voice", "es", "", "es-ES", "es-ES-Standard-A"},
		{"no language voice leaves choice to backend", "hi", "nova", "hi-IN", ""},
		{"unknown language", "xx", "alloy", "xx", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSpeechClient{audio: []byte("mp3")}
			s := newGoogleTTS(client, 0, nopLogger())

			_, err := s.Synthesize(context.Background(), "Hola", tt.language, tt.voice)
			require.NoError(t, err)
			assert.Equal(t, tt.locale, client.requests[0].GetVoice().GetLanguageCode())
			assert.Equal(t, tt.want, client.requests[0].GetVoice().GetName())
		})
	}
}

func TestGoogleTTSSplitsLongText(t *testing.T) {
	client := &fakeSpeechClient{audio: []byte("mp3")}
	s := newGoogleTTS(client, 0, nopLogger())

	sentence := strings.Repeat("పదం ", 200) + "ముగింపు."
	text := sentence + " " + sentence + " " + sentence

	audio, err := s.Synthesize(context.Background(), text, "te", "")
	require.NoError(t, err)
	require.Greater(t, len(client.requests), 1)
	assert.Equal(t, []byte(strings.Repeat("mp3", len(client.requests))), audio)
	for _, req := range client.requests {
		assert.LessOrEqual(t, len(req.GetInput().GetText()), GoogleTTSMaxBytes)
	}
}

func TestGoogleTTSErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeSpeechClient
		message string
	}{
		{"api error", &fakeSpeechClient{err: status.Error(codes.PermissionDenied, "API not enabled")}, "API not enabled"},
		{"empty audio", &fakeSpeechClient{}, "empty audio payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newGoogleTTS(tt.client, 0, nopLogger())
			_, err := s.Synthesize(context.Background(), "Hi", "en", "")
			var synthErr *SynthesisError
			require.ErrorAs(t, err, &synthErr)
			assert.Equal(t, models.ProviderFallback, synthErr.Provider)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestGoogleTTSTimeout(t *testing.T) {
	s := newGoogleTTS(&fakeSpeechClient{block: true}, 50*time.Millisecond, nopLogger())

	_, err := s.Synthesize(context.Background(), "Hi", "en", "")
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGoogleTTSWithoutCredentials(t *testing.T) {
	s, err := NewGoogleTTS(context.Background(), GoogleTTSConfig{}, nopLogger())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewGoogleTTSMissingCredentialsFile(t *testing.T) {
	_, err := NewGoogleTTS(context.Background(), GoogleTTSConfig{CredentialsFile: "/nonexistent/creds.json"}, nopLogger())
	assert.ErrorContains(t, err, "failed to read google credentials")
}

func TestLanguageLocale(t *testing.T) {
	assert.Equal(t, "te-IN", LanguageLocale("te"))
	assert.Equal(t, "en-US", LanguageLocale("en"))
	assert.Equal(t, "sw", LanguageLocale("sw"))
	assert.Equal(t, "Telugu", LanguageName("te"))
	assert.Equal(t, "sw", LanguageName("sw"))
	assert.Equal(t, "te-IN-Standard-A", LanguageVoice("te"))
	assert.Empty(t, LanguageVoice("sw"))

	langs := SupportedLanguages()
	require.NotEmpty(t, langs)
	assert.Equal(t, "ar", langs[0].Code)
}
