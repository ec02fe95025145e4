package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionJSON(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemini-2.0-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestTranslator(t *testing.T, handler http.HandlerFunc) *ChatTranslator {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewChatTranslator(TranslatorConfig{
		APIKey:  "gem-key",
		BaseURL: ts.URL + "/v1beta/openai/",
		Model:   "gemini-2.0-flash",
		Timeout: 5 * time.Second,
	}, nopLogger())
}

func TestTranslate(t *testing.T) {
	var body map[string]any
	var auth, path string
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionJSON("  నమస్కారం ప్రపంచం\n")))
	})

	out, err := tr.Translate(context.Background(), "Hello world", "te")
	require.NoError(t, err)
	assert.Equal(t, "నమస్కారం ప్రపంచం", out)

	assert.Equal(t, "/v1beta/openai/chat/completions", path)
	assert.Equal(t, "Bearer gem-key", auth)
	assert.Equal(t, "gemini-2.0-flash", body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	assert.InDelta(t, 0.8, body["top_p"], 1e-9)
	assert.InDelta(t, 8192, body["max_tokens"], 1e-9)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"]
	assert.Contains(t, content, "to Telugu")
	assert.Contains(t, content, "Hello world")
}

func TestTranslateSourceLanguageMakesNoCall(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	out, err := tr.Translate(context.Background(), "Hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.Zero(t, hits.Load())
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal"}}`},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`},
		{"empty content", http.StatusOK, chatCompletionJSON("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := tr.Translate(context.Background(), "Hello", "fr")
			var trErr *TranslationError
			require.ErrorAs(t, err, &trErr)
			assert.Equal(t, "fr", trErr.Language)
			assert.Equal(t, int32(1), hits.Load(), "no client-side retries")
		})
	}
}

func TestTranslatorUnavailable(t *testing.T) {
	tr := NewChatTranslator(TranslatorConfig{}, nopLogger())
	assert.Nil(t, tr)

	_, err := tr.Translate(context.Background(), "Hello", "de")
	var trErr *TranslationError
	require.ErrorAs(t, err, &trErr)
}
