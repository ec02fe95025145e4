package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"vidnarrate/models"
)

// Translator converts source-language text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// TranslatorConfig configures the chat-completion backed translator.
type TranslatorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ChatTranslator translates through an OpenAI-compatible chat completion endpoint.
type ChatTranslator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewChatTranslator returns nil when no API key is configured.
func NewChatTranslator(cfg TranslatorConfig, logger *zap.Logger) *ChatTranslator {
	if cfg.APIKey == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &ChatTranslator{
		client:  &client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("translator"),
	}
}

// Translate returns text unchanged for the source language without calling out.
func (t *ChatTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if targetLanguage == models.SourceLanguage {
		return text, nil
	}
	if t == nil {
		return "", &TranslationError{Language: targetLanguage, Err: errors.New("translator not configured")}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Translate the following text to %s. Only return the translated text, nothing else:\n\n%s",
		LanguageName(targetLanguage), text)

	start := time.Now()
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(t.model),
		Temperature: openai.Float(0.1),
		TopP:        openai.Float(0.8),
		MaxTokens:   openai.Int(8192),
	})
	if err != nil {
		return "", &TranslationError{Language: targetLanguage, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &TranslationError{Language: targetLanguage, Err: errors.New("no choices in response")}
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", &TranslationError{Language: targetLanguage, Err: errors.New("empty translation")}
	}

	t.logger.Debug("translated text",
		zap.String("language", targetLanguage),
		zap.Int("chars", len(translated)),
		zap.Duration("took", time.Since(start)))
	return translated, nil
}
