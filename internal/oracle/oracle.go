// Package oracle wraps the hosted language models that turn statement text
// into JSON.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable wraps transport, auth, quota and timeout failures.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("oracle returned an empty response")
)

// Providers understood by New.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Oracle completes a prompt. Implementations make exactly one attempt.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
func (f Func) Name() string                                               { return "func" }

// Config selects and configures a provider.
type Config struct {
	Provider        string
	GeminiAPIKey    string // empty: read from GEMINI_API_KEY / GOOGLE_API_KEY by the SDK
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// New builds the oracle named by cfg.Provider. An empty provider means Gemini.
func New(ctx context.Context, cfg Config) (Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderAnthropic, "claude":
		c, err := NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("oracle.New: unknown provider %q", cfg.Provider)
	}
}

const chatSystemPrompt = "Ты дружелюбный финансовый помощник. Отвечай кратко и по делу, " +
	"на языке пользователя. Не давай инвестиционных рекомендаций."

// Chat forwards a user message to o and returns the reply. It keeps no
// conversation state.
func Chat(ctx context.Context, o Oracle, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("Chat: empty message")
	}
	reply, err := o.Complete(ctx, Request{
		System:      chatSystemPrompt,
		Prompt:      message,
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		return "", fmt.Errorf("Chat: %w", err)
	}
	return reply, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
