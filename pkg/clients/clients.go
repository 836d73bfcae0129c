// Package clients wraps the chat-completion providers behind a single
// Completer contract: an ordered list of role-tagged messages in, the first
// generated text out.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikeboe/topic-report/pkg/config"
)

var (
	ErrMissingAPIKey = errors.New("missing LLM API key")
	ErrNoMessages    = errors.New("at least one message is required")
	ErrTemperature   = errors.New("temperature must be between 0 and 2")
	ErrMaxTokens     = errors.New("max tokens must be positive")
	ErrCompletion    = errors.New("completion failed")
)

// Role tags a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Options tunes a single call. Zero values fall back to the client defaults;
// Temperature is a pointer because 0 is a meaningful setting.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Temperature returns a pointer suitable for Options.Temperature.
func Temperature(v float64) *float64 { return &v }

// Completer performs one synchronous completion round-trip.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// merge applies defaults to opts and validates the result.
func merge(messages []Message, opts, defaults Options) (Options, error) {
	if len(messages) == 0 {
		return Options{}, ErrNoMessages
	}
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.Temperature == nil {
		opts.Temperature = defaults.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return Options{}, fmt.Errorf("%w: got %v", ErrTemperature, *opts.Temperature)
	}
	if opts.MaxTokens <= 0 {
		return Options{}, fmt.Errorf("%w: got %d", ErrMaxTokens, opts.MaxTokens)
	}
	return opts, nil
}

// New builds the Completer selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	if cfg.LLMApiKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, cfg.LLMProvider)
	}

	defaults := Options{
		Model:       cfg.LLMModel,
		Temperature: Temperature(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.LLMApiKey, cfg.LLMBaseURL, httpClient, defaults)
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.LLMApiKey, cfg.LLMBaseURL, httpClient, defaults)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.LLMApiKey, httpClient, defaults)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
