package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMClient adapts any langchaingo model to Completer.
type LLMClient struct {
	model    llms.Model
	defaults Options
}

func NewLLMClient(model llms.Model, defaults Options) *LLMClient {
	return &LLMClient{model: model, defaults: defaults}
}

// NewOpenAI talks to any OpenAI-compatible chat endpoint, OpenRouter included.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client, defaults Options) (*LLMClient, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(defaults.Model),
		openai.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init openai client: %w", err)
	}
	return NewLLMClient(llm, defaults), nil
}

func NewAnthropic(apiKey, baseURL string, httpClient *http.Client, defaults Options) (*LLMClient, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
		anthropic.WithModel(defaults.Model),
		anthropic.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	llm, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init anthropic client: %w", err)
	}
	return NewLLMClient(llm, defaults), nil
}

func (c *LLMClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	opts, err := merge(messages, opts, c.defaults)
	if err != nil {
		return "", err
	}

	prompts := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		prompts = append(prompts, llms.TextParts(role, m.Content))
	}

	callOpts := []llms.CallOption{llms.WithMaxTokens(opts.MaxTokens)}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*opts.Temperature))
	}

	resp, err := c.model.GenerateContent(ctx, prompts, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: llm returned no choices", ErrCompletion)
	}

	return resp.Choices[0].Content, nil
}
