package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/topic-report/pkg/config"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
	calls    int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	f.opts = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func defaults() Options {
	return Options{Model: "moonshotai/kimi-k2", Temperature: Temperature(0.3), MaxTokens: 1000}
}

func TestLLMClientComplete(t *testing.T) {
	model := &fakeModel{resp: textResponse("first")}
	client := NewLLMClient(model, defaults())

	out, err := client.Complete(context.Background(), []Message{
		System("you are terse"),
		User("hello"),
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "first", out)
	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, "moonshotai/kimi-k2", model.opts.Model)
	assert.Equal(t, 0.3, model.opts.Temperature)
	assert.Equal(t, 1000, model.opts.MaxTokens)
}

func TestLLMClientOverrides(t *testing.T) {
	model := &fakeModel{resp: textResponse("ok")}
	client := NewLLMClient(model, defaults())

	_, err := client.Complete(context.Background(), []Message{User("hi")}, Options{
		Model:       "other",
		Temperature: Temperature(0),
		MaxTokens:   50,
	})

	require.NoError(t, err)
	assert.Equal(t, "other", model.opts.Model)
	assert.Equal(t, 0.0, model.opts.Temperature)
	assert.Equal(t, 50, model.opts.MaxTokens)
}

func TestLLMClientValidation(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		opts     Options
		wantErr  error
	}{
		{"No messages", nil, Options{}, ErrNoMessages},
		{"Temperature too high", []Message{User("x")}, Options{Temperature: Temperature(2.5)}, ErrTemperature},
		{"Temperature negative", []Message{User("x")}, Options{Temperature: Temperature(-0.1)}, ErrTemperature},
		{"Negative max tokens", []Message{User("x")}, Options{MaxTokens: -1}, ErrMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{resp: textResponse("unused")}
			client := NewLLMClient(model, defaults())

			_, err := client.Complete(context.Background(), tt.messages, tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, model.calls, "provider must not be called on invalid input")
		})
	}
}

func TestLLMClientProviderErrors(t *testing.T) {
	t.Run("Provider error", func(t *testing.T) {
		client := NewLLMClient(&fakeModel{err: errors.New("boom")}, defaults())
		_, err := client.Complete(context.Background(), []Message{User("x")}, Options{})
		require.ErrorIs(t, err, ErrCompletion)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("No choices", func(t *testing.T) {
		client := NewLLMClient(&fakeModel{resp: &llms.ContentResponse{}}, defaults())
		_, err := client.Complete(context.Background(), []Message{User("x")}, Options{})
		require.ErrorIs(t, err, ErrCompletion)
	})
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &config.Config{LLMProvider: config.ProviderOpenAI})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), &config.Config{LLMProvider: "carrier-pigeon", LLMApiKey: "k", LLMMaxTokens: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
