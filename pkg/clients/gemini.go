package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API directly through genai.
type GeminiClient struct {
	client   *genai.Client
	defaults Options
}

func NewGemini(ctx context.Context, apiKey string, httpClient *http.Client, defaults Options) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	return &GeminiClient{client: client, defaults: defaults}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	opts, err := merge(messages, opts, c.defaults)
	if err != nil {
		return "", err
	}

	// Gemini takes system prompts out of band.
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}
	if len(contents) == 0 {
		return "", ErrNoMessages
	}

	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, opts.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrCompletion)
	}

	return resp.Text(), nil
}
