package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"epcsync/internal/config"
	"epcsync/internal/llm"
)

const providerName = "openai"

// Client implements port.ModelClient using the OpenAI Chat Completions API.
// Any OpenAI-compatible gateway can be targeted through the provider base URL.
type Client struct {
	client *goopenai.Client
	model  string
	gen    llm.Generation
}

// NewClient creates an OpenAI-backed model client from a provider config.
func NewClient(cfg *config.ModelProviderConfig, gen llm.Generation) *Client {
	return newClient(cfg, gen, cfg.BaseURL)
}

// NewClientWithEndpoint creates a client pointing at a custom API base URL (for testing).
func NewClientWithEndpoint(cfg *config.ModelProviderConfig, gen llm.Generation, endpoint string) *Client {
	return newClient(cfg, gen, endpoint)
}

func newClient(cfg *config.ModelProviderConfig, gen llm.Generation, baseURL string) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = goopenai.GPT4o
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	c := goopenai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	c.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client: goopenai.NewClientWithConfig(c),
		model:  model,
		gen:    gen,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: float32(c.gen.Temperature),
		MaxTokens:   c.gen.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ResponseError(providerName, fmt.Errorf("empty response from API: no choices"))
	}
	if resp.Choices[0].FinishReason == goopenai.FinishReasonLength {
		// Returned as-is; validation rejects the truncated object.
		logrus.Warnf("openai.Client.Complete: output truncated (finish_reason: length)")
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return llm.StatusError(providerName, apiErr.HTTPStatusCode, http.Header{}, []byte(apiErr.Message))
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return llm.StatusError(providerName, reqErr.HTTPStatusCode, http.Header{}, []byte(reqErr.Error()))
	}
	return llm.NetworkError(providerName, err)
}
