package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"epcsync/internal/config"
	"epcsync/internal/llm"
)

const (
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	providerName = "gemini"
)

// Client implements port.ModelClient using Google's Gemini API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	gen      llm.Generation
	client   *http.Client
}

// NewClient creates a Gemini-backed model client.
func NewClient(cfg *config.ModelProviderConfig, gen llm.Generation) *Client {
	return newClient(cfg, gen, "")
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ModelProviderConfig, gen llm.Generation, endpoint string) *Client {
	return newClient(cfg, gen, endpoint)
}

func newClient(cfg *config.ModelProviderConfig, gen llm.Generation, endpoint string) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		base := apiBaseURL
		if cfg.BaseURL != "" {
			base = strings.TrimRight(cfg.BaseURL, "/")
		}
		endpoint = fmt.Sprintf("%s/%s:generateContent", base, model)
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		gen:      gen,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	generationConfig := map[string]interface{}{
		"temperature": c.gen.Temperature,
	}
	if c.gen.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = c.gen.MaxTokens
	}

	reqBody := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]interface{}{
				{"text": systemPrompt},
			},
		},
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": userPrompt},
				},
			},
		},
		"generationConfig": generationConfig,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", llm.NetworkError(providerName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NetworkError(providerName, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", llm.StatusError(providerName, resp.StatusCode, resp.Header, respBody)
	}

	return parseResponse(respBody)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", llm.ResponseError(providerName, fmt.Errorf("unmarshaling response: %w", err))
	}

	if len(resp.Candidates) == 0 {
		return "", llm.ResponseError(providerName, fmt.Errorf("empty response from API: no candidates"))
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return "", llm.ResponseError(providerName, fmt.Errorf("empty response from API: no parts"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
