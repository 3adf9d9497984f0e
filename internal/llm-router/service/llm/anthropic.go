package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"site-ai-gateway/internal/llm-router/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

type AnthropicProvider struct {
	cfg     ClientConfig
	opts    Options
	client  *http.Client
	baseURL string
}

// AnthropicMessage represents the message format for Anthropic's API
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents the request structure for Anthropic's API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

// AnthropicResponse represents the response structure from Anthropic's API
type AnthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropicProvider(cfg ClientConfig, opts Options) *AnthropicProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		cfg:     cfg,
		opts:    opts,
		client:  cfg.httpClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Generate sends one Messages API call. When a prefill is configured it is
// sent as the opening assistant turn and prepended to the returned text.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := p.cfg.withDeadline(ctx)
	defer cancel()

	temperature := p.opts.Parameters.Temperature
	reqBody := AnthropicRequest{
		Model:  p.opts.Model,
		System: p.opts.SystemPrompt,
		Messages: []AnthropicMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens:   p.opts.Parameters.MaxTokens,
		Temperature: &temperature,
	}
	if p.opts.Prefill != "" {
		reqBody.Messages = append(
			reqBody.Messages, AnthropicMessage{
				Role:    "assistant",
				Content: p.opts.Prefill,
			},
		)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", transportError(models.ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		message := strings.TrimSpace(string(body))
		var apiErr anthropicErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return "", upstreamError(models.ProviderAnthropic, resp.StatusCode, message, nil)
	}

	var anthropicResp AnthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", transportError(models.ProviderAnthropic, fmt.Errorf("failed to decode response: %w", err))
	}

	var content strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return "", transportError(models.ProviderAnthropic, errors.New("response contained no text"))
	}

	return p.opts.Prefill + content.String(), nil
}
