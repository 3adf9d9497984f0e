package llm

import (
	"context"
	"errors"

	"site-ai-gateway/internal/llm-router/models"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	cfg    ClientConfig
	opts   Options
	client *openai.Client
}

func NewOpenAIProvider(cfg ClientConfig, opts Options) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = cfg.httpClient()

	return &OpenAIProvider{
		cfg:    cfg,
		opts:   opts,
		client: openai.NewClientWithConfig(config),
	}
}

// Generate runs one chat completion with the system prompt as the first
// message. Prefill has no equivalent in this API and is ignored.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := p.cfg.withDeadline(ctx)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if p.opts.SystemPrompt != "" {
		messages = append(
			messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.opts.SystemPrompt,
			},
		)
	}
	messages = append(
		messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	)

	req := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.Parameters.MaxTokens,
		Temperature: float32(p.opts.Parameters.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", transportError(models.ProviderOpenAI, errors.New("no completion choices returned"))
	}

	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return upstreamError(models.ProviderOpenAI, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return upstreamError(models.ProviderOpenAI, reqErr.HTTPStatusCode, "", err)
	}

	return transportError(models.ProviderOpenAI, err)
}
