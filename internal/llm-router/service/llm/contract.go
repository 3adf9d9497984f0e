package llm

import (
	"context"
	"net/http"
	"time"

	"site-ai-gateway/internal/llm-router/models"
)

// Provider generates text for a prompt. Model, system prompt, parameters and
// prefill are bound when the provider is constructed, so callers never branch
// on which vendor sits behind it.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options is the per-request shape of a provider call.
type Options struct {
	Model        string
	SystemPrompt string
	Parameters   models.Parameters
	Prefill      string
}

func OptionsFrom(cfg models.ProviderConfig) Options {
	return Options{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Parameters:   cfg.Parameters,
		Prefill:      cfg.Prefill,
	}
}

// Constructor builds a provider for one set of options. Constructors close
// over credentials; they must not perform network calls.
type Constructor func(opts Options) (Provider, error)

// ClientConfig carries the credentials and transport settings of one vendor.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{}
}

// withDeadline applies the per-call timeout, if any.
func (c ClientConfig) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}
