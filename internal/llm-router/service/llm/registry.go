package llm

import (
	"fmt"

	"site-ai-gateway/internal/llm-router/models"
)

// Constructors returns one constructor per supported provider. A provider
// without an API key still gets a constructor; it fails when used so that a
// fallback can take over.
func Constructors(anthropic, openAI ClientConfig) map[models.ProviderName]Constructor {
	return map[models.ProviderName]Constructor{
		models.ProviderAnthropic: func(opts Options) (Provider, error) {
			if anthropic.APIKey == "" {
				return nil, fmt.Errorf("%s api key is not configured", models.ProviderAnthropic)
			}
			return NewAnthropicProvider(anthropic, opts), nil
		},
		models.ProviderOpenAI: func(opts Options) (Provider, error) {
			if openAI.APIKey == "" {
				return nil, fmt.Errorf("%s api key is not configured", models.ProviderOpenAI)
			}
			return NewOpenAIProvider(openAI, opts), nil
		},
	}
}
