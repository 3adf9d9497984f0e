package models

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is the static provider → model compatibility table.
type Catalog map[ProviderName][]string

var DefaultCatalog = Catalog{
	ProviderOpenAI: {
		"gpt-3.5-turbo",
		"gpt-4",
		"gpt-4-turbo",
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
		"gpt-4.1-mini",
		"gpt-4.1-nano",
	},
	ProviderAnthropic: {
		"claude-3-5-haiku-20241022",
		"claude-3-5-sonnet-20241022",
		"claude-3-opus-20240229",
	},
}

var providerAliases = map[string]ProviderName{
	"claude": ProviderAnthropic,
	"gpt":    ProviderOpenAI,
}

// NormalizeProvider lower-cases a provider identifier and resolves aliases.
// Unknown identifiers are returned lower-cased, never defaulted.
func NormalizeProvider(name string) ProviderName {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := providerAliases[n]; ok {
		return alias
	}
	return ProviderName(n)
}

func (c Catalog) Providers() []ProviderName {
	providers := make([]ProviderName, 0, len(c))
	for p := range c {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

func (c Catalog) Supports(provider ProviderName) bool {
	_, ok := c[NormalizeProvider(string(provider))]
	return ok
}

func (c Catalog) Info() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(c))
	for _, p := range c.Providers() {
		infos = append(infos, ProviderInfo{Provider: p, Models: append([]string(nil), c[p]...)})
	}
	return infos
}

// ValidateProviderModel checks that model belongs to provider.
func (c Catalog) ValidateProviderModel(provider ProviderName, model string) error {
	p := NormalizeProvider(string(provider))
	validModels, ok := c[p]
	if !ok {
		return fmt.Errorf(
			"unknown provider: %s. Valid providers: %s", provider, joinProviders(c.Providers()),
		)
	}
	for _, m := range validModels {
		if m == model {
			return nil
		}
	}
	return fmt.Errorf(
		"model '%s' is not valid for provider '%s'. Valid models: %s",
		model, p, strings.Join(validModels, ", "),
	)
}

// Check returns every problem found in cfg; an empty result means cfg is usable.
func (c Catalog) Check(cfg ProviderConfig) []string {
	var problems []string

	if err := c.ValidateProviderModel(cfg.Provider, cfg.Model); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Parameters.MaxTokens <= 0 {
		problems = append(problems, fmt.Sprintf("max_tokens must be positive, got %d", cfg.Parameters.MaxTokens))
	}
	if cfg.Parameters.Temperature < 0 || cfg.Parameters.Temperature > 1 {
		problems = append(
			problems, fmt.Sprintf("temperature must be within [0,1], got %g", cfg.Parameters.Temperature),
		)
	}
	if cfg.Fallback != nil {
		if err := c.ValidateProviderModel(cfg.Fallback.Provider, cfg.Fallback.Model); err != nil {
			problems = append(problems, "fallback: "+err.Error())
		}
	}

	return problems
}

func joinProviders(providers []ProviderName) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
