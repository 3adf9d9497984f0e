package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/internal/llm-router/service/llm"
	"site-ai-gateway/pkg/logger"
)

// RouterService turns a provider configuration and a prompt into text,
// trying the configured fallback at most once.
type RouterService struct {
	constructors map[models.ProviderName]llm.Constructor
	catalog      models.Catalog
	retry        llm.RetryPolicy
	now          func() time.Time
}

// NewRouterService checks that constructors cover the catalog exactly: every
// provider in the table needs a constructor and no constructor may exist for
// a provider outside it.
func NewRouterService(
	constructors map[models.ProviderName]llm.Constructor, catalog models.Catalog, retry llm.RetryPolicy,
) (*RouterService, error) {
	cs := make(map[models.ProviderName]llm.Constructor, len(constructors))
	for name, c := range constructors {
		cs[models.NormalizeProvider(string(name))] = c
	}

	var problems []string
	for _, p := range catalog.Providers() {
		if cs[p] == nil {
			problems = append(problems, fmt.Sprintf("no constructor for provider %s", p))
		}
	}
	for name := range cs {
		if !catalog.Supports(name) {
			problems = append(problems, fmt.Sprintf("constructor for unknown provider %s", name))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("provider registry does not match catalog: %s", strings.Join(problems, "; "))
	}

	return &RouterService{
		constructors: cs,
		catalog:      catalog,
		retry:        retry,
		now:          time.Now,
	}, nil
}

// Generate calls the primary provider and, when it fails and a fallback is
// configured, the fallback once. A primary that cannot be constructed counts
// as a failed call; an unsupported primary does not reach the fallback. When
// both fail the primary error is returned unchanged and the fallback error is
// only logged.
func (s *RouterService) Generate(
	ctx context.Context, cfg models.ProviderConfig, prompt string,
) (*models.GenerationResult, error) {
	text, primaryErr := s.call(ctx, cfg, prompt)
	if primaryErr == nil {
		return s.result(cfg, models.ServedByPrimary, text), nil
	}
	if apperr.KindOf(primaryErr) == apperr.KindUnsupportedProvider {
		return nil, primaryErr
	}

	logger.Warn(
		"Primary provider failed",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"kind", apperr.KindOf(primaryErr),
		"error", primaryErr.Error(),
	)

	if cfg.Fallback == nil {
		return nil, primaryErr
	}
	if ctx.Err() != nil {
		// The caller is gone; a fallback call could not be delivered either.
		return nil, primaryErr
	}

	fallbackCfg := fallbackConfig(cfg)
	fallback, err := s.build(fallbackCfg)
	if err != nil {
		logger.Error("Failed to initialize fallback provider", "provider", fallbackCfg.Provider, "error", err.Error())
		return nil, primaryErr
	}

	logger.Info("Trying fallback provider", "provider", fallbackCfg.Provider, "model", fallbackCfg.Model)
	text, fallbackErr := fallback.Generate(ctx, prompt)
	if fallbackErr != nil {
		logger.Warn(
			"Fallback also failed",
			"provider", fallbackCfg.Provider,
			"model", fallbackCfg.Model,
			"kind", apperr.KindOf(fallbackErr),
			"error", fallbackErr.Error(),
		)
		return nil, primaryErr
	}

	return s.result(fallbackCfg, models.ServedByFallback, text), nil
}

// Models lists the providers and models this router can serve.
func (s *RouterService) Models() []models.ProviderInfo {
	return s.catalog.Info()
}

func (s *RouterService) call(ctx context.Context, cfg models.ProviderConfig, prompt string) (string, error) {
	provider, err := s.build(cfg)
	if err != nil {
		return "", err
	}
	return provider.Generate(ctx, prompt)
}

func (s *RouterService) build(cfg models.ProviderConfig) (llm.Provider, error) {
	name := models.NormalizeProvider(string(cfg.Provider))
	construct, ok := s.constructors[name]
	if !ok {
		return nil, apperr.New(
			apperr.KindUnsupportedProvider,
			"Failed to initialize AI provider",
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider),
		)
	}

	provider, err := construct(llm.OptionsFrom(cfg))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to initialize AI provider")
	}
	return llm.WithRetry(provider, s.retry), nil
}

func (s *RouterService) result(cfg models.ProviderConfig, servedBy models.ServedBy, text string) *models.GenerationResult {
	return &models.GenerationResult{
		Text:      text,
		Provider:  models.NormalizeProvider(string(cfg.Provider)),
		Model:     cfg.Model,
		ServedBy:  servedBy,
		Timestamp: s.now().UTC(),
	}
}

// fallbackConfig reuses the primary's system prompt, parameters and prefill
// with the fallback's provider and model.
func fallbackConfig(cfg models.ProviderConfig) models.ProviderConfig {
	fb := cfg
	fb.Provider = cfg.Fallback.Provider
	fb.Model = cfg.Fallback.Model
	fb.Fallback = nil
	return fb
}
