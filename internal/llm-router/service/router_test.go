package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/internal/llm-router/service/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyProvider struct {
	text    string
	err     error
	prompts []string
}

func (s *spyProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

// spyRegistry records every construction so tests can assert which providers
// were built and with what options.
type spyRegistry struct {
	providers map[models.ProviderName]*spyProvider
	built     []models.ProviderName
	options   []llm.Options
}

func newSpyRegistry() *spyRegistry {
	return &spyRegistry{
		providers: map[models.ProviderName]*spyProvider{
			models.ProviderAnthropic: {text: "from anthropic"},
			models.ProviderOpenAI:    {text: "from openai"},
		},
	}
}

func (r *spyRegistry) constructors() map[models.ProviderName]llm.Constructor {
	cs := map[models.ProviderName]llm.Constructor{}
	for name := range models.DefaultCatalog {
		name := name
		cs[name] = func(opts llm.Options) (llm.Provider, error) {
			r.built = append(r.built, name)
			r.options = append(r.options, opts)
			return r.providers[name], nil
		}
	}
	return cs
}

func (r *spyRegistry) calls(name models.ProviderName) int {
	return len(r.providers[name].prompts)
}

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestRouter(t *testing.T, reg *spyRegistry) *RouterService {
	t.Helper()
	router, err := NewRouterService(reg.constructors(), models.DefaultCatalog, llm.RetryPolicy{})
	require.NoError(t, err)
	router.now = func() time.Time { return fixedNow }
	return router
}

func anthropicConfig() models.ProviderConfig {
	return models.ProviderConfig{
		Provider:     models.ProviderAnthropic,
		Model:        "claude-3-5-haiku-20241022",
		SystemPrompt: "You write short marketing copy.",
		Parameters:   models.Parameters{MaxTokens: 300, Temperature: 0.7},
		Prefill:      "Acme",
	}
}

func TestNewRouterServiceRegistryMismatch(t *testing.T) {
	reg := newSpyRegistry()

	t.Run(
		"missing constructor", func(t *testing.T) {
			cs := reg.constructors()
			delete(cs, models.ProviderOpenAI)
			_, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "no constructor for provider openai")
		},
	)

	t.Run(
		"unknown constructor", func(t *testing.T) {
			cs := reg.constructors()
			cs["mistral"] = cs[models.ProviderOpenAI]
			_, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "constructor for unknown provider mistral")
		},
	)
}

func TestGeneratePrimarySuccess(t *testing.T) {
	reg := newSpyRegistry()
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-3.5-turbo"}

	result, err := router.Generate(context.Background(), cfg, "Write a tagline")
	require.NoError(t, err)

	assert.Equal(t, "from anthropic", result.Text)
	assert.Equal(t, models.ProviderAnthropic, result.Provider)
	assert.Equal(t, cfg.Model, result.Model)
	assert.Equal(t, models.ServedByPrimary, result.ServedBy)
	assert.Equal(t, fixedNow, result.Timestamp)

	assert.Equal(t, 1, reg.calls(models.ProviderAnthropic))
	assert.Equal(t, 0, reg.calls(models.ProviderOpenAI))
	assert.Equal(t, []models.ProviderName{models.ProviderAnthropic}, reg.built)
	assert.Equal(t, llm.OptionsFrom(cfg), reg.options[0])
}

func TestGenerateUnsupportedProvider(t *testing.T) {
	reg := newSpyRegistry()
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Provider = "mistral"
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}

	_, err := router.Generate(context.Background(), cfg, "hi")

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindUnsupportedProvider, appErr.Kind)
	assert.Contains(t, appErr.Details, "Unsupported AI provider: mistral")
	assert.Empty(t, reg.built)
}

func TestGenerateProviderAliases(t *testing.T) {
	reg := newSpyRegistry()
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Provider = " Claude "

	result, err := router.Generate(context.Background(), cfg, "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderAnthropic, result.Provider)
}

func TestGeneratePrimaryFailsWithoutFallback(t *testing.T) {
	reg := newSpyRegistry()
	primaryErr := apperr.New(apperr.KindUpstreamRateLimit, "Too many requests - please wait")
	reg.providers[models.ProviderAnthropic].err = primaryErr
	router := newTestRouter(t, reg)

	_, err := router.Generate(context.Background(), anthropicConfig(), "hi")

	assert.Same(t, primaryErr, err)
	assert.Equal(t, 1, reg.calls(models.ProviderAnthropic))
	assert.Equal(t, 0, reg.calls(models.ProviderOpenAI))
}

func TestGenerateFallbackSucceeds(t *testing.T) {
	reg := newSpyRegistry()
	reg.providers[models.ProviderAnthropic].err = apperr.New(apperr.KindUpstreamGeneric, "Failed to generate response")
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-3.5-turbo"}

	result, err := router.Generate(context.Background(), cfg, "Write a tagline")
	require.NoError(t, err)

	assert.Equal(t, "from openai", result.Text)
	assert.Equal(t, models.ProviderOpenAI, result.Provider)
	assert.Equal(t, "gpt-3.5-turbo", result.Model)
	assert.Equal(t, models.ServedByFallback, result.ServedBy)

	assert.Equal(t, 1, reg.calls(models.ProviderAnthropic))
	assert.Equal(t, 1, reg.calls(models.ProviderOpenAI))
	assert.Equal(t, []string{"Write a tagline"}, reg.providers[models.ProviderOpenAI].prompts)

	require.Len(t, reg.options, 2)
	fallbackOpts := reg.options[1]
	assert.Equal(t, "gpt-3.5-turbo", fallbackOpts.Model)
	assert.Equal(t, cfg.SystemPrompt, fallbackOpts.SystemPrompt)
	assert.Equal(t, cfg.Parameters, fallbackOpts.Parameters)
	assert.Equal(t, cfg.Prefill, fallbackOpts.Prefill)

	// the caller's configuration is left untouched
	require.NotNil(t, cfg.Fallback)
	assert.Equal(t, models.ProviderAnthropic, cfg.Provider)
}

func TestGenerateBothFailReturnsPrimaryError(t *testing.T) {
	reg := newSpyRegistry()
	primaryErr := apperr.New(apperr.KindUpstreamAuth, "Invalid API key")
	reg.providers[models.ProviderAnthropic].err = primaryErr
	reg.providers[models.ProviderOpenAI].err = apperr.New(apperr.KindUpstreamRateLimit, "Too many requests - please wait")
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}

	_, err := router.Generate(context.Background(), cfg, "hi")

	assert.Same(t, primaryErr, err)
	assert.Equal(t, apperr.KindUpstreamAuth, apperr.KindOf(err))
	assert.Equal(t, 1, reg.calls(models.ProviderAnthropic))
	assert.Equal(t, 1, reg.calls(models.ProviderOpenAI))
}

func TestGenerateFallbackSameProvider(t *testing.T) {
	reg := newSpyRegistry()
	sonnet := &spyProvider{err: errors.New("overloaded")}
	haiku := &spyProvider{text: "from haiku"}

	cs := reg.constructors()
	cs[models.ProviderAnthropic] = func(opts llm.Options) (llm.Provider, error) {
		if opts.Model == "claude-3-5-sonnet-20241022" {
			return sonnet, nil
		}
		return haiku, nil
	}
	router, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
	require.NoError(t, err)

	cfg := anthropicConfig()
	cfg.Model = "claude-3-5-sonnet-20241022"
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderAnthropic, Model: "claude-3-5-haiku-20241022"}

	result, err := router.Generate(context.Background(), cfg, "hi")
	require.NoError(t, err)
	assert.Equal(t, "from haiku", result.Text)
	assert.Equal(t, "claude-3-5-haiku-20241022", result.Model)
	assert.Equal(t, models.ServedByFallback, result.ServedBy)
	assert.Len(t, sonnet.prompts, 1)
	assert.Len(t, haiku.prompts, 1)
}

func TestGenerateUnsupportedFallbackReturnsPrimaryError(t *testing.T) {
	reg := newSpyRegistry()
	primaryErr := apperr.New(apperr.KindUpstreamGeneric, "Failed to generate response")
	reg.providers[models.ProviderAnthropic].err = primaryErr
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: "mistral", Model: "large"}

	_, err := router.Generate(context.Background(), cfg, "hi")
	assert.Same(t, primaryErr, err)
	assert.Equal(t, []models.ProviderName{models.ProviderAnthropic}, reg.built)
}

func TestGenerateCanceledContextSkipsFallback(t *testing.T) {
	reg := newSpyRegistry()
	reg.providers[models.ProviderAnthropic].err = context.Canceled
	router := newTestRouter(t, reg)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := router.Generate(ctx, cfg, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, reg.calls(models.ProviderOpenAI))
}

func TestGenerateConstructorError(t *testing.T) {
	reg := newSpyRegistry()
	cs := reg.constructors()
	cs[models.ProviderOpenAI] = func(llm.Options) (llm.Provider, error) {
		return nil, errors.New("missing api key")
	}
	router, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
	require.NoError(t, err)

	cfg := models.ProviderConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}
	_, err = router.Generate(context.Background(), cfg, "hi")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestGeneratePrimaryWithoutKeyUsesFallback(t *testing.T) {
	reg := newSpyRegistry()
	cs := reg.constructors()
	cs[models.ProviderAnthropic] = llm.Constructors(llm.ClientConfig{}, llm.ClientConfig{})[models.ProviderAnthropic]
	router, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
	require.NoError(t, err)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-3.5-turbo"}

	result, err := router.Generate(context.Background(), cfg, "hi")
	require.NoError(t, err)
	assert.Equal(t, "from openai", result.Text)
	assert.Equal(t, models.ProviderOpenAI, result.Provider)
	assert.Equal(t, "gpt-3.5-turbo", result.Model)
	assert.Equal(t, models.ServedByFallback, result.ServedBy)
	assert.Equal(t, []models.ProviderName{models.ProviderOpenAI}, reg.built)
}

func TestGenerateConstructorErrorKeptWhenFallbackFails(t *testing.T) {
	reg := newSpyRegistry()
	reg.providers[models.ProviderOpenAI].err = apperr.New(apperr.KindUpstreamRateLimit, "slow down")
	cs := reg.constructors()
	cs[models.ProviderAnthropic] = func(llm.Options) (llm.Provider, error) {
		return nil, errors.New("anthropic api key is not configured")
	}
	router, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{})
	require.NoError(t, err)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}

	_, err = router.Generate(context.Background(), cfg, "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "anthropic api key is not configured")
	assert.Equal(t, 1, reg.calls(models.ProviderOpenAI))
}

func TestGenerateRetriesBeforeFallback(t *testing.T) {
	reg := newSpyRegistry()
	flaky := &flakyProvider{failures: 1, err: apperr.New(apperr.KindUpstreamRateLimit, "slow down")}

	cs := reg.constructors()
	cs[models.ProviderAnthropic] = func(llm.Options) (llm.Provider, error) { return flaky, nil }
	router, err := NewRouterService(cs, models.DefaultCatalog, llm.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})
	require.NoError(t, err)

	cfg := anthropicConfig()
	cfg.Fallback = &models.FallbackConfig{Provider: models.ProviderOpenAI, Model: "gpt-4"}

	result, err := router.Generate(context.Background(), cfg, "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ServedByPrimary, result.ServedBy)
	assert.Equal(t, 2, flaky.calls)
	assert.Equal(t, 0, reg.calls(models.ProviderOpenAI))
}

func TestModels(t *testing.T) {
	router := newTestRouter(t, newSpyRegistry())
	assert.Equal(t, models.DefaultCatalog.Info(), router.Models())
}

type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (f *flakyProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "recovered", nil
}
