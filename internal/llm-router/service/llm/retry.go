package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"site-ai-gateway/internal/llm-router/apperr"
)

// RetryPolicy bounds how often a single provider call is repeated before the
// router considers it failed. MaxAttempts <= 1 disables retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type retryingProvider struct {
	next   Provider
	policy RetryPolicy
	wait   func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps p with bounded exponential backoff. The last error is
// returned unchanged so classification survives.
func WithRetry(p Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts <= 1 {
		return p
	}
	return &retryingProvider{next: p, policy: policy, wait: sleep}
}

func (r *retryingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		text, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !isRetryableError(err) || attempt == r.policy.MaxAttempts-1 {
			break
		}

		// Exponential backoff
		waitTime := time.Duration(math.Pow(2, float64(attempt))) * r.policy.BaseDelay
		if err := r.wait(ctx, waitTime); err != nil {
			break
		}
	}
	return "", lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableError accepts rate limits, 5xx gateway errors and timeouts.
func isRetryableError(err error) bool {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Kind {
	case apperr.KindUpstreamRateLimit:
		return true
	case apperr.KindUpstreamGeneric:
		switch e.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		case 0:
			return errors.Is(err, context.DeadlineExceeded)
		}
	}
	return false
}
