package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/models"
)

// upstreamError classifies a non-2xx answer from a vendor API.
func upstreamError(provider models.ProviderName, status int, message string, cause error) *apperr.Error {
	detail := fmt.Sprintf("%s api error: status %d", provider, status)
	if message != "" {
		detail += ": " + message
	}

	var e *apperr.Error
	switch status {
	case http.StatusUnauthorized:
		e = apperr.Wrap(apperr.KindUpstreamAuth, cause, "Invalid API key", detail)
	case http.StatusTooManyRequests:
		e = apperr.Wrap(apperr.KindUpstreamRateLimit, cause, "Too many requests - please wait", detail)
	default:
		e = apperr.Wrap(apperr.KindUpstreamGeneric, cause, "Failed to generate response", detail)
	}
	e.StatusCode = status
	return e
}

// transportError classifies failures that never produced an HTTP status.
func transportError(provider models.ProviderName, err error) *apperr.Error {
	detail := fmt.Sprintf("%s request failed: %v", provider, err)
	if errors.Is(err, context.DeadlineExceeded) {
		detail = fmt.Sprintf("%s request timed out", provider)
	}
	return apperr.Wrap(apperr.KindUpstreamGeneric, err, "Failed to generate response", detail)
}
