package service

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"site-ai-gateway/internal/llm-router/apperr"

	"github.com/gomarkdown/markdown"
)

// BuildPrompt renders a project's prompt template over the submitted form
// fields. Referencing a field that was not submitted is an error.
func BuildPrompt(projectID, tmpl string, fields map[string]string) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return "", apperr.New(
			apperr.KindInternal,
			"Project configuration error",
			"prompt template not found in project config",
		)
	}

	t, err := template.New(projectID).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "Failed to build prompt", err.Error())
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, fields); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "Failed to build prompt", err.Error())
	}
	return strings.TrimSpace(buf.String()), nil
}

// RenderHTML converts generated markdown to HTML.
func RenderHTML(text string) string {
	return string(markdown.ToHTML([]byte(text), nil, nil))
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
