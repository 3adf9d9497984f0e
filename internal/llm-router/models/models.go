package models

import (
	"strings"
	"time"
)

type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
)

// ServedBy tells which leg of the routing produced a result.
type ServedBy string

const (
	ServedByPrimary  ServedBy = "primary"
	ServedByFallback ServedBy = "fallback"
)

// GenerationRequest is the inbound body of a generate call. Project and the
// top-level BusinessName/Services are older body shapes still sent by
// deployed pages; Normalize folds them into ProjectID and FormData.
type GenerationRequest struct {
	ProjectID    string            `json:"projectId"`
	Project      string            `json:"project,omitempty"`
	Message      string            `json:"message,omitempty"`
	FormData     map[string]string `json:"formData,omitempty"`
	BusinessName string            `json:"businessName,omitempty"`
	Services     string            `json:"services,omitempty"`
}

func (r *GenerationRequest) Normalize() {
	if strings.TrimSpace(r.ProjectID) == "" {
		r.ProjectID = r.Project
	}
	r.ProjectID = strings.TrimSpace(r.ProjectID)

	legacy := map[string]string{
		"businessName": r.BusinessName,
		"services":     r.Services,
	}
	for key, value := range legacy {
		if value == "" {
			continue
		}
		if r.FormData == nil {
			r.FormData = map[string]string{}
		}
		if _, ok := r.FormData[key]; !ok {
			r.FormData[key] = value
		}
	}
}

// HasMessage reports whether the free-text form of the request is in use.
// A non-blank message always takes precedence over form data.
func (r GenerationRequest) HasMessage() bool {
	return strings.TrimSpace(r.Message) != ""
}

type Parameters struct {
	MaxTokens   int     `mapstructure:"max_tokens" json:"maxTokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
}

// FallbackConfig names the single provider/model tried when the primary fails.
// It deliberately has no Fallback of its own.
type FallbackConfig struct {
	Provider ProviderName `mapstructure:"provider" json:"provider"`
	Model    string       `mapstructure:"model" json:"model"`
}

// ProviderConfig is the AI section of a project. It is read-only once loaded.
type ProviderConfig struct {
	Provider     ProviderName    `mapstructure:"provider" json:"provider"`
	Model        string          `mapstructure:"model" json:"model"`
	SystemPrompt string          `mapstructure:"system_prompt" json:"systemPrompt"`
	Parameters   Parameters      `mapstructure:"parameters" json:"parameters"`
	Prefill      string          `mapstructure:"prefill" json:"prefill,omitempty"`
	Fallback     *FallbackConfig `mapstructure:"fallback" json:"fallback,omitempty"`
}

type PromptConfig struct {
	RequiredFields []string `mapstructure:"required_fields" json:"requiredFields"`
	Template       string   `mapstructure:"template" json:"template"`
}

type Features struct {
	RenderHTML bool `mapstructure:"render_html" json:"renderHtml"`
}

type ProjectConfig struct {
	ID       string         `mapstructure:"-" json:"id"`
	AI       ProviderConfig `mapstructure:"ai" json:"ai"`
	Prompt   PromptConfig   `mapstructure:"prompt" json:"prompt"`
	Features Features       `mapstructure:"features" json:"features"`
}

// GenerationResult is built by the router and completed with the project and
// optional HTML before it leaves the generation service. Nothing mutates it
// after that.
type GenerationResult struct {
	Text      string       `json:"message"`
	HTML      string       `json:"html,omitempty"`
	Provider  ProviderName `json:"provider"`
	Model     string       `json:"model"`
	ServedBy  ServedBy     `json:"servedBy"`
	Project   string       `json:"project"`
	Timestamp time.Time    `json:"timestamp"`
}

type ProviderInfo struct {
	Provider ProviderName `json:"provider"`
	Models   []string     `json:"models"`
}

type HealthStatus struct {
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp"`
	Environment string        `json:"environment"`
	Memory      *MemoryStatus `json:"memory,omitempty"`
}

type MemoryStatus struct {
	TotalBytes uint64 `json:"totalBytes"`
	UsedBytes  uint64 `json:"usedBytes"`
}
