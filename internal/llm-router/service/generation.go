package service

import (
	"context"
	"time"
	"unicode/utf8"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/history"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/internal/llm-router/projects"
	"site-ai-gateway/internal/llm-router/validation"
	"site-ai-gateway/pkg/logger"
)

// GenerationService runs one generate request end to end: validation,
// project lookup, prompt building, routing and recording.
type GenerationService struct {
	projects projects.Repository
	router   *RouterService
	policy   validation.Policy
	history  history.Recorder
}

// NewGenerationService wires the pipeline. recorder may be nil.
func NewGenerationService(
	repo projects.Repository, router *RouterService, policy validation.Policy, recorder history.Recorder,
) *GenerationService {
	return &GenerationService{
		projects: repo,
		router:   router,
		policy:   policy,
		history:  recorder,
	}
}

func (s *GenerationService) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	start := time.Now()
	req.Normalize()

	result, prompt, err := s.generate(ctx, req)
	s.record(ctx, req.ProjectID, prompt, result, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *GenerationService) generate(
	ctx context.Context, req models.GenerationRequest,
) (*models.GenerationResult, string, error) {
	projectID, err := validation.ValidateProjectID(req.ProjectID)
	if err != nil {
		return nil, "", err
	}

	var prompt string
	useMessage := req.HasMessage()
	if useMessage {
		if prompt, err = s.policy.ValidateMessage(req.Message); err != nil {
			return nil, "", err
		}
	}

	logger.Info(
		"Processing generation request",
		"project", projectID,
		"request_id", RequestIDFrom(ctx),
		"with_message", useMessage,
	)

	project, err := s.projects.Load(ctx, projectID)
	if err != nil {
		return nil, "", apperr.From(err)
	}

	if !useMessage {
		fields, err := s.policy.ValidateStructuredFields(req.FormData, project.Prompt.RequiredFields)
		if err != nil {
			return nil, "", err
		}
		if prompt, err = BuildPrompt(projectID, project.Prompt.Template, fields); err != nil {
			return nil, "", err
		}
	}

	logger.Info("Using AI provider", "provider", project.AI.Provider, "model", project.AI.Model)

	result, err := s.router.Generate(ctx, project.AI, prompt)
	if err != nil {
		return nil, prompt, err
	}

	result.Project = projectID
	if project.Features.RenderHTML {
		result.HTML = RenderHTML(result.Text)
	}

	logger.Info(
		"Successfully generated AI response",
		"project", projectID,
		"provider", result.Provider,
		"served_by", result.ServedBy,
	)
	return result, prompt, nil
}

func (s *GenerationService) record(
	ctx context.Context, projectID, prompt string, result *models.GenerationResult, err error, elapsed time.Duration,
) {
	if s.history == nil {
		return
	}

	entry := &history.Entry{
		RequestId:    RequestIDFrom(ctx),
		ProjectId:    projectID,
		PromptLength: utf8.RuneCountInString(prompt),
		DurationMs:   elapsed.Milliseconds(),
		Success:      err == nil,
	}
	if result != nil {
		entry.Provider = string(result.Provider)
		entry.Model = result.Model
		entry.ServedBy = string(result.ServedBy)
		entry.ResponseLength = utf8.RuneCountInString(result.Text)
	}
	if err != nil {
		appErr := apperr.From(err)
		entry.ErrorKind = string(appErr.Kind)
		entry.Details = appErr.Details
	}

	// The caller may already be gone; the record should still land.
	if recErr := s.history.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		logger.Warn("Failed to record generation history", "project", projectID, "error", recErr.Error())
	}
}

// Models lists the providers and models requests can be routed to.
func (s *GenerationService) Models() []models.ProviderInfo {
	return s.router.Models()
}
