package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/config"
	"site-ai-gateway/internal/llm-router/history"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/mackerelio/go-osstat/memory"
)

const maxHistoryLimit = 200

// Generator is the part of the generation service the handlers use.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
	Models() []models.ProviderInfo
}

// HistoryReader lists recorded generations.
type HistoryReader interface {
	Recent(ctx context.Context, projectID string, limit int) ([]history.Entry, error)
}

type Handler struct {
	generator    Generator
	history      HistoryReader
	environment  string
	historyLimit int
}

func NewHandler(generator Generator, reader HistoryReader, environment string, historyLimit int) *Handler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Handler{
		generator:    generator,
		history:      reader,
		environment:  environment,
		historyLimit: historyLimit,
	}
}

func (h *Handler) development() bool {
	return h.environment == config.EnvDevelopment
}

func (h *Handler) Generate(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AppErrorResponse(
			c,
			apperr.Wrap(apperr.KindInvalidInput, err, "Invalid request body", "Request body must be a JSON object"),
			h.development(),
		)
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		logger.Error(
			"Generate endpoint error",
			"request_id", c.GetString(requestIDKey),
			"kind", apperr.KindOf(err),
			"error", err.Error(),
		)
		AppErrorResponse(c, err, h.development())
		return
	}

	SuccessResponse(c, http.StatusOK, result)
}

func (h *Handler) GetModels(c *gin.Context) {
	SuccessResponse(
		c, http.StatusOK, gin.H{
			"providers": h.generator.Models(),
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := models.HealthStatus{
		Status:      "OK",
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Environment: h.environment,
	}

	if mem, err := memory.Get(); err == nil {
		health.Memory = &models.MemoryStatus{TotalBytes: mem.Total, UsedBytes: mem.Used}
	} else {
		logger.Debug("Memory stats unavailable", "error", err.Error())
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ErrorResponse(c, http.StatusBadRequest, string(apperr.KindInvalidInput), "Invalid input", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.history.Recent(c.Request.Context(), c.Query("project"), limit)
	if err != nil {
		AppErrorResponse(c, apperr.Wrap(apperr.KindInternal, err, "Failed to read history"), h.development())
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
