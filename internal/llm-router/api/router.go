package api

import (
	"fmt"
	"net/http"

	"site-ai-gateway/internal/llm-router/config"
	"site-ai-gateway/internal/llm-router/history"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/internal/llm-router/projects"
	"site-ai-gateway/internal/llm-router/service"
	"site-ai-gateway/internal/llm-router/service/llm"
	"site-ai-gateway/internal/llm-router/validation"
	"site-ai-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// Server is the HTTP engine plus the resources it owns.
type Server struct {
	Engine *gin.Engine

	store  *history.Store
	pruner *cron.Cron
}

// NewServer builds providers, services and routes from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize providers
	constructors := llm.Constructors(
		clientConfig(cfg, models.ProviderAnthropic),
		clientConfig(cfg, models.ProviderOpenAI),
	)
	retry := llm.RetryPolicy{
		MaxAttempts: cfg.Providers.Retry.MaxAttempts,
		BaseDelay:   cfg.Providers.Retry.BaseDelay,
	}

	// Initialize services
	routerService, err := service.NewRouterService(constructors, models.DefaultCatalog, retry)
	if err != nil {
		return nil, err
	}

	s := &Server{}
	var recorder history.Recorder
	var reader HistoryReader
	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		if s.store, err = history.NewStore(db, cfg.History.Retention); err != nil {
			return nil, err
		}
		if s.pruner, err = history.StartPruner(s.store, cfg.History.PruneSchedule); err != nil {
			s.Close()
			return nil, err
		}
		recorder, reader = s.store, s.store
	}

	repo := projects.NewFileRepository(cfg.Projects.Dir, models.DefaultCatalog, cfg.Projects.Cache)
	policy := validation.Policy{MinLength: cfg.Validation.MinLength, MaxLength: cfg.Validation.MaxLength}
	generation := service.NewGenerationService(repo, routerService, policy, recorder)

	s.Engine = NewRouter(cfg, NewHandler(generation, reader, cfg.Server.Environment, cfg.History.Limit))
	return s, nil
}

func clientConfig(cfg *config.Config, provider models.ProviderName) llm.ClientConfig {
	p, _ := cfg.GetProviderConfig(provider)
	return llm.ClientConfig{APIKey: p.APIKey, BaseURL: p.BaseURL, Timeout: p.Timeout}
}

// Close stops the pruning job and closes the history database.
func (s *Server) Close() {
	if s.pruner != nil {
		<-s.pruner.Stop().Done()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Error("Failed to close history store", "error", err.Error())
		}
	}
}

func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(ErrorMiddleware())
	router.Use(CORSMiddleware(cfg.Server.CORS))
	// Preflight requests land here too, after the CORS middleware answered them.
	router.NoRoute(
		func(c *gin.Context) {
			ErrorResponse(
				c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("No route for %s %s", c.Request.Method, c.Request.URL.Path),
			)
		},
	)

	generate := []gin.HandlerFunc{handler.Generate}
	if cfg.Server.RateLimit.Enabled {
		generate = append([]gin.HandlerFunc{RateLimitMiddleware(cfg.Server.RateLimit)}, generate...)
	}

	// API routes
	api := router.Group("/api")
	{
		// Public endpoints
		api.GET("/health", handler.GetHealth)
		api.POST("/generate", generate...)

		ai := api.Group("/ai")
		{
			ai.POST("/generate", generate...)
			ai.GET("/models", handler.GetModels)

			// Protected endpoints
			if handler.history != nil {
				protected := ai.Group("")
				protected.Use(AuthMiddleware(cfg.Server.Auth))
				{
					protected.GET("/history", handler.GetHistory)
				}
			}
		}
	}

	return router
}
