package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"site-ai-gateway/internal/llm-router/api"
	"site-ai-gateway/internal/llm-router/config"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/internal/llm-router/projects"
	"site-ai-gateway/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewRootCommand builds the CLI. Running it without a subcommand serves the API.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "router",
		Short:         "AI generation gateway for marketing site projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is the normal case outside local development.
			_ = godotenv.Load()

			var err error
			if cfgFile != "" {
				cfg, err = config.LoadFile(cfgFile)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Initialize logger
			logger.NewLogger(
				logger.Options{
					Level:      cfg.Log.Level,
					File:       cfg.Log.File,
					MaxSize:    cfg.Log.MaxSize,
					MaxBackups: cfg.Log.MaxBackups,
					MaxAge:     cfg.Log.MaxAge,
					JSON:       !cfg.IsDevelopment(),
				},
			)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config/config.yaml)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate every project configuration against the model catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				return checkConfig(cmd, cfg)
			},
		},
	)

	return rootCmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	server, err := api.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer server.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr, "environment", cfg.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func checkConfig(cmd *cobra.Command, cfg *config.Config) error {
	repo := projects.NewFileRepository(cfg.Projects.Dir, models.DefaultCatalog, false)
	ids, err := repo.ProjectIDs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, id := range ids {
		project, err := repo.Load(cmd.Context(), id)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", id, err)
			continue
		}
		fallback := "none"
		if project.AI.Fallback != nil {
			fallback = fmt.Sprintf("%s/%s", project.AI.Fallback.Provider, project.AI.Fallback.Model)
		}
		fmt.Fprintf(out, "OK   %s: %s/%s (fallback %s)\n", id, project.AI.Provider, project.AI.Model, fallback)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d project configurations are invalid", failed, len(ids))
	}
	fmt.Fprintf(out, "%d project configurations are valid\n", len(ids))
	return nil
}
