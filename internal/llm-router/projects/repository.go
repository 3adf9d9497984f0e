// Package projects loads per-project AI configuration from disk.
package projects

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	"site-ai-gateway/internal/llm-router/apperr"
	"site-ai-gateway/internal/llm-router/models"
	"site-ai-gateway/pkg/logger"

	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
)

const (
	configName = "ai"
	configType = "yaml"

	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
)

var ErrProjectNotFound = errors.New("project not found")

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Repository supplies the configuration of a project. Implementations return
// an error of kind InvalidProjectConfig for anything that prevents dispatch;
// unknown projects additionally match ErrProjectNotFound.
type Repository interface {
	Load(ctx context.Context, projectID string) (*models.ProjectConfig, error)
}

// FileRepository reads <dir>/<projectID>/ai.yaml.
type FileRepository struct {
	dir     string
	catalog models.Catalog
	cache   bool

	mu     sync.RWMutex
	loaded map[string]*models.ProjectConfig
}

func NewFileRepository(dir string, catalog models.Catalog, cache bool) *FileRepository {
	return &FileRepository{
		dir:     dir,
		catalog: catalog,
		cache:   cache,
		loaded:  make(map[string]*models.ProjectConfig),
	}
}

func (r *FileRepository) Load(ctx context.Context, projectID string) (*models.ProjectConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.cache {
		r.mu.RLock()
		cfg, ok := r.loaded[projectID]
		r.mu.RUnlock()
		if ok {
			return detach(cfg)
		}
	}

	cfg, err := r.read(projectID)
	if err != nil {
		logger.Error("Failed to load project config", "project", projectID, "error", err.Error())
		return nil, err
	}

	logger.Info(
		"Loaded project config",
		"project", projectID,
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
	)

	if r.cache {
		r.mu.Lock()
		r.loaded[projectID] = cfg
		r.mu.Unlock()
		return detach(cfg)
	}
	return cfg, nil
}

// detach hands callers their own copy of a cached project so slices and the
// fallback pointer are never shared between requests.
func detach(cfg *models.ProjectConfig) (*models.ProjectConfig, error) {
	var out models.ProjectConfig
	if err := copier.CopyWithOption(&out, cfg, copier.Option{DeepCopy: true}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Failed to copy project configuration")
	}
	return &out, nil
}

// ProjectIDs lists every directory under the projects root that carries an
// ai.yaml.
func (r *FileRepository) ProjectIDs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || !projectIDPattern.MatchString(entry.Name()) {
			continue
		}
		if _, err := os.Stat(r.configFile(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *FileRepository) configFile(projectID string) string {
	return filepath.Join(r.dir, projectID, configName+"."+configType)
}

func (r *FileRepository) read(projectID string) (*models.ProjectConfig, error) {
	if !projectIDPattern.MatchString(projectID) {
		return nil, notFound(projectID)
	}

	path := r.configFile(projectID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(projectID)
		}
		return nil, invalid(projectID, fmt.Sprintf("failed to stat config file: %v", err))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	if err := v.ReadInConfig(); err != nil {
		return nil, invalid(projectID, fmt.Sprintf("failed to read config file: %v", err))
	}

	if !v.IsSet("ai") {
		return nil, invalid(projectID, fmt.Sprintf("AI configuration not found for project: %s", projectID))
	}

	// Applied after the file is read so that an explicit zero stays zero.
	v.SetDefault("ai.parameters.max_tokens", DefaultMaxTokens)
	v.SetDefault("ai.parameters.temperature", DefaultTemperature)

	var cfg models.ProjectConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, invalid(projectID, fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	cfg.ID = projectID
	normalize(&cfg)

	var problems []string
	for _, p := range r.catalog.Check(cfg.AI) {
		problems = append(problems, fmt.Sprintf("Invalid AI configuration for project %s: %s", projectID, p))
	}
	if cfg.Prompt.Template != "" {
		if _, err := template.New(projectID).Parse(cfg.Prompt.Template); err != nil {
			problems = append(problems, fmt.Sprintf("invalid prompt template: %v", err))
		}
	}
	if len(problems) > 0 {
		return nil, invalid(projectID, problems...)
	}

	warnZeroTemperature(cfg)
	return &cfg, nil
}

// warnZeroTemperature flags OpenAI legs configured with temperature 0. The
// OpenAI client omits a zero temperature from the request, so the vendor
// default applies instead.
func warnZeroTemperature(cfg models.ProjectConfig) {
	if cfg.AI.Parameters.Temperature != 0 {
		return
	}
	legs := []models.ProviderName{cfg.AI.Provider}
	if cfg.AI.Fallback != nil {
		legs = append(legs, cfg.AI.Fallback.Provider)
	}
	for _, provider := range legs {
		if provider == models.ProviderOpenAI {
			logger.Warn(
				"Temperature 0 is not sent to OpenAI; the provider default applies",
				"project", cfg.ID,
				"model", cfg.AI.Model,
			)
			return
		}
	}
}

func normalize(cfg *models.ProjectConfig) {
	cfg.AI.Provider = models.NormalizeProvider(string(cfg.AI.Provider))
	cfg.AI.Model = strings.TrimSpace(cfg.AI.Model)
	if cfg.AI.Fallback != nil {
		cfg.AI.Fallback.Provider = models.NormalizeProvider(string(cfg.AI.Fallback.Provider))
		cfg.AI.Fallback.Model = strings.TrimSpace(cfg.AI.Fallback.Model)
		if cfg.AI.Fallback.Provider == "" && cfg.AI.Fallback.Model == "" {
			cfg.AI.Fallback = nil
		}
	}
	for i, field := range cfg.Prompt.RequiredFields {
		cfg.Prompt.RequiredFields[i] = strings.TrimSpace(field)
	}
}

func notFound(projectID string) error {
	return apperr.Wrap(
		apperr.KindInvalidProjectConfig,
		ErrProjectNotFound,
		"Invalid project configuration",
		fmt.Sprintf("Invalid project configuration: %s - project not found", projectID),
	)
}

func invalid(projectID string, problems ...string) error {
	if len(problems) == 0 {
		problems = []string{fmt.Sprintf("Invalid project configuration: %s", projectID)}
	}
	return apperr.New(apperr.KindInvalidProjectConfig, "Invalid project configuration", problems...)
}
