package config

import (
	"fmt"
	"strings"
	"time"

	"site-ai-gateway/internal/llm-router/models"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Projects   ProjectsConfig   `mapstructure:"projects"`
	Validation ValidationConfig `mapstructure:"validation"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	Host        string          `mapstructure:"host"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	CORS        CORSConfig      `mapstructure:"cors"`
	Environment string          `mapstructure:"environment"`
	Auth        AuthConfig      `mapstructure:"auth"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// AuthConfig protects the history endpoint with HS256 bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Retry     RetryConfig    `mapstructure:"retry"`
}

type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type ProjectsConfig struct {
	Dir   string `mapstructure:"dir"`
	Cache bool   `mapstructure:"cache"`
}

type ValidationConfig struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

type HistoryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Path          string        `mapstructure:"path"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
	Limit         int           `mapstructure:"limit"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Load loads the configuration from config files and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config path
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var config Config

	setDefaults(v)

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Server.Environment = strings.ToLower(strings.TrimSpace(config.Server.Environment))

	// Validate config
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.environment", EnvProduction)
	v.SetDefault("server.cors.enabled", true)
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Requested-With"})
	v.SetDefault("server.rate_limit.requests_per_minute", 30)
	v.SetDefault("server.rate_limit.burst", 5)
	v.SetDefault("providers.openai.timeout", 30*time.Second)
	v.SetDefault("providers.anthropic.timeout", 30*time.Second)
	v.SetDefault("providers.retry.max_attempts", 1)
	v.SetDefault("providers.retry.base_delay", 500*time.Millisecond)
	v.SetDefault("projects.dir", "./projects")
	v.SetDefault("projects.cache", true)
	v.SetDefault("validation.min_length", 0)
	v.SetDefault("validation.max_length", 4000)
	v.SetDefault("history.path", "./data")
	v.SetDefault("history.retention", 30*24*time.Hour)
	v.SetDefault("history.prune_schedule", "@daily")
	v.SetDefault("history.limit", 50)
	v.SetDefault("log.level", "info")
}

// bindEnv maps the variable names deployments already use onto config keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("providers.anthropic.api_key", "PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("providers.openai.api_key", "PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT", "NODE_ENV", "APP_ENV")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.auth.jwt_secret", "SERVER_AUTH_JWT_SECRET", "JWT_SECRET")
}

// validateConfig performs validation on the configuration
func validateConfig(config *Config) error {
	// Validate server config
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate providers
	if config.Providers.OpenAI.APIKey == "" && config.Providers.Anthropic.APIKey == "" {
		return fmt.Errorf("at least one provider API key must be configured")
	}
	if config.Providers.Retry.MaxAttempts < 0 {
		return fmt.Errorf("invalid retry attempts: %d", config.Providers.Retry.MaxAttempts)
	}

	// Validate input limits
	v := config.Validation
	if v.MinLength < 0 || v.MaxLength < 0 {
		return fmt.Errorf("validation lengths must not be negative")
	}
	if v.MaxLength > 0 && v.MinLength > v.MaxLength {
		return fmt.Errorf("validation min_length %d exceeds max_length %d", v.MinLength, v.MaxLength)
	}

	if config.Projects.Dir == "" {
		return fmt.Errorf("projects directory is required")
	}

	if config.Server.RateLimit.Enabled && config.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests_per_minute must be positive")
	}

	if config.History.Enabled && config.History.Path == "" {
		return fmt.Errorf("history path is required when history is enabled")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// GetProviderConfig returns the credentials of a provider; the second value
// is false for providers the service does not know.
func (c *Config) GetProviderConfig(provider models.ProviderName) (ProviderConfig, bool) {
	switch models.NormalizeProvider(string(provider)) {
	case models.ProviderOpenAI:
		return c.Providers.OpenAI, true
	case models.ProviderAnthropic:
		return c.Providers.Anthropic, true
	default:
		return ProviderConfig{}, false
	}
}
