package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LoadConfig loads the configuration from the specified path or default locations
func LoadConfig() (*Config, error) {
	// Check for config path in environment variable
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		// Check common config locations
		commonPaths := []string{
			".",
			"./config",
			"/etc/site-ai-gateway",
			"$HOME/.site-ai-gateway",
		}

		for _, path := range commonPaths {
			expandedPath := os.ExpandEnv(path)
			if _, err := os.Stat(filepath.Join(expandedPath, "config.yaml")); err == nil {
				configPath = expandedPath
				break
			}
		}
	}

	return Load(configPath)
}

// LoadFile loads the configuration from one explicit file.
func LoadFile(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	return load(v)
}

// LoadTestConfig loads the configuration for testing
func LoadTestConfig() (*Config, error) {
	return LoadFile(filepath.Join("testdata", "config.test.yaml"))
}
