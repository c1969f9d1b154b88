package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	SourceDSN    string `yaml:"source_dsn"`
	TargetDSN    string `yaml:"target_dsn"`
	AdminDSN     string `yaml:"admin_dsn"`
	ParamLimit   int    `yaml:"param_limit"`
	RecentWindow int    `yaml:"recent_window"`
	LogLevel     string `yaml:"log_level"`
	Output       string `yaml:"output"`
}

// DefaultParamLimit is the PostgreSQL bind-parameter bound per statement.
const DefaultParamLimit = 65535

// DefaultRecentWindow is how many of the most recent target events are
// checked for structural completeness.
const DefaultRecentWindow = 25

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/toursync/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		ParamLimit:   DefaultParamLimit,
		RecentWindow: DefaultRecentWindow,
		LogLevel:     "info",
		Output:       "table",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/toursync/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil {
		// YAML config is optional, so we don't fail if it doesn't exist
	}

	// Override with environment variables
	if dsn := getEnvOrFile("TOURSYNC_SOURCE_DSN", "TOURSYNC_SOURCE_DSN_FILE"); dsn != "" {
		cfg.SourceDSN = dsn
	}
	if dsn := getEnvOrFile("TOURSYNC_TARGET_DSN", "TOURSYNC_TARGET_DSN_FILE"); dsn != "" {
		cfg.TargetDSN = dsn
	}
	if dsn := getEnvOrFile("TOURSYNC_ADMIN_DSN", "TOURSYNC_ADMIN_DSN_FILE"); dsn != "" {
		cfg.AdminDSN = dsn
	}
	if logLevel := os.Getenv("TOURSYNC_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("TOURSYNC_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if limit := os.Getenv("TOURSYNC_PARAM_LIMIT"); limit != "" {
		n, err := parsePositive(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid TOURSYNC_PARAM_LIMIT: %w", err)
		}
		cfg.ParamLimit = n
	}
	if window := os.Getenv("TOURSYNC_RECENT_WINDOW"); window != "" {
		n, err := parsePositive(window)
		if err != nil {
			return nil, fmt.Errorf("invalid TOURSYNC_RECENT_WINDOW: %w", err)
		}
		cfg.RecentWindow = n
	}

	return cfg, nil
}

// Admin returns the DSN used for scratch-database provisioning. It
// defaults to the target DSN: the scratch database lives on the same
// server as the target.
func (c *Config) Admin() string {
	if c.AdminDSN != "" {
		return c.AdminDSN
	}
	return c.TargetDSN
}

// Validate checks that the DSNs a command needs are configured.
func (c *Config) Validate(needSource bool) error {
	if c.TargetDSN == "" {
		return fmt.Errorf("target DSN not configured (set TOURSYNC_TARGET_DSN)")
	}
	if needSource && c.SourceDSN == "" {
		return fmt.Errorf("source DSN not configured (set TOURSYNC_SOURCE_DSN)")
	}
	return nil
}

// loadYAMLConfig loads configuration from ~/.config/toursync/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "toursync", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}

	return ""
}

func parsePositive(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
