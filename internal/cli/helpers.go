package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"toursync/internal/config"
)

// loadConfig loads configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dsn := cmd.Flag("source").Value.String(); dsn != "" {
		cfg.SourceDSN = dsn
	}
	if dsn := cmd.Flag("target").Value.String(); dsn != "" {
		cfg.TargetDSN = dsn
	}
	if dsn := cmd.Flag("admin").Value.String(); dsn != "" {
		cfg.AdminDSN = dsn
	}
	if output := cmd.Flag("output").Value.String(); output != "" {
		cfg.Output = output
	}
	if level := cmd.Flag("log-level").Value.String(); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

// newLogger builds the run logger. Progress goes to stderr so stdout
// stays clean for the summary and diff output.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
