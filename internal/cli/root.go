package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toursync",
	Short: "One-directional tournament database synchronization",
	Long: `toursync keeps a local tournament database in step with its upstream.
It detects events that are missing or structurally incomplete locally,
reconciles player identities across the two databases, and applies the
dependent record sets in dependency order with idempotent batched
upserts. A pg_dump snapshot can be merged in place of a live upstream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags for toursync
	rootCmd.PersistentFlags().String("source", "", "Source DSN (overrides TOURSYNC_SOURCE_DSN)")
	rootCmd.PersistentFlags().String("target", "", "Target DSN (overrides TOURSYNC_TARGET_DSN)")
	rootCmd.PersistentFlags().String("admin", "", "Admin DSN for scratch provisioning (overrides TOURSYNC_ADMIN_DSN)")
	rootCmd.PersistentFlags().String("output", "", "Output format: table or json")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}
