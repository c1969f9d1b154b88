package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"toursync/internal/db"
	"toursync/internal/diff"
	"toursync/internal/render"
	"toursync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync missing and incomplete events from the upstream database",
	Long: `Computes the worklist of events absent or structurally incomplete
locally, reconciles player identities, and applies all dependent record
sets in dependency order. Safe to re-run after a partial failure.

Examples:
  toursync sync                      # Sync using configured DSNs
  toursync sync --output json        # Machine-readable summary
  toursync sync --dry-run            # Print the worklist, write nothing
`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncDryRun bool

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute the worklist but write nothing")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}
	log := newLogger(cfg)

	source, err := db.Open(cfg.SourceDSN)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	target, err := db.Open(cfg.TargetDSN)
	if err != nil {
		source.Close()
		return fmt.Errorf("target: %w", err)
	}
	conns := &db.Conns{Source: source, Target: target}
	defer conns.Close()

	engine := &diff.Engine{Source: source, Target: target, Window: cfg.RecentWindow, Log: log}
	ctx := cmd.Context()

	wl, err := engine.Build(ctx)
	if err != nil {
		return err
	}

	if syncDryRun {
		fmt.Printf("Would sync %d missing and %d incomplete events: %v\n",
			len(wl.Missing), len(wl.Incomplete), wl.IDs())
		return nil
	}

	pipeline := &sync.Pipeline{
		Source:     source,
		Target:     target,
		Log:        log,
		ParamLimit: cfg.ParamLimit,
		Mode:       sync.ModeLive,
	}
	summary, err := pipeline.Run(ctx, wl)
	if err != nil {
		return err
	}

	return render.Summary(os.Stdout, summary, render.Format(cfg.Output))
}
