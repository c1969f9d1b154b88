package cli

import (
	"os"

	"github.com/spf13/cobra"

	"toursync/internal/render"
	"toursync/internal/snapshot"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <dumpfile>",
	Short: "Merge a pg_dump snapshot through a disposable scratch database",
	Long: `Restores the snapshot into a freshly provisioned scratch database on
the target server, runs the sync pipeline with the scratch database as
the stand-in source, then drops the scratch database. Snapshot rows
referencing players or events unknown to the target are skipped rather
than invented: the snapshot is treated as a lower-trust source.

Supported dump formats: plain SQL scripts and custom-format archives
(detected from the file contents).

Examples:
  toursync merge backups/events-2026-08-01.dump
  toursync merge legacy.sql --output json
`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}
	log := newLogger(cfg)

	result, err := snapshot.Merge(cmd.Context(), log, snapshot.Options{
		DumpPath:   args[0],
		TargetDSN:  cfg.TargetDSN,
		AdminDSN:   cfg.Admin(),
		ParamLimit: cfg.ParamLimit,
		Window:     cfg.RecentWindow,
	})
	if err != nil {
		return err
	}

	return render.Summary(os.Stdout, result.Summary, render.Format(cfg.Output))
}
