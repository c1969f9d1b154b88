package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"toursync/internal/db"
	"toursync/internal/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Preview what a sync would do, without writing",
	Long: `Computes the worklist and prints it, followed by a unified diff of
the source and target event listings.

Examples:
  toursync diff                 # Worklist plus event-listing diff
  toursync diff --unified 5     # More diff context
`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

var diffUnified int

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().IntVar(&diffUnified, "unified", 3, "Lines of unified context")
}

func runDiff(cmd *cobra.Command, args []string) error {
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
	defer source.Close()
	target, err := db.Open(cfg.TargetDSN)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	defer target.Close()

	ctx := cmd.Context()

	engine := &diff.Engine{Source: source, Target: target, Window: cfg.RecentWindow, Log: log}
	wl, err := engine.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Missing locally:   %v\n", wl.Missing)
	fmt.Printf("Incomplete:        %v\n", wl.Incomplete)

	sourceLines, err := eventLines(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to list source events: %w", err)
	}
	targetLines, err := eventLines(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to list target events: %w", err)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        targetLines,
		B:        sourceLines,
		FromFile: "target",
		ToFile:   "source",
		Context:  diffUnified,
	})
	if err != nil {
		return fmt.Errorf("failed to build diff: %w", err)
	}
	if text == "" {
		fmt.Println("Event listings are identical.")
		return nil
	}
	fmt.Print(text)
	return nil
}

// eventLines renders one line per event, oldest first so new events
// append at the bottom of the diff.
func eventLines(ctx context.Context, dbh *db.DB) ([]string, error) {
	rows, err := dbh.QueryContext(ctx, `SELECT id, date, name FROM events ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var id int64
		var date time.Time
		var name string
		if err := rows.Scan(&id, &date, &name); err != nil {
			return nil, err
		}
		lines = append(lines, formatEventLine(id, date, name))
	}
	return lines, rows.Err()
}

func formatEventLine(id int64, date time.Time, name string) string {
	return fmt.Sprintf("%d\t%s\t%s\n", id, date.Format("2006-01-02"), name)
}
