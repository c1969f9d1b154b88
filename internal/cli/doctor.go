package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"toursync/internal/db"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity and schema presence on both endpoints",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

// entityTables are the tables a usable target must carry.
var entityTables = []string{"events", "players", "standings", "matches", "decks", "archetypes"}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	ctx := cmd.Context()
	failed := false

	for _, endpoint := range []struct {
		label string
		dsn   string
	}{
		{"source", cfg.SourceDSN},
		{"target", cfg.TargetDSN},
	} {
		dbh, err := db.Open(endpoint.dsn)
		if err != nil {
			fmt.Printf("%s: FAIL (%v)\n", endpoint.label, err)
			failed = true
			continue
		}

		version, missing, err := inspect(ctx, dbh)
		dbh.Close()
		if err != nil {
			fmt.Printf("%s: FAIL (%v)\n", endpoint.label, err)
			failed = true
			continue
		}

		if len(missing) > 0 {
			fmt.Printf("%s: WARN (%s; missing tables: %v)\n", endpoint.label, version, missing)
			continue
		}
		fmt.Printf("%s: OK (%s)\n", endpoint.label, version)
	}

	if failed {
		return fmt.Errorf("doctor found connectivity problems")
	}
	return nil
}

func inspect(ctx context.Context, dbh *db.DB) (version string, missing []string, err error) {
	if err := dbh.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err != nil {
		return "", nil, err
	}

	for _, table := range entityTables {
		var exists bool
		err := dbh.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil {
			return version, nil, err
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	return version, missing, nil
}
