// Package snapshot merges an externally produced dataset dump into the
// target. The dump is restored into a disposable scratch database which
// then stands in for the live upstream; the scratch database is dropped
// on every exit path.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"toursync/internal/db"
	"toursync/internal/diff"
	"toursync/internal/sync"
)

// Options configures a merge run.
type Options struct {
	DumpPath   string
	TargetDSN  string
	AdminDSN   string // server-level connection used to create/drop the scratch database
	ParamLimit int
	Window     int
}

// Result reports a completed merge.
type Result struct {
	ScratchName string
	Summary     *sync.Summary
}

// scratchPrefix namespaces the disposable databases so a crashed run's
// leftovers are recognizable.
const scratchPrefix = "toursync_merge_"

// scratchName generates a collision-free scratch database name.
func scratchName() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return scratchPrefix + suffix
}

// Merge provisions a scratch database, restores the dump into it,
// verifies the restore produced a usable dataset, and runs the pipeline
// in merge mode with the scratch database as the source.
func Merge(ctx context.Context, log *logrus.Logger, opts Options) (*Result, error) {
	format, err := DetectFormat(opts.DumpPath)
	if err != nil {
		return nil, err
	}

	admin, err := db.Open(opts.AdminDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect for scratch provisioning: %w", err)
	}
	defer admin.Close()

	name := scratchName()
	if err := db.CreateDatabase(ctx, admin, name); err != nil {
		return nil, err
	}
	log.WithField("database", name).Info("provisioned scratch database")

	// The scratch database is dropped no matter how the merge ends. The
	// drop itself is best-effort: if the server is gone there is nothing
	// more to do than log it.
	defer func() {
		if err := db.DropDatabase(context.WithoutCancel(ctx), admin, name); err != nil {
			log.WithField("database", name).Errorf("failed to drop scratch database: %v", err)
		} else {
			log.WithField("database", name).Info("dropped scratch database")
		}
	}()

	scratchDSN := db.WithDatabase(opts.AdminDSN, name)
	if err := restore(ctx, log, format, scratchDSN, opts.DumpPath); err != nil {
		return nil, err
	}

	scratch, err := db.Open(scratchDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scratch database: %w", err)
	}
	defer scratch.Close()

	if err := verify(ctx, scratch); err != nil {
		return nil, err
	}

	target, err := db.Open(opts.TargetDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	defer target.Close()

	engine := &diff.Engine{Source: scratch, Target: target, Window: opts.Window, Log: log}
	wl, err := engine.Build(ctx)
	if err != nil {
		return nil, err
	}

	pipeline := &sync.Pipeline{
		Source:     scratch,
		Target:     target,
		Log:        log,
		ParamLimit: opts.ParamLimit,
		Mode:       sync.ModeMerge,
	}
	summary, err := pipeline.Run(ctx, wl)
	if err != nil {
		return nil, err
	}

	return &Result{ScratchName: name, Summary: summary}, nil
}

// verify confirms the restore produced the dataset's root table. A dump
// that restores to nothing is not a valid/complete dataset and the run
// fails fast rather than syncing an empty source.
func verify(ctx context.Context, scratch *db.DB) error {
	var exists bool
	err := scratch.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'events'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to verify restored snapshot: %w", err)
	}
	if !exists {
		return fmt.Errorf("snapshot is not a valid dataset: no events table after restore")
	}
	return nil
}
