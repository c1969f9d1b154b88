// Package diff decides which events need syncing: events present
// upstream but absent locally, and local events that are structurally
// incomplete. Key sets are fetched from each side independently and
// compared client-side; nothing here writes.
package diff

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"toursync/internal/db"
)

// Engine computes the sync worklist.
type Engine struct {
	Source *db.DB
	Target *db.DB
	Window int // how many recent target events get completeness checks
	Log    *logrus.Logger
}

// Worklist is the ordered set of event ids to (re)sync. Missing events
// come first, then incomplete ones; both are ordered by recency.
type Worklist struct {
	Missing    []int64
	Incomplete []int64
}

// IDs returns the merged, de-duplicated worklist.
func (w *Worklist) IDs() []int64 {
	seen := make(map[int64]bool, len(w.Missing)+len(w.Incomplete))
	out := make([]int64, 0, len(w.Missing)+len(w.Incomplete))
	for _, id := range w.Missing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range w.Incomplete {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Empty reports whether there is nothing to sync.
func (w *Worklist) Empty() bool {
	return len(w.Missing) == 0 && len(w.Incomplete) == 0
}

// health is the completeness snapshot of one local event.
type health struct {
	ID           int64
	Players      int
	HasStandings bool
	HasMatches   bool
}

// Build computes the worklist: one full scan of event ids on each side
// for the missing set, plus bounded existence checks on the most recent
// Window local events for the incomplete set.
func (e *Engine) Build(ctx context.Context) (*Worklist, error) {
	sourceIDs, err := eventIDsByRecency(ctx, e.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to list source events: %w", err)
	}

	targetIDs, err := eventIDSet(ctx, e.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to list target events: %w", err)
	}

	recent, err := recentHealth(ctx, e.Target, e.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to check target event completeness: %w", err)
	}

	wl := &Worklist{
		Missing:    missingIDs(sourceIDs, targetIDs),
		Incomplete: incompleteIDs(recent),
	}

	e.Log.WithFields(logrus.Fields{
		"missing":    len(wl.Missing),
		"incomplete": len(wl.Incomplete),
	}).Info("computed sync worklist")

	return wl, nil
}

// missingIDs keeps source ids absent from the target, preserving source
// recency order.
func missingIDs(sourceIDs []int64, target map[int64]bool) []int64 {
	var out []int64
	for _, id := range sourceIDs {
		if !target[id] {
			out = append(out, id)
		}
	}
	return out
}

// incompleteIDs keeps events that declare players but are missing either
// all standings or all matches. Deck absence is not checked: not every
// event kind carries decks.
func incompleteIDs(events []health) []int64 {
	var out []int64
	for _, ev := range events {
		if ev.Players > 0 && (!ev.HasStandings || !ev.HasMatches) {
			out = append(out, ev.ID)
		}
	}
	return out
}

func eventIDsByRecency(ctx context.Context, dbh *db.DB) ([]int64, error) {
	rows, err := dbh.QueryContext(ctx, `SELECT id FROM events ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func eventIDSet(ctx context.Context, dbh *db.DB) (map[int64]bool, error) {
	rows, err := dbh.QueryContext(ctx, `SELECT id FROM events`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func recentHealth(ctx context.Context, dbh *db.DB, window int) ([]health, error) {
	rows, err := dbh.QueryContext(ctx, `
		SELECT e.id, e.players,
		       EXISTS (SELECT 1 FROM standings s WHERE s.event_id = e.id),
		       EXISTS (SELECT 1 FROM matches m WHERE m.event_id = e.id)
		FROM events e
		ORDER BY e.date DESC, e.id DESC
		LIMIT $1
	`, window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []health
	for rows.Next() {
		var h health
		if err := rows.Scan(&h.ID, &h.Players, &h.HasStandings, &h.HasMatches); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
