// Package identity resolves player references across the two
// independently-keyed databases. The player name is the join key; the
// numeric id is reconciled per name: kept if the name is already local,
// adopted from upstream when that id is free locally, synthesized in the
// reserved negative range otherwise.
package identity

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"toursync/internal/db"
	"toursync/internal/domain"
)

// Reconciler resolves player identities for a worklist of events.
type Reconciler struct {
	Source *db.DB
	Target *db.DB
	Log    *logrus.Logger
}

// Resolution is the outcome of a reconciliation pass.
type Resolution struct {
	// IDByName maps every referenced name to its local id, existing and new.
	IDByName map[string]int64
	// New holds the player rows that must be written before any dependent
	// stage runs.
	New []domain.Player
	// Synthesized counts ids invented in the negative range this pass.
	Synthesized int
	// SkippedNames lists names left unresolved (merge mode only).
	SkippedNames []string
}

// Resolve implements the direct-sync policy: every name referenced by the
// worklist's standings, matches or decks upstream ends up with a local
// id, synthesizing negative ids on collision or when upstream has none.
// Idempotent: it re-derives from the target's persisted name→id mapping
// and current negative-id floor, so an unchanged re-run yields the same
// assignments.
func (r *Reconciler) Resolve(ctx context.Context, eventIDs []int64) (*Resolution, error) {
	names, err := referencedNames(ctx, r.Source, eventIDs)
	if err != nil {
		return nil, err
	}

	target, err := loadPlayers(ctx, r.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load target players: %w", err)
	}

	sourceID, err := sourcePlayerIDs(ctx, r.Source, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load source player ids: %w", err)
	}

	res := assign(names, sourceID, target)
	for _, p := range res.New {
		if p.Synthetic() {
			r.Log.WithFields(logrus.Fields{
				"player": p.Name,
				"id":     p.ID,
			}).Warn("synthesized negative player id")
		}
	}
	return res, nil
}

// ResolveMerge implements the snapshot-merge policy: lower trust, no
// synthesis. A snapshot player is adopted only when its name is absent
// locally and its id unused; otherwise the name is left unresolved and
// the caller filters out rows referencing it.
func (r *Reconciler) ResolveMerge(ctx context.Context, eventIDs []int64) (*Resolution, error) {
	names, err := referencedNames(ctx, r.Source, eventIDs)
	if err != nil {
		return nil, err
	}

	target, err := loadPlayers(ctx, r.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load target players: %w", err)
	}

	sourceID, err := sourcePlayerIDs(ctx, r.Source, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot player ids: %w", err)
	}

	res := assignMerge(names, sourceID, target)
	for _, name := range res.SkippedNames {
		r.Log.WithField("player", name).Warn("snapshot player not adoptable, rows will be skipped")
	}
	return res, nil
}

// players is the target-side identity state.
type players struct {
	byName map[string]int64
	byID   map[int64]string
	floor  int64 // lowest negative id in use, 0 if none
}

// assign applies the direct-sync policy. Pure so the policy is testable;
// names are processed in sorted order so one run never hands out two
// different ids for the same name and repeat runs are deterministic.
func assign(names []string, sourceID map[string]int64, t players) *Resolution {
	res := &Resolution{IDByName: make(map[string]int64, len(names))}
	floor := t.floor

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	for _, name := range sorted {
		if id, ok := t.byName[name]; ok {
			res.IDByName[name] = id
			continue
		}

		if id, ok := sourceID[name]; ok {
			if _, used := t.byID[id]; !used {
				res.IDByName[name] = id
				res.New = append(res.New, domain.Player{ID: id, Name: name})
				t.byID[id] = name
				continue
			}
		}

		// Upstream id missing or taken by a different local player:
		// synthesize the next free negative id.
		if floor > -1 {
			floor = -1
		} else {
			floor--
		}
		res.IDByName[name] = floor
		res.New = append(res.New, domain.Player{ID: floor, Name: name})
		res.Synthesized++
		t.byID[floor] = name
	}

	return res
}

// assignMerge applies the snapshot-merge policy: adopt-or-skip, never
// synthesize.
func assignMerge(names []string, sourceID map[string]int64, t players) *Resolution {
	res := &Resolution{IDByName: make(map[string]int64, len(names))}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	for _, name := range sorted {
		if id, ok := t.byName[name]; ok {
			res.IDByName[name] = id
			continue
		}

		id, ok := sourceID[name]
		if !ok {
			res.SkippedNames = append(res.SkippedNames, name)
			continue
		}
		if _, used := t.byID[id]; used {
			res.SkippedNames = append(res.SkippedNames, name)
			continue
		}

		res.IDByName[name] = id
		res.New = append(res.New, domain.Player{ID: id, Name: name})
		t.byID[id] = name
	}

	return res
}

// referencedNames collects every player name the worklist events touch on
// the source, across standings, matches and decks.
func referencedNames(ctx context.Context, source *db.DB, eventIDs []int64) ([]string, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	queries := []string{
		`SELECT DISTINCT player FROM standings WHERE event_id IN (%s)`,
		`SELECT DISTINCT player FROM matches WHERE event_id IN (%s)`,
		`SELECT DISTINCT player FROM decks WHERE event_id IN (%s)`,
	}

	for _, q := range queries {
		rows, err := source.QueryContext(ctx,
			fmt.Sprintf(q, db.Placeholders(len(eventIDs))), db.Int64Args(eventIDs)...)
		if err != nil {
			return nil, fmt.Errorf("failed to collect referenced players: %w", err)
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, err
			}
			seen[name] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// loadPlayers fetches the target's full name→id mapping plus the current
// negative-id floor.
func loadPlayers(ctx context.Context, target *db.DB) (players, error) {
	t := players{
		byName: make(map[string]int64),
		byID:   make(map[int64]string),
	}

	rows, err := target.QueryContext(ctx, `SELECT id, name FROM players`)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return t, err
		}
		t.byName[name] = id
		t.byID[id] = name
		if id < 0 && id < t.floor {
			t.floor = id
		}
	}
	return t, rows.Err()
}

// sourcePlayerIDs looks up the upstream numeric ids for the given names.
// Names with no upstream player row are simply absent from the result.
func sourcePlayerIDs(ctx context.Context, source *db.DB, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := source.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name FROM players WHERE name IN (%s)`, db.Placeholders(len(names))), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}
