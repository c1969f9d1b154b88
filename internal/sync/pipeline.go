// Package sync orchestrates a run: it resolves identities, then applies
// each entity category to the target in fixed dependency order through
// the batched upsert writer. The order is mandatory because the target
// enforces referential correctness: players before anything that names a
// player, events before their dependents, decks before archetypes.
package sync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"toursync/internal/batch"
	"toursync/internal/db"
	"toursync/internal/diff"
	"toursync/internal/domain"
	"toursync/internal/identity"
)

// Mode selects the identity policy for a run.
type Mode int

const (
	// ModeLive syncs from a live upstream; unresolvable player ids are
	// synthesized in the negative range.
	ModeLive Mode = iota
	// ModeMerge syncs from an imported snapshot; the snapshot is lower
	// trust, so rows referencing unadoptable players are filtered out
	// instead of synthesized.
	ModeMerge
)

// Pipeline runs the dependency-ordered sync.
type Pipeline struct {
	Source     *db.DB
	Target     *db.DB
	Log        *logrus.Logger
	ParamLimit int
	Mode       Mode
}

// StageResult is one stage's write counts.
type StageResult struct {
	Stage string
	batch.Result
}

// Summary is the end-of-run report.
type Summary struct {
	NewEvents      int
	ResyncedEvents int
	Synthesized    int
	Stages         []StageResult
}

// Totals sums the per-stage counts.
func (s *Summary) Totals() batch.Result {
	var total batch.Result
	for _, st := range s.Stages {
		total.Add(st.Result)
	}
	return total
}

// Run executes the six stages for the given worklist. Each stage fully
// completes before the next begins; an empty stage is a zero-count
// no-op. Any error beyond per-record constraint violations aborts the
// run, leaving the target in a safely re-runnable partial state.
func (p *Pipeline) Run(ctx context.Context, wl *diff.Worklist) (*Summary, error) {
	summary := &Summary{
		NewEvents:      len(wl.Missing),
		ResyncedEvents: len(wl.Incomplete),
	}
	if wl.Empty() {
		return summary, nil
	}

	ids := wl.IDs()

	reconciler := &identity.Reconciler{Source: p.Source, Target: p.Target, Log: p.Log}
	var res *identity.Resolution
	var err error
	if p.Mode == ModeMerge {
		res, err = reconciler.ResolveMerge(ctx, ids)
	} else {
		res, err = reconciler.Resolve(ctx, ids)
	}
	if err != nil {
		return summary, fmt.Errorf("failed to reconcile player identities: %w", err)
	}
	summary.Synthesized = res.Synthesized

	writer := &batch.Writer{DB: p.Target.DB, Log: p.Log, ParamLimit: p.ParamLimit}

	// 1. Players
	if err := p.runStage(ctx, summary, writer, playersTable, playerRows(res.New)); err != nil {
		return summary, err
	}

	// 2. Events: only newly-missing ones; incomplete events already have
	// their event row and are not rewritten at this level.
	events, err := fetchEvents(ctx, p.Source, wl.Missing)
	if err != nil {
		return summary, err
	}
	for _, e := range events {
		if err := domain.ValidateEvent(e); err != nil {
			return summary, fmt.Errorf("refusing to sync: %w", err)
		}
	}
	if err := p.runStage(ctx, summary, writer, eventsTable, eventRows(events)); err != nil {
		return summary, err
	}

	// 3. Standings
	standings, err := fetchStandings(ctx, p.Source, ids)
	if err != nil {
		return summary, err
	}
	standings, droppedStandings := filterStandings(p.Mode, standings, res.IDByName)
	if err := p.runStage(ctx, summary, writer, standingsTable, standingRows(standings)); err != nil {
		return summary, err
	}
	p.addSkips(summary, droppedStandings)

	// 4. Matches
	matches, err := fetchMatches(ctx, p.Source, ids)
	if err != nil {
		return summary, err
	}
	matches, droppedMatches := filterMatches(p.Mode, matches, res.IDByName)
	if err := p.runStage(ctx, summary, writer, matchesTable, matchRows(matches)); err != nil {
		return summary, err
	}
	p.addSkips(summary, droppedMatches)

	// 5. Decks
	decks, err := fetchDecks(ctx, p.Source, ids)
	if err != nil {
		return summary, err
	}
	decks, skippedDeckIDs := filterDecks(p.Mode, decks, res.IDByName)
	if err := p.runStage(ctx, summary, writer, decksTable, deckRows(decks)); err != nil {
		return summary, err
	}
	p.addSkips(summary, len(skippedDeckIDs))

	// 6. Archetypes: never written before their deck.
	archetypes, err := fetchArchetypes(ctx, p.Source, ids)
	if err != nil {
		return summary, err
	}
	archetypes, droppedArchetypes := filterArchetypes(archetypes, skippedDeckIDs)
	if err := p.runStage(ctx, summary, writer, archetypesTable, archetypeRows(archetypes)); err != nil {
		return summary, err
	}
	p.addSkips(summary, droppedArchetypes)

	return summary, nil
}

// runStage writes one entity category and records its counts.
func (p *Pipeline) runStage(ctx context.Context, summary *Summary, writer *batch.Writer, t batch.Table, rows [][]any) error {
	result, err := writer.Upsert(ctx, t, rows)
	summary.Stages = append(summary.Stages, StageResult{Stage: t.Name, Result: result})
	if err != nil {
		return fmt.Errorf("stage %s aborted: %w", t.Name, err)
	}

	p.Log.WithFields(logrus.Fields{
		"stage":    t.Name,
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	}).Info("stage complete")
	return nil
}

// addSkips folds client-side filtered rows into the last stage's skip count.
func (p *Pipeline) addSkips(summary *Summary, n int) {
	if n == 0 {
		return
	}
	summary.Stages[len(summary.Stages)-1].Skipped += n
}

// filterStandings drops merge-mode rows whose player was not adoptable.
// In live mode the reconciler guarantees every referenced name resolves,
// so nothing is filtered.
func filterStandings(mode Mode, in []domain.Standing, idByName map[string]int64) ([]domain.Standing, int) {
	if mode != ModeMerge {
		return in, 0
	}
	out := in[:0]
	dropped := 0
	for _, s := range in {
		if _, ok := idByName[s.Player]; ok {
			out = append(out, s)
		} else {
			dropped++
		}
	}
	return out, dropped
}

func filterMatches(mode Mode, in []domain.Match, idByName map[string]int64) ([]domain.Match, int) {
	if mode != ModeMerge {
		return in, 0
	}
	out := in[:0]
	dropped := 0
	for _, m := range in {
		if _, ok := idByName[m.Player]; ok {
			out = append(out, m)
		} else {
			dropped++
		}
	}
	return out, dropped
}

// filterDecks additionally reports which deck ids were dropped, so the
// archetype stage can drop their dependents without a round trip.
func filterDecks(mode Mode, in []domain.Deck, idByName map[string]int64) ([]domain.Deck, map[int64]bool) {
	if mode != ModeMerge {
		return in, nil
	}
	out := in[:0]
	skipped := make(map[int64]bool)
	for _, d := range in {
		if _, ok := idByName[d.Player]; ok {
			out = append(out, d)
		} else {
			skipped[d.ID] = true
		}
	}
	return out, skipped
}

func filterArchetypes(in []domain.Archetype, skippedDecks map[int64]bool) ([]domain.Archetype, int) {
	if len(skippedDecks) == 0 {
		return in, 0
	}
	out := in[:0]
	dropped := 0
	for _, a := range in {
		if skippedDecks[a.DeckID] {
			dropped++
		} else {
			out = append(out, a)
		}
	}
	return out, dropped
}
