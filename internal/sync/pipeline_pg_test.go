package sync

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"toursync/internal/db"
	"toursync/internal/diff"
	"toursync/internal/domain"
	"toursync/internal/testutil"
)

// Integration tests; they skip unless TOURSYNC_TEST_DSN points at a
// PostgreSQL server.

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// seedFullEvent populates the upstream side with one event carrying
// standings, matches, a deck and its archetype for two players.
func seedFullEvent(t *testing.T, source *db.DB, eventID int64, date time.Time, deckID int64) {
	t.Helper()

	testutil.InsertEvent(t, source, domain.Event{
		ID: eventID, Name: "Modern Challenge 64", Date: date,
		Format: "Modern", Kind: "Challenge", Rounds: 2, Players: 2,
	})
	testutil.InsertStanding(t, source, domain.Standing{EventID: eventID, Player: "Alice", Rank: 1, Points: 6, Wins: 2})
	testutil.InsertStanding(t, source, domain.Standing{EventID: eventID, Player: "Bob", Rank: 2, Points: 3, Wins: 1, Losses: 1})
	testutil.InsertMatch(t, source, domain.Match{EventID: eventID, Round: 1, Player: "Alice", Opponent: "Bob", Result: "2-1", Games: "WLW"})
	testutil.InsertMatch(t, source, domain.Match{EventID: eventID, Round: 1, Player: "Bob", Opponent: "Alice", Result: "1-2", Games: "LWL"})
	testutil.InsertDeck(t, source, domain.Deck{ID: deckID, EventID: eventID, Player: "Alice", Mainboard: "60 Island", Sideboard: "15 Pyroblast"})
	testutil.InsertArchetype(t, source, domain.Archetype{ID: deckID + 10000, DeckID: deckID, Name: "Murktide", Archetype: "Tempo", ArchetypeID: 42})
}

func TestPipelineRunAndRerun(t *testing.T) {
	source := testutil.SchemaDB(t)
	target := testutil.SchemaDB(t)
	ctx := context.Background()
	log := testLogger()

	testutil.InsertPlayer(t, source, domain.Player{ID: 11, Name: "Alice"})
	testutil.InsertPlayer(t, source, domain.Player{ID: 12, Name: "Bob"})
	seedFullEvent(t, source, 101, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 1001)
	seedFullEvent(t, source, 102, time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC), 1002)

	engine := &diff.Engine{Source: source, Target: target, Window: 25, Log: log}
	wl, err := engine.Build(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, len(wl.Missing))

	p := &Pipeline{Source: source, Target: target, Log: log, ParamLimit: 65535, Mode: ModeLive}
	summary, err := p.Run(ctx, wl)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 2, summary.NewEvents)
	testutil.AssertEqual(t, 0, summary.Synthesized)

	// 2 players + 2 events + 4 standings + 4 matches + 2 decks + 2 archetypes
	totals := summary.Totals()
	testutil.AssertEqual(t, 16, totals.Inserted)
	testutil.AssertEqual(t, 0, totals.Updated)
	testutil.AssertEqual(t, 0, totals.Skipped)

	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM players`))
	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM events`))
	testutil.AssertEqual(t, 4, testutil.Count(t, target, `SELECT count(*) FROM standings`))
	testutil.AssertEqual(t, 4, testutil.Count(t, target, `SELECT count(*) FROM matches`))
	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM decks`))
	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM archetypes`))

	// Source ids were free locally and must have been adopted verbatim.
	var aliceID int64
	testutil.AssertNoError(t, target.QueryRow(`SELECT id FROM players WHERE name = 'Alice'`).Scan(&aliceID))
	testutil.AssertEqual(t, int64(11), aliceID)

	// The worklist is now empty.
	wl2, err := engine.Build(ctx)
	testutil.AssertNoError(t, err)
	if !wl2.Empty() {
		t.Fatalf("expected empty worklist after sync, got missing=%v incomplete=%v", wl2.Missing, wl2.Incomplete)
	}

	// Forcing the original worklist through again must write nothing.
	summary, err = p.Run(ctx, wl)
	testutil.AssertNoError(t, err)
	totals = summary.Totals()
	testutil.AssertEqual(t, 0, totals.Inserted)
	testutil.AssertEqual(t, 0, totals.Updated)
	testutil.AssertEqual(t, 0, totals.Skipped)
}

func TestPipelineResyncsIncompleteEvent(t *testing.T) {
	source := testutil.SchemaDB(t)
	target := testutil.SchemaDB(t)
	ctx := context.Background()
	log := testLogger()

	testutil.InsertPlayer(t, source, domain.Player{ID: 11, Name: "Alice"})
	testutil.InsertPlayer(t, source, domain.Player{ID: 12, Name: "Bob"})
	seedFullEvent(t, source, 101, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 1001)

	// The event row landed earlier but none of its dependents did.
	testutil.InsertEvent(t, target, domain.Event{
		ID: 101, Name: "Modern Challenge 64", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Format: "Modern", Kind: "Challenge", Rounds: 2, Players: 2,
	})

	engine := &diff.Engine{Source: source, Target: target, Window: 25, Log: log}
	wl, err := engine.Build(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, len(wl.Missing))
	testutil.AssertEqual(t, 1, len(wl.Incomplete))

	p := &Pipeline{Source: source, Target: target, Log: log, ParamLimit: 65535, Mode: ModeLive}
	summary, err := p.Run(ctx, wl)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 1, summary.ResyncedEvents)
	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM standings`))
	testutil.AssertEqual(t, 2, testutil.Count(t, target, `SELECT count(*) FROM matches`))
	testutil.AssertEqual(t, 1, testutil.Count(t, target, `SELECT count(*) FROM decks`))
}

func TestPipelineMergeFiltersUnadoptable(t *testing.T) {
	source := testutil.SchemaDB(t)
	target := testutil.SchemaDB(t)
	ctx := context.Background()
	log := testLogger()

	testutil.InsertPlayer(t, source, domain.Player{ID: 11, Name: "Alice"})
	testutil.InsertPlayer(t, source, domain.Player{ID: 12, Name: "Bob"})
	seedFullEvent(t, source, 101, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 1001)

	// Alice's snapshot id belongs to someone else locally, so in merge
	// mode her rows are dropped rather than re-keyed.
	testutil.InsertPlayer(t, target, domain.Player{ID: 11, Name: "Zed"})

	engine := &diff.Engine{Source: source, Target: target, Window: 25, Log: log}
	wl, err := engine.Build(ctx)
	testutil.AssertNoError(t, err)

	p := &Pipeline{Source: source, Target: target, Log: log, ParamLimit: 65535, Mode: ModeMerge}
	summary, err := p.Run(ctx, wl)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 0, summary.Synthesized)

	// Bob adopted; Alice filtered out of every dependent category,
	// including her deck's archetype.
	testutil.AssertEqual(t, 0, testutil.Count(t, target, `SELECT count(*) FROM players WHERE name = 'Alice'`))
	testutil.AssertEqual(t, 1, testutil.Count(t, target, `SELECT count(*) FROM players WHERE name = 'Bob'`))
	testutil.AssertEqual(t, 1, testutil.Count(t, target, `SELECT count(*) FROM standings`))
	testutil.AssertEqual(t, 1, testutil.Count(t, target, `SELECT count(*) FROM matches`))
	testutil.AssertEqual(t, 0, testutil.Count(t, target, `SELECT count(*) FROM decks`))
	testutil.AssertEqual(t, 0, testutil.Count(t, target, `SELECT count(*) FROM archetypes`))

	// Filtered rows are accounted for as skips.
	if summary.Totals().Skipped == 0 {
		t.Error("expected filtered rows to be counted as skipped")
	}
}
