// Package testutil provides database-backed test helpers. Integration
// tests need a reachable PostgreSQL server; set TOURSYNC_TEST_DSN to run
// them, otherwise they skip. Each test gets its own throwaway schema so
// tests never see each other's rows.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"toursync/internal/db"
	"toursync/internal/domain"
)

// EnvDSN names the environment variable holding the test server DSN.
const EnvDSN = "TOURSYNC_TEST_DSN"

var schemaSeq atomic.Int64

// Schema is the entity DDL used by integration tests. Production DDL is
// owned elsewhere; this mirrors it closely enough to exercise natural
// keys and referential constraints.
const Schema = `
CREATE TABLE events (
	id      bigint PRIMARY KEY,
	name    text NOT NULL,
	date    date NOT NULL,
	format  text NOT NULL DEFAULT '',
	kind    text NOT NULL DEFAULT '',
	rounds  int NOT NULL DEFAULT 0,
	players int NOT NULL DEFAULT 0
);

CREATE TABLE players (
	id   bigint PRIMARY KEY,
	name text NOT NULL UNIQUE
);

CREATE TABLE standings (
	event_id bigint NOT NULL REFERENCES events (id),
	player   text NOT NULL REFERENCES players (name),
	rank     int NOT NULL DEFAULT 0,
	points   int NOT NULL DEFAULT 0,
	wins     int NOT NULL DEFAULT 0,
	losses   int NOT NULL DEFAULT 0,
	draws    int NOT NULL DEFAULT 0,
	omwp     double precision NOT NULL DEFAULT 0,
	gwp      double precision NOT NULL DEFAULT 0,
	ogwp     double precision NOT NULL DEFAULT 0,
	UNIQUE (event_id, player)
);

CREATE TABLE matches (
	event_id bigint NOT NULL REFERENCES events (id),
	round    int NOT NULL,
	player   text NOT NULL REFERENCES players (name),
	opponent text NOT NULL DEFAULT '',
	result   text NOT NULL DEFAULT '',
	is_bye   boolean NOT NULL DEFAULT false,
	games    text NOT NULL DEFAULT '',
	UNIQUE (event_id, round, player)
);

CREATE TABLE decks (
	id        bigint PRIMARY KEY,
	event_id  bigint NOT NULL REFERENCES events (id),
	player    text NOT NULL REFERENCES players (name),
	mainboard text NOT NULL DEFAULT '',
	sideboard text NOT NULL DEFAULT '',
	UNIQUE (event_id, player)
);

CREATE TABLE archetypes (
	id           bigint PRIMARY KEY,
	deck_id      bigint NOT NULL UNIQUE REFERENCES decks (id),
	name         text NOT NULL DEFAULT '',
	archetype    text NOT NULL DEFAULT '',
	archetype_id bigint NOT NULL DEFAULT 0
);
`

// SchemaDB opens a single-connection handle pinned to a fresh schema
// with the entity tables created. The schema is dropped on cleanup.
// Skips the test when TOURSYNC_TEST_DSN is unset.
func SchemaDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set, skipping integration test", EnvDSN)
	}

	dbh, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// One pooled connection so SET search_path sticks for the test.
	dbh.SetMaxOpenConns(1)

	schema := fmt.Sprintf("toursync_test_%d_%d", time.Now().UnixNano(), schemaSeq.Add(1))
	ctx := context.Background()

	if _, err := dbh.ExecContext(ctx, "CREATE SCHEMA "+db.QuoteIdentifier(schema)); err != nil {
		dbh.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	if _, err := dbh.ExecContext(ctx, "SET search_path TO "+db.QuoteIdentifier(schema)); err != nil {
		dbh.Close()
		t.Fatalf("failed to set search_path: %v", err)
	}
	if _, err := dbh.ExecContext(ctx, Schema); err != nil {
		dbh.Close()
		t.Fatalf("failed to create test tables: %v", err)
	}

	t.Cleanup(func() {
		_, _ = dbh.ExecContext(context.Background(), "DROP SCHEMA "+db.QuoteIdentifier(schema)+" CASCADE")
		dbh.Close()
	})

	return dbh
}

// InsertEvent seeds one event row.
func InsertEvent(t *testing.T, dbh *db.DB, e domain.Event) {
	t.Helper()
	_, err := dbh.Exec(`
		INSERT INTO events (id, name, date, format, kind, rounds, players)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Name, e.Date, e.Format, e.Kind, e.Rounds, e.Players)
	if err != nil {
		t.Fatalf("failed to insert event %d: %v", e.ID, err)
	}
}

// InsertPlayer seeds one player row.
func InsertPlayer(t *testing.T, dbh *db.DB, p domain.Player) {
	t.Helper()
	if _, err := dbh.Exec(`INSERT INTO players (id, name) VALUES ($1, $2)`, p.ID, p.Name); err != nil {
		t.Fatalf("failed to insert player %q: %v", p.Name, err)
	}
}

// InsertStanding seeds one standing row.
func InsertStanding(t *testing.T, dbh *db.DB, s domain.Standing) {
	t.Helper()
	_, err := dbh.Exec(`
		INSERT INTO standings (event_id, player, rank, points, wins, losses, draws, omwp, gwp, ogwp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.EventID, s.Player, s.Rank, s.Points, s.Wins, s.Losses, s.Draws, s.OMWP, s.GWP, s.OGWP)
	if err != nil {
		t.Fatalf("failed to insert standing (%d, %q): %v", s.EventID, s.Player, err)
	}
}

// InsertMatch seeds one match row.
func InsertMatch(t *testing.T, dbh *db.DB, m domain.Match) {
	t.Helper()
	_, err := dbh.Exec(`
		INSERT INTO matches (event_id, round, player, opponent, result, is_bye, games)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.EventID, m.Round, m.Player, m.Opponent, m.Result, m.IsBye, m.Games)
	if err != nil {
		t.Fatalf("failed to insert match (%d, %d, %q): %v", m.EventID, m.Round, m.Player, err)
	}
}

// InsertDeck seeds one deck row.
func InsertDeck(t *testing.T, dbh *db.DB, d domain.Deck) {
	t.Helper()
	_, err := dbh.Exec(`
		INSERT INTO decks (id, event_id, player, mainboard, sideboard)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.EventID, d.Player, d.Mainboard, d.Sideboard)
	if err != nil {
		t.Fatalf("failed to insert deck %d: %v", d.ID, err)
	}
}

// InsertArchetype seeds one archetype row.
func InsertArchetype(t *testing.T, dbh *db.DB, a domain.Archetype) {
	t.Helper()
	_, err := dbh.Exec(`
		INSERT INTO archetypes (id, deck_id, name, archetype, archetype_id)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.DeckID, a.Name, a.Archetype, a.ArchetypeID)
	if err != nil {
		t.Fatalf("failed to insert archetype %d: %v", a.ID, err)
	}
}

// Count returns the number of rows matching the query.
func Count(t *testing.T, dbh *db.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := dbh.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertEqual asserts that two values are equal
func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Expected %v, got %v", expected, actual)
	}
}
