package batch

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestChunkRows(t *testing.T) {
	tests := []struct {
		limit, cols, want int
	}{
		{65535, 7, 8426},  // 65535/7 = 9362, minus 10% headroom
		{100, 10, 9},      // 10 rows, minus 1
		{10, 10, 1},       // floor never drops below one row
		{5, 10, 1},        // limit below one row still writes row-wise
		{1000, 0, 1},      // degenerate column count
		{0, 5, 1},         // degenerate limit
	}

	for _, tt := range tests {
		if got := ChunkRows(tt.limit, tt.cols); got != tt.want {
			t.Errorf("ChunkRows(%d, %d) = %d, want %d", tt.limit, tt.cols, got, tt.want)
		}
	}
}

func TestStatementUpdate(t *testing.T) {
	tbl := Table{
		Name:    "standings",
		Columns: []string{"event_id", "player", "rank"},
		Key:     []string{"event_id", "player"},
		Update:  []string{"rank"},
	}

	got := tbl.Statement(2)
	want := "INSERT INTO standings (event_id, player, rank) VALUES ($1, $2, $3), ($4, $5, $6)" +
		" ON CONFLICT (event_id, player) DO UPDATE SET rank = EXCLUDED.rank" +
		" WHERE (standings.rank) IS DISTINCT FROM (EXCLUDED.rank)" +
		" RETURNING (xmax = 0)"
	if got != want {
		t.Errorf("Statement(2) =\n%s\nwant\n%s", got, want)
	}
}

func TestStatementDoNothing(t *testing.T) {
	tbl := Table{
		Name:    "players",
		Columns: []string{"id", "name"},
		Key:     []string{"name"},
	}

	got := tbl.Statement(1)
	if !strings.Contains(got, "ON CONFLICT (name) DO NOTHING") {
		t.Errorf("expected DO NOTHING statement, got %s", got)
	}
	if strings.Contains(got, "EXCLUDED") {
		t.Errorf("DO NOTHING statement should not reference EXCLUDED: %s", got)
	}
}

func TestStatementPlaceholderCount(t *testing.T) {
	tbl := Table{
		Name:    "matches",
		Columns: []string{"event_id", "round", "player", "opponent", "result", "is_bye", "games"},
		Key:     []string{"event_id", "round", "player"},
		Update:  []string{"opponent", "result", "is_bye", "games"},
	}

	stmt := tbl.Statement(3)
	// Highest placeholder must be rows*columns.
	if !strings.Contains(stmt, "$21") {
		t.Errorf("expected placeholder $21 in statement: %s", stmt)
	}
	if strings.Contains(stmt, "$22") {
		t.Errorf("unexpected placeholder $22 in statement: %s", stmt)
	}
}

func TestIsIntegrityViolation(t *testing.T) {
	if !isIntegrityViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected FK violation to classify as integrity violation")
	}
	if !isIntegrityViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("expected unique violation to classify as integrity violation")
	}
	if isIntegrityViolation(&pgconn.PgError{Code: "42P01"}) {
		t.Error("undefined table must not classify as integrity violation")
	}
	if isIntegrityViolation(nil) {
		t.Error("nil error must not classify as integrity violation")
	}
}

func TestResultAdd(t *testing.T) {
	r := Result{Inserted: 1, Updated: 2, Skipped: 3}
	r.Add(Result{Inserted: 10, Updated: 20, Skipped: 30})
	if r.Inserted != 11 || r.Updated != 22 || r.Skipped != 33 {
		t.Errorf("unexpected result after Add: %+v", r)
	}
}
