// Package batch writes record sets to the target as chunked,
// insert-or-update statements keyed strictly by each entity's natural
// unique key. Surrogate ids from either database are never used for
// conflict detection, so re-applying the same record set is exactly
// idempotent: no duplicate rows, same final column values, and zero
// reported inserts/updates on an unchanged set.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// Table describes how one entity category is written.
type Table struct {
	Name    string
	Columns []string // insert order
	Key     []string // natural unique key (conflict target)
	Update  []string // non-key columns overwritten on conflict; empty means DO NOTHING
}

// Result accumulates per-stage write counts.
type Result struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Add folds another result into this one.
func (r *Result) Add(o Result) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Skipped += o.Skipped
}

// Writer performs chunked upserts against a single database handle.
type Writer struct {
	DB         *sql.DB
	Log        *logrus.Logger
	ParamLimit int // bind-parameter bound per statement
}

// ChunkRows returns how many rows fit in one statement under the
// parameter limit, with a 10% headroom reduction.
func ChunkRows(paramLimit, columns int) int {
	if columns <= 0 || paramLimit <= 0 {
		return 1
	}
	n := paramLimit / columns
	n -= n / 10
	if n < 1 {
		n = 1
	}
	return n
}

// Upsert writes rows to t in chunk order. Chunks are independent units of
// work: a later chunk may fail after earlier chunks commit, which is safe
// to recover from by re-running. A chunk that trips an integrity
// constraint is retried row by row; offending rows are skipped and
// counted, any other error aborts.
func (w *Writer) Upsert(ctx context.Context, t Table, rows [][]any) (Result, error) {
	var result Result
	if len(rows) == 0 {
		return result, nil
	}

	size := ChunkRows(w.ParamLimit, len(t.Columns))
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		res, err := w.writeChunk(ctx, t, chunk)
		if err == nil {
			result.Add(res)
			continue
		}
		if !isIntegrityViolation(err) {
			return result, fmt.Errorf("failed to write %s chunk: %w", t.Name, err)
		}

		// A dependent row with no parent poisons the whole statement.
		// Retry one row at a time so the rest of the chunk still lands.
		res, err = w.writeRowwise(ctx, t, chunk)
		if err != nil {
			return result, err
		}
		result.Add(res)
	}

	return result, nil
}

func (w *Writer) writeRowwise(ctx context.Context, t Table, chunk [][]any) (Result, error) {
	var result Result
	for _, row := range chunk {
		res, err := w.writeChunk(ctx, t, [][]any{row})
		if err != nil {
			if !isIntegrityViolation(err) {
				return result, fmt.Errorf("failed to write %s row: %w", t.Name, err)
			}
			result.Skipped++
			w.Log.WithField("table", t.Name).Warnf("skipping row violating constraint: %v", err)
			continue
		}
		result.Add(res)
	}
	return result, nil
}

// writeChunk executes one atomic upsert statement for the chunk and
// counts inserted vs updated rows. Conflicting rows whose incoming values
// match the existing row are neither written nor counted.
func (w *Writer) writeChunk(ctx context.Context, t Table, chunk [][]any) (Result, error) {
	var result Result

	args := make([]any, 0, len(chunk)*len(t.Columns))
	for _, row := range chunk {
		if len(row) != len(t.Columns) {
			return result, fmt.Errorf("row has %d values, table %s has %d columns", len(row), t.Name, len(t.Columns))
		}
		args = append(args, row...)
	}

	rows, err := w.DB.QueryContext(ctx, t.Statement(len(chunk)), args...)
	if err != nil {
		return result, err
	}
	defer rows.Close()

	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return result, fmt.Errorf("failed to scan upsert result: %w", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	if err := rows.Err(); err != nil {
		return result, err
	}

	return result, nil
}

// Statement builds the upsert statement for n rows. The template is fixed
// per table; n is the only substitution point.
func (t Table) Statement(n int) string {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(t.Columns, ", "))
	b.WriteString(") VALUES ")

	cols := len(t.Columns)
	for row := 0; row < n; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for col := 0; col < cols; col++ {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", row*cols+col+1)
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(t.Key, ", "))
	b.WriteString(")")

	if len(t.Update) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		b.WriteString(" DO UPDATE SET ")
		for i, col := range t.Update {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(col)
			b.WriteString(" = EXCLUDED.")
			b.WriteString(col)
		}
		// Do not touch rows that already carry the incoming values, so a
		// repeat run reports zero updates.
		b.WriteString(" WHERE (")
		b.WriteString(qualify(t.Name, t.Update))
		b.WriteString(") IS DISTINCT FROM (")
		b.WriteString(qualify("EXCLUDED", t.Update))
		b.WriteString(")")
	}

	// xmax = 0 only on freshly inserted rows.
	b.WriteString(" RETURNING (xmax = 0)")

	return b.String()
}

func qualify(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + "." + c
	}
	return strings.Join(out, ", ")
}

// isIntegrityViolation reports whether err is a PostgreSQL integrity
// constraint violation (SQLSTATE class 23), the per-record error class
// the pipeline recovers from locally.
func isIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
