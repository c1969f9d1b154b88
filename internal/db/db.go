// Package db owns the connection context for a sync run: the upstream
// (source) handle, the local (target) handle, and the optional scratch
// handle used by snapshot merges. There is no package-level connection
// state; every component receives the handles it needs explicitly.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openTimeout bounds the initial connectivity check in Open.
const openTimeout = 10 * time.Second

// DB wraps a PostgreSQL connection pool.
type DB struct {
	*sql.DB
	dsn string
}

// Open opens a PostgreSQL database and verifies connectivity. A failed
// ping is a connectivity failure and is fatal to the caller.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("failed to open database: empty DSN")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &DB{DB: pool, dsn: dsn}, nil
}

// DSN returns the connection string the handle was opened with.
func (d *DB) DSN() string {
	return d.dsn
}

// Conns is the connection context passed through a run.
type Conns struct {
	Source  *DB
	Target  *DB
	Scratch *DB
}

// SyncSource returns the handle the pipeline should read from: the
// scratch database when a snapshot is mounted, the live source otherwise.
func (c *Conns) SyncSource() *DB {
	if c.Scratch != nil {
		return c.Scratch
	}
	return c.Source
}

// Close closes every open handle. Safe to call with nil members.
func (c *Conns) Close() {
	for _, d := range []*DB{c.Source, c.Target, c.Scratch} {
		if d != nil {
			d.Close()
		}
	}
}

// CreateDatabase creates a database on the server behind admin. CREATE
// DATABASE cannot run inside a transaction, so this goes straight to Exec.
func CreateDatabase(ctx context.Context, admin *DB, name string) error {
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase drops a database, forcing out any remaining sessions.
func DropDatabase(ctx context.Context, admin *DB, name string) error {
	if _, err := admin.ExecContext(ctx, "DROP DATABASE IF EXISTS "+QuoteIdentifier(name)+" WITH (FORCE)"); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	}
	return nil
}

// QuoteIdentifier quotes a SQL identifier for direct interpolation.
// Identifiers cannot be bound as statement parameters.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// WithDatabase rewrites the database name in a DSN. Both URI DSNs
// (postgres://host/db?opts) and keyword DSNs (host=... dbname=...) are
// supported; a keyword DSN without a dbname gets one appended.
func WithDatabase(dsn, name string) string {
	if strings.Contains(dsn, "://") {
		rest := dsn
		query := ""
		if i := strings.Index(rest, "?"); i >= 0 {
			query = rest[i:]
			rest = rest[:i]
		}
		// Strip the path component (the database name) if present after
		// the host part.
		scheme := rest[:strings.Index(rest, "://")+3]
		hostpart := rest[len(scheme):]
		if i := strings.Index(hostpart, "/"); i >= 0 {
			hostpart = hostpart[:i]
		}
		return scheme + hostpart + "/" + name + query
	}

	fields := strings.Fields(dsn)
	replaced := false
	for i, f := range fields {
		if strings.HasPrefix(f, "dbname=") {
			fields[i] = "dbname=" + name
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, "dbname="+name)
	}
	return strings.Join(fields, " ")
}
