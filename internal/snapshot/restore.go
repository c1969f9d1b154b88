package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Format is the on-disk layout of a dataset dump.
type Format int

const (
	// FormatPlainSQL is a plain-text SQL script (psql input).
	FormatPlainSQL Format = iota
	// FormatCustomArchive is PostgreSQL's custom archive format
	// (pg_restore input).
	FormatCustomArchive
)

// customArchiveMagic opens every custom-format pg_dump archive.
var customArchiveMagic = []byte("PGDMP")

// DetectFormat sniffs the dump file's leading bytes.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatPlainSQL, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(customArchiveMagic))
	n, err := f.Read(head)
	if err != nil {
		return FormatPlainSQL, fmt.Errorf("failed to read dump file: %w", err)
	}
	if bytes.Equal(head[:n], customArchiveMagic) {
		return FormatCustomArchive, nil
	}
	return FormatPlainSQL, nil
}

// restoreArgs builds the external restore invocation for the dump.
// Ownership, privilege and role statements are dropped: they are
// expected artifacts of dumps taken in another environment.
func restoreArgs(format Format, dsn, path string) (string, []string) {
	switch format {
	case FormatCustomArchive:
		return "pg_restore", []string{
			"--no-owner", "--no-privileges",
			"--dbname", dsn,
			path,
		}
	default:
		return "psql", []string{
			"--quiet",
			"--dbname", dsn,
			"-v", "ON_ERROR_STOP=0",
			"-f", path,
		}
	}
}

// restore loads the dump into the scratch database. A nonzero exit from
// the restore tool is tolerated: pg_restore routinely exits 1 over
// ownership, role and extension warnings from cross-environment dumps.
// Correctness is gated on the post-restore verification instead.
func restore(ctx context.Context, log *logrus.Logger, format Format, dsn, path string) error {
	tool, args := restoreArgs(format, dsn, path)

	cmd := exec.CommandContext(ctx, tool, args...)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		log.WithField("tool", tool).Debugf("restore output:\n%s", out)
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			// The tool itself is missing: nothing was restored.
			return fmt.Errorf("failed to run %s: %w", tool, err)
		}
		log.WithField("tool", tool).Warnf("restore exited with error (tolerated, verifying content): %v", err)
	}
	return nil
}
