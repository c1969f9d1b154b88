package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormatCustomArchive(t *testing.T) {
	path := writeDump(t, "PGDMP\x01\x0e\x00...")

	format, err := DetectFormat(path)
	if err != nil {
		t.Fatalf("DetectFormat failed: %v", err)
	}
	if format != FormatCustomArchive {
		t.Errorf("expected custom archive, got %v", format)
	}
}

func TestDetectFormatPlainSQL(t *testing.T) {
	path := writeDump(t, "--\n-- PostgreSQL database dump\n--\nSET statement_timeout = 0;\n")

	format, err := DetectFormat(path)
	if err != nil {
		t.Fatalf("DetectFormat failed: %v", err)
	}
	if format != FormatPlainSQL {
		t.Errorf("expected plain SQL, got %v", format)
	}
}

func TestDetectFormatMissingFile(t *testing.T) {
	if _, err := DetectFormat(filepath.Join(t.TempDir(), "nope.dump")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRestoreArgs(t *testing.T) {
	tool, args := restoreArgs(FormatCustomArchive, "postgres://tgt/scratch", "/tmp/x.dump")
	if tool != "pg_restore" {
		t.Errorf("expected pg_restore, got %s", tool)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--no-owner") || !strings.Contains(joined, "--no-privileges") {
		t.Errorf("expected ownership/privilege suppression, got %v", args)
	}
	if args[len(args)-1] != "/tmp/x.dump" {
		t.Errorf("expected dump path last, got %v", args)
	}

	tool, args = restoreArgs(FormatPlainSQL, "postgres://tgt/scratch", "/tmp/x.sql")
	if tool != "psql" {
		t.Errorf("expected psql, got %s", tool)
	}
	joined = strings.Join(args, " ")
	if !strings.Contains(joined, "-f /tmp/x.sql") {
		t.Errorf("expected -f with script path, got %v", args)
	}
	if !strings.Contains(joined, "ON_ERROR_STOP=0") {
		t.Errorf("expected statement errors to be tolerated, got %v", args)
	}
}

func TestScratchName(t *testing.T) {
	a := scratchName()
	b := scratchName()

	if !strings.HasPrefix(a, scratchPrefix) {
		t.Errorf("expected %s prefix, got %s", scratchPrefix, a)
	}
	if len(a) != len(scratchPrefix)+8 {
		t.Errorf("expected 8-char suffix, got %s", a)
	}
	if a == b {
		t.Errorf("expected distinct names, got %s twice", a)
	}
}

func writeDump(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.dump")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write dump fixture: %v", err)
	}
	return path
}
