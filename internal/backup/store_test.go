package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(filepath.Join(t.TempDir(), "backups"))
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}

	script := []byte("INSERT INTO tenants ...;\n")
	if err := store.Put("backup-tenant-t1-2026-03-15.sql", script); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get("backup-tenant-t1-2026-03-15.sql")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(script) {
		t.Errorf("Get() = %q, want %q", got, script)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("backup-tenant-nope.sql"); err == nil {
		t.Error("Get() on a missing file must error")
	}
}

func TestFSStoreList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"backup-tenant-t1-2026-01-01.sql",
		"backup-global-2026-02-01.sql",
	} {
		if err := store.Put(name, []byte("--")); err != nil {
			t.Fatal(err)
		}
	}
	// unrelated files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "catalog.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List() = %v, want 2 backups", names)
	}
	if names[0] != "backup-tenant-t1-2026-01-01.sql" {
		t.Errorf("List() order = %v, want reverse lexical order", names)
	}
}

func TestFSStorePutStripsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("../escape.sql", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.sql")); err != nil {
		t.Errorf("file not written inside the store directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.sql")); err == nil {
		t.Error("file escaped the store directory")
	}
}

func TestBackupTypeFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"backup-tenant-abc-2026-01-01.sql", "tenant"},
		{"backup-global-2026-01-01.sql", "global"},
		{"something-else.sql", "unknown"},
	}
	for _, tt := range tests {
		if got := backupTypeFromName(tt.name); got != tt.want {
			t.Errorf("backupTypeFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTimestampFilenameSafe(t *testing.T) {
	ts := timestamp()
	if strings.ContainsAny(ts, ":.") {
		t.Errorf("timestamp %q is not filename safe", ts)
	}
}
