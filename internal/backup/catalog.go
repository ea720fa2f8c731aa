package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rythm-app/dataops/internal/model"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS backups (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	filename    TEXT NOT NULL UNIQUE,
	backup_type TEXT NOT NULL,
	tenant_id   TEXT,
	size_bytes  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backups_created ON backups(created_at);
`

// Catalog records backup metadata in a local SQLite database so listings
// survive without scanning the store.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (creating if needed) the catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening backup catalog: %w", err)
	}
	if _, err := sdb.Exec(catalogSchema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("initializing backup catalog: %w", err)
	}
	return &Catalog{db: sdb}, nil
}

func (c *Catalog) Record(info model.BackupInfo) error {
	_, err := c.db.Exec(
		`INSERT INTO backups (filename, backup_type, tenant_id, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		info.Filename, info.Type, info.TenantID, info.Size,
		info.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording backup %s: %w", info.Filename, err)
	}
	return nil
}

// List returns catalogued backups, newest first.
func (c *Catalog) List() ([]model.BackupInfo, error) {
	rows, err := c.db.Query(
		`SELECT filename, backup_type, COALESCE(tenant_id, ''), size_bytes, created_at
		 FROM backups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	defer rows.Close()

	var backups []model.BackupInfo
	for rows.Next() {
		var info model.BackupInfo
		var createdAt string
		if err := rows.Scan(&info.Filename, &info.Type, &info.TenantID, &info.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning backup row: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		backups = append(backups, info)
	}
	return backups, rows.Err()
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
