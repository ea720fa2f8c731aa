package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/export"
	"github.com/rythm-app/dataops/internal/model"
)

// Manager creates, lists and restores SQL backups. Backups are upsert-style
// SQL exports, so replaying one restores the data it captured without
// touching records created since.
type Manager struct {
	exporter *export.Exporter
	db       *db.Database
	store    Store
	catalog  *Catalog
}

// NewManager wires a Manager over database. catalog may be nil; backups are
// then listed by scanning the store.
func NewManager(database *db.Database, store Store, catalog *Catalog) *Manager {
	return &Manager{
		exporter: export.New(database),
		db:       database,
		store:    store,
		catalog:  catalog,
	}
}

// CreateTenantBackup exports one tenant as SQL and stores the script,
// returning the stored filename.
func (m *Manager) CreateTenantBackup(ctx context.Context, tenantID string) (string, error) {
	res := m.exporter.ExportTenant(ctx, tenantID, model.ExportOptions{
		Format:             model.FormatSQL,
		IncludeUsers:       true,
		IncludeWorkoutData: true,
	})
	if !res.Success {
		return "", fmt.Errorf("backup export failed: %s", res.Error)
	}
	filename := fmt.Sprintf("backup-tenant-%s-%s.sql", tenantID, timestamp())
	if err := m.save(filename, "tenant", tenantID, res.Formatted.Text); err != nil {
		return "", err
	}
	return filename, nil
}

// CreateGlobalBackup exports the exercise catalog as SQL and stores the
// script, returning the stored filename.
func (m *Manager) CreateGlobalBackup(ctx context.Context) (string, error) {
	res := m.exporter.ExportGlobal(ctx, model.ExportOptions{Format: model.FormatSQL})
	if !res.Success {
		return "", fmt.Errorf("backup export failed: %s", res.Error)
	}
	filename := fmt.Sprintf("backup-global-%s.sql", timestamp())
	if err := m.save(filename, "global", "", res.Formatted.Text); err != nil {
		return "", err
	}
	return filename, nil
}

func (m *Manager) save(filename, backupType, tenantID, script string) error {
	if err := m.store.Put(filename, []byte(script)); err != nil {
		return err
	}
	info := model.BackupInfo{
		Filename:  filename,
		Type:      backupType,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
		Size:      int64(len(script)),
	}
	if m.catalog != nil {
		if err := m.catalog.Record(info); err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("backup stored but not catalogued")
		}
	}
	log.Info().Str("filename", filename).Str("type", backupType).Int64("size_bytes", info.Size).Msg("backup created")
	return nil
}

// ListBackups merges the catalog with a store scan, so files copied into the
// backup directory by hand still show up.
func (m *Manager) ListBackups() ([]model.BackupInfo, error) {
	var backups []model.BackupInfo
	known := make(map[string]bool)
	if m.catalog != nil {
		catalogued, err := m.catalog.List()
		if err != nil {
			return nil, err
		}
		for _, info := range catalogued {
			known[info.Filename] = true
		}
		backups = catalogued
	}

	names, err := m.store.List()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if known[name] {
			continue
		}
		backups = append(backups, model.BackupInfo{
			Filename: name,
			Type:     backupTypeFromName(name),
		})
	}
	return backups, nil
}

// RestoreFromBackup replays a stored SQL script inside one transaction.
// Errors are reported in the result rather than returned.
func (m *Manager) RestoreFromBackup(ctx context.Context, filename string) *model.RestoreResult {
	script, err := m.store.Get(filename)
	if err != nil {
		return &model.RestoreResult{Success: false, Message: err.Error()}
	}

	err = m.db.Transaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, string(script))
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("restore failed")
		return &model.RestoreResult{Success: false, Message: fmt.Sprintf("restore failed: %v", err)}
	}

	log.Info().Str("filename", filename).Msg("backup restored")
	return &model.RestoreResult{Success: true, Message: fmt.Sprintf("restored from %s", filename)}
}

func backupTypeFromName(name string) string {
	switch {
	case strings.HasPrefix(name, "backup-tenant-"):
		return "tenant"
	case strings.HasPrefix(name, "backup-global-"):
		return "global"
	default:
		return "unknown"
	}
}

func timestamp() string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.ReplaceAll(ts, ":", "-")
	return strings.ReplaceAll(ts, ".", "-")
}
