// Package importer replays previously exported payloads into the database.
// Every import runs inside exactly one transaction per call: either the
// whole payload lands or nothing does. Per-row failures are collected into
// the result and force a rollback at the end, so Success=true always means
// every row was applied.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/model"
	"github.com/rythm-app/dataops/internal/validate"
)

// BackupCreator is the slice of the backup manager the importer needs for
// pre-import snapshots.
type BackupCreator interface {
	CreateTenantBackup(ctx context.Context, tenantID string) (string, error)
	CreateGlobalBackup(ctx context.Context) (string, error)
}

// errRowFailures signals that per-row errors were already recorded in the
// result and the transaction must roll back.
var errRowFailures = errors.New("one or more rows failed to import")

// Importer applies tenant and global payloads with merge-strategy conflict
// resolution.
type Importer struct {
	db      *db.Database
	backups BackupCreator
}

// New creates an Importer. backups may be nil, in which case CreateBackup
// requests are rejected.
func New(database *db.Database, backups BackupCreator) *Importer {
	return &Importer{db: database, backups: backups}
}

// ImportTenant imports a tenant payload. Errors never escape; inspect
// result.Success and result.Errors.
func (im *Importer) ImportTenant(ctx context.Context, data *model.TenantExportData, opts model.ImportOptions) *model.ImportResult {
	result := model.NewImportResult()
	result.DryRun = opts.DryRun

	if data == nil || data.Tenant.TenantID == "" {
		result.Errors = append(result.Errors, "missing or invalid tenant information")
		return result
	}

	if opts.CreateBackup {
		if !im.createBackup(ctx, result, opts, func() (string, error) {
			return im.backups.CreateTenantBackup(ctx, data.Tenant.TenantID)
		}) {
			return result
		}
	}

	err := im.db.Transaction(ctx, func(tx pgx.Tx) error {
		// Serializes concurrent imports of the same tenant; released at
		// commit or rollback.
		if err := db.LockTenant(ctx, tx, data.Tenant.TenantID); err != nil {
			return err
		}

		if opts.ValidateReferences {
			vr, err := validate.New(tx).ValidateTenantData(ctx, data)
			if err != nil {
				return err
			}
			result.Warnings = append(result.Warnings, vr.Warnings...)
			if !vr.IsValid {
				result.Errors = append(result.Errors, vr.Errors...)
				return errRowFailures
			}
		}

		run := &tenantRun{tx: tx, opts: opts, result: result, data: data}
		run.importTenantRow(ctx)
		run.importUsers(ctx)
		run.importPrograms(ctx)
		if opts.IncludeWorkoutData {
			run.importSessions(ctx)
		}
		run.importAssignments(ctx)

		if len(result.Errors) > 0 {
			return errRowFailures
		}
		return nil
	})

	im.finish(result, err)
	log.Info().
		Str("tenant_id", data.Tenant.TenantID).
		Bool("success", result.Success).
		Bool("dry_run", opts.DryRun).
		Str("merge_strategy", string(opts.MergeStrategy)).
		Msg("tenant import finished")
	return result
}

// ImportGlobalData imports the global catalog payload.
func (im *Importer) ImportGlobalData(ctx context.Context, data *model.GlobalExportData, opts model.ImportOptions) *model.ImportResult {
	result := model.NewImportResult()
	result.DryRun = opts.DryRun

	if data == nil {
		result.Errors = append(result.Errors, "missing global data payload")
		return result
	}

	if opts.CreateBackup {
		if !im.createBackup(ctx, result, opts, func() (string, error) {
			return im.backups.CreateGlobalBackup(ctx)
		}) {
			return result
		}
	}

	err := im.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := db.LockGlobalCatalog(ctx, tx); err != nil {
			return err
		}

		if opts.ValidateReferences {
			vr, err := validate.New(tx).ValidateGlobalData(ctx, data)
			if err != nil {
				return err
			}
			result.Warnings = append(result.Warnings, vr.Warnings...)
			if !vr.IsValid {
				result.Errors = append(result.Errors, vr.Errors...)
				return errRowFailures
			}
		}

		run := &globalRun{tx: tx, opts: opts, result: result}
		run.importEquipment(ctx, data.Equipment)
		run.importExercises(ctx, data.Exercises)
		run.importTemplates(ctx, data.ExerciseTemplates)

		if len(result.Errors) > 0 {
			return errRowFailures
		}
		return nil
	})

	im.finish(result, err)
	log.Info().
		Bool("success", result.Success).
		Bool("dry_run", opts.DryRun).
		Msg("global import finished")
	return result
}

// createBackup runs the pre-import snapshot. Returns false when the import
// must not proceed.
func (im *Importer) createBackup(ctx context.Context, result *model.ImportResult, opts model.ImportOptions, create func() (string, error)) bool {
	if opts.DryRun {
		result.Warnings = append(result.Warnings, "dry run: backup skipped")
		return true
	}
	if im.backups == nil {
		result.Errors = append(result.Errors, "backup requested but no backup manager configured")
		return false
	}
	name, err := create()
	if err != nil {
		// A failed backup aborts the import before any writes.
		result.Errors = append(result.Errors, fmt.Sprintf("creating backup: %v", err))
		return false
	}
	result.BackupCreated = name
	return true
}

func (im *Importer) finish(result *model.ImportResult, err error) {
	if err != nil && !errors.Is(err, errRowFailures) {
		result.Errors = append(result.Errors, err.Error())
	}
	result.Success = len(result.Errors) == 0
	result.RollbackAvailable = result.BackupCreated != ""
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
