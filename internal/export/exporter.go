// Package export assembles tenant, global and full-system snapshots from the
// live database and hands them to a formatter. Exports are read-only; the
// payload is built fresh per call and never cached.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/format"
	"github.com/rythm-app/dataops/internal/model"
)

// AdminTenantID is the sentinel all-zero tenant excluded from full-system
// exports.
const AdminTenantID = "00000000-0000-0000-0000-000000000000"

// ErrTenantNotFound is returned (inside a failed ExportResult) when the
// requested tenant does not exist. The message is part of the caller-facing
// contract.
var ErrTenantNotFound = errors.New("Tenant not found")

// Exporter reads export payloads from the database.
type Exporter struct {
	db *db.Database
}

// New creates an Exporter over database.
func New(database *db.Database) *Exporter {
	return &Exporter{db: database}
}

// ExportTenant exports one tenant. Errors never escape: a missing tenant or
// a failed read produces a result with Success=false and whatever metadata
// was assembled so far.
func (e *Exporter) ExportTenant(ctx context.Context, tenantID string, opts model.ExportOptions) *model.ExportResult {
	metadata := model.ExportMetadata{
		ExportType:   "tenant",
		TenantID:     tenantID,
		RecordCounts: make(map[string]int),
		ExportedAt:   time.Now().UTC(),
		Format:       opts.Format,
	}

	data, err := e.readTenant(ctx, tenantID, opts, metadata.RecordCounts)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("tenant export failed")
		return &model.ExportResult{Success: false, Error: err.Error(), Metadata: metadata}
	}

	formatted, err := format.Tenant(data, opts.Format)
	if err != nil {
		return &model.ExportResult{Success: false, Error: err.Error(), Metadata: metadata}
	}

	return &model.ExportResult{
		Success:   true,
		Tenant:    data,
		Filename:  fmt.Sprintf("tenant-%s-%s.%s", tenantID, dateStamp(), opts.Format),
		Formatted: formatted,
		Metadata:  metadata,
	}
}

func (e *Exporter) readTenant(ctx context.Context, tenantID string, opts model.ExportOptions, counts map[string]int) (*model.TenantExportData, error) {
	data := &model.TenantExportData{}

	err := e.db.QueryRow(ctx,
		"SELECT tenant_id, name, branding, created_at, updated_at FROM tenants WHERE tenant_id = $1",
		tenantID,
	).Scan(&data.Tenant.TenantID, &data.Tenant.Name, &data.Tenant.Branding, &data.Tenant.CreatedAt, &data.Tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading tenant: %w", err)
	}
	counts["tenants"] = 1

	if opts.IncludeUsers {
		users, err := e.readUsers(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		data.Users = users
		counts["users"] = len(users)
	}

	programs, err := e.readPrograms(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	data.Programs = programs
	counts["programs"] = len(programs)

	if opts.IncludeWorkoutData {
		sessions, err := e.readSessions(ctx, tenantID, opts.DateRange)
		if err != nil {
			return nil, err
		}
		data.Sessions = sessions
		counts["sessions"] = len(sessions)

		assignments, err := e.readAssignments(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		data.ProgramAssignments = assignments
		counts["program_assignments"] = len(assignments)
	}

	return data, nil
}

func (e *Exporter) readUsers(ctx context.Context, tenantID string) ([]model.User, error) {
	rows, err := e.db.Query(ctx, `
		SELECT user_id, email, password_hash, role, first_name, last_name, avatar_url, about, created_at, updated_at
		FROM users
		WHERE tenant_id = $1
		ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.AvatarURL, &u.About, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (e *Exporter) readPrograms(ctx context.Context, tenantID string) ([]model.Program, error) {
	rows, err := e.db.Query(ctx, `
		SELECT p.program_id, p.name, p.description, p.duration_weeks, p.created_at, p.updated_at,
		       COALESCE(
		           json_agg(
		               json_build_object(
		                   'workout_id', w.workout_id,
		                   'name', w.name,
		                   'day_index', w.day_index,
		                   'created_at', w.created_at,
		                   'updated_at', w.updated_at
		               ) ORDER BY w.day_index
		           ) FILTER (WHERE w.workout_id IS NOT NULL),
		           '[]'
		       ) AS workouts
		FROM programs p
		LEFT JOIN workouts w ON w.program_id = p.program_id
		WHERE p.tenant_id = $1
		GROUP BY p.program_id
		ORDER BY p.created_at`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("reading programs: %w", err)
	}
	defer rows.Close()

	var programs []model.Program
	for rows.Next() {
		var p model.Program
		if err := rows.Scan(&p.ProgramID, &p.Name, &p.Description, &p.DurationWeeks, &p.CreatedAt, &p.UpdatedAt, &p.Workouts); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (e *Exporter) readSessions(ctx context.Context, tenantID string, dateRange *model.DateRange) ([]model.Session, error) {
	query := `
		SELECT s.session_id, s.user_id, s.program_id, s.started_at, s.completed_at, s.category,
		       s.notes, s.training_load, s.perceived_exertion, s.name, s.duration_seconds,
		       s.created_at, s.updated_at,
		       COALESCE(
		           json_agg(
		               json_build_object(
		                   'set_id', st.set_id,
		                   'exercise_id', st.exercise_id,
		                   'set_index', st.set_index,
		                   'reps', st.reps,
		                   'value_1_type', st.value_1_type,
		                   'value_1_numeric', st.value_1_numeric,
		                   'value_2_type', st.value_2_type,
		                   'value_2_numeric', st.value_2_numeric,
		                   'notes', st.notes,
		                   'created_at', st.created_at,
		                   'updated_at', st.updated_at
		               ) ORDER BY st.set_index
		           ) FILTER (WHERE st.set_id IS NOT NULL),
		           '[]'
		       ) AS sets
		FROM sessions s
		LEFT JOIN sets st ON st.session_id = s.session_id
		WHERE s.tenant_id = $1`

	args := []any{tenantID}
	// Bounds are inclusive on both ends.
	if dateRange != nil {
		query += " AND s.started_at >= $2 AND s.started_at <= $3"
		args = append(args, dateRange.Start, dateRange.End)
	}
	query += " GROUP BY s.session_id ORDER BY s.started_at DESC"

	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.SessionID, &s.UserID, &s.ProgramID, &s.StartedAt, &s.CompletedAt, &s.Category,
			&s.Notes, &s.TrainingLoad, &s.PerceivedExertion, &s.Name, &s.DurationSeconds,
			&s.CreatedAt, &s.UpdatedAt, &s.Sets); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (e *Exporter) readAssignments(ctx context.Context, tenantID string) ([]model.ProgramAssignment, error) {
	rows, err := e.db.Query(ctx, `
		SELECT assignment_id, program_id, user_id, assigned_at, starts_at, created_at, updated_at
		FROM program_assignments
		WHERE tenant_id = $1
		ORDER BY assigned_at`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("reading program assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.ProgramAssignment
	for rows.Next() {
		var a model.ProgramAssignment
		if err := rows.Scan(&a.AssignmentID, &a.ProgramID, &a.UserID, &a.AssignedAt, &a.StartsAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning program assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ExportGlobal exports the tenant-independent catalog.
func (e *Exporter) ExportGlobal(ctx context.Context, opts model.ExportOptions) *model.ExportResult {
	metadata := model.ExportMetadata{
		ExportType:   "global",
		RecordCounts: make(map[string]int),
		ExportedAt:   time.Now().UTC(),
		Format:       opts.Format,
	}

	data, err := e.readGlobal(ctx)
	if err != nil {
		log.Error().Err(err).Msg("global export failed")
		return &model.ExportResult{Success: false, Error: err.Error(), Metadata: metadata}
	}

	metadata.RecordCounts = model.CountGlobalRecords(data)

	formatted, err := format.Global(data, opts.Format)
	if err != nil {
		return &model.ExportResult{Success: false, Error: err.Error(), Metadata: metadata}
	}

	return &model.ExportResult{
		Success:   true,
		Global:    data,
		Filename:  fmt.Sprintf("global-data-%s.%s", dateStamp(), opts.Format),
		Formatted: formatted,
		Metadata:  metadata,
	}
}

func (e *Exporter) readGlobal(ctx context.Context) (*model.GlobalExportData, error) {
	data := &model.GlobalExportData{
		Equipment:         []model.Equipment{},
		Exercises:         []model.Exercise{},
		ExerciseTemplates: []model.ExerciseTemplate{},
	}

	rows, err := e.db.Query(ctx, `
		SELECT equipment_id, name, category, description, is_active, created_at, updated_at
		FROM equipment ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("reading equipment: %w", err)
	}
	for rows.Next() {
		var eq model.Equipment
		if err := rows.Scan(&eq.EquipmentID, &eq.Name, &eq.Category, &eq.Description, &eq.IsActive, &eq.CreatedAt, &eq.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		data.Equipment = append(data.Equipment, eq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.db.Query(ctx, `
		SELECT exercise_id, name, muscle_groups, equipment_id, exercise_category,
		       default_value_1_type, default_value_2_type, description, instructions,
		       exercise_type, created_at, updated_at
		FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("reading exercises: %w", err)
	}
	for rows.Next() {
		var ex model.Exercise
		if err := rows.Scan(&ex.ExerciseID, &ex.Name, &ex.MuscleGroups, &ex.EquipmentID, &ex.ExerciseCategory,
			&ex.DefaultValue1Type, &ex.DefaultValue2Type, &ex.Description, &ex.Instructions,
			&ex.ExerciseType, &ex.CreatedAt, &ex.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		data.Exercises = append(data.Exercises, ex)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = e.db.Query(ctx, `
		SELECT template_id, name, muscle_groups, equipment_id, exercise_category, exercise_type,
		       default_value_1_type, default_value_2_type, description, instructions, created_at, updated_at
		FROM exercise_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("reading exercise templates: %w", err)
	}
	for rows.Next() {
		var t model.ExerciseTemplate
		if err := rows.Scan(&t.TemplateID, &t.Name, &t.MuscleGroups, &t.EquipmentID, &t.ExerciseCategory, &t.ExerciseType,
			&t.DefaultValue1Type, &t.DefaultValue2Type, &t.Description, &t.Instructions, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning exercise template: %w", err)
		}
		data.ExerciseTemplates = append(data.ExerciseTemplates, t)
	}
	rows.Close()
	return data, rows.Err()
}

// ExportAll exports the global catalog plus every tenant except the admin
// sentinel. A tenant whose individual export fails is recorded as a warning
// and skipped, unless StrictTenants is set, in which case the whole export
// fails.
func (e *Exporter) ExportAll(ctx context.Context, opts model.ExportOptions) *model.ExportResult {
	metadata := model.ExportMetadata{
		ExportType:   "full",
		RecordCounts: make(map[string]int),
		ExportedAt:   time.Now().UTC(),
		Format:       opts.Format,
	}

	rows, err := e.db.Query(ctx, "SELECT tenant_id FROM tenants WHERE tenant_id != $1 ORDER BY created_at", AdminTenantID)
	if err != nil {
		return &model.ExportResult{Success: false, Error: fmt.Sprintf("listing tenants: %v", err), Metadata: metadata}
	}
	var tenantIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return &model.ExportResult{Success: false, Error: fmt.Sprintf("scanning tenant id: %v", err), Metadata: metadata}
		}
		tenantIDs = append(tenantIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return &model.ExportResult{Success: false, Error: err.Error(), Metadata: metadata}
	}

	globalResult := e.ExportGlobal(ctx, opts)
	if !globalResult.Success {
		return &model.ExportResult{Success: false, Error: globalResult.Error, Metadata: metadata}
	}

	full := &model.FullExportData{
		Global:  globalResult.Global,
		Tenants: make(map[string]*model.TenantExportData, len(tenantIDs)),
		Metadata: model.FullExportMetadata{
			ExportedAt:   metadata.ExportedAt,
			TotalTenants: len(tenantIDs),
			Format:       string(opts.Format),
		},
	}

	var warnings []string
	for i, id := range tenantIDs {
		tenantResult := e.ExportTenant(ctx, id, opts)
		if !tenantResult.Success {
			if opts.StrictTenants {
				return &model.ExportResult{
					Success:  false,
					Error:    fmt.Sprintf("exporting tenant %s: %s", id, tenantResult.Error),
					Warnings: warnings,
					Metadata: metadata,
				}
			}
			warnings = append(warnings, fmt.Sprintf("tenant %s skipped: %s", id, tenantResult.Error))
			continue
		}
		full.Tenants[id] = tenantResult.Tenant
		if opts.OnTenantExported != nil {
			opts.OnTenantExported(i+1, len(tenantIDs))
		}
	}

	metadata.RecordCounts["tenants"] = len(full.Tenants)

	// Nested global+tenants structure only survives JSON; SQL and CSV are
	// per-scope formats.
	formatted, err := format.Full(full)
	if err != nil {
		return &model.ExportResult{Success: false, Error: err.Error(), Warnings: warnings, Metadata: metadata}
	}
	if opts.Format != model.FormatJSON && opts.Format != "" {
		warnings = append(warnings, fmt.Sprintf("full-system exports are written as json; requested format %q applies to per-scope exports only", opts.Format))
	}

	return &model.ExportResult{
		Success:   true,
		Full:      full,
		Filename:  fmt.Sprintf("full-system-%s.json", dateStamp()),
		Formatted: formatted,
		Warnings:  warnings,
		Metadata:  metadata,
	}
}

func dateStamp() string {
	return time.Now().UTC().Format("2006-01-02")
}
