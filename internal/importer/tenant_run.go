package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rythm-app/dataops/internal/model"
)

// tenantRun carries the state of one tenant import inside its transaction.
type tenantRun struct {
	tx     pgx.Tx
	opts   model.ImportOptions
	result *model.ImportResult
	data   *model.TenantExportData
}

// exec issues a write, or counts it as a no-op under dry run. Probe reads
// never go through here, so dry runs exercise the same row-matching logic
// as real runs with zero mutations.
func (r *tenantRun) exec(ctx context.Context, sql string, args ...any) error {
	if r.opts.DryRun {
		return nil
	}
	_, err := r.tx.Exec(ctx, sql, args...)
	return err
}

func (r *tenantRun) importTenantRow(ctx context.Context) {
	t := r.data.Tenant

	if r.opts.MergeStrategy == model.MergeReplace {
		// Destructive: removes the tenant and everything cascading from it.
		if err := r.exec(ctx, "DELETE FROM tenants WHERE tenant_id = $1", t.TenantID); err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import tenant %s: %v", t.TenantID, err))
			return
		}
	}

	var existing string
	err := r.tx.QueryRow(ctx, "SELECT tenant_id FROM tenants WHERE tenant_id = $1", t.TenantID).Scan(&existing)
	exists := err == nil
	if err != nil && !isNoRows(err) {
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import tenant %s: %v", t.TenantID, err))
		return
	}

	if exists && r.opts.MergeStrategy != model.MergeReplace {
		r.result.RecordsSkipped["tenants"]++
		return
	}

	err = r.exec(ctx, `
		INSERT INTO tenants (tenant_id, name, branding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO UPDATE SET
			name = EXCLUDED.name,
			branding = EXCLUDED.branding,
			updated_at = EXCLUDED.updated_at`,
		t.TenantID, t.Name, t.Branding, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import tenant %s: %v", t.TenantID, err))
		return
	}
	r.result.RecordsImported["tenants"]++
}

func (r *tenantRun) importUsers(ctx context.Context) {
	if len(r.data.Users) == 0 {
		return
	}
	tenantID := r.data.Tenant.TenantID

	for _, u := range r.data.Users {
		if r.opts.MergeStrategy == model.MergeSkipExisting {
			var existing string
			err := r.tx.QueryRow(ctx,
				"SELECT user_id FROM users WHERE email = $1 AND tenant_id = $2",
				u.Email, tenantID).Scan(&existing)
			if err == nil {
				r.result.RecordsSkipped["users"]++
				continue
			}
			if !isNoRows(err) {
				r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import user %s: %v", u.Email, err))
				continue
			}
		}

		err := r.exec(ctx, `
			INSERT INTO users (
				user_id, tenant_id, email, password_hash, role,
				first_name, last_name, avatar_url, about, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tenant_id, email) DO UPDATE SET
				password_hash = EXCLUDED.password_hash,
				role = EXCLUDED.role,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				avatar_url = EXCLUDED.avatar_url,
				about = EXCLUDED.about,
				updated_at = EXCLUDED.updated_at`,
			u.UserID, tenantID, u.Email, u.PasswordHash, u.Role,
			u.FirstName, u.LastName, u.AvatarURL, u.About, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import user %s: %v", u.Email, err))
			continue
		}
		r.result.RecordsImported["users"]++
	}
}

func (r *tenantRun) importPrograms(ctx context.Context) {
	if len(r.data.Programs) == 0 {
		return
	}
	tenantID := r.data.Tenant.TenantID

	for _, p := range r.data.Programs {
		err := r.exec(ctx, `
			INSERT INTO programs (
				program_id, tenant_id, name, description, duration_weeks, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (program_id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				duration_weeks = EXCLUDED.duration_weeks,
				updated_at = EXCLUDED.updated_at`,
			p.ProgramID, tenantID, p.Name, p.Description, p.DurationWeeks, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import program %s: %v", p.Name, err))
			continue
		}
		r.result.RecordsImported["programs"]++

		for _, w := range p.Workouts {
			err := r.exec(ctx, `
				INSERT INTO workouts (
					workout_id, program_id, tenant_id, name, day_index, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (workout_id) DO UPDATE SET
					name = EXCLUDED.name,
					day_index = EXCLUDED.day_index,
					updated_at = EXCLUDED.updated_at`,
				w.WorkoutID, p.ProgramID, tenantID, w.Name, w.DayIndex, w.CreatedAt, w.UpdatedAt)
			if err != nil {
				r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import program %s: %v", p.Name, err))
				break
			}
			r.result.RecordsImported["workouts"]++
		}
	}
}

func (r *tenantRun) importSessions(ctx context.Context) {
	if len(r.data.Sessions) == 0 {
		return
	}
	tenantID := r.data.Tenant.TenantID

	for _, s := range r.data.Sessions {
		err := r.exec(ctx, `
			INSERT INTO sessions (
				session_id, tenant_id, user_id, program_id, started_at, completed_at,
				category, notes, training_load, perceived_exertion, name, duration_seconds,
				created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (session_id) DO UPDATE SET
				completed_at = EXCLUDED.completed_at,
				notes = EXCLUDED.notes,
				training_load = EXCLUDED.training_load,
				perceived_exertion = EXCLUDED.perceived_exertion,
				name = EXCLUDED.name,
				duration_seconds = EXCLUDED.duration_seconds,
				updated_at = EXCLUDED.updated_at`,
			s.SessionID, tenantID, s.UserID, s.ProgramID, s.StartedAt, s.CompletedAt,
			s.Category, s.Notes, s.TrainingLoad, s.PerceivedExertion, s.Name, s.DurationSeconds,
			s.CreatedAt, s.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import session %s: %v", s.SessionID, err))
			continue
		}
		r.result.RecordsImported["sessions"]++

		for _, st := range s.Sets {
			err := r.exec(ctx, `
				INSERT INTO sets (
					set_id, tenant_id, session_id, exercise_id, set_index, reps,
					value_1_type, value_1_numeric, value_2_type, value_2_numeric,
					notes, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (set_id) DO UPDATE SET
					reps = EXCLUDED.reps,
					value_1_type = EXCLUDED.value_1_type,
					value_1_numeric = EXCLUDED.value_1_numeric,
					value_2_type = EXCLUDED.value_2_type,
					value_2_numeric = EXCLUDED.value_2_numeric,
					notes = EXCLUDED.notes,
					updated_at = EXCLUDED.updated_at`,
				st.SetID, tenantID, s.SessionID, st.ExerciseID, st.SetIndex, st.Reps,
				st.Value1Type, st.Value1Numeric, st.Value2Type, st.Value2Numeric,
				st.Notes, st.CreatedAt, st.UpdatedAt)
			if err != nil {
				r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import session %s: %v", s.SessionID, err))
				break
			}
			r.result.RecordsImported["sets"]++
		}
	}
}

func (r *tenantRun) importAssignments(ctx context.Context) {
	if len(r.data.ProgramAssignments) == 0 {
		return
	}
	tenantID := r.data.Tenant.TenantID

	for _, a := range r.data.ProgramAssignments {
		err := r.exec(ctx, `
			INSERT INTO program_assignments (
				assignment_id, tenant_id, program_id, user_id, assigned_at, starts_at, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (tenant_id, program_id, user_id) DO UPDATE SET
				assigned_at = EXCLUDED.assigned_at,
				starts_at = EXCLUDED.starts_at,
				updated_at = EXCLUDED.updated_at`,
			a.AssignmentID, tenantID, a.ProgramID, a.UserID, a.AssignedAt, a.StartsAt, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import assignment %s: %v", a.AssignmentID, err))
			continue
		}
		r.result.RecordsImported["program_assignments"]++
	}
}
