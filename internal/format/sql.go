package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rythm-app/dataops/internal/model"
)

// TenantSQL renders a tenant payload as an idempotent upsert script. The
// script is wrapped in SET session_replication_role = replica/DEFAULT so
// cross-tenant exercise references (which are not part of the payload) do
// not trip foreign-key checks during restore.
func TenantSQL(d *model.TenantExportData) string {
	var b strings.Builder

	b.WriteString("-- rythm tenant data export\n")
	fmt.Fprintf(&b, "-- Tenant: %s (%s)\n", d.Tenant.Name, d.Tenant.TenantID)
	fmt.Fprintf(&b, "-- Exported: %s\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("-- WARNING: contains sensitive data including password hashes\n\n")

	b.WriteString("SET session_replication_role = replica;\n\n")

	b.WriteString("-- tenant\n")
	b.WriteString("INSERT INTO tenants (tenant_id, name, branding, created_at, updated_at) VALUES\n")
	fmt.Fprintf(&b, "  (%s, %s, %s, %s, %s)\n",
		sqlString(d.Tenant.TenantID),
		sqlString(d.Tenant.Name),
		sqlJSONB(d.Tenant.Branding),
		sqlTime(d.Tenant.CreatedAt),
		sqlTime(d.Tenant.UpdatedAt))
	b.WriteString("ON CONFLICT (tenant_id) DO UPDATE SET name = EXCLUDED.name, branding = EXCLUDED.branding, updated_at = EXCLUDED.updated_at;\n\n")

	if len(d.Users) > 0 {
		b.WriteString("-- users\n")
		b.WriteString("INSERT INTO users (user_id, tenant_id, email, password_hash, role, first_name, last_name, avatar_url, about, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.Users))
		for _, u := range d.Users {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
				sqlString(u.UserID),
				sqlString(d.Tenant.TenantID),
				sqlString(u.Email),
				sqlString(u.PasswordHash),
				sqlString(u.Role),
				sqlStringPtr(u.FirstName),
				sqlStringPtr(u.LastName),
				sqlStringPtr(u.AvatarURL),
				sqlStringPtr(u.About),
				sqlTime(u.CreatedAt),
				sqlTime(u.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (tenant_id, email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, avatar_url = EXCLUDED.avatar_url, about = EXCLUDED.about, updated_at = EXCLUDED.updated_at;\n\n")
	}

	if len(d.Programs) > 0 {
		b.WriteString("-- programs\n")
		b.WriteString("INSERT INTO programs (program_id, tenant_id, name, description, duration_weeks, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.Programs))
		for _, p := range d.Programs {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %d, %s, %s)",
				sqlString(p.ProgramID),
				sqlString(d.Tenant.TenantID),
				sqlString(p.Name),
				sqlStringPtr(p.Description),
				p.DurationWeeks,
				sqlTime(p.CreatedAt),
				sqlTime(p.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (program_id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, duration_weeks = EXCLUDED.duration_weeks, updated_at = EXCLUDED.updated_at;\n\n")

		var wrows []string
		for _, p := range d.Programs {
			for _, w := range p.Workouts {
				wrows = append(wrows, fmt.Sprintf("  (%s, %s, %s, %s, %d, %s, %s)",
					sqlString(w.WorkoutID),
					sqlString(p.ProgramID),
					sqlString(d.Tenant.TenantID),
					sqlString(w.Name),
					w.DayIndex,
					sqlTime(w.CreatedAt),
					sqlTime(w.UpdatedAt)))
			}
		}
		if len(wrows) > 0 {
			b.WriteString("-- workouts\n")
			b.WriteString("INSERT INTO workouts (workout_id, program_id, tenant_id, name, day_index, created_at, updated_at) VALUES\n")
			b.WriteString(strings.Join(wrows, ",\n"))
			b.WriteString("\nON CONFLICT (workout_id) DO UPDATE SET name = EXCLUDED.name, day_index = EXCLUDED.day_index, updated_at = EXCLUDED.updated_at;\n\n")
		}
	}

	if len(d.Sessions) > 0 {
		b.WriteString("-- sessions\n")
		b.WriteString("INSERT INTO sessions (session_id, tenant_id, user_id, program_id, started_at, completed_at, category, notes, training_load, perceived_exertion, name, duration_seconds, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.Sessions))
		for _, s := range d.Sessions {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
				sqlString(s.SessionID),
				sqlString(d.Tenant.TenantID),
				sqlString(s.UserID),
				sqlStringPtr(s.ProgramID),
				sqlTime(s.StartedAt),
				sqlTimePtr(s.CompletedAt),
				sqlString(s.Category),
				sqlStringPtr(s.Notes),
				sqlIntPtr(s.TrainingLoad),
				sqlIntPtr(s.PerceivedExertion),
				sqlStringPtr(s.Name),
				sqlIntPtr(s.DurationSeconds),
				sqlTime(s.CreatedAt),
				sqlTime(s.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (session_id) DO UPDATE SET completed_at = EXCLUDED.completed_at, notes = EXCLUDED.notes, training_load = EXCLUDED.training_load, perceived_exertion = EXCLUDED.perceived_exertion, name = EXCLUDED.name, duration_seconds = EXCLUDED.duration_seconds, updated_at = EXCLUDED.updated_at;\n\n")

		var srows []string
		for _, s := range d.Sessions {
			for _, st := range s.Sets {
				srows = append(srows, fmt.Sprintf("  (%s, %s, %s, %s, %d, %s, %s, %s, %s, %s, %s, %s, %s)",
					sqlString(st.SetID),
					sqlString(d.Tenant.TenantID),
					sqlString(s.SessionID),
					sqlString(st.ExerciseID),
					st.SetIndex,
					sqlIntPtr(st.Reps),
					sqlStringPtr(st.Value1Type),
					sqlFloatPtr(st.Value1Numeric),
					sqlStringPtr(st.Value2Type),
					sqlFloatPtr(st.Value2Numeric),
					sqlStringPtr(st.Notes),
					sqlTime(st.CreatedAt),
					sqlTime(st.UpdatedAt)))
			}
		}
		if len(srows) > 0 {
			b.WriteString("-- sets\n")
			b.WriteString("INSERT INTO sets (set_id, tenant_id, session_id, exercise_id, set_index, reps, value_1_type, value_1_numeric, value_2_type, value_2_numeric, notes, created_at, updated_at) VALUES\n")
			b.WriteString(strings.Join(srows, ",\n"))
			b.WriteString("\nON CONFLICT (set_id) DO UPDATE SET reps = EXCLUDED.reps, value_1_type = EXCLUDED.value_1_type, value_1_numeric = EXCLUDED.value_1_numeric, value_2_type = EXCLUDED.value_2_type, value_2_numeric = EXCLUDED.value_2_numeric, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at;\n\n")
		}
	}

	if len(d.ProgramAssignments) > 0 {
		b.WriteString("-- program assignments\n")
		b.WriteString("INSERT INTO program_assignments (assignment_id, tenant_id, program_id, user_id, assigned_at, starts_at, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.ProgramAssignments))
		for _, a := range d.ProgramAssignments {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %s, %s, %s, %s)",
				sqlString(a.AssignmentID),
				sqlString(d.Tenant.TenantID),
				sqlString(a.ProgramID),
				sqlString(a.UserID),
				sqlTime(a.AssignedAt),
				sqlTime(a.StartsAt),
				sqlTime(a.CreatedAt),
				sqlTime(a.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (tenant_id, program_id, user_id) DO UPDATE SET assigned_at = EXCLUDED.assigned_at, starts_at = EXCLUDED.starts_at, updated_at = EXCLUDED.updated_at;\n\n")
	}

	b.WriteString("SET session_replication_role = DEFAULT;\n\n")
	b.WriteString("-- export completed\n")
	return b.String()
}

// GlobalSQL renders the global catalog as an idempotent upsert script.
func GlobalSQL(d *model.GlobalExportData) string {
	var b strings.Builder

	b.WriteString("-- rythm global data export\n")
	fmt.Fprintf(&b, "-- Exported: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	if len(d.Equipment) > 0 {
		b.WriteString("-- equipment\n")
		b.WriteString("INSERT INTO equipment (equipment_id, name, category, description, is_active, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.Equipment))
		for _, e := range d.Equipment {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %t, %s, %s)",
				sqlString(e.EquipmentID),
				sqlString(e.Name),
				sqlString(e.Category),
				sqlStringPtr(e.Description),
				e.IsActive,
				sqlTime(e.CreatedAt),
				sqlTime(e.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, description = EXCLUDED.description, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at;\n\n")
	}

	if len(d.Exercises) > 0 {
		b.WriteString("-- exercises\n")
		b.WriteString("INSERT INTO exercises (exercise_id, name, muscle_groups, equipment_id, exercise_category, default_value_1_type, default_value_2_type, description, instructions, exercise_type, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.Exercises))
		for _, e := range d.Exercises {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
				sqlString(e.ExerciseID),
				sqlString(e.Name),
				sqlArray(e.MuscleGroups),
				sqlStringPtr(e.EquipmentID),
				sqlString(e.ExerciseCategory),
				sqlStringPtr(e.DefaultValue1Type),
				sqlStringPtr(e.DefaultValue2Type),
				sqlStringPtr(e.Description),
				sqlStringPtr(e.Instructions),
				sqlString(e.ExerciseType),
				sqlTime(e.CreatedAt),
				sqlTime(e.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (name) DO UPDATE SET muscle_groups = EXCLUDED.muscle_groups, equipment_id = EXCLUDED.equipment_id, exercise_category = EXCLUDED.exercise_category, default_value_1_type = EXCLUDED.default_value_1_type, default_value_2_type = EXCLUDED.default_value_2_type, description = EXCLUDED.description, instructions = EXCLUDED.instructions, exercise_type = EXCLUDED.exercise_type, updated_at = EXCLUDED.updated_at;\n\n")
	}

	if len(d.ExerciseTemplates) > 0 {
		b.WriteString("-- exercise templates\n")
		b.WriteString("INSERT INTO exercise_templates (template_id, name, muscle_groups, equipment_id, exercise_category, exercise_type, default_value_1_type, default_value_2_type, description, instructions, created_at, updated_at) VALUES\n")
		rows := make([]string, 0, len(d.ExerciseTemplates))
		for _, t := range d.ExerciseTemplates {
			rows = append(rows, fmt.Sprintf("  (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
				sqlString(t.TemplateID),
				sqlString(t.Name),
				sqlArray(t.MuscleGroups),
				sqlStringPtr(t.EquipmentID),
				sqlString(t.ExerciseCategory),
				sqlString(t.ExerciseType),
				sqlStringPtr(t.DefaultValue1Type),
				sqlStringPtr(t.DefaultValue2Type),
				sqlStringPtr(t.Description),
				sqlStringPtr(t.Instructions),
				sqlTime(t.CreatedAt),
				sqlTime(t.UpdatedAt)))
		}
		b.WriteString(strings.Join(rows, ",\n"))
		b.WriteString("\nON CONFLICT (template_id) DO UPDATE SET name = EXCLUDED.name, muscle_groups = EXCLUDED.muscle_groups, equipment_id = EXCLUDED.equipment_id, exercise_category = EXCLUDED.exercise_category, exercise_type = EXCLUDED.exercise_type, default_value_1_type = EXCLUDED.default_value_1_type, default_value_2_type = EXCLUDED.default_value_2_type, description = EXCLUDED.description, instructions = EXCLUDED.instructions, updated_at = EXCLUDED.updated_at;\n\n")
	}

	b.WriteString("-- export completed\n")
	return b.String()
}

// sqlString renders a SQL string literal with single quotes doubled.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sqlStringPtr(p *string) string {
	if p == nil {
		return "NULL"
	}
	return sqlString(*p)
}

func sqlTime(t time.Time) string {
	return "'" + t.UTC().Format(time.RFC3339Nano) + "'"
}

func sqlTimePtr(p *time.Time) string {
	if p == nil {
		return "NULL"
	}
	return sqlTime(*p)
}

func sqlIntPtr(p *int) string {
	if p == nil {
		return "NULL"
	}
	return strconv.Itoa(*p)
}

func sqlFloatPtr(p *float64) string {
	if p == nil {
		return "NULL"
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

// sqlArray renders a text array literal, e.g. ARRAY['chest','triceps'].
func sqlArray(values []string) string {
	if len(values) == 0 {
		return "ARRAY[]::text[]"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = sqlString(v)
	}
	return "ARRAY[" + strings.Join(quoted, ",") + "]"
}

// sqlJSONB renders a jsonb literal from an arbitrary value.
func sqlJSONB(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}
	return sqlString(string(data)) + "::jsonb"
}
