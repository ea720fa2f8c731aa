package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rythm-app/dataops/internal/model"
)

// TenantCSV flattens a tenant payload into one CSV document per entity
// collection. Nested children carry their parent id (each workout row gets
// program_id, each set row gets session_id).
func TenantCSV(d *model.TenantExportData) map[string]string {
	files := make(map[string]string)

	files["tenant.csv"] = csvDocument(
		[]string{"tenant_id", "name", "branding", "created_at", "updated_at"},
		[][]any{{d.Tenant.TenantID, d.Tenant.Name, d.Tenant.Branding, d.Tenant.CreatedAt, d.Tenant.UpdatedAt}},
	)

	if len(d.Users) > 0 {
		rows := make([][]any, 0, len(d.Users))
		for _, u := range d.Users {
			rows = append(rows, []any{u.UserID, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.AvatarURL, u.About, u.CreatedAt, u.UpdatedAt})
		}
		files["users.csv"] = csvDocument(
			[]string{"user_id", "email", "password_hash", "role", "first_name", "last_name", "avatar_url", "about", "created_at", "updated_at"},
			rows,
		)
	}

	if len(d.Programs) > 0 {
		prows := make([][]any, 0, len(d.Programs))
		var wrows [][]any
		for _, p := range d.Programs {
			prows = append(prows, []any{p.ProgramID, p.Name, p.Description, p.DurationWeeks, p.CreatedAt, p.UpdatedAt})
			for _, w := range p.Workouts {
				wrows = append(wrows, []any{w.WorkoutID, p.ProgramID, w.Name, w.DayIndex, w.CreatedAt, w.UpdatedAt})
			}
		}
		files["programs.csv"] = csvDocument(
			[]string{"program_id", "name", "description", "duration_weeks", "created_at", "updated_at"},
			prows,
		)
		if len(wrows) > 0 {
			files["workouts.csv"] = csvDocument(
				[]string{"workout_id", "program_id", "name", "day_index", "created_at", "updated_at"},
				wrows,
			)
		}
	}

	if len(d.Sessions) > 0 {
		srows := make([][]any, 0, len(d.Sessions))
		var setrows [][]any
		for _, s := range d.Sessions {
			srows = append(srows, []any{s.SessionID, s.UserID, s.ProgramID, s.StartedAt, s.CompletedAt, s.Category, s.Notes, s.TrainingLoad, s.PerceivedExertion, s.Name, s.DurationSeconds, s.CreatedAt, s.UpdatedAt})
			for _, st := range s.Sets {
				setrows = append(setrows, []any{st.SetID, s.SessionID, st.ExerciseID, st.SetIndex, st.Reps, st.Value1Type, st.Value1Numeric, st.Value2Type, st.Value2Numeric, st.Notes, st.CreatedAt, st.UpdatedAt})
			}
		}
		files["sessions.csv"] = csvDocument(
			[]string{"session_id", "user_id", "program_id", "started_at", "completed_at", "category", "notes", "training_load", "perceived_exertion", "name", "duration_seconds", "created_at", "updated_at"},
			srows,
		)
		if len(setrows) > 0 {
			files["sets.csv"] = csvDocument(
				[]string{"set_id", "session_id", "exercise_id", "set_index", "reps", "value_1_type", "value_1_numeric", "value_2_type", "value_2_numeric", "notes", "created_at", "updated_at"},
				setrows,
			)
		}
	}

	if len(d.ProgramAssignments) > 0 {
		rows := make([][]any, 0, len(d.ProgramAssignments))
		for _, a := range d.ProgramAssignments {
			rows = append(rows, []any{a.AssignmentID, a.ProgramID, a.UserID, a.AssignedAt, a.StartsAt, a.CreatedAt, a.UpdatedAt})
		}
		files["program_assignments.csv"] = csvDocument(
			[]string{"assignment_id", "program_id", "user_id", "assigned_at", "starts_at", "created_at", "updated_at"},
			rows,
		)
	}

	return files
}

// GlobalCSV flattens the global catalog into one CSV document per collection.
func GlobalCSV(d *model.GlobalExportData) map[string]string {
	files := make(map[string]string)

	if len(d.Equipment) > 0 {
		rows := make([][]any, 0, len(d.Equipment))
		for _, e := range d.Equipment {
			rows = append(rows, []any{e.EquipmentID, e.Name, e.Category, e.Description, e.IsActive, e.CreatedAt, e.UpdatedAt})
		}
		files["equipment.csv"] = csvDocument(
			[]string{"equipment_id", "name", "category", "description", "is_active", "created_at", "updated_at"},
			rows,
		)
	}

	if len(d.Exercises) > 0 {
		rows := make([][]any, 0, len(d.Exercises))
		for _, e := range d.Exercises {
			rows = append(rows, []any{e.ExerciseID, e.Name, e.MuscleGroups, e.EquipmentID, e.ExerciseCategory, e.DefaultValue1Type, e.DefaultValue2Type, e.Description, e.Instructions, e.ExerciseType, e.CreatedAt, e.UpdatedAt})
		}
		files["exercises.csv"] = csvDocument(
			[]string{"exercise_id", "name", "muscle_groups", "equipment_id", "exercise_category", "default_value_1_type", "default_value_2_type", "description", "instructions", "exercise_type", "created_at", "updated_at"},
			rows,
		)
	}

	if len(d.ExerciseTemplates) > 0 {
		rows := make([][]any, 0, len(d.ExerciseTemplates))
		for _, t := range d.ExerciseTemplates {
			rows = append(rows, []any{t.TemplateID, t.Name, t.MuscleGroups, t.EquipmentID, t.ExerciseCategory, t.ExerciseType, t.DefaultValue1Type, t.DefaultValue2Type, t.Description, t.Instructions, t.CreatedAt, t.UpdatedAt})
		}
		files["exercise_templates.csv"] = csvDocument(
			[]string{"template_id", "name", "muscle_groups", "equipment_id", "exercise_category", "exercise_type", "default_value_1_type", "default_value_2_type", "description", "instructions", "created_at", "updated_at"},
			rows,
		)
	}

	return files
}

func csvDocument(columns []string, rows [][]any) string {
	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, v := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvField(v))
		}
	}
	return b.String()
}

// csvField renders one value. Strings are quoted only when they contain a
// comma, quote or newline (internal quotes doubled); string slices join with
// ';'; objects are JSON-stringified and always quoted.
func csvField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return escapeCSVString(x)
	case *string:
		if x == nil {
			return ""
		}
		return escapeCSVString(*x)
	case []string:
		return escapeCSVString(strings.Join(x, ";"))
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'g', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.UTC().Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return escapeCSVString(fmt.Sprint(x))
		}
		return `"` + strings.ReplaceAll(string(data), `"`, `""`) + `"`
	}
}

func escapeCSVString(s string) string {
	escaped := strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(escaped, ",\"\n") {
		return `"` + escaped + `"`
	}
	return escaped
}
