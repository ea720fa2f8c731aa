package format

import (
	"strings"
	"testing"
	"time"

	"github.com/rythm-app/dataops/internal/model"
)

func TestEscapeCSVString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"Hold, then release", `"Hold, then release"`},
		{`say "when"`, `"say ""when"""`},
		{"line1\nline2", "\"line1\nline2\""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := escapeCSVString(tt.input); got != tt.want {
			t.Errorf("escapeCSVString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCSVField(t *testing.T) {
	s := "note"
	n := 8
	f := 72.5
	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"nil string ptr", (*string)(nil), ""},
		{"string ptr", &s, "note"},
		{"slice joins with semicolons", []string{"chest", "triceps"}, "chest;triceps"},
		{"bool", true, "true"},
		{"int", 5, "5"},
		{"nil int ptr", (*int)(nil), ""},
		{"int ptr", &n, "8"},
		{"float ptr", &f, "72.5"},
		{"time", ts, "2026-03-15T10:30:00Z"},
		{"nil time ptr", (*time.Time)(nil), ""},
		{"object is quoted json", map[string]any{"a": 1}, `"{""a"":1}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := csvField(tt.input); got != tt.want {
				t.Errorf("csvField(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTenantCSV(t *testing.T) {
	d := testTenantData()
	notes := "Hold, then release"
	d.Sessions = []model.Session{
		{
			SessionID: "66666666-6666-6666-6666-666666666666",
			UserID:    d.Users[0].UserID,
			StartedAt: time.Date(2026, 3, 16, 7, 0, 0, 0, time.UTC),
			Category:  "GYM",
			Notes:     &notes,
			Sets: []model.Set{
				{SetID: "77777777-7777-7777-7777-777777777777", ExerciseID: "55555555-5555-5555-5555-555555555555", SetIndex: 0},
			},
		},
	}

	files := TenantCSV(d)

	for _, name := range []string{"tenant.csv", "users.csv", "programs.csv", "workouts.csv", "sessions.csv", "sets.csv"} {
		if _, ok := files[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if _, ok := files["program_assignments.csv"]; ok {
		t.Error("no assignments file expected for empty collection")
	}

	if !strings.HasPrefix(files["workouts.csv"], "workout_id,program_id,") {
		t.Errorf("workouts header = %q", strings.SplitN(files["workouts.csv"], "\n", 2)[0])
	}
	if !strings.Contains(files["workouts.csv"], "33333333-3333-3333-3333-333333333333") {
		t.Error("workout row must carry its program_id")
	}

	if !strings.HasPrefix(files["sets.csv"], "set_id,session_id,") {
		t.Errorf("sets header = %q", strings.SplitN(files["sets.csv"], "\n", 2)[0])
	}
	if !strings.Contains(files["sets.csv"], "66666666-6666-6666-6666-666666666666") {
		t.Error("set row must carry its session_id")
	}

	if !strings.Contains(files["sessions.csv"], `"Hold, then release"`) {
		t.Error("notes with a comma must be quoted")
	}
}

func TestGlobalCSV(t *testing.T) {
	d := &model.GlobalExportData{
		Exercises: []model.Exercise{
			{ExerciseID: "x1", Name: "Bench Press", MuscleGroups: []string{"chest", "triceps"}, ExerciseCategory: "BARBELL", ExerciseType: "STRENGTH"},
		},
	}

	files := GlobalCSV(d)
	if len(files) != 1 {
		t.Fatalf("files = %v, want only exercises.csv", files)
	}
	if !strings.Contains(files["exercises.csv"], "chest;triceps") {
		t.Error("muscle groups must join with semicolons")
	}
}
