package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/model"
)

// fakeQuerier answers exercise lookups from an in-memory set.
type fakeQuerier struct {
	exercises map[string]bool
}

var _ db.Querier = (*fakeQuerier)(nil)

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	id, _ := args[0].(string)
	if f.exercises[id] {
		return fakeRow{id: id}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type fakeRow struct {
	id  string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.id
	}
	return nil
}

func tenantPayload() *model.TenantExportData {
	pid := "p1"
	return &model.TenantExportData{
		Tenant: model.Tenant{TenantID: "t1", Name: "Gym"},
		Users: []model.User{
			{UserID: "u1", Email: "coach@gym.example"},
		},
		Programs: []model.Program{
			{ProgramID: "p1", Name: "Strength"},
		},
		Sessions: []model.Session{
			{
				SessionID: "s1",
				UserID:    "u1",
				ProgramID: &pid,
				Sets: []model.Set{
					{SetID: "x1", ExerciseID: "ex1"},
				},
			},
		},
	}
}

func TestValidateTenantDataValid(t *testing.T) {
	v := New(&fakeQuerier{exercises: map[string]bool{"ex1": true}})

	res, err := v.ValidateTenantData(context.Background(), tenantPayload())
	if err != nil {
		t.Fatalf("ValidateTenantData() error = %v", err)
	}
	if !res.IsValid {
		t.Fatalf("IsValid = false, errors = %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
	if res.TotalRecords["users"] != 1 || res.TotalRecords["sets"] != 1 {
		t.Errorf("TotalRecords = %v", res.TotalRecords)
	}
}

func TestValidateTenantDataMissingTenantID(t *testing.T) {
	v := New(&fakeQuerier{exercises: map[string]bool{"ex1": true}})
	d := tenantPayload()
	d.Tenant.TenantID = ""

	res, err := v.ValidateTenantData(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	if res.Errors[0] != "missing or invalid tenant information" {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateTenantDataEmails(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"coach@gym.example", true},
		{"first.last@sub.gym.example", true},
		{"no-at-sign", false},
		{"spaces in@gym.example", false},
		{"missing@tld", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			v := New(&fakeQuerier{exercises: map[string]bool{"ex1": true}})
			d := tenantPayload()
			d.Users[0].Email = tt.email

			res, err := v.ValidateTenantData(context.Background(), d)
			if err != nil {
				t.Fatal(err)
			}
			if res.IsValid != tt.valid {
				t.Errorf("IsValid = %v for email %q, errors = %v", res.IsValid, tt.email, res.Errors)
			}
		})
	}
}

func TestValidateTenantDataMissingExercise(t *testing.T) {
	v := New(&fakeQuerier{exercises: map[string]bool{}})

	res, err := v.ValidateTenantData(context.Background(), tenantPayload())
	if err != nil {
		t.Fatal(err)
	}
	if res.IsValid {
		t.Fatal("IsValid = true, want false for dangling exercise reference")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "exercise ex1 referenced in sets but not found in database") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateTenantDataPayloadRefsAreWarnings(t *testing.T) {
	v := New(&fakeQuerier{exercises: map[string]bool{"ex1": true}})
	d := tenantPayload()
	d.Sessions[0].UserID = "ghost"
	missing := "nope"
	d.Sessions[0].ProgramID = &missing

	res, err := v.ValidateTenantData(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsValid {
		t.Fatalf("payload-internal dangling refs must stay warnings, errors = %v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("warnings = %v, want user and program warnings", res.Warnings)
	}
}

func TestValidateGlobalDataDuplicateNames(t *testing.T) {
	v := New(&fakeQuerier{})
	d := &model.GlobalExportData{
		Exercises: []model.Exercise{
			{ExerciseID: "x1", Name: "Bench Press"},
			{ExerciseID: "x2", Name: "bench press"},
			{ExerciseID: "x3", Name: "Squat"},
		},
	}

	res, err := v.ValidateGlobalData(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsValid {
		t.Fatal("IsValid = true, want false for duplicate names")
	}
	if res.Errors[0] != "duplicate exercise names found: bench press" {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateGlobalDataEquipmentRefsAreWarnings(t *testing.T) {
	v := New(&fakeQuerier{})
	eq := "eq-missing"
	d := &model.GlobalExportData{
		Exercises: []model.Exercise{
			{ExerciseID: "x1", Name: "Bench Press", EquipmentID: &eq},
		},
	}

	res, err := v.ValidateGlobalData(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsValid {
		t.Fatalf("equipment refs are warnings, errors = %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestDuplicateNames(t *testing.T) {
	dups := duplicateNames([]string{"A", "b", "a", "B", "c", "A"})
	if len(dups) != 2 || dups[0] != "a" || dups[1] != "b" {
		t.Errorf("duplicateNames = %v", dups)
	}
}
