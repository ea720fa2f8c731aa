// Package validate cross-checks export/import payloads against themselves
// and against the live database. All checks are read-only.
//
// Errors and warnings are deliberately asymmetric: a set referencing an
// exercise that does not exist in the global catalog is corrupt data (hard
// error), while a session referencing a user absent from the payload is
// merely suspicious (warning) — the user may be imported in the same batch
// or omitted intentionally.
package validate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/model"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator checks payload integrity. The Querier may be a pooled handle or
// an open transaction, so the importer can validate inside its own
// transaction before any writes.
type Validator struct {
	q db.Querier
}

// New creates a Validator over q.
func New(q db.Querier) *Validator {
	return &Validator{q: q}
}

// ValidateTenantData checks a tenant payload. The returned error is a
// database failure, not a validation outcome; validation findings are in
// the result.
func (v *Validator) ValidateTenantData(ctx context.Context, d *model.TenantExportData) (*model.ValidationResult, error) {
	var errs, warnings []string

	if d.Tenant.TenantID == "" {
		errs = append(errs, "missing or invalid tenant information")
	}

	for _, u := range d.Users {
		if u.UserID == "" || u.Email == "" {
			errs = append(errs, "invalid user data: missing required fields")
			continue
		}
		if !emailRe.MatchString(u.Email) {
			errs = append(errs, fmt.Sprintf("invalid email format: %s", u.Email))
		}
	}

	// Every exercise referenced by a set must resolve against the global
	// catalog, not the tenant's own data.
	missing, err := v.missingExercises(ctx, d)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs = append(errs, fmt.Sprintf("exercise %s referenced in sets but not found in database", id))
	}

	if len(d.Sessions) > 0 && len(d.Users) > 0 {
		userIDs := make(map[string]bool, len(d.Users))
		for _, u := range d.Users {
			userIDs[u.UserID] = true
		}
		for _, s := range d.Sessions {
			if !userIDs[s.UserID] {
				warnings = append(warnings, fmt.Sprintf("session %s references user %s not included in export", s.SessionID, s.UserID))
			}
		}
	}

	if len(d.Sessions) > 0 && len(d.Programs) > 0 {
		programIDs := make(map[string]bool, len(d.Programs))
		for _, p := range d.Programs {
			programIDs[p.ProgramID] = true
		}
		for _, s := range d.Sessions {
			if s.ProgramID != nil && !programIDs[*s.ProgramID] {
				warnings = append(warnings, fmt.Sprintf("session %s references program %s not included in export", s.SessionID, *s.ProgramID))
			}
		}
	}

	return &model.ValidationResult{
		IsValid:      len(errs) == 0,
		Errors:       errs,
		Warnings:     warnings,
		TotalRecords: model.CountTenantRecords(d),
		ValidatedAt:  time.Now().UTC(),
	}, nil
}

// ValidateGlobalData checks the global catalog payload against itself.
// Equipment references outside the payload are warnings (the equipment may
// already exist server-side); duplicate names are hard errors.
func (v *Validator) ValidateGlobalData(ctx context.Context, d *model.GlobalExportData) (*model.ValidationResult, error) {
	var errs, warnings []string

	equipmentIDs := make(map[string]bool, len(d.Equipment))
	for _, e := range d.Equipment {
		equipmentIDs[e.EquipmentID] = true
	}
	for _, t := range d.ExerciseTemplates {
		if t.EquipmentID != nil && !equipmentIDs[*t.EquipmentID] {
			warnings = append(warnings, fmt.Sprintf("template %s references equipment %s not included in export", t.Name, *t.EquipmentID))
		}
	}
	for _, e := range d.Exercises {
		if e.EquipmentID != nil && !equipmentIDs[*e.EquipmentID] {
			warnings = append(warnings, fmt.Sprintf("exercise %s references equipment %s not included in export", e.Name, *e.EquipmentID))
		}
	}

	exerciseNames := make([]string, 0, len(d.Exercises))
	for _, e := range d.Exercises {
		exerciseNames = append(exerciseNames, e.Name)
	}
	if dups := duplicateNames(exerciseNames); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("duplicate exercise names found: %s", strings.Join(dups, ", ")))
	}

	templateNames := make([]string, 0, len(d.ExerciseTemplates))
	for _, t := range d.ExerciseTemplates {
		templateNames = append(templateNames, t.Name)
	}
	if dups := duplicateNames(templateNames); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("duplicate template names found: %s", strings.Join(dups, ", ")))
	}

	return &model.ValidationResult{
		IsValid:      len(errs) == 0,
		Errors:       errs,
		Warnings:     warnings,
		TotalRecords: model.CountGlobalRecords(d),
		ValidatedAt:  time.Now().UTC(),
	}, nil
}

// missingExercises returns the sorted set of exercise ids referenced by the
// payload's sets that do not exist in the live exercises table.
func (v *Validator) missingExercises(ctx context.Context, d *model.TenantExportData) ([]string, error) {
	referenced := make(map[string]bool)
	for _, s := range d.Sessions {
		for _, st := range s.Sets {
			referenced[st.ExerciseID] = true
		}
	}
	if len(referenced) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(referenced))
	for id := range referenced {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var missing []string
	for _, id := range ids {
		var found string
		err := v.q.QueryRow(ctx, "SELECT exercise_id FROM exercises WHERE exercise_id = $1", id).Scan(&found)
		switch {
		case err == nil:
			// exists
		case isNoRows(err):
			missing = append(missing, id)
		default:
			return nil, fmt.Errorf("checking exercise %s: %w", id, err)
		}
	}
	return missing, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// duplicateNames returns the case-insensitively duplicated names, lowercased,
// in first-seen order.
func duplicateNames(names []string) []string {
	seen := make(map[string]int, len(names))
	var dups []string
	for _, n := range names {
		key := strings.ToLower(n)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
	}
	return dups
}
