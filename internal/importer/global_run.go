package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rythm-app/dataops/internal/model"
)

// globalRun carries the state of one global-catalog import inside its
// transaction.
type globalRun struct {
	tx     pgx.Tx
	opts   model.ImportOptions
	result *model.ImportResult
}

func (r *globalRun) exec(ctx context.Context, sql string, args ...any) error {
	if r.opts.DryRun {
		return nil
	}
	_, err := r.tx.Exec(ctx, sql, args...)
	return err
}

// skipExisting probes for a row by natural key under the skip-existing
// strategy. entity is the result-count key, label the singular name used in
// error messages.
func (r *globalRun) skipExisting(ctx context.Context, entity, label, probeSQL, key string) bool {
	if r.opts.MergeStrategy != model.MergeSkipExisting {
		return false
	}
	var existing string
	err := r.tx.QueryRow(ctx, probeSQL, key).Scan(&existing)
	if err == nil {
		r.result.RecordsSkipped[entity]++
		return true
	}
	if !isNoRows(err) {
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import %s %s: %v", label, key, err))
		return true
	}
	return false
}

func (r *globalRun) importEquipment(ctx context.Context, equipment []model.Equipment) {
	for _, e := range equipment {
		if r.skipExisting(ctx, "equipment", "equipment", "SELECT equipment_id FROM equipment WHERE name = $1", e.Name) {
			continue
		}

		err := r.exec(ctx, `
			INSERT INTO equipment (equipment_id, name, category, description, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (name) DO UPDATE SET
				category = EXCLUDED.category,
				description = EXCLUDED.description,
				is_active = EXCLUDED.is_active,
				updated_at = EXCLUDED.updated_at`,
			e.EquipmentID, e.Name, e.Category, e.Description, e.IsActive, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import equipment %s: %v", e.Name, err))
			continue
		}
		r.result.RecordsImported["equipment"]++
	}
}

func (r *globalRun) importExercises(ctx context.Context, exercises []model.Exercise) {
	for _, e := range exercises {
		if r.skipExisting(ctx, "exercises", "exercise", "SELECT exercise_id FROM exercises WHERE name = $1", e.Name) {
			continue
		}

		err := r.exec(ctx, `
			INSERT INTO exercises (
				exercise_id, name, muscle_groups, equipment_id, exercise_category,
				default_value_1_type, default_value_2_type, description, instructions,
				exercise_type, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (name) DO UPDATE SET
				muscle_groups = EXCLUDED.muscle_groups,
				equipment_id = EXCLUDED.equipment_id,
				exercise_category = EXCLUDED.exercise_category,
				default_value_1_type = EXCLUDED.default_value_1_type,
				default_value_2_type = EXCLUDED.default_value_2_type,
				description = EXCLUDED.description,
				instructions = EXCLUDED.instructions,
				exercise_type = EXCLUDED.exercise_type,
				updated_at = EXCLUDED.updated_at`,
			e.ExerciseID, e.Name, e.MuscleGroups, e.EquipmentID, e.ExerciseCategory,
			e.DefaultValue1Type, e.DefaultValue2Type, e.Description, e.Instructions,
			e.ExerciseType, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import exercise %s: %v", e.Name, err))
			continue
		}
		r.result.RecordsImported["exercises"]++
	}
}

func (r *globalRun) importTemplates(ctx context.Context, templates []model.ExerciseTemplate) {
	for _, t := range templates {
		if r.skipExisting(ctx, "exercise_templates", "template", "SELECT template_id FROM exercise_templates WHERE name = $1", t.Name) {
			continue
		}

		err := r.exec(ctx, `
			INSERT INTO exercise_templates (
				template_id, name, muscle_groups, equipment_id, exercise_category,
				exercise_type, default_value_1_type, default_value_2_type,
				description, instructions, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (template_id) DO UPDATE SET
				name = EXCLUDED.name,
				muscle_groups = EXCLUDED.muscle_groups,
				equipment_id = EXCLUDED.equipment_id,
				exercise_category = EXCLUDED.exercise_category,
				exercise_type = EXCLUDED.exercise_type,
				default_value_1_type = EXCLUDED.default_value_1_type,
				default_value_2_type = EXCLUDED.default_value_2_type,
				description = EXCLUDED.description,
				instructions = EXCLUDED.instructions,
				updated_at = EXCLUDED.updated_at`,
			t.TemplateID, t.Name, t.MuscleGroups, t.EquipmentID, t.ExerciseCategory,
			t.ExerciseType, t.DefaultValue1Type, t.DefaultValue2Type,
			t.Description, t.Instructions, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import template %s: %v", t.Name, err))
			continue
		}
		r.result.RecordsImported["exercise_templates"]++
	}
}
