//go:build integration

package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rythm-app/dataops/internal/db"
	"github.com/rythm-app/dataops/internal/export"
	"github.com/rythm-app/dataops/internal/model"
)

func setupDatabase(t *testing.T, ctx context.Context) *db.Database {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("rythm"),
		postgrescontainer.WithUsername("rythm_api"),
		postgrescontainer.WithPassword("rythm_api"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = pgxpool.New(ctx, connStr)
		if err != nil {
			return false
		}
		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			return false
		}
		return true
	}, 30*time.Second, time.Second)
	t.Cleanup(func() { pool.Close() })

	database := db.NewFromPool(pool)
	require.NoError(t, database.Migrate(ctx))
	return database
}

func seedCatalog(t *testing.T, ctx context.Context, im *Importer, exerciseID string) {
	t.Helper()

	now := time.Now().UTC()
	res := im.ImportGlobalData(ctx, &model.GlobalExportData{
		Exercises: []model.Exercise{
			{
				ExerciseID:       exerciseID,
				Name:             "Bench Press",
				MuscleGroups:     []string{"chest", "triceps"},
				ExerciseCategory: "BARBELL",
				ExerciseType:     "STRENGTH",
				CreatedAt:        now,
				UpdatedAt:        now,
			},
		},
	}, model.ImportOptions{MergeStrategy: model.MergeUpsert})
	require.True(t, res.Success, "seeding catalog: %v", res.Errors)
}

func sampleTenant(exerciseID string) *model.TenantExportData {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tenantID := uuid.NewString()
	userID := uuid.NewString()
	programID := uuid.NewString()
	sessionID := uuid.NewString()
	reps := 8
	weight := 72.5
	valueType := "WEIGHT_KG"

	return &model.TenantExportData{
		Tenant: model.Tenant{
			TenantID:  tenantID,
			Name:      "Integration Gym",
			Branding:  map[string]any{"color": "blue"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Users: []model.User{
			{
				UserID:       userID,
				Email:        "coach@integration.example",
				PasswordHash: "$argon2id$test",
				Role:         "COACH",
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
		Programs: []model.Program{
			{
				ProgramID:     programID,
				Name:          "Strength",
				DurationWeeks: 12,
				CreatedAt:     now,
				UpdatedAt:     now,
				Workouts: []model.Workout{
					{WorkoutID: uuid.NewString(), Name: "Day 1", DayIndex: 0, CreatedAt: now, UpdatedAt: now},
				},
			},
		},
		Sessions: []model.Session{
			{
				SessionID: sessionID,
				UserID:    userID,
				ProgramID: &programID,
				StartedAt: now,
				Category:  "GYM",
				CreatedAt: now,
				UpdatedAt: now,
				Sets: []model.Set{
					{
						SetID:         uuid.NewString(),
						ExerciseID:    exerciseID,
						SetIndex:      0,
						Reps:          &reps,
						Value1Type:    &valueType,
						Value1Numeric: &weight,
						CreatedAt:     now,
						UpdatedAt:     now,
					},
				},
			},
		},
		ProgramAssignments: []model.ProgramAssignment{
			{
				AssignmentID: uuid.NewString(),
				ProgramID:    programID,
				UserID:       userID,
				AssignedAt:   now,
				StartsAt:     now,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	exerciseID := uuid.NewString()
	seedCatalog(t, ctx, im, exerciseID)

	data := sampleTenant(exerciseID)
	opts := model.ImportOptions{
		MergeStrategy:      model.MergeUpsert,
		ValidateReferences: true,
		IncludeWorkoutData: true,
	}

	res := im.ImportTenant(ctx, data, opts)
	require.True(t, res.Success, "import: %v", res.Errors)
	require.Equal(t, 1, res.RecordsImported["tenants"])
	require.Equal(t, 1, res.RecordsImported["users"])
	require.Equal(t, 1, res.RecordsImported["workouts"])
	require.Equal(t, 1, res.RecordsImported["sets"])

	exported := export.New(database).ExportTenant(ctx, data.Tenant.TenantID, model.ExportOptions{
		Format:             model.FormatJSON,
		IncludeUsers:       true,
		IncludeWorkoutData: true,
	})
	require.True(t, exported.Success, exported.Error)
	require.Equal(t, data.Tenant.Name, exported.Tenant.Tenant.Name)
	require.Len(t, exported.Tenant.Users, 1)
	require.Equal(t, data.Users[0].PasswordHash, exported.Tenant.Users[0].PasswordHash)
	require.Len(t, exported.Tenant.Sessions, 1)
	require.Len(t, exported.Tenant.Sessions[0].Sets, 1)
	require.Equal(t, 72.5, *exported.Tenant.Sessions[0].Sets[0].Value1Numeric)

	// re-importing the export is a no-op upsert
	again := im.ImportTenant(ctx, exported.Tenant, opts)
	require.True(t, again.Success, "re-import: %v", again.Errors)
}

func TestImportTenantSkipExisting(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	exerciseID := uuid.NewString()
	seedCatalog(t, ctx, im, exerciseID)

	data := sampleTenant(exerciseID)
	opts := model.ImportOptions{MergeStrategy: model.MergeUpsert, IncludeWorkoutData: true}
	require.True(t, im.ImportTenant(ctx, data, opts).Success)

	res := im.ImportTenant(ctx, data, model.ImportOptions{
		MergeStrategy:      model.MergeSkipExisting,
		IncludeWorkoutData: true,
	})
	require.True(t, res.Success, "skip-existing: %v", res.Errors)
	require.Equal(t, 1, res.RecordsSkipped["tenants"])
	require.Equal(t, 0, res.RecordsImported["tenants"])
}

func TestImportTenantDanglingExerciseRollsBack(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	data := sampleTenant(uuid.NewString()) // exercise never seeded
	res := im.ImportTenant(ctx, data, model.ImportOptions{
		MergeStrategy:      model.MergeUpsert,
		ValidateReferences: true,
		IncludeWorkoutData: true,
	})
	require.False(t, res.Success)
	require.NotEmpty(t, res.Errors)

	var count int
	require.NoError(t, database.QueryRow(ctx,
		"SELECT COUNT(*) FROM tenants WHERE tenant_id = $1", data.Tenant.TenantID).Scan(&count))
	require.Zero(t, count, "failed import must leave no rows behind")
}

func TestImportTenantDryRun(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	exerciseID := uuid.NewString()
	seedCatalog(t, ctx, im, exerciseID)

	data := sampleTenant(exerciseID)
	res := im.ImportTenant(ctx, data, model.ImportOptions{
		MergeStrategy:      model.MergeUpsert,
		ValidateReferences: true,
		IncludeWorkoutData: true,
		DryRun:             true,
	})
	require.True(t, res.Success, "dry run: %v", res.Errors)
	require.True(t, res.DryRun)
	require.Equal(t, 1, res.RecordsImported["tenants"])

	var count int
	require.NoError(t, database.QueryRow(ctx,
		"SELECT COUNT(*) FROM tenants WHERE tenant_id = $1", data.Tenant.TenantID).Scan(&count))
	require.Zero(t, count, "dry run must write nothing")
}

func TestExportTenantDateRange(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	exerciseID := uuid.NewString()
	seedCatalog(t, ctx, im, exerciseID)

	data := sampleTenant(exerciseID)
	old := time.Now().UTC().AddDate(0, -6, 0)
	data.Sessions = append(data.Sessions, model.Session{
		SessionID: uuid.NewString(),
		UserID:    data.Users[0].UserID,
		StartedAt: old,
		Category:  "GYM",
		CreatedAt: old,
		UpdatedAt: old,
	})
	require.True(t, im.ImportTenant(ctx, data, model.ImportOptions{
		MergeStrategy:      model.MergeUpsert,
		IncludeWorkoutData: true,
	}).Success)

	exported := export.New(database).ExportTenant(ctx, data.Tenant.TenantID, model.ExportOptions{
		Format:             model.FormatJSON,
		IncludeUsers:       true,
		IncludeWorkoutData: true,
		DateRange: &model.DateRange{
			Start: time.Now().UTC().AddDate(0, -1, 0),
			End:   time.Now().UTC().Add(time.Hour),
		},
	})
	require.True(t, exported.Success, exported.Error)
	require.Len(t, exported.Tenant.Sessions, 1, "old session must fall outside the range")
}

func TestImportTenantReplaceDeletesExisting(t *testing.T) {
	ctx := context.Background()
	database := setupDatabase(t, ctx)
	im := New(database, nil)

	exerciseID := uuid.NewString()
	seedCatalog(t, ctx, im, exerciseID)

	data := sampleTenant(exerciseID)
	opts := model.ImportOptions{MergeStrategy: model.MergeUpsert, IncludeWorkoutData: true}
	require.True(t, im.ImportTenant(ctx, data, opts).Success)

	// second payload for the same tenant with only the tenant row
	replacement := &model.TenantExportData{Tenant: data.Tenant}
	res := im.ImportTenant(ctx, replacement, model.ImportOptions{
		MergeStrategy:      model.MergeReplace,
		IncludeWorkoutData: true,
	})
	require.True(t, res.Success, "replace: %v", res.Errors)

	var users int
	require.NoError(t, database.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE tenant_id = $1", data.Tenant.TenantID).Scan(&users))
	require.Zero(t, users, "replace must cascade away previous rows")
}
