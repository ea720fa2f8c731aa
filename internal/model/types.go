// Package model holds the export/import data shapes shared by the exporter,
// importer, formatters, validator and backup manager. The JSON form of these
// types is the canonical interchange format: a file produced by a JSON export
// must round-trip unchanged through an import.
package model

import "time"

// Tenant is the top-level isolation boundary. Exactly one per tenant export.
type Tenant struct {
	TenantID  string         `json:"tenant_id"`
	Name      string         `json:"name"`
	Branding  map[string]any `json:"branding"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// User belongs to one tenant. Email is unique within the tenant. The password
// hash is an opaque secret and must round-trip byte for byte.
type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	About        *string   `json:"about,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Workout is one day of a program, ordered by DayIndex.
type Workout struct {
	WorkoutID string    `json:"workout_id"`
	Name      string    `json:"name"`
	DayIndex  int       `json:"day_index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Program owns an ordered list of workouts.
type Program struct {
	ProgramID     string    `json:"program_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	DurationWeeks int       `json:"duration_weeks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Workouts      []Workout `json:"workouts"`
}

// Set is one logged set within a session. ExerciseID must resolve against the
// global exercise catalog, not the tenant's own data.
type Set struct {
	SetID         string    `json:"set_id"`
	ExerciseID    string    `json:"exercise_id"`
	SetIndex      int       `json:"set_index"`
	Reps          *int      `json:"reps,omitempty"`
	Value1Type    *string   `json:"value_1_type,omitempty"`
	Value1Numeric *float64  `json:"value_1_numeric,omitempty"`
	Value2Type    *string   `json:"value_2_type,omitempty"`
	Value2Numeric *float64  `json:"value_2_numeric,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session is one workout session with its ordered sets.
type Session struct {
	SessionID          string     `json:"session_id"`
	UserID             string     `json:"user_id"`
	ProgramID          *string    `json:"program_id,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Category           string     `json:"category"`
	Notes              *string    `json:"notes,omitempty"`
	TrainingLoad       *int       `json:"training_load,omitempty"`
	PerceivedExertion  *int       `json:"perceived_exertion,omitempty"`
	Name               *string    `json:"name,omitempty"`
	DurationSeconds    *int       `json:"duration_seconds,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Sets               []Set      `json:"sets"`
}

// ProgramAssignment links a program to a user, unique per tenant.
type ProgramAssignment struct {
	AssignmentID string    `json:"assignment_id"`
	ProgramID    string    `json:"program_id"`
	UserID       string    `json:"user_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	StartsAt     time.Time `json:"starts_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TenantExportData is a snapshot of one tenant. No entity in this payload may
// belong to more than one tenant.
type TenantExportData struct {
	Tenant             Tenant              `json:"tenant"`
	Users              []User              `json:"users,omitempty"`
	Programs           []Program           `json:"programs,omitempty"`
	Sessions           []Session           `json:"sessions,omitempty"`
	ProgramAssignments []ProgramAssignment `json:"program_assignments,omitempty"`
}

// Exercise is a global catalog entry. Name is unique across the catalog.
type Exercise struct {
	ExerciseID        string    `json:"exercise_id"`
	Name              string    `json:"name"`
	MuscleGroups      []string  `json:"muscle_groups"`
	EquipmentID       *string   `json:"equipment_id,omitempty"`
	ExerciseCategory  string    `json:"exercise_category"`
	DefaultValue1Type *string   `json:"default_value_1_type,omitempty"`
	DefaultValue2Type *string   `json:"default_value_2_type,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Instructions      *string   `json:"instructions,omitempty"`
	ExerciseType      string    `json:"exercise_type"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ExerciseTemplate is a reusable, tenant-independent exercise blueprint,
// keyed separately from the exercises catalog.
type ExerciseTemplate struct {
	TemplateID        string    `json:"template_id"`
	Name              string    `json:"name"`
	MuscleGroups      []string  `json:"muscle_groups"`
	EquipmentID       *string   `json:"equipment_id,omitempty"`
	ExerciseCategory  string    `json:"exercise_category"`
	ExerciseType      string    `json:"exercise_type"`
	DefaultValue1Type *string   `json:"default_value_1_type,omitempty"`
	DefaultValue2Type *string   `json:"default_value_2_type,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Instructions      *string   `json:"instructions,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Equipment is a global catalog entry. Name is unique.
type Equipment struct {
	EquipmentID string    `json:"equipment_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GlobalExportData is the tenant-independent catalog snapshot.
type GlobalExportData struct {
	Equipment         []Equipment        `json:"equipment"`
	Exercises         []Exercise         `json:"exercises"`
	ExerciseTemplates []ExerciseTemplate `json:"exercise_templates"`
}

// FullExportData wraps the global catalog plus every tenant's snapshot.
type FullExportData struct {
	Global   *GlobalExportData            `json:"global"`
	Tenants  map[string]*TenantExportData `json:"tenants"`
	Metadata FullExportMetadata           `json:"metadata"`
}

// FullExportMetadata describes a full-system export.
type FullExportMetadata struct {
	ExportedAt   time.Time `json:"exported_at"`
	TotalTenants int       `json:"total_tenants"`
	Format       string    `json:"format"`
}

// CountTenantRecords returns per-entity record counts for a tenant payload.
func CountTenantRecords(d *TenantExportData) map[string]int {
	workouts := 0
	for _, p := range d.Programs {
		workouts += len(p.Workouts)
	}
	sets := 0
	for _, s := range d.Sessions {
		sets += len(s.Sets)
	}
	return map[string]int{
		"tenants":             1,
		"users":               len(d.Users),
		"programs":            len(d.Programs),
		"workouts":            workouts,
		"sessions":            len(d.Sessions),
		"sets":                sets,
		"program_assignments": len(d.ProgramAssignments),
	}
}

// CountGlobalRecords returns per-entity record counts for a global payload.
func CountGlobalRecords(d *GlobalExportData) map[string]int {
	return map[string]int{
		"equipment":          len(d.Equipment),
		"exercises":          len(d.Exercises),
		"exercise_templates": len(d.ExerciseTemplates),
	}
}
