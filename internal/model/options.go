package model

import (
	"fmt"
	"time"
)

// Format selects the serialization produced by an export.
type Format string

const (
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format string from config or CLI flags.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatSQL, FormatCSV:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json, sql or csv)", s)
}

// MergeStrategy governs how an imported row interacts with an existing row of
// the same key.
type MergeStrategy string

const (
	// MergeReplace deletes the existing tenant row (cascading) before
	// re-inserting. Destructive; pair with a backup.
	MergeReplace MergeStrategy = "replace"
	// MergeUpsert inserts or updates in place. Re-running is always safe.
	MergeUpsert MergeStrategy = "merge"
	// MergeSkipExisting leaves rows that already exist by natural key alone.
	MergeSkipExisting MergeStrategy = "skip-existing"
)

// ParseMergeStrategy validates a merge-strategy string.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case MergeReplace, MergeUpsert, MergeSkipExisting:
		return MergeStrategy(s), nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want replace, merge or skip-existing)", s)
}

// DateRange restricts exported sessions to started_at within [Start, End],
// bounds inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ExportOptions controls what an export includes and how it is serialized.
// IncludeUsers and IncludeWorkoutData are privacy/size gates, not formatting
// concerns.
type ExportOptions struct {
	Format             Format
	IncludeUsers       bool
	IncludeWorkoutData bool
	DateRange          *DateRange

	// StrictTenants aborts a full-system export on the first tenant whose
	// individual export fails. The default records the failure as a warning
	// and continues.
	StrictTenants bool

	// OnTenantExported, when set, is called after each tenant during a
	// full-system export. Used by the CLI progress bar.
	OnTenantExported func(done, total int)
}

// ImportOptions controls merge behavior and safety rails for an import.
type ImportOptions struct {
	MergeStrategy      MergeStrategy
	ValidateReferences bool
	DryRun             bool
	CreateBackup       bool
	IncludeWorkoutData bool
}

// ExportMetadata describes a single export call.
type ExportMetadata struct {
	ExportType   string         `json:"export_type"` // tenant, global or full
	TenantID     string         `json:"tenant_id,omitempty"`
	RecordCounts map[string]int `json:"record_counts"`
	ExportedAt   time.Time      `json:"exported_at"`
	Format       Format         `json:"format"`
}

// FormattedData is the serialized representation of an export. Text is set
// for sql and json output; Files maps filename to body for csv output.
type FormattedData struct {
	Text  string
	Files map[string]string
}

// ExportResult is the envelope returned by every export call. It is never
// partially populated: either the whole result is consistent or Success is
// false with an Error.
type ExportResult struct {
	Success   bool
	Error     string
	Warnings  []string
	Tenant    *TenantExportData
	Global    *GlobalExportData
	Full      *FullExportData
	Filename  string
	Formatted *FormattedData
	Metadata  ExportMetadata
}

// ImportResult is the envelope returned by every import call. Success is true
// only when Errors is empty; a failed import has been fully rolled back.
type ImportResult struct {
	Success           bool
	RecordsImported   map[string]int
	RecordsSkipped    map[string]int
	Errors            []string
	Warnings          []string
	BackupCreated     string
	RollbackAvailable bool
	DryRun            bool
}

// NewImportResult returns an empty result with allocated count maps.
func NewImportResult() *ImportResult {
	return &ImportResult{
		RecordsImported: make(map[string]int),
		RecordsSkipped:  make(map[string]int),
	}
}

// ValidationResult reports referential-integrity checks on a payload.
// Warnings never block an import; errors always do when reference validation
// is requested.
type ValidationResult struct {
	IsValid      bool
	Errors       []string
	Warnings     []string
	TotalRecords map[string]int
	ValidatedAt  time.Time
}

// BackupInfo describes one stored backup.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Type      string    `json:"type"` // tenant, global or full
	TenantID  string    `json:"tenant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// RestoreResult reports the outcome of replaying a backup.
type RestoreResult struct {
	Success bool
	Message string
}
