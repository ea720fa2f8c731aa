// Package format converts in-memory export payloads into their serialized
// representations. SQL output is the disaster-recovery format (idempotent,
// directly replayable), CSV is the spreadsheet format (nested structure
// flattened, one file per entity), JSON is the canonical round-trip format.
package format

import (
	"fmt"

	"github.com/rythm-app/dataops/internal/model"
)

// Tenant serializes a tenant payload in the requested format.
func Tenant(d *model.TenantExportData, f model.Format) (*model.FormattedData, error) {
	switch f {
	case model.FormatSQL:
		return &model.FormattedData{Text: TenantSQL(d)}, nil
	case model.FormatCSV:
		return &model.FormattedData{Files: TenantCSV(d)}, nil
	case model.FormatJSON, "":
		text, err := TenantJSON(d)
		if err != nil {
			return nil, err
		}
		return &model.FormattedData{Text: text}, nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// Global serializes a global catalog payload in the requested format.
func Global(d *model.GlobalExportData, f model.Format) (*model.FormattedData, error) {
	switch f {
	case model.FormatSQL:
		return &model.FormattedData{Text: GlobalSQL(d)}, nil
	case model.FormatCSV:
		return &model.FormattedData{Files: GlobalCSV(d)}, nil
	case model.FormatJSON, "":
		text, err := GlobalJSON(d)
		if err != nil {
			return nil, err
		}
		return &model.FormattedData{Text: text}, nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// Full serializes a full-system payload. Only JSON preserves the nested
// global+tenants structure; SQL and CSV are per-scope formats.
func Full(d *model.FullExportData) (*model.FormattedData, error) {
	text, err := FullJSON(d)
	if err != nil {
		return nil, err
	}
	return &model.FormattedData{Text: text}, nil
}
