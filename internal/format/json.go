package format

import (
	"encoding/json"
	"fmt"

	"github.com/rythm-app/dataops/internal/model"
)

// TenantJSON pretty-prints the tenant payload with two-space indent. This is
// the canonical round-trip format: the output re-imports unchanged.
func TenantJSON(d *model.TenantExportData) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling tenant data: %w", err)
	}
	return string(data), nil
}

// GlobalJSON pretty-prints the global catalog payload.
func GlobalJSON(d *model.GlobalExportData) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling global data: %w", err)
	}
	return string(data), nil
}

// FullJSON pretty-prints a full-system payload.
func FullJSON(d *model.FullExportData) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling full export: %w", err)
	}
	return string(data), nil
}
