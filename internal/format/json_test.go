package format

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rythm-app/dataops/internal/model"
)

func TestTenantJSONRoundTrip(t *testing.T) {
	d := testTenantData()

	text, err := TenantJSON(d)
	if err != nil {
		t.Fatalf("TenantJSON() error = %v", err)
	}

	var back model.TenantExportData
	if err := json.Unmarshal([]byte(text), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Tenant.TenantID != d.Tenant.TenantID {
		t.Errorf("tenant_id = %q, want %q", back.Tenant.TenantID, d.Tenant.TenantID)
	}
	if back.Users[0].PasswordHash != d.Users[0].PasswordHash {
		t.Error("password hash must round-trip unchanged")
	}
	if len(back.Programs) != 1 || len(back.Programs[0].Workouts) != 1 {
		t.Error("nested workouts lost in round trip")
	}
	if back.Programs[0].Description == nil || *back.Programs[0].Description != *d.Programs[0].Description {
		t.Error("nullable description lost in round trip")
	}
}

func TestTenantJSONOmitsEmptyCollections(t *testing.T) {
	d := testTenantData()
	d.Sessions = nil

	text, err := TenantJSON(d)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, `"sessions"`) {
		t.Error("empty sessions must be omitted")
	}
}

func TestTenantDispatch(t *testing.T) {
	d := testTenantData()

	formatted, err := Tenant(d, model.FormatSQL)
	if err != nil {
		t.Fatal(err)
	}
	if formatted.Text == "" || formatted.Files != nil {
		t.Error("sql output must be single-document text")
	}

	formatted, err = Tenant(d, model.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if formatted.Text != "" || len(formatted.Files) == 0 {
		t.Error("csv output must be a file map")
	}

	if _, err := Tenant(d, model.Format("xml")); err == nil {
		t.Error("unknown format must error")
	}
}

func TestFullJSON(t *testing.T) {
	full := &model.FullExportData{
		Global:  &model.GlobalExportData{},
		Tenants: map[string]*model.TenantExportData{"t1": testTenantData()},
		Metadata: model.FullExportMetadata{
			TotalTenants: 1,
			Format:       "json",
		},
	}

	formatted, err := Full(full)
	if err != nil {
		t.Fatal(err)
	}

	var back model.FullExportData
	if err := json.Unmarshal([]byte(formatted.Text), &back); err != nil {
		t.Fatal(err)
	}
	if back.Metadata.TotalTenants != 1 {
		t.Errorf("total_tenants = %d, want 1", back.Metadata.TotalTenants)
	}
	if _, ok := back.Tenants["t1"]; !ok {
		t.Error("tenant snapshot missing after round trip")
	}
}
