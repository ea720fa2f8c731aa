package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rythm-app/dataops/internal/model"
)

type failingBackups struct{}

func (failingBackups) CreateTenantBackup(ctx context.Context, tenantID string) (string, error) {
	return "", errors.New("disk full")
}

func (failingBackups) CreateGlobalBackup(ctx context.Context) (string, error) {
	return "", errors.New("disk full")
}

func TestImportTenantNilPayload(t *testing.T) {
	im := New(nil, nil)

	res := im.ImportTenant(context.Background(), nil, model.ImportOptions{})
	if res.Success {
		t.Fatal("Success = true for nil payload")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "missing or invalid tenant information" {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestImportTenantMissingTenantID(t *testing.T) {
	im := New(nil, nil)

	res := im.ImportTenant(context.Background(), &model.TenantExportData{}, model.ImportOptions{})
	if res.Success {
		t.Fatal("Success = true for payload without tenant id")
	}
}

func TestImportTenantBackupWithoutManager(t *testing.T) {
	im := New(nil, nil)
	data := &model.TenantExportData{Tenant: model.Tenant{TenantID: "t1"}}

	res := im.ImportTenant(context.Background(), data, model.ImportOptions{CreateBackup: true})
	if res.Success {
		t.Fatal("Success = true without a backup manager")
	}
	if res.Errors[0] != "backup requested but no backup manager configured" {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestImportTenantFailedBackupAborts(t *testing.T) {
	im := New(nil, failingBackups{})
	data := &model.TenantExportData{Tenant: model.Tenant{TenantID: "t1"}}

	res := im.ImportTenant(context.Background(), data, model.ImportOptions{CreateBackup: true})
	if res.Success {
		t.Fatal("Success = true after failed backup")
	}
	if !strings.Contains(res.Errors[0], "creating backup: disk full") {
		t.Errorf("Errors = %v", res.Errors)
	}
	if res.BackupCreated != "" || res.RollbackAvailable {
		t.Error("no backup must be reported after a failure")
	}
}

func TestImportGlobalDataNilPayload(t *testing.T) {
	im := New(nil, nil)

	res := im.ImportGlobalData(context.Background(), nil, model.ImportOptions{})
	if res.Success {
		t.Fatal("Success = true for nil payload")
	}
	if res.Errors[0] != "missing global data payload" {
		t.Errorf("Errors = %v", res.Errors)
	}
}
