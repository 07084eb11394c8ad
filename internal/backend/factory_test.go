package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) expected error")
	}

	_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
	if err == nil || !strings.Contains(err.Error(), "valid: files, sqlite") {
		t.Errorf("FromAppConfig() error = %v, want the valid types listed", err)
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "files", DataDir: "data", IndexSize: 8})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != FilesBackend || cfg.DataDirectory != "data" || cfg.IndexSize != 8 {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"files ok", Config{Type: FilesBackend, DataDirectory: "data"}, false},
		{"files without directory", Config{Type: FilesBackend}, true},
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "memory"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "files" || got[1] != "sqlite" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name   string
		config Config
	}{
		{"files", Config{Type: FilesBackend, DataDirectory: filepath.Join(dir, "data"), IndexSize: 16}},
		{"files without index", Config{Type: FilesBackend, DataDirectory: filepath.Join(dir, "noindex")}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "expenses.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewFactory(nil).CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer result.Cleanup()

			exercise(t, ctx, result.Repository)
		})
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "memory"})
	if err == nil {
		t.Fatal("CreateBackend() expected error")
	}
}

func exercise(t *testing.T, ctx context.Context, repo storage.Repository) {
	t.Helper()

	e, err := core.New(12.5, "Food", "Lunch")
	if err != nil {
		t.Fatalf("new expense: %v", err)
	}
	if _, err := repo.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	all, err := repo.LoadAll(ctx)
	if err != nil || len(all) != 1 || all[0] != e {
		t.Fatalf("LoadAll() = %v, %v", all, err)
	}
	deleted, err := repo.DeleteByID(ctx, e.ID())
	if err != nil || !deleted {
		t.Fatalf("DeleteByID() = %v, %v", deleted, err)
	}
}
