package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsSane(t *testing.T) {
	cfg := Default()
	if cfg.Tracking.RetryBudget <= 0 {
		t.Fatal("retry budget must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		t.Fatal("worker concurrency must be positive")
	}
	if len(cfg.ConsumerApplications) == 0 {
		t.Fatal("expected a default consumer application")
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	body := `{"defaultTenant":"acme","tracking":{"retryBudget":5}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultTenant != "acme" {
		t.Fatalf("defaultTenant = %q", cfg.DefaultTenant)
	}
	if cfg.Tracking.RetryBudget != 5 {
		t.Fatalf("retryBudget = %d", cfg.Tracking.RetryBudget)
	}
	// untouched fields keep defaults
	if cfg.Worker.Concurrency != Default().Worker.Concurrency {
		t.Fatalf("worker concurrency should keep default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "defaultTenant: acme\nconsumerApplications: [crm, billing]\nworker:\n  concurrency: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Fatalf("concurrency = %d", cfg.Worker.Concurrency)
	}
	if len(cfg.ConsumerApplications) != 2 || cfg.ConsumerApplications[1] != "billing" {
		t.Fatalf("consumerApplications = %v", cfg.ConsumerApplications)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("WRAPSYNC_TRACKING_RETRY_BUDGET", "7")
	t.Setenv("WRAPSYNC_CONSUMER_APPS", "crm, erp")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.Tracking.RetryBudget != 7 {
		t.Fatalf("retryBudget = %d", cfg.Tracking.RetryBudget)
	}
	if len(cfg.ConsumerApplications) != 2 || cfg.ConsumerApplications[1] != "erp" {
		t.Fatalf("consumerApplications = %v", cfg.ConsumerApplications)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
