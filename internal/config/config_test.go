package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(apiURLEnv, "")
	t.Setenv(storageDriverEnv, "")
	t.Setenv(storageDSNEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.API.RequestTimeout != 20*time.Second || cfg.API.FinalizeTimeout != 5*time.Minute {
		t.Fatalf("unexpected api timeouts %+v", cfg.API)
	}
	if cfg.Analysis.SingleCeiling != 92 || cfg.Analysis.BatchCeiling != 98 || cfg.Analysis.MaxImages != 9 {
		t.Fatalf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if cfg.Payment.ConfirmTries != 3 || cfg.Payment.ConfirmInterval != 900*time.Millisecond {
		t.Fatalf("unexpected payment defaults %+v", cfg.Payment)
	}
	if cfg.Storage.Driver != "sqlite3" || cfg.Storage.DSN == "" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	raw := `
api:
  baseUrl: https://staging.example.test
  finalizeTimeout: 8m
cache:
  historyTtl: 2m
analysis:
  batchPause: 150ms
  maxImages: 6
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(apiURLEnv, "")
	t.Setenv(storageDriverEnv, "Memory")
	t.Setenv(storageDSNEnv, "")
	t.Setenv(logLevelEnv, "debug")

	cfg := Load()
	if cfg.API.BaseURL != "https://staging.example.test" {
		t.Fatalf("expected file base url, got %s", cfg.API.BaseURL)
	}
	if cfg.API.FinalizeTimeout != 8*time.Minute || cfg.API.RequestTimeout != 20*time.Second {
		t.Fatalf("unexpected timeouts %+v", cfg.API)
	}
	if cfg.Cache.HistoryTTL != 2*time.Minute || cfg.Cache.ProfileTTL != 30*time.Second {
		t.Fatalf("unexpected cache ttl %+v", cfg.Cache)
	}
	if cfg.Analysis.BatchPause != 150*time.Millisecond || cfg.Analysis.MaxImages != 6 || cfg.Analysis.SingleCeiling != 92 {
		t.Fatalf("unexpected analysis %+v", cfg.Analysis)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected env driver override, got %s", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(configPathEnv, "")
	t.Setenv(storageDriverEnv, "")
	t.Setenv(storageDSNEnv, "")
	t.Setenv(logLevelEnv, "")
	// Registered so the variable is restored after the test; godotenv
	// only fills variables that are unset.
	t.Setenv(apiURLEnv, "")
	os.Unsetenv(apiURLEnv)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(apiURLEnv+"=http://localhost:8000\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg := Load()
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected .env base url, got %s", cfg.API.BaseURL)
	}
}

func TestLoadSurvivesBrokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(apiURLEnv, "")
	t.Setenv(storageDriverEnv, "")
	t.Setenv(storageDSNEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()
	if cfg.API.BaseURL != defaultAPIURL {
		t.Fatalf("broken file must fall back to defaults, got %s", cfg.API.BaseURL)
	}
}

func TestLoadFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cli.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: postgres\n  dsn: postgres://u:p@db/cg\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(storageDriverEnv, "")
	t.Setenv(storageDSNEnv, "")

	cfg := LoadFrom(path)
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://u:p@db/cg" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
}

func TestProgressCeilingsStayBelowCompletion(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cli.yaml")
	if err := os.WriteFile(path, []byte("analysis:\n  singleCeiling: 150\n  batchCeiling: 97\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFrom(path)
	if cfg.Analysis.SingleCeiling != maxProgressCeiling {
		t.Fatalf("expected ceiling clamped to %d, got %v", maxProgressCeiling, cfg.Analysis.SingleCeiling)
	}
	if cfg.Analysis.BatchCeiling != 97 {
		t.Fatalf("in-range ceiling must be kept, got %v", cfg.Analysis.BatchCeiling)
	}
}
