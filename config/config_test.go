package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Analysis.LookbackDays != 90 {
		t.Errorf("expected default lookback of 90 days, got %d", cfg.Analysis.LookbackDays)
	}
	if cfg.Server.Addr != "localhost:8787" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadServerConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: "0.0.0.0:9000"
analysis:
  lookback_days: 30
openai:
  api_key: "sk-test"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr not overridden: %q", cfg.Server.Addr)
	}
	if cfg.Analysis.LookbackDays != 30 {
		t.Errorf("lookback not overridden: %d", cfg.Analysis.LookbackDays)
	}
	// Untouched fields keep their defaults.
	if cfg.Analysis.TrendDelta != 0.2 {
		t.Errorf("trend delta default lost: %v", cfg.Analysis.TrendDelta)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("openai key not loaded: %q", cfg.OpenAI.APIKey)
	}
}

func TestEnvOverridesCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("env override not applied: %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadServerConfigBatchDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
batch:
  disabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if !cfg.Batch.Disabled {
		t.Error("batch.disabled not loaded from config file")
	}
	// The rest of the batch section keeps its defaults.
	if cfg.Batch.Schedule != "0 3 * * *" {
		t.Errorf("batch schedule default lost: %q", cfg.Batch.Schedule)
	}
	if cfg.Batch.RatePerMinute != 6 {
		t.Errorf("batch rate default lost: %v", cfg.Batch.RatePerMinute)
	}
}

func TestDefaultServerConfigBatchEnabled(t *testing.T) {
	if DefaultServerConfig().Batch.Disabled {
		t.Error("batch job must be enabled by default")
	}
}

func TestSaveServerConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultServerConfig()
	cfg.Server.Addr = "0.0.0.0:9999"
	cfg.Batch.Disabled = true
	if err := SaveServerConfig(cfg, path); err != nil {
		t.Fatalf("SaveServerConfig: %v", err)
	}

	loaded, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if loaded.Server.Addr != "0.0.0.0:9999" {
		t.Errorf("addr did not round-trip: %q", loaded.Server.Addr)
	}
	if !loaded.Batch.Disabled {
		t.Error("batch.disabled did not round-trip")
	}
	if loaded.Analysis.LookbackDays != 90 {
		t.Errorf("analysis defaults did not round-trip: %d", loaded.Analysis.LookbackDays)
	}
}
