package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "dev")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConfirmationTimeout != 10*time.Second {
		t.Fatalf("confirmation_timeout default = %s, want 10s", cfg.ConfirmationTimeout)
	}
	if !cfg.PreConnectBuffer {
		t.Fatal("pre_connect_buffer should default to true")
	}
	if cfg.Port != 8080 {
		t.Fatalf("port default = %d, want 8080", cfg.Port)
	}
	if cfg.CredentialEndpoint == "" {
		t.Fatal("credential_endpoint default missing")
	}
	// tokend requires a sandbox id, so the client must ship one.
	if cfg.SandboxID != "dev" {
		t.Fatalf("sandbox_id default = %q, want dev", cfg.SandboxID)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "dev")
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "sandbox_id: sbx-1\nagent_name: concierge\nconfirmation_timeout: 3s\npre_connect_buffer: false\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.dev.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SandboxID != "sbx-1" || cfg.AgentName != "concierge" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ConfirmationTimeout != 3*time.Second {
		t.Fatalf("confirmation_timeout = %s, want 3s", cfg.ConfirmationTimeout)
	}
	if cfg.PreConnectBuffer {
		t.Fatal("pre_connect_buffer override not applied")
	}
}
