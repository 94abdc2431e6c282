package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// nonexistent .env keeps the developer's local file out of tests
func load(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AIRSHIP_CONFIG", "")
	cfg := load(t)

	if cfg.Addr() != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.Addr())
	}
	if cfg.Network.RPCEndpoint != RPCEndpoint {
		t.Errorf("rpc endpoint = %s", cfg.Network.RPCEndpoint)
	}
	if cfg.Network.ConfirmTimeout != 90*time.Second {
		t.Errorf("confirm timeout = %v", cfg.Network.ConfirmTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIRSHIP_CONFIG", "")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CONFIRM_POLL_MS", "250")
	t.Setenv("KEYSTORE_PASSPHRASE", "s3cret")

	cfg := load(t)
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Network.ConfirmPoll != 250*time.Millisecond {
		t.Errorf("poll = %v", cfg.Network.ConfirmPoll)
	}
	if cfg.Keystore.Passphrase != "s3cret" {
		t.Error("passphrase not read from env")
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("AIRSHIP_CONFIG", "")
	t.Setenv("PORT", "http")
	if _, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airship.yaml")
	yml := `
server:
  port: 7000
network:
  confirm_timeout: 30s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRSHIP_CONFIG", path)
	t.Setenv("PORT", "")

	cfg := load(t)
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Network.ConfirmTimeout != 30*time.Second {
		t.Errorf("confirm timeout = %v", cfg.Network.ConfirmTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %s", cfg.Log.Level)
	}
	// endpoints are not file-configurable
	if cfg.Network.LimitOrderAPI != LimitOrderAPIURL {
		t.Errorf("limit order api = %s", cfg.Network.LimitOrderAPI)
	}

	// env still wins over the file
	t.Setenv("PORT", "7001")
	if cfg := load(t); cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want env override 7001", cfg.Server.Port)
	}
}

func TestYAMLRejectsUnknownCommitment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airship.yaml")
	if err := os.WriteFile(path, []byte("network:\n  commitment: finalised\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRSHIP_CONFIG", path)
	t.Setenv("PORT", "")

	if _, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for misspelled commitment")
	}
}
