package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.AuthToken = "secret"
	cfg.Redis.HistoryKey = "chat:history"
	cfg.Redis.ActiveUsersKey = "chat:active"
	cfg.Redis.MessageExpiry = 3600
	cfg.Redis.MaxMessages = 50
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: false},
		{name: "missing auth token", mutate: func(c *Config) { c.AuthToken = "" }, wantErr: true},
		{name: "missing history key", mutate: func(c *Config) { c.Redis.HistoryKey = "" }, wantErr: true},
		{name: "missing active users key", mutate: func(c *Config) { c.Redis.ActiveUsersKey = "" }, wantErr: true},
		{name: "zero expiry", mutate: func(c *Config) { c.Redis.MessageExpiry = 0 }, wantErr: true},
		{name: "negative expiry", mutate: func(c *Config) { c.Redis.MessageExpiry = -1 }, wantErr: true},
		{name: "zero max messages", mutate: func(c *Config) { c.Redis.MaxMessages = 0 }, wantErr: true},
		{name: "zero history limit", mutate: func(c *Config) { c.HistoryLimit = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
addr: ":9090"
auth_token: "file-token"
shutdown_timeout: 3s
redis:
  addr: "redis:6379"
  history_key: "chat:history"
  active_users_key: "chat:active"
  message_expiry: 7200
  max_messages: 25
nats:
  url: "nats://bus:4222"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Addr)
	}
	if cfg.AuthToken != "file-token" {
		t.Errorf("auth_token = %q, want file-token", cfg.AuthToken)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout = %v, want 3s", cfg.ShutdownTimeout)
	}
	if cfg.Redis.HistoryKey != "chat:history" || cfg.Redis.MaxMessages != 25 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Nats.URL != "nats://bus:4222" {
		t.Errorf("nats url = %q, want nats://bus:4222", cfg.Nats.URL)
	}
	// Values absent from the file keep their defaults.
	if cfg.HistoryLimit != 100 {
		t.Errorf("history_limit = %d, want default 100", cfg.HistoryLimit)
	}
	if cfg.Nats.ConnectTimeout != 3*time.Second {
		t.Errorf("nats connect_timeout = %v, want default 3s", cfg.Nats.ConnectTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected default config written to %s: %v", path, statErr)
	}
	if cfg.Addr != Default().Addr {
		t.Errorf("addr = %q, want default %q", cfg.Addr, Default().Addr)
	}
	// The generated default is incomplete on purpose: required settings
	// must be filled in before the server will start.
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config should fail validation until required fields are set")
	}
}
