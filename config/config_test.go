package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
auth:
  publicKeyPath: "./jwt_public.pem"
postgres:
  dsn: "postgres://localhost/test"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Service != "presence-service" {
		t.Fatalf("service default mismatch: %q", cfg.Logging.Service)
	}
	if cfg.Logging.Env != "dev" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults mismatch: %+v", cfg.Logging)
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		t.Fatalf("allowed origins must have a default")
	}
	if got := cfg.ClockSkewDuration(); got != 30*time.Second {
		t.Fatalf("clock skew default mismatch: %v", got)
	}
}

func TestLoadConfig_ClockSkewParsed(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
auth:
  publicKeyPath: "./jwt_public.pem"
  clockSkew: "1m"
postgres:
  dsn: "postgres://localhost/test"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.ClockSkewDuration(); got != time.Minute {
		t.Fatalf("clock skew mismatch: %v", got)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no http.addr", "postgres:\n  dsn: \"x\"\nauth:\n  publicKeyPath: \"k\"\n"},
		{"no postgres.dsn", "http:\n  addr: \":8082\"\nauth:\n  publicKeyPath: \"k\"\n"},
		{"no auth key", "http:\n  addr: \":8082\"\npostgres:\n  dsn: \"x\"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.content)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
