package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("STEPONE_TEST_KEY", "secret123")
	os.Unsetenv("STEPONE_TEST_MISSING")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "${STEPONE_TEST_KEY}", "secret123"},
		{"unset without default becomes empty", "${STEPONE_TEST_MISSING}", ""},
		{"unset with default", "${STEPONE_TEST_MISSING:-fallback}", "fallback"},
		{"set variable ignores default", "${STEPONE_TEST_KEY:-other}", "secret123"},
		{"embedded in text", "key=${STEPONE_TEST_KEY}!", "key=secret123!"},
		{"no variables", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnvVars(tt.in); got != tt.want {
				t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("STEPONE_TEST_API_KEY", "live-key")

	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"gemini": {"apiKey": "${STEPONE_TEST_API_KEY}"},
		"server": {"port": 9001}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "live-key" {
		t.Errorf("expected expanded API key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Gemini.Model == "" {
		t.Error("expected default model to survive partial config")
	}
}

func TestLoad_MissingKeyExpandsToEmpty(t *testing.T) {
	os.Unsetenv("STEPONE_TEST_NO_SUCH_KEY")

	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"gemini": {"apiKey": "${STEPONE_TEST_NO_SUCH_KEY}"}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" {
		t.Fatalf("expected empty key for unset variable, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoad_FileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.General.LogLevel = "verbose" }, "logLevel"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty public dir", func(c *Config) { c.Server.PublicDir = "" }, "publicDir"},
		{"history enabled without path", func(c *Config) {
			c.History.Enabled = true
			c.History.DBPath = ""
		}, "dbPath"},
		{"telegram enabled without token", func(c *Config) {
			c.Channels.Telegram.Enabled = true
			c.Channels.Telegram.Token = ""
		}, "token"},
		{"metrics endpoint without slash", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Endpoint = "metrics"
		}, "endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.Model = "gemini-2.0-flash"

	v, err := GetByPath(cfg, "gemini.model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "gemini-2.0-flash" {
		t.Errorf("expected model value, got %v", v)
	}

	if _, err := GetByPath(cfg, "gemini.nonexistent"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := Defaults()

	if err := SetByPath(cfg, "server.port", "9090"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}

	if err := SetByPath(cfg, "history.enabled", "true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.History.Enabled {
		t.Error("expected history.enabled to be true")
	}
}

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.APIKey = "AIzaSyExampleExampleExample"
	cfg.Channels.Telegram.Token = "12345:AAexampletoken"

	s := Sanitize(cfg)

	if s.Gemini.APIKey == cfg.Gemini.APIKey {
		t.Error("API key was not masked")
	}
	if !strings.HasPrefix(s.Gemini.APIKey, "AIza") {
		t.Errorf("mask should keep a recognizable prefix, got %q", s.Gemini.APIKey)
	}
	if s.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Error("telegram token was not masked")
	}
	// Original must be untouched.
	if cfg.Gemini.APIKey != "AIzaSyExampleExampleExample" {
		t.Error("Sanitize mutated the original config")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults()
	cfg.Gemini.APIKey = ""
	cfg.Server.Port = 8123
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Server.Port != 8123 {
		t.Errorf("expected port 8123 after reload, got %d", got.Server.Port)
	}
}
