package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when the config file is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(newFileBackend(writeTempConfig(t, `{}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Registry.Timeout != "30s" {
		t.Errorf("Registry.Timeout = %q, want %q", cfg.Registry.Timeout, "30s")
	}
	if cfg.Careers.BoardsHost != "https://boards-api.greenhouse.io" {
		t.Errorf("Careers.BoardsHost = %q", cfg.Careers.BoardsHost)
	}
	if cfg.Storage.Retention != "720h" {
		t.Errorf("Storage.Retention = %q, want %q", cfg.Storage.Retention, "720h")
	}
	if !cfg.Server.Secure() {
		t.Error("session cookies should be secure by default")
	}
	if cfg.Site.EmbedBase != "https://www.youtube-nocookie.com/embed/" {
		t.Errorf("Site.EmbedBase = %q", cfg.Site.EmbedBase)
	}
}

func TestSecureCookies(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"ON", true},
		{"1", true},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		if got := (ServerConfig{SecureCookies: tt.raw}).Secure(); got != tt.want {
			t.Errorf("Secure(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// TestFileValues verifies values are read from the JSON file.
func TestFileValues(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{
		"server.port": 9090,
		"registry.endpoint": "https://registry.example.com/api/",
		"careers.org": "acme",
		"schema.dir": "/srv/schemas",
		"schema.url": "https://forms.example.com/"
	}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Registry.Endpoint != "https://registry.example.com/api" {
		t.Errorf("Registry.Endpoint = %q, trailing slash should be trimmed", cfg.Registry.Endpoint)
	}
	if cfg.Careers.Org != "acme" {
		t.Errorf("Careers.Org = %q, want %q", cfg.Careers.Org, "acme")
	}
	if cfg.Schema.Dir != "/srv/schemas" {
		t.Errorf("Schema.Dir = %q", cfg.Schema.Dir)
	}
	if cfg.Schema.URL != "https://forms.example.com" {
		t.Errorf("Schema.URL = %q, trailing slash should be trimmed", cfg.Schema.URL)
	}
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"registry.endpoint": "https://file.example.com"}`)
	t.Setenv("REGFORM_REGISTRY_ENDPOINT", "https://env.example.com")
	t.Setenv("REGFORM_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Registry.Endpoint != "https://env.example.com" {
		t.Errorf("Registry.Endpoint = %q, want env value", cfg.Registry.Endpoint)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, invalid env value should keep default", cfg.Server.Port)
	}
}

// TestSecretFromEnvOnly verifies the API key is never read from the file.
func TestSecretFromEnvOnly(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"registry.api_key": "from-file"}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Registry.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.Registry.APIKey)
	}

	t.Setenv("REGFORM_REGISTRY_API_KEY", "from-env")
	cfg, err = loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Registry.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want %q", cfg.Registry.APIKey, "from-env")
	}
}

func TestRequireRegistry(t *testing.T) {
	var cfg Config
	err := cfg.RequireRegistry()
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err)
	}

	cfg.Registry.Endpoint = "https://registry.example.com"
	if err := cfg.RequireRegistry(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "7000"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "registry.api_key", "x"); err == nil {
		t.Error("expected error when setting a secret")
	}
	if err := setKeyWith(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.GetInt("server.port")
	if err != nil || !ok || port != 7000 {
		t.Errorf("GetInt(server.port) = %d, %v, %v; want 7000, true, nil", port, ok, err)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"bogus", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		if got := Duration("k", tt.raw, time.Minute); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestShowAllSkipsSecrets(t *testing.T) {
	secret := map[string]bool{"registry.api_key": true, "server.admin_token": true}
	for _, k := range ShowAll(defaults()) {
		if secret[k.Key] {
			t.Errorf("ShowAll exposed secret key %s", k.Key)
		}
	}
	for _, k := range ValidKeys() {
		if secret[k] {
			t.Errorf("ValidKeys listed secret key %s", k)
		}
	}
}

func TestAdminTokenFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGFORM_ADMIN_TOKEN", "tok")
	cfg, err := loadWith(newFileBackend(writeTempConfig(t, `{"server.admin_token": "file"}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.AdminToken != "tok" {
		t.Errorf("AdminToken = %q, want env value", cfg.Server.AdminToken)
	}
}
