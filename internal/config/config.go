package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Registry RegistryConfig
	Careers  CareersConfig
	Schema   SchemaConfig
	Site     SiteConfig
}

type ServerConfig struct {
	Port int
	// AdminToken enables /admin/* when set. Environment only.
	AdminToken    string
	SecureCookies string
}

type StorageConfig struct {
	DataDir string
	// Retention is how long an idle session keeps its answers.
	Retention string
}

type LogConfig struct {
	Level string
}

type RegistryConfig struct {
	Endpoint string
	APIKey   string
	Timeout  string
}

type CareersConfig struct {
	BoardsHost   string
	Org          string
	CacheTTL     string
	PriorityFile string
}

type SchemaConfig struct {
	// Dir overrides the embedded page schemas when set.
	Dir string
	// URL fetches schemas from "{URL}/data/{page}.json" and takes
	// precedence over Dir.
	URL string
}

type SiteConfig struct {
	VideoID   string
	EmbedBase string
}

// Secure reports whether session cookies carry the Secure attribute.
func (s ServerConfig) Secure() bool {
	switch strings.ToLower(strings.TrimSpace(s.SecureCookies)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          8080,
			SecureCookies: "true",
		},
		Storage: StorageConfig{
			DataDir:   defaultDataDir(),
			Retention: "720h",
		},
		Log: LogConfig{
			Level: "info",
		},
		Registry: RegistryConfig{
			Timeout: "30s",
		},
		Careers: CareersConfig{
			BoardsHost: "https://boards-api.greenhouse.io",
			CacheTTL:   "10m",
		},
		Site: SiteConfig{
			EmbedBase: "https://www.youtube-nocookie.com/embed/",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/regform/config.json, then applies REGFORM_* environment
// overrides. Secrets are only read from the environment.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	cfg.Registry.Endpoint = strings.TrimRight(cfg.Registry.Endpoint, "/")
	cfg.Careers.BoardsHost = strings.TrimRight(cfg.Careers.BoardsHost, "/")
	cfg.Schema.URL = strings.TrimRight(cfg.Schema.URL, "/")

	return cfg, nil
}

// RequireRegistry reports a descriptive error when the registry endpoint is
// not configured. Only the questionnaire server needs it.
func (c Config) RequireRegistry() error {
	if c.Registry.Endpoint == "" {
		return fmt.Errorf("missing required config: registry endpoint. " +
			"Set it via environment variable REGFORM_REGISTRY_ENDPOINT or `regform config set registry.endpoint <url>`")
	}
	return nil
}

// LogLevel maps the configured level name to a slog level.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration parses raw as a time.Duration, falling back to def when raw is
// empty or invalid.
func Duration(name, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration in config, using default", "key", name, "value", raw, "default", def)
		return def
	}
	return d
}
