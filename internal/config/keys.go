package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "REGFORM_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.secure_cookies", typ: kString, env: "REGFORM_SERVER_SECURE_COOKIES",
		apply:   func(cfg *Config, v any) { cfg.Server.SecureCookies = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.SecureCookies },
	},
	{
		key: "server.admin_token", typ: kString, env: "REGFORM_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "REGFORM_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.retention", typ: kString, env: "REGFORM_STORAGE_RETENTION",
		apply:   func(cfg *Config, v any) { cfg.Storage.Retention = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Retention },
	},
	{
		key: "log.level", typ: kString, env: "REGFORM_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "registry.endpoint", typ: kString, env: "REGFORM_REGISTRY_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Registry.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Registry.Endpoint },
	},
	{
		key: "registry.timeout", typ: kString, env: "REGFORM_REGISTRY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Registry.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Registry.Timeout },
	},
	{
		key: "registry.api_key", typ: kString, env: "REGFORM_REGISTRY_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Registry.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Registry.APIKey },
	},
	{
		key: "careers.boards_host", typ: kString, env: "REGFORM_CAREERS_BOARDS_HOST",
		apply:   func(cfg *Config, v any) { cfg.Careers.BoardsHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Careers.BoardsHost },
	},
	{
		key: "careers.org", typ: kString, env: "REGFORM_CAREERS_ORG",
		apply:   func(cfg *Config, v any) { cfg.Careers.Org = v.(string) },
		extract: func(cfg Config) any { return cfg.Careers.Org },
	},
	{
		key: "careers.cache_ttl", typ: kString, env: "REGFORM_CAREERS_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Careers.CacheTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Careers.CacheTTL },
	},
	{
		key: "careers.priority_file", typ: kString, env: "REGFORM_CAREERS_PRIORITY_FILE",
		apply:   func(cfg *Config, v any) { cfg.Careers.PriorityFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Careers.PriorityFile },
	},
	{
		key: "schema.dir", typ: kString, env: "REGFORM_SCHEMA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Schema.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Schema.Dir },
	},
	{
		key: "schema.url", typ: kString, env: "REGFORM_SCHEMA_URL",
		apply:   func(cfg *Config, v any) { cfg.Schema.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Schema.URL },
	},
	{
		key: "site.video_id", typ: kString, env: "REGFORM_SITE_VIDEO_ID",
		apply:   func(cfg *Config, v any) { cfg.Site.VideoID = v.(string) },
		extract: func(cfg Config) any { return cfg.Site.VideoID },
	},
	{
		key: "site.embed_base", typ: kString, env: "REGFORM_SITE_EMBED_BASE",
		apply:   func(cfg *Config, v any) { cfg.Site.EmbedBase = v.(string) },
		extract: func(cfg Config) any { return cfg.Site.EmbedBase },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
