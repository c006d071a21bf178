package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix scopes environment overrides. A double underscore separates key
// segments so keys that themselves contain underscores stay addressable,
// e.g. ROUTER_LOGGING__LEVEL=debug sets logging.level.
const envPrefix = "ROUTER_"

func defaultsProvider() *confmap.Confmap {
	return confmap.Provider(map[string]any{
		"router.listen":                          "0.0.0.0:8787",
		"router.original_base_url":               "https://api.anthropic.com",
		"openai.api_key_env":                     "OPENAI_API_KEY",
		"openai.reasoning_effort_default":        "minimal",
		"openai.reasoning_thresholds.low_max":    5000,
		"openai.reasoning_thresholds.medium_max": 15000,
		"openai.reasoning_model_prefixes":        []string{"gpt-5", "o4", "o3", "o1"},
		"timeouts_ms.connect":                    5000,
		"timeouts_ms.read":                       600000,
		"logging.level":                          "info",
		"logging.format":                         "json",
	}, ".")
}

// Load reads the configuration from the YAML file at path, layered over the
// built-in defaults and under environment overrides. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load configuration file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Store holds the active configuration snapshot and swaps it atomically on
// reload. Readers get an immutable snapshot; a request never observes a
// half-applied reload.
type Store struct {
	path    string
	current atomic.Pointer[Config]
}

// NewStore loads the initial snapshot from path.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(cfg)
	return s, nil
}

// Current returns the active snapshot.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Watch reloads the snapshot whenever the config file changes. A reload that
// fails to parse or validate is logged and the previous snapshot stays active.
// Watching stops when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	f := file.Provider(s.path)
	err := f.Watch(func(event any, err error) {
		if err != nil {
			slog.ErrorContext(ctx, "config watch error", "path", s.path, "error", err)
			return
		}
		cfg, err := Load(s.path)
		if err != nil {
			slog.ErrorContext(ctx, "config reload rejected, keeping previous snapshot", "path", s.path, "error", err)
			return
		}
		s.current.Store(cfg)
		slog.InfoContext(ctx, "configuration reloaded", "path", s.path, "overrides", len(cfg.Overrides))
	})
	if err != nil {
		return fmt.Errorf("failed to watch configuration file %s: %w", s.path, err)
	}
	go func() {
		<-ctx.Done()
		_ = f.Unwatch()
	}()
	return nil
}
