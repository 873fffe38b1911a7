// Package config loads canopy settings from defaults, a YAML file and CANOPY_* variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes environment overrides: CANOPY_AGENT_INTERVAL -> agent.interval.
const EnvPrefix = "CANOPY_"

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Agent   AgentConfig   `koanf:"agent"`
	Store   StoreConfig   `koanf:"store"`
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tools   ToolsConfig   `koanf:"tools"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // auto, json, text
}

type AgentConfig struct {
	Mode     string        `koanf:"mode"` // manual, auto
	Interval time.Duration `koanf:"interval"`
	MaxTicks int           `koanf:"max_ticks"` // 0 means unlimited
}

type StoreConfig struct {
	Kind          string        `koanf:"kind"` // none, memory, file, redis
	Dir           string        `koanf:"dir"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	Prefix        string        `koanf:"prefix"`
	TTL           time.Duration `koanf:"ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, checkpoints are sealed.
	EncryptionKey string `koanf:"encryption_key"`
	// MaskKeys are regular expressions; matching keys are masked in checkpoints.
	MaskKeys []string `koanf:"mask_keys"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
	Tracing bool `koanf:"tracing"`
}

type ToolsConfig struct {
	File        string `koanf:"file"`
	AllowInline bool   `koanf:"allow_inline"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":          "info",
		"log.format":         "auto",
		"agent.mode":         "manual",
		"agent.interval":     "1s",
		"agent.max_ticks":    0,
		"store.kind":         "none",
		"store.dir":          ".canopy/blackboards",
		"store.redis_addr":   "localhost:6379",
		"store.redis_db":     0,
		"store.prefix":       "canopy:",
		"store.ttl":          "0s",
		"http.addr":          ":8080",
		"metrics.enabled":    false,
		"metrics.tracing":    false,
		"tools.file":         "",
		"tools.allow_inline": false,
	}
}

// Load layers defaults, the YAML file at path (optional) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// 2. Load from ENV (CANOPY_STORE_REDIS_ADDR -> store.redis_addr)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CANOPY_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// Validate rejects values the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Agent.Mode {
	case "manual", "auto":
	default:
		return fmt.Errorf("agent.mode: unknown mode %q", c.Agent.Mode)
	}
	if c.Agent.Interval <= 0 {
		return fmt.Errorf("agent.interval: must be positive, got %s", c.Agent.Interval)
	}
	if c.Agent.MaxTicks < 0 {
		return fmt.Errorf("agent.max_ticks: must not be negative")
	}
	switch c.Store.Kind {
	case "none", "memory", "file", "redis":
	default:
		return fmt.Errorf("store.kind: unknown store %q", c.Store.Kind)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("store.ttl: must not be negative")
	}
	return nil
}
