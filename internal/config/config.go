// Package config loads truthtrail settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, variables
// from .env files, then the process environment. Environment variables
// carry the TRUTHTRAIL_ prefix, e.g. TRUTHTRAIL_SYNC_MAX_RETRIES.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/roach88/truthtrail/internal/kv"
	"github.com/roach88/truthtrail/internal/live"
	"github.com/roach88/truthtrail/internal/snapshot"
	"github.com/roach88/truthtrail/internal/syncqueue"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TRUTHTRAIL_"

// DefaultEnvFile is loaded when present and no other env file is named.
const DefaultEnvFile = ".env"

// Config is the full application configuration.
type Config struct {
	// Store selects the durable kv backend: sqlite, redis or memory.
	Store string `yaml:"store" env:"STORE"`

	// Database is the sqlite file path.
	Database string `yaml:"database" env:"DATABASE"`

	Redis       RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	Remote      RemoteConfig  `yaml:"remote" envPrefix:"REMOTE_"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"SNAPSHOT_TTL"`
	Sync        SyncConfig    `yaml:"sync" envPrefix:"SYNC_"`
	Live        LiveConfig    `yaml:"live" envPrefix:"LIVE_"`
	Log         LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// RedisConfig configures the redis kv backend.
type RedisConfig struct {
	Addr   string `yaml:"addr" env:"ADDR"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// RemoteConfig configures the remote service bus.
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
}

// SyncConfig configures the sync queue.
type SyncConfig struct {
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	Interval   time.Duration `yaml:"interval" env:"INTERVAL"`
}

// LiveConfig configures live session cleanup.
type LiveConfig struct {
	CleanupAttempts int           `yaml:"cleanup_attempts" env:"CLEANUP_ATTEMPTS"`
	CleanupDelay    time.Duration `yaml:"cleanup_delay" env:"CLEANUP_DELAY"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store:    kv.KindSQLite,
		Database: "truthtrail.db",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: kv.DefaultRedisPrefix,
		},
		SnapshotTTL: snapshot.DefaultTTL,
		Sync: SyncConfig{
			MaxRetries: syncqueue.DefaultMaxRetries,
			Interval:   30 * time.Second,
		},
		Live: LiveConfig{
			CleanupAttempts: live.DefaultAttempts,
			CleanupDelay:    live.DefaultDelay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. envFiles are loaded into the process
// environment first without overriding variables already set; with none
// given, DefaultEnvFile is used if it exists.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	if cfg.Remote.Enabled && cfg.Remote.RedisAddr == "" {
		cfg.Remote.RedisAddr = cfg.Redis.Addr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown backends, missing addresses and non-positive budgets.
func (c Config) Validate() error {
	switch c.Store {
	case kv.KindSQLite:
		if c.Database == "" {
			return errors.New("config: database is required for the sqlite store")
		}
	case kv.KindRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis store")
		}
	case kv.KindMemory:
	default:
		return errors.Errorf("config: unknown store %q", c.Store)
	}

	if c.Remote.Enabled && c.Remote.RedisAddr == "" {
		return errors.New("config: remote.redis_addr is required when remote is enabled")
	}
	if c.SnapshotTTL <= 0 {
		return errors.Errorf("config: snapshot_ttl must be positive, got %s", c.SnapshotTTL)
	}
	if c.Sync.MaxRetries < 1 {
		return errors.Errorf("config: sync.max_retries must be at least 1, got %d", c.Sync.MaxRetries)
	}
	if c.Sync.Interval <= 0 {
		return errors.Errorf("config: sync.interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Live.CleanupAttempts < 1 {
		return errors.Errorf("config: live.cleanup_attempts must be at least 1, got %d", c.Live.CleanupAttempts)
	}
	if c.Live.CleanupDelay < 0 {
		return errors.Errorf("config: live.cleanup_delay must not be negative, got %s", c.Live.CleanupDelay)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// KVOptions maps the store settings to kv.Open options.
func (c Config) KVOptions() kv.Options {
	return kv.Options{
		Kind:        c.Store,
		Path:        c.Database,
		RedisAddr:   c.Redis.Addr,
		RedisPrefix: c.Redis.Prefix,
	}
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file decodes to io.EOF; keep the defaults.
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return errors.Wrap(err, "parse config")
	}
	return nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		files = []string{DefaultEnvFile}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "load env file")
	}
	return nil
}
