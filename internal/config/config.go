package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "EVENTSEARCH"

type Config struct {
	LogLevel     string   `mapstructure:"log_level"`
	Dataset      string   `mapstructure:"dataset"`
	FreeTextMode string   `mapstructure:"free_text_mode"`
	CatalogFiles []string `mapstructure:"catalog_files"`
	Store        Store    `mapstructure:"store"`
	Cache        Cache    `mapstructure:"cache"`
}

type Store struct {
	Backend        string `mapstructure:"backend"` // sqlite or postgres
	SQLitePath     string `mapstructure:"sqlite_path"`
	SQLiteDriver   string `mapstructure:"sqlite_driver"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	PostgresSchema string `mapstructure:"postgres_schema"`
}

// Cache configures the Redis project cache; an empty RedisAddr disables it.
type Cache struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// Load reads configuration with priority order:
// 1. Environment variables (EVENTSEARCH_STORE_BACKEND, ...)
// 2. Configuration file: path if given, else eventsearch.yaml in the search paths
// 3. Default values
//
// overrides run on the merged config before it is validated, so that
// command-line flags can both fix and break it.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("eventsearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.eventsearch")
		v.AddConfigPath("/etc/eventsearch/")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for _, override := range overrides {
		override(&config)
	}
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("dataset", "spans")
	v.SetDefault("free_text_mode", "all")
	v.SetDefault("catalog_files", []string{})

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.sqlite_path", "eventsearch.db")
	v.SetDefault("store.sqlite_driver", "sqlite")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.postgres_schema", "eventsearch")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "5m")
}

func validate(c *Config) error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Store.Backend = strings.ToLower(c.Store.Backend)

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid store.backend %q (expected sqlite or postgres)", c.Store.Backend)
	}
	switch strings.ToLower(c.FreeTextMode) {
	case "", "all", "last":
	default:
		return fmt.Errorf("invalid free_text_mode %q (expected all or last)", c.FreeTextMode)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
