package cliopt

import (
	"flag"
	"strings"

	"github.com/nonibytes/eventsearch/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Empty values (and a negative RedisDB) leave the config file value alone.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string

	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Catalogs     string
	FreeTextMode string
	PrintMetrics bool
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{RedisDB: -1}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigPath, "config", g.ConfigPath, "config file (default: eventsearch.yaml in ., $HOME/.eventsearch, /etc/eventsearch)")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")

	fs.StringVar(&g.Backend, "backend", g.Backend, "project store backend: sqlite|postgres")
	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite directory or explicit .db file path")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "database/sql driver: sqlite (pure go) or sqlite3 (cgo)")
	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema")

	fs.StringVar(&g.RedisAddr, "redis-addr", g.RedisAddr, "redis address host:port, enables the project cache")
	fs.StringVar(&g.RedisPassword, "redis-password", g.RedisPassword, "redis password")
	fs.IntVar(&g.RedisDB, "redis-db", g.RedisDB, "redis db number")

	fs.StringVar(&g.Catalogs, "catalogs", g.Catalogs, "comma separated YAML catalog files")
	fs.StringVar(&g.FreeTextMode, "free-text", g.FreeTextMode, "free text mode: all|last")
	fs.BoolVar(&g.PrintMetrics, "print-metrics", g.PrintMetrics, "dump prometheus metrics to stderr on exit")
}

// Apply overrides cfg with every flag that was given
func (g GlobalOptions) Apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.LogLevel, g.LogLevel)
	set(&cfg.Store.Backend, g.Backend)
	set(&cfg.Store.SQLitePath, g.SQLitePath)
	set(&cfg.Store.SQLiteDriver, g.SQLiteDriver)
	set(&cfg.Store.PostgresDSN, g.PostgresDSN)
	set(&cfg.Store.PostgresSchema, g.PostgresSchema)
	set(&cfg.Cache.RedisAddr, g.RedisAddr)
	set(&cfg.Cache.RedisPassword, g.RedisPassword)
	set(&cfg.FreeTextMode, g.FreeTextMode)
	if g.RedisDB >= 0 {
		cfg.Cache.RedisDB = g.RedisDB
	}
	if g.Catalogs != "" {
		cfg.CatalogFiles = nil
		for _, p := range strings.Split(g.Catalogs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.CatalogFiles = append(cfg.CatalogFiles, p)
			}
		}
	}
}
