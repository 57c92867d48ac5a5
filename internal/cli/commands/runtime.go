package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nonibytes/eventsearch/eventsearch"
	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/planner"
	"github.com/nonibytes/eventsearch/eventsearch/storage"
	"github.com/nonibytes/eventsearch/eventsearch/storage/postgres"
	"github.com/nonibytes/eventsearch/eventsearch/storage/rediscache"
	"github.com/nonibytes/eventsearch/eventsearch/storage/sqlite"
	"github.com/nonibytes/eventsearch/internal/cliopt"
	"github.com/nonibytes/eventsearch/internal/cliutil"
	"github.com/nonibytes/eventsearch/internal/config"
	"github.com/nonibytes/eventsearch/internal/logging"
	"github.com/nonibytes/eventsearch/internal/metrics"
)

// Output streams; tests swap them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// runtime is what every command shares: config, logging, metrics and the
// dataset catalogs.
type runtime struct {
	cfg      *config.Config
	log      logging.Logger
	metrics  *metrics.Metrics
	registry *catalog.Registry
	print    bool
}

func newRuntime(g cliopt.GlobalOptions) (*runtime, error) {
	cfg, err := config.Load(g.ConfigPath, g.Apply)
	if err != nil {
		return nil, err
	}

	registry, err := catalog.LoadRegistry(cfg.CatalogFiles)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:      cfg,
		log:      logging.New(cfg.LogLevel),
		metrics:  metrics.New(),
		registry: registry,
		print:    g.PrintMetrics,
	}, nil
}

func (r *runtime) builder() (*eventsearch.Builder, error) {
	mode, err := planner.ParseFreeTextMode(r.cfg.FreeTextMode)
	if err != nil {
		return nil, err
	}
	return eventsearch.NewBuilder(r.registry, eventsearch.Options{
		FreeTextMode: mode,
		Logger:       r.log,
		Metrics:      r.metrics,
	}), nil
}

func (r *runtime) adapter() (storage.Adapter, error) {
	switch strings.ToLower(r.cfg.Store.Backend) {
	case "postgres", "pg":
		return postgres.New(r.cfg.Store.PostgresDSN, r.cfg.Store.PostgresSchema), nil
	case "sqlite", "":
		driver := r.cfg.Store.SQLiteDriver
		if driver == "" {
			driver = sqlite.DriverModernc
		}
		return sqlite.NewWithDriver(cliutil.ResolveSQLitePath(r.cfg.Store.SQLitePath), driver), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", r.cfg.Store.Backend)
	}
}

// directory opens the project store, behind the redis cache when one is
// configured.
func (r *runtime) directory(ctx context.Context) (storage.Directory, error) {
	a, err := r.adapter()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, a)
	if err != nil {
		return nil, err
	}
	if r.cfg.Cache.RedisAddr == "" {
		return store, nil
	}

	client, err := rediscache.Dial(ctx, r.cfg.Cache.RedisAddr, r.cfg.Cache.RedisPassword, r.cfg.Cache.RedisDB)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	r.log.Debug("project cache enabled", "addr", r.cfg.Cache.RedisAddr, "ttl", r.cfg.Cache.TTL)
	return rediscache.New(store, client, r.cfg.Cache.TTL, r.metrics), nil
}

func (r *runtime) close() {
	// syncing stderr fails on some terminals; there is nothing left to do then
	_ = r.log.Sync()
	if !r.print {
		return
	}
	if err := r.metrics.WriteText(stderr); err != nil {
		fmt.Fprintln(stderr, err)
	}
}
