package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nonibytes/eventsearch/eventsearch/storage"
	"github.com/nonibytes/eventsearch/eventsearch/storage/sqlbuilder"
)

// DriverModernc and DriverCGO are the database/sql names registered by
// modernc.org/sqlite and github.com/mattn/go-sqlite3. The caller imports the
// driver it wants.
const (
	DriverModernc = "sqlite"
	DriverCGO     = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_busy_timeout=5000"
	} else {
		dsn = dsn + "&_busy_timeout=5000"
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) DDL() string {
	return ddlBase
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}
