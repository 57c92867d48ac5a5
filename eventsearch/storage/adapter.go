package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/eventsearch/eventsearch/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Project is one project of an organization, as seen by the query scope.
type Project struct {
	ID             int64  `json:"id" msgpack:"id"`
	OrganizationID int64  `json:"organization_id" msgpack:"organization_id"`
	Slug           string `json:"slug" msgpack:"slug"`
}

// Directory resolves the projects a query may be scoped to.
type Directory interface {
	// LoadProjects returns the requested projects of orgID in id order. An
	// empty ids list selects every project of the organization. An id that
	// does not belong to the organization is an ErrNotFound error.
	LoadProjects(ctx context.Context, orgID int64, ids []int64) ([]Project, error)
	ListProjects(ctx context.Context, orgID int64) ([]Project, error)
	AddProject(ctx context.Context, p Project) error
	Close() error
}

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	DDL() string
	SQL() SQL
}

// SQL holds prepared SQL templates for common operations
type SQL struct {
	InsertProject   string // id, organization_id, slug
	FindConflicting string // id, organization_id, slug
	ListProjects    string // organization_id
}
