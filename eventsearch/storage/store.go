package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/nonibytes/eventsearch/eventsearch/storage/sqlbuilder"
)

// Store is a Directory over a SQL database reached through an Adapter.
type Store struct {
	adapter Adapter
	db      *sql.DB
}

var _ Directory = (*Store)(nil)

// Open connects through a and creates the projects table if needed
func Open(ctx context.Context, a Adapter) (*Store, error) {
	db, err := a.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, fmt.Sprintf("connect %s", a.Backend()), err)
	}
	if _, err := db.ExecContext(ctx, a.DDL()); err != nil {
		_ = db.Close()
		return nil, Wrap(ErrSQL, "create projects table", err)
	}
	return &Store{adapter: a, db: db}, nil
}

func (s *Store) Backend() Backend { return s.adapter.Backend() }

func (s *Store) Close() error {
	err := s.db.Close()
	if aerr := s.adapter.Close(); err == nil {
		err = aerr
	}
	return err
}

func (s *Store) AddProject(ctx context.Context, p Project) error {
	if p.ID <= 0 || p.OrganizationID <= 0 {
		return New(ErrInvalid, "project and organization ids must be positive")
	}
	if p.Slug == "" {
		return New(ErrInvalid, "project slug is required")
	}

	var existing int64
	err := s.db.QueryRowContext(ctx, s.adapter.SQL().FindConflicting, p.ID, p.OrganizationID, p.Slug).Scan(&existing)
	switch {
	case err == nil:
		return New(ErrConflict, fmt.Sprintf("project %d or slug %q already exists", p.ID, p.Slug))
	case !errors.Is(err, sql.ErrNoRows):
		return Wrap(ErrSQL, "check project", err)
	}

	if _, err := s.db.ExecContext(ctx, s.adapter.SQL().InsertProject, p.ID, p.OrganizationID, p.Slug); err != nil {
		return Wrap(ErrSQL, "insert project", err)
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context, orgID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, s.adapter.SQL().ListProjects, orgID)
	if err != nil {
		return nil, Wrap(ErrSQL, "list projects", err)
	}
	return scanProjects(rows)
}

func (s *Store) LoadProjects(ctx context.Context, orgID int64, ids []int64) ([]Project, error) {
	if len(ids) == 0 {
		return s.ListProjects(ctx, orgID)
	}

	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT id, organization_id, slug FROM projects WHERE organization_id = " + b.Arg(orgID) +
		" AND id IN (" + b.List(args) + ") ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return nil, Wrap(ErrSQL, "load projects", err)
	}
	projects, err := scanProjects(rows)
	if err != nil {
		return nil, err
	}
	if err := checkAllFound(orgID, ids, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func scanProjects(rows *sql.Rows) ([]Project, error) {
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Slug); err != nil {
			return nil, Wrap(ErrSQL, "scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrSQL, "iterate projects", err)
	}
	return projects, nil
}

// FilterProjects picks ids out of an organization's project list with the
// same contract as Directory.LoadProjects.
func FilterProjects(orgID int64, all []Project, ids []int64) ([]Project, error) {
	if len(ids) == 0 {
		return all, nil
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Project
	for _, p := range all {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if err := checkAllFound(orgID, ids, out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkAllFound(orgID int64, ids []int64, found []Project) error {
	have := make(map[int64]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	for _, id := range ids {
		if !have[id] {
			return New(ErrNotFound, fmt.Sprintf("project %d not found in organization %d", id, orgID))
		}
	}
	return nil
}
