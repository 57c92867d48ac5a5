package postgres

import "github.com/nonibytes/eventsearch/eventsearch/storage"

const ddlBase = `
CREATE TABLE IF NOT EXISTS projects (
  id              BIGINT PRIMARY KEY,
  organization_id BIGINT NOT NULL,
  slug            TEXT   NOT NULL,
  UNIQUE (organization_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(organization_id, id);
`

var SQLTemplates = storage.SQL{
	InsertProject:   "INSERT INTO projects(id, organization_id, slug) VALUES($1, $2, $3)",
	FindConflicting: "SELECT id FROM projects WHERE id = $1 OR (organization_id = $2 AND slug = $3) LIMIT 1",
	ListProjects:    "SELECT id, organization_id, slug FROM projects WHERE organization_id = $1 ORDER BY id",
}
