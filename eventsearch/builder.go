// Package eventsearch compiles search queries over an events dataset into
// backend-agnostic where trees.
package eventsearch

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
	"github.com/nonibytes/eventsearch/eventsearch/planner"
	"github.com/nonibytes/eventsearch/eventsearch/query"
	"github.com/nonibytes/eventsearch/eventsearch/storage"
)

const (
	projectIDField = "project.id"
	timestampField = "timestamp"
)

// Logger receives one debug line per compile pass.
type Logger interface {
	Debug(msg string, fields ...interface{})
}

// Recorder receives the outcome and latency of every compile pass.
type Recorder interface {
	RecordCompile(dataset, outcome string, d time.Duration)
}

type Options struct {
	FreeTextMode planner.FreeTextMode
	Logger       Logger
	Metrics      Recorder
}

// QueryContext is everything one compile pass depends on. Projects is the
// project scope already loaded from a storage.Directory.
type QueryContext struct {
	Dataset        string
	OrganizationID int64
	Projects       []storage.Project
	Start          time.Time
	End            time.Time
	// Now anchors relative timestamps; zero means the current time.
	Now    time.Time
	Fields []string
	Query  string
}

// Output is the result of a compile pass. Where holds only the conditions
// of the query string; Scope holds the project and time-range conditions.
type Output struct {
	PassID   string
	Dataset  string
	Selected []expr.Selected
	Where    expr.And
	Scope    []expr.Node
}

// SQL renders the output as a SELECT over table; an empty table uses the
// dataset name.
func (o *Output) SQL(table string, opts *expr.EncoderOptions) string {
	if table == "" {
		table = o.Dataset
	}
	nodes := append([]expr.Node{o.Where}, o.Scope...)
	return expr.NewEncoder(opts).EncodeSelect(table, o.Selected, nodes...)
}

// Builder compiles queries against a registry of dataset catalogs. It holds
// no per-pass state and is safe for concurrent use.
type Builder struct {
	registry *catalog.Registry
	opts     Options
}

func NewBuilder(registry *catalog.Registry, opts Options) *Builder {
	if opts.FreeTextMode == "" {
		opts.FreeTextMode = planner.FreeTextAll
	}
	return &Builder{registry: registry, opts: opts}
}

// Compile runs one compile pass. It is all-or-nothing: on error no partial
// output is returned.
func (b *Builder) Compile(qc QueryContext) (*Output, error) {
	start := time.Now()
	passID := uuid.NewString()
	if qc.Dataset == "" {
		qc.Dataset = catalog.DatasetSpans
	}

	out, err := b.compile(passID, qc)

	outcome := "ok"
	switch {
	case errors.IsUserError(err):
		outcome = "user_error"
	case err != nil:
		outcome = "error"
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordCompile(qc.Dataset, outcome, time.Since(start))
	}
	if b.opts.Logger != nil {
		fields := []interface{}{"pass_id", passID, "dataset", qc.Dataset, "outcome", outcome, "query", qc.Query}
		if err != nil {
			fields = append(fields, "error", err.Error())
		} else {
			fields = append(fields, "conditions", len(expr.Conditions(out.Where)))
		}
		b.opts.Logger.Debug("compile pass", fields...)
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) compile(passID string, qc QueryContext) (*Output, error) {
	cat, err := b.registry.Get(qc.Dataset)
	if err != nil {
		return nil, err
	}
	resolver := catalog.NewResolver(cat)

	now := qc.Now
	if now.IsZero() {
		now = time.Now()
	}
	slugs, err := projectSlugs(qc)
	if err != nil {
		return nil, err
	}

	selected, err := resolver.Select(qc.Fields)
	if err != nil {
		return nil, err
	}

	tokens, err := query.Parse(qc.Query)
	if err != nil {
		return nil, err
	}
	compiler := planner.NewCompiler(resolver, planner.Options{
		Now:          now.UTC(),
		FreeTextMode: b.opts.FreeTextMode,
		Projects:     slugs,
	})
	where, err := planner.Assemble(compiler, tokens)
	if err != nil {
		return nil, err
	}

	scope, err := scopeConditions(cat, resolver, qc)
	if err != nil {
		return nil, err
	}

	return &Output{
		PassID:   passID,
		Dataset:  cat.Dataset(),
		Selected: selected,
		Where:    where,
		Scope:    scope,
	}, nil
}

func projectSlugs(qc QueryContext) (map[string]int64, error) {
	slugs := make(map[string]int64, len(qc.Projects))
	for _, p := range qc.Projects {
		if qc.OrganizationID != 0 && p.OrganizationID != qc.OrganizationID {
			return nil, errors.InvalidValue("project", p.Slug, "project does not belong to the organization")
		}
		slugs[p.Slug] = p.ID
	}
	return slugs, nil
}

// scopeConditions restricts a query to its projects and time range
func scopeConditions(cat *catalog.Catalog, resolver *catalog.Resolver, qc QueryContext) ([]expr.Node, error) {
	var scope []expr.Node

	if len(qc.Projects) > 0 {
		if _, ok := cat.Get(projectIDField); !ok {
			return nil, errors.Catalog(cat.Dataset(), projectIDField, "a project scope needs a project id field")
		}
		ids := make([]int64, len(qc.Projects))
		for i, p := range qc.Projects {
			ids[i] = p.ID
		}
		scope = append(scope, expr.Cond(resolver.Resolve(projectIDField).Expression, expr.OpIn, ids))
	}

	if qc.Start.IsZero() && qc.End.IsZero() {
		return scope, nil
	}
	if _, ok := cat.Get(timestampField); !ok {
		return nil, errors.Catalog(cat.Dataset(), timestampField, "a time range needs a timestamp field")
	}
	if !qc.Start.IsZero() && !qc.End.IsZero() && !qc.Start.Before(qc.End) {
		raw := strings.Join([]string{qc.Start.UTC().Format(time.RFC3339), qc.End.UTC().Format(time.RFC3339)}, "..")
		return nil, errors.InvalidValue(timestampField, raw, "start must be before end")
	}
	ts := resolver.Resolve(timestampField).Expression
	if !qc.Start.IsZero() {
		scope = append(scope, expr.Cond(ts, expr.OpGte, qc.Start.UTC()))
	}
	if !qc.End.IsZero() {
		scope = append(scope, expr.Cond(ts, expr.OpLt, qc.End.UTC()))
	}
	return scope, nil
}
