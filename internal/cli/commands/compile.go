package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/nonibytes/eventsearch/eventsearch"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
	"github.com/nonibytes/eventsearch/eventsearch/storage"
	"github.com/nonibytes/eventsearch/eventsearch/storage/sqlbuilder"
	"github.com/nonibytes/eventsearch/internal/cliopt"
	"github.com/nonibytes/eventsearch/internal/cliutil"
)

func RunCompile(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var q, dataset, fields, projects, start, end, now, format, dialect, table string
	var org int64
	var bind bool
	fs.StringVar(&q, "query", "", "search query")
	fs.StringVar(&q, "q", "", "search query")
	fs.StringVar(&dataset, "dataset", "", "dataset (default from config)")
	fs.StringVar(&dataset, "d", "", "dataset (default from config)")
	fs.StringVar(&fields, "fields", "", "selected fields f1,f2")
	fs.StringVar(&fields, "f", "", "selected fields f1,f2")
	fs.Int64Var(&org, "org", 0, "organization id; loads the project scope from the store")
	fs.StringVar(&projects, "projects", "", "project ids 1,2 (default: every project of --org)")
	fs.StringVar(&start, "start", "", "range start, RFC3339 or YYYY-MM-DD")
	fs.StringVar(&end, "end", "", "range end (exclusive)")
	fs.StringVar(&now, "now", "", "reference time for relative timestamps")
	fs.StringVar(&format, "format", "pretty", "format: pretty|json|sql|msgpack")
	fs.StringVar(&dialect, "dialect", "clickhouse", "sql dialect: clickhouse|duckdb")
	fs.StringVar(&table, "table", "", "sql table (default: dataset name)")
	fs.BoolVar(&bind, "placeholders", false, "sql: bind values as placeholders")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	r, err := newRuntime(g)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer r.close()

	qc := eventsearch.QueryContext{
		Dataset:        dataset,
		OrganizationID: org,
		Fields:         cliutil.ParseFields(fields),
		Query:          q,
	}
	if qc.Dataset == "" {
		qc.Dataset = r.cfg.Dataset
	}
	for _, t := range []struct {
		raw string
		dst *time.Time
	}{{start, &qc.Start}, {end, &qc.End}, {now, &qc.Now}} {
		if *t.dst, err = cliutil.ParseTime(t.raw); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	if org != 0 {
		ids, err := cliutil.ParseIDs(projects)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		if qc.Projects, err = loadScope(context.Background(), r, org, ids); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	} else if projects != "" {
		fmt.Fprintln(stderr, "--projects requires --org")
		return 2
	}

	b, err := r.builder()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	out, err := b.Compile(qc)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	switch cliutil.ParseOutputFormat(format) {
	case cliutil.FormatJSON:
		cliutil.PrintJSON(stdout, outputMap(out))
	case cliutil.FormatMsgpack:
		if err := cliutil.WriteMsgpack(stdout, outputMap(out)); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case cliutil.FormatSQL:
		opts := &expr.EncoderOptions{Dialect: expr.ParseDialect(dialect)}
		var args *sqlbuilder.Builder
		if bind {
			style := sqlbuilder.PlaceholderQuestion
			if opts.Dialect == expr.DialectDuckDB {
				style = sqlbuilder.PlaceholderDollar
			}
			args = sqlbuilder.New(style)
			opts.Args = args
		}
		fmt.Fprintln(stdout, out.SQL(table, opts))
		if args != nil {
			cliutil.PrintJSON(stdout, args.Args())
		}
	default:
		printPretty(out)
	}
	return 0
}

func loadScope(ctx context.Context, r *runtime, org int64, ids []int64) ([]storage.Project, error) {
	dir, err := r.directory(ctx)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	return dir.LoadProjects(ctx, org, ids)
}

func outputMap(out *eventsearch.Output) map[string]any {
	selected := make([]any, len(out.Selected))
	for i, s := range out.Selected {
		selected[i] = map[string]any{"alias": s.Alias, "expr": expr.ExpressionToMap(s.Expr)}
	}
	scope := make([]any, len(out.Scope))
	for i, n := range out.Scope {
		scope[i] = expr.ToMap(n)
	}
	return map[string]any{
		"pass_id":  out.PassID,
		"dataset":  out.Dataset,
		"selected": selected,
		"where":    expr.ToMap(out.Where),
		"scope":    scope,
	}
}

func printPretty(out *eventsearch.Output) {
	enc := expr.NewEncoder(nil)
	fmt.Fprintf(stdout, "pass %s on %s\n", out.PassID, out.Dataset)
	if len(out.Selected) > 0 {
		fmt.Fprintln(stdout, "\nselect:")
		for _, s := range out.Selected {
			fmt.Fprintf(stdout, "  %s = %s\n", s.Alias, enc.EncodeExpression(s.Expr))
		}
	}
	fmt.Fprintln(stdout, "\nwhere:")
	if len(out.Where.Children) == 0 {
		fmt.Fprintln(stdout, "  (everything)")
	}
	for _, n := range out.Where.Children {
		fmt.Fprintf(stdout, "  %s\n", enc.Encode(n))
	}
	if len(out.Scope) > 0 {
		parts := make([]string, len(out.Scope))
		for i, n := range out.Scope {
			parts[i] = enc.Encode(n)
		}
		fmt.Fprintf(stdout, "\nscope:\n  %s\n", strings.Join(parts, "\n  "))
	}
}
