package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/nonibytes/eventsearch/eventsearch/storage"
	"github.com/nonibytes/eventsearch/internal/cliopt"
	"github.com/nonibytes/eventsearch/internal/cliutil"
)

func RunProjects(g cliopt.GlobalOptions, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "usage: eventsearch projects <add|list>")
		return 2
	}
	switch argv[0] {
	case "add":
		return runProjectsAdd(g, argv[1:])
	case "list":
		return runProjectsList(g, argv[1:])
	default:
		fmt.Fprintf(stderr, "unknown projects command: %s\n", argv[0])
		return 2
	}
}

func runProjectsAdd(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("projects add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var p storage.Project
	fs.Int64Var(&p.OrganizationID, "org", 0, "organization id")
	fs.Int64Var(&p.ID, "id", 0, "project id")
	fs.StringVar(&p.Slug, "slug", "", "project slug")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if p.OrganizationID == 0 || p.ID == 0 || p.Slug == "" {
		fmt.Fprintln(stderr, "missing --org, --id or --slug")
		return 2
	}

	return withDirectory(g, func(ctx context.Context, dir storage.Directory) error {
		if err := dir.AddProject(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Added project %d (%s) to organization %d\n", p.ID, p.Slug, p.OrganizationID)
		return nil
	})
}

func runProjectsList(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("projects list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var org int64
	var format string
	fs.Int64Var(&org, "org", 0, "organization id")
	fs.StringVar(&format, "format", "pretty", "format: pretty|json")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if org == 0 {
		fmt.Fprintln(stderr, "missing --org")
		return 2
	}

	return withDirectory(g, func(ctx context.Context, dir storage.Directory) error {
		projects, err := dir.ListProjects(ctx, org)
		if err != nil {
			return err
		}
		if cliutil.ParseOutputFormat(format) == cliutil.FormatJSON {
			if projects == nil {
				projects = []storage.Project{}
			}
			cliutil.PrintJSON(stdout, projects)
			return nil
		}
		for _, p := range projects {
			fmt.Fprintf(stdout, "%d\t%s\n", p.ID, p.Slug)
		}
		return nil
	})
}

func withDirectory(g cliopt.GlobalOptions, fn func(context.Context, storage.Directory) error) int {
	r, err := newRuntime(g)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer r.close()

	ctx := context.Background()
	dir, err := r.directory(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer dir.Close()

	if err := fn(ctx, dir); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
