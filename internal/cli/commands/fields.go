package commands

import (
	"flag"
	"fmt"
	"strings"

	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
	"github.com/nonibytes/eventsearch/internal/cliopt"
	"github.com/nonibytes/eventsearch/internal/cliutil"
)

type fieldInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Type       string   `json:"type"`
	Expression string   `json:"expression"`
	Labels     []string `json:"labels,omitempty"`
	Lookup     string   `json:"lookup,omitempty"`
}

func RunFields(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("fields", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var dataset, format string
	fs.StringVar(&dataset, "dataset", "", "dataset (default from config)")
	fs.StringVar(&dataset, "d", "", "dataset (default from config)")
	fs.StringVar(&format, "format", "pretty", "format: pretty|json")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	r, err := newRuntime(g)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer r.close()

	if dataset == "" {
		dataset = r.cfg.Dataset
	}
	cat, err := r.registry.Get(dataset)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintf(stderr, "known datasets: %s\n", strings.Join(r.registry.Datasets(), ", "))
		return 1
	}

	enc := expr.NewEncoder(nil)
	resolver := catalog.NewResolver(cat)
	var fields []fieldInfo
	for _, e := range cat.Entries() {
		x := resolver.Resolve(e.Name).Expression
		fields = append(fields, fieldInfo{
			Name:       e.Name,
			Kind:       string(e.Kind),
			Type:       string(e.ValueType),
			Expression: enc.EncodeExpression(x),
			Labels:     e.EnumLabels(),
			Lookup:     e.Lookup,
		})
	}

	if cliutil.ParseOutputFormat(format) == cliutil.FormatJSON {
		cliutil.PrintJSON(stdout, fields)
		return 0
	}
	fmt.Fprintf(stdout, "%s (text: %s, tags: %s)\n", cat.Dataset(), cat.TextField(), cat.TagColumn())
	for _, f := range fields {
		fmt.Fprintf(stdout, "  %-20s %-10s %-10s %s\n", f.Name, f.Kind, f.Type, f.Expression)
		if len(f.Labels) > 0 {
			fmt.Fprintf(stdout, "  %-20s labels: %s\n", "", strings.Join(f.Labels, ", "))
		}
	}
	return 0
}
