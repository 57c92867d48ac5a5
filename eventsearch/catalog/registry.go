package catalog

import (
	"sort"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
)

// Registry holds the catalogs of every known dataset. It is immutable once
// built.
type Registry struct {
	catalogs map[string]*Catalog
}

// NewRegistry indexes catalogs by dataset. The spans catalog is always
// present unless a catalog for the same dataset replaces it.
func NewRegistry(catalogs ...*Catalog) (*Registry, error) {
	r := &Registry{catalogs: map[string]*Catalog{DatasetSpans: Spans()}}
	seen := make(map[string]bool, len(catalogs))
	for _, c := range catalogs {
		if seen[c.Dataset()] {
			return nil, errors.Catalog(c.Dataset(), "", "dataset defined more than once")
		}
		seen[c.Dataset()] = true
		r.catalogs[c.Dataset()] = c
	}
	return r, nil
}

// LoadRegistry builds a registry from YAML catalog files
func LoadRegistry(paths []string) (*Registry, error) {
	catalogs := make([]*Catalog, 0, len(paths))
	for _, p := range paths {
		c, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return NewRegistry(catalogs...)
}

// Get returns the catalog of dataset
func (r *Registry) Get(dataset string) (*Catalog, error) {
	c, ok := r.catalogs[dataset]
	if !ok {
		return nil, errors.Catalog(dataset, "", "unknown dataset")
	}
	return c, nil
}

// Datasets lists the registered datasets in sorted order
func (r *Registry) Datasets() []string {
	names := make([]string, 0, len(r.catalogs))
	for name := range r.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
