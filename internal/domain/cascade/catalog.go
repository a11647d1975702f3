package cascade

import (
	"fmt"
	"sort"
)

// LevelDef names a level and the resource its options come from.
type LevelDef struct {
	Name     string
	Resource string
}

// Definition describes a chain independently of how options are fetched.
type Definition struct {
	Name   string
	Levels []LevelDef
}

// Catalog holds the chain definitions used by the console forms.
type Catalog struct {
	defs map[string]Definition
}

// DefaultCatalog returns the chains used by the location, occupancy and
// storage forms.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Definition{Name: "location", Levels: []LevelDef{
			{Name: "country", Resource: "paises"},
			{Name: "department", Resource: "departamentos"},
			{Name: "municipality", Resource: "municipios"},
			{Name: "site", Resource: "sedes"},
			{Name: "block", Resource: "bloques"},
			{Name: "space", Resource: "espacios"},
			{Name: "warehouse", Resource: "almacenes"},
		}},
		Definition{Name: "occupancy", Levels: []LevelDef{
			{Name: "site", Resource: "sedes"},
			{Name: "block", Resource: "bloques"},
			{Name: "space", Resource: "espacios"},
		}},
		Definition{Name: "storage", Levels: []LevelDef{
			{Name: "site", Resource: "sedes"},
			{Name: "block", Resource: "bloques"},
			{Name: "space", Resource: "espacios"},
			{Name: "warehouse", Resource: "almacenes"},
		}},
	)
}

// NewCatalog builds a catalog from definitions.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.Name] = d
	}
	return c
}

// Get returns the named definition.
func (c *Catalog) Get(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the chain names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FetcherFactory returns the fetch function for a resource.
type FetcherFactory func(resource string) FetchFunc

// Build turns a definition into a chain. autoSelect applies to every level.
func (d Definition) Build(fetcher FetcherFactory, autoSelect bool, policy StalePolicy) (*Chain, error) {
	if len(d.Levels) == 0 {
		return nil, fmt.Errorf("chain %q has no levels", d.Name)
	}
	levels := make([]Level, len(d.Levels))
	for i, l := range d.Levels {
		f := fetcher(l.Resource)
		if f == nil {
			return nil, fmt.Errorf("chain %q: no fetcher for resource %q", d.Name, l.Resource)
		}
		levels[i] = Level{Name: l.Name, Fetch: f, AutoSelectSingle: autoSelect}
	}
	return NewChain(d.Name, levels, policy), nil
}
