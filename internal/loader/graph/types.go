// Package graph holds the module graph produced by the loader.
package graph

import (
	"sort"

	"martianoff/flowc/internal/scanner"
)

// TargetKind tells how an import specifier was resolved.
type TargetKind int

const (
	// Virtual targets are files of the graph.
	Virtual TargetKind = iota
	// Override targets are values injected by the caller.
	Override
	// External targets were resolved by nothing; the sandbox tries host
	// modules at require time.
	External
)

func (k TargetKind) String() string {
	switch k {
	case Virtual:
		return "virtual"
	case Override:
		return "override"
	case External:
		return "external"
	}
	return "unknown"
}

// Target is the resolution of one specifier.
type Target struct {
	Kind TargetKind
	// Path is set for Virtual targets.
	Path string
}

// Module is one file of the graph.
type Module struct {
	Path       string
	Source     []byte
	Body       string          // CommonJS body
	Imports    *scanner.Result // static scan of Source
	Specifiers []string        // distinct specifiers in source order
	Targets    map[string]Target
	Children   []*Edge // outgoing edges to Virtual targets
	Parents    []*Edge // incoming edges
}

// Edge is an import of one module by another.
type Edge struct {
	From      *Module
	To        *Module
	Specifier string
}

// Graph is the set of modules reachable from a list of entries. It is not
// modified once the loader returns it.
type Graph struct {
	Entries   []string
	Modules   map[string]*Module
	Order     []string // discovery order
	Overrides map[string]any
	// Passes is the number of resolution passes the loader ran (1 or 2).
	Passes    int
	externals map[string]bool
}

// New creates an empty graph for the given entries.
func New(entries []string, overrides map[string]any) *Graph {
	return &Graph{
		Entries:   entries,
		Modules:   make(map[string]*Module),
		Overrides: overrides,
		externals: make(map[string]bool),
	}
}

// AddModule adds a module if its path is new and returns the stored module.
func (g *Graph) AddModule(m *Module) *Module {
	if existing, ok := g.Modules[m.Path]; ok {
		return existing
	}
	g.Modules[m.Path] = m
	g.Order = append(g.Order, m.Path)
	return m
}

// AddEdge links from to to through spec.
func (g *Graph) AddEdge(from, to *Module, spec string) *Edge {
	edge := &Edge{From: from, To: to, Specifier: spec}
	from.Children = append(from.Children, edge)
	to.Parents = append(to.Parents, edge)
	return edge
}

// AddExternal records a specifier nothing resolved.
func (g *Graph) AddExternal(spec string) {
	g.externals[spec] = true
}

// Module returns the module at path, or nil.
func (g *Graph) Module(path string) *Module {
	return g.Modules[path]
}

// Ordered returns the modules in discovery order.
func (g *Graph) Ordered() []*Module {
	out := make([]*Module, 0, len(g.Order))
	for _, p := range g.Order {
		out = append(out, g.Modules[p])
	}
	return out
}

// Externals returns the unresolved specifiers, sorted.
func (g *Graph) Externals() []string {
	out := make([]string, 0, len(g.externals))
	for s := range g.externals {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsExternal reports whether spec was left unresolved.
func (g *Graph) IsExternal(spec string) bool {
	return g.externals[spec]
}
