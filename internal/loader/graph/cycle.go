package graph

import (
	"fmt"
	"strings"
)

// CycleError describes an import cycle.
type CycleError struct {
	Cycle []string // module paths forming the cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// DetectCycles returns a CycleError for the first cycle reachable from the
// entries, or nil.
func (g *Graph) DetectCycles() error {
	// 0 = unvisited, 1 = in progress, 2 = done
	state := make(map[string]int)
	path := make([]string, 0)

	var visit func(m *Module) error
	visit = func(m *Module) error {
		switch state[m.Path] {
		case 2:
			return nil
		case 1:
			for i, p := range path {
				if p == m.Path {
					cycle := append(append([]string(nil), path[i:]...), m.Path)
					return &CycleError{Cycle: cycle}
				}
			}
			return &CycleError{Cycle: []string{m.Path}}
		}

		state[m.Path] = 1
		path = append(path, m.Path)
		for _, edge := range m.Children {
			if err := visit(edge.To); err != nil {
				return err
			}
		}
		state[m.Path] = 2
		path = path[:len(path)-1]
		return nil
	}

	for _, entry := range g.Entries {
		if m := g.Modules[entry]; m != nil {
			if err := visit(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindAllCycles returns every cycle found by a DFS over all modules in
// discovery order.
func (g *Graph) FindAllCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	path := make([]string, 0)

	var dfs func(m *Module)
	dfs = func(m *Module) {
		visited[m.Path] = true
		onStack[m.Path] = true
		path = append(path, m.Path)

		for _, edge := range m.Children {
			child := edge.To
			if !visited[child.Path] {
				dfs(child)
				continue
			}
			if !onStack[child.Path] {
				continue
			}
			for i, p := range path {
				if p == child.Path {
					cycle := make([]string, len(path)-i+1)
					copy(cycle, path[i:])
					cycle[len(cycle)-1] = child.Path
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		path = path[:len(path)-1]
		onStack[m.Path] = false
	}

	for _, p := range g.Order {
		if !visited[p] {
			dfs(g.Modules[p])
		}
	}
	return cycles
}

// TopologicalSort returns the modules with dependencies before dependents.
func (g *Graph) TopologicalSort() ([]*Module, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	var result []*Module
	visited := make(map[string]bool)
	var visit func(m *Module)
	visit = func(m *Module) {
		if visited[m.Path] {
			return
		}
		visited[m.Path] = true
		for _, edge := range m.Children {
			visit(edge.To)
		}
		result = append(result, m)
	}
	for _, p := range g.Order {
		visit(g.Modules[p])
	}
	return result, nil
}

// Reachable returns the paths reachable from the entries, sorted by
// discovery order.
func (g *Graph) Reachable() []string {
	seen := make(map[string]bool)
	var walk func(m *Module)
	walk = func(m *Module) {
		if m == nil || seen[m.Path] {
			return
		}
		seen[m.Path] = true
		for _, edge := range m.Children {
			walk(edge.To)
		}
	}
	for _, e := range g.Entries {
		walk(g.Modules[e])
	}
	out := make([]string, 0, len(seen))
	for _, p := range g.Order {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}
