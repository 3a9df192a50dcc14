// Package loader builds the module graph of a set of entry files read through
// a virtual file system.
package loader

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/pathres"
	"martianoff/flowc/internal/scanner"
	"martianoff/flowc/internal/transpile"
	"martianoff/flowc/internal/vfs"
)

// Redirect is an override value that points a specifier at a virtual file.
// The file is loaded into the graph like any relative import.
type Redirect struct {
	Path string
}

// Options configures a Builder.
type Options struct {
	// Overrides maps specifiers to injected values. Redirect values are
	// followed into the file system; any other value is handed to the
	// sandbox untouched.
	Overrides map[string]any
	// Externals are consulted for every specifier the first pass could not
	// resolve.
	Externals []ExternalResolver
	// Transpiler defaults to esbuild.
	Transpiler transpile.Transpiler
}

// Builder resolves and transpiles module graphs.
type Builder struct {
	fs         vfs.FS
	resolver   *pathres.Resolver
	transpiler transpile.Transpiler
	overrides  map[string]any
	externals  []ExternalResolver
}

// NewBuilder creates a Builder reading through fs.
func NewBuilder(fs vfs.FS, opts Options) *Builder {
	tr := opts.Transpiler
	if tr == nil {
		tr = transpile.New()
	}
	return &Builder{
		fs:         fs,
		resolver:   pathres.NewResolver(fs),
		transpiler: tr,
		overrides:  opts.Overrides,
		externals:  opts.Externals,
	}
}

// parsed is the per-file work shared by both passes.
type parsed struct {
	source  []byte
	body    string
	imports *scanner.Result
}

// Build loads every module reachable from entries.
//
// The first pass records specifiers nothing resolved. Each of them is
// offered to the external resolvers and every hit is added to the override
// map. When anything was added a second pass rebuilds the graph, which can
// pull in files only reachable through the new mappings. There is never a
// third pass: mappings are only added, so the second graph is a superset.
func (b *Builder) Build(ctx context.Context, entries []string) (*graph.Graph, error) {
	log := ctxlog.FromContext(ctx)
	normalized := make([]string, len(entries))
	for i, e := range entries {
		normalized[i] = pathres.Normalize(e)
	}

	cache := make(map[string]*parsed)
	overrides := make(map[string]any, len(b.overrides))
	maps.Copy(overrides, b.overrides)

	g, err := b.pass(ctx, normalized, overrides, cache)
	if err != nil {
		return nil, err
	}
	g.Passes = 1

	added := 0
	for _, spec := range g.Externals() {
		value, ok, err := b.resolveExternal(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("mapping external %q: %w", spec, err)
		}
		if ok {
			log.Debug("external mapped", "specifier", spec, "value", fmt.Sprint(value))
			overrides[spec] = value
			added++
		}
	}
	if added > 0 {
		g, err = b.pass(ctx, normalized, overrides, cache)
		if err != nil {
			return nil, err
		}
		g.Passes = 2
	}

	for _, cycle := range g.FindAllCycles() {
		log.Warn("import cycle", "cycle", strings.Join(cycle, " -> "))
	}
	log.Debug("graph built", "modules", len(g.Order), "externals", len(g.Externals()), "passes", g.Passes)
	return g, nil
}

func (b *Builder) resolveExternal(ctx context.Context, spec string) (any, bool, error) {
	for _, r := range b.externals {
		value, ok, err := r.ResolveExternal(ctx, b.fs, spec)
		if err != nil || ok {
			return value, ok, err
		}
	}
	return nil, false, nil
}

func (b *Builder) pass(ctx context.Context, entries []string, overrides map[string]any, cache map[string]*parsed) (*graph.Graph, error) {
	g := graph.New(entries, overrides)
	for _, entry := range entries {
		if _, err := b.load(ctx, g, entry, cache); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (b *Builder) load(ctx context.Context, g *graph.Graph, path string, cache map[string]*parsed) (*graph.Module, error) {
	if m := g.Module(path); m != nil {
		return m, nil
	}
	p, err := b.parse(ctx, path, cache)
	if err != nil {
		return nil, err
	}

	m := g.AddModule(&graph.Module{
		Path:       path,
		Source:     p.source,
		Body:       p.body,
		Imports:    p.imports,
		Specifiers: p.imports.Specifiers(),
		Targets:    make(map[string]graph.Target),
	})
	ctxlog.FromContext(ctx).Debug("module resolved", "path", path, "specifiers", len(m.Specifiers))

	for _, spec := range m.Specifiers {
		target, err := b.resolve(ctx, g, path, spec)
		if err != nil {
			return nil, err
		}
		m.Targets[spec] = target
		if target.Kind != graph.Virtual {
			continue
		}
		child, err := b.load(ctx, g, target.Path, cache)
		if err != nil {
			return nil, err
		}
		g.AddEdge(m, child, spec)
	}
	return m, nil
}

func (b *Builder) parse(ctx context.Context, path string, cache map[string]*parsed) (*parsed, error) {
	if p, ok := cache[path]; ok {
		return p, nil
	}
	src, err := b.fs.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if src == nil {
		return nil, flowerr.NewMissingModuleError(path)
	}

	imports := &scanner.Result{}
	if pathres.Ext(path) != ".json" {
		imports, err = scanner.ScanSource(ctx, path, src)
		if err != nil {
			return nil, err
		}
	}
	body, err := b.transpiler.Transpile(ctx, path, src)
	if err != nil {
		return nil, err
	}
	p := &parsed{source: src, body: body, imports: imports}
	cache[path] = p
	return p, nil
}

// resolve applies the resolution order: overrides, then virtual files, then
// external.
func (b *Builder) resolve(ctx context.Context, g *graph.Graph, from, spec string) (graph.Target, error) {
	if value, ok := g.Overrides[spec]; ok {
		redirect, isRedirect := value.(Redirect)
		if !isRedirect {
			return graph.Target{Kind: graph.Override}, nil
		}
		path, found, err := b.resolver.Resolve(ctx, "/", pathres.Normalize(redirect.Path))
		if err != nil {
			return graph.Target{}, err
		}
		if !found {
			return graph.Target{}, flowerr.NewMissingModuleError(pathres.Normalize(redirect.Path))
		}
		return graph.Target{Kind: graph.Virtual, Path: path}, nil
	}

	if pathres.IsRelative(spec) || pathres.IsAbsolute(spec) {
		path, found, err := b.resolver.Resolve(ctx, from, spec)
		if err != nil {
			return graph.Target{}, err
		}
		if !found {
			missing := pathres.Normalize(spec)
			if pathres.IsRelative(spec) {
				missing = pathres.Join(pathres.Dir(from), spec)
			}
			return graph.Target{}, flowerr.NewMissingModuleError(missing)
		}
		return graph.Target{Kind: graph.Virtual, Path: path}, nil
	}

	g.AddExternal(spec)
	return graph.Target{Kind: graph.External}, nil
}
