// Package build runs flow files through the whole pipeline: discovery,
// module graph, sandboxed execution, type extraction, transformation and
// validation.
package build

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/loader"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/loader/sandbox"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/pathres"
	"martianoff/flowc/internal/transformer"
	"martianoff/flowc/internal/typeinfo"
	"martianoff/flowc/internal/vfs"
)

// Result is the outcome of one build.
type Result struct {
	Model       *model.Model
	Diagnostics []transformer.Diagnostic
	Graph       *graph.Graph
	Entries     []string
	Fingerprint string
	// Cached is set when the result was served from the cache.
	Cached bool
	// Validation holds the model.Validate error, if any. An invalid model is
	// still returned so callers can report every problem at once.
	Validation error
}

// Builder orchestrates builds over one file system. It runs one build at a
// time.
type Builder struct {
	fs        vfs.FS
	opts      Options
	externals []loader.ExternalResolver
	mu        sync.Mutex
	cache     *Cache
}

// NewBuilder creates a builder for fs.
func NewBuilder(fs vfs.FS, opts Options) (*Builder, error) {
	opts = opts.withDefaults()
	for _, pattern := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	cache, err := NewCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	var externals []loader.ExternalResolver
	if len(opts.Paths) > 0 {
		externals = append(externals, loader.PathAliases(opts.Paths))
	}
	if len(opts.NodeModules) > 0 {
		externals = append(externals, loader.NodeModules{Dirs: opts.NodeModules})
	}
	return &Builder{fs: fs, opts: opts, externals: externals, cache: cache}, nil
}

// Discover lists the flow files below root that match the include patterns
// and none of the exclude patterns, sorted.
func (b *Builder) Discover(ctx context.Context, root string) ([]string, error) {
	root = pathres.Normalize(root)
	files, err := vfs.Files(ctx, b.fs, root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	var entries []string
	for _, file := range files {
		rel := strings.TrimPrefix(strings.TrimPrefix(file, root), "/")
		if matchAny(b.opts.Include, rel) && !matchAny(b.opts.Exclude, rel) {
			entries = append(entries, file)
		}
	}
	return entries, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Build discovers the flow files below root and builds them.
func (b *Builder) Build(ctx context.Context, root string) (*Result, error) {
	entries, err := b.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	return b.BuildEntries(ctx, entries)
}

// BuildEntries builds the given entry files, executed in order.
func (b *Builder) BuildEntries(ctx context.Context, entries []string) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, entries)
}

// BuildCached builds root unless the result cached under key is still
// current. A cached result is current when discovery yields the same
// entries and the fingerprint of its graph is unchanged.
func (b *Builder) BuildCached(ctx context.Context, key, root string) (*Result, error) {
	log := ctxlog.FromContext(ctx)
	entries, err := b.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cached, ok := b.cache.Get(key); ok && slices.Equal(cached.Entries, entries) {
		fp, err := b.fingerprint(ctx, cached.Graph)
		if err != nil {
			return nil, fmt.Errorf("fingerprinting %s: %w", root, err)
		}
		if fp == cached.Fingerprint {
			log.Debug("build cache hit", "key", key, "fingerprint", fp)
			hit := *cached
			hit.Cached = true
			return &hit, nil
		}
		log.Debug("build cache stale", "key", key)
	}

	res, err := b.run(ctx, entries)
	if err != nil {
		return nil, err
	}
	b.cache.Add(key, res)
	return res, nil
}

// Invalidate drops the cached result for key.
func (b *Builder) Invalidate(key string) {
	b.cache.Remove(key)
}

func (b *Builder) overrides(reg *dsl.Registry) map[string]any {
	out := make(map[string]any, len(b.opts.Overrides)+1)
	maps.Copy(out, b.opts.Overrides)
	maps.Copy(out, reg.Overrides())
	return out
}

// Graph discovers the flow files below root and loads their module graph
// without executing anything.
func (b *Builder) Graph(ctx context.Context, root string) (*graph.Graph, error) {
	entries, err := b.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx, dsl.NewRegistry(b.opts.DSLModule), entries)
}

func (b *Builder) load(ctx context.Context, reg *dsl.Registry, entries []string) (*graph.Graph, error) {
	lb := loader.NewBuilder(b.fs, loader.Options{
		Overrides:  b.overrides(reg),
		Externals:  b.externals,
		Transpiler: b.opts.Transpiler,
	})
	g, err := lb.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("loading modules: %w", err)
	}
	return g, nil
}

func (b *Builder) run(ctx context.Context, entries []string) (*Result, error) {
	log := ctxlog.FromContext(ctx)

	// Step 1: module graph
	reg := dsl.NewRegistry(b.opts.DSLModule)
	g, err := b.load(ctx, reg, entries)
	if err != nil {
		return nil, err
	}

	// Step 2: execute the entries against a fresh registry. Errors thrown
	// by flow code are returned as they are.
	ex := sandbox.New(nil, g, sandbox.Options{Natives: b.opts.Natives})
	if err := ex.Run(ctx, g.Entries...); err != nil {
		return nil, err
	}

	// Step 3: declared types of every module, dependencies first. Cyclic
	// imports have no such order and fall back to discovery order.
	modules, err := g.TopologicalSort()
	if err != nil {
		modules = g.Ordered()
	}
	types := typeinfo.NewSet()
	for _, m := range modules {
		set, err := typeinfo.ExtractSource(ctx, m.Path, m.Source)
		if err != nil {
			return nil, fmt.Errorf("extracting types: %w", err)
		}
		types.Merge(set)
	}

	// Step 4: transform
	tr, err := transformer.Transform(ctx, transformer.Input{
		Flows:        reg.Flows(),
		Integrations: reg.Integrations(),
		Types:        types,
		Graph:        g,
		DSLModule:    reg.ModuleName(),
	})
	if err != nil {
		return nil, fmt.Errorf("transforming: %w", err)
	}

	fp, err := b.fingerprint(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting: %w", err)
	}

	res := &Result{
		Model:       tr.Model,
		Diagnostics: tr.Diagnostics,
		Graph:       g,
		Entries:     g.Entries,
		Fingerprint: fp,
		Validation:  model.Validate(tr.Model),
	}
	if res.Validation != nil {
		log.Warn("model failed validation", "error", res.Validation)
	}
	log.Info("build finished",
		"entries", len(entries),
		"modules", len(g.Order),
		"flows", len(tr.Model.Flows),
		"messages", len(tr.Model.Messages),
		"warnings", len(tr.Warnings()))
	return res, nil
}
