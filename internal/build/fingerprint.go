package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"slices"
	"sort"

	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/loader"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/pathres"
)

// fingerprint hashes what a build of g depends on, read from the file system
// as it is now: the reachable module paths and contents, the target every
// specifier resolves to today, and the identity of the override map.
// Re-resolving the specifiers catches files that appeared or moved and
// would change the graph without touching any module already in it.
func (b *Builder) fingerprint(ctx context.Context, g *graph.Graph) (string, error) {
	h := sha256.New()
	res := pathres.NewResolver(b.fs)

	paths := g.Reachable()
	sort.Strings(paths)
	for _, p := range paths {
		m := g.Module(p)
		write(h, p)

		content, err := b.fs.Read(ctx, p)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", p, err)
		}
		if content == nil {
			write(h, "\x01missing")
		} else {
			h.Write(normalizeLineEndings(content))
			h.Write([]byte{0})
		}

		specs := slices.Clone(m.Specifiers)
		sort.Strings(specs)
		for _, spec := range specs {
			target, err := b.target(ctx, res, p, spec)
			if err != nil {
				return "", fmt.Errorf("resolving %q from %s: %w", spec, p, err)
			}
			write(h, spec)
			write(h, target)
		}
	}

	keys := b.overrideKeys()
	for _, k := range keys {
		write(h, k)
		write(h, describe(b.opts.Overrides[k]))
	}

	return "h1:" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func (b *Builder) overrideKeys() []string {
	keys := make([]string, 0, len(b.opts.Overrides)+1)
	for k := range b.opts.Overrides {
		keys = append(keys, k)
	}
	keys = append(keys, b.dslModule())
	sort.Strings(keys)
	return slices.Compact(keys)
}

func (b *Builder) dslModule() string {
	if b.opts.DSLModule == "" {
		return dsl.DefaultModule
	}
	return b.opts.DSLModule
}

// target describes where spec imported from "from" resolves, following the
// loader's order: overrides, virtual files, external resolvers.
func (b *Builder) target(ctx context.Context, res *pathres.Resolver, from, spec string) (string, error) {
	if spec == b.dslModule() {
		return "dsl", nil
	}
	if value, ok := b.opts.Overrides[spec]; ok {
		return b.redirectTarget(ctx, res, value)
	}

	if !pathres.IsBare(spec) {
		p, found, err := res.Resolve(ctx, from, spec)
		if err != nil {
			return "", err
		}
		if !found {
			return "missing", nil
		}
		return "virtual:" + p, nil
	}

	for _, r := range b.externals {
		value, ok, err := r.ResolveExternal(ctx, b.fs, spec)
		if err != nil {
			return "", err
		}
		if ok {
			return b.redirectTarget(ctx, res, value)
		}
	}
	return "external", nil
}

func (b *Builder) redirectTarget(ctx context.Context, res *pathres.Resolver, value any) (string, error) {
	redirect, ok := value.(loader.Redirect)
	if !ok {
		return describe(value), nil
	}
	p, found, err := res.Resolve(ctx, "/", pathres.Normalize(redirect.Path))
	if err != nil {
		return "", err
	}
	if !found {
		return "missing:" + redirect.Path, nil
	}
	return "virtual:" + p, nil
}

func describe(value any) string {
	if r, ok := value.(loader.Redirect); ok {
		return "redirect:" + pathres.Normalize(r.Path)
	}
	return fmt.Sprintf("override:%T", value)
}

func write(h hash.Hash, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

func normalizeLineEndings(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
