package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"martianoff/flowc/internal/pathres"
	"martianoff/flowc/internal/vfs"
)

// ExternalResolver maps a bare specifier the graph could not resolve to an
// override value. ok is false when the resolver does not know the specifier.
type ExternalResolver interface {
	ResolveExternal(ctx context.Context, fs vfs.FS, spec string) (value any, ok bool, err error)
}

// ExternalResolverFunc adapts a function to ExternalResolver.
type ExternalResolverFunc func(ctx context.Context, fs vfs.FS, spec string) (any, bool, error)

func (f ExternalResolverFunc) ResolveExternal(ctx context.Context, fs vfs.FS, spec string) (any, bool, error) {
	return f(ctx, fs, spec)
}

// PathAliases resolves import-map style aliases. Keys are either exact
// specifiers ("@dsl") or prefixes ending in "/*" ("@app/*"); values are
// absolute virtual paths, with a trailing "/*" for prefix aliases.
type PathAliases map[string]string

func (a PathAliases) ResolveExternal(ctx context.Context, fs vfs.FS, spec string) (any, bool, error) {
	res := pathres.NewResolver(fs)
	for _, key := range a.keys() {
		target, ok := a.match(key, spec)
		if !ok {
			continue
		}
		path, found, err := res.Resolve(ctx, "/", target)
		if err != nil {
			return nil, false, err
		}
		if found {
			return Redirect{Path: path}, true, nil
		}
	}
	return nil, false, nil
}

// keys orders exact aliases first, then prefixes longest first.
func (a PathAliases) keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := strings.HasSuffix(keys[i], "*"), strings.HasSuffix(keys[j], "*")
		if wi != wj {
			return !wi
		}
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (a PathAliases) match(key, spec string) (string, bool) {
	value := a[key]
	if !strings.HasSuffix(key, "*") {
		if key != spec {
			return "", false
		}
		return pathres.Normalize(value), true
	}
	prefix := strings.TrimSuffix(key, "*")
	if !strings.HasPrefix(spec, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(spec, prefix)
	return pathres.Normalize(strings.Replace(value, "*", rest, 1)), true
}

// NodeModules resolves packages installed under a node_modules directory of
// the virtual file system.
type NodeModules struct {
	// Dirs are absolute node_modules directories, searched in order.
	Dirs []string
}

type packageJSON struct {
	Module string `json:"module"`
	Main   string `json:"main"`
}

func (n NodeModules) ResolveExternal(ctx context.Context, fs vfs.FS, spec string) (any, bool, error) {
	name, sub := splitPackage(spec)
	if name == "" {
		return nil, false, nil
	}
	res := pathres.NewResolver(fs)
	for _, dir := range n.Dirs {
		pkgDir := pathres.Join(dir, name)
		var candidates []string
		if sub != "" {
			candidates = append(candidates, pathres.Join(pkgDir, sub))
		} else {
			entries, err := n.entries(ctx, fs, pkgDir)
			if err != nil {
				return nil, false, err
			}
			candidates = append(entries, pathres.Join(pkgDir, "index"))
		}
		for _, c := range candidates {
			path, found, err := res.Resolve(ctx, "/", c)
			if err != nil {
				return nil, false, err
			}
			if found {
				return Redirect{Path: path}, true, nil
			}
		}
	}
	return nil, false, nil
}

func (n NodeModules) entries(ctx context.Context, fs vfs.FS, pkgDir string) ([]string, error) {
	manifest := pathres.Join(pkgDir, "package.json")
	data, err := fs.Read(ctx, manifest)
	if err != nil || data == nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifest, err)
	}
	var out []string
	for _, e := range []string{pkg.Module, pkg.Main} {
		if e != "" {
			out = append(out, pathres.Join(pkgDir, e))
		}
	}
	return out, nil
}

// splitPackage splits "@scope/pkg/sub/path" into "@scope/pkg" and "sub/path".
func splitPackage(spec string) (name, sub string) {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || strings.Contains(spec, ":") {
		return "", ""
	}
	parts := strings.Split(spec, "/")
	n := 1
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return "", ""
		}
		n = 2
	}
	if len(parts) < n {
		return "", ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}
