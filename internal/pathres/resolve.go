package pathres

import (
	"context"
	"strings"

	"martianoff/flowc/internal/vfs"
)

// Extensions is the fixed candidate list tried when a specifier has no
// extension, in priority order.
var Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// Resolver maps relative and absolute specifiers to existing virtual files.
//
// Resolution strategy for a specifier s imported from file f:
//  1. s relative: base = Join(Dir(f), s); s absolute: base = s
//  2. base itself, when it carries one of Extensions
//  3. base with a script extension swapped for its TypeScript twin
//     ("./a.js" -> "./a.ts"), the ESM-in-TypeScript convention
//  4. base + each extension
//  5. base + "/index" + each extension
type Resolver struct {
	fs vfs.FS
}

// NewResolver creates a Resolver reading through fs.
func NewResolver(fs vfs.FS) *Resolver {
	return &Resolver{fs: fs}
}

// Candidates lists the paths tried for spec imported from "from", in order.
// Bare specifiers have no candidates.
func Candidates(from, spec string) []string {
	var base string
	switch {
	case IsRelative(spec):
		base = Join(Dir(from), spec)
	case IsAbsolute(spec):
		base = Normalize(spec)
	default:
		return nil
	}

	var out []string
	ext := Ext(base)
	if hasKnownExt(ext) {
		out = append(out, base)
		stem := strings.TrimSuffix(base, ext)
		switch ext {
		case ".js":
			out = append(out, stem+".ts", stem+".tsx")
		case ".jsx":
			out = append(out, stem+".tsx")
		case ".mjs":
			out = append(out, stem+".mts")
		case ".cjs":
			out = append(out, stem+".cts")
		}
	}
	for _, e := range Extensions {
		out = append(out, base+e)
	}
	for _, e := range Extensions {
		out = append(out, base+"/index"+e)
	}
	return out
}

// Resolve returns the first existing candidate for spec. ok is false when
// spec is bare or no candidate exists.
func (r *Resolver) Resolve(ctx context.Context, from, spec string) (resolved string, ok bool, err error) {
	for _, c := range Candidates(from, spec) {
		exists, err := vfs.Exists(ctx, r.fs, c)
		if err != nil {
			return "", false, err
		}
		if exists {
			return c, true, nil
		}
	}
	return "", false, nil
}

func hasKnownExt(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
