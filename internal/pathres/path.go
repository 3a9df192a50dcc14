// Package pathres provides posix path helpers and module specifier
// resolution against a virtual file system.
package pathres

import (
	"path"
	"strings"
)

// Join joins path elements with "/" and normalizes the result.
func Join(elem ...string) string {
	return Normalize(path.Join(elem...))
}

// Normalize cleans p, converting backslashes to slashes first.
// The empty path normalizes to ".".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// Dir returns all but the last element of p.
func Dir(p string) string {
	return path.Dir(Normalize(p))
}

// Base returns the last element of p.
func Base(p string) string {
	return path.Base(Normalize(p))
}

// Ext returns the file name extension of p including the dot.
func Ext(p string) string {
	return path.Ext(p)
}

// IsRelative reports whether spec is a "./" or "../" specifier.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// IsAbsolute reports whether spec is an absolute virtual path.
func IsAbsolute(spec string) bool {
	return strings.HasPrefix(spec, "/")
}

// IsBare reports whether spec names a package rather than a file.
func IsBare(spec string) bool {
	return spec != "" && !IsRelative(spec) && !IsAbsolute(spec)
}

// Rel returns target relative to the directory of from, always starting
// with "./" or "../" so that it can be used as an import specifier.
func Rel(from, target string) string {
	fromParts := split(Dir(from))
	toParts := split(Normalize(target))

	i := 0
	for i < len(fromParts) && i < len(toParts) && fromParts[i] == toParts[i] {
		i++
	}
	var parts []string
	for range fromParts[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[i:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func split(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}
