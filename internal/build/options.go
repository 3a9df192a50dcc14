package build

import (
	"martianoff/flowc/internal/loader/sandbox"
	"martianoff/flowc/internal/transpile"
)

// Default discovery patterns, relative to the build root.
const (
	DefaultInclude = "**/*.flow.ts"
	DefaultExclude = "**/node_modules/**"
)

// DefaultCacheSize is the number of build results kept per Builder.
const DefaultCacheSize = 16

// Options configures a Builder.
type Options struct {
	// Include and Exclude are doublestar patterns matched against paths
	// relative to the build root.
	Include []string
	Exclude []string

	// DSLModule is the specifier flow files import the DSL from.
	DSLModule string

	// Paths is an import map. Keys ending in "*" match a prefix and the
	// remainder replaces the "*" of the value.
	Paths map[string]string

	// NodeModules are absolute node_modules directories searched for bare
	// specifiers after Paths.
	NodeModules []string

	// Overrides are handed to the loader next to the DSL module.
	Overrides map[string]any

	CacheSize  int
	Transpiler transpile.Transpiler
	Natives    map[string]sandbox.Native
}

func (o Options) withDefaults() Options {
	if len(o.Include) == 0 {
		o.Include = []string{DefaultInclude}
	}
	if o.Exclude == nil {
		o.Exclude = []string{DefaultExclude}
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	return o
}
