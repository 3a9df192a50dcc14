package dsl

import "martianoff/flowc/internal/model"

// DefaultModule is the specifier flow files import the DSL from.
const DefaultModule = "@flowc/dsl"

// PackageInfo describes the exports of the DSL module.
type PackageInfo struct {
	Module    string   // specifier: "@flowc/dsl"
	Types     []string // type-only exports (erased at runtime)
	Functions []string // runtime functions
	Constants []string // runtime values
}

// Package returns the PackageInfo of the DSL served under module.
// This is the single source of truth for what the runtime installs and what
// generated files may import.
func Package(module string) PackageInfo {
	if module == "" {
		module = DefaultModule
	}
	return PackageInfo{
		Module: module,
		Types: []string{
			"Command", "Event", "State", "Integration",
		},
		Functions: []string{
			"flow",
			"command", "query", "react",
			"specs", "rule", "example",
			"describe", "it", "should",
			"data", "sink", "source",
			"integration",
			"gql",
		},
		Constants: []string{model.Placeholder},
	}
}

// IsFunction reports whether name is a runtime function of the DSL.
func (p PackageInfo) IsFunction(name string) bool {
	for _, f := range p.Functions {
		if f == name {
			return true
		}
	}
	return false
}

// IsType reports whether name is a type-only export.
func (p PackageInfo) IsType(name string) bool {
	for _, t := range p.Types {
		if t == name {
			return true
		}
	}
	return false
}
