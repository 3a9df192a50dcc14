// Package config loads flowc settings from a YAML file and FLOWC_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/generator"
)

// EnvPrefix starts every environment override. A double underscore selects
// a nested key: FLOWC_LOG__LEVEL sets log.level.
const EnvPrefix = "FLOWC_"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"include":      true,
	"exclude":      true,
	"node_modules": true,
	"format.args":  true,
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error; an empty
// path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if len(c.Include) == 0 {
		return fmt.Errorf("include needs at least one pattern")
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	if c.DSLModule == "" {
		return fmt.Errorf("dsl_module is required")
	}
	for alias, target := range c.Paths {
		if strings.Count(alias, "*") > 1 || (strings.HasSuffix(alias, "*") != strings.Contains(target, "*")) {
			return fmt.Errorf("invalid paths entry %q: %q", alias, target)
		}
	}
	for _, dir := range c.NodeModules {
		if !strings.HasPrefix(dir, "/") {
			return fmt.Errorf("node_modules entry %q must be an absolute virtual path", dir)
		}
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("invalid output %q: must end in .json, .yaml or .yml", c.Output)
	}
	if len(c.Format.Args) > 0 && c.Format.Command == "" {
		return fmt.Errorf("format.args set without format.command")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// BuildOptions converts the discovery and resolution settings.
func (c *Config) BuildOptions() build.Options {
	return build.Options{
		Include:     c.Include,
		Exclude:     c.Exclude,
		DSLModule:   c.DSLModule,
		Paths:       c.Paths,
		NodeModules: c.NodeModules,
		CacheSize:   c.CacheSize,
	}
}

// GeneratorOptions converts the generation settings.
func (c *Config) GeneratorOptions() generator.Options {
	opts := generator.Options{DSLModule: c.DSLModule}
	switch {
	case c.Format.Command == "prettier" && len(c.Format.Args) == 0:
		opts.Formatter = generator.Prettier()
	case c.Format.Command != "":
		opts.Formatter = &generator.ExecFormatter{Command: c.Format.Command, Args: c.Format.Args}
	}
	return opts
}
