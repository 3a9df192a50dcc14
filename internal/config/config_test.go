package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/generator"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{build.DefaultInclude}, cfg.Include)
	assert.Equal(t, dsl.DefaultModule, cfg.DSLModule)
	assert.Equal(t, "model.json", cfg.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)

	original := DefaultConfig()
	original.Root = "services/shop"
	original.Include = []string{"flows/**/*.flow.ts"}
	original.Paths = map[string]string{"@shop/*": "/lib/*"}
	original.CacheSize = 4
	original.Output = "out/model.yaml"
	original.Format = FormatConfig{Command: "prettier", Args: []string{"--stdin-filepath", "{file}"}}
	original.Log.Level = "debug"

	require.NoError(t, original.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("root: flows\nlog:\n  level: warn\n"), 0o644))

	t.Setenv("FLOWC_ROOT", "other")
	t.Setenv("FLOWC_LOG__FORMAT", "json")
	t.Setenv("FLOWC_CACHE_SIZE", "3")
	t.Setenv("FLOWC_EXCLUDE", "**/node_modules/**, **/dist/**")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Root)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.CacheSize)
	assert.Equal(t, []string{"**/node_modules/**", "**/dist/**"}, cfg.Exclude)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("root: [unterminated\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty include", func(c *Config) { c.Include = nil }, "include needs at least one pattern"},
		{"bad glob", func(c *Config) { c.Exclude = []string{"[dist"} }, "invalid glob pattern"},
		{"no dsl module", func(c *Config) { c.DSLModule = "" }, "dsl_module is required"},
		{"alias without star target", func(c *Config) { c.Paths = map[string]string{"@x/*": "/lib"} }, "invalid paths entry"},
		{"relative node_modules", func(c *Config) { c.NodeModules = []string{"node_modules"} }, "absolute virtual path"},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }, "cache_size must be positive"},
		{"bad output", func(c *Config) { c.Output = "model.txt" }, "invalid output"},
		{"args without command", func(c *Config) { c.Format.Args = []string{"-w"} }, "format.args set without format.command"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "invalid log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "invalid log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOptionsConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSLModule = "@acme/flows"
	cfg.NodeModules = []string{"/node_modules"}

	opts := cfg.BuildOptions()
	assert.Equal(t, "@acme/flows", opts.DSLModule)
	assert.Equal(t, []string{"/node_modules"}, opts.NodeModules)

	assert.Nil(t, cfg.GeneratorOptions().Formatter)
	cfg.Format.Command = "prettier"
	gen := cfg.GeneratorOptions()
	require.IsType(t, &generator.ExecFormatter{}, gen.Formatter)
	assert.Equal(t, generator.Prettier(), gen.Formatter)
	assert.Equal(t, "@acme/flows", gen.DSLModule)

	cfg.Format.Args = []string{"--parser", "typescript"}
	assert.Equal(t, &generator.ExecFormatter{Command: "prettier", Args: []string{"--parser", "typescript"}},
		cfg.GeneratorOptions().Formatter)
}
