package config

// Config is the flowc configuration, read from flowc.yaml.
type Config struct {
	Root        string            `yaml:"root" koanf:"root"`
	Include     []string          `yaml:"include" koanf:"include"`
	Exclude     []string          `yaml:"exclude" koanf:"exclude"`
	DSLModule   string            `yaml:"dsl_module" koanf:"dsl_module"`
	Paths       map[string]string `yaml:"paths,omitempty" koanf:"paths"`
	NodeModules []string          `yaml:"node_modules,omitempty" koanf:"node_modules"`
	CacheSize   int               `yaml:"cache_size" koanf:"cache_size"`
	Output      string            `yaml:"output" koanf:"output"`
	Format      FormatConfig      `yaml:"format" koanf:"format"`
	Log         LogConfig         `yaml:"log" koanf:"log"`
}

// FormatConfig names the command generated files are piped through. An
// empty command disables formatting.
type FormatConfig struct {
	Command string   `yaml:"command,omitempty" koanf:"command"`
	Args    []string `yaml:"args,omitempty" koanf:"args"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
