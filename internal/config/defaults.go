package config

import (
	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/dsl"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "flowc.yaml"

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Root:      ".",
		Include:   []string{build.DefaultInclude},
		Exclude:   []string{build.DefaultExclude},
		DSLModule: dsl.DefaultModule,
		CacheSize: build.DefaultCacheSize,
		Output:    "model.json",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
