// Package commands provides the CLI commands for the flowc tool.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"martianoff/flowc/internal/config"
	"martianoff/flowc/internal/ctxlog"
)

// app holds the global flags and the configuration they resolve to.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "flowc",
		Short: "Compile flow files to a model and back",
		Long: `flowc translates TypeScript flow files written with the flow DSL into a
serializable model, and generates flow files from a model.

Usage:
  flowc build [root]            Build the flow files below root into a model
  flowc generate [model]        Generate flow files from a model
  flowc graph [root]            Print the module graph of the flow files
  flowc validate [model]        Check a model file
  flowc ids [model]             Assign stable ids to flows and slices
  flowc schema                  Print the JSON Schema of the model
  flowc version                 Print version`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultFile, "Path to the configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		a.newBuildCmd(),
		a.newGenerateCmd(),
		a.newGraphCmd(),
		a.newValidateCmd(),
		a.newIDsCmd(),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the environment file and the configuration and installs the
// logger in the command context.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctxlog.WithLogger(ctx, logger))
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
