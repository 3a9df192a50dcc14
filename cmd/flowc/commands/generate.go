package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"martianoff/flowc/internal/generator"
	"martianoff/flowc/internal/model"
)

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		outDir string
		single bool
	)
	cmd := &cobra.Command{
		Use:   "generate [model]",
		Short: "Generate flow files from a model",
		Long: `Generate writes one flow file per flow of the model, or a single
flows.flow.ts with --single. Generated files declare the message types they
use and import integrations from the module that declared them.

Examples:
  flowc generate                  # Read the configured model file
  flowc generate model.yaml -o src/flows
  flowc generate --single`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := a.cfg.Output
			if len(args) > 0 {
				path = args[0]
			}
			m, err := readModel(path)
			if err != nil {
				return err
			}
			if err := model.Validate(m); err != nil {
				return err
			}

			gen := generator.New(a.cfg.GeneratorOptions())
			var files []generator.File
			if single {
				content, err := gen.Generate(ctx, m)
				if err != nil {
					return err
				}
				files = []generator.File{{Path: "flows" + generator.Extension, Content: content}}
			} else {
				files, err = gen.GenerateFiles(ctx, m)
				if err != nil {
					return err
				}
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, f := range files {
				target := filepath.Join(outDir, f.Path)
				if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", target)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write flow files to")
	cmd.Flags().BoolVar(&single, "single", false, "Write every flow into one file")
	return cmd
}
