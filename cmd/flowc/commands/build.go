package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/model"
)

func (a *app) newBuildCmd() *cobra.Command {
	var (
		output       string
		rev          string
		assignIDs    bool
		allowInvalid bool
	)
	cmd := &cobra.Command{
		Use:   "build [root]",
		Short: "Build flow files into a model",
		Long: `Build discovers the flow files below root, executes them and writes the
resulting model.

This command:
  1. Finds files matching the include patterns (default **/*.flow.ts)
  2. Loads every module they import and runs the flow definitions
  3. Resolves example data against the declared message types
  4. Validates the model and writes it as JSON or YAML

Examples:
  flowc build                       # Build the configured root
  flowc build ./flows -o model.yaml # Build a directory into YAML
  flowc build --rev v1.2.0          # Build a git revision
  flowc build -o -                  # Print the model`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root := a.cfg.Root
			if len(args) > 0 {
				root = args[0]
			}
			if output == "" {
				output = a.cfg.Output
			}

			fsys, err := openSource(root, rev)
			if err != nil {
				return err
			}
			b, err := build.NewBuilder(fsys, a.cfg.BuildOptions())
			if err != nil {
				return err
			}
			res, err := b.Build(ctx, "/")
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			if len(res.Entries) == 0 {
				ctxlog.FromContext(ctx).Warn("no flow files found", "root", root, "include", a.cfg.Include)
			}
			if res.Validation != nil && !allowInvalid {
				return res.Validation
			}
			if assignIDs {
				n := model.AssignIDs(res.Model)
				ctxlog.FromContext(ctx).Debug("ids assigned", "count", n)
			}
			if err := writeModel(cmd.OutOrStdout(), output, res.Model); err != nil {
				return fmt.Errorf("writing model: %w", err)
			}
			if output != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Built %d flow(s), %d message(s): %s\n",
					len(res.Model.Flows), len(res.Model.Messages), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Model file to write, - for stdout (default from config)")
	cmd.Flags().StringVar(&rev, "rev", "", "Build a git revision (tag, branch, commit or latest) of the repository containing root")
	cmd.Flags().BoolVar(&assignIDs, "ids", false, "Assign stable ids to flows and slices without one")
	cmd.Flags().BoolVar(&allowInvalid, "allow-invalid", false, "Write the model even if it fails validation")
	return cmd
}
