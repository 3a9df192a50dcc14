package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/flowc/internal/model"
)

func (a *app) modelPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Output
}

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [model]",
		Short: "Check a model file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.modelPath(args)
			m, err := readModel(path)
			if err != nil {
				return err
			}
			if err := model.Validate(m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d flow(s), %d message(s))\n", path, len(m.Flows), len(m.Messages))
			return nil
		},
	}
}

func (a *app) newIDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ids [model]",
		Short: "Assign stable ids to flows and slices",
		Long: `Ids gives every flow and slice without an id a UUID derived from its
name and position and rewrites the model file. Existing ids are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.modelPath(args)
			m, err := readModel(path)
			if err != nil {
				return err
			}
			n := model.AssignIDs(m)
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All flows and slices have ids.")
				return nil
			}
			if err := writeModel(cmd.OutOrStdout(), path, m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d id(s) in %s\n", n, path)
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := model.JSONSchemaBytes()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
