package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/loader/graph"
)

func (a *app) newGraphCmd() *cobra.Command {
	var rev string
	cmd := &cobra.Command{
		Use:   "graph [root]",
		Short: "Print the module graph of the flow files",
		Long: `Print the module graph in text format without executing any module.

Each module is followed by its import specifiers and what they resolve to.
Unresolved specifiers are listed at the end, followed by the order in which
declarations are read (dependencies first) or the import cycles that
prevent one.

Examples:
  flowc graph
  flowc graph ./flows`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.Root
			if len(args) > 0 {
				root = args[0]
			}
			fsys, err := openSource(root, rev)
			if err != nil {
				return err
			}
			b, err := build.NewBuilder(fsys, a.cfg.BuildOptions())
			if err != nil {
				return err
			}
			g, err := b.Graph(cmd.Context(), "/")
			if err != nil {
				return err
			}
			printGraph(cmd, g)
			return nil
		},
	}
	cmd.Flags().StringVar(&rev, "rev", "", "Read a git revision of the repository containing root")
	return cmd
}

func printGraph(cmd *cobra.Command, g *graph.Graph) {
	out := cmd.OutOrStdout()
	if len(g.Entries) == 0 {
		fmt.Fprintln(out, "No flow files.")
		return
	}

	entries := make(map[string]bool, len(g.Entries))
	for _, e := range g.Entries {
		entries[e] = true
	}
	for _, m := range g.Ordered() {
		marker := ""
		if entries[m.Path] {
			marker = " (entry)"
		}
		fmt.Fprintf(out, "%s%s\n", m.Path, marker)
		for _, spec := range m.Specifiers {
			t := m.Targets[spec]
			switch t.Kind {
			case graph.Virtual:
				fmt.Fprintf(out, "  %s -> %s\n", spec, t.Path)
			default:
				fmt.Fprintf(out, "  %s -> [%s]\n", spec, t.Kind)
			}
		}
	}

	if ext := g.Externals(); len(ext) > 0 {
		fmt.Fprintf(out, "\nUnresolved: %s\n", strings.Join(ext, ", "))
	}
	sorted, err := g.TopologicalSort()
	if err != nil {
		for _, cycle := range g.FindAllCycles() {
			fmt.Fprintf(out, "Cycle: %s\n", strings.Join(cycle, " -> "))
		}
		return
	}
	order := make([]string, len(sorted))
	for i, m := range sorted {
		order[i] = m.Path
	}
	fmt.Fprintf(out, "\nLoad order: %s\n", strings.Join(order, ", "))
}
