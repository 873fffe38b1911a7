package main

import (
	"fmt"
	"os"

	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <tree.yaml>",
		Short: "Export the tree as a Mermaid diagram",
		Long:  `Compiles the definition and outputs a Mermaid flowchart (graph TD) of its nodes.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, t, err := a.loadTree(args[0], nil)
			if err != nil {
				return err
			}
			output := graph.GenerateMermaid(t.Root(), nil)

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
					return fmt.Errorf("write graph: %w", err)
				}
				a.logger.Info("graph written", "path", path)
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), output)
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}
