package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/canopy/pkg/schema"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <tree.yaml>",
		Short: "Describe a tree definition",
		Long: `Prints the tree outline, its declared inputs and initial blackboard.
With --format yaml or json the normalized definition is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			def, t, err := a.loadTree(args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch format {
			case "yaml", "json":
				data, err := def.Encode(schema.Format(format))
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "text", "":
			default:
				return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
			}

			fmt.Fprintf(out, "name:  %s\n", def.Name)
			if def.Description != "" {
				fmt.Fprintf(out, "about: %s\n", def.Description)
			}
			fmt.Fprintf(out, "nodes: %d, depth: %d\n", t.NodeCount(), t.Depth())
			if len(def.Inputs) > 0 {
				fmt.Fprintln(out, "inputs:")
				types := def.Inputs.TypeMap()
				for _, k := range slices.Sorted(maps.Keys(types)) {
					fmt.Fprintf(out, "  %s: %s\n", k, types[k])
				}
			}
			if len(def.Blackboard) > 0 {
				fmt.Fprintln(out, "blackboard:")
				for _, k := range slices.Sorted(maps.Keys(def.Blackboard)) {
					fmt.Fprintf(out, "  %s: %v\n", k, def.Blackboard[k])
				}
			}
			fmt.Fprintln(out, "tree:")
			outline(out, def.Root, "  ", "  ")
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text, yaml, json")
	return cmd
}

// outline prints spec and its children as an indented tree.
func outline(w io.Writer, spec schema.NodeSpec, first, rest string) {
	fmt.Fprintf(w, "%s%s\n", first, describe(spec))
	children := spec.Nodes()
	for i, c := range children {
		if i == len(children)-1 {
			outline(w, c, rest+"└─ ", rest+"   ")
		} else {
			outline(w, c, rest+"├─ ", rest+"│  ")
		}
	}
}

func describe(spec schema.NodeSpec) string {
	label := spec.Label()
	if spec.Name != "" {
		label += " (" + spec.Type + ")"
	}
	if spec.Type == schema.KindSetBlackboard && len(spec.Values) > 0 {
		label += " " + strings.Join(slices.Sorted(maps.Keys(spec.Values)), ",")
	}
	if spec.Effects {
		label += " [effects]"
	}
	return label
}
