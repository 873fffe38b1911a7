package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/schema"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tree.yaml>...",
		Short: "Check tree definitions for errors",
		Long: `Parses each definition, checks node kinds, arity, counts, durations and
placeholders, and verifies that the tree compiles. All problems are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				if err := a.validate(path); err != nil {
					failed++
					fmt.Fprintf(out, "✗ %s\n", path)
					if issues := schema.ValidationErrors(err); len(issues) > 0 {
						for _, issue := range issues {
							fmt.Fprintf(out, "  - %s\n", issue)
						}
					} else {
						fmt.Fprintf(out, "  - %v\n", err)
					}
					continue
				}
				fmt.Fprintf(out, "✓ %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) validate(path string) error {
	def, err := schema.Load(path)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	exec, err := a.buildExecutor(path)
	if err != nil {
		return err
	}
	if _, err := canopy.New(def, canopy.WithExecutor(exec), canopy.WithLogger(a.logger)); err != nil {
		if errors.Is(err, schema.ErrInvalidDefinition) {
			return err
		}
		return fmt.Errorf("compile: %w", err)
	}
	return nil
}
