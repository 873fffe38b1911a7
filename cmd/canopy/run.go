package main

import (
	"fmt"
	"os"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <tree.yaml>",
		Short: "Tick a tree until it completes",
		Long: `Loads a tree definition and ticks it until it reports success, failure or error,
the tick limit is reached, or the process is interrupted (Ctrl+C halts the tree first).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0])
		},
	}
	cmd.Flags().StringArray("set", nil, "Set a blackboard value (key=value, repeatable)")
	cmd.Flags().String("id", "", "Agent ID, also the checkpoint key (default: derived from the tree name)")
	cmd.Flags().Duration("interval", 0, "Pause between ticks (default: agent.interval)")
	cmd.Flags().Int("max-ticks", 0, "Stop after N ticks (default: agent.max_ticks, 0 = unlimited)")
	cmd.Flags().Bool("json", false, "Write JSON-Lines instead of text")
	cmd.Flags().BoolP("verbose", "v", false, "Show blackboard changes and directives")
	cmd.Flags().Bool("confirm", false, "Ask before running each action")
	cmd.Flags().StringSlice("allow", nil, "Only allow these actions to run")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string) error {
	flags := cmd.Flags()
	sets, _ := flags.GetStringArray("set")
	jsonMode, _ := flags.GetBool("json")
	verbose, _ := flags.GetBool("verbose")
	confirm, _ := flags.GetBool("confirm")
	allow, _ := flags.GetStringSlice("allow")

	interval := a.cfg.Agent.Interval
	if flags.Changed("interval") {
		interval, _ = flags.GetDuration("interval")
	}
	maxTicks := a.cfg.Agent.MaxTicks
	if flags.Changed("max-ticks") {
		maxTicks, _ = flags.GetInt("max-ticks")
	}

	values, err := runner.ParseAssignments(sets)
	if err != nil {
		return err
	}

	var handler runner.Handler
	if jsonMode {
		handler = runner.NewJSONHandler(cmd.InOrStdin(), cmd.OutOrStdout())
	} else {
		handler = runner.NewTextHandler(cmd.InOrStdin(), cmd.OutOrStdout(), runner.WithVerbose(verbose))
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			tui.PrintBanner(f, canopy.Version)
		}
	}

	exec, err := a.buildExecutor(path)
	if err != nil {
		return err
	}
	var policies []runner.ActionInterceptor
	if len(allow) > 0 {
		policies = append(policies, runner.AllowList(allow...))
	}
	if confirm {
		policies = append(policies, runner.ConfirmationMiddleware(handler))
	}
	var policy runner.ActionInterceptor
	if len(policies) > 0 {
		policy = runner.MultiInterceptor(policies...)
	}

	def, t, err := a.loadTree(path, runner.Guard(exec, policy),
		canopy.WithSink(observability.NewLogSink(a.logger)))
	if err != nil {
		return err
	}
	agentOpts, err := canopy.AgentOptions(def, values)
	if err != nil {
		return err
	}
	if id, _ := flags.GetString("id"); id != "" {
		agentOpts = append(agentOpts, agent.WithID(id))
	}

	store, closeStore, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()
	if store != nil {
		agentOpts = append(agentOpts, agent.WithStore(store))
	}
	agentOpts = append(agentOpts, agent.WithLogger(a.logger))

	r := runner.NewRunner(
		runner.WithHandler(handler),
		runner.WithLogger(a.logger),
		runner.WithInterval(interval),
		runner.WithMaxTicks(maxTicks),
		runner.WithSignals(true),
		runner.WithAgentOptions(agentOpts...),
	)
	res, err := r.Run(cmd.Context(), t)
	if err != nil {
		return err
	}
	if !res.Status.IsSuccess() {
		return fmt.Errorf("%s finished with %s", def.Name, res.Status)
	}
	return nil
}
