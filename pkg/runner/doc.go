/*
Package runner drives a behavior tree to completion from the command line.

A Runner starts a manual-mode agent, ticks it at a fixed interval and reports
every tick through a Handler until the tree completes, a tick limit is reached
or the process receives SIGINT/SIGTERM. On interruption the tree is halted before
the agent stops, so running actions get the chance to clean up.

# Key Components

  - Runner: the tick loop.
  - Handler: presents progress. TextHandler prints coloured status lines,
    JSONHandler writes one JSON object per line for machine consumers.
  - ActionInterceptor: a policy guarding action execution (confirmation prompts,
    allow-lists), installed with Guard.

# Usage

	r := runner.NewRunner(
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithInterval(500*time.Millisecond),
		runner.WithMaxTicks(100),
	)

	res, err := r.Run(ctx, t)
*/
package runner
