/*
Package canopy is a behavior-tree execution engine for long-running agents, CLIs and automation.

A behavior tree is a hierarchy of nodes ticked from the root. Every tick returns
Success, Failure, Running or Error(reason); a Running tree resumes on the next tick
exactly where it left off. Nodes are immutable values: a tick returns the updated
node instead of mutating it, so a tree can be inspected, rendered or replaced
between ticks without locks.

# Concept

Canopy separates the tree (logic) from the blackboard (data) and from the outside
world (actions, effects, telemetry, persistence), which are reached through the
interfaces in pkg/ports. An Agent (pkg/agent) owns one tree and one blackboard and
ticks it either on demand or on a timer.

# Key Features

  - Declarative trees in YAML or JSON, validated before compilation (pkg/schema).
  - Composites, decorators and leaves with halt propagation (pkg/node).
  - Actor-based agents with manual and automatic ticking (pkg/agent).
  - Blackboard checkpoints in memory or Redis (pkg/adapters).
  - Telemetry sinks for slog, Prometheus and OpenTelemetry (pkg/observability).

# Usage

	t, err := canopy.Load("patrol.yaml")
	if err != nil {
		log.Fatal(err)
	}

	a, err := agent.Start(ctx, t, agent.WithMode(agent.Auto), agent.WithInterval(time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Stop(ctx)
*/
package canopy
