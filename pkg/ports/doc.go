/*
Package ports defines the driven ports (interfaces) of the Canopy engine.

These interfaces decouple the behavior-tree core from the collaborators it talks to,
allowing the engine to run against different action runtimes, telemetry backends and
blackboard stores.

# Key Interfaces

  - ActionExecutor: performs the work named by an Action node.
  - EffectApplier: folds action results and effects into an external agent value.
  - EventSink: receives fire-and-forget telemetry events.
  - BlackboardStore: checkpoints an agent's blackboard (Memory, File, Redis).
*/
package ports
