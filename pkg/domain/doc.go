/*
Package domain contains the core value types of the Canopy behavior-tree engine.

It defines the vocabulary shared by every other package: the Status a node reports,
the copy-on-write Blackboard, the per-tick execution context (Tick), telemetry Events and
the requests handed to the external action runtime. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Status: Success, Failure, Running or Error(reason).
  - Blackboard: immutable key-value state; every write returns a new value.
  - Tick: the context threaded through one traversal (blackboard, sequence, directives).
  - Event: a telemetry record emitted around node ticks, halts and agent ticks.
  - ActionRequest: what an Action node asks the host runtime to perform.
*/
package domain
