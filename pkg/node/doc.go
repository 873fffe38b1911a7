/*
Package node defines the behavior-tree node contract and every built-in node kind.

Nodes are immutable values. Ticking or halting a node never mutates it; the call returns
the node's next value, and composites rebuild themselves from their children's results.

# Shapes

Every node declares its Shape explicitly: a Leaf has no children, a Decorator wraps exactly
one child and a Composite owns an ordered child list. Structural operations (Halt, Depth,
Count, Traverse, Walk) dispatch on the Shape only, so user-defined node kinds work with
them without the engine knowing their concrete types.

# Execution wrapper

Parents always tick children through Execute, which emits telemetry events to the sink
bound on the context (see WithSink) and converts panics into Error statuses while keeping
the node's prior value. Halt performs a recursive post-order halt with the same guarantees.

# Built-in kinds

  - Composite: Sequence, Selector.
  - Decorator: Inverter, Succeeder, Failer, Repeat.
  - Leaf: Action, Wait, SetBlackboard, Constant, Func.
*/
package node
