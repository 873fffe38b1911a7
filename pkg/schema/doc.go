// Package schema describes behavior trees as data.
//
// A Definition is the declarative form of a tree: a name, an initial blackboard,
// the typed inputs the tree expects to find on its blackboard, and a root NodeSpec.
// Definitions are loaded from YAML or JSON and validated before compilation:
//
//	def, err := schema.Load("patrol.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := def.Validate(); err != nil {
//	    // every problem is reported, see ValidationErrors
//	}
//
// A minimal file:
//
//	name: patrol
//	inputs:
//	  target: string
//	root:
//	  type: sequence
//	  children:
//	    - type: action
//	      action: move
//	      params:
//	        to: {from_blackboard: target}
//	    - type: wait
//	      duration: 2s
//
// Inputs use a small type system (string, int, float, bool, duration, any and
// slices such as "[string]"). CheckBlackboard validates a blackboard against them.
package schema
