/*
Package dsl provides a Go DSL for programmatically constructing Canopy behavior trees.

It builds the same schema.Definition that YAML or JSON files decode into, so trees
can be generated in code, unit tested, and exported to files with one API.

Example usage:

	package main

	import (
		"time"

		"github.com/aretw0/canopy/pkg/dsl"
	)

	func main() {
		patrol := dsl.Tree("patrol",
			dsl.Sequence(
				dsl.Action("move").ParamFrom("to", "target"),
				dsl.Wait(2*time.Second),
				dsl.Set("arrived", true),
			),
		).Input("target", "string")

		def, err := patrol.Build() // validated schema.Definition
		// ... pass def to canopy.New(...)

		data, err := patrol.YAML() // or write it to disk
	}
*/
package dsl
