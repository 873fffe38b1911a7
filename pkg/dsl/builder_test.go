package dsl

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/schema"
)

func TestBuilder_Patrol(t *testing.T) {
	def, err := Tree("patrol",
		Sequence(
			Action("move").ParamFrom("to", "target").Param("speed", 3).Context("unit", "m/s").Effects(),
			Repeat(2, Wait(10*time.Millisecond)),
			Set("arrived", true).Value("laps", 1),
		).Named("main"),
	).Describe("walk to target").Input("target", "string").Blackboard("laps", 0).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if def.Name != "patrol" || def.Description != "walk to target" {
		t.Errorf("unexpected header %+v", def)
	}
	if def.Inputs["target"].Name() != "string" {
		t.Errorf("inputs = %v", def.Inputs.TypeMap())
	}

	root := def.Root
	if root.Type != schema.KindSequence || root.Name != "main" || len(root.Children) != 3 {
		t.Fatalf("unexpected root %+v", root)
	}

	move := root.Children[0]
	if move.Action != "move" || !move.Effects {
		t.Errorf("unexpected action %+v", move)
	}
	to, ok := move.Params["to"].(map[string]any)
	if !ok || to["from_blackboard"] != "target" {
		t.Errorf("params.to = %#v", move.Params["to"])
	}
	if move.Context["unit"] != "m/s" {
		t.Errorf("context = %v", move.Context)
	}

	repeat := root.Children[1]
	if repeat.Count != 2 || repeat.Child == nil || repeat.Child.Duration != "10ms" {
		t.Errorf("unexpected repeat %+v", repeat)
	}

	set := root.Children[2]
	if set.Values["arrived"] != true || set.Values["laps"] != 1 {
		t.Errorf("values = %v", set.Values)
	}
}

func TestBuilder_Decorators(t *testing.T) {
	def, err := Tree("d", Selector(
		Inverter(Failure()),
		Succeeder(Running()),
		Failer(Success()),
	)).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	kinds := []string{schema.KindInverter, schema.KindSucceeder, schema.KindFailer}
	leaves := []string{"failure", "running", "success"}
	for i, c := range def.Root.Children {
		if c.Type != kinds[i] || c.Child.Status != leaves[i] {
			t.Errorf("child %d = %+v", i, c)
		}
	}
}

func TestBuilder_ValidationErrors(t *testing.T) {
	_, err := Tree("", Repeat(0, nil)).Build()
	if !errors.Is(err, schema.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
	if got := len(schema.ValidationErrors(err)); got != 3 {
		t.Errorf("got %d errors, want 3 (name, child, count): %v", got, err)
	}

	_, err = Tree("x", Success()).Input("target", "uuid").Build()
	if err == nil || !strings.Contains(err.Error(), "input target") {
		t.Errorf("expected input type error, got %v", err)
	}
}

func TestBuilder_NodeBuildersAreIndependent(t *testing.T) {
	shared := Action("ping").Param("n", 1)
	def, err := Tree("x", Sequence(shared)).Build()
	if err != nil {
		t.Fatal(err)
	}
	shared.Param("n", 2)
	if def.Root.Children[0].Params["n"] != 1 {
		t.Error("later builder changes must not leak into a built definition")
	}
}

func TestBuilder_Export(t *testing.T) {
	b := Tree("export", Sequence(Wait(time.Second), Action("beep"))).Input("volume", "int")

	data, err := b.YAML()
	if err != nil {
		t.Fatalf("YAML() failed: %v", err)
	}
	def, err := schema.Parse(data, schema.FormatYAML)
	if err != nil {
		t.Fatalf("exported YAML does not parse: %v\n%s", err, data)
	}
	if def.Root.Children[0].Duration != "1s" || def.Inputs["volume"].Name() != "int" {
		t.Errorf("round trip lost data:\n%s", data)
	}

	data, err = b.JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	if !strings.Contains(string(data), `"action": "beep"`) {
		t.Errorf("unexpected JSON:\n%s", data)
	}
}
