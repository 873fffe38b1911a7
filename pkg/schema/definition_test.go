package schema

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const patrolYAML = `
name: patrol
description: walk between two points
blackboard:
  retries: 2
inputs:
  target: string
root:
  type: sequence
  children:
    - type: action
      action: move
      params:
        to: {from_blackboard: target}
        speed: 3
    - type: repeat
      count: 2
      child:
        type: wait
        duration: 10ms
`

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patrol.yaml")
	if err := os.WriteFile(path, []byte(patrolYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if def.Name != "patrol" || def.Inputs["target"].Name() != "string" {
		t.Errorf("unexpected header %+v", def)
	}
	if def.Blackboard["retries"] != 2 {
		t.Errorf("retries = %#v", def.Blackboard["retries"])
	}
	move := def.Root.Children[0]
	want := map[string]any{"from_blackboard": "target"}
	if !reflect.DeepEqual(move.Params["to"], want) {
		t.Errorf("params.to = %#v", move.Params["to"])
	}
	if def.Root.Children[1].Child.Duration != "10ms" {
		t.Errorf("repeat child = %+v", def.Root.Children[1].Child)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.JSON")
	body := `{"name":"j","root":{"type":"inverter","child":{"type":"constant","status":"failure"}}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if def.Root.Child == nil || def.Root.Child.Status != "failure" {
		t.Errorf("unexpected root %+v", def.Root)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("name: x\nroot:\n  type: wait\n  duraton: 1s\n"), FormatYAML); err == nil {
		t.Error("expected unknown yaml field error")
	}
	if _, err := Parse([]byte(`{"name":"x","extra":1}`), FormatJSON); err == nil {
		t.Error("expected unknown json field error")
	}
	if _, err := Parse([]byte(`name: x`), Format("toml")); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	def, err := Parse([]byte(patrolYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := def.Encode(format)
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", format, err)
		}
		back, err := Parse(data, format)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v\n%s", format, err, data)
		}
		if back.Name != def.Name || len(back.Root.Children) != 2 || back.Inputs["target"] == nil {
			t.Errorf("%s round trip lost data: %+v", format, back)
		}
	}

	yamlOut, _ := def.Encode(FormatYAML)
	if !strings.Contains(string(yamlOut), "target: string") {
		t.Errorf("inputs not rendered as type names:\n%s", yamlOut)
	}
}

func TestNodeSpec_LabelAndNodes(t *testing.T) {
	tests := []struct {
		spec NodeSpec
		want string
	}{
		{NodeSpec{Type: KindAction, Action: "move"}, "action: move"},
		{NodeSpec{Type: KindWait, Duration: "1s"}, "wait 1s"},
		{NodeSpec{Type: KindRepeat, Count: 3}, "repeat x3"},
		{NodeSpec{Type: KindConstant, Status: "success"}, "success"},
		{NodeSpec{Type: KindSequence, Name: "main"}, "main"},
		{NodeSpec{Type: KindSelector}, "selector"},
	}
	for _, tt := range tests {
		if got := tt.spec.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}

	dec := NodeSpec{Type: KindInverter, Child: &NodeSpec{Type: KindWait}}
	if n := dec.Nodes(); len(n) != 1 || n[0].Type != KindWait {
		t.Errorf("Nodes() = %+v", n)
	}
}
