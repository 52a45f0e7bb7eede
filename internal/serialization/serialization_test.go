package serialization

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stateviz/stateviz/internal/state"
)

func buildTestGraph(t *testing.T) *state.MemGraph {
	t.Helper()
	g := state.NewMemGraph()
	root, _ := g.Get(g.Root())
	root.Successors = []state.Edge{{Label: state.Main, To: state.FrameID(0)}}

	g.AddNode(state.FrameID(0), &state.Node{
		Class:    state.ClassFrame,
		TypeName: "main",
		Successors: []state.Edge{
			{Label: state.Named("arr", 0), To: state.VariableID("var1")},
		},
	})
	length := state.UintValue(2)
	g.AddNode(state.VariableID("var1"), &state.Node{
		Class: state.ClassArray,
		Successors: []state.Edge{
			{Label: state.Index(0), To: state.VariableID("var1.0")},
			{Label: state.Index(1), To: state.VariableID("var1.1")},
			{Label: state.Length, To: state.LengthID("var1")},
		},
	})
	v0 := state.IntValue(-7)
	v1 := state.BoolValue(true)
	g.AddNode(state.VariableID("var1.0"), &state.Node{Class: state.ClassAtom, TypeName: "int", Value: &v0})
	g.AddNode(state.VariableID("var1.1"), &state.Node{Class: state.ClassAtom, TypeName: "bool", Value: &v1})
	g.AddNode(state.LengthID("var1"), &state.Node{Class: state.ClassAtom, Value: &length})
	return g
}

func TestRoundTrip(t *testing.T) {
	g := buildTestGraph(t)
	var buffer bytes.Buffer
	if err := WriteJSON(g, &buffer); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	restored, err := ReadJSON(&buffer)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}

	ids := g.Nodes()
	if len(restored.Nodes()) != len(ids) {
		t.Fatalf("restored %d nodes, want %d", len(restored.Nodes()), len(ids))
	}
	for _, id := range ids {
		original, _ := g.Get(id)
		node, ok := restored.Get(id)
		if !ok {
			t.Errorf("node %v missing after round trip", id)
			continue
		}
		if node.Class != original.Class || node.TypeName != original.TypeName {
			t.Errorf("node %v = %+v, want %+v", id, node, original)
		}
		if (node.Value == nil) != (original.Value == nil) {
			t.Errorf("node %v value presence mismatch", id)
		} else if node.Value != nil && !node.Value.Equal(*original.Value) {
			t.Errorf("node %v value = %v, want %v", id, node.Value, original.Value)
		}
		if !reflect.DeepEqual(node.Successors, original.Successors) {
			t.Errorf("node %v edges = %v, want %v", id, node.Successors, original.Successors)
		}
	}
}

func TestReadJSON_Invalid(t *testing.T) {
	cases := []string{
		"not json",
		`{"nodes":[{"id":"bogus","class":"frame"}]}`,
		`{"nodes":[{"id":"frame:0","class":"nope"}]}`,
		`{"nodes":[{"id":"frame:0","class":"val","value":{"kind":"float"}}]}`,
		`{"nodes":[{"id":"frame:0","class":"frame","edges":[{"label":{"kind":"up"},"to":"root"}]}]}`,
	}
	for _, source := range cases {
		if _, err := ReadJSON(bytes.NewReader([]byte(source))); err == nil {
			t.Errorf("ReadJSON(%q) should have failed", source)
		}
	}
}
