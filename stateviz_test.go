package stateviz

import (
	"strings"
	"testing"

	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/vis"
)

// buildStackGraph builds a small two-frame program state:
//
//	root -main-> main() -next-> work()
//	main() has local "arr" = [10, 20] and work() has local "i" = 1
func buildStackGraph(t *testing.T) *MemGraph {
	t.Helper()
	g := state.NewMemGraph()
	root, _ := g.Get(g.Root())
	root.Successors = []state.Edge{{Label: state.Main, To: state.FrameID(0)}}

	g.AddNode(state.FrameID(0), &state.Node{
		Class:    state.ClassFrame,
		TypeName: "main",
		Successors: []state.Edge{
			{Label: state.Next, To: state.FrameID(1)},
			{Label: state.Named("arr", 0), To: state.VariableID("var1")},
		},
	})
	i := state.UintValue(1)
	g.AddNode(state.FrameID(1), &state.Node{
		Class:    state.ClassFrame,
		TypeName: "work",
		Successors: []state.Edge{
			{Label: state.Named("i", 0), To: state.VariableID("var2")},
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
	e0 := state.UintValue(10)
	e1 := state.UintValue(20)
	g.AddNode(state.VariableID("var1.0"), &state.Node{Class: state.ClassAtom, TypeName: "int", Value: &e0})
	g.AddNode(state.VariableID("var1.1"), &state.Node{Class: state.ClassAtom, TypeName: "int", Value: &e1})
	g.AddNode(state.LengthID("var1"), &state.Node{Class: state.ClassAtom, Value: &length})
	g.AddNode(state.VariableID("var2"), &state.Node{Class: state.ClassAtom, TypeName: "int", Value: &i})
	return g
}

const testSheet = `
:: { display: "board" }
:: main .many(next) {
  display: "kvt";
  title: typename(@);
}
.many(*) [] {
  display: "cell";
  value: @;
}
`

func TestEngine_EndToEnd(t *testing.T) {
	sheet, err := CompileStylesheet(testSheet, func(e ParseError) {
		t.Errorf("unexpected stylesheet error: %v", e)
	})
	if err != nil {
		t.Fatalf("CompileStylesheet failed: %v", err)
	}

	tree := NewMemTree()
	engine := NewEngine(sheet, tree)
	graph := buildStackGraph(t)
	mapping := engine.Refresh(graph)

	// One board, two frames, two cells
	var tags []string
	for _, element := range tree.Elements() {
		tags = append(tags, element.Tag)
	}
	counts := make(map[string]int)
	for _, tag := range tags {
		counts[tag]++
	}
	if counts["board"] != 1 || counts["kvt"] != 2 || counts["cell"] != 2 {
		t.Fatalf("element tags = %v", tags)
	}

	// The board roots the tree
	if tree.Root() == nil {
		t.Fatal("tree root should be set")
	}
	rootElement, _ := tree.Element(*tree.Root())
	if rootElement.(*vis.MemElement).Tag != "board" {
		t.Errorf("root tag = %q, want board", rootElement.(*vis.MemElement).Tag)
	}

	// Frames carry their function names and hang off the board chain
	frame := mapping[Selectable{Node: state.FrameID(0)}]
	if frame == nil || frame.Attributes["title"] != "main" {
		t.Errorf("frame 0 properties = %+v", frame)
	}
	if frame.Parent == nil || frame.Parent.Node != state.RootID() {
		t.Errorf("frame 0 parent = %+v, want the board", frame.Parent)
	}

	// Cells carry the element values
	cell := mapping[Selectable{Node: state.VariableID("var1.1")}]
	if cell == nil || cell.Attributes["value"] != "20" {
		t.Errorf("cell properties = %+v", cell)
	}

	descriptions := DescribeMapping(mapping)
	if len(descriptions) != len(mapping) {
		t.Errorf("described %d entities, want %d", len(descriptions), len(mapping))
	}
}

func TestEngine_SnapshotRoundTrip(t *testing.T) {
	graph := buildStackGraph(t)
	var buffer strings.Builder
	if err := SaveGraph(graph, &buffer); err != nil {
		t.Fatalf("SaveGraph failed: %v", err)
	}
	restored, err := LoadGraph(strings.NewReader(buffer.String()))
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}

	sheet, err := CompileStylesheet(`.many(*) :frame { title: typename(@) }`, nil)
	if err != nil {
		t.Fatalf("CompileStylesheet failed: %v", err)
	}
	mapping := Apply(sheet, restored)
	frame := mapping[Selectable{Node: state.FrameID(1)}]
	if frame == nil || frame.Attributes["title"] != "work" {
		t.Errorf("frame 1 properties = %+v", frame)
	}
}
