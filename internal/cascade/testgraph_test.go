package cascade

import (
	"strconv"

	"github.com/stateviz/stateviz/internal/state"
)

// nid maps the numbering of the canonical test graph onto node ids.
func nid(i int) state.NodeID {
	if i == 0 {
		return state.RootID()
	}
	return state.VariableID(strconv.Itoa(i))
}

// numericNodeValue is the value of node 5 in the canonical graph.
const numericNodeValue = 37

// defaultGraph builds the canonical 14-node graph used across the
// cascade tests.
//
//	          main          next           next         next
//	       +------->([1])--------->([2])--------->([3])------>([4])
//	      /            \                             \          |
//	     /              \               ref           \         |
//	 ([0])          +----\-----------------------+     | "a"    |
//	     \         /      \                       \   /         |
//	      \       v        \                "b"    \ v      ret |
//	   "a" +-->([5] 37)-----\------>([6] 3)------>([7])         |
//	            /   \  "a"   \          \                      /
//	       [0] /     \        \ "a"      \ "a"                /
//	          /       \        v    "a"   v       [0]        v
//	         v         +---->([10])---->([11])---------->([13])
//	      ([8])       ref      ^ \          \             /
//	        |                  |  \          \ [1]       /
//	        | ref              |   \ "a"#1    v         / ref
//	        v              ref |    +------>([12])<----+
//	      ([9])                |             /
//	                           +------------+
func defaultGraph() *state.MemGraph {
	g := state.NewMemGraph()
	value5 := state.UintValue(numericNodeValue)
	value6 := state.UintValue(3)
	nodes := map[int]*state.Node{
		0: {Class: state.ClassRoot, Successors: []state.Edge{
			{Label: state.Main, To: nid(1)},
			{Label: state.Named("a", 0), To: nid(5)},
		}},
		1: {Class: state.ClassFrame, TypeName: "first", Successors: []state.Edge{
			{Label: state.Next, To: nid(2)},
			{Label: state.Named("a", 0), To: nid(10)},
		}},
		2: {Class: state.ClassFrame, TypeName: "second", Successors: []state.Edge{
			{Label: state.Next, To: nid(3)},
		}},
		3: {Class: state.ClassFrame, TypeName: "third", Successors: []state.Edge{
			{Label: state.Next, To: nid(4)},
			{Label: state.Named("a", 0), To: nid(7)},
		}},
		4: {Class: state.ClassFrame, TypeName: "fourth", Successors: []state.Edge{
			{Label: state.Result, To: nid(13)},
		}},
		5: {Class: state.ClassAtom, TypeName: "int", Value: &value5, Successors: []state.Edge{
			{Label: state.Named("a", 0), To: nid(6)},
			{Label: state.Index(0), To: nid(8)},
			{Label: state.Deref, To: nid(10)},
		}},
		6: {Class: state.ClassAtom, TypeName: "int", Value: &value6, Successors: []state.Edge{
			{Label: state.Named("a", 0), To: nid(11)},
			{Label: state.Named("b", 0), To: nid(7)},
		}},
		7: {Class: state.ClassRef, Successors: []state.Edge{
			{Label: state.Deref, To: nid(5)},
		}},
		8: {Class: state.ClassRef, Successors: []state.Edge{
			{Label: state.Deref, To: nid(9)},
		}},
		9:  {Class: state.ClassAtom, TypeName: "char"},
		10: {Class: state.ClassStruct, TypeName: "pair", Successors: []state.Edge{
			{Label: state.Named("a", 0), To: nid(11)},
			{Label: state.Named("a", 1), To: nid(12)},
		}},
		11: {Class: state.ClassArray, Successors: []state.Edge{
			{Label: state.Index(0), To: nid(13)},
			{Label: state.Index(1), To: nid(12)},
		}},
		12: {Class: state.ClassRef, Successors: []state.Edge{
			{Label: state.Deref, To: nid(10)},
		}},
		13: {Class: state.ClassRef, Successors: []state.Edge{
			{Label: state.Deref, To: nid(12)},
		}},
	}
	for i, node := range nodes {
		if i == 0 {
			root, _ := g.Get(g.Root())
			*root = *node
			continue
		}
		g.AddNode(nid(i), node)
	}
	return g
}
