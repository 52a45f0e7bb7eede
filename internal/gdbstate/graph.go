// Package gdbstate mirrors a live debugger's view of a program into
// a state graph, incrementally across stops.
package gdbstate

import (
	"github.com/stateviz/stateviz/internal/gdbmi"
	"github.com/stateviz/stateviz/internal/state"
)

// Graph is a program state graph backed by a GDB session. Node storage
// is keyed by stable identifiers; edges reference nodes by id, which
// keeps Deref cycles representable without ownership loops.
type Graph struct {
	root      state.Node
	stack     []*state.Node
	variables map[gdbmi.VarObject]*variableNode
	lengths   map[gdbmi.VarObject]*state.Node
}

// variableNode couples a state node with the context it is embedded in.
type variableNode struct {
	node      state.Node
	embedding embedding
}

// embedding identifies the context a variable-object node exists in.
// Only Global and Local nodes are top level; they are deleted
// explicitly when their scope ends, while Nested nodes are cleaned up
// transitively.
type embedding struct {
	kind  embeddingKind
	frame int
}

type embeddingKind int

const (
	embeddingGlobal embeddingKind = iota
	embeddingLocal
	embeddingNested
)

func globalEmbedding() embedding {
	return embedding{kind: embeddingGlobal}
}

func localEmbedding(frameIndex int) embedding {
	return embedding{kind: embeddingLocal, frame: frameIndex}
}

func nestedEmbedding() embedding {
	return embedding{kind: embeddingNested}
}

func (v *variableNode) isTopLevel() bool {
	return v.embedding.kind != embeddingNested
}

// Root returns the id of the root node.
func (g *Graph) Root() state.NodeID {
	return state.RootID()
}

// Get finds a node by its id.
func (g *Graph) Get(id state.NodeID) (*state.Node, bool) {
	switch id.Kind {
	case state.IDRoot:
		return &g.root, true
	case state.IDFrame:
		if id.Frame < 0 || id.Frame >= len(g.stack) {
			return nil, false
		}
		return g.stack[id.Frame], true
	case state.IDVariable:
		if v, ok := g.variables[gdbmi.VarObject(id.Handle)]; ok {
			return &v.node, true
		}
		return nil, false
	case state.IDLength:
		if n, ok := g.lengths[gdbmi.VarObject(id.Handle)]; ok {
			return n, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// Empty constructs a graph that only consists of the root node.
func Empty() *Graph {
	return &Graph{
		root:      state.Node{Class: state.ClassRoot},
		variables: make(map[gdbmi.VarObject]*variableNode),
		lengths:   make(map[gdbmi.VarObject]*state.Node),
	}
}
