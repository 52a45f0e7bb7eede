// Package stateviz turns a debugged program's state into a
// visualization: it mirrors the debugger's view into a typed graph,
// applies a user-authored stylesheet to it, and forwards the result
// into a visualization tree.
package stateviz

import (
	"context"
	"io"
	"sort"

	"github.com/stateviz/stateviz/internal/cascade"
	"github.com/stateviz/stateviz/internal/dsl"
	"github.com/stateviz/stateviz/internal/forward"
	"github.com/stateviz/stateviz/internal/gdbmi"
	"github.com/stateviz/stateviz/internal/gdbstate"
	"github.com/stateviz/stateviz/internal/serialization"
	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/vis"
)

type (
	// ParseError is a recoverable stylesheet error with its line.
	ParseError = dsl.ParseError

	// ErrorHandler receives recoverable stylesheet errors.
	ErrorHandler = dsl.ErrorHandler

	// CompiledStylesheet is a stylesheet ready for the cascade.
	CompiledStylesheet = cascade.CompiledStylesheet

	// EntityPropertyMapping is the result of one cascade pass.
	EntityPropertyMapping = cascade.EntityPropertyMapping

	// Selectable identifies a node, edge, or extra entity.
	Selectable = cascade.Selectable

	// StateGraph is a graph mirrored from a debugger session.
	StateGraph = gdbstate.Graph

	// MemGraph is an in-memory state graph, typically loaded from a
	// snapshot.
	MemGraph = state.MemGraph

	// Session is the typed GDB/MI command surface.
	Session = gdbmi.Session

	// LineStream is the raw command transport a Session runs on.
	LineStream = gdbmi.LineStream

	// Tree is the visualization sink driven by the engine.
	Tree = vis.Tree

	// MemTree is the in-memory visualization tree.
	MemTree = vis.MemTree
)

// CompileStylesheet parses and compiles a stylesheet source.
// Recoverable errors go through the handler (which may be nil); the
// returned error is only non-nil when parsing failed irrecoverably.
func CompileStylesheet(source string, onError ErrorHandler) (*CompiledStylesheet, error) {
	sheet, err := dsl.ParseStylesheet(source, onError)
	if err != nil {
		return nil, err
	}
	return cascade.Compile(sheet), nil
}

// NewSession builds a typed session over a raw command transport.
func NewSession(lines LineStream) Session {
	return gdbmi.NewSession(gdbmi.NewStream(lines))
}

// NewStateGraph constructs a state graph from a live session.
func NewStateGraph(ctx context.Context, session Session) (*StateGraph, error) {
	return gdbstate.New(ctx, session)
}

// NewMemTree constructs an empty in-memory visualization tree.
func NewMemTree() *MemTree {
	return vis.NewMemTree()
}

// LoadGraph reads a state graph snapshot.
func LoadGraph(r io.Reader) (*MemGraph, error) {
	return serialization.ReadJSON(r)
}

// LoadGraphFile reads a state graph snapshot from a file.
func LoadGraphFile(path string) (*MemGraph, error) {
	return serialization.LoadJSON(path)
}

// SaveGraph writes a state graph snapshot.
func SaveGraph(g *MemGraph, w io.Writer) error {
	return serialization.WriteJSON(g, w)
}

// Engine couples a compiled stylesheet with a renderer over a
// visualization tree.
type Engine struct {
	sheet    *CompiledStylesheet
	renderer *forward.Renderer
}

// NewEngine constructs an engine rendering into a tree.
func NewEngine(sheet *CompiledStylesheet, tree Tree) *Engine {
	return &Engine{
		sheet:    sheet,
		renderer: forward.NewRenderer(tree),
	}
}

// Refresh recomputes the property mapping for the current graph state
// and forwards the changes into the tree. The graph's root entity
// roots the visualization.
func (e *Engine) Refresh(graph state.RootedGraph) EntityPropertyMapping {
	mapping := cascade.Apply(e.sheet, graph)
	e.renderer.Update(mapping)
	root := cascade.NodeSelectable(graph.Root())
	e.renderer.UpdateRoot(&root)
	return mapping
}

// Apply runs the cascade without touching any visualization tree.
func Apply(sheet *CompiledStylesheet, graph state.RootedGraph) EntityPropertyMapping {
	return cascade.Apply(sheet, graph)
}

// EntityDescription is a host-friendly rendering of one mapped
// entity's properties.
type EntityDescription struct {
	Entity             string                       `json:"entity"`
	Display            string                       `json:"display,omitempty"`
	Parent             string                       `json:"parent,omitempty"`
	Target             string                       `json:"target,omitempty"`
	Attributes         map[string]string            `json:"attributes,omitempty"`
	FragmentAttributes map[string]map[string]string `json:"fragmentAttributes,omitempty"`
}

// DescribeMapping flattens a property mapping into a stable,
// serializable form, ordered by entity.
func DescribeMapping(mapping EntityPropertyMapping) []EntityDescription {
	descriptions := make([]EntityDescription, 0, len(mapping))
	for entity, properties := range mapping {
		description := EntityDescription{Entity: entity.String()}
		if properties.Display != nil {
			description.Display = properties.Display.String()
		}
		if properties.Parent != nil {
			description.Parent = properties.Parent.String()
		}
		if properties.Target != nil {
			description.Target = properties.Target.String()
		}
		if len(properties.Attributes) > 0 {
			description.Attributes = properties.Attributes
		}
		if len(properties.FragmentAttributes) > 0 {
			description.FragmentAttributes = make(map[string]map[string]string)
			for fragment, bag := range properties.FragmentAttributes {
				description.FragmentAttributes[fragment.String()] = bag
			}
		}
		descriptions = append(descriptions, description)
	}
	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Entity < descriptions[j].Entity
	})
	return descriptions
}
