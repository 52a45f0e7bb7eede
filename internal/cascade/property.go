// Package cascade compiles stylesheets and evaluates them against a
// program state graph, producing the entity to property mapping that
// drives the visualization.
package cascade

import (
	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// Selectable identifies any entity that can be selected and given
// visual properties: a state node, an outgoing edge of a node, or an
// "extra" (a virtual adjunct attached to either).
type Selectable struct {
	// Node is the selected node, or the source of the selected edge.
	Node state.NodeID

	// Edge is the label of the selected outgoing edge when HasEdge
	// is set; otherwise the node itself is selected.
	Edge    state.EdgeLabel
	HasEdge bool

	// Extra identifies a virtual entity attached to the node or edge
	// when HasExtra is set.
	Extra    string
	HasExtra bool
}

// NodeSelectable identifies a node.
func NodeSelectable(id state.NodeID) Selectable {
	return Selectable{Node: id}
}

// EdgeSelectable identifies an edge by its source node and label.
func EdgeSelectable(id state.NodeID, label state.EdgeLabel) Selectable {
	return Selectable{Node: id, Edge: label, HasEdge: true}
}

// WithExtra attaches an extra label; the result no longer refers to a
// state entity, but to a virtual entity that can carry visuals.
func (s Selectable) WithExtra(extra string) Selectable {
	s.Extra = extra
	s.HasExtra = true
	return s
}

// WithoutExtra strips the extra label, yielding the owning entity.
func (s Selectable) WithoutExtra() Selectable {
	s.Extra = ""
	s.HasExtra = false
	return s
}

// IsNode reports whether the selection is a plain node.
func (s Selectable) IsNode() bool {
	return !s.HasEdge && !s.HasExtra
}

// IsEdge reports whether the selection is a plain edge.
func (s Selectable) IsEdge() bool {
	return s.HasEdge && !s.HasExtra
}

// IsExtra reports whether the selection is an extra entity.
func (s Selectable) IsExtra() bool {
	return s.HasExtra
}

func (s Selectable) String() string {
	out := s.Node.String()
	if s.HasEdge {
		out += " " + s.Edge.String() + "::edge"
	}
	if s.HasExtra {
		if s.Extra == "" {
			out += "::extra"
		} else {
			out += "::extra(" + s.Extra + ")"
		}
	}
	return out
}

// DisplayMode is the way an entity is visualized: as a connector or
// as an element with a tag name.
type DisplayMode struct {
	Connector bool
	Tag       string
}

// connectorName is the display string that selects connector mode.
const connectorName = "connector"

// displayModeFromName maps a display string to a mode.
func displayModeFromName(name string) DisplayMode {
	if name == connectorName {
		return DisplayMode{Connector: true}
	}
	return DisplayMode{Tag: name}
}

// ConnectorMode is the connector display mode.
func ConnectorMode() DisplayMode {
	return DisplayMode{Connector: true}
}

// ElementMode is the element display mode with a tag name.
func ElementMode(tag string) DisplayMode {
	return DisplayMode{Tag: tag}
}

func (m DisplayMode) String() string {
	if m.Connector {
		return connectorName
	}
	return m.Tag
}

// PropertyMap holds the resolved display properties of one entity.
type PropertyMap struct {
	// Attributes are plain string attributes.
	Attributes map[string]string

	// FragmentAttributes belong to fragments of the entity rather
	// than the entity as a whole.
	FragmentAttributes map[style.FragmentKey]map[string]string

	// Display is the display mode, if any.
	Display *DisplayMode

	// Parent is the entity whose visual should parent this one, or
	// the start point if Display is a connector.
	Parent *Selectable

	// Target is the end point if Display is a connector.
	Target *Selectable
}

// NewPropertyMap constructs an empty property map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{
		Attributes:         make(map[string]string),
		FragmentAttributes: make(map[style.FragmentKey]map[string]string),
	}
}

// EntityPropertyMapping is the result of the cascade: resolved
// properties for every selected entity.
type EntityPropertyMapping map[Selectable]*PropertyMap
