package style

import "github.com/stateviz/stateviz/internal/state"

// MatcherKind discriminates the variants of EdgeMatcher.
type MatcherKind int

const (
	// MatchAny matches all edges.
	MatchAny MatcherKind = iota

	// MatchExact matches one particular edge label.
	MatchExact

	// MatchAnyIndex matches all Index edges.
	MatchAnyIndex

	// MatchAnyNamed matches all Named edges.
	MatchAnyNamed

	// MatchName matches Named edges with a particular name and any
	// discriminator.
	MatchName
)

// EdgeMatcher is a pattern an edge label can be matched against.
type EdgeMatcher struct {
	Kind  MatcherKind
	Label state.EdgeLabel // MatchExact
	Name  string          // MatchName
}

// AnyEdge matches all edges.
func AnyEdge() EdgeMatcher {
	return EdgeMatcher{Kind: MatchAny}
}

// ExactEdge matches one edge label.
func ExactEdge(label state.EdgeLabel) EdgeMatcher {
	return EdgeMatcher{Kind: MatchExact, Label: label}
}

// AnyIndexEdge matches all index edges.
func AnyIndexEdge() EdgeMatcher {
	return EdgeMatcher{Kind: MatchAnyIndex}
}

// AnyNamedEdge matches all named edges.
func AnyNamedEdge() EdgeMatcher {
	return EdgeMatcher{Kind: MatchAnyNamed}
}

// NamedEdge matches named edges with the given name.
func NamedEdge(name string) EdgeMatcher {
	return EdgeMatcher{Kind: MatchName, Name: name}
}

// Matches tests an edge label against the matcher.
func (m EdgeMatcher) Matches(label state.EdgeLabel) bool {
	switch m.Kind {
	case MatchAny:
		return true
	case MatchExact:
		return label == m.Label
	case MatchAnyIndex:
		return label.Kind == state.KindIndex
	case MatchAnyNamed:
		return label.Kind == state.KindNamed
	case MatchName:
		return label.Kind == state.KindNamed && label.Name == m.Name
	default:
		return false
	}
}

// Segment is one element of a selector path.
type Segment interface {
	isSegment()
}

// MatchSegment consumes one edge.
type MatchSegment struct {
	Matcher EdgeMatcher
}

// ManySegment matches an inner path zero or more times.
type ManySegment struct {
	Path SelectorPath
}

// AltSegment matches any one of a set of paths.
type AltSegment struct {
	Paths []SelectorPath
}

// CondSegment is a pure guard: it consumes no edge and passes only if
// the condition is truthy.
type CondSegment struct {
	Condition Expression
}

func (MatchSegment) isSegment() {}
func (ManySegment) isSegment()  {}
func (AltSegment) isSegment()   {}
func (CondSegment) isSegment()  {}

// SelectorPath is a sequence of segments that must all match in order.
type SelectorPath []Segment

// AnythingAnyNumberOfTimes is the completely unrestricted segment that
// matches all edges to any depth. It is prepended to selectors that do
// not start at the root.
func AnythingAnyNumberOfTimes() Segment {
	return ManySegment{Path: SelectorPath{MatchSegment{Matcher: AnyEdge()}}}
}

// Selector is a full selector: a path plus tail decorators that
// specify which selectable element is selected.
type Selector struct {
	// Path that must match in order to select something.
	Path SelectorPath

	// SelectsEdge makes the selector select the last edge it matched
	// instead of the node at the end of that edge.
	SelectsEdge bool

	// Extra, when non-nil, selects an extra element attached to the
	// matched node or edge instead of the node or edge itself.
	Extra *string
}
