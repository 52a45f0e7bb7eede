package style

// KeyKind discriminates the variants of Key.
type KeyKind int

const (
	// KeyDisplay modifies the display mode of the selected entity.
	KeyDisplay KeyKind = iota

	// KeyParent modifies the parent reference of the selected entity.
	KeyParent

	// KeyTarget modifies the connector target reference.
	KeyTarget

	// KeyDetach modifies the detachment mode. Accepted but currently
	// not forwarded to the visualization.
	KeyDetach

	// KeyAttribute assigns a plain string attribute.
	KeyAttribute

	// KeyFragmentAttribute assigns an attribute of a fragment of the
	// selected entity.
	KeyFragmentAttribute

	// KeyVariable assigns a cascade variable instead of a property.
	KeyVariable
)

// FragmentKey identifies the fragments of a connector that attributes
// can be attached to. Attributes of fragments are ignored unless the
// entity is displayed as a connector.
type FragmentKey int

const (
	FragmentStart FragmentKey = iota
	FragmentEnd
)

func (f FragmentKey) String() string {
	if f == FragmentEnd {
		return "end"
	}
	return "start"
}

// Key is the left-hand side of a clause: a well-known property, an
// attribute (possibly fragment-qualified), or a cascade variable.
type Key struct {
	Kind     KeyKind
	Fragment FragmentKey // KeyFragmentAttribute
	Name     string      // KeyAttribute, KeyFragmentAttribute, KeyVariable
}

// AttributeKey constructs a plain attribute key.
func AttributeKey(name string) Key {
	return Key{Kind: KeyAttribute, Name: name}
}

// FragmentAttributeKey constructs a fragment-qualified attribute key.
func FragmentAttributeKey(fragment FragmentKey, name string) Key {
	return Key{Kind: KeyFragmentAttribute, Fragment: fragment, Name: name}
}

// VariableKey constructs a cascade variable key.
func VariableKey(name string) Key {
	return Key{Kind: KeyVariable, Name: name}
}

// Clause is a single property or variable assignment. Multiple
// clauses of a rule may share a key; they are evaluated in declaration
// order, which matters for variables.
type Clause struct {
	Key   Key
	Value Expression
}

// Rule assigns a series of property and variable values to all
// entities matched by its selector.
type Rule struct {
	Selector Selector
	Clauses  []Clause
}

// Stylesheet is an ordered sequence of rules.
type Stylesheet struct {
	Rules []Rule
}
