package cascade

import "github.com/stateviz/stateviz/internal/state"

// PVKind discriminates the variants of PropertyValue.
type PVKind int

const (
	// PVUnset: the property was cleared or never assigned.
	PVUnset PVKind = iota

	// PVString: a string literal or compound string.
	PVString

	// PVValue: a program value extracted from state or computed.
	PVValue

	// PVSelection: a reference to a selectable entity.
	PVSelection
)

// PropertyValue is the result of a stylesheet expression; it can be
// assigned to cascade variables and properties.
type PropertyValue struct {
	Kind PVKind
	Str  string
	Val  state.NodeValue
	Sel  Selectable
}

// UnsetValue constructs the unset value.
func UnsetValue() PropertyValue {
	return PropertyValue{}
}

// StringValue constructs a string value.
func StringValue(s string) PropertyValue {
	return PropertyValue{Kind: PVString, Str: s}
}

// ValueOf wraps a node value.
func ValueOf(v state.NodeValue) PropertyValue {
	return PropertyValue{Kind: PVValue, Val: v}
}

// BoolOf wraps a boolean.
func BoolOf(b bool) PropertyValue {
	return ValueOf(state.BoolValue(b))
}

// IntOf wraps a signed integer.
func IntOf(i int64) PropertyValue {
	return ValueOf(state.IntValue(i))
}

// UintOf wraps an unsigned integer.
func UintOf(u uint64) PropertyValue {
	return ValueOf(state.UintValue(u))
}

// SelectionValue wraps a selectable reference.
func SelectionValue(s Selectable) PropertyValue {
	return PropertyValue{Kind: PVSelection, Sel: s}
}

// IsTruthy reports the truthiness of a value. Unset, the empty
// string, false, and numeric zero are falsy; everything else is
// truthy. In particular every selection is truthy regardless of the
// selected entity's value or existence, so double negation of a
// select expression tests existence.
func (v PropertyValue) IsTruthy() bool {
	switch v.Kind {
	case PVUnset:
		return false
	case PVString:
		return v.Str != ""
	case PVSelection:
		return true
	default:
		switch v.Val.Kind {
		case state.BoolVal:
			return v.Val.B
		case state.IntVal:
			return v.Val.I != 0
		default:
			return v.Val.U != 0
		}
	}
}

// Equal tests values for equality: unset equals unset, strings by
// content, selections by identity, numeric values arithmetically
// (true equals one, false equals zero). Values of different kinds
// are never equal.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case PVUnset:
		return true
	case PVString:
		return v.Str == other.Str
	case PVSelection:
		return v.Sel == other.Sel
	default:
		return v.Val.Equal(other.Val)
	}
}

// partialCompare orders two values where possible. Equal values of
// the same kind compare equal; numeric values are totally ordered;
// every other pair is unordered.
func (v PropertyValue) partialCompare(other PropertyValue) (int, bool) {
	if v.Kind == PVValue && other.Kind == PVValue {
		return v.Val.Compare(other.Val), true
	}
	if v.Equal(other) {
		return 0, true
	}
	return 0, false
}

// String renders a value the way attributes are serialized: unset as
// the empty string, booleans as true/false, numbers in decimal.
func (v PropertyValue) String() string {
	switch v.Kind {
	case PVUnset:
		return ""
	case PVString:
		return v.Str
	case PVSelection:
		return "@(" + v.Sel.String() + ")"
	default:
		return v.Val.String()
	}
}
