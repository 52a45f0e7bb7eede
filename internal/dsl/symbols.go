package dsl

import (
	"strings"

	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// edgeLabelFromName resolves the unquoted edge label names usable in
// selectors: main, next, ret, ref, len.
func edgeLabelFromName(name string) (state.EdgeLabel, error) {
	switch name {
	case "main":
		return state.Main, nil
	case "next":
		return state.Next, nil
	case "ret":
		return state.Result, nil
	case "ref":
		return state.Deref, nil
	case "len":
		return state.Length, nil
	default:
		return state.EdgeLabel{}, &UnknownSymbolError{Context: "edge label", Symbol: name}
	}
}

// isVariableName reports whether a symbol names a cascade variable.
// Symbols that start with a double dash are variable names.
func isVariableName(name string) bool {
	return strings.HasPrefix(name, "--")
}

// unquotedStyleKey resolves an unquoted clause key: the well-known
// property names, variable names, and plain attribute names.
func unquotedStyleKey(name string) style.Key {
	switch name {
	case "display":
		return style.Key{Kind: style.KeyDisplay}
	case "parent":
		return style.Key{Kind: style.KeyParent}
	case "target":
		return style.Key{Kind: style.KeyTarget}
	case "detach":
		return style.Key{Kind: style.KeyDetach}
	default:
		if isVariableName(name) {
			return style.VariableKey(name)
		}
		return style.AttributeKey(name)
	}
}

// fragmentKeyFromName resolves the fragment names of fragment-
// qualified clause keys.
func fragmentKeyFromName(name string) (style.FragmentKey, error) {
	switch name {
	case "start":
		return style.FragmentStart, nil
	case "end":
		return style.FragmentEnd, nil
	default:
		return 0, &UnknownSymbolError{Context: "fragment name", Symbol: name}
	}
}

// nodeTypeClassByName resolves the node type class names used by the
// is-<class> functions and :<class> selector segments.
func nodeTypeClassByName(name string) (state.NodeTypeClass, error) {
	switch name {
	case "root":
		return state.ClassRoot, nil
	case "frame":
		return state.ClassFrame, nil
	case "val":
		return state.ClassAtom, nil
	case "struct":
		return state.ClassStruct, nil
	case "arr":
		return state.ClassArray, nil
	case "ref":
		return state.ClassRef, nil
	default:
		return 0, &UnknownSymbolError{Context: "type class", Symbol: name}
	}
}

// unaryFunctionByName resolves named unary functions: isset, val,
// typename, and is-<class>.
func unaryFunctionByName(name string) (style.Unary, error) {
	switch name {
	case "isset":
		return style.Unary{Op: style.OpIsSet}, nil
	case "val":
		return style.Unary{Op: style.OpNodeValue}, nil
	case "typename":
		return style.Unary{Op: style.OpTypeName}, nil
	default:
		if suffix, ok := strings.CutPrefix(name, "is-"); ok {
			if class, err := nodeTypeClassByName(suffix); err == nil {
				return style.Unary{Op: style.OpNodeIsA, Class: class}, nil
			}
		}
		return style.Unary{}, &UnknownSymbolError{Context: "function name", Symbol: name}
	}
}

// literalExpressionByName resolves unquoted tokens that are valid in
// expressions: unset, none, true, false, and variable names.
func literalExpressionByName(name string) (style.Expression, error) {
	switch name {
	case "unset", "none":
		return style.Unset{}, nil
	case "true":
		return style.Bool{V: true}, nil
	case "false":
		return style.Bool{V: false}, nil
	default:
		if isVariableName(name) {
			return style.Variable{Name: name}, nil
		}
		return nil, &UnknownSymbolError{Context: "literal", Symbol: name}
	}
}

// typeMatchCondition builds the condition expression of a :<name>
// selector segment: a class test for the known class names (unquoted
// form only), a type-name equality otherwise.
func typeMatchCondition(typeName string, allowSpecialNames bool) style.Expression {
	if allowSpecialNames {
		if class, err := nodeTypeClassByName(typeName); err == nil {
			return style.Unary{
				Op:      style.OpNodeIsA,
				Class:   class,
				Operand: style.Select{Selector: &style.LimitedSelector{}},
			}
		}
	}
	return style.Binary{
		Left: style.Unary{
			Op:      style.OpTypeName,
			Operand: style.Select{Selector: &style.LimitedSelector{}},
		},
		Op:    style.OpEq,
		Right: style.String{V: typeName},
	}
}

// indexMatchCondition builds the condition paired with an AnyIndex
// matcher when a selector uses a computed index.
func indexMatchCondition(index style.Expression) style.Expression {
	return style.Binary{
		Left:  style.Magic{Key: style.EdgeIndexMagic},
		Op:    style.OpEq,
		Right: index,
	}
}
