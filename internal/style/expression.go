// Package style defines the stylesheet AST: rules, clause keys,
// selectors, and expressions.
package style

import "github.com/stateviz/stateviz/internal/state"

// Expression is a stylesheet expression tree. All expressions are free
// of side effects; variable and select expressions are stateful only
// through the evaluation context.
type Expression interface {
	isExpression()
}

// Unset is the `unset` (null) literal.
type Unset struct{}

// Bool is a boolean literal.
type Bool struct {
	V bool
}

// Int is an integer literal.
type Int struct {
	V uint64
}

// String is a string literal.
type String struct {
	V string
}

// Variable invokes a user variable by its name (including the leading
// dashes).
type Variable struct {
	Name string
}

// Magic invokes a built-in interpreter variable.
type Magic struct {
	Key MagicKey
}

// Select refers to a selectable entity by a limited selector.
type Select struct {
	Selector *LimitedSelector
}

// Unary is a unary operator expression. Class is meaningful for
// OpNodeIsA only.
type Unary struct {
	Op      UnaryOp
	Class   state.NodeTypeClass
	Operand Expression
}

// Binary is a binary operator expression.
type Binary struct {
	Left  Expression
	Op    BinaryOp
	Right Expression
}

// Conditional is the ternary operator: if Cond is truthy it resolves
// to Then, otherwise to Else. Only the chosen branch is evaluated.
type Conditional struct {
	Cond Expression
	Then Expression
	Else Expression
}

func (Unset) isExpression()       {}
func (Bool) isExpression()        {}
func (Int) isExpression()         {}
func (String) isExpression()      {}
func (Variable) isExpression()    {}
func (Magic) isExpression()       {}
func (Select) isExpression()      {}
func (Unary) isExpression()       {}
func (Binary) isExpression()      {}
func (Conditional) isExpression() {}

// MagicKey identifies a built-in interpreter variable. The values are
// populated by the cascade when it establishes a context by
// traversing an edge of the matching label family.
type MagicKey int

const (
	// EdgeIndexMagic holds the index of the traversed Index edge.
	EdgeIndexMagic MagicKey = iota

	// EdgeNameMagic holds the name of the traversed Named edge.
	EdgeNameMagic

	// EdgeDiscriminatorMagic holds the discriminator of the traversed
	// Named edge.
	EdgeDiscriminatorMagic
)

// UnaryOp identifies the operator of a Unary expression.
type UnaryOp int

const (
	// UnaryPlus coerces a value to a number if possible.
	UnaryPlus UnaryOp = iota

	// UnaryMinus coerces to a number and negates.
	UnaryMinus

	// UnaryNot negates truthiness.
	UnaryNot

	// OpNodeValue extracts the value of a selected node (`val`).
	OpNodeValue

	// OpNodeIsA tests a selected node's type class (`is-<class>`).
	// The class is carried in Unary.Class.
	OpNodeIsA

	// OpTypeName extracts a selected node's type name (`typename`).
	OpTypeName

	// OpIsSet tests whether a value is defined (`isset`). Note that a
	// selection is always "set" even if the selected node does not
	// exist; use double negation to test existence.
	OpIsSet
)

// BinaryOp identifies the operator of a Binary expression.
type BinaryOp int

const (
	// BinaryPlus adds numbers or concatenates strings.
	BinaryPlus BinaryOp = iota

	// BinaryMinus subtracts numbers.
	BinaryMinus

	// OpMul multiplies numbers.
	OpMul

	// OpDiv is Euclidean integer division.
	OpDiv

	// OpMod is the Euclidean integer remainder.
	OpMod

	// OpEq and OpNe test equality.
	OpEq
	OpNe

	// OpLt, OpLe, OpGt, OpGe compare numeric values.
	OpLt
	OpLe
	OpGt
	OpGe

	// OpAnd and OpOr are logical connectives over truthiness.
	OpAnd
	OpOr
)

// LimitedEdgeMatcher is one step of a limited selector: either an
// exact edge label or an index edge whose index is computed
// dynamically. A dynamic index that does not evaluate to a
// nonnegative integer rejects all edges.
type LimitedEdgeMatcher struct {
	Label    state.EdgeLabel
	DynIndex Expression
}

// ExactStep constructs a limited matcher for a specific label.
func ExactStep(label state.EdgeLabel) LimitedEdgeMatcher {
	return LimitedEdgeMatcher{Label: label}
}

// DynIndexStep constructs a limited matcher with a computed index.
func DynIndexStep(index Expression) LimitedEdgeMatcher {
	return LimitedEdgeMatcher{DynIndex: index}
}

// LimitedSelector is a selector limited to a single path of exact
// matches; it always unambiguously selects at most one entity.
type LimitedSelector struct {
	// Path that must be matched in order to select something.
	Path []LimitedEdgeMatcher

	// Origin overrides the node the selector is evaluated from. If
	// the expression does not evaluate to a node selection, the
	// selector selects nothing.
	Origin Expression

	// Extra, when non-nil, makes the selector select an extra element
	// attached to the matched node instead of the node itself.
	Extra *string
}
