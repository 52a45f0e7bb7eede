package cascade

import (
	"math"

	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// EvalContext carries the state an expression may consult: the graph
// for select expressions, the origin node they start from, the
// variable pool, and the per-edge magic values established by the
// cascade when it traversed an edge.
type EvalContext struct {
	Graph     state.Graph
	Origin    *state.NodeID
	Pool      *VariablePool
	EdgeIndex *uint64
	EdgeName  *string
	EdgeDisc  *int
}

// WithOrigin derives a context rooted at another node.
func (c *EvalContext) WithOrigin(origin state.NodeID) *EvalContext {
	derived := *c
	derived.Origin = &origin
	return &derived
}

// Evaluate computes the value of an expression in a context. The
// context may be nil for constant expressions. Evaluation cannot
// fail: missing state and arithmetic errors yield the unset value.
func Evaluate(expr style.Expression, ctx *EvalContext) PropertyValue {
	if ctx == nil {
		ctx = &EvalContext{}
	}
	switch e := expr.(type) {
	case style.Unset:
		return UnsetValue()
	case style.Bool:
		return BoolOf(e.V)
	case style.Int:
		return UintOf(e.V)
	case style.String:
		return StringValue(e.V)
	case style.Variable:
		if ctx.Pool != nil {
			if value, ok := ctx.Pool.Get(e.Name); ok {
				return value
			}
		}
		return UnsetValue()
	case style.Magic:
		return evalMagic(e.Key, ctx)
	case style.Select:
		return evalSelect(e.Selector, ctx)
	case style.Unary:
		return evalUnary(e, ctx)
	case style.Binary:
		return evalBinary(e, ctx)
	case style.Conditional:
		if Evaluate(e.Cond, ctx).IsTruthy() {
			return Evaluate(e.Then, ctx)
		}
		return Evaluate(e.Else, ctx)
	default:
		return UnsetValue()
	}
}

func evalMagic(key style.MagicKey, ctx *EvalContext) PropertyValue {
	switch key {
	case style.EdgeIndexMagic:
		if ctx.EdgeIndex != nil {
			return UintOf(*ctx.EdgeIndex)
		}
	case style.EdgeNameMagic:
		if ctx.EdgeName != nil {
			return StringValue(*ctx.EdgeName)
		}
	case style.EdgeDiscriminatorMagic:
		if ctx.EdgeDisc != nil {
			return UintOf(uint64(*ctx.EdgeDisc))
		}
	}
	return UnsetValue()
}

func evalSelect(selector *style.LimitedSelector, ctx *EvalContext) PropertyValue {
	var origin state.NodeID
	switch {
	case selector.Origin != nil:
		value := Evaluate(selector.Origin, ctx)
		if value.Kind != PVSelection || !value.Sel.IsNode() {
			return UnsetValue()
		}
		origin = value.Sel.Node
	case ctx.Origin != nil:
		origin = *ctx.Origin
	default:
		return UnsetValue()
	}
	current := origin
	for _, step := range selector.Path {
		if ctx.Graph == nil {
			return UnsetValue()
		}
		label := step.Label
		if step.DynIndex != nil {
			index, ok := dynIndexValue(Evaluate(step.DynIndex, ctx), ctx)
			if !ok {
				return UnsetValue()
			}
			label = state.Index(index)
		}
		node, ok := ctx.Graph.Get(current)
		if !ok {
			return UnsetValue()
		}
		next, ok := node.Successor(label)
		if !ok {
			return UnsetValue()
		}
		current = next
	}
	selection := NodeSelectable(current)
	if selector.Extra != nil {
		selection = selection.WithExtra(*selector.Extra)
	}
	return SelectionValue(selection)
}

// dynIndexValue coerces a computed index to a nonnegative integer.
func dynIndexValue(value PropertyValue, ctx *EvalContext) (uint64, bool) {
	value = coerceToValue(value, ctx)
	if value.Kind != PVValue {
		return 0, false
	}
	switch value.Val.Kind {
	case state.UintVal:
		return value.Val.U, true
	case state.IntVal:
		if value.Val.I < 0 {
			return 0, false
		}
		return uint64(value.Val.I), true
	case state.BoolVal:
		if value.Val.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// coerceToNode retrieves the node a value references, if any.
func coerceToNode(value PropertyValue, ctx *EvalContext) (*state.Node, bool) {
	if value.Kind != PVSelection || !value.Sel.IsNode() || ctx.Graph == nil {
		return nil, false
	}
	return ctx.Graph.Get(value.Sel.Node)
}

// coerceToValue converts a node selection to the node's own value.
// Selections of edges and extras, and selections of missing nodes,
// become unset; other values pass through.
func coerceToValue(value PropertyValue, ctx *EvalContext) PropertyValue {
	if value.Kind != PVSelection {
		return value
	}
	if node, ok := coerceToNode(value, ctx); ok && node.Value != nil {
		return ValueOf(*node.Value)
	}
	return UnsetValue()
}

func evalUnary(e style.Unary, ctx *EvalContext) PropertyValue {
	operand := Evaluate(e.Operand, ctx)
	switch e.Op {
	case style.UnaryPlus:
		value := coerceToValue(operand, ctx)
		switch value.Kind {
		case PVValue:
			if value.Val.Kind == state.BoolVal {
				if value.Val.B {
					return UintOf(1)
				}
				return UintOf(0)
			}
			return value
		default:
			// Unset stays unset, strings pass through
			return value
		}
	case style.UnaryMinus:
		value := coerceToValue(operand, ctx)
		if value.Kind != PVValue {
			return UnsetValue()
		}
		switch value.Val.Kind {
		case state.IntVal:
			if value.Val.I == math.MinInt64 {
				return UnsetValue()
			}
			return IntOf(-value.Val.I)
		case state.UintVal:
			if value.Val.U > math.MaxInt64 {
				return UnsetValue()
			}
			return IntOf(-int64(value.Val.U))
		default:
			if value.Val.B {
				return IntOf(-1)
			}
			return IntOf(0)
		}
	case style.UnaryNot:
		return BoolOf(!operand.IsTruthy())
	case style.OpNodeValue:
		if node, ok := coerceToNode(operand, ctx); ok && node.Value != nil {
			return ValueOf(*node.Value)
		}
		return UnsetValue()
	case style.OpNodeIsA:
		if node, ok := coerceToNode(operand, ctx); ok {
			return BoolOf(node.Class == e.Class)
		}
		return BoolOf(false)
	case style.OpTypeName:
		if node, ok := coerceToNode(operand, ctx); ok && node.TypeName != "" {
			return StringValue(node.TypeName)
		}
		return UnsetValue()
	case style.OpIsSet:
		return BoolOf(operand.Kind != PVUnset)
	default:
		return UnsetValue()
	}
}

func evalBinary(e style.Binary, ctx *EvalContext) PropertyValue {
	left := Evaluate(e.Left, ctx)
	// Logical operators resolve on truthiness alone and are the only
	// ones that do not extract values from selections
	switch e.Op {
	case style.OpAnd:
		if !left.IsTruthy() {
			return BoolOf(false)
		}
		return BoolOf(Evaluate(e.Right, ctx).IsTruthy())
	case style.OpOr:
		if left.IsTruthy() {
			return BoolOf(true)
		}
		return BoolOf(Evaluate(e.Right, ctx).IsTruthy())
	}
	right := Evaluate(e.Right, ctx)
	left = coerceToValue(left, ctx)
	right = coerceToValue(right, ctx)
	switch e.Op {
	case style.BinaryPlus:
		if left.Kind == PVString || right.Kind == PVString {
			return StringValue(left.String() + right.String())
		}
		return numericBinary(left, right, addInt, addUint)
	case style.BinaryMinus:
		return numericBinary(left, right, subInt, subUint)
	case style.OpMul:
		return numericBinary(left, right, mulInt, mulUint)
	case style.OpDiv:
		return numericBinary(left, right, divEuclidInt, divEuclidUint)
	case style.OpMod:
		return numericBinary(left, right, remEuclidInt, remEuclidUint)
	case style.OpEq:
		return BoolOf(left.Equal(right))
	case style.OpNe:
		return BoolOf(!left.Equal(right))
	case style.OpLt:
		cmp, ok := left.partialCompare(right)
		return BoolOf(ok && cmp < 0)
	case style.OpLe:
		cmp, ok := left.partialCompare(right)
		return BoolOf(ok && cmp <= 0)
	case style.OpGt:
		cmp, ok := left.partialCompare(right)
		return BoolOf(ok && cmp > 0)
	case style.OpGe:
		cmp, ok := left.partialCompare(right)
		return BoolOf(ok && cmp >= 0)
	default:
		return UnsetValue()
	}
}

// Numeric pairing: both operands must coerce to integers. A mixed
// signed/unsigned pair computes in the signed domain when the
// unsigned side fits, and fails otherwise.

type numericKind int

const (
	numSigned numericKind = iota
	numUnsigned
)

func asNumeric(value PropertyValue) (int64, uint64, numericKind, bool) {
	if value.Kind != PVValue {
		return 0, 0, 0, false
	}
	switch value.Val.Kind {
	case state.IntVal:
		return value.Val.I, 0, numSigned, true
	case state.UintVal:
		return 0, value.Val.U, numUnsigned, true
	default:
		if value.Val.B {
			return 0, 1, numUnsigned, true
		}
		return 0, 0, numUnsigned, true
	}
}

func numericBinary(
	left, right PropertyValue,
	signedOp func(a, b int64) (int64, bool),
	unsignedOp func(a, b uint64) (PropertyValue, bool),
) PropertyValue {
	li, lu, lk, ok := asNumeric(left)
	if !ok {
		return UnsetValue()
	}
	ri, ru, rk, ok := asNumeric(right)
	if !ok {
		return UnsetValue()
	}
	switch {
	case lk == numUnsigned && rk == numUnsigned:
		result, ok := unsignedOp(lu, ru)
		if !ok {
			return UnsetValue()
		}
		return result
	case lk == numSigned && rk == numUnsigned:
		if ru > math.MaxInt64 {
			return UnsetValue()
		}
		ri = int64(ru)
	case lk == numUnsigned && rk == numSigned:
		if lu > math.MaxInt64 {
			return UnsetValue()
		}
		li = int64(lu)
	}
	result, ok := signedOp(li, ri)
	if !ok {
		return UnsetValue()
	}
	return IntOf(result)
}

func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func addUint(a, b uint64) (PropertyValue, bool) {
	if a > math.MaxUint64-b {
		return PropertyValue{}, false
	}
	return UintOf(a + b), true
}

func subInt(a, b int64) (int64, bool) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, false
	}
	return diff, true
}

// subUint may produce a negative signed result when the right side is
// larger, provided the difference is representable.
func subUint(a, b uint64) (PropertyValue, bool) {
	if a >= b {
		return UintOf(a - b), true
	}
	diff := b - a
	if diff > math.MaxInt64 {
		return PropertyValue{}, false
	}
	return IntOf(-int64(diff)), true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}

func mulUint(a, b uint64) (PropertyValue, bool) {
	if a != 0 && b > math.MaxUint64/a {
		return PropertyValue{}, false
	}
	return UintOf(a * b), true
}

// divEuclidInt is Euclidean division: the remainder is always
// nonnegative and strictly smaller than the divisor's magnitude.
func divEuclidInt(a, b int64) (int64, bool) {
	if b == 0 || (a == math.MinInt64 && b == -1) {
		return 0, false
	}
	q := a / b
	if a%b < 0 {
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q, true
}

func divEuclidUint(a, b uint64) (PropertyValue, bool) {
	if b == 0 {
		return PropertyValue{}, false
	}
	return UintOf(a / b), true
}

func remEuclidInt(a, b int64) (int64, bool) {
	if b == 0 || (a == math.MinInt64 && b == -1) {
		return 0, false
	}
	r := a % b
	if r < 0 {
		if b > 0 {
			r += b
		} else {
			r -= b
		}
	}
	return r, true
}

func remEuclidUint(a, b uint64) (PropertyValue, bool) {
	if b == 0 {
		return PropertyValue{}, false
	}
	return UintOf(a % b), true
}
