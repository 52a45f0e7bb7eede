package state

import (
	"math"
	"testing"
)

func TestCompare_SameKind(t *testing.T) {
	cases := []struct {
		name string
		a, b NodeValue
		want int
	}{
		{"uint less", UintValue(1), UintValue(2), -1},
		{"uint equal", UintValue(7), UintValue(7), 0},
		{"int less", IntValue(-3), IntValue(4), -1},
		{"int greater", IntValue(4), IntValue(-3), 1},
		{"bool order", BoolValue(false), BoolValue(true), -1},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%s: Compare(%v, %v) = %d, want %d", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestCompare_CrossKind(t *testing.T) {
	cases := []struct {
		name string
		a, b NodeValue
		want int
	}{
		{"true equals one", BoolValue(true), UintValue(1), 0},
		{"false equals zero", BoolValue(false), IntValue(0), 0},
		{"negative below any uint", IntValue(-1), UintValue(0), -1},
		{"huge uint above any int", UintValue(math.MaxUint64), IntValue(math.MaxInt64), 1},
		{"int uint same value", IntValue(42), UintValue(42), 0},
		{"uint above negative", UintValue(0), IntValue(math.MinInt64), 1},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%s: Compare(%v, %v) = %d, want %d", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !UintValue(1).Equal(BoolValue(true)) {
		t.Error("1u should equal true")
	}
	if IntValue(-1).Equal(UintValue(math.MaxUint64)) {
		t.Error("-1 should not equal MaxUint64")
	}
}

func TestNodeSuccessors(t *testing.T) {
	n := &Node{Class: ClassStruct}
	n.AddNamedSuccessor("a", VariableID("v1"))
	n.AddNamedSuccessor("b", VariableID("v2"))
	n.AddNamedSuccessor("a", VariableID("v3"))

	if id, ok := n.Successor(Named("a", 0)); !ok || id != VariableID("v1") {
		t.Errorf(`Successor("a"#0) = %v, %v`, id, ok)
	}
	if id, ok := n.Successor(Named("a", 1)); !ok || id != VariableID("v3") {
		t.Errorf(`Successor("a"#1) = %v, %v`, id, ok)
	}
	if _, ok := n.Successor(Named("c", 0)); ok {
		t.Error("unknown name should not resolve")
	}

	if label, ok := n.RemoveSuccessorByID(VariableID("v2")); !ok || label != Named("b", 0) {
		t.Errorf("RemoveSuccessorByID = %v, %v", label, ok)
	}
	if len(n.Successors) != 2 {
		t.Errorf("expected 2 successors after removal, got %d", len(n.Successors))
	}
}

func TestEdgeLabelString(t *testing.T) {
	cases := map[EdgeLabel]string{
		Main:           "main",
		Next:           "next",
		Result:         "ret",
		Deref:          "ref",
		Length:         "len",
		Index(3):       "[3]",
		Named("ab", 1): `"ab"#1`,
	}
	for label, want := range cases {
		if got := label.String(); got != want {
			t.Errorf("String(%#v) = %q, want %q", label, got, want)
		}
	}
}
