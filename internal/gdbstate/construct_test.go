package gdbstate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stateviz/stateviz/internal/gdbmi"
	"github.com/stateviz/stateviz/internal/state"
)

// varSpec describes one debuggee variable for the fake session.
type varSpec struct {
	value    string
	typeName string
	children []childSpec
}

type childSpec struct {
	exp  string
	spec varSpec
}

// frameSpec describes one stack frame, bottom-first in fakeSession.
type frameSpec struct {
	fn     string
	locals []localSpec
}

type localSpec struct {
	name string
	spec varSpec
}

// fakeSession is a scripted gdbmi.Session backed by frame and
// variable specs instead of a debuggee.
type fakeSession struct {
	t *testing.T

	// frames is bottom-first; StackListFrames reports top-first.
	frames []frameSpec

	selected int // level of the selected frame
	nextVar  int
	objects  map[gdbmi.VarObject]varSpec
	deleted  []gdbmi.VarObject
	pending  []gdbmi.VariableObjectUpdate
}

func newFakeSession(t *testing.T, frames ...frameSpec) *fakeSession {
	t.Helper()
	return &fakeSession{
		t:       t,
		frames:  frames,
		objects: make(map[gdbmi.VarObject]varSpec),
	}
}

func (s *fakeSession) SymbolInfoVariables(context.Context) ([]gdbmi.SymbolFile, error) {
	return nil, nil
}

func (s *fakeSession) StackInfoDepth(context.Context) (int, error) {
	return len(s.frames), nil
}

func (s *fakeSession) StackSelectFrame(_ context.Context, targetFrame int) error {
	if targetFrame < 0 || targetFrame >= len(s.frames) {
		return &gdbmi.ErrorResponse{Msg: "no such frame"}
	}
	s.selected = targetFrame
	return nil
}

func (s *fakeSession) StackListFrames(context.Context) ([]gdbmi.StackFrame, error) {
	frames := make([]gdbmi.StackFrame, 0, len(s.frames))
	for i := len(s.frames) - 1; i >= 0; i-- {
		frames = append(frames, gdbmi.StackFrame{
			Level: len(s.frames) - 1 - i,
			Func:  s.frames[i].fn,
		})
	}
	return frames, nil
}

func (s *fakeSession) StackListVariables(context.Context, gdbmi.PrintValues, bool) ([]gdbmi.LocalVariable, error) {
	frame := s.frames[len(s.frames)-1-s.selected]
	locals := make([]gdbmi.LocalVariable, 0, len(frame.locals))
	for _, l := range frame.locals {
		locals = append(locals, gdbmi.LocalVariable{Name: l.name})
	}
	return locals, nil
}

func (s *fakeSession) VarCreate(_ context.Context, _ gdbmi.FrameContext, expression string) (gdbmi.VariableObjectData, error) {
	frame := s.frames[len(s.frames)-1-s.selected]
	for _, l := range frame.locals {
		if l.name == expression {
			s.nextVar++
			handle := gdbmi.VarObject(fmt.Sprintf("var%d", s.nextVar))
			s.objects[handle] = l.spec
			return s.describe(handle, l.spec), nil
		}
	}
	return gdbmi.VariableObjectData{}, &gdbmi.ErrorResponse{Msg: "unable to create variable object"}
}

func (s *fakeSession) describe(handle gdbmi.VarObject, spec varSpec) gdbmi.VariableObjectData {
	data := gdbmi.VariableObjectData{
		Object:   handle,
		TypeName: spec.typeName,
		NumChild: len(spec.children),
	}
	if spec.value != "" {
		value := spec.value
		data.Value = &value
	}
	return data
}

func (s *fakeSession) VarDelete(_ context.Context, object gdbmi.VarObject) error {
	if _, ok := s.objects[object]; !ok {
		return &gdbmi.ErrorResponse{Msg: "variable object not found"}
	}
	delete(s.objects, object)
	s.deleted = append(s.deleted, object)
	return nil
}

func (s *fakeSession) VarEvaluateExpression(_ context.Context, object gdbmi.VarObject) (string, error) {
	if spec, ok := s.objects[object]; ok {
		return spec.value, nil
	}
	return "", &gdbmi.ErrorResponse{Msg: "variable object not found"}
}

func (s *fakeSession) VarListChildren(_ context.Context, object gdbmi.VarObject, _ gdbmi.PrintValues) (gdbmi.ChildList, error) {
	spec, ok := s.objects[object]
	if !ok {
		return gdbmi.ChildList{}, &gdbmi.ErrorResponse{Msg: "variable object not found"}
	}
	list := gdbmi.ChildList{NumChild: len(spec.children)}
	for _, child := range spec.children {
		handle := gdbmi.VarObject(fmt.Sprintf("%s.%s", object, child.exp))
		s.objects[handle] = child.spec
		list.Children = append(list.Children, gdbmi.ChildVariableObject{
			VariableObjectData: s.describe(handle, child.spec),
			Exp:                child.exp,
		})
	}
	return list, nil
}

func (s *fakeSession) VarUpdate(context.Context, gdbmi.PrintValues) ([]gdbmi.VariableObjectUpdate, error) {
	updates := s.pending
	s.pending = nil
	return updates, nil
}

func (s *fakeSession) DataEvaluateExpression(context.Context, string) (string, error) {
	return "", &gdbmi.ErrorResponse{Msg: "not supported"}
}

func mustGet(t *testing.T, g *Graph, id state.NodeID) *state.Node {
	t.Helper()
	node, ok := g.Get(id)
	if !ok {
		t.Fatalf("node %v not found", id)
	}
	return node
}

func follow(t *testing.T, g *Graph, from state.NodeID, labels ...state.EdgeLabel) state.NodeID {
	t.Helper()
	current := from
	for _, label := range labels {
		next, ok := mustGet(t, g, current).Successor(label)
		if !ok {
			t.Fatalf("no %s edge on %v", label, current)
		}
		current = next
	}
	return current
}

func TestNew_SingleFrameWithScalar(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn:     "main",
		locals: []localSpec{{name: "x", spec: varSpec{value: "5", typeName: "int"}}},
	})
	g, err := New(context.Background(), session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	frame := follow(t, g, g.Root(), state.Main)
	frameNode := mustGet(t, g, frame)
	if frameNode.Class != state.ClassFrame || frameNode.TypeName != "main" {
		t.Errorf("frame node = %+v", frameNode)
	}
	x := follow(t, g, frame, state.Named("x", 0))
	xNode := mustGet(t, g, x)
	if xNode.Class != state.ClassAtom || xNode.TypeName != "int" {
		t.Errorf("x node = %+v", xNode)
	}
	if xNode.Value == nil || !xNode.Value.Equal(state.UintValue(5)) {
		t.Errorf("x value = %v", xNode.Value)
	}
}

func TestNew_StructTypeNameStripped(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn: "main",
		locals: []localSpec{{name: "p", spec: varSpec{
			typeName: "struct pair",
			children: []childSpec{
				{exp: "x", spec: varSpec{value: "1", typeName: "int"}},
				{exp: "y", spec: varSpec{value: "-2", typeName: "int"}},
			},
		}}},
	})
	g, err := New(context.Background(), session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p := follow(t, g, g.Root(), state.Main, state.Named("p", 0))
	pNode := mustGet(t, g, p)
	if pNode.Class != state.ClassStruct {
		t.Errorf("p class = %v", pNode.Class)
	}
	if pNode.TypeName != "pair" {
		t.Errorf("p type name = %q, want pair", pNode.TypeName)
	}
	y := mustGet(t, g, follow(t, g, p, state.Named("y", 0)))
	if y.Value == nil || !y.Value.Equal(state.IntValue(-2)) {
		t.Errorf("y value = %v", y.Value)
	}
}

func TestNew_ArrayGetsLengthNode(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn: "main",
		locals: []localSpec{{name: "arr", spec: varSpec{
			typeName: "int [3]",
			children: []childSpec{
				{exp: "0", spec: varSpec{value: "10", typeName: "int"}},
				{exp: "1", spec: varSpec{value: "20", typeName: "int"}},
				{exp: "2", spec: varSpec{value: "30", typeName: "int"}},
			},
		}}},
	})
	g, err := New(context.Background(), session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	arr := follow(t, g, g.Root(), state.Main, state.Named("arr", 0))
	arrNode := mustGet(t, g, arr)
	if arrNode.Class != state.ClassArray {
		t.Errorf("arr class = %v", arrNode.Class)
	}
	if arrNode.TypeName != "" {
		t.Errorf("array nodes should not carry a type name, got %q", arrNode.TypeName)
	}
	second := mustGet(t, g, follow(t, g, arr, state.Index(1)))
	if second.Value == nil || !second.Value.Equal(state.UintValue(20)) {
		t.Errorf("arr[1] = %v", second.Value)
	}
	length := mustGet(t, g, follow(t, g, arr, state.Length))
	if length.Class != state.ClassAtom || length.Value == nil || !length.Value.Equal(state.UintValue(3)) {
		t.Errorf("length node = %+v", length)
	}
}

func TestNew_NullPointerHasNoDeref(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn: "main",
		locals: []localSpec{{name: "p", spec: varSpec{
			value:    "0x0",
			typeName: "int *",
			children: []childSpec{{exp: "*p", spec: varSpec{value: "0", typeName: "int"}}},
		}}},
	})
	g, err := New(context.Background(), session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p := follow(t, g, g.Root(), state.Main, state.Named("p", 0))
	pNode := mustGet(t, g, p)
	if pNode.Class != state.ClassRef {
		t.Errorf("p class = %v", pNode.Class)
	}
	if pNode.Value == nil || !pNode.Value.Equal(state.UintValue(0)) {
		t.Errorf("p value = %v", pNode.Value)
	}
	if _, ok := pNode.Successor(state.Deref); ok {
		t.Error("null pointer should not have a deref edge")
	}
}

func TestNew_ShadowedLocalsGetDiscriminators(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn: "main",
		locals: []localSpec{
			{name: "i", spec: varSpec{value: "1", typeName: "int"}},
			{name: "i", spec: varSpec{value: "2", typeName: "int"}},
		},
	})
	g, err := New(context.Background(), session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	frame := mustGet(t, g, follow(t, g, g.Root(), state.Main))
	if _, ok := frame.Successor(state.Named("i", 1)); !ok {
		t.Error("visible variable should use the topmost discriminator")
	}
	if _, ok := frame.Successor(state.Named("i", 0)); ok {
		t.Error("only the visible variable should have been read")
	}
}

func TestUpdate_PushAndPopFrame(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn:     "main",
		locals: []localSpec{{name: "x", spec: varSpec{value: "1", typeName: "int"}}},
	})
	ctx := context.Background()
	g, err := New(ctx, session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Step into a callee
	session.frames = append(session.frames, frameSpec{
		fn:     "inner",
		locals: []localSpec{{name: "y", spec: varSpec{value: "2", typeName: "int"}}},
	})
	if err := g.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	inner := follow(t, g, g.Root(), state.Main, state.Next)
	if mustGet(t, g, inner).TypeName != "inner" {
		t.Errorf("expected the inner frame above main")
	}
	follow(t, g, inner, state.Named("y", 0))

	// Return to main; the debugger invalidates y on its own
	innerY := session.findHandle(t, "2")
	session.frames = session.frames[:1]
	session.pending = []gdbmi.VariableObjectUpdate{
		{Object: innerY, InScope: gdbmi.InScopeInvalid},
	}
	if err := g.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	main := follow(t, g, g.Root(), state.Main)
	if main != state.FrameID(0) {
		t.Errorf("main frame id = %v", main)
	}
	mainNode := mustGet(t, g, main)
	if _, ok := mainNode.Successor(state.Next); ok {
		t.Error("popped frame should be unlinked")
	}
	x := mustGet(t, g, follow(t, g, main, state.Named("x", 0)))
	if x.Value == nil || !x.Value.Equal(state.UintValue(1)) {
		t.Errorf("x after pop = %v", x.Value)
	}
}

// findHandle locates a live variable object by its scripted value.
func (s *fakeSession) findHandle(t *testing.T, value string) gdbmi.VarObject {
	t.Helper()
	for handle, spec := range s.objects {
		if spec.value == value {
			return handle
		}
	}
	t.Fatal("no variable object with the requested value")
	return ""
}

func TestUpdate_ScopeExitRemovesSubtree(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn: "main",
		locals: []localSpec{{name: "p", spec: varSpec{
			typeName: "struct pair",
			children: []childSpec{
				{exp: "x", spec: varSpec{value: "1", typeName: "int"}},
				{exp: "y", spec: varSpec{value: "2", typeName: "int"}},
			},
		}}},
	})
	ctx := context.Background()
	g, err := New(ctx, session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(g.variables) != 3 {
		t.Fatalf("expected 3 variable nodes, got %d", len(g.variables))
	}

	p := follow(t, g, g.Root(), state.Main, state.Named("p", 0))
	// The frame's locals no longer include p
	session.frames[0].locals = nil
	session.pending = []gdbmi.VariableObjectUpdate{
		{Object: gdbmi.VarObject(p.Handle), InScope: gdbmi.InScopeFalse},
	}
	if err := g.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(g.variables) != 0 {
		t.Errorf("expected no dangling variable nodes, got %d", len(g.variables))
	}
	frame := mustGet(t, g, follow(t, g, g.Root(), state.Main))
	if _, ok := frame.Successor(state.Named("p", 0)); ok {
		t.Error("frame should no longer reference the variable")
	}
	if len(session.deleted) != 1 || session.deleted[0] != gdbmi.VarObject(p.Handle) {
		t.Errorf("only the top-level handle should be forgotten, deleted = %v", session.deleted)
	}
}

func TestUpdate_ValueRefresh(t *testing.T) {
	session := newFakeSession(t, frameSpec{
		fn:     "main",
		locals: []localSpec{{name: "x", spec: varSpec{value: "1", typeName: "int"}}},
	})
	ctx := context.Background()
	g, err := New(ctx, session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	x := follow(t, g, g.Root(), state.Main, state.Named("x", 0))

	newValue := "7"
	session.pending = []gdbmi.VariableObjectUpdate{
		{Object: gdbmi.VarObject(x.Handle), InScope: gdbmi.InScopeTrue, Value: &newValue},
	}
	if err := g.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	node := mustGet(t, g, x)
	if node.Value == nil || !node.Value.Equal(state.UintValue(7)) {
		t.Errorf("refreshed value = %v", node.Value)
	}
}

func TestParseNodeValue(t *testing.T) {
	cases := []struct {
		in   string
		want *state.NodeValue
	}{
		{"42", ptr(state.UintValue(42))},
		{"-42", ptr(state.IntValue(-42))},
		{"0x2a", ptr(state.UintValue(0x2a))},
		{"97 'a'", ptr(state.IntValue(97))},
		{`10 '\n'`, ptr(state.IntValue(10))},
		{"{...}", nil},
		{"0xzz", nil},
		{"hello", nil},
	}
	for _, c := range cases {
		got := parseNodeValue(c.in)
		switch {
		case got == nil && c.want == nil:
		case got == nil || c.want == nil || !got.Equal(*c.want):
			t.Errorf("parseNodeValue(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func ptr(v state.NodeValue) *state.NodeValue {
	return &v
}
