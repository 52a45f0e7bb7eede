package gdbstate

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stateviz/stateviz/internal/gdbmi"
	"github.com/stateviz/stateviz/internal/log"
	"github.com/stateviz/stateviz/internal/state"
)

// Global variable loading exists but is disabled: scanning every
// compilation unit on each stop is too slow for interactive use.
const loadGlobals = false

// New constructs a state graph from a live session. Commands are sent
// sequentially; the caller must not use the session concurrently.
func New(ctx context.Context, gdb gdbmi.Session) (*Graph, error) {
	g := Empty()
	if loadGlobals {
		if err := g.populateGlobalVariables(ctx, gdb); err != nil {
			return nil, err
		}
	}
	if err := g.updateStackTrace(ctx, gdb); err != nil {
		return nil, err
	}
	return g, nil
}

// Update refreshes the graph against the session it was created from.
// Completed mutations are kept even if a later command fails.
func (g *Graph) Update(ctx context.Context, gdb gdbmi.Session) error {
	if err := g.updateVariableObjects(ctx, gdb); err != nil {
		return err
	}
	return g.updateStackTrace(ctx, gdb)
}

// DropVariableObjects erases all variable objects associated with the
// graph from the session. Only top-level handles need to be deleted;
// the debugger cleans up children recursively.
func (g *Graph) DropVariableObjects(ctx context.Context, gdb gdbmi.Session) error {
	for handle, node := range g.variables {
		if !node.isTopLevel() {
			continue
		}
		if err := gdb.VarDelete(ctx, handle); err != nil {
			// The debugger may have forgotten the handle already.
			log.Debugf("var-delete %s during drop: %v", handle, err)
		}
	}
	return nil
}

func (g *Graph) updateVariableObjects(ctx context.Context, gdb gdbmi.Session) error {
	changelist, err := gdb.VarUpdate(ctx, gdbmi.SimpleValues)
	if err != nil {
		return err
	}
	for i := range changelist {
		if err := g.updateVariableObject(ctx, &changelist[i], gdb); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) updateVariableObject(ctx context.Context, update *gdbmi.VariableObjectUpdate, gdb gdbmi.Session) error {
	if update.Dynamic {
		log.Warnf("variable object %s is dynamic; treating it as static", update.Object)
	}
	if update.NewTypeName != nil {
		log.Warnf("variable object %s changed type to %s", update.Object, *update.NewTypeName)
	}
	if update.InScope != gdbmi.InScopeTrue {
		return g.variableObjectOutOfScope(ctx, update.Object, gdb)
	}
	if variable, ok := g.variables[update.Object]; ok {
		// The value must have changed, so reevaluate it
		variable.node.Value = nil
		if update.Value != nil {
			variable.node.Value = parseNodeValue(*update.Value)
		}
	}
	// If we do not know about the object, someone else must have
	// created it in the session, so we ignore it
	return nil
}

func (g *Graph) variableObjectOutOfScope(ctx context.Context, object gdbmi.VarObject, gdb gdbmi.Session) error {
	emb, known := g.removeVariablesRecursive(object)
	if known {
		if emb.kind == embeddingLocal {
			g.stack[emb.frame].RemoveSuccessorByID(state.VariableID(string(object)))
		} else {
			log.Warnf("non-local variable object %s went out of scope", object)
		}
	}
	if err := gdb.VarDelete(ctx, object); err != nil {
		// Tolerated: the debugger has likely already dropped it.
		log.Debugf("var-delete %s after scope exit: %v", object, err)
	}
	return nil
}

func (g *Graph) removeVariablesRecursive(object gdbmi.VarObject) (embedding, bool) {
	node, ok := g.variables[object]
	if !ok {
		return embedding{}, false
	}
	delete(g.variables, object)
	for _, edge := range node.node.Successors {
		switch edge.Label.Kind {
		case state.KindNamed, state.KindIndex, state.KindLength:
			// Owned children, removed below
		case state.KindDeref:
			// The pointee is not owned; leave it be
			continue
		default:
			log.Warnf("unexpected %s edge on variable node %s", edge.Label, object)
			continue
		}
		switch edge.To.Kind {
		case state.IDVariable:
			g.removeVariablesRecursive(gdbmi.VarObject(edge.To.Handle))
		case state.IDLength:
			delete(g.lengths, gdbmi.VarObject(edge.To.Handle))
		default:
			log.Warnf("variable node %s points at non-variable node %s", object, edge.To)
		}
	}
	return node.embedding, true
}

func (g *Graph) updateStackTrace(ctx context.Context, gdb gdbmi.Session) error {
	stackTrace, err := gdb.StackListFrames(ctx)
	if err != nil {
		return err
	}
	// There is no way to tell if the top stack frame has returned and
	// then the same function was called again, so this update is done
	// on a best-effort basis: traverse the stack bottom-up and rebuild
	// everything from the first frame whose function name differs.
	updateIndex := len(g.stack)
	if len(stackTrace) < updateIndex {
		updateIndex = len(stackTrace)
	}
	for i := 0; i < len(g.stack) && i < len(stackTrace); i++ {
		// The trace from GDB lists frames starting from the top
		reported := stackTrace[len(stackTrace)-1-i]
		if g.stack[i].TypeName != reported.Func {
			updateIndex = i
			break
		}
	}
	g.dropStackFramesAfter(updateIndex)
	// New variables may have come into scope at the topmost unchanged frame
	if updateIndex > 0 {
		if err := gdb.StackSelectFrame(ctx, stackTrace[len(stackTrace)-updateIndex].Level); err != nil {
			return err
		}
		if err := g.updateLocalVariables(ctx, updateIndex-1, gdb); err != nil {
			return err
		}
	}
	// Create new frames starting at the first different frame
	for i := len(stackTrace) - 1 - updateIndex; i >= 0; i-- {
		if err := g.pushStackFrame(ctx, stackTrace[i], gdb); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) dropStackFramesAfter(updateIndex int) {
	// Variable objects under popped frames are invalidated by GDB,
	// so only the frame nodes themselves are removed here
	for len(g.stack) > updateIndex {
		g.stack = g.stack[:len(g.stack)-1]
	}
	if updateIndex == 0 {
		g.root.RemoveSuccessor(state.Main)
	} else {
		g.stack[updateIndex-1].RemoveSuccessor(state.Next)
	}
}

func (g *Graph) pushStackFrame(ctx context.Context, frame gdbmi.StackFrame, gdb gdbmi.Session) error {
	frameIndex := len(g.stack)
	g.stack = append(g.stack, &state.Node{
		Class:    state.ClassFrame,
		TypeName: frame.Func,
	})
	if frameIndex == 0 {
		g.root.Successors = append(g.root.Successors,
			state.Edge{Label: state.Main, To: state.FrameID(0)})
	} else {
		g.stack[frameIndex-1].Successors = append(g.stack[frameIndex-1].Successors,
			state.Edge{Label: state.Next, To: state.FrameID(frameIndex)})
	}
	if err := gdb.StackSelectFrame(ctx, frame.Level); err != nil {
		return err
	}
	return g.updateLocalVariables(ctx, frameIndex, gdb)
}

func (g *Graph) updateLocalVariables(ctx context.Context, frameIndex int, gdb gdbmi.Session) error {
	locals, err := gdb.StackListVariables(ctx, gdbmi.NoValues, false)
	if err != nil {
		return err
	}
	// Group variables of the same name together so shadowing
	// discriminators can be assigned
	sort.SliceStable(locals, func(i, j int) bool { return locals[i].Name < locals[j].Name })
	for i := 0; i < len(locals); {
		name := locals[i].Name
		overloads := 0
		for i++; i < len(locals) && locals[i].Name == name; i++ {
			// The shadowed variables carry no useful information;
			// only the visible (innermost) one can be read
			overloads++
		}
		edgeLabel := state.Named(name, overloads)
		if _, ok := g.stack[frameIndex].Successor(edgeLabel); ok {
			continue
		}
		varObject, err := gdb.VarCreate(ctx, gdbmi.CurrentFrame(), name)
		if err != nil {
			return err
		}
		id, err := g.createVariableTree(ctx, gdb, varObject, localEmbedding(frameIndex))
		if err != nil {
			return err
		}
		g.stack[frameIndex].Successors = append(g.stack[frameIndex].Successors,
			state.Edge{Label: edgeLabel, To: id})
		// TODO: also check that the frame knows about the shadowed
		// variables and warn if not; they are unreachable from here
	}
	return nil
}

func (g *Graph) populateGlobalVariables(ctx context.Context, gdb gdbmi.Session) error {
	files, err := gdb.SymbolInfoVariables(ctx)
	if err != nil {
		return err
	}
	for _, file := range files {
		for _, symbol := range file.Symbols {
			varObject, err := gdb.VarCreate(ctx, gdbmi.CurrentFrame(), "::"+symbol.Name)
			if err != nil {
				return err
			}
			id, err := g.createVariableTree(ctx, gdb, varObject, globalEmbedding())
			if err != nil {
				return err
			}
			g.root.AddNamedSuccessor(symbol.Name, id)
		}
	}
	return nil
}

func (g *Graph) createVariableTree(ctx context.Context, gdb gdbmi.Session, varObject gdbmi.VariableObjectData, emb embedding) (state.NodeID, error) {
	if varObject.Dynamic {
		log.Warnf("variable object %s is dynamic; treating it as static", varObject.Object)
	}
	handle := varObject.Object
	g.createVariableNode(varObject, emb)
	if varObject.NumChild > 0 {
		children, err := gdb.VarListChildren(ctx, handle, gdbmi.SimpleValues)
		if err != nil {
			return state.NodeID{}, err
		}
		if len(children.Children) == 0 {
			return state.VariableID(string(handle)), nil
		}
		kind := deduceContainerKind(children.Children)
		node := &g.variables[handle].node
		node.Class = kind.typeClass()
		switch kind {
		case containerStruct:
			for i := range children.Children {
				child := &children.Children[i]
				childID, err := g.createVariableTree(ctx, gdb, child.VariableObjectData, nestedEmbedding())
				if err != nil {
					return state.NodeID{}, err
				}
				g.variables[handle].node.AddNamedSuccessor(child.Exp, childID)
			}
		case containerArray:
			// Array nodes do not carry a type name
			node.TypeName = ""
			length := uint64(0)
			for i := range children.Children {
				child := &children.Children[i]
				childID, err := g.createVariableTree(ctx, gdb, child.VariableObjectData, nestedEmbedding())
				if err != nil {
					return state.NodeID{}, err
				}
				index, err := strconv.ParseUint(child.Exp, 10, 64)
				if err != nil {
					// Container deduction guarantees a numeric name,
					// but it may be too long to represent
					log.Warnf("array index %q of %s cannot be represented", child.Exp, handle)
					continue
				}
				if index+1 > length {
					length = index + 1
				}
				parent := &g.variables[handle].node
				parent.Successors = append(parent.Successors,
					state.Edge{Label: state.Index(index), To: childID})
			}
			value := state.UintValue(length)
			g.lengths[handle] = &state.Node{Class: state.ClassAtom, Value: &value}
			parent := &g.variables[handle].node
			parent.Successors = append(parent.Successors,
				state.Edge{Label: state.Length, To: state.LengthID(string(handle))})
		case containerPointer:
			// Pointer nodes do not carry a type name. The stored
			// value is the pointer itself; a null pointer must not
			// appear to reference anything, and for the rest the
			// pointee is currently left unmaterialized.
			// TODO: dereference non-null pointers through expression
			// evaluation and link the pointee by id
			node.TypeName = ""
		}
	}
	return state.VariableID(string(handle)), nil
}

func (g *Graph) createVariableNode(varObject gdbmi.VariableObjectData, emb embedding) {
	node := state.Node{
		Class:    state.ClassAtom,
		TypeName: preprocessTypeName(varObject.TypeName),
	}
	if varObject.Value != nil {
		node.Value = parseNodeValue(*varObject.Value)
	}
	g.variables[varObject.Object] = &variableNode{node: node, embedding: emb}
}

// GDB includes both the numeric and the character representation
// of char values.
var charValuePattern = regexp.MustCompile(`^([+\-]?\d+)\s*'([^']|\\.+)'$`)

// parseNodeValue interprets a debugger-reported value string as an
// elementary value. Structural values yield nil.
func parseNodeValue(s string) *state.NodeValue {
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		v := state.UintValue(u)
		return &v
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		v := state.IntValue(i)
		return &v
	}
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		if u, err := strconv.ParseUint(rest, 16, 64); err == nil {
			v := state.UintValue(u)
			return &v
		}
		return nil
	}
	if caps := charValuePattern.FindStringSubmatch(s); caps != nil {
		if i, err := strconv.ParseInt(caps[1], 10, 64); err == nil {
			v := state.IntValue(i)
			return &v
		}
	}
	return nil
}

// preprocessTypeName drops the C struct keyword from reported names.
func preprocessTypeName(name string) string {
	return strings.TrimPrefix(name, "struct ")
}

// containerKind categorizes types that the debugger reports as having
// child variables.
type containerKind int

const (
	containerStruct containerKind = iota
	containerArray
	containerPointer
)

func (k containerKind) typeClass() state.NodeTypeClass {
	switch k {
	case containerArray:
		return state.ClassArray
	case containerPointer:
		return state.ClassRef
	default:
		return state.ClassStruct
	}
}

// deduceContainerKind infers the container kind from the names the
// debugger assigned to the children:
//   - exactly one child named with a dereference prefix: a pointer
//   - all children named by decimal numbers: an array
//   - anything else: a struct
//
// Callers must not pass an empty child list.
func deduceContainerKind(children []gdbmi.ChildVariableObject) containerKind {
	isDecimal := func(child *gdbmi.ChildVariableObject) bool {
		if child.Exp == "" {
			return false
		}
		for _, c := range child.Exp {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
	if strings.HasPrefix(children[0].Exp, "*") && len(children) == 1 {
		return containerPointer
	}
	for i := range children {
		if !isDecimal(&children[i]) {
			return containerStruct
		}
	}
	return containerArray
}
