package gdbmi

import "strconv"

// VarObject is a handle to a GDB/MI variable object. Internally it is
// the debugger-assigned name of the object.
type VarObject string

// StackFrame describes one call-stack level in the response to stack
// manipulation commands. Frames are listed top-first by the debugger.
type StackFrame struct {
	// Level is the zero-based index of the frame; topmost is zero.
	Level int

	// Addr is the memory address of the frame.
	Addr uint64

	// Func is the name of the function that created the frame.
	Func string

	// File and Fullname locate the function's source file.
	File     string
	Fullname string

	// Line is the currently executing line.
	Line uint64

	// From names the shared library the function lives in, if any.
	From string

	// Arch is the architecture the function is compiled for.
	Arch string
}

// LocalVariable describes a local in a stack-listing response.
type LocalVariable struct {
	Name string

	// Arg is true if the variable is a function argument.
	Arg bool

	// Value is present when requested via PrintValues.
	Value *string
}

// PrintValues selects which entries of a listing include values.
type PrintValues int

const (
	NoValues PrintValues = iota
	AllValues
	SimpleValues
)

func (p PrintValues) String() string {
	switch p {
	case AllValues:
		return "1"
	case SimpleValues:
		return "2"
	default:
		return "0"
	}
}

// FrameContext specifies the stack frame a variable object lives in.
type FrameContext struct {
	kind  int
	frame int
}

// CurrentFrame binds a variable object to the selected frame.
func CurrentFrame() FrameContext {
	return FrameContext{kind: 0}
}

// FrameAt binds a variable object to a frame by its index.
func FrameAt(index int) FrameContext {
	return FrameContext{kind: 1, frame: index}
}

// Floating makes the variable object re-resolve in the current frame
// on every access.
func Floating() FrameContext {
	return FrameContext{kind: 2}
}

func (f FrameContext) String() string {
	switch f.kind {
	case 1:
		return strconv.Itoa(f.frame)
	case 2:
		return "@"
	default:
		return "*"
	}
}

// VariableObjectData is the full description of a variable object.
type VariableObjectData struct {
	// Object is the handle to the variable object.
	Object VarObject

	// Value is the current value, if requested.
	Value *string

	// TypeName is the name of the variable's type.
	TypeName string

	// NumChild is how many children the object is known to have.
	// Only reliable when Dynamic is false.
	NumChild int

	// Dynamic marks variable objects backed by a pretty-printer.
	// GDB does not return these unless explicitly enabled.
	Dynamic bool

	// HasMore is true when a dynamic object may have more children
	// than NumChild indicates.
	HasMore bool

	// ThreadID is the owning thread, if any.
	ThreadID string
}

// ChildVariableObject describes one child of a variable object.
type ChildVariableObject struct {
	VariableObjectData

	// Exp is the displayable expression of the child, typically a
	// field name or an array index.
	Exp string
}

// ChildList is the payload of -var-list-children.
type ChildList struct {
	NumChild int
	HasMore  bool
	Children []ChildVariableObject
}

// InScope is the scope status of a variable object in an update.
type InScope int

const (
	// InScopeTrue: the variable remains in scope.
	InScopeTrue InScope = iota

	// InScopeFalse: out of scope but still valid.
	InScopeFalse

	// InScopeInvalid: no longer valid, usually because the debuggee
	// has changed.
	InScopeInvalid

	// InScopeOther covers values the documentation warns may be
	// added later.
	InScopeOther
)

// VariableObjectUpdate is one changelist entry of -var-update.
type VariableObjectUpdate struct {
	Object         VarObject
	Value          *string
	InScope        InScope
	NewTypeName    *string
	NewNumChildren *int
	HasMore        bool
	Dynamic        bool
	NewChildren    []ChildVariableObject
}

// Symbol is one entry in a symbol query response.
type Symbol struct {
	Line        uint64
	Name        string
	TypeName    string
	Description string
}

// SymbolFile groups the symbols declared in one source file.
type SymbolFile struct {
	Filename string
	Fullname string
	Symbols  []Symbol
}
