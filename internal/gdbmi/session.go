package gdbmi

import (
	"context"
	"fmt"
)

// LineStream is the lowest-level interface to a debugger: it sends one
// MI command string and returns the raw result-record line (starting
// with `^`) that responds to it.
type LineStream interface {
	SendCommand(ctx context.Context, command string) (string, error)
}

// Stream sends MI commands and returns parsed result records.
type Stream interface {
	SendCommand(ctx context.Context, command string) (*ResultRecord, error)
}

// NewStream adapts a LineStream into a Stream by parsing each response.
func NewStream(lines LineStream) Stream {
	return &parsingStream{lines: lines}
}

type parsingStream struct {
	lines LineStream
}

func (s *parsingStream) SendCommand(ctx context.Context, command string) (*ResultRecord, error) {
	output, err := s.lines.SendCommand(ctx, command)
	if err != nil {
		return nil, err
	}
	record, err := ParseRecord(output)
	if err != nil || record.Result == nil {
		return nil, SyntaxError(output)
	}
	return record.Result, nil
}

// Session exposes the GDB/MI commands the state-graph builder relies
// on. Commands and their responses are strictly ordered; callers must
// not interleave concurrent use.
type Session interface {
	// SymbolInfoVariables exposes -symbol-info-variables.
	SymbolInfoVariables(ctx context.Context) ([]SymbolFile, error)

	// StackInfoDepth exposes -stack-info-depth.
	StackInfoDepth(ctx context.Context) (int, error)

	// StackSelectFrame exposes -stack-select-frame.
	StackSelectFrame(ctx context.Context, targetFrame int) error

	// StackListFrames exposes -stack-list-frames. Frames are listed
	// top-first.
	StackListFrames(ctx context.Context) ([]StackFrame, error)

	// StackListVariables exposes -stack-list-variables for the
	// currently selected frame.
	StackListVariables(ctx context.Context, printValues PrintValues, skipUnavailable bool) ([]LocalVariable, error)

	// VarCreate exposes -var-create with an auto-assigned name.
	VarCreate(ctx context.Context, frame FrameContext, expression string) (VariableObjectData, error)

	// VarDelete exposes -var-delete.
	VarDelete(ctx context.Context, object VarObject) error

	// VarEvaluateExpression exposes -var-evaluate-expression.
	VarEvaluateExpression(ctx context.Context, object VarObject) (string, error)

	// VarListChildren exposes -var-list-children.
	VarListChildren(ctx context.Context, object VarObject, printValues PrintValues) (ChildList, error)

	// VarUpdate exposes -var-update over all variable objects.
	VarUpdate(ctx context.Context, printValues PrintValues) ([]VariableObjectUpdate, error)

	// DataEvaluateExpression exposes -data-evaluate-expression.
	DataEvaluateExpression(ctx context.Context, expression string) (string, error)
}

// NewSession builds a Session on top of a record stream.
func NewSession(stream Stream) Session {
	return &miSession{stream: stream}
}

type miSession struct {
	stream Stream
}

func (s *miSession) command(ctx context.Context, format string, args ...any) (Tuple, error) {
	record, err := s.stream.SendCommand(ctx, fmt.Sprintf(format, args...))
	if err != nil {
		return nil, err
	}
	return record.MustBeDoneOrRunning()
}

func (s *miSession) SymbolInfoVariables(ctx context.Context) ([]SymbolFile, error) {
	results, err := s.command(ctx, "-symbol-info-variables")
	if err != nil {
		return nil, err
	}
	symbols, err := results.Take("symbols")
	if err != nil {
		return nil, err
	}
	tuple, err := symbols.AsTuple()
	if err != nil {
		return nil, err
	}
	debug, err := tuple.Take("debug")
	if err != nil {
		return nil, err
	}
	return debug.symbolQueryResult()
}

func (s *miSession) StackInfoDepth(ctx context.Context) (int, error) {
	results, err := s.command(ctx, "-stack-info-depth")
	if err != nil {
		return 0, err
	}
	depth, err := results.Take("depth")
	if err != nil {
		return 0, err
	}
	return depth.Decimal()
}

func (s *miSession) StackSelectFrame(ctx context.Context, targetFrame int) error {
	_, err := s.command(ctx, "-stack-select-frame %d", targetFrame)
	return err
}

func (s *miSession) StackListFrames(ctx context.Context) ([]StackFrame, error) {
	results, err := s.command(ctx, "-stack-list-frames")
	if err != nil {
		return nil, err
	}
	stack, err := results.Take("stack")
	if err != nil {
		return nil, err
	}
	return stack.stackTrace()
}

func (s *miSession) StackListVariables(ctx context.Context, printValues PrintValues, skipUnavailable bool) ([]LocalVariable, error) {
	skipArg := ""
	if skipUnavailable {
		skipArg = "--skip-unavailable "
	}
	results, err := s.command(ctx, "-stack-list-variables %s%s", skipArg, printValues)
	if err != nil {
		return nil, err
	}
	variables, err := results.Take("variables")
	if err != nil {
		return nil, err
	}
	return variables.localVariableList()
}

func (s *miSession) VarCreate(ctx context.Context, frame FrameContext, expression string) (VariableObjectData, error) {
	results, err := s.command(ctx, "-var-create - %s %s", frame, expression)
	if err != nil {
		return VariableObjectData{}, err
	}
	return results.varObject()
}

func (s *miSession) VarDelete(ctx context.Context, object VarObject) error {
	_, err := s.command(ctx, "-var-delete %s", string(object))
	return err
}

func (s *miSession) VarEvaluateExpression(ctx context.Context, object VarObject) (string, error) {
	results, err := s.command(ctx, "-var-evaluate-expression %s", string(object))
	if err != nil {
		return "", err
	}
	value, err := results.Take("value")
	if err != nil {
		return "", err
	}
	return value.AsString()
}

func (s *miSession) VarListChildren(ctx context.Context, object VarObject, printValues PrintValues) (ChildList, error) {
	results, err := s.command(ctx, "-var-list-children %s %s", printValues, string(object))
	if err != nil {
		return ChildList{}, err
	}
	return results.childList()
}

func (s *miSession) VarUpdate(ctx context.Context, printValues PrintValues) ([]VariableObjectUpdate, error) {
	results, err := s.command(ctx, "-var-update %s *", printValues)
	if err != nil {
		return nil, err
	}
	changelist, err := results.Take("changelist")
	if err != nil {
		return nil, err
	}
	return changelist.changelist()
}

func (s *miSession) DataEvaluateExpression(ctx context.Context, expression string) (string, error) {
	results, err := s.command(ctx, "-data-evaluate-expression %s", expression)
	if err != nil {
		return "", err
	}
	value, err := results.Take("value")
	if err != nil {
		return "", err
	}
	return value.AsString()
}
