package gdbmi

import "fmt"

// BadResponse describes a malformed or unexpected response from the
// debugger. It usually indicates an incorrect expectation set by the
// calling code, or a bug on the debugger's side.
type BadResponse struct {
	Kind   string
	Detail string
}

func (e *BadResponse) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected response (%s)", e.Kind)
	}
	return fmt.Sprintf("unexpected response (%s): %s", e.Kind, e.Detail)
}

// SyntaxError reports output that was not a valid GDB/MI record.
func SyntaxError(raw string) error {
	return &BadResponse{Kind: "SyntaxError", Detail: raw}
}

// UnexpectedResultClass reports a result record of the wrong class.
func UnexpectedResultClass(class string) error {
	return &BadResponse{Kind: "UnexpectedResultClass", Detail: class}
}

// MissingKey reports a payload without an expected property.
func MissingKey(key string) error {
	return &BadResponse{Kind: "MissingKey", Detail: key}
}

// BadValueType reports a property with a different type than expected.
func BadValueType() error {
	return &BadResponse{Kind: "BadValueType"}
}

// BadValue reports a property whose value could not be interpreted.
func BadValue(value string) error {
	return &BadResponse{Kind: "BadValue", Detail: value}
}

// ErrorResponse is an error result record returned by the debugger.
type ErrorResponse struct {
	Msg string
}

func (e *ErrorResponse) Error() string {
	if e.Msg == "" {
		return "error response from gdb (no description provided)"
	}
	return "error response from gdb: " + e.Msg
}
