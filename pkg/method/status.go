package method

import "fmt"

// Code is the canonical outcome classification carried in every response.
type Code int

// Status codes. The numeric values are part of the wire contract.
const (
	CodeSucceeded        Code = 1
	CodeFailed           Code = 0
	CodeNoHandler        Code = -2
	CodeInvalidParameter Code = -3
	CodeInvalidResult    Code = -5
	CodeUnauthorized     Code = -6
	CodeCancelled        Code = -7
	CodeTimeout          Code = -8
	CodeNotImplemented   Code = -10
	CodeUnknownError     Code = -1000
)

func (c Code) String() string {
	switch c {
	case CodeSucceeded:
		return "succeeded"
	case CodeFailed:
		return "failed"
	case CodeNoHandler:
		return "no handler"
	case CodeInvalidParameter:
		return "invalid parameter"
	case CodeInvalidResult:
		return "invalid result"
	case CodeUnauthorized:
		return "unauthorized access"
	case CodeCancelled:
		return "operation cancelled"
	case CodeTimeout:
		return "operation timeout"
	case CodeNotImplemented:
		return "not implemented"
	case CodeUnknownError:
		return "unknown error"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Status pairs a Code with an optional human-readable message.
type Status struct {
	Code    Code   `json:"code"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the status is succeeded.
func (s Status) OK() bool {
	return s.Code == CodeSucceeded
}

// Desc returns the message, or the code's description when no message was set.
func (s Status) Desc() string {
	if s.Message != "" {
		return s.Message
	}
	return s.Code.String()
}

func (s Status) String() string {
	return fmt.Sprintf("%d: %s", int(s.Code), s.Desc())
}

// OK returns a succeeded status.
func OK() Status {
	return Status{Code: CodeSucceeded}
}

// Fail returns a generic failure carrying msg verbatim.
func Fail(msg string) Status {
	return Status{Code: CodeFailed, Message: msg}
}

// InvalidParam returns an invalid-parameter status.
func InvalidParam(msg string) Status {
	return Status{Code: CodeInvalidParameter, Message: msg}
}

// NoHandler returns the status for a method name with no registered handler.
func NoHandler(name string) Status {
	return Status{Code: CodeNoHandler, Message: fmt.Sprintf("The method '%s' is not registered", name)}
}

// NotImplemented returns the status for a method whose backing service is absent.
func NotImplemented(name string) Status {
	return Status{Code: CodeNotImplemented, Message: fmt.Sprintf("The method '%s' is not implemented", name)}
}

// Unknown returns an unknown-error status.
func Unknown(msg string) Status {
	return Status{Code: CodeUnknownError, Message: msg}
}

// Timeout returns a timeout status.
func Timeout(msg string) Status {
	return Status{Code: CodeTimeout, Message: msg}
}
