package vm

import "fmt"

// VMException is a bytecode-catchable throw: the payload is a real VM
// object, walked against exception tables like any Java throwable.
type VMException struct {
	Throwable *Object
}

func (e *VMException) Error() string {
	if e.Throwable == nil {
		return "VMException: <null>"
	}
	return fmt.Sprintf("VMException: %s", e.Throwable.Class().ClassName())
}

// PanicException escalates straight to the embedder: it is never caught
// by a bytecode exception table, only by the host driving Execute.
type PanicException struct {
	Message string
	Cause   error
}

func (e *PanicException) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("PanicException: %s: %v", e.Message, e.Cause)
	}
	return "PanicException: " + e.Message
}

func (e *PanicException) Unwrap() error { return e.Cause }

func NewPanic(format string, args ...any) *PanicException {
	return &PanicException{Message: fmt.Sprintf(format, args...)}
}

func WrapPanic(cause error, message string) *PanicException {
	return &PanicException{Message: message, Cause: cause}
}
