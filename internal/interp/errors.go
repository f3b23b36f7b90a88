package interp

import "fmt"

// ErrKind classifies runtime failures.
type ErrKind int

const (
	ErrDivisionByZero ErrKind = iota
	ErrIndexOutOfBounds
	ErrIntegerOverflow
	ErrStackOverflow
	ErrUnreachable
	ErrBadProgram
)

func (k ErrKind) String() string {
	switch k {
	case ErrDivisionByZero:
		return "division by zero"
	case ErrIndexOutOfBounds:
		return "index out of bounds"
	case ErrIntegerOverflow:
		return "integer overflow"
	case ErrStackOverflow:
		return "stack overflow"
	case ErrUnreachable:
		return "unreachable code executed"
	case ErrBadProgram:
		return "malformed program"
	}
	return "runtime error"
}

// RuntimeError is a failure the evaluated program caused. Evaluation stops
// at the first one.
type RuntimeError struct {
	Kind ErrKind
	Msg  string
}

func (e *RuntimeError) Error() string {
	if e.Msg == "" {
		return "runtime error: " + e.Kind.String()
	}
	return fmt.Sprintf("runtime error: %s: %s", e.Kind, e.Msg)
}

func runtimeErr(kind ErrKind, format string, args ...interface{}) error {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Control-flow unwinding travels as errors so every evaluation helper
// propagates it with the same plumbing as real failures. The interpreter
// intercepts these before they can escape.
type breakSignal struct{}
type continueSignal struct{}

func (breakSignal) Error() string    { return "break outside loop" }
func (continueSignal) Error() string { return "continue outside loop" }

type returnSignal struct {
	value Value
}

func (returnSignal) Error() string { return "return outside function" }
