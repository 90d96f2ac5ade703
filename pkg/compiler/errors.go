package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateFunction     = errors.New("duplicate function")
	ErrUndefinedFunction     = errors.New("undefined function")
	ErrUndefinedVariable     = errors.New("undefined variable")
	ErrMissingEntryPoint     = errors.New("missing entry point main")
	ErrArraySizeMismatch     = errors.New("array size mismatch")
	ErrNonConstantArraySize  = errors.New("array size is not an integer constant")
	ErrArrayTooLarge         = errors.New("array too large")
	ErrUnsupportedExpression = errors.New("unsupported expression")
	ErrUnknownGlobal         = errors.New("global missing from pre-scan")
)

// CompileError reports where a compile error occurred. Compilation stops at
// the first one.
type CompileError struct {
	Err      error
	Function string
	Name     string
}

func (e *CompileError) Error() string {
	var msg string
	if e.Function != "" {
		msg = fmt.Sprintf("in function %s: ", e.Function)
	}
	msg += e.Err.Error()
	if e.Name != "" {
		msg += ": " + e.Name
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
