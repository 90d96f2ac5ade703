package vm

import (
	"errors"
	"fmt"

	"koala/pkg/opcode"
)

var (
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrStackOverflow        = errors.New("stack overflow")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrInvalidJumpTarget    = errors.New("invalid jump target")
	ErrUninitializedGlobal  = errors.New("uninitialized global")
	ErrUninitializedLocal   = errors.New("uninitialized local")
	ErrInvalidCharacterCode = errors.New("invalid character code")
	ErrInvalidOpcode        = errors.New("invalid opcode")
	ErrInvalidSlot          = errors.New("invalid slot")
	ErrCallStackOverflow    = errors.New("call stack overflow")
	ErrStepLimitExceeded    = errors.New("step limit exceeded")
	ErrNoProgram            = errors.New("no program loaded")
)

// RuntimeError is a fault together with the address and opcode of the
// instruction that raised it.
type RuntimeError struct {
	Err error
	PC  int
	Op  opcode.Opcode
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%v at %04d (%s)", e.Err, e.PC, e.Op)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
