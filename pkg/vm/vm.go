package vm

import (
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"koala/pkg/opcode"
)

const StackSize = 1 << 16     // data stack depth before ErrStackOverflow
const DefaultMaxFrames = 1024 // call depth before ErrCallStackOverflow

// OutputFunc receives the text of every PRINT, in order.
type OutputFunc func(string)

// WriterOutput adapts w to an OutputFunc. Write errors are dropped.
func WriterOutput(w io.Writer) OutputFunc {
	return func(s string) {
		io.WriteString(w, s)
	}
}

type State int

const (
	Ready State = iota
	Running
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type Option func(*VM)

// WithMaxFrames bounds the call stack depth.
func WithMaxFrames(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxFrames = n
		}
	}
}

// WithStepLimit faults the machine after n executed instructions. Zero
// means no limit.
func WithStepLimit(n int) Option {
	return func(vm *VM) {
		vm.stepLimit = n
	}
}

// WithTrace logs every executed instruction at trace level.
func WithTrace(enabled bool) Option {
	return func(vm *VM) {
		vm.trace = enabled
	}
}

// operandCounts caches the operand count of every defined opcode; -1
// marks undefined words.
var operandCounts [0x40]int8

func init() {
	for i := range operandCounts {
		w := opcode.Width(opcode.Opcode(i))
		operandCounts[i] = int8(w - 1)
	}
}

type VM struct {
	program opcode.Instructions
	pc      int

	stack []int32

	frames  []Frame
	globals map[uint32]int32

	out OutputFunc

	state State
	fault error
	steps int

	maxFrames int
	stepLimit int
	trace     bool
}

func New(out OutputFunc, opts ...Option) *VM {
	if out == nil {
		out = func(string) {}
	}

	vm := &VM{
		stack:     make([]int32, 0, 64),
		frames:    make([]Frame, 0, 16),
		globals:   make(map[uint32]int32),
		out:       out,
		maxFrames: DefaultMaxFrames,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load installs a program and resets all machine state.
func (vm *VM) Load(program opcode.Instructions) {
	vm.program = program
	vm.Reset()
}

func (vm *VM) State() State {
	return vm.state
}

// Err returns the fault that stopped the machine, if any.
func (vm *VM) Err() error {
	return vm.fault
}

// Stack returns a copy of the data stack, bottom first.
func (vm *VM) Stack() []int32 {
	out := make([]int32, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// StackTop returns the top of the data stack and whether there is one.
func (vm *VM) StackTop() (int32, bool) {
	if len(vm.stack) == 0 {
		return 0, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// Global returns a global slot and whether it was ever stored.
func (vm *VM) Global(slot uint32) (int32, bool) {
	v, ok := vm.globals[slot]
	return v, ok
}

// Frames is the current call stack depth.
func (vm *VM) Frames() int {
	return len(vm.frames)
}

// Steps is the number of instructions executed since the last Load.
func (vm *VM) Steps() int {
	return vm.steps
}

// Run executes until END or a fault. Running a halted machine does
// nothing; running a faulted one returns the original fault.
func (vm *VM) Run() error {
	switch vm.state {
	case Halted:
		return nil
	case Faulted:
		return vm.fault
	}
	if vm.program == nil {
		return ErrNoProgram
	}
	vm.state = Running

	ins := vm.program

	for {
		pc := vm.pc
		if pc < 0 || pc >= len(ins) {
			return vm.fail(ErrInvalidJumpTarget, pc, opcode.OpEnd)
		}

		op := opcode.Opcode(ins[pc])
		if uint32(op) >= uint32(len(operandCounts)) || operandCounts[op] < 0 {
			return vm.fail(ErrInvalidOpcode, pc, op)
		}

		if vm.stepLimit > 0 && vm.steps >= vm.stepLimit {
			return vm.fail(ErrStepLimitExceeded, pc, op)
		}
		vm.steps++

		n := int(operandCounts[op])
		if pc+n >= len(ins) {
			return vm.fail(ErrInvalidJumpTarget, pc, op)
		}
		operands := ins[pc+1 : pc+1+n]
		vm.pc = pc + 1 + n

		if vm.trace {
			log.Trace().
				Int("pc", pc).
				Str("op", op.String()).
				Uints32("operands", operands).
				Ints32("stack", vm.stack).
				Int("frames", len(vm.frames)).
				Msg("step")
		}

		switch op {
		case opcode.OpEnd:
			vm.state = Halted
			return nil

		case opcode.OpIAdd, opcode.OpISub, opcode.OpIMul, opcode.OpIDiv:
			if err := vm.executeBinaryIntegerOperation(op); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpFAdd, opcode.OpFSub, opcode.OpFMul, opcode.OpFDiv:
			if err := vm.executeBinaryFloatOperation(op); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpLt, opcode.OpLte, opcode.OpGt, opcode.OpGte, opcode.OpEq, opcode.OpNeq,
			opcode.OpOr, opcode.OpAnd:
			if err := vm.executeComparison(op); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpJump:
			if err := vm.jump(operands[0]); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpBeqz, opcode.OpBnez:
			v, err := vm.pop()
			if err != nil {
				return vm.fail(err, pc, op)
			}
			if (v == 0) == (op == opcode.OpBeqz) {
				if err := vm.jump(operands[0]); err != nil {
					return vm.fail(err, pc, op)
				}
			}

		case opcode.OpCall:
			if err := vm.executeCall(int(operands[0]), operands[1]); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpRet:
			if len(vm.frames) == 0 {
				return vm.fail(ErrStackUnderflow, pc, op)
			}
			frame := vm.popFrame()
			vm.pc = frame.returnAddr

		case opcode.OpPrint:
			if err := vm.executePrint(operands[0]); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpPush:
			if err := vm.push(int32(operands[0])); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpPop:
			if _, err := vm.pop(); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpLocalLoad:
			if err := vm.loadLocal(int(operands[0])); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpLocalStore:
			if err := vm.storeLocal(int(operands[0])); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpGlobalLoad:
			if err := vm.loadGlobal(operands[0]); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpGlobalStore:
			if err := vm.storeGlobal(operands[0]); err != nil {
				return vm.fail(err, pc, op)
			}

		case opcode.OpLocalArrLoad, opcode.OpLocalArrStore, opcode.OpGlobalArrLoad, opcode.OpGlobalArrStore:
			if err := vm.executeArrayOperation(op); err != nil {
				return vm.fail(err, pc, op)
			}

		default:
			return vm.fail(ErrInvalidOpcode, pc, op)
		}
	}
}

func (vm *VM) fail(err error, pc int, op opcode.Opcode) error {
	vm.state = Faulted
	vm.fault = &RuntimeError{Err: err, PC: pc, Op: op}
	if vm.trace {
		log.Trace().Err(vm.fault).Msg("fault")
	}
	return vm.fault
}

func (vm *VM) jump(addr uint32) error {
	if int64(addr) >= int64(len(vm.program)) {
		return ErrInvalidJumpTarget
	}
	vm.pc = int(addr)
	return nil
}

func (vm *VM) push(v int32) error {
	if len(vm.stack) >= StackSize {
		return ErrStackOverflow
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (int32, error) {
	if len(vm.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// popOperands pops the first operand, then the second.
func (vm *VM) popOperands() (int32, int32, error) {
	if len(vm.stack) < 2 {
		return 0, 0, ErrStackUnderflow
	}
	first, _ := vm.pop()
	second, _ := vm.pop()
	return first, second, nil
}

func (vm *VM) currentFrame() (*Frame, error) {
	if len(vm.frames) == 0 {
		return nil, ErrStackUnderflow
	}
	return &vm.frames[len(vm.frames)-1], nil
}

func (vm *VM) pushFrame(returnAddr int) *Frame {
	n := len(vm.frames)
	if n < cap(vm.frames) {
		vm.frames = vm.frames[:n+1]
	} else {
		vm.frames = append(vm.frames, Frame{})
	}
	f := &vm.frames[n]
	f.reset(returnAddr)
	return f
}

func (vm *VM) popFrame() *Frame {
	f := &vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return f
}

// executeCall moves argc arguments into a new frame, leftmost argument
// (the top of the stack) first.
func (vm *VM) executeCall(argc int, addr uint32) error {
	if int64(addr) >= int64(len(vm.program)) {
		return ErrInvalidJumpTarget
	}
	if len(vm.frames) >= vm.maxFrames {
		return ErrCallStackOverflow
	}
	if argc > len(vm.stack) {
		return ErrStackUnderflow
	}

	frame := vm.pushFrame(vm.pc)
	for i := 0; i < argc; i++ {
		v, _ := vm.pop()
		if err := frame.Store(i, v); err != nil {
			return err
		}
	}

	vm.pc = int(addr)
	return nil
}

func (vm *VM) executeBinaryIntegerOperation(op opcode.Opcode) error {
	first, second, err := vm.popOperands()
	if err != nil {
		return err
	}

	var result int32

	switch op {
	case opcode.OpIAdd:
		result = first + second
	case opcode.OpISub:
		result = first - second
	case opcode.OpIMul:
		result = first * second
	case opcode.OpIDiv:
		if second == 0 {
			return ErrDivisionByZero
		}
		result = first / second
	}

	return vm.push(result)
}

func (vm *VM) executeBinaryFloatOperation(op opcode.Opcode) error {
	a, b, err := vm.popOperands()
	if err != nil {
		return err
	}
	first := math.Float32frombits(uint32(a))
	second := math.Float32frombits(uint32(b))

	var result float32

	switch op {
	case opcode.OpFAdd:
		result = first + second
	case opcode.OpFSub:
		result = first - second
	case opcode.OpFMul:
		result = first * second
	case opcode.OpFDiv:
		if second == 0 {
			return ErrDivisionByZero
		}
		result = first / second
	}

	return vm.push(int32(math.Float32bits(result)))
}

func (vm *VM) executeComparison(op opcode.Opcode) error {
	first, second, err := vm.popOperands()
	if err != nil {
		return err
	}

	var result bool

	switch op {
	case opcode.OpLt:
		result = first < second
	case opcode.OpLte:
		result = first <= second
	case opcode.OpGt:
		result = first > second
	case opcode.OpGte:
		result = first >= second
	case opcode.OpEq:
		result = first == second
	case opcode.OpNeq:
		result = first != second
	case opcode.OpOr:
		result = first != 0 || second != 0
	case opcode.OpAnd:
		result = first != 0 && second != 0
	}

	return vm.push(nativeBoolToWord(result))
}

func nativeBoolToWord(input bool) int32 {
	if input {
		return 1
	}
	return 0
}

func (vm *VM) executePrint(mode uint32) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}

	if mode == opcode.PrintInteger {
		vm.out(strconv.FormatInt(int64(v), 10))
		return nil
	}

	r := rune(v)
	if !utf8.ValidRune(r) {
		return ErrInvalidCharacterCode
	}
	vm.out(string(r))
	return nil
}

func (vm *VM) loadLocal(slot int) error {
	frame, err := vm.currentFrame()
	if err != nil {
		return err
	}
	v, ok := frame.Load(slot)
	if !ok {
		return ErrUninitializedLocal
	}
	return vm.push(v)
}

func (vm *VM) storeLocal(slot int) error {
	frame, err := vm.currentFrame()
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	return frame.Store(slot, v)
}

func (vm *VM) loadGlobal(slot uint32) error {
	v, ok := vm.globals[slot]
	if !ok {
		return ErrUninitializedGlobal
	}
	return vm.push(v)
}

func (vm *VM) storeGlobal(slot uint32) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	vm.globals[slot] = v
	return nil
}

// executeArrayOperation handles the four array opcodes. The stack holds
// [value,] base, index with the index on top.
func (vm *VM) executeArrayOperation(op opcode.Opcode) error {
	index, base, err := vm.popOperands()
	if err != nil {
		return err
	}

	addr := int64(base) + int64(index)
	if addr < 0 {
		return ErrInvalidSlot
	}

	switch op {
	case opcode.OpLocalArrLoad:
		frame, err := vm.currentFrame()
		if err != nil {
			return err
		}
		if addr >= maxLocals {
			return ErrInvalidSlot
		}
		v, ok := frame.Load(int(addr))
		if !ok {
			return ErrUninitializedLocal
		}
		return vm.push(v)

	case opcode.OpLocalArrStore:
		frame, err := vm.currentFrame()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if addr >= maxLocals {
			return ErrInvalidSlot
		}
		return frame.Store(int(addr), v)

	case opcode.OpGlobalArrLoad:
		return vm.loadGlobal(uint32(addr))

	case opcode.OpGlobalArrStore:
		return vm.storeGlobal(uint32(addr))
	}

	return ErrInvalidOpcode
}
