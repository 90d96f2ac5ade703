package opcode

import (
	"fmt"
)

// Opcode is the first word of every instruction.
type Opcode uint32

// Instructions is a flat sequence of instruction words. Addresses are
// indices into this slice.
type Instructions []uint32

const (
	// OpEnd halts the machine
	OpEnd Opcode = 0x00

	// OpIAdd adds the top two integers of the stack
	OpIAdd Opcode = 0x01
	// OpISub subtracts the second integer from the top integer
	OpISub Opcode = 0x02
	// OpIMul multiplies the top two integers of the stack
	OpIMul Opcode = 0x03
	// OpIDiv divides the top integer by the second, truncating toward zero
	OpIDiv Opcode = 0x04

	// OpFAdd adds the top two float32 bit patterns of the stack
	OpFAdd Opcode = 0x05
	// OpFSub subtracts two float32 bit patterns
	OpFSub Opcode = 0x06
	// OpFMul multiplies two float32 bit patterns
	OpFMul Opcode = 0x07
	// OpFDiv divides two float32 bit patterns
	OpFDiv Opcode = 0x08

	// OpJump jumps to the operand address
	OpJump Opcode = 0x0D
	// OpBeqz pops a value and jumps to the operand address if it is zero
	OpBeqz Opcode = 0x0E
	// OpBnez pops a value and jumps to the operand address if it is not zero
	OpBnez Opcode = 0x0F

	// OpCall pushes a frame holding argc popped arguments and jumps to addr
	OpCall Opcode = 0x11
	// OpRet pops the active frame and resumes at its return address
	OpRet Opcode = 0x18

	// OpPrint pops a value and emits it as decimal text (mode 1) or as a character
	OpPrint Opcode = 0x19

	// OpPush pushes its immediate operand
	OpPush Opcode = 0x1B
	// OpPop discards the top of the stack
	OpPop Opcode = 0x1C

	// OpLt .. OpNeq compare the top two values and push 1 or 0
	OpLt  Opcode = 0x20
	OpLte Opcode = 0x21
	OpGt  Opcode = 0x22
	OpGte Opcode = 0x23
	OpEq  Opcode = 0x24
	OpNeq Opcode = 0x25

	// OpOr and OpAnd treat non-zero operands as true and push 1 or 0
	OpOr  Opcode = 0x26
	OpAnd Opcode = 0x27

	// OpLocalLoad pushes the active frame's local slot
	OpLocalLoad Opcode = 0x30
	// OpLocalStore pops into the active frame's local slot
	OpLocalStore Opcode = 0x31
	// OpGlobalLoad pushes a global slot
	OpGlobalLoad Opcode = 0x32
	// OpGlobalStore pops into a global slot
	OpGlobalStore Opcode = 0x33

	// Array opcodes take [value,] base and index from the stack, index on top.
	OpLocalArrLoad   Opcode = 0x34
	OpLocalArrStore  Opcode = 0x35
	OpGlobalArrLoad  Opcode = 0x36
	OpGlobalArrStore Opcode = 0x37
)

// Print modes understood by OpPrint.
const (
	PrintInteger   uint32 = 1
	PrintCharacter uint32 = 2
)

type Definition struct {
	Name         string
	OperandCount int
}

var definitions = map[Opcode]*Definition{
	OpEnd:            {"END", 0},
	OpIAdd:           {"IADD", 0},
	OpISub:           {"ISUB", 0},
	OpIMul:           {"IMUL", 0},
	OpIDiv:           {"IDIV", 0},
	OpFAdd:           {"FADD", 0},
	OpFSub:           {"FSUB", 0},
	OpFMul:           {"FMUL", 0},
	OpFDiv:           {"FDIV", 0},
	OpJump:           {"JUMP", 1},
	OpBeqz:           {"BEQZ", 1},
	OpBnez:           {"BNEZ", 1},
	OpCall:           {"CALL", 2},
	OpRet:            {"RET", 0},
	OpPrint:          {"PRINT", 1},
	OpPush:           {"PUSH", 1},
	OpPop:            {"POP", 0},
	OpLt:             {"LT", 0},
	OpLte:            {"LTE", 0},
	OpGt:             {"GT", 0},
	OpGte:            {"GTE", 0},
	OpEq:             {"EQ", 0},
	OpNeq:            {"NEQ", 0},
	OpOr:             {"OR", 0},
	OpAnd:            {"AND", 0},
	OpLocalLoad:      {"LOCAL_LOAD", 1},
	OpLocalStore:     {"LOCAL_STORE", 1},
	OpGlobalLoad:     {"GLOBAL_LOAD", 1},
	OpGlobalStore:    {"GLOBAL_STORE", 1},
	OpLocalArrLoad:   {"LOCAL_ARR_LOAD", 0},
	OpLocalArrStore:  {"LOCAL_ARR_STORE", 0},
	OpGlobalArrLoad:  {"GLOBAL_ARR_LOAD", 0},
	OpGlobalArrStore: {"GLOBAL_ARR_STORE", 0},
}

func Lookup(word uint32) (*Definition, error) {
	def, ok := definitions[Opcode(word)]
	if !ok {
		return nil, fmt.Errorf("opcode %#x undefined", word)
	}
	return def, nil
}

// Width returns the total number of words an instruction occupies,
// or 0 for an unknown opcode.
func Width(op Opcode) int {
	def, ok := definitions[op]
	if !ok {
		return 0
	}
	return 1 + def.OperandCount
}

// Make encodes one instruction. Missing operands are encoded as zero and
// extra operands are dropped.
func Make(op Opcode, operands ...uint32) Instructions {
	def, ok := definitions[op]
	if !ok {
		return Instructions{}
	}

	instruction := make(Instructions, 1+def.OperandCount)
	instruction[0] = uint32(op)
	for i := 0; i < def.OperandCount && i < len(operands); i++ {
		instruction[1+i] = operands[i]
	}

	return instruction
}

// ReadOperands decodes the operands following an opcode word. It returns
// the operands and the number of words read, which is less than
// def.OperandCount when ins is truncated.
func ReadOperands(def *Definition, ins Instructions) ([]uint32, int) {
	operands := make([]uint32, 0, def.OperandCount)
	read := 0

	for read < def.OperandCount && read < len(ins) {
		operands = append(operands, ins[read])
		read++
	}

	return operands, read
}

func (op Opcode) String() string {
	def, ok := definitions[op]
	if !ok {
		return fmt.Sprintf("Opcode(%#x)", uint32(op))
	}
	return def.Name
}
