package compiler

import (
	"testing"

	"koala/pkg/opcode"
)

func TestWhileLoops(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: `
fn main() {
	let a = 2
	while a < 5 {
		print(a)
		a = a + 1
	}
}
`,
			expectedInstructions: program(4,
				// let a = 2
				opcode.Make(opcode.OpPush, 2),
				opcode.Make(opcode.OpLocalStore, 0),
				// while a < 5, 0008
				opcode.Make(opcode.OpPush, 5),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpLt),
				opcode.Make(opcode.OpBeqz, 28),
				// print(a), 0015
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpPrint, 1),
				// a = a + 1, 0019
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpIAdd),
				opcode.Make(opcode.OpLocalStore, 0),
				// back to the condition, 0026
				opcode.Make(opcode.OpJump, 8),
				// 0028
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			input: "fn main() { while 0 { } }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpBeqz, 10),
				opcode.Make(opcode.OpJump, 4),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
	}

	runCompilerTests(t, tests)
}
