package compiler

import (
	"testing"

	"koala/pkg/opcode"
)

func TestLocalVariables(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: "fn main() { let a = 1; a = a + 2; print(a) }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpLocalStore, 0),
				opcode.Make(opcode.OpPush, 2),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpIAdd),
				opcode.Make(opcode.OpLocalStore, 0),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			// Parameters take the first slots, new names follow.
			input: "fn main() { f(1) } fn f(p) { x = p; print(x) }",
			expectedInstructions: program(4,
				// main, 0004
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpCall, 1, 13),
				opcode.Make(opcode.OpPop),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
				// f, 0013
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpLocalStore, 1),
				opcode.Make(opcode.OpLocalLoad, 1),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
	}

	runCompilerTests(t, tests)
}

func TestGlobalVariables(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: "fn main() { global g = 2; foo() } fn foo() { print(g) }",
			expectedInstructions: program(4,
				// main, 0004
				opcode.Make(opcode.OpPush, 2),
				opcode.Make(opcode.OpGlobalStore, 0),
				opcode.Make(opcode.OpCall, 0, 15),
				opcode.Make(opcode.OpPop),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
				// foo, 0015
				opcode.Make(opcode.OpGlobalLoad, 0),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			// Declared in a later function, assigned without the keyword.
			input: "fn main() { g = 3 } fn init() { if 0 { global g = 1 } }",
			expectedInstructions: program(4,
				// main, 0004
				opcode.Make(opcode.OpPush, 3),
				opcode.Make(opcode.OpGlobalStore, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
				// init, 0011
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpBeqz, 19),
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpGlobalStore, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			// A local shadows a global of the same name.
			input: "fn main() { global g = 1 } fn f(g) { print(g) }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpGlobalStore, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
				// f, 0011
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
	}

	runCompilerTests(t, tests)
}

func TestArrays(t *testing.T) {
	tests := []compilerTestCase{
		{
			input: "fn main() { let a[2] = [7, 8]; a[1] = 9; print(a[0]) }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 7),
				opcode.Make(opcode.OpLocalStore, 0),
				opcode.Make(opcode.OpPush, 8),
				opcode.Make(opcode.OpLocalStore, 1),
				// a[1] = 9
				opcode.Make(opcode.OpPush, 9),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpLocalArrStore),
				// a[0]
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpLocalArrLoad),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			input: "fn main() { x = 5; global g[2]; g[x] = x; print(g[1]) }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 5),
				opcode.Make(opcode.OpLocalStore, 0),
				// global g[2]
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpGlobalStore, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpGlobalStore, 1),
				// g[x] = x
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpGlobalArrStore),
				// g[1]
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpGlobalArrLoad),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
		{
			// Local arrays follow the scalars declared before them.
			input: "fn main() { n = 1; let a[] = [n, 2]; print(a[1]) }",
			expectedInstructions: program(4,
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpLocalStore, 0),
				opcode.Make(opcode.OpLocalLoad, 0),
				opcode.Make(opcode.OpLocalStore, 1),
				opcode.Make(opcode.OpPush, 2),
				opcode.Make(opcode.OpLocalStore, 2),
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpPush, 1),
				opcode.Make(opcode.OpLocalArrLoad),
				opcode.Make(opcode.OpPrint, 1),
				opcode.Make(opcode.OpPush, 0),
				opcode.Make(opcode.OpRet),
			),
		},
	}

	runCompilerTests(t, tests)
}

func TestGlobalSlots(t *testing.T) {
	bytecode := compileOrFail(t, `
fn main() {
	global a = 1
	global arr[3]
	while 0 { global late = 2 }
}
fn other() {
	global a = 5
	global b = 6
}`)

	expected := map[string]int{"a": 0, "arr": 1, "late": 4, "b": 5}
	if len(bytecode.Globals) != len(expected) {
		t.Fatalf("wrong globals. want=%v, got=%v", expected, bytecode.Globals)
	}
	for name, slot := range expected {
		if bytecode.Globals[name] != slot {
			t.Errorf("global %s has wrong slot. want=%d, got=%d", name, slot, bytecode.Globals[name])
		}
	}
}

func TestSymbolTable(t *testing.T) {
	global := NewSymbolTable()
	a := global.Define("a")
	arr := global.DefineArray("arr", 4)
	b := global.Define("b")

	if a != (Symbol{Name: "a", Scope: GlobalScope, Index: 0, Size: 1}) {
		t.Errorf("wrong symbol for a: %+v", a)
	}
	if arr.Index != 1 || arr.Size != 4 || b.Index != 5 {
		t.Errorf("array span not reserved: arr=%+v b=%+v", arr, b)
	}

	local := NewEnclosedSymbolTable(global)
	c := local.Define("c")
	if c.Scope != LocalScope || c.Index != 0 {
		t.Errorf("wrong symbol for c: %+v", c)
	}

	if sym, ok := local.Resolve("a"); !ok || sym.Scope != GlobalScope {
		t.Errorf("a not resolved through outer table: %+v", sym)
	}
	if _, ok := local.ResolveOwn("a"); ok {
		t.Errorf("a should not be in the local table")
	}
	if _, ok := global.Resolve("c"); ok {
		t.Errorf("c leaked into the global table")
	}

	shadow := local.Define("a")
	if sym, _ := local.Resolve("a"); sym != shadow {
		t.Errorf("local a does not shadow global a")
	}
}
