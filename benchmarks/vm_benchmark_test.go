package benchmarks

import (
	"testing"

	"koala/pkg/compiler"
	"koala/pkg/eval"
	"koala/pkg/opcode"
	"koala/pkg/parser"
	"koala/pkg/vm"
)

var result int32

const additionSource = `
fn main() {
	return 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5
}
`

const fibSource = `
fn main() {
	return fib(20)
}

fn fib(n) ? {
	if n < 2 {
		return n
	}
	return fib(n - 1) + fib(n - 2)
}
`

const loopSource = `
fn main() {
	let xs[64]
	let i = 0
	while i < 64 {
		xs[i] = i * i
		i = i + 1
	}
	let sum = 0
	i = 0
	while i < 64 {
		sum = sum + xs[i]
		i = i + 1
	}
	return sum
}
`

func compileSource(tb testing.TB, input string) opcode.Instructions {
	tb.Helper()
	program, err := parser.Parse(input)
	if err != nil {
		tb.Fatal(err)
	}
	ins, err := compiler.Compile(program)
	if err != nil {
		tb.Fatal(err)
	}
	return ins
}

func runFresh(b *testing.B, ins opcode.Instructions) {
	b.Helper()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		machine := vm.New(nil)
		machine.Load(ins)
		if err := machine.Run(); err != nil {
			b.Fatal(err)
		}
		result, _ = machine.StackTop()
	}
}

func BenchmarkVMAddition(b *testing.B) {
	runFresh(b, compileSource(b, additionSource))
}

func BenchmarkVMComparison(b *testing.B) {
	runFresh(b, compileSource(b, "fn main() { return 1 < 2 }"))
}

func BenchmarkVMFib(b *testing.B) {
	runFresh(b, compileSource(b, fibSource))
}

func BenchmarkVMArrayLoop(b *testing.B) {
	runFresh(b, compileSource(b, loopSource))
}

func BenchmarkTreeWalkAddition(b *testing.B) {
	runTreeWalk(b, additionSource)
}

func BenchmarkTreeWalkFib(b *testing.B) {
	runTreeWalk(b, fibSource)
}

func runTreeWalk(b *testing.B, input string) {
	b.Helper()
	program, err := parser.Parse(input)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if result, err = eval.Run(program, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileFib(b *testing.B) {
	program, err := parser.Parse(fibSource)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := compiler.Compile(program); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileFibPooled(b *testing.B) {
	program, err := parser.Parse(fibSource)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := compiler.GetCompiler()
		if err := c.Compile(program); err != nil {
			b.Fatal(err)
		}
		compiler.PutCompiler(c)
	}
}

func BenchmarkParseFib(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(fibSource); err != nil {
			b.Fatal(err)
		}
	}
}
