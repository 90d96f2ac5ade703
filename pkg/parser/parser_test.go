package parser

import (
	"strings"
	"testing"

	"koala/pkg/ast"
)

func parseOrFail(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := Parse(input)
	if err != nil {
		t.Fatalf("parser error: %v", err)
	}
	return program
}

func mainBody(t *testing.T, program *ast.Program) []ast.Statement {
	t.Helper()
	if len(program.Functions) == 0 {
		t.Fatalf("program has no functions")
	}
	return program.Functions[0].Body
}

func TestFunctionDefinition(t *testing.T) {
	input := `fn add(x, y) ? {
	return x + y
}
`
	program := parseOrFail(t, input)

	if len(program.Functions) != 1 {
		t.Fatalf("program.Functions does not contain 1 function. got=%d",
			len(program.Functions))
	}

	fn := program.Functions[0]
	if fn.Name != "add" {
		t.Fatalf("function name not 'add'. got=%q", fn.Name)
	}
	if len(fn.Parameters) != 2 || fn.Parameters[0] != "x" || fn.Parameters[1] != "y" {
		t.Fatalf("wrong parameters. got=%v", fn.Parameters)
	}
	if !fn.HasReturnValue {
		t.Fatalf("expected return marker")
	}
	if len(fn.Body) != 1 {
		t.Fatalf("function body has wrong statements count. got=%d", len(fn.Body))
	}

	ret, ok := fn.Body[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("body[0] is not *ast.ReturnStatement. got=%T", fn.Body[0])
	}
	if ret.ReturnValue.String() != "(x + y)" {
		t.Fatalf("wrong return value. got=%q", ret.ReturnValue.String())
	}
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"10 / 2 * 5", "((10 / 2) * 5)"},
		{"(2 + 5 + 3) - ((2 * 3) - (10 / 2))", "(((2 + 5) + 3) - ((2 * 3) - (10 / 2)))"},
		{"a < b == c > d", "(((a < b) == c) > d)"},
		{"a + 1 <= b * 2", "((a + 1) <= (b * 2))"},
		{"a || b && c", "(a || (b && c))"},
		{"a && b || c && d", "((a && b) || (c && d))"},
		{"1 != 2 && x >= 3", "((1 != 2) && (x >= 3))"},
		{"f(1, a[2]) + g()", "(f(1, a[2]) + g())"},
		{"true || false", "(true || false)"},
	}

	for _, tt := range tests {
		program := parseOrFail(t, "fn main() { x = "+tt.input+" }")
		stmt, ok := mainBody(t, program)[0].(*ast.AssignmentStatement)
		if !ok {
			t.Fatalf("%q: not an assignment. got=%T", tt.input, mainBody(t, program)[0])
		}
		if got := stmt.Value.String(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestStatements(t *testing.T) {
	input := `fn main() {
	print(2)
	println("hi")
	println()
	let a = 1;
	b = a
	global g = 2
	global arr[4]
	global init[2] = [1, 2]
	let xs[3] = [1, 12, 123]
	ys[] = [5, 6]
	xs[0] = 7
	foo(a, 2)
	return
}
`
	body := mainBody(t, parseOrFail(t, input))

	expected := []string{
		"print(2)",
		`println("hi")`,
		"println()",
		"a = 1",
		"b = a",
		"global g = 2",
		"global arr[4]",
		"global init[2] = [1, 2]",
		"let xs[3] = [1, 12, 123]",
		"let ys[] = [5, 6]",
		"xs[0] = 7",
		"foo(a, 2)",
		"return",
	}

	if len(body) != len(expected) {
		t.Fatalf("wrong statement count. want=%d, got=%d", len(expected), len(body))
	}

	for i, want := range expected {
		if got := body[i].String(); got != want {
			t.Errorf("statement %d: want=%q, got=%q", i, want, got)
		}
	}

	if ps := body[1].(*ast.PrintStatement); !ps.Newline {
		t.Errorf("println should set Newline")
	}
	if body[2].(*ast.PrintStatement).Value != nil {
		t.Errorf("println() should have no value")
	}
	arr := body[6].(*ast.ArrayDeclaration)
	if !arr.Global || arr.Elements != nil {
		t.Errorf("global arr[4] parsed wrongly: %+v", arr)
	}
	ys := body[9].(*ast.ArrayDeclaration)
	if ys.Size != nil || len(ys.Elements) != 2 {
		t.Errorf("ys[] parsed wrongly: %+v", ys)
	}
	if _, ok := body[11].(*ast.CallStatement); !ok {
		t.Errorf("foo(a, 2) should be a call statement. got=%T", body[11])
	}
}

func TestControlFlow(t *testing.T) {
	input := `fn main() {
	let a = 2
	while a < 5 { print(a); a = a + 1 }
	if a == 5 {
		if 1 { print(1) }
	}
}`
	body := mainBody(t, parseOrFail(t, input))

	loop, ok := body[1].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("body[1] is not *ast.WhileStatement. got=%T", body[1])
	}
	if loop.Condition.String() != "(a < 5)" || len(loop.Body) != 2 {
		t.Fatalf("wrong loop: %s", loop)
	}

	cond, ok := body[2].(*ast.IfStatement)
	if !ok {
		t.Fatalf("body[2] is not *ast.IfStatement. got=%T", body[2])
	}
	if _, ok := cond.Body[0].(*ast.IfStatement); !ok {
		t.Fatalf("nested if missing. got=%T", cond.Body[0])
	}
}

func TestCommentsAndOrder(t *testing.T) {
	input := `// leading comment
fn main() {
	foo() // trailing
}

fn foo() {
	print(1)
}`
	program := parseOrFail(t, input)
	if len(program.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(program.Functions))
	}
	if program.Functions[0].Name != "main" || program.Functions[1].Name != "foo" {
		t.Fatalf("functions out of order: %s, %s", program.Functions[0].Name, program.Functions[1].Name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"fn main() { let f() }", "cannot be declared"},
		{"fn main() { global a[1] = 2 }", "cannot be declared"},
		{"fn main() { a[] = 2 }", "needs an index"},
		{"fn main() { let while = 1 }", "keyword"},
		{"fn main() { x = 99999999999 }", "32 bits"},
		{"fn main() { x = }", "parse"},
		{"fn main( { }", "parse"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.input)
		if err == nil {
			t.Errorf("%q: expected error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.message) {
			t.Errorf("%q: error %q does not mention %q", tt.input, err, tt.message)
		}
	}
}

func TestEBNF(t *testing.T) {
	if !strings.Contains(EBNF(), `"fn"`) {
		t.Fatalf("grammar does not mention fn:\n%s", EBNF())
	}
}
