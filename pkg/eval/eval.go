// Package eval runs Koala programs by walking the AST. It shares the
// compiler's slot layout and the machine's fault values, so a program
// behaves the same here as it does compiled.
package eval

import (
	"errors"
	"fmt"
	"strconv"

	"koala/pkg/ast"
	"koala/pkg/compiler"
	"koala/pkg/vm"
)

// maxLocals matches the largest frame the machine will grow.
const maxLocals = 1 << 16

type Object interface {
	Kind() ObjectKind
	Inspect() string
}

type Integer struct {
	Value int32
}

func (i *Integer) Kind() ObjectKind { return KindInteger }
func (i *Integer) Inspect() string  { return strconv.FormatInt(int64(i.Value), 10) }

type ReturnValue struct {
	Value *Integer
}

func (rv *ReturnValue) Kind() ObjectKind { return KindReturnValue }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

type ErrorObj struct {
	Err      error
	Function string
}

func (e *ErrorObj) Kind() ObjectKind { return KindError }
func (e *ErrorObj) Inspect() string  { return "ERROR: " + e.Error() }

func (e *ErrorObj) Error() string {
	return fmt.Sprintf("%v in function %s", e.Err, e.Function)
}

func (e *ErrorObj) Unwrap() error {
	return e.Err
}

// Environment holds the slots of one activation, or the globals when
// outer is nil.
type Environment struct {
	slots  map[int]int32
	outer  *Environment
	layout slotLayout
	name   string
}

func NewEnvironment() *Environment {
	return &Environment{slots: make(map[int]int32)}
}

func NewEnclosedEnvironment(outer *Environment, fn *function) *Environment {
	return &Environment{
		slots:  make(map[int]int32, len(fn.def.Parameters)),
		outer:  outer,
		layout: fn.layout,
		name:   fn.def.Name,
	}
}

func (e *Environment) Get(slot int) (int32, bool) {
	v, ok := e.slots[slot]
	return v, ok
}

func (e *Environment) Set(slot int, val int32) {
	e.slots[slot] = val
}

type function struct {
	def    *ast.FunctionDefinition
	layout slotLayout
}

type Option func(*Interpreter)

// WithMaxDepth bounds the call depth, main included.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

type Interpreter struct {
	functions map[string]*function
	globals   *Environment
	out       vm.OutputFunc
	depth     int
	maxDepth  int
}

// Run evaluates program from main and returns main's result. Programs
// that do not compile are rejected with the compiler's error.
func Run(program *ast.Program, out vm.OutputFunc, opts ...Option) (int32, error) {
	if _, err := compiler.Compile(program); err != nil {
		return 0, err
	}

	if out == nil {
		out = func(string) {}
	}
	in := &Interpreter{
		functions: make(map[string]*function, len(program.Functions)),
		globals:   NewEnvironment(),
		out:       out,
		maxDepth:  vm.DefaultMaxFrames,
	}
	for _, opt := range opts {
		opt(in)
	}

	globalTable := compiler.NewSymbolTable()
	for _, fn := range program.Functions {
		declareGlobals(globalTable, fn.Body)
	}
	for _, fn := range program.Functions {
		in.functions[fn.Name] = &function{def: fn, layout: buildFunctionSlotLayout(fn, globalTable)}
	}

	result := in.applyFunction(in.functions["main"], nil)
	if errObj, ok := result.(*ErrorObj); ok {
		return 0, errObj
	}
	return result.(*Integer).Value, nil
}

func (in *Interpreter) Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {
	// Expressions
	case *ast.IntegerLiteral:
		return NewInteger(int32(node.Value))

	case *ast.Boolean:
		return nativeBoolToInteger(node.Value)

	case *ast.Identifier:
		symbol := env.layout[node]
		return in.load(env, symbol, int64(symbol.Index))

	case *ast.IndexExpression:
		symbol := env.layout[node]
		index := in.Eval(node.Index, env)
		if isError(index) {
			return index
		}
		return in.load(env, symbol, int64(symbol.Index)+int64(index.(*Integer).Value))

	case *ast.InfixExpression:
		// Right first, as compiled code does.
		right := in.Eval(node.Right, env)
		if isError(right) {
			return right
		}
		left := in.Eval(node.Left, env)
		if isError(left) {
			return left
		}
		return in.evalInfixExpression(env, node.Operator, left.(*Integer).Value, right.(*Integer).Value)

	case *ast.CallExpression:
		args := make([]int32, len(node.Arguments))
		for i := len(node.Arguments) - 1; i >= 0; i-- {
			arg := in.Eval(node.Arguments[i], env)
			if isError(arg) {
				return arg
			}
			args[i] = arg.(*Integer).Value
		}
		if in.depth >= in.maxDepth {
			return newError(env, vm.ErrCallStackOverflow)
		}
		return in.applyFunction(in.functions[node.Function], args)

	// Statements
	case *ast.PrintStatement:
		return in.evalPrintStatement(node, env)

	case *ast.ReturnStatement:
		if node.ReturnValue == nil {
			return &ReturnValue{Value: ZERO}
		}
		val := in.Eval(node.ReturnValue, env)
		if isError(val) {
			return val
		}
		return &ReturnValue{Value: val.(*Integer)}

	case *ast.AssignmentStatement:
		val := in.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		symbol := env.layout[node]
		return in.store(env, symbol, int64(symbol.Index), val.(*Integer).Value)

	case *ast.ArrayDeclaration:
		symbol := env.layout[node]
		for i := 0; i < arrayLength(node); i++ {
			var val Object = ZERO
			if node.Elements != nil {
				if val = in.Eval(node.Elements[i], env); isError(val) {
					return val
				}
			}
			if result := in.store(env, symbol, int64(symbol.Index+i), val.(*Integer).Value); isError(result) {
				return result
			}
		}
		return nil

	case *ast.IndexAssignment:
		symbol := env.layout[node]
		val := in.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		index := in.Eval(node.Index, env)
		if isError(index) {
			return index
		}
		return in.store(env, symbol, int64(symbol.Index)+int64(index.(*Integer).Value), val.(*Integer).Value)

	case *ast.IfStatement:
		condition := in.Eval(node.Condition, env)
		if isError(condition) {
			return condition
		}
		if isTruthy(condition) {
			return in.evalBlockStatement(node.Body, env)
		}
		return nil

	case *ast.WhileStatement:
		return in.evalWhileStatement(node, env)

	case *ast.CallStatement:
		result := in.Eval(node.Call, env)
		if isError(result) {
			return result
		}
		return nil
	}

	return newError(env, compiler.ErrUnsupportedExpression)
}

func (in *Interpreter) evalBlockStatement(body []ast.Statement, env *Environment) Object {
	for _, statement := range body {
		result := in.Eval(statement, env)
		if result != nil {
			rt := result.Kind()
			if rt == KindReturnValue || rt == KindError {
				return result
			}
		}
	}
	return nil
}

func (in *Interpreter) evalWhileStatement(ws *ast.WhileStatement, env *Environment) Object {
	for {
		condition := in.Eval(ws.Condition, env)
		if isError(condition) {
			return condition
		}
		if !isTruthy(condition) {
			return nil
		}
		if result := in.evalBlockStatement(ws.Body, env); result != nil {
			return result
		}
	}
}

func (in *Interpreter) evalPrintStatement(node *ast.PrintStatement, env *Environment) Object {
	if str, ok := node.Value.(*ast.StringLiteral); ok {
		for _, ch := range str.Value {
			in.out(string(ch))
		}
	} else if node.Value != nil {
		val := in.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		in.out(val.Inspect())
	}

	if node.Newline {
		in.out("\n")
	}
	return nil
}

func (in *Interpreter) evalInfixExpression(env *Environment, operator ast.Operator, left, right int32) Object {
	switch operator {
	case ast.Plus:
		return NewInteger(left + right)
	case ast.Minus:
		return NewInteger(left - right)
	case ast.Multiply:
		return NewInteger(left * right)
	case ast.Divide:
		if right == 0 {
			return newError(env, vm.ErrDivisionByZero)
		}
		return NewInteger(left / right)
	case ast.Less:
		return nativeBoolToInteger(left < right)
	case ast.LessOrEqual:
		return nativeBoolToInteger(left <= right)
	case ast.Greater:
		return nativeBoolToInteger(left > right)
	case ast.GreaterOrEqual:
		return nativeBoolToInteger(left >= right)
	case ast.Equal:
		return nativeBoolToInteger(left == right)
	case ast.NotEqual:
		return nativeBoolToInteger(left != right)
	case ast.Or:
		return nativeBoolToInteger(left != 0 || right != 0)
	case ast.And:
		return nativeBoolToInteger(left != 0 && right != 0)
	}
	return newError(env, compiler.ErrUnsupportedExpression)
}

func (in *Interpreter) applyFunction(fn *function, args []int32) Object {
	env := NewEnclosedEnvironment(in.globals, fn)
	for i, arg := range args {
		env.Set(i, arg)
	}

	in.depth++
	defer func() { in.depth-- }()

	result := in.evalBlockStatement(fn.def.Body, env)
	return unwrapReturnValue(result)
}

func unwrapReturnValue(obj Object) Object {
	switch obj := obj.(type) {
	case *ReturnValue:
		return obj.Value
	case *ErrorObj:
		return obj
	}
	return ZERO
}

// load reads addr from the globals or from env, depending on where symbol
// lives.
func (in *Interpreter) load(env *Environment, symbol compiler.Symbol, addr int64) Object {
	if addr < 0 || (symbol.Scope == compiler.LocalScope && addr >= maxLocals) {
		return newError(env, vm.ErrInvalidSlot)
	}

	if symbol.Scope == compiler.GlobalScope {
		v, ok := in.globals.Get(int(uint32(addr)))
		if !ok {
			return newError(env, vm.ErrUninitializedGlobal)
		}
		return NewInteger(v)
	}

	v, ok := env.Get(int(addr))
	if !ok {
		return newError(env, vm.ErrUninitializedLocal)
	}
	return NewInteger(v)
}

func (in *Interpreter) store(env *Environment, symbol compiler.Symbol, addr int64, val int32) Object {
	if addr < 0 || (symbol.Scope == compiler.LocalScope && addr >= maxLocals) {
		return newError(env, vm.ErrInvalidSlot)
	}

	if symbol.Scope == compiler.GlobalScope {
		in.globals.Set(int(uint32(addr)), val)
	} else {
		env.Set(int(addr), val)
	}
	return nil
}

func isTruthy(obj Object) bool {
	return obj.(*Integer).Value != 0
}

func isError(obj Object) bool {
	if obj != nil {
		return obj.Kind() == KindError
	}
	return false
}

func newError(env *Environment, err error) *ErrorObj {
	return &ErrorObj{Err: err, Function: env.name}
}

// IsFault reports whether err is a runtime fault rather than a compile
// error.
func IsFault(err error) bool {
	var errObj *ErrorObj
	return errors.As(err, &errObj)
}
