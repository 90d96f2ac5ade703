package compiler

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"koala/pkg/ast"
	"koala/pkg/opcode"
)

const (
	// placeholderAddress is emitted for jump and call targets that are not
	// known yet and is always patched before compilation succeeds.
	placeholderAddress uint32 = 9999

	maxArraySize = 1 << 16

	newlineCharacter = '\n'
)

type CompilerScope struct {
	function    string
	symbolTable *SymbolTable
}

// callFixup is a CALL whose callee had not been compiled yet when the call
// was emitted.
type callFixup struct {
	position int
	callee   string
	caller   string
}

type Compiler struct {
	instructions opcode.Instructions
	globals      *SymbolTable
	symbolTable  *SymbolTable
	functions    map[string]int
	fixups       []callFixup
	scopes       []CompilerScope
	scopeIndex   int
}

// Bytecode is a compiled program. Functions maps each function name to its
// entry address and Globals maps each global name to its first slot.
type Bytecode struct {
	Instructions opcode.Instructions
	Functions    map[string]int
	Globals      map[string]int
}

func New() *Compiler {
	globals := NewSymbolTable()
	mainScope := CompilerScope{symbolTable: globals}

	return &Compiler{
		instructions: opcode.Instructions{},
		globals:      globals,
		symbolTable:  globals,
		functions:    make(map[string]int),
		scopes:       []CompilerScope{mainScope},
		scopeIndex:   0,
	}
}

// Compile lowers a whole program into a fresh Compiler and returns the
// instruction words.
func Compile(program *ast.Program) (opcode.Instructions, error) {
	c := New()
	if err := c.Compile(program); err != nil {
		return nil, err
	}
	return c.Bytecode().Instructions, nil
}

func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		return c.compileProgram(node)

	case *ast.FunctionDefinition:
		if _, ok := c.functions[node.Name]; ok {
			return c.errorf(ErrDuplicateFunction, node.Name)
		}
		start := len(c.instructions)
		c.functions[node.Name] = start

		c.enterScope(node.Name)
		for _, p := range node.Parameters {
			c.symbolTable.Define(p)
		}

		for _, s := range node.Body {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

		if !endsWithReturn(node.Body) {
			c.emit(opcode.OpPush, 0)
			c.emit(opcode.OpRet)
		}

		locals := c.symbolTable.NumDefinitions()
		c.leaveScope()

		log.Debug().
			Str("function", node.Name).
			Int("address", start).
			Int("size", len(c.instructions)-start).
			Int("locals", locals).
			Msg("compiled function")

	case *ast.PrintStatement:
		if str, ok := node.Value.(*ast.StringLiteral); ok {
			for _, ch := range str.Value {
				c.emit(opcode.OpPush, uint32(ch))
				c.emit(opcode.OpPrint, opcode.PrintCharacter)
			}
		} else if node.Value != nil {
			if err := c.Compile(node.Value); err != nil {
				return err
			}
			c.emit(opcode.OpPrint, opcode.PrintInteger)
		}

		if node.Newline {
			c.emit(opcode.OpPush, newlineCharacter)
			c.emit(opcode.OpPrint, opcode.PrintCharacter)
		}

	case *ast.ReturnStatement:
		if node.ReturnValue != nil {
			if err := c.Compile(node.ReturnValue); err != nil {
				return err
			}
		} else {
			c.emit(opcode.OpPush, 0)
		}
		c.emit(opcode.OpRet)

	case *ast.AssignmentStatement:
		if err := c.Compile(node.Value); err != nil {
			return err
		}

		if node.Global {
			symbol, ok := c.globals.ResolveOwn(node.Name)
			if !ok {
				return c.errorf(ErrUnknownGlobal, node.Name)
			}
			c.emit(opcode.OpGlobalStore, uint32(symbol.Index))
			return nil
		}

		symbol, ok := c.symbolTable.Resolve(node.Name)
		if !ok {
			symbol = c.symbolTable.Define(node.Name)
		}
		c.emitStore(symbol, symbol.Index)

	case *ast.ArrayDeclaration:
		return c.compileArrayDeclaration(node)

	case *ast.IndexAssignment:
		symbol, ok := c.symbolTable.Resolve(node.Name)
		if !ok {
			return c.errorf(ErrUndefinedVariable, node.Name)
		}

		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(opcode.OpPush, uint32(symbol.Index))
		if err := c.Compile(node.Index); err != nil {
			return err
		}

		if symbol.Scope == GlobalScope {
			c.emit(opcode.OpGlobalArrStore)
		} else {
			c.emit(opcode.OpLocalArrStore)
		}

	case *ast.IfStatement:
		// <condition>
		// BEQZ <end>
		// <body>
		// <end>
		if err := c.Compile(node.Condition); err != nil {
			return err
		}

		jumpPos := c.emit(opcode.OpBeqz, placeholderAddress)

		for _, s := range node.Body {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

		c.changeOperand(jumpPos, uint32(len(c.instructions)))

	case *ast.WhileStatement:
		// <condition>
		// BEQZ <end>
		// <body>
		// JUMP <condition>
		// <end>
		loopStart := len(c.instructions)

		if err := c.Compile(node.Condition); err != nil {
			return err
		}

		jumpPos := c.emit(opcode.OpBeqz, placeholderAddress)

		for _, s := range node.Body {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

		c.emit(opcode.OpJump, uint32(loopStart))

		c.changeOperand(jumpPos, uint32(len(c.instructions)))

	case *ast.CallStatement:
		if err := c.Compile(node.Call); err != nil {
			return err
		}
		c.emit(opcode.OpPop)

	case *ast.InfixExpression:
		// Right first so the machine pops the left operand first.
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		if err := c.Compile(node.Left); err != nil {
			return err
		}

		op, ok := infixOpcodes[node.Operator]
		if !ok {
			return c.errorf(ErrUnsupportedExpression, fmt.Sprintf("operator %s", node.Operator))
		}
		c.emit(op)

	case *ast.IntegerLiteral:
		c.emit(opcode.OpPush, node.Value)

	case *ast.Boolean:
		if node.Value {
			c.emit(opcode.OpPush, 1)
		} else {
			c.emit(opcode.OpPush, 0)
		}

	case *ast.StringLiteral:
		return c.errorf(ErrUnsupportedExpression, node.String())

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(node.Value)
		if !ok {
			return c.errorf(ErrUndefinedVariable, node.Value)
		}
		if symbol.Scope == GlobalScope {
			c.emit(opcode.OpGlobalLoad, uint32(symbol.Index))
		} else {
			c.emit(opcode.OpLocalLoad, uint32(symbol.Index))
		}

	case *ast.IndexExpression:
		symbol, ok := c.symbolTable.Resolve(node.Name)
		if !ok {
			return c.errorf(ErrUndefinedVariable, node.Name)
		}

		c.emit(opcode.OpPush, uint32(symbol.Index))
		if err := c.Compile(node.Index); err != nil {
			return err
		}

		if symbol.Scope == GlobalScope {
			c.emit(opcode.OpGlobalArrLoad)
		} else {
			c.emit(opcode.OpLocalArrLoad)
		}

	case *ast.CallExpression:
		for i := len(node.Arguments) - 1; i >= 0; i-- {
			if err := c.Compile(node.Arguments[i]); err != nil {
				return err
			}
		}

		argc := uint32(len(node.Arguments))
		if addr, ok := c.functions[node.Function]; ok {
			c.emit(opcode.OpCall, argc, uint32(addr))
			return nil
		}

		pos := c.emit(opcode.OpCall, argc, placeholderAddress)
		c.fixups = append(c.fixups, callFixup{
			position: pos,
			callee:   node.Function,
			caller:   c.scopes[c.scopeIndex].function,
		})

	default:
		return c.errorf(ErrUnsupportedExpression, fmt.Sprintf("%T", node))
	}

	return nil
}

var infixOpcodes = map[ast.Operator]opcode.Opcode{
	ast.Plus:           opcode.OpIAdd,
	ast.Minus:          opcode.OpISub,
	ast.Multiply:       opcode.OpIMul,
	ast.Divide:         opcode.OpIDiv,
	ast.Less:           opcode.OpLt,
	ast.LessOrEqual:    opcode.OpLte,
	ast.Greater:        opcode.OpGt,
	ast.GreaterOrEqual: opcode.OpGte,
	ast.Equal:          opcode.OpEq,
	ast.NotEqual:       opcode.OpNeq,
	ast.Or:             opcode.OpOr,
	ast.And:            opcode.OpAnd,
}

// compileProgram emits the preamble, the pre-scanned globals and every
// function, then resolves the entry point and pending calls.
func (c *Compiler) compileProgram(program *ast.Program) error {
	entryPos := c.emit(opcode.OpCall, 0, placeholderAddress)
	c.emit(opcode.OpEnd)

	for _, fn := range program.Functions {
		c.scopes[c.scopeIndex].function = fn.Name
		if err := c.declareGlobals(fn.Body); err != nil {
			return err
		}
	}
	c.scopes[c.scopeIndex].function = ""

	for _, fn := range program.Functions {
		if err := c.Compile(fn); err != nil {
			return err
		}
	}

	for _, fix := range c.fixups {
		addr, ok := c.functions[fix.callee]
		if !ok {
			return &CompileError{Err: ErrUndefinedFunction, Function: fix.caller, Name: fix.callee}
		}
		c.changeOperand(fix.position, uint32(addr))
	}
	c.fixups = c.fixups[:0]

	main, ok := c.functions["main"]
	if !ok {
		return &CompileError{Err: ErrMissingEntryPoint}
	}
	c.changeOperand(entryPos, uint32(main))

	return nil
}

// declareGlobals assigns slots to every global declared in body, including
// nested blocks. The first declaration of a name fixes its slot.
func (c *Compiler) declareGlobals(body []ast.Statement) error {
	for _, s := range body {
		switch s := s.(type) {
		case *ast.AssignmentStatement:
			if !s.Global {
				continue
			}
			if _, ok := c.globals.ResolveOwn(s.Name); !ok {
				c.globals.Define(s.Name)
			}
		case *ast.ArrayDeclaration:
			if !s.Global {
				continue
			}
			size, err := c.arraySize(s)
			if err != nil {
				return err
			}
			if _, ok := c.globals.ResolveOwn(s.Name); !ok {
				c.globals.DefineArray(s.Name, size)
			}
		case *ast.IfStatement:
			if err := c.declareGlobals(s.Body); err != nil {
				return err
			}
		case *ast.WhileStatement:
			if err := c.declareGlobals(s.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

// arraySize returns the number of slots an array declaration needs.
func (c *Compiler) arraySize(node *ast.ArrayDeclaration) (int, error) {
	var size int
	switch lit := node.Size.(type) {
	case *ast.IntegerLiteral:
		if lit.Value > maxArraySize {
			return 0, c.errorf(ErrArrayTooLarge, node.Name)
		}
		size = int(lit.Value)
	case nil:
		if node.Elements == nil {
			return 0, c.errorf(ErrNonConstantArraySize, node.Name)
		}
		size = len(node.Elements)
	default:
		return 0, c.errorf(ErrNonConstantArraySize, node.Name)
	}

	if node.Elements != nil && len(node.Elements) != size {
		return 0, c.errorf(ErrArraySizeMismatch,
			fmt.Sprintf("%s has size %d but %d elements", node.Name, size, len(node.Elements)))
	}
	return size, nil
}

func (c *Compiler) compileArrayDeclaration(node *ast.ArrayDeclaration) error {
	size, err := c.arraySize(node)
	if err != nil {
		return err
	}

	var symbol Symbol
	if node.Global {
		var ok bool
		symbol, ok = c.globals.ResolveOwn(node.Name)
		if !ok {
			return c.errorf(ErrUnknownGlobal, node.Name)
		}
		if size > symbol.Size {
			return c.errorf(ErrArraySizeMismatch,
				fmt.Sprintf("%s redeclared with size %d, first declared with %d", node.Name, size, symbol.Size))
		}
	} else {
		symbol = c.symbolTable.DefineArray(node.Name, size)
	}

	for i := 0; i < size; i++ {
		if node.Elements != nil {
			if err := c.Compile(node.Elements[i]); err != nil {
				return err
			}
		} else {
			c.emit(opcode.OpPush, 0)
		}
		c.emitStore(symbol, symbol.Index+i)
	}

	return nil
}

func (c *Compiler) emitStore(symbol Symbol, slot int) {
	if symbol.Scope == GlobalScope {
		c.emit(opcode.OpGlobalStore, uint32(slot))
	} else {
		c.emit(opcode.OpLocalStore, uint32(slot))
	}
}

func endsWithReturn(body []ast.Statement) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.ReturnStatement)
	return ok
}

func (c *Compiler) errorf(err error, name string) error {
	return &CompileError{Err: err, Function: c.scopes[c.scopeIndex].function, Name: name}
}

func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.instructions,
		Functions:    c.functions,
		Globals:      c.globals.Symbols(),
	}
}

func (c *Compiler) emit(op opcode.Opcode, operands ...uint32) int {
	ins := opcode.Make(op, operands...)
	pos := c.addInstruction(ins)
	return pos
}

func (c *Compiler) addInstruction(ins opcode.Instructions) int {
	posNewInstruction := len(c.instructions)
	c.instructions = append(c.instructions, ins...)
	return posNewInstruction
}

// changeOperand patches the address operand of the instruction at opPos,
// which is always its final word.
func (c *Compiler) changeOperand(opPos int, operand uint32) {
	op := opcode.Opcode(c.instructions[opPos])
	c.instructions[opPos+opcode.Width(op)-1] = operand
}

func (c *Compiler) enterScope(function string) {
	c.symbolTable = NewEnclosedSymbolTable(c.globals)
	c.scopes = append(c.scopes, CompilerScope{function: function, symbolTable: c.symbolTable})
	c.scopeIndex++
}

func (c *Compiler) leaveScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.scopes[c.scopeIndex].symbolTable
}
