package compiler

import (
	"sync"

	"koala/pkg/opcode"
)

// Compiler pool for reusing compiler instances between compiles
var compilerPool = sync.Pool{
	New: func() interface{} {
		return New()
	},
}

// GetCompiler retrieves a ready-to-use compiler from the pool
func GetCompiler() *Compiler {
	return compilerPool.Get().(*Compiler)
}

// PutCompiler returns a compiler to the pool after use. The Bytecode
// previously returned by c stays valid.
func PutCompiler(c *Compiler) {
	// Fresh buffer and tables: the old ones may be referenced by a Bytecode.
	c.instructions = opcode.Instructions{}
	c.functions = make(map[string]int)
	c.fixups = nil

	c.globals = NewSymbolTable()
	c.symbolTable = c.globals
	c.scopes = c.scopes[:1]
	c.scopes[0] = CompilerScope{symbolTable: c.globals}
	c.scopeIndex = 0

	compilerPool.Put(c)
}
