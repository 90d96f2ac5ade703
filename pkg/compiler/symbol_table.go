package compiler

type SymbolScope string

const (
	GlobalScope SymbolScope = "GLOBAL"
	LocalScope  SymbolScope = "LOCAL"
)

// Symbol is a named storage span. Scalars have Size 1; arrays occupy Size
// contiguous slots starting at Index.
type Symbol struct {
	Name  string
	Scope SymbolScope
	Index int
	Size  int
}

type SymbolTable struct {
	Outer          *SymbolTable
	store          map[string]Symbol
	numDefinitions int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		store: make(map[string]Symbol),
	}
}

func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	s := NewSymbolTable()
	s.Outer = outer
	return s
}

// Define assigns name the next free slot.
func (s *SymbolTable) Define(name string) Symbol {
	return s.DefineArray(name, 1)
}

// DefineArray reserves size contiguous slots for name. Redefining a name
// always allocates a fresh span.
func (s *SymbolTable) DefineArray(name string, size int) Symbol {
	symbol := Symbol{Name: name, Index: s.numDefinitions, Size: size}
	if s.Outer == nil {
		symbol.Scope = GlobalScope
	} else {
		symbol.Scope = LocalScope
	}
	s.store[name] = symbol
	s.numDefinitions += size
	return symbol
}

// Resolve looks name up in this table, then in the enclosing ones.
func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	obj, ok := s.store[name]
	if !ok && s.Outer != nil {
		obj, ok = s.Outer.Resolve(name)
		return obj, ok
	}
	return obj, ok
}

// ResolveOwn looks name up in this table only.
func (s *SymbolTable) ResolveOwn(name string) (Symbol, bool) {
	obj, ok := s.store[name]
	return obj, ok
}

// NumDefinitions is the number of slots reserved so far.
func (s *SymbolTable) NumDefinitions() int {
	return s.numDefinitions
}

// Symbols returns the slot of every name defined in this table.
func (s *SymbolTable) Symbols() map[string]int {
	out := make(map[string]int, len(s.store))
	for name, sym := range s.store {
		out[name] = sym.Index
	}
	return out
}
