package eval

import (
	"koala/pkg/ast"
	"koala/pkg/compiler"
)

// slotLayout maps every name-bearing node of a function to the slot the
// compiler would give it, so evaluated programs address memory the same
// way compiled ones do.
type slotLayout map[ast.Node]compiler.Symbol

// declareGlobals reserves global slots in source order. The first
// declaration of a name wins.
func declareGlobals(table *compiler.SymbolTable, body []ast.Statement) {
	for _, s := range body {
		switch s := s.(type) {
		case *ast.AssignmentStatement:
			if _, ok := table.ResolveOwn(s.Name); s.Global && !ok {
				table.Define(s.Name)
			}
		case *ast.ArrayDeclaration:
			if _, ok := table.ResolveOwn(s.Name); s.Global && !ok {
				table.DefineArray(s.Name, arrayLength(s))
			}
		case *ast.IfStatement:
			declareGlobals(table, s.Body)
		case *ast.WhileStatement:
			declareGlobals(table, s.Body)
		}
	}
}

func arrayLength(n *ast.ArrayDeclaration) int {
	if lit, ok := n.Size.(*ast.IntegerLiteral); ok {
		return int(lit.Value)
	}
	return len(n.Elements)
}

// buildFunctionSlotLayout resolves names in textual order. The program
// must already have compiled, so every name resolves.
func buildFunctionSlotLayout(fn *ast.FunctionDefinition, globals *compiler.SymbolTable) slotLayout {
	layout := make(slotLayout)
	table := compiler.NewEnclosedSymbolTable(globals)
	for _, p := range fn.Parameters {
		table.Define(p)
	}
	layout.statements(fn.Body, table, globals)
	return layout
}

func (l slotLayout) statements(body []ast.Statement, table, globals *compiler.SymbolTable) {
	for _, s := range body {
		switch s := s.(type) {
		case *ast.PrintStatement:
			l.expression(s.Value, table)
		case *ast.ReturnStatement:
			l.expression(s.ReturnValue, table)
		case *ast.AssignmentStatement:
			l.expression(s.Value, table)
			var symbol compiler.Symbol
			if s.Global {
				symbol, _ = globals.ResolveOwn(s.Name)
			} else if sym, ok := table.Resolve(s.Name); ok {
				symbol = sym
			} else {
				symbol = table.Define(s.Name)
			}
			l[s] = symbol
		case *ast.ArrayDeclaration:
			if s.Global {
				l[s], _ = globals.ResolveOwn(s.Name)
			} else {
				l[s] = table.DefineArray(s.Name, arrayLength(s))
			}
			for _, e := range s.Elements {
				l.expression(e, table)
			}
		case *ast.IndexAssignment:
			l[s], _ = table.Resolve(s.Name)
			l.expression(s.Value, table)
			l.expression(s.Index, table)
		case *ast.IfStatement:
			l.expression(s.Condition, table)
			l.statements(s.Body, table, globals)
		case *ast.WhileStatement:
			l.expression(s.Condition, table)
			l.statements(s.Body, table, globals)
		case *ast.CallStatement:
			l.expression(s.Call, table)
		}
	}
}

func (l slotLayout) expression(e ast.Expression, table *compiler.SymbolTable) {
	switch e := e.(type) {
	case *ast.Identifier:
		l[e], _ = table.Resolve(e.Value)
	case *ast.IndexExpression:
		l[e], _ = table.Resolve(e.Name)
		l.expression(e.Index, table)
	case *ast.InfixExpression:
		l.expression(e.Left, table)
		l.expression(e.Right, table)
	case *ast.CallExpression:
		for _, arg := range e.Arguments {
			l.expression(arg, table)
		}
	}
}
