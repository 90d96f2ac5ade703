package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"koala/pkg/ast"
	"koala/pkg/compiler"
	"koala/pkg/parser"
)

type ProgramInsights struct {
	Functions []FunctionInfo
	Globals   []GlobalInfo
}

type FunctionInfo struct {
	Name       string
	Parameters []string
	Returns    bool
	Address    int
	Size       int
	Calls      []string
}

type GlobalInfo struct {
	Name string
	Slot int
	Size int
}

func inspectFile(path string) int {
	program, err := parser.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	insights := analyzeProgram(program, comp.Bytecode())
	printFunctionInsights(insights.Functions)
	printGlobalInsights(insights.Globals)
	return 0
}

func analyzeProgram(program *ast.Program, bytecode *compiler.Bytecode) ProgramInsights {
	insights := ProgramInsights{}

	addrs := make([]int, 0, len(bytecode.Functions))
	for _, addr := range bytecode.Functions {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)
	sizeOf := func(addr int) int {
		i := sort.SearchInts(addrs, addr)
		if i+1 < len(addrs) {
			return addrs[i+1] - addr
		}
		return len(bytecode.Instructions) - addr
	}

	seenGlobals := make(map[string]bool)
	for _, fn := range program.Functions {
		info := FunctionInfo{
			Name:       fn.Name,
			Parameters: fn.Parameters,
			Returns:    fn.HasReturnValue,
			Address:    bytecode.Functions[fn.Name],
		}
		info.Size = sizeOf(info.Address)

		called := make(map[string]bool)
		walk(fn.Body, func(node ast.Node) {
			switch n := node.(type) {
			case *ast.CallExpression:
				if !called[n.Function] {
					called[n.Function] = true
					info.Calls = append(info.Calls, n.Function)
				}
			case *ast.AssignmentStatement:
				if n.Global && !seenGlobals[n.Name] {
					seenGlobals[n.Name] = true
					insights.Globals = append(insights.Globals, GlobalInfo{Name: n.Name, Slot: bytecode.Globals[n.Name], Size: 1})
				}
			case *ast.ArrayDeclaration:
				if n.Global && !seenGlobals[n.Name] {
					seenGlobals[n.Name] = true
					insights.Globals = append(insights.Globals, GlobalInfo{Name: n.Name, Slot: bytecode.Globals[n.Name], Size: arrayLength(n)})
				}
			}
		})

		insights.Functions = append(insights.Functions, info)
	}

	return insights
}

func arrayLength(n *ast.ArrayDeclaration) int {
	if lit, ok := n.Size.(*ast.IntegerLiteral); ok {
		return int(lit.Value)
	}
	return len(n.Elements)
}

func walk(body []ast.Statement, visitor func(ast.Node)) {
	for _, stmt := range body {
		walkNode(stmt, visitor)
	}
}

func walkNode(node ast.Node, visitor func(ast.Node)) {
	if node == nil {
		return
	}

	visitor(node)

	switch n := node.(type) {
	case *ast.PrintStatement:
		if n.Value != nil {
			walkNode(n.Value, visitor)
		}
	case *ast.ReturnStatement:
		if n.ReturnValue != nil {
			walkNode(n.ReturnValue, visitor)
		}
	case *ast.AssignmentStatement:
		walkNode(n.Value, visitor)
	case *ast.ArrayDeclaration:
		for _, e := range n.Elements {
			walkNode(e, visitor)
		}
	case *ast.IndexAssignment:
		walkNode(n.Index, visitor)
		walkNode(n.Value, visitor)
	case *ast.IfStatement:
		walkNode(n.Condition, visitor)
		walk(n.Body, visitor)
	case *ast.WhileStatement:
		walkNode(n.Condition, visitor)
		walk(n.Body, visitor)
	case *ast.CallStatement:
		walkNode(n.Call, visitor)
	case *ast.IndexExpression:
		walkNode(n.Index, visitor)
	case *ast.InfixExpression:
		walkNode(n.Left, visitor)
		walkNode(n.Right, visitor)
	case *ast.CallExpression:
		for _, arg := range n.Arguments {
			walkNode(arg, visitor)
		}
	}
}

func printFunctionInsights(functions []FunctionInfo) {
	fmt.Printf("Functions (%d)\n", len(functions))
	for _, fn := range functions {
		marker := ""
		if fn.Returns {
			marker = " ?"
		}
		fmt.Printf("  · %04d fn %s(%s)%s  %d words", fn.Address, fn.Name, strings.Join(fn.Parameters, ", "), marker, fn.Size)
		if len(fn.Calls) > 0 {
			fmt.Printf("  calls %s", strings.Join(fn.Calls, ", "))
		}
		fmt.Println()
	}
}

func printGlobalInsights(globals []GlobalInfo) {
	fmt.Printf("Globals (%d)\n", len(globals))
	if len(globals) == 0 {
		fmt.Println("  · No globals declared.")
		return
	}

	for _, g := range globals {
		if g.Size > 1 {
			fmt.Printf("  · %s[%d] at slots %d..%d\n", g.Name, g.Size, g.Slot, g.Slot+g.Size-1)
			continue
		}
		fmt.Printf("  · %s at slot %d\n", g.Name, g.Slot)
	}
}
