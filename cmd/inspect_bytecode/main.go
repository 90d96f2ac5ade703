package main

import (
	"fmt"
	"os"
	"sort"

	"koala/pkg/compiler"
	"koala/pkg/opcode"
	"koala/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: inspect_bytecode '<code>'")
		os.Exit(1)
	}

	program, err := parser.Parse(os.Args[1])
	if err != nil {
		fmt.Printf("Parser error: %s\n", err)
		os.Exit(1)
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		fmt.Printf("Compiler error: %s\n", err)
		os.Exit(1)
	}

	bytecode := comp.Bytecode()

	names := make([]string, 0, len(bytecode.Functions))
	for name := range bytecode.Functions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return bytecode.Functions[names[i]] < bytecode.Functions[names[j]]
	})

	fmt.Printf("Functions (%d):\n", len(names))
	for _, name := range names {
		fmt.Printf("  %04d %s\n", bytecode.Functions[name], name)
	}
	fmt.Printf("Globals (%d):\n", len(bytecode.Globals))
	for name, slot := range bytecode.Globals {
		fmt.Printf("  [%d] %s\n", slot, name)
	}
	fmt.Println()

	fmt.Printf("Instructions (%d words):\n", len(bytecode.Instructions))
	ins := bytecode.Instructions
	i := 0
	for i < len(ins) {
		def, err := opcode.Lookup(ins[i])
		if err != nil {
			fmt.Printf("%04d ERROR: %s\n", i, err)
			i++
			continue
		}

		operands, read := opcode.ReadOperands(def, ins[i+1:])
		fmt.Printf("%04d %s", i, def.Name)
		for _, op := range operands {
			fmt.Printf(" %d", op)
		}
		fmt.Println()

		fmt.Printf("     Raw: ")
		for k := 0; k < 1+read; k++ {
			fmt.Printf("%08x ", ins[i+k])
		}
		fmt.Println()

		i += 1 + read
	}
}
