package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"koala/pkg/ast"
	"koala/pkg/lexer"
)

var koalaParser = participle.MustBuild[program](
	participle.Lexer(lexer.Definition),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses Koala source into a Program.
func Parse(source string) (*ast.Program, error) {
	return parse("", source)
}

// ParseFile reads and parses a Koala source file.
func ParseFile(filename string) (*ast.Program, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parse(filename, string(data))
}

func parse(filename, source string) (*ast.Program, error) {
	tree, err := koalaParser.ParseString(filename, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	c := &converter{}
	program := c.program(tree)
	if len(c.errors) > 0 {
		return nil, &Error{Errors: c.errors}
	}
	return program, nil
}

// Error collects the semantic errors found while building the AST from an
// otherwise well-formed parse.
type Error struct {
	Errors []string
}

func (e *Error) Error() string {
	if len(e.Errors) == 1 {
		return "parse: " + e.Errors[0]
	}
	return fmt.Sprintf("parse: %s (and %d more errors)", e.Errors[0], len(e.Errors)-1)
}

// EBNF returns the grammar accepted by Parse.
func EBNF() string {
	return koalaParser.String()
}
