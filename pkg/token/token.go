package token

import "fmt"

// TokenType names a lexer rule. The names double as participle token
// types, so grammar tags can refer to them as @Ident, @Int and so on.
type TokenType string

const (
	// Elided
	COMMENT    TokenType = "Comment"
	WHITESPACE TokenType = "Whitespace"

	// Identifiers & Literals
	STRING TokenType = "String"
	INT    TokenType = "Int"
	IDENT  TokenType = "Ident"

	// Operators & Delimiters
	OPERATOR TokenType = "Operator"
	PUNCT    TokenType = "Punct"

	EOF TokenType = "EOF"
)

// Keywords
const (
	FN      = "fn"
	LET     = "let"
	GLOBAL  = "global"
	IF      = "if"
	WHILE   = "while"
	RETURN  = "return"
	PRINT   = "print"
	PRINTLN = "println"
	TRUE    = "true"
	FALSE   = "false"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]bool{
	FN:      true,
	LET:     true,
	GLOBAL:  true,
	IF:      true,
	WHILE:   true,
	RETURN:  true,
	PRINT:   true,
	PRINTLN: true,
	TRUE:    true,
	FALSE:   true,
}

// IsKeyword reports whether ident is reserved and cannot name a variable,
// array or function.
func IsKeyword(ident string) bool {
	return keywords[ident]
}
