package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar structs. They mirror the surface syntax and are converted to
// pkg/ast nodes by convert.go.

type program struct {
	Functions []*function `@@*`
}

type function struct {
	Pos     lexer.Position
	Name    string       `"fn" @Ident`
	Params  []string     `"(" (@Ident ("," @Ident)*)? ")"`
	Returns bool         `@"?"?`
	Body    []*statement `"{" (@@ ";"?)* "}"`
}

type statement struct {
	Pos    lexer.Position
	Print  *printStmt  `  @@`
	If     *ifStmt     `| @@`
	While  *whileStmt  `| @@`
	Return *returnStmt `| @@`
	Global *target     `| "global" @@`
	Local  *localStmt  `| @@`
}

type printStmt struct {
	Kind  string `@("println" | "print")`
	Value *expr  `"(" @@? ")"`
}

type ifStmt struct {
	Cond *expr        `"if" @@`
	Body []*statement `"{" (@@ ";"?)* "}"`
}

type whileStmt struct {
	Cond *expr        `"while" @@`
	Body []*statement `"{" (@@ ";"?)* "}"`
}

type returnStmt struct {
	Keyword string `@"return"`
	Value   *expr  `@@?`
}

type localStmt struct {
	Let    bool    `@"let"?`
	Target *target `@@`
}

type target struct {
	Pos   lexer.Position
	Name  string       `@Ident`
	Call  *callArgs    `( @@`
	Index *indexTarget `| @@`
	Value *expr        `| "=" @@ )`
}

type callArgs struct {
	Args []*expr `"(" (@@ ("," @@)*)? ")"`
}

type indexTarget struct {
	Index *expr        `"[" @@? "]"`
	Init  *initializer `@@?`
}

type initializer struct {
	Elements *elementList `"=" ( @@`
	Value    *expr        `    | @@ )`
}

type elementList struct {
	Open  bool    `@"["`
	Items []*expr `(@@ ("," @@)*)? "]"`
}

// Expressions, lowest precedence first.

type expr struct {
	Left *andExpr  `@@`
	Rest []*orTail `@@*`
}

type orTail struct {
	Op    string   `@"||"`
	Right *andExpr `@@`
}

type andExpr struct {
	Left *cmpExpr   `@@`
	Rest []*andTail `@@*`
}

type andTail struct {
	Op    string   `@"&&"`
	Right *cmpExpr `@@`
}

type cmpExpr struct {
	Left *addExpr   `@@`
	Rest []*cmpTail `@@*`
}

type cmpTail struct {
	Op    string   `@("<=" | ">=" | "==" | "!=" | "<" | ">")`
	Right *addExpr `@@`
}

type addExpr struct {
	Left *mulExpr   `@@`
	Rest []*addTail `@@*`
}

type addTail struct {
	Op    string   `@("+" | "-")`
	Right *mulExpr `@@`
}

type mulExpr struct {
	Left *primary   `@@`
	Rest []*mulTail `@@*`
}

type mulTail struct {
	Op    string   `@("*" | "/")`
	Right *primary `@@`
}

type primary struct {
	Pos  lexer.Position
	Sub  *expr      `  "(" @@ ")"`
	Bool *string    `| @("true" | "false")`
	Str  *string    `| @String`
	Int  *string    `| @Int`
	Ref  *reference `| @@`
}

type reference struct {
	Name  string    `@Ident`
	Call  *callArgs `( @@`
	Index *expr     `| "[" @@ "]" )?`
}
