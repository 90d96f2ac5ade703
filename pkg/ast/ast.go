package ast

import (
	"bytes"
	"strconv"
	"strings"
)

type Node interface {
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// Program is an ordered list of function definitions. The function named
// "main" is the entry point.
type Program struct {
	Functions []*FunctionDefinition
}

func (p *Program) String() string {
	var out bytes.Buffer
	for i, f := range p.Functions {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(f.String())
	}
	return out.String()
}

type FunctionDefinition struct {
	Name       string
	Parameters []string
	Body       []Statement
	// HasReturnValue records the optional '?' marker of the definition.
	HasReturnValue bool
}

func (fd *FunctionDefinition) String() string {
	var out bytes.Buffer
	out.WriteString("fn ")
	out.WriteString(fd.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(fd.Parameters, ", "))
	out.WriteString(")")
	if fd.HasReturnValue {
		out.WriteString(" ?")
	}
	out.WriteString(" ")
	writeBlock(&out, fd.Body, 0)
	out.WriteString("\n")
	return out.String()
}

func writeBlock(out *bytes.Buffer, body []Statement, depth int) {
	out.WriteString("{\n")
	indent := strings.Repeat("  ", depth+1)
	for _, s := range body {
		out.WriteString(indent)
		switch s := s.(type) {
		case *IfStatement:
			out.WriteString("if ")
			out.WriteString(s.Condition.String())
			out.WriteString(" ")
			writeBlock(out, s.Body, depth+1)
		case *WhileStatement:
			out.WriteString("while ")
			out.WriteString(s.Condition.String())
			out.WriteString(" ")
			writeBlock(out, s.Body, depth+1)
		default:
			out.WriteString(s.String())
		}
		out.WriteString("\n")
	}
	out.WriteString(strings.Repeat("  ", depth))
	out.WriteString("}")
}

func blockString(body []Statement) string {
	var out bytes.Buffer
	writeBlock(&out, body, 0)
	return out.String()
}

// Statements

type PrintStatement struct {
	Value   Expression // nil for print() / println()
	Newline bool
}

func (ps *PrintStatement) statementNode() {}
func (ps *PrintStatement) String() string {
	var out bytes.Buffer
	if ps.Newline {
		out.WriteString("println(")
	} else {
		out.WriteString("print(")
	}
	if ps.Value != nil {
		out.WriteString(ps.Value.String())
	}
	out.WriteString(")")
	return out.String()
}

// ReturnStatement is a bare return when ReturnValue is nil.
type ReturnStatement struct {
	ReturnValue Expression
}

func (rs *ReturnStatement) statementNode() {}
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue == nil {
		return "return"
	}
	return "return " + rs.ReturnValue.String()
}

type AssignmentStatement struct {
	Name   string
	Value  Expression
	Global bool
}

func (as *AssignmentStatement) statementNode() {}
func (as *AssignmentStatement) String() string {
	var out bytes.Buffer
	if as.Global {
		out.WriteString("global ")
	}
	out.WriteString(as.Name)
	out.WriteString(" = ")
	out.WriteString(as.Value.String())
	return out.String()
}

// ArrayDeclaration reserves Size contiguous slots. Elements is nil when no
// literal list was given, in which case every element starts at zero.
type ArrayDeclaration struct {
	Name     string
	Size     Expression
	Elements []Expression
	Global   bool
}

func (ad *ArrayDeclaration) statementNode() {}
func (ad *ArrayDeclaration) String() string {
	var out bytes.Buffer
	if ad.Global {
		out.WriteString("global ")
	} else {
		out.WriteString("let ")
	}
	out.WriteString(ad.Name)
	out.WriteString("[")
	if ad.Size != nil {
		out.WriteString(ad.Size.String())
	}
	out.WriteString("]")
	if ad.Elements != nil {
		out.WriteString(" = [")
		out.WriteString(joinExpressions(ad.Elements))
		out.WriteString("]")
	}
	return out.String()
}

type IndexAssignment struct {
	Name  string
	Index Expression
	Value Expression
}

func (ia *IndexAssignment) statementNode() {}
func (ia *IndexAssignment) String() string {
	return ia.Name + "[" + ia.Index.String() + "] = " + ia.Value.String()
}

type IfStatement struct {
	Condition Expression
	Body      []Statement
}

func (is *IfStatement) statementNode() {}
func (is *IfStatement) String() string {
	return "if " + is.Condition.String() + " " + blockString(is.Body)
}

type WhileStatement struct {
	Condition Expression
	Body      []Statement
}

func (ws *WhileStatement) statementNode() {}
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + blockString(ws.Body)
}

// CallStatement is a function call whose value is discarded.
type CallStatement struct {
	Call *CallExpression
}

func (cs *CallStatement) statementNode() {}
func (cs *CallStatement) String() string { return cs.Call.String() }

// Expressions

type Identifier struct {
	Value string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Value }

type IntegerLiteral struct {
	Value uint32
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) String() string  { return strconv.FormatUint(uint64(il.Value), 10) }

type StringLiteral struct {
	Value string
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) String() string  { return strconv.Quote(sl.Value) }

type Boolean struct {
	Value bool
}

func (b *Boolean) expressionNode() {}
func (b *Boolean) String() string  { return strconv.FormatBool(b.Value) }

type IndexExpression struct {
	Name  string
	Index Expression
}

func (ie *IndexExpression) expressionNode() {}
func (ie *IndexExpression) String() string  { return ie.Name + "[" + ie.Index.String() + "]" }

type InfixExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (ie *InfixExpression) expressionNode() {}
func (ie *InfixExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + string(ie.Operator) + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")
	return out.String()
}

type CallExpression struct {
	Function  string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode() {}
func (ce *CallExpression) String() string {
	return ce.Function + "(" + joinExpressions(ce.Arguments) + ")"
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// Operator is a binary operator.
type Operator string

const (
	Plus           Operator = "+"
	Minus          Operator = "-"
	Multiply       Operator = "*"
	Divide         Operator = "/"
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
	Greater        Operator = ">"
	GreaterOrEqual Operator = ">="
	Equal          Operator = "=="
	NotEqual       Operator = "!="
	Or             Operator = "||"
	And            Operator = "&&"
)

var operators = map[Operator]bool{
	Plus: true, Minus: true, Multiply: true, Divide: true,
	Less: true, LessOrEqual: true, Greater: true, GreaterOrEqual: true,
	Equal: true, NotEqual: true, Or: true, And: true,
}

// Valid reports whether op is one of the closed set of binary operators.
func (op Operator) Valid() bool {
	return operators[op]
}
