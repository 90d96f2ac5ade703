package ast

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the interchange encoding of a Program.
type Format int

const (
	JSON Format = iota
	CBOR
)

// node is the interchange form of every AST node. Kind discriminates the
// variant; only the fields that variant uses are populated.
type node struct {
	Kind string `json:"kind" cbor:"kind"`

	Name       string   `json:"name,omitempty" cbor:"name,omitempty"`
	Parameters []string `json:"parameters,omitempty" cbor:"parameters,omitempty"`
	Returns    bool     `json:"returns,omitempty" cbor:"returns,omitempty"`
	Global     bool     `json:"global,omitempty" cbor:"global,omitempty"`
	Newline    bool     `json:"newline,omitempty" cbor:"newline,omitempty"`

	Int      uint32 `json:"int,omitempty" cbor:"int,omitempty"`
	Bool     bool   `json:"bool,omitempty" cbor:"bool,omitempty"`
	Str      string `json:"str,omitempty" cbor:"str,omitempty"`
	Operator string `json:"op,omitempty" cbor:"op,omitempty"`

	Left  *node `json:"left,omitempty" cbor:"left,omitempty"`
	Right *node `json:"right,omitempty" cbor:"right,omitempty"`
	Value *node `json:"value,omitempty" cbor:"value,omitempty"`
	Index *node `json:"index,omitempty" cbor:"index,omitempty"`
	Size  *node `json:"size,omitempty" cbor:"size,omitempty"`

	// HasElements distinguishes an empty element list from an absent one.
	HasElements bool    `json:"hasElements,omitempty" cbor:"hasElements,omitempty"`
	Elements    []*node `json:"elements,omitempty" cbor:"elements,omitempty"`
	Arguments   []*node `json:"arguments,omitempty" cbor:"arguments,omitempty"`
	Body        []*node `json:"body,omitempty" cbor:"body,omitempty"`
	Functions   []*node `json:"functions,omitempty" cbor:"functions,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ast: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes a Program for interchange.
func Encode(p *Program, format Format) ([]byte, error) {
	doc := fromProgram(p)
	switch format {
	case JSON:
		return json.MarshalIndent(doc, "", "  ")
	case CBOR:
		return cborEncMode.Marshal(doc)
	default:
		return nil, fmt.Errorf("ast: unknown format %d", format)
	}
}

// Decode parses a Program previously produced by Encode (or by any other
// producer of the same document shape).
func Decode(data []byte, format Format) (*Program, error) {
	var doc node
	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(data, &doc)
	case CBOR:
		err = cbor.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("ast: unknown format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("ast: decode: %w", err)
	}
	return toProgram(&doc)
}

func fromProgram(p *Program) *node {
	doc := &node{Kind: "Program"}
	for _, f := range p.Functions {
		doc.Functions = append(doc.Functions, &node{
			Kind:       "FunctionDefinition",
			Name:       f.Name,
			Parameters: f.Parameters,
			Returns:    f.HasReturnValue,
			Body:       fromStatements(f.Body),
		})
	}
	return doc
}

func fromStatements(stmts []Statement) []*node {
	out := make([]*node, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, fromStatement(s))
	}
	return out
}

func fromStatement(s Statement) *node {
	switch s := s.(type) {
	case *PrintStatement:
		return &node{Kind: "Print", Value: fromExpression(s.Value), Newline: s.Newline}
	case *ReturnStatement:
		if s.ReturnValue == nil {
			return &node{Kind: "Return"}
		}
		return &node{Kind: "ReturnExpr", Value: fromExpression(s.ReturnValue)}
	case *AssignmentStatement:
		return &node{Kind: "VarAssign", Name: s.Name, Value: fromExpression(s.Value), Global: s.Global}
	case *ArrayDeclaration:
		n := &node{Kind: "ArrayDecl", Name: s.Name, Size: fromExpression(s.Size), Global: s.Global}
		if s.Elements != nil {
			n.HasElements = true
			n.Elements = fromExpressions(s.Elements)
		}
		return n
	case *IndexAssignment:
		return &node{Kind: "ArrayIndexAssign", Name: s.Name, Index: fromExpression(s.Index), Value: fromExpression(s.Value)}
	case *IfStatement:
		return &node{Kind: "If", Value: fromExpression(s.Condition), Body: fromStatements(s.Body)}
	case *WhileStatement:
		return &node{Kind: "While", Value: fromExpression(s.Condition), Body: fromStatements(s.Body)}
	case *CallStatement:
		n := fromExpression(s.Call)
		n.Kind = "CallStatement"
		return n
	}
	return &node{Kind: fmt.Sprintf("%T", s)}
}

func fromExpressions(exprs []Expression) []*node {
	out := make([]*node, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, fromExpression(e))
	}
	return out
}

func fromExpression(e Expression) *node {
	switch e := e.(type) {
	case nil:
		return nil
	case *IntegerLiteral:
		return &node{Kind: "IntLit", Int: e.Value}
	case *Boolean:
		return &node{Kind: "BoolLit", Bool: e.Value}
	case *StringLiteral:
		return &node{Kind: "StringLit", Str: e.Value}
	case *Identifier:
		return &node{Kind: "Variable", Name: e.Value}
	case *IndexExpression:
		return &node{Kind: "ArrayIndex", Name: e.Name, Index: fromExpression(e.Index)}
	case *InfixExpression:
		return &node{Kind: "BinExpr", Left: fromExpression(e.Left), Operator: string(e.Operator), Right: fromExpression(e.Right)}
	case *CallExpression:
		return &node{Kind: "FunctionCall", Name: e.Function, Arguments: fromExpressions(e.Arguments)}
	}
	return &node{Kind: fmt.Sprintf("%T", e)}
}

func toProgram(doc *node) (*Program, error) {
	if doc.Kind != "Program" {
		return nil, fmt.Errorf("ast: expected Program, got %q", doc.Kind)
	}
	p := &Program{}
	for _, f := range doc.Functions {
		if f == nil || f.Kind != "FunctionDefinition" {
			return nil, fmt.Errorf("ast: expected FunctionDefinition in program")
		}
		body, err := toStatements(f.Body)
		if err != nil {
			return nil, fmt.Errorf("ast: function %s: %w", f.Name, err)
		}
		p.Functions = append(p.Functions, &FunctionDefinition{
			Name:           f.Name,
			Parameters:     f.Parameters,
			Body:           body,
			HasReturnValue: f.Returns,
		})
	}
	return p, nil
}

func toStatements(nodes []*node) ([]Statement, error) {
	out := make([]Statement, 0, len(nodes))
	for _, n := range nodes {
		s, err := toStatement(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toStatement(n *node) (Statement, error) {
	if n == nil {
		return nil, fmt.Errorf("missing statement")
	}

	switch n.Kind {
	case "Print":
		value, err := toOptionalExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &PrintStatement{Value: value, Newline: n.Newline}, nil
	case "Return":
		return &ReturnStatement{}, nil
	case "ReturnExpr":
		value, err := toExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{ReturnValue: value}, nil
	case "VarAssign":
		value, err := toExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &AssignmentStatement{Name: n.Name, Value: value, Global: n.Global}, nil
	case "ArrayDecl":
		size, err := toOptionalExpression(n.Size)
		if err != nil {
			return nil, err
		}
		decl := &ArrayDeclaration{Name: n.Name, Size: size, Global: n.Global}
		if n.HasElements {
			decl.Elements, err = toExpressions(n.Elements)
			if err != nil {
				return nil, err
			}
		}
		return decl, nil
	case "ArrayIndexAssign":
		index, err := toExpression(n.Index)
		if err != nil {
			return nil, err
		}
		value, err := toExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &IndexAssignment{Name: n.Name, Index: index, Value: value}, nil
	case "If", "While":
		cond, err := toExpression(n.Value)
		if err != nil {
			return nil, err
		}
		body, err := toStatements(n.Body)
		if err != nil {
			return nil, err
		}
		if n.Kind == "If" {
			return &IfStatement{Condition: cond, Body: body}, nil
		}
		return &WhileStatement{Condition: cond, Body: body}, nil
	case "CallStatement":
		args, err := toExpressions(n.Arguments)
		if err != nil {
			return nil, err
		}
		return &CallStatement{Call: &CallExpression{Function: n.Name, Arguments: args}}, nil
	}

	return nil, fmt.Errorf("unknown statement kind %q", n.Kind)
}

func toExpressions(nodes []*node) ([]Expression, error) {
	out := make([]Expression, 0, len(nodes))
	for _, n := range nodes {
		e, err := toExpression(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toOptionalExpression(n *node) (Expression, error) {
	if n == nil {
		return nil, nil
	}
	return toExpression(n)
}

func toExpression(n *node) (Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}

	switch n.Kind {
	case "IntLit":
		return &IntegerLiteral{Value: n.Int}, nil
	case "BoolLit":
		return &Boolean{Value: n.Bool}, nil
	case "StringLit":
		return &StringLiteral{Value: n.Str}, nil
	case "Variable":
		return &Identifier{Value: n.Name}, nil
	case "ArrayIndex":
		index, err := toExpression(n.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpression{Name: n.Name, Index: index}, nil
	case "BinExpr":
		op := Operator(n.Operator)
		if !op.Valid() {
			return nil, fmt.Errorf("unknown operator %q", n.Operator)
		}
		left, err := toExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := toExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return &InfixExpression{Left: left, Operator: op, Right: right}, nil
	case "FunctionCall":
		args, err := toExpressions(n.Arguments)
		if err != nil {
			return nil, err
		}
		return &CallExpression{Function: n.Name, Arguments: args}, nil
	}

	return nil, fmt.Errorf("unknown expression kind %q", n.Kind)
}
