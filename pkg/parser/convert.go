package parser

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"koala/pkg/ast"
	"koala/pkg/token"
)

type converter struct {
	errors []string
}

func (c *converter) errorf(pos lexer.Position, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.errors = append(c.errors, fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg))
}

func (c *converter) checkName(pos lexer.Position, name string) {
	if token.IsKeyword(name) {
		c.errorf(pos, "%q is a keyword and cannot be used as a name", name)
	}
}

func (c *converter) program(p *program) *ast.Program {
	out := &ast.Program{}
	for _, f := range p.Functions {
		c.checkName(f.Pos, f.Name)
		for _, param := range f.Params {
			c.checkName(f.Pos, param)
		}
		out.Functions = append(out.Functions, &ast.FunctionDefinition{
			Name:           f.Name,
			Parameters:     f.Params,
			Body:           c.block(f.Body),
			HasReturnValue: f.Returns,
		})
	}
	return out
}

func (c *converter) block(stmts []*statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		if stmt := c.statement(s); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) statement(s *statement) ast.Statement {
	switch {
	case s.Print != nil:
		return &ast.PrintStatement{
			Value:   c.optionalExpression(s.Print.Value),
			Newline: s.Print.Kind == token.PRINTLN,
		}
	case s.If != nil:
		return &ast.IfStatement{
			Condition: c.expression(s.If.Cond),
			Body:      c.block(s.If.Body),
		}
	case s.While != nil:
		return &ast.WhileStatement{
			Condition: c.expression(s.While.Cond),
			Body:      c.block(s.While.Body),
		}
	case s.Return != nil:
		return &ast.ReturnStatement{ReturnValue: c.optionalExpression(s.Return.Value)}
	case s.Global != nil:
		return c.target(s.Global, false, true)
	case s.Local != nil:
		return c.target(s.Local.Target, s.Local.Let, false)
	}
	c.errorf(s.Pos, "empty statement")
	return nil
}

func (c *converter) target(t *target, let, global bool) ast.Statement {
	c.checkName(t.Pos, t.Name)

	switch {
	case t.Call != nil:
		if let || global {
			c.errorf(t.Pos, "call to %s cannot be declared", t.Name)
			return nil
		}
		return &ast.CallStatement{Call: &ast.CallExpression{
			Function:  t.Name,
			Arguments: c.expressions(t.Call.Args),
		}}

	case t.Index != nil:
		init := t.Index.Init
		if init == nil || init.Elements != nil {
			decl := &ast.ArrayDeclaration{
				Name:   t.Name,
				Size:   c.optionalExpression(t.Index.Index),
				Global: global,
			}
			if init != nil {
				decl.Elements = c.expressions(init.Elements.Items)
			}
			return decl
		}
		if let || global {
			c.errorf(t.Pos, "element assignment to %s cannot be declared", t.Name)
			return nil
		}
		if t.Index.Index == nil {
			c.errorf(t.Pos, "element assignment to %s needs an index", t.Name)
			return nil
		}
		return &ast.IndexAssignment{
			Name:  t.Name,
			Index: c.expression(t.Index.Index),
			Value: c.expression(init.Value),
		}

	default:
		return &ast.AssignmentStatement{
			Name:   t.Name,
			Value:  c.expression(t.Value),
			Global: global,
		}
	}
}

func (c *converter) expressions(exprs []*expr) []ast.Expression {
	out := make([]ast.Expression, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, c.expression(e))
	}
	return out
}

func (c *converter) optionalExpression(e *expr) ast.Expression {
	if e == nil {
		return nil
	}
	return c.expression(e)
}

func (c *converter) expression(e *expr) ast.Expression {
	left := c.and(e.Left)
	for _, t := range e.Rest {
		left = infix(left, t.Op, c.and(t.Right))
	}
	return left
}

func (c *converter) and(e *andExpr) ast.Expression {
	left := c.comparison(e.Left)
	for _, t := range e.Rest {
		left = infix(left, t.Op, c.comparison(t.Right))
	}
	return left
}

func (c *converter) comparison(e *cmpExpr) ast.Expression {
	left := c.additive(e.Left)
	for _, t := range e.Rest {
		left = infix(left, t.Op, c.additive(t.Right))
	}
	return left
}

func (c *converter) additive(e *addExpr) ast.Expression {
	left := c.multiplicative(e.Left)
	for _, t := range e.Rest {
		left = infix(left, t.Op, c.multiplicative(t.Right))
	}
	return left
}

func (c *converter) multiplicative(e *mulExpr) ast.Expression {
	left := c.primary(e.Left)
	for _, t := range e.Rest {
		left = infix(left, t.Op, c.primary(t.Right))
	}
	return left
}

func infix(left ast.Expression, op string, right ast.Expression) ast.Expression {
	return &ast.InfixExpression{Left: left, Operator: ast.Operator(op), Right: right}
}

func (c *converter) primary(p *primary) ast.Expression {
	switch {
	case p.Sub != nil:
		return c.expression(p.Sub)
	case p.Bool != nil:
		return &ast.Boolean{Value: *p.Bool == token.TRUE}
	case p.Str != nil:
		return &ast.StringLiteral{Value: *p.Str}
	case p.Int != nil:
		value, err := strconv.ParseUint(*p.Int, 10, 32)
		if err != nil {
			c.errorf(p.Pos, "integer literal %s does not fit in 32 bits", *p.Int)
		}
		return &ast.IntegerLiteral{Value: uint32(value)}
	case p.Ref != nil:
		c.checkName(p.Pos, p.Ref.Name)
		switch {
		case p.Ref.Call != nil:
			return &ast.CallExpression{
				Function:  p.Ref.Name,
				Arguments: c.expressions(p.Ref.Call.Args),
			}
		case p.Ref.Index != nil:
			return &ast.IndexExpression{Name: p.Ref.Name, Index: c.expression(p.Ref.Index)}
		default:
			return &ast.Identifier{Value: p.Ref.Name}
		}
	}
	c.errorf(p.Pos, "empty expression")
	return &ast.IntegerLiteral{}
}
