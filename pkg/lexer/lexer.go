package lexer

import (
	"fmt"
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"

	"koala/pkg/token"
)

// Definition is the Koala lexer. Rules are tried in order, so comments win
// over the '/' operator and multi-character operators over their prefixes.
var Definition = plexer.MustSimple([]plexer.SimpleRule{
	{Name: string(token.COMMENT), Pattern: `//[^\n]*`},
	{Name: string(token.WHITESPACE), Pattern: `\s+`},
	{Name: string(token.STRING), Pattern: `"[^"]*"`},
	{Name: string(token.INT), Pattern: `[0-9]+`},
	{Name: string(token.IDENT), Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: string(token.OPERATOR), Pattern: `\|\||&&|<=|>=|==|!=|[-+*/<>=]`},
	{Name: string(token.PUNCT), Pattern: `[(){}\[\],?;]`},
})

// Tokenize lexes input into tokens, dropping whitespace and comments.
// The final token is always EOF.
func Tokenize(filename, input string) ([]token.Token, error) {
	lex, err := Definition.Lex(filename, strings.NewReader(input))
	if err != nil {
		return nil, err
	}

	names := make(map[plexer.TokenType]token.TokenType)
	for name, tt := range Definition.Symbols() {
		names[tt] = token.TokenType(name)
	}

	var tokens []token.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return tokens, fmt.Errorf("lex: %w", err)
		}
		if tok.EOF() {
			tokens = append(tokens, token.Token{
				Type:   token.EOF,
				Line:   tok.Pos.Line,
				Column: tok.Pos.Column,
			})
			return tokens, nil
		}

		kind := names[tok.Type]
		if kind == token.WHITESPACE || kind == token.COMMENT {
			continue
		}
		tokens = append(tokens, token.Token{
			Type:    kind,
			Literal: tok.Value,
			Line:    tok.Pos.Line,
			Column:  tok.Pos.Column,
		})
	}
}
