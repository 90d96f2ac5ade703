package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"koala/pkg/ast"
)

// LoadFile reads a program from path. Files ending in .json or .cbor are
// decoded as AST interchange documents; anything else is parsed as source.
func LoadFile(path string) (*ast.Program, error) {
	var format ast.Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = ast.JSON
	case ".cbor":
		format = ast.CBOR
	default:
		return ParseFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, err := ast.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}
