package checker

import (
	"github.com/mypl-lang/mypl/ast"
	"github.com/mypl-lang/mypl/token"
)

var nullType = ast.DataType{IsArray: false, TypeName: "void"}

func isBaseScalar(name string) bool {
	switch name {
	case "int", "double", "bool", "char", "string":
		return true
	}
	return false
}

// builtinNames is the reserved set of built-in function names; user
// programs may not redefine any of them.
var builtinNames = map[string]bool{
	"print": true, "concat": true, "to_string": true, "to_int": true,
	"to_double": true, "input": true, "get": true, "length": true,
}

// checkBuiltinCall validates arity and argument types for a call to a
// built-in and returns its result type. argTypes has already been
// type-checked by the caller.
func (c *Checker) checkBuiltinCall(tok token.Token, argTypes []ast.DataType) (ast.DataType, error) {
	name := tok.Lexeme
	arity := func(n int) error {
		if len(argTypes) != n {
			return c.errf(tok, "built-in %s expects %d argument(s), got %d", name, n, len(argTypes))
		}
		return nil
	}

	switch name {
	case "print":
		if err := arity(1); err != nil {
			return ast.DataType{}, err
		}
		t := argTypes[0]
		if t.IsArray || !isBaseScalar(t.TypeName) {
			return ast.DataType{}, c.errf(tok, "print expects a non-array base scalar, got %s", t)
		}
		return ast.DataType{TypeName: "void"}, nil

	case "concat":
		if err := arity(2); err != nil {
			return ast.DataType{}, err
		}
		for _, t := range argTypes {
			if t.IsArray || t.TypeName != "string" {
				return ast.DataType{}, c.errf(tok, "concat expects two strings")
			}
		}
		return ast.DataType{TypeName: "string"}, nil

	case "to_string":
		if err := arity(1); err != nil {
			return ast.DataType{}, err
		}
		t := argTypes[0]
		if t.IsArray || t.TypeName == "bool" || t.TypeName == "void" {
			return ast.DataType{}, c.errf(tok, "to_string does not accept %s", t)
		}
		return ast.DataType{TypeName: "string"}, nil

	case "to_int":
		if err := arity(1); err != nil {
			return ast.DataType{}, err
		}
		t := argTypes[0]
		if t.IsArray || (t.TypeName != "string" && t.TypeName != "double") {
			return ast.DataType{}, c.errf(tok, "to_int accepts string or double, got %s", t)
		}
		return ast.DataType{TypeName: "int"}, nil

	case "to_double":
		if err := arity(1); err != nil {
			return ast.DataType{}, err
		}
		t := argTypes[0]
		if t.IsArray || (t.TypeName != "string" && t.TypeName != "int") {
			return ast.DataType{}, c.errf(tok, "to_double accepts string or int, got %s", t)
		}
		return ast.DataType{TypeName: "double"}, nil

	case "input":
		if err := arity(0); err != nil {
			return ast.DataType{}, err
		}
		return ast.DataType{TypeName: "string"}, nil

	case "get":
		if err := arity(2); err != nil {
			return ast.DataType{}, err
		}
		if argTypes[0].IsArray || argTypes[0].TypeName != "int" {
			return ast.DataType{}, c.errf(tok, "get expects (int, string)")
		}
		if argTypes[1].IsArray || argTypes[1].TypeName != "string" {
			return ast.DataType{}, c.errf(tok, "get expects (int, string)")
		}
		return ast.DataType{TypeName: "char"}, nil

	case "length":
		if err := arity(1); err != nil {
			return ast.DataType{}, err
		}
		t := argTypes[0]
		if !t.IsArray && t.TypeName != "string" {
			return ast.DataType{}, c.errf(tok, "length expects a string or an array")
		}
		return ast.DataType{TypeName: "int"}, nil

	default:
		return ast.DataType{}, c.errf(tok, "unknown built-in %s", name)
	}
}
