package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/ast"
)

func TestParseEmptyStructAndMain(t *testing.T) {
	prog, err := Parse(`struct S {} void main(){}`)
	require.NoError(t, err)
	require.Len(t, prog.StructDefs, 1)
	require.Empty(t, prog.StructDefs[0].Fields)
	require.Len(t, prog.FunDefs, 1)
	require.Equal(t, "main", prog.FunDefs[0].Name.Lexeme)
}

func TestParseFunDefWithParamsAndReturn(t *testing.T) {
	prog, err := Parse(`int add(int a, int b) { return a + b }`)
	require.NoError(t, err)
	fd := prog.FunDefs[0]
	require.Equal(t, "add", fd.Name.Lexeme)
	require.Equal(t, ast.DataType{TypeName: "int"}, fd.ReturnType)
	require.Len(t, fd.Params, 2)
	require.Len(t, fd.Body, 1)
	_, ok := fd.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
}

func TestParseArrayTypeAndIndex(t *testing.T) {
	prog, err := Parse(`void main() {
		array int xs = new int[3]
		xs[0] = 1
	}`)
	require.NoError(t, err)
	body := prog.FunDefs[0].Body
	decl := body[0].(*ast.VarDeclStmt)
	require.True(t, decl.VarDef.Type.IsArray)
	require.Equal(t, "int", decl.VarDef.Type.TypeName)
	assign := body[1].(*ast.AssignStmt)
	require.NotNil(t, assign.Path[0].ArrayIndex)
}

func TestParseIfElseifElse(t *testing.T) {
	src := `void main() {
		if (x < 1) { }
		elseif (x < 2) { }
		else { }
	}`
	prog, err := Parse(src)
	require.NoError(t, err)
	ifStmt := prog.FunDefs[0].Body[0].(*ast.IfStmt)
	require.Len(t, ifStmt.ElseIfs, 1)
	require.NotNil(t, ifStmt.ElseStmts)
}

func TestParseForLoop(t *testing.T) {
	src := `void main() { for (int i = 0; i < 10; i = i + 1) { } }`
	prog, err := Parse(src)
	require.NoError(t, err)
	forStmt := prog.FunDefs[0].Body[0].(*ast.ForStmt)
	require.Equal(t, "i", forStmt.VarDecl.VarDef.Name.Lexeme)
}

func TestParseMismatchedTokenIsParserError(t *testing.T) {
	_, err := Parse(`void main() { int x = }`)
	require.Error(t, err)
}

func TestParseCallArgs(t *testing.T) {
	prog, err := Parse(`void main() { print(concat("a", "b")) }`)
	require.NoError(t, err)
	stmt := prog.FunDefs[0].Body[0].(*ast.CallStmt)
	require.Equal(t, "print", stmt.Call.FunName.Lexeme)
	require.Len(t, stmt.Call.Args, 1)
}
