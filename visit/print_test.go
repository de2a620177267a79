package visit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/parser"
)

func TestPrintThenReparseYieldsEquivalentAST(t *testing.T) {
	src := `
	struct Point { int x, int y }
	int add(int a, int b) {
		return a + b
	}
	void main() {
		Point p = new Point
		p.x = 1
		print(to_string(add(p.x, 2)))
	}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	printed := Print(prog)
	reparsed, err := parser.Parse(printed)
	require.NoError(t, err)

	require.Equal(t, len(prog.StructDefs), len(reparsed.StructDefs))
	require.Equal(t, len(prog.FunDefs), len(reparsed.FunDefs))
	require.Equal(t, prog.FunDefs[1].Name.Lexeme, reparsed.FunDefs[1].Name.Lexeme)
	require.Equal(t, len(prog.FunDefs[1].Body), len(reparsed.FunDefs[1].Body))
}

func TestPrintEmptyStructAndMain(t *testing.T) {
	prog, err := parser.Parse(`struct S {} void main(){}`)
	require.NoError(t, err)
	printed := Print(prog)
	require.Contains(t, printed, "struct S {")
	require.Contains(t, printed, "void main() {")
	_, err = parser.Parse(printed)
	require.NoError(t, err)
}
