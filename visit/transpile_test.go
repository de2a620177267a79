package visit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/checker"
	"github.com/mypl-lang/mypl/parser"
)

func TestTranspileProducesGoFunctionsAndStructs(t *testing.T) {
	src := `
	struct Point { int x, int y }
	int add(int a, int b) { return a + b }
	void main() { print(to_string(add(1, 2))) }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, checker.Check(prog))

	out := Transpile(prog, "main")
	require.Contains(t, out, "package main")
	require.Contains(t, out, "type Point struct")
	require.Contains(t, out, "func add(a int64, b int64) int64 {")
	require.Contains(t, out, "func Main() {")
}
