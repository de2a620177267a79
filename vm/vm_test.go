package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/checker"
	"github.com/mypl-lang/mypl/codegen"
	"github.com/mypl-lang/mypl/parser"
	"github.com/mypl-lang/mypl/vm"
)

func runSrc(t *testing.T, src, stdin string) (string, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, checker.Check(prog))
	compiled, err := codegen.Generate(prog)
	require.NoError(t, err)
	machine := vm.New(compiled)
	var out bytes.Buffer
	machine.SetIO(strings.NewReader(stdin), &out)
	err = machine.Run()
	return out.String(), err
}

func TestArithmeticIdentityOnInts(t *testing.T) {
	out, err := runSrc(t, `void main() { print(to_string(2 + 3 * 4)) }`, "")
	require.NoError(t, err)
	require.Equal(t, "14", out)
}

func TestArithmeticOnDoublesKeepsFraction(t *testing.T) {
	out, err := runSrc(t, `void main() { print(to_string(1.0 + 2.0)) }`, "")
	require.NoError(t, err)
	require.Equal(t, "3.0", out)
}

func TestStructFieldIsNullBeforeAssignment(t *testing.T) {
	src := `
	struct Point { int x }
	void main() {
		Point p = new Point
		if (p.x == null) {
			print("was null")
		}
	}`
	out, err := runSrc(t, src, "")
	require.NoError(t, err)
	require.Equal(t, "was null", out)
}

func TestNewArrayHasRequestedLength(t *testing.T) {
	out, err := runSrc(t, `void main() {
		array int xs = new int[7]
		print(to_string(length(xs)))
	}`, "")
	require.NoError(t, err)
	require.Equal(t, "7", out)
}

func TestRecursiveFunctionCall(t *testing.T) {
	src := `
	int fact(int n) {
		if (n < 2) { return 1 }
		return n * fact(n - 1)
	}
	void main() { print(to_string(fact(5))) }`
	out, err := runSrc(t, src, "")
	require.NoError(t, err)
	require.Equal(t, "120", out)
}

func TestCallArgumentOrderingIsPreservedAcrossMultipleParams(t *testing.T) {
	src := `
	string join3(string a, string b, string c) {
		return concat(concat(a, b), c)
	}
	void main() { print(join3("a", "b", "c")) }`
	out, err := runSrc(t, src, "")
	require.NoError(t, err)
	require.Equal(t, "abc", out)
}

func TestNullReferenceOnFieldAccessIsVMError(t *testing.T) {
	src := `
	struct Point { int x }
	void main() {
		Point p = null
		print(to_string(p.x))
	}`
	_, err := runSrc(t, src, "")
	require.Error(t, err)
}

func TestDivisionByZeroIsVMError(t *testing.T) {
	_, err := runSrc(t, `void main() { int x = 1 / 0 }`, "")
	require.Error(t, err)
}

func TestWhileLoopAccumulates(t *testing.T) {
	src := `void main() {
		int i = 0
		int total = 0
		while (i < 5) {
			total = total + i
			i = i + 1
		}
		print(to_string(total))
	}`
	out, err := runSrc(t, src, "")
	require.NoError(t, err)
	require.Equal(t, "10", out)
}

func TestReadConsumesALineFromStdin(t *testing.T) {
	out, err := runSrc(t, `void main() { print(input()) }`, "hello stdin\n")
	require.NoError(t, err)
	require.Equal(t, "hello stdin", out)
}
