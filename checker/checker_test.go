package checker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/parser"
)

func checkSrc(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return Check(prog)
}

func TestMissingMainIsRejected(t *testing.T) {
	err := checkSrc(t, `int add(int a, int b) { return a + b }`)
	require.Error(t, err)
}

func TestDuplicateLocalInSameBlockRejected(t *testing.T) {
	err := checkSrc(t, `void main() { int x = 1 int x = 2 }`)
	require.Error(t, err)
}

func TestShadowingAcrossBlocksAccepted(t *testing.T) {
	err := checkSrc(t, `void main() {
		int x = 1
		if (x == 1) {
			int x = 2
			print(to_string(x))
		}
	}`)
	require.NoError(t, err)
}

func TestArithmeticTypeMismatchRejected(t *testing.T) {
	err := checkSrc(t, `void main() { int x = 1 + "a" }`)
	require.Error(t, err)
}

func TestArithmeticOnMatchingIntsAccepted(t *testing.T) {
	err := checkSrc(t, `void main() { int x = 1 + 2 * 3 print(to_string(x)) }`)
	require.NoError(t, err)
}

func TestStructFieldAccessChecked(t *testing.T) {
	err := checkSrc(t, `
	struct Point { int x, int y }
	void main() {
		Point p = new Point
		p.x = 1
		print(to_string(p.x))
	}`)
	require.NoError(t, err)
}

func TestUndeclaredStructTypeRejected(t *testing.T) {
	err := checkSrc(t, `void main() { Missing m = new Missing }`)
	require.Error(t, err)
}

func TestNullAssignableToStructOrArray(t *testing.T) {
	err := checkSrc(t, `
	struct Point { int x }
	void main() { Point p = null }`)
	require.NoError(t, err)
}

func TestPrintRejectsArrayArgument(t *testing.T) {
	err := checkSrc(t, `void main() { array int xs = new int[1] print(xs) }`)
	require.Error(t, err)
}

func TestLengthAcceptsStringOrArray(t *testing.T) {
	err := checkSrc(t, `void main() {
		array int xs = new int[1]
		print(to_string(length(xs)))
		print(to_string(length("hi")))
	}`)
	require.NoError(t, err)
}
