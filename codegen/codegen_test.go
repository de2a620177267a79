package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/checker"
	"github.com/mypl-lang/mypl/parser"
)

func generate(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, checker.Check(prog))
	out, err := Generate(prog)
	require.NoError(t, err)
	return out
}

func TestGenerateProducesOneFrameEach(t *testing.T) {
	out := generate(t, `
	int add(int a, int b) { return a + b }
	void main() { print(to_string(add(1, 2))) }`)
	require.NotNil(t, out.FrameByName("main"))
	require.NotNil(t, out.FrameByName("add"))
}

func TestReturnlessBodyGetsImplicitPushNullRet(t *testing.T) {
	out := generate(t, `void main() { }`)
	frame := out.FrameByName("main")
	require.GreaterOrEqual(t, len(frame.Instrs), 2)
	last := frame.Instrs[len(frame.Instrs)-1]
	require.Equal(t, RET, last.Op)
	secondToLast := frame.Instrs[len(frame.Instrs)-2]
	require.Equal(t, PUSH, secondToLast.Op)
	require.Equal(t, LitNull, secondToLast.Lit.Kind)
}

func TestLengthLowersDifferentlyForStringVsArray(t *testing.T) {
	out := generate(t, `void main() {
		array int xs = new int[3]
		int n = length(xs)
		int m = length("abc")
	}`)
	frame := out.FrameByName("main")
	var sawALEN, sawSLEN bool
	for _, instr := range frame.Instrs {
		if instr.Op == ALEN {
			sawALEN = true
		}
		if instr.Op == SLEN {
			sawSLEN = true
		}
	}
	require.True(t, sawALEN, "expected ALEN for array length")
	require.True(t, sawSLEN, "expected SLEN for string length")
}

func TestPrintCallStmtDoesNotEmitTrailingPop(t *testing.T) {
	out := generate(t, `void main() { print("hi") }`)
	frame := out.FrameByName("main")
	for i, instr := range frame.Instrs {
		if instr.Op == WRITE {
			require.Less(t, i+1, len(frame.Instrs))
			require.NotEqual(t, POP, frame.Instrs[i+1].Op)
		}
	}
}

func TestDumpFormat(t *testing.T) {
	out := generate(t, `void main() { print("hi") }`)
	dump := out.Dump()
	require.Contains(t, dump, "Frame 'main'")
	require.Contains(t, dump, "0: PUSH")
}
