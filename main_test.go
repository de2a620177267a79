package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/checker"
	"github.com/mypl-lang/mypl/parser"
	"github.com/mypl-lang/mypl/vm"
)

func readExample(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("examples/" + name)
	require.NoError(t, err)
	return string(b)
}

func TestExampleHelloPrintsGreeting(t *testing.T) {
	prog, err := compileToProgram(readExample(t, "hello.mypl"))
	require.NoError(t, err)
	machine := vm.New(prog)
	var out bytes.Buffer
	machine.SetIO(strings.NewReader(""), &out)
	require.NoError(t, machine.Run())
	require.Equal(t, "hello, world", out.String())
}

func TestExampleFibPrintsTenTerms(t *testing.T) {
	prog, err := compileToProgram(readExample(t, "fib.mypl"))
	require.NoError(t, err)
	machine := vm.New(prog)
	var out bytes.Buffer
	machine.SetIO(strings.NewReader(""), &out)
	require.NoError(t, machine.Run())
	require.Equal(t, "0112358132134", out.String())
}

func TestExampleArraysSumsSquaresAndAddsFields(t *testing.T) {
	prog, err := compileToProgram(readExample(t, "arrays.mypl"))
	require.NoError(t, err)
	machine := vm.New(prog)
	var out bytes.Buffer
	machine.SetIO(strings.NewReader(""), &out)
	require.NoError(t, machine.Run())
	require.Equal(t, "307", out.String())
}

func TestExampleFailNoMainIsRejectedByChecker(t *testing.T) {
	prog, err := parser.Parse(readExample(t, "fail_no_main.mypl"))
	require.NoError(t, err)
	require.Error(t, checker.Check(prog))
}

func TestExampleFailNullFieldIsVMError(t *testing.T) {
	prog, err := compileToProgram(readExample(t, "fail_null_field.mypl"))
	require.NoError(t, err)
	machine := vm.New(prog)
	var out bytes.Buffer
	machine.SetIO(strings.NewReader(""), &out)
	require.Error(t, machine.Run())
}

func TestExampleFailTypeMismatchIsRejectedByChecker(t *testing.T) {
	prog, err := parser.Parse(readExample(t, "fail_type_mismatch.mypl"))
	require.NoError(t, err)
	require.Error(t, checker.Check(prog))
}
