// Command mypl is the driver for the language: one subcommand per CLI
// mode (lex, parse, print, check, ir, java) plus the default
// compile-and-run path when no subcommand is given.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mypl-lang/mypl/checker"
	"github.com/mypl-lang/mypl/codegen"
	"github.com/mypl-lang/mypl/internal/cliutil"
	"github.com/mypl-lang/mypl/lexer"
	"github.com/mypl-lang/mypl/parser"
	"github.com/mypl-lang/mypl/token"
	"github.com/mypl-lang/mypl/visit"
	"github.com/mypl-lang/mypl/vm"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cliutil.Diagnostic(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mypl [script-file]",
		Short:         "Lex, parse, check, or run a MyPL program",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, args, modeRun)
		},
	}
	root.AddCommand(
		modeCmd("lex", "Print every token in the source", modeLex),
		modeCmd("parse", "Run syntax-only parsing", modeParse),
		modeCmd("print", "Pretty-print the parsed program", modePrint),
		modeCmd("check", "Run the semantic checker", modeCheck),
		modeCmd("ir", "Print generated VM frames", modeIR),
		modeCmd("java", "Transpile to Go source", modeJava),
	)
	return root
}

func modeCmd(use, short string, mode modeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, args, mode)
		},
	}
}

type modeFunc func(src string, w io.Writer) error

func runMode(cmd *cobra.Command, args []string, mode modeFunc) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	return mode(src, cmd.OutOrStdout())
}

func readSource(args []string) (string, error) {
	if len(args) == 0 {
		log.Debug("reading program from stdin")
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "reading stdin")
		}
		return string(b), nil
	}
	log.WithField("file", args[0]).Debug("reading program from file")
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", args[0])
	}
	return string(b), nil
}

func modeLex(src string, w io.Writer) error {
	lx := lexer.New(src)
	for {
		tok, err := lx.Next()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, tok.String())
		if tok.Kind == token.EOS {
			return nil
		}
	}
}

func modeParse(src string, w io.Writer) error {
	sp, err := parser.NewSyntaxParser(src)
	if err != nil {
		return err
	}
	if err := sp.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func modePrint(src string, w io.Writer) error {
	prog, err := parser.Parse(src)
	if err != nil {
		return err
	}
	fmt.Fprint(w, visit.Print(prog))
	return nil
}

func modeCheck(src string, w io.Writer) error {
	prog, err := parser.Parse(src)
	if err != nil {
		return err
	}
	if err := checker.Check(prog); err != nil {
		return err
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func modeIR(src string, w io.Writer) error {
	prog, err := compileToProgram(src)
	if err != nil {
		return err
	}
	fmt.Fprint(w, prog.Dump())
	return nil
}

func modeJava(src string, w io.Writer) error {
	prog, err := parser.Parse(src)
	if err != nil {
		return err
	}
	if err := checker.Check(prog); err != nil {
		return err
	}
	fmt.Fprint(w, visit.Transpile(prog, "main"))
	return nil
}

func modeRun(src string, w io.Writer) error {
	prog, err := compileToProgram(src)
	if err != nil {
		return err
	}
	machine := vm.New(prog)
	machine.SetIO(os.Stdin, w)
	return machine.Run()
}

func compileToProgram(src string) (*codegen.Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := checker.Check(prog); err != nil {
		return nil, err
	}
	return codegen.Generate(prog)
}
