// Package cliutil renders diagnostics and single opcode names with color
// when the destination writer is a terminal, following the pattern established by
// sam-decook-lox's test harness (fatih/color gated by a terminal check).
package cliutil

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	opcodeColor = color.New(color.FgCyan)
)

// IsTerminal reports whether w is a terminal file descriptor; color is
// suppressed for redirected/piped output.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Diagnostic renders a fatal error line, in red when w is a terminal.
func Diagnostic(w io.Writer, err error) {
	if IsTerminal(w) {
		errorColor.Fprintln(w, err.Error())
		return
	}
	io.WriteString(w, err.Error()+"\n")
}

// Opcode renders a single --ir opcode name, in cyan when w is a terminal.
func Opcode(w io.Writer, name string) {
	if IsTerminal(w) {
		opcodeColor.Fprint(w, name)
		return
	}
	io.WriteString(w, name)
}
