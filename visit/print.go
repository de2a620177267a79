// Package visit holds read-only tree walks over ast.Program: a
// pretty-printer (print.go) that recovers MyPL source text, and a Go
// transpiler (transpile.go). Neither mutates the tree.
package visit

import (
	"fmt"
	"strings"

	"github.com/mypl-lang/mypl/ast"
	"github.com/mypl-lang/mypl/token"
)

// Print renders prog back into MyPL source text. It does not reproduce
// the original formatting, only a canonical equivalent one: re-parsing
// the output must yield an AST equal to prog, not identical bytes.
func Print(prog *ast.Program) string {
	p := &printer{}
	p.program(prog)
	return p.b.String()
}

type printer struct {
	b     strings.Builder
	depth int
}

func (p *printer) indent() string { return strings.Repeat("  ", p.depth) }

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(p.indent())
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) program(prog *ast.Program) {
	for _, sd := range prog.StructDefs {
		p.structDef(sd)
		p.b.WriteByte('\n')
	}
	for _, fd := range prog.FunDefs {
		p.funDef(fd)
		p.b.WriteByte('\n')
	}
}

func (p *printer) structDef(sd *ast.StructDef) {
	p.line("struct %s {", sd.Name.Lexeme)
	p.depth++
	for i, f := range sd.Fields {
		sep := ","
		if i == len(sd.Fields)-1 {
			sep = ""
		}
		p.line("%s %s%s", f.Type.String(), f.Name.Lexeme, sep)
	}
	p.depth--
	p.line("}")
}

func (p *printer) funDef(fd *ast.FunDef) {
	params := make([]string, len(fd.Params))
	for i, pr := range fd.Params {
		params[i] = pr.Type.String() + " " + pr.Name.Lexeme
	}
	p.line("%s %s(%s) {", fd.ReturnType.String(), fd.Name.Lexeme, strings.Join(params, ", "))
	p.depth++
	p.stmts(fd.Body)
	p.depth--
	p.line("}")
}

func (p *printer) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		p.stmt(s)
	}
}

func (p *printer) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		p.line("%s %s = %s", st.VarDef.Type.String(), st.VarDef.Name.Lexeme, p.expr(st.Init))
	case *ast.AssignStmt:
		p.line("%s = %s", p.path(st.Path), p.expr(st.Expr))
	case *ast.ReturnStmt:
		if st.Expr == nil {
			p.line("return")
		} else {
			p.line("return %s", p.expr(*st.Expr))
		}
	case *ast.IfStmt:
		p.line("if (%s) {", p.expr(st.IfPart.Cond))
		p.depth++
		p.stmts(st.IfPart.Body)
		p.depth--
		for _, ei := range st.ElseIfs {
			p.line("} elseif (%s) {", p.expr(ei.Cond))
			p.depth++
			p.stmts(ei.Body)
			p.depth--
		}
		if st.ElseStmts != nil {
			p.line("} else {")
			p.depth++
			p.stmts(st.ElseStmts)
			p.depth--
		}
		p.line("}")
	case *ast.WhileStmt:
		p.line("while (%s) {", p.expr(st.Cond))
		p.depth++
		p.stmts(st.Body)
		p.depth--
		p.line("}")
	case *ast.ForStmt:
		p.line("for (%s %s = %s; %s; %s = %s) {",
			st.VarDecl.VarDef.Type.String(), st.VarDecl.VarDef.Name.Lexeme, p.expr(st.VarDecl.Init),
			p.expr(st.Cond),
			p.path(st.StepAssign.Path), p.expr(st.StepAssign.Expr))
		p.depth++
		p.stmts(st.Body)
		p.depth--
		p.line("}")
	case *ast.CallStmt:
		p.line("%s", p.call(st.Call))
	}
}

func (p *printer) path(elems []ast.PathElem) string {
	var b strings.Builder
	for i, e := range elems {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.Name.Lexeme)
		if e.ArrayIndex != nil {
			fmt.Fprintf(&b, "[%s]", p.expr(*e.ArrayIndex))
		}
	}
	return b.String()
}

func (p *printer) expr(e ast.Expr) string {
	var b strings.Builder
	if e.Negated {
		b.WriteString("not ")
	}
	b.WriteString(p.term(e.First))
	if e.Op != nil && e.Rest != nil {
		fmt.Fprintf(&b, " %s %s", e.Op.Lexeme, p.expr(*e.Rest))
	}
	return b.String()
}

func (p *printer) term(t *ast.Term) string {
	if t.Complex != nil {
		return "(" + p.expr(*t.Complex) + ")"
	}
	return p.rvalue(t.Simple)
}

func (p *printer) rvalue(rv ast.RValue) string {
	switch v := rv.(type) {
	case *ast.SimpleRValue:
		switch v.Value.Kind {
		case token.STRING_VAL:
			return `"` + v.Value.Lexeme + `"`
		case token.CHAR_VAL:
			return "'" + v.Value.Lexeme + "'"
		}
		return v.Value.Lexeme
	case *ast.NewRValue:
		if v.ArrayExpr != nil {
			return fmt.Sprintf("new %s[%s]", v.TypeTok.Lexeme, p.expr(*v.ArrayExpr))
		}
		return "new " + v.TypeTok.Lexeme
	case *ast.VarRValue:
		return p.path(v.Path)
	case *ast.CallRValue:
		return p.call(v)
	}
	return ""
}

func (p *printer) call(c *ast.CallRValue) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = p.expr(a)
	}
	return fmt.Sprintf("%s(%s)", c.FunName.Lexeme, strings.Join(args, ", "))
}
