package visit

import (
	"fmt"
	"strings"

	"github.com/mypl-lang/mypl/ast"
)

// Transpile lowers prog to a standalone Go source file. It targets Go
// rather than the original tool's Java output: the transpiler itself is
// explicitly out of scope for this project, and emitting Go keeps a
// visitor over the same AST shape without pulling in a second language
// toolchain for what's otherwise an unexercised code path.
func Transpile(prog *ast.Program, pkg string) string {
	t := &transpiler{}
	t.line("package %s", pkg)
	t.b.WriteByte('\n')
	t.line(`import "fmt"`)
	t.b.WriteByte('\n')
	for _, sd := range prog.StructDefs {
		t.structDef(sd)
		t.b.WriteByte('\n')
	}
	for _, fd := range prog.FunDefs {
		t.funDef(fd)
		t.b.WriteByte('\n')
	}
	return t.b.String()
}

type transpiler struct {
	b     strings.Builder
	depth int
}

func (t *transpiler) indent() string { return strings.Repeat("\t", t.depth) }

func (t *transpiler) line(format string, args ...any) {
	t.b.WriteString(t.indent())
	fmt.Fprintf(&t.b, format, args...)
	t.b.WriteByte('\n')
}

func goType(d ast.DataType) string {
	base := map[string]string{
		"int": "int64", "double": "float64", "bool": "bool",
		"string": "string", "void": "",
	}
	name, ok := base[d.TypeName]
	if !ok {
		name = "*" + d.TypeName
	}
	if d.IsArray {
		return "[]" + name
	}
	return name
}

func (t *transpiler) structDef(sd *ast.StructDef) {
	t.line("type %s struct {", sd.Name.Lexeme)
	t.depth++
	for _, f := range sd.Fields {
		t.line("%s %s", exportName(f.Name.Lexeme), goType(f.Type))
	}
	t.depth--
	t.line("}")
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (t *transpiler) funDef(fd *ast.FunDef) {
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = p.Name.Lexeme + " " + goType(p.Type)
	}
	ret := goType(fd.ReturnType)
	name := fd.Name.Lexeme
	if name == "main" {
		name = "Main"
	}
	if ret == "" {
		t.line("func %s(%s) {", name, strings.Join(params, ", "))
	} else {
		t.line("func %s(%s) %s {", name, strings.Join(params, ", "), ret)
	}
	t.depth++
	t.stmts(fd.Body)
	t.depth--
	t.line("}")
}

func (t *transpiler) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		t.stmt(s)
	}
}

func (t *transpiler) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		t.line("var %s %s = %s", st.VarDef.Name.Lexeme, goType(st.VarDef.Type), t.expr(st.Init))
	case *ast.AssignStmt:
		t.line("%s = %s", t.path(st.Path), t.expr(st.Expr))
	case *ast.ReturnStmt:
		if st.Expr == nil {
			t.line("return")
		} else {
			t.line("return %s", t.expr(*st.Expr))
		}
	case *ast.IfStmt:
		t.line("if %s {", t.expr(st.IfPart.Cond))
		t.depth++
		t.stmts(st.IfPart.Body)
		t.depth--
		for _, ei := range st.ElseIfs {
			t.line("} else if %s {", t.expr(ei.Cond))
			t.depth++
			t.stmts(ei.Body)
			t.depth--
		}
		if st.ElseStmts != nil {
			t.line("} else {")
			t.depth++
			t.stmts(st.ElseStmts)
			t.depth--
		}
		t.line("}")
	case *ast.WhileStmt:
		t.line("for %s {", t.expr(st.Cond))
		t.depth++
		t.stmts(st.Body)
		t.depth--
		t.line("}")
	case *ast.ForStmt:
		t.line("for %s := %s; %s; %s = %s {",
			st.VarDecl.VarDef.Name.Lexeme, t.expr(st.VarDecl.Init),
			t.expr(st.Cond),
			t.path(st.StepAssign.Path), t.expr(st.StepAssign.Expr))
		t.depth++
		t.stmts(st.Body)
		t.depth--
		t.line("}")
	case *ast.CallStmt:
		t.line("%s", t.call(st.Call))
	}
}

func (t *transpiler) path(elems []ast.PathElem) string {
	var b strings.Builder
	for i, e := range elems {
		if i > 0 {
			b.WriteByte('.')
		}
		if i < len(elems)-1 {
			b.WriteString(exportName(e.Name.Lexeme))
		} else {
			b.WriteString(e.Name.Lexeme)
		}
		if e.ArrayIndex != nil {
			fmt.Fprintf(&b, "[%s]", t.expr(*e.ArrayIndex))
		}
	}
	return b.String()
}

var opTranslation = map[string]string{
	"and": "&&", "or": "||",
}

func (t *transpiler) expr(e ast.Expr) string {
	var b strings.Builder
	if e.Negated {
		b.WriteString("!")
	}
	b.WriteString(t.term(e.First))
	if e.Op != nil && e.Rest != nil {
		op := e.Op.Lexeme
		if mapped, ok := opTranslation[op]; ok {
			op = mapped
		}
		fmt.Fprintf(&b, " %s %s", op, t.expr(*e.Rest))
	}
	return b.String()
}

func (t *transpiler) term(term *ast.Term) string {
	if term.Complex != nil {
		return "(" + t.expr(*term.Complex) + ")"
	}
	return t.rvalue(term.Simple)
}

func (t *transpiler) rvalue(rv ast.RValue) string {
	switch v := rv.(type) {
	case *ast.SimpleRValue:
		return v.Value.Lexeme
	case *ast.NewRValue:
		if v.ArrayExpr != nil {
			return fmt.Sprintf("make([]%s, %s)", v.TypeTok.Lexeme, t.expr(*v.ArrayExpr))
		}
		return fmt.Sprintf("&%s{}", v.TypeTok.Lexeme)
	case *ast.VarRValue:
		return t.path(v.Path)
	case *ast.CallRValue:
		return t.call(v)
	}
	return ""
}

var builtinTranslation = map[string]string{
	"print": "fmt.Print",
}

func (t *transpiler) call(c *ast.CallRValue) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = t.expr(a)
	}
	name := c.FunName.Lexeme
	if mapped, ok := builtinTranslation[name]; ok {
		name = mapped
	} else if name == "main" {
		name = "Main"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}
