// Package checker implements a two-pass semantic checker:
// pass one registers struct and function signatures, pass two walks every
// function body inferring and validating expression types.
package checker

import (
	"fmt"

	"github.com/mypl-lang/mypl/ast"
	"github.com/mypl-lang/mypl/internal/diag"
	"github.com/mypl-lang/mypl/token"
)

// Checker carries the struct/function tables built in pass one and the
// scope stack used during pass two.
type Checker struct {
	structs     map[string][]ast.VarDef
	structOrder []string
	funcs       map[string]*ast.FunDef
	currFun     *ast.FunDef
}

func New() *Checker {
	return &Checker{
		structs: map[string][]ast.VarDef{},
		funcs:   map[string]*ast.FunDef{},
	}
}

func (c *Checker) errf(tok token.Token, format string, args ...any) error {
	return diag.NewStaticError(tok.Line, tok.Column, format, args...)
}

// Check runs both passes and returns the first violation found, if any.
func Check(prog *ast.Program) error {
	return New().check(prog)
}

func (c *Checker) check(prog *ast.Program) error {
	if err := c.registerDecls(prog); err != nil {
		return err
	}
	for _, fd := range prog.FunDefs {
		if err := c.checkFunDef(fd); err != nil {
			return err
		}
	}
	return nil
}

// ---- Pass 1: registration ----

func (c *Checker) registerDecls(prog *ast.Program) error {
	for _, sd := range prog.StructDefs {
		if _, dup := c.structs[sd.Name.Lexeme]; dup {
			return c.errf(sd.Name, "struct %s is already defined", sd.Name.Lexeme)
		}
		seen := map[string]bool{}
		for _, f := range sd.Fields {
			if seen[f.Name.Lexeme] {
				return c.errf(f.Name, "duplicate field %s in struct %s", f.Name.Lexeme, sd.Name.Lexeme)
			}
			seen[f.Name.Lexeme] = true
		}
		c.structs[sd.Name.Lexeme] = sd.Fields
		c.structOrder = append(c.structOrder, sd.Name.Lexeme)
	}

	var mainCount int
	for _, fd := range prog.FunDefs {
		if builtinNames[fd.Name.Lexeme] {
			return c.errf(fd.Name, "%s redefines a built-in function", fd.Name.Lexeme)
		}
		if _, dup := c.funcs[fd.Name.Lexeme]; dup {
			return c.errf(fd.Name, "function %s is already defined", fd.Name.Lexeme)
		}
		seen := map[string]bool{}
		for _, p := range fd.Params {
			if seen[p.Name.Lexeme] {
				return c.errf(p.Name, "duplicate parameter %s in function %s", p.Name.Lexeme, fd.Name.Lexeme)
			}
			seen[p.Name.Lexeme] = true
			if err := c.validTypeRef(p.Type, p.Name); err != nil {
				return err
			}
		}
		if err := c.validTypeRef(fd.ReturnType, fd.Name); err != nil {
			return err
		}
		c.funcs[fd.Name.Lexeme] = fd
		if fd.Name.Lexeme == "main" {
			mainCount++
			if fd.ReturnType.IsArray || fd.ReturnType.TypeName != "void" || len(fd.Params) != 0 {
				return c.errf(fd.Name, "main must be declared void with no parameters")
			}
		}
	}
	if mainCount != 1 {
		return diag.NewStaticError(0, 0, "program must declare exactly one main function")
	}

	for _, sd := range prog.StructDefs {
		for _, f := range sd.Fields {
			if err := c.validTypeRef(f.Type, f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// validTypeRef checks that dt names a base scalar, void, or a declared
// struct.
func (c *Checker) validTypeRef(dt ast.DataType, near token.Token) error {
	if isBaseScalar(dt.TypeName) || dt.TypeName == "void" {
		return nil
	}
	if _, ok := c.structs[dt.TypeName]; ok {
		return nil
	}
	return c.errf(near, "undeclared type %s", dt.TypeName)
}

// ---- Pass 2: function bodies ----

func (c *Checker) checkFunDef(fd *ast.FunDef) error {
	c.currFun = fd
	e := newEnv()
	for _, p := range fd.Params {
		e.declare(p.Name.Lexeme, p.Type)
	}
	return c.checkStmts(fd.Body, e)
}

func (c *Checker) checkStmts(stmts []ast.Stmt, e *env) error {
	for _, s := range stmts {
		if err := c.checkStmt(s, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(s ast.Stmt, e *env) error {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		return c.checkVarDecl(st, e)
	case *ast.AssignStmt:
		return c.checkAssign(st, e)
	case *ast.ReturnStmt:
		return c.checkReturn(st, e)
	case *ast.IfStmt:
		return c.checkIf(st, e)
	case *ast.WhileStmt:
		return c.checkWhile(st, e)
	case *ast.ForStmt:
		return c.checkFor(st, e)
	case *ast.CallStmt:
		_, err := c.inferCall(st.Call, e)
		return err
	default:
		return fmt.Errorf("checker: unhandled statement %T", s)
	}
}

func (c *Checker) checkVarDecl(s *ast.VarDeclStmt, e *env) error {
	if e.declaredInCurrent(s.VarDef.Name.Lexeme) {
		return c.errf(s.VarDef.Name, "%s is already declared in this scope", s.VarDef.Name.Lexeme)
	}
	if err := c.validTypeRef(s.VarDef.Type, s.VarDef.Name); err != nil {
		return err
	}
	initType, err := c.inferExpr(s.Init, e)
	if err != nil {
		return err
	}
	if !typesCompatible(s.VarDef.Type, initType) {
		return c.errf(s.VarDef.Name, "cannot initialize %s (%s) with value of type %s",
			s.VarDef.Name.Lexeme, s.VarDef.Type, initType)
	}
	e.declare(s.VarDef.Name.Lexeme, s.VarDef.Type)
	return nil
}

// typesCompatible allows the null type on either side for struct/array
// targets: a struct or array variable may be declared or assigned null.
func typesCompatible(declared, actual ast.DataType) bool {
	if actual.TypeName == "void" && !actual.IsArray {
		return declared.IsArray || !isBaseScalar(declared.TypeName)
	}
	if declared.TypeName == "void" && !declared.IsArray {
		return actual.IsArray || !isBaseScalar(actual.TypeName)
	}
	return declared.Equal(actual)
}

func (c *Checker) checkAssign(s *ast.AssignStmt, e *env) error {
	leafType, err := c.resolvePath(s.Path, e)
	if err != nil {
		return err
	}
	rhsType, err := c.inferExpr(s.Expr, e)
	if err != nil {
		return err
	}
	if !typesCompatible(leafType, rhsType) {
		return c.errf(s.Path[len(s.Path)-1].Name, "cannot assign value of type %s to %s", rhsType, leafType)
	}
	return nil
}

func (c *Checker) checkReturn(s *ast.ReturnStmt, e *env) error {
	want := c.currFun.ReturnType
	if s.Expr == nil {
		if !want.IsArray && want.TypeName == "void" {
			return nil
		}
		return c.errf(s.Tok, "function %s must return a value of type %s", c.currFun.Name.Lexeme, want)
	}
	got, err := c.inferExpr(*s.Expr, e)
	if err != nil {
		return err
	}
	if !typesCompatible(want, got) {
		return c.errf(s.Tok, "function %s returns %s, got %s", c.currFun.Name.Lexeme, want, got)
	}
	return nil
}

func (c *Checker) checkCondition(cond ast.Expr, e *env, tokFor token.Token) error {
	t, err := c.inferExpr(cond, e)
	if err != nil {
		return err
	}
	if t.IsArray || t.TypeName != "bool" {
		return c.errf(tokFor, "condition must be bool, got %s", t)
	}
	return nil
}

func (c *Checker) condToken(expr ast.Expr) token.Token {
	if expr.Op != nil {
		return *expr.Op
	}
	if expr.First.Simple != nil {
		switch rv := expr.First.Simple.(type) {
		case *ast.SimpleRValue:
			return rv.Value
		case *ast.VarRValue:
			return rv.Path[0].Name
		case *ast.CallRValue:
			return rv.FunName
		case *ast.NewRValue:
			return rv.TypeTok
		}
	}
	return token.Token{}
}

func (c *Checker) checkIf(s *ast.IfStmt, e *env) error {
	if err := c.checkBasicIf(s.IfPart, e); err != nil {
		return err
	}
	for _, bi := range s.ElseIfs {
		if err := c.checkBasicIf(bi, e); err != nil {
			return err
		}
	}
	e.push()
	defer e.pop()
	return c.checkStmts(s.ElseStmts, e)
}

func (c *Checker) checkBasicIf(bi ast.BasicIf, e *env) error {
	if err := c.checkCondition(bi.Cond, e, c.condToken(bi.Cond)); err != nil {
		return err
	}
	e.push()
	defer e.pop()
	return c.checkStmts(bi.Body, e)
}

func (c *Checker) checkWhile(s *ast.WhileStmt, e *env) error {
	if err := c.checkCondition(s.Cond, e, c.condToken(s.Cond)); err != nil {
		return err
	}
	e.push()
	defer e.pop()
	return c.checkStmts(s.Body, e)
}

// checkFor uses two nested scopes: an outer scope holds the loop variable
// (visible to cond and step), an inner scope holds the body so the step
// assignment can't see body-local bindings.
func (c *Checker) checkFor(s *ast.ForStmt, e *env) error {
	e.push()
	defer e.pop()
	if err := c.checkVarDecl(&s.VarDecl, e); err != nil {
		return err
	}
	if err := c.checkCondition(s.Cond, e, c.condToken(s.Cond)); err != nil {
		return err
	}
	e.push()
	if err := c.checkStmts(s.Body, e); err != nil {
		e.pop()
		return err
	}
	e.pop()
	return c.checkAssign(&s.StepAssign, e)
}

// ---- Expressions ----

func (c *Checker) inferExpr(expr ast.Expr, e *env) (ast.DataType, error) {
	first, err := c.inferTerm(expr.First, e)
	if err != nil {
		return ast.DataType{}, err
	}
	result := first

	if expr.Op != nil {
		restType, err := c.inferExpr(*expr.Rest, e)
		if err != nil {
			return ast.DataType{}, err
		}
		result, err = c.inferBinOp(*expr.Op, first, restType)
		if err != nil {
			return ast.DataType{}, err
		}
	}

	if expr.Negated {
		if first.IsArray || first.TypeName != "bool" {
			return ast.DataType{}, c.errf(c.condToken(expr), "'not' requires a bool operand, got %s", first)
		}
	}
	return result, nil
}

func (c *Checker) inferBinOp(op token.Token, lhs, rhs ast.DataType) (ast.DataType, error) {
	switch op.Kind {
	case token.PLUS, token.MINUS, token.TIMES, token.DIVIDE:
		if lhs.IsArray || rhs.IsArray || !lhs.Equal(rhs) || (lhs.TypeName != "int" && lhs.TypeName != "double") {
			return ast.DataType{}, c.errf(op, "operator %s requires matching int or double operands, got %s and %s", op.Lexeme, lhs, rhs)
		}
		return lhs, nil
	case token.EQUAL, token.NOT_EQUAL:
		if lhs.Equal(rhs) || isNullType(lhs) || isNullType(rhs) {
			return ast.DataType{TypeName: "bool"}, nil
		}
		return ast.DataType{}, c.errf(op, "cannot compare %s and %s", lhs, rhs)
	case token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ:
		if lhs.IsArray || rhs.IsArray || !lhs.Equal(rhs) || !isOrderable(lhs.TypeName) {
			return ast.DataType{}, c.errf(op, "operator %s requires matching orderable operands, got %s and %s", op.Lexeme, lhs, rhs)
		}
		return ast.DataType{TypeName: "bool"}, nil
	case token.AND, token.OR:
		if lhs.IsArray || rhs.IsArray || lhs.TypeName != "bool" || rhs.TypeName != "bool" {
			return ast.DataType{}, c.errf(op, "operator %s requires bool operands", op.Lexeme)
		}
		return ast.DataType{TypeName: "bool"}, nil
	default:
		return ast.DataType{}, c.errf(op, "unknown operator %s", op.Lexeme)
	}
}

func isNullType(t ast.DataType) bool { return !t.IsArray && t.TypeName == "void" }

func isOrderable(name string) bool {
	switch name {
	case "int", "double", "char", "string":
		return true
	}
	return false
}

func (c *Checker) inferTerm(t *ast.Term, e *env) (ast.DataType, error) {
	if t.Complex != nil {
		return c.inferExpr(*t.Complex, e)
	}
	return c.inferRValue(t.Simple, e)
}

func (c *Checker) inferRValue(rv ast.RValue, e *env) (ast.DataType, error) {
	switch v := rv.(type) {
	case *ast.SimpleRValue:
		return literalType(v.Value), nil
	case *ast.NewRValue:
		return c.inferNew(v, e)
	case *ast.VarRValue:
		return c.resolvePath(v.Path, e)
	case *ast.CallRValue:
		return c.inferCall(v, e)
	default:
		return ast.DataType{}, fmt.Errorf("checker: unhandled rvalue %T", rv)
	}
}

func literalType(tok token.Token) ast.DataType {
	switch tok.Kind {
	case token.INT_VAL:
		return ast.DataType{TypeName: "int"}
	case token.DOUBLE_VAL:
		return ast.DataType{TypeName: "double"}
	case token.BOOL_VAL:
		return ast.DataType{TypeName: "bool"}
	case token.CHAR_VAL:
		return ast.DataType{TypeName: "char"}
	case token.STRING_VAL:
		return ast.DataType{TypeName: "string"}
	case token.NULL_VAL:
		return ast.DataType{TypeName: "void"}
	default:
		return ast.DataType{TypeName: "void"}
	}
}

func (c *Checker) inferNew(v *ast.NewRValue, e *env) (ast.DataType, error) {
	if err := c.validTypeRef(ast.DataType{TypeName: v.TypeTok.Lexeme}, v.TypeTok); err != nil {
		return ast.DataType{}, err
	}
	if v.ArrayExpr == nil {
		return ast.DataType{IsArray: false, TypeName: v.TypeTok.Lexeme}, nil
	}
	sizeType, err := c.inferExpr(*v.ArrayExpr, e)
	if err != nil {
		return ast.DataType{}, err
	}
	if sizeType.IsArray || sizeType.TypeName != "int" {
		return ast.DataType{}, c.errf(v.TypeTok, "array size must be int, got %s", sizeType)
	}
	return ast.DataType{IsArray: true, TypeName: v.TypeTok.Lexeme}, nil
}

func (c *Checker) inferCall(call *ast.CallRValue, e *env) (ast.DataType, error) {
	argTypes := make([]ast.DataType, len(call.Args))
	for i, a := range call.Args {
		t, err := c.inferExpr(a, e)
		if err != nil {
			return ast.DataType{}, err
		}
		argTypes[i] = t
	}

	call.ArgTypes = argTypes

	name := call.FunName.Lexeme
	if builtinNames[name] {
		return c.checkBuiltinCall(call.FunName, argTypes)
	}
	fd, ok := c.funcs[name]
	if !ok {
		return ast.DataType{}, c.errf(call.FunName, "call to undeclared function %s", name)
	}
	if len(fd.Params) != len(argTypes) {
		return ast.DataType{}, c.errf(call.FunName, "%s expects %d argument(s), got %d", name, len(fd.Params), len(argTypes))
	}
	for i, p := range fd.Params {
		if !typesCompatible(p.Type, argTypes[i]) {
			return ast.DataType{}, c.errf(call.FunName, "argument %d to %s: expected %s, got %s", i+1, name, p.Type, argTypes[i])
		}
	}
	return fd.ReturnType, nil
}

// resolvePath walks a dotted/indexed path: the first step names a local
// binding; every interior step must be a struct type with that field;
// an index on any step requires an array-typed step and an int index,
// demoting IsArray to false for the resulting type.
func (c *Checker) resolvePath(path []ast.PathElem, e *env) (ast.DataType, error) {
	first := path[0]
	curr, ok := e.resolve(first.Name.Lexeme)
	if !ok {
		return ast.DataType{}, c.errf(first.Name, "undeclared variable %s", first.Name.Lexeme)
	}
	if first.ArrayIndex != nil {
		var err error
		curr, err = c.applyIndex(curr, *first.ArrayIndex, first.Name, e)
		if err != nil {
			return ast.DataType{}, err
		}
	}

	for _, step := range path[1:] {
		if curr.IsArray || !c.isStructType(curr.TypeName) {
			return ast.DataType{}, c.errf(step.Name, "%s is not a struct, cannot access field %s", curr, step.Name.Lexeme)
		}
		fields := c.structs[curr.TypeName]
		fieldType, found := fieldTypeOf(fields, step.Name.Lexeme)
		if !found {
			return ast.DataType{}, c.errf(step.Name, "struct %s has no field %s", curr.TypeName, step.Name.Lexeme)
		}
		curr = fieldType
		if step.ArrayIndex != nil {
			var err error
			curr, err = c.applyIndex(curr, *step.ArrayIndex, step.Name, e)
			if err != nil {
				return ast.DataType{}, err
			}
		}
	}
	return curr, nil
}

func (c *Checker) applyIndex(curr ast.DataType, idx ast.Expr, near token.Token, e *env) (ast.DataType, error) {
	if !curr.IsArray {
		return ast.DataType{}, c.errf(near, "%s is not an array", curr)
	}
	idxType, err := c.inferExpr(idx, e)
	if err != nil {
		return ast.DataType{}, err
	}
	if idxType.IsArray || idxType.TypeName != "int" {
		return ast.DataType{}, c.errf(near, "array index must be int, got %s", idxType)
	}
	return ast.DataType{IsArray: false, TypeName: curr.TypeName}, nil
}

func (c *Checker) isStructType(name string) bool {
	_, ok := c.structs[name]
	return ok
}

func fieldTypeOf(fields []ast.VarDef, name string) (ast.DataType, bool) {
	for _, f := range fields {
		if f.Name.Lexeme == name {
			return f.Type, true
		}
	}
	return ast.DataType{}, false
}
