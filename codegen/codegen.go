package codegen

import (
	"strconv"
	"strings"

	"github.com/mypl-lang/mypl/ast"
	"github.com/mypl-lang/mypl/token"
)

// Generator lowers a Program's struct/function tables into VM frames. A
// scoped slot table maps a visible name to a dense frame-local integer,
// allocated in declaration order; popping a scope never reclaims a slot.
type Generator struct {
	structs map[string][]ast.VarDef
	frame   *Frame
	scopes  []map[string]int
	nextSlot int
}

func New(prog *ast.Program) *Generator {
	g := &Generator{structs: map[string][]ast.VarDef{}}
	for _, sd := range prog.StructDefs {
		g.structs[sd.Name.Lexeme] = sd.Fields
	}
	return g
}

// Generate lowers every function in prog, in declaration order.
func Generate(prog *ast.Program) (*Program, error) {
	g := New(prog)
	out := &Program{}
	for _, fd := range prog.FunDefs {
		frame, err := g.genFunDef(fd)
		if err != nil {
			return nil, err
		}
		out.Frames = append(out.Frames, frame)
	}
	return out, nil
}

func (g *Generator) pushScope()  { g.scopes = append(g.scopes, map[string]int{}) }
func (g *Generator) popScope()   { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) declareSlot(name string) int {
	slot := g.nextSlot
	g.nextSlot++
	g.scopes[len(g.scopes)-1][name] = slot
	return slot
}

func (g *Generator) slotOf(name string) int {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if slot, ok := g.scopes[i][name]; ok {
			return slot
		}
	}
	return -1
}

func (g *Generator) emit(instr Instr) {
	g.frame.Instrs = append(g.frame.Instrs, instr)
}

func (g *Generator) here() int { return len(g.frame.Instrs) }

func (g *Generator) genFunDef(fd *ast.FunDef) (*Frame, error) {
	g.frame = &Frame{Name: fd.Name.Lexeme, ArgCount: len(fd.Params)}
	g.scopes = nil
	g.nextSlot = 0
	g.pushScope()

	for _, p := range fd.Params {
		slot := g.declareSlot(p.Name.Lexeme)
		g.emit(Instr{Op: STORE, IntArg: slot})
	}

	if len(fd.Body) == 0 {
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
		g.emit(Instr{Op: RET})
		return g.frame, nil
	}

	if err := g.genStmts(fd.Body); err != nil {
		return nil, err
	}

	end := g.here()
	needsRet := end == 0 || g.frame.Instrs[end-1].Op != RET
	for _, in := range g.frame.Instrs {
		if (in.Op == JMP || in.Op == JMPF) && in.Target == end {
			needsRet = true
		}
	}
	if needsRet {
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
		g.emit(Instr{Op: RET})
	}
	return g.frame, nil
}

func (g *Generator) genStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		return g.genVarDecl(st)
	case *ast.AssignStmt:
		return g.genAssign(st)
	case *ast.ReturnStmt:
		return g.genReturn(st)
	case *ast.IfStmt:
		return g.genIf(st)
	case *ast.WhileStmt:
		return g.genWhile(st)
	case *ast.ForStmt:
		return g.genFor(st)
	case *ast.CallStmt:
		if err := g.genCall(st.Call); err != nil {
			return err
		}
		// print (WRITE) consumes its argument and leaves nothing on the
		// stack; every other call — user-defined (always RETs a value,
		// even an implicit null) or built-in — leaves one value that a
		// statement-position call must discard.
		if st.Call.FunName.Lexeme != "print" {
			g.emit(Instr{Op: POP})
		}
		return nil
	}
	return nil
}

func (g *Generator) genVarDecl(s *ast.VarDeclStmt) error {
	if err := g.genExpr(s.Init); err != nil {
		return err
	}
	slot := g.declareSlot(s.VarDef.Name.Lexeme)
	g.emit(Instr{Op: STORE, IntArg: slot})
	return nil
}

// genAssign lowers an assignment through a path of arbitrary length:
// load the receiver, walk interior struct/array steps, then
// load-receiver / evaluate-index / evaluate-rhs / set at the leaf.
func (g *Generator) genAssign(s *ast.AssignStmt) error {
	path := s.Path
	if len(path) == 1 {
		slot := g.slotOf(path[0].Name.Lexeme)
		if path[0].ArrayIndex == nil {
			if err := g.genExpr(s.Expr); err != nil {
				return err
			}
			g.emit(Instr{Op: STORE, IntArg: slot})
			return nil
		}
		g.emit(Instr{Op: LOAD, IntArg: slot})
		if err := g.genExpr(*path[0].ArrayIndex); err != nil {
			return err
		}
		if err := g.genExpr(s.Expr); err != nil {
			return err
		}
		g.emit(Instr{Op: SETI})
		return nil
	}

	slot := g.slotOf(path[0].Name.Lexeme)
	g.emit(Instr{Op: LOAD, IntArg: slot})
	if path[0].ArrayIndex != nil {
		if err := g.genExpr(*path[0].ArrayIndex); err != nil {
			return err
		}
		g.emit(Instr{Op: GETI})
	}
	for i := 1; i < len(path)-1; i++ {
		step := path[i]
		g.emit(Instr{Op: GETF, Name: step.Name.Lexeme})
		if step.ArrayIndex != nil {
			if err := g.genExpr(*step.ArrayIndex); err != nil {
				return err
			}
			g.emit(Instr{Op: GETI})
		}
	}

	leaf := path[len(path)-1]
	if leaf.ArrayIndex != nil {
		g.emit(Instr{Op: GETF, Name: leaf.Name.Lexeme})
		if err := g.genExpr(*leaf.ArrayIndex); err != nil {
			return err
		}
		if err := g.genExpr(s.Expr); err != nil {
			return err
		}
		g.emit(Instr{Op: SETI})
	} else {
		if err := g.genExpr(s.Expr); err != nil {
			return err
		}
		g.emit(Instr{Op: SETF, Name: leaf.Name.Lexeme})
	}
	return nil
}

func (g *Generator) genReturn(s *ast.ReturnStmt) error {
	if s.Expr == nil {
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
	} else if err := g.genExpr(*s.Expr); err != nil {
		return err
	}
	g.emit(Instr{Op: RET})
	return nil
}

// genIf patches each arm's JMPF to the instruction after that arm's
// trailing JMP, and every arm's trailing JMP to the instruction after
// the else body.
func (g *Generator) genIf(s *ast.IfStmt) error {
	var ends []int

	arms := append([]ast.BasicIf{s.IfPart}, s.ElseIfs...)
	for _, arm := range arms {
		if err := g.genExpr(arm.Cond); err != nil {
			return err
		}
		jmpf := g.here()
		g.emit(Instr{Op: JMPF})
		g.pushScope()
		if err := g.genStmts(arm.Body); err != nil {
			g.popScope()
			return err
		}
		g.popScope()
		endJmp := g.here()
		g.emit(Instr{Op: JMP})
		ends = append(ends, endJmp)
		g.frame.Instrs[jmpf].Target = g.here()
	}

	g.pushScope()
	if err := g.genStmts(s.ElseStmts); err != nil {
		g.popScope()
		return err
	}
	g.popScope()

	after := g.here()
	for _, idx := range ends {
		g.frame.Instrs[idx].Target = after
	}
	return nil
}

func (g *Generator) genWhile(s *ast.WhileStmt) error {
	top := g.here()
	if err := g.genExpr(s.Cond); err != nil {
		return err
	}
	jmpf := g.here()
	g.emit(Instr{Op: JMPF})
	g.pushScope()
	if err := g.genStmts(s.Body); err != nil {
		g.popScope()
		return err
	}
	g.popScope()
	g.emit(Instr{Op: JMP, Target: top})
	nop := g.here()
	g.emit(Instr{Op: NOP})
	g.frame.Instrs[jmpf].Target = nop
	return nil
}

// genFor lowers the init then treats the remainder as a while loop whose
// step-assign is emitted at the end of the body, before the back-jump.
func (g *Generator) genFor(s *ast.ForStmt) error {
	g.pushScope()
	defer g.popScope()
	if err := g.genVarDecl(&s.VarDecl); err != nil {
		return err
	}

	top := g.here()
	if err := g.genExpr(s.Cond); err != nil {
		return err
	}
	jmpf := g.here()
	g.emit(Instr{Op: JMPF})

	g.pushScope()
	if err := g.genStmts(s.Body); err != nil {
		g.popScope()
		return err
	}
	g.popScope()

	if err := g.genAssign(&s.StepAssign); err != nil {
		return err
	}
	g.emit(Instr{Op: JMP, Target: top})
	nop := g.here()
	g.emit(Instr{Op: NOP})
	g.frame.Instrs[jmpf].Target = nop
	return nil
}

// genExpr lowers post-order: first, then NOT if negated, then rest and
// the operator instruction if a tail is present.
func (g *Generator) genExpr(e ast.Expr) error {
	if err := g.genTerm(e.First); err != nil {
		return err
	}
	if e.Negated {
		g.emit(Instr{Op: NOT})
	}
	if e.Op != nil {
		if err := g.genExpr(*e.Rest); err != nil {
			return err
		}
		g.emit(Instr{Op: opFor(e.Op.Kind)})
	}
	return nil
}

func opFor(k token.Kind) Opcode {
	switch k {
	case token.PLUS:
		return ADD
	case token.MINUS:
		return SUB
	case token.TIMES:
		return MUL
	case token.DIVIDE:
		return DIV
	case token.EQUAL:
		return CMPEQ
	case token.NOT_EQUAL:
		return CMPNE
	case token.LESS:
		return CMPLT
	case token.LESS_EQ:
		return CMPLE
	case token.GREATER:
		return CMPGT
	case token.GREATER_EQ:
		return CMPGE
	case token.AND:
		return AND
	case token.OR:
		return OR
	default:
		return NOP
	}
}

func (g *Generator) genTerm(t *ast.Term) error {
	if t.Complex != nil {
		return g.genExpr(*t.Complex)
	}
	return g.genRValue(t.Simple)
}

func (g *Generator) genRValue(rv ast.RValue) error {
	switch v := rv.(type) {
	case *ast.SimpleRValue:
		return g.genSimpleLiteral(v.Value)
	case *ast.NewRValue:
		return g.genNew(v)
	case *ast.VarRValue:
		return g.genPathLoad(v.Path)
	case *ast.CallRValue:
		return g.genCall(v)
	}
	return nil
}

func (g *Generator) genSimpleLiteral(tok token.Token) error {
	switch tok.Kind {
	case token.INT_VAL:
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitInt, I: n}})
	case token.DOUBLE_VAL:
		d, _ := strconv.ParseFloat(tok.Lexeme, 64)
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitDouble, D: d}})
	case token.BOOL_VAL:
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitBool, B: tok.Lexeme == "true"}})
	case token.NULL_VAL:
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
	case token.CHAR_VAL:
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitChar, S: tok.Lexeme}})
	case token.STRING_VAL:
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitString, S: unescape(tok.Lexeme)}})
	}
	return nil
}

// unescape rewrites the two-character \n / \t escapes produced by the
// lexer. This only applies to STRING_VAL; a CHAR_VAL literal's lexeme
// is pushed as-is (the VM never re-interprets it), so a char literal
// `'\n'` prints as the two characters `\n`.
func unescape(lexeme string) string {
	if !strings.Contains(lexeme, `\`) {
		return lexeme
	}
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t")
	return r.Replace(lexeme)
}

func (g *Generator) genNew(v *ast.NewRValue) error {
	if v.ArrayExpr != nil {
		if err := g.genExpr(*v.ArrayExpr); err != nil {
			return err
		}
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
		g.emit(Instr{Op: ALLOCA})
		return nil
	}

	g.emit(Instr{Op: ALLOCS, Name: v.TypeTok.Lexeme})
	for _, f := range g.structs[v.TypeTok.Lexeme] {
		g.emit(Instr{Op: DUP})
		g.emit(Instr{Op: ADDF, Name: f.Name.Lexeme})
		g.emit(Instr{Op: DUP})
		g.emit(Instr{Op: PUSH, Lit: Literal{Kind: LitNull}})
		g.emit(Instr{Op: SETF, Name: f.Name.Lexeme})
	}
	return nil
}

func (g *Generator) genPathLoad(path []ast.PathElem) error {
	slot := g.slotOf(path[0].Name.Lexeme)
	g.emit(Instr{Op: LOAD, IntArg: slot})
	if path[0].ArrayIndex != nil {
		if err := g.genExpr(*path[0].ArrayIndex); err != nil {
			return err
		}
		g.emit(Instr{Op: GETI})
	}
	for _, step := range path[1:] {
		g.emit(Instr{Op: GETF, Name: step.Name.Lexeme})
		if step.ArrayIndex != nil {
			if err := g.genExpr(*step.ArrayIndex); err != nil {
				return err
			}
			g.emit(Instr{Op: GETI})
		}
	}
	return nil
}

func (g *Generator) genCall(call *ast.CallRValue) error {
	for _, a := range call.Args {
		if err := g.genExpr(a); err != nil {
			return err
		}
	}
	name := call.FunName.Lexeme
	if name == "length" {
		if len(call.ArgTypes) == 1 && call.ArgTypes[0].IsArray {
			g.emit(Instr{Op: ALEN})
		} else {
			g.emit(Instr{Op: SLEN})
		}
		return nil
	}
	if op, ok := builtinOpcode(name); ok {
		g.emit(Instr{Op: op})
		return nil
	}
	g.emit(Instr{Op: CALL, Name: name, NArgs: len(call.Args)})
	return nil
}

// builtinOpcode maps a built-in function name directly to its VM opcode
// (length is handled separately above since it dispatches on the
// argument's static type); anything else lowers to a CALL by name.
func builtinOpcode(name string) (Opcode, bool) {
	switch name {
	case "print":
		return WRITE, true
	case "input":
		return READ, true
	case "get":
		return GETC, true
	case "to_int":
		return TOINT, true
	case "to_double":
		return TODBL, true
	case "to_string":
		return TOSTR, true
	case "concat":
		return CONCAT, true
	default:
		return 0, false
	}
}
