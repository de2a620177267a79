// Package parser implements a tree-building recursive-descent parser.
// A second, syntax-only variant lives in syntax_parser.go.
package parser

import (
	"github.com/mypl-lang/mypl/ast"
	"github.com/mypl-lang/mypl/internal/diag"
	"github.com/mypl-lang/mypl/lexer"
	"github.com/mypl-lang/mypl/token"
)

// Parser holds one token of lookahead plus a one-token peek buffer.
type Parser struct {
	lex       *lexer.Lexer
	curr      token.Token
	peek      token.Token
	peekValid bool
}

func New(src string) (*Parser, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	if p.peekValid {
		p.curr = p.peek
		p.peekValid = false
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.curr = t
	return nil
}

func (p *Parser) peekToken() (token.Token, error) {
	if !p.peekValid {
		t, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		p.peek = t
		p.peekValid = true
	}
	return p.peek, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return diag.NewParserError(p.curr.Line, p.curr.Column, format, args...)
}

// expect verifies the current token's kind, consumes it, and returns it.
func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if p.curr.Kind != kind {
		return token.Token{}, diag.NewParserError(p.curr.Line, p.curr.Column,
			"expecting %v found '%s'", kind, p.curr.Lexeme)
	}
	t := p.curr
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

func (p *Parser) match(kind token.Kind) bool { return p.curr.Kind == kind }

func isBaseTypeOrVoid(k token.Kind) bool { return token.BaseTypes[k] || k == token.VOID }

// Parse is the parser's entry point: program := (struct_def | fun_def)*.
func Parse(src string) (*ast.Program, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.curr.Kind != token.EOS {
		if p.curr.Kind == token.STRUCT {
			sd, err := p.parseStructDef()
			if err != nil {
				return nil, err
			}
			prog.StructDefs = append(prog.StructDefs, sd)
			continue
		}
		fd, err := p.parseFunDef()
		if err != nil {
			return nil, err
		}
		prog.FunDefs = append(prog.FunDefs, fd)
	}
	return prog, nil
}

// struct_def := 'struct' ID '{' fields? '}'
func (p *Parser) parseStructDef() (*ast.StructDef, error) {
	if _, err := p.expect(token.STRUCT); err != nil {
		return nil, err
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	sd := &ast.StructDef{Name: name}
	if !p.match(token.RBRACE) {
		fields, err := p.parseVarDefList()
		if err != nil {
			return nil, err
		}
		sd.Fields = fields
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return sd, nil
}

// fields := vardef (',' vardef)*  -- trailing comma illegal
func (p *Parser) parseVarDefList() ([]ast.VarDef, error) {
	var defs []ast.VarDef
	vd, err := p.parseVarDef()
	if err != nil {
		return nil, err
	}
	defs = append(defs, vd)
	for p.match(token.COMMA) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		vd, err := p.parseVarDef()
		if err != nil {
			return nil, err
		}
		defs = append(defs, vd)
	}
	return defs, nil
}

func (p *Parser) parseVarDef() (ast.VarDef, error) {
	dt, err := p.parseType()
	if err != nil {
		return ast.VarDef{}, err
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return ast.VarDef{}, err
	}
	return ast.VarDef{Type: dt, Name: name}, nil
}

// type := base_type | ID | 'array' (base_type | ID)
func (p *Parser) parseType() (ast.DataType, error) {
	if p.match(token.ARRAY) {
		if err := p.advance(); err != nil {
			return ast.DataType{}, err
		}
		if !isBaseTypeOrVoid(p.curr.Kind) && p.curr.Kind != token.ID {
			return ast.DataType{}, p.errorf("expecting type found '%s'", p.curr.Lexeme)
		}
		name := p.curr.Lexeme
		if err := p.advance(); err != nil {
			return ast.DataType{}, err
		}
		return ast.DataType{IsArray: true, TypeName: name}, nil
	}
	if isBaseTypeOrVoid(p.curr.Kind) || p.curr.Kind == token.ID {
		name := p.curr.Lexeme
		if err := p.advance(); err != nil {
			return ast.DataType{}, err
		}
		return ast.DataType{IsArray: false, TypeName: name}, nil
	}
	return ast.DataType{}, p.errorf("expecting type found '%s'", p.curr.Lexeme)
}

// fun_def := (type | 'void') ID '(' params? ')' '{' stmt* '}'
func (p *Parser) parseFunDef() (*ast.FunDef, error) {
	dt, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	fd := &ast.FunDef{ReturnType: dt, Name: name}
	if !p.match(token.RPAREN) {
		params, err := p.parseVarDefList()
		if err != nil {
			return nil, err
		}
		fd.Params = params
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStmts(token.RBRACE)
	if err != nil {
		return nil, err
	}
	fd.Body = body
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return fd, nil
}

func (p *Parser) parseStmts(end token.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.match(end) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// statement := return | if | for | while
//            | ID ( call_args | assign_tail | vardecl_tail )
//            | type vardecl_tail
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.curr.Kind {
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.ID:
		return p.parseIDStmt()
	default:
		if isBaseTypeOrVoid(p.curr.Kind) || p.curr.Kind == token.ARRAY {
			return p.parseTypedVarDecl()
		}
		return nil, p.errorf("expecting statement found '%s'", p.curr.Lexeme)
	}
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	tok := p.curr
	if err := p.advance(); err != nil {
		return nil, err
	}
	rs := &ast.ReturnStmt{Tok: tok}
	if !p.atStmtEnd() {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rs.Expr = &e
	}
	return rs, nil
}

// atStmtEnd reports whether the current token could only begin a new
// statement or close the enclosing block — used to detect a bare `return`.
func (p *Parser) atStmtEnd() bool {
	switch p.curr.Kind {
	case token.RBRACE, token.RETURN, token.IF, token.WHILE, token.FOR, token.EOS:
		return true
	case token.ID:
		return false
	default:
		return isBaseTypeOrVoid(p.curr.Kind) || p.curr.Kind == token.ARRAY
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	basicIf, err := p.parseBasicIf(token.IF)
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{IfPart: basicIf}
	for p.match(token.ELSEIF) {
		bi, err := p.parseBasicIf(token.ELSEIF)
		if err != nil {
			return nil, err
		}
		stmt.ElseIfs = append(stmt.ElseIfs, bi)
	}
	if p.match(token.ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LBRACE); err != nil {
			return nil, err
		}
		body, err := p.parseStmts(token.RBRACE)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = []ast.Stmt{}
		}
		stmt.ElseStmts = body
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseBasicIf(kw token.Kind) (ast.BasicIf, error) {
	if _, err := p.expect(kw); err != nil {
		return ast.BasicIf{}, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return ast.BasicIf{}, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.BasicIf{}, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return ast.BasicIf{}, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return ast.BasicIf{}, err
	}
	body, err := p.parseStmts(token.RBRACE)
	if err != nil {
		return ast.BasicIf{}, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return ast.BasicIf{}, err
	}
	return ast.BasicIf{Cond: cond, Body: body}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	if _, err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStmts(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

// for := 'for' '(' type vardecl_tl ';' expr ';' ID assign_tl ')' '{' stmt* '}'
func (p *Parser) parseFor() (ast.Stmt, error) {
	if _, err := p.expect(token.FOR); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	dt, err := p.parseType()
	if err != nil {
		return nil, err
	}
	varName, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	initExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	stepName, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	stepExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStmts(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.ForStmt{
		VarDecl:    ast.VarDeclStmt{VarDef: ast.VarDef{Type: dt, Name: varName}, Init: initExpr},
		Cond:       cond,
		StepAssign: ast.AssignStmt{Path: []ast.PathElem{{Name: stepName}}, Expr: stepExpr},
		Body:       body,
	}, nil
}

func (p *Parser) parseTypedVarDecl() (ast.Stmt, error) {
	dt, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.ID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.VarDeclStmt{VarDef: ast.VarDef{Type: dt, Name: name}, Init: init}, nil
}

// parseIDStmt disambiguates the three statement forms that begin with ID:
// a call used as a statement, an assignment (optionally through a path),
// or a vardecl whose type name is a struct.
func (p *Parser) parseIDStmt() (ast.Stmt, error) {
	id := p.curr
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.match(token.LPAREN) {
		call, err := p.parseCallArgs(id)
		if err != nil {
			return nil, err
		}
		return &ast.CallStmt{Call: call}, nil
	}

	if p.match(token.ID) {
		// `type vardecl_tail` where type was a bare struct name.
		name, err := p.expect(token.ID)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.VarDeclStmt{
			VarDef: ast.VarDef{Type: ast.DataType{TypeName: id.Lexeme}, Name: name},
			Init:   init,
		}, nil
	}

	// lvalue path then assign_tail.
	path := []ast.PathElem{{Name: id}}
	rest, err := p.parsePathTail(&path[0])
	if err != nil {
		return nil, err
	}
	path = append(path, rest...)
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Path: path, Expr: rhs}, nil
}

// lvalue := ε | ('.' ID | '[' expr ']')+
// var_path := ('.' ID | '[' expr ']')*
// The leading element is built by the caller and passed as head; an index
// directly after it is stored on head. This parses the steps after it,
// merging a field-step with a following index into one PathElem.
func (p *Parser) parsePathTail(head *ast.PathElem) ([]ast.PathElem, error) {
	var elems []ast.PathElem
	for {
		switch p.curr.Kind {
		case token.DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(token.ID)
			if err != nil {
				return nil, err
			}
			elem := ast.PathElem{Name: name}
			if p.match(token.LBRACKET) {
				idx, err := p.parseIndex()
				if err != nil {
					return nil, err
				}
				elem.ArrayIndex = idx
			}
			elems = append(elems, elem)
		case token.LBRACKET:
			idx, err := p.parseIndex()
			if err != nil {
				return nil, err
			}
			if len(elems) == 0 {
				head.ArrayIndex = idx
			} else {
				elems[len(elems)-1].ArrayIndex = idx
			}
		default:
			return elems, nil
		}
	}
}

func (p *Parser) parseIndex() (*ast.Expr, error) {
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *Parser) parseCallArgs(name token.Token) (*ast.CallRValue, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	call := &ast.CallRValue{FunName: name}
	if !p.match(token.RPAREN) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
			if !p.match(token.COMMA) {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

// expr := 'not'? term (binop expr)?
func (p *Parser) parseExpr() (ast.Expr, error) {
	e := ast.Expr{}
	if p.match(token.NOT) {
		e.Negated = true
		if err := p.advance(); err != nil {
			return ast.Expr{}, err
		}
	}
	term, err := p.parseTerm()
	if err != nil {
		return ast.Expr{}, err
	}
	e.First = term
	if isBinOp(p.curr.Kind) {
		op := p.curr
		if err := p.advance(); err != nil {
			return ast.Expr{}, err
		}
		rest, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		e.Op = &op
		e.Rest = &rest
	}
	return e, nil
}

func isBinOp(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.TIMES, token.DIVIDE,
		token.EQUAL, token.NOT_EQUAL, token.LESS, token.LESS_EQ,
		token.GREATER, token.GREATER_EQ, token.AND, token.OR:
		return true
	}
	return false
}

// term := '(' expr ')' | rvalue
func (p *Parser) parseTerm() (*ast.Term, error) {
	if p.match(token.LPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Term{Complex: &inner}, nil
	}
	rv, err := p.parseRValue()
	if err != nil {
		return nil, err
	}
	return &ast.Term{Simple: rv}, nil
}

// rvalue := literal | 'new' newtail | 'null' | ID ( call_args | var_path )
func (p *Parser) parseRValue() (ast.RValue, error) {
	switch p.curr.Kind {
	case token.INT_VAL, token.DOUBLE_VAL, token.CHAR_VAL, token.STRING_VAL, token.BOOL_VAL, token.NULL_VAL:
		t := p.curr
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.SimpleRValue{Value: t}, nil
	case token.NEW:
		return p.parseNew()
	case token.ID:
		id := p.curr
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.match(token.LPAREN) {
			return p.parseCallArgs(id)
		}
		path := []ast.PathElem{{Name: id}}
		rest, err := p.parsePathTail(&path[0])
		if err != nil {
			return nil, err
		}
		path = append(path, rest...)
		return &ast.VarRValue{Path: path}, nil
	default:
		return nil, p.errorf("expecting expression found '%s'", p.curr.Lexeme)
	}
}

// newtail := ID ('[' expr ']')? | base_type '[' expr ']'
func (p *Parser) parseNew() (ast.RValue, error) {
	if _, err := p.expect(token.NEW); err != nil {
		return nil, err
	}
	if !isBaseTypeOrVoid(p.curr.Kind) && p.curr.Kind != token.ID {
		return nil, p.errorf("expecting type found '%s'", p.curr.Lexeme)
	}
	typeTok := p.curr
	if err := p.advance(); err != nil {
		return nil, err
	}
	nv := &ast.NewRValue{TypeTok: typeTok}
	if p.match(token.LBRACKET) {
		idx, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		nv.ArrayExpr = idx
	}
	return nv, nil
}
