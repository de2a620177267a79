package checker

import "github.com/mypl-lang/mypl/ast"

// env is a stack of lexical scopes mapping a name to its static type,
// shaped after the resolver scope stack pattern (push on block entry, pop
// on exit, declare-in-current-scope-only, search outward for resolution).
type env struct {
	scopes []map[string]ast.DataType
}

func newEnv() *env {
	e := &env{}
	e.push()
	return e
}

func (e *env) push() { e.scopes = append(e.scopes, map[string]ast.DataType{}) }

func (e *env) pop() { e.scopes = e.scopes[:len(e.scopes)-1] }

// declaredInCurrent reports whether name is already bound in the
// innermost scope (redeclaration in the same block is an error; shadowing
// an outer scope is not).
func (e *env) declaredInCurrent(name string) bool {
	_, ok := e.scopes[len(e.scopes)-1][name]
	return ok
}

func (e *env) declare(name string, dt ast.DataType) {
	e.scopes[len(e.scopes)-1][name] = dt
}

func (e *env) resolve(name string) (ast.DataType, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if dt, ok := e.scopes[i][name]; ok {
			return dt, true
		}
	}
	return ast.DataType{}, false
}
