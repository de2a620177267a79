package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mypl-lang/mypl/codegen"
	"github.com/mypl-lang/mypl/internal/diag"
)

// Frame is a per-invocation activation record: the function being run, a
// program counter, an operand stack, and a dense local-variable array.
type Frame struct {
	info      *codegen.Frame
	pc        int
	operands  []Value
	variables []Value
}

// VM is the dispatch loop over a compiled codegen.Program: a call stack
// of Frames executing structured codegen.Instr instructions against the
// five-way Value union.
type VM struct {
	prog      *codegen.Program
	callStack []*Frame
	heap      *Heap
	stdin     *bufio.Reader
	stdout    io.Writer
}

func New(prog *codegen.Program) *VM {
	return &VM{
		prog:   prog,
		heap:   NewHeap(),
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
	}
}

// SetIO overrides stdin/stdout, used by tests to capture output and feed
// canned input without touching the process's real streams.
func (v *VM) SetIO(in io.Reader, out io.Writer) {
	v.stdin = bufio.NewReader(in)
	v.stdout = out
}

// Run starts execution at "main"; it refuses to start without a frame
// named main.
func (v *VM) Run() error {
	mainFrame := v.prog.FrameByName("main")
	if mainFrame == nil {
		return diag.NewVMError("<none>", 0, "no main frame to run")
	}
	frame := &Frame{info: mainFrame, variables: make([]Value, mainFrame.ArgCount)}
	v.callStack = append(v.callStack, frame)
	return v.loop()
}

func (v *VM) current() *Frame { return v.callStack[len(v.callStack)-1] }

func (v *VM) loop() error {
	for len(v.callStack) > 0 {
		f := v.current()
		if f.pc >= len(f.info.Instrs) {
			// Fell off the end without an explicit RET: pop silently. The
			// code generator ends every body with a RET that no jump
			// skips past, so a generated frame does not reach this.
			v.callStack = v.callStack[:len(v.callStack)-1]
			continue
		}
		instr := f.info.Instrs[f.pc]
		f.pc++
		if err := v.execute(f, instr); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) push(f *Frame, val Value) { f.operands = append(f.operands, val) }

func (v *VM) pop(f *Frame) Value {
	n := len(f.operands)
	val := f.operands[n-1]
	f.operands = f.operands[:n-1]
	return val
}

// popChecked pops an operand and fails with "null reference" if it is
// null. Comparisons (CMPEQ/CMPNE), every STORE, the stored value of
// SETF/SETI, and the POP/DUP/RET/CALL operands are exempt and use pop
// directly.
func (v *VM) popChecked(f *Frame, instr codegen.Instr) (Value, error) {
	val := v.pop(f)
	if val.IsNull() {
		return Value{}, v.errAt(f, instr, "null reference")
	}
	return val, nil
}

func (v *VM) errAt(f *Frame, instr codegen.Instr, format string, args ...any) error {
	return diag.NewVMError(f.info.Name, f.pc-1, format, args...)
}

func (v *VM) execute(f *Frame, instr codegen.Instr) error {
	switch instr.Op {
	case codegen.PUSH:
		v.push(f, literalValue(instr.Lit))
	case codegen.POP:
		v.pop(f)
	case codegen.LOAD:
		if instr.IntArg >= len(f.variables) {
			return v.errAt(f, instr, "local variable %d not set", instr.IntArg)
		}
		v.push(f, f.variables[instr.IntArg])
	case codegen.STORE:
		val := v.pop(f)
		if instr.IntArg == len(f.variables) {
			f.variables = append(f.variables, val)
		} else {
			f.variables[instr.IntArg] = val
		}
	case codegen.ADD, codegen.SUB, codegen.MUL, codegen.DIV:
		return v.execArith(f, instr)
	case codegen.AND, codegen.OR:
		return v.execBoolOp(f, instr)
	case codegen.NOT:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		if a.Kind != KindBool {
			return v.errAt(f, instr, "not expects a bool operand")
		}
		v.push(f, Bool(!a.B))
	case codegen.CMPEQ, codegen.CMPNE:
		b := v.pop(f)
		a := v.pop(f)
		eq := valuesEqual(a, b)
		if instr.Op == codegen.CMPEQ {
			v.push(f, Bool(eq))
		} else {
			v.push(f, Bool(!eq))
		}
	case codegen.CMPLT, codegen.CMPLE, codegen.CMPGT, codegen.CMPGE:
		return v.execCompare(f, instr)
	case codegen.JMP:
		f.pc = instr.Target
	case codegen.JMPF:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		if !a.B {
			f.pc = instr.Target
		}
	case codegen.CALL:
		return v.execCall(f, instr)
	case codegen.RET:
		return v.execRet(f)
	case codegen.WRITE:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		fmt.Fprint(v.stdout, a.ToString())
	case codegen.READ:
		line, _ := v.stdin.ReadString('\n')
		line = trimNewline(line)
		v.push(f, Str(line))
	case codegen.SLEN:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.push(f, Int(int64(len(a.S))))
	case codegen.ALEN:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.push(f, Int(int64(v.heap.ArrayLen(int(a.I)))))
	case codegen.GETC:
		// get(int, string) pushes the index first, so the string is on top.
		s, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		i, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		idx := int(i.I)
		if idx < 0 || idx >= len(s.S) {
			return v.errAt(f, instr, "out-of-bounds string index")
		}
		v.push(f, Str(string(s.S[idx])))
	case codegen.TOINT:
		return v.execToInt(f, instr)
	case codegen.TODBL:
		return v.execToDouble(f, instr)
	case codegen.TOSTR:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.push(f, Str(a.ToString()))
	case codegen.CONCAT:
		b, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.push(f, Str(a.S+b.S))
	case codegen.ALLOCS:
		id := v.heap.AllocStruct()
		v.push(f, Int(int64(id)))
	case codegen.ALLOCA:
		fill, err := v.popChecked0(f)
		if err != nil {
			return err
		}
		n, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		id := v.heap.AllocArray(n.I, fill)
		v.push(f, Int(int64(id)))
	case codegen.ADDF:
		a, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.heap.AddField(int(a.I), instr.Name)
	case codegen.SETF:
		val := v.pop(f)
		recv, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.heap.SetField(int(recv.I), instr.Name, val)
	case codegen.GETF:
		recv, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		v.push(f, v.heap.GetField(int(recv.I), instr.Name))
	case codegen.SETI:
		val := v.pop(f)
		idx, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		recv, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		if !v.heap.SetElem(int(recv.I), int(idx.I), val) {
			return v.errAt(f, instr, "out-of-bounds array index")
		}
	case codegen.GETI:
		idx, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		recv, err := v.popChecked(f, instr)
		if err != nil {
			return err
		}
		val, ok := v.heap.GetElem(int(recv.I), int(idx.I))
		if !ok {
			return v.errAt(f, instr, "out-of-bounds array index")
		}
		v.push(f, val)
	case codegen.DUP:
		top := v.pop(f)
		v.push(f, top)
		v.push(f, top)
	case codegen.NOP:
		// loop tail sentinel; no effect.
	default:
		return v.errAt(f, instr, "unimplemented opcode %v", instr.Op)
	}
	return nil
}

// popChecked0 pops the ALLOCA fill value, which is legitimately null
// (arrays of structs/arrays start out null-filled) and so is not
// null-checked.
func (v *VM) popChecked0(f *Frame) (Value, error) { return v.pop(f), nil }

func literalValue(l codegen.Literal) Value {
	switch l.Kind {
	case codegen.LitInt:
		return Int(l.I)
	case codegen.LitDouble:
		return Double(l.D)
	case codegen.LitBool:
		return Bool(l.B)
	case codegen.LitChar, codegen.LitString:
		return Str(l.S)
	default:
		return Null()
	}
}

func (v *VM) execArith(f *Frame, instr codegen.Instr) error {
	b, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	a, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	if a.Kind == KindDouble || b.Kind == KindDouble {
		x, y := asDouble(a), asDouble(b)
		switch instr.Op {
		case codegen.ADD:
			v.push(f, Double(x+y))
		case codegen.SUB:
			v.push(f, Double(x-y))
		case codegen.MUL:
			v.push(f, Double(x*y))
		case codegen.DIV:
			if y == 0 {
				return v.errAt(f, instr, "division by zero")
			}
			v.push(f, Double(x/y))
		}
		return nil
	}
	x, y := a.I, b.I
	switch instr.Op {
	case codegen.ADD:
		v.push(f, Int(x+y))
	case codegen.SUB:
		v.push(f, Int(x-y))
	case codegen.MUL:
		v.push(f, Int(x*y))
	case codegen.DIV:
		if y == 0 {
			return v.errAt(f, instr, "division by zero")
		}
		v.push(f, Int(x/y))
	}
	return nil
}

func asDouble(v Value) float64 {
	if v.Kind == KindDouble {
		return v.D
	}
	return float64(v.I)
}

func (v *VM) execBoolOp(f *Frame, instr codegen.Instr) error {
	b, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	a, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	if instr.Op == codegen.AND {
		v.push(f, Bool(a.B && b.B))
	} else {
		v.push(f, Bool(a.B || b.B))
	}
	return nil
}

func valuesEqual(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}
	switch a.Kind {
	case KindInt:
		return a.I == b.I
	case KindDouble:
		return a.D == b.D
	case KindBool:
		return a.B == b.B
	case KindString:
		return a.S == b.S
	default:
		return false
	}
}

func (v *VM) execCompare(f *Frame, instr codegen.Instr) error {
	b, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	a, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	var lt, eq bool
	switch a.Kind {
	case KindInt:
		lt, eq = a.I < b.I, a.I == b.I
	case KindDouble:
		lt, eq = a.D < b.D, a.D == b.D
	case KindString:
		lt, eq = a.S < b.S, a.S == b.S
	case KindBool:
		lt, eq = !a.B && b.B, a.B == b.B
	default:
		return v.errAt(f, instr, "values are not orderable")
	}
	switch instr.Op {
	case codegen.CMPLT:
		v.push(f, Bool(lt))
	case codegen.CMPLE:
		v.push(f, Bool(lt || eq))
	case codegen.CMPGT:
		v.push(f, Bool(!lt && !eq))
	case codegen.CMPGE:
		v.push(f, Bool(!lt))
	}
	return nil
}

func (v *VM) execToInt(f *Frame, instr codegen.Instr) error {
	a, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	switch a.Kind {
	case KindDouble:
		v.push(f, Int(int64(a.D)))
	case KindString:
		n, err := strconv.ParseInt(a.S, 10, 64)
		if err != nil {
			return v.errAt(f, instr, "cannot convert string to int")
		}
		v.push(f, Int(n))
	default:
		return v.errAt(f, instr, "cannot convert value to int")
	}
	return nil
}

func (v *VM) execToDouble(f *Frame, instr codegen.Instr) error {
	a, err := v.popChecked(f, instr)
	if err != nil {
		return err
	}
	switch a.Kind {
	case KindInt:
		v.push(f, Double(float64(a.I)))
	case KindString:
		d, err := strconv.ParseFloat(a.S, 64)
		if err != nil {
			return v.errAt(f, instr, "cannot convert string to double")
		}
		v.push(f, Double(d))
	default:
		return v.errAt(f, instr, "cannot convert value to double")
	}
	return nil
}

// execCall pops n args off the caller stack, pushes a new frame, and
// pushes the args back onto it in that same pop order — the callee's
// prologue STOREs in index order 0..n-1, landing argument i at slot i.
func (v *VM) execCall(f *Frame, instr codegen.Instr) error {
	callee := v.prog.FrameByName(instr.Name)
	if callee == nil {
		return v.errAt(f, instr, "call to undefined function %s", instr.Name)
	}
	// Pop n args off the caller (first pop is the last-pushed argument),
	// then push them onto the callee stack in that same pop order. The
	// callee's STORE prologue then consumes top-to-bottom in index order
	// 0..n-1, so the double reversal lands argument i at slot i exactly.
	args := make([]Value, instr.NArgs)
	for i := 0; i < instr.NArgs; i++ {
		args[i] = v.pop(f)
	}
	newFrame := &Frame{info: callee, variables: make([]Value, 0, callee.ArgCount)}
	newFrame.operands = append(newFrame.operands, args...)
	v.callStack = append(v.callStack, newFrame)
	return nil
}

func (v *VM) execRet(f *Frame) error {
	retVal := v.pop(f)
	v.callStack = v.callStack[:len(v.callStack)-1]
	if len(v.callStack) > 0 {
		caller := v.current()
		v.push(caller, retVal)
	}
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
