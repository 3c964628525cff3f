// Package codegen provides the instruction emitter used by the compiler
// backend. Instructions are appended to a flat list with unresolved branch
// targets, then Finalize assigns byte addresses and rewrites every branch
// into the relative form the VM executes.
package codegen

import (
	"fmt"

	"github.com/skald-lang/skald/pkg/opcode"
)

// unpatched marks a branch whose target has not been supplied yet. Any
// instruction still carrying it at Finalize time is a compiler fault.
const unpatched = -1

// Instr is one emitted instruction. Operand fields are meaningful per
// opcode; Target holds an instruction index until Finalize rewrites it into
// the encoded relative delta in Int.
type Instr struct {
	Op   opcode.Op
	Qual opcode.Qual

	Int      int32   // CONST I/O value, MOVSP delta, finalized branch delta
	Float    float32 // CONST F value
	Str      string  // CONST S value
	Off      int32   // CPTOPSP/CPDOWNSP/CPTOPBP/CPDOWNBP stack offset
	CopySize uint16  // byte count for the copy instructions
	ActionID uint16  // ACTION routine index
	Argc     uint8   // ACTION argument count

	Target int    // branch target as an instruction index
	Callee string // JSR target function, resolved by name at Finalize

	Addr int32 // byte address, assigned by Finalize
}

// EncodedSize returns the byte size of the instruction in the output stream.
func (in *Instr) EncodedSize() int32 {
	return opcode.EncodedSize(in.Op, in.Qual, len(in.Str))
}

// FuncInfo records where one compiled function lives in the instruction
// list and how much stack its frame exchanges with callers.
type FuncInfo struct {
	Name       string
	Start      int   // index of the first instruction
	End        int   // index one past the last instruction
	StartAddr  int32 // byte address of the first instruction
	EndAddr    int32 // byte address one past the last instruction
	ParamBytes int32
	RetBytes   int32
}

// Program is the finalized output of the emitter: addressed instructions
// with resolved branches plus per-function metadata.
type Program struct {
	Instrs []Instr
	Funcs  []FuncInfo
	Size   int32 // total encoded byte size
}

// FuncByName returns the metadata for a named function.
func (p *Program) FuncByName(name string) (*FuncInfo, bool) {
	for i := range p.Funcs {
		if p.Funcs[i].Name == name {
			return &p.Funcs[i], true
		}
	}
	return nil, false
}

// FuncAt returns the function whose byte range contains addr.
func (p *Program) FuncAt(addr int32) (*FuncInfo, bool) {
	for i := range p.Funcs {
		if addr >= p.Funcs[i].StartAddr && addr < p.Funcs[i].EndAddr {
			return &p.Funcs[i], true
		}
	}
	return nil, false
}

// JumpRef identifies an emitted branch instruction awaiting its target.
type JumpRef struct {
	idx int
}

// Emitter accumulates instructions for one compilation unit.
type Emitter struct {
	instrs []Instr
	funcs  []FuncInfo

	curFunc int // index into funcs, -1 outside any function
}

// New creates an empty Emitter.
func New() *Emitter {
	return &Emitter{curFunc: -1}
}

// Len returns the number of instructions emitted so far.
func (e *Emitter) Len() int {
	return len(e.instrs)
}

// Here returns the index the next emitted instruction will get. It is the
// label value for branches to the current position.
func (e *Emitter) Here() int {
	return len(e.instrs)
}

// At returns a pointer to instruction i for inspection.
func (e *Emitter) At(i int) *Instr {
	return &e.instrs[i]
}

func (e *Emitter) push(in Instr) int {
	e.instrs = append(e.instrs, in)
	return len(e.instrs) - 1
}

// Emit appends a plain instruction with no operands.
func (e *Emitter) Emit(op opcode.Op, q opcode.Qual) int {
	return e.push(Instr{Op: op, Qual: q})
}

// RsAdd reserves a default-initialized slot of the qualifier's type.
func (e *Emitter) RsAdd(q opcode.Qual) int {
	return e.push(Instr{Op: opcode.RsAdd, Qual: q})
}

// ConstInt pushes an integer constant.
func (e *Emitter) ConstInt(v int32) int {
	return e.push(Instr{Op: opcode.Const, Qual: opcode.QInt, Int: v})
}

// ConstFloat pushes a float constant.
func (e *Emitter) ConstFloat(v float32) int {
	return e.push(Instr{Op: opcode.Const, Qual: opcode.QFloat, Float: v})
}

// ConstString pushes a string constant.
func (e *Emitter) ConstString(v string) int {
	return e.push(Instr{Op: opcode.Const, Qual: opcode.QString, Str: v})
}

// ConstObject pushes an object handle constant.
func (e *Emitter) ConstObject(v int32) int {
	return e.push(Instr{Op: opcode.Const, Qual: opcode.QObject, Int: v})
}

// Copy emits one of the four copy instructions with a stack offset and byte
// count. off is relative to SP for the SP forms and to BP for the BP forms,
// and is negative for both.
func (e *Emitter) Copy(op opcode.Op, off int32, size int32) int {
	return e.push(Instr{Op: op, Off: off, CopySize: uint16(size)})
}

// MovSp adjusts the stack pointer by delta bytes. Negative deltas pop.
func (e *Emitter) MovSp(delta int32) int {
	return e.push(Instr{Op: opcode.MovSp, Int: delta})
}

// Action invokes engine routine id with argc arguments already on the stack.
func (e *Emitter) Action(id uint16, argc uint8) int {
	return e.push(Instr{Op: opcode.Action, ActionID: id, Argc: argc})
}

// Jump emits a branch with an unresolved target and returns a reference for
// later patching.
func (e *Emitter) Jump(op opcode.Op) JumpRef {
	idx := e.push(Instr{Op: op, Target: unpatched})
	return JumpRef{idx: idx}
}

// JumpTo emits a branch directly targeting a known instruction index. Used
// for backward branches where the label already exists.
func (e *Emitter) JumpTo(op opcode.Op, target int) int {
	return e.push(Instr{Op: op, Target: target})
}

// Call emits a JSR whose destination is resolved by function name at
// Finalize, so calls may precede the callee's compilation.
func (e *Emitter) Call(name string) int {
	return e.push(Instr{Op: opcode.Jsr, Target: unpatched, Callee: name})
}

// Patch resolves a forward branch to the given instruction index.
func (e *Emitter) Patch(ref JumpRef, target int) {
	e.instrs[ref.idx].Target = target
}

// PatchHere resolves a forward branch to the current position.
func (e *Emitter) PatchHere(ref JumpRef) {
	e.Patch(ref, e.Here())
}

// BeginFunc opens a function region. Instructions emitted until EndFunc
// belong to it.
func (e *Emitter) BeginFunc(name string, paramBytes, retBytes int32) {
	e.funcs = append(e.funcs, FuncInfo{
		Name:       name,
		Start:      len(e.instrs),
		ParamBytes: paramBytes,
		RetBytes:   retBytes,
	})
	e.curFunc = len(e.funcs) - 1
}

// EndFunc closes the currently open function region.
func (e *Emitter) EndFunc() {
	e.funcs[e.curFunc].End = len(e.instrs)
	e.curFunc = -1
}

// Finalize assigns byte addresses in one linear pass, resolves named call
// targets, and rewrites every branch target into the encoded relative delta
// (target address minus branch address). It fails on any branch left
// unpatched and on calls to unknown functions; both indicate a compiler
// fault, not a user error.
func (e *Emitter) Finalize() (*Program, error) {
	addrs := make([]int32, len(e.instrs)+1)
	var addr int32
	for i := range e.instrs {
		addrs[i] = addr
		e.instrs[i].Addr = addr
		addr += e.instrs[i].EncodedSize()
	}
	addrs[len(e.instrs)] = addr

	startByName := make(map[string]int, len(e.funcs))
	for i := range e.funcs {
		f := &e.funcs[i]
		f.StartAddr = addrs[f.Start]
		f.EndAddr = addrs[f.End]
		startByName[f.Name] = f.Start
	}

	for i := range e.instrs {
		in := &e.instrs[i]
		if !opcode.IsJump(in.Op) {
			continue
		}
		if in.Callee != "" {
			start, ok := startByName[in.Callee]
			if !ok {
				return nil, fmt.Errorf("instruction %d: call to unknown function %q", i, in.Callee)
			}
			in.Target = start
		}
		if in.Target == unpatched {
			return nil, fmt.Errorf("instruction %d: %s left unpatched", i, in.Op)
		}
		if in.Target < 0 || in.Target > len(e.instrs) {
			return nil, fmt.Errorf("instruction %d: %s target %d out of range", i, in.Op, in.Target)
		}
		in.Int = addrs[in.Target] - in.Addr
	}

	return &Program{Instrs: e.instrs, Funcs: e.funcs, Size: addr}, nil
}
