// Package vm checks compiled programs against the stack discipline the game
// runtime assumes. The runtime itself trusts its input; the verifier is the
// gate that earns that trust, simulating stack depth over every control-flow
// path and rejecting programs where any branch lands off an instruction
// boundary or any path disagrees about the stack.
package vm

import (
	"fmt"

	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/compiler/symbol"
	"github.com/skald-lang/skald/pkg/opcode"
)

// depthUnknown marks an instruction no path has reached yet.
const depthUnknown = -1

// Error is one verification failure, located by function and byte address.
type Error struct {
	Func    string
	Addr    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s+%08X: %s", e.Func, e.Addr, e.Message)
}

// Verifier checks one program.
type Verifier struct {
	routines *symbol.Table
	prog     *codegen.Program

	byAddr map[int32]int // instruction index by byte address
	errs   []error
}

// NewVerifier creates a verifier resolving ACTION instructions against the
// given routine table. Nil selects the standard library.
func NewVerifier(routines *symbol.Table) *Verifier {
	if routines == nil {
		routines = symbol.StandardLibrary()
	}
	return &Verifier{routines: routines}
}

// Verify checks every function of a finalized program and returns all
// failures found. A nil result means the program is well formed.
func Verify(p *codegen.Program) []error {
	return NewVerifier(nil).Verify(p)
}

// Verify checks every function of a finalized program.
func (v *Verifier) Verify(p *codegen.Program) []error {
	v.prog = p
	v.errs = nil
	v.byAddr = make(map[int32]int, len(p.Instrs))
	for i := range p.Instrs {
		v.byAddr[p.Instrs[i].Addr] = i
	}

	if len(p.Funcs) == 0 && len(p.Instrs) > 0 {
		return []error{&Error{Func: "?", Message: "program has code but no function table"}}
	}
	for i := range p.Funcs {
		v.verifyFunc(&p.Funcs[i])
	}
	return v.errs
}

func (v *Verifier) fail(f *codegen.FuncInfo, addr int32, format string, args ...any) {
	v.errs = append(v.errs, &Error{
		Func:    f.Name,
		Addr:    addr,
		Message: fmt.Sprintf(format, args...),
	})
}

// verifyFunc walks every reachable path through one function with a
// worklist, propagating the stack depth in bytes. The depth at entry is the
// function's parameter bytes; every path reaching the same instruction must
// carry the same depth.
func (v *Verifier) verifyFunc(f *codegen.FuncInfo) {
	if f.Start == f.End {
		v.fail(f, f.StartAddr, "function has no code")
		return
	}

	depths := make([]int32, f.End-f.Start)
	for i := range depths {
		depths[i] = depthUnknown
	}

	work := []int{f.Start}
	depths[0] = f.ParamBytes

	// merge queues idx at the given depth, failing on a depth conflict
	merge := func(from *codegen.Instr, idx int, depth int32) {
		if idx < f.Start || idx >= f.End {
			v.fail(f, from.Addr, "%s leaves the function", from.Op)
			return
		}
		if prev := depths[idx-f.Start]; prev != depthUnknown {
			if prev != depth {
				v.fail(f, v.prog.Instrs[idx].Addr,
					"stack depth mismatch: %d joining paths at %d", depth, prev)
			}
			return
		}
		depths[idx-f.Start] = depth
		work = append(work, idx)
	}

	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		in := &v.prog.Instrs[idx]
		depth := depths[idx-f.Start]

		next, branch, terminal := v.step(f, in, &depth)
		if depth < 0 {
			v.fail(f, in.Addr, "%s underflows the stack", in.Op)
			continue
		}
		if branch {
			target, ok := v.branchTarget(f, in)
			if ok {
				merge(in, target, depth)
			}
		}
		if terminal {
			continue
		}
		if next {
			if idx+1 >= f.End {
				v.fail(f, in.Addr, "function falls off its end")
				continue
			}
			merge(in, idx+1, depth)
		}
	}
}

// branchTarget resolves a branch's encoded byte delta to an instruction
// index, failing when it lands between instructions.
func (v *Verifier) branchTarget(f *codegen.FuncInfo, in *codegen.Instr) (int, bool) {
	addr := in.Addr + in.Int
	idx, ok := v.byAddr[addr]
	if !ok {
		v.fail(f, in.Addr, "%s target %08X is not an instruction boundary", in.Op, addr)
		return 0, false
	}
	return idx, true
}

// step applies one instruction's stack effect. It reports whether execution
// continues to the next instruction, whether it branches, and whether the
// instruction terminates the path.
func (v *Verifier) step(f *codegen.FuncInfo, in *codegen.Instr, depth *int32) (next, branch, terminal bool) {
	switch in.Op {
	case opcode.Nop, opcode.SaveBp, opcode.RestoreBp:

	case opcode.RsAdd, opcode.Const:
		*depth += in.Qual.StackSize()

	case opcode.CpTopSp:
		size := int32(in.CopySize)
		if in.Off >= 0 || -in.Off < size {
			v.fail(f, in.Addr, "CPTOPSP offset %d does not cover its %d-byte read", in.Off, size)
		} else if *depth+in.Off < 0 {
			v.fail(f, in.Addr, "CPTOPSP reads %d bytes below the frame", -(*depth + in.Off))
		}
		*depth += size

	case opcode.CpDownSp:
		size := int32(in.CopySize)
		if in.Off >= 0 || -in.Off < size {
			v.fail(f, in.Addr, "CPDOWNSP offset %d does not cover its %d-byte write", in.Off, size)
		} else if *depth+in.Off < -f.RetBytes {
			// the destination may be the caller's return slot just below
			// the parameters, never deeper
			v.fail(f, in.Addr, "CPDOWNSP writes %d bytes below the return slot", -(*depth + in.Off + f.RetBytes))
		}

	case opcode.CpTopBp:
		// reads the global frame; its extent is the runtime's concern
		*depth += int32(in.CopySize)

	case opcode.CpDownBp:

	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Mod:
		l, r, ok := in.Qual.OperandSizes()
		if !ok {
			v.fail(f, in.Addr, "%s with qualifier %s", in.Op, in.Qual)
			return true, false, false
		}
		*depth -= l + r
		*depth += in.Qual.ResultSize()

	case opcode.BoolAnd, opcode.IncOr, opcode.ExcOr, opcode.ShLeft, opcode.ShRight,
		opcode.LogAnd, opcode.LogOr:
		*depth -= opcode.CellSize

	case opcode.Eq, opcode.Neq, opcode.Lt, opcode.Gt, opcode.Leq, opcode.Geq:
		l, r, ok := in.Qual.OperandSizes()
		if !ok {
			v.fail(f, in.Addr, "%s with qualifier %s", in.Op, in.Qual)
			return true, false, false
		}
		*depth -= l + r
		*depth += opcode.CellSize

	case opcode.Neg, opcode.Not, opcode.Comp:
		// unary, in place

	case opcode.MovSp:
		if in.Int > 0 {
			v.fail(f, in.Addr, "MOVSP grows the stack by %d", in.Int)
		}
		*depth += in.Int

	case opcode.Jmp:
		return false, true, false

	case opcode.Jz, opcode.Jnz:
		*depth -= opcode.CellSize
		return true, true, false

	case opcode.Jsr:
		callee, ok := v.prog.FuncAt(in.Addr + in.Int)
		if !ok || callee.StartAddr != in.Addr+in.Int {
			v.fail(f, in.Addr, "JSR target %08X is not a function entry", in.Addr+in.Int)
			return true, false, false
		}
		if *depth < callee.ParamBytes+callee.RetBytes {
			v.fail(f, in.Addr, "JSR to %s without its %d argument bytes and %d-byte return slot",
				callee.Name, callee.ParamBytes, callee.RetBytes)
		}
		*depth -= callee.ParamBytes

	case opcode.Action:
		r, ok := v.routines.ByID(in.ActionID)
		if !ok {
			v.fail(f, in.Addr, "ACTION %d is not a known routine", in.ActionID)
			return true, false, false
		}
		if int(in.Argc) != len(r.Params) {
			v.fail(f, in.Addr, "ACTION %s with %d arguments, routine takes %d",
				r.Name, in.Argc, len(r.Params))
		}
		*depth -= r.ParamBytes()
		*depth += r.Returns.Size()

	case opcode.Retn:
		if !v.validExitDepth(f, *depth) {
			v.fail(f, in.Addr, "RETN with %d bytes left on the stack", *depth)
		}
		return false, false, true

	default:
		v.fail(f, in.Addr, "unknown opcode 0x%02X", byte(in.Op))
		return false, false, true
	}
	return true, false, false
}

// validExitDepth checks the stack at RETN. Ordinary functions return with
// their whole frame popped. The start region has no caller: it leaves the
// entry point's result, if any, on top for the host.
func (v *Verifier) validExitDepth(f *codegen.FuncInfo, depth int32) bool {
	if depth == 0 {
		return true
	}
	return f.StartAddr == 0 && depth == opcode.CellSize
}
