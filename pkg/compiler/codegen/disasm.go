package codegen

import (
	"fmt"
	"strings"

	"github.com/skald-lang/skald/pkg/opcode"
)

// String renders the instruction in listing form. Branch operands show the
// relative delta once finalized.
func (in *Instr) String() string {
	mnem := in.Op.String()
	if q := in.Qual.String(); q != "" {
		mnem += "." + q
	}
	switch in.Op {
	case opcode.Const:
		switch in.Qual {
		case opcode.QString:
			return fmt.Sprintf("%s %q", mnem, in.Str)
		case opcode.QFloat:
			return fmt.Sprintf("%s %g", mnem, in.Float)
		default:
			return fmt.Sprintf("%s %d", mnem, in.Int)
		}
	case opcode.CpTopSp, opcode.CpDownSp, opcode.CpTopBp, opcode.CpDownBp:
		return fmt.Sprintf("%s %d, %d", mnem, in.Off, in.CopySize)
	case opcode.MovSp:
		return fmt.Sprintf("%s %d", mnem, in.Int)
	case opcode.Jmp, opcode.Jz, opcode.Jnz:
		return fmt.Sprintf("%s %d", mnem, in.Int)
	case opcode.Jsr:
		if in.Callee != "" {
			return fmt.Sprintf("%s %d (%s)", mnem, in.Int, in.Callee)
		}
		return fmt.Sprintf("%s %d", mnem, in.Int)
	case opcode.Action:
		return fmt.Sprintf("%s %d, %d", mnem, in.ActionID, in.Argc)
	default:
		return mnem
	}
}

// Disassemble renders the whole program as an address-annotated listing
// with function headers.
func (p *Program) Disassemble() string {
	var b strings.Builder
	next := 0
	for i := range p.Instrs {
		for next < len(p.Funcs) && p.Funcs[next].Start == i {
			fmt.Fprintf(&b, "%s:\n", p.Funcs[next].Name)
			next++
		}
		in := &p.Instrs[i]
		fmt.Fprintf(&b, "  %08X  %s\n", in.Addr, in.String())
	}
	return b.String()
}
