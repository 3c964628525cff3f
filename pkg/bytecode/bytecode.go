// Package bytecode serializes finalized programs into the binary container
// the game runtime loads, and decodes such containers back into instruction
// lists for inspection.
//
// The container is a 13-byte header followed by the raw instruction stream:
// an 8-byte signature, one format byte, and the total file size as a
// big-endian uint32. All multi-byte operands are big-endian.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/opcode"
)

// Magic is the 8-byte container signature.
const Magic = "SKC V1.0"

// formatByte follows the signature and marks the header layout in use.
const formatByte = 0x42

// HeaderSize is the byte offset at which the instruction stream starts.
const HeaderSize = 13

// Encode serializes a finalized program into a container image.
func Encode(p *codegen.Program) ([]byte, error) {
	out := make([]byte, HeaderSize, HeaderSize+int(p.Size))
	copy(out, Magic)
	out[8] = formatByte

	for i := range p.Instrs {
		in := &p.Instrs[i]
		if int32(len(out)-HeaderSize) != in.Addr {
			return nil, fmt.Errorf("instruction %d encoded at %d, addressed at %d",
				i, len(out)-HeaderSize, in.Addr)
		}
		var err error
		out, err = appendInstr(out, in)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, in.String(), err)
		}
	}

	if int32(len(out)-HeaderSize) != p.Size {
		return nil, fmt.Errorf("encoded %d code bytes, program declares %d",
			len(out)-HeaderSize, p.Size)
	}
	binary.BigEndian.PutUint32(out[9:13], uint32(len(out)))
	return out, nil
}

func appendInstr(out []byte, in *codegen.Instr) ([]byte, error) {
	out = append(out, byte(in.Op), byte(in.Qual))

	switch in.Op {
	case opcode.Const:
		switch in.Qual {
		case opcode.QInt, opcode.QObject:
			out = binary.BigEndian.AppendUint32(out, uint32(in.Int))
		case opcode.QFloat:
			out = binary.BigEndian.AppendUint32(out, math.Float32bits(in.Float))
		case opcode.QString:
			if len(in.Str) > math.MaxUint16 {
				return nil, fmt.Errorf("string constant of %d bytes exceeds the format limit", len(in.Str))
			}
			out = binary.BigEndian.AppendUint16(out, uint16(len(in.Str)))
			out = append(out, in.Str...)
		default:
			return nil, fmt.Errorf("constant with qualifier %s", in.Qual)
		}
	case opcode.CpTopSp, opcode.CpDownSp, opcode.CpTopBp, opcode.CpDownBp:
		out = binary.BigEndian.AppendUint32(out, uint32(in.Off))
		out = binary.BigEndian.AppendUint16(out, in.CopySize)
	case opcode.MovSp, opcode.Jmp, opcode.Jsr, opcode.Jz, opcode.Jnz:
		out = binary.BigEndian.AppendUint32(out, uint32(in.Int))
	case opcode.Action:
		out = binary.BigEndian.AppendUint16(out, in.ActionID)
		out = append(out, in.Argc)
	}
	return out, nil
}

// Decode parses a container image back into an addressed instruction list.
// Branch operands keep their relative deltas; function boundaries are not
// recorded in the container and are not reconstructed.
func Decode(data []byte) (*codegen.Program, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("image of %d bytes is shorter than the %d-byte header", len(data), HeaderSize)
	}
	if string(data[:8]) != Magic {
		return nil, fmt.Errorf("bad signature %q", data[:8])
	}
	if data[8] != formatByte {
		return nil, fmt.Errorf("unknown format byte 0x%02X", data[8])
	}
	if size := binary.BigEndian.Uint32(data[9:13]); size != uint32(len(data)) {
		return nil, fmt.Errorf("header declares %d bytes, image has %d", size, len(data))
	}

	code := data[HeaderSize:]
	p := &codegen.Program{Size: int32(len(code))}
	for pos := 0; pos < len(code); {
		in, n, err := decodeInstr(code[pos:])
		if err != nil {
			return nil, fmt.Errorf("at code offset %d: %w", pos, err)
		}
		in.Addr = int32(pos)
		p.Instrs = append(p.Instrs, in)
		pos += n
	}
	return p, nil
}

func decodeInstr(code []byte) (codegen.Instr, int, error) {
	var in codegen.Instr
	if len(code) < 2 {
		return in, 0, fmt.Errorf("truncated instruction header")
	}
	in.Op = opcode.Op(code[0])
	in.Qual = opcode.Qual(code[1])
	if in.Op > opcode.Retn {
		return in, 0, fmt.Errorf("unknown opcode 0x%02X", code[0])
	}

	need := func(n int) error {
		if len(code) < 2+n {
			return fmt.Errorf("%s: truncated operand", in.Op)
		}
		return nil
	}

	switch in.Op {
	case opcode.Const:
		switch in.Qual {
		case opcode.QInt, opcode.QObject:
			if err := need(4); err != nil {
				return in, 0, err
			}
			in.Int = int32(binary.BigEndian.Uint32(code[2:6]))
		case opcode.QFloat:
			if err := need(4); err != nil {
				return in, 0, err
			}
			in.Float = math.Float32frombits(binary.BigEndian.Uint32(code[2:6]))
		case opcode.QString:
			if err := need(2); err != nil {
				return in, 0, err
			}
			n := int(binary.BigEndian.Uint16(code[2:4]))
			if err := need(2 + n); err != nil {
				return in, 0, err
			}
			in.Str = string(code[4 : 4+n])
		default:
			return in, 0, fmt.Errorf("constant with qualifier %s", in.Qual)
		}
	case opcode.CpTopSp, opcode.CpDownSp, opcode.CpTopBp, opcode.CpDownBp:
		if err := need(6); err != nil {
			return in, 0, err
		}
		in.Off = int32(binary.BigEndian.Uint32(code[2:6]))
		in.CopySize = binary.BigEndian.Uint16(code[6:8])
	case opcode.MovSp, opcode.Jmp, opcode.Jsr, opcode.Jz, opcode.Jnz:
		if err := need(4); err != nil {
			return in, 0, err
		}
		in.Int = int32(binary.BigEndian.Uint32(code[2:6]))
	case opcode.Action:
		if err := need(3); err != nil {
			return in, 0, err
		}
		in.ActionID = binary.BigEndian.Uint16(code[2:4])
		in.Argc = code[4]
	}
	return in, int(in.EncodedSize()), nil
}
