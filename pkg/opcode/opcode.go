// Package opcode defines the fixed instruction set for the Skald virtual machine.
// This package is the foundation that both the compiler and the bytecode tools
// depend on: the compiler emits instructions from this set, the encoder
// serializes them, and the verifier checks them.
//
// The ISA is stack based and byte addressed. The runtime stack grows in
// 4-byte cells; int, float, string and object values occupy one cell each,
// a vector occupies three. Every instruction encodes as an opcode byte
// followed by a type-qualifier byte and then any operands, big-endian.
package opcode

import "fmt"

// CellSize is the width of one runtime stack cell in bytes.
const CellSize = 4

// Op is a one-byte opcode.
type Op byte

// The opcode set. The numeric values are part of the on-disk contract and
// must not be reordered.
const (
	Nop Op = iota

	// RsAdd pushes a default value of the qualifier type (reserves a slot).
	RsAdd

	// Const pushes an immediate constant of the qualifier type.
	// Encoded operand: int32 for Int/Object, float32 for Float,
	// uint16 length + raw bytes for String.
	Const

	// CpTopSp copies Size bytes from the stack-pointer-relative Offset
	// (negative, toward the frame) to the top of the stack: a variable read.
	CpTopSp

	// CpDownSp copies the top Size bytes of the stack down to the
	// stack-pointer-relative Offset: an assignment. The copied value stays
	// on top afterwards.
	CpDownSp

	// CpTopBp and CpDownBp are the base-pointer-relative counterparts used
	// for global variables.
	CpTopBp
	CpDownBp

	// SaveBp establishes the global frame: the current stack pointer becomes
	// the base pointer. RestoreBp tears it down.
	SaveBp
	RestoreBp

	// Arithmetic. The qualifier carries the operand type pair.
	Add
	Sub
	Mul
	Div
	Mod
	Neg

	// Bitwise (integer only).
	BoolAnd
	IncOr
	ExcOr
	Comp
	ShLeft
	ShRight

	// Logical. Not turns 0 into 1 and anything else into 0.
	LogAnd
	LogOr
	Not

	// Comparisons push a 0/1 int.
	Eq
	Neq
	Lt
	Gt
	Leq
	Geq

	// MovSp adjusts the stack pointer by the signed byte count in Disp
	// (negative pops). Scope cleanup compiles to this.
	MovSp

	// Control transfer. The int32 operand is the signed byte delta between
	// this instruction's address and the target's address.
	Jmp
	Jsr
	Jz  // pops an int, jumps when it is zero
	Jnz // pops an int, jumps when it is non-zero

	// Action invokes an engine routine by its stable numeric identifier.
	// The routine pops its own arguments and pushes its result.
	Action

	// Retn returns from a Jsr.
	Retn
)

var opNames = map[Op]string{
	Nop:       "NOP",
	RsAdd:     "RSADD",
	Const:     "CONST",
	CpTopSp:   "CPTOPSP",
	CpDownSp:  "CPDOWNSP",
	CpTopBp:   "CPTOPBP",
	CpDownBp:  "CPDOWNBP",
	SaveBp:    "SAVEBP",
	RestoreBp: "RESTOREBP",
	Add:       "ADD",
	Sub:       "SUB",
	Mul:       "MUL",
	Div:       "DIV",
	Mod:       "MOD",
	Neg:       "NEG",
	BoolAnd:   "BOOLAND",
	IncOr:     "INCOR",
	ExcOr:     "EXCOR",
	Comp:      "COMP",
	ShLeft:    "SHLEFT",
	ShRight:   "SHRIGHT",
	LogAnd:    "LOGAND",
	LogOr:     "LOGOR",
	Not:       "NOT",
	Eq:        "EQ",
	Neq:       "NEQ",
	Lt:        "LT",
	Gt:        "GT",
	Leq:       "LEQ",
	Geq:       "GEQ",
	MovSp:     "MOVSP",
	Jmp:       "JMP",
	Jsr:       "JSR",
	Jz:        "JZ",
	Jnz:       "JNZ",
	Action:    "ACTION",
	Retn:      "RETN",
}

// String returns the mnemonic for the opcode.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OP(0x%02X)", byte(o))
}

// Qual is the one-byte type qualifier carried by every instruction.
// For unary instructions it names the operand type, for binary instructions
// the operand type pair.
type Qual byte

const (
	QNone Qual = 0x00

	// Single-type qualifiers.
	QInt    Qual = 0x03
	QFloat  Qual = 0x04
	QString Qual = 0x05
	QObject Qual = 0x06
	QVector Qual = 0x10
	QEffect Qual = 0x11

	// Type-pair qualifiers for binary instructions.
	QIntInt       Qual = 0x20
	QFloatFloat   Qual = 0x21
	QObjectObject Qual = 0x22
	QStringString Qual = 0x23
	QIntFloat     Qual = 0x25
	QFloatInt     Qual = 0x26
	QEffectEffect Qual = 0x30
	QVectorVector Qual = 0x3A
	QVectorFloat  Qual = 0x3B
	QFloatVector  Qual = 0x3C
)

var qualNames = map[Qual]string{
	QNone:         "",
	QInt:          "I",
	QFloat:        "F",
	QString:       "S",
	QObject:       "O",
	QVector:       "V",
	QEffect:       "E",
	QIntInt:       "II",
	QFloatFloat:   "FF",
	QObjectObject: "OO",
	QStringString: "SS",
	QIntFloat:     "IF",
	QFloatInt:     "FI",
	QEffectEffect: "EE",
	QVectorVector: "VV",
	QVectorFloat:  "VF",
	QFloatVector:  "FV",
}

// String returns the qualifier suffix used in disassembly listings.
func (q Qual) String() string {
	if name, ok := qualNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Q(0x%02X)", byte(q))
}

// StackSize returns the pushed size in bytes for a single-type qualifier.
func (q Qual) StackSize() int32 {
	if q == QVector {
		return 3 * CellSize
	}
	return CellSize
}

// OperandSizes returns the stack sizes of the left and right operands for a
// type-pair qualifier, and whether the qualifier is a known pair.
func (q Qual) OperandSizes() (left, right int32, ok bool) {
	switch q {
	case QIntInt, QFloatFloat, QObjectObject, QStringString, QIntFloat, QFloatInt, QEffectEffect:
		return CellSize, CellSize, true
	case QVectorVector:
		return 3 * CellSize, 3 * CellSize, true
	case QVectorFloat:
		return 3 * CellSize, CellSize, true
	case QFloatVector:
		return CellSize, 3 * CellSize, true
	}
	return 0, 0, false
}

// ResultSize returns the pushed size in bytes of an arithmetic result for a
// type-pair qualifier. Comparisons always push one int cell regardless.
func (q Qual) ResultSize() int32 {
	switch q {
	case QVectorVector, QVectorFloat, QFloatVector:
		return 3 * CellSize
	default:
		return CellSize
	}
}

// EncodedSize returns the number of bytes the instruction occupies in the
// encoded stream. strLen is the byte length of the string operand and is
// only consulted for CONST S.
func EncodedSize(op Op, q Qual, strLen int) int32 {
	const header = 2 // opcode byte + qualifier byte
	switch op {
	case Const:
		if q == QString {
			return header + 2 + int32(strLen)
		}
		return header + 4
	case CpTopSp, CpDownSp, CpTopBp, CpDownBp:
		return header + 4 + 2
	case MovSp, Jmp, Jsr, Jz, Jnz:
		return header + 4
	case Action:
		return header + 2 + 1
	default:
		return header
	}
}

// IsJump reports whether the opcode carries a relative branch operand.
func IsJump(op Op) bool {
	switch op {
	case Jmp, Jsr, Jz, Jnz:
		return true
	}
	return false
}
