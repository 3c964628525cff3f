// Package symbol defines the value type system and the engine routine table
// shared between the compiler backend and the bytecode verifier.
package symbol

import (
	"github.com/skald-lang/skald/pkg/compiler/token"
	"github.com/skald-lang/skald/pkg/opcode"
)

// Type is a Skald value type.
type Type int

const (
	Invalid Type = iota
	Void
	Int
	Float
	String
	Object
	Vector
	Effect
)

var typeNames = map[Type]string{
	Invalid: "invalid",
	Void:    "void",
	Int:     "int",
	Float:   "float",
	String:  "string",
	Object:  "object",
	Vector:  "vector",
	Effect:  "effect",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Size returns the number of bytes the type occupies on the VM stack.
// Vectors are three float cells; void occupies nothing.
func (t Type) Size() int32 {
	switch t {
	case Void, Invalid:
		return 0
	case Vector:
		return 3 * opcode.CellSize
	default:
		return opcode.CellSize
	}
}

// Qual returns the instruction qualifier carrying this type in a one-operand
// instruction such as RSADD or NEG.
func (t Type) Qual() opcode.Qual {
	switch t {
	case Int:
		return opcode.QInt
	case Float:
		return opcode.QFloat
	case String:
		return opcode.QString
	case Object:
		return opcode.QObject
	case Vector:
		return opcode.QVector
	case Effect:
		return opcode.QEffect
	default:
		return 0
	}
}

// FromToken maps a type keyword to its Type. ok is false for tokens that are
// not type keywords; void maps to Void with ok true.
func FromToken(tt token.Type) (Type, bool) {
	switch tt {
	case token.INT_TYPE:
		return Int, true
	case token.FLOAT_TYPE:
		return Float, true
	case token.STRING_TYPE:
		return String, true
	case token.OBJECT_TYPE:
		return Object, true
	case token.VECTOR_TYPE:
		return Vector, true
	case token.EFFECT_TYPE:
		return Effect, true
	case token.VOID_TYPE:
		return Void, true
	default:
		return Invalid, false
	}
}

// Promote reports the common type of a binary arithmetic operation, applying
// the single implicit conversion the language allows: int widens to float.
// ok is false when the pair has no common arithmetic type.
func Promote(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if (a == Int && b == Float) || (a == Float && b == Int) {
		return Float, true
	}
	return Invalid, false
}

// PairQual returns the two-operand qualifier for a binary instruction whose
// operands have the given types, or ok false when the combination has no
// encoding.
func PairQual(left, right Type) (opcode.Qual, bool) {
	switch {
	case left == Int && right == Int:
		return opcode.QIntInt, true
	case left == Float && right == Float:
		return opcode.QFloatFloat, true
	case left == Int && right == Float:
		return opcode.QIntFloat, true
	case left == Float && right == Int:
		return opcode.QFloatInt, true
	case left == String && right == String:
		return opcode.QStringString, true
	case left == Object && right == Object:
		return opcode.QObjectObject, true
	case left == Effect && right == Effect:
		return opcode.QEffectEffect, true
	case left == Vector && right == Vector:
		return opcode.QVectorVector, true
	case left == Vector && right == Float:
		return opcode.QVectorFloat, true
	case left == Float && right == Vector:
		return opcode.QFloatVector, true
	default:
		return 0, false
	}
}
