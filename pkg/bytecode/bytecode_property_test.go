package bytecode

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/opcode"
)

// TestRoundTripProperty checks that decoding an encoded program reproduces
// every operand exactly, for arbitrary constants and string payloads.
func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encode then decode is identity on listings", prop.ForAll(
		func(iv int32, fv float32, s string, off int32, delta int32) bool {
			e := codegen.New()
			e.BeginFunc("f", 0, 0)
			e.ConstInt(iv)
			e.ConstFloat(fv)
			e.ConstString(s)
			e.Copy(opcode.CpTopSp, -(off + 4), 4)
			e.MovSp(-delta)
			e.Emit(opcode.Retn, opcode.QNone)
			e.EndFunc()
			p, err := e.Finalize()
			if err != nil {
				return false
			}

			img, err := Encode(p)
			if err != nil {
				return false
			}
			back, err := Decode(img)
			if err != nil {
				return false
			}
			if len(back.Instrs) != len(p.Instrs) || back.Size != p.Size {
				return false
			}
			for i := range p.Instrs {
				if back.Instrs[i].String() != p.Instrs[i].String() {
					return false
				}
				if back.Instrs[i].Addr != p.Instrs[i].Addr {
					return false
				}
			}
			return true
		},
		gen.Int32(),
		gen.Float32(),
		gen.AlphaString(),
		gen.Int32Range(0, 1024),
		gen.Int32Range(0, 1024),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestSizeFieldProperty checks that the header size field always equals the
// real image length and that the code section length matches the program.
func TestSizeFieldProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("declared size matches encoded size", prop.ForAll(
		func(n int, s string) bool {
			e := codegen.New()
			e.BeginFunc("f", 0, 0)
			for i := 0; i < n; i++ {
				e.ConstInt(int32(i))
				e.MovSp(-4)
			}
			e.ConstString(s)
			e.MovSp(-4)
			e.Emit(opcode.Retn, opcode.QNone)
			e.EndFunc()
			p, err := e.Finalize()
			if err != nil {
				return false
			}

			img, err := Encode(p)
			if err != nil {
				return false
			}
			return len(img) == HeaderSize+int(p.Size)
		},
		gen.IntRange(0, 32),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
