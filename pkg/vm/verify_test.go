package vm

import (
	"strings"
	"testing"

	"github.com/skald-lang/skald/pkg/compiler"
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/opcode"
)

func compileSource(t *testing.T, source string) *codegen.Program {
	t.Helper()
	prog, errs := compiler.Compile(source, "test.sks", compiler.Options{})
	if len(errs) != 0 {
		t.Fatalf("compile errors:\n%s", compiler.FormatErrors(errs))
	}
	return prog
}

func TestVerifyCompiledPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"minimal", `void main() {}`},
		{"entry result", `int main() { return 7; }`},
		{"locals and arithmetic", `
void main() {
    int a = 2;
    int b = a * 3 + 1;
    PrintInteger(b);
}`},
		{"globals", `
int counter = 10;
float rate = 0.5;
void main() {
    counter = counter + 1;
    PrintFloat(rate);
}`},
		{"branching", `
void main() {
    int i;
    for (i = 0; i < 5; i = i + 1) {
        if (i == 3) {
            continue;
        }
        PrintInteger(i);
    }
    while (i > 0) {
        i = i - 1;
        if (i == 1) {
            break;
        }
    }
}`},
		{"function calls", `
int Twice(int n) {
    return n + n;
}
void main() {
    PrintInteger(Twice(Twice(5)));
}`},
		{"vectors and strings", `
void main() {
    vector v = [1.0, 2.0, 3.0];
    vector w = v * 2.0;
    PrintFloat(VectorMagnitude(w - v));
    PrintString("done" + "!");
}`},
		{"short circuit", `
void main() {
    int a = 1;
    if (a > 0 && a < 10 || a == 99) {
        PrintInteger(a);
    }
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := Verify(compileSource(t, tt.source)); len(errs) != 0 {
				t.Errorf("verification failed:\n%v", errs)
			}
		})
	}
}

// finalize builds a program from a hand-assembled function.
func finalize(t *testing.T, build func(e *codegen.Emitter)) *codegen.Program {
	t.Helper()
	e := codegen.New()
	build(e)
	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return p
}

func expectFault(t *testing.T, p *codegen.Program, want string) {
	t.Helper()
	errs := Verify(p)
	if len(errs) == 0 {
		t.Fatalf("verifier accepted a malformed program, want %q", want)
	}
	for _, err := range errs {
		if strings.Contains(err.Error(), want) {
			return
		}
	}
	t.Errorf("no error mentions %q, got:\n%v", want, errs)
}

func TestDepthMismatchAtJoin(t *testing.T) {
	// The two paths into RETN disagree: the fall-through pushed a
	// constant the branch path never saw.
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.ConstInt(1)
		skip := e.Jump(opcode.Jz)
		e.ConstInt(2)
		e.PatchHere(skip)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "stack depth mismatch")
}

func TestRetnWithLeftoverStack(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.ConstInt(1)
		e.ConstInt(2)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "RETN with 8 bytes")
}

func TestStartRegionMayLeaveOneCell(t *testing.T) {
	// The function at address zero has no caller; a single int left on
	// top is the entry point's result for the host.
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("_start", 0, 0)
		e.ConstInt(7)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	if errs := Verify(p); len(errs) != 0 {
		t.Errorf("verification failed:\n%v", errs)
	}
}

func TestStackUnderflow(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.MovSp(-8)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "underflows")
}

func TestMovSpMayNotGrow(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.MovSp(8)
		e.MovSp(-8)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "MOVSP grows")
}

func TestJumpOffInstructionBoundary(t *testing.T) {
	// Hand-addressed: the JMP delta lands inside the CONST's operand.
	instrs := []codegen.Instr{
		{Op: opcode.Const, Qual: opcode.QInt, Int: 1, Addr: 0},
		{Op: opcode.Jmp, Int: -3, Addr: 6},
		{Op: opcode.Retn, Addr: 12},
	}
	p := &codegen.Program{
		Instrs: instrs,
		Funcs: []codegen.FuncInfo{{
			Name: "f", Start: 0, End: 3, StartAddr: 0, EndAddr: 14,
		}},
		Size: 14,
	}
	expectFault(t, p, "not an instruction boundary")
}

func TestJsrMustTargetFunctionEntry(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("main", 0, 0)
		e.JumpTo(opcode.Jsr, 2) // into the middle of helper
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
		e.BeginFunc("helper", 0, 0)
		e.ConstInt(1)
		e.MovSp(-4)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "not a function entry")
}

func TestJsrRequiresArgumentBytes(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("main", 0, 0)
		e.Call("helper") // no return slot, no argument pushed
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
		e.BeginFunc("helper", 4, 4)
		e.Copy(opcode.CpTopSp, -4, 4)
		e.Copy(opcode.CpDownSp, -12, 4)
		e.MovSp(-4)
		e.MovSp(-4)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "without its 4 argument bytes")
}

func TestUnknownAction(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.Action(9999, 0)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "not a known routine")
}

func TestActionArgumentCountMismatch(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.ConstInt(1)
		e.Action(1, 3) // PrintInteger takes one argument
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "routine takes 1")
}

func TestFunctionFallsOffEnd(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.ConstInt(1)
		e.MovSp(-4)
		e.EndFunc()
	})
	expectFault(t, p, "falls off its end")
}

func TestCopyBelowFrameRejected(t *testing.T) {
	p := finalize(t, func(e *codegen.Emitter) {
		e.BeginFunc("f", 0, 0)
		e.Copy(opcode.CpTopSp, -4, 4)
		e.MovSp(-4)
		e.Emit(opcode.Retn, opcode.QNone)
		e.EndFunc()
	})
	expectFault(t, p, "below the frame")
}
