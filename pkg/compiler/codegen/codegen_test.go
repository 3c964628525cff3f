package codegen

import (
	"strings"
	"testing"

	"github.com/skald-lang/skald/pkg/opcode"
)

func TestFinalizeAssignsAddresses(t *testing.T) {
	e := New()
	e.BeginFunc("main", 0, 0)
	// ConstInt 6 bytes, Copy 8, MovSp 6, Retn 2
	e.ConstInt(1)
	e.Copy(opcode.CpTopSp, -4, 4)
	e.MovSp(-4)
	e.Emit(opcode.Retn, opcode.QNone)
	e.EndFunc()

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	wantAddrs := []int32{0, 6, 14, 20}
	for i, want := range wantAddrs {
		if p.Instrs[i].Addr != want {
			t.Errorf("instruction %d addr = %d, want %d", i, p.Instrs[i].Addr, want)
		}
	}
	if p.Size != 22 {
		t.Errorf("program size = %d, want 22", p.Size)
	}
}

func TestStringConstantSize(t *testing.T) {
	e := New()
	e.ConstString("hello")
	e.Emit(opcode.Retn, opcode.QNone)

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	// header 2 + length prefix 2 + 5 bytes of data
	if p.Instrs[1].Addr != 9 {
		t.Errorf("RETN addr = %d, want 9", p.Instrs[1].Addr)
	}
}

func TestForwardJumpPatching(t *testing.T) {
	e := New()
	jz := e.Jump(opcode.Jz) // addr 0, 6 bytes
	e.ConstInt(7)           // addr 6, 6 bytes
	e.PatchHere(jz)         // target addr 12
	e.Emit(opcode.Retn, opcode.QNone)

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if p.Instrs[0].Int != 12 {
		t.Errorf("JZ delta = %d, want 12", p.Instrs[0].Int)
	}
}

func TestBackwardJump(t *testing.T) {
	e := New()
	top := e.Here()
	e.ConstInt(1)              // addr 0, 6 bytes
	e.JumpTo(opcode.Jnz, top)  // addr 6, delta should be -6
	e.Emit(opcode.Retn, opcode.QNone)

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if p.Instrs[1].Int != -6 {
		t.Errorf("JNZ delta = %d, want -6", p.Instrs[1].Int)
	}
}

func TestUnpatchedJumpIsAFault(t *testing.T) {
	e := New()
	e.Jump(opcode.Jmp)
	e.Emit(opcode.Retn, opcode.QNone)

	if _, err := e.Finalize(); err == nil {
		t.Fatal("expected an error for the unpatched jump")
	} else if !strings.Contains(err.Error(), "unpatched") {
		t.Errorf("error = %v, want mention of unpatched", err)
	}
}

func TestCallResolution(t *testing.T) {
	e := New()
	e.BeginFunc("main", 0, 0)
	e.Call("helper")                  // addr 0, 6 bytes
	e.Emit(opcode.Retn, opcode.QNone) // addr 6
	e.EndFunc()
	e.BeginFunc("helper", 0, 0)
	e.Emit(opcode.Retn, opcode.QNone) // addr 8
	e.EndFunc()

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if p.Instrs[0].Int != 8 {
		t.Errorf("JSR delta = %d, want 8", p.Instrs[0].Int)
	}

	helper, ok := p.FuncByName("helper")
	if !ok {
		t.Fatal("helper not found in function table")
	}
	if helper.StartAddr != 8 || helper.EndAddr != 10 {
		t.Errorf("helper range = [%d, %d), want [8, 10)", helper.StartAddr, helper.EndAddr)
	}

	if f, ok := p.FuncAt(6); !ok || f.Name != "main" {
		t.Errorf("FuncAt(6) = %v, want main", f)
	}
	if f, ok := p.FuncAt(8); !ok || f.Name != "helper" {
		t.Errorf("FuncAt(8) = %v, want helper", f)
	}
}

func TestCallToUnknownFunctionIsAFault(t *testing.T) {
	e := New()
	e.Call("missing")
	if _, err := e.Finalize(); err == nil {
		t.Fatal("expected an error for the unknown callee")
	} else if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error = %v, want mention of the callee name", err)
	}
}

func TestJumpToSelfHasZeroDelta(t *testing.T) {
	e := New()
	here := e.Here()
	e.JumpTo(opcode.Jmp, here)

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if p.Instrs[0].Int != 0 {
		t.Errorf("self jump delta = %d, want 0", p.Instrs[0].Int)
	}
}

func TestDisassembleListing(t *testing.T) {
	e := New()
	e.BeginFunc("main", 0, 0)
	e.ConstInt(42)
	e.ConstString("hi")
	e.Action(3, 1)
	e.MovSp(-4)
	e.Emit(opcode.Retn, opcode.QNone)
	e.EndFunc()

	p, err := e.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	listing := p.Disassemble()

	for _, want := range []string{
		"main:",
		"CONST.I 42",
		`CONST.S "hi"`,
		"ACTION 3, 1",
		"MOVSP -4",
		"RETN",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}
