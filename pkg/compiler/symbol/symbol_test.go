package symbol

import (
	"testing"

	"github.com/skald-lang/skald/pkg/opcode"
)

func TestTypeSize(t *testing.T) {
	tests := []struct {
		typ  Type
		want int32
	}{
		{Void, 0},
		{Int, 4},
		{Float, 4},
		{String, 4},
		{Object, 4},
		{Effect, 4},
		{Vector, 12},
	}
	for _, tt := range tests {
		if got := tt.typ.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b   Type
		want   Type
		wantOK bool
	}{
		{Int, Int, Int, true},
		{Float, Float, Float, true},
		{Int, Float, Float, true},
		{Float, Int, Float, true},
		{String, String, String, true},
		{Int, String, Invalid, false},
		{Object, Float, Invalid, false},
		{Vector, Int, Invalid, false},
	}
	for _, tt := range tests {
		got, ok := Promote(tt.a, tt.b)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Promote(%s, %s) = (%s, %v), want (%s, %v)",
				tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPairQual(t *testing.T) {
	tests := []struct {
		left, right Type
		want        opcode.Qual
		wantOK      bool
	}{
		{Int, Int, opcode.QIntInt, true},
		{Float, Float, opcode.QFloatFloat, true},
		{Int, Float, opcode.QIntFloat, true},
		{Float, Int, opcode.QFloatInt, true},
		{String, String, opcode.QStringString, true},
		{Vector, Vector, opcode.QVectorVector, true},
		{Vector, Float, opcode.QVectorFloat, true},
		{Float, Vector, opcode.QFloatVector, true},
		{Int, String, 0, false},
		{Object, Vector, 0, false},
	}
	for _, tt := range tests {
		got, ok := PairQual(tt.left, tt.right)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PairQual(%s, %s) = (%v, %v), want (%v, %v)",
				tt.left, tt.right, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTableRegisterRejectsDuplicates(t *testing.T) {
	table := NewTable()
	if err := table.Register(Routine{ID: 1, Name: "Foo", Returns: Void}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := table.Register(Routine{ID: 2, Name: "Foo", Returns: Void}); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := table.Register(Routine{ID: 1, Name: "Bar", Returns: Void}); err == nil {
		t.Error("duplicate id accepted")
	}
}

func TestTableRegisterRejectsGapInDefaults(t *testing.T) {
	table := NewTable()
	err := table.Register(Routine{ID: 1, Name: "Bad", Returns: Void, Params: []RoutineParam{
		{Name: "a", Type: Int, Default: intDefault(1)},
		{Name: "b", Type: Int},
	}})
	if err == nil {
		t.Error("required parameter after defaulted one accepted")
	}
}

func TestStandardLibraryLookup(t *testing.T) {
	table := StandardLibrary()

	r, ok := table.Resolve("PrintFloat")
	if !ok {
		t.Fatal("PrintFloat not found")
	}
	if r.MinArgs() != 1 {
		t.Errorf("PrintFloat.MinArgs() = %d, want 1", r.MinArgs())
	}
	if r.ParamBytes() != 8 {
		t.Errorf("PrintFloat.ParamBytes() = %d, want 8", r.ParamBytes())
	}

	r, ok = table.Resolve("SetPosition")
	if !ok {
		t.Fatal("SetPosition not found")
	}
	if r.ParamBytes() != 16 {
		t.Errorf("SetPosition.ParamBytes() = %d, want 16 (object + vector)", r.ParamBytes())
	}

	// lookup is case sensitive
	if _, ok := table.Resolve("printstring"); ok {
		t.Error("lookup should be case sensitive")
	}

	byID, ok := table.ByID(r.ID)
	if !ok || byID.Name != "SetPosition" {
		t.Errorf("ByID(%d) = %v, want SetPosition", r.ID, byID)
	}
}
