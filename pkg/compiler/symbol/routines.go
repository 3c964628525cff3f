package symbol

import "fmt"

// DefaultValue is a compile-time constant usable as a routine parameter
// default. Exactly one field is meaningful, selected by Type.
type DefaultValue struct {
	Type  Type
	Int   int32
	Float float32
	Str   string
}

// RoutineParam describes one declared parameter of an engine routine.
type RoutineParam struct {
	Name    string
	Type    Type
	Default *DefaultValue // nil when the caller must supply the argument
}

// Routine is an engine-provided builtin invoked with the ACTION instruction.
// ID is the index the VM dispatches on.
type Routine struct {
	ID      uint16
	Name    string
	Returns Type
	Params  []RoutineParam
}

// MinArgs returns the number of leading parameters without defaults.
func (r *Routine) MinArgs() int {
	n := 0
	for _, p := range r.Params {
		if p.Default != nil {
			break
		}
		n++
	}
	return n
}

// ParamBytes returns the total stack size of all parameters.
func (r *Routine) ParamBytes() int32 {
	var total int32
	for _, p := range r.Params {
		total += p.Type.Size()
	}
	return total
}

// Table holds the engine routines available to compiled scripts. Lookup is
// by exact name.
type Table struct {
	byName map[string]*Routine
	byID   map[uint16]*Routine
}

// NewTable creates an empty routine table.
func NewTable() *Table {
	return &Table{
		byName: make(map[string]*Routine),
		byID:   make(map[uint16]*Routine),
	}
}

// Register adds a routine to the table. Defaults must form a trailing run;
// a required parameter after a defaulted one is a registration error, as is
// a duplicate name or ID.
func (t *Table) Register(r Routine) error {
	if _, exists := t.byName[r.Name]; exists {
		return fmt.Errorf("routine %q already registered", r.Name)
	}
	if prev, exists := t.byID[r.ID]; exists {
		return fmt.Errorf("routine id %d already used by %q", r.ID, prev.Name)
	}
	seenDefault := false
	for _, p := range r.Params {
		if p.Default != nil {
			seenDefault = true
		} else if seenDefault {
			return fmt.Errorf("routine %q: required parameter %q follows a defaulted one", r.Name, p.Name)
		}
	}
	stored := r
	t.byName[r.Name] = &stored
	t.byID[r.ID] = &stored
	return nil
}

// Resolve looks a routine up by name.
func (t *Table) Resolve(name string) (*Routine, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// ByID looks a routine up by dispatch index.
func (t *Table) ByID(id uint16) (*Routine, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// Len returns the number of registered routines.
func (t *Table) Len() int {
	return len(t.byName)
}

func intDefault(v int32) *DefaultValue { return &DefaultValue{Type: Int, Int: v} }

func floatDefault(v float32) *DefaultValue { return &DefaultValue{Type: Float, Float: v} }

func stringDefault(v string) *DefaultValue { return &DefaultValue{Type: String, Str: v} }

// StandardLibrary returns the routine table the engine exposes by default.
// IDs are frozen; new routines append only.
func StandardLibrary() *Table {
	t := NewTable()
	routines := []Routine{
		{ID: 0, Name: "PrintString", Returns: Void, Params: []RoutineParam{
			{Name: "sMessage", Type: String},
		}},
		{ID: 1, Name: "PrintInteger", Returns: Void, Params: []RoutineParam{
			{Name: "nValue", Type: Int},
		}},
		{ID: 2, Name: "PrintFloat", Returns: Void, Params: []RoutineParam{
			{Name: "fValue", Type: Float},
			{Name: "nDecimals", Type: Int, Default: intDefault(4)},
		}},
		{ID: 3, Name: "IntToString", Returns: String, Params: []RoutineParam{
			{Name: "nValue", Type: Int},
		}},
		{ID: 4, Name: "IntToFloat", Returns: Float, Params: []RoutineParam{
			{Name: "nValue", Type: Int},
		}},
		{ID: 5, Name: "FloatToInt", Returns: Int, Params: []RoutineParam{
			{Name: "fValue", Type: Float},
		}},
		{ID: 6, Name: "FloatToString", Returns: String, Params: []RoutineParam{
			{Name: "fValue", Type: Float},
			{Name: "nWidth", Type: Int, Default: intDefault(18)},
			{Name: "nDecimals", Type: Int, Default: intDefault(9)},
		}},
		{ID: 7, Name: "StringToInt", Returns: Int, Params: []RoutineParam{
			{Name: "sValue", Type: String},
		}},
		{ID: 8, Name: "StringLength", Returns: Int, Params: []RoutineParam{
			{Name: "sValue", Type: String},
		}},
		{ID: 9, Name: "GetSubString", Returns: String, Params: []RoutineParam{
			{Name: "sValue", Type: String},
			{Name: "nStart", Type: Int},
			{Name: "nCount", Type: Int},
		}},
		{ID: 10, Name: "Random", Returns: Int, Params: []RoutineParam{
			{Name: "nMaxInteger", Type: Int},
		}},
		{ID: 11, Name: "GetObjectByTag", Returns: Object, Params: []RoutineParam{
			{Name: "sTag", Type: String},
			{Name: "nNth", Type: Int, Default: intDefault(0)},
		}},
		{ID: 12, Name: "GetIsObjectValid", Returns: Int, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
		}},
		{ID: 13, Name: "GetTag", Returns: String, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
		}},
		{ID: 14, Name: "GetPosition", Returns: Vector, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
		}},
		{ID: 15, Name: "SetPosition", Returns: Void, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
			{Name: "vPosition", Type: Vector},
		}},
		{ID: 16, Name: "VectorMagnitude", Returns: Float, Params: []RoutineParam{
			{Name: "vValue", Type: Vector},
		}},
		{ID: 17, Name: "VectorNormalize", Returns: Vector, Params: []RoutineParam{
			{Name: "vValue", Type: Vector},
		}},
		{ID: 18, Name: "GetDistanceBetween", Returns: Float, Params: []RoutineParam{
			{Name: "oA", Type: Object},
			{Name: "oB", Type: Object},
		}},
		{ID: 19, Name: "EffectDamage", Returns: Effect, Params: []RoutineParam{
			{Name: "nAmount", Type: Int},
		}},
		{ID: 20, Name: "EffectHeal", Returns: Effect, Params: []RoutineParam{
			{Name: "nAmount", Type: Int},
		}},
		{ID: 21, Name: "ApplyEffect", Returns: Void, Params: []RoutineParam{
			{Name: "eEffect", Type: Effect},
			{Name: "oTarget", Type: Object},
			{Name: "fDuration", Type: Float, Default: floatDefault(0.0)},
		}},
		{ID: 22, Name: "SendMessage", Returns: Void, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
			{Name: "sMessage", Type: String},
			{Name: "nChannel", Type: Int, Default: intDefault(0)},
		}},
		{ID: 23, Name: "GetLocalInt", Returns: Int, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
			{Name: "sVarName", Type: String},
		}},
		{ID: 24, Name: "SetLocalInt", Returns: Void, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
			{Name: "sVarName", Type: String},
			{Name: "nValue", Type: Int},
		}},
		{ID: 25, Name: "GetName", Returns: String, Params: []RoutineParam{
			{Name: "oTarget", Type: Object},
			{Name: "sDefault", Type: String, Default: stringDefault("")},
		}},
		{ID: 26, Name: "Sqrt", Returns: Float, Params: []RoutineParam{
			{Name: "fValue", Type: Float},
		}},
		{ID: 27, Name: "Abs", Returns: Int, Params: []RoutineParam{
			{Name: "nValue", Type: Int},
		}},
		{ID: 28, Name: "Fabs", Returns: Float, Params: []RoutineParam{
			{Name: "fValue", Type: Float},
		}},
	}
	for _, r := range routines {
		if err := t.Register(r); err != nil {
			panic(err)
		}
	}
	return t
}
