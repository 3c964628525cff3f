// Package compiler implements the code-generating backend: it turns a
// parsed program into a finalized instruction stream for the stack VM.
//
// Compilation is two-pass. The first pass registers every function
// signature and global declaration so calls may reference functions defined
// later in the file, including mutual recursion. The second pass emits the
// startup region (global initializers and the entry call) followed by the
// body of every defined function.
package compiler

import (
	"fmt"

	"github.com/skald-lang/skald/pkg/compiler/ast"
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/compiler/symbol"
	"github.com/skald-lang/skald/pkg/compiler/token"
	"github.com/skald-lang/skald/pkg/opcode"
)

// StartFunc names the startup region in the emitted function table.
const StartFunc = "_start"

// Error is a semantic error bound to a source position. File names the unit
// the position refers to and is empty when the error has no useful position,
// such as a missing entry point.
type Error struct {
	Message string
	File    string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("compile error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func errAt(node ast.Node, format string, args ...any) *Error {
	line, col := node.Pos()
	return &Error{Message: fmt.Sprintf(format, args...), Line: line, Column: col}
}

// paramSig is one declared parameter of a script function.
type paramSig struct {
	name string
	typ  symbol.Type
	def  ast.Expression // nil when the parameter is required
}

// funcSig is the registered signature of a script function. decl is nil
// while only a prototype has been seen.
type funcSig struct {
	name   string
	ret    symbol.Type
	params []paramSig
	decl   *ast.FunctionDecl
	at     ast.Node // declaration site for diagnostics
	called bool
}

func (f *funcSig) paramBytes() int32 {
	var total int32
	for _, p := range f.params {
		total += p.typ.Size()
	}
	return total
}

func (f *funcSig) minArgs() int {
	n := 0
	for _, p := range f.params {
		if p.def != nil {
			break
		}
		n++
	}
	return n
}

// global is a file-level variable. frameOffset is its byte offset from the
// start of the globals region; functions address it relative to BP.
type global struct {
	name        string
	typ         symbol.Type
	frameOffset int32
	decl        *ast.VarDecl
}

// Compiler compiles one program into a VM instruction stream.
type Compiler struct {
	routines *symbol.Table

	funcs     map[string]*funcSig
	funcOrder []string

	// curFile is the unit owning the declaration being compiled. Included
	// declarations keep their own file so diagnostics point into the
	// library, not the including unit.
	curFile string

	globals     map[string]*global
	globalOrder []*global
	globalsSize int32

	errors []error
}

// New creates a Compiler resolving engine calls against the given routine
// table. A nil table selects the standard library.
func New(routines *symbol.Table) *Compiler {
	if routines == nil {
		routines = symbol.StandardLibrary()
	}
	return &Compiler{
		routines: routines,
		funcs:    make(map[string]*funcSig),
		globals:  make(map[string]*global),
	}
}

func (c *Compiler) addError(node ast.Node, format string, args ...any) {
	err := errAt(node, format, args...)
	err.File = c.curFile
	c.errors = append(c.errors, err)
}

// declFile returns the origin file of a top-level declaration, or "".
func declFile(n ast.Node) string {
	switch d := n.(type) {
	case *ast.FunctionDecl:
		return d.File
	case *ast.VarDecl:
		return d.File
	}
	return ""
}

// Compile compiles the program with the named function as entry point. The
// returned program begins with the startup region that initializes globals,
// calls the entry function, and leaves its return value (if any) on the
// stack for the host.
func (c *Compiler) Compile(program *ast.Program, entry string) (*codegen.Program, []error) {
	// Pass 1: declarations.
	for _, stmt := range program.Statements {
		c.curFile = declFile(stmt)
		switch d := stmt.(type) {
		case *ast.FunctionDecl:
			c.registerFunc(d)
		case *ast.VarDecl:
			c.registerGlobal(d)
		default:
			c.addError(stmt, "unexpected statement at file level")
		}
	}
	if len(c.errors) > 0 {
		return nil, c.errors
	}

	sig, ok := c.funcs[entry]
	if !ok || sig.decl == nil {
		c.errors = append(c.errors, &Error{Message: fmt.Sprintf("entry point %q is not defined", entry), Line: 1, Column: 1})
		return nil, c.errors
	}
	c.curFile = declFile(sig.at)
	if sig.ret != symbol.Void && sig.ret != symbol.Int {
		c.addError(sig.at, "entry point %q must return void or int, not %s", entry, sig.ret)
	}
	if sig.minArgs() > 0 {
		c.addError(sig.at, "entry point %q cannot require parameters", entry)
	}
	if len(c.errors) > 0 {
		return nil, c.errors
	}

	// Pass 2: code.
	e := codegen.New()
	c.compileStart(e, sig)
	for _, name := range c.funcOrder {
		f := c.funcs[name]
		if f.decl != nil {
			c.curFile = f.decl.File
			c.compileFunction(e, f)
		}
	}
	for _, name := range c.funcOrder {
		f := c.funcs[name]
		if f.called && f.decl == nil {
			c.curFile = declFile(f.at)
			c.addError(f.at, "function %q is called but never defined", name)
		}
	}
	if len(c.errors) > 0 {
		return nil, c.errors
	}

	prog, err := e.Finalize()
	if err != nil {
		c.errors = append(c.errors, fmt.Errorf("internal fault: %w", err))
		return nil, c.errors
	}
	return prog, nil
}

// compileStart emits the startup region: global initializers evaluated
// SP-relative in declaration order, SAVEBP to anchor them for BP-relative
// access, the entry call, then teardown. An entry return value is copied
// below the globals before they are popped so the host finds it on top of
// an otherwise empty stack.
func (c *Compiler) compileStart(e *codegen.Emitter, entry *funcSig) {
	e.BeginFunc(StartFunc, 0, 0)

	fc := &funcCompiler{c: c, e: e, globalMode: true, cur: noBlock}
	fc.cur = fc.scopes.open(noBlock, nil)
	for _, g := range c.globalOrder {
		c.curFile = g.decl.File
		fc.compileGlobalDecl(g)
	}
	c.curFile = declFile(entry.at)

	if c.globalsSize > 0 {
		e.Emit(opcode.SaveBp, opcode.QNone)
	}

	retSize := entry.ret.Size()
	if retSize > 0 {
		e.RsAdd(entry.ret.Qual())
	}
	for _, p := range entry.params {
		fc.compileExprCoerced(p.def, p.typ)
	}
	e.Call(entry.name)
	entry.called = true

	if c.globalsSize > 0 {
		e.Emit(opcode.RestoreBp, opcode.QNone)
		if retSize > 0 {
			e.Copy(opcode.CpDownSp, -(c.globalsSize + retSize), retSize)
		}
		e.MovSp(-c.globalsSize)
	}
	e.Emit(opcode.Retn, opcode.QNone)
	e.EndFunc()
}

// registerFunc records a function signature, merging a prototype with its
// later definition and rejecting mismatches and redefinitions.
func (c *Compiler) registerFunc(decl *ast.FunctionDecl) {
	if decl.ReturnType == token.ACTION_TYPE {
		c.addError(decl, "action type is not supported as the return type of %q", decl.Name)
		return
	}
	ret, ok := symbol.FromToken(decl.ReturnType)
	if !ok {
		c.addError(decl, "invalid return type for %q", decl.Name)
		return
	}

	sig := &funcSig{name: decl.Name, ret: ret, at: decl}
	seenDefault := false
	for _, p := range decl.Params {
		if p.Type == token.ACTION_TYPE {
			c.addError(decl, "action type is not supported for parameter %q of %q", p.Name, decl.Name)
			return
		}
		pt, ok := symbol.FromToken(p.Type)
		if !ok || pt == symbol.Void {
			c.addError(decl, "parameter %q of %q has an invalid type", p.Name, decl.Name)
			return
		}
		if p.Default != nil {
			if !isConstExpr(p.Default) {
				c.addError(p.Default, "default value of parameter %q must be a constant", p.Name)
				return
			}
			seenDefault = true
		} else if seenDefault {
			c.addError(decl, "required parameter %q of %q follows a defaulted one", p.Name, decl.Name)
			return
		}
		sig.params = append(sig.params, paramSig{name: p.Name, typ: pt, def: p.Default})
	}

	if _, isRoutine := c.routines.Resolve(decl.Name); isRoutine {
		c.addError(decl, "%q conflicts with an engine routine", decl.Name)
		return
	}

	prev, exists := c.funcs[decl.Name]
	if !exists {
		if decl.Body != nil {
			sig.decl = decl
		}
		c.funcs[decl.Name] = sig
		c.funcOrder = append(c.funcOrder, decl.Name)
		return
	}

	if !signaturesMatch(prev, sig) {
		c.addError(decl, "declaration of %q does not match its earlier declaration", decl.Name)
		return
	}
	if decl.Body != nil {
		if prev.decl != nil {
			c.addError(decl, "function %q is already defined", decl.Name)
			return
		}
		prev.decl = decl
		prev.params = sig.params // definition's parameter names win
		prev.at = decl
	}
}

func signaturesMatch(a, b *funcSig) bool {
	if a.ret != b.ret || len(a.params) != len(b.params) {
		return false
	}
	for i := range a.params {
		if a.params[i].typ != b.params[i].typ {
			return false
		}
	}
	return true
}

// registerGlobal records a file-level variable and assigns its offset in
// the globals region.
func (c *Compiler) registerGlobal(decl *ast.VarDecl) {
	if decl.Type == token.ACTION_TYPE {
		c.addError(decl, "action type is not supported for global %q", decl.Name)
		return
	}
	t, ok := symbol.FromToken(decl.Type)
	if !ok || t == symbol.Void {
		c.addError(decl, "global %q has an invalid type", decl.Name)
		return
	}
	if _, exists := c.globals[decl.Name]; exists {
		c.addError(decl, "global %q is already declared", decl.Name)
		return
	}
	g := &global{name: decl.Name, typ: t, frameOffset: c.globalsSize, decl: decl}
	c.globals[decl.Name] = g
	c.globalOrder = append(c.globalOrder, g)
	c.globalsSize += t.Size()
}

// isConstExpr reports whether the expression may serve as a parameter
// default: defaults are evaluated at every call site, outside the callee's
// scope, so only literals are permitted.
func isConstExpr(expr ast.Expression) bool {
	switch v := expr.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral, *ast.ObjectConstant:
		return true
	case *ast.PrefixExpression:
		if v.Operator != token.MINUS {
			return false
		}
		switch v.Right.(type) {
		case *ast.IntegerLiteral, *ast.FloatLiteral:
			return true
		}
		return false
	case *ast.VectorLiteral:
		return isConstExpr(v.X) && isConstExpr(v.Y) && isConstExpr(v.Z)
	default:
		return false
	}
}
