package compiler

import (
	"github.com/skald-lang/skald/pkg/compiler/ast"
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/compiler/symbol"
	"github.com/skald-lang/skald/pkg/compiler/token"
	"github.com/skald-lang/skald/pkg/opcode"
)

// funcCompiler holds the per-function state: the scope tree, the current
// block, and curDepth, the number of bytes the runtime stack holds above
// the frame base at the current program point. Every statement must leave
// curDepth exactly where it found it plus its own declarations; Finalize
// of a function asserts the invariant.
//
// In globalMode the same machinery compiles the file-level initializers:
// globals are locals of the startup region's root block, addressed
// SP-relative like any other local until SAVEBP anchors them.
type funcCompiler struct {
	c *Compiler
	e *codegen.Emitter

	sig        *funcSig // nil in globalMode
	scopes     scopeTree
	cur        blockID
	curDepth   int32
	globalMode bool

	epilogue []codegen.JumpRef // return statements jump here
}

// compileFunction emits one defined function: parameters bound below the
// frame base, the body, and a single shared epilogue that pops the
// parameters before RETN.
func (c *Compiler) compileFunction(e *codegen.Emitter, sig *funcSig) {
	fc := &funcCompiler{c: c, e: e, sig: sig, cur: noBlock}
	root := fc.scopes.open(noBlock, nil)
	fc.cur = root

	off := -sig.paramBytes()
	for _, p := range sig.params {
		fc.scopes.declare(root, &local{
			name:        p.name,
			typ:         p.typ,
			frameOffset: off,
			isParam:     true,
		})
		off += p.typ.Size()
	}

	e.BeginFunc(sig.name, sig.paramBytes(), sig.ret.Size())
	fc.compileScopedStatement(sig.decl.Body, nil)

	if len(c.errors) == 0 && fc.curDepth != 0 {
		c.addError(sig.decl, "internal fault: %q ends with unbalanced stack depth %d", sig.name, fc.curDepth)
	}
	if sig.ret != symbol.Void && !terminates(sig.decl.Body) {
		c.addError(sig.decl, "function %q must return %s on every path", sig.name, sig.ret)
	}

	for _, ref := range fc.epilogue {
		e.PatchHere(ref)
	}
	if pb := sig.paramBytes(); pb > 0 {
		e.MovSp(-pb)
	}
	e.Emit(opcode.Retn, opcode.QNone)
	e.EndFunc()
}

// compileGlobalDecl compiles one file-level initializer in the startup
// region. The declared slot stays on the stack; its SP-relative offset must
// agree with the one assigned at registration.
func (fc *funcCompiler) compileGlobalDecl(g *global) {
	if g.decl.Init != nil {
		fc.compileExprCoerced(g.decl.Init, g.typ)
	} else {
		fc.e.RsAdd(g.typ.Qual())
		fc.curDepth += g.typ.Size()
	}
	fc.scopes.declare(fc.cur, &local{
		name:        g.name,
		typ:         g.typ,
		frameOffset: g.frameOffset,
	})
}

// compileScopedStatement compiles stmt inside a fresh block and pops the
// block's locals on the way out. A block statement contributes its children
// directly so it does not nest twice; any other statement form is compiled
// as the block's single child.
func (fc *funcCompiler) compileScopedStatement(stmt ast.Statement, loop *loopCtx) {
	prev := fc.cur
	fc.cur = fc.scopes.open(prev, loop)

	if blk, ok := stmt.(*ast.BlockStatement); ok {
		for _, s := range blk.Statements {
			fc.compileStatement(s)
		}
	} else if stmt != nil {
		fc.compileStatement(stmt)
	}

	if sz := fc.scopes.at(fc.cur).localSize; sz > 0 {
		fc.e.MovSp(-sz)
		fc.curDepth -= sz
	}
	fc.cur = prev
}

func (fc *funcCompiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		fc.compileVarDecl(s)
	case *ast.BlockStatement:
		fc.compileScopedStatement(s, nil)
	case *ast.ExpressionStatement:
		fc.compileExpressionStatement(s)
	case *ast.IfStatement:
		fc.compileIf(s)
	case *ast.WhileStatement:
		fc.compileWhile(s)
	case *ast.DoWhileStatement:
		fc.compileDoWhile(s)
	case *ast.ForStatement:
		fc.compileFor(s)
	case *ast.BreakStatement:
		fc.compileBreak(s)
	case *ast.ContinueStatement:
		fc.compileContinue(s)
	case *ast.ReturnStatement:
		fc.compileReturn(s)
	default:
		fc.c.addError(stmt, "internal fault: unhandled statement %T", stmt)
	}
}

func (fc *funcCompiler) compileVarDecl(decl *ast.VarDecl) {
	if decl.Type == token.ACTION_TYPE {
		fc.c.addError(decl, "action type is not supported for variable %q", decl.Name)
		return
	}
	t, ok := symbol.FromToken(decl.Type)
	if !ok || t == symbol.Void {
		fc.c.addError(decl, "variable %q has an invalid type", decl.Name)
		return
	}

	slotOffset := fc.curDepth
	if decl.Init != nil {
		fc.compileExprCoerced(decl.Init, t)
	} else {
		fc.e.RsAdd(t.Qual())
		fc.curDepth += t.Size()
	}

	ok = fc.scopes.declare(fc.cur, &local{
		name:        decl.Name,
		typ:         t,
		frameOffset: slotOffset,
	})
	if !ok {
		fc.c.addError(decl, "variable %q is already declared in this block", decl.Name)
	}
}

func (fc *funcCompiler) compileExpressionStatement(stmt *ast.ExpressionStatement) {
	if stmt.Expression == nil {
		return
	}
	t := fc.compileExpr(stmt.Expression)
	if sz := t.Size(); sz > 0 {
		fc.e.MovSp(-sz)
		fc.curDepth -= sz
	}
}

func (fc *funcCompiler) compileCondition(expr ast.Expression) {
	t := fc.compileExpr(expr)
	if t != symbol.Int && t != symbol.Invalid {
		fc.c.addError(expr, "condition must be int, got %s", t)
	}
}

func (fc *funcCompiler) compileIf(stmt *ast.IfStatement) {
	fc.compileCondition(stmt.Condition)
	jz := fc.e.Jump(opcode.Jz)
	fc.curDepth -= opcode.CellSize

	fc.compileScopedStatement(stmt.Consequence, nil)

	if stmt.Alternative != nil {
		end := fc.e.Jump(opcode.Jmp)
		fc.e.PatchHere(jz)
		fc.compileScopedStatement(stmt.Alternative, nil)
		fc.e.PatchHere(end)
	} else {
		fc.e.PatchHere(jz)
	}
}

func (fc *funcCompiler) compileWhile(stmt *ast.WhileStatement) {
	cond := fc.e.Here()
	fc.compileCondition(stmt.Condition)
	exit := fc.e.Jump(opcode.Jz)
	fc.curDepth -= opcode.CellSize

	loop := &loopCtx{}
	fc.compileScopedStatement(stmt.Body, loop)

	for _, ref := range loop.continues {
		fc.e.Patch(ref, cond)
	}
	fc.e.JumpTo(opcode.Jmp, cond)
	fc.e.PatchHere(exit)
	for _, ref := range loop.breaks {
		fc.e.PatchHere(ref)
	}
}

func (fc *funcCompiler) compileDoWhile(stmt *ast.DoWhileStatement) {
	top := fc.e.Here()
	loop := &loopCtx{}
	fc.compileScopedStatement(stmt.Body, loop)

	for _, ref := range loop.continues {
		fc.e.PatchHere(ref)
	}
	fc.compileCondition(stmt.Condition)
	fc.e.JumpTo(opcode.Jnz, top)
	fc.curDepth -= opcode.CellSize
	for _, ref := range loop.breaks {
		fc.e.PatchHere(ref)
	}
}

// compileFor wraps the whole loop in its own block so an init declaration
// lives across iterations but dies with the loop. break and continue pop
// only the body's locals; the wrapper's are popped by the wrapper's close.
func (fc *funcCompiler) compileFor(stmt *ast.ForStatement) {
	prev := fc.cur
	fc.cur = fc.scopes.open(prev, nil)

	if stmt.Init != nil {
		fc.compileStatement(stmt.Init)
	}

	cond := fc.e.Here()
	var exit codegen.JumpRef
	hasExit := false
	if stmt.Condition != nil {
		fc.compileCondition(stmt.Condition)
		exit = fc.e.Jump(opcode.Jz)
		fc.curDepth -= opcode.CellSize
		hasExit = true
	}

	loop := &loopCtx{}
	fc.compileScopedStatement(stmt.Body, loop)

	for _, ref := range loop.continues {
		fc.e.PatchHere(ref)
	}
	if stmt.Post != nil {
		t := fc.compileExpr(stmt.Post)
		if sz := t.Size(); sz > 0 {
			fc.e.MovSp(-sz)
			fc.curDepth -= sz
		}
	}
	fc.e.JumpTo(opcode.Jmp, cond)

	if hasExit {
		fc.e.PatchHere(exit)
	}
	for _, ref := range loop.breaks {
		fc.e.PatchHere(ref)
	}

	if sz := fc.scopes.at(fc.cur).localSize; sz > 0 {
		fc.e.MovSp(-sz)
		fc.curDepth -= sz
	}
	fc.cur = prev
}

// compileBreak pops the locals of every block between here and the loop
// body inclusive, then branches to the loop's exit. The pop is emitted on
// the branch path only, so curDepth is not adjusted.
func (fc *funcCompiler) compileBreak(stmt *ast.BreakStatement) {
	loop, body, ok := fc.scopes.enclosingLoop(fc.cur)
	if !ok {
		fc.c.addError(stmt, "break outside of a loop")
		return
	}
	if sz := fc.scopes.cleanupSize(fc.cur, body); sz > 0 {
		fc.e.MovSp(-sz)
	}
	loop.breaks = append(loop.breaks, fc.e.Jump(opcode.Jmp))
}

func (fc *funcCompiler) compileContinue(stmt *ast.ContinueStatement) {
	loop, body, ok := fc.scopes.enclosingLoop(fc.cur)
	if !ok {
		fc.c.addError(stmt, "continue outside of a loop")
		return
	}
	if sz := fc.scopes.cleanupSize(fc.cur, body); sz > 0 {
		fc.e.MovSp(-sz)
	}
	loop.continues = append(loop.continues, fc.e.Jump(opcode.Jmp))
}

// compileReturn writes the return value into the caller-reserved slot below
// the parameters, unwinds to the frame base, and branches to the shared
// epilogue. The emitted pops run on the return path only.
func (fc *funcCompiler) compileReturn(stmt *ast.ReturnStatement) {
	if fc.sig == nil {
		fc.c.addError(stmt, "return outside of a function")
		return
	}

	entryDepth := fc.curDepth
	retSize := fc.sig.ret.Size()

	if stmt.Value != nil {
		if fc.sig.ret == symbol.Void {
			fc.c.addError(stmt, "void function %q cannot return a value", fc.sig.name)
			return
		}
		fc.compileExprCoerced(stmt.Value, fc.sig.ret)
		fc.e.Copy(opcode.CpDownSp, -(fc.curDepth + fc.sig.paramBytes() + retSize), retSize)
	} else if fc.sig.ret != symbol.Void {
		fc.c.addError(stmt, "function %q must return %s", fc.sig.name, fc.sig.ret)
		return
	}

	if fc.curDepth > 0 {
		fc.e.MovSp(-fc.curDepth)
	}
	fc.epilogue = append(fc.epilogue, fc.e.Jump(opcode.Jmp))
	fc.curDepth = entryDepth
}

// terminates reports whether control cannot flow past the statement. The
// analysis is conservative: loops and calls never count as terminating.
func terminates(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStatement:
		return true
	case *ast.BlockStatement:
		for _, child := range s.Statements {
			if terminates(child) {
				return true
			}
		}
		return false
	case *ast.IfStatement:
		return s.Alternative != nil && terminates(s.Consequence) && terminates(s.Alternative)
	default:
		return false
	}
}

// compileExpr compiles an expression, leaves its value on the stack, and
// returns its type. Invalid is returned after a reported error; callers
// treat it as already-diagnosed and stay quiet.
func (fc *funcCompiler) compileExpr(expr ast.Expression) symbol.Type {
	switch ex := expr.(type) {
	case *ast.IntegerLiteral:
		fc.e.ConstInt(ex.Value)
		fc.curDepth += opcode.CellSize
		return symbol.Int
	case *ast.FloatLiteral:
		fc.e.ConstFloat(ex.Value)
		fc.curDepth += opcode.CellSize
		return symbol.Float
	case *ast.StringLiteral:
		fc.e.ConstString(ex.Value)
		fc.curDepth += opcode.CellSize
		return symbol.String
	case *ast.ObjectConstant:
		fc.e.ConstObject(ex.Value)
		fc.curDepth += opcode.CellSize
		return symbol.Object
	case *ast.VectorLiteral:
		fc.compileExprCoerced(ex.X, symbol.Float)
		fc.compileExprCoerced(ex.Y, symbol.Float)
		fc.compileExprCoerced(ex.Z, symbol.Float)
		return symbol.Vector
	case *ast.Identifier:
		return fc.compileIdentifier(ex)
	case *ast.AssignExpression:
		return fc.compileAssign(ex)
	case *ast.PrefixExpression:
		return fc.compilePrefix(ex)
	case *ast.InfixExpression:
		return fc.compileInfix(ex)
	case *ast.CallExpression:
		return fc.compileCall(ex)
	default:
		fc.c.addError(expr, "internal fault: unhandled expression %T", expr)
		return symbol.Invalid
	}
}

// compileExprCoerced compiles expr where a value of type want is required.
// The only implicit widening is a literal int in float position; everything
// else must match exactly.
func (fc *funcCompiler) compileExprCoerced(expr ast.Expression, want symbol.Type) {
	if want == symbol.Float {
		if v, ok := intLiteralValue(expr); ok {
			fc.e.ConstFloat(float32(v))
			fc.curDepth += opcode.CellSize
			return
		}
	}
	got := fc.compileExpr(expr)
	if got != want && got != symbol.Invalid {
		fc.c.addError(expr, "type mismatch: expected %s, got %s", want, got)
	}
}

// intLiteralValue unwraps an optionally negated integer literal.
func intLiteralValue(expr ast.Expression) (int32, bool) {
	switch v := expr.(type) {
	case *ast.IntegerLiteral:
		return v.Value, true
	case *ast.PrefixExpression:
		if v.Operator == token.MINUS {
			if lit, ok := v.Right.(*ast.IntegerLiteral); ok {
				return -lit.Value, true
			}
		}
	}
	return 0, false
}

// compileIdentifier pushes a copy of the named variable. Locals and
// parameters copy SP-relative; globals copy BP-relative, except in the
// startup region where globals are still ordinary stack slots.
func (fc *funcCompiler) compileIdentifier(ident *ast.Identifier) symbol.Type {
	if l, ok := fc.scopes.resolve(fc.cur, ident.Value); ok {
		sz := l.typ.Size()
		fc.e.Copy(opcode.CpTopSp, l.frameOffset-fc.curDepth, sz)
		fc.curDepth += sz
		return l.typ
	}
	if !fc.globalMode {
		if g, ok := fc.c.globals[ident.Value]; ok {
			sz := g.typ.Size()
			fc.e.Copy(opcode.CpTopBp, g.frameOffset-fc.c.globalsSize, sz)
			fc.curDepth += sz
			return g.typ
		}
	}
	fc.c.addError(ident, "undefined variable %q", ident.Value)
	return symbol.Invalid
}

// compileAssign stores into a variable and leaves the value on the stack as
// the expression's result.
func (fc *funcCompiler) compileAssign(assign *ast.AssignExpression) symbol.Type {
	name := assign.Name.Value

	if l, ok := fc.scopes.resolve(fc.cur, name); ok {
		fc.compileExprCoerced(assign.Value, l.typ)
		fc.e.Copy(opcode.CpDownSp, l.frameOffset-fc.curDepth, l.typ.Size())
		return l.typ
	}
	if !fc.globalMode {
		if g, ok := fc.c.globals[name]; ok {
			fc.compileExprCoerced(assign.Value, g.typ)
			fc.e.Copy(opcode.CpDownBp, g.frameOffset-fc.c.globalsSize, g.typ.Size())
			return g.typ
		}
	}
	fc.c.addError(assign.Name, "undefined variable %q", name)
	return symbol.Invalid
}

func (fc *funcCompiler) compilePrefix(expr *ast.PrefixExpression) symbol.Type {
	t := fc.compileExpr(expr.Right)
	if t == symbol.Invalid {
		return symbol.Invalid
	}

	switch expr.Operator {
	case token.MINUS:
		switch t {
		case symbol.Int:
			fc.e.Emit(opcode.Neg, opcode.QInt)
			return symbol.Int
		case symbol.Float:
			fc.e.Emit(opcode.Neg, opcode.QFloat)
			return symbol.Float
		}
		fc.c.addError(expr, "cannot negate %s", t)
	case token.NOT:
		if t == symbol.Int {
			fc.e.Emit(opcode.Not, opcode.QInt)
			return symbol.Int
		}
		fc.c.addError(expr, "operator ! requires int, got %s", t)
	case token.TILDE:
		if t == symbol.Int {
			fc.e.Emit(opcode.Comp, opcode.QInt)
			return symbol.Int
		}
		fc.c.addError(expr, "operator ~ requires int, got %s", t)
	default:
		fc.c.addError(expr, "internal fault: unhandled prefix operator %q", expr.Operator)
	}
	return symbol.Invalid
}

func (fc *funcCompiler) compileInfix(expr *ast.InfixExpression) symbol.Type {
	switch expr.Operator {
	case token.AND:
		return fc.compileLogicalAnd(expr)
	case token.OR:
		return fc.compileLogicalOr(expr)
	}

	lt := fc.compileExpr(expr.Left)
	rt := fc.compileExpr(expr.Right)
	if lt == symbol.Invalid || rt == symbol.Invalid {
		return symbol.Invalid
	}

	qual, ok := symbol.PairQual(lt, rt)
	if !ok {
		fc.c.addError(expr, "invalid operand types %s and %s for %q", lt, rt, expr.Operator)
		return symbol.Invalid
	}

	op, result, allowed := classifyInfix(expr.Operator, lt, rt, qual)
	if !allowed {
		fc.c.addError(expr, "operator %q is not defined for %s and %s", expr.Operator, lt, rt)
		return symbol.Invalid
	}

	fc.e.Emit(op, qual)
	lsz, rsz, _ := qual.OperandSizes()
	fc.curDepth -= lsz + rsz
	fc.curDepth += result.Size()
	return result
}

// classifyInfix maps an operator and operand types to the instruction and
// result type, enforcing which type pairs each operator accepts.
func classifyInfix(operator token.Type, lt, rt symbol.Type, qual opcode.Qual) (opcode.Op, symbol.Type, bool) {
	numeric := qual == opcode.QIntInt || qual == opcode.QFloatFloat ||
		qual == opcode.QIntFloat || qual == opcode.QFloatInt
	intOnly := qual == opcode.QIntInt

	arith := func() symbol.Type {
		if t, ok := symbol.Promote(lt, rt); ok {
			return t
		}
		return symbol.Vector
	}

	switch operator {
	case token.PLUS:
		if numeric || qual == opcode.QStringString || qual == opcode.QVectorVector {
			return opcode.Add, arith(), true
		}
	case token.MINUS:
		if numeric || qual == opcode.QVectorVector {
			return opcode.Sub, arith(), true
		}
	case token.ASTERISK:
		if numeric || qual == opcode.QVectorFloat || qual == opcode.QFloatVector {
			return opcode.Mul, arith(), true
		}
	case token.SLASH:
		if numeric || qual == opcode.QVectorFloat {
			return opcode.Div, arith(), true
		}
	case token.PERCENT:
		if intOnly {
			return opcode.Mod, symbol.Int, true
		}
	case token.AMP:
		if intOnly {
			return opcode.BoolAnd, symbol.Int, true
		}
	case token.PIPE:
		if intOnly {
			return opcode.IncOr, symbol.Int, true
		}
	case token.CARET:
		if intOnly {
			return opcode.ExcOr, symbol.Int, true
		}
	case token.SHL:
		if intOnly {
			return opcode.ShLeft, symbol.Int, true
		}
	case token.SHR:
		if intOnly {
			return opcode.ShRight, symbol.Int, true
		}
	case token.EQ:
		if numeric || qual == opcode.QStringString || qual == opcode.QObjectObject {
			return opcode.Eq, symbol.Int, true
		}
	case token.NEQ:
		if numeric || qual == opcode.QStringString || qual == opcode.QObjectObject {
			return opcode.Neq, symbol.Int, true
		}
	case token.LT:
		if numeric {
			return opcode.Lt, symbol.Int, true
		}
	case token.GT:
		if numeric {
			return opcode.Gt, symbol.Int, true
		}
	case token.LTE:
		if numeric {
			return opcode.Leq, symbol.Int, true
		}
	case token.GTE:
		if numeric {
			return opcode.Geq, symbol.Int, true
		}
	}
	return opcode.Nop, symbol.Invalid, false
}

// compileLogicalAnd emits && with short-circuit evaluation: the right
// operand does not run when the left is false. Both paths converge with
// exactly one int pushed.
func (fc *funcCompiler) compileLogicalAnd(expr *ast.InfixExpression) symbol.Type {
	fc.compileIntOperand(expr.Left)
	falseL := fc.e.Jump(opcode.Jz)
	fc.curDepth -= opcode.CellSize

	fc.compileIntOperand(expr.Right)
	falseR := fc.e.Jump(opcode.Jz)
	fc.curDepth -= opcode.CellSize

	fc.e.ConstInt(1)
	end := fc.e.Jump(opcode.Jmp)
	fc.e.PatchHere(falseL)
	fc.e.PatchHere(falseR)
	fc.e.ConstInt(0)
	fc.e.PatchHere(end)

	fc.curDepth += opcode.CellSize
	return symbol.Int
}

// compileLogicalOr emits || with short-circuit evaluation.
func (fc *funcCompiler) compileLogicalOr(expr *ast.InfixExpression) symbol.Type {
	fc.compileIntOperand(expr.Left)
	trueL := fc.e.Jump(opcode.Jnz)
	fc.curDepth -= opcode.CellSize

	fc.compileIntOperand(expr.Right)
	trueR := fc.e.Jump(opcode.Jnz)
	fc.curDepth -= opcode.CellSize

	fc.e.ConstInt(0)
	end := fc.e.Jump(opcode.Jmp)
	fc.e.PatchHere(trueL)
	fc.e.PatchHere(trueR)
	fc.e.ConstInt(1)
	fc.e.PatchHere(end)

	fc.curDepth += opcode.CellSize
	return symbol.Int
}

func (fc *funcCompiler) compileIntOperand(expr ast.Expression) {
	t := fc.compileExpr(expr)
	if t != symbol.Int && t != symbol.Invalid {
		fc.c.addError(expr, "logical operand must be int, got %s", t)
	}
}

// compileCall dispatches to a script function or an engine routine by name.
func (fc *funcCompiler) compileCall(call *ast.CallExpression) symbol.Type {
	if sig, ok := fc.c.funcs[call.Name]; ok {
		return fc.compileFuncCall(call, sig)
	}
	if r, ok := fc.c.routines.Resolve(call.Name); ok {
		return fc.compileRoutineCall(call, r)
	}
	fc.c.addError(call, "undefined function %q", call.Name)
	return symbol.Invalid
}

// compileFuncCall emits a script function call: the caller reserves the
// return slot, pushes every argument left to right with declaration
// defaults filling the tail, and JSRs. The callee pops its own parameters.
func (fc *funcCompiler) compileFuncCall(call *ast.CallExpression, sig *funcSig) symbol.Type {
	if fc.globalMode {
		fc.c.addError(call, "cannot call script function %q in a global initializer", call.Name)
		return symbol.Invalid
	}
	if len(call.Arguments) > len(sig.params) {
		fc.c.addError(call, "too many arguments to %q: got %d, want at most %d",
			call.Name, len(call.Arguments), len(sig.params))
		return symbol.Invalid
	}
	if len(call.Arguments) < sig.minArgs() {
		fc.c.addError(call, "not enough arguments to %q: got %d, want at least %d",
			call.Name, len(call.Arguments), sig.minArgs())
		return symbol.Invalid
	}

	if retSize := sig.ret.Size(); retSize > 0 {
		fc.e.RsAdd(sig.ret.Qual())
		fc.curDepth += retSize
	}
	for i, p := range sig.params {
		if i < len(call.Arguments) {
			fc.compileExprCoerced(call.Arguments[i], p.typ)
		} else {
			fc.compileExprCoerced(p.def, p.typ)
		}
	}
	fc.e.Call(sig.name)
	sig.called = true
	fc.curDepth -= sig.paramBytes()
	return sig.ret
}

// compileRoutineCall emits an engine call. Every parameter is materialized
// on the stack, defaults included, and ACTION pops them all.
func (fc *funcCompiler) compileRoutineCall(call *ast.CallExpression, r *symbol.Routine) symbol.Type {
	if len(call.Arguments) > len(r.Params) {
		fc.c.addError(call, "too many arguments to %q: got %d, want at most %d",
			call.Name, len(call.Arguments), len(r.Params))
		return symbol.Invalid
	}
	if len(call.Arguments) < r.MinArgs() {
		fc.c.addError(call, "not enough arguments to %q: got %d, want at least %d",
			call.Name, len(call.Arguments), r.MinArgs())
		return symbol.Invalid
	}

	for i, p := range r.Params {
		if i < len(call.Arguments) {
			fc.compileExprCoerced(call.Arguments[i], p.Type)
			continue
		}
		switch p.Default.Type {
		case symbol.Int:
			fc.e.ConstInt(p.Default.Int)
		case symbol.Float:
			fc.e.ConstFloat(p.Default.Float)
		case symbol.String:
			fc.e.ConstString(p.Default.Str)
		case symbol.Object:
			fc.e.ConstObject(p.Default.Int)
		default:
			fc.c.addError(call, "internal fault: routine %q has an unsupported default for %q", r.Name, p.Name)
			return symbol.Invalid
		}
		fc.curDepth += p.Type.Size()
	}

	fc.e.Action(r.ID, uint8(len(r.Params)))
	fc.curDepth -= r.ParamBytes()
	if r.Returns != symbol.Void {
		fc.curDepth += r.Returns.Size()
	}
	return r.Returns
}
