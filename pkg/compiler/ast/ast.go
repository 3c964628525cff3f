// Package ast defines the abstract syntax tree for Skald scripts.
// The statement and expression sets are closed: the backend compiles them
// with a single exhaustive type switch, so adding a node kind here means
// extending that switch.
package ast

import (
	"bytes"
	"strings"

	"github.com/skald-lang/skald/pkg/compiler/token"
)

type Node interface {
	TokenLiteral() string
	String() string
	Pos() (line, column int)
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of one parsed source file.
type Program struct {
	FileName   string
	Includes   []*IncludeDirective
	Statements []Statement // global declarations and function declarations
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, inc := range p.Includes {
		out.WriteString(inc.String())
		out.WriteString("\n")
	}
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// IncludeDirective: #include "name"
type IncludeDirective struct {
	Token token.Token // token.INCLUDE
	Name  string      // library name without extension
}

func (id *IncludeDirective) statementNode()          {}
func (id *IncludeDirective) TokenLiteral() string    { return id.Token.Literal }
func (id *IncludeDirective) String() string          { return `#include "` + id.Name + `"` }
func (id *IncludeDirective) Pos() (line, column int) { return id.Token.Line, id.Token.Column }

// Param is a single declared function parameter.
type Param struct {
	Token   token.Token // the type keyword
	Type    token.Type  // token.INT_TYPE etc.
	Name    string
	Default Expression // nil when the parameter has no default value
}

// FunctionDecl is a function prototype (Body == nil) or definition.
type FunctionDecl struct {
	Token      token.Token // the return type keyword
	ReturnType token.Type  // token.VOID_TYPE or a value type keyword
	Name       string
	Params     []*Param
	Body       *BlockStatement // nil for a bare prototype
	File       string          // source file the declaration came from, set by the loader
}

func (fd *FunctionDecl) statementNode()       {}
func (fd *FunctionDecl) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDecl) String() string {
	var out bytes.Buffer
	out.WriteString(string(fd.ReturnType))
	out.WriteString(" ")
	out.WriteString(fd.Name)
	out.WriteString("(")
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = string(p.Type) + " " + p.Name
		if p.Default != nil {
			params[i] += " = " + p.Default.String()
		}
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(")")
	if fd.Body != nil {
		out.WriteString(" ")
		out.WriteString(fd.Body.String())
	} else {
		out.WriteString(";")
	}
	return out.String()
}
func (fd *FunctionDecl) Pos() (line, column int) { return fd.Token.Line, fd.Token.Column }

// VarDecl declares a variable with an optional initializer. At file level it
// declares a global, inside a block a local.
type VarDecl struct {
	Token token.Token // the type keyword
	Type  token.Type
	Name  string
	Init  Expression // nil when defaulted
	File  string     // source file the declaration came from, set by the loader
}

func (vd *VarDecl) statementNode()       {}
func (vd *VarDecl) TokenLiteral() string { return vd.Token.Literal }
func (vd *VarDecl) String() string {
	var out bytes.Buffer
	out.WriteString(string(vd.Type))
	out.WriteString(" ")
	out.WriteString(vd.Name)
	if vd.Init != nil {
		out.WriteString(" = ")
		out.WriteString(vd.Init.String())
	}
	out.WriteString(";")
	return out.String()
}
func (vd *VarDecl) Pos() (line, column int) { return vd.Token.Line, vd.Token.Column }

// BlockStatement: { ... }
type BlockStatement struct {
	Token      token.Token // token.LBRACE
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}
func (bs *BlockStatement) Pos() (line, column int) { return bs.Token.Line, bs.Token.Column }

// ExpressionStatement evaluates an expression for its side effects.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ";"
}
func (es *ExpressionStatement) Pos() (line, column int) { return es.Token.Line, es.Token.Column }

// IfStatement: if (cond) then [else alt]
type IfStatement struct {
	Token       token.Token // token.IF
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil when there is no else branch
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(is.Condition.String())
	out.WriteString(") ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(is.Alternative.String())
	}
	return out.String()
}
func (is *IfStatement) Pos() (line, column int) { return is.Token.Line, is.Token.Column }

// WhileStatement: while (cond) body
type WhileStatement struct {
	Token     token.Token // token.WHILE
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}
func (ws *WhileStatement) Pos() (line, column int) { return ws.Token.Line, ws.Token.Column }

// DoWhileStatement: do body while (cond);
type DoWhileStatement struct {
	Token     token.Token // token.DO
	Body      Statement
	Condition Expression
}

func (ds *DoWhileStatement) statementNode()       {}
func (ds *DoWhileStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DoWhileStatement) String() string {
	return "do " + ds.Body.String() + " while (" + ds.Condition.String() + ");"
}
func (ds *DoWhileStatement) Pos() (line, column int) { return ds.Token.Line, ds.Token.Column }

// ForStatement: for (init; cond; post) body. Init, Condition and Post may
// each be nil.
type ForStatement struct {
	Token     token.Token // token.FOR
	Init      Statement
	Condition Expression
	Post      Expression
	Body      Statement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if fs.Init != nil {
		out.WriteString(fs.Init.String())
	} else {
		out.WriteString(";")
	}
	out.WriteString(" ")
	if fs.Condition != nil {
		out.WriteString(fs.Condition.String())
	}
	out.WriteString("; ")
	if fs.Post != nil {
		out.WriteString(fs.Post.String())
	}
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}
func (fs *ForStatement) Pos() (line, column int) { return fs.Token.Line, fs.Token.Column }

// BreakStatement
type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()          {}
func (bs *BreakStatement) TokenLiteral() string    { return bs.Token.Literal }
func (bs *BreakStatement) String() string          { return "break;" }
func (bs *BreakStatement) Pos() (line, column int) { return bs.Token.Line, bs.Token.Column }

// ContinueStatement
type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()          {}
func (cs *ContinueStatement) TokenLiteral() string    { return cs.Token.Literal }
func (cs *ContinueStatement) String() string          { return "continue;" }
func (cs *ContinueStatement) Pos() (line, column int) { return cs.Token.Line, cs.Token.Column }

// ReturnStatement: return [value];
type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	if rs.Value != nil {
		return "return " + rs.Value.String() + ";"
	}
	return "return;"
}
func (rs *ReturnStatement) Pos() (line, column int) { return rs.Token.Line, rs.Token.Column }

// Identifier references a declared variable.
type Identifier struct {
	Token token.Token // token.IDENT
	Value string
}

func (i *Identifier) expressionNode()         {}
func (i *Identifier) TokenLiteral() string    { return i.Token.Literal }
func (i *Identifier) String() string          { return i.Value }
func (i *Identifier) Pos() (line, column int) { return i.Token.Line, i.Token.Column }

// IntegerLiteral
type IntegerLiteral struct {
	Token token.Token
	Value int32
}

func (il *IntegerLiteral) expressionNode()         {}
func (il *IntegerLiteral) TokenLiteral() string    { return il.Token.Literal }
func (il *IntegerLiteral) String() string          { return il.Token.Literal }
func (il *IntegerLiteral) Pos() (line, column int) { return il.Token.Line, il.Token.Column }

// FloatLiteral
type FloatLiteral struct {
	Token token.Token
	Value float32
}

func (fl *FloatLiteral) expressionNode()         {}
func (fl *FloatLiteral) TokenLiteral() string    { return fl.Token.Literal }
func (fl *FloatLiteral) String() string          { return fl.Token.Literal }
func (fl *FloatLiteral) Pos() (line, column int) { return fl.Token.Line, fl.Token.Column }

// StringLiteral
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()         {}
func (sl *StringLiteral) TokenLiteral() string    { return sl.Token.Literal }
func (sl *StringLiteral) String() string          { return `"` + sl.Value + `"` }
func (sl *StringLiteral) Pos() (line, column int) { return sl.Token.Line, sl.Token.Column }

// ObjectConstant is OBJECT_SELF or OBJECT_INVALID.
type ObjectConstant struct {
	Token token.Token
	Value int32 // the runtime handle constant
}

func (oc *ObjectConstant) expressionNode()         {}
func (oc *ObjectConstant) TokenLiteral() string    { return oc.Token.Literal }
func (oc *ObjectConstant) String() string          { return oc.Token.Literal }
func (oc *ObjectConstant) Pos() (line, column int) { return oc.Token.Line, oc.Token.Column }

// VectorLiteral: [x, y, z] with float components.
type VectorLiteral struct {
	Token   token.Token // token.LBRACKET
	X, Y, Z Expression
}

func (vl *VectorLiteral) expressionNode()      {}
func (vl *VectorLiteral) TokenLiteral() string { return vl.Token.Literal }
func (vl *VectorLiteral) String() string {
	return "[" + vl.X.String() + ", " + vl.Y.String() + ", " + vl.Z.String() + "]"
}
func (vl *VectorLiteral) Pos() (line, column int) { return vl.Token.Line, vl.Token.Column }

// AssignExpression: name = value. Assignment is an expression, as in C; the
// assigned value is its result.
type AssignExpression struct {
	Token token.Token // token.ASSIGN
	Name  *Identifier
	Value Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) String() string {
	return "(" + ae.Name.String() + " = " + ae.Value.String() + ")"
}
func (ae *AssignExpression) Pos() (line, column int) { return ae.Token.Line, ae.Token.Column }

// PrefixExpression: -x, !x, ~x
type PrefixExpression struct {
	Token    token.Token
	Operator token.Type
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + string(pe.Operator) + pe.Right.String() + ")"
}
func (pe *PrefixExpression) Pos() (line, column int) { return pe.Token.Line, pe.Token.Column }

// InfixExpression: left op right
type InfixExpression struct {
	Token    token.Token
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + string(ie.Operator) + " " + ie.Right.String() + ")"
}
func (ie *InfixExpression) Pos() (line, column int) { return ie.Token.Line, ie.Token.Column }

// CallExpression: a call to a script function or an engine routine, decided
// during compilation by name lookup.
type CallExpression struct {
	Token     token.Token // token.IDENT of the callee
	Name      string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Name + "(" + strings.Join(args, ", ") + ")"
}
func (ce *CallExpression) Pos() (line, column int) { return ce.Token.Line, ce.Token.Column }
