// Package parser provides syntax analysis for Skald scripts (.sks files).
// It consumes tokens from the lexer and produces the AST consumed by the
// compiler backend.
package parser

import (
	"fmt"
	"strconv"

	"github.com/skald-lang/skald/pkg/compiler/ast"
	"github.com/skald-lang/skald/pkg/compiler/lexer"
	"github.com/skald-lang/skald/pkg/compiler/token"
)

// Precedence levels for operators, lowest first.
const (
	_ int = iota
	LOWEST
	ASSIGN      // =
	OR          // ||
	AND         // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	SHIFT       // << >>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x ~x
	CALL        // f(x)
)

var precedences = map[token.Type]int{
	token.ASSIGN:   ASSIGN,
	token.OR:       OR,
	token.AND:      AND,
	token.PIPE:     BITOR,
	token.CARET:    BITXOR,
	token.AMP:      BITAND,
	token.EQ:       EQUALS,
	token.NEQ:      EQUALS,
	token.LT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GT:       LESSGREATER,
	token.GTE:      LESSGREATER,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LPAREN:   CALL,
}

// ParserError represents a syntax error with its source position.
type ParserError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *ParserError) Error() string {
	return fmt.Sprintf("parser error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser parses Skald source code into an AST.
type Parser struct {
	l      *lexer.Lexer
	errors []error

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []error{},
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT_LIT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT_LIT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING_LIT, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolConstant)
	p.registerPrefix(token.FALSE, p.parseBoolConstant)
	p.registerPrefix(token.OBJECT_SELF, p.parseObjectConstant)
	p.registerPrefix(token.OBJECT_INVALID, p.parseObjectConstant)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseVectorLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR, token.AMP, token.PIPE, token.CARET,
		token.SHL, token.SHR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens to initialize curToken and peekToken.
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the syntax errors collected so far.
func (p *Parser) Errors() []error {
	return p.errors
}

func (p *Parser) addError(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, &ParserError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	})
}

// nextToken advances the token window, skipping comments.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	for p.peekToken.Type == token.COMMENT {
		p.peekToken = p.l.NextToken()
	}
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

// expectPeek advances when the next token has the expected type and records
// a syntax error otherwise.
func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(p.peekToken, "expected %q, got %q", string(t), p.peekToken.Literal)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseProgram parses one whole source file: include directives, global
// variable declarations, and function prototypes/definitions.
func (p *Parser) ParseProgram() (*ast.Program, []error) {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		switch {
		case p.curTokenIs(token.SEMICOLON):
			// stray terminators are harmless at file level
		case p.curTokenIs(token.INCLUDE):
			if inc := p.parseIncludeDirective(); inc != nil {
				program.Includes = append(program.Includes, inc)
			}
		case p.curTokenIs(token.VOID_TYPE) || token.IsTypeKeyword(p.curToken.Type):
			if stmt := p.parseTopLevelDecl(); stmt != nil {
				program.Statements = append(program.Statements, stmt)
			}
		default:
			p.addError(p.curToken, "unexpected token %q at file level", p.curToken.Literal)
			p.skipToRecoveryPoint()
		}
		p.nextToken()
	}

	return program, p.errors
}

// parseIncludeDirective parses `#include "name"`.
func (p *Parser) parseIncludeDirective() *ast.IncludeDirective {
	inc := &ast.IncludeDirective{Token: p.curToken}
	if !p.expectPeek(token.STRING_LIT) {
		return nil
	}
	inc.Name = p.curToken.Literal
	return inc
}

// parseTopLevelDecl parses a global variable declaration or a function
// prototype/definition. Both start with a type keyword (or void).
func (p *Parser) parseTopLevelDecl() ast.Statement {
	typeTok := p.curToken

	if !p.expectPeek(token.IDENT) {
		p.skipToRecoveryPoint()
		return nil
	}
	name := p.curToken.Literal

	if p.peekTokenIs(token.LPAREN) {
		return p.parseFunctionDecl(typeTok, name)
	}

	if typeTok.Type == token.VOID_TYPE {
		p.addError(typeTok, "variable %q cannot have type void", name)
		p.skipToRecoveryPoint()
		return nil
	}

	decl := &ast.VarDecl{Token: typeTok, Type: typeTok.Type, Name: name}
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		decl.Init = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.SEMICOLON) {
		p.skipToRecoveryPoint()
	}
	return decl
}

// parseFunctionDecl parses the parameter list and, unless the declaration is
// a bare prototype, the body. The current token is the function name.
func (p *Parser) parseFunctionDecl(typeTok token.Token, name string) ast.Statement {
	decl := &ast.FunctionDecl{
		Token:      typeTok,
		ReturnType: typeTok.Type,
		Name:       name,
	}

	p.nextToken() // consume name, current is now '('
	decl.Params = p.parseFunctionParams()

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return decl // prototype
	}

	if !p.expectPeek(token.LBRACE) {
		p.skipToRecoveryPoint()
		return nil
	}
	decl.Body = p.parseBlockStatement()
	return decl
}

// parseFunctionParams parses `(type name [= default], ...)`. The current
// token is the opening parenthesis.
func (p *Parser) parseFunctionParams() []*ast.Param {
	params := []*ast.Param{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		p.nextToken()
		if !token.IsTypeKeyword(p.curToken.Type) {
			p.addError(p.curToken, "expected parameter type, got %q", p.curToken.Literal)
			return params
		}
		param := &ast.Param{Token: p.curToken, Type: p.curToken.Type}
		if !p.expectPeek(token.IDENT) {
			return params
		}
		param.Name = p.curToken.Literal

		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
		}
		params = append(params, param)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN) {
		return params
	}
	return params
}

// parseStatement parses one statement inside a function body.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		p.expectPeek(token.SEMICOLON)
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		p.expectPeek(token.SEMICOLON)
		return stmt
	case token.RETURN:
		return p.parseReturnStatement()
	case token.SEMICOLON:
		return nil // empty statement
	default:
		if token.IsTypeKeyword(p.curToken.Type) {
			return p.parseVarDecl()
		}
		if p.curTokenIs(token.VOID_TYPE) {
			p.addError(p.curToken, "void is only valid as a function return type")
			p.skipToRecoveryPoint()
			return nil
		}
		return p.parseExpressionStatement()
	}
}

// parseVarDecl parses a local variable declaration with optional initializer.
func (p *Parser) parseVarDecl() ast.Statement {
	decl := &ast.VarDecl{Token: p.curToken, Type: p.curToken.Type}
	if !p.expectPeek(token.IDENT) {
		p.skipToRecoveryPoint()
		return nil
	}
	decl.Name = p.curToken.Literal

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		decl.Init = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(token.SEMICOLON) {
		p.skipToRecoveryPoint()
	}
	return decl
}

// parseBlockStatement parses `{ ... }`. The current token is the brace.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.addError(block.Token, "unterminated block")
	}
	return block
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.nextToken()
	stmt.Consequence = p.parseStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Body = p.parseStatement()

	if !p.expectPeek(token.WHILE) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.expectPeek(token.SEMICOLON)
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	// init clause: empty, a declaration, or an expression
	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		if token.IsTypeKeyword(p.curToken.Type) {
			stmt.Init = p.parseVarDecl() // consumes the terminating ';'
		} else {
			initTok := p.curToken
			expr := p.parseExpression(LOWEST)
			stmt.Init = &ast.ExpressionStatement{Token: initTok, Expression: expr}
			if !p.expectPeek(token.SEMICOLON) {
				return nil
			}
		}
	}

	// condition clause
	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		stmt.Condition = p.parseExpression(LOWEST)
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	// post clause
	p.nextToken()
	if !p.curTokenIs(token.RPAREN) {
		stmt.Post = p.parseExpression(LOWEST)
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}

	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	p.expectPeek(token.SEMICOLON)
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	p.expectPeek(token.SEMICOLON)
	if stmt.Expression == nil {
		return nil
	}
	return stmt
}

// parseExpression is the Pratt parsing core.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addError(p.curToken, "unexpected token %q in expression", p.curToken.Literal)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	value, err := strconv.ParseInt(p.curToken.Literal, 0, 32)
	if err != nil {
		p.addError(p.curToken, "could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	lit.Value = int32(value)
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 32)
	if err != nil {
		p.addError(p.curToken, "could not parse %q as float", p.curToken.Literal)
		return nil
	}
	lit.Value = float32(value)
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

// parseBoolConstant lowers TRUE/FALSE to integer literals; booleans are ints.
func (p *Parser) parseBoolConstant() ast.Expression {
	value := int32(0)
	if p.curTokenIs(token.TRUE) {
		value = 1
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: value}
}

// Runtime handle constants. OBJECT_SELF is handle 0, OBJECT_INVALID handle 1,
// matching the engine's object table convention.
func (p *Parser) parseObjectConstant() ast.Expression {
	value := int32(0)
	if p.curTokenIs(token.OBJECT_INVALID) {
		value = 1
	}
	return &ast.ObjectConstant{Token: p.curToken, Value: value}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Type}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Type, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

// parseAssignExpression parses `name = value`. Assignment is right
// associative, hence the ASSIGN-1 precedence for the right-hand side.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.addError(p.curToken, "invalid assignment target")
		return nil
	}
	expr := &ast.AssignExpression{Token: p.curToken, Name: ident}
	p.nextToken()
	expr.Value = p.parseExpression(ASSIGN - 1)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

// parseVectorLiteral parses `[x, y, z]`.
func (p *Parser) parseVectorLiteral() ast.Expression {
	lit := &ast.VectorLiteral{Token: p.curToken}

	p.nextToken()
	lit.X = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	lit.Y = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	lit.Z = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return lit
}

// parseCallExpression parses the argument list after the callee identifier.
func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	ident, ok := fn.(*ast.Identifier)
	if !ok {
		p.addError(p.curToken, "calls must name a function directly")
		return nil
	}
	call := &ast.CallExpression{Token: ident.Token, Name: ident.Value}
	call.Arguments = p.parseCallArguments()
	return call
}

func (p *Parser) parseCallArguments() []ast.Expression {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(token.RPAREN) {
		return args
	}
	return args
}

// skipToRecoveryPoint advances to the next statement boundary after a syntax
// error so one mistake does not cascade.
func (p *Parser) skipToRecoveryPoint() {
	for !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}
