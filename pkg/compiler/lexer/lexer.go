// Package lexer provides lexical analysis for Skald scripts (.sks files).
package lexer

import (
	"github.com/skald-lang/skald/pkg/compiler/token"
)

// Lexer tokenizes Skald source code.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int  // current line number
	column       int  // current column number
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// GetSource returns the full source code being lexed.
func (l *Lexer) GetSource() string {
	return l.input
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	tok.Line = l.line
	tok.Column = l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.EQ)
		} else {
			tok = l.newToken(token.ASSIGN, l.ch)
		}
	case '+':
		tok = l.newToken(token.PLUS, l.ch)
	case '-':
		tok = l.newToken(token.MINUS, l.ch)
	case '*':
		tok = l.newToken(token.ASTERISK, l.ch)
	case '/':
		if l.peekChar() == '/' {
			tok.Type = token.COMMENT
			tok.Literal = l.readLineComment()
			return tok
		} else if l.peekChar() == '*' {
			tok.Type = token.COMMENT
			tok.Literal = l.readBlockComment()
			return tok
		}
		tok = l.newToken(token.SLASH, l.ch)
	case '%':
		tok = l.newToken(token.PERCENT, l.ch)
	case '!':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.NEQ)
		} else {
			tok = l.newToken(token.NOT, l.ch)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.twoCharToken(token.LTE)
		case '<':
			tok = l.twoCharToken(token.SHL)
		default:
			tok = l.newToken(token.LT, l.ch)
		}
	case '>':
		switch l.peekChar() {
		case '=':
			tok = l.twoCharToken(token.GTE)
		case '>':
			tok = l.twoCharToken(token.SHR)
		default:
			tok = l.newToken(token.GT, l.ch)
		}
	case '&':
		if l.peekChar() == '&' {
			tok = l.twoCharToken(token.AND)
		} else {
			tok = l.newToken(token.AMP, l.ch)
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.twoCharToken(token.OR)
		} else {
			tok = l.newToken(token.PIPE, l.ch)
		}
	case '^':
		tok = l.newToken(token.CARET, l.ch)
	case '~':
		tok = l.newToken(token.TILDE, l.ch)
	case '(':
		tok = l.newToken(token.LPAREN, l.ch)
	case ')':
		tok = l.newToken(token.RPAREN, l.ch)
	case '{':
		tok = l.newToken(token.LBRACE, l.ch)
	case '}':
		tok = l.newToken(token.RBRACE, l.ch)
	case '[':
		tok = l.newToken(token.LBRACKET, l.ch)
	case ']':
		tok = l.newToken(token.RBRACKET, l.ch)
	case ',':
		tok = l.newToken(token.COMMA, l.ch)
	case ';':
		tok = l.newToken(token.SEMICOLON, l.ch)
	case '"':
		tok.Type = token.STRING_LIT
		tok.Literal = l.readString()
	case '#':
		tok.Type, tok.Literal = l.readDirective()
		return tok
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		}
		if isDigit(l.ch) {
			return l.readNumber(tok)
		}
		tok = l.newToken(token.ILLEGAL, l.ch)
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType token.Type, ch byte) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

func (l *Lexer) twoCharToken(tokenType token.Type) token.Token {
	line, column := l.line, l.column
	first := l.ch
	l.readChar()
	return token.Token{Type: tokenType, Literal: string(first) + string(l.ch), Line: line, Column: column}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or float literal. Hexadecimal integers use the
// 0x prefix. A trailing 'f' on a float literal is consumed and discarded.
func (l *Lexer) readNumber(tok token.Token) token.Token {
	position := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		tok.Type = token.INT_LIT
		tok.Literal = l.input[position:l.position]
		return tok
	}

	for isDigit(l.ch) {
		l.readChar()
	}

	tok.Type = token.INT_LIT
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		tok.Type = token.FLOAT_LIT
	}
	tok.Literal = l.input[position:l.position]

	// optional float suffix: 1.5f
	if tok.Type == token.FLOAT_LIT && (l.ch == 'f' || l.ch == 'F') {
		l.readChar()
	}

	return tok
}

// readString reads a string literal. The opening quote is the current char.
// Escape sequences \" \\ \n \t are recognized.
func (l *Lexer) readString() string {
	var out []byte
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
		if l.ch == '\\' {
			switch l.peekChar() {
			case '"':
				l.readChar()
				out = append(out, '"')
				continue
			case '\\':
				l.readChar()
				out = append(out, '\\')
				continue
			case 'n':
				l.readChar()
				out = append(out, '\n')
				continue
			case 't':
				l.readChar()
				out = append(out, '\t')
				continue
			}
		}
		out = append(out, l.ch)
	}
	return string(out)
}

// readDirective reads a preprocessor directive starting at '#'.
// Only #include is recognized; anything else is ILLEGAL.
func (l *Lexer) readDirective() (token.Type, string) {
	position := l.position
	l.readChar() // consume '#'
	for isLetter(l.ch) {
		l.readChar()
	}
	word := l.input[position:l.position]
	if word == "#include" {
		return token.INCLUDE, word
	}
	return token.ILLEGAL, word
}

func (l *Lexer) readLineComment() string {
	position := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readBlockComment() string {
	position := l.position
	l.readChar() // consume '/'
	l.readChar() // consume '*'
	for {
		if l.ch == 0 {
			break
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
