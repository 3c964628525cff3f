// Package token defines the lexical tokens of the Skald scripting language.
package token

// Type identifies the kind of a token.
type Type string

// Token is a single lexical token with its source position.
// Line and Column are 1-indexed.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	COMMENT = "COMMENT"

	// Identifiers and literals
	IDENT      = "IDENT"  // GetTag, nCount
	INT_LIT    = "INT"    // 123, 0xFF
	FLOAT_LIT  = "FLOAT"  // 1.5, 2.0f
	STRING_LIT = "STRING" // "abc"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	EQ       = "=="
	NEQ      = "!="
	LT       = "<"
	GT       = ">"
	LTE      = "<="
	GTE      = ">="
	AND      = "&&"
	OR       = "||"
	NOT      = "!"
	AMP      = "&"
	PIPE     = "|"
	CARET    = "^"
	TILDE    = "~"
	SHL      = "<<"
	SHR      = ">>"

	// Delimiters
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	COMMA     = ","
	SEMICOLON = ";"

	// Preprocessor
	INCLUDE = "#include"

	// Type keywords
	INT_TYPE    = "int"
	FLOAT_TYPE  = "float"
	STRING_TYPE = "string"
	OBJECT_TYPE = "object"
	VECTOR_TYPE = "vector"
	EFFECT_TYPE = "effect"
	ACTION_TYPE = "action"
	VOID_TYPE   = "void"

	// Statement keywords
	IF       = "if"
	ELSE     = "else"
	WHILE    = "while"
	DO       = "do"
	FOR      = "for"
	BREAK    = "break"
	CONTINUE = "continue"
	RETURN   = "return"

	// Constant keywords
	TRUE           = "TRUE"
	FALSE          = "FALSE"
	OBJECT_SELF    = "OBJECT_SELF"
	OBJECT_INVALID = "OBJECT_INVALID"
)

var keywords = map[string]Type{
	"int":            INT_TYPE,
	"float":          FLOAT_TYPE,
	"string":         STRING_TYPE,
	"object":         OBJECT_TYPE,
	"vector":         VECTOR_TYPE,
	"effect":         EFFECT_TYPE,
	"action":         ACTION_TYPE,
	"void":           VOID_TYPE,
	"if":             IF,
	"else":           ELSE,
	"while":          WHILE,
	"do":             DO,
	"for":            FOR,
	"break":          BREAK,
	"continue":       CONTINUE,
	"return":         RETURN,
	"TRUE":           TRUE,
	"FALSE":          FALSE,
	"OBJECT_SELF":    OBJECT_SELF,
	"OBJECT_INVALID": OBJECT_INVALID,
}

// LookupIdent returns the keyword token type for ident, or IDENT if the
// name is not a keyword. Keywords are case sensitive.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// IsTypeKeyword reports whether t names a declarable value type.
func IsTypeKeyword(t Type) bool {
	switch t {
	case INT_TYPE, FLOAT_TYPE, STRING_TYPE, OBJECT_TYPE, VECTOR_TYPE, EFFECT_TYPE, ACTION_TYPE:
		return true
	}
	return false
}
