package parser

import (
	"strings"
	"testing"

	"github.com/skald-lang/skald/pkg/compiler/ast"
	"github.com/skald-lang/skald/pkg/compiler/lexer"
	"github.com/skald-lang/skald/pkg/compiler/token"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	program, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func TestParseGlobalVarDecl(t *testing.T) {
	tests := []struct {
		input    string
		wantType token.Type
		wantName string
		wantInit bool
	}{
		{"int counter;", token.INT_TYPE, "counter", false},
		{"int counter = 42;", token.INT_TYPE, "counter", true},
		{"float ratio = 0.5f;", token.FLOAT_TYPE, "ratio", true},
		{`string title = "hello";`, token.STRING_TYPE, "title", true},
		{"object target = OBJECT_INVALID;", token.OBJECT_TYPE, "target", true},
		{"vector origin;", token.VECTOR_TYPE, "origin", false},
	}

	for _, tt := range tests {
		program := parseSource(t, tt.input)
		if len(program.Statements) != 1 {
			t.Fatalf("%q: expected 1 statement, got %d", tt.input, len(program.Statements))
		}
		decl, ok := program.Statements[0].(*ast.VarDecl)
		if !ok {
			t.Fatalf("%q: expected *ast.VarDecl, got %T", tt.input, program.Statements[0])
		}
		if decl.Type != tt.wantType {
			t.Errorf("%q: type = %q, want %q", tt.input, decl.Type, tt.wantType)
		}
		if decl.Name != tt.wantName {
			t.Errorf("%q: name = %q, want %q", tt.input, decl.Name, tt.wantName)
		}
		if (decl.Init != nil) != tt.wantInit {
			t.Errorf("%q: init presence = %v, want %v", tt.input, decl.Init != nil, tt.wantInit)
		}
	}
}

func TestParseIncludeDirective(t *testing.T) {
	program := parseSource(t, "#include \"shared_defs\"\n#include \"combat\"\nint x;")
	if len(program.Includes) != 2 {
		t.Fatalf("expected 2 includes, got %d", len(program.Includes))
	}
	if program.Includes[0].Name != "shared_defs" {
		t.Errorf("first include = %q, want %q", program.Includes[0].Name, "shared_defs")
	}
	if program.Includes[1].Name != "combat" {
		t.Errorf("second include = %q, want %q", program.Includes[1].Name, "combat")
	}
	if len(program.Statements) != 1 {
		t.Errorf("expected 1 statement after includes, got %d", len(program.Statements))
	}
}

func TestParseFunctionDecl(t *testing.T) {
	src := `
int AddScores(int a, int b = 10) {
    return a + b;
}
`
	program := parseSource(t, src)
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	fn, ok := program.Statements[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected *ast.FunctionDecl, got %T", program.Statements[0])
	}
	if fn.Name != "AddScores" {
		t.Errorf("name = %q, want AddScores", fn.Name)
	}
	if fn.ReturnType != token.INT_TYPE {
		t.Errorf("return type = %q, want int", fn.ReturnType)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if fn.Params[0].Name != "a" || fn.Params[0].Default != nil {
		t.Errorf("param 0 = %q default %v, want a with no default", fn.Params[0].Name, fn.Params[0].Default)
	}
	if fn.Params[1].Name != "b" || fn.Params[1].Default == nil {
		t.Errorf("param 1 = %q, want b with default", fn.Params[1].Name)
	}
	if fn.Body == nil {
		t.Fatal("expected a body, got prototype")
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Statements))
	}
	if _, ok := fn.Body.Statements[0].(*ast.ReturnStatement); !ok {
		t.Errorf("expected return statement, got %T", fn.Body.Statements[0])
	}
}

func TestParsePrototype(t *testing.T) {
	program := parseSource(t, "void Announce(string msg);")
	fn, ok := program.Statements[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected *ast.FunctionDecl, got %T", program.Statements[0])
	}
	if fn.Body != nil {
		t.Error("prototype should have a nil body")
	}
	if fn.ReturnType != token.VOID_TYPE {
		t.Errorf("return type = %q, want void", fn.ReturnType)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a + b - c", "((a + b) - c)"},
		{"a * b % c", "((a * b) % c)"},
		{"-a * b", "((-a) * b)"},
		{"!a || b", "((!a) || b)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a && b || c && d", "((a && b) || (c && d))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a << 2 + 1", "(a << (2 + 1))"},
		{"a == b & c", "((a == b) & c)"},
		{"x = y = 3", "(x = (y = 3))"},
		{"x = a + b", "(x = (a + b))"},
		{"~a & b", "((~a) & b)"},
	}

	for _, tt := range tests {
		src := "void main() { " + tt.input + "; }"
		program := parseSource(t, src)
		fn := program.Statements[0].(*ast.FunctionDecl)
		stmt, ok := fn.Body.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%q: expected expression statement, got %T", tt.input, fn.Body.Statements[0])
		}
		if got := stmt.Expression.String(); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `
void main() {
    if (x > 0) {
        x = x - 1;
    } else {
        x = 0;
    }
    while (x < 10) {
        x = x + 1;
    }
    do {
        x = x - 2;
    } while (x > 0);
    for (i = 0; i < 5; i = i + 1) {
        continue;
    }
    for (;;) {
        break;
    }
}
`
	program := parseSource(t, src)
	fn := program.Statements[0].(*ast.FunctionDecl)
	if len(fn.Body.Statements) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(fn.Body.Statements))
	}

	ifStmt, ok := fn.Body.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("statement 0: expected if, got %T", fn.Body.Statements[0])
	}
	if ifStmt.Alternative == nil {
		t.Error("if statement lost its else branch")
	}

	if _, ok := fn.Body.Statements[1].(*ast.WhileStatement); !ok {
		t.Errorf("statement 1: expected while, got %T", fn.Body.Statements[1])
	}
	if _, ok := fn.Body.Statements[2].(*ast.DoWhileStatement); !ok {
		t.Errorf("statement 2: expected do-while, got %T", fn.Body.Statements[2])
	}

	forStmt, ok := fn.Body.Statements[3].(*ast.ForStatement)
	if !ok {
		t.Fatalf("statement 3: expected for, got %T", fn.Body.Statements[3])
	}
	if forStmt.Init == nil || forStmt.Condition == nil || forStmt.Post == nil {
		t.Error("for statement lost one of its clauses")
	}

	emptyFor, ok := fn.Body.Statements[4].(*ast.ForStatement)
	if !ok {
		t.Fatalf("statement 4: expected for, got %T", fn.Body.Statements[4])
	}
	if emptyFor.Init != nil || emptyFor.Condition != nil || emptyFor.Post != nil {
		t.Error("empty for clauses should all be nil")
	}
}

func TestParseForWithDeclInit(t *testing.T) {
	program := parseSource(t, "void main() { for (int i = 0; i < 3; i = i + 1) { } }")
	fn := program.Statements[0].(*ast.FunctionDecl)
	forStmt := fn.Body.Statements[0].(*ast.ForStatement)
	decl, ok := forStmt.Init.(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected var decl in for init, got %T", forStmt.Init)
	}
	if decl.Name != "i" || decl.Type != token.INT_TYPE {
		t.Errorf("decl = %s %s, want int i", decl.Type, decl.Name)
	}
}

func TestParseVectorLiteral(t *testing.T) {
	program := parseSource(t, "void main() { vector v = [1.0f, 2.0f, 3.0f]; }")
	fn := program.Statements[0].(*ast.FunctionDecl)
	decl := fn.Body.Statements[0].(*ast.VarDecl)
	vec, ok := decl.Init.(*ast.VectorLiteral)
	if !ok {
		t.Fatalf("expected vector literal, got %T", decl.Init)
	}
	for i, comp := range []ast.Expression{vec.X, vec.Y, vec.Z} {
		if _, ok := comp.(*ast.FloatLiteral); !ok {
			t.Errorf("component %d: expected float literal, got %T", i, comp)
		}
	}
}

func TestParseCallExpression(t *testing.T) {
	program := parseSource(t, `void main() { SendMessage(target, "hi", 3 + 4); }`)
	fn := program.Statements[0].(*ast.FunctionDecl)
	stmt := fn.Body.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected call expression, got %T", stmt.Expression)
	}
	if call.Name != "SendMessage" {
		t.Errorf("callee = %q, want SendMessage", call.Name)
	}
	if len(call.Arguments) != 3 {
		t.Fatalf("expected 3 arguments, got %d", len(call.Arguments))
	}
	if got := call.Arguments[2].String(); got != "(3 + 4)" {
		t.Errorf("argument 2 = %q, want (3 + 4)", got)
	}
}

func TestParseBoolAndObjectConstants(t *testing.T) {
	program := parseSource(t, "void main() { int t = TRUE; int f = FALSE; object s = OBJECT_SELF; }")
	fn := program.Statements[0].(*ast.FunctionDecl)

	tDecl := fn.Body.Statements[0].(*ast.VarDecl)
	if lit, ok := tDecl.Init.(*ast.IntegerLiteral); !ok || lit.Value != 1 {
		t.Errorf("TRUE should lower to integer 1, got %v", tDecl.Init)
	}
	fDecl := fn.Body.Statements[1].(*ast.VarDecl)
	if lit, ok := fDecl.Init.(*ast.IntegerLiteral); !ok || lit.Value != 0 {
		t.Errorf("FALSE should lower to integer 0, got %v", fDecl.Init)
	}
	sDecl := fn.Body.Statements[2].(*ast.VarDecl)
	if oc, ok := sDecl.Init.(*ast.ObjectConstant); !ok || oc.Value != 0 {
		t.Errorf("OBJECT_SELF should be object constant 0, got %v", sDecl.Init)
	}
}

func TestParseHexLiteral(t *testing.T) {
	program := parseSource(t, "int flags = 0xFF;")
	decl := program.Statements[0].(*ast.VarDecl)
	lit, ok := decl.Init.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected integer literal, got %T", decl.Init)
	}
	if lit.Value != 255 {
		t.Errorf("value = %d, want 255", lit.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing semicolon", "int x = 1", `expected ";"`},
		{"void variable", "void x;", "cannot have type void"},
		{"bad assignment target", "void main() { 1 = 2; }", "invalid assignment target"},
		{"garbage at file level", "+++", "unexpected token"},
		{"unterminated block", "void main() {", "unterminated block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(lexer.New(tt.input))
			_, errs := p.ParseProgram()
			if len(errs) == 0 {
				t.Fatal("expected parser errors, got none")
			}
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantMsg) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("no error contains %q; errors: %v", tt.wantMsg, errs)
			}
		})
	}
}

func TestErrorPositions(t *testing.T) {
	p := New(lexer.New("void main() {\n    int x = ;\n}"))
	_, errs := p.ParseProgram()
	if len(errs) == 0 {
		t.Fatal("expected parser errors, got none")
	}
	perr, ok := errs[0].(*ParserError)
	if !ok {
		t.Fatalf("expected *ParserError, got %T", errs[0])
	}
	if perr.Line != 2 {
		t.Errorf("error line = %d, want 2", perr.Line)
	}
	if perr.Column <= 0 {
		t.Errorf("error column = %d, want positive", perr.Column)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	src := `
// leading comment
int x = 1; // trailing
/* block
   comment */
int y = 2;
`
	program := parseSource(t, src)
	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}
}
