package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestCompileInMemory(t *testing.T) {
	prog, errs := Compile(`
void main() {
    PrintString("hello");
}
`, "test.sks", Options{})
	if len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
	if _, ok := prog.FuncByName("main"); !ok {
		t.Error("main missing from compiled program")
	}
	if prog.Size == 0 {
		t.Error("program has no code")
	}
}

func TestCompileReportsParseErrorWithContext(t *testing.T) {
	_, errs := Compile("void main() {\n    int x = ;\n}\n", "broken.sks", Options{})
	if len(errs) == 0 {
		t.Fatal("expected errors, got none")
	}
	e := errs[0]
	if e.Phase != PhaseParse {
		t.Errorf("phase = %q, want parse", e.Phase)
	}
	if e.FileName != "broken.sks" {
		t.Errorf("file = %q, want broken.sks", e.FileName)
	}
	if e.Line != 2 {
		t.Errorf("line = %d, want 2", e.Line)
	}
	if !strings.Contains(e.Context, "int x = ;") {
		t.Errorf("context missing source line:\n%s", e.Context)
	}
	if !strings.Contains(e.Context, "^") {
		t.Errorf("context missing caret:\n%s", e.Context)
	}
}

func TestCompileReportsSemanticError(t *testing.T) {
	_, errs := Compile("void main() { undefined = 1; }", "test.sks", Options{})
	if len(errs) == 0 {
		t.Fatal("expected errors, got none")
	}
	if errs[0].Phase != PhaseCompile {
		t.Errorf("phase = %q, want compile", errs[0].Phase)
	}
	if !strings.Contains(errs[0].Message, "undefined variable") {
		t.Errorf("message = %q, want undefined variable", errs[0].Message)
	}
	if !strings.Contains(errs[0].Context, "undefined = 1") {
		t.Errorf("context missing source line:\n%s", errs[0].Context)
	}
}

func TestSemanticErrorInIncludeNamesTheLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "buggy.sks", `int Twice(int n) {
    return n * missing;
}
`)
	main := writeSource(t, dir, "main.sks", `#include "buggy"
void main() {
    PrintInteger(Twice(2));
}
`)

	_, errs := CompileFile(main, Options{})
	if len(errs) == 0 {
		t.Fatal("expected errors, got none")
	}
	e := errs[0]
	if !strings.Contains(e.Message, `undefined variable "missing"`) {
		t.Errorf("message = %q, want undefined variable", e.Message)
	}
	if e.FileName != lib {
		t.Errorf("file = %q, want %q", e.FileName, lib)
	}
	if e.Line != 2 {
		t.Errorf("line = %d, want 2", e.Line)
	}
	if !strings.Contains(e.Context, "return n * missing;") {
		t.Errorf("context missing library source line:\n%s", e.Context)
	}
}

func TestCompileFileResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "mathlib.sks", `
int Square(int n) {
    return n * n;
}
`)
	main := writeSource(t, dir, "main.sks", `#include "mathlib"
void main() {
    PrintInteger(Square(6));
}
`)

	prog, errs := CompileFile(main, Options{})
	if len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
	if _, ok := prog.FuncByName("Square"); !ok {
		t.Error("included function missing from program")
	}
}

func TestIncludeNameIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Shared_Defs.SKS", "int LIMIT = 99;\n")
	main := writeSource(t, dir, "main.sks", `#include "shared_defs"
void main() {
    PrintInteger(LIMIT);
}
`)

	if _, errs := CompileFile(main, Options{}); len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
}

func TestDuplicateAndCyclicIncludesAreLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.sks", `#include "b"
int FromA() { return 1; }
`)
	writeSource(t, dir, "b.sks", `#include "a"
int FromB() { return 2; }
`)
	main := writeSource(t, dir, "main.sks", `#include "a"
#include "b"
void main() {
    PrintInteger(FromA() + FromB());
}
`)

	prog, errs := CompileFile(main, Options{})
	if len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
	for _, name := range []string{"FromA", "FromB", "main"} {
		if _, ok := prog.FuncByName(name); !ok {
			t.Errorf("function %q missing", name)
		}
	}
}

func TestMissingIncludeReported(t *testing.T) {
	dir := t.TempDir()
	main := writeSource(t, dir, "main.sks", `#include "nonexistent"
void main() {}
`)

	_, errs := CompileFile(main, Options{})
	if len(errs) == 0 {
		t.Fatal("expected errors, got none")
	}
	if errs[0].Phase != PhaseInclude {
		t.Errorf("phase = %q, want include", errs[0].Phase)
	}
	if !strings.Contains(errs[0].Message, "nonexistent") {
		t.Errorf("message = %q, want the include name", errs[0].Message)
	}
}

func TestIncludeDirsSearched(t *testing.T) {
	srcDir := t.TempDir()
	libDir := t.TempDir()
	writeSource(t, libDir, "common.sks", "int VERSION = 3;\n")
	main := writeSource(t, srcDir, "main.sks", `#include "common"
void main() {
    PrintInteger(VERSION);
}
`)

	if _, errs := CompileFile(main, Options{IncludeDirs: []string{libDir}}); len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
}

func TestEntryOverride(t *testing.T) {
	src := `
int StartingConditional() {
    return 1;
}
`
	if _, errs := Compile(src, "cond.sks", Options{Entry: "StartingConditional"}); len(errs) != 0 {
		t.Fatalf("compile errors: %s", FormatErrors(errs))
	}
	if _, errs := Compile(src, "cond.sks", Options{}); len(errs) == 0 {
		t.Error("default entry should be missing")
	}
}

func TestGenerateErrorContext(t *testing.T) {
	ctx := GenerateErrorContext("int a;\nint b = ;\nint c;", 2, 9)
	lines := strings.Split(ctx, "\n")
	if len(lines) != 2 {
		t.Fatalf("context has %d lines, want 2:\n%s", len(lines), ctx)
	}
	if !strings.Contains(lines[0], "2 | int b = ;") {
		t.Errorf("first line = %q", lines[0])
	}
	caretCol := strings.Index(lines[1], "^")
	if caretCol < 0 {
		t.Fatalf("no caret in %q", lines[1])
	}
	srcCol := strings.Index(lines[0], "int b = ;")
	if caretCol-srcCol != 8 {
		t.Errorf("caret at column offset %d, want 8", caretCol-srcCol)
	}
}
