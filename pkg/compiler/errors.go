package compiler

import (
	"fmt"
	"strings"
)

// Phase identifies the stage that produced a diagnostic.
type Phase string

const (
	PhaseParse   Phase = "parse"
	PhaseInclude Phase = "include"
	PhaseCompile Phase = "compile"
)

// CompileError is one user-facing diagnostic with its source position and a
// snippet of the offending line.
type CompileError struct {
	Phase    Phase
	Message  string
	FileName string
	Line     int
	Column   int
	Context  string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	if e.FileName != "" {
		fmt.Fprintf(&b, "%s:", e.FileName)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:%d:", e.Line, e.Column)
	}
	fmt.Fprintf(&b, " %s error: %s", e.Phase, e.Message)
	if e.Context != "" {
		b.WriteString("\n")
		b.WriteString(e.Context)
	}
	return b.String()
}

// GenerateErrorContext renders the offending source line with a caret under
// the error column, the way diagnostics are shown to script authors.
func GenerateErrorContext(source string, line, column int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	text := strings.ReplaceAll(lines[line-1], "\t", " ")

	var b strings.Builder
	fmt.Fprintf(&b, "  %d | %s\n", line, text)
	pad := len(fmt.Sprintf("  %d | ", line))
	caret := column
	if caret < 1 {
		caret = 1
	}
	if caret > len(text)+1 {
		caret = len(text) + 1
	}
	b.WriteString(strings.Repeat(" ", pad+caret-1))
	b.WriteString("^")
	return b.String()
}

// MissingEntry reports whether the diagnostics amount to nothing but the
// absence of the entry-point function, which is how pure include libraries
// present when compiled directly.
func MissingEntry(errs []*CompileError) bool {
	if len(errs) != 1 {
		return false
	}
	e := errs[0]
	return e.Phase == PhaseCompile &&
		strings.Contains(e.Message, "entry point") &&
		strings.Contains(e.Message, "is not defined")
}

// FormatErrors joins diagnostics one per line for terminal output.
func FormatErrors(errs []*CompileError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}
