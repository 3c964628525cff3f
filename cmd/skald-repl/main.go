// Command skald-repl is an interactive front end to the compiler: it keeps
// a running script, recompiles it after every input, and shows diagnostics
// or the resulting listing on demand.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/skald-lang/skald/pkg/compiler"
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/vm"
)

const historyFile = ".skald_repl_history"

func main() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("skald-repl (:help for commands, :quit to leave)")
	s := newSession()
	for {
		input, err := readInput(line)
		if err == liner.ErrPromptAborted || err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if !s.command(input) {
				return
			}
			continue
		}
		s.feed(input)
	}
}

// readInput reads one entry, continuing across lines until braces balance.
func readInput(line *liner.State) (string, error) {
	input, err := line.Prompt("skald> ")
	if err != nil {
		return "", err
	}
	depth := braceDepth(input)
	for depth > 0 {
		more, err := line.Prompt("  ...> ")
		if err != nil {
			return "", err
		}
		input += "\n" + more
		depth += braceDepth(more)
	}
	return strings.TrimSpace(input), nil
}

func braceDepth(s string) int {
	depth := 0
	for _, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}

// session holds the running script: top-level declarations plus the
// statements of a synthesized entry function.
type session struct {
	decls []string
	stmts []string
}

func newSession() *session {
	return &session{}
}

// source assembles the whole session into one compilation unit.
func (s *session) source() string {
	var b strings.Builder
	for _, d := range s.decls {
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("void main() {\n")
	for _, st := range s.stmts {
		b.WriteString("    ")
		b.WriteString(st)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (s *session) compile() (*codegen.Program, []*compiler.CompileError) {
	return compiler.Compile(s.source(), "repl", compiler.Options{})
}

// feed accepts one input, trying it first as a statement of the entry
// function and then as a top-level declaration.
func (s *session) feed(input string) {
	s.stmts = append(s.stmts, input)
	prog, stmtErrs := s.compile()
	if len(stmtErrs) == 0 {
		fmt.Printf("ok, %d bytes\n", prog.Size)
		return
	}
	s.stmts = s.stmts[:len(s.stmts)-1]

	s.decls = append(s.decls, input)
	if prog, errs := s.compile(); len(errs) == 0 {
		fmt.Printf("ok, %d bytes\n", prog.Size)
		return
	}
	s.decls = s.decls[:len(s.decls)-1]

	for _, e := range stmtErrs {
		fmt.Println(e.Error())
	}
}

// command handles a ":" directive and reports whether the loop continues.
func (s *session) command(input string) bool {
	switch fields := strings.Fields(input); fields[0] {
	case ":quit", ":exit", ":q":
		return false
	case ":help", ":h":
		fmt.Print(`statements run inside a synthesized void main(); function and global
declarations stand alone. Commands:
  :list    show the accumulated script
  :asm     show the compiled listing
  :verify  run the bytecode verifier
  :reset   start over
  :quit    leave
`)
	case ":list", ":l":
		fmt.Print(s.source())
	case ":asm":
		prog, errs := s.compile()
		if len(errs) != 0 {
			fmt.Println(compiler.FormatErrors(errs))
			break
		}
		fmt.Print(prog.Disassemble())
	case ":verify":
		prog, errs := s.compile()
		if len(errs) != 0 {
			fmt.Println(compiler.FormatErrors(errs))
			break
		}
		if verrs := vm.Verify(prog); len(verrs) != 0 {
			for _, err := range verrs {
				fmt.Println(err)
			}
			break
		}
		fmt.Println("ok")
	case ":reset":
		*s = session{}
		fmt.Println("cleared")
	default:
		fmt.Printf("unknown command %s (:help for help)\n", fields[0])
	}
	return true
}
