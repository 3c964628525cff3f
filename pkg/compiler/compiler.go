// Package compiler is the front door of the Skald compiler: it loads
// sources, resolves #include directives, parses every unit, and drives the
// backend to produce a finalized instruction stream.
package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skald-lang/skald/pkg/compiler/ast"
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	backend "github.com/skald-lang/skald/pkg/compiler/compiler"
	"github.com/skald-lang/skald/pkg/compiler/lexer"
	"github.com/skald-lang/skald/pkg/compiler/parser"
	"github.com/skald-lang/skald/pkg/compiler/symbol"
	"github.com/skald-lang/skald/pkg/logger"
	"github.com/skald-lang/skald/pkg/script"
)

// SourceExt is the extension of Skald source files.
const SourceExt = ".sks"

// DefaultEntry is the function compiled as the program's entry point when
// the caller does not name one.
const DefaultEntry = "main"

// Options controls one compilation.
type Options struct {
	// Entry names the entry-point function. Empty selects DefaultEntry.
	Entry string
	// IncludeDirs are searched, in order, for #include libraries. The
	// including file's own directory is always searched first.
	IncludeDirs []string
	// Routines is the engine routine table calls resolve against. Nil
	// selects the standard library.
	Routines *symbol.Table
	// Loader reads and decodes source files. Nil selects the default
	// filesystem loader.
	Loader *script.Loader
}

func (o *Options) entry() string {
	if o.Entry == "" {
		return DefaultEntry
	}
	return o.Entry
}

func (o *Options) loader() *script.Loader {
	if o.Loader == nil {
		return script.NewLoader("")
	}
	return o.Loader
}

// Compile compiles in-memory source. fileName is used in diagnostics and as
// the anchor for resolving includes.
func Compile(source, fileName string, opts Options) (*codegen.Program, []*CompileError) {
	u := newUnitLoader(opts)
	program := u.parseUnit(source, fileName)
	if len(u.errs) > 0 {
		return nil, u.errs
	}
	return u.compile(program)
}

// CompileFile loads and compiles one source file.
func CompileFile(path string, opts Options) (*codegen.Program, []*CompileError) {
	u := newUnitLoader(opts)

	src, err := u.opts.loader().LoadFile(path)
	if err != nil {
		return nil, []*CompileError{{
			Phase:    PhaseInclude,
			Message:  err.Error(),
			FileName: path,
		}}
	}
	if len(opts.IncludeDirs) == 0 {
		u.opts.IncludeDirs = []string{filepath.Dir(path)}
	}

	program := u.parseUnit(src.Content, path)
	if len(u.errs) > 0 {
		return nil, u.errs
	}
	return u.compile(program)
}

// unitLoader accumulates parsed units and diagnostics across the include
// graph of one compilation.
type unitLoader struct {
	opts    Options
	seen    map[string]bool
	sources map[string]string // unit file name to source text, for diagnostics
	errs    []*CompileError

	// merged declarations in dependency order: included units first, in
	// include order, each unit at most once
	includes []ast.Statement
}

func newUnitLoader(opts Options) *unitLoader {
	return &unitLoader{
		opts:    opts,
		seen:    make(map[string]bool),
		sources: make(map[string]string),
	}
}

// setOrigin stamps top-level declarations with the unit they came from so
// backend diagnostics can point into the right file after the merge.
func setOrigin(stmts []ast.Statement, file string) {
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.FunctionDecl:
			d.File = file
		case *ast.VarDecl:
			d.File = file
		}
	}
}

// parseUnit parses one source text, pulls in its includes depth first, and
// returns the unit with every included declaration prepended.
func (u *unitLoader) parseUnit(source, fileName string) *ast.Program {
	p := parser.New(lexer.New(source))
	program, perrs := p.ParseProgram()
	for _, err := range perrs {
		u.addParseError(err, source, fileName)
	}
	program.FileName = fileName
	u.sources[fileName] = source
	setOrigin(program.Statements, fileName)

	for _, inc := range program.Includes {
		u.loadInclude(inc.Name, fileName)
	}

	if len(u.includes) > 0 {
		merged := make([]ast.Statement, 0, len(u.includes)+len(program.Statements))
		merged = append(merged, u.includes...)
		merged = append(merged, program.Statements...)
		program.Statements = merged
	}
	return program
}

// loadInclude resolves, loads, and parses one included library. A library
// already seen anywhere in the include graph is silently skipped, which
// also breaks include cycles.
func (u *unitLoader) loadInclude(name, from string) {
	key := strings.ToLower(name)
	if u.seen[key] {
		return
	}
	u.seen[key] = true

	path, err := u.resolveInclude(name, from)
	if err != nil {
		u.errs = append(u.errs, &CompileError{
			Phase:    PhaseInclude,
			Message:  err.Error(),
			FileName: from,
		})
		return
	}

	src, err := u.opts.loader().LoadFile(path)
	if err != nil {
		u.errs = append(u.errs, &CompileError{
			Phase:    PhaseInclude,
			Message:  err.Error(),
			FileName: path,
		})
		return
	}

	p := parser.New(lexer.New(src.Content))
	program, perrs := p.ParseProgram()
	for _, perr := range perrs {
		u.addParseError(perr, src.Content, path)
	}
	u.sources[path] = src.Content
	setOrigin(program.Statements, path)

	for _, inc := range program.Includes {
		u.loadInclude(inc.Name, path)
	}
	u.includes = append(u.includes, program.Statements...)

	logger.GetLogger().Debug("loaded include",
		"library", name,
		"path", path,
		"declarations", len(program.Statements))
}

// resolveInclude searches the including file's directory and then every
// include directory for <name>.sks, case-insensitively.
func (u *unitLoader) resolveInclude(name, from string) (string, error) {
	fileName := name + SourceExt
	dirs := make([]string, 0, len(u.opts.IncludeDirs)+1)
	if d := filepath.Dir(from); d != "" && d != "." {
		dirs = append(dirs, d)
	}
	dirs = append(dirs, u.opts.IncludeDirs...)
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	for _, dir := range dirs {
		if path, err := u.opts.loader().Find(dir, fileName); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("cannot find include %q (searched %s)", name, strings.Join(dirs, ", "))
}

// compile runs the backend over the merged unit and converts its
// diagnostics.
func (u *unitLoader) compile(program *ast.Program) (*codegen.Program, []*CompileError) {
	c := backend.New(u.opts.Routines)
	out, cerrs := c.Compile(program, u.opts.entry())
	for _, err := range cerrs {
		u.addCompileError(err, program.FileName)
	}
	if len(u.errs) > 0 {
		return nil, u.errs
	}

	logger.GetLogger().Debug("compiled unit",
		"file", program.FileName,
		"functions", len(out.Funcs),
		"bytes", out.Size)
	return out, nil
}

func (u *unitLoader) addParseError(err error, source, fileName string) {
	ce := &CompileError{Phase: PhaseParse, Message: err.Error(), FileName: fileName}
	if perr, ok := err.(*parser.ParserError); ok {
		ce.Message = perr.Message
		ce.Line = perr.Line
		ce.Column = perr.Column
		ce.Context = GenerateErrorContext(source, perr.Line, perr.Column)
	}
	u.errs = append(u.errs, ce)
}

func (u *unitLoader) addCompileError(err error, fileName string) {
	ce := &CompileError{Phase: PhaseCompile, Message: err.Error(), FileName: fileName}
	if berr, ok := err.(*backend.Error); ok {
		ce.Message = berr.Message
		ce.Line = berr.Line
		ce.Column = berr.Column
		if berr.File != "" {
			ce.FileName = berr.File
		}
		if src, ok := u.sources[ce.FileName]; ok && berr.Line > 0 {
			ce.Context = GenerateErrorContext(src, berr.Line, berr.Column)
		}
	}
	u.errs = append(u.errs, ce)
}
