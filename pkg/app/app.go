// Package app drives batch compilation for the skaldc command: it expands
// the input paths into scripts, compiles and verifies each one, and writes
// container images or listings.
package app

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/skald-lang/skald/pkg/bytecode"
	"github.com/skald-lang/skald/pkg/cli"
	"github.com/skald-lang/skald/pkg/compiler"
	"github.com/skald-lang/skald/pkg/fileutil"
	"github.com/skald-lang/skald/pkg/logger"
	"github.com/skald-lang/skald/pkg/script"
	"github.com/skald-lang/skald/pkg/vm"
)

// OutputExt is the extension of compiled container images.
const OutputExt = ".skc"

// App is the batch compiler driver.
type App struct {
	// Stdlib holds the bundled include libraries shipped with the
	// compiler. May be nil.
	Stdlib fs.FS

	// Stdout receives listings and progress output. Defaults to os.Stdout.
	Stdout io.Writer
}

// New creates an App with the given bundled include libraries.
func New(stdlib fs.FS) *App {
	return &App{Stdlib: stdlib, Stdout: os.Stdout}
}

// Run executes one skaldc invocation. It returns an error for usage and
// I/O problems; script diagnostics are printed and folded into a single
// failure count error so every script gets compiled.
func (a *App) Run(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	if config.ShowHelp {
		cli.PrintHelp()
		return nil
	}
	if err := logger.InitLogger(config.LogLevel); err != nil {
		return err
	}

	includeDirs, cleanup, err := a.includeDirs(config)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := expandPaths(config.Paths)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no %s files under the given paths", compiler.SourceExt)
	}

	failed := 0
	for _, src := range sources {
		if err := a.compileOne(src, config, includeDirs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed", failed, len(sources))
	}
	return nil
}

// source pairs a script path with whether it came from a directory walk.
// Scripts found by walking may be pure include libraries; paths named
// directly must have an entry point.
type source struct {
	path   string
	walked bool
}

func expandPaths(paths []string) ([]source, error) {
	var sources []source
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			sources = append(sources, source{path: path})
			continue
		}
		scripts, err := script.NewLoader(path).LoadAll()
		if err != nil {
			return nil, err
		}
		for _, s := range scripts {
			sources = append(sources, source{path: s.Path, walked: true})
		}
	}
	return sources, nil
}

func (a *App) compileOne(src source, config *cli.Config, includeDirs []string) error {
	prog, errs := compiler.CompileFile(src.path, compiler.Options{
		Entry:       config.Entry,
		IncludeDirs: includeDirs,
	})
	if src.walked && compiler.MissingEntry(errs) {
		logger.GetLogger().Debug("skipping include library", "path", src.path)
		return nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", compiler.FormatErrors(errs))
	}

	if verrs := vm.Verify(prog); len(verrs) > 0 {
		lines := make([]string, len(verrs))
		for i, err := range verrs {
			lines[i] = err.Error()
		}
		return fmt.Errorf("%s: verification failed:\n%s", src.path, strings.Join(lines, "\n"))
	}

	if config.Disassemble {
		fmt.Fprintf(a.stdout(), "%s:\n%s", src.path, prog.Disassemble())
		return nil
	}
	if config.VerifyOnly {
		logger.GetLogger().Info("verified", "path", src.path, "bytes", prog.Size)
		return nil
	}

	img, err := bytecode.Encode(prog)
	if err != nil {
		return fmt.Errorf("%s: %w", src.path, err)
	}
	out := outputPath(src.path, config.OutputDir)
	if err := os.WriteFile(out, img, 0644); err != nil {
		return err
	}
	logger.GetLogger().Info("compiled", "source", src.path, "output", out, "bytes", len(img))
	return nil
}

func (a *App) stdout() io.Writer {
	if a.Stdout != nil {
		return a.Stdout
	}
	return os.Stdout
}

func outputPath(srcPath, outputDir string) string {
	name := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath)) + OutputExt
	if outputDir == "" {
		return filepath.Join(filepath.Dir(srcPath), name)
	}
	return filepath.Join(outputDir, name)
}

// includeDirs returns the include search path: the configured directories
// plus the bundled libraries, extracted to a scratch directory so the
// loader can search them like any other.
func (a *App) includeDirs(config *cli.Config) ([]string, func(), error) {
	dirs := config.IncludeDirs
	if a.Stdlib == nil {
		return dirs, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "skald-stdlib-")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(tmp) }

	efs := fileutil.NewEmbedFS(a.Stdlib, "")
	err = fileutil.WalkDir(efs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.EqualFold(filepath.Ext(path), compiler.SourceExt) {
			return nil
		}
		data, err := efs.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(tmp, filepath.Base(path)), data, 0644)
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return append(dirs, tmp), cleanup, nil
}
