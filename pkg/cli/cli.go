// Package cli parses the skaldc command line.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Config holds the settings parsed from the command line.
type Config struct {
	Paths       []string // source files or directories to compile
	OutputDir   string   // destination for compiled images, "" writes next to the source
	IncludeDirs []string // extra directories searched for includes
	Entry       string   // entry-point function name, "" uses the default
	Disassemble bool     // print listings instead of writing images
	VerifyOnly  bool     // compile and verify without writing output
	LogLevel    string   // debug, info, warn, error
	ShowHelp    bool
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// ParseArgs parses the command line into a Config. Flag values take
// precedence over environment variables.
func ParseArgs(args []string) (*Config, error) {
	// reorder so flags precede positional arguments
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("skaldc", flag.ContinueOnError)

	config := &Config{}
	var includes stringList

	fs.StringVar(&config.OutputDir, "o", "", "output directory")
	fs.StringVar(&config.OutputDir, "output", "", "output directory")
	fs.Var(&includes, "I", "include directory (repeatable)")
	fs.StringVar(&config.Entry, "entry", "", "entry-point function name")
	fs.BoolVar(&config.Disassemble, "S", false, "print listings instead of writing images")
	fs.BoolVar(&config.VerifyOnly, "verify", false, "compile and verify without writing output")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (short form)")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (short form)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}
	config.IncludeDirs = includes

	// environment fallbacks, flags win
	if len(config.IncludeDirs) == 0 {
		if env := os.Getenv("SKALD_INCLUDE"); env != "" {
			for _, dir := range strings.Split(env, string(os.PathListSeparator)) {
				if dir != "" {
					config.IncludeDirs = append(config.IncludeDirs, dir)
				}
			}
		}
	}
	if config.LogLevel == "info" {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			config.LogLevel = strings.ToLower(env)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if config.Disassemble && config.VerifyOnly {
		return nil, fmt.Errorf("-S and -verify are mutually exclusive")
	}

	config.Paths = fs.Args()
	if !config.ShowHelp && len(config.Paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	return config, nil
}

// boolFlags are flags that take no value, so reorderArgs must not consume
// the argument after them.
var boolFlags = map[string]bool{
	"-h": true, "--help": true,
	"-S":      true,
	"-verify": true, "--verify": true,
}

// reorderArgs moves flags in front of positional arguments so the flag
// package sees all of them regardless of order.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// a non-bool flag consumes the following value
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if !boolFlags[arg] && !strings.Contains(arg, "=") {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes the usage message.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `skaldc - Skald script compiler

Usage:
  skaldc [options] <path>...

Arguments:
  path    a .sks source file or a directory; directories are compiled
          recursively, one output image per script with an entry point

Options:
  -o, --output <dir>       write compiled images into <dir> (default: next to each source)
  -I <dir>                 add an include search directory (repeatable)
  --entry <name>           entry-point function name (default: main)
  -S                       print disassembly listings instead of writing images
  --verify                 compile and verify only, write nothing
  -l, --log-level <level>  log level: debug, info, warn, error (default: info)
  -h, --help               show this help

Environment Variables:
  SKALD_INCLUDE=<dirs>     include search directories, separated like PATH
  LOG_LEVEL=<level>        log level

Examples:
  skaldc script.sks                 compile one script to script.skc
  skaldc -o build scripts/          compile a directory into build/
  skaldc -I lib -I shared main.sks  search lib/ and shared/ for includes
  skaldc -S main.sks                print the listing
  skaldc --verify scripts/          check every script without writing output
`)
}
