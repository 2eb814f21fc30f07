// Package main implements the Bolide toolchain entry point.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/backend/jit"
	"github.com/bolide-lang/bolide/internal/backend/llvm"
	"github.com/bolide-lang/bolide/internal/codegen"
	"github.com/bolide-lang/bolide/internal/config"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/ir/passes"
	"github.com/bolide-lang/bolide/internal/logger"
	bolidert "github.com/bolide-lang/bolide/internal/runtime"
)

// Toolchain flags
var (
	output     = flag.String("o", "", "Output file for compile (default: <input>.ll)")
	emitIR     = flag.Bool("emit-ir", false, "Print the IR instead of running or compiling")
	watch      = flag.Bool("watch", false, "Re-run the program whenever the file changes")
	doctor     = flag.Bool("doctor", false, "Check toolchain")
	version    = flag.Bool("version", false, "Print version")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	checkLeaks = flag.Bool("check-leaks", false, "Report live heap objects at exit")
	verifyIR   = flag.Bool("verify-ir", false, "Verify IR after each pass")
	dumpBefore = flag.String("dump-before", "", "Dump IR before pass (name or \"*\")")
	dumpAfter  = flag.String("dump-after", "", "Dump IR after pass (name or \"*\")")
	dumpFunc   = flag.String("dump-func", "", "Only dump specific function")
)

// Version information
const Version = "0.1.0-dev"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitTrap  = 2
)

// cfg holds the environment settings; flags override it in main.
var cfg = config.Load()

func usage() {
	fmt.Fprintf(os.Stderr, "Bolide %s\n\n", Version)
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  bolide [options] run <file.json>\n")
	fmt.Fprintf(os.Stderr, "  bolide [options] compile <file.json> [-o out.ll]\n")
	fmt.Fprintf(os.Stderr, "  bolide              start the REPL\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	// Flags may also follow the command.
	args := flag.Args()
	if len(args) > 0 {
		if err := flag.CommandLine.Parse(args[1:]); err != nil {
			os.Exit(exitError)
		}
		args = append([]string{args[0]}, flag.Args()...)
	}

	if *version {
		fmt.Printf("bolide version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(exitOK)
	}

	if err := setup(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}

	if *doctor {
		os.Exit(runDoctor())
	}

	if len(args) == 0 {
		os.Exit(runREPL(os.Stdin, os.Stdout, isTerminal(int(os.Stdin.Fd()))))
	}

	cmd := args[0]
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "error: %s: no input file\n", cmd)
		usage()
		os.Exit(exitError)
	}
	filename := args[1]

	switch cmd {
	case "run":
		if *watch {
			os.Exit(runWatch(filename))
		}
		os.Exit(runFile(filename))
	case "compile":
		os.Exit(runCompile(filename))
	}
	fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cmd)
	usage()
	os.Exit(exitError)
}

// setup applies flag overrides to the configuration and initialises the
// logger.
func setup() error {
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *checkLeaks {
		cfg.CheckLeaks = true
	}
	if *verifyIR {
		cfg.VerifyIR = true
	}
	lc, err := cfg.Logger()
	if err != nil {
		return err
	}
	return logger.Init(lc)
}

func passConfig() passes.Config {
	pc := passes.Config{
		DumpBefore: *dumpBefore,
		DumpAfter:  *dumpAfter,
		Verify:     cfg.VerifyIR,
		DumpFunc:   *dumpFunc,
	}
	if pc.DumpBefore == "" && pc.DumpAfter == "" && cfg.DumpIR != "" {
		pc.DumpAfter = cfg.DumpIR
	}
	return pc
}

// loadFile reads and decodes a JSON program.
func loadFile(filename string) (*ast.Program, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ast.DecodeProgram(f, filename)
}

// build runs the code generator and the pass pipeline over prog. Imports
// resolve against the program's directory, then BOLIDE_PATH.
func build(prog *ast.Program) (*ir.Module, error) {
	dir := "."
	if prog.Path != "" {
		dir = filepath.Dir(prog.Path)
	}
	mod, err := codegen.Generate(prog, codegen.Options{
		Load: codegen.FileLoader(dir, cfg.ImportPath),
	})
	if err != nil {
		return nil, err
	}
	if err := passes.RunModule(mod, passes.Default(), passConfig()); err != nil {
		return nil, errors.Wrap(err, "pass pipeline")
	}
	return mod, nil
}

func buildFile(filename string) (*ir.Module, error) {
	prog, err := loadFile(filename)
	if err != nil {
		return nil, err
	}
	return build(prog)
}

// execute runs mod with the JIT against a fresh runtime.
func execute(mod *ir.Module, stdin io.Reader, stdout io.Writer) (int64, error) {
	rt := bolidert.New(bolidert.Options{
		Stdout:     stdout,
		Stdin:      stdin,
		PoolSize:   cfg.PoolSize,
		CheckLeaks: cfg.CheckLeaks,
	})
	e, err := jit.New(mod, rt)
	if err != nil {
		return 0, err
	}
	entry, err := e.Entry()
	if err != nil {
		return 0, err
	}
	return entry()
}

// runFile compiles filename with the JIT and runs it.
func runFile(filename string) int {
	mod, err := buildFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	if *emitIR {
		ir.FprintModule(os.Stdout, mod)
		return exitOK
	}

	code, err := execute(mod, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if _, ok := err.(*bolidert.Trap); ok {
			return exitTrap
		}
		return exitError
	}
	return int(code & 0xff)
}

// runCompile lowers filename to LLVM IR and writes it next to the input,
// or to -o.
func runCompile(filename string) int {
	mod, err := buildFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	if *emitIR {
		ir.FprintModule(os.Stdout, mod)
		return exitOK
	}

	out, err := llvm.Lower(mod, llvm.Options{
		TargetTriple: cfg.TargetTriple,
		SourceFile:   filename,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	dst := *output
	if dst == "" {
		dst = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".ll"
	}
	if err := writeModule(dst, out); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	for _, lib := range out.Libs {
		fmt.Printf("link: %s\n", lib)
	}
	return exitOK
}

// writeModule writes the module to a temporary file and renames it into
// place, so a failed write leaves no partial output.
func writeModule(dst string, out *llvm.Output) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bolide-*.ll")
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if _, err := out.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close output")
	}
	return errors.Wrap(os.Rename(tmp.Name(), dst), "write output")
}
