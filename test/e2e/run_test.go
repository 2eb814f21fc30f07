package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/ast"
	"github.com/bolide-lang/bolide/internal/backend/jit"
	"github.com/bolide-lang/bolide/internal/backend/llvm"
	"github.com/bolide-lang/bolide/internal/codegen"
	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/ir/passes"
	"github.com/bolide-lang/bolide/internal/runtime"
)

// TestE2E runs every program in testdata/. Each test:
//  1. Runs the full pipeline: decode → generate → passes
//  2. Executes the module with the JIT and captures stdout
//  3. Compares output against the .golden file
//  4. Checks that nothing is left on the heap after shutdown
//  5. Checks that the module also lowers to LLVM IR
func TestE2E(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(testFiles) == 0 {
		t.Skip("no programs in testdata/")
	}

	for _, testFile := range testFiles {
		name := strings.TrimSuffix(filepath.Base(testFile), ".json")
		t.Run(name, func(t *testing.T) {
			runE2ETest(t, testFile)
		})
	}
}

func runE2ETest(t *testing.T, file string) {
	t.Helper()

	expected, err := os.ReadFile(strings.TrimSuffix(file, ".json") + ".golden")
	if err != nil {
		t.Fatalf("reading golden file: %v", err)
	}

	mod := build(t, file)

	var stdout bytes.Buffer
	rt := runtime.New(runtime.Options{Stdout: &stdout, Stdin: strings.NewReader("")})
	e, err := jit.New(mod, rt)
	if err != nil {
		t.Fatalf("jit: %v", err)
	}
	entry, err := e.Entry()
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	code, err := entry()
	if err != nil {
		t.Fatalf("run: %v\nstdout:\n%s", err, stdout.String())
	}
	rt.Wait()
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	if got := stdout.String(); got != string(expected) {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, expected)
	}

	if stats := rt.Stats(); stats.Total() != 0 {
		t.Errorf("live payloads after exit: %v", stats)
	}
	if n := rt.OverReleases(); n != 0 {
		t.Errorf("%d releases of destroyed objects", n)
	}

	if _, err := llvm.Lower(mod, llvm.Options{SourceFile: file}); err != nil {
		t.Errorf("llvm: %v", err)
	}
}

// build decodes file and runs the generator and the verified pass
// pipeline over it.
func build(t *testing.T, file string) *ir.Module {
	t.Helper()

	f, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	prog, err := ast.DecodeProgram(f, file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	mod, err := codegen.Generate(prog, codegen.Options{
		Load: codegen.FileLoader(filepath.Dir(file)),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var dump bytes.Buffer
	cfg := passes.Config{Verify: true, Out: &dump}
	if err := passes.RunModule(mod, passes.Default(), cfg); err != nil {
		t.Fatalf("passes: %v\n%s", err, dump.String())
	}
	return mod
}
