package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const arithProgram = `[
  {"kind": "let", "name": "x", "type": "int", "value": {"kind": "binary", "op": "+",
   "x": {"kind": "int", "value": 1},
   "y": {"kind": "binary", "op": "*", "x": {"kind": "int", "value": 2}, "y": {"kind": "int", "value": 3}}}},
  {"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"}, "args": [{"kind": "ident", "name": "x"}]}}
]`

const divProgram = `[
  {"kind": "let", "name": "z", "type": "int", "value": {"kind": "int", "value": 0}},
  {"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"},
   "args": [{"kind": "binary", "op": "/", "x": {"kind": "int", "value": 10}, "y": {"kind": "ident", "name": "z"}}]}}
]`

func TestRunFile(t *testing.T) {
	filename := writeTempProgram(t, arithProgram)
	code, out, errOut := captureOutput(t, func() int {
		return runFile(filename)
	})
	if code != exitOK {
		t.Fatalf("runFile exit=%d\nstderr:\n%s", code, errOut)
	}
	if out != "7\n" {
		t.Errorf("stdout = %q, want %q", out, "7\n")
	}
}

func TestRunFileTrap(t *testing.T) {
	filename := writeTempProgram(t, divProgram)
	code, _, errOut := captureOutput(t, func() int {
		return runFile(filename)
	})
	if code != exitTrap {
		t.Fatalf("runFile exit=%d, want %d\nstderr:\n%s", code, exitTrap, errOut)
	}
	if !strings.Contains(errOut, "division by zero") {
		t.Errorf("stderr does not report the trap:\n%s", errOut)
	}
}

func TestRunFileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"bad json", `[{"kind": `, "error:"},
		{"undefined", `[{"kind": "expr", "x": {"kind": "ident", "name": "nope"}}]`, "undefined: nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := writeTempProgram(t, tt.src)
			code, _, errOut := captureOutput(t, func() int {
				return runFile(filename)
			})
			if code != exitError {
				t.Errorf("exit=%d, want %d", code, exitError)
			}
			if !strings.Contains(errOut, tt.msg) {
				t.Errorf("stderr %q does not contain %q", errOut, tt.msg)
			}
		})
	}

	code, _, _ := captureOutput(t, func() int {
		return runFile(filepath.Join(t.TempDir(), "missing.json"))
	})
	if code != exitError {
		t.Errorf("missing file exit=%d", code)
	}
}

func TestRunCompile(t *testing.T) {
	filename := writeTempProgram(t, arithProgram)
	code, _, errOut := captureOutput(t, func() int {
		return runCompile(filename)
	})
	if code != exitOK {
		t.Fatalf("runCompile exit=%d\nstderr:\n%s", code, errOut)
	}
	data, err := os.ReadFile(strings.TrimSuffix(filename, ".json") + ".ll")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{"define i32 @main()", "@bolide_main", "declare void @print_int("} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output missing %q:\n%s", want, data)
		}
	}
}

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		`{"kind": "fn", "name": "add",`,
		`  "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}], "result": "int",`,
		`  "body": [{"kind": "return", "value": {"kind": "binary", "op": "+",`,
		`    "x": {"kind": "ident", "name": "a"}, "y": {"kind": "ident", "name": "b"}}}]}`,
		`{"kind": "let", "name": "base", "value": {"kind": "int", "value": 40}}`,
		`{"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "add"},`,
		`  "args": [{"kind": "ident", "name": "base"}, {"kind": "int", "value": 2}]}}`,
		`{"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"}, "args": [{"kind": "str", "value": "hi"}]}}`,
		`{"kind": "expr", "x": {"kind": "int", "value": 0}}`,
		`clear`,
		`{"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "add"}, "args": []}}`,
		`quit`,
		`{"kind": "expr", "x": {"kind": "int", "value": 99}}`,
	}, "\n")

	var out bytes.Buffer
	if code := runREPL(strings.NewReader(input), &out, false); code != exitOK {
		t.Fatalf("runREPL exit=%d", code)
	}
	want := "42\nhi\nerror: "
	if !strings.HasPrefix(out.String(), want) {
		t.Errorf("output = %q, want prefix %q", out.String(), want)
	}
	if !strings.Contains(out.String(), "undefined function add") {
		t.Errorf("clear did not forget add:\n%s", out.String())
	}
	if strings.Contains(out.String(), "99") {
		t.Errorf("input after quit was evaluated:\n%s", out.String())
	}
}

func TestREPLCommands(t *testing.T) {
	var out bytes.Buffer
	input := "help\n:ir\n{\"kind\": \"expr\", \"x\": {\"kind\": \"int\", \"value\": 5}}\n:ir\n"
	runREPL(strings.NewReader(input), &out, false)
	if !strings.Contains(out.String(), "Commands:") {
		t.Errorf("help missing:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "5\n") || !strings.Contains(out.String(), "bolide_main") {
		t.Errorf(":ir did not print the last module:\n%s", out.String())
	}
}

func TestBraceDepth(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{`{"kind": "fn",`, 1},
		{`[{"a": [1, 2]}]`, 0},
		{`"body": [{"kind": "str", "value": "{["}`, 1},
		{`"value": "a\"}"}]}`, -2},
		{``, 0},
	}
	for _, tt := range tests {
		if got := braceDepth(tt.line); got != tt.want {
			t.Errorf("braceDepth(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestCheckGoVersion(t *testing.T) {
	tests := []struct {
		v    string
		want bool
	}{
		{"go1.23.3", true},
		{"go1.24", true},
		{"go1.21.0", false},
		{"go2.0", true},
		{"devel", false},
	}
	for _, tt := range tests {
		if got := checkGoVersion(tt.v); got != tt.want {
			t.Errorf("checkGoVersion(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func writeTempProgram(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	filename := filepath.Join(dir, "input.json")
	if err := os.WriteFile(filename, []byte(src), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return filename
}

func captureOutput(t *testing.T, fn func() int) (code int, stdout string, stderr string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stdout: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stderr: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code = fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	outBytes, _ := io.ReadAll(rOut)
	errBytes, _ := io.ReadAll(rErr)
	_ = rOut.Close()
	_ = rErr.Close()

	return code, string(outBytes), string(errBytes)
}
