package ast

import (
	"strings"
	"testing"

	"github.com/bolide-lang/bolide/internal/types"
)

const sampleProgram = `{
  "path": "sample.bl",
  "stmts": [
    {"kind": "fn", "pos": "1:1", "name": "add",
     "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int", "mode": "owned"}],
     "result": "int",
     "body": [{"kind": "return", "value": {"kind": "binary", "op": "+",
               "x": {"kind": "ident", "name": "a"}, "y": {"kind": "ident", "name": "b"}}}]},
    {"kind": "class", "name": "Point",
     "fields": [{"name": "x", "type": "int", "default": {"kind": "int", "value": 0}}, {"name": "label", "type": "str"}],
     "methods": [{"kind": "fn", "name": "norm", "params": [{"name": "self", "type": "Point"}], "result": "int",
                  "body": [{"kind": "return", "value": {"kind": "member", "x": {"kind": "ident", "name": "self"}, "name": "x"}}]}]},
    {"kind": "extern", "lib": "libc.so.6",
     "funcs": [{"name": "strlen", "params": [{"name": "s", "type": "*char"}], "result": "size_t"},
               {"name": "printf", "params": [{"name": "f", "type": "*char"}], "result": "c_int", "variadic": true}]},
    {"kind": "let", "pos": "9:3", "name": "xs", "type": "list<int>",
     "value": {"kind": "list", "elems": [{"kind": "int", "value": 9007199254740993}]}},
    {"kind": "let", "names": ["q", "r"], "value": {"kind": "tuple", "elems": [{"kind": "int", "value": 1}, {"kind": "str", "value": "s"}]}},
    {"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"},
     "args": [{"kind": "call", "fun": {"kind": "ident", "name": "add"}, "args": [{"kind": "int", "value": 1}, {"kind": "int", "value": 2}]}]}},
    {"kind": "select", "branches": [
      {"var": "v", "chan": {"kind": "ident", "name": "ch"}, "body": []},
      {"kind": "timeout", "duration": {"kind": "int", "value": 50}},
      {"kind": "default"}]}
  ]
}`

func TestParseProgram(t *testing.T) {
	prog, err := ParseProgram([]byte(sampleProgram), "sample.json")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if prog.Path != "sample.bl" {
		t.Errorf("Path = %q, want sample.bl", prog.Path)
	}
	if len(prog.Stmts) != 7 {
		t.Fatalf("got %d statements, want 7", len(prog.Stmts))
	}

	fn, ok := prog.Stmts[0].(*FuncDef)
	if !ok {
		t.Fatalf("stmt 0 is %T, want *FuncDef", prog.Stmts[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 || fn.Params[1].Mode != Owned {
		t.Errorf("fn add decoded as %+v", fn)
	}
	if !types.Identical(fn.Result, types.Typ[types.Int]) {
		t.Errorf("add result = %v, want int", fn.Result)
	}
	if got := fn.Pos().String(); got != "sample.json:1:1" {
		t.Errorf("fn pos = %q", got)
	}
	ret := fn.Body[0].(*Return)
	if bin, ok := ret.Value.(*Binary); !ok || bin.Op != Add {
		t.Errorf("return value = %#v, want a + b", ret.Value)
	}

	class := prog.Stmts[1].(*ClassDef)
	if len(class.Fields) != 2 || class.Fields[0].Default == nil || class.Fields[1].Default != nil {
		t.Errorf("class fields decoded as %+v", class.Fields)
	}
	if !types.IsString(class.Fields[1].Type) {
		t.Errorf("label type = %v, want str", class.Fields[1].Type)
	}
	if len(class.Methods) != 1 || !types.IsClass(class.Methods[0].Params[0].Type) {
		t.Errorf("methods decoded as %+v", class.Methods)
	}

	ext := prog.Stmts[2].(*ExternBlock)
	if len(ext.Funcs) != 2 || !ext.Funcs[0].Params[0].Type.IsCString() || !ext.Funcs[1].Variadic {
		t.Errorf("extern decoded as %+v", ext)
	}

	let := prog.Stmts[3].(*VarDecl)
	if let.Name() != "xs" || let.Type.String() != "list<int>" {
		t.Errorf("let decoded as %+v", let)
	}
	lit := let.Value.(*ListLit).Elems[0].(*IntLit)
	if lit.Value != 9007199254740993 {
		t.Errorf("int literal = %d, lost precision", lit.Value)
	}

	destr := prog.Stmts[4].(*VarDecl)
	if len(destr.Names) != 2 || destr.Type != nil {
		t.Errorf("destructuring decoded as %+v", destr)
	}

	sel := prog.Stmts[6].(*Select)
	if len(sel.Branches) != 3 {
		t.Fatalf("select branches = %d", len(sel.Branches))
	}
	kinds := []SelectKind{sel.Branches[0].Kind, sel.Branches[1].Kind, sel.Branches[2].Kind}
	if kinds[0] != SelectRecv || kinds[1] != SelectTimeout || kinds[2] != SelectDefault {
		t.Errorf("select kinds = %v", kinds)
	}
	if sel.Branches[0].Body == nil {
		t.Error("empty branch body should decode as an empty, non-nil list")
	}
}

func TestParseProgramArray(t *testing.T) {
	prog, err := ParseProgram([]byte(`[{"kind": "expr", "x": {"kind": "call", "fun": {"kind": "ident", "name": "print"}, "args": [{"kind": "str", "value": "hi"}]}}]`), "a.json")
	if err != nil {
		t.Fatal(err)
	}
	if prog.Path != "a.json" || len(prog.Stmts) != 1 {
		t.Errorf("got %+v", prog)
	}
}

func TestParseProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown stmt", `[{"kind": "goto"}]`, "unknown statement kind"},
		{"unknown expr", `[{"kind": "expr", "x": {"kind": "lambda"}}]`, "unknown expression kind"},
		{"missing kind", `[{"name": "x"}]`, "node without kind"},
		{"bad type", `[{"kind": "let", "name": "x", "type": "list", "value": {"kind": "none"}}]`, "requires type arguments"},
		{"bad operator", `[{"kind": "expr", "x": {"kind": "binary", "op": "**", "x": {"kind": "int"}, "y": {"kind": "int"}}}]`, "unknown operator"},
		{"bad mode", `[{"kind": "fn", "name": "f", "params": [{"name": "a", "mode": "inout"}]}]`, "unknown mode"},
		{"bad pos", `[{"kind": "return", "pos": "here"}]`, "malformed position"},
		{"syntax", `[{"kind": `, "unexpected end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProgram([]byte(tt.src), "bad.json")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
