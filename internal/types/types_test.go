package types

import "testing"

func TestBasicTypes(t *testing.T) {
	tests := []struct {
		kind BasicKind
		name string
	}{
		{Int, "int"},
		{Float, "float"},
		{Bool, "bool"},
		{Str, "str"},
		{BigInt, "bigint"},
		{Decimal, "decimal"},
		{Dynamic, "dynamic"},
		{Ptr, "ptr"},
		{Future, "future"},
		{FuncAny, "func"},
		{None, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := Typ[tt.kind]
			if typ == nil {
				t.Fatalf("Typ[%d] is nil", tt.kind)
			}
			if typ.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", typ.Kind(), tt.kind)
			}
			if typ.String() != tt.name {
				t.Errorf("String() = %q, want %q", typ.String(), tt.name)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"string", "str"},
		{"list<int>", "list<int>"},
		{"list<list<str>>", "list<list<str>>"},
		{"dict<str, dynamic>", "dict<str, dynamic>"},
		{"dict<str,int>", "dict<str, int>"},
		{"tuple<int, str>", "tuple<int, str>"},
		{"(int, float)", "tuple<int, float>"},
		{"channel<int>", "channel<int>"},
		{"weak<Node>", "weak<Node>"},
		{"unowned<Node>", "unowned<Node>"},
		{"func(int, int) -> int", "func(int, int) -> int"},
		{"func()", "func()"},
		{"func", "func"},
		{"Box", "Box"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}
			if got.String() != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "list", "list<int", "dict<int>", "int<str>", "list<int> x", "weak<a, b>"} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", src)
		}
	}
}

func TestParseClass(t *testing.T) {
	typ := MustParse("list<Box>")
	l, ok := typ.(*List)
	if !ok {
		t.Fatalf("got %T, want *List", typ)
	}
	c, ok := l.Elem().(*Class)
	if !ok || c.Name() != "Box" {
		t.Fatalf("elem = %v, want class Box", l.Elem())
	}
}
