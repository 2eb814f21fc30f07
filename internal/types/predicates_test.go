package types

import (
	"testing"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestIdentical(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same basic", Typ[Int], Typ[Int], true},
		{"diff basic", Typ[Int], Typ[Float], false},
		{"same list", NewList(Typ[Int]), NewList(Typ[Int]), true},
		{"diff list", NewList(Typ[Int]), NewList(Typ[Str]), false},
		{"same dict", NewDict(Typ[Str], Typ[Int]), NewDict(Typ[Str], Typ[Int]), true},
		{"diff dict", NewDict(Typ[Str], Typ[Int]), NewDict(Typ[Int], Typ[Int]), false},
		{"same tuple", NewTuple(Typ[Int], Typ[Str]), NewTuple(Typ[Int], Typ[Str]), true},
		{"tuple len", NewTuple(Typ[Int]), NewTuple(Typ[Int], Typ[Int]), false},
		{"class by name", NewClass("Box"), NewClass("Box"), true},
		{"diff class", NewClass("Box"), NewClass("Node"), false},
		{"weak vs unowned", NewWeak(NewClass("A")), NewUnowned(NewClass("A")), false},
		{"func", MustParse("func(int) -> str"), MustParse("func(int) -> str"), true},
		{"func result", MustParse("func(int) -> str"), MustParse("func(int)"), false},
		{"nil", nil, Typ[Int], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identical(tt.a, tt.b); got != tt.want {
				t.Errorf("Identical(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsRC(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"int", false},
		{"float", false},
		{"bool", false},
		{"str", true},
		{"bigint", true},
		{"decimal", true},
		{"dynamic", true},
		{"list<int>", true},
		{"dict<str, int>", true},
		{"tuple<int>", true},
		{"Box", true},
		{"weak<Box>", false},
		{"unowned<Box>", false},
		{"channel<str>", false},
		{"future", false},
		{"ptr", false},
	}
	for _, tt := range tests {
		if got := IsRC(MustParse(tt.src)); got != tt.want {
			t.Errorf("IsRC(%s) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestSpawnSuffix(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{nil, "int"},
		{Typ[Int], "int"},
		{Typ[Bool], "int"},
		{Typ[None], "int"},
		{NewChannel(Typ[Int]), "int"},
		{Typ[Future], "int"},
		{Typ[Float], "float"},
		{Typ[Str], "ptr"},
		{NewList(Typ[Int]), "ptr"},
		{NewClass("Box"), "ptr"},
		{Typ[Dynamic], "ptr"},
	}
	for _, tt := range tests {
		if got := SpawnSuffix(tt.typ); got != tt.want {
			t.Errorf("SpawnSuffix(%v) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestTagOfAndPrefix(t *testing.T) {
	tests := []struct {
		src    string
		tag    rtabi.Tag
		prefix string
	}{
		{"int", rtabi.TagInt, ""},
		{"float", rtabi.TagFloat, ""},
		{"str", rtabi.TagString, "string"},
		{"list<str>", rtabi.TagList, "list"},
		{"dict<int, int>", rtabi.TagDict, "dict"},
		{"tuple<int>", rtabi.TagTuple, "tuple"},
		{"Box", rtabi.TagObject, "object"},
		{"weak<Box>", rtabi.TagNone, ""},
	}
	for _, tt := range tests {
		typ := MustParse(tt.src)
		if got := TagOf(typ); got != tt.tag {
			t.Errorf("TagOf(%s) = %s, want %s", tt.src, got, tt.tag)
		}
		if got := RCPrefix(typ); got != tt.prefix {
			t.Errorf("RCPrefix(%s) = %q, want %q", tt.src, got, tt.prefix)
		}
	}
}
