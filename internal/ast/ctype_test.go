package ast

import "testing"

func TestParseCType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		bits int
	}{
		{"c_int", "c_int", 32},
		{"int", "c_int", 32},
		{"double", "c_double", 64},
		{"*char", "*char", 64},
		{"const *char", "*char", 64},
		{"[16]u8", "[16]u8", 64},
		{"fn(c_int, *void) -> c_int", "fn(c_int, *void) -> c_int", 64},
		{"fn()", "fn()", 64},
		{"Point", "Point", 64},
		{"u16", "u16", 16},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ct, err := ParseCType(tt.in)
			if err != nil {
				t.Fatalf("ParseCType(%q): %v", tt.in, err)
			}
			if got := ct.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := ct.Bits(); got != tt.bits {
				t.Errorf("Bits() = %d, want %d", got, tt.bits)
			}
		})
	}
}

func TestParseCTypeErrors(t *testing.T) {
	for _, in := range []string{"", "[x]u8", "[4u8", "fn(c_int", "fn(c_int) c_int", "a-b"} {
		if _, err := ParseCType(in); err == nil {
			t.Errorf("ParseCType(%q) succeeded, want error", in)
		}
	}
}

func TestCTypePredicates(t *testing.T) {
	cstr, _ := ParseCType("*char")
	if !cstr.IsCString() || !cstr.IsPointer() {
		t.Errorf("*char: IsCString=%v IsPointer=%v", cstr.IsCString(), cstr.IsPointer())
	}
	f, _ := ParseCType("c_float")
	if !f.IsFloat() || f.IsSigned() {
		t.Errorf("c_float: IsFloat=%v IsSigned=%v", f.IsFloat(), f.IsSigned())
	}
	u, _ := ParseCType("u32")
	if u.IsSigned() {
		t.Error("u32 should be unsigned")
	}
	i, _ := ParseCType("i8")
	if !i.IsSigned() || i.Bits() != 8 {
		t.Errorf("i8: IsSigned=%v Bits=%d", i.IsSigned(), i.Bits())
	}
}
