package types

import "testing"

func TestSizes(t *testing.T) {
	for _, src := range []string{"int", "float", "bool", "str", "list<int>", "Box", "weak<Box>"} {
		if got := Sizeof(MustParse(src)); got != 8 {
			t.Errorf("Sizeof(%s) = %d, want 8", src, got)
		}
	}
	if got := Sizeof(Typ[None]); got != 0 {
		t.Errorf("Sizeof(none) = %d, want 0", got)
	}
	if got := ClassSize(3); got != 24 {
		t.Errorf("ClassSize(3) = %d, want 24", got)
	}
	if got := FieldOffset(2); got != 16 {
		t.Errorf("FieldOffset(2) = %d, want 16", got)
	}
}
