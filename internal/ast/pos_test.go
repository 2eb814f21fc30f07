package ast

import "testing"

func TestPosString(t *testing.T) {
	tests := []struct {
		name    string
		pos     Pos
		wantStr string
	}{
		{"with filename", NewPos("demo.bl", 10, 5), "demo.bl:10:5"},
		{"without filename", NewPos("", 10, 5), "10:5"},
		{"line 1 col 1", NewPos("main.bl", 1, 1), "main.bl:1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.String(); got != tt.wantStr {
				t.Errorf("Pos.String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestPosIsValid(t *testing.T) {
	if !NewPos("", 3, 1).IsValid() {
		t.Error("line 3 should be valid")
	}
	if (Pos{}).IsValid() {
		t.Error("zero Pos should be invalid")
	}
	if NewPos("x.bl", 0, 4).IsValid() {
		t.Error("line 0 should be invalid")
	}
}

func TestParsePos(t *testing.T) {
	tests := []struct {
		in       string
		wantFile string
		wantLine uint32
		wantCol  uint32
		wantErr  bool
	}{
		{"4:7", "prog.json", 4, 7, false},
		{"lib.bl:12:3", "lib.bl", 12, 3, false},
		{"C:/src/a.bl:2:9", "C:/src/a.bl", 2, 9, false},
		{"nonsense", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := parsePos("prog.json", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePos(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Filename() != tt.wantFile || p.Line() != tt.wantLine || p.Col() != tt.wantCol {
				t.Errorf("parsePos(%q) = %v, want %s:%d:%d", tt.in, p, tt.wantFile, tt.wantLine, tt.wantCol)
			}
		})
	}
}
