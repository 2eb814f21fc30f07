package ast

import "fmt"

// Pos represents a position in a source file.
// The zero value is an invalid position.
type Pos struct {
	filename string // source file name
	line     uint32 // 1-based line number
	col      uint32 // 1-based column number
}

// NewPos creates a new Pos with the given filename, line, and column.
// Line and column numbers are 1-based.
func NewPos(filename string, line, col uint32) Pos {
	return Pos{filename: filename, line: line, col: col}
}

// String returns a string representation of the position in the format
// "filename:line:col" or "line:col" if filename is empty.
func (p Pos) String() string {
	if p.filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.filename, p.line, p.col)
	}
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

// IsValid reports whether the position is valid.
// A position is valid if line > 0.
func (p Pos) IsValid() bool {
	return p.line > 0
}

// Line returns the 1-based line number.
func (p Pos) Line() uint32 {
	return p.line
}

// Col returns the 1-based column number.
func (p Pos) Col() uint32 {
	return p.col
}

// Filename returns the source file name.
func (p Pos) Filename() string {
	return p.filename
}

// parsePos parses "line:col" or "file:line:col".
func parsePos(filename, s string) (Pos, error) {
	var line, col uint32
	if _, err := fmt.Sscanf(s, "%d:%d", &line, &col); err == nil {
		return NewPos(filename, line, col), nil
	}
	// file names may contain ':' so scan from the end
	var i, j int
	for j = len(s) - 1; j >= 0 && s[j] != ':'; j-- {
	}
	for i = j - 1; i >= 0 && s[i] != ':'; i-- {
	}
	if i < 0 {
		return Pos{}, fmt.Errorf("malformed position %q", s)
	}
	if _, err := fmt.Sscanf(s[i+1:], "%d:%d", &line, &col); err != nil {
		return Pos{}, fmt.Errorf("malformed position %q", s)
	}
	return NewPos(s[:i], line, col), nil
}
