package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// CKind classifies a foreign type.
type CKind int

const (
	CVoid CKind = iota
	CChar
	CUChar
	CShort
	CUShort
	CInt
	CUInt
	CLong
	CULong
	CLongLong
	CULongLong
	CFloat
	CDouble
	CBool
	CI8
	CI16
	CI32
	CI64
	CU8
	CU16
	CU32
	CU64
	CSizeT
	CPtrDiffT
	CPointer // Elem
	CArray   // Elem, Len
	CFuncPtr // Params, Result
	CNamed   // struct or typedef, Name
)

var cKindNames = map[string]CKind{
	"void":      CVoid,
	"char":      CChar,
	"uchar":     CUChar,
	"short":     CShort,
	"ushort":    CUShort,
	"c_int":     CInt,
	"int":       CInt,
	"c_uint":    CUInt,
	"uint":      CUInt,
	"long":      CLong,
	"ulong":     CULong,
	"longlong":  CLongLong,
	"ulonglong": CULongLong,
	"c_float":   CFloat,
	"c_double":  CDouble,
	"double":    CDouble,
	"c_bool":    CBool,
	"i8":        CI8,
	"i16":       CI16,
	"i32":       CI32,
	"i64":       CI64,
	"u8":        CU8,
	"u16":       CU16,
	"u32":       CU32,
	"u64":       CU64,
	"size_t":    CSizeT,
	"ptrdiff_t": CPtrDiffT,
}

// cKindSpelling is the canonical spelling of each scalar kind.
var cKindSpelling = [...]string{
	CVoid: "void", CChar: "char", CUChar: "uchar", CShort: "short", CUShort: "ushort",
	CInt: "c_int", CUInt: "c_uint", CLong: "long", CULong: "ulong",
	CLongLong: "longlong", CULongLong: "ulonglong", CFloat: "c_float", CDouble: "c_double",
	CBool: "c_bool", CI8: "i8", CI16: "i16", CI32: "i32", CI64: "i64",
	CU8: "u8", CU16: "u16", CU32: "u32", CU64: "u64", CSizeT: "size_t", CPtrDiffT: "ptrdiff_t",
}

// CType is a foreign type.
type CType struct {
	Kind   CKind
	Elem   *CType   // CPointer, CArray
	Len    int      // CArray
	Params []*CType // CFuncPtr
	Result *CType   // CFuncPtr
	Name   string   // CNamed
}

// Bits returns the width in bits of a scalar C type on LP64 targets, or 64
// for pointers, arrays (decayed), function pointers and named types.
func (t *CType) Bits() int {
	switch t.Kind {
	case CVoid:
		return 0
	case CChar, CUChar, CBool, CI8, CU8:
		return 8
	case CShort, CUShort, CI16, CU16:
		return 16
	case CInt, CUInt, CI32, CU32, CFloat:
		return 32
	}
	return 64
}

// IsFloat reports whether t is float or double.
func (t *CType) IsFloat() bool {
	return t.Kind == CFloat || t.Kind == CDouble
}

// IsSigned reports whether an integer C type sign-extends.
func (t *CType) IsSigned() bool {
	switch t.Kind {
	case CChar, CShort, CInt, CLong, CLongLong, CI8, CI16, CI32, CI64, CPtrDiffT:
		return true
	}
	return false
}

// IsPointer reports whether t is passed as an address.
func (t *CType) IsPointer() bool {
	switch t.Kind {
	case CPointer, CArray, CFuncPtr, CNamed:
		return true
	}
	return false
}

// IsCString reports whether t is char* (or const char*).
func (t *CType) IsCString() bool {
	return t.Kind == CPointer && t.Elem != nil && (t.Elem.Kind == CChar || t.Elem.Kind == CUChar)
}

func (t *CType) String() string {
	switch t.Kind {
	case CPointer:
		return "*" + t.Elem.String()
	case CArray:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	case CFuncPtr:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		s := "fn(" + strings.Join(parts, ", ") + ")"
		if t.Result != nil && t.Result.Kind != CVoid {
			s += " -> " + t.Result.String()
		}
		return s
	case CNamed:
		return t.Name
	}
	if int(t.Kind) < len(cKindSpelling) && cKindSpelling[t.Kind] != "" {
		return cKindSpelling[t.Kind]
	}
	return "?"
}

// ParseCType parses a foreign type spelling:
//
//	c_int | *char | [16]u8 | fn(c_int, *void) -> c_int | MyStruct
func ParseCType(s string) (*CType, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty C type")
	case strings.HasPrefix(s, "*"):
		elem, err := ParseCType(s[1:])
		if err != nil {
			return nil, err
		}
		return &CType{Kind: CPointer, Elem: elem}, nil
	case strings.HasPrefix(s, "const "):
		return ParseCType(s[len("const "):])
	case strings.HasPrefix(s, "["):
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, fmt.Errorf("C type %q: missing ]", s)
		}
		n, err := strconv.Atoi(s[1:end])
		if err != nil {
			return nil, fmt.Errorf("C type %q: bad array length", s)
		}
		elem, err := ParseCType(s[end+1:])
		if err != nil {
			return nil, err
		}
		return &CType{Kind: CArray, Elem: elem, Len: n}, nil
	case strings.HasPrefix(s, "fn("):
		return parseCFunc(s)
	}
	if k, ok := cKindNames[s]; ok {
		return &CType{Kind: k}, nil
	}
	for _, r := range s {
		if r != '_' && !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
			return nil, fmt.Errorf("C type %q: unexpected %q", s, r)
		}
	}
	return &CType{Kind: CNamed, Name: s}, nil
}

func parseCFunc(s string) (*CType, error) {
	depth, end := 0, -1
	for i := 2; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("C type %q: unbalanced parentheses", s)
	}
	t := &CType{Kind: CFuncPtr, Result: &CType{Kind: CVoid}}
	inner := strings.TrimSpace(s[3:end])
	if inner != "" {
		for _, part := range splitTop(inner) {
			p, err := ParseCType(part)
			if err != nil {
				return nil, err
			}
			t.Params = append(t.Params, p)
		}
	}
	rest := strings.TrimSpace(s[end+1:])
	if rest != "" {
		if !strings.HasPrefix(rest, "->") {
			return nil, fmt.Errorf("C type %q: expected ->", s)
		}
		r, err := ParseCType(rest[2:])
		if err != nil {
			return nil, err
		}
		t.Result = r
	}
	return t, nil
}

// splitTop splits on commas not nested in parentheses.
func splitTop(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
