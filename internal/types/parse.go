package types

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse parses the source spelling of a type, as produced by String:
//
//	int | str | list<int> | dict<str, dynamic> | tuple<int, str>
//	channel<int> | weak<Node> | func(int, int) -> int | Node
//
// Unknown identifiers name classes.
func Parse(s string) (Type, error) {
	p := &typeParser{src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// tables of known-good spellings.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("type %q: offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) list(close string) ([]Type, error) {
	var ts []Type
	if p.accept(close) {
		return ts, nil
	}
	for {
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
		if p.accept(close) {
			return ts, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *typeParser) parse() (Type, error) {
	if p.accept("(") {
		elems, err := p.list(")")
		if err != nil {
			return nil, err
		}
		return NewTuple(elems...), nil
	}

	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected type name")
	}

	if name == "func" && p.accept("(") {
		params, err := p.list(")")
		if err != nil {
			return nil, err
		}
		var result Type
		if p.accept("->") {
			if result, err = p.parse(); err != nil {
				return nil, err
			}
		}
		return NewFunc(params, result), nil
	}

	if !p.accept("<") {
		if t, ok := LookupBasic(name); ok {
			return t, nil
		}
		switch name {
		case "list", "channel", "tuple", "dict", "weak", "unowned":
			return nil, p.errorf("%s requires type arguments", name)
		}
		return NewClass(name), nil
	}

	args, err := p.list(">")
	if err != nil {
		return nil, err
	}
	arity := func(n int) error {
		if len(args) != n {
			return p.errorf("%s takes %d type arguments, got %d", name, n, len(args))
		}
		return nil
	}
	switch name {
	case "list":
		if err := arity(1); err != nil {
			return nil, err
		}
		return NewList(args[0]), nil
	case "channel":
		if err := arity(1); err != nil {
			return nil, err
		}
		return NewChannel(args[0]), nil
	case "dict":
		if err := arity(2); err != nil {
			return nil, err
		}
		return NewDict(args[0], args[1]), nil
	case "tuple":
		return NewTuple(args...), nil
	case "weak":
		if err := arity(1); err != nil {
			return nil, err
		}
		return NewWeak(args[0]), nil
	case "unowned":
		if err := arity(1); err != nil {
			return nil, err
		}
		return NewUnowned(args[0]), nil
	}
	return nil, p.errorf("%s is not generic", name)
}
