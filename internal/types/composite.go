package types

import "strings"

// List represents list<Elem>.
type List struct {
	typ
	elem Type
}

// NewList creates a list type with the given element type.
func NewList(elem Type) *List {
	return &List{elem: elem}
}

// Elem returns the element type.
func (l *List) Elem() Type { return l.elem }

// String implements Type.
func (l *List) String() string {
	return "list<" + l.elem.String() + ">"
}

// Dict represents dict<Key, Value>.
type Dict struct {
	typ
	key, value Type
}

// NewDict creates a dict type.
func NewDict(key, value Type) *Dict {
	return &Dict{key: key, value: value}
}

// Key returns the key type.
func (d *Dict) Key() Type { return d.key }

// Value returns the value type.
func (d *Dict) Value() Type { return d.value }

// String implements Type.
func (d *Dict) String() string {
	return "dict<" + d.key.String() + ", " + d.value.String() + ">"
}

// Tuple represents a heterogeneous fixed-length tuple.
type Tuple struct {
	typ
	elems []Type
}

// NewTuple creates a tuple type.
func NewTuple(elems ...Type) *Tuple {
	return &Tuple{elems: elems}
}

// Len returns the number of elements.
func (t *Tuple) Len() int { return len(t.elems) }

// At returns the type of element i.
func (t *Tuple) At(i int) Type { return t.elems[i] }

// Elems returns all element types.
func (t *Tuple) Elems() []Type { return t.elems }

// String implements Type.
func (t *Tuple) String() string {
	return "tuple<" + joinTypes(t.elems) + ">"
}

// Channel represents channel<Elem>.
type Channel struct {
	typ
	elem Type
}

// NewChannel creates a channel type.
func NewChannel(elem Type) *Channel {
	return &Channel{elem: elem}
}

// Elem returns the element type.
func (c *Channel) Elem() Type { return c.elem }

// String implements Type.
func (c *Channel) String() string {
	return "channel<" + c.elem.String() + ">"
}

// Func represents a function signature type func(T1, ...) -> R.
type Func struct {
	typ
	params []Type
	result Type // nil for no result
}

// NewFunc creates a function signature type.
func NewFunc(params []Type, result Type) *Func {
	return &Func{params: params, result: result}
}

// Params returns the parameter types.
func (f *Func) Params() []Type { return f.params }

// Result returns the result type, or nil.
func (f *Func) Result() Type { return f.result }

// String implements Type.
func (f *Func) String() string {
	s := "func(" + joinTypes(f.params) + ")"
	if f.result != nil {
		s += " -> " + f.result.String()
	}
	return s
}

// Weak represents weak<Base>: a non-owning reference that reads as null
// once the referent is destroyed.
type Weak struct {
	typ
	base Type
}

// NewWeak creates a weak reference type.
func NewWeak(base Type) *Weak {
	return &Weak{base: base}
}

// Base returns the referenced type.
func (w *Weak) Base() Type { return w.base }

// String implements Type.
func (w *Weak) String() string {
	return "weak<" + w.base.String() + ">"
}

// Unowned represents unowned<Base>: a non-owning reference that is never
// checked for destruction.
type Unowned struct {
	typ
	base Type
}

// NewUnowned creates an unowned reference type.
func NewUnowned(base Type) *Unowned {
	return &Unowned{base: base}
}

// Base returns the referenced type.
func (u *Unowned) Base() Type { return u.base }

// String implements Type.
func (u *Unowned) String() string {
	return "unowned<" + u.base.String() + ">"
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
