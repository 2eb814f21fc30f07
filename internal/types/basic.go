package types

// BasicKind describes the kind of basic type.
type BasicKind int

const (
	Invalid BasicKind = iota // invalid type

	Int     // 64-bit signed
	Float   // 64-bit IEEE
	Bool    // stored as integer 0/1
	Str     // RC string
	BigInt  // RC arbitrary precision integer
	Decimal // RC fixed-point decimal
	Dynamic // RC tagged union
	Ptr     // opaque pointer
	Future  // handle of a spawned task
	FuncAny // untyped function pointer
	None    // absence of a value
)

// Basic represents a predeclared scalar or opaque type.
type Basic struct {
	typ
	kind BasicKind
	name string
}

// Kind returns the kind of the basic type.
func (b *Basic) Kind() BasicKind {
	return b.kind
}

// Name returns the name of the basic type.
func (b *Basic) Name() string {
	return b.name
}

// String implements Type.
func (b *Basic) String() string {
	return b.name
}

// Typ holds the predeclared basic types, indexed by BasicKind.
// Typ[Invalid] is nil, representing an invalid type.
var Typ = []*Basic{
	Invalid: nil,
	Int:     {kind: Int, name: "int"},
	Float:   {kind: Float, name: "float"},
	Bool:    {kind: Bool, name: "bool"},
	Str:     {kind: Str, name: "str"},
	BigInt:  {kind: BigInt, name: "bigint"},
	Decimal: {kind: Decimal, name: "decimal"},
	Dynamic: {kind: Dynamic, name: "dynamic"},
	Ptr:     {kind: Ptr, name: "ptr"},
	Future:  {kind: Future, name: "future"},
	FuncAny: {kind: FuncAny, name: "func"},
	None:    {kind: None, name: "none"},
}
