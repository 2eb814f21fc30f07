package types

// universe maps predeclared type names to their types. Aliases accepted by
// the front end are listed alongside the canonical names.
var universe = map[string]Type{
	"int":     Typ[Int],
	"i64":     Typ[Int],
	"float":   Typ[Float],
	"f64":     Typ[Float],
	"bool":    Typ[Bool],
	"str":     Typ[Str],
	"string":  Typ[Str],
	"bigint":  Typ[BigInt],
	"decimal": Typ[Decimal],
	"dynamic": Typ[Dynamic],
	"ptr":     Typ[Ptr],
	"future":  Typ[Future],
	"func":    Typ[FuncAny],
	"none":    Typ[None],
	"void":    Typ[None],
}

// LookupBasic returns the predeclared type with the given name.
func LookupBasic(name string) (Type, bool) {
	t, ok := universe[name]
	return t, ok
}
