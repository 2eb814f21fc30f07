// Package rtabi defines the ABI constants shared between the compiler and runtime.
// These values must be kept in sync with internal/runtime.
package rtabi

// Target configuration for ahead-of-time output.
const (
	// DefaultTargetTriple is used when BOLIDE_TARGET_TRIPLE is unset.
	DefaultTargetTriple = "x86_64-unknown-linux-gnu"

	// WordSize is the size of every value slot: locals, fields, container
	// elements, spawn environment entries.
	WordSize = 8
)

// Object header layout. Every managed object starts with a 16-byte header;
// the address handed to generated code points at the payload behind it.
const (
	HeaderSize = 16

	HeaderStrongOffset = 0 // u32
	HeaderWeakOffset   = 4 // u32, +1 while any strong reference exists
	HeaderTagOffset    = 8 // u8
	HeaderFlagsOffset  = 9 // u8, then 6 bytes padding
)

// Header flag bits.
const (
	FlagDropping = 1 << 0
	FlagMoved    = 1 << 1
)

// Tag identifies the payload kind of a managed object. Tags double as the
// element-kind descriptors passed to container constructors, so a list of
// strings is created with list_new(TagString) and releases its elements
// through the string path.
type Tag uint8

const (
	TagNone  Tag = iota // plain word, no RC
	TagInt              // plain word
	TagFloat            // plain word holding float64 bits
	TagBool             // plain word
	TagString
	TagBigInt
	TagDecimal
	TagList
	TagDict
	TagTuple
	TagDynamic
	TagObject
	TagFuture
	TagChannel
	TagPool
	TagRaw // bolide_alloc blocks, frames, data objects
	TagCString
	TagLibrary

	NumTags
)

var tagNames = [...]string{
	TagNone:    "none",
	TagInt:     "int",
	TagFloat:   "float",
	TagBool:    "bool",
	TagString:  "string",
	TagBigInt:  "bigint",
	TagDecimal: "decimal",
	TagList:    "list",
	TagDict:    "dict",
	TagTuple:   "tuple",
	TagDynamic: "dynamic",
	TagObject:  "object",
	TagFuture:  "future",
	TagChannel: "channel",
	TagPool:    "pool",
	TagRaw:     "raw",
	TagCString: "cstring",
	TagLibrary: "library",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// IsRC reports whether words of this tag are references to reference
// counted objects.
func (t Tag) IsRC() bool {
	switch t {
	case TagString, TagBigInt, TagDecimal, TagList, TagDict, TagTuple, TagDynamic, TagObject:
		return true
	}
	return false
}

// Dynamic payload tags (the tagged union of the dynamic type).
const (
	DynNone int64 = iota
	DynBool
	DynInt
	DynFloat
	DynBigInt
	DynDecimal
	DynString
	DynList
)

// Class descriptor layout. Each class gets a read-only data object of
// words: [field count, tag of field 0, tag of field 1, ...]. object_alloc
// keeps the descriptor address so release can cascade to RC fields.
const (
	DescCountOffset  = 0
	DescFieldsOffset = 8
)

// Channel select sentinels.
const (
	SelectTimeout int64 = -1
	SelectDefault int64 = -2
	SelectNoWait  int64 = -2 // timeout argument that requests the default branch
	SelectForever int64 = -1 // timeout argument with no timeout and no default
)

// Function pointer encoding used by the in-process engine. Native builds
// use real addresses; the JIT tags indices into its function table.
const (
	FuncPtrTag  uint64 = 1 << 62
	FuncPtrMask uint64 = FuncPtrTag - 1
)

// Heap addressing used by the in-process runtime: address = id<<AddrShift | offset.
const (
	AddrShift      = 20
	AddrOffsetMask = 1<<AddrShift - 1
)
