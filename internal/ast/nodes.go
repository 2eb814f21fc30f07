// Package ast defines the program representation handed to the Bolide
// backend by the front end: a merged list of top-level items whose
// expressions and statements carry resolved type annotations.
package ast

import "github.com/bolide-lang/bolide/internal/types"

// ----------------------------------------------------------------------------
// Interfaces

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Pos // position of first character belonging to the node
	aNode()   // marker method to restrict implementations to this package
}

// Expr is the interface for all expression nodes.
type Expr interface {
	Node
	aExpr()
}

// Stmt is the interface for all statement nodes. Function, class, import
// and extern declarations are statements too; at top level they declare,
// anywhere else they are ignored by the generator.
type Stmt interface {
	Node
	aStmt()
}

// ----------------------------------------------------------------------------
// Base node types

// node is the base struct embedded in all AST nodes.
type node struct {
	pos Pos
}

func (n *node) Pos() Pos { return n.pos }
func (n *node) aNode()   {}

// SetPos sets the node position. Front ends that build trees in memory use
// it; the JSON decoder sets positions directly.
func (n *node) SetPos(p Pos) { n.pos = p }

// expr is embedded in all expression nodes.
type expr struct{ node }

func (*expr) aExpr() {}

// stmt is embedded in all statement nodes.
type stmt struct{ node }

func (*stmt) aStmt() {}

// ----------------------------------------------------------------------------
// Program

// Program is an ordered list of top-level items.
type Program struct {
	Path  string // file the program was loaded from, if any
	Stmts []Stmt
}

// ----------------------------------------------------------------------------
// Declarations

// ParamMode describes how an argument is passed.
type ParamMode int

const (
	Borrow ParamMode = iota // by value, caller keeps ownership
	Owned                   // by value, caller's binding is moved
	Ref                     // by address of a caller stack slot
)

var paramModeNames = [...]string{Borrow: "borrow", Owned: "owned", Ref: "ref"}

func (m ParamMode) String() string {
	if int(m) < len(paramModeNames) {
		return paramModeNames[m]
	}
	return "unknown"
}

// Param is a function parameter.
type Param struct {
	Name string
	Type types.Type
	Mode ParamMode
}

// FuncDef declares a function: [async] fn Name(Params) -> Result [from Lifetime...] { Body }
type FuncDef struct {
	stmt
	Name     string
	Params   []Param
	Result   types.Type // nil for no result
	Body     []Stmt
	Async    bool
	Lifetime []string // parameters named in a `from` clause; nil when absent
}

// Field is a class field with an optional default value.
type Field struct {
	Name    string
	Type    types.Type
	Default Expr // may be nil
}

// ClassDef declares a class: class Name [: Parent] { Fields; Methods }
type ClassDef struct {
	stmt
	Name    string
	Parent  string // "" for a root class
	Fields  []Field
	Methods []*FuncDef
}

// Import names another program file: import "Path" [as Alias]
type Import struct {
	stmt
	Path  string
	Alias string // module name; derived from Path when empty
}

// ExternBlock declares foreign functions, structs and type aliases found in
// a shared library.
type ExternBlock struct {
	stmt
	Lib      string
	Funcs    []*ExternFunc
	Structs  []*ExternStruct
	Typedefs []*Typedef
}

// ExternParam is a foreign function parameter.
type ExternParam struct {
	Name string
	Type *CType
}

// ExternFunc is a foreign function declaration.
type ExternFunc struct {
	Name     string
	Params   []ExternParam
	Result   *CType // Void when absent
	Variadic bool
}

// ExternStruct is a foreign struct declaration.
type ExternStruct struct {
	Name   string
	Fields []ExternParam
}

// Typedef is a foreign type alias.
type Typedef struct {
	Name   string
	Target *CType
}

// ----------------------------------------------------------------------------
// Statements

// VarDecl declares one binding, or several when destructuring a tuple:
// let Names[: Type] = Value
type VarDecl struct {
	stmt
	Names []string
	Type  types.Type // nil if inferred
	Value Expr       // nil for zero initialization
}

// Name returns the first bound name.
func (d *VarDecl) Name() string { return d.Names[0] }

// Assign assigns to an identifier, a member, or an index expression.
type Assign struct {
	stmt
	Target Expr
	Value  Expr
}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	stmt
	X Expr
}

// Return returns from the enclosing function; Value may be nil.
type Return struct {
	stmt
	Value Expr
}

// ElifBranch is one elif arm.
type ElifBranch struct {
	Cond Expr
	Body []Stmt
}

// If is if/elif/else.
type If struct {
	stmt
	Cond  Expr
	Then  []Stmt
	Elifs []ElifBranch
	Else  []Stmt // nil when absent
}

// While is a pre-tested loop.
type While struct {
	stmt
	Cond Expr
	Body []Stmt
}

// For iterates over a range, a list, or a dict. Two loop variables over a
// dict bind key and value.
type For struct {
	stmt
	Vars []string
	Iter Expr
	Body []Stmt
}

// Pool runs Body with a worker pool of Size workers as the spawn context.
type Pool struct {
	stmt
	Size Expr
	Body []Stmt
}

// Send sends Value on channel Chan: Chan <- Value
type Send struct {
	stmt
	Chan  Expr
	Value Expr
}

// SelectKind distinguishes select branches.
type SelectKind int

const (
	SelectRecv SelectKind = iota
	SelectTimeout
	SelectDefault
)

// SelectBranch is one arm of a channel select.
type SelectBranch struct {
	Kind     SelectKind
	Var      string // receive binding; may be empty
	Chan     Expr   // SelectRecv
	Duration Expr   // SelectTimeout, in milliseconds
	Body     []Stmt
}

// Select waits on several channel receives.
type Select struct {
	stmt
	Branches []SelectBranch
}

// AwaitScope joins every task started inside it before control leaves.
type AwaitScope struct {
	stmt
	Body []Stmt
}

// AsyncBranch is one arm of an async select: Var = await Expr => Body.
type AsyncBranch struct {
	Var  string // may be empty
	Expr Expr   // spawn or async call producing a future
	Body []Stmt
}

// AsyncSelect runs the first future to complete.
type AsyncSelect struct {
	stmt
	Branches []AsyncBranch
}

// ----------------------------------------------------------------------------
// Expressions

// IntLit is an integer literal.
type IntLit struct {
	expr
	Value int64
}

// FloatLit is a float literal.
type FloatLit struct {
	expr
	Value float64
}

// BoolLit is true or false.
type BoolLit struct {
	expr
	Value bool
}

// StringLit is a string literal.
type StringLit struct {
	expr
	Value string
}

// BigIntLit is an arbitrary precision integer literal, e.g. 123n.
type BigIntLit struct {
	expr
	Value string
}

// DecimalLit is a decimal literal, e.g. 1.25d.
type DecimalLit struct {
	expr
	Value string
}

// NoneLit is the none literal.
type NoneLit struct {
	expr
}

// Ident is a name.
type Ident struct {
	expr
	Name string
}

// BinOp is a binary operator.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
)

var binOpNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	And: "and", Or: "or",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op yields a 0/1 result.
func (op BinOp) IsComparison() bool {
	return op >= Eq && op <= Ge
}

// Binary is X Op Y.
type Binary struct {
	expr
	Op   BinOp
	X, Y Expr
}

// UnOp is a unary operator.
type UnOp int

const (
	Neg UnOp = iota
	Not
)

func (op UnOp) String() string {
	if op == Neg {
		return "-"
	}
	return "not"
}

// Unary is Op X.
type Unary struct {
	expr
	Op UnOp
	X  Expr
}

// Call is Fun(Args).
type Call struct {
	expr
	Fun  Expr
	Args []Expr
}

// Index is X[Index].
type Index struct {
	expr
	X     Expr
	Index Expr
}

// Member is X.Name.
type Member struct {
	expr
	X    Expr
	Name string
}

// ListLit is [Elems].
type ListLit struct {
	expr
	Elems []Expr
}

// DictLit is {Keys[i]: Values[i], ...}.
type DictLit struct {
	expr
	Keys   []Expr
	Values []Expr
}

// TupleLit is (Elems...).
type TupleLit struct {
	expr
	Elems []Expr
}

// Spawn starts Func(Args) as a task and yields its future.
type Spawn struct {
	expr
	Func string
	Args []Expr
}

// Await waits for a future.
type Await struct {
	expr
	X Expr
}

// AwaitAll waits for several futures and yields a tuple of their results.
type AwaitAll struct {
	expr
	Exprs []Expr
}

// Recv receives from a channel: <- Chan
type Recv struct {
	expr
	Chan Expr
}
