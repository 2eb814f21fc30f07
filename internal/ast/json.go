package ast

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/types"
)

// The JSON form is the contract between the front end and the backend.
// Every node is an object with a "kind" discriminator and an optional
// "pos" ("line:col"). Types are written in their source spelling and parsed
// with types.Parse; foreign types with ParseCType. A program is either an
// object {"path": ..., "stmts": [...]} or a bare array of statements.

// DecodeProgram reads a JSON program from r. filename is used for positions.
func DecodeProgram(r io.Reader, filename string) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read program")
	}
	return ParseProgram(data, filename)
}

// ParseProgram decodes a JSON program.
func ParseProgram(data []byte, filename string) (*Program, error) {
	d := &decoder{filename: filename}
	prog := &Program{Path: filename}

	trimmed := bytes.TrimSpace(data)
	var items []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrapf(err, "%s", filename)
		}
	} else {
		var top struct {
			Path  string            `json:"path"`
			Stmts []json.RawMessage `json:"stmts"`
		}
		if err := json.Unmarshal(trimmed, &top); err != nil {
			return nil, errors.Wrapf(err, "%s", filename)
		}
		if top.Path != "" {
			prog.Path = top.Path
		}
		items = top.Stmts
	}

	stmts, err := d.stmtList(items)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}
	prog.Stmts = stmts
	return prog, nil
}

// ParseStmt decodes a single JSON statement.
func ParseStmt(data []byte, filename string) (Stmt, error) {
	d := &decoder{filename: filename}
	return d.stmt(data)
}

type object map[string]json.RawMessage

type decoder struct {
	filename string
}

func (d *decoder) object(raw json.RawMessage) (object, string, Pos, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, "", Pos{}, err
	}
	var kind string
	if err := get(o, "kind", &kind); err != nil {
		return nil, "", Pos{}, err
	}
	if kind == "" {
		return nil, "", Pos{}, errors.Errorf("node without kind: %s", abbreviate(raw))
	}
	var pos Pos
	var ps string
	if err := get(o, "pos", &ps); err != nil {
		return nil, "", Pos{}, err
	}
	if ps != "" {
		p, err := parsePos(d.filename, ps)
		if err != nil {
			return nil, "", Pos{}, err
		}
		pos = p
	}
	return o, kind, pos, nil
}

// get unmarshals o[key] into dst; a missing or null key leaves dst unchanged.
func get(o object, key string, dst interface{}) error {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(raw, dst), "field %q", key)
}

func abbreviate(raw []byte) string {
	if len(raw) > 60 {
		return string(raw[:57]) + "..."
	}
	return string(raw)
}

func (d *decoder) typ(o object, key string) (types.Type, error) {
	var s string
	if err := get(o, key, &s); err != nil || s == "" {
		return nil, err
	}
	t, err := types.Parse(s)
	return t, errors.Wrapf(err, "field %q", key)
}

func (d *decoder) ctype(s string) (*CType, error) {
	if s == "" {
		return &CType{Kind: CVoid}, nil
	}
	return ParseCType(s)
}

func (d *decoder) stmtList(items []json.RawMessage) ([]Stmt, error) {
	var out []Stmt
	for _, raw := range items {
		s, err := d.stmt(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) body(o object, key string) ([]Stmt, error) {
	var items []json.RawMessage
	if err := get(o, key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, nil
	}
	stmts, err := d.stmtList(items)
	if stmts == nil && err == nil {
		stmts = []Stmt{}
	}
	return stmts, err
}

func (d *decoder) exprField(o object, key string) (Expr, error) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	e, err := d.expr(raw)
	return e, errors.Wrapf(err, "field %q", key)
}

func (d *decoder) exprList(o object, key string) ([]Expr, error) {
	var items []json.RawMessage
	if err := get(o, key, &items); err != nil {
		return nil, err
	}
	var out []Expr
	for _, raw := range items {
		e, err := d.expr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", key)
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) names(o object, list, single string) ([]string, error) {
	var names []string
	if err := get(o, list, &names); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		var name string
		if err := get(o, single, &name); err != nil {
			return nil, err
		}
		if name != "" {
			names = []string{name}
		}
	}
	return names, nil
}

func (d *decoder) funcDef(o object, pos Pos) (*FuncDef, error) {
	fn := &FuncDef{}
	fn.pos = pos
	if err := get(o, "name", &fn.Name); err != nil {
		return nil, err
	}
	if err := get(o, "async", &fn.Async); err != nil {
		return nil, err
	}
	if err := get(o, "lifetime", &fn.Lifetime); err != nil {
		return nil, err
	}
	var params []struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Mode string `json:"mode"`
	}
	if err := get(o, "params", &params); err != nil {
		return nil, err
	}
	for _, p := range params {
		param := Param{Name: p.Name, Type: types.Typ[types.Int]}
		if p.Type != "" {
			t, err := types.Parse(p.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "fn %s: param %s", fn.Name, p.Name)
			}
			param.Type = t
		}
		switch p.Mode {
		case "", "borrow":
			param.Mode = Borrow
		case "owned":
			param.Mode = Owned
		case "ref":
			param.Mode = Ref
		default:
			return nil, errors.Errorf("fn %s: param %s: unknown mode %q", fn.Name, p.Name, p.Mode)
		}
		fn.Params = append(fn.Params, param)
	}
	var err error
	if fn.Result, err = d.typ(o, "result"); err != nil {
		return nil, errors.Wrapf(err, "fn %s", fn.Name)
	}
	if fn.Body, err = d.body(o, "body"); err != nil {
		return nil, errors.Wrapf(err, "fn %s", fn.Name)
	}
	return fn, nil
}

func (d *decoder) externBlock(o object, pos Pos) (*ExternBlock, error) {
	eb := &ExternBlock{}
	eb.pos = pos
	if err := get(o, "lib", &eb.Lib); err != nil {
		return nil, err
	}
	type rawParam struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	params := func(in []rawParam) ([]ExternParam, error) {
		var out []ExternParam
		for _, p := range in {
			ct, err := ParseCType(p.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "param %s", p.Name)
			}
			out = append(out, ExternParam{Name: p.Name, Type: ct})
		}
		return out, nil
	}

	var funcs []struct {
		Name     string     `json:"name"`
		Params   []rawParam `json:"params"`
		Result   string     `json:"result"`
		Variadic bool       `json:"variadic"`
	}
	if err := get(o, "funcs", &funcs); err != nil {
		return nil, err
	}
	for _, f := range funcs {
		ps, err := params(f.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "extern fn %s", f.Name)
		}
		res, err := d.ctype(f.Result)
		if err != nil {
			return nil, errors.Wrapf(err, "extern fn %s", f.Name)
		}
		eb.Funcs = append(eb.Funcs, &ExternFunc{Name: f.Name, Params: ps, Result: res, Variadic: f.Variadic})
	}

	var structs []struct {
		Name   string     `json:"name"`
		Fields []rawParam `json:"fields"`
	}
	if err := get(o, "structs", &structs); err != nil {
		return nil, err
	}
	for _, s := range structs {
		fs, err := params(s.Fields)
		if err != nil {
			return nil, errors.Wrapf(err, "extern struct %s", s.Name)
		}
		eb.Structs = append(eb.Structs, &ExternStruct{Name: s.Name, Fields: fs})
	}

	var typedefs []struct {
		Name   string `json:"name"`
		Target string `json:"target"`
	}
	if err := get(o, "typedefs", &typedefs); err != nil {
		return nil, err
	}
	for _, td := range typedefs {
		ct, err := ParseCType(td.Target)
		if err != nil {
			return nil, errors.Wrapf(err, "typedef %s", td.Name)
		}
		eb.Typedefs = append(eb.Typedefs, &Typedef{Name: td.Name, Target: ct})
	}
	return eb, nil
}

func (d *decoder) stmt(raw json.RawMessage) (Stmt, error) {
	o, kind, pos, err := d.object(raw)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "fn":
		return d.funcDef(o, pos)

	case "class":
		c := &ClassDef{}
		c.pos = pos
		if err := get(o, "name", &c.Name); err != nil {
			return nil, err
		}
		if err := get(o, "parent", &c.Parent); err != nil {
			return nil, err
		}
		var fields []json.RawMessage
		if err := get(o, "fields", &fields); err != nil {
			return nil, err
		}
		for _, fr := range fields {
			var fo object
			if err := json.Unmarshal(fr, &fo); err != nil {
				return nil, errors.Wrapf(err, "class %s", c.Name)
			}
			var f Field
			if err := get(fo, "name", &f.Name); err != nil {
				return nil, err
			}
			if f.Type, err = d.typ(fo, "type"); err != nil {
				return nil, errors.Wrapf(err, "class %s: field %s", c.Name, f.Name)
			}
			if f.Type == nil {
				f.Type = types.Typ[types.Int]
			}
			if f.Default, err = d.exprField(fo, "default"); err != nil {
				return nil, errors.Wrapf(err, "class %s: field %s", c.Name, f.Name)
			}
			c.Fields = append(c.Fields, f)
		}
		var methods []json.RawMessage
		if err := get(o, "methods", &methods); err != nil {
			return nil, err
		}
		for _, mr := range methods {
			mo, _, mpos, err := d.object(mr)
			if err != nil {
				return nil, errors.Wrapf(err, "class %s", c.Name)
			}
			m, err := d.funcDef(mo, mpos)
			if err != nil {
				return nil, errors.Wrapf(err, "class %s", c.Name)
			}
			c.Methods = append(c.Methods, m)
		}
		return c, nil

	case "import":
		imp := &Import{}
		imp.pos = pos
		if err := get(o, "path", &imp.Path); err != nil {
			return nil, err
		}
		if err := get(o, "alias", &imp.Alias); err != nil {
			return nil, err
		}
		return imp, nil

	case "extern":
		return d.externBlock(o, pos)

	case "let":
		v := &VarDecl{}
		v.pos = pos
		if v.Names, err = d.names(o, "names", "name"); err != nil {
			return nil, err
		}
		if len(v.Names) == 0 {
			return nil, errors.Errorf("%s: let without name", pos)
		}
		if v.Type, err = d.typ(o, "type"); err != nil {
			return nil, err
		}
		if v.Value, err = d.exprField(o, "value"); err != nil {
			return nil, err
		}
		return v, nil

	case "assign":
		a := &Assign{}
		a.pos = pos
		if a.Target, err = d.exprField(o, "target"); err != nil {
			return nil, err
		}
		if a.Value, err = d.exprField(o, "value"); err != nil {
			return nil, err
		}
		if a.Target == nil || a.Value == nil {
			return nil, errors.Errorf("%s: assign needs target and value", pos)
		}
		return a, nil

	case "expr":
		s := &ExprStmt{}
		s.pos = pos
		if s.X, err = d.exprField(o, "x"); err != nil {
			return nil, err
		}
		if s.X == nil {
			return nil, errors.Errorf("%s: expr statement without x", pos)
		}
		return s, nil

	case "return":
		r := &Return{}
		r.pos = pos
		r.Value, err = d.exprField(o, "value")
		return r, err

	case "if":
		s := &If{}
		s.pos = pos
		if s.Cond, err = d.exprField(o, "cond"); err != nil {
			return nil, err
		}
		if s.Then, err = d.body(o, "then"); err != nil {
			return nil, err
		}
		var elifs []json.RawMessage
		if err := get(o, "elifs", &elifs); err != nil {
			return nil, err
		}
		for _, er := range elifs {
			var eo object
			if err := json.Unmarshal(er, &eo); err != nil {
				return nil, err
			}
			var b ElifBranch
			if b.Cond, err = d.exprField(eo, "cond"); err != nil {
				return nil, err
			}
			if b.Body, err = d.body(eo, "body"); err != nil {
				return nil, err
			}
			s.Elifs = append(s.Elifs, b)
		}
		if s.Else, err = d.body(o, "else"); err != nil {
			return nil, err
		}
		return s, nil

	case "while":
		s := &While{}
		s.pos = pos
		if s.Cond, err = d.exprField(o, "cond"); err != nil {
			return nil, err
		}
		s.Body, err = d.body(o, "body")
		return s, err

	case "for":
		s := &For{}
		s.pos = pos
		if s.Vars, err = d.names(o, "vars", "var"); err != nil {
			return nil, err
		}
		if s.Iter, err = d.exprField(o, "iter"); err != nil {
			return nil, err
		}
		s.Body, err = d.body(o, "body")
		return s, err

	case "pool":
		s := &Pool{}
		s.pos = pos
		if s.Size, err = d.exprField(o, "size"); err != nil {
			return nil, err
		}
		s.Body, err = d.body(o, "body")
		return s, err

	case "send":
		s := &Send{}
		s.pos = pos
		if s.Chan, err = d.exprField(o, "chan"); err != nil {
			return nil, err
		}
		s.Value, err = d.exprField(o, "value")
		return s, err

	case "select":
		s := &Select{}
		s.pos = pos
		var branches []json.RawMessage
		if err := get(o, "branches", &branches); err != nil {
			return nil, err
		}
		for _, br := range branches {
			var bo object
			if err := json.Unmarshal(br, &bo); err != nil {
				return nil, err
			}
			var b SelectBranch
			var k string
			if err := get(bo, "kind", &k); err != nil {
				return nil, err
			}
			switch k {
			case "", "recv":
				b.Kind = SelectRecv
			case "timeout":
				b.Kind = SelectTimeout
			case "default":
				b.Kind = SelectDefault
			default:
				return nil, errors.Errorf("%s: unknown select branch %q", pos, k)
			}
			if err := get(bo, "var", &b.Var); err != nil {
				return nil, err
			}
			if b.Chan, err = d.exprField(bo, "chan"); err != nil {
				return nil, err
			}
			if b.Duration, err = d.exprField(bo, "duration"); err != nil {
				return nil, err
			}
			if b.Body, err = d.body(bo, "body"); err != nil {
				return nil, err
			}
			s.Branches = append(s.Branches, b)
		}
		return s, nil

	case "await_scope":
		s := &AwaitScope{}
		s.pos = pos
		s.Body, err = d.body(o, "body")
		return s, err

	case "async_select":
		s := &AsyncSelect{}
		s.pos = pos
		var branches []json.RawMessage
		if err := get(o, "branches", &branches); err != nil {
			return nil, err
		}
		for _, br := range branches {
			var bo object
			if err := json.Unmarshal(br, &bo); err != nil {
				return nil, err
			}
			var b AsyncBranch
			if err := get(bo, "var", &b.Var); err != nil {
				return nil, err
			}
			if b.Expr, err = d.exprField(bo, "expr"); err != nil {
				return nil, err
			}
			if b.Body, err = d.body(bo, "body"); err != nil {
				return nil, err
			}
			s.Branches = append(s.Branches, b)
		}
		return s, nil
	}

	return nil, errors.Errorf("%s: unknown statement kind %q", pos, kind)
}

var binOps = map[string]BinOp{
	"+": Add, "-": Sub, "*": Mul, "/": Div, "%": Mod,
	"==": Eq, "!=": Ne, "<": Lt, "<=": Le, ">": Gt, ">=": Ge,
	"and": And, "or": Or, "&&": And, "||": Or,
}

func (d *decoder) expr(raw json.RawMessage) (Expr, error) {
	o, kind, pos, err := d.object(raw)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "int":
		e := &IntLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "float":
		e := &FloatLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "bool":
		e := &BoolLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "str":
		e := &StringLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "bigint":
		e := &BigIntLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "decimal":
		e := &DecimalLit{}
		e.pos = pos
		return e, get(o, "value", &e.Value)

	case "none":
		e := &NoneLit{}
		e.pos = pos
		return e, nil

	case "ident":
		e := &Ident{}
		e.pos = pos
		return e, get(o, "name", &e.Name)

	case "binary":
		e := &Binary{}
		e.pos = pos
		var op string
		if err := get(o, "op", &op); err != nil {
			return nil, err
		}
		bop, ok := binOps[op]
		if !ok {
			return nil, errors.Errorf("%s: unknown operator %q", pos, op)
		}
		e.Op = bop
		if e.X, err = d.exprField(o, "x"); err != nil {
			return nil, err
		}
		if e.Y, err = d.exprField(o, "y"); err != nil {
			return nil, err
		}
		return e, nil

	case "unary":
		e := &Unary{}
		e.pos = pos
		var op string
		if err := get(o, "op", &op); err != nil {
			return nil, err
		}
		switch op {
		case "-":
			e.Op = Neg
		case "not", "!":
			e.Op = Not
		default:
			return nil, errors.Errorf("%s: unknown unary operator %q", pos, op)
		}
		e.X, err = d.exprField(o, "x")
		return e, err

	case "call":
		e := &Call{}
		e.pos = pos
		if e.Fun, err = d.exprField(o, "fun"); err != nil {
			return nil, err
		}
		if e.Fun == nil {
			return nil, errors.Errorf("%s: call without fun", pos)
		}
		e.Args, err = d.exprList(o, "args")
		return e, err

	case "index":
		e := &Index{}
		e.pos = pos
		if e.X, err = d.exprField(o, "x"); err != nil {
			return nil, err
		}
		e.Index, err = d.exprField(o, "index")
		return e, err

	case "member":
		e := &Member{}
		e.pos = pos
		if e.X, err = d.exprField(o, "x"); err != nil {
			return nil, err
		}
		return e, get(o, "name", &e.Name)

	case "list":
		e := &ListLit{}
		e.pos = pos
		e.Elems, err = d.exprList(o, "elems")
		return e, err

	case "tuple":
		e := &TupleLit{}
		e.pos = pos
		e.Elems, err = d.exprList(o, "elems")
		return e, err

	case "dict":
		e := &DictLit{}
		e.pos = pos
		var entries [][]json.RawMessage
		if err := get(o, "entries", &entries); err != nil {
			return nil, err
		}
		for _, kv := range entries {
			if len(kv) != 2 {
				return nil, errors.Errorf("%s: dict entry needs key and value", pos)
			}
			k, err := d.expr(kv[0])
			if err != nil {
				return nil, err
			}
			v, err := d.expr(kv[1])
			if err != nil {
				return nil, err
			}
			e.Keys = append(e.Keys, k)
			e.Values = append(e.Values, v)
		}
		return e, nil

	case "spawn":
		e := &Spawn{}
		e.pos = pos
		if err := get(o, "func", &e.Func); err != nil {
			return nil, err
		}
		e.Args, err = d.exprList(o, "args")
		return e, err

	case "await":
		e := &Await{}
		e.pos = pos
		e.X, err = d.exprField(o, "x")
		return e, err

	case "await_all":
		e := &AwaitAll{}
		e.pos = pos
		e.Exprs, err = d.exprList(o, "exprs")
		return e, err

	case "recv":
		e := &Recv{}
		e.pos = pos
		e.Chan, err = d.exprField(o, "chan")
		return e, err
	}

	return nil, errors.Errorf("%s: unknown expression kind %q", pos, kind)
}
