package ir

import (
	"fmt"
	"strings"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Verify checks the structural integrity of a function.
// It returns an error describing all violations found, or nil if valid.
func Verify(f *Func) error {
	var errs []string

	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if f.Entry == nil {
		add("func %s: entry block is nil", f.Name)
		return combineErrors(errs)
	}
	if len(f.Blocks) == 0 {
		add("func %s: no blocks", f.Name)
		return combineErrors(errs)
	}
	if f.Blocks[0] != f.Entry {
		add("func %s: Blocks[0] is not the entry block", f.Name)
	}
	if len(f.Entry.Preds) != 0 {
		add("func %s: entry block %s has %d predecessors, want 0",
			f.Name, f.Entry, len(f.Entry.Preds))
	}

	blockSet := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blockSet[b] = true
	}
	valueSet := make(map[*Value]bool)

	for _, b := range f.Blocks {
		if b.Kind == BlockInvalid {
			add("func %s, %s: block has invalid kind", f.Name, b)
		}
		if b.Func != f {
			add("func %s, %s: block Func pointer mismatch", f.Name, b)
		}

		for _, v := range b.Values {
			valueSet[v] = true

			if v.Block != b {
				add("func %s, %s, %s: value Block pointer is %s, want %s",
					f.Name, b, v, v.Block, b)
			}
			for i, arg := range v.Args {
				if arg == nil {
					add("func %s, %s, %s: arg[%d] is nil", f.Name, b, v, i)
				}
			}
			if msg := checkValue(f, v); msg != "" {
				add("func %s, %s, %s (%s): %s", f.Name, b, v, v.Op, msg)
			}
		}

		switch b.Kind {
		case BlockPlain:
			if len(b.Succs) != 1 {
				add("func %s, %s: plain block has %d succs, want 1",
					f.Name, b, len(b.Succs))
			}
		case BlockIf:
			if len(b.Controls) != 1 || b.Controls[0] == nil {
				add("func %s, %s: if block needs one control", f.Name, b)
			} else if b.Controls[0].Type != rtabi.I64 {
				add("func %s, %s: if control has class %s, want i64", f.Name, b, b.Controls[0].Type)
			}
			if len(b.Succs) != 2 {
				add("func %s, %s: if block has %d succs, want 2",
					f.Name, b, len(b.Succs))
			}
		case BlockReturn:
			if len(b.Succs) != 0 {
				add("func %s, %s: return block has %d succs, want 0",
					f.Name, b, len(b.Succs))
			}
			var ret *Value
			if len(b.Controls) > 0 {
				ret = b.Controls[0]
			}
			switch {
			case f.Result == rtabi.Void && ret != nil:
				add("func %s, %s: void function returns a value", f.Name, b)
			case f.Result != rtabi.Void && ret == nil:
				add("func %s, %s: missing return value", f.Name, b)
			case ret != nil && ret.Type != wordClass(f.Result):
				add("func %s, %s: returns %s, want %s", f.Name, b, ret.Type, wordClass(f.Result))
			}
		case BlockTrap:
			if len(b.Succs) != 0 {
				add("func %s, %s: trap block has %d succs, want 0",
					f.Name, b, len(b.Succs))
			}
		}

		for _, succ := range b.Succs {
			if !blockSet[succ] {
				add("func %s, %s: successor %s not in function", f.Name, b, succ)
				continue
			}
			if !containsBlock(succ.Preds, b) {
				add("func %s, %s: successor %s does not have %s as predecessor",
					f.Name, b, succ, b)
			}
		}
		for _, pred := range b.Preds {
			if !blockSet[pred] {
				add("func %s, %s: predecessor %s not in function", f.Name, b, pred)
				continue
			}
			if !containsBlock(pred.Succs, b) {
				add("func %s, %s: predecessor %s does not have %s as successor",
					f.Name, b, pred, b)
			}
		}
	}

	for _, b := range f.Blocks {
		for _, v := range b.Values {
			for i, arg := range v.Args {
				if arg != nil && !valueSet[arg] {
					add("func %s, %s, %s: arg[%d] (%s) not found in function",
						f.Name, b, v, i, arg)
				}
			}
		}
		for i, c := range b.Controls {
			if c != nil && !valueSet[c] {
				add("func %s, %s: control[%d] (%s) not found in function",
					f.Name, b, i, c)
			}
		}
	}

	return combineErrors(errs)
}

// checkValue validates the word classes of v and its arguments.
func checkValue(f *Func, v *Value) string {
	want := func(n int, classes ...rtabi.Class) string {
		if n >= 0 && len(v.Args) != n {
			return fmt.Sprintf("has %d args, want %d", len(v.Args), n)
		}
		for i, a := range v.Args {
			if a == nil {
				continue
			}
			c := classes[len(classes)-1]
			if i < len(classes) {
				c = classes[i]
			}
			if a.Type != c {
				return fmt.Sprintf("arg[%d] has class %s, want %s", i, a.Type, c)
			}
		}
		return ""
	}
	result := func(c rtabi.Class) string {
		if v.Type != c {
			return fmt.Sprintf("result class %s, want %s", v.Type, c)
		}
		return ""
	}
	first := func(msgs ...string) string {
		for _, m := range msgs {
			if m != "" {
				return m
			}
		}
		return ""
	}

	switch v.Op {
	case OpInvalid:
		return "invalid op"
	case OpConst, OpSlot, OpData, OpFuncAddr:
		return first(want(0, rtabi.I64), result(rtabi.I64))
	case OpConstF:
		return first(want(0, rtabi.F64), result(rtabi.F64))
	case OpArg:
		if v.AuxInt < 0 || int(v.AuxInt) >= len(f.Params) {
			return fmt.Sprintf("param index %d out of range", v.AuxInt)
		}
		return result(wordClass(f.Params[v.AuxInt]))
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor:
		return first(want(2, rtabi.I64), result(rtabi.I64))
	case OpNeg, OpSExt, OpZExt:
		return first(want(1, rtabi.I64), result(rtabi.I64))
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		return first(want(2, rtabi.F64), result(rtabi.F64))
	case OpFNeg, OpFloor, OpFDemote:
		return first(want(1, rtabi.F64), result(rtabi.F64))
	case OpCmp:
		return first(want(2, rtabi.I64), result(rtabi.I64))
	case OpFCmp:
		return first(want(2, rtabi.F64), result(rtabi.I64))
	case OpIToF, OpBitsF:
		return first(want(1, rtabi.I64), result(rtabi.F64))
	case OpFToI, OpFBits:
		return first(want(1, rtabi.F64), result(rtabi.I64))
	case OpLoad:
		if v.Type != rtabi.I64 && v.Type != rtabi.F64 {
			return "load must produce a word"
		}
		return want(1, rtabi.I64)
	case OpStore:
		if len(v.Args) != 2 || v.Args[0] == nil || v.Args[0].Type != rtabi.I64 {
			return "store needs an i64 address and a value"
		}
		return result(rtabi.Void)
	case OpCall:
		if v.Callee() == "" {
			return "call without callee"
		}
	case OpCallRT:
		sig, ok := rtabi.Lookup(v.Callee())
		if !ok {
			return fmt.Sprintf("unknown runtime function %q", v.Callee())
		}
		return first(want(len(sig.Params), wordClasses(sig.Params)...), result(wordClass(sig.Result)))
	case OpCallInd:
		sig, ok := v.Aux.(*Sig)
		if !ok {
			return "indirect call without signature"
		}
		if len(v.Args) != len(sig.Params)+1 {
			return fmt.Sprintf("has %d args, want %d", len(v.Args), len(sig.Params)+1)
		}
		return result(wordClass(sig.Result))
	case OpCallFFI:
		sig, ok := v.Aux.(*CSig)
		if !ok {
			return "foreign call without C signature"
		}
		if len(v.Args) != len(sig.Params)+1 {
			return fmt.Sprintf("has %d args, want %d", len(v.Args), len(sig.Params)+1)
		}
	}
	if v.Type == rtabi.Ptr {
		return "ptr is not a word class"
	}
	return ""
}

// wordClass maps an ABI class to the IR word class carrying it.
func wordClass(c rtabi.Class) rtabi.Class {
	if c == rtabi.Ptr {
		return rtabi.I64
	}
	return c
}

func wordClasses(cs []rtabi.Class) []rtabi.Class {
	if len(cs) == 0 {
		return []rtabi.Class{rtabi.I64}
	}
	out := make([]rtabi.Class, len(cs))
	for i, c := range cs {
		out[i] = wordClass(c)
	}
	return out
}

// WordClass maps an ABI class to the IR word class carrying it.
func WordClass(c rtabi.Class) rtabi.Class { return wordClass(c) }

// VerifyModule verifies every function and checks that direct calls name
// functions of the module with the right number of arguments.
func VerifyModule(m *Module) error {
	var errs []string
	for _, f := range m.Funcs {
		if err := Verify(f); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for _, b := range f.Blocks {
			for _, v := range b.Values {
				switch v.Op {
				case OpCall, OpFuncAddr:
					callee := m.Func(v.Callee())
					if callee == nil {
						errs = append(errs, fmt.Sprintf("func %s, %s: unknown function %q", f.Name, v, v.Callee()))
						continue
					}
					if v.Op == OpCall && len(v.Args) != len(callee.Params) {
						errs = append(errs, fmt.Sprintf("func %s, %s: call to %s has %d args, want %d",
							f.Name, v, callee.Name, len(v.Args), len(callee.Params)))
					}
					if v.Op == OpCall && v.Type != wordClass(callee.Result) {
						errs = append(errs, fmt.Sprintf("func %s, %s: call to %s yields %s, want %s",
							f.Name, v, callee.Name, v.Type, wordClass(callee.Result)))
					}
				case OpData:
					if m.DataObject(v.Callee()) == nil {
						errs = append(errs, fmt.Sprintf("func %s, %s: unknown data %q", f.Name, v, v.Callee()))
					}
				}
			}
		}
	}
	if m.Entry != "" && m.Func(m.Entry) == nil {
		errs = append(errs, fmt.Sprintf("entry function %s missing", m.Entry))
	}
	return combineErrors(errs)
}

// containsBlock checks whether bs contains b.
func containsBlock(bs []*Block, b *Block) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}

// VerifyDom checks that every argument and control is defined in a block
// dominating its use, or earlier in the same block. It runs Verify first.
func VerifyDom(f *Func) error {
	if err := Verify(f); err != nil {
		return err
	}
	ComputeDom(f)

	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	reachable := Reachable(f)

	valIdx := make(map[*Value]int)
	for _, b := range f.Blocks {
		for i, v := range b.Values {
			valIdx[v] = i
		}
	}

	for _, b := range f.Blocks {
		if !reachable[b] {
			continue
		}
		for _, v := range b.Values {
			for i, arg := range v.Args {
				if arg == nil {
					continue
				}
				if arg.Block == b {
					if valIdx[arg] >= valIdx[v] {
						add("func %s, %s, %s: arg[%d] %s used before its definition", f.Name, b, v, i, arg)
					}
				} else if !Dominates(arg.Block, b) {
					add("func %s, %s, %s: arg[%d] %s defined in %s which does not dominate %s",
						f.Name, b, v, i, arg, arg.Block, b)
				}
			}
		}
		for i, c := range b.Controls {
			if c != nil && c.Block != b && !Dominates(c.Block, b) {
				add("func %s, %s: control[%d] %s defined in %s which does not dominate %s",
					f.Name, b, i, c, c.Block, b)
			}
		}
	}

	return combineErrors(errs)
}

// combineErrors creates an error from a list of error strings, or returns nil.
func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("IR verification failed:\n  %s", strings.Join(errs, "\n  "))
}
