package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Fprint writes the IR of a function to w.
//
// Format:
//
//	func add(a i64, b i64) i64 [slots 2]:
//	  b0: (entry)
//	    v0 = Arg <i64> [0]
//	    v1 = Arg <i64> [1]
//	    v2 = Add <i64> v0 v1
//	    Return v2
func Fprint(w io.Writer, f *Func) {
	fmt.Fprintf(w, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		if i < len(f.ParamNames) && f.ParamNames[i] != "" {
			fmt.Fprintf(w, "%s ", f.ParamNames[i])
		}
		fmt.Fprint(w, p)
	}
	fmt.Fprint(w, ")")
	if f.Result != rtabi.Void {
		fmt.Fprintf(w, " %s", f.Result)
	}
	if f.Slots > 0 {
		fmt.Fprintf(w, " [slots %d]", f.Slots)
	}
	fmt.Fprintf(w, ":\n")

	for _, b := range f.Blocks {
		fprintBlock(w, b, f)
	}
}

func fprintBlock(w io.Writer, b *Block, f *Func) {
	label := ""
	if b == f.Entry {
		label = " (entry)"
	}

	predsStr := ""
	if len(b.Preds) > 0 {
		preds := make([]string, len(b.Preds))
		for i, p := range b.Preds {
			preds[i] = p.String()
		}
		predsStr = " <- " + strings.Join(preds, " ")
	}

	fmt.Fprintf(w, "  %s:%s%s\n", b, label, predsStr)
	for _, v := range b.Values {
		fmt.Fprintf(w, "    %s\n", formatValue(v))
	}
	fmt.Fprintf(w, "    %s\n", formatTerminator(b))
}

func formatValue(v *Value) string {
	var sb strings.Builder

	if v.Type == rtabi.Void {
		sb.WriteString(v.Op.String())
	} else {
		fmt.Fprintf(&sb, "v%d = %s <%s>", v.ID, v.Op, v.Type)
	}

	switch v.Op {
	case OpConst, OpArg, OpSlot, OpSExt, OpZExt:
		fmt.Fprintf(&sb, " [%d]", v.AuxInt)
	case OpConstF:
		fmt.Fprintf(&sb, " [%g]", v.AuxFloat)
	case OpCmp, OpFCmp:
		fmt.Fprintf(&sb, " [%s]", Cond(v.AuxInt))
	default:
		if v.AuxInt != 0 {
			fmt.Fprintf(&sb, " [%d]", v.AuxInt)
		}
	}

	if v.Aux != nil {
		fmt.Fprintf(&sb, " {%v}", v.Aux)
	}

	for _, arg := range v.Args {
		fmt.Fprintf(&sb, " v%d", arg.ID)
	}
	return sb.String()
}

func formatTerminator(b *Block) string {
	switch b.Kind {
	case BlockPlain:
		if len(b.Succs) > 0 {
			return fmt.Sprintf("Plain -> %s", b.Succs[0])
		}
		return "Plain"
	case BlockIf:
		if len(b.Controls) > 0 && len(b.Succs) >= 2 {
			return fmt.Sprintf("If v%d -> %s %s", b.Controls[0].ID, b.Succs[0], b.Succs[1])
		}
		return "If (malformed)"
	case BlockReturn:
		if len(b.Controls) > 0 && b.Controls[0] != nil {
			return fmt.Sprintf("Return v%d", b.Controls[0].ID)
		}
		return "Return"
	case BlockTrap:
		return "Trap " + strconv.Quote(b.Reason)
	default:
		return "???"
	}
}

// Sprint returns the IR of a function as a string.
func Sprint(f *Func) string {
	var sb strings.Builder
	Fprint(&sb, f)
	return sb.String()
}

// FprintModule writes every data object and function of m to w.
func FprintModule(w io.Writer, m *Module) {
	for _, l := range m.Libs {
		fmt.Fprintf(w, "lib %q\n", l)
	}
	for _, d := range m.Data {
		if d.Words != nil {
			fmt.Fprintf(w, "data %s = words %v\n", d.Name, d.Words)
		} else {
			fmt.Fprintf(w, "data %s = %q\n", d.Name, d.Bytes)
		}
	}
	for _, f := range m.Funcs {
		fmt.Fprintln(w)
		Fprint(w, f)
	}
}

// SprintModule returns the IR of a module as a string.
func SprintModule(m *Module) string {
	var sb strings.Builder
	FprintModule(&sb, m)
	return sb.String()
}
