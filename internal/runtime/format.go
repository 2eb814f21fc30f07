package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// format renders a slot word of the given tag. Strings nested in
// containers are quoted; a top-level string is printed as is.
func (rt *Runtime) format(tag rtabi.Tag, w uint64, quote bool) string {
	switch tag {
	case rtabi.TagNone:
		return "none"
	case rtabi.TagInt:
		return strconv.FormatInt(int64(w), 10)
	case rtabi.TagFloat:
		return FormatFloat(math.Float64frombits(w))
	case rtabi.TagBool:
		return formatBool(w)
	}
	if w == 0 {
		return "null"
	}
	var sb strings.Builder
	rt.formatTo(&sb, tag, w, quote)
	return sb.String()
}

func (rt *Runtime) formatTo(sb *strings.Builder, tag rtabi.Tag, w uint64, quote bool) {
	switch tag {
	case rtabi.TagString:
		s := rt.String(w)
		if quote {
			sb.WriteByte('"')
			sb.WriteString(s)
			sb.WriteByte('"')
		} else {
			sb.WriteString(s)
		}
	case rtabi.TagBigInt:
		sb.WriteString(rt.bigint(w).String())
	case rtabi.TagDecimal:
		sb.WriteString(rt.decimal(w).String())
	case rtabi.TagList:
		l := rt.list(w)
		sb.WriteByte('[')
		for i, x := range l.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(rt.format(l.elem, x, true))
		}
		sb.WriteByte(']')
	case rtabi.TagDict:
		d := rt.dict(w)
		sb.WriteByte('{')
		for i := range d.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(rt.format(d.keyTag, d.keys[i], true))
			sb.WriteString(": ")
			sb.WriteString(rt.format(d.valTag, d.vals[i], true))
		}
		sb.WriteByte('}')
	case rtabi.TagTuple:
		t := rt.tuple(w)
		sb.WriteByte('(')
		for i, x := range t.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(rt.format(t.tags[i], x, true))
		}
		sb.WriteByte(')')
	case rtabi.TagDynamic:
		sb.WriteString(rt.formatDynamic(rt.dynamic(w), quote))
	default:
		fmt.Fprintf(sb, "<%s %#x>", tag, w)
	}
}

func (rt *Runtime) formatDynamic(d *dynObj, quote bool) string {
	switch d.kind {
	case rtabi.DynBool:
		return rt.format(rtabi.TagBool, d.word, quote)
	case rtabi.DynInt:
		return rt.format(rtabi.TagInt, d.word, quote)
	case rtabi.DynFloat:
		return rt.format(rtabi.TagFloat, d.word, quote)
	case rtabi.DynBigInt:
		return rt.format(rtabi.TagBigInt, d.word, quote)
	case rtabi.DynDecimal:
		return rt.format(rtabi.TagDecimal, d.word, quote)
	case rtabi.DynString:
		return rt.format(rtabi.TagString, d.word, quote)
	case rtabi.DynList:
		return rt.format(rtabi.TagList, d.word, quote)
	}
	return "none"
}

// Format renders the value at w as print would show it.
func (rt *Runtime) Format(tag rtabi.Tag, w uint64) string {
	return rt.format(tag, w, false)
}

func (rt *Runtime) print(tag rtabi.Tag, w uint64) {
	rt.writeLine(rt.format(tag, w, false))
}

func (rt *Runtime) inputPrompt(prompt uint64) uint64 {
	if prompt != 0 {
		rt.outMu.Lock()
		fmt.Fprint(rt.stdout(), rt.String(prompt))
		rt.outMu.Unlock()
	}
	return rt.newString(rt.readLine())
}
