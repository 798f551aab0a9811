package runtime

import "strings"

// PrStr renders v the readable way (strings/chars quoted and escaped,
// matching what the reader could read back), with no print-length/level
// truncation. A lazy sequence rendered as a value prints `#<lazy-seq>`
// until realized, but a lazy tail reached while walking a cons or list is
// realized by SeqEmpty. This is the variant every rstr()
// implementation in this package calls to render nested elements, since
// collection printing (seqStr/mapStr in collections.go) has no Thread to
// consult.
func PrStr(v Value) string {
	return prStrDepth(v, -1, -1, nil)
}

// PrStrOn renders v the readable way honoring th's *print-length*/
// *print-level* dynamic bindings (spec.md §4.1) and, when th.PrintAllocator
// is non-nil, realizing lazy sequences on demand rather than rendering
// them as `#<lazy-seq>`.
func PrStrOn(th *Thread, v Value) string {
	if th == nil {
		return PrStr(v)
	}
	return prStrDepth(v, th.PrintLength, th.PrintLevel, th.PrintAllocator)
}

// DisplayStr renders v the display way: strings and chars print their raw
// content, unquoted and unescaped; everything else matches PrStr.
func DisplayStr(v Value) string {
	return strDepth(v, -1, -1, nil)
}

// StrOn is the *print-length*/*print-level*-aware, lazy-seq-forcing
// counterpart of DisplayStr, mirroring PrStrOn.
func StrOn(th *Thread, v Value) string {
	if th == nil {
		return DisplayStr(v)
	}
	return strDepth(v, th.PrintLength, th.PrintLevel, th.PrintAllocator)
}

func strDepth(v Value, length, level int, alloc Allocator) string {
	switch x := v.(type) {
	case Str:
		return x.S
	case Char:
		return string(x.R)
	}
	return renderCollection(v, length, level, alloc, false)
}

func prStrDepth(v Value, length, level int, alloc Allocator) string {
	switch x := v.(type) {
	case Str:
		return "\"" + escapeString(x.S) + "\""
	case Char:
		return "\\" + charName(x.R)
	}
	return renderCollection(v, length, level, alloc, true)
}

// renderCollection handles everything that isn't a bare string/char: it
// applies *print-level* depth truncation ("#") and *print-length* element
// truncation ("...") around the element-wise renderer, and realizes lazy
// sequences through alloc when one is supplied.
func renderCollection(v Value, length, level int, alloc Allocator, readable bool) string {
	if level == 0 {
		return "#"
	}
	nextLevel := level
	if level > 0 {
		nextLevel = level - 1
	}

	if ls, ok := v.(*LazySeq); ok {
		if alloc != nil {
			realized, err := ls.Realize(alloc)
			if err == nil {
				return renderCollection(realized, length, level, alloc, readable)
			}
		}
		if ls.Realized() {
			return renderCollection(ls.cache, length, level, alloc, readable)
		}
		return "#<lazy-seq>"
	}

	render := PrStr
	if !readable {
		render = DisplayStr
	}
	if alloc != nil || length >= 0 || level >= 0 {
		render = func(e Value) string { return renderAt(e, length, nextLevel, alloc, readable) }
	}

	switch x := v.(type) {
	case Sequential:
		return seqStrBounded(openDelim(v), closeDelim(v), x, length, alloc, render)
	case *ArrayMap:
		return mapStrBounded(x.Entries(), length, render)
	case *HashMap:
		return mapStrBounded(x.AllEntries(), length, render)
	case *HashSet:
		return setStrBounded(x, length, render)
	}
	return v.rstr()
}

func renderAt(v Value, length, level int, alloc Allocator, readable bool) string {
	if readable {
		return prStrDepth(v, length, level, alloc)
	}
	return strDepth(v, length, level, alloc)
}

func openDelim(v Value) string {
	switch v.(type) {
	case *Vector, *TransientVector:
		return "["
	default:
		return "("
	}
}

func closeDelim(v Value) string {
	switch v.(type) {
	case *Vector, *TransientVector:
		return "]"
	default:
		return ")"
	}
}

func seqStrBounded(open, close string, s Sequential, length int, alloc Allocator, render func(Value) string) string {
	var sb strings.Builder
	sb.WriteString(open)
	first := true
	n := 0
	for !s.SeqEmpty() {
		if length >= 0 && n >= length {
			if !first {
				sb.WriteString(" ")
			}
			sb.WriteString("...")
			break
		}
		if !first {
			sb.WriteString(" ")
		}
		first = false
		sb.WriteString(render(s.First(alloc)))
		n++
		rest := s.Next(alloc)
		next, ok := rest.(Sequential)
		if !ok {
			break
		}
		s = next
	}
	sb.WriteString(close)
	return sb.String()
}

func mapStrBounded(entries []MapEntry, length int, render func(Value) string) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range entries {
		if length >= 0 && i >= length {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("...")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(render(e.Key))
		sb.WriteString(" ")
		sb.WriteString(render(e.Val))
	}
	sb.WriteString("}")
	return sb.String()
}

func setStrBounded(s *HashSet, length int, render func(Value) string) string {
	var sb strings.Builder
	sb.WriteString("#{")
	for i, e := range s.AllElements() {
		if length >= 0 && i >= length {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("...")
			break
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(render(e))
	}
	sb.WriteString("}")
	return sb.String()
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func charName(r rune) string {
	switch r {
	case ' ':
		return "space"
	case '\n':
		return "newline"
	case '\t':
		return "tab"
	case '\r':
		return "return"
	default:
		return string(r)
	}
}
