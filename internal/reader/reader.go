// Package reader turns source text into data forms the analyzer consumes,
// generalizing the teacher's rune-by-rune, line/column-tracking scanning
// style (internal/lexer/lexer.go) from a tokenizer feeding a recursive-
// descent parser into a reader that builds runtime.Value forms directly,
// the way a Lisp reader does. It is deliberately narrow: numbers, strings,
// chars, symbols, keywords, nil/true/false, lists, vectors, maps, sets,
// quote, and regex literals — enough to drive every scenario in spec.md
// §8, not a complete Clojure reader (no syntax-quote/unquote, no reader
// conditionals, no tagged literals).
package reader

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/runtime"
)

// Form pairs a read value with its source position and, for compound
// forms, the positioned sub-forms making it up — the analyzer walks
// Items in parallel with Value's own structure to recover per-argument
// source locations for error reporting (spec.md §8 scenarios 5/6 require
// an error to point at the offending operand, not the whole call).
type Form struct {
	Pos   ast.Pos
	Value runtime.Value
	Items []*Form // list/vector/set elements, or map key/val pairs flattened
}

// Reader scans one source string into a sequence of top-level Forms.
type Reader struct {
	file   string
	runes  []rune
	pos    int
	line   int
	column int
}

func New(file, src string) *Reader {
	return &Reader{file: file, runes: []rune(src), line: 1, column: 1}
}

func (r *Reader) here() ast.Pos { return ast.Pos{File: r.file, Line: r.line, Column: r.column} }

func (r *Reader) peek() (rune, bool) {
	if r.pos >= len(r.runes) {
		return 0, false
	}
	return r.runes[r.pos], true
}

func (r *Reader) peekAt(off int) (rune, bool) {
	if r.pos+off >= len(r.runes) {
		return 0, false
	}
	return r.runes[r.pos+off], true
}

func (r *Reader) advance() (rune, bool) {
	ch, ok := r.peek()
	if !ok {
		return 0, false
	}
	r.pos++
	if ch == '\n' {
		r.line++
		r.column = 1
	} else {
		r.column++
	}
	return ch, true
}

// ReadAll reads every top-level form in the source.
func (r *Reader) ReadAll() ([]*Form, error) {
	var forms []*Form
	for {
		f, err := r.Read()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return forms, nil
		}
		forms = append(forms, f)
	}
}

// Read reads the next top-level form, or (nil, nil) at end of input.
func (r *Reader) Read() (*Form, error) {
	r.skipAtmosphere()
	if _, ok := r.peek(); !ok {
		return nil, nil
	}
	return r.readForm()
}

func (r *Reader) skipAtmosphere() {
	for {
		ch, ok := r.peek()
		if !ok {
			return
		}
		switch {
		case unicode.IsSpace(ch) || ch == ',':
			r.advance()
		case ch == ';':
			for {
				c, ok := r.peek()
				if !ok || c == '\n' {
					break
				}
				r.advance()
			}
		default:
			return
		}
	}
}

func (r *Reader) errf(pos ast.Pos, format string, args ...any) error {
	return runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseRead, -1,
		runtime.Position{File: pos.File, Line: pos.Line, Column: pos.Column},
		format, args...)
}

func (r *Reader) readForm() (*Form, error) {
	r.skipAtmosphere()
	start := r.here()
	ch, ok := r.peek()
	if !ok {
		return nil, r.errf(start, "unexpected end of input")
	}
	switch {
	case ch == '(':
		return r.readSeq(start, '(', ')', ast.Pos{})
	case ch == '[':
		return r.readVector(start)
	case ch == '{':
		return r.readMap(start)
	case ch == '#':
		return r.readDispatch(start)
	case ch == '"':
		return r.readString(start)
	case ch == '\\':
		return r.readChar(start)
	case ch == '\'':
		r.advance()
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return wrapReaderMacro(start, "quote", inner), nil
	case ch == '`':
		r.advance()
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return wrapReaderMacro(start, "quote", inner), nil
	case ch == ':':
		return r.readKeyword(start)
	default:
		return r.readAtom(start)
	}
}

func wrapReaderMacro(pos ast.Pos, sym string, inner *Form) *Form {
	items := []*Form{{Pos: pos, Value: runtime.NewSymbol("", sym)}, inner}
	l := runtime.NewList(inner.Value)
	l = l.Cons(runtime.NewSymbol("", sym))
	return &Form{Pos: pos, Value: l, Items: items}
}

func (r *Reader) readSeq(start ast.Pos, open, close rune, _ ast.Pos) (*Form, error) {
	r.advance() // consume open
	var items []*Form
	for {
		r.skipAtmosphere()
		ch, ok := r.peek()
		if !ok {
			return nil, r.errf(start, "unexpected end of input, unterminated list")
		}
		if ch == close {
			r.advance()
			break
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	values := make([]runtime.Value, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return &Form{Pos: start, Value: runtime.NewList(values...), Items: items}, nil
}

func (r *Reader) readVector(start ast.Pos) (*Form, error) {
	r.advance()
	var items []*Form
	for {
		r.skipAtmosphere()
		ch, ok := r.peek()
		if !ok {
			return nil, r.errf(start, "unexpected end of input, unterminated vector")
		}
		if ch == ']' {
			r.advance()
			break
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	values := make([]runtime.Value, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return &Form{Pos: start, Value: runtime.NewVector(values...), Items: items}, nil
}

func (r *Reader) readMap(start ast.Pos) (*Form, error) {
	r.advance()
	var items []*Form
	for {
		r.skipAtmosphere()
		ch, ok := r.peek()
		if !ok {
			return nil, r.errf(start, "unexpected end of input, unterminated map")
		}
		if ch == '}' {
			r.advance()
			break
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if len(items)%2 != 0 {
		return nil, r.errf(start, "map literal must contain an even number of forms")
	}
	entries := make([]runtime.MapEntry, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		entries = append(entries, runtime.MapEntry{Key: items[i].Value, Val: items[i+1].Value})
	}
	return &Form{Pos: start, Value: runtime.NewArrayMap(entries...), Items: items}, nil
}

func (r *Reader) readSet(start ast.Pos) (*Form, error) {
	r.advance() // consume '{' (caller already consumed '#')
	var items []*Form
	for {
		r.skipAtmosphere()
		ch, ok := r.peek()
		if !ok {
			return nil, r.errf(start, "unexpected end of input, unterminated set")
		}
		if ch == '}' {
			r.advance()
			break
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	values := make([]runtime.Value, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return &Form{Pos: start, Value: runtime.NewHashSet(values...), Items: items}, nil
}

// readDispatch handles the '#' reader-macro family: #{...} sets and
// #"..." regex literals.
func (r *Reader) readDispatch(start ast.Pos) (*Form, error) {
	r.advance() // consume '#'
	ch, ok := r.peek()
	if !ok {
		return nil, r.errf(start, "unexpected end of input after #")
	}
	switch ch {
	case '{':
		return r.readSet(start)
	case '"':
		return r.readRegex(start)
	default:
		return nil, r.errf(start, "unsupported reader dispatch macro #%c", ch)
	}
}

func (r *Reader) readRegex(start ast.Pos) (*Form, error) {
	r.advance() // consume opening quote
	var sb strings.Builder
	for {
		ch, ok := r.advance()
		if !ok {
			return nil, r.errf(start, "unterminated regex literal")
		}
		if ch == '\\' {
			next, ok := r.advance()
			if !ok {
				return nil, r.errf(start, "unterminated regex literal")
			}
			sb.WriteRune('\\')
			sb.WriteRune(next)
			continue
		}
		if ch == '"' {
			break
		}
		sb.WriteRune(ch)
	}
	re, err := runtime.NewRegex(sb.String())
	if err != nil {
		return nil, r.errf(start, "invalid regex literal: %s", err)
	}
	return &Form{Pos: start, Value: re}, nil
}

func (r *Reader) readString(start ast.Pos) (*Form, error) {
	r.advance() // consume opening quote
	var sb strings.Builder
	for {
		ch, ok := r.advance()
		if !ok {
			return nil, r.errf(start, "unterminated string literal")
		}
		if ch == '"' {
			break
		}
		if ch == '\\' {
			esc, ok := r.advance()
			if !ok {
				return nil, r.errf(start, "unterminated string literal")
			}
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\':
				sb.WriteRune('\\')
			case '"':
				sb.WriteRune('"')
			case '0':
				sb.WriteRune(0)
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(ch)
	}
	return &Form{Pos: start, Value: runtime.NewString(sb.String())}, nil
}

var charNames = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"return":  '\r',
	"backspace": '\b',
	"formfeed": '\f',
}

func (r *Reader) readChar(start ast.Pos) (*Form, error) {
	r.advance() // consume backslash
	ch, ok := r.advance()
	if !ok {
		return nil, r.errf(start, "unexpected end of input after \\")
	}
	if !unicode.IsLetter(ch) {
		return &Form{Pos: start, Value: runtime.NewChar(ch)}, nil
	}
	var sb strings.Builder
	sb.WriteRune(ch)
	for {
		c, ok := r.peek()
		if !ok || !isSymbolChar(c) {
			break
		}
		sb.WriteRune(c)
		r.advance()
	}
	name := sb.String()
	if len(name) == 1 {
		return &Form{Pos: start, Value: runtime.NewChar(rune(name[0]))}, nil
	}
	if rn, ok := charNames[name]; ok {
		return &Form{Pos: start, Value: runtime.NewChar(rn)}, nil
	}
	return nil, r.errf(start, "unsupported character literal \\%s", name)
}

func (r *Reader) readKeyword(start ast.Pos) (*Form, error) {
	r.advance() // consume ':'
	text, err := r.readToken(start)
	if err != nil {
		return nil, err
	}
	ns, name := splitNamespaced(text)
	return &Form{Pos: start, Value: runtime.InternKeyword(ns, name)}, nil
}

func isSymbolChar(ch rune) bool {
	if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
		return true
	}
	switch ch {
	case '+', '-', '*', '/', '<', '>', '=', '!', '?', '_', '.', ':', '\'', '&', '%', '$', '#':
		return true
	}
	return false
}

func (r *Reader) readToken(start ast.Pos) (string, error) {
	var sb strings.Builder
	for {
		ch, ok := r.peek()
		if !ok || !isSymbolChar(ch) {
			break
		}
		sb.WriteRune(ch)
		r.advance()
	}
	if sb.Len() == 0 {
		return "", r.errf(start, "expected a token")
	}
	return sb.String(), nil
}

func splitNamespaced(text string) (ns, name string) {
	if i := strings.IndexByte(text, '/'); i > 0 && i < len(text)-1 {
		return text[:i], text[i+1:]
	}
	return "", text
}

// readAtom reads a number or a symbol (including nil/true/false).
func (r *Reader) readAtom(start ast.Pos) (*Form, error) {
	ch, _ := r.peek()
	if ch == '-' || ch == '+' {
		if next, ok := r.peekAt(1); ok && unicode.IsDigit(next) {
			return r.readNumber(start)
		}
	}
	if unicode.IsDigit(ch) {
		return r.readNumber(start)
	}
	text, err := r.readToken(start)
	if err != nil {
		return nil, err
	}
	switch text {
	case "nil":
		return &Form{Pos: start, Value: runtime.Nil}, nil
	case "true":
		return &Form{Pos: start, Value: runtime.True}, nil
	case "false":
		return &Form{Pos: start, Value: runtime.False}, nil
	}
	if text == "/" {
		return &Form{Pos: start, Value: runtime.NewSymbol("", "/")}, nil
	}
	ns, name := splitNamespaced(text)
	return &Form{Pos: start, Value: runtime.NewSymbol(ns, name)}, nil
}

// readNumber reads int, float, ratio (n/d), bigint (N suffix), and
// bigdecimal (M suffix) literals.
func (r *Reader) readNumber(start ast.Pos) (*Form, error) {
	var sb strings.Builder
	for {
		ch, ok := r.peek()
		if !ok || !(unicode.IsDigit(ch) || ch == '-' || ch == '+' || ch == '.' || ch == '/' || ch == 'e' || ch == 'E' || ch == 'N' || ch == 'M') {
			break
		}
		sb.WriteRune(ch)
		r.advance()
	}
	text := sb.String()

	if strings.HasSuffix(text, "N") {
		n, ok := new(big.Int).SetString(strings.TrimSuffix(text, "N"), 10)
		if !ok {
			return nil, r.errf(start, "invalid bigint literal %q", text)
		}
		return &Form{Pos: start, Value: runtime.NewBigInt(n)}, nil
	}
	if strings.HasSuffix(text, "M") {
		body := strings.TrimSuffix(text, "M")
		unscaled, scale, err := parseDecimal(body)
		if err != nil {
			return nil, r.errf(start, "invalid bigdecimal literal %q", text)
		}
		return &Form{Pos: start, Value: runtime.NewBigDecimal(unscaled, scale)}, nil
	}
	if i := strings.IndexByte(text, '/'); i > 0 {
		num, ok1 := new(big.Int).SetString(text[:i], 10)
		den, ok2 := new(big.Int).SetString(text[i+1:], 10)
		if !ok1 || !ok2 {
			return nil, r.errf(start, "invalid ratio literal %q", text)
		}
		return &Form{Pos: start, Value: runtime.NewRatio(num, den)}, nil
	}
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, r.errf(start, "invalid float literal %q", text)
		}
		return &Form{Pos: start, Value: runtime.NewFloat(f)}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		big, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, r.errf(start, "invalid integer literal %q", text)
		}
		return &Form{Pos: start, Value: runtime.NewBigInt(big)}, nil
	}
	return &Form{Pos: start, Value: runtime.NewInt(n)}, nil
}

func parseDecimal(body string) (*big.Int, int, error) {
	dot := strings.IndexByte(body, '.')
	if dot < 0 {
		n, ok := new(big.Int).SetString(body, 10)
		if !ok {
			return nil, 0, fmt.Errorf("bad decimal %q", body)
		}
		return n, 0, nil
	}
	digits := body[:dot] + body[dot+1:]
	scale := len(body) - dot - 1
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, 0, fmt.Errorf("bad decimal %q", body)
	}
	return n, scale, nil
}
