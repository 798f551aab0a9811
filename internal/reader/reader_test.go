package reader_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOne(t *testing.T, src string) *reader.Form {
	t.Helper()
	form, err := reader.New("<test>", src).Read()
	require.NoError(t, err)
	require.NotNil(t, form)
	return form
}

func TestReadAtoms(t *testing.T) {
	assert.Equal(t, runtime.NewInt(42), readOne(t, "42").Value)
	assert.Equal(t, runtime.NewFloat(3.5), readOne(t, "3.5").Value)
	assert.Equal(t, runtime.NewString("hi there"), readOne(t, `"hi there"`).Value)
	assert.Equal(t, runtime.NewChar('a'), readOne(t, `\a`).Value)
	assert.Equal(t, runtime.NewChar('\n'), readOne(t, `\newline`).Value)
	assert.Equal(t, runtime.Nil, readOne(t, "nil").Value)
	assert.Equal(t, runtime.True, readOne(t, "true").Value)
	assert.Equal(t, runtime.False, readOne(t, "false").Value)
	assert.Equal(t, runtime.NewSymbol("", "foo"), readOne(t, "foo").Value)
	assert.Equal(t, runtime.NewSymbol("ns", "foo"), readOne(t, "ns/foo").Value)
}

func TestReadStringEscapes(t *testing.T) {
	assert.Equal(t, runtime.NewString("a\nb\tc"), readOne(t, `"a\nb\tc"`).Value)
}

func TestReadKeyword(t *testing.T) {
	kw, ok := readOne(t, ":foo").Value.(*runtime.Keyword)
	require.True(t, ok)
	assert.Equal(t, "foo", kw.Name)
	assert.Equal(t, "", kw.Namespace)

	kw2, ok := readOne(t, ":ns/bar").Value.(*runtime.Keyword)
	require.True(t, ok)
	assert.Equal(t, "bar", kw2.Name)
	assert.Equal(t, "ns", kw2.Namespace)
}

func TestReadList(t *testing.T) {
	form := readOne(t, "(+ 1 2)")
	list, ok := form.Value.(*runtime.List)
	require.True(t, ok)
	assert.Equal(t, 3, list.Count())
	require.Len(t, form.Items, 3)
	assert.Equal(t, runtime.NewSymbol("", "+"), form.Items[0].Value)
	assert.Equal(t, runtime.NewInt(1), form.Items[1].Value)
	assert.Equal(t, runtime.NewInt(2), form.Items[2].Value)
}

func TestReadVector(t *testing.T) {
	form := readOne(t, "[1 2 3]")
	vec, ok := form.Value.(*runtime.Vector)
	require.True(t, ok)
	assert.Equal(t, 3, vec.Count())
}

func TestReadMap(t *testing.T) {
	form := readOne(t, `{:a 1 :b 2}`)
	m, ok := form.Value.(*runtime.ArrayMap)
	require.True(t, ok)
	assert.Equal(t, 2, m.Count())
}

func TestReadSet(t *testing.T) {
	form := readOne(t, `#{1 2 3}`)
	s, ok := form.Value.(*runtime.HashSet)
	require.True(t, ok)
	assert.Equal(t, 3, s.Count())
	assert.True(t, s.Has(runtime.NewInt(2)))
}

func TestReadRegex(t *testing.T) {
	form := readOne(t, `#"a+b*"`)
	re, ok := form.Value.(*runtime.Regex)
	require.True(t, ok)
	assert.Equal(t, "a+b*", re.Source)
}

func TestReadQuoteExpandsToQuoteList(t *testing.T) {
	form := readOne(t, "'(1 2)")
	list, ok := form.Value.(*runtime.List)
	require.True(t, ok)
	assert.Equal(t, 2, list.Count())
	assert.Equal(t, runtime.NewSymbol("", "quote"), list.First(runtime.DefaultAllocator))
}

func TestReadAllReturnsMultipleTopLevelForms(t *testing.T) {
	rdr := reader.New("<test>", "1 2 3")
	forms, err := rdr.ReadAll()
	require.NoError(t, err)
	require.Len(t, forms, 3)
	assert.Equal(t, runtime.NewInt(1), forms[0].Value)
	assert.Equal(t, runtime.NewInt(3), forms[2].Value)
}

func TestReadReturnsNilAtEOF(t *testing.T) {
	rdr := reader.New("<test>", "  ")
	form, err := rdr.Read()
	require.NoError(t, err)
	assert.Nil(t, form)
}

func TestReadUnterminatedListErrors(t *testing.T) {
	_, err := reader.New("<test>", "(+ 1 2").Read()
	assert.Error(t, err)
}
