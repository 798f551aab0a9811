package runtime_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIntOverflowPromotesToBigInt(t *testing.T) {
	a := runtime.NewInt(math.MaxInt64)
	b := runtime.NewInt(1)

	v, err := runtime.Add(a, b, true)
	require.NoError(t, err)
	bi, ok := v.(*runtime.BigInt)
	require.True(t, ok, "expected promotion to *runtime.BigInt, got %T", v)
	want := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	assert.Equal(t, want.String(), bi.V.String())
}

func TestAddIntOverflowWithoutPromotionErrors(t *testing.T) {
	a := runtime.NewInt(math.MaxInt64)
	b := runtime.NewInt(1)

	_, err := runtime.Add(a, b, false)
	assert.Error(t, err)
}

func TestAddFloatPromotesIntToFloat(t *testing.T) {
	v, err := runtime.Add(runtime.NewInt(2), runtime.NewFloat(1.5), true)
	require.NoError(t, err)
	assert.Equal(t, runtime.NewFloat(3.5), v)
}

func TestDivExactIntegersYieldsRatioOrInt(t *testing.T) {
	v, err := runtime.Div(runtime.NewInt(10), runtime.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, runtime.NewInt(2), v)
}

func TestDivByZeroErrors(t *testing.T) {
	_, err := runtime.Div(runtime.NewInt(1), runtime.NewInt(0))
	assert.Error(t, err)
}

func TestModAndRemFloorVsTruncate(t *testing.T) {
	m, err := runtime.Mod(runtime.NewInt(-7), runtime.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, runtime.NewInt(2), m)

	r, err := runtime.Rem(runtime.NewInt(-7), runtime.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, runtime.NewInt(-1), r)
}

func TestCompareAcrossNumericKinds(t *testing.T) {
	c, err := runtime.Compare(runtime.NewInt(1), runtime.NewFloat(1.0))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = runtime.Compare(runtime.NewInt(1), runtime.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompareRejectsNonNumeric(t *testing.T) {
	_, err := runtime.Compare(runtime.NewInt(1), runtime.NewString("x"))
	assert.Error(t, err)
}
