// Package runtime: Arithmetic implements the numeric tower promotion
// lattice of spec.md §4.2. Five concrete kinds: Int, Float, BigInt, Ratio,
// BigDecimal. Every binary operation below follows the same rank-ordered
// dispatch so the promotion rules stay in one place instead of being
// re-derived at each call site, mirroring the teacher's variant_ops.go
// style of small, named per-combination helpers.
package runtime

import "math/big"

type numKind int

const (
	kindInt numKind = iota
	kindFloat
	kindBigInt
	kindRatio
	kindDecimal
)

func kindOf(v Value) (numKind, bool) {
	switch v.Tag() {
	case TagInt:
		return kindInt, true
	case TagFloat:
		return kindFloat, true
	case TagBigInt:
		return kindBigInt, true
	case TagRatio:
		return kindRatio, true
	case TagBigDecimal:
		return kindDecimal, true
	}
	return 0, false
}

func checkNumeric(v Value, argIndex int) (numKind, *RuntimeError) {
	k, ok := kindOf(v)
	if !ok {
		return 0, NewError(ErrType, PhaseRuntime, argIndex, ErrMsgNotNumeric, v.Tag())
	}
	return k, nil
}

// Add returns a+b. promote selects the overflow policy for the int+int
// case: true promotes to BigInt on overflow (sticky), false returns
// arithmetic_error.
func Add(a, b Value, promote bool) (Value, error) {
	return binOp(a, b, promote, "+",
		func(x, y int64) (int64, bool) { return addOverflow(x, y) },
		func(x, y float64) float64 { return x + y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) },
		func(an, ad, bn, bd *big.Int) (num, den *big.Int) {
			return new(big.Int).Add(new(big.Int).Mul(an, bd), new(big.Int).Mul(bn, ad)), new(big.Int).Mul(ad, bd)
		},
		func(x, y *BigDecimal) *BigDecimal { return decimalAddSub(x, y, false) },
	)
}

// Sub returns a-b.
func Sub(a, b Value, promote bool) (Value, error) {
	return binOp(a, b, promote, "-",
		func(x, y int64) (int64, bool) { return subOverflow(x, y) },
		func(x, y float64) float64 { return x - y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) },
		func(an, ad, bn, bd *big.Int) (num, den *big.Int) {
			return new(big.Int).Sub(new(big.Int).Mul(an, bd), new(big.Int).Mul(bn, ad)), new(big.Int).Mul(ad, bd)
		},
		func(x, y *BigDecimal) *BigDecimal { return decimalAddSub(x, y, true) },
	)
}

// Mul returns a*b.
func Mul(a, b Value, promote bool) (Value, error) {
	return binOp(a, b, promote, "*",
		func(x, y int64) (int64, bool) { return mulOverflow(x, y) },
		func(x, y float64) float64 { return x * y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) },
		func(an, ad, bn, bd *big.Int) (num, den *big.Int) {
			return new(big.Int).Mul(an, bn), new(big.Int).Mul(ad, bd)
		},
		func(x, y *BigDecimal) *BigDecimal {
			return &BigDecimal{Unscaled: new(big.Int).Mul(x.Unscaled, y.Unscaled), Scale: x.Scale + y.Scale}
		},
	)
}

func binOp(a, b Value, promote bool, opName string,
	intOp func(x, y int64) (int64, bool),
	floatOp func(x, y float64) float64,
	bigOp func(x, y *big.Int) *big.Int,
	ratioOp func(an, ad, bn, bd *big.Int) (num, den *big.Int),
	decOp func(x, y *BigDecimal) *BigDecimal,
) (Value, error) {
	ak, aerr := checkNumeric(a, 0)
	if aerr != nil {
		return nil, aerr
	}
	bk, berr := checkNumeric(b, 1)
	if berr != nil {
		return nil, berr
	}

	// Step 1: both small integers.
	if ak == kindInt && bk == kindInt {
		ai, bi := a.(Int).I, b.(Int).I
		if r, ok := intOp(ai, bi); ok {
			return Int{r}, nil
		}
		if !promote {
			return nil, NewError(ErrArithmetic, PhaseRuntime, -1, ErrMsgIntegerOverflow)
		}
		abi, bbi := big.NewInt(ai), big.NewInt(bi)
		return normalizeBigInt(bigOp(abi, bbi)), nil
	}

	// Step 5 first-class check: any float forces float arithmetic,
	// UNLESS an earlier (ratio/decimal/bigint) rule claims it — but those
	// rules explicitly exclude float ("neither is float"), so float
	// always wins once present.
	if ak == kindFloat || bk == kindFloat {
		af, err := ToFloat(a)
		if err != nil {
			return nil, err
		}
		bf, err := ToFloat(b)
		if err != nil {
			return nil, err
		}
		return Float{floatOp(af, bf)}, nil
	}

	// Step 2: ratio, neither is float.
	if ak == kindRatio || bk == kindRatio {
		an, ad, _ := ratioOf(a)
		bn, bd, _ := ratioOf(b)
		num, den := ratioOp(an, ad, bn, bd)
		return NewRatio(num, den), nil
	}

	// Step 3: big_decimal, neither is float.
	if ak == kindDecimal || bk == kindDecimal {
		ad, _ := decimalOf(a)
		bd, _ := decimalOf(b)
		x, y := alignScale(ad, bd)
		return decOp(x, y), nil
	}

	// Step 4: big_int, neither is float (sticky: never demotes).
	abi, _ := bigIntOf(a)
	bbi, _ := bigIntOf(b)
	return &BigInt{V: bigOp(abi, bbi)}, nil
}

func alignScale(a, b *BigDecimal) (*BigDecimal, *BigDecimal) {
	if a.Scale == b.Scale {
		return a, b
	}
	if a.Scale < b.Scale {
		factor := pow10(b.Scale - a.Scale)
		return &BigDecimal{Unscaled: new(big.Int).Mul(a.Unscaled, factor), Scale: b.Scale}, b
	}
	factor := pow10(a.Scale - b.Scale)
	return a, &BigDecimal{Unscaled: new(big.Int).Mul(b.Unscaled, factor), Scale: a.Scale}
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func decimalAddSub(a, b *BigDecimal, sub bool) *BigDecimal {
	x, y := alignScale(a, b)
	var u *big.Int
	if sub {
		u = new(big.Int).Sub(x.Unscaled, y.Unscaled)
	} else {
		u = new(big.Int).Add(x.Unscaled, y.Unscaled)
	}
	return &BigDecimal{Unscaled: u, Scale: x.Scale}
}

// Div implements spec.md §4.2's division rules.
func Div(a, b Value) (Value, error) {
	ak, aerr := checkNumeric(a, 0)
	if aerr != nil {
		return nil, aerr
	}
	bk, berr := checkNumeric(b, 1)
	if berr != nil {
		return nil, berr
	}

	if ak == kindFloat || bk == kindFloat || ak == kindDecimal || bk == kindDecimal {
		af, err := ToFloat(a)
		if err != nil {
			return nil, err
		}
		bf, err := ToFloat(b)
		if err != nil {
			return nil, err
		}
		if bf == 0 {
			return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgDivideByZero)
		}
		return Float{af / bf}, nil
	}

	if ak == kindInt && bk == kindInt {
		ai, bi := a.(Int).I, b.(Int).I
		if bi == 0 {
			return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgDivideByZero)
		}
		if ai%bi == 0 {
			return Int{ai / bi}, nil
		}
		return NewRatio(big.NewInt(ai), big.NewInt(bi)), nil
	}

	// big/mixed big-small: reduce to a rational, collapsing to an
	// integer if the denominator becomes one.
	an, ad, _ := ratioOf(a)
	bn, bd, _ := ratioOf(b)
	if bn.Sign() == 0 {
		return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgDivideByZero)
	}
	num := new(big.Int).Mul(an, bd)
	den := new(big.Int).Mul(ad, bn)
	return NewRatio(num, den), nil
}

// Mod implements floor-mod semantics.
func Mod(a, b Value) (Value, error) {
	return modRemLike(a, b, true)
}

// Rem implements truncated-division remainder semantics.
func Rem(a, b Value) (Value, error) {
	return modRemLike(a, b, false)
}

func modRemLike(a, b Value, floor bool) (Value, error) {
	ak, aerr := checkNumeric(a, 0)
	if aerr != nil {
		return nil, aerr
	}
	bk, berr := checkNumeric(b, 1)
	if berr != nil {
		return nil, berr
	}

	if ak == kindInt && bk == kindInt {
		ai, bi := a.(Int).I, b.(Int).I
		if bi == 0 {
			if floor {
				return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgModByZero)
			}
			return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgRemByZero)
		}
		if floor {
			m := ai % bi
			if m != 0 && (m < 0) != (bi < 0) {
				m += bi
			}
			return Int{m}, nil
		}
		return Int{ai % bi}, nil
	}

	if ak == kindBigInt && bk == kindBigInt {
		abi, _ := bigIntOf(a)
		bbi, _ := bigIntOf(b)
		if bbi.Sign() == 0 {
			return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgModByZero)
		}
		if floor {
			m := new(big.Int).Mod(abi, bbi) // big.Int.Mod is already Euclidean (floor for positive modulus)
			if bbi.Sign() < 0 && m.Sign() != 0 {
				m.Add(m, bbi)
			}
			return normalizeBigInt(m), nil
		}
		q := new(big.Int).Quo(abi, bbi)
		r := new(big.Int).Sub(abi, new(big.Int).Mul(q, bbi))
		return normalizeBigInt(r), nil
	}

	// ratio/decimal/float or any mix: convert both to float.
	af, err := ToFloat(a)
	if err != nil {
		return nil, err
	}
	bf, err := ToFloat(b)
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, NewError(ErrArithmetic, PhaseRuntime, 1, ErrMsgDivideByZero)
	}
	if floor {
		m := floatMod(af, bf)
		return Float{m}, nil
	}
	q := float64(int64(af / bf))
	return Float{af - q*bf}, nil
}

func floatMod(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// Compare returns -1, 0, 1 per spec.md §4.2's cross-type comparison rules.
func Compare(a, b Value) (int, error) {
	ak, aerr := checkNumeric(a, 0)
	if aerr != nil {
		return 0, aerr
	}
	bk, berr := checkNumeric(b, 1)
	if berr != nil {
		return 0, berr
	}

	if ak == kindInt && bk == kindInt {
		ai, bi := a.(Int).I, b.(Int).I
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if ak == kindFloat || bk == kindFloat {
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if ak == kindRatio || bk == kindRatio {
		an, ad, _ := ratioOf(a)
		bn, bd, _ := ratioOf(b)
		lhs := new(big.Int).Mul(an, bd)
		rhs := new(big.Int).Mul(bn, ad)
		return lhs.Cmp(rhs), nil
	}

	if ak == kindDecimal || bk == kindDecimal {
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	abi, _ := bigIntOf(a)
	bbi, _ := bigIntOf(b)
	return abi.Cmp(bbi), nil
}

// ToFloat coerces any numeric kind to float64, lossily for big magnitudes.
func ToFloat(v Value) (float64, error) {
	switch n := v.(type) {
	case Int:
		return float64(n.I), nil
	case Float:
		return n.F, nil
	case *BigInt:
		f := new(big.Float).SetInt(n.V)
		r, _ := f.Float64()
		return r, nil
	case *Ratio:
		nf := new(big.Float).SetInt(n.Num)
		df := new(big.Float).SetInt(n.Den)
		r, _ := new(big.Float).Quo(nf, df).Float64()
		return r, nil
	case *BigDecimal:
		f := new(big.Float).SetInt(n.Unscaled)
		scale := new(big.Float).SetInt(pow10(n.Scale))
		r, _ := new(big.Float).Quo(f, scale).Float64()
		return r, nil
	}
	return 0, NewError(ErrType, PhaseRuntime, 0, ErrMsgCannotCoerce, v.Tag())
}

func addOverflow(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

func subOverflow(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}
