package runtime

import "math/big"

// BigInt is the arbitrary-precision integer kind. Promotion to BigInt is
// sticky: once a computation lands here it never demotes back to Int,
// even if the value would fit (spec.md §9).
type BigInt struct{ V *big.Int }

func NewBigInt(v *big.Int) *BigInt { return &BigInt{V: v} }

func (b *BigInt) Tag() ValueTag { return TagBigInt }
func (b *BigInt) rstr() string  { return b.V.String() + "N" }

// Ratio is a reduced rational with a positive denominator; an integral
// ratio collapses to BigInt/Int instead of being representable here
// (spec.md §3.1 invariant), enforced by NewRatio / reduceRatio.
type Ratio struct {
	Num, Den *big.Int // Den > 0 always; gcd(Num, Den) == 1 always
}

// NewRatio reduces num/den to lowest terms with a positive denominator
// and returns either a *Ratio, or an Int/*BigInt if the result is
// integral — callers should always go through this constructor, never
// build a Ratio by hand.
func NewRatio(num, den *big.Int) Value {
	if den.Sign() == 0 {
		return nil // caller must check for divide-by-zero before calling
	}
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 {
		n.Div(n, g)
		d.Div(d, g)
	}
	if d.Cmp(big.NewInt(1)) == 0 {
		return normalizeBigInt(n)
	}
	return &Ratio{Num: n, Den: d}
}

func (r *Ratio) Tag() ValueTag { return TagRatio }
func (r *Ratio) rstr() string  { return r.Num.String() + "/" + r.Den.String() }

// BigDecimal is an arbitrary-precision decimal: Unscaled * 10^-Scale.
type BigDecimal struct {
	Unscaled *big.Int
	Scale    int // non-negative
}

func NewBigDecimal(unscaled *big.Int, scale int) *BigDecimal {
	return &BigDecimal{Unscaled: unscaled, Scale: scale}
}

func (d *BigDecimal) Tag() ValueTag { return TagBigDecimal }
func (d *BigDecimal) rstr() string {
	s := d.Unscaled.String()
	if d.Scale == 0 {
		return s + "M"
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for len(s) <= d.Scale {
		s = "0" + s
	}
	intPart := s[:len(s)-d.Scale]
	fracPart := s[len(s)-d.Scale:]
	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out + "M"
}

// normalizeBigInt demotes a BigInt back down to Int only when it fits —
// used for results that start big (division, ratio-to-integer collapse)
// but may land inside the small range. This is NOT the same path as
// overflow promotion, which is sticky; collapsing an *exact* mathematical
// identity (ratio with denominator 1) back to the smallest fitting
// representation is a representational choice, not a promotion decision.
func normalizeBigInt(v *big.Int) Value {
	if v.IsInt64() {
		return Int{v.Int64()}
	}
	return &BigInt{V: v}
}

func bigIntOf(v Value) (*big.Int, bool) {
	switch n := v.(type) {
	case Int:
		return big.NewInt(n.I), true
	case *BigInt:
		return n.V, true
	}
	return nil, false
}

func ratioOf(v Value) (num, den *big.Int, ok bool) {
	switch n := v.(type) {
	case *Ratio:
		return n.Num, n.Den, true
	case Int:
		return big.NewInt(n.I), big.NewInt(1), true
	case *BigInt:
		return n.V, big.NewInt(1), true
	}
	return nil, nil, false
}

func decimalOf(v Value) (*BigDecimal, bool) {
	switch n := v.(type) {
	case *BigDecimal:
		return n, true
	case Int:
		return &BigDecimal{Unscaled: big.NewInt(n.I), Scale: 0}, true
	case *BigInt:
		return &BigDecimal{Unscaled: n.V, Scale: 0}, true
	}
	return nil, false
}

// IsNumeric reports whether v belongs to the numeric tower.
func IsNumeric(v Value) bool {
	switch v.Tag() {
	case TagInt, TagFloat, TagBigInt, TagRatio, TagBigDecimal:
		return true
	}
	return false
}
