package ledger

import "math/bits"

// Scale is the fixed-point scaling factor for all rates, levels and
// capacities: a stored value of 1000 represents 1.000 (three decimal places).
const Scale = 1_000

// FixedPoint is a non-negative fixed-point number scaled by Scale.
type FixedPoint uint64

// One is the fixed-point representation of 1.000.
const One = FixedPoint(Scale)

// Add returns a+b, failing on uint64 overflow.
func (a FixedPoint) Add(b FixedPoint) (FixedPoint, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return FixedPoint(sum), nil
}

// Sub returns a-b, failing when b exceeds a (fixed-point values are unsigned).
func (a FixedPoint) Sub(b FixedPoint) (FixedPoint, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

// Mul returns a*b/Scale with ceiling rounding. The intermediate product is
// computed in 128 bits so operands near the uint64 limit do not wrap; the
// result itself must still fit in 64 bits.
func (a FixedPoint) Mul(b FixedPoint) (FixedPoint, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= Scale {
		return 0, ErrArithmeticOverflow
	}
	quo, rem := bits.Div64(hi, lo, Scale)
	if rem > 0 {
		if quo == 1<<64-1 {
			return 0, ErrArithmeticOverflow
		}
		quo++
	}
	return FixedPoint(quo), nil
}

// Div returns a*Scale/b with ceiling rounding. Rounding up rather than down
// keeps billing amounts from being truncated in the consumer's favor.
func (a FixedPoint) Div(b FixedPoint) (FixedPoint, error) {
	if b == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(uint64(a), Scale)
	if hi >= uint64(b) {
		return 0, ErrArithmeticOverflow
	}
	quo, rem := bits.Div64(hi, lo, uint64(b))
	if rem > 0 {
		quo++
	}
	return FixedPoint(quo), nil
}

// divFloor returns a*Scale/b rounded down. Used where the quotient is
// subtracted from a larger term, so that flooring it never under-bills.
func (a FixedPoint) divFloor(b FixedPoint) (FixedPoint, error) {
	if b == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(uint64(a), Scale)
	if hi >= uint64(b) {
		return 0, ErrArithmeticOverflow
	}
	quo, _ := bits.Div64(hi, lo, uint64(b))
	return FixedPoint(quo), nil
}

// scaleAmount prices a raw token amount at a fixed-point rate:
// ceil(amount*rate/Scale).
func scaleAmount(amount uint64, rate FixedPoint) (uint64, error) {
	cost, err := FixedPoint(amount).Mul(rate)
	if err != nil {
		return 0, err
	}
	return uint64(cost), nil
}
