package spread

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the fixed number of fractional digits ("satoshi" precision) used
// for every price and spread in the system. All rounding is half-to-even.
const Scale = 8

var (
	// ErrDivisionByZero is returned when the long price scales to zero.
	ErrDivisionByZero = errors.New("spread: long price scales to zero")
	// ErrNonPositivePrice is returned when a price input is zero or negative.
	ErrNonPositivePrice = errors.New("spread: price must be positive")
	// ErrFeeOutOfRange is returned when a fee fraction is outside [0, 1).
	ErrFeeOutOfRange = errors.New("spread: fee must be in [0, 1)")
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// BaseSpread computes (shortPrice - longPrice) / longPrice as a signed
// fraction. 0.008 means the short price is 0.8% above the long price,
// -0.003 means the long price is 0.3% above the short price. Both operands
// are scaled to Scale digits before the division, and the division itself
// rounds half-to-even at Scale digits.
func BaseSpread(longPrice, shortPrice decimal.Decimal) (decimal.Decimal, error) {
	l := longPrice.RoundBank(Scale)
	s := shortPrice.RoundBank(Scale)

	if l.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}

	return divHalfEven(s.Sub(l), l), nil
}

// EntrySpread models opening a position: buying at the long exchange's ask
// (paying longFee on top) and selling at the short exchange's bid (losing
// shortFee of the proceeds). A positive result is a profitable entry before
// slippage.
func EntrySpread(longAsk, longFee, shortBid, shortFee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkInputs(longAsk, longFee, shortBid, shortFee); err != nil {
		return decimal.Decimal{}, err
	}

	effectiveLong := longAsk.Mul(one.Add(longFee))
	effectiveShort := shortBid.Mul(one.Sub(shortFee))

	return BaseSpread(effectiveLong, effectiveShort)
}

// ExitSpread models unwinding a position: selling at the long exchange's bid
// (losing longFee) and buying back at the short exchange's ask (paying
// shortFee on top). Like EntrySpread it adjusts the prices for fees first and
// then applies BaseSpread, so entry and exit round identically; the
// direct-ratio form of this formula rounds at a different step and must not
// be mixed in.
func ExitSpread(longBid, longFee, shortAsk, shortFee decimal.Decimal) (decimal.Decimal, error) {
	if err := checkInputs(longBid, longFee, shortAsk, shortFee); err != nil {
		return decimal.Decimal{}, err
	}

	effectiveLong := longBid.Mul(one.Sub(longFee))
	effectiveShort := shortAsk.Mul(one.Add(shortFee))

	return BaseSpread(effectiveLong, effectiveShort)
}

func checkInputs(longPrice, longFee, shortPrice, shortFee decimal.Decimal) error {
	if longPrice.Sign() <= 0 || shortPrice.Sign() <= 0 {
		return ErrNonPositivePrice
	}
	if longFee.Sign() < 0 || longFee.Cmp(one) >= 0 || shortFee.Sign() < 0 || shortFee.Cmp(one) >= 0 {
		return ErrFeeOutOfRange
	}
	return nil
}

// divHalfEven divides a by b rounding half-to-even at Scale fractional
// digits. shopspring's DivRound rounds half away from zero, so the tie is
// resolved here from the truncated quotient and remainder instead.
func divHalfEven(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, Scale)
	if r.IsZero() {
		return q
	}

	step := decimal.New(1, -Scale)
	cmp := r.Abs().Mul(two).Cmp(b.Abs().Mul(step))
	if cmp > 0 || (cmp == 0 && q.Mul(decimal.New(1, Scale)).IntPart()%2 != 0) {
		if a.Sign() != b.Sign() {
			q = q.Sub(step)
		} else {
			q = q.Add(step)
		}
	}

	return q
}
