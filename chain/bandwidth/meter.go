package bandwidth

import "math/big"

// maxUint64 bounds the values Increase will return without overflowing the
// uint64 result; intermediates are carried in math/big so the multiply
// steps spec.md §9 flags (last_usage * PRECISION) never overflow native
// 64-bit arithmetic the way the original implementation's signed int64 math
// can.
var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// Increase is the window meter's pure decay function (spec.md §4.1). It
// treats lastUsage as if evenly distributed over a window of p.Window()
// slots, decays it linearly by the elapsed slots between lastTime and now,
// and adds addUsage.
//
// now must be >= lastTime, or lastTime == now (no decay applied); a lesser
// now is a programmer error (FatalError), never a user error.
func Increase(lastUsage, addUsage uint64, lastTime, now int64, p Params) (uint64, error) {
	window := p.Window()
	if window == 0 {
		return 0, fatal(ErrOverflow)
	}
	windowB := new(big.Int).SetUint64(window)
	precisionB := new(big.Int).SetUint64(p.Precision)

	avgLast, err := ceilDiv(mulU64(lastUsage, p.Precision), windowB)
	if err != nil {
		return 0, err
	}
	avgAdd, err := ceilDiv(mulU64(addUsage, p.Precision), windowB)
	if err != nil {
		return 0, err
	}

	if now != lastTime {
		if now < lastTime {
			return 0, fatal(ErrClockWentBackwards)
		}
		elapsed := now - lastTime
		if elapsed < int64(window) {
			// decay = (window - elapsed) / window, applied to avgLast with
			// round-half-to-even, reproduced in exact rationals per
			// spec.md §9 ("Option (a) is preferred for portability").
			remaining := new(big.Int).SetUint64(window - uint64(elapsed))
			numerator := new(big.Int).Mul(avgLast, remaining)
			avgLast = roundHalfToEven(numerator, windowB)
		} else {
			avgLast = big.NewInt(0)
		}
	}

	avgNew := new(big.Int).Add(avgLast, avgAdd)

	// new_usage = floor(avg_new * WINDOW / PRECISION)
	scaled := new(big.Int).Mul(avgNew, windowB)
	newUsage := new(big.Int).Quo(scaled, precisionB)

	if newUsage.Sign() < 0 || newUsage.Cmp(maxUint64) > 0 {
		return 0, fatal(ErrOverflow)
	}
	return newUsage.Uint64(), nil
}

func mulU64(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

// ceilDiv computes ⌈numerator / denominator⌉ for non-negative numerator and
// positive denominator.
func ceilDiv(numerator *big.Int, denominator *big.Int) (*big.Int, error) {
	if denominator.Sign() <= 0 {
		return nil, fatal(ErrOverflow)
	}
	sum := new(big.Int).Add(numerator, denominator)
	sum.Sub(sum, big.NewInt(1))
	return new(big.Int).Quo(sum, denominator), nil
}

// roundHalfToEven computes round(numerator / denominator) with banker's
// rounding: ties round to the nearest even integer. numerator and
// denominator are both non-negative, denominator > 0.
func roundHalfToEven(numerator, denominator *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	twiceRem := new(big.Int).Lsh(rem, 1)

	switch twiceRem.Cmp(denominator) {
	case -1: // remainder < half: round down
		return quo
	case 1: // remainder > half: round up
		return quo.Add(quo, big.NewInt(1))
	default: // exactly half: round to even
		if quo.Bit(0) == 0 {
			return quo
		}
		return quo.Add(quo, big.NewInt(1))
	}
}
