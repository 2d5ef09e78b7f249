package bandwidth

import "math/big"

// GlobalNetLimit derives an account's staked bandwidth limit from its frozen
// stake (spec.md §4.2): (frozen / STAKE_DIVISOR) * total_net_limit /
// total_net_weight, with integer division applied strictly left-to-right to
// match consensus.
//
// Callers MUST only invoke this when totalNetWeight > 0 (guard the call for
// accounts with zero stake participation instead). totalNetWeight == 0 is a
// programmer error — it indicates DynamicProperties is corrupt, since
// spec.md §3 requires total_net_weight > 0 whenever any account has
// frozen_balance > 0 — and is reported as a FatalError rather than a user
// error.
func GlobalNetLimit(frozen, totalNetLimit, totalNetWeight uint64) (uint64, error) {
	if totalNetWeight == 0 {
		return 0, fatal(ErrZeroNetWeight)
	}

	netWeight := new(big.Int).SetUint64(frozen / StakeDivisor)
	limit := new(big.Int).Mul(netWeight, new(big.Int).SetUint64(totalNetLimit))
	limit.Quo(limit, new(big.Int).SetUint64(totalNetWeight))

	if limit.Cmp(maxUint64) > 0 {
		return 0, fatal(ErrOverflow)
	}
	return limit.Uint64(), nil
}
