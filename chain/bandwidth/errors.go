package bandwidth

import "errors"

// User-visible, non-retriable errors (spec.md §7).
var (
	// ErrAccountMissing is returned when a contract's sender address has no
	// account record in the store.
	ErrAccountMissing = errors.New("bandwidth: account missing")

	// ErrAssetMissing is returned when an asset-transfer contract names an
	// asset with no AssetIssue record.
	ErrAssetMissing = errors.New("bandwidth: asset issue missing")

	// ErrBandwidthInsufficient is returned when no tier admits the current
	// contract.
	ErrBandwidthInsufficient = errors.New("bandwidth: insufficient bandwidth")
)

// Programmer errors: corrupted state or a bug, never charged as user
// errors. Reachable only via FatalError.
var (
	// ErrZeroNetWeight is wrapped in a FatalError when the Limit Calculator
	// is invoked with total_net_weight == 0.
	ErrZeroNetWeight = errors.New("bandwidth: total net weight is zero")

	// ErrClockWentBackwards is wrapped in a FatalError when the meter is
	// asked to decay with now < last_time.
	ErrClockWentBackwards = errors.New("bandwidth: now precedes last_time")

	// ErrOverflow is wrapped in a FatalError when a decay computation's
	// intermediate or result cannot be represented in 64 bits.
	ErrOverflow = errors.New("bandwidth: usage computation overflowed 64 bits")
)

// FatalError wraps a programmer error: corrupted state or a bug that MUST
// abort the surrounding block application rather than be treated as a
// per-transaction rejection. See spec.md §7.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "bandwidth: fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(err error) error {
	return &FatalError{Err: err}
}

// IsFatal reports whether err (or any error it wraps) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
