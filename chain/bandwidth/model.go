// Package bandwidth implements the node's bandwidth accounting core: the
// time-windowed usage meter and multi-tier charging policy that decides
// whether a transaction may be admitted and which buckets it debits.
//
// Every validator re-executes this package when replaying blocks, so its
// outputs are part of state consensus — rounding, ordering, and tie-break
// rules here must not diverge across nodes.
package bandwidth

import "quantum-blockchain/chain/types"

// StakeDivisor converts frozen stake into "net weight". Fixed chain-wide,
// unlike Params below which a genesis config may override.
const StakeDivisor = 1_000_000

// Params holds the chain-wide constants the bandwidth core is parameterized
// over. These are read from genesis configuration and are immutable for the
// lifetime of a run; replaying the same chain with different Params would
// fork consensus.
type Params struct {
	Precision         uint64 // fixed-point scale factor for the decay computation
	WindowMs          uint64 // window width in milliseconds
	BlockIntervalMs   uint64 // nominal slot duration in milliseconds
	CreateAccountCost uint64 // synthetic byte surcharge for first-touch account creation
}

// DefaultParams returns the constants used across spec.md §8's worked
// scenarios: a 1,000,000 fixed-point scale and a 28,800-slot (24h at 3s
// blocks) window.
func DefaultParams() Params {
	return Params{
		Precision:         1_000_000,
		WindowMs:          86_400_000,
		BlockIntervalMs:   3_000,
		CreateAccountCost: 0,
	}
}

// Window returns WINDOW_MS / BLOCK_INTERVAL_MS, the window width in slots.
func (p Params) Window() uint64 {
	if p.BlockIntervalMs == 0 {
		return 0
	}
	return p.WindowMs / p.BlockIntervalMs
}

// AssetBucket is a single (usage, last_time) pair for one asset's per-holder
// free bucket, keyed externally by asset name in AccountUsage.
type AssetBucket struct {
	Usage    uint64
	LastTime int64
}

// AccountUsage carries the bandwidth-specific fields of an account: the
// staked bucket, the per-account free bucket, and the per-asset free
// buckets. It is stored independently of the node's EVM balance/nonce
// state, keyed by the same address.
type AccountUsage struct {
	Address types.Address

	NetUsage          uint64
	LatestConsumeTime int64

	FreeNetUsage          uint64
	LatestConsumeFreeTime int64

	// FreeAssetNetUsage maps asset name to that asset's per-holder free
	// bucket for this account.
	FreeAssetNetUsage map[string]*AssetBucket

	FrozenBalance uint64

	// LatestOperationTime is the block timestamp (ms) of the account's most
	// recent write. Written but never re-read by this core — see
	// SPEC_FULL.md's Open Questions.
	LatestOperationTime uint64
}

// NewAccountUsage returns a zero-value usage record for addr.
func NewAccountUsage(addr types.Address) *AccountUsage {
	return &AccountUsage{
		Address:           addr,
		FreeAssetNetUsage: make(map[string]*AssetBucket),
	}
}

// bucket returns the per-asset bucket for name, creating it if absent.
func (a *AccountUsage) bucket(name string) *AssetBucket {
	if a.FreeAssetNetUsage == nil {
		a.FreeAssetNetUsage = make(map[string]*AssetBucket)
	}
	b, ok := a.FreeAssetNetUsage[name]
	if !ok {
		b = &AssetBucket{}
		a.FreeAssetNetUsage[name] = b
	}
	return b
}

// AssetIssue models an issued, bandwidth-metered asset: its owner, the
// per-holder free cap, and the asset-wide public free pool shared by all
// holders.
type AssetIssue struct {
	Name         string
	OwnerAddress types.Address

	FreeAssetNetLimit uint64

	PublicFreeAssetNetLimit uint64
	PublicFreeAssetNetUsage uint64
	PublicLatestFreeNetTime int64
}

// DynamicProperties is the chain-wide singleton normalizing global bandwidth
// limits and tracking the system-wide free pool.
type DynamicProperties struct {
	TotalNetLimit  uint64
	TotalNetWeight uint64

	FreeNetLimit uint64

	PublicNetLimit uint64
	PublicNetUsage uint64
	PublicNetTime  int64

	HeadBlockTimestamp uint64
}
