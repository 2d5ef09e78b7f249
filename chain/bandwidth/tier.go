package bandwidth

import "context"

// Engine implements the four-tier charging cascade of spec.md §4.3: a
// contract is offered to each tier in strict precedence order; the first
// tier that admits commits its store writes and short-circuits the rest.
type Engine struct {
	Accounts AccountStore
	Assets   AssetIssueStore
	DynProps DynamicPropertiesStore
	Params   Params

	// Clock, if set, supplies the block timestamp stamped onto every
	// mutated account's LatestOperationTime (spec.md §3) and onto the
	// loaded DynamicProperties.HeadBlockTimestamp; that field is persisted
	// only when a tier writes DynamicProperties back. Left nil in tests that only
	// exercise slot-based decay — callers that care about this field being
	// populated (the node's RPC/storage layer) wire a real Clock in.
	Clock Clock

	// OnCharge, if set, is called after each tier commits a charge: the
	// surcharge (tier "surcharge") and whichever of steps 2-4 admitted
	// bytes ("asset", "account", or "free"). Purely an instrumentation
	// hook for the node layer's metrics — the core never reads it back.
	OnCharge func(tier string, bytes uint64)
}

// NewEngine builds a tier Engine over the given collaborators.
func NewEngine(accounts AccountStore, assets AssetIssueStore, dynProps DynamicPropertiesStore, params Params) *Engine {
	return &Engine{Accounts: accounts, Assets: assets, DynProps: dynProps, Params: params}
}

// Admit runs the cascade for one contract against sender, which the caller
// has already loaded (spec.md §4.4 resolves account-missing before this is
// reached). bytes is the full transaction's serialized size, charged to
// this contract verbatim — not the contract's own size (spec.md §4.4, §9).
//
// Returns ErrBandwidthInsufficient if no tier admits, ErrAssetMissing if an
// asset-transfer contract names an unknown asset, or a FatalError for
// corrupted chain state.
func (e *Engine) Admit(ctx context.Context, c Contract, sender *AccountUsage, bytes uint64, now int64) error {
	dyn, err := e.DynProps.Get(ctx)
	if err != nil {
		return err
	}
	if dyn == nil {
		return fatal(ErrZeroNetWeight)
	}

	// blockTimestamp is stamped onto every account this contract mutates,
	// per spec.md §3's latest_operation_time field — written on every
	// write, never re-read by this core (see SPEC_FULL.md's Open
	// Questions). Falls back to the slot itself when no Clock is wired.
	blockTimestamp := uint64(now)
	if e.Clock != nil {
		blockTimestamp = e.Clock.HeadBlockTimestamp()
		dyn.HeadBlockTimestamp = blockTimestamp
	}

	// Step 1: new-account surcharge. A precondition failure here aborts the
	// whole contract — there is no fallback tier for the surcharge itself.
	// Its commit, once made, is never rolled back even if steps 2-4 below
	// all reject bytes ("surcharge orphaning", spec.md §9) — do not "fix".
	createsAccount, err := e.createsNewAccount(ctx, c)
	if err != nil {
		return err
	}
	if createsAccount {
		if err := e.chargeSurcharge(ctx, sender, now, dyn, blockTimestamp); err != nil {
			return err
		}
	}

	// Steps 2-4: fallback cascade for bytes.
	admitted, err := e.tryAssetIssuerNet(ctx, c, sender, bytes, now, dyn, blockTimestamp)
	if err != nil {
		return err
	}
	if admitted {
		e.notify("asset", bytes)
		return nil
	}

	admitted, err = e.tryAccountNet(ctx, sender, bytes, now, dyn)
	if err != nil {
		return err
	}
	if admitted {
		sender.LatestOperationTime = blockTimestamp
		if err := e.Accounts.Put(ctx, sender.Address, sender); err != nil {
			return err
		}
		e.notify("account", bytes)
		return nil
	}

	admitted, err = e.tryFreeNet(ctx, sender, bytes, now, dyn)
	if err != nil {
		return err
	}
	if admitted {
		sender.LatestOperationTime = blockTimestamp
		if err := e.Accounts.Put(ctx, sender.Address, sender); err != nil {
			return err
		}
		if err := e.DynProps.Put(ctx, dyn); err != nil {
			return err
		}
		e.notify("free", bytes)
		return nil
	}

	return ErrBandwidthInsufficient
}

func (e *Engine) notify(tier string, bytes uint64) {
	if e.OnCharge != nil {
		e.OnCharge(tier, bytes)
	}
}

// createsNewAccount implements spec.md §4.3's "creates new account"
// predicate: a plain transfer or asset transfer whose recipient has no
// existing account record.
func (e *Engine) createsNewAccount(ctx context.Context, c Contract) (bool, error) {
	if c.Kind() != ContractTransfer && c.Kind() != ContractAssetTransfer {
		return false, nil
	}
	recipient, ok := c.Recipient()
	if !ok {
		return false, nil
	}
	existing, err := e.Accounts.Get(ctx, recipient)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

// chargeSurcharge is step 1: CREATE_ACCOUNT_COST against the sender's
// staked bucket only. MUST succeed or abort the whole contract.
func (e *Engine) chargeSurcharge(ctx context.Context, sender *AccountUsage, now int64, dyn *DynamicProperties, blockTimestamp uint64) error {
	decayed, err := Increase(sender.NetUsage, 0, sender.LatestConsumeTime, now, e.Params)
	if err != nil {
		return err
	}

	var limit uint64
	if sender.FrozenBalance > 0 {
		limit, err = GlobalNetLimit(sender.FrozenBalance, dyn.TotalNetLimit, dyn.TotalNetWeight)
		if err != nil {
			return err
		}
	}

	if !headroomCovers(limit, decayed, e.Params.CreateAccountCost) {
		return ErrBandwidthInsufficient
	}

	newUsage, err := Increase(sender.NetUsage, e.Params.CreateAccountCost, sender.LatestConsumeTime, now, e.Params)
	if err != nil {
		return err
	}
	sender.NetUsage = newUsage
	sender.LatestConsumeTime = now
	sender.LatestOperationTime = blockTimestamp

	if err := e.Accounts.Put(ctx, sender.Address, sender); err != nil {
		return err
	}
	e.notify("surcharge", e.Params.CreateAccountCost)
	return nil
}

// tryAssetIssuerNet is step 2. Self-transfers of one's own asset (issuer ==
// sender) fall through to step 3 directly and never touch the public asset
// pool (spec.md §4.3's self-issue shortcut).
func (e *Engine) tryAssetIssuerNet(ctx context.Context, c Contract, sender *AccountUsage, bytes uint64, now int64, dyn *DynamicProperties, blockTimestamp uint64) (bool, error) {
	if c.Kind() != ContractAssetTransfer {
		return false, nil
	}
	name, ok := c.AssetName()
	if !ok {
		return false, nil
	}

	issue, err := e.Assets.Get(ctx, name)
	if err != nil {
		return false, err
	}
	if issue == nil {
		return false, ErrAssetMissing
	}
	if issue.OwnerAddress.Equal(sender.Address) {
		return false, nil
	}

	issuer, err := e.Accounts.Get(ctx, issue.OwnerAddress)
	if err != nil {
		return false, err
	}
	if issuer == nil {
		issuer = NewAccountUsage(issue.OwnerAddress)
	}

	// Compute all three decayed values before checking any predicate
	// (spec.md §9's compute-all-then-commit-all discipline).
	decayedPublic, err := Increase(issue.PublicFreeAssetNetUsage, 0, issue.PublicLatestFreeNetTime, now, e.Params)
	if err != nil {
		return false, err
	}
	senderBucket := sender.bucket(name)
	decayedSenderAsset, err := Increase(senderBucket.Usage, 0, senderBucket.LastTime, now, e.Params)
	if err != nil {
		return false, err
	}
	decayedIssuerNet, err := Increase(issuer.NetUsage, 0, issuer.LatestConsumeTime, now, e.Params)
	if err != nil {
		return false, err
	}

	var issuerLimit uint64
	if issuer.FrozenBalance > 0 {
		issuerLimit, err = GlobalNetLimit(issuer.FrozenBalance, dyn.TotalNetLimit, dyn.TotalNetWeight)
		if err != nil {
			return false, err
		}
	}

	if !headroomCovers(issue.PublicFreeAssetNetLimit, decayedPublic, bytes) {
		return false, nil
	}
	if !headroomCovers(issue.FreeAssetNetLimit, decayedSenderAsset, bytes) {
		return false, nil
	}
	if !headroomCovers(issuerLimit, decayedIssuerNet, bytes) {
		return false, nil
	}

	// All three have headroom: recompute with add_usage = bytes, stamp
	// times, and write all three entries.
	newPublic, err := Increase(issue.PublicFreeAssetNetUsage, bytes, issue.PublicLatestFreeNetTime, now, e.Params)
	if err != nil {
		return false, err
	}
	newSenderAsset, err := Increase(senderBucket.Usage, bytes, senderBucket.LastTime, now, e.Params)
	if err != nil {
		return false, err
	}
	newIssuerNet, err := Increase(issuer.NetUsage, bytes, issuer.LatestConsumeTime, now, e.Params)
	if err != nil {
		return false, err
	}

	issue.PublicFreeAssetNetUsage = newPublic
	issue.PublicLatestFreeNetTime = now
	senderBucket.Usage = newSenderAsset
	senderBucket.LastTime = now
	issuer.NetUsage = newIssuerNet
	issuer.LatestConsumeTime = now
	sender.LatestOperationTime = blockTimestamp
	issuer.LatestOperationTime = blockTimestamp

	if err := e.Accounts.Put(ctx, sender.Address, sender); err != nil {
		return false, err
	}
	if err := e.Accounts.Put(ctx, issuer.Address, issuer); err != nil {
		return false, err
	}
	if err := e.Assets.Put(ctx, name, issue); err != nil {
		return false, err
	}
	return true, nil
}

// tryAccountNet is step 3: bytes against the sender's staked bucket. Always
// eligible.
func (e *Engine) tryAccountNet(ctx context.Context, sender *AccountUsage, bytes uint64, now int64, dyn *DynamicProperties) (bool, error) {
	decayed, err := Increase(sender.NetUsage, 0, sender.LatestConsumeTime, now, e.Params)
	if err != nil {
		return false, err
	}

	var limit uint64
	if sender.FrozenBalance > 0 {
		limit, err = GlobalNetLimit(sender.FrozenBalance, dyn.TotalNetLimit, dyn.TotalNetWeight)
		if err != nil {
			return false, err
		}
	}

	if !headroomCovers(limit, decayed, bytes) {
		return false, nil
	}

	newUsage, err := Increase(sender.NetUsage, bytes, sender.LatestConsumeTime, now, e.Params)
	if err != nil {
		return false, err
	}
	sender.NetUsage = newUsage
	sender.LatestConsumeTime = now
	return true, nil
}

// tryFreeNet is step 4: bytes against the sender's free bucket AND the
// system public free pool. Both must have headroom.
func (e *Engine) tryFreeNet(ctx context.Context, sender *AccountUsage, bytes uint64, now int64, dyn *DynamicProperties) (bool, error) {
	decayedFree, err := Increase(sender.FreeNetUsage, 0, sender.LatestConsumeFreeTime, now, e.Params)
	if err != nil {
		return false, err
	}
	decayedPublic, err := Increase(dyn.PublicNetUsage, 0, dyn.PublicNetTime, now, e.Params)
	if err != nil {
		return false, err
	}

	if !headroomCovers(dyn.FreeNetLimit, decayedFree, bytes) {
		return false, nil
	}
	if !headroomCovers(dyn.PublicNetLimit, decayedPublic, bytes) {
		return false, nil
	}

	newFree, err := Increase(sender.FreeNetUsage, bytes, sender.LatestConsumeFreeTime, now, e.Params)
	if err != nil {
		return false, err
	}
	newPublic, err := Increase(dyn.PublicNetUsage, bytes, dyn.PublicNetTime, now, e.Params)
	if err != nil {
		return false, err
	}

	sender.FreeNetUsage = newFree
	sender.LatestConsumeFreeTime = now
	dyn.PublicNetUsage = newPublic
	dyn.PublicNetTime = now
	return true, nil
}

// headroomCovers reports whether bytes fits within limit given decayed
// current usage: admitted iff bytes <= (limit - decayed_current_usage),
// computed without underflowing when decayed > limit.
func headroomCovers(limit, decayed, bytes uint64) bool {
	if decayed >= limit {
		return bytes == 0
	}
	return bytes <= limit-decayed
}
