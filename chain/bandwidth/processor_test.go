package bandwidth

import (
	"context"
	"testing"
)

type fakeTransaction struct {
	size      uint64
	contracts []Contract
}

func (t *fakeTransaction) SerializedSize() uint64 { return t.size }
func (t *fakeTransaction) Contracts() []Contract  { return t.contracts }

type fakeClock struct {
	slot uint64
}

func (c fakeClock) HeadSlot() uint64           { return c.slot }
func (c fakeClock) HeadBlockTimestamp() uint64 { return 0 }

// scenarioParams mirrors spec.md §8's worked-scenario constants:
// PRECISION=1_000_000, WINDOW=28_800 slots.
func scenarioParams(createAccountCost uint64) Params {
	return Params{
		Precision:         1_000_000,
		WindowMs:          86_400_000,
		BlockIntervalMs:   3_000,
		CreateAccountCost: createAccountCost,
	}
}

// Scenario 1: free path only.
func TestProcessorScenario1FreePathOnly(t *testing.T) {
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  0,
		TotalNetWeight: 1,
		FreeNetLimit:   5000,
		PublicNetLimit: 1_000_000,
	}}
	sender := NewAccountUsage(addrN(1))
	recipient := NewAccountUsage(addrN(2))
	_ = accounts.Put(context.Background(), sender.Address, sender)
	_ = accounts.Put(context.Background(), recipient.Address, recipient)

	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 1000})

	tx := &fakeTransaction{size: 100, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: sender.Address, recipient: recipient.Address, hasRecip: true},
	}}

	if err := processor.Consume(context.Background(), tx); err != nil {
		t.Fatalf("expected admission via step 4, got %v", err)
	}
	if sender.FreeNetUsage != 100 {
		t.Errorf("expected free_net_usage ~= 100, got %d", sender.FreeNetUsage)
	}
	if dyn.props.PublicNetUsage != 100 {
		t.Errorf("expected public_net_usage ~= 100, got %d", dyn.props.PublicNetUsage)
	}
}

// Scenario 2: stake path.
func TestProcessorScenario2StakePath(t *testing.T) {
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  43_200_000_000,
		TotalNetWeight: 1000,
	}}
	sender := NewAccountUsage(addrN(1))
	sender.FrozenBalance = 1_000_000_000
	recipient := NewAccountUsage(addrN(2))
	_ = accounts.Put(context.Background(), sender.Address, sender)
	_ = accounts.Put(context.Background(), recipient.Address, recipient)

	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 1000})

	tx := &fakeTransaction{size: 500, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: sender.Address, recipient: recipient.Address, hasRecip: true},
	}}

	if err := processor.Consume(context.Background(), tx); err != nil {
		t.Fatalf("expected admission via step 3, got %v", err)
	}
	if sender.NetUsage != 500 {
		t.Errorf("expected net_usage ~= 500, got %d", sender.NetUsage)
	}
	if sender.LatestConsumeTime != 1000 {
		t.Errorf("expected latest_consume_time = 1000, got %d", sender.LatestConsumeTime)
	}
}

// Scenario 3: decay to zero.
func TestProcessorScenario3DecayToZero(t *testing.T) {
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  43_200_000_000,
		TotalNetWeight: 1000,
	}}
	sender := NewAccountUsage(addrN(1))
	sender.FrozenBalance = 1_000_000_000
	sender.NetUsage = 10_000
	sender.LatestConsumeTime = 0
	recipient := NewAccountUsage(addrN(2))
	_ = accounts.Put(context.Background(), sender.Address, sender)
	_ = accounts.Put(context.Background(), recipient.Address, recipient)

	params := scenarioParams(0)
	window := int64(params.Window())
	engine := NewEngine(accounts, newMemAssetStore(), dyn, params)
	processor := NewProcessor(accounts, engine, fakeClock{slot: uint64(window + 1)})

	tx := &fakeTransaction{size: 500, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: sender.Address, recipient: recipient.Address, hasRecip: true},
	}}

	if err := processor.Consume(context.Background(), tx); err != nil {
		t.Fatalf("expected admission using the full limit after full decay, got %v", err)
	}
	if sender.NetUsage != 500 {
		t.Errorf("expected the pre-decay residual to be fully gone, leaving net_usage = 500, got %d", sender.NetUsage)
	}
}

// Scenario 4: new-account surcharge.
func TestProcessorScenario4NewAccountSurcharge(t *testing.T) {
	const createAccountCost = 50
	const bytes = 100

	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  1_000_000,
		TotalNetWeight: 1,
	}}
	sender := NewAccountUsage(addrN(1))
	sender.FrozenBalance = StakeDivisor // enough headroom for cost+bytes, no free headroom needed
	_ = accounts.Put(context.Background(), sender.Address, sender)
	// recipient intentionally has no account record: it does not exist yet.

	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(createAccountCost))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 0})

	recipient := addrN(2)
	tx := &fakeTransaction{size: bytes, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: sender.Address, recipient: recipient, hasRecip: true},
	}}

	if err := processor.Consume(context.Background(), tx); err != nil {
		t.Fatalf("expected step 1 surcharge + step 3 bytes to both commit, got %v", err)
	}
	if sender.NetUsage != createAccountCost+bytes {
		t.Errorf("expected net_usage to reflect both the surcharge and the bytes (150), got %d", sender.NetUsage)
	}
}

// Scenario 5: asset transfer with a separate issuer.
func TestProcessorScenario5AssetTransferSeparateIssuer(t *testing.T) {
	accounts := newMemAccountStore()
	assets := newMemAssetStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  43_200_000_000,
		TotalNetWeight: 1000,
	}}

	sender := NewAccountUsage(addrN(1))
	issuer := NewAccountUsage(addrN(2))
	issuer.FrozenBalance = 1_000_000_000
	_ = accounts.Put(context.Background(), sender.Address, sender)
	_ = accounts.Put(context.Background(), issuer.Address, issuer)

	issue := &AssetIssue{
		Name:                    "MYCOIN",
		OwnerAddress:            issuer.Address,
		FreeAssetNetLimit:       2000,
		PublicFreeAssetNetLimit: 10_000,
	}
	_ = assets.Put(context.Background(), issue.Name, issue)

	engine := NewEngine(accounts, assets, dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 0})

	tx := &fakeTransaction{size: 500, contracts: []Contract{
		&fakeContract{kind: ContractAssetTransfer, owner: sender.Address, asset: issue.Name, hasAsset: true},
	}}

	if err := processor.Consume(context.Background(), tx); err != nil {
		t.Fatalf("expected step 2 to admit, got %v", err)
	}
	if issue.PublicFreeAssetNetUsage != 500 {
		t.Errorf("expected public pool += 500, got %d", issue.PublicFreeAssetNetUsage)
	}
	if sender.FreeAssetNetUsage["MYCOIN"].Usage != 500 {
		t.Errorf("expected sender's per-asset free += 500, got %d", sender.FreeAssetNetUsage["MYCOIN"].Usage)
	}
	if issuer.NetUsage != 500 {
		t.Errorf("expected issuer's staked += 500, got %d", issuer.NetUsage)
	}
}

// Scenario 6: bandwidth exhausted.
func TestProcessorScenario6BandwidthExhausted(t *testing.T) {
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  0,
		TotalNetWeight: 1,
		FreeNetLimit:   50,
		PublicNetLimit: 1_000_000,
	}}
	sender := NewAccountUsage(addrN(1))
	recipient := NewAccountUsage(addrN(2))
	_ = accounts.Put(context.Background(), sender.Address, sender)
	_ = accounts.Put(context.Background(), recipient.Address, recipient)

	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 1000})

	tx := &fakeTransaction{size: 100, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: sender.Address, recipient: recipient.Address, hasRecip: true},
	}}

	err := processor.Consume(context.Background(), tx)
	if err != ErrBandwidthInsufficient {
		t.Fatalf("expected ErrBandwidthInsufficient, got %v", err)
	}
	if sender.FreeNetUsage != 0 || sender.NetUsage != 0 {
		t.Errorf("expected no store writes for a rejected contract, got free=%d staked=%d", sender.FreeNetUsage, sender.NetUsage)
	}
}

func TestProcessorAccountMissingIsUserError(t *testing.T) {
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{TotalNetWeight: 1}}
	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 0})

	ghost := addrN(9)
	tx := &fakeTransaction{size: 10, contracts: []Contract{
		&fakeContract{kind: ContractOther, owner: ghost},
	}}

	err := processor.Consume(context.Background(), tx)
	if err != ErrAccountMissing {
		t.Fatalf("expected ErrAccountMissing, got %v", err)
	}
	if IsFatal(err) {
		t.Error("ErrAccountMissing must be a user error, not fatal")
	}
}

func TestProcessorNoRollbackAcrossContracts(t *testing.T) {
	// Two contracts in one transaction: the first succeeds and commits,
	// the second fails. spec.md §7/§9: the first contract's write is not
	// rolled back.
	accounts := newMemAccountStore()
	dyn := &memDynPropsStore{props: &DynamicProperties{
		TotalNetLimit:  0,
		TotalNetWeight: 1,
		FreeNetLimit:   1000,
		PublicNetLimit: 150,
	}}
	senderA := NewAccountUsage(addrN(1))
	senderB := NewAccountUsage(addrN(2))
	recipient := NewAccountUsage(addrN(3))
	_ = accounts.Put(context.Background(), senderA.Address, senderA)
	_ = accounts.Put(context.Background(), senderB.Address, senderB)
	_ = accounts.Put(context.Background(), recipient.Address, recipient)

	engine := NewEngine(accounts, newMemAssetStore(), dyn, scenarioParams(0))
	processor := NewProcessor(accounts, engine, fakeClock{slot: 0})

	tx := &fakeTransaction{size: 100, contracts: []Contract{
		&fakeContract{kind: ContractTransfer, owner: senderA.Address, recipient: recipient.Address, hasRecip: true},
		&fakeContract{kind: ContractTransfer, owner: senderB.Address, recipient: recipient.Address, hasRecip: true},
	}}

	err := processor.Consume(context.Background(), tx)
	if err != ErrBandwidthInsufficient {
		t.Fatalf("expected the second contract to exhaust the shared public pool, got %v", err)
	}

	gotA, _ := accounts.Get(context.Background(), senderA.Address)
	if gotA.FreeNetUsage != 100 {
		t.Errorf("expected contract A's commit to survive contract B's failure, got %d", gotA.FreeNetUsage)
	}
	gotB, _ := accounts.Get(context.Background(), senderB.Address)
	if gotB.FreeNetUsage != 0 {
		t.Errorf("expected contract B to have made no writes, got %d", gotB.FreeNetUsage)
	}
}
