package bandwidth

import (
	"context"

	"quantum-blockchain/chain/types"
)

// AccountStore is the bandwidth core's view of the account collaborator
// (spec.md §6). Get returns (nil, nil) when addr has no usage record yet —
// distinct from a lookup error.
type AccountStore interface {
	Get(ctx context.Context, addr types.Address) (*AccountUsage, error)
	Put(ctx context.Context, addr types.Address, acct *AccountUsage) error
}

// AssetIssueStore is the bandwidth core's view of the asset-issue
// collaborator. Get returns (nil, nil) when name has no issue record.
type AssetIssueStore interface {
	Get(ctx context.Context, name string) (*AssetIssue, error)
	Put(ctx context.Context, name string, issue *AssetIssue) error
}

// DynamicPropertiesStore is the bandwidth core's view of the chain-wide
// dynamic-properties singleton.
type DynamicPropertiesStore interface {
	Get(ctx context.Context) (*DynamicProperties, error)
	Put(ctx context.Context, props *DynamicProperties) error
}

// Clock supplies the current slot and block timestamp the core needs but
// does not own (spec.md §6).
type Clock interface {
	HeadSlot() uint64
	HeadBlockTimestamp() uint64
}

// ContractKind classifies a contract for the purposes of new-account
// creation and asset-issuer accounting (spec.md §6).
type ContractKind int

const (
	// ContractOther covers every contract type not recognized below;
	// charged under steps 3/4 only.
	ContractOther ContractKind = iota
	// ContractTransfer is a plain value transfer.
	ContractTransfer
	// ContractAssetTransfer is an asset transfer.
	ContractAssetTransfer
)

// Contract is one operation inside a transaction.
type Contract interface {
	Kind() ContractKind
	Owner() types.Address
	// Recipient returns the contract's recipient address, if it names one.
	Recipient() (types.Address, bool)
	// AssetName returns the asset being transferred, for ContractAssetTransfer.
	AssetName() (string, bool)
}

// Transaction is the bandwidth core's view of the transaction collaborator.
type Transaction interface {
	// SerializedSize is the full transaction's wire size — charged to every
	// contract inside it, not split per-contract (spec.md §4.4, §9).
	SerializedSize() uint64
	Contracts() []Contract
}
