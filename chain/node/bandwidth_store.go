package node

import (
	"context"
	"encoding/json"
	"fmt"

	"quantum-blockchain/chain/bandwidth"
	"quantum-blockchain/chain/types"

	"github.com/syndtr/goleveldb/leveldb"
)

// leveldbAccountStore persists bandwidth.AccountUsage records in the same
// goleveldb handle StateDB already opens, following the same
// prefix-plus-address key convention as StateDB's "balance-"/"nonce-" rows
// in blockchain.go.
//
// Get's "does this account exist" semantics (spec.md §4.3's new-account
// predicate) are wider than "has a bandwidth usage record": an account that
// only ever received an EVM balance, and never yet consumed bandwidth,
// still counts as existing. Get consults state for that case and returns a
// zero-valued AccountUsage rather than nil.
type leveldbAccountStore struct {
	db    *leveldb.DB
	state *StateDB
}

func newLeveldbAccountStore(db *leveldb.DB, state *StateDB) *leveldbAccountStore {
	return &leveldbAccountStore{db: db, state: state}
}

func accountUsageKey(addr types.Address) []byte {
	return append([]byte("bw-acct-"), addr.Bytes()...)
}

func (s *leveldbAccountStore) Get(_ context.Context, addr types.Address) (*bandwidth.AccountUsage, error) {
	data, err := s.db.Get(accountUsageKey(addr), nil)
	if err == leveldb.ErrNotFound {
		if s.state != nil && s.state.Exist(addr) {
			return bandwidth.NewAccountUsage(addr), nil
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bandwidth account store: %w", err)
	}

	var acct bandwidth.AccountUsage
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("bandwidth account store: %w", err)
	}
	return &acct, nil
}

func (s *leveldbAccountStore) Put(_ context.Context, addr types.Address, acct *bandwidth.AccountUsage) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("bandwidth account store: %w", err)
	}
	if err := s.db.Put(accountUsageKey(addr), data, nil); err != nil {
		return fmt.Errorf("bandwidth account store: %w", err)
	}
	return nil
}

// leveldbAssetIssueStore persists bandwidth.AssetIssue records.
type leveldbAssetIssueStore struct {
	db *leveldb.DB
}

func newLeveldbAssetIssueStore(db *leveldb.DB) *leveldbAssetIssueStore {
	return &leveldbAssetIssueStore{db: db}
}

func assetIssueKey(name string) []byte {
	return append([]byte("bw-asset-"), []byte(name)...)
}

func (s *leveldbAssetIssueStore) Get(_ context.Context, name string) (*bandwidth.AssetIssue, error) {
	data, err := s.db.Get(assetIssueKey(name), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bandwidth asset store: %w", err)
	}

	var issue bandwidth.AssetIssue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("bandwidth asset store: %w", err)
	}
	return &issue, nil
}

func (s *leveldbAssetIssueStore) Put(_ context.Context, name string, issue *bandwidth.AssetIssue) error {
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("bandwidth asset store: %w", err)
	}
	if err := s.db.Put(assetIssueKey(name), data, nil); err != nil {
		return fmt.Errorf("bandwidth asset store: %w", err)
	}
	return nil
}

// leveldbDynamicPropertiesStore persists the chain-wide
// bandwidth.DynamicProperties singleton under a single fixed key.
type leveldbDynamicPropertiesStore struct {
	db      *leveldb.DB
	initial bandwidth.DynamicProperties
}

var dynamicPropertiesKey = []byte("bw-dynprops")

func newLeveldbDynamicPropertiesStore(db *leveldb.DB, defaults bandwidth.DynamicProperties) *leveldbDynamicPropertiesStore {
	return &leveldbDynamicPropertiesStore{db: db, initial: defaults}
}

func (s *leveldbDynamicPropertiesStore) Get(ctx context.Context) (*bandwidth.DynamicProperties, error) {
	data, err := s.db.Get(dynamicPropertiesKey, nil)
	if err == leveldb.ErrNotFound {
		props := s.initial
		if err := s.Put(ctx, &props); err != nil {
			return nil, err
		}
		return &props, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bandwidth dynamic properties store: %w", err)
	}

	var props bandwidth.DynamicProperties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("bandwidth dynamic properties store: %w", err)
	}
	return &props, nil
}

func (s *leveldbDynamicPropertiesStore) Put(_ context.Context, props *bandwidth.DynamicProperties) error {
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("bandwidth dynamic properties store: %w", err)
	}
	if err := s.db.Put(dynamicPropertiesKey, data, nil); err != nil {
		return fmt.Errorf("bandwidth dynamic properties store: %w", err)
	}
	return nil
}

// blockchainClock adapts *Blockchain to bandwidth.Clock: the current block
// height is the slot, the current block's timestamp (header seconds,
// converted to milliseconds) is the block timestamp, matching spec.md §6's
// WitnessController/Clock collaborator.
//
// The bandwidth Processor calls it only from executeTransaction, inside
// AddBlock, which already holds bc.mu; it therefore reads currentBlock
// directly instead of through GetCurrentBlock, whose RLock would block there.
type blockchainClock struct {
	bc *Blockchain
}

func (c blockchainClock) HeadSlot() uint64 {
	return c.bc.currentBlock.Number().Uint64()
}

func (c blockchainClock) HeadBlockTimestamp() uint64 {
	return c.bc.currentBlock.Time() * 1000
}
