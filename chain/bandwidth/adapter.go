package bandwidth

import "quantum-blockchain/chain/types"

// quantumContract adapts one quantum-blockchain transaction into the single
// Contract the bandwidth core charges it as. QuantumTransaction has no
// native notion of multiple contracts (it is one EVM-style call), so
// txAdapter always yields exactly one.
type quantumContract struct {
	owner     types.Address
	kind      ContractKind
	recipient types.Address
	hasRecip  bool
	assetName string
	hasAsset  bool
}

func (c *quantumContract) Kind() ContractKind { return c.kind }
func (c *quantumContract) Owner() types.Address { return c.owner }
func (c *quantumContract) Recipient() (types.Address, bool) { return c.recipient, c.hasRecip }
func (c *quantumContract) AssetName() (string, bool) { return c.assetName, c.hasAsset }

// txAdapter implements Transaction over a *types.QuantumTransaction.
type txAdapter struct {
	size     uint64
	contract *quantumContract
}

func (t *txAdapter) SerializedSize() uint64 { return t.size }
func (t *txAdapter) Contracts() []Contract  { return []Contract{t.contract} }

// NewTransaction classifies tx into the single Contract the bandwidth core
// will charge it as:
//
//   - a plain value transfer: Value > 0, To != nil, Data empty
//   - an asset transfer: Data is shaped like encodeAssetTransfer's output
//   - anything else: ContractOther, charged under steps 3/4 only
//
// A malformed asset-transfer-shaped payload (recognized selector, broken
// body) is a programmer/data-corruption error per spec.md §7 and is
// returned as a FatalError rather than a user-facing rejection.
func NewTransaction(tx *types.QuantumTransaction) (Transaction, error) {
	c := &quantumContract{owner: tx.From()}

	name, _, isAsset, err := decodeAssetTransfer(tx.GetData())
	if err != nil {
		return nil, fatal(err)
	}

	switch {
	case isAsset:
		c.kind = ContractAssetTransfer
		c.assetName = name
		c.hasAsset = true
		if to := tx.GetTo(); to != nil {
			c.recipient = *to
			c.hasRecip = true
		}
	case tx.GetValue().Sign() > 0 && len(tx.GetData()) == 0 && tx.GetTo() != nil:
		c.kind = ContractTransfer
		c.recipient = *tx.GetTo()
		c.hasRecip = true
	default:
		c.kind = ContractOther
	}

	return &txAdapter{size: tx.Size(), contract: c}, nil
}
