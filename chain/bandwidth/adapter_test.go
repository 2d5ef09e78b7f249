package bandwidth

import (
	"math/big"
	"testing"

	"quantum-blockchain/chain/crypto"
	"quantum-blockchain/chain/types"
)

func signedTestTx(t *testing.T, to *types.Address, value *big.Int, data []byte) *types.QuantumTransaction {
	t.Helper()
	privKey, _, err := crypto.GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	tx := types.NewQuantumTransaction(big.NewInt(8888), 0, to, value, 21000, big.NewInt(1), data)
	if err := tx.SignTransaction(privKey.Bytes(), crypto.SigAlgDilithium); err != nil {
		t.Fatalf("failed to sign transaction: %v", err)
	}
	return tx
}

func TestNewTransactionClassifiesPlainTransfer(t *testing.T) {
	to := addrN(2)
	tx := signedTestTx(t, &to, big.NewInt(100), nil)

	bwTx, err := NewTransaction(tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	contracts := bwTx.Contracts()
	if len(contracts) != 1 {
		t.Fatalf("expected exactly one synthesized contract, got %d", len(contracts))
	}
	if contracts[0].Kind() != ContractTransfer {
		t.Errorf("expected ContractTransfer, got %v", contracts[0].Kind())
	}
	recipient, ok := contracts[0].Recipient()
	if !ok || !recipient.Equal(to) {
		t.Errorf("expected recipient %v, got %v (ok=%v)", to, recipient, ok)
	}
}

func TestNewTransactionClassifiesAssetTransfer(t *testing.T) {
	to := addrN(3)
	data := encodeAssetTransfer("MYCOIN", 500)
	tx := signedTestTx(t, &to, big.NewInt(0), data)

	bwTx, err := NewTransaction(tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := bwTx.Contracts()[0]
	if c.Kind() != ContractAssetTransfer {
		t.Errorf("expected ContractAssetTransfer, got %v", c.Kind())
	}
	name, ok := c.AssetName()
	if !ok || name != "MYCOIN" {
		t.Errorf("expected asset name MYCOIN, got %q (ok=%v)", name, ok)
	}
}

func TestNewTransactionClassifiesOtherForArbitraryData(t *testing.T) {
	to := addrN(4)
	tx := signedTestTx(t, &to, big.NewInt(0), []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})

	bwTx, err := NewTransaction(tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bwTx.Contracts()[0].Kind() != ContractOther {
		t.Errorf("expected ContractOther for arbitrary call data, got %v", bwTx.Contracts()[0].Kind())
	}
}

func TestNewTransactionMalformedAssetTransferIsFatal(t *testing.T) {
	to := addrN(5)
	malformed := append([]byte{}, assetTransferSelector[:]...) // selector with no body
	tx := signedTestTx(t, &to, big.NewInt(0), malformed)

	_, err := NewTransaction(tx)
	if err == nil {
		t.Fatal("expected an error for a malformed asset-transfer-shaped payload")
	}
	if !IsFatal(err) {
		t.Errorf("expected a FatalError for corrupted payload data, got %v", err)
	}
}

func TestNewTransactionSizeMatchesTransactionSize(t *testing.T) {
	to := addrN(6)
	tx := signedTestTx(t, &to, big.NewInt(1), nil)

	bwTx, err := NewTransaction(tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bwTx.SerializedSize() != tx.Size() {
		t.Errorf("expected SerializedSize to mirror the transaction's own size, got %d vs %d", bwTx.SerializedSize(), tx.Size())
	}
}
