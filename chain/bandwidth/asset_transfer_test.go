package bandwidth

import "testing"

func TestEncodeDecodeAssetTransferRoundTrip(t *testing.T) {
	data := encodeAssetTransfer("MYCOIN", 12345)

	name, amount, ok, err := decodeAssetTransfer(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a well-formed asset transfer payload")
	}
	if name != "MYCOIN" {
		t.Errorf("expected name MYCOIN, got %q", name)
	}
	if amount != 12345 {
		t.Errorf("expected amount 12345, got %d", amount)
	}
}

func TestDecodeAssetTransferUnrelatedDataIsNotAnError(t *testing.T) {
	name, amount, ok, err := decodeAssetTransfer([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("expected no error for data with a foreign selector, got %v", err)
	}
	if ok {
		t.Error("expected ok=false for data that isn't asset-transfer shaped")
	}
	if name != "" || amount != 0 {
		t.Errorf("expected zero values for unrecognized data, got name=%q amount=%d", name, amount)
	}
}

func TestDecodeAssetTransferEmptyDataIsNotAnError(t *testing.T) {
	_, _, ok, err := decodeAssetTransfer(nil)
	if err != nil {
		t.Fatalf("expected no error for empty data, got %v", err)
	}
	if ok {
		t.Error("expected ok=false for empty data")
	}
}

func TestDecodeAssetTransferTruncatedBodyIsMalformed(t *testing.T) {
	full := encodeAssetTransfer("MYCOIN", 1)
	truncated := full[:len(full)-3]

	_, _, ok, err := decodeAssetTransfer(truncated)
	if err == nil {
		t.Fatal("expected an error for a truncated asset transfer body")
	}
	if !ok {
		t.Error("expected ok=true since the selector was recognized before truncation was found")
	}
}

func TestDecodeAssetTransferShortSelectorFragmentIsMalformed(t *testing.T) {
	_, _, ok, err := decodeAssetTransfer(assetTransferSelector[:])
	if err == nil {
		t.Fatal("expected an error: selector present but no length/amount bytes follow")
	}
	if !ok {
		t.Error("expected ok=true: the selector itself was recognized")
	}
}
