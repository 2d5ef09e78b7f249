package bandwidth

import (
	"encoding/binary"
	"errors"
)

// assetTransferSelector tags a QuantumTransaction's Data as an asset
// transfer, the way an EVM call's first four bytes select a function. There
// is no compiled contract behind it — the bandwidth core only needs to
// recognize the shape, never execute it (contract execution is the EVM's
// concern, out of scope per spec.md §1).
var assetTransferSelector = [4]byte{0x41, 0x54, 0x52, 0x41} // "ATRA"

var errMalformedAssetTransfer = errors.New("bandwidth: malformed asset transfer payload")

// encodeAssetTransfer packs an asset transfer's name and amount into a
// transaction's Data field: selector | name length (2 bytes BE) | name |
// amount (8 bytes BE).
func encodeAssetTransfer(name string, amount uint64) []byte {
	buf := make([]byte, 4+2+len(name)+8)
	copy(buf[0:4], assetTransferSelector[:])
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(name)))
	copy(buf[6:6+len(name)], name)
	binary.BigEndian.PutUint64(buf[6+len(name):], amount)
	return buf
}

// decodeAssetTransfer recognizes and unpacks an asset-transfer payload. ok
// is false (with no error) when data simply isn't shaped like one — that is
// the normal case for plain transfers and arbitrary contract calls, not a
// malformed-payload error.
func decodeAssetTransfer(data []byte) (name string, amount uint64, ok bool, err error) {
	if len(data) < 4 || [4]byte{data[0], data[1], data[2], data[3]} != assetTransferSelector {
		return "", 0, false, nil
	}
	if len(data) < 6 {
		return "", 0, true, errMalformedAssetTransfer
	}
	nameLen := int(binary.BigEndian.Uint16(data[4:6]))
	end := 6 + nameLen
	if len(data) < end+8 {
		return "", 0, true, errMalformedAssetTransfer
	}
	name = string(data[6:end])
	amount = binary.BigEndian.Uint64(data[end : end+8])
	return name, amount, true, nil
}
