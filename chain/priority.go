// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"

	"lukechampine.com/uint128"
)

const PriorityKeyLen = 16

// PriorityKey orders pending transactions. It is the big-endian encoding of
// the sum of the priority fees, so byte order equals fee order.
type PriorityKey [PriorityKeyLen]byte

// PriorityKeyOf derives the key from the transaction's fee fields. It is never
// stored apart from the transaction it was derived from.
func PriorityKeyOf(tx *Transaction) PriorityKey {
	var k PriorityKey
	if tx.Fees == nil {
		return k
	}
	total := uint128.From64(tx.Fees.MaxPriorityFeePerDAGas).Add64(tx.Fees.MaxPriorityFeePerL2Gas)
	total.PutBytesBE(k[:])
	return k
}

func (k PriorityKey) Compare(o PriorityKey) int {
	return bytes.Compare(k[:], o[:])
}

func (k PriorityKey) Uint128() uint128.Uint128 {
	return uint128.FromBytesBE(k[:])
}

func (k PriorityKey) String() string {
	return k.Uint128().String()
}
