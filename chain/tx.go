// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// GasFees are the priority fees a transaction is willing to pay per unit of
// gas, on top of the base fee.
type GasFees struct {
	MaxPriorityFeePerDAGas uint64 `serialize:"true" json:"maxPriorityFeePerDaGas"`
	MaxPriorityFeePerL2Gas uint64 `serialize:"true" json:"maxPriorityFeePerL2Gas"`
}

type Transaction struct {
	Payload    []byte         `serialize:"true" json:"payload"`
	Fees       *GasFees       `serialize:"true" json:"fees"`
	Nullifiers []ids.ID       `serialize:"true" json:"nullifiers"`
	FeePayer   common.Address `serialize:"true" json:"feePayer"`

	// MaxBlockNumber is the last block this transaction may be included in.
	// Zero means unbounded.
	MaxBlockNumber uint64 `serialize:"true" json:"maxBlockNumber"`
	// IncludeByTimestamp is the latest block timestamp this transaction may be
	// included at. Zero means unbounded.
	IncludeByTimestamp int64 `serialize:"true" json:"includeByTimestamp"`

	// HistoricalRoot is the archive root the transaction was built against.
	HistoricalRoot ids.ID `serialize:"true" json:"historicalRoot"`

	bytes []byte
	id    ids.ID
	size  uint64
}

func (t *Transaction) Init() error {
	if t.Fees == nil {
		return ErrMissingFees
	}
	stx, err := Marshal(t)
	if err != nil {
		return err
	}
	t.bytes = stx

	h := sha3.Sum256(t.bytes)
	id, err := ids.ToID(h[:])
	if err != nil {
		return err
	}
	t.id = id
	t.size = uint64(len(t.bytes))
	return nil
}

func (t *Transaction) Bytes() []byte { return t.bytes }

// Size is the number of bytes the transaction occupies in the pool.
func (t *Transaction) Size() uint64 { return t.size }

func (t *Transaction) ID() ids.ID { return t.id }

func (t *Transaction) PriorityKey() PriorityKey { return PriorityKeyOf(t) }

// HasNullifier reports whether [n] is one of the transaction's nullifiers.
func (t *Transaction) HasNullifier(n ids.ID) bool {
	for _, own := range t.Nullifiers {
		if own == n {
			return true
		}
	}
	return false
}

// ParseTx decodes and initializes a transaction from its canonical bytes.
func ParseTx(b []byte) (*Transaction, error) {
	tx := new(Transaction)
	if _, err := Unmarshal(b, tx); err != nil {
		return nil, err
	}
	if err := tx.Init(); err != nil {
		return nil, err
	}
	return tx, nil
}
