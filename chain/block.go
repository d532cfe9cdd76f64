// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// BlockHeader carries the parts of a block the pool needs to reason about
// inclusion bounds.
type BlockHeader struct {
	Number    uint64 `serialize:"true" json:"number"`
	Timestamp int64  `serialize:"true" json:"timestamp"`
}

// Expires reports whether [tx] can no longer be included after [h] has been
// mined.
func (h *BlockHeader) Expires(tx *Transaction) bool {
	if tx.MaxBlockNumber != 0 && tx.MaxBlockNumber <= h.Number {
		return true
	}
	return tx.IncludeByTimestamp != 0 && tx.IncludeByTimestamp <= h.Timestamp
}
