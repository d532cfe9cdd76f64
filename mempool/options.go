// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

type deleteOp struct {
	eviction bool
}

type DeleteOption func(*deleteOp)

func (op *deleteOp) applyOpts(opts []DeleteOption) {
	for _, opt := range opts {
		opt(op)
	}
}

// WithEviction drops the deleted txs without copying them into the archive.
func WithEviction() DeleteOption {
	return func(op *deleteOp) { op.eviction = true }
}
