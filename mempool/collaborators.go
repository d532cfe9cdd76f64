// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/txpoolvm/chain"
)

// StateView is world state pinned at a single block.
type StateView interface {
	BlockNumber() uint64
}

type FeeValidator interface {
	// ValidateFee reports whether the fee payer of [tx] can still cover it
	// in [view].
	ValidateFee(ctx context.Context, tx *chain.Transaction, view StateView) (bool, error)
}

type ArchiveResolver interface {
	// FindHistoricalRoot returns the index of [root] in the current state, if
	// it still resolves.
	FindHistoricalRoot(ctx context.Context, root ids.ID) (uint64, bool, error)
}

type WorldStateSynchronizer interface {
	// SyncImmediate blocks until the world state has caught up to
	// [blockNumber].
	SyncImmediate(ctx context.Context, blockNumber uint64) error
	Snapshot(blockNumber uint64) StateView
}

type Collaborators struct {
	Fees       FeeValidator
	Archive    ArchiveResolver
	WorldState WorldStateSynchronizer
}

func (c Collaborators) verify() error {
	switch {
	case c.Fees == nil:
		return fmt.Errorf("%w: fee validator", ErrMissingCollaborator)
	case c.Archive == nil:
		return fmt.Errorf("%w: archive resolver", ErrMissingCollaborator)
	case c.WorldState == nil:
		return fmt.Errorf("%w: world state synchronizer", ErrMissingCollaborator)
	}
	return nil
}
