// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/txpoolvm/chain"
)

// maxCollaboratorCalls caps in-flight collaborator requests per pass.
const maxCollaboratorCalls = 16

// The policies below only select victims. Removal always goes through
// deleteTxs with eviction set.

// evictOverCapacity drains the pending set back to MaxTxPoolSize, lowest
// priority first, once the ledger exceeds the widened threshold.
func (p *Pool) evictOverCapacity(vdb database.Database) error {
	if p.config.MaxTxPoolSize == 0 {
		return nil
	}
	size, err := chain.GetPendingSize(vdb)
	if err != nil {
		return err
	}
	if size <= p.config.evictionThreshold() {
		return nil
	}

	target := p.config.MaxTxPoolSize
	victims := []ids.ID{}
	if err := chain.ForEachPending(vdb, func(_ chain.PriorityKey, txID ids.ID) (bool, error) {
		if p.nonEvictable.Contains(txID) {
			return true, nil
		}
		tx, ok, err := chain.GetTransaction(vdb, txID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: pending tx %s has no record", ErrCorruption, txID)
		}
		if size < tx.Size() {
			return false, fmt.Errorf("%w: ledger %d smaller than tx %s size %d", ErrCorruption, size, txID, tx.Size())
		}
		victims = append(victims, txID)
		size -= tx.Size()
		return size > target, nil
	}); err != nil {
		return err
	}
	if size > target {
		log.Warn("pending set still over capacity after eviction", "size", size, "limit", target)
	}
	if len(victims) == 0 {
		return nil
	}
	log.Debug("evicting low priority txs", "count", len(victims), "limit", target)
	return p.deleteTxs(vdb, victims, true)
}

// evictAfterMining evicts pending txs that conflict with [mined], expired with
// [header], or whose fee payer can no longer afford them once the world state
// reflects [header].
func (p *Pool) evictAfterMining(
	ctx context.Context,
	vdb database.Database,
	mined []*chain.Transaction,
	header *chain.BlockHeader,
) error {
	nullifiers := ids.NewSet(0)
	for _, tx := range mined {
		nullifiers.Add(tx.Nullifiers...)
	}

	if err := p.collab.WorldState.SyncImmediate(ctx, header.Number); err != nil {
		return err
	}
	view := p.collab.WorldState.Snapshot(header.Number)

	pending, err := p.pendingTxs(vdb)
	if err != nil {
		return err
	}

	var conflicting, expired []ids.ID
	feeChecks := make([]*chain.Transaction, 0, len(pending))
	for _, tx := range pending {
		switch {
		case conflicts(tx, nullifiers):
			conflicting = append(conflicting, tx.ID())
		case header.Expires(tx):
			expired = append(expired, tx.ID())
		default:
			feeChecks = append(feeChecks, tx)
		}
	}
	unaffordable, err := p.unaffordable(ctx, feeChecks, view)
	if err != nil {
		return err
	}

	victims := make([]ids.ID, 0, len(conflicting)+len(expired)+len(unaffordable))
	victims = append(victims, conflicting...)
	victims = append(victims, expired...)
	victims = append(victims, unaffordable...)
	if len(victims) == 0 {
		return nil
	}
	log.Debug("evicting txs invalidated by block",
		"block", header.Number,
		"conflicting", len(conflicting),
		"expired", len(expired),
		"unaffordable", len(unaffordable),
	)
	return p.deleteTxs(vdb, victims, true)
}

// evictAfterReorg evicts every pending tx whose historical root no longer
// resolves.
func (p *Pool) evictAfterReorg(ctx context.Context, vdb database.Database) error {
	pending, err := p.pendingTxs(vdb)
	if err != nil {
		return err
	}

	byRoot := map[ids.ID][]ids.ID{}
	for _, tx := range pending {
		byRoot[tx.HistoricalRoot] = append(byRoot[tx.HistoricalRoot], tx.ID())
	}
	roots := make([]ids.ID, 0, len(byRoot))
	for root := range byRoot {
		roots = append(roots, root)
	}

	found := make([]bool, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxCollaboratorCalls)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			_, ok, err := p.collab.Archive.FindHistoricalRoot(gctx, root)
			if err != nil {
				return err
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	victims := []ids.ID{}
	for i, root := range roots {
		if !found[i] {
			victims = append(victims, byRoot[root]...)
		}
	}
	if len(victims) == 0 {
		return nil
	}
	log.Debug("evicting txs with unresolved historical roots", "count", len(victims))
	return p.deleteTxs(vdb, victims, true)
}

func (p *Pool) unaffordable(ctx context.Context, txs []*chain.Transaction, view StateView) ([]ids.ID, error) {
	valid := make([]bool, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxCollaboratorCalls)
	for i, tx := range txs {
		i, tx := i, tx
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			ok, err := p.collab.Fees.ValidateFee(gctx, tx, view)
			if err != nil {
				return err
			}
			valid[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	invalid := []ids.ID{}
	for i, tx := range txs {
		if !valid[i] {
			invalid = append(invalid, tx.ID())
		}
	}
	return invalid, nil
}

// pendingTxs loads every pending tx in ascending priority order.
func (p *Pool) pendingTxs(vdb database.Database) ([]*chain.Transaction, error) {
	txs := []*chain.Transaction{}
	err := chain.ForEachPending(vdb, func(_ chain.PriorityKey, txID ids.ID) (bool, error) {
		tx, ok, err := chain.GetTransaction(vdb, txID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: pending tx %s has no record", ErrCorruption, txID)
		}
		txs = append(txs, tx)
		return true, nil
	})
	return txs, err
}

func conflicts(tx *chain.Transaction, nullifiers ids.Set) bool {
	if nullifiers.Len() == 0 {
		return false
	}
	for _, n := range tx.Nullifiers {
		if nullifiers.Contains(n) {
			return true
		}
	}
	return false
}
