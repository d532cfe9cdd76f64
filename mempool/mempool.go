// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/chain"
)

// Pool tracks every transaction the node knows about that is pending, mined
// or archived. All durable state lives in [db]; each mutating call runs in a
// single versiondb scope that is committed only if the whole call succeeds.
type Pool struct {
	db     database.Database
	config Config
	collab Collaborators

	l sync.RWMutex

	// nonEvictable is process-local and lost on restart.
	nonEvictable ids.Set

	// Pending is signalled (without blocking) whenever new pending txs are
	// admitted.
	Pending chan struct{}
}

type MinedTx struct {
	TxID        ids.ID `json:"txId"`
	BlockNumber uint64 `json:"blockNumber"`
}

func New(db database.Database, cfg Config, collab Collaborators) (*Pool, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	if err := collab.verify(); err != nil {
		return nil, err
	}
	return &Pool{
		db:           db,
		config:       cfg,
		collab:       collab,
		nonEvictable: ids.NewSet(0),
		Pending:      make(chan struct{}, 1),
	}, nil
}

func (p *Pool) update(f func(vdb *versiondb.Database) error) error {
	vdb := versiondb.New(p.db)
	defer vdb.Abort()
	if err := f(vdb); err != nil {
		return err
	}
	return vdb.Commit()
}

func (p *Pool) notifyPending() {
	select {
	case p.Pending <- struct{}{}:
	default:
	}
}

// addPending inserts [tx] into the priority index and charges the size ledger.
func (p *Pool) addPending(vdb database.Database, tx *chain.Transaction) error {
	size, err := chain.GetPendingSize(vdb)
	if err != nil {
		return err
	}
	if err := chain.PutPending(vdb, tx); err != nil {
		return err
	}
	return chain.SetPendingSize(vdb, size+tx.Size())
}

// removePending is the only place the size ledger is decremented.
func (p *Pool) removePending(vdb database.Database, tx *chain.Transaction) (bool, error) {
	pending, err := chain.HasPending(vdb, tx)
	if err != nil || !pending {
		return false, err
	}
	size, err := chain.GetPendingSize(vdb)
	if err != nil {
		return false, err
	}
	if size < tx.Size() {
		log.Error("pending size ledger underflow", "txId", tx.ID(), "ledger", size, "size", tx.Size())
		return false, fmt.Errorf("%w: ledger %d smaller than tx %s size %d", ErrCorruption, size, tx.ID(), tx.Size())
	}
	if err := chain.DeletePending(vdb, tx); err != nil {
		return false, err
	}
	return true, chain.SetPendingSize(vdb, size-tx.Size())
}

// AddTxs stores every unknown tx in [txs]. Txs that are not already marked
// mined become pending.
func (p *Pool) AddTxs(txs []*chain.Transaction) error {
	for _, tx := range txs {
		if tx == nil || len(tx.Bytes()) == 0 {
			return ErrUninitializedTx
		}
	}

	p.l.Lock()
	defer p.l.Unlock()

	added := 0
	err := p.update(func(vdb *versiondb.Database) error {
		for _, tx := range txs {
			txID := tx.ID()
			known, err := chain.HasTransaction(vdb, txID)
			if err != nil {
				return err
			}
			if known {
				continue
			}
			if err := chain.PutTransaction(vdb, tx); err != nil {
				return err
			}
			mined, err := chain.HasMined(vdb, txID)
			if err != nil {
				return err
			}
			if mined {
				continue
			}
			if err := p.addPending(vdb, tx); err != nil {
				return err
			}
			added++
		}
		return p.evictOverCapacity(vdb)
	})
	if err != nil {
		return err
	}
	if added > 0 {
		log.Debug("added pending txs", "count", added)
		p.notifyPending()
	}
	return nil
}

// DeleteTxs forgets [txIDs]. Unless WithEviction is given and archiving is
// enabled, the removed txs are copied into the archive ring first.
func (p *Pool) DeleteTxs(txIDs []ids.ID, opts ...DeleteOption) error {
	op := &deleteOp{}
	op.applyOpts(opts)

	p.l.Lock()
	defer p.l.Unlock()

	return p.update(func(vdb *versiondb.Database) error {
		return p.deleteTxs(vdb, txIDs, op.eviction)
	})
}

func (p *Pool) deleteTxs(vdb database.Database, txIDs []ids.ID, eviction bool) error {
	for _, txID := range txIDs {
		tx, ok, err := chain.GetTransaction(vdb, txID)
		if err != nil {
			return err
		}
		if ok {
			if _, err := p.removePending(vdb, tx); err != nil {
				return err
			}
			if !eviction && p.config.ArchivedTxLimit > 0 {
				if err := chain.ArchiveTransaction(vdb, tx, p.config.ArchivedTxLimit); err != nil {
					return err
				}
			}
			if err := chain.DeleteTransaction(vdb, txID); err != nil {
				return err
			}
		}
		if err := chain.DeleteMined(vdb, txID); err != nil {
			return err
		}
	}
	return nil
}

// MarkAsMined records [txIDs] as included in [header] and evicts every
// pending tx the new block invalidates. Non-evictable marks are cleared once
// the call commits.
func (p *Pool) MarkAsMined(ctx context.Context, txIDs []ids.ID, header *chain.BlockHeader) error {
	if len(txIDs) == 0 {
		return nil
	}
	if header == nil {
		return ErrMissingHeader
	}

	p.l.Lock()
	defer p.l.Unlock()

	err := p.update(func(vdb *versiondb.Database) error {
		mined := make([]*chain.Transaction, 0, len(txIDs))
		for _, txID := range txIDs {
			if err := chain.SetMined(vdb, txID, header.Number); err != nil {
				return err
			}
			tx, ok, err := chain.GetTransaction(vdb, txID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, err := p.removePending(vdb, tx); err != nil {
				return err
			}
			mined = append(mined, tx)
		}
		return p.evictAfterMining(ctx, vdb, mined, header)
	})
	if err != nil {
		return err
	}
	p.nonEvictable.Clear()
	log.Debug("marked txs as mined", "count", len(txIDs), "block", header.Number)
	return nil
}

// MarkMinedAsPending moves [txIDs] back from mined to pending after a reorg
// and evicts whatever the reorg invalidated.
func (p *Pool) MarkMinedAsPending(ctx context.Context, txIDs []ids.ID) error {
	if len(txIDs) == 0 {
		return nil
	}

	p.l.Lock()
	defer p.l.Unlock()

	readded := 0
	err := p.update(func(vdb *versiondb.Database) error {
		for _, txID := range txIDs {
			mined, err := chain.HasMined(vdb, txID)
			if err != nil {
				return err
			}
			if !mined {
				continue
			}
			if err := chain.DeleteMined(vdb, txID); err != nil {
				return err
			}
			tx, ok, err := chain.GetTransaction(vdb, txID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := p.addPending(vdb, tx); err != nil {
				return err
			}
			readded++
		}
		if err := p.evictAfterReorg(ctx, vdb); err != nil {
			return err
		}
		return p.evictOverCapacity(vdb)
	})
	if err != nil {
		return err
	}
	if readded > 0 {
		log.Debug("moved mined txs back to pending", "count", readded)
		p.notifyPending()
	}
	return nil
}

func (p *Pool) MarkTxsAsNonEvictable(txIDs []ids.ID) {
	p.l.Lock()
	defer p.l.Unlock()

	p.nonEvictable.Add(txIDs...)
}

// DeleteMinedBefore deletes, with archiving, every tx mined at or below
// [blockNumber].
func (p *Pool) DeleteMinedBefore(blockNumber uint64) (int, error) {
	p.l.Lock()
	defer p.l.Unlock()

	var removed int
	err := p.update(func(vdb *versiondb.Database) error {
		victims := []ids.ID{}
		if err := chain.ForEachMined(vdb, func(txID ids.ID, n uint64) (bool, error) {
			if n <= blockNumber {
				victims = append(victims, txID)
			}
			return true, nil
		}); err != nil {
			return err
		}
		removed = len(victims)
		return p.deleteTxs(vdb, victims, false)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
