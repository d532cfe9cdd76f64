// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/txpoolvm/chain"
)

// SizeEstimator is implemented by stores that can report their on-disk
// footprint.
type SizeEstimator interface {
	EstimatedSize() (uint64, error)
}

type Stats struct {
	PendingCount  int    `json:"pendingCount"`
	PendingSize   uint64 `json:"pendingSize"`
	MinedCount    int    `json:"minedCount"`
	TxCount       int    `json:"txCount"`
	ArchivedCount uint64 `json:"archivedCount"`
	NonEvictable  int    `json:"nonEvictable"`
	StoreSize     uint64 `json:"storeSize"`
}

// GetPendingTxHashes returns the pending tx ids, highest priority first.
func (p *Pool) GetPendingTxHashes() ([]ids.ID, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	asc := []ids.ID{}
	if err := chain.ForEachPending(p.db, func(_ chain.PriorityKey, txID ids.ID) (bool, error) {
		asc = append(asc, txID)
		return true, nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	return asc, nil
}

// PeekPending returns up to [limit] pending txs, highest priority first.
func (p *Pool) PeekPending(limit int) ([]*chain.Transaction, error) {
	txIDs, err := p.GetPendingTxHashes()
	if err != nil {
		return nil, err
	}
	if limit < len(txIDs) {
		txIDs = txIDs[:limit]
	}

	p.l.RLock()
	defer p.l.RUnlock()

	txs := make([]*chain.Transaction, 0, len(txIDs))
	for _, txID := range txIDs {
		tx, ok, err := chain.GetTransaction(p.db, txID)
		if err != nil {
			return nil, err
		}
		// removed between the two locks
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (p *Pool) GetMinedTxHashes() ([]MinedTx, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	mined := []MinedTx{}
	if err := chain.ForEachMined(p.db, func(txID ids.ID, n uint64) (bool, error) {
		mined = append(mined, MinedTx{TxID: txID, BlockNumber: n})
		return true, nil
	}); err != nil {
		return nil, err
	}
	return mined, nil
}

func (p *Pool) GetTxByHash(txID ids.ID) (*chain.Transaction, bool, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	return chain.GetTransaction(p.db, txID)
}

func (p *Pool) GetArchivedTxByHash(txID ids.ID) (*chain.Transaction, bool, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	return chain.GetArchivedTransaction(p.db, txID)
}

func (p *Pool) GetTxStatus(txID ids.ID) (chain.TxStatus, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	mined, err := chain.HasMined(p.db, txID)
	if err != nil {
		return chain.Unknown, err
	}
	if mined {
		return chain.Mined, nil
	}
	known, err := chain.HasTransaction(p.db, txID)
	if err != nil {
		return chain.Unknown, err
	}
	if known {
		return chain.Pending, nil
	}
	archived, err := chain.HasArchivedTransaction(p.db, txID)
	if err != nil {
		return chain.Unknown, err
	}
	if archived {
		return chain.Archived, nil
	}
	return chain.Unknown, nil
}

// GetAllTxs returns every pending and mined tx.
func (p *Pool) GetAllTxs() ([]*chain.Transaction, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	txs := []*chain.Transaction{}
	if err := chain.ForEachTransaction(p.db, func(tx *chain.Transaction) (bool, error) {
		txs = append(txs, tx)
		return true, nil
	}); err != nil {
		return nil, err
	}
	return txs, nil
}

func (p *Pool) GetAllTxHashes() ([]ids.ID, error) {
	txs, err := p.GetAllTxs()
	if err != nil {
		return nil, err
	}
	txIDs := make([]ids.ID, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID()
	}
	return txIDs, nil
}

func (p *Pool) GetPendingTxCount() (int, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	return p.pendingCount()
}

func (p *Pool) pendingCount() (int, error) {
	n := 0
	err := chain.ForEachPending(p.db, func(chain.PriorityKey, ids.ID) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

func (p *Pool) PendingSize() (uint64, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	return chain.GetPendingSize(p.db)
}

func (p *Pool) Stats() (*Stats, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	s := &Stats{NonEvictable: p.nonEvictable.Len()}
	var err error
	if s.PendingCount, err = p.pendingCount(); err != nil {
		return nil, err
	}
	if s.PendingSize, err = chain.GetPendingSize(p.db); err != nil {
		return nil, err
	}
	if err := chain.ForEachMined(p.db, func(ids.ID, uint64) (bool, error) {
		s.MinedCount++
		return true, nil
	}); err != nil {
		return nil, err
	}
	if err := chain.ForEachTransaction(p.db, func(*chain.Transaction) (bool, error) {
		s.TxCount++
		return true, nil
	}); err != nil {
		return nil, err
	}
	if s.ArchivedCount, err = chain.ArchivedCount(p.db); err != nil {
		return nil, err
	}
	if est, ok := p.db.(SizeEstimator); ok {
		if s.StoreSize, err = est.EstimatedSize(); err != nil {
			return nil, err
		}
	}
	return s, nil
}
