// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state implements the world-state collaborators the pool consults
// when blocks are mined or reorged.
package state

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/inconshreveable/log15"
	"lukechampine.com/uint128"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

var (
	_ mempool.FeeValidator           = &Memory{}
	_ mempool.ArchiveResolver        = &Memory{}
	_ mempool.WorldStateSynchronizer = &Memory{}
)

// Memory is an in-process world state. With [permissive] set every fee is
// affordable, every root resolves and any height counts as synced; otherwise
// only funded payers and registered roots pass.
type Memory struct {
	l sync.RWMutex

	permissive bool
	height     uint64
	advanced   chan struct{}
	balances   map[common.Address]uint128.Uint128
	roots      map[ids.ID]uint64
}

func NewMemory(permissive bool) *Memory {
	return &Memory{
		permissive: permissive,
		advanced:   make(chan struct{}),
		balances:   map[common.Address]uint128.Uint128{},
		roots:      map[ids.ID]uint64{},
	}
}

type view struct {
	number     uint64
	permissive bool
	balances   map[common.Address]uint128.Uint128
}

func (v *view) BlockNumber() uint64 { return v.number }

// SetHeight advances the state to [height] and releases any SyncImmediate
// waiting on it.
func (m *Memory) SetHeight(height uint64) {
	m.l.Lock()
	defer m.l.Unlock()

	if height <= m.height {
		return
	}
	m.height = height
	close(m.advanced)
	m.advanced = make(chan struct{})
}

func (m *Memory) Height() uint64 {
	m.l.RLock()
	defer m.l.RUnlock()

	return m.height
}

func (m *Memory) SetBalance(addr common.Address, bal uint128.Uint128) {
	m.l.Lock()
	defer m.l.Unlock()

	m.balances[addr] = bal
}

// AddRoot makes [root] resolvable at [index].
func (m *Memory) AddRoot(root ids.ID, index uint64) {
	m.l.Lock()
	defer m.l.Unlock()

	m.roots[root] = index
}

// RemoveRoot forgets [root], as a reorg that orphans it would.
func (m *Memory) RemoveRoot(root ids.ID) {
	m.l.Lock()
	defer m.l.Unlock()

	delete(m.roots, root)
}

// SyncImmediate waits until the state reaches [blockNumber]. A permissive
// state is always in sync.
func (m *Memory) SyncImmediate(ctx context.Context, blockNumber uint64) error {
	if m.permissive {
		return ctx.Err()
	}
	for {
		m.l.RLock()
		height, advanced := m.height, m.advanced
		m.l.RUnlock()

		if height >= blockNumber {
			return nil
		}
		log.Debug("waiting for world state", "height", height, "target", blockNumber)
		select {
		case <-advanced:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Snapshot pins the current balances to [blockNumber].
func (m *Memory) Snapshot(blockNumber uint64) mempool.StateView {
	m.l.RLock()
	defer m.l.RUnlock()

	balances := make(map[common.Address]uint128.Uint128, len(m.balances))
	for addr, bal := range m.balances {
		balances[addr] = bal
	}
	return &view{number: blockNumber, permissive: m.permissive, balances: balances}
}

// ValidateFee checks the fee payer's balance covers the tx's priority fees.
func (m *Memory) ValidateFee(ctx context.Context, tx *chain.Transaction, sv mempool.StateView) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, ok := sv.(*view)
	if !ok {
		return false, ErrForeignView
	}
	if v.permissive {
		return true, nil
	}
	bal, ok := v.balances[tx.FeePayer]
	if !ok {
		return false, nil
	}
	return bal.Cmp(chain.PriorityKeyOf(tx).Uint128()) >= 0, nil
}

func (m *Memory) FindHistoricalRoot(ctx context.Context, root ids.ID) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.l.RLock()
	defer m.l.RUnlock()

	if m.permissive || root == ids.Empty {
		return m.height, true, nil
	}
	index, ok := m.roots[root]
	return index, ok, nil
}
