// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"time"

	log "github.com/inconshreveable/log15"
)

// watchPending gossips newly admitted txs as soon as the pool reports them.
func (vm *VM) watchPending() {
	log.Debug("starting pending watch loop")
	defer close(vm.doneWatch)

	for {
		select {
		case <-vm.pool.Pending:
			vm.gossipNew()
		case <-vm.stop:
			return
		}
	}
}

func (vm *VM) gossipNew() {
	newTxs, err := vm.pool.PeekPending(vm.config.GossipMaxTxs)
	if err != nil {
		log.Warn("unable to load pending txs", "error", err)
		return
	}
	_ = vm.GossipNewTxs(newTxs) // handles case where there are none
}

// gossip periodically gossips new txs and, less aggressively, force-regossips
// the top of the pending set.
func (vm *VM) gossip() {
	log.Debug("starting gossip loops")
	defer close(vm.doneGossip)

	g := newTicker(vm.config.GossipInterval)
	defer g.Stop()

	rg := newTicker(vm.config.RegossipInterval)
	defer rg.Stop()

	for {
		select {
		case <-g.C:
			vm.gossipNew()
		case <-rg.C:
			_ = vm.RegossipTxs()
		case <-vm.stop:
			return
		}
	}
}

type ticker struct {
	*time.Ticker
	C <-chan time.Time
}

// newTicker returns a ticker that never fires when [d] is not positive.
func newTicker(d time.Duration) *ticker {
	if d <= 0 {
		return &ticker{}
	}
	t := time.NewTicker(d)
	return &ticker{Ticker: t, C: t.C}
}

func (t *ticker) Stop() {
	if t.Ticker != nil {
		t.Ticker.Stop()
	}
}
