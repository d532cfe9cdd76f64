// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/chain"
)

// compactCall compacts the [idx]th pool bucket and returns the next index.
func (vm *VM) compactCall(idx int) int {
	prefixes := chain.CompactablePrefixes
	idx %= len(prefixes)

	start := time.Now()
	rangeStart := chain.CompactablePrefixKey(prefixes[idx])
	rangeEnd := chain.CompactablePrefixKey(prefixes[idx] + 1)
	if err := vm.db.Compact(rangeStart, rangeEnd); err != nil {
		log.Error("unable to compact prefix range", "start", rangeStart, "stop", rangeEnd, "error", err)
	} else {
		log.Debug("compacted prefix", "prefix", rangeStart, "t", time.Since(start))
	}
	return (idx + 1) % len(prefixes)
}

// compact cycles through the pool buckets, one per interval.
func (vm *VM) compact() {
	log.Debug("starting compaction loops")
	defer close(vm.doneCompact)

	if vm.config.CompactInterval <= 0 {
		<-vm.stop
		return
	}

	t := time.NewTimer(vm.config.CompactInterval)
	defer t.Stop()

	next := 0
	for {
		select {
		case <-t.C:
		case <-vm.stop:
			return
		}
		next = vm.compactCall(next)
		t.Reset(vm.config.CompactInterval)
	}
}
