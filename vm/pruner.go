// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"time"

	log "github.com/inconshreveable/log15"
)

// pruneCall deletes, with archiving, the mined txs that fell out of the
// finalized retention window.
func (vm *VM) pruneCall() (int, error) {
	finalized := vm.Finalized()
	if finalized == 0 || finalized < vm.config.KeepFinalizedTxsFor {
		return 0, nil
	}
	removed, err := vm.pool.DeleteMinedBefore(finalized - vm.config.KeepFinalizedTxsFor)
	if err != nil {
		log.Warn("unable to prune finalized txs", "finalized", finalized, "error", err)
		return 0, err
	}
	if removed > 0 {
		log.Debug("pruned finalized txs", "finalized", finalized, "removed", removed)
	}
	return removed, nil
}

func (vm *VM) prune() {
	log.Debug("starting prune loops")
	defer close(vm.donePrune)

	if vm.config.PruneInterval <= 0 {
		<-vm.stop
		return
	}

	t := time.NewTimer(vm.config.PruneInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
		case <-vm.stop:
			return
		}
		_, _ = vm.pruneCall()
		t.Reset(vm.config.PruneInterval)
	}
}
