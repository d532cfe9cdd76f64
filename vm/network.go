// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/chain"
)

func (vm *VM) sendTxs(txs []*chain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	b, err := chain.Marshal(txs)
	if err != nil {
		log.Warn("failed to marshal txs", "error", err)
		return err
	}

	// in-flight txs must survive capacity eviction until the next block
	txIDs := make([]ids.ID, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID()
	}
	vm.pool.MarkTxsAsNonEvictable(txIDs)

	log.Debug("sending AppGossip",
		"txs", len(txs),
		"size", len(b),
	)
	if err := vm.appSender.SendAppGossip(b); err != nil {
		log.Warn(
			"GossipTxs failed",
			"error", err,
		)
		return err
	}
	return nil
}

// GossipNewTxs gossips the pending txs in [newTxs] that were not gossiped
// recently.
func (vm *VM) GossipNewTxs(newTxs []*chain.Transaction) error {
	if vm.appSender == nil {
		return nil
	}
	txs := []*chain.Transaction{}
	for _, tx := range newTxs {
		// skip if recently gossiped
		// to further protect the node from being
		// DDOSed via repeated gossip failures
		if _, exists := vm.gossipedTxs.Get(tx.ID()); exists {
			log.Debug("already gossiped, skipping", "txId", tx.ID())
			continue
		}
		// mined or evicted since it was read
		status, err := vm.pool.GetTxStatus(tx.ID())
		if err != nil {
			return err
		}
		if status != chain.Pending {
			continue
		}
		vm.gossipedTxs.Put(tx.ID(), nil)
		txs = append(txs, tx)
	}

	return vm.sendTxs(txs)
}

// RegossipTxs gossips the highest priority pending txs whether or not they
// were gossiped recently.
func (vm *VM) RegossipTxs() error {
	if vm.appSender == nil {
		return nil
	}
	txs, err := vm.pool.PeekPending(vm.config.GossipMaxTxs)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		vm.gossipedTxs.Put(tx.ID(), nil)
	}
	return vm.sendTxs(txs)
}

// Submit initializes and admits [txs] into the pool.
func (vm *VM) Submit(txs ...*chain.Transaction) error {
	for _, tx := range txs {
		if err := tx.Init(); err != nil {
			return err
		}
	}
	return vm.pool.AddTxs(txs)
}

// AppGossip handles incoming gossip: it parses the txs and submits them to
// the pool. Errors are only traced so a bad peer cannot stop the node.
func (vm *VM) AppGossip(nodeID ids.ShortID, msg []byte) error {
	log.Debug("AppGossip message handler",
		"sender", nodeID,
		"receiver", vm.nodeID,
		"bytes", len(msg),
	)

	txs := make([]*chain.Transaction, 0)
	if _, err := chain.Unmarshal(msg, &txs); err != nil {
		log.Debug(
			"AppGossip provided invalid txs",
			"peerID", nodeID,
			"err", err,
		)
		return nil
	}

	// peers echo txs back; do not resurrect what was already deleted here
	fresh := make([]*chain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Init(); err != nil {
			log.Debug("AppGossip provided invalid tx", "peerID", nodeID, "err", err)
			return nil
		}
		status, err := vm.pool.GetTxStatus(tx.ID())
		if err != nil {
			return err
		}
		if status == chain.Archived {
			continue
		}
		fresh = append(fresh, tx)
	}

	log.Debug("AppGossip transactions are being submitted", "txs", len(fresh))
	if err := vm.Submit(fresh...); err != nil {
		log.Debug(
			"AppGossip failed to submit txs",
			"peerID", nodeID,
			"err", err,
		)
	}
	return nil
}
