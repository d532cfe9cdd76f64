// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

// PrivateService is driven by the block producer and the consensus client.
type PrivateService struct {
	vm *VM
}

type MinedBlockArgs struct {
	Header *chain.BlockHeader `serialize:"true" json:"header"`
	TxIDs  []ids.ID           `serialize:"true" json:"txIds"`
}

type MinedBlockReply struct {
	Pending int `serialize:"true" json:"pending"`
}

func (svc *PrivateService) MinedBlock(req *http.Request, args *MinedBlockArgs, reply *MinedBlockReply) (err error) {
	if args.Header == nil {
		return ErrMissingHeader
	}
	if err := svc.vm.pool.MarkAsMined(req.Context(), args.TxIDs, args.Header); err != nil {
		log.Warn("failed to mark txs as mined", "block", args.Header.Number, "error", err)
		return err
	}
	reply.Pending, err = svc.vm.pool.GetPendingTxCount()
	return err
}

type ReorgArgs struct {
	TxIDs []ids.ID `serialize:"true" json:"txIds"`
}

type ReorgReply struct {
	Pending int `serialize:"true" json:"pending"`
}

// Reorg returns txs from orphaned blocks to the pending set.
func (svc *PrivateService) Reorg(req *http.Request, args *ReorgArgs, reply *ReorgReply) (err error) {
	if err := svc.vm.pool.MarkMinedAsPending(req.Context(), args.TxIDs); err != nil {
		log.Warn("failed to reorg txs", "count", len(args.TxIDs), "error", err)
		return err
	}
	reply.Pending, err = svc.vm.pool.GetPendingTxCount()
	return err
}

type FinalizedArgs struct {
	BlockNumber uint64 `serialize:"true" json:"blockNumber"`
}

type FinalizedReply struct {
	Archived int `serialize:"true" json:"archived"`
}

func (svc *PrivateService) Finalized(_ *http.Request, args *FinalizedArgs, reply *FinalizedReply) (err error) {
	reply.Archived, err = svc.vm.SetFinalized(args.BlockNumber)
	return err
}

type DeleteTxsArgs struct {
	TxIDs    []ids.ID `serialize:"true" json:"txIds"`
	Eviction bool     `serialize:"true" json:"eviction"`
}

// DeleteTxs drops txs from the pool. Unless [Eviction] is set the removed
// txs are archived.
func (svc *PrivateService) DeleteTxs(_ *http.Request, args *DeleteTxsArgs, _ *struct{}) error {
	var opts []mempool.DeleteOption
	if args.Eviction {
		opts = append(opts, mempool.WithEviction())
	}
	return svc.vm.pool.DeleteTxs(args.TxIDs, opts...)
}
