// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

const (
	FilterAll     = "all"
	FilterPending = "pending"
	FilterMined   = "mined"
)

type PublicService struct {
	vm *VM
}

type PingReply struct {
	Success bool `serialize:"true" json:"success"`
}

func (svc *PublicService) Ping(_ *http.Request, _ *struct{}, reply *PingReply) (err error) {
	log.Info("ping")
	reply.Success = true
	return nil
}

type IssueTxArgs struct {
	Tx hexutil.Bytes `serialize:"true" json:"tx"`
}

type IssueTxReply struct {
	TxID ids.ID `serialize:"true" json:"txId"`
}

func (svc *PublicService) IssueTx(_ *http.Request, args *IssueTxArgs, reply *IssueTxReply) error {
	if len(args.Tx) == 0 {
		return ErrInvalidEmptyTx
	}
	tx, err := chain.ParseTx(args.Tx)
	if err != nil {
		return err
	}
	if err := svc.vm.Submit(tx); err != nil {
		return err
	}
	reply.TxID = tx.ID()
	return nil
}

type IssueTxsArgs struct {
	Txs []hexutil.Bytes `serialize:"true" json:"txs"`
}

type IssueTxsReply struct {
	TxIDs []ids.ID `serialize:"true" json:"txIds"`
}

// IssueTxs admits a batch in one pool transaction.
func (svc *PublicService) IssueTxs(_ *http.Request, args *IssueTxsArgs, reply *IssueTxsReply) error {
	txs := make([]*chain.Transaction, len(args.Txs))
	reply.TxIDs = make([]ids.ID, len(args.Txs))
	for i, b := range args.Txs {
		if len(b) == 0 {
			return ErrInvalidEmptyTx
		}
		tx, err := chain.ParseTx(b)
		if err != nil {
			return err
		}
		txs[i] = tx
		reply.TxIDs[i] = tx.ID()
	}
	return svc.vm.Submit(txs...)
}

type TxIDArgs struct {
	TxID ids.ID `serialize:"true" json:"txId"`
}

type TxStatusReply struct {
	Status chain.TxStatus `serialize:"true" json:"status"`
}

func (svc *PublicService) TxStatus(_ *http.Request, args *TxIDArgs, reply *TxStatusReply) (err error) {
	reply.Status, err = svc.vm.pool.GetTxStatus(args.TxID)
	return err
}

type TxReply struct {
	Found    bool          `serialize:"true" json:"found"`
	Archived bool          `serialize:"true" json:"archived"`
	Tx       hexutil.Bytes `serialize:"true" json:"tx,omitempty"`
}

// Tx looks the tx up among live txs first, then in the archive.
func (svc *PublicService) Tx(_ *http.Request, args *TxIDArgs, reply *TxReply) error {
	tx, ok, err := svc.vm.pool.GetTxByHash(args.TxID)
	if err != nil {
		return err
	}
	if !ok {
		tx, ok, err = svc.vm.pool.GetArchivedTxByHash(args.TxID)
		if err != nil {
			return err
		}
		reply.Archived = ok
	}
	if !ok {
		return nil
	}
	reply.Found = true
	reply.Tx = tx.Bytes()
	return nil
}

type TxsArgs struct {
	Filter string `serialize:"true" json:"filter"`
}

type TxsReply struct {
	TxIDs []ids.ID `serialize:"true" json:"txIds"`
}

// Txs lists tx ids by status. Pending ids come highest priority first.
func (svc *PublicService) Txs(_ *http.Request, args *TxsArgs, reply *TxsReply) (err error) {
	switch args.Filter {
	case FilterAll, "":
		reply.TxIDs, err = svc.vm.pool.GetAllTxHashes()
	case FilterPending:
		reply.TxIDs, err = svc.vm.pool.GetPendingTxHashes()
	case FilterMined:
		var mined []mempool.MinedTx
		mined, err = svc.vm.pool.GetMinedTxHashes()
		reply.TxIDs = make([]ids.ID, len(mined))
		for i, m := range mined {
			reply.TxIDs[i] = m.TxID
		}
	default:
		return ErrInvalidFilter
	}
	return err
}

type MinedTxsReply struct {
	Txs []mempool.MinedTx `serialize:"true" json:"txs"`
}

func (svc *PublicService) MinedTxs(_ *http.Request, _ *struct{}, reply *MinedTxsReply) (err error) {
	reply.Txs, err = svc.vm.pool.GetMinedTxHashes()
	return err
}

type StatsReply struct {
	Stats     *mempool.Stats `serialize:"true" json:"stats"`
	Finalized uint64         `serialize:"true" json:"finalized"`
}

func (svc *PublicService) Stats(_ *http.Request, _ *struct{}, reply *StatsReply) (err error) {
	reply.Stats, err = svc.vm.pool.Stats()
	reply.Finalized = svc.vm.Finalized()
	return err
}

type AppGossipArgs struct {
	NodeID ids.ShortID   `serialize:"true" json:"nodeId"`
	Msg    hexutil.Bytes `serialize:"true" json:"msg"`
}

type AppGossipReply struct {
	Success bool `serialize:"true" json:"success"`
}

// AppGossip accepts gossip pushed by a peer over HTTP.
func (svc *PublicService) AppGossip(_ *http.Request, args *AppGossipArgs, reply *AppGossipReply) error {
	if err := svc.vm.AppGossip(args.NodeID, args.Msg); err != nil {
		return err
	}
	reply.Success = true
	return nil
}
