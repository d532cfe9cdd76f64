// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client implements "txpoolvm" client SDK.
package client

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
	"github.com/ava-labs/txpoolvm/vm"
)

// Client defines txpoolvm client operations.
type Client interface {
	// Pings the VM.
	Ping() (bool, error)

	// Issues the transaction and returns the transaction ID.
	IssueTx(d []byte) (ids.ID, error)
	// Issues a batch of transactions atomically.
	IssueTxs(ds [][]byte) ([]ids.ID, error)

	// Returns the lifecycle status of a transaction.
	TxStatus(txID ids.ID) (chain.TxStatus, error)
	// Returns a live or archived transaction.
	Tx(txID ids.ID) (tx *chain.Transaction, archived bool, err error)
	// Lists transaction ids by filter ("all", "pending" or "mined").
	Txs(filter string) ([]ids.ID, error)
	// Returns the mined transactions with their block numbers.
	MinedTxs() ([]mempool.MinedTx, error)
	// Returns pool counters.
	Stats() (*mempool.Stats, uint64, error)

	// Pushes gossip to the node as if sent by [nodeID].
	AppGossip(nodeID ids.ShortID, msg []byte) error

	// Reports a mined block and returns the remaining pending count.
	MinedBlock(header *chain.BlockHeader, txIDs []ids.ID) (int, error)
	// Returns orphaned transactions to the pending set.
	Reorg(txIDs []ids.ID) (int, error)
	// Reports the last finalized block and returns how many txs were archived.
	Finalized(blockNumber uint64) (int, error)
	// Deletes transactions, archiving them unless [eviction] is set.
	DeleteTxs(txIDs []ids.ID, eviction bool) error

	// Polls the transaction until it reaches [status].
	PollTx(ctx context.Context, txID ids.ID, status chain.TxStatus) (reached bool, err error)
}

// New creates a new client object.
func New(uri string, reqTimeout time.Duration) Client {
	return &client{
		req: rpc.NewEndpointRequester(
			uri,
			vm.PublicEndpoint,
			vm.Name,
			reqTimeout,
		),
		preq: rpc.NewEndpointRequester(
			uri,
			vm.PrivateEndpoint,
			vm.Name,
			reqTimeout,
		),
	}
}

type client struct {
	req  rpc.EndpointRequester
	preq rpc.EndpointRequester
}

func (cli *client) Ping() (bool, error) {
	resp := new(vm.PingReply)
	err := cli.req.SendRequest(
		"ping",
		nil,
		resp,
	)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (cli *client) IssueTx(d []byte) (ids.ID, error) {
	resp := new(vm.IssueTxReply)
	if err := cli.req.SendRequest(
		"issueTx",
		&vm.IssueTxArgs{Tx: d},
		resp,
	); err != nil {
		return ids.Empty, err
	}
	return resp.TxID, nil
}

func (cli *client) IssueTxs(ds [][]byte) ([]ids.ID, error) {
	txs := make([]hexutil.Bytes, len(ds))
	for i, d := range ds {
		txs[i] = d
	}
	resp := new(vm.IssueTxsReply)
	if err := cli.req.SendRequest(
		"issueTxs",
		&vm.IssueTxsArgs{Txs: txs},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.TxIDs, nil
}

func (cli *client) TxStatus(txID ids.ID) (chain.TxStatus, error) {
	resp := new(vm.TxStatusReply)
	if err := cli.req.SendRequest(
		"txStatus",
		&vm.TxIDArgs{TxID: txID},
		resp,
	); err != nil {
		return chain.Unknown, err
	}
	return resp.Status, nil
}

func (cli *client) Tx(txID ids.ID) (*chain.Transaction, bool, error) {
	resp := new(vm.TxReply)
	if err := cli.req.SendRequest(
		"tx",
		&vm.TxIDArgs{TxID: txID},
		resp,
	); err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, ErrTxNotFound
	}
	tx, err := chain.ParseTx(resp.Tx)
	if err != nil {
		return nil, false, err
	}
	return tx, resp.Archived, nil
}

func (cli *client) Txs(filter string) ([]ids.ID, error) {
	resp := new(vm.TxsReply)
	if err := cli.req.SendRequest(
		"txs",
		&vm.TxsArgs{Filter: filter},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.TxIDs, nil
}

func (cli *client) MinedTxs() ([]mempool.MinedTx, error) {
	resp := new(vm.MinedTxsReply)
	if err := cli.req.SendRequest(
		"minedTxs",
		nil,
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Txs, nil
}

func (cli *client) Stats() (*mempool.Stats, uint64, error) {
	resp := new(vm.StatsReply)
	if err := cli.req.SendRequest(
		"stats",
		nil,
		resp,
	); err != nil {
		return nil, 0, err
	}
	return resp.Stats, resp.Finalized, nil
}

func (cli *client) AppGossip(nodeID ids.ShortID, msg []byte) error {
	resp := new(vm.AppGossipReply)
	return cli.req.SendRequest(
		"appGossip",
		&vm.AppGossipArgs{NodeID: nodeID, Msg: msg},
		resp,
	)
}

func (cli *client) MinedBlock(header *chain.BlockHeader, txIDs []ids.ID) (int, error) {
	resp := new(vm.MinedBlockReply)
	if err := cli.preq.SendRequest(
		"minedBlock",
		&vm.MinedBlockArgs{Header: header, TxIDs: txIDs},
		resp,
	); err != nil {
		color.Red("failed to report block %d %v", header.Number, err)
		return 0, err
	}
	return resp.Pending, nil
}

func (cli *client) Reorg(txIDs []ids.ID) (int, error) {
	resp := new(vm.ReorgReply)
	if err := cli.preq.SendRequest(
		"reorg",
		&vm.ReorgArgs{TxIDs: txIDs},
		resp,
	); err != nil {
		return 0, err
	}
	return resp.Pending, nil
}

func (cli *client) Finalized(blockNumber uint64) (int, error) {
	resp := new(vm.FinalizedReply)
	if err := cli.preq.SendRequest(
		"finalized",
		&vm.FinalizedArgs{BlockNumber: blockNumber},
		resp,
	); err != nil {
		return 0, err
	}
	return resp.Archived, nil
}

func (cli *client) DeleteTxs(txIDs []ids.ID, eviction bool) error {
	return cli.preq.SendRequest(
		"deleteTxs",
		&vm.DeleteTxsArgs{TxIDs: txIDs, Eviction: eviction},
		&struct{}{},
	)
}

func (cli *client) PollTx(ctx context.Context, txID ids.ID, status chain.TxStatus) (reached bool, err error) {
done:
	for ctx.Err() == nil {
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			break done
		}

		curr, err := cli.TxStatus(txID)
		if err != nil {
			color.Red("polling transaction failed %v", err)
			continue
		}
		if curr == status {
			return true, nil
		}
	}
	return false, ctx.Err()
}

var pollInterval = time.Second

type Op struct {
	pollTx bool
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) {
	for _, opt := range opts {
		opt(op)
	}
}

// "true" to poll transaction until it is mined.
func WithPollTx() OpOption {
	return func(op *Op) { op.pollTx = true }
}
