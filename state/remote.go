// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

var (
	_ mempool.FeeValidator           = &Remote{}
	_ mempool.ArchiveResolver        = &Remote{}
	_ mempool.WorldStateSynchronizer = &Remote{}
)

// Remote talks to a state Service over JSON-RPC. Request timeouts are
// enforced by the requester; cancelling [ctx] abandons the call.
type Remote struct {
	req rpc.EndpointRequester
}

func NewRemote(uri string, reqTimeout time.Duration) *Remote {
	return &Remote{req: rpc.NewEndpointRequester(uri, Endpoint, Name, reqTimeout)}
}

// remoteView is a block number; the remote side pins state itself.
type remoteView uint64

func (v remoteView) BlockNumber() uint64 { return uint64(v) }

func (r *Remote) send(ctx context.Context, method string, args interface{}, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- r.req.SendRequest(method, args, reply)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Remote) ValidateFee(ctx context.Context, tx *chain.Transaction, v mempool.StateView) (bool, error) {
	resp := new(ValidateFeeReply)
	if err := r.send(ctx, "validateFee", &ValidateFeeArgs{Tx: tx.Bytes(), BlockNumber: v.BlockNumber()}, resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (r *Remote) FindHistoricalRoot(ctx context.Context, root ids.ID) (uint64, bool, error) {
	resp := new(FindHistoricalRootReply)
	if err := r.send(ctx, "findHistoricalRoot", &FindHistoricalRootArgs{Root: root}, resp); err != nil {
		return 0, false, err
	}
	return resp.Index, resp.Found, nil
}

func (r *Remote) SyncImmediate(ctx context.Context, blockNumber uint64) error {
	resp := new(SyncImmediateReply)
	return r.send(ctx, "syncImmediate", &SyncImmediateArgs{BlockNumber: blockNumber}, resp)
}

func (r *Remote) Snapshot(blockNumber uint64) mempool.StateView { return remoteView(blockNumber) }
