// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

const (
	Name     = "state"
	Endpoint = "/state"
)

// Backend is everything a world state has to offer the pool.
type Backend interface {
	mempool.FeeValidator
	mempool.ArchiveResolver
	mempool.WorldStateSynchronizer
}

// Service exposes a Backend over JSON-RPC so pools can run out of process.
type Service struct {
	b Backend
}

// NewHandler serves [b] the same way the VM serves its own services.
func NewHandler(b Backend) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{b: b}, Name); err != nil {
		return nil, err
	}
	return server, nil
}

type ValidateFeeArgs struct {
	Tx          hexutil.Bytes `json:"tx"`
	BlockNumber uint64        `json:"blockNumber"`
}

type ValidateFeeReply struct {
	Valid bool `json:"valid"`
}

func (svc *Service) ValidateFee(req *http.Request, args *ValidateFeeArgs, reply *ValidateFeeReply) error {
	tx, err := chain.ParseTx(args.Tx)
	if err != nil {
		return ErrInvalidTxBytes
	}
	ctx := req.Context()
	if err := svc.b.SyncImmediate(ctx, args.BlockNumber); err != nil {
		return err
	}
	reply.Valid, err = svc.b.ValidateFee(ctx, tx, svc.b.Snapshot(args.BlockNumber))
	return err
}

type FindHistoricalRootArgs struct {
	Root ids.ID `json:"root"`
}

type FindHistoricalRootReply struct {
	Index uint64 `json:"index"`
	Found bool   `json:"found"`
}

func (svc *Service) FindHistoricalRoot(req *http.Request, args *FindHistoricalRootArgs, reply *FindHistoricalRootReply) (err error) {
	reply.Index, reply.Found, err = svc.b.FindHistoricalRoot(req.Context(), args.Root)
	return err
}

type SyncImmediateArgs struct {
	BlockNumber uint64 `json:"blockNumber"`
}

type SyncImmediateReply struct {
	Success bool `json:"success"`
}

func (svc *Service) SyncImmediate(req *http.Request, args *SyncImmediateArgs, reply *SyncImmediateReply) error {
	if err := svc.b.SyncImmediate(req.Context(), args.BlockNumber); err != nil {
		return err
	}
	reply.Success = true
	return nil
}
