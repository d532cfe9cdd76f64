// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm wires the transaction pool into a node: JSON-RPC services,
// gossip, pruning of finalized txs and store compaction.
package vm

import (
	ejson "encoding/json"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/gorilla/rpc/v2"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/txpoolvm/mempool"
	"github.com/ava-labs/txpoolvm/version"
)

const (
	Name            = "txpoolvm"
	PublicEndpoint  = "/public"
	PrivateEndpoint = "/private"
)

// GossipSender delivers gossip to peers. avalanchego's common.AppSender
// satisfies it.
type GossipSender interface {
	SendAppGossip(msg []byte) error
}

type VM struct {
	nodeID    ids.ShortID
	db        database.Database
	config    Config
	pool      *mempool.Pool
	appSender GossipSender

	// txs recently gossiped, used to skip repeats
	gossipedTxs *cache.LRU

	// [l] must be held when accessing [finalized]
	l         sync.Mutex
	finalized uint64

	stop        chan struct{}
	doneWatch   chan struct{}
	doneGossip  chan struct{}
	donePrune   chan struct{}
	doneCompact chan struct{}
}

// Initialize opens the pool over [db] and starts the background loops.
// [appSender] may be nil, in which case nothing is gossiped.
func (vm *VM) Initialize(
	nodeID ids.ShortID,
	db database.Database,
	configBytes []byte,
	collab mempool.Collaborators,
	appSender GossipSender,
) error {
	log.Info("initializing txpoolvm", "version", version.Version, "nodeId", nodeID)
	if db == nil {
		return ErrInputIsNil
	}

	vm.config.SetDefaults()
	if len(configBytes) > 0 {
		if err := ejson.Unmarshal(configBytes, &vm.config); err != nil {
			return fmt.Errorf("failed to unmarshal config %s: %w", string(configBytes), err)
		}
	}
	log.Info("parsed config", "config", vm.config)

	pool, err := mempool.New(db, vm.config.MempoolConfig(), collab)
	if err != nil {
		return err
	}

	vm.nodeID = nodeID
	vm.db = db
	vm.pool = pool
	vm.appSender = appSender
	vm.gossipedTxs = &cache.LRU{Size: vm.config.GossipedCacheSize}

	vm.stop = make(chan struct{})
	vm.doneWatch = make(chan struct{})
	vm.doneGossip = make(chan struct{})
	vm.donePrune = make(chan struct{})
	vm.doneCompact = make(chan struct{})

	go vm.watchPending()
	go vm.gossip()
	go vm.prune()
	go vm.compact()
	return nil
}

func (vm *VM) Shutdown() error {
	if vm.stop == nil {
		return nil
	}
	close(vm.stop)
	<-vm.doneWatch
	<-vm.doneGossip
	<-vm.donePrune
	<-vm.doneCompact
	vm.stop = nil
	if vm.db == nil {
		return nil
	}
	return vm.db.Close()
}

func (vm *VM) Version() (string, error) { return version.Version.String(), nil }

func (vm *VM) Pool() *mempool.Pool { return vm.pool }

func (vm *VM) NodeID() ids.ShortID { return vm.nodeID }

func newHandler(name string, service interface{}) (*common.HTTPHandler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(service, name); err != nil {
		return nil, err
	}
	return &common.HTTPHandler{LockOptions: common.NoLock, Handler: server}, nil
}

// CreateHandlers returns the public and private JSON-RPC handlers keyed by
// endpoint.
func (vm *VM) CreateHandlers() (map[string]*common.HTTPHandler, error) {
	if vm.pool == nil {
		return nil, ErrNotInitialized
	}
	public, err := newHandler(Name, &PublicService{vm: vm})
	if err != nil {
		return nil, err
	}
	private, err := newHandler(Name, &PrivateService{vm: vm})
	if err != nil {
		return nil, err
	}
	return map[string]*common.HTTPHandler{
		PublicEndpoint:  public,
		PrivateEndpoint: private,
	}, nil
}

func (vm *VM) HealthCheck() (interface{}, error) {
	if vm.pool == nil {
		return nil, ErrNotInitialized
	}
	if _, err := vm.db.HealthCheck(); err != nil {
		return nil, err
	}
	return vm.pool.Stats()
}

func (vm *VM) Finalized() uint64 {
	vm.l.Lock()
	defer vm.l.Unlock()

	return vm.finalized
}

// SetFinalized records the last finalized block and prunes what it allows.
func (vm *VM) SetFinalized(blockNumber uint64) (int, error) {
	vm.l.Lock()
	if blockNumber > vm.finalized {
		vm.finalized = blockNumber
	}
	vm.l.Unlock()

	return vm.pruneCall()
}
