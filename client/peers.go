// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"time"

	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/txpoolvm/vm"
)

var _ vm.GossipSender = &PeerSender{}

// PeerSender pushes gossip to peer nodes over their public endpoint.
type PeerSender struct {
	nodeID ids.ShortID
	peers  []Client
}

func NewPeerSender(nodeID ids.ShortID, uris []string, reqTimeout time.Duration) *PeerSender {
	peers := make([]Client, len(uris))
	for i, uri := range uris {
		peers[i] = New(uri, reqTimeout)
	}
	return &PeerSender{nodeID: nodeID, peers: peers}
}

// SendAppGossip delivers [msg] to every peer concurrently. It fails only
// when no peer accepted the message.
func (s *PeerSender) SendAppGossip(msg []byte) error {
	if len(s.peers) == 0 {
		return ErrNoPeers
	}

	errs := make([]error, len(s.peers))
	g := new(errgroup.Group)
	for i, peer := range s.peers {
		i, peer := i, peer
		g.Go(func() error {
			errs[i] = peer.AppGossip(s.nodeID, msg)
			return nil
		})
	}
	_ = g.Wait()

	var last error
	delivered := 0
	for i, err := range errs {
		if err != nil {
			log.Debug("failed to gossip to peer", "peer", i, "error", err)
			last = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return last
	}
	return nil
}
