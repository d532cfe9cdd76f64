// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import "errors"

var (
	ErrTxNotFound = errors.New("transaction not found")
	ErrNoPeers    = errors.New("no peers to gossip to")
)
