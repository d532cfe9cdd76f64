// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/units"

	"github.com/ava-labs/txpoolvm/mempool"
)

type Config struct {
	// Zero disables capacity eviction.
	MaxTxPoolSize        uint64  `serialize:"true" json:"maxTxPoolSize"`
	TxPoolOverflowFactor float64 `serialize:"true" json:"txPoolOverflowFactor"`
	ArchivedTxLimit      uint64  `serialize:"true" json:"archivedTxLimit"`

	// Mined txs are kept this many blocks past finalization.
	KeepFinalizedTxsFor uint64 `serialize:"true" json:"keepFinalizedTxsFor"`

	GossipInterval    time.Duration `serialize:"true" json:"gossipInterval"`
	RegossipInterval  time.Duration `serialize:"true" json:"regossipInterval"`
	GossipMaxTxs      int           `serialize:"true" json:"gossipMaxTxs"`
	GossipedCacheSize int           `serialize:"true" json:"gossipedCacheSize"`

	PruneInterval   time.Duration `serialize:"true" json:"pruneInterval"`
	CompactInterval time.Duration `serialize:"true" json:"compactInterval"`
}

func (c *Config) SetDefaults() {
	c.MaxTxPoolSize = 64 * units.MiB
	c.TxPoolOverflowFactor = mempool.DefaultOverflowFactor
	c.ArchivedTxLimit = 0

	c.KeepFinalizedTxsFor = 0

	c.GossipInterval = 1 * time.Second
	c.RegossipInterval = 30 * time.Second
	c.GossipMaxTxs = 256
	c.GossipedCacheSize = 4096

	c.PruneInterval = time.Minute
	c.CompactInterval = 1 * time.Minute
}

func (c *Config) MempoolConfig() mempool.Config {
	return mempool.Config{
		MaxTxPoolSize:   c.MaxTxPoolSize,
		OverflowFactor:  c.TxPoolOverflowFactor,
		ArchivedTxLimit: c.ArchivedTxLimit,
	}
}
