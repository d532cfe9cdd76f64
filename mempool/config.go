// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"fmt"
	"math"
)

const DefaultOverflowFactor = 1.0

type Config struct {
	// MaxTxPoolSize is the pending byte budget. Zero disables capacity
	// eviction.
	MaxTxPoolSize uint64 `json:"maxTxPoolSize"`

	// OverflowFactor widens the eviction trigger to MaxTxPoolSize*OverflowFactor.
	// Eviction always drains back to MaxTxPoolSize.
	OverflowFactor float64 `json:"txPoolOverflowFactor"`

	// ArchivedTxLimit bounds the archive ring. Zero disables archiving.
	ArchivedTxLimit uint64 `json:"archivedTxLimit"`
}

func (c *Config) SetDefaults() {
	c.OverflowFactor = DefaultOverflowFactor
}

func (c *Config) Verify() error {
	if c.OverflowFactor == 0 {
		c.OverflowFactor = DefaultOverflowFactor
	}
	if math.IsNaN(c.OverflowFactor) || c.OverflowFactor < 1 {
		return fmt.Errorf("%w: got %f", ErrInvalidOverflowFactor, c.OverflowFactor)
	}
	return nil
}

// evictionThreshold is the ledger value above which capacity eviction runs.
func (c *Config) evictionThreshold() uint64 {
	widened := float64(c.MaxTxPoolSize) * c.OverflowFactor
	if widened >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(widened)
}
