// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/vm"
)

const (
	durPrecision    = 10 * time.Millisecond
	defaultBlockTxs = 256
)

// MinerConfig drives a simulated block producer.
type MinerConfig struct {
	// First block number to produce.
	StartBlock uint64
	// Blocks to produce; zero runs until the context is cancelled.
	Blocks uint64
	// Max txs included per block.
	BlockTxs int
	Interval time.Duration
	// Blocks are finalized this far behind the tip. Zero disables
	// finalization.
	FinalityDepth uint64
}

// MineBlock includes up to [maxTxs] of the highest priority pending txs in
// block [number].
func MineBlock(cli Client, number uint64, maxTxs int) ([]ids.ID, int, error) {
	pending, err := cli.Txs(vm.FilterPending)
	if err != nil {
		return nil, 0, err
	}
	if maxTxs < len(pending) {
		pending = pending[:maxTxs]
	}
	header := &chain.BlockHeader{Number: number, Timestamp: time.Now().Unix()}
	left, err := cli.MinedBlock(header, pending)
	if err != nil {
		return nil, 0, err
	}
	return pending, left, nil
}

// Mine produces blocks until [cfg.Blocks] are mined or [ctx] is done and
// returns the next block number.
func Mine(ctx context.Context, cli Client, cfg MinerConfig) (uint64, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BlockTxs <= 0 {
		cfg.BlockTxs = defaultBlockTxs
	}

	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	var (
		next     = cfg.StartBlock
		included uint64
		stop     = make(chan struct{})
	)

	g.Go(func() error {
		defer close(stop)

		t := time.NewTicker(cfg.Interval)
		defer t.Stop()

		for cfg.Blocks == 0 || next < cfg.StartBlock+cfg.Blocks {
			select {
			case <-t.C:
			case <-gctx.Done():
				return nil
			}

			number := atomic.LoadUint64(&next)
			txIDs, left, err := MineBlock(cli, number, cfg.BlockTxs)
			if err != nil {
				return err
			}
			atomic.AddUint64(&included, uint64(len(txIDs)))
			color.Green("mined block %d (txs=%d, pending=%d)", number, len(txIDs), left)

			if cfg.FinalityDepth > 0 && number >= cfg.FinalityDepth {
				archived, err := cli.Finalized(number - cfg.FinalityDepth)
				if err != nil {
					return err
				}
				if archived > 0 {
					color.Blue("finalized block %d (archived=%d)", number-cfg.FinalityDepth, archived)
				}
			}
			atomic.AddUint64(&next, 1)
		}
		return nil
	})

	// Periodically print progress
	g.Go(func() error {
		t := time.NewTicker(2 * time.Second)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				color.Yellow(
					"mining in progress[%d]... (included=%d, elapsed=%v)",
					atomic.LoadUint64(&next), atomic.LoadUint64(&included), time.Since(now).Round(durPrecision),
				)
			case <-stop:
				return nil
			}
		}
	})

	err := g.Wait()
	return atomic.LoadUint64(&next), err
}
