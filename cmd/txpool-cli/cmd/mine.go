// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/client"
)

var minerConfig client.MinerConfig

var mineCmd = &cobra.Command{
	Use:   "mine [options]",
	Short: "Simulates a block producer against the pool",
	Long: `
Mines the highest priority pending transactions into consecutive blocks,
finalizing blocks [finality-depth] behind the tip.

# Mines 10 blocks, one per second, finalizing 2 blocks behind
$ txpool-cli mine --start 1 --blocks 10 --finality-depth 2
`,
	RunE: mineFunc,
}

func init() {
	mineCmd.PersistentFlags().Uint64Var(&minerConfig.StartBlock, "start", 1, "first block number")
	mineCmd.PersistentFlags().Uint64Var(&minerConfig.Blocks, "blocks", 0, "blocks to mine (0 until interrupted)")
	mineCmd.PersistentFlags().IntVar(&minerConfig.BlockTxs, "block-txs", 256, "max txs per block")
	mineCmd.PersistentFlags().DurationVar(&minerConfig.Interval, "interval", time.Second, "block interval")
	mineCmd.PersistentFlags().Uint64Var(&minerConfig.FinalityDepth, "finality-depth", 0, "finalize this many blocks behind (0 disables)")
}

func mineFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := client.New(uri, requestTimeout)
	next, err := client.Mine(ctx, cli, minerConfig)
	if err != nil {
		return err
	}
	color.Green("stopped before block %d", next)
	return nil
}

var reorgCmd = &cobra.Command{
	Use:   "reorg [options] txID...",
	Short: "Returns mined transactions to the pending set",
	RunE:  reorgFunc,
}

func reorgFunc(cmd *cobra.Command, args []string) error {
	txIDs, err := parseTxIDs(args)
	if err != nil {
		return err
	}
	cli := client.New(uri, requestTimeout)
	pending, err := cli.Reorg(txIDs)
	if err != nil {
		return err
	}
	color.Green("reorged %d txs (pending=%d)", len(txIDs), pending)
	return nil
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize [options] blockNumber",
	Short: "Reports the last finalized block",
	RunE:  finalizeFunc,
}

func finalizeFunc(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly 1 argument, got %d", len(args))
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	cli := client.New(uri, requestTimeout)
	archived, err := cli.Finalized(n)
	if err != nil {
		return err
	}
	color.Green("finalized block %d (archived=%d)", n, archived)
	return nil
}

var eviction bool

var deleteCmd = &cobra.Command{
	Use:   "delete [options] txID...",
	Short: "Deletes transactions from the pool",
	RunE:  deleteFunc,
}

func init() {
	deleteCmd.PersistentFlags().BoolVar(&eviction, "eviction", false, "drop without archiving")
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	txIDs, err := parseTxIDs(args)
	if err != nil {
		return err
	}
	cli := client.New(uri, requestTimeout)
	if err := cli.DeleteTxs(txIDs, eviction); err != nil {
		return err
	}
	color.Green("deleted %d txs (eviction=%v)", len(txIDs), eviction)
	return nil
}
