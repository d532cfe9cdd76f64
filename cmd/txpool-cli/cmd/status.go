// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/client"
	"github.com/ava-labs/txpoolvm/vm"
)

var statusCmd = &cobra.Command{
	Use:   "status [options] txID...",
	Short: "Prints the status of transactions",
	RunE:  statusFunc,
}

func statusFunc(cmd *cobra.Command, args []string) error {
	txIDs, err := parseTxIDs(args)
	if err != nil {
		return err
	}
	cli := client.New(uri, requestTimeout)
	for _, txID := range txIDs {
		status, err := cli.TxStatus(txID)
		if err != nil {
			return err
		}
		color.Blue("%s: %s", txID, status)
	}
	return nil
}

var txCmd = &cobra.Command{
	Use:   "tx [options] txID",
	Short: "Prints a live or archived transaction",
	RunE:  txFunc,
}

func txFunc(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly 1 argument, got %d", len(args))
	}
	txIDs, err := parseTxIDs(args)
	if err != nil {
		return err
	}
	cli := client.New(uri, requestTimeout)
	tx, archived, err := cli.Tx(txIDs[0])
	if err != nil {
		return err
	}
	hr, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	color.Yellow("%s (archived=%v, size=%d, priority=%s)", tx.ID(), archived, tx.Size(), tx.PriorityKey())
	fmt.Println(string(hr))
	return nil
}

var txsFilter string

var txsCmd = &cobra.Command{
	Use:   "txs [options]",
	Short: "Lists transaction ids",
	RunE:  txsFunc,
}

func init() {
	txsCmd.PersistentFlags().StringVar(
		&txsFilter,
		"filter",
		vm.FilterPending,
		fmt.Sprintf("one of %q, %q or %q", vm.FilterAll, vm.FilterPending, vm.FilterMined),
	)
}

func txsFunc(cmd *cobra.Command, args []string) error {
	cli := client.New(uri, requestTimeout)
	if txsFilter == vm.FilterMined {
		mined, err := cli.MinedTxs()
		if err != nil {
			return err
		}
		for _, m := range mined {
			color.Blue("%s (block=%d)", m.TxID, m.BlockNumber)
		}
		return nil
	}
	txIDs, err := cli.Txs(txsFilter)
	if err != nil {
		return err
	}
	for _, txID := range txIDs {
		color.Blue("%s", txID)
	}
	if verbose {
		color.Yellow("%d txs", len(txIDs))
	}
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats [options]",
	Short: "Prints pool counters",
	RunE:  statsFunc,
}

func statsFunc(cmd *cobra.Command, args []string) error {
	cli := client.New(uri, requestTimeout)
	stats, finalized, err := cli.Stats()
	if err != nil {
		return err
	}
	color.Blue(
		"pending=%d (%d bytes) mined=%d txs=%d archived=%d nonEvictable=%d store=%d bytes finalized=%d",
		stats.PendingCount, stats.PendingSize, stats.MinedCount, stats.TxCount,
		stats.ArchivedCount, stats.NonEvictable, stats.StoreSize, finalized,
	)
	return nil
}
