// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "txpool-cli" implements txpoolvm client operation interface.
package cmd

import (
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

var (
	uri     string
	verbose bool

	rootCmd = &cobra.Command{
		Use:        "txpool-cli",
		Short:      "TxPoolVM CLI",
		SuggestFor: []string{"txpool-cli", "txpoolcli", "txpoolctl"},
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddCommand(
		pingCmd,
		issueCmd,
		statusCmd,
		txCmd,
		txsCmd,
		statsCmd,
		mineCmd,
		reorgCmd,
		finalizeCmd,
		deleteCmd,
	)

	rootCmd.PersistentFlags().StringVar(
		&uri,
		"endpoint",
		"http://127.0.0.1:9650",
		"RPC endpoint for VM",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose,
		"verbose",
		false,
		"Print verbose information about operations",
	)
}

func Execute() error {
	return rootCmd.Execute()
}

func parseTxIDs(args []string) ([]ids.ID, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected at least 1 tx id")
	}
	txIDs := make([]ids.ID, len(args))
	for i, arg := range args {
		txID, err := ids.FromString(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid tx id %q: %w", arg, err)
		}
		txIDs[i] = txID
	}
	return txIDs, nil
}
