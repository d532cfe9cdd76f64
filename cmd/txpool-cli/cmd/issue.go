// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/client"
)

var (
	daFee          uint64
	l2Fee          uint64
	feePayer       string
	maxBlockNumber uint64
	includeBy      int64
	historicalRoot string
	nullifiers     []string
	pollTx         bool
)

var issueCmd = &cobra.Command{
	Use:   "issue [options] payload",
	Short: "Builds and issues a transaction",
	Long: `
Builds a transaction carrying [payload] (0x-prefixed hex or raw text)
and issues it to the pool.

# Issues a transaction paying 10 per gas unit on both dimensions
$ txpool-cli issue --da-fee 10 --l2-fee 10 \
--fee-payer 0x8db97C7cEcE249c2b98bDC0226Cc4C2A57BF52FC hello
`,
	RunE: issueFunc,
}

func init() {
	issueCmd.PersistentFlags().Uint64Var(&daFee, "da-fee", 1, "max priority fee per DA gas")
	issueCmd.PersistentFlags().Uint64Var(&l2Fee, "l2-fee", 1, "max priority fee per L2 gas")
	issueCmd.PersistentFlags().StringVar(&feePayer, "fee-payer", "", "fee payer address")
	issueCmd.PersistentFlags().Uint64Var(&maxBlockNumber, "max-block", 0, "last block the tx may be mined in (0 for unbounded)")
	issueCmd.PersistentFlags().Int64Var(&includeBy, "include-by", 0, "latest block timestamp the tx may be mined at (0 for unbounded)")
	issueCmd.PersistentFlags().StringVar(&historicalRoot, "root", "", "historical archive root the tx was built against")
	issueCmd.PersistentFlags().StringSliceVar(&nullifiers, "nullifier", nil, "nullifiers consumed by the tx")
	issueCmd.PersistentFlags().BoolVar(&pollTx, "poll", false, "poll until the tx is mined")
}

func parsePayload(s string) []byte {
	if b, err := hexutil.Decode(s); err == nil {
		return b
	}
	return []byte(s)
}

func issueFunc(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly 1 argument, got %d", len(args))
	}

	tx := &chain.Transaction{
		Payload:            parsePayload(args[0]),
		Fees:               &chain.GasFees{MaxPriorityFeePerDAGas: daFee, MaxPriorityFeePerL2Gas: l2Fee},
		MaxBlockNumber:     maxBlockNumber,
		IncludeByTimestamp: includeBy,
	}
	if feePayer != "" {
		if !common.IsHexAddress(feePayer) {
			return fmt.Errorf("invalid fee payer %q", feePayer)
		}
		tx.FeePayer = common.HexToAddress(feePayer)
	}
	if historicalRoot != "" {
		root, err := ids.FromString(historicalRoot)
		if err != nil {
			return err
		}
		tx.HistoricalRoot = root
	}
	if len(nullifiers) > 0 {
		ns, err := parseTxIDs(nullifiers)
		if err != nil {
			return err
		}
		tx.Nullifiers = ns
	}

	opts := []client.OpOption{}
	if pollTx {
		opts = append(opts, client.WithPollTx())
	}
	cli := client.New(uri, requestTimeout)
	txID, err := client.InitIssueTx(context.Background(), cli, tx, opts...)
	if err != nil {
		return err
	}
	color.Green("issued %s", txID)
	return nil
}
