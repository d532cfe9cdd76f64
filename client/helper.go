// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/fatih/color"

	"github.com/ava-labs/txpoolvm/chain"
)

// Initializes and issues the transaction.
func InitIssueTx(
	ctx context.Context,
	cli Client,
	tx *chain.Transaction,
	opts ...OpOption,
) (txID ids.ID, err error) {
	ret := &Op{}
	ret.applyOpts(opts)

	if err := tx.Init(); err != nil {
		return ids.Empty, err
	}

	color.Yellow(
		"issuing tx %s (size=%d, priority=%s, maxBlock=%d)",
		tx.ID(), tx.Size(), tx.PriorityKey(), tx.MaxBlockNumber,
	)
	txID, err = cli.IssueTx(tx.Bytes())
	if err != nil {
		return ids.Empty, err
	}

	if ret.pollTx {
		color.Green("issued transaction %s (now polling)", txID)
		mined, err := cli.PollTx(ctx, txID, chain.Mined)
		if err != nil {
			return ids.Empty, err
		}
		if !mined {
			color.Yellow("transaction %s not mined", txID)
		} else {
			color.Green("transaction %s mined", txID)
		}
	}

	return txID, nil
}
