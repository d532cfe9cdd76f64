// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping [options]",
	Short: "Pings the VM",
	RunE:  pingFunc,
}

func pingFunc(cmd *cobra.Command, args []string) error {
	cli := client.New(uri, requestTimeout)
	ok, err := cli.Ping()
	if err != nil {
		return err
	}
	color.Green("ping %s: %v", uri, ok)
	return nil
}
