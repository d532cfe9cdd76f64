// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package version implements "version" commands.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/version"
	"github.com/ava-labs/txpoolvm/vm"
)

func init() {
	cobra.EnablePrefixMatching = true
}

// NewCommand implements "txpoolvm version" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Prints out the version",
		RunE:  versionFunc,
	}
	return cmd
}

func versionFunc(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s@%s (store schema %d)\n", vm.Name, version.Version, version.StoreSchema)
	return nil
}
