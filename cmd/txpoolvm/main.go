// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"
	"github.com/spf13/cobra"

	"github.com/ava-labs/txpoolvm/client"
	"github.com/ava-labs/txpoolvm/cmd/txpoolvm/version"
	"github.com/ava-labs/txpoolvm/mempool"
	"github.com/ava-labs/txpoolvm/state"
	"github.com/ava-labs/txpoolvm/storage"
	"github.com/ava-labs/txpoolvm/vm"
)

const shutdownTimeout = 10 * time.Second

func init() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.LogfmtFormat())))
}

var rootCmd = &cobra.Command{
	Use:        "txpoolvm",
	Short:      "Transaction pool node",
	SuggestFor: []string{"txpoolvm", "txpool"},
	RunE:       runFunc,
}

func init() {
	cobra.EnablePrefixMatching = true
}

func init() {
	addFlags(rootCmd.Flags())
	rootCmd.AddCommand(
		version.NewCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "txpoolvm failed %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func runFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.LogfmtFormat())))

	nodeID := ids.ShortEmpty
	if cfg.NodeID != "" {
		nodeID, err = ids.ShortFromString(cfg.NodeID)
		if err != nil {
			return fmt.Errorf("invalid node id %q: %w", cfg.NodeID, err)
		}
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	var collab mempool.Collaborators
	if cfg.StateURI == "" {
		world := state.NewMemory(cfg.PermissiveState)
		collab = mempool.Collaborators{Fees: world, Archive: world, WorldState: world}

		// serve the local world state so other pools can share it
		h, err := state.NewHandler(world)
		if err != nil {
			return err
		}
		mux.Handle(state.Endpoint, h)
	} else {
		remote := state.NewRemote(cfg.StateURI, cfg.StateTimeout)
		collab = mempool.Collaborators{Fees: remote, Archive: remote, WorldState: remote}
	}

	var sender vm.GossipSender
	if len(cfg.Peers) > 0 {
		sender = client.NewPeerSender(nodeID, cfg.Peers, cfg.StateTimeout)
	}

	configBytes, err := json.Marshal(cfg.VM)
	if err != nil {
		return err
	}
	v := &vm.VM{}
	if err := v.Initialize(nodeID, store, configBytes, collab, sender); err != nil {
		_ = store.Close()
		return err
	}

	handlers, err := v.CreateHandlers()
	if err != nil {
		_ = v.Shutdown()
		return err
	}
	for endpoint, h := range handlers {
		mux.Handle(endpoint, h.Handler)
	}

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		log.Info("serving", "address", cfg.HTTPAddress, "nodeId", nodeID)
		errc <- srv.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		log.Info("received signal", "signal", sig)
	case err = <-errc:
		log.Error("http server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(ctx); serr != nil {
		log.Warn("http shutdown failed", "error", serr)
	}
	if serr := v.Shutdown(); serr != nil {
		return serr
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
