// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/txpoolvm/storage"
	"github.com/ava-labs/txpoolvm/vm"
)

const (
	envPrefix = "TXPOOLVM"

	configFileKey = "config-file"
	httpHostKey   = "http-host"
	httpPortKey   = "http-port"
	logLevelKey   = "log-level"
	nodeIDKey     = "node-id"
	peersKey      = "peers"

	dbBackendKey       = "db-backend"
	dbDirKey           = "db-dir"
	dbNamespaceKey     = "db-namespace"
	pebbleCacheSizeKey = "pebble-cache-size"
	pebbleOpenFilesKey = "pebble-open-files"

	stateURIKey        = "state-uri"
	stateTimeoutKey    = "state-timeout"
	permissiveStateKey = "permissive-state"

	maxTxPoolSizeKey        = "max-tx-pool-size"
	txPoolOverflowFactorKey = "tx-pool-overflow-factor"
	archivedTxLimitKey      = "archived-tx-limit"
	keepFinalizedTxsForKey  = "keep-finalized-txs-for"
	gossipIntervalKey       = "gossip-interval"
	regossipIntervalKey     = "regossip-interval"
	gossipMaxTxsKey         = "gossip-max-txs"
	gossipedCacheSizeKey    = "gossiped-cache-size"
	pruneIntervalKey        = "prune-interval"
	compactIntervalKey      = "compact-interval"
)

type nodeConfig struct {
	HTTPAddress string
	LogLevel    string
	NodeID      string
	Peers       []string

	Storage storage.Config

	StateURI        string
	StateTimeout    time.Duration
	PermissiveState bool

	VM vm.Config
}

func addFlags(fs *pflag.FlagSet) {
	var defaults vm.Config
	defaults.SetDefaults()

	fs.String(configFileKey, "", "config file (json, yaml or toml); flags and env override it")
	fs.String(httpHostKey, "127.0.0.1", "HTTP listen host")
	fs.Uint16(httpPortKey, 9650, "HTTP listen port")
	fs.String(logLevelKey, "info", "log level (trace, debug, info, warn, error, crit)")
	fs.String(nodeIDKey, "", "node id used when gossiping (cb58)")
	fs.StringSlice(peersKey, nil, "peer URIs to gossip transactions to")

	fs.String(dbBackendKey, storage.MemoryBackend, "store backend (memdb or pebble)")
	fs.String(dbDirKey, "", "store directory (pebble only)")
	fs.String(dbNamespaceKey, "", "key prefix isolating this pool in a shared store")
	fs.Uint64(pebbleCacheSizeKey, 0, "pebble block cache size in bytes (0 for default)")
	fs.Int(pebbleOpenFilesKey, 0, "pebble max open files (0 for default)")

	fs.String(stateURIKey, "", "remote world state URI (empty serves an in-memory state)")
	fs.Duration(stateTimeoutKey, 30*time.Second, "request timeout for world state and peers")
	fs.Bool(permissiveStateKey, true, "in-memory state accepts every fee and root")

	fs.Uint64(maxTxPoolSizeKey, defaults.MaxTxPoolSize, "max pending bytes (0 disables eviction)")
	fs.Float64(txPoolOverflowFactorKey, defaults.TxPoolOverflowFactor, "eviction starts at max size times this factor")
	fs.Uint64(archivedTxLimitKey, defaults.ArchivedTxLimit, "archived txs retained (0 disables archiving)")
	fs.Uint64(keepFinalizedTxsForKey, defaults.KeepFinalizedTxsFor, "blocks mined txs outlive finalization")
	fs.Duration(gossipIntervalKey, defaults.GossipInterval, "gossip interval (0 disables)")
	fs.Duration(regossipIntervalKey, defaults.RegossipInterval, "regossip interval (0 disables)")
	fs.Int(gossipMaxTxsKey, defaults.GossipMaxTxs, "max txs per gossip message")
	fs.Int(gossipedCacheSizeKey, defaults.GossipedCacheSize, "recently gossiped tx ids remembered")
	fs.Duration(pruneIntervalKey, defaults.PruneInterval, "prune interval (0 disables)")
	fs.Duration(compactIntervalKey, defaults.CompactInterval, "compaction interval (0 disables)")
}

// loadConfig merges, highest first: flags, TXPOOLVM_* env vars, the config
// file and flag defaults.
func loadConfig(fs *pflag.FlagSet) (*nodeConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if f := v.GetString(configFileKey); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &nodeConfig{
		HTTPAddress: v.GetString(httpHostKey) + ":" + v.GetString(httpPortKey),
		LogLevel:    v.GetString(logLevelKey),
		NodeID:      v.GetString(nodeIDKey),
		Peers:       v.GetStringSlice(peersKey),
		Storage: storage.Config{
			Backend:   v.GetString(dbBackendKey),
			Path:      v.GetString(dbDirKey),
			Namespace: v.GetString(dbNamespaceKey),
			Pebble: storage.PebbleConfig{
				CacheSize: v.GetUint64(pebbleCacheSizeKey),
				OpenFiles: v.GetInt(pebbleOpenFilesKey),
			},
		},
		StateURI:        v.GetString(stateURIKey),
		StateTimeout:    v.GetDuration(stateTimeoutKey),
		PermissiveState: v.GetBool(permissiveStateKey),
	}
	cfg.VM.SetDefaults()
	cfg.VM.MaxTxPoolSize = v.GetUint64(maxTxPoolSizeKey)
	cfg.VM.TxPoolOverflowFactor = v.GetFloat64(txPoolOverflowFactorKey)
	cfg.VM.ArchivedTxLimit = v.GetUint64(archivedTxLimitKey)
	cfg.VM.KeepFinalizedTxsFor = v.GetUint64(keepFinalizedTxsForKey)
	cfg.VM.GossipInterval = v.GetDuration(gossipIntervalKey)
	cfg.VM.RegossipInterval = v.GetDuration(regossipIntervalKey)
	cfg.VM.GossipMaxTxs = v.GetInt(gossipMaxTxsKey)
	cfg.VM.GossipedCacheSize = v.GetInt(gossipedCacheSizeKey)
	cfg.VM.PruneInterval = v.GetDuration(pruneIntervalKey)
	cfg.VM.CompactInterval = v.GetDuration(compactIntervalKey)
	return cfg, nil
}
