// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	log "github.com/inconshreveable/log15"
)

const (
	MemoryBackend = "memdb"
	PebbleBackend = "pebble"
)

var (
	ErrUnknownBackend = errors.New("unknown database backend")
	ErrMissingPath    = errors.New("database path required")
)

// SizeEstimator is implemented by backends that can report their on-disk
// footprint.
type SizeEstimator interface {
	EstimatedSize() (uint64, error)
}

type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`

	// Namespace isolates one pool inside a shared store.
	Namespace string `json:"namespace"`

	Pebble PebbleConfig `json:"pebble"`
}

// Store is the opened database plus the handle that owns the underlying
// resources.
type Store struct {
	database.Database

	base database.Database
}

func Open(cfg Config) (*Store, error) {
	var base database.Database
	switch cfg.Backend {
	case MemoryBackend, "":
		base = memdb.New()
	case PebbleBackend:
		if cfg.Path == "" {
			return nil, ErrMissingPath
		}
		pdb, err := NewPebble(cfg.Path, cfg.Pebble)
		if err != nil {
			return nil, fmt.Errorf("open pebble at %s: %w", cfg.Path, err)
		}
		base = pdb
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	s := &Store{Database: base, base: base}
	if cfg.Namespace != "" {
		s.Database = prefixdb.New([]byte(cfg.Namespace), base)
	}
	log.Info("opened store", "backend", cfg.Backend, "namespace", cfg.Namespace)
	return s, nil
}

// EstimatedSize reports the size of the whole backing store, or 0 when the
// backend cannot tell.
func (s *Store) EstimatedSize() (uint64, error) {
	est, ok := s.base.(SizeEstimator)
	if !ok {
		return 0, nil
	}
	return est.EstimatedSize()
}

func (s *Store) Close() error {
	if s.Database != s.base {
		if err := s.Database.Close(); err != nil {
			return err
		}
	}
	return s.base.Close()
}
