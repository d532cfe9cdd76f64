// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"runtime"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	log "github.com/inconshreveable/log15"
)

const (
	DefaultCacheSize  = 64 * units.MiB
	DefaultOpenFiles  = 16
	defaultTargetFile = 2 * units.MiB
	levels            = 7
)

var (
	_ database.Database = &PebbleDB{}
	_ database.Batch    = &pebbleBatch{}
	_ database.Iterator = &pebbleIterator{}
	_ SizeEstimator     = &PebbleDB{}
)

type PebbleConfig struct {
	CacheSize uint64 `json:"cacheSize"`
	OpenFiles int    `json:"openFiles"`
}

// PebbleDB exposes a pebble store as an avalanchego database. Every write is
// synced; batches commit atomically.
type PebbleDB struct {
	db *pebble.DB

	l      sync.RWMutex
	closed bool
}

func NewPebble(path string, cfg PebbleConfig) (*PebbleDB, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.OpenFiles <= 0 {
		cfg.OpenFiles = DefaultOpenFiles
	}

	cache := pebble.NewCache(int64(cfg.CacheSize))
	defer cache.Unref()

	opts := &pebble.Options{
		Cache:                    cache,
		MaxOpenFiles:             cfg.OpenFiles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels:                   make([]pebble.LevelOptions, levels),
	}
	target := int64(defaultTargetFile)
	for i := range opts.Levels {
		opts.Levels[i] = pebble.LevelOptions{TargetFileSize: target, FilterPolicy: bloom.FilterPolicy(10)}
		target *= 2
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("opened pebble database", "path", path, "cacheSize", cfg.CacheSize)
	return &PebbleDB{db: db}, nil
}

func (p *PebbleDB) Has(key []byte) (bool, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return false, database.ErrClosed
	}
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return nil, database.ErrClosed
	}
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	value := make([]byte, len(v))
	copy(value, v)
	return value, closer.Close()
}

func (p *PebbleDB) Put(key []byte, value []byte) error {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return database.ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleDB) Delete(key []byte) error {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return database.ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleDB) NewBatch() database.Batch { return &pebbleBatch{db: p} }

func (p *PebbleDB) NewIterator() database.Iterator {
	return p.NewIteratorWithStartAndPrefix(nil, nil)
}

func (p *PebbleDB) NewIteratorWithStart(start []byte) database.Iterator {
	return p.NewIteratorWithStartAndPrefix(start, nil)
}

func (p *PebbleDB) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return p.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (p *PebbleDB) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return &pebbleIterator{err: database.ErrClosed}
	}
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound(start, prefix),
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return &pebbleIterator{err: err}
	}
	return &pebbleIterator{it: it}
}

// Compact compacts [start, limit). A nil [limit] extends the range past the
// last key.
func (p *PebbleDB) Compact(start []byte, limit []byte) error {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return database.ErrClosed
	}
	if limit == nil {
		it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start})
		if err != nil {
			return err
		}
		if !it.Last() {
			return it.Close()
		}
		limit = append(append([]byte{}, it.Key()...), 0)
		if err := it.Close(); err != nil {
			return err
		}
	}
	if start == nil {
		start = []byte{}
	}
	return p.db.Compact(start, limit, true)
}

// EstimatedSize returns the bytes used on disk.
func (p *PebbleDB) EstimatedSize() (uint64, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return 0, database.ErrClosed
	}
	return p.db.Metrics().DiskSpaceUsage(), nil
}

func (p *PebbleDB) Close() error {
	p.l.Lock()
	defer p.l.Unlock()

	if p.closed {
		return database.ErrClosed
	}
	p.closed = true
	return p.db.Close()
}

func (p *PebbleDB) HealthCheck() (interface{}, error) {
	p.l.RLock()
	defer p.l.RUnlock()

	if p.closed {
		return nil, database.ErrClosed
	}
	return nil, nil
}

type keyValue struct {
	key    []byte
	value  []byte
	delete bool
}

type pebbleBatch struct {
	db     *PebbleDB
	writes []keyValue
	size   int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyValue{key: copyBytes(key), value: copyBytes(value)})
	b.size += len(key) + len(value)
	return nil
}

func (b *pebbleBatch) Delete(key []byte) error {
	b.writes = append(b.writes, keyValue{key: copyBytes(key), delete: true})
	b.size += len(key)
	return nil
}

func (b *pebbleBatch) Size() int { return b.size }

// Write commits every buffered operation in one synced pebble batch.
func (b *pebbleBatch) Write() error {
	b.db.l.RLock()
	defer b.db.l.RUnlock()

	if b.db.closed {
		return database.ErrClosed
	}
	pb := b.db.db.NewBatch()
	defer pb.Close()
	for _, kv := range b.writes {
		var err error
		if kv.delete {
			err = pb.Delete(kv.key, nil)
		} else {
			err = pb.Set(kv.key, kv.value, nil)
		}
		if err != nil {
			return err
		}
	}
	return pb.Commit(pebble.Sync)
}

func (b *pebbleBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

func (b *pebbleBatch) Replay(w database.KeyValueWriterDeleter) error {
	for _, kv := range b.writes {
		var err error
		if kv.delete {
			err = w.Delete(kv.key)
		} else {
			err = w.Put(kv.key, kv.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *pebbleBatch) Inner() database.Batch { return b }

// pebbleIterator adapts pebble's positioned iterator to avalanchego's
// advance-then-read contract.
type pebbleIterator struct {
	it      *pebble.Iterator
	started bool
	valid   bool
	err     error
}

func (i *pebbleIterator) Next() bool {
	if i.it == nil || i.err != nil {
		return false
	}
	if !i.started {
		i.started = true
		i.valid = i.it.First()
	} else {
		i.valid = i.it.Next()
	}
	return i.valid
}

func (i *pebbleIterator) Error() error {
	if i.err != nil {
		return i.err
	}
	if i.it == nil {
		return nil
	}
	return i.it.Error()
}

func (i *pebbleIterator) Key() []byte {
	if !i.valid {
		return nil
	}
	return copyBytes(i.it.Key())
}

func (i *pebbleIterator) Value() []byte {
	if !i.valid {
		return nil
	}
	return copyBytes(i.it.Value())
}

func (i *pebbleIterator) Release() {
	if i.it == nil {
		return
	}
	if err := i.it.Close(); err != nil && i.err == nil {
		i.err = err
	}
	i.it = nil
	i.valid = false
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
