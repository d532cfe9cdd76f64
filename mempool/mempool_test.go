// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ava-labs/txpoolvm/chain"
	"github.com/ava-labs/txpoolvm/mempool"
)

type view uint64

func (v view) BlockNumber() uint64 { return uint64(v) }

// world is a scriptable stand-in for every pool collaborator.
type world struct {
	mu sync.Mutex

	synced     uint64
	broke      map[common.Address]bool
	stale      map[ids.ID]bool
	feeErr     error
	rootErr    error
	staleViews int
}

func newWorld() *world {
	return &world{broke: map[common.Address]bool{}, stale: map[ids.ID]bool{}}
}

func (w *world) ValidateFee(_ context.Context, tx *chain.Transaction, v mempool.StateView) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.feeErr != nil {
		return false, w.feeErr
	}
	if v.BlockNumber() != w.synced {
		w.staleViews++
	}
	return !w.broke[tx.FeePayer], nil
}

func (w *world) FindHistoricalRoot(_ context.Context, root ids.ID) (uint64, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rootErr != nil {
		return 0, false, w.rootErr
	}
	return 0, !w.stale[root], nil
}

func (w *world) SyncImmediate(_ context.Context, blockNumber uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.synced = blockNumber
	return nil
}

func (w *world) Snapshot(blockNumber uint64) mempool.StateView { return view(blockNumber) }

func newPool(t *testing.T, cfg mempool.Config) (*mempool.Pool, *world) {
	t.Helper()

	w := newWorld()
	p, err := mempool.New(memdb.New(), cfg, mempool.Collaborators{Fees: w, Archive: w, WorldState: w})
	if err != nil {
		t.Fatal(err)
	}
	return p, w
}

// newTx builds txs that all serialize to the same size.
func newTx(t *testing.T, fee uint64, mutate ...func(*chain.Transaction)) *chain.Transaction {
	t.Helper()

	payload := ids.GenerateTestID()
	tx := &chain.Transaction{
		Payload:    payload[:],
		Fees:       &chain.GasFees{MaxPriorityFeePerL2Gas: fee},
		Nullifiers: []ids.ID{ids.GenerateTestID()},
		FeePayer:   common.Address{0x1},
	}
	for _, m := range mutate {
		m(tx)
	}
	if err := tx.Init(); err != nil {
		t.Fatal(err)
	}
	return tx
}

// checkInvariants asserts the ledger matches the pending set and no pending
// tx is also mined.
func checkInvariants(t *testing.T, p *mempool.Pool) {
	t.Helper()

	pending, err := p.GetPendingTxHashes()
	if err != nil {
		t.Fatal(err)
	}
	var sum uint64
	for _, txID := range pending {
		tx, ok, err := p.GetTxByHash(txID)
		if err != nil || !ok {
			t.Fatalf("pending tx %s has no record (%v)", txID, err)
		}
		sum += tx.Size()
	}
	size, err := p.PendingSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != sum {
		t.Fatalf("ledger expected %d, got %d", sum, size)
	}

	mined, err := p.GetMinedTxHashes()
	if err != nil {
		t.Fatal(err)
	}
	pendingSet := ids.NewSet(len(pending))
	pendingSet.Add(pending...)
	for _, m := range mined {
		if pendingSet.Contains(m.TxID) {
			t.Fatalf("tx %s both pending and mined", m.TxID)
		}
	}
}

func status(t *testing.T, p *mempool.Pool, txID ids.ID) chain.TxStatus {
	t.Helper()

	s, err := p.GetTxStatus(txID)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewRejectsOverflowFactor(t *testing.T) {
	t.Parallel()

	w := newWorld()
	collab := mempool.Collaborators{Fees: w, Archive: w, WorldState: w}
	if _, err := mempool.New(memdb.New(), mempool.Config{OverflowFactor: 0.5}, collab); !errors.Is(err, mempool.ErrInvalidOverflowFactor) {
		t.Fatalf("error expected %v, got %v", mempool.ErrInvalidOverflowFactor, err)
	}
	if _, err := mempool.New(memdb.New(), mempool.Config{}, mempool.Collaborators{Fees: w}); !errors.Is(err, mempool.ErrMissingCollaborator) {
		t.Fatalf("error expected %v, got %v", mempool.ErrMissingCollaborator, err)
	}
}

func TestAddTxsIdempotent(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{})
	tx := newTx(t, 10)
	if err := p.AddTxs([]*chain.Transaction{tx, tx}); err != nil {
		t.Fatal(err)
	}
	if err := p.AddTxs([]*chain.Transaction{tx}); err != nil {
		t.Fatal(err)
	}
	size, err := p.PendingSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != tx.Size() {
		t.Fatalf("ledger expected %d, got %d", tx.Size(), size)
	}
	if s := status(t, p, tx.ID()); s != chain.Pending {
		t.Fatalf("status expected %s, got %s", chain.Pending, s)
	}
	select {
	case <-p.Pending:
	default:
		t.Fatal("pending notification missing")
	}
	checkInvariants(t, p)
}

func TestAddTxsRejectsUninitialized(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{})
	if err := p.AddTxs([]*chain.Transaction{{Payload: []byte("raw")}}); !errors.Is(err, mempool.ErrUninitializedTx) {
		t.Fatalf("error expected %v, got %v", mempool.ErrUninitializedTx, err)
	}
}

func TestPendingOrder(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{})
	low, mid, high := newTx(t, 1), newTx(t, 50), newTx(t, 900)
	if err := p.AddTxs([]*chain.Transaction{mid, high, low}); err != nil {
		t.Fatal(err)
	}
	pending, err := p.GetPendingTxHashes()
	if err != nil {
		t.Fatal(err)
	}
	expected := []ids.ID{high.ID(), mid.ID(), low.ID()}
	if len(pending) != len(expected) {
		t.Fatalf("pending expected %d, got %d", len(expected), len(pending))
	}
	for i := range expected {
		if pending[i] != expected[i] {
			t.Fatalf("#%d: id expected %s, got %s", i, expected[i], pending[i])
		}
	}

	top, err := p.PeekPending(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].ID() != high.ID() {
		t.Fatalf("unexpected peek result %v", top)
	}
}

func TestCapacityEviction(t *testing.T) {
	t.Parallel()

	sample := newTx(t, 0)
	size := sample.Size()

	tt := []struct {
		name     string
		cfg      mempool.Config
		fees     []uint64
		evicted  []int
		maxBytes uint64
	}{
		{
			name:     "fourth tx evicts lowest fee",
			cfg:      mempool.Config{MaxTxPoolSize: 3*size + size/2},
			fees:     []uint64{10, 20, 30, 40},
			evicted:  []int{0},
			maxBytes: 3*size + size/2,
		},
		{
			name:     "new tx is the lowest fee",
			cfg:      mempool.Config{MaxTxPoolSize: 3*size + size/2},
			fees:     []uint64{10, 20, 30, 5},
			evicted:  []int{3},
			maxBytes: 3*size + size/2,
		},
		{
			name:     "overflow widens trigger only",
			cfg:      mempool.Config{MaxTxPoolSize: 2 * size, OverflowFactor: 2},
			fees:     []uint64{10, 20, 30, 40},
			evicted:  nil,
			maxBytes: 4 * size,
		},
		{
			name:     "overflow drains to base limit",
			cfg:      mempool.Config{MaxTxPoolSize: 2 * size, OverflowFactor: 2},
			fees:     []uint64{10, 20, 30, 40, 50},
			evicted:  []int{0, 1, 2},
			maxBytes: 2 * size,
		},
		{
			name:     "unbounded",
			cfg:      mempool.Config{},
			fees:     []uint64{1, 2, 3, 4, 5},
			maxBytes: 5 * size,
		},
	}
	for i, tv := range tt {
		p, _ := newPool(t, tv.cfg)
		txs := make([]*chain.Transaction, len(tv.fees))
		for j, fee := range tv.fees {
			txs[j] = newTx(t, fee)
			if err := p.AddTxs([]*chain.Transaction{txs[j]}); err != nil {
				t.Fatalf("#%d %s: %v", i, tv.name, err)
			}
		}

		evicted := map[int]bool{}
		for _, j := range tv.evicted {
			evicted[j] = true
		}
		for j, tx := range txs {
			expected := chain.Pending
			if evicted[j] {
				expected = chain.Unknown
			}
			if s := status(t, p, tx.ID()); s != expected {
				t.Fatalf("#%d %s: tx %d status expected %s, got %s", i, tv.name, j, expected, s)
			}
		}
		ledger, err := p.PendingSize()
		if err != nil {
			t.Fatal(err)
		}
		if ledger > tv.maxBytes {
			t.Fatalf("#%d %s: ledger %d above %d", i, tv.name, ledger, tv.maxBytes)
		}
		checkInvariants(t, p)
	}
}

func TestNonEvictable(t *testing.T) {
	t.Parallel()

	sample := newTx(t, 0)
	p, _ := newPool(t, mempool.Config{MaxTxPoolSize: 2 * sample.Size()})

	t1, t2 := newTx(t, 1), newTx(t, 2)
	if err := p.AddTxs([]*chain.Transaction{t1, t2}); err != nil {
		t.Fatal(err)
	}
	p.MarkTxsAsNonEvictable([]ids.ID{t1.ID()})

	t3 := newTx(t, 3)
	if err := p.AddTxs([]*chain.Transaction{t3}); err != nil {
		t.Fatal(err)
	}
	if s := status(t, p, t1.ID()); s != chain.Pending {
		t.Fatalf("protected tx status expected %s, got %s", chain.Pending, s)
	}
	if s := status(t, p, t2.ID()); s != chain.Unknown {
		t.Fatalf("next lowest tx status expected %s, got %s", chain.Unknown, s)
	}

	// any mined block clears protection
	if err := p.MarkAsMined(context.Background(), []ids.ID{ids.GenerateTestID()}, &chain.BlockHeader{Number: 1}); err != nil {
		t.Fatal(err)
	}
	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.NonEvictable != 0 {
		t.Fatalf("non-evictable expected 0, got %d", stats.NonEvictable)
	}
	if err := p.AddTxs([]*chain.Transaction{newTx(t, 4)}); err != nil {
		t.Fatal(err)
	}
	if s := status(t, p, t1.ID()); s != chain.Unknown {
		t.Fatalf("formerly protected tx status expected %s, got %s", chain.Unknown, s)
	}
	checkInvariants(t, p)
}

func TestMarkAsMined(t *testing.T) {
	t.Parallel()

	p, w := newPool(t, mempool.Config{ArchivedTxLimit: 10})
	ctx := context.Background()

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	brokePayer := crypto.PubkeyToAddress(priv.PublicKey)
	w.broke[brokePayer] = true

	tx1 := newTx(t, 10)
	conflicting := newTx(t, 20, func(tx *chain.Transaction) { tx.Nullifiers = tx1.Nullifiers })
	expired := newTx(t, 30, func(tx *chain.Transaction) { tx.MaxBlockNumber = 5 })
	late := newTx(t, 30, func(tx *chain.Transaction) { tx.IncludeByTimestamp = 100 })
	unaffordable := newTx(t, 40, func(tx *chain.Transaction) { tx.FeePayer = brokePayer })
	survivor := newTx(t, 50, func(tx *chain.Transaction) { tx.MaxBlockNumber = 6 })
	if err := p.AddTxs([]*chain.Transaction{tx1, conflicting, expired, late, unaffordable, survivor}); err != nil {
		t.Fatal(err)
	}

	unknown := ids.GenerateTestID()
	if err := p.MarkAsMined(ctx, []ids.ID{tx1.ID(), unknown}, &chain.BlockHeader{Number: 5, Timestamp: 100}); err != nil {
		t.Fatal(err)
	}
	if w.staleViews != 0 {
		t.Fatalf("fee checks ran against %d stale views", w.staleViews)
	}

	tt := []struct {
		txID   ids.ID
		status chain.TxStatus
	}{
		{txID: tx1.ID(), status: chain.Mined},
		{txID: unknown, status: chain.Mined},
		{txID: conflicting.ID(), status: chain.Unknown},
		{txID: expired.ID(), status: chain.Unknown},
		{txID: late.ID(), status: chain.Unknown},
		{txID: unaffordable.ID(), status: chain.Unknown},
		{txID: survivor.ID(), status: chain.Pending},
	}
	for i, tv := range tt {
		if s := status(t, p, tv.txID); s != tv.status {
			t.Fatalf("#%d: status expected %s, got %s", i, tv.status, s)
		}
	}
	checkInvariants(t, p)

	// mined txs leave the pending set but stay queryable
	if _, ok, err := p.GetTxByHash(tx1.ID()); err != nil || !ok {
		t.Fatalf("mined tx lookup ok=%t err=%v", ok, err)
	}
	// a late AddTxs of a mined id must not make it pending
	late2 := newTx(t, 1)
	if err := p.MarkAsMined(ctx, []ids.ID{late2.ID()}, &chain.BlockHeader{Number: 6}); err != nil {
		t.Fatal(err)
	}
	if err := p.AddTxs([]*chain.Transaction{late2}); err != nil {
		t.Fatal(err)
	}
	if s := status(t, p, late2.ID()); s != chain.Mined {
		t.Fatalf("status expected %s, got %s", chain.Mined, s)
	}
	checkInvariants(t, p)
}

func TestMarkAsMinedEmpty(t *testing.T) {
	t.Parallel()

	p, w := newPool(t, mempool.Config{})
	w.synced = 42
	p.MarkTxsAsNonEvictable([]ids.ID{ids.GenerateTestID()})
	if err := p.MarkAsMined(context.Background(), nil, &chain.BlockHeader{Number: 7}); err != nil {
		t.Fatal(err)
	}
	if w.synced != 42 {
		t.Fatal("empty batch triggered a sync")
	}
	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.NonEvictable != 1 {
		t.Fatalf("non-evictable expected 1, got %d", stats.NonEvictable)
	}
}

func TestMarkAsMinedRollback(t *testing.T) {
	t.Parallel()

	p, w := newPool(t, mempool.Config{})
	tx1, tx2 := newTx(t, 1), newTx(t, 2)
	if err := p.AddTxs([]*chain.Transaction{tx1, tx2}); err != nil {
		t.Fatal(err)
	}
	p.MarkTxsAsNonEvictable([]ids.ID{tx2.ID()})
	before, err := p.PendingSize()
	if err != nil {
		t.Fatal(err)
	}

	errUnavailable := errors.New("state unavailable")
	w.feeErr = errUnavailable
	if err := p.MarkAsMined(context.Background(), []ids.ID{tx1.ID()}, &chain.BlockHeader{Number: 3}); !errors.Is(err, errUnavailable) {
		t.Fatalf("error expected %v, got %v", errUnavailable, err)
	}
	if s := status(t, p, tx1.ID()); s != chain.Pending {
		t.Fatalf("status expected %s, got %s", chain.Pending, s)
	}
	after, err := p.PendingSize()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("ledger expected %d, got %d", before, after)
	}
	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.NonEvictable != 1 {
		t.Fatalf("non-evictable expected 1 after failed call, got %d", stats.NonEvictable)
	}
	checkInvariants(t, p)
}

func TestMarkMinedAsPending(t *testing.T) {
	t.Parallel()

	p, w := newPool(t, mempool.Config{})
	ctx := context.Background()

	tx1 := newTx(t, 10, func(tx *chain.Transaction) { tx.HistoricalRoot = ids.GenerateTestID() })
	tx2 := newTx(t, 20, func(tx *chain.Transaction) { tx.HistoricalRoot = ids.GenerateTestID() })
	bystander := newTx(t, 5, func(tx *chain.Transaction) { tx.HistoricalRoot = tx1.HistoricalRoot })
	if err := p.AddTxs([]*chain.Transaction{tx1, tx2}); err != nil {
		t.Fatal(err)
	}
	if err := p.MarkAsMined(ctx, []ids.ID{tx1.ID(), tx2.ID()}, &chain.BlockHeader{Number: 10}); err != nil {
		t.Fatal(err)
	}
	if err := p.AddTxs([]*chain.Transaction{bystander}); err != nil {
		t.Fatal(err)
	}

	w.stale[tx1.HistoricalRoot] = true
	if err := p.MarkMinedAsPending(ctx, []ids.ID{tx1.ID(), tx2.ID(), ids.GenerateTestID()}); err != nil {
		t.Fatal(err)
	}

	tt := []struct {
		txID   ids.ID
		status chain.TxStatus
	}{
		{txID: tx1.ID(), status: chain.Unknown},
		{txID: bystander.ID(), status: chain.Unknown},
		{txID: tx2.ID(), status: chain.Pending},
	}
	for i, tv := range tt {
		if s := status(t, p, tv.txID); s != tv.status {
			t.Fatalf("#%d: status expected %s, got %s", i, tv.status, s)
		}
	}
	checkInvariants(t, p)
}

func TestMarkMinedAsPendingRollback(t *testing.T) {
	t.Parallel()

	p, w := newPool(t, mempool.Config{})
	ctx := context.Background()
	tx1 := newTx(t, 10)
	if err := p.AddTxs([]*chain.Transaction{tx1}); err != nil {
		t.Fatal(err)
	}
	if err := p.MarkAsMined(ctx, []ids.ID{tx1.ID()}, &chain.BlockHeader{Number: 1}); err != nil {
		t.Fatal(err)
	}

	errTimeout := errors.New("archive timeout")
	w.rootErr = errTimeout
	if err := p.MarkMinedAsPending(ctx, []ids.ID{tx1.ID()}); !errors.Is(err, errTimeout) {
		t.Fatalf("error expected %v, got %v", errTimeout, err)
	}
	if s := status(t, p, tx1.ID()); s != chain.Mined {
		t.Fatalf("status expected %s, got %s", chain.Mined, s)
	}
	checkInvariants(t, p)
}

func TestReorgRunsBeforeCapacity(t *testing.T) {
	t.Parallel()

	sample := newTx(t, 0)
	p, w := newPool(t, mempool.Config{MaxTxPoolSize: 2 * sample.Size()})
	ctx := context.Background()

	stale := newTx(t, 100, func(tx *chain.Transaction) { tx.HistoricalRoot = ids.GenerateTestID() })
	if err := p.AddTxs([]*chain.Transaction{stale}); err != nil {
		t.Fatal(err)
	}
	if err := p.MarkAsMined(ctx, []ids.ID{stale.ID()}, &chain.BlockHeader{Number: 1}); err != nil {
		t.Fatal(err)
	}
	low1, low2 := newTx(t, 1), newTx(t, 2)
	if err := p.AddTxs([]*chain.Transaction{low1, low2}); err != nil {
		t.Fatal(err)
	}

	w.stale[stale.HistoricalRoot] = true
	if err := p.MarkMinedAsPending(ctx, []ids.ID{stale.ID()}); err != nil {
		t.Fatal(err)
	}
	for i, tx := range []*chain.Transaction{low1, low2} {
		if s := status(t, p, tx.ID()); s != chain.Pending {
			t.Fatalf("#%d: status expected %s, got %s", i, chain.Pending, s)
		}
	}
	checkInvariants(t, p)
}

func TestDeleteTxsArchive(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{ArchivedTxLimit: 2})
	txs := []*chain.Transaction{newTx(t, 1), newTx(t, 2), newTx(t, 3), newTx(t, 4)}
	if err := p.AddTxs(txs); err != nil {
		t.Fatal(err)
	}
	for _, tx := range txs {
		if err := p.DeleteTxs([]ids.ID{tx.ID()}); err != nil {
			t.Fatal(err)
		}
	}

	tt := []struct {
		tx       *chain.Transaction
		archived bool
	}{
		{tx: txs[0], archived: false},
		{tx: txs[1], archived: false},
		{tx: txs[2], archived: true},
		{tx: txs[3], archived: true},
	}
	for i, tv := range tt {
		_, ok, err := p.GetArchivedTxByHash(tv.tx.ID())
		if err != nil {
			t.Fatal(err)
		}
		if ok != tv.archived {
			t.Fatalf("#%d: archived expected %t, got %t", i, tv.archived, ok)
		}
	}
	if s := status(t, p, txs[3].ID()); s != chain.Archived {
		t.Fatalf("status expected %s, got %s", chain.Archived, s)
	}
	checkInvariants(t, p)
}

func TestDeleteTxsEviction(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{ArchivedTxLimit: 2})
	tx1 := newTx(t, 1)
	if err := p.AddTxs([]*chain.Transaction{tx1}); err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteTxs([]ids.ID{tx1.ID()}, mempool.WithEviction()); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := p.GetArchivedTxByHash(tx1.ID()); err != nil || ok {
		t.Fatalf("evicted tx archived ok=%t err=%v", ok, err)
	}
	if s := status(t, p, tx1.ID()); s != chain.Unknown {
		t.Fatalf("status expected %s, got %s", chain.Unknown, s)
	}
	// unknown ids are no-ops
	if err := p.DeleteTxs([]ids.ID{ids.GenerateTestID()}); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, p)
}

func TestDeleteMinedBefore(t *testing.T) {
	t.Parallel()

	p, _ := newPool(t, mempool.Config{ArchivedTxLimit: 10})
	ctx := context.Background()
	txs := []*chain.Transaction{newTx(t, 1), newTx(t, 2), newTx(t, 3)}
	if err := p.AddTxs(txs); err != nil {
		t.Fatal(err)
	}
	for i, tx := range txs {
		if err := p.MarkAsMined(ctx, []ids.ID{tx.ID()}, &chain.BlockHeader{Number: uint64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := p.DeleteMinedBefore(2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("removed expected 2, got %d", n)
	}
	expected := []chain.TxStatus{chain.Archived, chain.Archived, chain.Mined}
	for i, tx := range txs {
		if s := status(t, p, tx.ID()); s != expected[i] {
			t.Fatalf("#%d: status expected %s, got %s", i, expected[i], s)
		}
	}

	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.MinedCount != 1 || stats.ArchivedCount != 2 || stats.TxCount != 1 || stats.PendingCount != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	all, err := p.GetAllTxHashes()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0] != txs[2].ID() {
		t.Fatalf("unexpected tx hashes %v", all)
	}
}
