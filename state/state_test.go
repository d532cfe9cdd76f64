// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/ava-labs/txpoolvm/chain"
)

func newTx(t *testing.T, payer common.Address, fee uint64) *chain.Transaction {
	t.Helper()

	tx := &chain.Transaction{
		Payload:  []byte("state"),
		Fees:     &chain.GasFees{MaxPriorityFeePerDAGas: fee, MaxPriorityFeePerL2Gas: fee},
		FeePayer: payer,
	}
	require.NoError(t, tx.Init())
	return tx
}

func newPayer(t *testing.T) common.Address {
	t.Helper()

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.PubkeyToAddress(priv.PublicKey)
}

func TestMemoryValidateFee(t *testing.T) {
	t.Parallel()

	require := require.New(t)
	ctx := context.Background()
	m := NewMemory(false)
	rich, poor, unknown := newPayer(t), newPayer(t), newPayer(t)
	m.SetBalance(rich, uint128.From64(100))
	m.SetBalance(poor, uint128.From64(19))
	v := m.Snapshot(1)

	tt := []struct {
		payer common.Address
		valid bool
	}{
		{payer: rich, valid: true},
		{payer: poor, valid: false},
		{payer: unknown, valid: false},
	}
	for i, tv := range tt {
		valid, err := m.ValidateFee(ctx, newTx(t, tv.payer, 10), v)
		require.NoError(err)
		require.Equalf(tv.valid, valid, "#%d", i)
	}

	// later balance changes do not leak into an existing snapshot
	m.SetBalance(poor, uint128.From64(1000))
	valid, err := m.ValidateFee(ctx, newTx(t, poor, 10), v)
	require.NoError(err)
	require.False(valid)

	_, err = m.ValidateFee(ctx, newTx(t, rich, 1), remoteView(1))
	require.ErrorIs(err, ErrForeignView)
}

func TestMemoryHistoricalRoots(t *testing.T) {
	t.Parallel()

	require := require.New(t)
	ctx := context.Background()
	m := NewMemory(false)
	root := ids.GenerateTestID()

	_, found, err := m.FindHistoricalRoot(ctx, root)
	require.NoError(err)
	require.False(found)

	m.AddRoot(root, 7)
	index, found, err := m.FindHistoricalRoot(ctx, root)
	require.NoError(err)
	require.True(found)
	require.Equal(uint64(7), index)

	m.RemoveRoot(root)
	_, found, err = m.FindHistoricalRoot(ctx, root)
	require.NoError(err)
	require.False(found)

	_, found, err = m.FindHistoricalRoot(ctx, ids.Empty)
	require.NoError(err)
	require.True(found)

	_, found, err = NewMemory(true).FindHistoricalRoot(ctx, root)
	require.NoError(err)
	require.True(found)
}

func TestMemorySyncImmediate(t *testing.T) {
	t.Parallel()

	require := require.New(t)
	m := NewMemory(false)
	m.SetHeight(3)
	require.NoError(m.SyncImmediate(context.Background(), 2))

	done := make(chan error, 1)
	go func() { done <- m.SyncImmediate(context.Background(), 5) }()
	m.SetHeight(4)
	select {
	case err := <-done:
		t.Fatalf("sync returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	m.SetHeight(5)
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("sync never returned")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(m.SyncImmediate(ctx, 100), context.DeadlineExceeded)

	require.NoError(NewMemory(true).SyncImmediate(context.Background(), 100))
}

func TestRemote(t *testing.T) {
	t.Parallel()

	require := require.New(t)
	ctx := context.Background()

	m := NewMemory(false)
	payer := newPayer(t)
	m.SetBalance(payer, uint128.From64(50))
	root := ids.GenerateTestID()
	m.AddRoot(root, 3)
	m.SetHeight(9)

	handler, err := NewHandler(m)
	require.NoError(err)
	mux := http.NewServeMux()
	mux.Handle(Endpoint, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewRemote(srv.URL, 5*time.Second)

	require.NoError(r.SyncImmediate(ctx, 9))
	valid, err := r.ValidateFee(ctx, newTx(t, payer, 10), r.Snapshot(9))
	require.NoError(err)
	require.True(valid)
	valid, err = r.ValidateFee(ctx, newTx(t, payer, 30), r.Snapshot(9))
	require.NoError(err)
	require.False(valid)

	index, found, err := r.FindHistoricalRoot(ctx, root)
	require.NoError(err)
	require.True(found)
	require.Equal(uint64(3), index)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(r.SyncImmediate(cctx, 10), context.Canceled)
}
