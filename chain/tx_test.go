// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
)

func createTestTx(t *testing.T, fee uint64, payload []byte) *Transaction {
	t.Helper()

	tx := &Transaction{
		Payload:    payload,
		Fees:       &GasFees{MaxPriorityFeePerL2Gas: fee},
		Nullifiers: []ids.ID{ids.GenerateTestID()},
		FeePayer:   common.Address{0x1},
	}
	if err := tx.Init(); err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	found := ids.NewSet(3)
	for i := range []int{0, 1, 2} {
		tx := createTestTx(t, 1, bytes.Repeat([]byte{'b'}, i*10))
		if found.Contains(tx.ID()) {
			t.Fatal("duplicate transaction ID")
		}
		found.Add(tx.ID())
		if tx.Size() != uint64(len(tx.Bytes())) {
			t.Fatalf("size expected %d, got %d", len(tx.Bytes()), tx.Size())
		}
	}
}

func TestTransactionMissingFees(t *testing.T) {
	t.Parallel()

	tx := &Transaction{Payload: []byte("a")}
	if err := tx.Init(); !errors.Is(err, ErrMissingFees) {
		t.Fatalf("init err expected %v, got %v", ErrMissingFees, err)
	}
}

func TestParseTx(t *testing.T) {
	t.Parallel()

	tx := createTestTx(t, 7, []byte("hello"))
	tx.MaxBlockNumber = 12
	tx.IncludeByTimestamp = 1000
	tx.HistoricalRoot = ids.GenerateTestID()
	if err := tx.Init(); err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseTx(tx.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.ID() != tx.ID() {
		t.Fatalf("id expected %s, got %s", tx.ID(), parsed.ID())
	}
	if parsed.MaxBlockNumber != 12 || parsed.IncludeByTimestamp != 1000 {
		t.Fatalf("unexpected bounds %d/%d", parsed.MaxBlockNumber, parsed.IncludeByTimestamp)
	}
	if parsed.HistoricalRoot != tx.HistoricalRoot {
		t.Fatalf("historical root expected %s, got %s", tx.HistoricalRoot, parsed.HistoricalRoot)
	}
	if !parsed.HasNullifier(tx.Nullifiers[0]) {
		t.Fatal("nullifier not preserved")
	}

	if _, err := ParseTx([]byte{0x1, 0x2}); err == nil {
		t.Fatal("expected error on malformed bytes")
	}
}

func TestPriorityKey(t *testing.T) {
	t.Parallel()

	tt := []struct {
		a, b *GasFees
		cmp  int
	}{
		{a: &GasFees{MaxPriorityFeePerL2Gas: 1}, b: &GasFees{MaxPriorityFeePerL2Gas: 2}, cmp: -1},
		{a: &GasFees{MaxPriorityFeePerDAGas: 3}, b: &GasFees{MaxPriorityFeePerL2Gas: 3}, cmp: 0},
		{a: &GasFees{MaxPriorityFeePerDAGas: 1, MaxPriorityFeePerL2Gas: 1}, b: &GasFees{MaxPriorityFeePerL2Gas: 1}, cmp: 1},
		{
			a:   &GasFees{MaxPriorityFeePerDAGas: ^uint64(0), MaxPriorityFeePerL2Gas: ^uint64(0)},
			b:   &GasFees{MaxPriorityFeePerDAGas: ^uint64(0)},
			cmp: 1,
		},
		{a: &GasFees{MaxPriorityFeePerL2Gas: 256}, b: &GasFees{MaxPriorityFeePerL2Gas: 255}, cmp: 1},
	}
	for i, tv := range tt {
		a := PriorityKeyOf(&Transaction{Fees: tv.a})
		b := PriorityKeyOf(&Transaction{Fees: tv.b})
		if cmp := a.Compare(b); cmp != tv.cmp {
			t.Fatalf("#%d: compare expected %d, got %d", i, tv.cmp, cmp)
		}
	}

	k := PriorityKeyOf(&Transaction{Fees: &GasFees{MaxPriorityFeePerDAGas: 40, MaxPriorityFeePerL2Gas: 2}})
	if s := k.String(); s != "42" {
		t.Fatalf("string expected 42, got %s", s)
	}
}

func TestBlockHeaderExpires(t *testing.T) {
	t.Parallel()

	h := &BlockHeader{Number: 10, Timestamp: 500}
	tt := []struct {
		tx      *Transaction
		expires bool
	}{
		{tx: &Transaction{}, expires: false},
		{tx: &Transaction{MaxBlockNumber: 9}, expires: true},
		{tx: &Transaction{MaxBlockNumber: 10}, expires: true},
		{tx: &Transaction{MaxBlockNumber: 11}, expires: false},
		{tx: &Transaction{IncludeByTimestamp: 500}, expires: true},
		{tx: &Transaction{IncludeByTimestamp: 501}, expires: false},
	}
	for i, tv := range tt {
		if got := h.Expires(tv.tx); got != tv.expires {
			t.Fatalf("#%d: expires expected %t, got %t", i, tv.expires, got)
		}
	}
}

func TestTxStatusJSON(t *testing.T) {
	t.Parallel()

	b, err := Archived.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"deleted"` {
		t.Fatalf("archived status expected \"deleted\", got %s", b)
	}
	var s TxStatus
	if err := s.UnmarshalJSON([]byte(`"bogus"`)); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unmarshal err expected %v, got %v", ErrInvalidStatus, err)
	}
}
