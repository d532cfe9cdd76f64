// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// 0x0/ (tx records)
//   -> [txID] => tx bytes
// 0x1/ (priority index)
//   -> [priority key][txID] => nil
// 0x2/ (mined index)
//   -> [txID] => block number
// 0x3/ (size ledger)
//   -> "pendingSize" => total pending bytes
// 0x4/ (archive order)
//   -> [sequence] => txID
// 0x5/ (archived tx records)
//   -> [txID] => sequence|tx bytes
// 0x6/ (archive ring pointers)
//   -> "archiveHead" | "archiveTail" => sequence

const (
	txPrefix           = 0x0
	priorityPrefix     = 0x1
	minedPrefix        = 0x2
	ledgerPrefix       = 0x3
	archiveOrderPrefix = 0x4
	archivePrefix      = 0x5
	ringPrefix         = 0x6

	ByteDelimiter byte = '/'

	uint64Len = 8
)

var (
	pendingSizeKey = []byte("pendingSize")
	archiveHeadKey = []byte("archiveHead")
	archiveTailKey = []byte("archiveTail")

	// CompactablePrefixes are the buckets that see enough churn to benefit
	// from periodic compaction.
	CompactablePrefixes = []byte{txPrefix, priorityPrefix, minedPrefix, archiveOrderPrefix, archivePrefix}

	ErrCorruptedRing = errors.New("archive ring pointers corrupted")
)

func bucketKey(prefix byte, rest ...[]byte) []byte {
	l := 2
	for _, r := range rest {
		l += len(r)
	}
	k := make([]byte, 0, l)
	k = append(k, prefix, ByteDelimiter)
	for _, r := range rest {
		k = append(k, r...)
	}
	return k
}

func CompactablePrefixKey(pfx byte) []byte {
	return []byte{pfx, ByteDelimiter}
}

func PrefixTxKey(txID ids.ID) []byte {
	return bucketKey(txPrefix, txID[:])
}

func PrefixPriorityKey(pk PriorityKey, txID ids.ID) []byte {
	return bucketKey(priorityPrefix, pk[:], txID[:])
}

func PrefixMinedKey(txID ids.ID) []byte {
	return bucketKey(minedPrefix, txID[:])
}

func PrefixArchivedKey(txID ids.ID) []byte {
	return bucketKey(archivePrefix, txID[:])
}

func PrefixArchiveOrderKey(seq uint64) []byte {
	return bucketKey(archiveOrderPrefix, packUint64(seq))
}

func packUint64(v uint64) []byte {
	b := make([]byte, uint64Len)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func unpackUint64(b []byte) (uint64, error) {
	if len(b) != uint64Len {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrInvalidValueLen, uint64Len, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// get returns (nil, false, nil) when [k] is absent.
func get(db database.KeyValueReader, k []byte) ([]byte, bool, error) {
	v, err := db.Get(k)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func getUint64(db database.KeyValueReader, k []byte) (uint64, bool, error) {
	v, ok, err := get(db, k)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := unpackUint64(v)
	return n, err == nil, err
}

// Record store

func PutTransaction(db database.KeyValueWriter, tx *Transaction) error {
	return db.Put(PrefixTxKey(tx.ID()), tx.Bytes())
}

func HasTransaction(db database.KeyValueReader, txID ids.ID) (bool, error) {
	return db.Has(PrefixTxKey(txID))
}

func GetTransaction(db database.KeyValueReader, txID ids.ID) (*Transaction, bool, error) {
	v, ok, err := get(db, PrefixTxKey(txID))
	if err != nil || !ok {
		return nil, false, err
	}
	tx, err := ParseTx(v)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidTxBytes, txID, err)
	}
	return tx, true, nil
}

func DeleteTransaction(db database.KeyValueDeleter, txID ids.ID) error {
	return db.Delete(PrefixTxKey(txID))
}

// ForEachTransaction visits every stored transaction in key order until [f]
// returns false or an error.
func ForEachTransaction(db database.Iteratee, f func(*Transaction) (bool, error)) error {
	cursor := db.NewIteratorWithPrefix(CompactablePrefixKey(txPrefix))
	defer cursor.Release()
	for cursor.Next() {
		tx, err := ParseTx(cursor.Value())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTxBytes, err)
		}
		cont, err := f(tx)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return cursor.Error()
}

// Priority index

func PutPending(db database.KeyValueWriter, tx *Transaction) error {
	return db.Put(PrefixPriorityKey(PriorityKeyOf(tx), tx.ID()), nil)
}

func HasPending(db database.KeyValueReader, tx *Transaction) (bool, error) {
	return db.Has(PrefixPriorityKey(PriorityKeyOf(tx), tx.ID()))
}

func DeletePending(db database.KeyValueDeleter, tx *Transaction) error {
	return db.Delete(PrefixPriorityKey(PriorityKeyOf(tx), tx.ID()))
}

// ForEachPending visits the priority index in ascending (priority, txID)
// order until [f] returns false or an error.
func ForEachPending(db database.Iteratee, f func(PriorityKey, ids.ID) (bool, error)) error {
	cursor := db.NewIteratorWithPrefix(CompactablePrefixKey(priorityPrefix))
	defer cursor.Release()
	for cursor.Next() {
		k := cursor.Key()
		if len(k) != 2+PriorityKeyLen+len(ids.Empty) {
			return fmt.Errorf("%w: priority index key length %d", ErrInvalidKey, len(k))
		}
		var pk PriorityKey
		copy(pk[:], k[2:2+PriorityKeyLen])
		txID, err := ids.ToID(k[2+PriorityKeyLen:])
		if err != nil {
			return err
		}
		cont, err := f(pk, txID)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return cursor.Error()
}

// Size ledger

func GetPendingSize(db database.KeyValueReader) (uint64, error) {
	v, _, err := getUint64(db, bucketKey(ledgerPrefix, pendingSizeKey))
	return v, err
}

func SetPendingSize(db database.KeyValueWriter, size uint64) error {
	return db.Put(bucketKey(ledgerPrefix, pendingSizeKey), packUint64(size))
}

// Mined index

func SetMined(db database.KeyValueWriter, txID ids.ID, blockNumber uint64) error {
	return db.Put(PrefixMinedKey(txID), packUint64(blockNumber))
}

func GetMined(db database.KeyValueReader, txID ids.ID) (uint64, bool, error) {
	return getUint64(db, PrefixMinedKey(txID))
}

func HasMined(db database.KeyValueReader, txID ids.ID) (bool, error) {
	return db.Has(PrefixMinedKey(txID))
}

func DeleteMined(db database.KeyValueDeleter, txID ids.ID) error {
	return db.Delete(PrefixMinedKey(txID))
}

func ForEachMined(db database.Iteratee, f func(ids.ID, uint64) (bool, error)) error {
	cursor := db.NewIteratorWithPrefix(CompactablePrefixKey(minedPrefix))
	defer cursor.Release()
	for cursor.Next() {
		txID, err := ids.ToID(cursor.Key()[2:])
		if err != nil {
			return err
		}
		blockNumber, err := unpackUint64(cursor.Value())
		if err != nil {
			return err
		}
		cont, err := f(txID, blockNumber)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return cursor.Error()
}

// Archive ring

func archivePointers(db database.KeyValueReader) (head uint64, tail uint64, err error) {
	head, _, err = getUint64(db, bucketKey(ringPrefix, archiveHeadKey))
	if err != nil {
		return 0, 0, err
	}
	tail, _, err = getUint64(db, bucketKey(ringPrefix, archiveTailKey))
	if err != nil {
		return 0, 0, err
	}
	if tail < head {
		return 0, 0, fmt.Errorf("%w: head %d > tail %d", ErrCorruptedRing, head, tail)
	}
	return head, tail, nil
}

// ArchivedCount returns the number of occupied ring slots.
func ArchivedCount(db database.KeyValueReader) (uint64, error) {
	head, tail, err := archivePointers(db)
	return tail - head, err
}

// ArchiveTransaction appends [tx] to the ring and drops the oldest slots until
// at most [limit] remain.
func ArchiveTransaction(db database.Database, tx *Transaction, limit uint64) error {
	head, tail, err := archivePointers(db)
	if err != nil {
		return err
	}
	txID := tx.ID()
	if err := db.Put(PrefixArchiveOrderKey(tail), txID[:]); err != nil {
		return err
	}
	v := make([]byte, 0, uint64Len+len(tx.Bytes()))
	v = append(v, packUint64(tail)...)
	v = append(v, tx.Bytes()...)
	if err := db.Put(PrefixArchivedKey(txID), v); err != nil {
		return err
	}
	tail++

	for tail-head > limit {
		if err := dropArchiveSlot(db, head); err != nil {
			return err
		}
		head++
	}
	if err := db.Put(bucketKey(ringPrefix, archiveHeadKey), packUint64(head)); err != nil {
		return err
	}
	return db.Put(bucketKey(ringPrefix, archiveTailKey), packUint64(tail))
}

func dropArchiveSlot(db database.Database, seq uint64) error {
	orderKey := PrefixArchiveOrderKey(seq)
	v, ok, err := get(db, orderKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing slot %d", ErrCorruptedRing, seq)
	}
	txID, err := ids.ToID(v)
	if err != nil {
		return err
	}
	if err := db.Delete(orderKey); err != nil {
		return err
	}

	// The same tx may have been archived again into a newer slot; only the
	// newest slot owns the record.
	archived, ok, err := get(db, PrefixArchivedKey(txID))
	if err != nil || !ok {
		return err
	}
	if len(archived) < uint64Len {
		return fmt.Errorf("%w: archived record too short", ErrInvalidValueLen)
	}
	if binary.BigEndian.Uint64(archived[:uint64Len]) != seq {
		return nil
	}
	return db.Delete(PrefixArchivedKey(txID))
}

func GetArchivedTransaction(db database.KeyValueReader, txID ids.ID) (*Transaction, bool, error) {
	v, ok, err := get(db, PrefixArchivedKey(txID))
	if err != nil || !ok {
		return nil, false, err
	}
	if len(v) < uint64Len {
		return nil, false, fmt.Errorf("%w: archived record too short", ErrInvalidValueLen)
	}
	tx, err := ParseTx(v[uint64Len:])
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidTxBytes, txID, err)
	}
	return tx, true, nil
}

func HasArchivedTransaction(db database.KeyValueReader, txID ids.ID) (bool, error) {
	return db.Has(PrefixArchivedKey(txID))
}
