// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
)

// prefixEnd returns the range query end key for [prefix].
// "foo/" ends with "foo0", "a\xff" ends with "b".
// Returns nil if the next prefix does not exist (e.g., 0xffff) or [prefix]
// is empty, meaning the range is unbounded above.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i] = end[i] + 1
			return end[:i+1]
		}
	}
	return nil
}

// lowerBound picks the tighter of [start] and [prefix].
func lowerBound(start, prefix []byte) []byte {
	if bytes.Compare(start, prefix) > 0 {
		return start
	}
	return prefix
}
