// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
)

var (
	// Tx Correctness
	ErrMissingFees    = errors.New("missing fees")
	ErrInvalidTxBytes = errors.New("invalid transaction bytes")

	// Storage
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidValueLen = errors.New("invalid value length")
	ErrInvalidStatus   = errors.New("invalid tx status")
)
