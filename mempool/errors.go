// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"errors"
)

var (
	ErrCorruption            = errors.New("corruption detected")
	ErrUninitializedTx       = errors.New("transaction not initialized")
	ErrMissingCollaborator   = errors.New("missing collaborator")
	ErrInvalidOverflowFactor = errors.New("overflow factor must be >= 1")
	ErrMissingHeader         = errors.New("missing block header")
)
