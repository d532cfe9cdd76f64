// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"errors"
)

var (
	ErrNotInitialized = errors.New("vm not initialized")
	ErrInputIsNil     = errors.New("input is nil")
	ErrInvalidEmptyTx = errors.New("invalid empty transaction")
	ErrInvalidFilter  = errors.New("invalid tx filter")
	ErrMissingHeader  = errors.New("missing block header")
)
