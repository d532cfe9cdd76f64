// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
)

var (
	ErrForeignView    = errors.New("state view not created by this backend")
	ErrInvalidTxBytes = errors.New("invalid tx bytes")
)
