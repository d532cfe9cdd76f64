// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/json"
	"fmt"
)

// TxStatus is the lifecycle state of a transaction id in the pool.
type TxStatus uint8

const (
	Unknown TxStatus = iota
	Pending
	Mined
	Archived
)

func (s TxStatus) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Pending:
		return "pending"
	case Mined:
		return "mined"
	case Archived:
		return "deleted"
	default:
		return fmt.Sprintf("TxStatus(%d)", uint8(s))
	}
}

func (s TxStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TxStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "unknown":
		*s = Unknown
	case "pending":
		*s = Pending
	case "mined":
		*s = Mined
	case "deleted":
		*s = Archived
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, str)
	}
	return nil
}
