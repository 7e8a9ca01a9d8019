// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package common

import (
	"errors"

	"github.com/vechain/metronome/tx"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNot200Status  = errors.New("not 200 status code")
	ErrUnexpectedMsg = errors.New("unexpected message format")

	// ErrRejected marks a tx the ledger refused, or executed and reverted.
	ErrRejected = errors.New("tx rejected")
	// ErrStaleReference marks a tx whose reference hash aged out before it landed.
	ErrStaleReference = tx.ErrStaleReference
)

// IsStaleReference reports whether err was caused by an expired reference hash.
func IsStaleReference(err error) bool {
	return errors.Is(err, ErrStaleReference)
}

// IsRejected reports whether the ledger refused the tx.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// EventWrapper is used to return errors from the websocket alongside the data
type EventWrapper[T any] struct {
	Data  T
	Error error
}

// Subscription is used to handle the active subscription
type Subscription[T any] struct {
	EventChan   <-chan EventWrapper[T]
	Unsubscribe func() error
}
