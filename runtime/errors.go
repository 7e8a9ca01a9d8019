// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrUnknownProgram      = errors.New("unknown program")
	ErrUnknownInstruction  = errors.New("unknown instruction")
	ErrInvalidInstruction  = errors.New("invalid instruction data")
	ErrMissingSigner       = errors.New("missing required signature")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountOwner        = errors.New("account not owned by program")
	ErrAccountNotWritable  = errors.New("account not writable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvokeDepth         = errors.New("max invoke depth reached")
	ErrSeedsMismatch       = errors.New("seeds do not derive signer")
	ErrDeserialization     = errors.New("account data does not match expected layout")
)

// IsRateLimitExceeded reports whether err was caused by an exhausted chain budget.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsDeserialization reports whether err was caused by unexpected account data.
func IsDeserialization(err error) bool {
	return errors.Is(err, ErrDeserialization)
}

// HaltError reports a chain stopped by a failing hop after Hops hops were committed.
// The committed hops survive; only the failing hop is rolled back.
type HaltError struct {
	Hops int
	Err  error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("chain halted after %d hops: %v", e.Hops, e.Err)
}

func (e *HaltError) Unwrap() error {
	return e.Err
}
