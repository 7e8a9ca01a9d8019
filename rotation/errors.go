// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotation

import "errors"

// Selection errors.
var (
	ErrEmptyStakePool     = errors.New("empty stake pool")
	ErrMalformedPartition = errors.New("malformed stake partition")
)

// Gate errors, in the order the gate checks them.
var (
	ErrUninitialized        = errors.New("rotator uninitialized")
	ErrNoStake              = errors.New("no stake in current snapshot")
	ErrTooEarly             = errors.New("rotation not due yet")
	ErrNotYetPermissionless = errors.New("rotation reserved for pool members")
)

// IsSelectionError reports whether err is a worker selection failure.
func IsSelectionError(err error) bool {
	return errors.Is(err, ErrEmptyStakePool) || errors.Is(err, ErrMalformedPartition)
}

// IsGateError reports whether err was returned by the eligibility gate.
// Gate errors are steady state outcomes and only deserve a debug log.
func IsGateError(err error) bool {
	return errors.Is(err, ErrUninitialized) ||
		errors.Is(err, ErrNoStake) ||
		errors.Is(err, ErrTooEarly) ||
		errors.Is(err, ErrNotYetPermissionless)
}
