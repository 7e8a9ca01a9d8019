// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotation

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
)

// Entry is one range of a stake snapshot. Entries of a snapshot, ordered by ID,
// partition [0, stake total) into contiguous ranges.
type Entry struct {
	ID          uint64
	StakeOffset uint64
	StakeAmount uint64
	Worker      metronome.Address
}

// Contains reports whether sample falls in [StakeOffset, StakeOffset+StakeAmount).
func (e *Entry) Contains(sample uint64) bool {
	return sample >= e.StakeOffset && sample-e.StakeOffset < e.StakeAmount
}

// compare orders an entry against a sample: 0 when it contains the sample,
// +1 when the entry lies above it and -1 when it lies below.
func compare(e Entry, sample uint64) int {
	switch {
	case sample < e.StakeOffset:
		return 1
	case e.Contains(sample):
		return 0
	default:
		return -1
	}
}

// Select returns the entry whose range contains nonce mod stakeTotal.
// Every observer holding the same entries reaches the same answer.
func Select(nonce, stakeTotal uint64, entries []Entry) (*Entry, error) {
	if stakeTotal == 0 {
		return nil, ErrEmptyStakePool
	}
	if len(entries) == 0 {
		return nil, errors.WithMessagef(ErrMalformedPartition, "no entries for stake total %d", stakeTotal)
	}

	sample := nonce % stakeTotal
	i, found := slices.BinarySearchFunc(entries, sample, compare)
	if found {
		return &entries[i], nil
	}

	// With a valid partition every sample lands in some range, so a miss means the
	// entries are out of sync with stakeTotal. The preceding entry is only accepted
	// when it really contains the sample.
	if i > 0 && entries[i-1].Contains(sample) {
		return &entries[i-1], nil
	}
	return nil, errors.WithMessagef(ErrMalformedPartition, "sample %d not covered (insert position %d of %d)", sample, i, len(entries))
}

// ValidatePartition checks that entries are ordered by ID and tile [0, stakeTotal) exactly.
func ValidatePartition(stakeTotal uint64, entries []Entry) error {
	var next uint64
	for i, e := range entries {
		if i > 0 && e.ID <= entries[i-1].ID {
			return errors.WithMessagef(ErrMalformedPartition, "entry %d out of order", e.ID)
		}
		if e.StakeOffset != next {
			return errors.WithMessagef(ErrMalformedPartition, "entry %d starts at %d, want %d", e.ID, e.StakeOffset, next)
		}
		if e.StakeAmount > stakeTotal-next {
			return errors.WithMessagef(ErrMalformedPartition, "entry %d overflows stake total %d", e.ID, stakeTotal)
		}
		next += e.StakeAmount
	}
	if next != stakeTotal {
		return errors.WithMessagef(ErrMalformedPartition, "entries cover %d, stake total is %d", next, stakeTotal)
	}
	return nil
}
