// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotation

import (
	"encoding/binary"

	"github.com/vechain/metronome/metronome"
)

// Params are the timing parameters of the rotation.
type Params struct {
	RotationInterval uint64 `yaml:"rotation-interval"`
	GracePeriod      uint64 `yaml:"grace-period"`
}

// DefaultParams returns the network defaults.
func DefaultParams() Params {
	return Params{
		RotationInterval: metronome.DefaultRotationInterval,
		GracePeriod:      metronome.DefaultGracePeriod,
	}
}

// State is the rotation counter mirrored from the rotator account.
type State struct {
	LastRotationAt uint64
	Nonce          uint64
	PoolAddresses  []metronome.Address
}

// Target is the first slot at which the next rotation is due.
func (s *State) Target(p Params) uint64 {
	return s.LastRotationAt + p.RotationInterval
}

// Membership is this node's view of one worker pool.
type Membership struct {
	CurrentPosition *uint64
	Workers         []metronome.Address
}

// NewMembership computes the position of self among workers.
func NewMembership(self metronome.Address, workers []metronome.Address) Membership {
	m := Membership{Workers: workers}
	for i, w := range workers {
		if w == self {
			pos := uint64(i)
			m.CurrentPosition = &pos
			break
		}
	}
	return m
}

// IsMember reports whether this node holds a position in the pool.
func (m *Membership) IsMember() bool {
	return m.CurrentPosition != nil
}

// MayRotate decides whether this node may submit a rotation at slot now.
// Checks run in order and the first failure is returned. A nil result only
// authorizes an attempt; another node may still land its rotation first.
func MayRotate(now uint64, state State, stakeTotal uint64, membership Membership, p Params) error {
	if state.Nonce == 0 {
		return ErrUninitialized
	}
	if stakeTotal == 0 {
		return ErrNoStake
	}
	target := state.Target(p)
	if now < target {
		return ErrTooEarly
	}
	if !membership.IsMember() && now < target+p.GracePeriod {
		return ErrNotYetPermissionless
	}
	return nil
}

// NextNonce derives the nonce that follows a rotation landed at slot.
// The result is never zero, since zero marks an uninitialized rotator.
func NextNonce(nonce, slot uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], slot)
	h := metronome.Blake2b(buf[:])
	if n := binary.BigEndian.Uint64(h[:8]); n != 0 {
		return n
	}
	return 1
}
