// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vechain/metronome/metronome"
	"pgregory.net/rapid"
)

var self = metronome.BytesToAddress([]byte("self"))

func TestMayRotateScenario(t *testing.T) {
	state := State{LastRotationAt: 100, Nonce: 42}
	params := Params{RotationInterval: 10, GracePeriod: 10}
	outsider := NewMembership(self, []metronome.Address{workerA})
	member := NewMembership(self, []metronome.Address{workerA, self})

	assert.False(t, outsider.IsMember())
	assert.True(t, member.IsMember())
	assert.Equal(t, uint64(1), *member.CurrentPosition)

	tests := []struct {
		now        uint64
		membership Membership
		want       error
	}{
		{109, outsider, ErrTooEarly},
		{115, outsider, ErrNotYetPermissionless},
		{119, outsider, ErrNotYetPermissionless},
		{120, outsider, nil},
		{109, member, ErrTooEarly},
		{110, member, nil},
		{115, member, nil},
	}
	for _, tt := range tests {
		err := MayRotate(tt.now, state, 100, tt.membership, params)
		if tt.want == nil {
			assert.NoError(t, err, "now %d", tt.now)
		} else {
			assert.ErrorIs(t, err, tt.want, "now %d", tt.now)
			assert.True(t, IsGateError(err))
		}
	}
}

func TestMayRotateOrder(t *testing.T) {
	params := DefaultParams()
	outsider := Membership{}

	// uninitialized wins over everything else
	assert.ErrorIs(t, MayRotate(0, State{}, 0, outsider, params), ErrUninitialized)
	assert.ErrorIs(t, MayRotate(1000, State{Nonce: 0}, 100, outsider, params), ErrUninitialized)
	// no stake wins over timing
	assert.ErrorIs(t, MayRotate(0, State{Nonce: 1, LastRotationAt: 50}, 0, outsider, params), ErrNoStake)
}

func TestMayRotateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		last := rapid.Uint64Range(0, 1<<32).Draw(t, "last")
		params := Params{
			RotationInterval: rapid.Uint64Range(0, 1000).Draw(t, "interval"),
			GracePeriod:      rapid.Uint64Range(0, 1000).Draw(t, "grace"),
		}
		now := rapid.Uint64Range(0, 1<<33).Draw(t, "now")
		nonce := rapid.Uint64().Draw(t, "nonce")
		member := rapid.Bool().Draw(t, "member")

		var m Membership
		if member {
			m = NewMembership(self, []metronome.Address{self})
		}
		state := State{LastRotationAt: last, Nonce: nonce}
		err := MayRotate(now, state, 1, m, params)

		target := last + params.RotationInterval
		switch {
		case nonce == 0:
			if err != ErrUninitialized {
				t.Fatalf("want uninitialized, got %v", err)
			}
		case now < target:
			if err != ErrTooEarly {
				t.Fatalf("want too early, got %v", err)
			}
		case !member && now < target+params.GracePeriod:
			if err != ErrNotYetPermissionless {
				t.Fatalf("want not yet permissionless, got %v", err)
			}
		default:
			if err != nil {
				t.Fatalf("want ok, got %v", err)
			}
		}
	})
}

func TestNextNonce(t *testing.T) {
	a := NextNonce(1, 10)
	assert.NotZero(t, a)
	assert.Equal(t, a, NextNonce(1, 10))
	assert.NotEqual(t, a, NextNonce(1, 11))
	assert.NotEqual(t, a, NextNonce(2, 10))
}
