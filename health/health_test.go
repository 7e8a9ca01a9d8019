// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_NewSlot(t *testing.T) {
	h := New(time.Second)

	h.NewSlot(7)
	assert.Equal(t, uint64(7), h.slot)
	assert.WithinDuration(t, time.Now(), h.newSlot, time.Second)

	h.BootstrapStatus(true)

	status, err := h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(7), status.SlotIngestion.Slot)
}

func TestHealth_NotBootstrapped(t *testing.T) {
	h := New(time.Second)
	h.NewSlot(1)

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.False(t, status.Bootstrapped)
}

func TestHealth_Stale(t *testing.T) {
	h := New(time.Second)
	h.BootstrapStatus(true)
	h.NewSlot(1)
	h.newSlot = time.Now().Add(-time.Minute)

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.True(t, status.Bootstrapped)
}
