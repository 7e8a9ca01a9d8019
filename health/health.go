// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

// delayBuffer tolerates slots arriving late before the process is reported unhealthy.
const delayBuffer = 5 * time.Second

type SlotIngestion struct {
	Slot      uint64     `json:"slot"`
	Timestamp *time.Time `json:"timestamp"`
}

type Status struct {
	Healthy       bool           `json:"healthy"`
	SlotIngestion *SlotIngestion `json:"slotIngestion"`
	Bootstrapped  bool           `json:"bootstrapped"`
}

// Health tracks slot ingestion. The process is healthy once bootstrapped and while
// slots keep arriving within the slot interval plus a buffer.
type Health struct {
	lock         sync.RWMutex
	newSlot      time.Time
	slot         uint64
	bootstrapped bool
	slotInterval time.Duration
}

func New(slotInterval time.Duration) *Health {
	return &Health{slotInterval: slotInterval}
}

func (h *Health) NewSlot(slot uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newSlot = time.Now()
	h.slot = slot
}

func (h *Health) BootstrapStatus(bootstrapped bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.bootstrapped = bootstrapped
}

func (h *Health) Status() (*Status, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	ts := h.newSlot
	healthy := time.Since(h.newSlot) <= h.slotInterval+delayBuffer && h.bootstrapped

	return &Status{
		Healthy: healthy,
		SlotIngestion: &SlotIngestion{
			Slot:      h.slot,
			Timestamp: &ts,
		},
		Bootstrapped: h.bootstrapped,
	}, nil
}
