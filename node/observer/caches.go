// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observer

import (
	"slices"
	"sync"

	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/rotation"
)

// The caches below are advisory copies of ledger accounts. Each is guarded by
// one RWMutex which is only held while copying values in or out, never across
// a ledger round trip.

// SnapshotCache holds the current stake snapshot and its entries.
type SnapshotCache struct {
	lock     sync.RWMutex
	snapshot *network.Snapshot
	entries  []rotation.Entry
}

// Get returns copies of the cached snapshot and entries, nil when nothing is cached.
func (c *SnapshotCache) Get() (*network.Snapshot, []rotation.Entry) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.snapshot == nil {
		return nil, nil
	}
	s := *c.snapshot
	return &s, slices.Clone(c.entries)
}

// ID returns the id of the cached snapshot.
func (c *SnapshotCache) ID() (uint64, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.snapshot == nil {
		return 0, false
	}
	return c.snapshot.ID, true
}

// Install replaces the cached snapshot unless a newer one is already cached.
// It reports whether the cache changed.
func (c *SnapshotCache) Install(snapshot *network.Snapshot, entries []rotation.Entry) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.snapshot != nil && c.snapshot.ID > snapshot.ID {
		return false
	}
	s := *snapshot
	c.snapshot = &s
	c.entries = slices.Clone(entries)
	return true
}

// RotatorCache holds the rotation counter.
type RotatorCache struct {
	lock  sync.RWMutex
	state *rotation.State
}

func (c *RotatorCache) Get() (rotation.State, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.state == nil {
		return rotation.State{}, false
	}
	s := *c.state
	s.PoolAddresses = slices.Clone(s.PoolAddresses)
	return s, true
}

func (c *RotatorCache) Set(state rotation.State) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.state = &state
}

// PoolPositions holds this node's membership in every known worker pool.
type PoolPositions struct {
	lock   sync.RWMutex
	self   metronome.Address
	pools  map[metronome.Address]rotation.Membership
	byName map[string]metronome.Address
}

func NewPoolPositions(self metronome.Address) *PoolPositions {
	return &PoolPositions{
		self:   self,
		pools:  make(map[metronome.Address]rotation.Membership),
		byName: make(map[string]metronome.Address),
	}
}

// Update recomputes the membership of the pool at addr.
func (p *PoolPositions) Update(addr metronome.Address, pool *network.Pool) {
	m := rotation.NewMembership(p.self, slices.Clone(pool.Workers))

	p.lock.Lock()
	defer p.lock.Unlock()

	p.pools[addr] = m
	p.byName[pool.Name] = addr
}

// Get returns the membership of the named pool.
func (p *PoolPositions) Get(name string) (rotation.Membership, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	addr, ok := p.byName[name]
	if !ok {
		return rotation.Membership{}, false
	}
	m := p.pools[addr]
	m.Workers = slices.Clone(m.Workers)
	return m, true
}

// IsMember reports whether this node holds a position in the named pool.
func (p *PoolPositions) IsMember(name string) bool {
	m, ok := p.Get(name)
	return ok && m.IsMember()
}

// Combined returns this node's membership over the union of the given pools,
// the way the ledger checks it when a rotation lands. A seat in any rotated
// pool counts, not only one in the crank pool: every pool in addrs rotates
// in the same tx.
func (p *PoolPositions) Combined(addrs []metronome.Address) rotation.Membership {
	p.lock.RLock()
	defer p.lock.RUnlock()

	var workers []metronome.Address
	for _, addr := range addrs {
		workers = append(workers, p.pools[addr].Workers...)
	}
	return rotation.NewMembership(p.self, workers)
}

// MayServe reports whether the ledger would let this node work for the named
// pool: a missing or empty pool admits any worker.
func (p *PoolPositions) MayServe(name string) bool {
	m, ok := p.Get(name)
	return !ok || len(m.Workers) == 0 || m.IsMember()
}
