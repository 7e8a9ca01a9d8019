// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts lookups of a cache.
type Stats struct {
	hit, miss atomic.Int64
	// hit rate in permille as of the last Stats call
	reported atomic.Int32
}

func (s *Stats) Hit() int64  { return s.hit.Add(1) }
func (s *Stats) Miss() int64 { return s.miss.Add(1) }

// HitRate returns hits over lookups, 0 before the first lookup.
func (s *Stats) HitRate() float64 {
	hit, miss := s.hit.Load(), s.miss.Load()
	if hit+miss == 0 {
		return 0
	}
	return float64(hit) / float64(hit+miss)
}

// Stats returns the counters and whether the permille hit rate differs from
// the one seen by the previous call, so callers can log only on change.
func (s *Stats) Stats() (changed bool, hit, miss int64) {
	hit, miss = s.hit.Load(), s.miss.Load()
	var permille int32
	if total := hit + miss; total > 0 {
		permille = int32(hit * 1000 / total)
	}
	return s.reported.Swap(permille) != permille, hit, miss
}
