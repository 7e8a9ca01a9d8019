// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package co holds small goroutine helpers shared by the node and the solo ledger.
package co

import (
	"sync"
)

// Goes tracks a set of goroutines.
type Goes struct {
	wg sync.WaitGroup
}

// Go starts f in a new goroutine.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every started routine returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done is closed once every routine started so far has returned.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	return done
}
