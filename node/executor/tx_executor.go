// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package executor

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/node/observer"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

// TxExecutor tracks queues and cranks the ones that are due.
type TxExecutor struct {
	signer *signer
	pools  *observer.PoolPositions

	lock     sync.Mutex
	queues   map[metronome.Address]*queue.Queue
	inflight map[metronome.Address]bool
}

func NewTxExecutor(signer *signer, pools *observer.PoolPositions) *TxExecutor {
	return &TxExecutor{
		signer:   signer,
		pools:    pools,
		queues:   make(map[metronome.Address]*queue.Queue),
		inflight: make(map[metronome.Address]bool),
	}
}

// HandleAccount tracks a changed queue program account.
func (e *TxExecutor) HandleAccount(acc *types.Account) error {
	if acc.Owner != queue.ProgramID && !acc.Deleted {
		return nil
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if acc.Deleted {
		delete(e.queues, acc.Address)
		return nil
	}
	var q queue.Queue
	if err := acc.Decode(queue.QueueAccount, &q); err != nil {
		return err
	}
	e.queues[acc.Address] = &q
	return nil
}

// Len returns the number of tracked queues.
func (e *TxExecutor) Len() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return len(e.queues)
}

// due picks the queues a crank at clock would advance and marks them in flight.
func (e *TxExecutor) due(clock runtime.Clock) []metronome.Address {
	e.lock.Lock()
	defer e.lock.Unlock()

	var addrs []metronome.Address
	for addr, q := range e.queues {
		if !e.inflight[addr] && q.IsDue(clock.UnixTimestamp) {
			e.inflight[addr] = true
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

func (e *TxExecutor) done(addr metronome.Address) {
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.inflight, addr)
}

// Sweep submits one crank tx per due queue and waits for their receipts.
// Nothing is submitted while this node cannot serve the crank pool.
func (e *TxExecutor) Sweep(ctx context.Context, clock runtime.Clock) {
	if !e.pools.MayServe(metronome.CrankPool) {
		return
	}

	var g errgroup.Group
	g.SetLimit(maxSweepConcurrency)
	for _, addr := range e.due(clock) {
		g.Go(func() error {
			defer e.done(addr)

			receipt, err := submit(ctx, e.signer.ledger, func() (*tx.Transaction, error) {
				return e.signer.sign(queue.Crank(e.signer.self, addr))
			})
			result := outcome(err)
			metricCranks().AddWithLabel(1, map[string]string{"result": result})
			if err != nil {
				logger.Debug("crank not applied", "queue", addr, "slot", clock.Slot, "result", result, "err", err)
				return nil
			}
			logger.Debug("queue cranked", "queue", addr, "slot", receipt.Slot, "hops", receipt.Hops)
			return nil
		})
	}
	_ = g.Wait()
}
