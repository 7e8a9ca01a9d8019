// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package executor turns every confirmed slot into independent units of work on
// a shared worker pool: one rotation attempt, one crank sweep and one webhook sweep.
package executor

import (
	"context"
	"crypto/ecdsa"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metrics"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/node/observer"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

var (
	logger = log.WithContext("pkg", "executor")

	metricSlots     = metrics.LazyLoadCounter("executor_slots_total")
	metricRotations = metrics.LazyLoadCounterVec("executor_rotations_total", []string{"result"})
	metricCranks    = metrics.LazyLoadCounterVec("executor_cranks_total", []string{"result"})
	metricWebhooks  = metrics.LazyLoadCounterVec("executor_webhooks_total", []string{"result"})
	metricQueued    = metrics.LazyLoadGauge("executor_waiting_tasks")
)

// maxSweepConcurrency caps the txs or deliveries a single sweep has in flight.
const maxSweepConcurrency = 16

// DefaultTaskTimeout bounds one unit of work: past the reference age no tx it
// signed can land anyway.
var DefaultTaskTimeout = time.Duration(metronome.MaxReferenceAge) * metronome.SlotInterval

// slotGuard lets one unit of a kind start per slot.
type slotGuard struct {
	last atomic.Uint64
}

// enter reports whether slot is newer than every slot entered before.
func (g *slotGuard) enter(slot uint64) bool {
	for {
		last := g.last.Load()
		if slot <= last {
			return false
		}
		if g.last.CompareAndSwap(last, slot) {
			return true
		}
	}
}

type Options struct {
	Workers     int
	TaskTimeout time.Duration
}

// Executors is the slot dispatcher.
type Executors struct {
	observer *observer.PoolObserver
	txs      *TxExecutor
	webhooks *WebhookExecutor
	ledger   Ledger
	pool     *workerpool.WorkerPool
	timeout  time.Duration

	rotations, cranks, deliveries slotGuard
}

func New(ledger Ledger, key *ecdsa.PrivateKey, obs *observer.PoolObserver, dispatcher delivery.Dispatcher, opts Options) *Executors {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	s := newSigner(ledger, key)
	return &Executors{
		observer: obs,
		txs:      NewTxExecutor(s, obs.Pools()),
		webhooks: NewWebhookExecutor(s, obs.Pools(), dispatcher),
		ledger:   ledger,
		pool:     workerpool.New(opts.Workers),
		timeout:  opts.TaskTimeout,
	}
}

func (e *Executors) Txs() *TxExecutor {
	return e.txs
}

func (e *Executors) Webhooks() *WebhookExecutor {
	return e.webhooks
}

// HandleConfirmedSlot schedules the work of a newly confirmed slot and returns
// without waiting for it. Work of earlier slots may still be running.
func (e *Executors) HandleConfirmedSlot(ctx context.Context, clock runtime.Clock) {
	metricSlots().Add(1)

	if e.rotations.enter(clock.Slot) {
		e.submit(ctx, func(ctx context.Context) { e.rotate(ctx, clock.Slot) })
	}
	if e.cranks.enter(clock.Slot) {
		e.submit(ctx, func(ctx context.Context) { e.txs.Sweep(ctx, clock) })
	}
	if e.deliveries.enter(clock.Slot) {
		e.submit(ctx, func(ctx context.Context) { e.webhooks.Sweep(ctx, clock) })
	}
	metricQueued().Set(int64(e.pool.WaitingQueueSize()))
}

func (e *Executors) submit(ctx context.Context, f func(ctx context.Context)) {
	e.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		f(ctx)
	})
}

// rotate submits a rotation if the observer allows one at slot.
func (e *Executors) rotate(ctx context.Context, slot uint64) {
	receipt, err := submit(ctx, e.ledger, func() (*tx.Transaction, error) {
		return e.observer.BuildRotationTx(slot)
	})
	switch {
	case rotation.IsGateError(err):
		logger.Trace("no rotation", "slot", slot, "reason", err)
		return
	case rotation.IsSelectionError(err):
		metricRotations().AddWithLabel(1, map[string]string{"result": "unselectable"})
		logger.Warn("unable to select worker", "slot", slot, "err", err)
		return
	}

	result := outcome(err)
	metricRotations().AddWithLabel(1, map[string]string{"result": result})
	if err != nil {
		// a rejected rotation usually lost the race to another node
		logger.Debug("rotation not applied", "slot", slot, "result", result, "err", err)
		return
	}
	logger.Info("pools rotated", "slot", receipt.Slot)
}

// Stop waits for the scheduled work to finish.
func (e *Executors) Stop() {
	e.pool.StopWait()
}
