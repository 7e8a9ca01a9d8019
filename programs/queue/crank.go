// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/runtime"
)

// crankBudget allows RateLimit hops per slot and settles every committed hop:
// the program counter moves forward and the worker is paid.
type crankBudget struct {
	queue  *Queue
	worker metronome.Address
	fee    uint64
}

func (b *crankBudget) Allow() bool {
	return b.queue.ExecContext.Cranks < b.queue.RateLimit
}

func (b *crankBudget) Committed(ctx *runtime.Context, next *runtime.Instruction) error {
	q := b.queue
	q.NextInstruction = next
	q.ExecContext.Cranks++
	if next == nil && q.Schedule == "" {
		// one-shot tasks stop after their chain completes
		q.Status = Paused
	}
	addr := q.Address()
	if err := ctx.Store(addr, QueueAccount, q); err != nil {
		return err
	}
	return ctx.Transfer(addr, b.worker, b.fee)
}

// requireCrankWorker checks worker holds a crank pool seat. An empty or missing
// crank pool admits any worker, otherwise the network could never crank its
// first snapshot.
func requireCrankWorker(ctx *runtime.Context, worker metronome.Address) error {
	addr := network.PoolAddress(metronome.CrankPool)
	exists, err := ctx.Exists(addr)
	if err != nil || !exists {
		return err
	}
	var pool network.Pool
	if err := ctx.LoadFrom(network.ProgramID, addr, network.PoolAccount, &pool); err != nil {
		return err
	}
	if len(pool.Workers) > 0 && !pool.Contains(worker) {
		return errors.Wrapf(ErrNotInPool, "%v", worker)
	}
	return nil
}

func handleCrank(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	worker, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(worker); err != nil {
		return nil, err
	}
	if err := requireCrankWorker(ctx, worker); err != nil {
		return nil, err
	}
	var config network.Config
	if err := ctx.LoadFrom(network.ProgramID, network.ConfigAddress, network.ConfigAccount, &config); err != nil {
		return nil, err
	}

	addr, err := ix.Account(1)
	if err != nil {
		return nil, err
	}
	var q Queue
	if err := ctx.Load(addr, QueueAccount, &q); err != nil {
		return nil, err
	}
	if q.Address() != addr {
		return nil, ErrInvalidQueue
	}
	if q.Status != Active {
		return nil, ErrQueuePaused
	}

	clock := ctx.Clock()
	first := q.NextInstruction
	if first == nil {
		if !q.IsDue(clock.UnixTimestamp) {
			return nil, errors.Wrapf(ErrNotDue, "exec at %d", q.ExecAt)
		}
		fi := q.FirstInstruction
		first = &fi
		if q.Schedule != "" {
			if q.ExecAt, err = NextExecAt(q.Schedule, clock.UnixTimestamp); err != nil {
				return nil, err
			}
		}
	}
	if q.ExecContext.Slot != clock.Slot {
		q.ExecContext = ExecContext{Slot: clock.Slot}
	}

	budget := &crankBudget{queue: &q, worker: worker, fee: config.CrankFee}
	hops, err := ctx.RunChain(first, budget, addr, seeds(q.Authority, q.ID)...)
	if err != nil {
		if hops > 0 {
			return nil, &runtime.HaltError{Hops: hops, Err: err}
		}
		return nil, err
	}
	return &runtime.CrankResponse{Hops: hops}, nil
}
