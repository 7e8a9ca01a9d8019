// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package queue is the ledger program running recurring chained tasks.
//
// A queue holds the first instruction of its task. When the queue is due a
// worker cranks it: the first instruction runs and every instruction it
// returns runs after it, each hop atomic, until the chain is done or the
// queue's per-slot rate limit is hit. The queue remembers where the chain
// stopped and the next crank resumes from there.
package queue

import (
	"errors"

	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidQueue    = errors.New("invalid queue")
	ErrQueuePaused     = errors.New("queue paused")
	ErrNotDue          = errors.New("queue not due")
	ErrNotInPool       = errors.New("worker not in crank pool")
)

// New returns the queue program.
func New() *runtime.Dispatcher {
	d := runtime.NewDispatcher(ProgramID)
	d.Handle(IxCreate, handleCreate)
	d.Handle(IxUpdate, handleUpdate)
	d.Handle(IxFund, handleFund)
	d.Handle(IxPause, handlePause)
	d.Handle(IxResume, handleResume)
	d.Handle(IxClose, handleClose)
	d.Handle(IxCrank, handleCrank)
	return d
}

func handleCreate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args createArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	authority, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return nil, err
	}
	if args.ID == "" {
		return nil, ErrInvalidQueue
	}
	execAt, err := NextExecAt(args.Settings.Schedule, ctx.Clock().UnixTimestamp)
	if err != nil {
		return nil, err
	}
	rateLimit := args.Settings.RateLimit
	if rateLimit == 0 {
		rateLimit = metronome.DefaultRateLimit
	}
	q := &Queue{
		Authority:        authority,
		ID:               args.ID,
		FirstInstruction: args.FirstInstruction,
		Schedule:         args.Settings.Schedule,
		ExecAt:           execAt,
		RateLimit:        rateLimit,
		Status:           Active,
	}
	return runtime.Done(), ctx.Create(q.Address(), authority, QueueAccount, q)
}

// loadOwnedQueue loads the queue at account #1 and checks account #0 is its signing authority.
func loadOwnedQueue(ctx *runtime.Context, ix *runtime.Instruction) (*Queue, error) {
	authority, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(authority); err != nil {
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
	if q.Authority != authority {
		return nil, ErrUnauthorized
	}
	return &q, nil
}

func handleUpdate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var settings Settings
	if err := ix.DecodeArgs(&settings); err != nil {
		return nil, err
	}
	q, err := loadOwnedQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	if settings.RateLimit != 0 {
		q.RateLimit = settings.RateLimit
	}
	if settings.Schedule != "" {
		if q.ExecAt, err = NextExecAt(settings.Schedule, ctx.Clock().UnixTimestamp); err != nil {
			return nil, err
		}
		q.Schedule = settings.Schedule
	}
	return runtime.Done(), ctx.Store(q.Address(), QueueAccount, q)
}

func handleFund(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args fundArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	funder, err := ix.Account(0)
	if err != nil {
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
	return runtime.Done(), ctx.Transfer(funder, addr, args.Amount)
}

func handlePause(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	q, err := loadOwnedQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	q.Status = Paused
	return runtime.Done(), ctx.Store(q.Address(), QueueAccount, q)
}

func handleResume(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	q, err := loadOwnedQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	if !q.InFlight() {
		if q.ExecAt, err = NextExecAt(q.Schedule, ctx.Clock().UnixTimestamp); err != nil {
			return nil, err
		}
	}
	q.Status = Active
	return runtime.Done(), ctx.Store(q.Address(), QueueAccount, q)
}

func handleClose(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	q, err := loadOwnedQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	return runtime.Done(), ctx.Close(q.Address(), q.Authority)
}
