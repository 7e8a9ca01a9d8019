// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/runtime"
)

// Instruction names.
const (
	IxCreate = "queue_create"
	IxUpdate = "queue_update"
	IxFund   = "queue_fund"
	IxPause  = "queue_pause"
	IxResume = "queue_resume"
	IxClose  = "queue_close"
	IxCrank  = "queue_crank"
)

// Settings are the parameters of a queue.
type Settings struct {
	Schedule  string
	RateLimit uint64
}

type createArgs struct {
	ID               string
	FirstInstruction runtime.Instruction
	Settings         Settings
}

type fundArgs struct {
	Amount uint64
}

// Create creates queue id owned by authority, running first on schedule.
func Create(authority metronome.Address, id string, first *runtime.Instruction, settings Settings) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxCreate, &createArgs{ID: id, FirstInstruction: *first, Settings: settings},
		runtime.Signer(authority),
		runtime.Writable(QueueAddress(authority, id)),
	)
}

// Update changes the schedule or rate limit of a queue. Zero settings keep their value.
func Update(authority, queue metronome.Address, settings Settings) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxUpdate, &settings,
		runtime.Signer(authority),
		runtime.Writable(queue),
	)
}

// Fund moves amount from funder into the queue to pay crank fees.
func Fund(funder, queue metronome.Address, amount uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxFund, &fundArgs{Amount: amount},
		runtime.Signer(funder),
		runtime.Writable(queue),
	)
}

// Pause stops a queue from being cranked.
func Pause(authority, queue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxPause, nil,
		runtime.Signer(authority),
		runtime.Writable(queue),
	)
}

// Resume reactivates a paused queue and rearms its schedule.
func Resume(authority, queue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxResume, nil,
		runtime.Signer(authority),
		runtime.Writable(queue),
	)
}

// Close deletes a queue and refunds its balance to the authority.
func Close(authority, queue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxClose, nil,
		runtime.Signer(authority),
		runtime.Writable(queue),
	)
}

// Crank runs the queue's chain as far as its rate limit allows, paying worker
// the crank fee per executed hop.
func Crank(worker, queue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxCrank, nil,
		runtime.Signer(worker),
		runtime.Writable(queue),
		runtime.Readonly(network.ConfigAddress),
		runtime.Readonly(network.PoolAddress(metronome.CrankPool)),
	)
}
