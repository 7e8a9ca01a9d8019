// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// ProgramID is the address of the queue program.
var ProgramID = metronome.BytesToAddress([]byte("queue"))

// QueueAccount is the account type name of a queue.
const QueueAccount = "queue"

// seeds derive the program address of a queue, which also signs its chains.
func seeds(authority metronome.Address, id string) [][]byte {
	return [][]byte{[]byte(QueueAccount), authority.Bytes(), []byte(id)}
}

// QueueAddress returns the address of queue id created by authority.
func QueueAddress(authority metronome.Address, id string) metronome.Address {
	return metronome.ProgramAddress(ProgramID, seeds(authority, id)...)
}

// Status of a queue.
type Status uint8

const (
	Active Status = iota
	Paused
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// ExecContext meters the hops run within one slot.
type ExecContext struct {
	Slot   uint64
	Cranks uint64
}

// Queue is a recurring chained task. NextInstruction is the program counter:
// non-nil while a chain is in flight.
type Queue struct {
	Authority        metronome.Address
	ID               string
	FirstInstruction runtime.Instruction
	NextInstruction  *runtime.Instruction `rlp:"nil"`
	Schedule         string
	ExecAt           uint64 // unix seconds
	RateLimit        uint64
	ExecContext      ExecContext
	Status           Status
}

// Address returns the account address of the queue.
func (q *Queue) Address() metronome.Address {
	return QueueAddress(q.Authority, q.ID)
}

// InFlight reports whether a chain is in progress.
func (q *Queue) InFlight() bool {
	return q.NextInstruction != nil
}

// IsDue reports whether a crank at unix would be accepted by the program.
func (q *Queue) IsDue(unix int64) bool {
	if q.Status != Active {
		return false
	}
	return q.InFlight() || (unix >= 0 && q.ExecAt <= uint64(unix))
}
