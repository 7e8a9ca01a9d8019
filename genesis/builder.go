// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

type call struct {
	ix      *runtime.Instruction
	signers []metronome.Address
}

// Builder helper to build genesis state.
type Builder struct {
	timestamp int64
	stateProc []func(state *runtime.State) error
	calls     []call
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t int64) *Builder {
	b.timestamp = t
	return b
}

// State add a state process
func (b *Builder) State(proc func(state *runtime.State) error) *Builder {
	b.stateProc = append(b.stateProc, proc)
	return b
}

// Call add an instruction executed with the given signatures trusted.
func (b *Builder) Call(ix *runtime.Instruction, signers ...metronome.Address) *Builder {
	b.calls = append(b.calls, call{ix, signers})
	return b
}

// Clock returns the clock of the genesis slot.
func (b *Builder) Clock() runtime.Clock {
	return runtime.Clock{Slot: 0, UnixTimestamp: b.timestamp}
}

// Build runs the state processes and calls on state and commits the result.
func (b *Builder) Build(state *runtime.State, host *runtime.Host) ([]metronome.Address, error) {
	for _, proc := range b.stateProc {
		if err := proc(state); err != nil {
			return nil, errors.Wrap(err, "state process")
		}
	}
	clock := b.Clock()
	for i, c := range b.calls {
		if _, err := host.Execute(state, clock, c.ix, c.signers...); err != nil {
			return nil, errors.Wrapf(err, "genesis call #%d", i)
		}
	}
	return state.Commit()
}
