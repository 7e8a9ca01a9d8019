// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vechain/metronome/metrics"
	"github.com/vechain/metronome/metronome"
)

var (
	metricHops        = metrics.LazyLoadCounter("chain_hops_total")
	metricRateLimited = metrics.LazyLoadCounter("chain_rate_limited_total")
)

// Host owns the registered programs and executes instructions against a State.
type Host struct {
	mu       sync.RWMutex
	programs map[metronome.Address]Program
}

// NewHost creates a host with the given programs.
func NewHost(programs ...Program) *Host {
	h := &Host{programs: make(map[metronome.Address]Program)}
	for _, p := range programs {
		h.Register(p)
	}
	return h
}

// Register adds p, replacing any program with the same ID.
func (h *Host) Register(p Program) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.programs[p.ID()] = p
}

// Program returns the program registered under id.
func (h *Host) Program(id metronome.Address) (Program, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.programs[id]
	return p, ok
}

// Execute runs a top level instruction signed by signers. On failure every change
// of the instruction is rolled back, except for chains that halted with committed
// hops, whose progress is kept and reported through a HaltError.
func (h *Host) Execute(state *State, clock Clock, ix *Instruction, signers ...metronome.Address) (*CrankResponse, error) {
	set := make(map[metronome.Address]bool, len(signers))
	for _, s := range signers {
		set[s] = true
	}

	rev := state.Checkpoint()
	resp, err := h.invoke(state, clock, ix, set, 0)
	if err != nil {
		var halt *HaltError
		if !errors.As(err, &halt) || halt.Hops == 0 {
			state.RevertTo(rev)
		}
		return nil, err
	}
	return resp, nil
}

func (h *Host) invoke(state *State, clock Clock, ix *Instruction, signers map[metronome.Address]bool, depth int) (*CrankResponse, error) {
	p, ok := h.Program(ix.ProgramID)
	if !ok {
		return nil, errors.Wrap(ErrUnknownProgram, ix.ProgramID.String())
	}
	ctx := newContext(h, state, clock, ix, signers, depth)

	rev := state.Checkpoint()
	resp, err := p.Execute(ctx, ix)
	if err != nil {
		var halt *HaltError
		if !errors.As(err, &halt) || halt.Hops == 0 {
			state.RevertTo(rev)
		}
		return nil, err
	}
	return resp, nil
}
