// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
)

// Clock is the ledger time visible to programs.
type Clock struct {
	Slot          uint64 `json:"slot"`
	Epoch         uint64 `json:"epoch"`
	UnixTimestamp int64  `json:"unixTimestamp"`
}

// Program executes instructions addressed to its ID.
type Program interface {
	ID() metronome.Address
	Execute(ctx *Context, ix *Instruction) (*CrankResponse, error)
}

// Handler executes one instruction kind.
type Handler func(ctx *Context, ix *Instruction) (*CrankResponse, error)

// Dispatcher is a Program routing instructions by discriminator.
type Dispatcher struct {
	id       metronome.Address
	handlers map[metronome.Discriminator]Handler
	names    map[metronome.Discriminator]string
}

// NewDispatcher creates an empty dispatcher for program id.
func NewDispatcher(id metronome.Address) *Dispatcher {
	return &Dispatcher{
		id:       id,
		handlers: make(map[metronome.Discriminator]Handler),
		names:    make(map[metronome.Discriminator]string),
	}
}

// Handle registers h for the instruction called name.
func (d *Dispatcher) Handle(name string, h Handler) {
	disc := metronome.Sighash(name)
	d.handlers[disc] = h
	d.names[disc] = name
}

// ID implements Program.
func (d *Dispatcher) ID() metronome.Address { return d.id }

// Name returns the registered name of ix, or "" when unknown.
func (d *Dispatcher) Name(ix *Instruction) string {
	disc, err := ix.Discriminator()
	if err != nil {
		return ""
	}
	return d.names[disc]
}

// Execute implements Program.
func (d *Dispatcher) Execute(ctx *Context, ix *Instruction) (*CrankResponse, error) {
	disc, err := ix.Discriminator()
	if err != nil {
		return nil, err
	}
	h, ok := d.handlers[disc]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownInstruction, "%x", disc)
	}
	resp, err := h(ctx, ix)
	if err != nil {
		return nil, errors.WithMessage(err, d.names[disc])
	}
	if resp == nil {
		resp = Done()
	}
	return resp, nil
}
