// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
)

// AccountMeta names an account an instruction touches.
type AccountMeta struct {
	Address  metronome.Address `json:"address"`
	Signer   bool              `json:"signer"`
	Writable bool              `json:"writable"`
}

// Writable returns a meta for an account the instruction may modify.
func Writable(addr metronome.Address) AccountMeta {
	return AccountMeta{Address: addr, Writable: true}
}

// Readonly returns a meta for an account the instruction only reads.
func Readonly(addr metronome.Address) AccountMeta {
	return AccountMeta{Address: addr}
}

// Signer returns a meta for a signing account. Signers are always writable.
func Signer(addr metronome.Address) AccountMeta {
	return AccountMeta{Address: addr, Signer: true, Writable: true}
}

// Instruction is a call into a program. Data is the 8 byte instruction
// discriminator followed by the RLP encoded arguments.
type Instruction struct {
	ProgramID metronome.Address `json:"programId"`
	Accounts  []AccountMeta     `json:"accounts"`
	Data      []byte            `json:"data"`
}

// NewInstruction encodes args for the instruction name of program.
func NewInstruction(program metronome.Address, name string, args any, accounts ...AccountMeta) (*Instruction, error) {
	disc := metronome.Sighash(name)
	data := disc[:]
	if args != nil {
		enc, err := rlp.EncodeToBytes(args)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s args", name)
		}
		data = append(data, enc...)
	}
	return &Instruction{ProgramID: program, Accounts: accounts, Data: data}, nil
}

// MustNewInstruction is NewInstruction that panics on encoding failure.
func MustNewInstruction(program metronome.Address, name string, args any, accounts ...AccountMeta) *Instruction {
	ix, err := NewInstruction(program, name, args, accounts...)
	if err != nil {
		panic(err)
	}
	return ix
}

// Discriminator returns the instruction discriminator.
func (ix *Instruction) Discriminator() (d metronome.Discriminator, err error) {
	if len(ix.Data) < metronome.DiscriminatorLength {
		return d, ErrInvalidInstruction
	}
	copy(d[:], ix.Data)
	return d, nil
}

// DecodeArgs decodes the RLP encoded arguments into out.
func (ix *Instruction) DecodeArgs(out any) error {
	if len(ix.Data) < metronome.DiscriminatorLength {
		return ErrInvalidInstruction
	}
	if err := rlp.DecodeBytes(ix.Data[metronome.DiscriminatorLength:], out); err != nil {
		return errors.Wrap(ErrInvalidInstruction, err.Error())
	}
	return nil
}

// Account returns the address of the i-th account meta.
func (ix *Instruction) Account(i int) (metronome.Address, error) {
	if i < 0 || i >= len(ix.Accounts) {
		return metronome.Address{}, errors.Wrapf(ErrInvalidInstruction, "missing account #%d", i)
	}
	return ix.Accounts[i].Address, nil
}

// CrankResponse is what every step returns: a nil NextInstruction means the
// chain is done, otherwise the host runs NextInstruction right away.
type CrankResponse struct {
	NextInstruction *Instruction
	// Hops is the number of chain hops the step committed, set by steps that run chains.
	Hops int
}

// Done ends a chain.
func Done() *CrankResponse {
	return &CrankResponse{}
}

// Continue chains next after the current step.
func Continue(next *Instruction) *CrankResponse {
	return &CrankResponse{NextInstruction: next}
}

// Done reports whether the chain ends with this step.
func (r *CrankResponse) Done() bool {
	return r == nil || r.NextInstruction == nil
}
