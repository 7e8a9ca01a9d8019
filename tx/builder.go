// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// Builder to make it easy to build transaction.
type Builder struct {
	body body
}

// NewBuilder returns a builder for a tx paid by feePayer.
func NewBuilder(feePayer metronome.Address) *Builder {
	return &Builder{body: body{FeePayer: feePayer}}
}

// ReferenceHash sets the reference hash.
func (b *Builder) ReferenceHash(h metronome.Bytes32) *Builder {
	b.body.ReferenceHash = h
	return b
}

// Instruction appends instructions.
func (b *Builder) Instruction(ixs ...*runtime.Instruction) *Builder {
	b.body.Instructions = append(b.body.Instructions, ixs...)
	return b
}

// Build build tx object.
func (b *Builder) Build() *Transaction {
	body := b.body
	body.Instructions = append([]*runtime.Instruction(nil), b.body.Instructions...)
	return &Transaction{body: body}
}
