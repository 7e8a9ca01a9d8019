// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx defines the signed transaction carrying instructions to the ledger.
package tx

import (
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

var (
	ErrStaleReference   = errors.New("stale reference hash")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNoInstructions   = errors.New("no instructions")
)

// Transaction is an immutable tx type.
type Transaction struct {
	body body

	cache struct {
		signingHash atomic.Pointer[metronome.Bytes32]
		id          atomic.Pointer[metronome.Bytes32]
		origin      atomic.Pointer[metronome.Address]
	}
}

// body describes details of a tx.
type body struct {
	ReferenceHash metronome.Bytes32
	FeePayer      metronome.Address
	Instructions  []*runtime.Instruction
	Signature     []byte
}

// ReferenceHash returns the recent reference hash the tx was built against.
// The ledger rejects the tx once the reference is older than MaxReferenceAge slots.
func (t *Transaction) ReferenceHash() metronome.Bytes32 {
	return t.body.ReferenceHash
}

// FeePayer returns the account charged the tx fee. It must be the signer.
func (t *Transaction) FeePayer() metronome.Address {
	return t.body.FeePayer
}

// Instructions returns a copy of the instructions.
func (t *Transaction) Instructions() []*runtime.Instruction {
	ixs := make([]*runtime.Instruction, len(t.body.Instructions))
	for i, ix := range t.body.Instructions {
		cpy := *ix
		cpy.Accounts = append([]runtime.AccountMeta(nil), ix.Accounts...)
		cpy.Data = append([]byte(nil), ix.Data...)
		ixs[i] = &cpy
	}
	return ixs
}

// Signature returns signature.
func (t *Transaction) Signature() []byte {
	return append([]byte(nil), t.body.Signature...)
}

// SigningHash returns hash of tx excludes signature.
func (t *Transaction) SigningHash() metronome.Bytes32 {
	if cached := t.cache.signingHash.Load(); cached != nil {
		return *cached
	}
	h := metronome.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, []any{
			t.body.ReferenceHash,
			t.body.FeePayer,
			t.body.Instructions,
		})
	})
	t.cache.signingHash.Store(&h)
	return h
}

// ID returns the id of the tx, which commits to the signature.
func (t *Transaction) ID() metronome.Bytes32 {
	if cached := t.cache.id.Load(); cached != nil {
		return *cached
	}
	h := metronome.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, &t.body)
	})
	t.cache.id.Store(&h)
	return h
}

// Origin recovers the signer of the tx.
func (t *Transaction) Origin() (metronome.Address, error) {
	if cached := t.cache.origin.Load(); cached != nil {
		return *cached, nil
	}
	if len(t.body.Signature) != crypto.SignatureLength {
		return metronome.Address{}, errors.Wrap(ErrInvalidSignature, "bad length")
	}
	hash := t.SigningHash()
	pub, err := crypto.SigToPub(hash.Bytes(), t.body.Signature)
	if err != nil {
		return metronome.Address{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	origin := metronome.Address(crypto.PubkeyToAddress(*pub))
	t.cache.origin.Store(&origin)
	return origin, nil
}

// Validate checks the tx is well formed and signed by its fee payer.
func (t *Transaction) Validate() error {
	if len(t.body.Instructions) == 0 {
		return ErrNoInstructions
	}
	origin, err := t.Origin()
	if err != nil {
		return err
	}
	if origin != t.body.FeePayer {
		return errors.Wrapf(ErrInvalidSignature, "signed by %v, fee payer %v", origin, t.body.FeePayer)
	}
	return nil
}

// WithSignature create a new tx with signature set.
func (t *Transaction) WithSignature(sig []byte) *Transaction {
	newTx := Transaction{body: t.body}
	newTx.body.Signature = append([]byte(nil), sig...)
	return &newTx
}

// EncodeRLP implements rlp.Encoder
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var body body
	if err := s.Decode(&body); err != nil {
		return err
	}
	*t = Transaction{body: body}
	return nil
}

// MarshalBinary returns the canonical encoding of the transaction.
func (t *Transaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(t)
}

// UnmarshalBinary decodes the canonical encoding of transactions.
func (t *Transaction) UnmarshalBinary(b []byte) error {
	return rlp.DecodeBytes(b, t)
}
