// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
)

// Account is a ledger account. Key holder accounts have a zero Owner,
// program accounts are owned by the program that created them.
type Account struct {
	Owner   metronome.Address
	Balance uint64
	Data    []byte
}

// AccountChange is an account as committed at Slot. Account is nil when the account was deleted.
type AccountChange struct {
	Address metronome.Address
	Account *Account
	Slot    uint64
	// owner of a deleted account before it went away
	PrevOwner metronome.Address
}

// Owner returns the owner of the account, or the last one if it was deleted.
func (c *AccountChange) Owner() metronome.Address {
	if c.Account == nil {
		return c.PrevOwner
	}
	return c.Account.Owner
}

// Copy returns a deep copy.
func (a *Account) Copy() *Account {
	cpy := *a
	cpy.Data = bytes.Clone(a.Data)
	return &cpy
}

// EncodeAccountData serializes v behind the account discriminator of name.
func EncodeAccountData(name string, v any) ([]byte, error) {
	disc := metronome.AccountDiscriminator(name)
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", name)
	}
	return append(disc[:], enc...), nil
}

// DecodeAccountData parses account data written by EncodeAccountData.
// Any mismatch is reported as ErrDeserialization.
func DecodeAccountData(name string, data []byte, out any) error {
	disc := metronome.AccountDiscriminator(name)
	if len(data) < len(disc) || !bytes.Equal(data[:len(disc)], disc[:]) {
		return errors.WithMessagef(ErrDeserialization, "expected %s discriminator", name)
	}
	if err := rlp.DecodeBytes(data[len(disc):], out); err != nil {
		return errors.WithMessagef(ErrDeserialization, "decode %s: %v", name, err)
	}
	return nil
}
