// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package types holds the JSON bodies exchanged by the ledger API and its clients.
package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// Account is a ledger account at Slot. Deleted is set on change notifications
// of closed accounts.
type Account struct {
	Address metronome.Address `json:"address"`
	Owner   metronome.Address `json:"owner"`
	Balance uint64            `json:"balance"`
	Data    hexutil.Bytes     `json:"data"`
	Slot    uint64            `json:"slot"`
	Deleted bool              `json:"deleted,omitempty"`
}

func ConvertAccount(addr metronome.Address, acc *runtime.Account, slot uint64) *Account {
	if acc == nil {
		return &Account{Address: addr, Slot: slot, Deleted: true}
	}
	return &Account{
		Address: addr,
		Owner:   acc.Owner,
		Balance: acc.Balance,
		Data:    acc.Data,
		Slot:    slot,
	}
}

// ConvertAccountChange converts a notification. A deleted account keeps its last owner.
func ConvertAccountChange(change *runtime.AccountChange) *Account {
	acc := ConvertAccount(change.Address, change.Account, change.Slot)
	acc.Owner = change.Owner()
	return acc
}

// Runtime returns the ledger form of the account, nil when deleted.
func (a *Account) Runtime() *runtime.Account {
	if a.Deleted {
		return nil
	}
	return &runtime.Account{Owner: a.Owner, Balance: a.Balance, Data: a.Data}
}

// Decode deserializes the account data as the account type name.
func (a *Account) Decode(name string, out any) error {
	return runtime.DecodeAccountData(name, a.Data, out)
}

// Reference is the reference hash a new tx must carry.
type Reference struct {
	Hash metronome.Bytes32 `json:"hash"`
	Slot uint64            `json:"slot"`
}

// RawTx is an rlp encoded signed tx.
type RawTx struct {
	Raw hexutil.Bytes `json:"raw"`
}

type TxID struct {
	ID metronome.Bytes32 `json:"id"`
}
