// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import "github.com/vechain/metronome/metronome"

// Receipt represents the results of a transaction.
type Receipt struct {
	TxID metronome.Bytes32 `json:"txID"`
	Slot uint64            `json:"slot"`
	// set when an instruction failed and its changes were rolled back
	Reverted bool   `json:"reverted"`
	Error    string `json:"error,omitempty"`
	// chain hops committed, including those of a chain that halted part way
	Hops uint64 `json:"hops,omitempty"`
	Fee  uint64 `json:"fee"`
}
