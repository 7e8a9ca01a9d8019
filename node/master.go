// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vechain/metronome/metronome"
)

// Master holds the key a node signs and pays its txs with.
type Master struct {
	PrivateKey *ecdsa.PrivateKey
}

// Address is the worker address of the node.
func (m *Master) Address() metronome.Address {
	return metronome.Address(crypto.PubkeyToAddress(m.PrivateKey.PublicKey))
}
