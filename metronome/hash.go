// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metronome

import (
	"encoding/binary"
	"hash"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

var blake2bPool = sync.Pool{
	New: func() any {
		h, _ := blake2b.New256(nil)
		return h
	},
}

// Blake2b computes blake2b-256 checksum for given data.
func Blake2b(data ...[]byte) Bytes32 {
	if len(data) == 1 {
		return blake2b.Sum256(data[0])
	}
	return Blake2bFn(func(w io.Writer) {
		for _, b := range data {
			w.Write(b)
		}
	})
}

// Blake2bFn computes blake2b-256 checksum over everything fn writes.
func Blake2bFn(fn func(w io.Writer)) (h Bytes32) {
	hasher := blake2bPool.Get().(hash.Hash)
	hasher.Reset()
	fn(hasher)
	hasher.Sum(h[:0])
	blake2bPool.Put(hasher)
	return
}

// Keccak256 computes the legacy keccak-256 checksum for given data.
func Keccak256(data ...[]byte) (h Bytes32) {
	hasher := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hasher.Write(b)
	}
	hasher.Sum(h[:0])
	return
}

// ReferenceHash is the recent-history hash the ledger publishes for slot.
// Transactions carry it to prove freshness.
func ReferenceHash(slot uint64) Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], slot)
	return Blake2b([]byte("slot"), b[:])
}
