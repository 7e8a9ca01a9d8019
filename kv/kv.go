// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get returns an error checkable with IsNotFound when the key is absent.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// GetPutter reads and writes kv.
type GetPutter interface {
	Getter
	Putter
}

// Batch buffers puts and deletes until Write is called.
type Batch interface {
	Putter
	Len() int
	Write() error
}

// Pair is the key-value pair yielded during iteration.
type Pair interface {
	Key() []byte
	Value() []byte
}

// Range is the key range [Start, Limit). An empty Limit means no upper bound.
type Range struct {
	Start []byte
	Limit []byte
}

// Store is a full featured kv store.
type Store interface {
	GetPutter
	NewBatch() Batch
	// Iterate calls fn for every pair in rng in key order until fn returns false.
	Iterate(rng Range, fn func(Pair) bool) error
}
