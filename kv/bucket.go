// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket is a key prefix carving a logical namespace out of a store.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	out := make([]byte, 0, len(b)+len(k))
	return append(append(out, b...), k...)
}

// NewStore returns a view of src holding only the keys under the bucket prefix,
// with the prefix stripped on the way out.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{bucketPutter{b, src}, src}
}

type bucketPutter struct {
	bucket Bucket
	dst    Putter
}

func (p bucketPutter) Put(key, val []byte) error { return p.dst.Put(p.bucket.key(key), val) }
func (p bucketPutter) Delete(key []byte) error   { return p.dst.Delete(p.bucket.key(key)) }

type bucketStore struct {
	bucketPutter
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.bucket.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.src.Has(s.bucket.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }

func (s *bucketStore) NewBatch() Batch {
	batch := s.src.NewBatch()
	return &bucketBatch{bucketPutter{s.bucket, batch}, batch}
}

func (s *bucketStore) Iterate(rng Range, fn func(Pair) bool) error {
	prefixed := Range{Start: s.bucket.key(rng.Start)}
	if len(rng.Limit) == 0 {
		prefixed.Limit = util.BytesPrefix([]byte(s.bucket)).Limit
	} else {
		prefixed.Limit = s.bucket.key(rng.Limit)
	}
	n := len(s.bucket)
	return s.src.Iterate(prefixed, func(p Pair) bool {
		return fn(pair{key: p.Key()[n:], value: p.Value()})
	})
}

type bucketBatch struct {
	bucketPutter
	batch Batch
}

func (b *bucketBatch) Len() int     { return b.batch.Len() }
func (b *bucketBatch) Write() error { return b.batch.Write() }

type pair struct {
	key, value []byte
}

func (p pair) Key() []byte   { return p.key }
func (p pair) Value() []byte { return p.value }
