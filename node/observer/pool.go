// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package observer mirrors the rotation related accounts of the network program
// and decides, from that mirror, whether this node should submit a rotation.
package observer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/cache"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

var logger = log.WithContext("pkg", "observer")

const (
	entryCacheSize   = 4096
	fetchConcurrency = 8
)

// Ledger is the part of the ledger client the observer reads from.
type Ledger interface {
	Account(addr metronome.Address) (*types.Account, error)
	LatestReference() (metronome.Bytes32, error)
}

// PoolObserver keeps the rotator, the current snapshot and the pool positions
// of this node up to date and builds rotation txs from them.
type PoolObserver struct {
	ledger   Ledger
	key      *ecdsa.PrivateKey
	self     metronome.Address
	defaults rotation.Params

	paramsLock sync.RWMutex
	params     rotation.Params

	rotator  RotatorCache
	snapshot SnapshotCache
	pools    *PoolPositions

	// entries never change once a snapshot is current
	entries *cache.LRU[metronome.Address, rotation.Entry]
}

// New creates an observer signing with key. defaults apply until the network
// config account says otherwise.
func New(ledger Ledger, key *ecdsa.PrivateKey, defaults rotation.Params) *PoolObserver {
	entries, _ := cache.NewLRU[metronome.Address, rotation.Entry](entryCacheSize)
	self := metronome.Address(crypto.PubkeyToAddress(key.PublicKey))
	return &PoolObserver{
		ledger:   ledger,
		key:      key,
		self:     self,
		defaults: defaults,
		params:   defaults,
		pools:    NewPoolPositions(self),
		entries:  entries,
	}
}

// Address returns the worker address of this node.
func (o *PoolObserver) Address() metronome.Address {
	return o.self
}

// Params returns the rotation parameters in effect.
func (o *PoolObserver) Params() rotation.Params {
	o.paramsLock.RLock()
	defer o.paramsLock.RUnlock()
	return o.params
}

// Pools returns the pool membership of this node.
func (o *PoolObserver) Pools() *PoolPositions {
	return o.pools
}

// Rotator returns the cached rotation state.
func (o *PoolObserver) Rotator() (rotation.State, bool) {
	return o.rotator.Get()
}

// Snapshot returns the cached current snapshot and its entries.
func (o *PoolObserver) Snapshot() (*network.Snapshot, []rotation.Entry) {
	return o.snapshot.Get()
}

// Bootstrap loads every observed account once. Later changes arrive through HandleAccount.
func (o *PoolObserver) Bootstrap(ctx context.Context) error {
	config, err := fetch[network.Config](o.ledger, network.ConfigAddress, network.ConfigAccount)
	switch {
	case err == nil:
		o.HandleUpdatedConfig(config)
	case !runtime.IsDeserialization(err):
		// the local defaults stay in effect
		logger.Warn("network config unavailable", "err", err)
	default:
		return err
	}

	rotator, err := fetch[network.Rotator](o.ledger, network.RotatorAddress, network.RotatorAccount)
	if err != nil {
		return errors.WithMessage(err, "rotator")
	}
	o.HandleUpdatedRotator(rotator)

	for _, addr := range rotator.PoolAddresses {
		pool, err := fetch[network.Pool](o.ledger, addr, network.PoolAccount)
		if err != nil {
			return errors.WithMessagef(err, "pool %v", addr)
		}
		o.HandleUpdatedPool(addr, pool)
	}

	registry, err := fetch[network.Registry](o.ledger, network.RegistryAddress, network.RegistryAccount)
	if err != nil {
		return errors.WithMessage(err, "registry")
	}
	snapshot, err := fetch[network.Snapshot](o.ledger, network.SnapshotAddress(registry.CurrentSnapshot), network.SnapshotAccount)
	if err != nil {
		return errors.WithMessage(err, "snapshot")
	}
	return o.HandleUpdatedSnapshot(ctx, snapshot)
}

// HandleAccount routes a changed network program account to its cache.
// Rotator, snapshot and config accounts that fail to decode are reported
// with runtime.ErrDeserialization.
func (o *PoolObserver) HandleAccount(ctx context.Context, acc *types.Account) error {
	if acc.Deleted || acc.Owner != network.ProgramID {
		return nil
	}
	switch {
	case acc.Address == network.ConfigAddress:
		var config network.Config
		if err := acc.Decode(network.ConfigAccount, &config); err != nil {
			return err
		}
		o.HandleUpdatedConfig(&config)
	case acc.Address == network.RotatorAddress:
		var rotator network.Rotator
		if err := acc.Decode(network.RotatorAccount, &rotator); err != nil {
			return err
		}
		o.HandleUpdatedRotator(&rotator)
	case isAccountType(acc.Data, network.PoolAccount):
		var pool network.Pool
		if err := acc.Decode(network.PoolAccount, &pool); err != nil {
			return err
		}
		o.HandleUpdatedPool(acc.Address, &pool)
	case isAccountType(acc.Data, network.SnapshotAccount):
		var snapshot network.Snapshot
		if err := acc.Decode(network.SnapshotAccount, &snapshot); err != nil {
			return err
		}
		return o.HandleUpdatedSnapshot(ctx, &snapshot)
	}
	return nil
}

// IsSnapshot reports whether acc holds a network snapshot. Handling one may
// fetch every entry of the snapshot.
func IsSnapshot(acc *types.Account) bool {
	return acc.Owner == network.ProgramID && isAccountType(acc.Data, network.SnapshotAccount)
}

func isAccountType(data []byte, name string) bool {
	d := metronome.AccountDiscriminator(name)
	return bytes.HasPrefix(data, d[:])
}

// HandleUpdatedConfig applies the non zero parameters of the network config over the local defaults.
func (o *PoolObserver) HandleUpdatedConfig(config *network.Config) {
	params := o.defaults
	if config.RotationInterval != 0 {
		params.RotationInterval = config.RotationInterval
	}
	if config.GracePeriod != 0 {
		params.GracePeriod = config.GracePeriod
	}

	o.paramsLock.Lock()
	o.params = params
	o.paramsLock.Unlock()
}

func (o *PoolObserver) HandleUpdatedRotator(rotator *network.Rotator) {
	o.rotator.Set(rotator.State())
	logger.Trace("rotator updated", "nonce", rotator.Nonce, "last", rotator.LastRotationAt)
}

func (o *PoolObserver) HandleUpdatedPool(addr metronome.Address, pool *network.Pool) {
	o.pools.Update(addr, pool)
	logger.Trace("pool updated", "name", pool.Name, "workers", len(pool.Workers))
}

// HandleUpdatedSnapshot refreshes the cached snapshot when a newer one becomes current.
// Entries are fetched with no lock held and only installed if no newer snapshot
// was installed in the meantime.
func (o *PoolObserver) HandleUpdatedSnapshot(ctx context.Context, snapshot *network.Snapshot) error {
	if snapshot.Status != network.SnapshotCurrent {
		return nil
	}
	if id, ok := o.snapshot.ID(); ok && id > snapshot.ID {
		return nil
	}

	entries, err := o.fetchEntries(ctx, snapshot)
	if err != nil {
		return err
	}
	if err := rotation.ValidatePartition(snapshot.StakeTotal, entries); err != nil {
		return errors.WithMessagef(err, "snapshot %d", snapshot.ID)
	}
	if o.snapshot.Install(snapshot, entries) {
		logger.Debug("snapshot installed", "id", snapshot.ID, "nodes", snapshot.NodeCount, "stake", snapshot.StakeTotal)
	}
	if changed, hit, miss := o.entries.Stats().Stats(); changed {
		logger.Trace("entry cache", "hit", hit, "miss", miss, "rate", o.entries.Stats().HitRate())
	}
	return nil
}

func (o *PoolObserver) fetchEntries(ctx context.Context, snapshot *network.Snapshot) ([]rotation.Entry, error) {
	snapshotAddr := network.SnapshotAddress(snapshot.ID)
	entries := make([]rotation.Entry, snapshot.NodeCount)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := range snapshot.NodeCount {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := o.entries.GetOrLoad(network.EntryAddress(snapshotAddr, i), func(addr metronome.Address) (rotation.Entry, error) {
				e, err := fetch[network.SnapshotEntry](o.ledger, addr, network.EntryAccount)
				if err != nil {
					return rotation.Entry{}, errors.WithMessagef(err, "entry %d of snapshot %d", i, snapshot.ID)
				}
				return e.RotationEntry(), nil
			})
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// RotationInstruction runs the eligibility gate and the worker selection on the
// cached state. Gate and selection failures are returned as is.
func (o *PoolObserver) RotationInstruction(slot uint64) (*runtime.Instruction, error) {
	state, ok := o.rotator.Get()
	if !ok {
		return nil, rotation.ErrUninitialized
	}
	snapshot, entries := o.snapshot.Get()
	var stakeTotal uint64
	if snapshot != nil {
		stakeTotal = snapshot.StakeTotal
	}
	membership := o.pools.Combined(state.PoolAddresses)

	if err := rotation.MayRotate(slot, state, stakeTotal, membership, o.Params()); err != nil {
		return nil, err
	}
	entry, err := rotation.Select(state.Nonce, stakeTotal, entries)
	if err != nil {
		return nil, err
	}
	return network.PoolsRotate(o.self, snapshot.ID, entry.ID, state.PoolAddresses), nil
}

// BuildRotationTx returns the signed rotation tx for slot if this node may rotate.
// The reference hash is fetched after every cache lock has been released.
func (o *PoolObserver) BuildRotationTx(slot uint64) (*tx.Transaction, error) {
	ix, err := o.RotationInstruction(slot)
	if err != nil {
		return nil, err
	}
	ref, err := o.ledger.LatestReference()
	if err != nil {
		return nil, errors.WithMessage(err, "reference hash")
	}
	trx := tx.NewBuilder(o.self).ReferenceHash(ref).Instruction(ix).Build()
	return tx.Sign(trx, o.key)
}

func fetch[T any](ledger Ledger, addr metronome.Address, name string) (*T, error) {
	acc, err := ledger.Account(addr)
	if err != nil {
		return nil, err
	}
	var v T
	if err := acc.Decode(name, &v); err != nil {
		return nil, errors.WithMessagef(err, "%v", addr)
	}
	return &v, nil
}
