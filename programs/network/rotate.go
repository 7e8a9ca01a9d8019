// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
)

// handlePoolsRotate applies one rotation transition. The ledger re-runs the
// same gate and selection the observers ran, so a submission built from a
// stale view is rejected here rather than trusted.
func handlePoolsRotate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	signer, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(signer); err != nil {
		return nil, err
	}
	config, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	var rotator Rotator
	if err := ctx.Load(RotatorAddress, RotatorAccount, &rotator); err != nil {
		return nil, err
	}

	snapshotAddr, err := ix.Account(4)
	if err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err := ctx.Load(snapshotAddr, SnapshotAccount, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.ID != registry.CurrentSnapshot || SnapshotAddress(snapshot.ID) != snapshotAddr {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "snapshot %d is not current", snapshot.ID)
	}

	entryAddr, err := ix.Account(5)
	if err != nil {
		return nil, err
	}
	var entry SnapshotEntry
	if err := ctx.Load(entryAddr, EntryAccount, &entry); err != nil {
		return nil, err
	}
	if entry.SnapshotID != snapshot.ID || EntryAddress(snapshotAddr, entry.ID) != entryAddr {
		return nil, ErrInvalidEntry
	}

	// pools must be passed exactly as the rotator lists them
	if len(ix.Accounts)-poolsRotateFixedAccounts != len(rotator.PoolAddresses) {
		return nil, errors.Wrapf(ErrInvalidPool, "expected %d pools", len(rotator.PoolAddresses))
	}
	pools := make([]*Pool, len(rotator.PoolAddresses))
	var workers []metronome.Address
	for i, addr := range rotator.PoolAddresses {
		if ix.Accounts[poolsRotateFixedAccounts+i].Address != addr {
			return nil, errors.Wrapf(ErrInvalidPool, "pool #%d", i)
		}
		var pool Pool
		if err := ctx.Load(addr, PoolAccount, &pool); err != nil {
			return nil, err
		}
		pools[i] = &pool
		workers = append(workers, pool.Workers...)
	}

	now := ctx.Clock().Slot
	membership := rotation.NewMembership(signer, workers)
	if err := rotation.MayRotate(now, rotator.State(), snapshot.StakeTotal, membership, config.Params()); err != nil {
		return nil, err
	}
	selected := entry.RotationEntry()
	if !selected.Contains(rotator.Nonce % snapshot.StakeTotal) {
		return nil, errors.Wrapf(ErrInvalidEntry, "entry %d not selected", entry.ID)
	}

	for i, pool := range pools {
		pool.Rotate(entry.Worker)
		if err := ctx.Store(rotator.PoolAddresses[i], PoolAccount, pool); err != nil {
			return nil, err
		}
	}
	rotator.LastRotationAt = now
	rotator.Nonce = rotation.NextNonce(rotator.Nonce, now)
	return runtime.Done(), ctx.Store(RotatorAddress, RotatorAccount, &rotator)
}
