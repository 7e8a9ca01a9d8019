// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// The snapshot chain, driven by the snapshot queue:
//
//	snapshot_kickoff -> snapshot_create -> snapshot_capture x nodes -> snapshot_rotate
//	  -> snapshot_close(previous) -> entry_close x entries
//
// Every step returns the next one, so the whole chain can run within one crank
// or be resumed across cranks when the queue rate limit cuts it.

// requireSnapshotQueue checks account #0 is the configured snapshot queue and signed.
func requireSnapshotQueue(ctx *runtime.Context, ix *runtime.Instruction) (metronome.Address, error) {
	queue, err := ix.Account(0)
	if err != nil {
		return queue, err
	}
	if err := ctx.RequireSigner(queue); err != nil {
		return queue, err
	}
	config, err := loadConfig(ctx)
	if err != nil {
		return queue, err
	}
	if config.SnapshotQueue != queue {
		return queue, ErrUnauthorized
	}
	return queue, nil
}

func loadRegistry(ctx *runtime.Context) (*Registry, error) {
	var registry Registry
	if err := ctx.Load(RegistryAddress, RegistryAccount, &registry); err != nil {
		return nil, err
	}
	return &registry, nil
}

func loadSnapshot(ctx *runtime.Context, id uint64) (*Snapshot, error) {
	var snapshot Snapshot
	if err := ctx.Load(SnapshotAddress(id), SnapshotAccount, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func handleSnapshotKickoff(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	return runtime.Continue(snapshotCreate(queue, registry.SnapshotCount)), nil
}

func handleSnapshotCreate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args snapshotArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if args.SnapshotID != registry.SnapshotCount {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "expected id %d", registry.SnapshotCount)
	}

	snapshot := &Snapshot{ID: args.SnapshotID, Status: SnapshotInProgress}
	if err := ctx.Create(SnapshotAddress(snapshot.ID), queue, SnapshotAccount, snapshot); err != nil {
		return nil, err
	}
	registry.SnapshotCount++
	if err := ctx.Store(RegistryAddress, RegistryAccount, registry); err != nil {
		return nil, err
	}

	if registry.NodeCount > 0 {
		return runtime.Continue(snapshotCapture(queue, snapshot.ID, 0)), nil
	}
	return runtime.Continue(snapshotRotate(queue, registry.CurrentSnapshot, snapshot.ID)), nil
}

func handleSnapshotCapture(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args snapshotCaptureArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, args.SnapshotID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != SnapshotInProgress {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "snapshot %d is %v", snapshot.ID, snapshot.Status)
	}
	// entries are captured in node order, one per node
	if args.NodeID != snapshot.NodeCount {
		return nil, errors.Wrapf(ErrInvalidNode, "expected node %d", snapshot.NodeCount)
	}

	var node Node
	if err := ctx.Load(NodeAddress(args.NodeID), NodeAccount, &node); err != nil {
		return nil, err
	}
	entry := &SnapshotEntry{
		ID:          args.NodeID,
		SnapshotID:  snapshot.ID,
		NodeID:      node.ID,
		StakeOffset: snapshot.StakeTotal,
		StakeAmount: node.Stake,
		Worker:      node.Worker,
	}
	if snapshot.StakeTotal, err = addStake(snapshot.StakeTotal, node.Stake); err != nil {
		return nil, err
	}
	snapshot.NodeCount++

	snapshotAddr := SnapshotAddress(snapshot.ID)
	if err := ctx.Create(EntryAddress(snapshotAddr, entry.ID), queue, EntryAccount, entry); err != nil {
		return nil, err
	}
	if err := ctx.Store(snapshotAddr, SnapshotAccount, snapshot); err != nil {
		return nil, err
	}

	if next := args.NodeID + 1; next < registry.NodeCount {
		return runtime.Continue(snapshotCapture(queue, snapshot.ID, next)), nil
	}
	return runtime.Continue(snapshotRotate(queue, registry.CurrentSnapshot, snapshot.ID)), nil
}

func handleSnapshotRotate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args snapshotRotateArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if registry.CurrentSnapshot != args.Current {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "current snapshot is %d", registry.CurrentSnapshot)
	}
	current, err := loadSnapshot(ctx, args.Current)
	if err != nil {
		return nil, err
	}
	next, err := loadSnapshot(ctx, args.Next)
	if err != nil {
		return nil, err
	}
	if current.Status != SnapshotCurrent || next.Status != SnapshotInProgress {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "rotate %v -> %v", current.Status, next.Status)
	}

	current.Status = SnapshotArchived
	next.Status = SnapshotCurrent
	registry.CurrentSnapshot = next.ID
	if err := ctx.Store(SnapshotAddress(current.ID), SnapshotAccount, current); err != nil {
		return nil, err
	}
	if err := ctx.Store(SnapshotAddress(next.ID), SnapshotAccount, next); err != nil {
		return nil, err
	}
	if err := ctx.Store(RegistryAddress, RegistryAccount, registry); err != nil {
		return nil, err
	}
	return runtime.Continue(SnapshotClose(queue, current.ID)), nil
}

func handleSnapshotClose(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args snapshotArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, args.SnapshotID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != SnapshotArchived && snapshot.Status != SnapshotClosing {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "cannot close %v snapshot", snapshot.Status)
	}

	addr := SnapshotAddress(snapshot.ID)
	if snapshot.NodeCount == 0 {
		// nothing left to drain
		return runtime.Done(), ctx.Close(addr, queue)
	}
	snapshot.Status = SnapshotClosing
	if err := ctx.Store(addr, SnapshotAccount, snapshot); err != nil {
		return nil, err
	}
	return runtime.Continue(EntryClose(queue, snapshot.ID, 0)), nil
}

func handleEntryClose(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args entryCloseArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	queue, err := requireSnapshotQueue(ctx, ix)
	if err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, args.SnapshotID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != SnapshotClosing {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "snapshot %d is %v", snapshot.ID, snapshot.Status)
	}
	if args.EntryID >= snapshot.NodeCount {
		return nil, errors.Wrapf(ErrInvalidEntry, "entry %d of %d", args.EntryID, snapshot.NodeCount)
	}

	addr := SnapshotAddress(snapshot.ID)
	if err := ctx.Close(EntryAddress(addr, args.EntryID), queue); err != nil {
		return nil, err
	}
	if next := args.EntryID + 1; next < snapshot.NodeCount {
		return runtime.Continue(EntryClose(queue, snapshot.ID, next)), nil
	}
	return runtime.Done(), ctx.Close(addr, queue)
}
