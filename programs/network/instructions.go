// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// Instruction names.
const (
	IxInitialize      = "initialize"
	IxConfigUpdate    = "config_update"
	IxPoolCreate      = "pool_create"
	IxNodeRegister    = "node_register"
	IxNodeStake       = "node_stake"
	IxNodeUpdate      = "node_update"
	IxSnapshotKickoff = "snapshot_kickoff"
	IxSnapshotCreate  = "snapshot_create"
	IxSnapshotCapture = "snapshot_capture"
	IxSnapshotRotate  = "snapshot_rotate"
	IxSnapshotClose   = "snapshot_close"
	IxEntryClose      = "entry_close"
	IxPoolsRotate     = "pools_rotate"
)

type initializeArgs struct {
	SnapshotQueue metronome.Address
}

// ConfigSettings are the admin adjustable parameters. Zero fields keep their value.
type ConfigSettings struct {
	RotationInterval uint64
	GracePeriod      uint64
	CrankFee         uint64
}

type poolCreateArgs struct {
	Name string
	Size uint64
}

type nodeRegisterArgs struct {
	Worker metronome.Address
}

type nodeStakeArgs struct {
	Amount uint64
}

type nodeUpdateArgs struct {
	Worker metronome.Address
}

type snapshotArgs struct {
	SnapshotID uint64
}

type snapshotCaptureArgs struct {
	SnapshotID uint64
	NodeID     uint64
}

type snapshotRotateArgs struct {
	Current uint64
	Next    uint64
}

type entryCloseArgs struct {
	SnapshotID uint64
	EntryID    uint64
}

// Initialize sets up the network accounts and the genesis snapshot.
func Initialize(admin, snapshotQueue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxInitialize, &initializeArgs{SnapshotQueue: snapshotQueue},
		runtime.Signer(admin),
		runtime.Writable(AuthorityAddress),
		runtime.Writable(ConfigAddress),
		runtime.Writable(RegistryAddress),
		runtime.Writable(RotatorAddress),
		runtime.Writable(SnapshotAddress(0)),
	)
}

// ConfigUpdate changes network parameters.
func ConfigUpdate(admin metronome.Address, settings ConfigSettings) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxConfigUpdate, &settings,
		runtime.Signer(admin),
		runtime.Writable(ConfigAddress),
	)
}

// PoolCreate creates a named pool and adds it to the rotator.
func PoolCreate(admin metronome.Address, name string, size uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxPoolCreate, &poolCreateArgs{Name: name, Size: size},
		runtime.Signer(admin),
		runtime.Readonly(ConfigAddress),
		runtime.Writable(PoolAddress(name)),
		runtime.Writable(RotatorAddress),
	)
}

// NodeRegister registers a node with id nodeID, which must equal the registry node count.
func NodeRegister(authority, worker metronome.Address, nodeID uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxNodeRegister, &nodeRegisterArgs{Worker: worker},
		runtime.Signer(authority),
		runtime.Writable(RegistryAddress),
		runtime.Writable(NodeAddress(nodeID)),
	)
}

// NodeStake locks amount of the authority's balance as stake of node nodeID.
func NodeStake(authority metronome.Address, nodeID, amount uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxNodeStake, &nodeStakeArgs{Amount: amount},
		runtime.Signer(authority),
		runtime.Writable(NodeAddress(nodeID)),
	)
}

// NodeUpdate changes the worker address of node nodeID.
func NodeUpdate(authority metronome.Address, nodeID uint64, worker metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxNodeUpdate, &nodeUpdateArgs{Worker: worker},
		runtime.Signer(authority),
		runtime.Writable(NodeAddress(nodeID)),
	)
}

// SnapshotKickoff starts a snapshot chain. Its accounts are static so it can be
// stored as the first instruction of the snapshot queue.
func SnapshotKickoff(queue metronome.Address) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxSnapshotKickoff, nil,
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Readonly(RegistryAddress),
	)
}

func snapshotCreate(queue metronome.Address, id uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxSnapshotCreate, &snapshotArgs{SnapshotID: id},
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Writable(RegistryAddress),
		runtime.Writable(SnapshotAddress(id)),
	)
}

func snapshotCapture(queue metronome.Address, snapshotID, nodeID uint64) *runtime.Instruction {
	snapshot := SnapshotAddress(snapshotID)
	return runtime.MustNewInstruction(ProgramID, IxSnapshotCapture, &snapshotCaptureArgs{SnapshotID: snapshotID, NodeID: nodeID},
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Readonly(RegistryAddress),
		runtime.Writable(snapshot),
		runtime.Writable(EntryAddress(snapshot, nodeID)),
		runtime.Readonly(NodeAddress(nodeID)),
	)
}

func snapshotRotate(queue metronome.Address, current, next uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxSnapshotRotate, &snapshotRotateArgs{Current: current, Next: next},
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Writable(RegistryAddress),
		runtime.Writable(SnapshotAddress(current)),
		runtime.Writable(SnapshotAddress(next)),
	)
}

// SnapshotClose tears down an archived snapshot, refunding its deposits to queue.
func SnapshotClose(queue metronome.Address, id uint64) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxSnapshotClose, &snapshotArgs{SnapshotID: id},
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Writable(SnapshotAddress(id)),
	)
}

// EntryClose closes entry entryID of a closing snapshot.
func EntryClose(queue metronome.Address, snapshotID, entryID uint64) *runtime.Instruction {
	snapshot := SnapshotAddress(snapshotID)
	return runtime.MustNewInstruction(ProgramID, IxEntryClose, &entryCloseArgs{SnapshotID: snapshotID, EntryID: entryID},
		runtime.Signer(queue),
		runtime.Readonly(ConfigAddress),
		runtime.Writable(snapshot),
		runtime.Writable(EntryAddress(snapshot, entryID)),
	)
}

// PoolsRotate installs the worker of the selected entry into every pool.
// pools must list the rotator's pool addresses in order.
func PoolsRotate(signer metronome.Address, snapshotID, entryID uint64, pools []metronome.Address) *runtime.Instruction {
	snapshot := SnapshotAddress(snapshotID)
	accounts := []runtime.AccountMeta{
		runtime.Signer(signer),
		runtime.Readonly(ConfigAddress),
		runtime.Readonly(RegistryAddress),
		runtime.Writable(RotatorAddress),
		runtime.Readonly(snapshot),
		runtime.Readonly(EntryAddress(snapshot, entryID)),
	}
	for _, p := range pools {
		accounts = append(accounts, runtime.Writable(p))
	}
	return runtime.MustNewInstruction(ProgramID, IxPoolsRotate, nil, accounts...)
}

// poolsRotateFixedAccounts is the number of accounts before the pool list.
const poolsRotateFixedAccounts = 6
