// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"encoding/binary"

	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/rotation"
)

// ProgramID is the address of the network program.
var ProgramID = metronome.BytesToAddress([]byte("network"))

// Account type names, used for discriminators.
const (
	AuthorityAccount = "authority"
	ConfigAccount    = "config"
	RegistryAccount  = "registry"
	NodeAccount      = "node"
	SnapshotAccount  = "snapshot"
	EntryAccount     = "snapshot_entry"
	RotatorAccount   = "rotator"
	PoolAccount      = "pool"
)

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

var (
	AuthorityAddress = metronome.ProgramAddress(ProgramID, []byte(AuthorityAccount))
	ConfigAddress    = metronome.ProgramAddress(ProgramID, []byte(ConfigAccount))
	RegistryAddress  = metronome.ProgramAddress(ProgramID, []byte(RegistryAccount))
	RotatorAddress   = metronome.ProgramAddress(ProgramID, []byte(RotatorAccount))
)

// NodeAddress returns the address of node id.
func NodeAddress(id uint64) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(NodeAccount), be64(id))
}

// SnapshotAddress returns the address of snapshot id.
func SnapshotAddress(id uint64) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(SnapshotAccount), be64(id))
}

// EntryAddress returns the address of entry id of a snapshot.
func EntryAddress(snapshot metronome.Address, id uint64) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(EntryAccount), snapshot.Bytes(), be64(id))
}

// PoolAddress returns the address of the named worker pool.
func PoolAddress(name string) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(PoolAccount), []byte(name))
}

// Authority is the network authority marker account.
type Authority struct {
	Admin metronome.Address
}

// Config holds the tunable network parameters.
type Config struct {
	Admin            metronome.Address
	SnapshotQueue    metronome.Address // the only signer allowed to drive snapshot chains
	RotationInterval uint64
	GracePeriod      uint64
	CrankFee         uint64
}

// Params returns the rotation parameters held by the config.
func (c *Config) Params() rotation.Params {
	return rotation.Params{RotationInterval: c.RotationInterval, GracePeriod: c.GracePeriod}
}

// Registry counts nodes and snapshots.
type Registry struct {
	NodeCount       uint64
	SnapshotCount   uint64
	CurrentSnapshot uint64
}

// Node is a registered worker node.
type Node struct {
	ID        uint64
	Authority metronome.Address
	Worker    metronome.Address
	Stake     uint64
}

// SnapshotStatus is the lifecycle state of a snapshot.
type SnapshotStatus uint8

const (
	SnapshotInProgress SnapshotStatus = iota
	SnapshotCurrent
	SnapshotArchived
	SnapshotClosing
)

func (s SnapshotStatus) String() string {
	switch s {
	case SnapshotInProgress:
		return "in-progress"
	case SnapshotCurrent:
		return "current"
	case SnapshotArchived:
		return "archived"
	case SnapshotClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Snapshot partitions the total stake among nodes at a point in time.
type Snapshot struct {
	ID         uint64
	NodeCount  uint64
	StakeTotal uint64
	Status     SnapshotStatus
}

// SnapshotEntry is one node's range within a snapshot.
type SnapshotEntry struct {
	ID          uint64
	SnapshotID  uint64
	NodeID      uint64
	StakeOffset uint64
	StakeAmount uint64
	Worker      metronome.Address
}

// RotationEntry converts to the selector's view.
func (e *SnapshotEntry) RotationEntry() rotation.Entry {
	return rotation.Entry{
		ID:          e.ID,
		StakeOffset: e.StakeOffset,
		StakeAmount: e.StakeAmount,
		Worker:      e.Worker,
	}
}

// Rotator tracks the rotation counter and the pools it rotates.
type Rotator struct {
	LastRotationAt uint64
	Nonce          uint64
	PoolAddresses  []metronome.Address
}

// State converts to the gate's view.
func (r *Rotator) State() rotation.State {
	return rotation.State{
		LastRotationAt: r.LastRotationAt,
		Nonce:          r.Nonce,
		PoolAddresses:  append([]metronome.Address(nil), r.PoolAddresses...),
	}
}

// Pool is a bounded FIFO of worker addresses.
type Pool struct {
	Name    string
	Size    uint64
	Workers []metronome.Address
}

// Contains reports whether worker is in the pool.
func (p *Pool) Contains(worker metronome.Address) bool {
	for _, w := range p.Workers {
		if w == worker {
			return true
		}
	}
	return false
}

// Rotate pushes worker to the back of the pool and evicts from the front
// beyond Size. A worker already in the pool stays where it is.
func (p *Pool) Rotate(worker metronome.Address) {
	if p.Contains(worker) {
		return
	}
	p.Workers = append(p.Workers, worker)
	if n := uint64(len(p.Workers)); n > p.Size {
		p.Workers = append([]metronome.Address(nil), p.Workers[n-p.Size:]...)
	}
}
