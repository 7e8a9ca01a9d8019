// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the initial ledger state: funded accounts, the
// network program state, worker pools and the snapshot queue.
package genesis

import (
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/programs/webhook"
	"github.com/vechain/metronome/runtime"
)

// SnapshotQueueID is the id of the queue that drives snapshot chains.
const SnapshotQueueID = "snapshot"

// Genesis to build genesis state.
type Genesis struct {
	builder *Builder
	name    string
	admin   metronome.Address
}

// Build builds the genesis state.
func (g *Genesis) Build(state *runtime.State, host *runtime.Host) ([]metronome.Address, error) {
	return g.builder.Build(state, host)
}

// Clock returns the clock of the genesis slot.
func (g *Genesis) Clock() runtime.Clock {
	return g.builder.Clock()
}

// Name returns network name.
func (g *Genesis) Name() string {
	return g.name
}

// Admin returns the network admin.
func (g *Genesis) Admin() metronome.Address {
	return g.admin
}

// SnapshotQueue returns the address of the snapshot queue.
func (g *Genesis) SnapshotQueue() metronome.Address {
	return queue.QueueAddress(g.admin, SnapshotQueueID)
}

// NewHost returns a host with every ledger program registered.
func NewHost() *runtime.Host {
	return runtime.NewHost(network.New(), queue.New(), webhook.New())
}

// Node is a worker node registered at genesis.
type Node struct {
	Authority metronome.Address `json:"authority"`
	Worker    metronome.Address `json:"worker"`
	Stake     uint64            `json:"stake"`
}

// Pool is a worker pool created at genesis.
type Pool struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// Account is a funded account.
type Account struct {
	Address metronome.Address `json:"address"`
	Balance uint64            `json:"balance"`
}

// Spec describes a network to build.
type Spec struct {
	LaunchTime        int64                  `json:"launchTime"`
	Admin             metronome.Address      `json:"admin"`
	Accounts          []Account              `json:"accounts"`
	Pools             []Pool                 `json:"pools"`
	Nodes             []Node                 `json:"nodes"`
	Config            network.ConfigSettings `json:"config"`
	SnapshotSchedule  string                 `json:"snapshotSchedule"`
	SnapshotRateLimit uint64                 `json:"snapshotRateLimit"`
	SnapshotFunding   uint64                 `json:"snapshotFunding"`
}

// New creates the genesis described by spec.
func New(name string, spec *Spec) *Genesis {
	snapshotQueue := queue.QueueAddress(spec.Admin, SnapshotQueueID)

	builder := new(Builder).
		Timestamp(spec.LaunchTime).
		State(func(state *runtime.State) error {
			for _, a := range spec.Accounts {
				state.Set(a.Address, &runtime.Account{Balance: a.Balance})
			}
			return nil
		}).
		Call(network.Initialize(spec.Admin, snapshotQueue), spec.Admin)

	if spec.Config != (network.ConfigSettings{}) {
		builder.Call(network.ConfigUpdate(spec.Admin, spec.Config), spec.Admin)
	}
	for _, p := range spec.Pools {
		builder.Call(network.PoolCreate(spec.Admin, p.Name, p.Size), spec.Admin)
	}
	for i, n := range spec.Nodes {
		builder.Call(network.NodeRegister(n.Authority, n.Worker, uint64(i)), n.Authority)
		if n.Stake > 0 {
			builder.Call(network.NodeStake(n.Authority, uint64(i), n.Stake), n.Authority)
		}
	}

	settings := queue.Settings{Schedule: spec.SnapshotSchedule, RateLimit: spec.SnapshotRateLimit}
	builder.
		Call(queue.Create(spec.Admin, SnapshotQueueID, network.SnapshotKickoff(snapshotQueue), settings), spec.Admin).
		Call(queue.Fund(spec.Admin, snapshotQueue, spec.SnapshotFunding), spec.Admin)

	return &Genesis{builder: builder, name: name, admin: spec.Admin}
}
