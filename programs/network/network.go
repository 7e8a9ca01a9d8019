// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package network is the ledger program that registers worker nodes, snapshots
// their stake and rotates workers into the pools.
package network

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStakeOverflow    = errors.New("stake overflow")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrInvalidEntry     = errors.New("invalid snapshot entry")
	ErrInvalidPool      = errors.New("invalid pool")
	ErrInvalidNode      = errors.New("invalid node")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// New returns the network program.
func New() *runtime.Dispatcher {
	d := runtime.NewDispatcher(ProgramID)
	d.Handle(IxInitialize, handleInitialize)
	d.Handle(IxConfigUpdate, handleConfigUpdate)
	d.Handle(IxPoolCreate, handlePoolCreate)
	d.Handle(IxNodeRegister, handleNodeRegister)
	d.Handle(IxNodeStake, handleNodeStake)
	d.Handle(IxNodeUpdate, handleNodeUpdate)
	d.Handle(IxSnapshotKickoff, handleSnapshotKickoff)
	d.Handle(IxSnapshotCreate, handleSnapshotCreate)
	d.Handle(IxSnapshotCapture, handleSnapshotCapture)
	d.Handle(IxSnapshotRotate, handleSnapshotRotate)
	d.Handle(IxSnapshotClose, handleSnapshotClose)
	d.Handle(IxEntryClose, handleEntryClose)
	d.Handle(IxPoolsRotate, handlePoolsRotate)
	return d
}

// addStake adds b to a, failing instead of wrapping around.
func addStake(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrStakeOverflow
	}
	return sum.Uint64(), nil
}

func loadConfig(ctx *runtime.Context) (*Config, error) {
	var config Config
	if err := ctx.Load(ConfigAddress, ConfigAccount, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func requireAdmin(ctx *runtime.Context, ix *runtime.Instruction) (*Config, error) {
	admin, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(admin); err != nil {
		return nil, err
	}
	config, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config.Admin != admin {
		return nil, ErrUnauthorized
	}
	return config, nil
}

func handleInitialize(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args initializeArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	admin, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(admin); err != nil {
		return nil, err
	}

	clock := ctx.Clock()
	creates := []struct {
		addr metronome.Address
		name string
		v    any
	}{
		{AuthorityAddress, AuthorityAccount, &Authority{Admin: admin}},
		{ConfigAddress, ConfigAccount, &Config{
			Admin:            admin,
			SnapshotQueue:    args.SnapshotQueue,
			RotationInterval: metronome.DefaultRotationInterval,
			GracePeriod:      metronome.DefaultGracePeriod,
			CrankFee:         metronome.DefaultCrankFee,
		}},
		{RegistryAddress, RegistryAccount, &Registry{SnapshotCount: 1}},
		{RotatorAddress, RotatorAccount, &Rotator{
			LastRotationAt: clock.Slot,
			Nonce:          rotation.NextNonce(uint64(clock.UnixTimestamp), clock.Slot),
		}},
		{SnapshotAddress(0), SnapshotAccount, &Snapshot{ID: 0, Status: SnapshotCurrent}},
	}
	for _, c := range creates {
		if err := ctx.Create(c.addr, admin, c.name, c.v); err != nil {
			return nil, err
		}
	}
	return runtime.Done(), nil
}

func handleConfigUpdate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var settings ConfigSettings
	if err := ix.DecodeArgs(&settings); err != nil {
		return nil, err
	}
	config, err := requireAdmin(ctx, ix)
	if err != nil {
		return nil, err
	}
	if settings.RotationInterval != 0 {
		config.RotationInterval = settings.RotationInterval
	}
	if settings.GracePeriod != 0 {
		config.GracePeriod = settings.GracePeriod
	}
	if settings.CrankFee != 0 {
		config.CrankFee = settings.CrankFee
	}
	return runtime.Done(), ctx.Store(ConfigAddress, ConfigAccount, config)
}

func handlePoolCreate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args poolCreateArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	if args.Name == "" || args.Size == 0 {
		return nil, ErrInvalidArguments
	}
	config, err := requireAdmin(ctx, ix)
	if err != nil {
		return nil, err
	}
	addr := PoolAddress(args.Name)
	if err := ctx.Create(addr, config.Admin, PoolAccount, &Pool{Name: args.Name, Size: args.Size}); err != nil {
		return nil, err
	}

	var rotator Rotator
	if err := ctx.Load(RotatorAddress, RotatorAccount, &rotator); err != nil {
		return nil, err
	}
	rotator.PoolAddresses = append(rotator.PoolAddresses, addr)
	return runtime.Done(), ctx.Store(RotatorAddress, RotatorAccount, &rotator)
}
