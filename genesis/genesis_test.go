// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/runtime"
)

func buildState(t *testing.T, g *Genesis) *runtime.State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state := runtime.NewState(db)
	_, err = g.Build(state, NewHost())
	require.NoError(t, err)
	return state
}

func TestDevnet(t *testing.T) {
	g := NewDevnet()
	state := buildState(t, g)
	assert.Equal(t, "devnet", g.Name())

	acc, err := state.Get(network.RegistryAddress)
	require.NoError(t, err)
	var registry network.Registry
	require.NoError(t, runtime.DecodeAccountData(network.RegistryAccount, acc.Data, &registry))
	assert.Equal(t, uint64(3), registry.NodeCount)

	acc, err = state.Get(network.RotatorAddress)
	require.NoError(t, err)
	var rotator network.Rotator
	require.NoError(t, runtime.DecodeAccountData(network.RotatorAccount, acc.Data, &rotator))
	assert.Equal(t, []metronome.Address{
		network.PoolAddress(metronome.CrankPool),
		network.PoolAddress(metronome.HTTPPool),
	}, rotator.PoolAddresses)

	acc, err = state.Get(g.SnapshotQueue())
	require.NoError(t, err)
	var q queue.Queue
	require.NoError(t, runtime.DecodeAccountData(queue.QueueAccount, acc.Data, &q))
	assert.Equal(t, "@every 1m", q.Schedule)
	assert.Equal(t, uint64(g.Clock().UnixTimestamp+60), q.ExecAt)
	assert.Equal(t, DevBalance/10+metronome.AccountDeposit, acc.Balance)
}

func TestLoadCustomNet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	admin := DevAccounts()[0].Address
	content := `{
		"launchTime": 1700000000,
		"admin": "` + admin.String() + `",
		"accounts": [{"address": "` + admin.String() + `", "balance": 1000000}],
		"pools": [{"name": "crank", "size": 1}],
		"snapshotSchedule": "0 0 * * *"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	g, err := LoadCustomNet(path)
	require.NoError(t, err)
	buildState(t, g)

	require.NoError(t, os.WriteFile(path, []byte(`{"launchTime": 1, "admin": "`+admin.String()+`", "snapshotSchedule": "bad"}`), 0o600))
	_, err = LoadCustomNet(path)
	assert.ErrorIs(t, err, queue.ErrInvalidSchedule)
}
