// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
)

var (
	admin = metronome.BytesToAddress([]byte("admin"))
	queue = metronome.BytesToAddress([]byte("snapshot-queue"))
	alice = metronome.BytesToAddress([]byte("alice"))
	bob   = metronome.BytesToAddress([]byte("bob"))
)

const initialBalance = 1_000_000

type testLedger struct {
	t     *testing.T
	state *runtime.State
	host  *runtime.Host
	slot  uint64
}

func newTestLedger(t *testing.T) *testLedger {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state := runtime.NewState(db)
	for _, addr := range []metronome.Address{admin, queue, alice, bob} {
		state.Set(addr, &runtime.Account{Balance: initialBalance})
	}
	l := &testLedger{t: t, state: state, host: runtime.NewHost(New())}
	l.mustExec(Initialize(admin, queue), admin)
	return l
}

func (l *testLedger) clock() runtime.Clock {
	return runtime.Clock{Slot: l.slot, UnixTimestamp: 1_700_000_000 + int64(l.slot)}
}

func (l *testLedger) exec(ix *runtime.Instruction, signers ...metronome.Address) (*runtime.CrankResponse, error) {
	return l.host.Execute(l.state, l.clock(), ix, signers...)
}

func (l *testLedger) mustExec(ix *runtime.Instruction, signers ...metronome.Address) *runtime.CrankResponse {
	resp, err := l.exec(ix, signers...)
	require.NoError(l.t, err)
	return resp
}

// runChain executes ix and every instruction it chains to, one step per call,
// and returns the names of the executed steps.
func (l *testLedger) runChain(ix *runtime.Instruction) []string {
	d := New()
	var steps []string
	for ix != nil {
		steps = append(steps, d.Name(ix))
		ix = l.mustExec(ix, queue).NextInstruction
	}
	return steps
}

func (l *testLedger) load(addr metronome.Address, name string, out any) {
	acc, err := l.state.Get(addr)
	require.NoError(l.t, err)
	require.NotNil(l.t, acc, "account %v", addr)
	require.NoError(l.t, runtime.DecodeAccountData(name, acc.Data, out))
}

func (l *testLedger) exists(addr metronome.Address) bool {
	ok, err := l.state.Exists(addr)
	require.NoError(l.t, err)
	return ok
}

func (l *testLedger) balance(addr metronome.Address) uint64 {
	acc, err := l.state.Get(addr)
	require.NoError(l.t, err)
	if acc == nil {
		return 0
	}
	return acc.Balance
}

func (l *testLedger) registerNodes(stakes ...uint64) {
	for i, stake := range stakes {
		authority := metronome.BytesToAddress([]byte{byte(i + 1)})
		worker := metronome.BytesToAddress([]byte{0xff, byte(i + 1)})
		l.state.Set(authority, &runtime.Account{Balance: initialBalance})
		l.mustExec(NodeRegister(authority, worker, uint64(i)), authority)
		if stake > 0 {
			l.mustExec(NodeStake(authority, uint64(i), stake), authority)
		}
	}
}

func count(steps []string, name string) int {
	n := 0
	for _, s := range steps {
		if s == name {
			n++
		}
	}
	return n
}

func TestInitialize(t *testing.T) {
	l := newTestLedger(t)

	var config Config
	l.load(ConfigAddress, ConfigAccount, &config)
	assert.Equal(t, admin, config.Admin)
	assert.Equal(t, queue, config.SnapshotQueue)
	assert.Equal(t, rotation.DefaultParams(), config.Params())

	var rotator Rotator
	l.load(RotatorAddress, RotatorAccount, &rotator)
	assert.NotZero(t, rotator.Nonce)

	var snapshot Snapshot
	l.load(SnapshotAddress(0), SnapshotAccount, &snapshot)
	assert.Equal(t, SnapshotCurrent, snapshot.Status)

	// five accounts, one deposit each
	assert.Equal(t, uint64(initialBalance-5*metronome.AccountDeposit), l.balance(admin))

	_, err := l.exec(Initialize(admin, queue), admin)
	assert.ErrorIs(t, err, runtime.ErrAccountExists)
}

func TestConfigUpdate(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.exec(ConfigUpdate(alice, ConfigSettings{RotationInterval: 5}), alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	l.mustExec(ConfigUpdate(admin, ConfigSettings{RotationInterval: 5}), admin)
	var config Config
	l.load(ConfigAddress, ConfigAccount, &config)
	assert.Equal(t, uint64(5), config.RotationInterval)
	assert.Equal(t, uint64(metronome.DefaultGracePeriod), config.GracePeriod)
}

func TestNodeLifecycle(t *testing.T) {
	l := newTestLedger(t)
	l.registerNodes(0)
	authority := metronome.BytesToAddress([]byte{1})

	// ids are assigned in order
	_, err := l.exec(NodeRegister(alice, alice, 5), alice)
	assert.ErrorIs(t, err, runtime.ErrAccountNotWritable)

	_, err = l.exec(NodeStake(alice, 0, 10), alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	l.mustExec(NodeStake(authority, 0, 250), authority)
	l.mustExec(NodeUpdate(authority, 0, bob), authority)

	var node Node
	l.load(NodeAddress(0), NodeAccount, &node)
	assert.Equal(t, uint64(250), node.Stake)
	assert.Equal(t, bob, node.Worker)
	assert.Equal(t, uint64(250+metronome.AccountDeposit), l.balance(NodeAddress(0)))
}

func TestStakeOverflow(t *testing.T) {
	l := newTestLedger(t)
	l.registerNodes(0)
	authority := metronome.BytesToAddress([]byte{1})
	l.state.Set(authority, &runtime.Account{Balance: math.MaxUint64})

	l.mustExec(NodeStake(authority, 0, math.MaxUint64-1000), authority)
	_, err := l.exec(NodeStake(authority, 0, 1001), authority)
	assert.ErrorIs(t, err, ErrStakeOverflow)

	_, err = addStake(math.MaxUint64, 0)
	assert.NoError(t, err)
}

func TestSnapshotChain(t *testing.T) {
	l := newTestLedger(t)
	l.registerNodes(100, 50, 250)
	l.slot = 1

	steps := l.runChain(SnapshotKickoff(queue))
	assert.Equal(t, []string{
		IxSnapshotKickoff, IxSnapshotCreate,
		IxSnapshotCapture, IxSnapshotCapture, IxSnapshotCapture,
		IxSnapshotRotate, IxSnapshotClose,
	}, steps, "the genesis snapshot has no entries and closes in one step")

	var registry Registry
	l.load(RegistryAddress, RegistryAccount, &registry)
	assert.Equal(t, uint64(1), registry.CurrentSnapshot)
	assert.Equal(t, uint64(2), registry.SnapshotCount)
	assert.False(t, l.exists(SnapshotAddress(0)))

	var snapshot Snapshot
	l.load(SnapshotAddress(1), SnapshotAccount, &snapshot)
	assert.Equal(t, Snapshot{ID: 1, NodeCount: 3, StakeTotal: 400, Status: SnapshotCurrent}, snapshot)

	offsets := []uint64{0, 100, 150}
	amounts := []uint64{100, 50, 250}
	for i := range 3 {
		var entry SnapshotEntry
		l.load(EntryAddress(SnapshotAddress(1), uint64(i)), EntryAccount, &entry)
		assert.Equal(t, offsets[i], entry.StakeOffset)
		assert.Equal(t, amounts[i], entry.StakeAmount)
	}
	afterFirst := l.balance(queue)

	steps = l.runChain(SnapshotKickoff(queue))
	assert.Equal(t, 1, count(steps, IxSnapshotClose))
	assert.Equal(t, 3, count(steps, IxEntryClose), "three entries close in four steps")
	for i := range 3 {
		assert.False(t, l.exists(EntryAddress(SnapshotAddress(1), uint64(i))))
	}
	assert.False(t, l.exists(SnapshotAddress(1)))
	assert.Equal(t, afterFirst, l.balance(queue), "closing refunds what the new snapshot locked")
}

func TestSnapshotChainWithoutNodes(t *testing.T) {
	l := newTestLedger(t)

	steps := l.runChain(SnapshotKickoff(queue))
	assert.Equal(t, []string{IxSnapshotKickoff, IxSnapshotCreate, IxSnapshotRotate, IxSnapshotClose}, steps)
}

func TestSnapshotChainRequiresQueue(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.exec(SnapshotKickoff(alice), alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.exec(SnapshotKickoff(queue))
	assert.ErrorIs(t, err, runtime.ErrMissingSigner)

	// steps cannot be replayed out of order
	_, err = l.exec(SnapshotClose(queue, 0), queue)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestPoolCreate(t *testing.T) {
	l := newTestLedger(t)
	l.mustExec(PoolCreate(admin, metronome.CrankPool, 2), admin)

	_, err := l.exec(PoolCreate(admin, "empty", 0), admin)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	var rotator Rotator
	l.load(RotatorAddress, RotatorAccount, &rotator)
	assert.Equal(t, []metronome.Address{PoolAddress(metronome.CrankPool)}, rotator.PoolAddresses)
}

func TestPoolRotateFIFO(t *testing.T) {
	p := Pool{Size: 2}
	p.Rotate(alice)
	p.Rotate(bob)
	p.Rotate(bob)
	assert.Equal(t, []metronome.Address{alice, bob}, p.Workers)
	p.Rotate(admin)
	assert.Equal(t, []metronome.Address{bob, admin}, p.Workers)
	assert.False(t, p.Contains(alice))
}

func (l *testLedger) selected() (*Rotator, *rotation.Entry) {
	var (
		rotator  Rotator
		registry Registry
		snapshot Snapshot
	)
	l.load(RotatorAddress, RotatorAccount, &rotator)
	l.load(RegistryAddress, RegistryAccount, &registry)
	l.load(SnapshotAddress(registry.CurrentSnapshot), SnapshotAccount, &snapshot)

	entries := make([]rotation.Entry, snapshot.NodeCount)
	for i := range entries {
		var e SnapshotEntry
		l.load(EntryAddress(SnapshotAddress(snapshot.ID), uint64(i)), EntryAccount, &e)
		entries[i] = e.RotationEntry()
	}
	entry, err := rotation.Select(rotator.Nonce, snapshot.StakeTotal, entries)
	require.NoError(l.t, err)
	return &rotator, entry
}

func TestPoolsRotate(t *testing.T) {
	l := newTestLedger(t)
	l.mustExec(PoolCreate(admin, metronome.CrankPool, 1), admin)
	l.mustExec(PoolCreate(admin, metronome.HTTPPool, 1), admin)
	l.registerNodes(100, 300)
	l.slot = 1
	l.runChain(SnapshotKickoff(queue))

	rotator, entry := l.selected()
	rotate := PoolsRotate(alice, 1, entry.ID, rotator.PoolAddresses)

	l.slot = 5
	_, err := l.exec(rotate, alice)
	assert.ErrorIs(t, err, rotation.ErrTooEarly)

	l.slot = 12
	_, err = l.exec(rotate, alice)
	assert.ErrorIs(t, err, rotation.ErrNotYetPermissionless)

	l.slot = 20
	wrong := PoolsRotate(alice, 1, 1-entry.ID, rotator.PoolAddresses)
	_, err = l.exec(wrong, alice)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	missing := PoolsRotate(alice, 1, entry.ID, rotator.PoolAddresses[:1])
	_, err = l.exec(missing, alice)
	assert.ErrorIs(t, err, ErrInvalidPool)

	l.mustExec(rotate, alice)

	var after Rotator
	l.load(RotatorAddress, RotatorAccount, &after)
	assert.Equal(t, uint64(20), after.LastRotationAt)
	assert.Equal(t, rotation.NextNonce(rotator.Nonce, 20), after.Nonce)
	for _, addr := range after.PoolAddresses {
		var pool Pool
		l.load(addr, PoolAccount, &pool)
		assert.Equal(t, []metronome.Address{entry.Worker}, pool.Workers)
	}

	// the same transition cannot land twice
	_, err = l.exec(rotate, alice)
	assert.ErrorIs(t, err, rotation.ErrTooEarly)

	// members may rotate as soon as the next one is due
	member := entry.Worker
	rotator, entry = l.selected()
	l.slot = 30
	l.mustExec(PoolsRotate(member, 1, entry.ID, rotator.PoolAddresses), member)
}
