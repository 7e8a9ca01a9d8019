// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/runtime"
)

var (
	admin  = metronome.BytesToAddress([]byte("admin"))
	worker = metronome.BytesToAddress([]byte("worker"))
	other  = metronome.BytesToAddress([]byte("other"))

	snapshotQueue = QueueAddress(admin, "snapshot")
)

const (
	initialBalance = 1_000_000
	genesisUnix    = 1_700_000_000
)

type testLedger struct {
	t     *testing.T
	state *runtime.State
	host  *runtime.Host
	slot  uint64
	unix  int64
}

// newTestLedger initializes the network with three staked nodes and a one-shot
// snapshot queue limited to rateLimit hops per slot.
func newTestLedger(t *testing.T, rateLimit uint64) *testLedger {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state := runtime.NewState(db)
	for _, addr := range []metronome.Address{admin, worker, other} {
		state.Set(addr, &runtime.Account{Balance: initialBalance})
	}
	l := &testLedger{
		t:     t,
		state: state,
		host:  runtime.NewHost(network.New(), New()),
		unix:  genesisUnix,
	}
	l.mustExec(network.Initialize(admin, snapshotQueue), admin)
	for i := range 3 {
		l.mustExec(network.NodeRegister(admin, metronome.BytesToAddress([]byte{byte(i + 1)}), uint64(i)), admin)
		l.mustExec(network.NodeStake(admin, uint64(i), 100), admin)
	}
	l.mustExec(Create(admin, "snapshot", network.SnapshotKickoff(snapshotQueue), Settings{RateLimit: rateLimit}), admin)
	l.mustExec(Fund(admin, snapshotQueue, 100_000), admin)
	return l
}

func (l *testLedger) exec(ix *runtime.Instruction, signers ...metronome.Address) error {
	_, err := l.host.Execute(l.state, runtime.Clock{Slot: l.slot, UnixTimestamp: l.unix}, ix, signers...)
	return err
}

func (l *testLedger) mustExec(ix *runtime.Instruction, signers ...metronome.Address) {
	require.NoError(l.t, l.exec(ix, signers...))
}

func (l *testLedger) crank(w metronome.Address) error {
	return l.exec(Crank(w, snapshotQueue), w)
}

func (l *testLedger) queue(addr metronome.Address) *Queue {
	acc, err := l.state.Get(addr)
	require.NoError(l.t, err)
	require.NotNil(l.t, acc)
	var q Queue
	require.NoError(l.t, runtime.DecodeAccountData(QueueAccount, acc.Data, &q))
	return &q
}

func (l *testLedger) balance(addr metronome.Address) uint64 {
	acc, err := l.state.Get(addr)
	require.NoError(l.t, err)
	return acc.Balance
}

func (l *testLedger) currentSnapshot() uint64 {
	acc, err := l.state.Get(network.RegistryAddress)
	require.NoError(l.t, err)
	var registry network.Registry
	require.NoError(l.t, runtime.DecodeAccountData(network.RegistryAccount, acc.Data, &registry))
	return registry.CurrentSnapshot
}

func TestCrankRunsWholeChain(t *testing.T) {
	l := newTestLedger(t, 100)
	l.slot = 1

	require.NoError(t, l.crank(worker))

	q := l.queue(snapshotQueue)
	assert.False(t, q.InFlight())
	assert.Equal(t, Paused, q.Status, "one-shot queue pauses after its chain")
	// kickoff, create, three captures, rotate, close
	assert.Equal(t, uint64(7), q.ExecContext.Cranks)
	assert.Equal(t, uint64(initialBalance+7*metronome.DefaultCrankFee), l.balance(worker))
	assert.Equal(t, uint64(1), l.currentSnapshot())

	assert.ErrorIs(t, l.crank(worker), ErrQueuePaused)
}

func TestCrankRateLimit(t *testing.T) {
	l := newTestLedger(t, 3)
	l.slot = 1

	err := l.crank(worker)
	require.Error(t, err)
	assert.True(t, runtime.IsRateLimitExceeded(err))
	var halt *runtime.HaltError
	require.True(t, errors.As(err, &halt))
	assert.Equal(t, 3, halt.Hops)

	// exactly three hops committed: kickoff, create, first capture
	q := l.queue(snapshotQueue)
	require.True(t, q.InFlight())
	assert.Equal(t, ExecContext{Slot: 1, Cranks: 3}, q.ExecContext)
	assert.Equal(t, network.IxSnapshotCapture, network.New().Name(q.NextInstruction))
	assert.Equal(t, uint64(initialBalance+3*metronome.DefaultCrankFee), l.balance(worker))

	// budget is spent for this slot and nothing moves
	err = l.crank(worker)
	assert.True(t, runtime.IsRateLimitExceeded(err))
	assert.False(t, errors.As(err, &halt))
	assert.Equal(t, uint64(3), l.queue(snapshotQueue).ExecContext.Cranks)

	// the next slot resumes where the chain stopped: two captures and the rotation
	l.slot = 2
	err = l.crank(worker)
	assert.True(t, runtime.IsRateLimitExceeded(err))
	assert.Equal(t, uint64(1), l.currentSnapshot())
	assert.Equal(t, network.IxSnapshotClose, network.New().Name(l.queue(snapshotQueue).NextInstruction))

	l.slot = 3
	require.NoError(t, l.crank(worker))
	q = l.queue(snapshotQueue)
	assert.False(t, q.InFlight())
	assert.Equal(t, uint64(1), q.ExecContext.Cranks)
	assert.Equal(t, uint64(1), l.currentSnapshot())
	assert.Equal(t, uint64(initialBalance+7*metronome.DefaultCrankFee), l.balance(worker))
}

func TestCrankRequiresPoolSeat(t *testing.T) {
	l := newTestLedger(t, 100)
	l.mustExec(network.PoolCreate(admin, metronome.CrankPool, 1), admin)

	// an empty crank pool admits anyone
	l.mustExec(Resume(admin, snapshotQueue), admin)
	require.NoError(t, l.crank(other))
	l.mustExec(Resume(admin, snapshotQueue), admin)

	// rotate a worker in, then only that worker may crank
	rotatorAcc, err := l.state.Get(network.RotatorAddress)
	require.NoError(t, err)
	var rotator network.Rotator
	require.NoError(t, runtime.DecodeAccountData(network.RotatorAccount, rotatorAcc.Data, &rotator))

	l.slot = metronome.DefaultRotationInterval + metronome.DefaultGracePeriod
	var rotated bool
	for id := range uint64(3) {
		if l.exec(network.PoolsRotate(other, 1, id, rotator.PoolAddresses), other) == nil {
			rotated = true
			break
		}
	}
	require.True(t, rotated)

	assert.ErrorIs(t, l.crank(other), ErrNotInPool)
}

func TestCrankSchedule(t *testing.T) {
	l := newTestLedger(t, 100)
	l.mustExec(Update(admin, snapshotQueue, Settings{Schedule: "@every 1m"}), admin)

	q := l.queue(snapshotQueue)
	assert.Equal(t, uint64(genesisUnix+60), q.ExecAt)
	assert.ErrorIs(t, l.crank(worker), ErrNotDue)

	l.slot, l.unix = 1, genesisUnix+60
	require.NoError(t, l.crank(worker))
	q = l.queue(snapshotQueue)
	assert.Equal(t, Active, q.Status, "scheduled queues stay active")
	assert.Equal(t, uint64(genesisUnix+120), q.ExecAt)
	assert.ErrorIs(t, l.crank(worker), ErrNotDue)
}

func TestQueueAuthority(t *testing.T) {
	l := newTestLedger(t, 100)

	assert.ErrorIs(t, l.exec(Pause(other, snapshotQueue), other), ErrUnauthorized)
	assert.ErrorIs(t, l.exec(Update(admin, snapshotQueue, Settings{Schedule: "not a schedule"}), admin), ErrInvalidSchedule)

	l.mustExec(Pause(admin, snapshotQueue), admin)
	assert.ErrorIs(t, l.crank(worker), ErrQueuePaused)

	before := l.balance(admin)
	queued := l.balance(snapshotQueue)
	l.mustExec(Close(admin, snapshotQueue), admin)
	assert.Equal(t, before+queued, l.balance(admin))
	exists, err := l.state.Exists(snapshotQueue)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNextExecAt(t *testing.T) {
	at, err := NextExecAt("", genesisUnix)
	require.NoError(t, err)
	assert.Zero(t, at)

	// seconds are optional
	at, err = NextExecAt("*/10 * * * * *", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), at)

	at, err = NextExecAt("0 * * * *", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(time.Hour/time.Second), at)

	_, err = NextExecAt("61 * * * *", 0)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	assert.NoError(t, ValidateSchedule("@daily"))
}

func TestChainCannotSpendWorkerBalance(t *testing.T) {
	l := newTestLedger(t, 100)
	l.slot = 1

	evil := QueueAddress(other, "evil")
	l.mustExec(Create(other, "evil", Fund(worker, evil, 900_000), Settings{RateLimit: 10}), other)
	l.mustExec(Fund(other, evil, 10_000), other)
	workerBefore, evilBefore := l.balance(worker), l.balance(evil)

	err := l.exec(Crank(worker, evil), worker)
	assert.ErrorIs(t, err, runtime.ErrAccountOwner)
	assert.Equal(t, workerBefore, l.balance(worker))
	assert.Equal(t, evilBefore, l.balance(evil))
	assert.Equal(t, uint64(0), l.queue(evil).ExecContext.Cranks)
}

func TestCrankReportsHops(t *testing.T) {
	l := newTestLedger(t, 100)
	l.slot = 1

	resp, err := l.host.Execute(l.state, runtime.Clock{Slot: l.slot, UnixTimestamp: l.unix}, Crank(worker, snapshotQueue), worker)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Hops)
}
