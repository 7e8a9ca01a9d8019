// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/metronome"
)

var (
	chainID  = metronome.BytesToAddress([]byte("chain"))
	driverID = metronome.BytesToAddress([]byte("driver"))
	counter  = metronome.ProgramAddress(chainID, []byte("counter"))
	driver   = metronome.ProgramAddress(driverID, []byte("driver"))
	alice    = metronome.BytesToAddress([]byte("alice"))
)

type counterData struct {
	Value uint64
}

type stepArgs struct {
	N      uint64
	Stop   uint64
	FailAt uint64
}

type driveArgs struct {
	Stop   uint64
	Limit  uint64
	FailAt uint64
}

func stepIx(args stepArgs) *Instruction {
	return MustNewInstruction(chainID, "step", &args, Writable(counter), Signer(driver))
}

// chainProgram bumps a counter once per step and chains to the next step until Stop.
func chainProgram() Program {
	d := NewDispatcher(chainID)
	d.Handle("step", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		var args stepArgs
		if err := ix.DecodeArgs(&args); err != nil {
			return nil, err
		}
		if err := ctx.RequireSigner(driver); err != nil {
			return nil, err
		}
		var c counterData
		if err := ctx.Load(counter, "counter", &c); err != nil {
			return nil, err
		}
		c.Value++
		if err := ctx.Store(counter, "counter", &c); err != nil {
			return nil, err
		}
		if args.FailAt != 0 && args.N+1 == args.FailAt {
			return nil, errors.New("step failed")
		}
		if args.N+1 >= args.Stop {
			return Done(), nil
		}
		next := args
		next.N++
		return Continue(stepIx(next)), nil
	})
	return d
}

type countBudget struct {
	limit, used uint64
	nexts       []*Instruction
}

func (b *countBudget) Allow() bool { return b.used < b.limit }

func (b *countBudget) Committed(_ *Context, next *Instruction) error {
	b.used++
	b.nexts = append(b.nexts, next)
	return nil
}

// driverProgram runs a step chain under a budget, like a queue crank does.
func driverProgram(budget *countBudget) Program {
	d := NewDispatcher(driverID)
	d.Handle("drive", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		var args driveArgs
		if err := ix.DecodeArgs(&args); err != nil {
			return nil, err
		}
		budget.limit = args.Limit
		first := stepIx(stepArgs{Stop: args.Stop, FailAt: args.FailAt})
		hops, err := ctx.RunChain(first, budget, driver, []byte("driver"))
		if err != nil {
			if hops > 0 {
				return nil, &HaltError{Hops: hops, Err: err}
			}
			return nil, err
		}
		return Done(), nil
	})
	return d
}

func newTestState(t *testing.T) *State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	state := NewState(db)
	data, err := EncodeAccountData("counter", &counterData{})
	require.NoError(t, err)
	state.Set(counter, &Account{Owner: chainID, Data: data})
	_, err = state.Commit()
	require.NoError(t, err)
	return state
}

func counterValue(t *testing.T, state *State) uint64 {
	acc, err := state.Get(counter)
	require.NoError(t, err)
	var c counterData
	require.NoError(t, DecodeAccountData("counter", acc.Data, &c))
	return c.Value
}

func drive(args driveArgs) *Instruction {
	return MustNewInstruction(driverID, "drive", &args, Writable(counter), Writable(driver))
}

func TestRunChainToCompletion(t *testing.T) {
	state := newTestState(t)
	budget := &countBudget{}
	host := NewHost(chainProgram(), driverProgram(budget))

	resp, err := host.Execute(state, Clock{Slot: 1}, drive(driveArgs{Stop: 5, Limit: 10}))
	require.NoError(t, err)
	assert.True(t, resp.Done())
	assert.Equal(t, uint64(5), counterValue(t, state))
	require.Len(t, budget.nexts, 5)
	assert.Nil(t, budget.nexts[4])
	assert.NotNil(t, budget.nexts[3])
}

func TestRunChainRateLimit(t *testing.T) {
	state := newTestState(t)
	budget := &countBudget{}
	host := NewHost(chainProgram(), driverProgram(budget))

	_, err := host.Execute(state, Clock{Slot: 1}, drive(driveArgs{Stop: 10, Limit: 3}))
	require.Error(t, err)
	assert.True(t, IsRateLimitExceeded(err))

	var halt *HaltError
	require.True(t, errors.As(err, &halt))
	assert.Equal(t, 3, halt.Hops)
	// state is exactly as after the third hop
	assert.Equal(t, uint64(3), counterValue(t, state))
}

func TestRunChainRateLimitBeforeFirstHop(t *testing.T) {
	state := newTestState(t)
	host := NewHost(chainProgram(), driverProgram(&countBudget{}))

	_, err := host.Execute(state, Clock{Slot: 1}, drive(driveArgs{Stop: 10, Limit: 0}))
	assert.True(t, IsRateLimitExceeded(err))
	assert.Equal(t, uint64(0), counterValue(t, state))
}

func TestRunChainFailingHop(t *testing.T) {
	state := newTestState(t)
	host := NewHost(chainProgram(), driverProgram(&countBudget{}))

	// the fourth step bumps the counter and then fails: its write must not survive
	_, err := host.Execute(state, Clock{Slot: 1}, drive(driveArgs{Stop: 10, Limit: 10, FailAt: 4}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step failed")
	assert.Equal(t, uint64(3), counterValue(t, state))
}

func TestExecuteRevertsOnFailure(t *testing.T) {
	state := newTestState(t)
	host := NewHost(chainProgram())

	// direct call without the driver signature
	_, err := host.Execute(state, Clock{}, stepIx(stepArgs{Stop: 1}))
	assert.ErrorIs(t, err, ErrMissingSigner)
	assert.Equal(t, uint64(0), counterValue(t, state))

	_, err = host.Execute(state, Clock{}, stepIx(stepArgs{Stop: 1}), driver)
	require.NoError(t, err, "top level signers are trusted by the host")
	assert.Equal(t, uint64(1), counterValue(t, state))

	_, err = host.Execute(state, Clock{}, MustNewInstruction(alice, "x", nil))
	assert.ErrorIs(t, err, ErrUnknownProgram)

	_, err = host.Execute(state, Clock{}, MustNewInstruction(chainID, "nope", nil))
	assert.ErrorIs(t, err, ErrUnknownInstruction)
}

func TestWritableEscalation(t *testing.T) {
	state := newTestState(t)
	d := NewDispatcher(driverID)
	d.Handle("forward", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		return ctx.InvokeSigned(stepIx(stepArgs{Stop: 1}), driver, []byte("driver"))
	})
	host := NewHost(chainProgram(), d)

	// the forwarding instruction does not mark the counter writable
	_, err := host.Execute(state, Clock{}, MustNewInstruction(driverID, "forward", nil, Readonly(counter), Writable(driver)))
	assert.ErrorIs(t, err, ErrAccountNotWritable)

	_, err = host.Execute(state, Clock{}, MustNewInstruction(driverID, "forward", nil, Writable(counter), Writable(driver)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counterValue(t, state))

	// seeds must derive the signer
	d.Handle("forge", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		return ctx.InvokeSigned(stepIx(stepArgs{Stop: 1}), driver, []byte("other"))
	})
	_, err = host.Execute(state, Clock{}, MustNewInstruction(driverID, "forge", nil, Writable(counter), Writable(driver)))
	assert.ErrorIs(t, err, ErrSeedsMismatch)
}

func TestTransferAndClose(t *testing.T) {
	state := newTestState(t)
	state.Set(alice, &Account{Balance: 1000})

	bob := metronome.BytesToAddress([]byte("bob"))
	d := NewDispatcher(chainID)
	d.Handle("pay", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		return nil, ctx.Transfer(alice, bob, 400)
	})
	d.Handle("close", func(ctx *Context, ix *Instruction) (*CrankResponse, error) {
		return nil, ctx.Close(counter, alice)
	})
	host := NewHost(d)

	pay := MustNewInstruction(chainID, "pay", nil, Signer(alice), Writable(bob))
	_, err := host.Execute(state, Clock{}, pay)
	assert.ErrorIs(t, err, ErrAccountOwner, "alice did not sign")

	_, err = host.Execute(state, Clock{}, pay, alice)
	require.NoError(t, err)
	b, err := state.Get(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), b.Balance)

	acc, err := state.Get(counter)
	require.NoError(t, err)
	acc.Balance = 50
	state.Set(counter, acc)

	_, err = host.Execute(state, Clock{}, MustNewInstruction(chainID, "close", nil, Writable(counter), Writable(alice)))
	require.NoError(t, err)
	gone, err := state.Exists(counter)
	require.NoError(t, err)
	assert.False(t, gone)
	a, err := state.Get(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(650), a.Balance)
}

func TestStateCommit(t *testing.T) {
	state := newTestState(t)
	rev := state.Checkpoint()
	state.Set(alice, &Account{Balance: 1})
	state.RevertTo(rev)
	ok, err := state.Exists(alice)
	require.NoError(t, err)
	assert.False(t, ok)

	state.Set(alice, &Account{Balance: 7})
	state.Delete(counter)
	touched, err := state.Commit()
	require.NoError(t, err)
	assert.ElementsMatch(t, []metronome.Address{alice, counter}, touched)

	var seen []metronome.Address
	require.NoError(t, state.ForEach(func(addr metronome.Address, acc *Account) bool {
		seen = append(seen, addr)
		return true
	}))
	assert.Equal(t, []metronome.Address{alice}, seen)
}

func TestDecodeAccountDataMismatch(t *testing.T) {
	data, err := EncodeAccountData("snapshot", &counterData{Value: 1})
	require.NoError(t, err)

	var c counterData
	assert.True(t, IsDeserialization(DecodeAccountData("rotator", data, &c)))
	assert.True(t, IsDeserialization(DecodeAccountData("snapshot", data[:4], &c)))
	assert.True(t, IsDeserialization(DecodeAccountData("snapshot", append(data[:8:8], 0xff), &c)))
	require.NoError(t, DecodeAccountData("snapshot", data, &c))
	assert.Equal(t, uint64(1), c.Value)
}
