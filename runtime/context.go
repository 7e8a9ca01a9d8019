// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/metronome"
)

// MaxInvokeDepth bounds nested program invocations. Chain hops do not nest.
const MaxInvokeDepth = 4

// Context is handed to a program while it executes one instruction.
type Context struct {
	host     *Host
	state    *State
	clock    Clock
	program  metronome.Address
	ix       *Instruction
	signers  map[metronome.Address]bool
	writable map[metronome.Address]bool
	depth    int
}

func newContext(host *Host, state *State, clock Clock, ix *Instruction, signers map[metronome.Address]bool, depth int) *Context {
	c := &Context{
		host:     host,
		state:    state,
		clock:    clock,
		program:  ix.ProgramID,
		ix:       ix,
		signers:  make(map[metronome.Address]bool),
		writable: make(map[metronome.Address]bool),
		depth:    depth,
	}
	for _, meta := range ix.Accounts {
		// a signer flag only counts when the caller actually holds that signature
		if meta.Signer && signers[meta.Address] {
			c.signers[meta.Address] = true
		}
		if meta.Writable {
			c.writable[meta.Address] = true
		}
	}
	return c
}

// Clock returns the current ledger time.
func (c *Context) Clock() Clock { return c.clock }

// ProgramID returns the executing program.
func (c *Context) ProgramID() metronome.Address { return c.program }

// IsSigner reports whether addr signed the current instruction.
func (c *Context) IsSigner(addr metronome.Address) bool {
	return c.signers[addr]
}

// RequireSigner fails with ErrMissingSigner unless addr signed.
func (c *Context) RequireSigner(addr metronome.Address) error {
	if !c.signers[addr] {
		return errors.Wrapf(ErrMissingSigner, "%v", addr)
	}
	return nil
}

// Account returns the account at addr.
func (c *Context) Account(addr metronome.Address) (*Account, error) {
	acc, err := c.state.Get(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errors.Wrapf(ErrAccountNotFound, "%v", addr)
	}
	return acc, nil
}

// Exists reports whether an account lives at addr.
func (c *Context) Exists(addr metronome.Address) (bool, error) {
	return c.state.Exists(addr)
}

// Load decodes the data of an account owned by the executing program.
func (c *Context) Load(addr metronome.Address, name string, out any) error {
	return c.LoadFrom(c.program, addr, name, out)
}

// LoadFrom decodes the data of an account owned by program.
func (c *Context) LoadFrom(program, addr metronome.Address, name string, out any) error {
	acc, err := c.Account(addr)
	if err != nil {
		return err
	}
	if acc.Owner != program {
		return errors.Wrapf(ErrAccountOwner, "%v", addr)
	}
	return DecodeAccountData(name, acc.Data, out)
}

func (c *Context) requireWritable(addr metronome.Address) error {
	if !c.writable[addr] {
		return errors.Wrapf(ErrAccountNotWritable, "%v", addr)
	}
	return nil
}

// Create initializes an account owned by the executing program. payer funds
// the account deposit, which is returned when the account is closed.
func (c *Context) Create(addr metronome.Address, payer metronome.Address, name string, v any) error {
	if err := c.requireWritable(addr); err != nil {
		return err
	}
	exists, err := c.state.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(ErrAccountExists, "%v", addr)
	}
	data, err := EncodeAccountData(name, v)
	if err != nil {
		return err
	}
	c.state.Set(addr, &Account{Owner: c.program, Data: data})
	return c.Transfer(payer, addr, metronome.AccountDeposit)
}

// Store overwrites the data of a program owned account.
func (c *Context) Store(addr metronome.Address, name string, v any) error {
	if err := c.requireWritable(addr); err != nil {
		return err
	}
	acc, err := c.Account(addr)
	if err != nil {
		return err
	}
	if acc.Owner != c.program {
		return errors.Wrapf(ErrAccountOwner, "%v", addr)
	}
	if acc.Data, err = EncodeAccountData(name, v); err != nil {
		return err
	}
	c.state.Set(addr, acc)
	return nil
}

// Close deletes a program owned account and moves its balance to dest.
func (c *Context) Close(addr, dest metronome.Address) error {
	if err := c.requireWritable(addr); err != nil {
		return err
	}
	acc, err := c.Account(addr)
	if err != nil {
		return err
	}
	if acc.Owner != c.program {
		return errors.Wrapf(ErrAccountOwner, "%v", addr)
	}
	if err := c.Transfer(addr, dest, acc.Balance); err != nil {
		return err
	}
	c.state.Delete(addr)
	return nil
}

// Transfer moves amount from one account to another. The source must be owned
// by the executing program or have signed the instruction.
// A missing destination is created as a key holder account.
func (c *Context) Transfer(from, to metronome.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	if err := c.requireWritable(from); err != nil {
		return err
	}
	if err := c.requireWritable(to); err != nil {
		return err
	}
	src, err := c.Account(from)
	if err != nil {
		return err
	}
	if src.Owner != c.program && !c.signers[from] {
		return errors.Wrapf(ErrAccountOwner, "debit %v", from)
	}
	if src.Balance < amount {
		return errors.Wrapf(ErrInsufficientBalance, "%v has %d, needs %d", from, src.Balance, amount)
	}
	dst, err := c.state.Get(to)
	if err != nil {
		return err
	}
	if dst == nil {
		dst = &Account{}
	}
	src.Balance -= amount
	dst.Balance += amount
	c.state.Set(from, src)
	c.state.Set(to, dst)
	return nil
}

// Invoke calls ix in another program, forwarding the signatures of the current instruction.
func (c *Context) Invoke(ix *Instruction) (*CrankResponse, error) {
	return c.invoke(ix, c.signers, true)
}

// InvokeSigned calls ix with signer added to the forwarded signatures. signer must be
// the program address of the executing program derived from seeds.
func (c *Context) InvokeSigned(ix *Instruction, signer metronome.Address, seeds ...[]byte) (*CrankResponse, error) {
	signers, err := c.withSigner(signer, seeds)
	if err != nil {
		return nil, err
	}
	return c.invoke(ix, signers, true)
}

func (c *Context) withSigner(signer metronome.Address, seeds [][]byte) (map[metronome.Address]bool, error) {
	if metronome.ProgramAddress(c.program, seeds...) != signer {
		return nil, errors.Wrapf(ErrSeedsMismatch, "%v", signer)
	}
	signers := make(map[metronome.Address]bool, len(c.signers)+1)
	for k := range c.signers {
		signers[k] = true
	}
	signers[signer] = true
	return signers, nil
}

func (c *Context) invoke(ix *Instruction, signers map[metronome.Address]bool, checkWritable bool) (*CrankResponse, error) {
	if c.depth+1 >= MaxInvokeDepth {
		return nil, ErrInvokeDepth
	}
	if checkWritable {
		// the callee may only write what the caller could write
		for _, meta := range ix.Accounts {
			if meta.Writable && !c.writable[meta.Address] {
				return nil, errors.Wrapf(ErrAccountNotWritable, "escalated %v", meta.Address)
			}
		}
	}
	return c.host.invoke(c.state, c.clock, ix, signers, c.depth+1)
}

// Budget meters a chain of steps.
type Budget interface {
	// Allow reports whether one more hop may run.
	Allow() bool
	// Committed is called inside the scope of a successful hop with the hop that follows it.
	// An error rolls the hop back.
	Committed(ctx *Context, next *Instruction) error
}

// RunChain runs first and every instruction it chains to as separate atomic hops.
// Hops are signed by the program address derived from seeds and by nothing else:
// the signatures of the cranking tx never reach instructions written by the queue
// authority. Hops write the accounts their own metas mark writable, since a chain
// may reach accounts that did not exist when the crank was submitted. It stops at
// the first failure: the failing hop is rolled back and the hops before it stay.
// When the budget is exhausted the next hop fails with ErrRateLimitExceeded.
func (c *Context) RunChain(first *Instruction, budget Budget, signer metronome.Address, seeds ...[]byte) (int, error) {
	if metronome.ProgramAddress(c.program, seeds...) != signer {
		return 0, errors.Wrapf(ErrSeedsMismatch, "%v", signer)
	}
	signers := map[metronome.Address]bool{signer: true}
	hops := 0
	for ix := first; ix != nil; {
		if !budget.Allow() {
			metricRateLimited().Add(1)
			return hops, ErrRateLimitExceeded
		}
		rev := c.state.Checkpoint()
		resp, err := c.invoke(ix, signers, false)
		if err == nil {
			err = budget.Committed(c, resp.NextInstruction)
		}
		if err != nil {
			c.state.RevertTo(rev)
			return hops, err
		}
		hops++
		metricHops().Add(1)
		ix = resp.NextInstruction
	}
	return hops, nil
}
