// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/metronome/cache"
	"github.com/vechain/metronome/genesis"
	"github.com/vechain/metronome/kv"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

var (
	accountsBucket = kv.Bucket("a")
	receiptsBucket = kv.Bucket("r")
	metaBucket     = kv.Bucket("m")

	clockKey = []byte("clock")

	errKnownTx = errors.New("known tx")
)

// Core is the single writer of the solo ledger. It executes transactions slot by slot
// and publishes the resulting clock and account changes to subscribers.
type Core struct {
	host     *runtime.Host
	receipts kv.Store
	meta     kv.Store

	mu           sync.Mutex
	state        *runtime.State
	clock        runtime.Clock
	references   *cache.LRU[metronome.Bytes32, uint64]
	receiptCache *cache.LRU[metronome.Bytes32, *tx.Receipt]

	slotFeed    event.Feed
	accountFeed event.Feed
	scope       event.SubscriptionScope
}

// NewCore opens the ledger kept in db, building gene into it when db is empty.
func NewCore(db kv.Store, gene *genesis.Genesis) (*Core, error) {
	references, err := cache.NewLRU[metronome.Bytes32, uint64](int(metronome.MaxReferenceAge) + 1)
	if err != nil {
		return nil, err
	}
	receiptCache, err := cache.NewLRU[metronome.Bytes32, *tx.Receipt](1024)
	if err != nil {
		return nil, err
	}

	c := &Core{
		host:         genesis.NewHost(),
		receipts:     receiptsBucket.NewStore(db),
		meta:         metaBucket.NewStore(db),
		state:        runtime.NewState(accountsBucket.NewStore(db)),
		references:   references,
		receiptCache: receiptCache,
	}

	data, err := c.meta.Get(clockKey)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &c.clock); err != nil {
			return nil, errors.Wrap(err, "decode clock")
		}
		logger.Info("ledger loaded", "slot", c.clock.Slot)
	case c.meta.IsNotFound(err):
		if _, err := gene.Build(c.state, c.host); err != nil {
			return nil, errors.Wrap(err, "build genesis")
		}
		c.clock = gene.Clock()
		if err := c.saveClock(c.clock); err != nil {
			return nil, err
		}
		logger.Info("genesis built", "network", gene.Name(), "admin", gene.Admin())
	default:
		return nil, errors.Wrap(err, "load clock")
	}

	first := uint64(0)
	if c.clock.Slot > metronome.MaxReferenceAge {
		first = c.clock.Slot - metronome.MaxReferenceAge
	}
	for slot := first; slot <= c.clock.Slot; slot++ {
		c.references.Add(metronome.ReferenceHash(slot), slot)
	}
	return c, nil
}

func (c *Core) saveClock(clock runtime.Clock) error {
	data, err := json.Marshal(&clock)
	if err != nil {
		return err
	}
	return c.meta.Put(clockKey, data)
}

// Clock returns the clock of the latest slot.
func (c *Core) Clock() runtime.Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// Reference returns the reference hash of the latest slot.
func (c *Core) Reference() (metronome.Bytes32, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return metronome.ReferenceHash(c.clock.Slot), c.clock.Slot
}

// Account returns the committed account at addr, nil if absent.
func (c *Core) Account(addr metronome.Address) (*runtime.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Get(addr)
}

// Accounts returns every committed account owned by owner.
func (c *Core) Accounts(owner metronome.Address) ([]*runtime.AccountChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var accounts []*runtime.AccountChange
	err := c.state.ForEach(func(addr metronome.Address, acc *runtime.Account) bool {
		if acc.Owner == owner {
			accounts = append(accounts, &runtime.AccountChange{Address: addr, Account: acc, Slot: c.clock.Slot})
		}
		return true
	})
	return accounts, err
}

// Receipt returns the receipt of the tx, nil if the tx is unknown.
func (c *Core) Receipt(id metronome.Bytes32) (*tx.Receipt, error) {
	if r, ok := c.receiptCache.Get(id); ok {
		return r, nil
	}
	data, err := c.receipts.Get(id.Bytes())
	if err != nil {
		if c.receipts.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var r tx.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode receipt")
	}
	c.receiptCache.Add(id, &r)
	return &r, nil
}

// IsExecutable checks whether trx could be included in the next slot.
func (c *Core) IsExecutable(trx *tx.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate(trx, c.clock.Slot+1)
}

func (c *Core) validate(trx *tx.Transaction, slot uint64) error {
	if err := trx.Validate(); err != nil {
		return err
	}
	refSlot, ok := c.references.Get(trx.ReferenceHash())
	if !ok || slot-refSlot > metronome.MaxReferenceAge {
		return tx.ErrStaleReference
	}
	known, err := c.receipts.Has(trx.ID().Bytes())
	if err != nil {
		return err
	}
	if known {
		return errKnownTx
	}
	return nil
}

// Pack produces the next slot with txs executed in order.
func (c *Core) Pack(txs []*tx.Transaction, now time.Time) ([]*tx.Receipt, error) {
	clock, receipts, changes, err := c.pack(txs, now)
	if err != nil {
		return nil, err
	}
	c.slotFeed.Send(clock)
	for _, change := range changes {
		c.accountFeed.Send(change)
	}
	return receipts, nil
}

func (c *Core) pack(txs []*tx.Transaction, now time.Time) (runtime.Clock, []*tx.Receipt, []*runtime.AccountChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := c.clock.Slot + 1
	clock := runtime.Clock{
		Slot:          slot,
		Epoch:         slot / metronome.SlotsPerEpoch,
		UnixTimestamp: max(now.Unix(), c.clock.UnixTimestamp),
	}

	receipts := make([]*tx.Receipt, 0, len(txs))
	seen := make(map[metronome.Bytes32]bool, len(txs))
	for _, trx := range txs {
		if seen[trx.ID()] {
			continue
		}
		if err := c.validate(trx, slot); err != nil {
			logger.Debug("tx dropped", "id", trx.ID(), "err", err)
			continue
		}
		seen[trx.ID()] = true
		receipts = append(receipts, c.execute(trx, clock))
	}

	prevOwners := make(map[metronome.Address]metronome.Address)
	for addr, acc := range c.state.Changes() {
		if acc != nil {
			continue
		}
		prev, err := c.state.Committed(addr)
		if err != nil {
			return clock, nil, nil, err
		}
		if prev != nil {
			prevOwners[addr] = prev.Owner
		}
	}

	touched, err := c.state.Commit()
	if err != nil {
		return clock, nil, nil, err
	}

	batch := c.receipts.NewBatch()
	for _, r := range receipts {
		data, err := json.Marshal(r)
		if err != nil {
			return clock, nil, nil, err
		}
		if err := batch.Put(r.TxID.Bytes(), data); err != nil {
			return clock, nil, nil, err
		}
	}
	if err := batch.Write(); err != nil {
		return clock, nil, nil, errors.Wrap(err, "write receipts")
	}
	if err := c.saveClock(clock); err != nil {
		return clock, nil, nil, errors.Wrap(err, "write clock")
	}
	for _, r := range receipts {
		c.receiptCache.Add(r.TxID, r)
	}
	c.references.Add(metronome.ReferenceHash(slot), slot)
	c.clock = clock

	changes := make([]*runtime.AccountChange, 0, len(touched))
	for _, addr := range touched {
		acc, err := c.state.Get(addr)
		if err != nil {
			return clock, nil, nil, err
		}
		changes = append(changes, &runtime.AccountChange{Address: addr, Account: acc, Slot: slot, PrevOwner: prevOwners[addr]})
	}
	return clock, receipts, changes, nil
}

// execute runs trx against the working state. The fee survives a reverted tx,
// and a chain halted part way keeps the hops it committed.
func (c *Core) execute(trx *tx.Transaction, clock runtime.Clock) *tx.Receipt {
	r := &tx.Receipt{TxID: trx.ID(), Slot: clock.Slot}
	fail := func(err error) *tx.Receipt {
		r.Reverted = true
		r.Error = err.Error()
		return r
	}

	payer, err := c.state.Get(trx.FeePayer())
	if err != nil {
		return fail(err)
	}
	if payer == nil || payer.Balance < metronome.TxFee {
		return fail(runtime.ErrInsufficientBalance)
	}
	payer.Balance -= metronome.TxFee
	c.state.Set(trx.FeePayer(), payer)
	r.Fee = metronome.TxFee

	rev := c.state.Checkpoint()
	for i, ix := range trx.Instructions() {
		resp, err := c.host.Execute(c.state, clock, ix, trx.FeePayer())
		if err == nil {
			if resp != nil {
				r.Hops += uint64(resp.Hops)
			}
			continue
		}
		r.Error = fmt.Sprintf("instruction #%d: %v", i, err)
		var halt *runtime.HaltError
		if errors.As(err, &halt) && halt.Hops > 0 {
			r.Hops += uint64(halt.Hops)
			break
		}
		c.state.RevertTo(rev)
		r.Reverted = true
		break
	}
	return r
}

// SubscribeSlots delivers the clock of every produced slot.
func (c *Core) SubscribeSlots(ch chan<- runtime.Clock) event.Subscription {
	return c.scope.Track(c.slotFeed.Subscribe(ch))
}

// SubscribeAccounts delivers every committed account change.
func (c *Core) SubscribeAccounts(ch chan<- *runtime.AccountChange) event.Subscription {
	return c.scope.Track(c.accountFeed.Subscribe(ch))
}

// Close unsubscribes all subscribers.
func (c *Core) Close() {
	c.scope.Close()
}
