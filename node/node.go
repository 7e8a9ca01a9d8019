// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node runs a worker: it follows the ledger, rotates the worker pools
// when due and serves the crank and webhook pools it belongs to.
package node

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/co"
	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/health"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/node/executor"
	"github.com/vechain/metronome/node/observer"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/programs/webhook"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
)

var logger = log.WithContext("pkg", "node")

// Ledger is what a node needs from the ledger client.
type Ledger interface {
	executor.Ledger
	Accounts(owner metronome.Address) ([]*types.Account, error)
	SubscribeSlots() (*common.Subscription[*runtime.Clock], error)
	SubscribeAccounts(owner metronome.Address) (*common.Subscription[*types.Account], error)
}

type Options struct {
	Rotation rotation.Params
	Workers  int
}

type Node struct {
	master    *Master
	ledger    Ledger
	observer  *observer.PoolObserver
	executors *executor.Executors
	health    *health.Health

	// snapshot refreshes run off the loop, fatal carries their first unrecoverable error
	refreshes co.Goes
	fatal     chan error
}

func New(master *Master, ledger Ledger, dispatcher delivery.Dispatcher, opts Options) *Node {
	obs := observer.New(ledger, master.PrivateKey, opts.Rotation)
	return &Node{
		master:    master,
		ledger:    ledger,
		observer:  obs,
		executors: executor.New(ledger, master.PrivateKey, obs, dispatcher, executor.Options{Workers: opts.Workers}),
		health:    health.New(metronome.SlotInterval),
		fatal:     make(chan error, 1),
	}
}

func (n *Node) Observer() *observer.PoolObserver {
	return n.observer
}

func (n *Node) Executors() *executor.Executors {
	return n.executors
}

func (n *Node) Health() *health.Health {
	return n.health
}

// streams are the subscriptions a node follows.
type streams struct {
	slots    *common.Subscription[*runtime.Clock]
	accounts map[string]*common.Subscription[*types.Account]
}

func (s *streams) close() {
	if s.slots != nil {
		s.slots.Unsubscribe()
	}
	for _, sub := range s.accounts {
		sub.Unsubscribe()
	}
}

var programs = map[string]metronome.Address{
	"network": network.ProgramID,
	"queue":   queue.ProgramID,
	"webhook": webhook.ProgramID,
}

// Run follows the ledger until ctx is done or the ledger can no longer be followed.
// Subscriptions are opened before the initial load so that no change in between is missed.
func (n *Node) Run(ctx context.Context) error {
	defer n.executors.Stop()
	defer n.refreshes.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &streams{accounts: make(map[string]*common.Subscription[*types.Account])}
	defer s.close()

	var err error
	if s.slots, err = n.ledger.SubscribeSlots(); err != nil {
		return errors.WithMessage(err, "subscribe slots")
	}
	for name, owner := range programs {
		if s.accounts[name], err = n.ledger.SubscribeAccounts(owner); err != nil {
			return errors.WithMessagef(err, "subscribe %s accounts", name)
		}
	}

	if err := n.bootstrap(ctx); err != nil {
		return err
	}
	n.health.BootstrapStatus(true)
	defer n.health.BootstrapStatus(false)
	logger.Info("node bootstrapped",
		"worker", n.master.Address(),
		"queues", n.executors.Txs().Len(),
		"requests", n.executors.Webhooks().Pending(),
	)

	return n.loop(ctx, s)
}

func (n *Node) bootstrap(ctx context.Context) error {
	if err := n.observer.Bootstrap(ctx); err != nil {
		return errors.WithMessage(err, "bootstrap observer")
	}
	for _, owner := range []metronome.Address{queue.ProgramID, webhook.ProgramID} {
		accs, err := n.ledger.Accounts(owner)
		if err != nil {
			return errors.WithMessagef(err, "load accounts of %v", owner)
		}
		for _, acc := range accs {
			if err := n.handleAccount(ctx, acc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Node) loop(ctx context.Context, s *streams) error {
	logger.Debug("enter node loop")
	defer logger.Debug("leave node loop")

	var (
		networkCh = s.accounts["network"].EventChan
		queueCh   = s.accounts["queue"].EventChan
		webhookCh = s.accounts["webhook"].EventChan
	)
	for {
		var ev common.EventWrapper[*types.Account]
		var stream string
		var ok bool

		select {
		case <-ctx.Done():
			return nil
		case err := <-n.fatal:
			return err
		case slot, ok := <-s.slots.EventChan:
			if !ok {
				return errors.New("slot subscription closed")
			}
			if slot.Error != nil {
				metricSubscriptionErr().AddWithLabel(1, map[string]string{"stream": "slots"})
				return errors.WithMessage(slot.Error, "slot subscription")
			}
			n.handleSlot(ctx, *slot.Data)
			continue
		case ev, ok = <-networkCh:
			stream = "network"
		case ev, ok = <-queueCh:
			stream = "queue"
		case ev, ok = <-webhookCh:
			stream = "webhook"
		}

		if !ok {
			return errors.Errorf("%s subscription closed", stream)
		}
		if ev.Error != nil {
			metricSubscriptionErr().AddWithLabel(1, map[string]string{"stream": stream})
			return errors.WithMessagef(ev.Error, "%s subscription", stream)
		}
		if err := n.handleAccount(ctx, ev.Data); err != nil {
			return err
		}
	}
}

func (n *Node) handleSlot(ctx context.Context, clock runtime.Clock) {
	metricSlot().Set(int64(clock.Slot))
	n.health.NewSlot(clock.Slot)
	n.executors.HandleConfirmedSlot(ctx, clock)
}

// handleAccount routes a changed account by owner. Only a network account
// that no longer decodes stops the node: rotation decisions would be made on
// stale state otherwise. Snapshots are refreshed in the background so that
// fetching their entries never holds up slot handling.
func (n *Node) handleAccount(ctx context.Context, acc *types.Account) error {
	var (
		program string
		err     error
	)
	switch {
	case observer.IsSnapshot(acc):
		metricAccountUpdates().AddWithLabel(1, map[string]string{"program": "network"})
		n.refreshSnapshot(ctx, acc)
		return nil
	case acc.Owner == network.ProgramID:
		program = "network"
		err = n.observer.HandleAccount(ctx, acc)
	case acc.Owner == queue.ProgramID:
		program = "queue"
		err = n.executors.Txs().HandleAccount(acc)
	case acc.Owner == webhook.ProgramID:
		program = "webhook"
		err = n.executors.Webhooks().HandleAccount(acc)
	default:
		return nil
	}
	metricAccountUpdates().AddWithLabel(1, map[string]string{"program": program})
	return checkAccountErr(program, acc, err)
}

func (n *Node) refreshSnapshot(ctx context.Context, acc *types.Account) {
	n.refreshes.Go(func() {
		err := checkAccountErr("network", acc, n.observer.HandleAccount(ctx, acc))
		if err == nil {
			return
		}
		select {
		case n.fatal <- err:
		default:
		}
	})
}

func checkAccountErr(program string, acc *types.Account, err error) error {
	switch {
	case err == nil:
		return nil
	case runtime.IsDeserialization(err):
		metricDecodeFailures().AddWithLabel(1, map[string]string{"program": program})
		if program == "network" {
			return errors.WithMessagef(err, "network account %v", acc.Address)
		}
		logger.Warn("undecodable account skipped", "program", program, "address", acc.Address, "err", err)
	case errors.Is(err, context.Canceled):
		// node stopping
	default:
		logger.Warn("account update not applied", "program", program, "address", acc.Address, "err", err)
	}
	return nil
}
