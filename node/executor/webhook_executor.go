// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package executor

import (
	"bytes"
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/node/observer"
	"github.com/vechain/metronome/programs/webhook"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

// WebhookExecutor tracks webhook requests, hands them to the delivery
// dispatcher and acknowledges them on the ledger.
type WebhookExecutor struct {
	signer     *signer
	pools      *observer.PoolPositions
	dispatcher delivery.Dispatcher

	lock     sync.Mutex
	apis     map[metronome.Address]*webhook.API
	requests map[metronome.Address]*webhook.Request
	inflight map[metronome.Address]bool
}

func NewWebhookExecutor(signer *signer, pools *observer.PoolPositions, dispatcher delivery.Dispatcher) *WebhookExecutor {
	return &WebhookExecutor{
		signer:     signer,
		pools:      pools,
		dispatcher: dispatcher,
		apis:       make(map[metronome.Address]*webhook.API),
		requests:   make(map[metronome.Address]*webhook.Request),
		inflight:   make(map[metronome.Address]bool),
	}
}

// HandleAccount tracks a changed webhook program account.
func (e *WebhookExecutor) HandleAccount(acc *types.Account) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if acc.Deleted {
		delete(e.requests, acc.Address)
		delete(e.apis, acc.Address)
		return nil
	}
	if acc.Owner != webhook.ProgramID {
		return nil
	}

	switch {
	case hasType(acc.Data, webhook.RequestAccount):
		var req webhook.Request
		if err := acc.Decode(webhook.RequestAccount, &req); err != nil {
			return err
		}
		e.requests[acc.Address] = &req
	case hasType(acc.Data, webhook.APIAccount):
		var api webhook.API
		if err := acc.Decode(webhook.APIAccount, &api); err != nil {
			return err
		}
		e.apis[acc.Address] = &api
	}
	return nil
}

func hasType(data []byte, name string) bool {
	d := metronome.AccountDiscriminator(name)
	return bytes.HasPrefix(data, d[:])
}

// Pending returns the number of tracked requests.
func (e *WebhookExecutor) Pending() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return len(e.requests)
}

type pendingRequest struct {
	addr metronome.Address
	req  *webhook.Request
	api  *webhook.API
}

func (e *WebhookExecutor) take() []pendingRequest {
	e.lock.Lock()
	defer e.lock.Unlock()

	var pending []pendingRequest
	for addr, req := range e.requests {
		if e.inflight[addr] {
			continue
		}
		e.inflight[addr] = true
		pending = append(pending, pendingRequest{addr, req, e.apis[req.API]})
	}
	return pending
}

// done releases a request. Settled requests are dropped right away so that no
// sweep delivers them again before their deletion is observed.
func (e *WebhookExecutor) done(addr metronome.Address, settled bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.inflight, addr)
	if settled {
		delete(e.requests, addr)
	}
}

// api returns the api a request targets, from the tracked accounts or the ledger.
func (e *WebhookExecutor) api(p pendingRequest) (*webhook.API, error) {
	if p.api != nil {
		return p.api, nil
	}
	acc, err := e.signer.ledger.Account(p.req.API)
	if err != nil {
		return nil, err
	}
	var api webhook.API
	if err := acc.Decode(webhook.APIAccount, &api); err != nil {
		return nil, err
	}

	e.lock.Lock()
	e.apis[p.req.API] = &api
	e.lock.Unlock()
	return &api, nil
}

// Sweep delivers every pending request and acknowledges it. Requests whose
// delivery failed for a transient reason are retried by a later sweep.
func (e *WebhookExecutor) Sweep(ctx context.Context, clock runtime.Clock) {
	if !e.pools.MayServe(metronome.HTTPPool) {
		return
	}

	var g errgroup.Group
	g.SetLimit(maxSweepConcurrency)
	for _, p := range e.take() {
		g.Go(func() error {
			result, err := e.process(ctx, p)
			e.done(p.addr, err == nil)
			metricWebhooks().AddWithLabel(1, map[string]string{"result": result})
			if err != nil {
				logger.Debug("webhook not settled", "request", p.addr, "slot", clock.Slot, "result", result, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *WebhookExecutor) process(ctx context.Context, p pendingRequest) (string, error) {
	api, err := e.api(p)
	if err != nil {
		return "failed", errors.WithMessage(err, "api")
	}

	err = e.dispatcher.Deliver(ctx, &delivery.Request{
		Address:   p.addr,
		ID:        p.req.ID,
		Caller:    p.req.Caller,
		Method:    p.req.Method,
		URL:       p.req.URL(api),
		CreatedAt: p.req.CreatedAt,
	})
	// a refused delivery is final and settled like a successful one
	if err != nil && !errors.Is(err, delivery.ErrPermanent) {
		return "undelivered", err
	}

	_, err = submit(ctx, e.signer.ledger, func() (*tx.Transaction, error) {
		return e.signer.sign(webhook.RequestAck(e.signer.self, p.req))
	})
	return outcome(err), err
}
