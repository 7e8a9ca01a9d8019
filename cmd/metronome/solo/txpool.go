// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solo

import (
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/metronome/api/restutil"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/tx"
)

// MaxPendingTxs caps the number of txs waiting for the next slot.
const MaxPendingTxs = 10_000

// TxPool holds submitted txs until the next slot packs them.
type TxPool struct {
	core *Core

	txsByID map[metronome.Bytes32]*tx.Transaction
	order   []metronome.Bytes32

	mu sync.Mutex
}

func NewTxPool(core *Core) *TxPool {
	return &TxPool{
		core:    core,
		txsByID: make(map[metronome.Bytes32]*tx.Transaction),
	}
}

// Add admits newTx when the next slot could execute it.
func (p *TxPool) Add(newTx *tx.Transaction) error {
	if err := p.core.IsExecutable(newTx); err != nil {
		switch {
		case errors.Is(err, tx.ErrStaleReference):
			return restutil.Conflict(err)
		case errors.Is(err, tx.ErrInvalidSignature), errors.Is(err, tx.ErrNoInstructions):
			return restutil.BadRequest(errors.WithMessage(err, "bad tx"))
		default:
			return restutil.Forbidden(errors.WithMessage(err, "tx rejected"))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := newTx.ID()
	if _, ok := p.txsByID[id]; ok {
		return restutil.Forbidden(errors.WithMessage(errKnownTx, "tx rejected"))
	}
	if len(p.txsByID) >= MaxPendingTxs {
		return restutil.HTTPError(errors.New("tx rejected: pool is full"), http.StatusServiceUnavailable)
	}
	p.txsByID[id] = newTx
	p.order = append(p.order, id)
	return nil
}

// Get returns a pending tx.
func (p *TxPool) Get(id metronome.Bytes32) *tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txsByID[id]
}

// Executables returns pending txs in arrival order.
func (p *TxPool) Executables() []*tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	txs := make([]*tx.Transaction, 0, len(p.order))
	for _, id := range p.order {
		txs = append(txs, p.txsByID[id])
	}
	return txs
}

// Remove drops txs from the pool.
func (p *TxPool) Remove(txs ...*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, trx := range txs {
		delete(p.txsByID, trx.ID())
	}
	order := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.txsByID[id]; ok {
			order = append(order, id)
		}
	}
	p.order = order
}

func (p *TxPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txsByID)
}
