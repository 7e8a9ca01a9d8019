// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transactions

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/metronome/api/restutil"
	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/tx"
)

// Pool admits submitted txs. Add returns restutil errors carrying the rejection status.
type Pool interface {
	Add(newTx *tx.Transaction) error
	Get(id metronome.Bytes32) *tx.Transaction
}

// Receipts looks up receipts of executed txs, nil for unknown ones.
type Receipts interface {
	Receipt(id metronome.Bytes32) (*tx.Receipt, error)
}

type Transactions struct {
	pool     Pool
	receipts Receipts
}

func New(pool Pool, receipts Receipts) *Transactions {
	return &Transactions{pool, receipts}
}

func (t *Transactions) handleSendTransaction(w http.ResponseWriter, req *http.Request) error {
	var rawTx types.RawTx
	if err := restutil.ParseJSON(req.Body, &rawTx); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	var trx tx.Transaction
	if err := trx.UnmarshalBinary(rawTx.Raw); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "raw"))
	}
	if err := t.pool.Add(&trx); err != nil {
		return err
	}
	metricTxCounter().AddWithLabel(1, map[string]string{"source": "api"})
	return restutil.WriteJSON(w, &types.TxID{ID: trx.ID()})
}

func (t *Transactions) handleGetTransactionReceipt(w http.ResponseWriter, req *http.Request) error {
	id, err := metronome.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	receipt, err := t.receipts.Receipt(id)
	if err != nil {
		return err
	}
	// null until the tx is executed
	return restutil.WriteJSON(w, receipt)
}

func (t *Transactions) handleGetPending(w http.ResponseWriter, req *http.Request) error {
	id, err := metronome.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	trx := t.pool.Get(id)
	if trx == nil {
		return restutil.NotFound(errors.New("tx not pending"))
	}
	raw, err := trx.MarshalBinary()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &types.RawTx{Raw: raw})
}

func (t *Transactions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /transactions").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleSendTransaction))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /transactions/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleGetPending))
	sub.Path("/{id}/receipt").
		Methods(http.MethodGet).
		Name("GET /transactions/{id}/receipt").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleGetTransactionReceipt))
}
