// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/metronome/api/restutil"
	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// Ledger is the committed account state served by the API.
type Ledger interface {
	Clock() runtime.Clock
	Account(addr metronome.Address) (*runtime.Account, error)
	Accounts(owner metronome.Address) ([]*runtime.AccountChange, error)
}

type Accounts struct {
	ledger Ledger
}

func New(ledger Ledger) *Accounts {
	return &Accounts{ledger}
}

func (a *Accounts) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := metronome.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	slot := a.ledger.Clock().Slot
	acc, err := a.ledger.Account(addr)
	if err != nil {
		return err
	}
	if acc == nil {
		return restutil.NotFound(errors.Errorf("account %v not found", addr))
	}
	return restutil.WriteJSON(w, types.ConvertAccount(addr, acc, slot))
}

func (a *Accounts) handleGetAccounts(w http.ResponseWriter, req *http.Request) error {
	owner, err := metronome.ParseAddress(req.URL.Query().Get("owner"))
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "owner"))
	}
	changes, err := a.ledger.Accounts(owner)
	if err != nil {
		return err
	}
	accounts := make([]*types.Account, 0, len(changes))
	for _, c := range changes {
		accounts = append(accounts, types.ConvertAccountChange(c))
	}
	return restutil.WriteJSON(w, accounts)
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Queries("owner", "{owner}").
		Name("GET /accounts").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAccounts))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAccount))
}
