// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/metronome/api/restutil"
	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

// Clock reports the latest produced slot.
type Clock interface {
	Clock() runtime.Clock
	Reference() (metronome.Bytes32, uint64)
}

type Ledger struct {
	clock Clock
}

func New(clock Clock) *Ledger {
	return &Ledger{clock}
}

func (l *Ledger) handleGetClock(w http.ResponseWriter, _ *http.Request) error {
	clock := l.clock.Clock()
	return restutil.WriteJSON(w, &clock)
}

func (l *Ledger) handleGetReference(w http.ResponseWriter, _ *http.Request) error {
	hash, slot := l.clock.Reference()
	return restutil.WriteJSON(w, &types.Reference{Hash: hash, Slot: slot})
}

func (l *Ledger) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/clock").
		Methods(http.MethodGet).
		Name("GET /ledger/clock").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetClock))
	sub.Path("/reference").
		Methods(http.MethodGet).
		Name("GET /ledger/reference").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetReference))
}
