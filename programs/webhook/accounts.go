// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webhook

import (
	"strings"

	"github.com/vechain/metronome/metronome"
)

// ProgramID is the address of the webhook program.
var ProgramID = metronome.BytesToAddress([]byte("webhook"))

// Account type names.
const (
	APIAccount     = "api"
	RequestAccount = "request"
)

// APIAddress returns the address of the api registered by authority for baseURL.
func APIAddress(authority metronome.Address, baseURL string) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(APIAccount), authority.Bytes(), []byte(baseURL))
}

// RequestAddress returns the address of request id issued by caller against api.
func RequestAddress(api, caller metronome.Address, id string) metronome.Address {
	return metronome.ProgramAddress(ProgramID, []byte(RequestAccount), api.Bytes(), caller.Bytes(), []byte(id))
}

// API is an endpoint that accepts webhook deliveries.
type API struct {
	Authority    metronome.Address
	AckAuthority metronome.Address // may acknowledge requests besides the http pool
	BaseURL      string
}

// Request is a pending delivery. Its balance is the fee paid to the worker that acknowledges it.
type Request struct {
	ID        string
	API       metronome.Address
	Caller    metronome.Address
	Method    string
	Route     string
	CreatedAt uint64
}

// URL joins the api base url and the request route.
func (r *Request) URL(api *API) string {
	return strings.TrimRight(api.BaseURL, "/") + "/" + strings.TrimLeft(r.Route, "/")
}
