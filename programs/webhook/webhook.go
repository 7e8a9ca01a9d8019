// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package webhook is the ledger program recording http requests that workers
// of the http pool deliver off ledger.
package webhook

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/runtime"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidURL    = errors.New("invalid base url")
	ErrInvalidMethod = errors.New("invalid http method")
	ErrInvalidID     = errors.New("invalid request id")
)

// Instruction names.
const (
	IxAPINew     = "api_new"
	IxRequestNew = "request_new"
	IxRequestAck = "request_ack"
)

const maxRequestLen = 256

type apiNewArgs struct {
	BaseURL      string
	AckAuthority metronome.Address
}

type requestNewArgs struct {
	ID     string
	Method string
	Route  string
}

// APINew registers baseURL for authority.
func APINew(authority, ackAuthority metronome.Address, baseURL string) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxAPINew, &apiNewArgs{BaseURL: baseURL, AckAuthority: ackAuthority},
		runtime.Signer(authority),
		runtime.Writable(APIAddress(authority, baseURL)),
	)
}

// RequestNew issues a request against api, paying the delivery fee.
func RequestNew(caller, api metronome.Address, id, method, route string) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxRequestNew, &requestNewArgs{ID: id, Method: method, Route: route},
		runtime.Signer(caller),
		runtime.Readonly(api),
		runtime.Writable(RequestAddress(api, caller, id)),
		runtime.Readonly(network.ConfigAddress),
	)
}

// RequestAck settles a delivered request: worker collects the fee and the
// caller gets the deposit back.
func RequestAck(worker metronome.Address, req *Request) *runtime.Instruction {
	return runtime.MustNewInstruction(ProgramID, IxRequestAck, nil,
		runtime.Signer(worker),
		runtime.Readonly(req.API),
		runtime.Writable(RequestAddress(req.API, req.Caller, req.ID)),
		runtime.Writable(req.Caller),
		runtime.Readonly(network.PoolAddress(metronome.HTTPPool)),
	)
}

// New returns the webhook program.
func New() *runtime.Dispatcher {
	d := runtime.NewDispatcher(ProgramID)
	d.Handle(IxAPINew, handleAPINew)
	d.Handle(IxRequestNew, handleRequestNew)
	d.Handle(IxRequestAck, handleRequestAck)
	return d
}

func handleAPINew(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args apiNewArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	authority, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return nil, err
	}
	if u, err := url.Parse(args.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	api := &API{Authority: authority, AckAuthority: args.AckAuthority, BaseURL: args.BaseURL}
	return runtime.Done(), ctx.Create(APIAddress(authority, args.BaseURL), authority, APIAccount, api)
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func handleRequestNew(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args requestNewArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	if args.ID == "" || len(args.ID) > maxRequestLen || len(args.Route) > maxRequestLen {
		return nil, ErrInvalidID
	}
	if !validMethod(args.Method) {
		return nil, ErrInvalidMethod
	}
	caller, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(caller); err != nil {
		return nil, err
	}
	apiAddr, err := ix.Account(1)
	if err != nil {
		return nil, err
	}
	var api API
	if err := ctx.Load(apiAddr, APIAccount, &api); err != nil {
		return nil, err
	}
	var config network.Config
	if err := ctx.LoadFrom(network.ProgramID, network.ConfigAddress, network.ConfigAccount, &config); err != nil {
		return nil, err
	}

	req := &Request{
		ID:        args.ID,
		API:       apiAddr,
		Caller:    caller,
		Method:    args.Method,
		Route:     args.Route,
		CreatedAt: ctx.Clock().Slot,
	}
	addr := RequestAddress(apiAddr, caller, req.ID)
	if err := ctx.Create(addr, caller, RequestAccount, req); err != nil {
		return nil, err
	}
	return runtime.Done(), ctx.Transfer(caller, addr, config.CrankFee)
}

// mayAck reports whether worker may acknowledge requests of api. Like the
// crank pool, an empty http pool admits any worker.
func mayAck(ctx *runtime.Context, api *API, worker metronome.Address) (bool, error) {
	if api.AckAuthority == worker {
		return true, nil
	}
	addr := network.PoolAddress(metronome.HTTPPool)
	exists, err := ctx.Exists(addr)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	var pool network.Pool
	if err := ctx.LoadFrom(network.ProgramID, addr, network.PoolAccount, &pool); err != nil {
		return false, err
	}
	return len(pool.Workers) == 0 || pool.Contains(worker), nil
}

func handleRequestAck(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	worker, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(worker); err != nil {
		return nil, err
	}
	addr, err := ix.Account(2)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := ctx.Load(addr, RequestAccount, &req); err != nil {
		return nil, err
	}
	var api API
	if err := ctx.Load(req.API, APIAccount, &api); err != nil {
		return nil, err
	}
	ok, err := mayAck(ctx, &api, worker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	acc, err := ctx.Account(addr)
	if err != nil {
		return nil, err
	}
	if fee := acc.Balance - min(acc.Balance, metronome.AccountDeposit); fee > 0 {
		if err := ctx.Transfer(addr, worker, fee); err != nil {
			return nil, err
		}
	}
	return runtime.Done(), ctx.Close(addr, req.Caller)
}
