// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledgerclient provides a client to read ledger accounts, submit transactions
// and follow slot and account notifications of a metronome ledger.
package ledgerclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sethvargo/go-retry"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/ledgerclient/httpclient"
	"github.com/vechain/metronome/ledgerclient/wsclient"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

type Client struct {
	httpConn     *httpclient.Client
	wsConn       *wsclient.Client
	pollInterval time.Duration
}

type Option func(*Client)

// PollInterval sets how often SubmitAndConfirm looks for the receipt.
func PollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		httpConn:     httpclient.New(url),
		pollInterval: metronome.SlotInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func NewWithWS(url string, opts ...Option) (*Client, error) {
	wsClient, err := wsclient.NewClient(url)
	if err != nil {
		return nil, err
	}
	c := New(url, opts...)
	c.wsConn = wsClient
	return c, nil
}

// RawHTTPClient returns the underlying HTTP client.
func (c *Client) RawHTTPClient() *httpclient.Client {
	return c.httpConn
}

// Clock returns the clock of the latest slot.
func (c *Client) Clock() (*runtime.Clock, error) {
	return c.httpConn.GetClock()
}

// LatestReference returns the reference hash to sign new txs with.
func (c *Client) LatestReference() (metronome.Bytes32, error) {
	ref, err := c.httpConn.GetReference()
	if err != nil {
		return metronome.Bytes32{}, err
	}
	return ref.Hash, nil
}

// Account returns the account at addr, common.ErrNotFound if it does not exist.
func (c *Client) Account(addr metronome.Address) (*types.Account, error) {
	return c.httpConn.GetAccount(addr)
}

// Accounts returns all accounts owned by a program.
func (c *Client) Accounts(owner metronome.Address) ([]*types.Account, error) {
	return c.httpConn.GetAccounts(owner)
}

// Fetch loads the account at addr and decodes its data as the account type name.
// Data of an unexpected layout yields runtime.ErrDeserialization.
func Fetch[T any](c *Client, addr metronome.Address, name string) (*T, error) {
	acc, err := c.Account(addr)
	if err != nil {
		return nil, err
	}
	var v T
	if err := acc.Decode(name, &v); err != nil {
		return nil, fmt.Errorf("%v: %w", addr, err)
	}
	return &v, nil
}

// SendTransaction submits a signed tx and returns its id.
func (c *Client) SendTransaction(trx *tx.Transaction) (metronome.Bytes32, error) {
	raw, err := trx.MarshalBinary()
	if err != nil {
		return metronome.Bytes32{}, fmt.Errorf("unable to encode transaction - %w", err)
	}
	res, err := c.httpConn.SendTransaction(&types.RawTx{Raw: raw})
	if err != nil {
		return metronome.Bytes32{}, err
	}
	return res.ID, nil
}

// TransactionReceipt returns the receipt of an executed tx, common.ErrNotFound while pending.
func (c *Client) TransactionReceipt(id metronome.Bytes32) (*tx.Receipt, error) {
	return c.httpConn.GetTransactionReceipt(id)
}

// SubmitAndConfirm signs the instructions with key against the latest reference hash,
// submits them and waits until the tx is executed. A reverted tx is reported as
// common.ErrRejected; a reference that aged out before admission as common.ErrStaleReference.
func (c *Client) SubmitAndConfirm(ctx context.Context, key *ecdsa.PrivateKey, ixs ...*runtime.Instruction) (*tx.Receipt, error) {
	ref, err := c.LatestReference()
	if err != nil {
		return nil, err
	}
	payer := metronome.Address(crypto.PubkeyToAddress(key.PublicKey))
	trx, err := tx.Sign(tx.NewBuilder(payer).ReferenceHash(ref).Instruction(ixs...).Build(), key)
	if err != nil {
		return nil, err
	}
	id, err := c.SendTransaction(trx)
	if err != nil {
		return nil, err
	}
	return c.Confirm(ctx, id)
}

// Confirm waits until the tx id is executed, polling its receipt until ctx ends.
// A reverted tx returns its receipt along with common.ErrRejected.
func (c *Client) Confirm(ctx context.Context, id metronome.Bytes32) (*tx.Receipt, error) {
	backoff, err := retry.NewConstant(c.pollInterval)
	if err != nil {
		return nil, err
	}
	var receipt *tx.Receipt
	err = retry.Do(ctx, backoff, func(context.Context) error {
		r, err := c.TransactionReceipt(id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tx %v unconfirmed - %w", id.AbbrevString(), err)
	}
	if receipt.Reverted {
		return receipt, fmt.Errorf("tx %v: %s - %w", id.AbbrevString(), receipt.Error, common.ErrRejected)
	}
	return receipt, nil
}

// SubscribeSlots follows the produced slots.
func (c *Client) SubscribeSlots() (*common.Subscription[*runtime.Clock], error) {
	if c.wsConn == nil {
		return nil, fmt.Errorf("not a websocket typed client")
	}
	return c.wsConn.SubscribeSlots()
}

// SubscribeAccounts follows changes of accounts owned by owner.
func (c *Client) SubscribeAccounts(owner metronome.Address) (*common.Subscription[*types.Account], error) {
	if c.wsConn == nil {
		return nil, fmt.Errorf("not a websocket typed client")
	}
	return c.wsConn.SubscribeAccounts("owner=" + owner.String())
}
