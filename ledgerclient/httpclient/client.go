// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpclient provides an HTTP client to interact with the ledger API.
// It offers methods to read accounts, the ledger clock and receipts, and to submit transactions.
package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

// Client represents the HTTP client for interacting with the ledger API.
type Client struct {
	url string
	c   *http.Client
}

// New creates a new Client with the provided URL.
func New(url string) *Client {
	return NewWithHTTP(url, http.DefaultClient)
}

func NewWithHTTP(url string, c *http.Client) *Client {
	return &Client{
		url: strings.TrimSuffix(url, "/"),
		c:   c,
	}
}

// GetClock retrieves the clock of the latest slot.
func (c *Client) GetClock() (*runtime.Clock, error) {
	body, err := c.httpGET(c.url + "/ledger/clock")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve clock - %w", err)
	}

	var clock runtime.Clock
	if err = json.Unmarshal(body, &clock); err != nil {
		return nil, fmt.Errorf("unable to unmarshal clock - %w", err)
	}
	return &clock, nil
}

// GetReference retrieves the reference hash new txs should carry.
func (c *Client) GetReference() (*types.Reference, error) {
	body, err := c.httpGET(c.url + "/ledger/reference")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve reference - %w", err)
	}

	var ref types.Reference
	if err = json.Unmarshal(body, &ref); err != nil {
		return nil, fmt.Errorf("unable to unmarshal reference - %w", err)
	}
	return &ref, nil
}

// GetAccount retrieves the account at addr.
func (c *Client) GetAccount(addr metronome.Address) (*types.Account, error) {
	body, err := c.httpGET(c.url + "/accounts/" + addr.String())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve account - %w", err)
	}

	var account types.Account
	if err = json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("unable to unmarshal account - %w", err)
	}
	return &account, nil
}

// GetAccounts retrieves every account owned by the program owner.
func (c *Client) GetAccounts(owner metronome.Address) ([]*types.Account, error) {
	body, err := c.httpGET(c.url + "/accounts?owner=" + owner.String())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve accounts - %w", err)
	}

	var accounts []*types.Account
	if err = json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("unable to unmarshal accounts - %w", err)
	}
	return accounts, nil
}

// SendTransaction submits a raw tx to the pool.
func (c *Client) SendTransaction(obj *types.RawTx) (*types.TxID, error) {
	body, err := c.httpPOST(c.url+"/transactions", obj)
	if err != nil {
		return nil, fmt.Errorf("unable to send raw transaction - %w", err)
	}

	var txID types.TxID
	if err = json.Unmarshal(body, &txID); err != nil {
		return nil, fmt.Errorf("unable to unmarshal send transaction result - %w", err)
	}
	return &txID, nil
}

// GetTransactionReceipt retrieves the receipt of an executed tx.
// ErrNotFound is returned while the tx is not executed.
func (c *Client) GetTransactionReceipt(txID metronome.Bytes32) (*tx.Receipt, error) {
	body, err := c.httpGET(c.url + "/transactions/" + txID.String() + "/receipt")
	if err != nil {
		return nil, fmt.Errorf("unable to fetch receipt - %w", err)
	}

	if len(body) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, common.ErrNotFound
	}

	var receipt tx.Receipt
	if err = json.Unmarshal(body, &receipt); err != nil {
		return nil, fmt.Errorf("unable to unmarshal receipt - %w", err)
	}
	return &receipt, nil
}

// RawHTTPGet sends a raw HTTP GET request to the specified path.
func (c *Client) RawHTTPGet(path string) ([]byte, int, error) {
	return c.rawHTTPRequest(http.MethodGet, c.url+path, nil)
}

func (c *Client) rawHTTPRequest(method, url string, payload io.Reader) ([]byte, int, error) {
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response body: %w", err)
	}
	return responseBody, resp.StatusCode, nil
}

func (c *Client) httpRequest(method, url string, payload io.Reader) ([]byte, error) {
	body, status, err := c.rawHTTPRequest(method, url, payload)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, common.ErrNotFound
	case http.StatusConflict:
		return nil, fmt.Errorf("%s - %w", bytes.TrimSpace(body), common.ErrStaleReference)
	case http.StatusBadRequest, http.StatusForbidden:
		return nil, fmt.Errorf("%s - %w", bytes.TrimSpace(body), common.ErrRejected)
	default:
		return nil, fmt.Errorf("http error - Status Code %d - %s - %w", status, bytes.TrimSpace(body), common.ErrNot200Status)
	}
}

func (c *Client) httpGET(url string) ([]byte, error) {
	return c.httpRequest(http.MethodGet, url, nil)
}

func (c *Client) httpPOST(url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal payload - %w", err)
	}
	return c.httpRequest(http.MethodPost, url, bytes.NewBuffer(data))
}
