// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

func TestClient_GetClock(t *testing.T) {
	expected := runtime.Clock{Slot: 42, Epoch: 0, UnixTimestamp: 1700000000}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ledger/clock", r.URL.Path)
		json.NewEncoder(w).Encode(&expected)
	}))
	defer ts.Close()

	clock, err := New(ts.URL).GetClock()
	require.NoError(t, err)
	assert.Equal(t, expected, *clock)
}

func TestClient_GetAccount(t *testing.T) {
	addr := metronome.BytesToAddress([]byte("account"))
	expected := &types.Account{Address: addr, Balance: 10, Data: []byte{1, 2}, Slot: 3}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/"+addr.String() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(expected)
	}))
	defer ts.Close()

	client := New(ts.URL + "/")
	acc, err := client.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, expected, acc)

	_, err = client.GetAccount(metronome.Address{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClient_GetAccounts(t *testing.T) {
	owner := metronome.BytesToAddress([]byte("owner"))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		assert.Equal(t, owner.String(), r.URL.Query().Get("owner"))
		w.Write([]byte(`[{"address":"0x0000000000000000000000000000000000000001","owner":"` + owner.String() + `","balance":1,"data":"0x","slot":2}]`))
	}))
	defer ts.Close()

	accs, err := New(ts.URL).GetAccounts(owner)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, owner, accs[0].Owner)
}

func TestClient_SendTransaction(t *testing.T) {
	id := metronome.BytesToBytes32([]byte("tx"))

	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"accepted", http.StatusOK, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{"stale", http.StatusConflict, func(t *testing.T, err error) { assert.True(t, common.IsStaleReference(err)) }},
		{"invalid", http.StatusBadRequest, func(t *testing.T, err error) { assert.True(t, common.IsRejected(err)) }},
		{"known", http.StatusForbidden, func(t *testing.T, err error) { assert.True(t, common.IsRejected(err)) }},
		{"full", http.StatusServiceUnavailable, func(t *testing.T, err error) { assert.ErrorIs(t, err, common.ErrNot200Status) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				var raw types.RawTx
				require.NoError(t, json.Unmarshal(body, &raw))
				assert.Equal(t, []byte{0xc0}, []byte(raw.Raw))

				if tt.status != http.StatusOK {
					http.Error(w, "nope", tt.status)
					return
				}
				json.NewEncoder(w).Encode(&types.TxID{ID: id})
			}))
			defer ts.Close()

			res, err := New(ts.URL).SendTransaction(&types.RawTx{Raw: []byte{0xc0}})
			tt.check(t, err)
			if err == nil {
				assert.Equal(t, id, res.ID)
			}
		})
	}
}

func TestClient_GetTransactionReceipt(t *testing.T) {
	executed := metronome.BytesToBytes32([]byte("executed"))
	expected := &tx.Receipt{TxID: executed, Slot: 7, Fee: metronome.TxFee}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transactions/"+executed.String()+"/receipt" {
			json.NewEncoder(w).Encode(expected)
			return
		}
		w.Write([]byte("null\n"))
	}))
	defer ts.Close()

	client := New(ts.URL)
	receipt, err := client.GetTransactionReceipt(executed)
	require.NoError(t, err)
	assert.Equal(t, expected, receipt)

	_, err = client.GetTransactionReceipt(metronome.Bytes32{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClient_RawHTTPGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("teapot"))
	}))
	defer ts.Close()

	body, status, err := New(ts.URL).RawHTTPGet("/anything")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "teapot", string(body))
}
