// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/metronome/metronome"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryBase = time.Millisecond
	opts.RetryCap = 5 * time.Millisecond
	opts.RateLimit = 1000
	return opts
}

func testRequest(url, method string) *Request {
	return &Request{
		Address:   metronome.BytesToAddress([]byte("request")),
		ID:        "ping",
		Caller:    metronome.BytesToAddress([]byte("caller")),
		Method:    method,
		URL:       url,
		CreatedAt: 12,
	}
}

func TestDeliver(t *testing.T) {
	worker := metronome.BytesToAddress([]byte("worker"))
	opts := testOptions()
	opts.Secret = "s3cr3t"

	var got http.Header
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/hooks/ping", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	req := testRequest(ts.URL+"/hooks/ping", http.MethodPost)
	require.NoError(t, NewHTTP(worker, opts).Deliver(context.Background(), req))

	assert.NotEmpty(t, got.Get(HeaderRequestID))
	assert.Equal(t, req.Address.String(), got.Get(HeaderRequest))
	assert.Equal(t, req.Caller.String(), got.Get(HeaderCaller))
	assert.Equal(t, worker.String(), got.Get(HeaderWorker))
	assert.Equal(t, "sha256="+Sign(opts.Secret, body), got.Get(HeaderSignature))

	var sent Request
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, *req, sent)
}

func TestDeliverRetries(t *testing.T) {
	var calls atomic.Int32
	ids := make(chan string, 3)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(HeaderRequestID)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := NewHTTP(metronome.Address{}, testOptions())
	require.NoError(t, d.Deliver(context.Background(), testRequest(ts.URL, http.MethodGet)))
	assert.Equal(t, int32(3), calls.Load())

	// retries carry the same request id
	first := <-ids
	assert.Equal(t, first, <-ids)
	assert.Equal(t, first, <-ids)
}

func TestDeliverGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	opts := testOptions()
	err := NewHTTP(metronome.Address{}, opts).Deliver(context.Background(), testRequest(ts.URL, http.MethodGet))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
	assert.Equal(t, int32(opts.MaxRetries+1), calls.Load())
}

func TestDeliverRefused(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	err := NewHTTP(metronome.Address{}, testOptions()).Deliver(context.Background(), testRequest(ts.URL, http.MethodPut))
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeliverRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	opts := testOptions()
	opts.RateLimit = 0.001
	opts.Burst = 1
	d := NewHTTP(metronome.Address{}, opts)

	require.NoError(t, d.Deliver(context.Background(), testRequest(ts.URL, http.MethodGet)))

	// the bucket is empty and will not refill before the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, d.Deliver(ctx, testRequest(ts.URL, http.MethodGet)))
}

func TestDeliverBadURL(t *testing.T) {
	err := NewHTTP(metronome.Address{}, testOptions()).Deliver(context.Background(), testRequest("http://[::1", http.MethodGet))
	assert.ErrorIs(t, err, ErrPermanent)
}
