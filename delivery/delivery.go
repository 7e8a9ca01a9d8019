// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delivery performs the outbound HTTP calls of webhook requests.
package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metrics"
	"github.com/vechain/metronome/metronome"
)

var (
	logger = log.WithContext("pkg", "delivery")

	metricDeliveries = metrics.LazyLoadCounterVec("delivery_requests_total", []string{"result"})
	metricDuration   = metrics.LazyLoadHistogram("delivery_duration_ms", metrics.Bucket10s)
)

// Headers set on every delivery.
const (
	HeaderRequestID = "X-Request-Id"
	HeaderRequest   = "X-Metronome-Request"
	HeaderCaller    = "X-Metronome-Caller"
	HeaderWorker    = "X-Metronome-Worker"
	HeaderSignature = "X-Metronome-Signature"
)

// ErrPermanent marks a delivery the endpoint refused for good.
var ErrPermanent = errors.New("delivery refused")

// Request is a webhook call due for delivery.
type Request struct {
	Address   metronome.Address `json:"address"`
	ID        string            `json:"id"`
	Caller    metronome.Address `json:"caller"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	CreatedAt uint64            `json:"createdAt"`
}

// Dispatcher delivers webhook requests.
type Dispatcher interface {
	Deliver(ctx context.Context, req *Request) error
}

// Options tune the HTTP dispatcher.
type Options struct {
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate-limit"` // requests per second per host
	Burst       int           `yaml:"burst"`
	MaxRetries  uint64        `yaml:"max-retries"`
	RetryBase   time.Duration `yaml:"retry-base"`
	RetryCap    time.Duration `yaml:"retry-cap"`
	Secret      string        `yaml:"secret"` // signs payloads with HMAC-SHA256 when set
	RetryStatus []int         `yaml:"retry-status"`
}

func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		RateLimit:   10,
		Burst:       20,
		MaxRetries:  3,
		RetryBase:   200 * time.Millisecond,
		RetryCap:    5 * time.Second,
		RetryStatus: []int{http.StatusTooManyRequests, 500, 502, 503, 504},
	}
}

// HTTPDispatcher delivers requests over HTTP with a token bucket per host and
// bounded exponential retries.
type HTTPDispatcher struct {
	worker metronome.Address
	opts   Options
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewHTTP(worker metronome.Address, opts Options) *HTTPDispatcher {
	return &HTTPDispatcher{
		worker:   worker,
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

func (d *HTTPDispatcher) limiter(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.opts.RateLimit), d.opts.Burst)
		d.limiters[host] = l
	}
	return l
}

// Deliver calls the request URL until it answers with a final status or the retries run out.
func (d *HTTPDispatcher) Deliver(ctx context.Context, req *Request) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return errors.Wrap(ErrPermanent, err.Error())
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	backoff, err := retry.NewExponential(d.opts.RetryBase)
	if err != nil {
		return err
	}
	backoff = retry.WithCappedDuration(d.opts.RetryCap, backoff)
	backoff = retry.WithMaxRetries(d.opts.MaxRetries, backoff)

	id := uuid.New()
	limiter := d.limiter(u.Host)
	start := time.Now()

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		status, err := d.send(ctx, id, req, body)
		if err != nil {
			return retry.RetryableError(err)
		}
		switch {
		case status >= 200 && status < 300:
			return nil
		case slices.Contains(d.opts.RetryStatus, status):
			return retry.RetryableError(fmt.Errorf("status %d", status))
		default:
			return errors.Wrapf(ErrPermanent, "status %d", status)
		}
	})
	metricDuration().Observe(time.Since(start).Milliseconds())

	result := "ok"
	if err != nil {
		result = "failed"
		if errors.Is(err, ErrPermanent) {
			result = "refused"
		}
	}
	metricDeliveries().AddWithLabel(1, map[string]string{"result": result})
	logger.Debug("delivered", "request", req.Address, "url", req.URL, "id", id, "result", result, "err", err)
	return err
}

func (d *HTTPDispatcher) send(ctx context.Context, id string, req *Request, body []byte) (int, error) {
	var payload io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodDelete {
		payload = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, payload)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderRequestID, id)
	httpReq.Header.Set(HeaderRequest, req.Address.String())
	httpReq.Header.Set(HeaderCaller, req.Caller.String())
	httpReq.Header.Set(HeaderWorker, d.worker.String())
	if d.opts.Secret != "" {
		httpReq.Header.Set(HeaderSignature, "sha256="+Sign(d.opts.Secret, body))
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
