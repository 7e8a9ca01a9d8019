// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	assert.Nil(t, HTTPHandler())

	// none of these may panic
	Counter("c").Add(1)
	CounterVec("cv", []string{"outcome"}).AddWithLabel(1, map[string]string{"outcome": "ok"})
	Gauge("g").Set(3)
	GaugeVec("gv", []string{"pool"}).SetWithLabel(1, map[string]string{"pool": "crank"})
	Histogram("h", Bucket10s).Observe(12)
	HistogramVec("hv", []string{"x"}, nil).ObserveWithLabels(1, map[string]string{"x": "y"})
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := metrics
	metrics = newPrometheusMetrics(reg, reg)
	t.Cleanup(func() { metrics = prev })

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	lazy := LazyLoadCounterVec("rotations_total", []string{"outcome"})
	lazy().AddWithLabel(2, map[string]string{"outcome": "submitted"})
	lazy().AddWithLabel(1, map[string]string{"outcome": "too_early"})
	Gauge("pool_members").Set(5)
	// same meter is returned for the same name
	assert.Same(t, Counter("hops_total"), Counter("hops_total"))
	Counter("hops_total").Add(4)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `metronome_rotations_total{outcome="submitted"} 2`)
	assert.Contains(t, text, `metronome_rotations_total{outcome="too_early"} 1`)
	assert.Contains(t, text, "metronome_pool_members 5")
	assert.Contains(t, text, "metronome_hops_total 4")
}
