// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metrics"
)

var logger = log.WithContext("pkg", "httpserver")

// StartMetricsServer exposes the prometheus registry under /metrics.
func StartMetricsServer(addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(metrics.HTTPHandler())
	return Serve("metrics", addr, "/metrics", handlers.CompressHandler(router))
}
