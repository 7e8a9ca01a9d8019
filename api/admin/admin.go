// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/metronome/api/admin/loglevel"
	"github.com/vechain/metronome/health"
	"github.com/vechain/metronome/metrics"

	healthAPI "github.com/vechain/metronome/api/admin/health"
)

// New returns the admin router. Metrics are served under /admin/metrics when enabled.
func New(logLevel *slog.LevelVar, health *health.Health, enableMetrics bool) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	healthAPI.New(health).Mount(sub, "/health")
	if enableMetrics {
		sub.Path("/metrics").Handler(metrics.HTTPHandler())
	}

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
