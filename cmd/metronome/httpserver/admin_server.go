// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"

	"github.com/vechain/metronome/api/admin"
	"github.com/vechain/metronome/health"
)

// StartAdminServer serves the log level and health endpoints under /admin.
func StartAdminServer(addr string, logLevel *slog.LevelVar, health *health.Health, enableMetrics bool) (string, func(), error) {
	return Serve("admin", addr, "/admin", admin.New(logLevel, health, enableMetrics))
}
