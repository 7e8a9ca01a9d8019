// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import "github.com/vechain/metronome/metrics"

var (
	metricSlot            = metrics.LazyLoadGauge("node_slot")
	metricAccountUpdates  = metrics.LazyLoadCounterVec("node_account_updates_total", []string{"program"})
	metricDecodeFailures  = metrics.LazyLoadCounterVec("node_decode_failures_total", []string{"program"})
	metricSubscriptionErr = metrics.LazyLoadCounterVec("node_subscription_errors_total", []string{"stream"})
)
