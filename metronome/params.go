// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metronome

import "time"

// Constants of the automation network.
const (
	DefaultRotationInterval uint64 = 10 // slots between two pool rotations.
	DefaultGracePeriod      uint64 = 10 // slots the selected node keeps exclusive rotation rights.

	MaxReferenceAge uint64 = 150 // slots a reference hash stays acceptable.

	SlotInterval = 400 * time.Millisecond // slot production interval of the solo ledger.

	SlotsPerEpoch uint64 = 432_000

	TxFee uint64 = 5000 // flat fee charged to the fee payer of every transaction.

	AccountDeposit uint64 = 100 // locked in every program account, refunded on close.

	DefaultCrankFee  uint64 = 1000 // paid to the cranking worker per executed hop.
	DefaultRateLimit uint64 = 10   // hops per queue per slot.
	DefaultPoolSize  uint64 = 1
)

// Names of the worker pools maintained by the network program.
const (
	CrankPool = "crank"
	HTTPPool  = "http"
)
