// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metronome"
)

var (
	ledgerURLFlag = cli.StringFlag{
		Name:  "ledger-url",
		Value: "http://localhost:8899",
		Usage: "URL of the ledger API",
	}
	keyFileFlag = cli.StringFlag{
		Name:  "key-file",
		Value: defaultKeyFile(),
		Usage: "node key file, generated when missing",
	}
	devKeyFlag = cli.IntFlag{
		Name:  "dev-key",
		Value: -1,
		Usage: "use the dev account at this index as the node key (solo networks only)",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config-file",
		Usage: "YAML file with rotation and delivery settings",
	}
	rotationIntervalFlag = cli.Uint64Flag{
		Name:  "rotation-interval",
		Value: metronome.DefaultRotationInterval,
		Usage: "slots between pool rotations until the network config says otherwise",
	}
	gracePeriodFlag = cli.Uint64Flag{
		Name:  "grace-period",
		Value: metronome.DefaultGracePeriod,
		Usage: "slots pool members keep exclusive rotation rights until the network config says otherwise",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Value: 4,
		Usage: "concurrent slot tasks",
	}
	webhookSecretFlag = cli.StringFlag{
		Name:   "webhook-secret",
		Usage:  "secret to sign webhook payloads with",
		EnvVar: "METRONOME_WEBHOOK_SECRET",
	}

	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}

	// solo mode only flags
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8899",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger database",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "ledger data storage option, if set data will be saved to disk",
	}
	slotIntervalFlag = cli.DurationFlag{
		Name:  "slot-interval",
		Value: metronome.SlotInterval,
		Usage: "interval between two slots",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a genesis file, if not set, the default devnet genesis will be used",
	}

	// query and admin command flags
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "print the full decoded value",
	}
	entryFlag = cli.Int64Flag{
		Name:  "entry",
		Value: -1,
		Usage: "snapshot entry id",
	}
	allEntriesFlag = cli.BoolFlag{
		Name:  "all-entries",
		Usage: "load every entry of the snapshot",
	}
	rateLimitFlag = cli.Uint64Flag{
		Name:  "rate-limit",
		Usage: "hops per slot",
	}
	scheduleFlag = cli.StringFlag{
		Name:  "schedule",
		Usage: "cron schedule",
	}
	crankFeeFlag = cli.Uint64Flag{
		Name:  "crank-fee",
		Usage: "fee paid per executed hop",
	}
	ackAuthorityFlag = cli.StringFlag{
		Name:  "ack-authority",
		Usage: "address allowed to acknowledge requests besides the http pool",
	}
	methodFlag = cli.StringFlag{
		Name:  "method",
		Value: "POST",
		Usage: "HTTP method of the request",
	}
)
