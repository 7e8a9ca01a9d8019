// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/metronome/api"
	"github.com/vechain/metronome/cmd/metronome/httpserver"
	"github.com/vechain/metronome/cmd/metronome/solo"
	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/genesis"
	"github.com/vechain/metronome/health"
	"github.com/vechain/metronome/ledgerclient"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metrics"
	"github.com/vechain/metronome/node"
	"github.com/vechain/metronome/runtime"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Metronome",
		Usage:     "Worker node of the Metronome automation network",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			ledgerURLFlag,
			keyFileFlag,
			devKeyFlag,
			configFileFlag,
			rotationIntervalFlag,
			gracePeriodFlag,
			workersFlag,
			webhookSecretFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
		},
		Action: defaultAction,
		Commands: append([]cli.Command{
			{
				Name:  "solo",
				Usage: "local ledger for test & dev",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					persistFlag,
					apiAddrFlag,
					apiCorsFlag,
					enableAPILogsFlag,
					slotIntervalFlag,
					verbosityFlag,
					jsonLogsFlag,
					enableMetricsFlag,
					metricsAddrFlag,
					enableAdminFlag,
					adminAddrFlag,
				},
				Action: soloAction,
			},
		}, queryCommands...),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startObservability(ctx *cli.Context, logLevel *slog.LevelVar, h *health.Health) func() {
	var stops []func()

	metricsEnabled := ctx.Bool(enableMetricsFlag.Name)
	if metricsEnabled {
		metrics.InitializePrometheusMetrics()
		url, stop, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("start metrics server: %v", err))
		}
		logger.Info("metrics server started", "url", url)
		stops = append(stops, stop)
	}
	if ctx.Bool(enableAdminFlag.Name) {
		url, stop, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, h, metricsEnabled)
		if err != nil {
			fatal(fmt.Sprintf("start admin server: %v", err))
		}
		logger.Info("admin server started", "url", url)
		stops = append(stops, stop)
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	cfg, err := loadNodeConfig(ctx)
	if err != nil {
		fatal(err)
	}
	master := loadNodeMaster(ctx)

	client, err := ledgerclient.NewWithWS(ctx.String(ledgerURLFlag.Name))
	if err != nil {
		fatal(fmt.Sprintf("ledger client: %v", err))
	}

	n := node.New(master, client, delivery.NewHTTP(master.Address(), cfg.Delivery), node.Options{
		Rotation: cfg.Rotation,
		Workers:  cfg.Workers,
	})
	stop := startObservability(ctx, logLevel, n.Health())
	defer func() { logger.Info("stopping servers..."); stop() }()

	fmt.Printf(`Starting %v
    Worker       [ %v ]
    Ledger       [ %v ]
    Rotation     [ interval %v, grace %v ]
    Workers      [ %v ]
`,
		"Metronome "+fullVersion(),
		master.Address(),
		ctx.String(ledgerURLFlag.Name),
		cfg.Rotation.RotationInterval, cfg.Rotation.GracePeriod,
		cfg.Workers,
	)

	if err := n.Run(exitSignal); err != nil {
		if runtime.IsDeserialization(err) {
			fatal("network account layout not recognized, upgrade the node:", err)
		}
		return err
	}
	return nil
}

func soloAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	gene := selectGenesis(ctx)

	db, instanceDir := openLedgerDB(ctx)
	defer func() { logger.Info("closing ledger database..."); db.Close() }()

	core, err := solo.NewCore(db, gene)
	if err != nil {
		fatal(fmt.Sprintf("init ledger: %v", err))
	}
	defer core.Close()
	txPool := solo.NewTxPool(core)

	slotInterval := ctx.Duration(slotIntervalFlag.Name)
	h := health.New(slotInterval)
	h.BootstrapStatus(true)
	slots := make(chan runtime.Clock, 16)
	sub := core.SubscribeSlots(slots)
	defer sub.Unsubscribe()
	go func() {
		for {
			select {
			case clock := <-slots:
				h.NewSlot(clock.Slot)
			case <-sub.Err():
				return
			}
		}
	}()

	stop := startObservability(ctx, logLevel, h)
	defer func() { logger.Info("stopping servers..."); stop() }()

	enableAPILogs := &atomic.Bool{}
	enableAPILogs.Store(ctx.Bool(enableAPILogsFlag.Name))
	handler, closeSubs := api.New(core, txPool, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		EnableReqLogger:      enableAPILogs,
		SlowQueriesThreshold: time.Second,
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
	})
	defer closeSubs()

	apiURL, stopAPI := startAPIServer(ctx, handler)
	defer func() { logger.Info("stopping API server..."); stopAPI() }()

	clock := core.Clock()
	fmt.Printf(`Starting %v
    Network      [ %v ]
    Admin        [ %v ]
    Slot         [ #%v @%v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		"Metronome Solo "+fullVersion(),
		gene.Name(),
		gene.Admin(),
		clock.Slot, time.Unix(clock.UnixTimestamp, 0),
		instanceDir,
		apiURL,
	)
	if gene.Name() == "devnet" {
		printDevAccounts()
	}

	return solo.New(core, txPool, solo.Options{SlotInterval: slotInterval}).Run(exitSignal)
}

func printDevAccounts() {
	fmt.Println("    Dev accounts")
	for i, a := range genesis.DevAccounts() {
		fmt.Printf("      #%d %v\n", i, a.Address)
	}
}
