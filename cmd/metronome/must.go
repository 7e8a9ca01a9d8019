// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/metronome/cmd/metronome/httpserver"
	"github.com/vechain/metronome/genesis"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/node"
)

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

// initLogger installs the default logger and returns its level, which the admin
// server may change at runtime.
func initLogger(ctx *cli.Context) *slog.LevelVar {
	level := &slog.LevelVar{}
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return level
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func loadOrGeneratePrivateKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func loadNodeMaster(ctx *cli.Context) *node.Master {
	if i := ctx.Int(devKeyFlag.Name); i >= 0 {
		devs := genesis.DevAccounts()
		if i >= len(devs) {
			fatal(fmt.Sprintf("dev key index out of range [0, %d)", len(devs)))
		}
		return &node.Master{PrivateKey: devs[i].PrivateKey}
	}
	key, err := loadOrGeneratePrivateKey(ctx.String(keyFileFlag.Name))
	if err != nil {
		fatal("load or generate node key:", err)
	}
	return &node.Master{PrivateKey: key}
}

func selectGenesis(ctx *cli.Context) *genesis.Genesis {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet()
	}
	gene, err := genesis.LoadCustomNet(path)
	if err != nil {
		fatal(fmt.Sprintf("load genesis: %v", err))
	}
	return gene
}

func openLedgerDB(ctx *cli.Context) (*lvldb.LevelDB, string) {
	if !ctx.Bool(persistFlag.Name) {
		db, err := lvldb.NewMem()
		if err != nil {
			fatal(fmt.Sprintf("open ledger database: %v", err))
		}
		return db, "Memory"
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	dir := filepath.Join(dataDir, "ledger.db")
	db, err := lvldb.New(dir, lvldb.Options{})
	if err != nil {
		fatal(fmt.Sprintf("open ledger database [%v]: %v", dir, err))
	}
	return db, dataDir
}

func startAPIServer(ctx *cli.Context, handler http.Handler) (string, func()) {
	url, stop, err := httpserver.Serve("API", ctx.String(apiAddrFlag.Name), "/", handler)
	if err != nil {
		fatal(err)
	}
	return url, stop
}

func defaultKeyFile() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".org.vechain.metronome", "node.key")
}

func defaultDataDir() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".org.vechain.metronome", "solo")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
