// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/metronome/ledgerclient"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/programs/webhook"
	"github.com/vechain/metronome/runtime"
)

var queryCommands = []cli.Command{
	{
		Name:  "config",
		Usage: "network configuration",
		Subcommands: []cli.Command{
			{
				Name:   "get",
				Flags:  []cli.Flag{ledgerURLFlag, dumpFlag},
				Action: getConfigAction,
			},
			{
				Name:   "set",
				Usage:  "update the network config, unset values are kept",
				Flags:  []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag, rotationIntervalFlag, gracePeriodFlag, crankFeeFlag},
				Action: setConfigAction,
			},
		},
	},
	{
		Name:  "registry",
		Usage: "node registry",
		Subcommands: []cli.Command{
			{
				Name:   "get",
				Flags:  []cli.Flag{ledgerURLFlag, dumpFlag},
				Action: getRegistryAction,
			},
		},
	},
	{
		Name:  "node",
		Usage: "staked nodes",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{ledgerURLFlag, dumpFlag},
				Action:    getNodeAction,
			},
			{
				Name:      "register",
				Usage:     "register a node operated by worker, signed by the node key as authority",
				ArgsUsage: "<worker>",
				Flags:     []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag},
				Action:    registerNodeAction,
			},
			{
				Name:      "stake",
				ArgsUsage: "<id> <amount>",
				Flags:     []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag},
				Action:    stakeNodeAction,
			},
		},
	},
	{
		Name:  "pool",
		Usage: "worker pools",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{ledgerURLFlag, dumpFlag},
				Action:    getPoolAction,
			},
		},
	},
	{
		Name:  "snapshot",
		Usage: "stake snapshots",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "print a snapshot, the current one if no id is given",
				ArgsUsage: "[id]",
				Flags:     []cli.Flag{ledgerURLFlag, dumpFlag, entryFlag, allEntriesFlag},
				Action:    getSnapshotAction,
			},
		},
	},
	{
		Name:  "queue",
		Usage: "instruction queues",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<address>",
				Flags:     []cli.Flag{ledgerURLFlag, dumpFlag},
				Action:    getQueueAction,
			},
			{
				Name:      "update",
				Usage:     "change the schedule or rate limit, unset values are kept",
				ArgsUsage: "<address>",
				Flags:     []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag, rateLimitFlag, scheduleFlag},
				Action:    updateQueueAction,
			},
		},
	},
	{
		Name:  "api",
		Usage: "webhook apis",
		Subcommands: []cli.Command{
			{
				Name:      "new",
				ArgsUsage: "<base-url>",
				Flags:     []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag, ackAuthorityFlag},
				Action:    newAPIAction,
			},
		},
	},
	{
		Name:  "http-request",
		Usage: "webhook requests",
		Subcommands: []cli.Command{
			{
				Name:      "new",
				ArgsUsage: "<api> <id> <route>",
				Flags:     []cli.Flag{ledgerURLFlag, keyFileFlag, devKeyFlag, methodFlag},
				Action:    newRequestAction,
			},
		},
	},
}

var clientOptions []ledgerclient.Option

func newClient(ctx *cli.Context) *ledgerclient.Client {
	return ledgerclient.New(ctx.String(ledgerURLFlag.Name), clientOptions...)
}

func printValue(ctx *cli.Context, v any) error {
	if ctx.Bool(dumpFlag.Name) {
		spew.Dump(v)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func argAddress(ctx *cli.Context, i int, name string) (metronome.Address, error) {
	addr, err := metronome.ParseAddress(ctx.Args().Get(i))
	if err != nil {
		return metronome.Address{}, errors.WithMessagef(err, "invalid %s", name)
	}
	return addr, nil
}

func argUint(ctx *cli.Context, i int, name string) (uint64, error) {
	v, err := strconv.ParseUint(ctx.Args().Get(i), 10, 64)
	if err != nil {
		return 0, errors.WithMessagef(err, "invalid %s", name)
	}
	return v, nil
}

func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return fmt.Errorf("expected %d arguments, got %d", n, ctx.NArg())
	}
	return nil
}

// submit signs ixs with the node key and waits for the receipt.
func submit(ctx *cli.Context, ixs ...*runtime.Instruction) error {
	master := loadNodeMaster(ctx)
	receipt, err := newClient(ctx).SubmitAndConfirm(context.Background(), master.PrivateKey, ixs...)
	if err != nil {
		return err
	}
	fmt.Printf("tx %v executed in slot %d\n", receipt.TxID, receipt.Slot)
	return nil
}

func getConfigAction(ctx *cli.Context) error {
	config, err := ledgerclient.Fetch[network.Config](newClient(ctx), network.ConfigAddress, network.ConfigAccount)
	if err != nil {
		return err
	}
	return printValue(ctx, config)
}

func setConfigAction(ctx *cli.Context) error {
	settings := network.ConfigSettings{
		RotationInterval: ctx.Uint64(rotationIntervalFlag.Name),
		GracePeriod:      ctx.Uint64(gracePeriodFlag.Name),
		CrankFee:         ctx.Uint64(crankFeeFlag.Name),
	}
	if settings == (network.ConfigSettings{}) {
		return errors.New("nothing to update")
	}
	master := loadNodeMaster(ctx)
	return submit(ctx, network.ConfigUpdate(master.Address(), settings))
}

func getRegistryAction(ctx *cli.Context) error {
	registry, err := ledgerclient.Fetch[network.Registry](newClient(ctx), network.RegistryAddress, network.RegistryAccount)
	if err != nil {
		return err
	}
	return printValue(ctx, registry)
}

func getNodeAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	id, err := argUint(ctx, 0, "node id")
	if err != nil {
		return err
	}
	node, err := ledgerclient.Fetch[network.Node](newClient(ctx), network.NodeAddress(id), network.NodeAccount)
	if err != nil {
		return err
	}
	return printValue(ctx, node)
}

func registerNodeAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	worker, err := argAddress(ctx, 0, "worker")
	if err != nil {
		return err
	}
	registry, err := ledgerclient.Fetch[network.Registry](newClient(ctx), network.RegistryAddress, network.RegistryAccount)
	if err != nil {
		return err
	}
	master := loadNodeMaster(ctx)
	fmt.Printf("registering node #%d\n", registry.NodeCount)
	return submit(ctx, network.NodeRegister(master.Address(), worker, registry.NodeCount))
}

func stakeNodeAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	id, err := argUint(ctx, 0, "node id")
	if err != nil {
		return err
	}
	amount, err := argUint(ctx, 1, "amount")
	if err != nil {
		return err
	}
	master := loadNodeMaster(ctx)
	return submit(ctx, network.NodeStake(master.Address(), id, amount))
}

func getPoolAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	name := ctx.Args().First()
	pool, err := ledgerclient.Fetch[network.Pool](newClient(ctx), network.PoolAddress(name), network.PoolAccount)
	if err != nil {
		return err
	}
	return printValue(ctx, pool)
}

func getSnapshotAction(ctx *cli.Context) error {
	client := newClient(ctx)

	var id uint64
	if ctx.NArg() > 0 {
		v, err := argUint(ctx, 0, "snapshot id")
		if err != nil {
			return err
		}
		id = v
	} else {
		registry, err := ledgerclient.Fetch[network.Registry](client, network.RegistryAddress, network.RegistryAccount)
		if err != nil {
			return err
		}
		id = registry.CurrentSnapshot
	}

	addr := network.SnapshotAddress(id)
	if entry := ctx.Int64(entryFlag.Name); entry >= 0 {
		e, err := ledgerclient.Fetch[network.SnapshotEntry](client, network.EntryAddress(addr, uint64(entry)), network.EntryAccount)
		if err != nil {
			return err
		}
		return printValue(ctx, e)
	}

	snapshot, err := ledgerclient.Fetch[network.Snapshot](client, addr, network.SnapshotAccount)
	if err != nil {
		return err
	}
	if !ctx.Bool(allEntriesFlag.Name) {
		return printValue(ctx, snapshot)
	}

	entries, err := fetchEntries(client, addr, snapshot.NodeCount)
	if err != nil {
		return err
	}
	return printValue(ctx, struct {
		Snapshot *network.Snapshot
		Entries  []*network.SnapshotEntry
	}{snapshot, entries})
}

func fetchEntries(client *ledgerclient.Client, snapshot metronome.Address, count uint64) ([]*network.SnapshotEntry, error) {
	bar := pb.New64(int64(count)).SetMaxWidth(90)
	bar.Output = os.Stderr
	bar.Start()
	defer bar.Finish()

	entries := make([]*network.SnapshotEntry, 0, count)
	for i := range count {
		e, err := ledgerclient.Fetch[network.SnapshotEntry](client, network.EntryAddress(snapshot, i), network.EntryAccount)
		if err != nil {
			return nil, errors.WithMessagef(err, "entry %d", i)
		}
		entries = append(entries, e)
		bar.Add64(1)
	}
	return entries, nil
}

func getQueueAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	addr, err := argAddress(ctx, 0, "queue")
	if err != nil {
		return err
	}
	q, err := ledgerclient.Fetch[queue.Queue](newClient(ctx), addr, queue.QueueAccount)
	if err != nil {
		return err
	}
	return printValue(ctx, q)
}

func updateQueueAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	addr, err := argAddress(ctx, 0, "queue")
	if err != nil {
		return err
	}
	q, err := ledgerclient.Fetch[queue.Queue](newClient(ctx), addr, queue.QueueAccount)
	if err != nil {
		return err
	}
	settings := queue.Settings{Schedule: q.Schedule, RateLimit: q.RateLimit}
	if ctx.IsSet(scheduleFlag.Name) {
		settings.Schedule = ctx.String(scheduleFlag.Name)
		if err := queue.ValidateSchedule(settings.Schedule); err != nil {
			return err
		}
	}
	if ctx.IsSet(rateLimitFlag.Name) {
		settings.RateLimit = ctx.Uint64(rateLimitFlag.Name)
	}
	master := loadNodeMaster(ctx)
	return submit(ctx, queue.Update(master.Address(), addr, settings))
}

func newAPIAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	baseURL := ctx.Args().First()
	master := loadNodeMaster(ctx)

	ackAuthority := master.Address()
	if s := ctx.String(ackAuthorityFlag.Name); s != "" {
		addr, err := metronome.ParseAddress(s)
		if err != nil {
			return errors.WithMessage(err, "invalid ack authority")
		}
		ackAuthority = addr
	}
	fmt.Printf("api %v\n", webhook.APIAddress(master.Address(), baseURL))
	return submit(ctx, webhook.APINew(master.Address(), ackAuthority, baseURL))
}

func newRequestAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 3); err != nil {
		return err
	}
	api, err := argAddress(ctx, 0, "api")
	if err != nil {
		return err
	}
	id, route := ctx.Args().Get(1), ctx.Args().Get(2)
	master := loadNodeMaster(ctx)

	fmt.Printf("request %v\n", webhook.RequestAddress(api, master.Address(), id))
	return submit(ctx, webhook.RequestNew(master.Address(), api, id, ctx.String(methodFlag.Name), route))
}
