// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/metronome/api"
	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/cmd/metronome/solo"
	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/genesis"
	"github.com/vechain/metronome/ledgerclient"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/lvldb"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/programs/network"
	"github.com/vechain/metronome/programs/queue"
	"github.com/vechain/metronome/programs/webhook"
	"github.com/vechain/metronome/rotation"
	"github.com/vechain/metronome/runtime"
)

func newTestLedger(t *testing.T) (*genesis.Genesis, *ledgerclient.Client) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	gene := genesis.NewDevnet()
	core, err := solo.NewCore(db, gene)
	require.NoError(t, err)
	pool := solo.NewTxPool(core)

	handler, closeSubs := api.New(core, pool, api.Options{AllowedOrigins: "*"})
	ts := httptest.NewServer(handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		solo.New(core, pool, solo.Options{SlotInterval: 10 * time.Millisecond}).Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		closeSubs()
		ts.Close()
		core.Close()
		db.Close()
	})

	client, err := ledgerclient.NewWithWS(ts.URL, ledgerclient.PollInterval(10*time.Millisecond))
	require.NoError(t, err)
	return gene, client
}

func startNode(t *testing.T, n *Node) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	require.Eventually(t, func() bool {
		status, _ := n.Health().Status()
		return status.Bootstrapped
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMasterAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	master := &Master{PrivateKey: key}
	assert.Equal(t, metronome.Address(crypto.PubkeyToAddress(key.PublicKey)), master.Address())
}

func TestNodeServesPools(t *testing.T) {
	gene, client := newTestLedger(t)

	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/hooks/ping" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	devs := genesis.DevAccounts()
	master := &Master{PrivateKey: devs[1].PrivateKey}
	dispatcher := delivery.NewHTTP(master.Address(), delivery.DefaultOptions())
	n := New(master, client, dispatcher, Options{Rotation: rotation.DefaultParams(), Workers: 2})
	startNode(t, n)

	// the genesis snapshot queue is overdue and gets cranked
	assert.Eventually(t, func() bool {
		q, err := ledgerclient.Fetch[queue.Queue](client, gene.SnapshotQueue(), queue.QueueAccount)
		return err == nil && q.ExecContext.Cranks > 0
	}, 5*time.Second, 10*time.Millisecond)

	caller := devs[5]
	baseURL := hook.URL + "/hooks"
	apiAddr := webhook.APIAddress(caller.Address, baseURL)
	_, err := client.SubmitAndConfirm(context.Background(), caller.PrivateKey,
		webhook.APINew(caller.Address, metronome.Address{}, baseURL),
		webhook.RequestNew(caller.Address, apiAddr, "r1", http.MethodPost, "/ping"),
	)
	require.NoError(t, err)

	// delivered, then acknowledged which closes the request
	reqAddr := webhook.RequestAddress(apiAddr, caller.Address, "r1")
	assert.Eventually(t, func() bool {
		_, err := client.Account(reqAddr)
		return errors.Is(err, common.ErrNotFound)
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
	assert.Eventually(t, func() bool {
		return n.Executors().Webhooks().Pending() == 0
	}, time.Second, 10*time.Millisecond)

	status, err := n.Health().Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestNodeNeedsWebsocket(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	n := New(&Master{PrivateKey: key}, ledgerclient.New("http://localhost:1"), delivery.NewHTTP(metronome.Address{}, delivery.DefaultOptions()), Options{})
	assert.Error(t, n.Run(context.Background()))
}

// stallingLedger holds reads of the listed accounts until released.
type stallingLedger struct {
	*ledgerclient.Client
	held    map[metronome.Address]bool
	stalled chan struct{}
	release chan struct{}

	stallOnce   sync.Once
	releaseOnce sync.Once
}

func (l *stallingLedger) Account(addr metronome.Address) (*types.Account, error) {
	if l.held[addr] {
		l.stallOnce.Do(func() { close(l.stalled) })
		<-l.release
	}
	return l.Client.Account(addr)
}

func (l *stallingLedger) unblock() {
	l.releaseOnce.Do(func() { close(l.release) })
}

func TestSlotsFlowDuringSnapshotRefresh(t *testing.T) {
	_, client := newTestLedger(t)

	// entries of the first snapshot taken after genesis
	l := &stallingLedger{
		Client:  client,
		held:    make(map[metronome.Address]bool),
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
	for i := range uint64(8) {
		l.held[network.EntryAddress(network.SnapshotAddress(1), i)] = true
	}

	master := &Master{PrivateKey: genesis.DevAccounts()[1].PrivateKey}
	n := New(master, l, delivery.NewHTTP(master.Address(), delivery.DefaultOptions()), Options{Rotation: rotation.DefaultParams(), Workers: 2})
	startNode(t, n)
	t.Cleanup(l.unblock)

	select {
	case <-l.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot entries were never read")
	}

	status, err := n.Health().Status()
	require.NoError(t, err)
	from := status.SlotIngestion.Slot
	assert.Eventually(t, func() bool {
		status, _ := n.Health().Status()
		return status.SlotIngestion.Slot >= from+5
	}, 5*time.Second, 10*time.Millisecond)

	if snapshot, _ := n.Observer().Snapshot(); snapshot != nil {
		assert.Equal(t, uint64(0), snapshot.ID, "installed before its entries were read")
	}

	l.unblock()
	assert.Eventually(t, func() bool {
		snapshot, entries := n.Observer().Snapshot()
		return snapshot != nil && snapshot.ID == 1 && len(entries) == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMalformedSnapshotStopsNode(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	n := New(&Master{PrivateKey: key}, ledgerclient.New("http://localhost:1"), delivery.NewHTTP(metronome.Address{}, delivery.DefaultOptions()), Options{})

	d := metronome.AccountDiscriminator(network.SnapshotAccount)
	bad := &types.Account{Address: network.SnapshotAddress(1), Owner: network.ProgramID, Data: append(d[:], 1, 2, 3)}
	require.NoError(t, n.handleAccount(context.Background(), bad))
	n.refreshes.Wait()

	select {
	case err := <-n.fatal:
		assert.ErrorIs(t, err, runtime.ErrDeserialization)
	default:
		t.Fatal("malformed snapshot was not reported")
	}
}
