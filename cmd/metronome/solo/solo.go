// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solo

import (
	"context"
	"time"

	"github.com/vechain/metronome/co"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metrics"
	"github.com/vechain/metronome/metronome"
)

var (
	logger = log.WithContext("pkg", "solo")

	metricSlot       = metrics.LazyLoadGauge("solo_slot")
	metricPackedTxs  = metrics.LazyLoadCounterVec("solo_packed_txs_total", []string{"result"})
	metricPackTimeMs = metrics.LazyLoadHistogram("solo_pack_duration_ms", metrics.Bucket10s)
)

type Options struct {
	SlotInterval time.Duration
}

// Solo is the standalone ledger producing slots at a fixed interval.
type Solo struct {
	core    *Core
	txPool  *TxPool
	options Options
}

// New returns Solo instance
func New(core *Core, txPool *TxPool, options Options) *Solo {
	if options.SlotInterval <= 0 {
		options.SlotInterval = metronome.SlotInterval
	}
	return &Solo{
		core:    core,
		txPool:  txPool,
		options: options,
	}
}

// Run produces slots until ctx is done.
func (s *Solo) Run(ctx context.Context) error {
	goes := &co.Goes{}

	defer func() {
		<-ctx.Done()
		goes.Wait()
	}()

	logger.Info("prepared to produce slots", "interval", s.options.SlotInterval)

	goes.Go(func() {
		s.loop(ctx)
	})

	return nil
}

func (s *Solo) loop(ctx context.Context) {
	ticker := time.NewTicker(s.options.SlotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping slot production......")
			return
		case now := <-ticker.C:
			if err := s.Produce(now); err != nil {
				logger.Error("failed to produce slot", "err", err)
			}
		}
	}
}

// Produce packs the pending txs into one slot.
func (s *Solo) Produce(now time.Time) error {
	start := time.Now()
	txs := s.txPool.Executables()
	receipts, err := s.core.Pack(txs, now)
	if err != nil {
		return err
	}
	s.txPool.Remove(txs...)

	reverted := 0
	for _, r := range receipts {
		if r.Reverted {
			reverted++
		}
	}
	clock := s.core.Clock()
	metricSlot().Set(int64(clock.Slot))
	metricPackedTxs().AddWithLabel(int64(len(receipts)-reverted), map[string]string{"result": "ok"})
	metricPackedTxs().AddWithLabel(int64(reverted), map[string]string{"result": "reverted"})
	metricPackTimeMs().Observe(time.Since(start).Milliseconds())

	if len(receipts) > 0 {
		logger.Debug("slot produced", "slot", clock.Slot, "txs", len(receipts), "reverted", reverted)
	}
	return nil
}
