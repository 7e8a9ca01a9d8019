// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package executor

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sethvargo/go-retry"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
	"github.com/vechain/metronome/tx"
)

// staleRetries bounds how often a tx is rebuilt after its reference hash aged out.
const staleRetries = 2

// Ledger is the part of the ledger client the executors use.
type Ledger interface {
	Account(addr metronome.Address) (*types.Account, error)
	LatestReference() (metronome.Bytes32, error)
	SendTransaction(trx *tx.Transaction) (metronome.Bytes32, error)
	Confirm(ctx context.Context, id metronome.Bytes32) (*tx.Receipt, error)
}

// signer builds txs paid and signed by the node key.
type signer struct {
	ledger Ledger
	key    *ecdsa.PrivateKey
	self   metronome.Address
}

func newSigner(ledger Ledger, key *ecdsa.PrivateKey) *signer {
	return &signer{
		ledger: ledger,
		key:    key,
		self:   metronome.Address(crypto.PubkeyToAddress(key.PublicKey)),
	}
}

func (s *signer) sign(ixs ...*runtime.Instruction) (*tx.Transaction, error) {
	ref, err := s.ledger.LatestReference()
	if err != nil {
		return nil, err
	}
	return tx.Sign(tx.NewBuilder(s.self).ReferenceHash(ref).Instruction(ixs...).Build(), s.key)
}

// submit sends the tx returned by build and waits for its receipt. A tx whose
// reference hash went stale is rebuilt, a slot later, with a fresh one.
func submit(ctx context.Context, ledger Ledger, build func() (*tx.Transaction, error)) (*tx.Receipt, error) {
	backoff, err := retry.NewConstant(metronome.SlotInterval)
	if err != nil {
		return nil, err
	}
	backoff = retry.WithMaxRetries(staleRetries, backoff)

	var id metronome.Bytes32
	err = retry.Do(ctx, backoff, func(context.Context) error {
		trx, err := build()
		if err != nil {
			return err
		}
		id, err = ledger.SendTransaction(trx)
		if common.IsStaleReference(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return ledger.Confirm(ctx, id)
}

// outcome labels a submission result for metrics and logs.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case common.IsRejected(err):
		return "rejected"
	case common.IsStaleReference(err):
		return "stale"
	default:
		return "failed"
	}
}
