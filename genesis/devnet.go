// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vechain/metronome/metronome"
)

// DevAccount account for development.
type DevAccount struct {
	Address    metronome.Address
	PrivateKey *ecdsa.PrivateKey
}

var devAccounts atomic.Value

// DevAccounts returns pre-alloced accounts for solo mode.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
		"88d2d80b12b92feaa0da6d62309463d20408157723f2d7e799b6a74ead9a673b",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		addr := crypto.PubkeyToAddress(pk.PublicKey)
		accs = append(accs, DevAccount{metronome.Address(addr), pk})
	}
	devAccounts.Store(accs)
	return accs
}

// DevBalance is the balance of every dev account.
const DevBalance uint64 = 1_000_000_000_000

// NewDevnet create genesis for solo mode. The first dev account is the admin,
// the next three run staked worker nodes for themselves.
func NewDevnet() *Genesis {
	devs := DevAccounts()

	spec := &Spec{
		LaunchTime:       1735689600, // 2025-01-01 00:00:00 UTC
		Admin:            devs[0].Address,
		Pools:            []Pool{{metronome.CrankPool, 2}, {metronome.HTTPPool, 2}},
		SnapshotSchedule: "@every 1m",
		SnapshotFunding:  DevBalance / 10,
	}
	for _, a := range devs {
		spec.Accounts = append(spec.Accounts, Account{a.Address, DevBalance})
	}
	for i, a := range devs[1:4] {
		spec.Nodes = append(spec.Nodes, Node{
			Authority: a.Address,
			Worker:    a.Address,
			Stake:     uint64(i+1) * 1_000_000,
		})
	}
	return New("devnet", spec)
}
