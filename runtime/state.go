// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/metronome/kv"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/stackedmap"
)

// State is a journaled view of the account store. Writes stay in memory
// until Commit; Checkpoint and RevertTo give each step its own atomic scope.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap[metronome.Address, *Account]
}

// NewState creates a state backed by store.
func NewState(store kv.Store) *State {
	s := &State{store: store}
	s.sm = stackedmap.New[metronome.Address, *Account](s.load)
	s.sm.Push()
	return s
}

func (s *State) load(addr metronome.Address) (*Account, bool, error) {
	data, err := s.store.Get(addr.Bytes())
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "load account %v", addr)
	}
	var acc Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, false, errors.Wrapf(err, "decode account %v", addr)
	}
	return &acc, true, nil
}

// Get returns a copy of the account at addr, or nil if it does not exist.
func (s *State) Get(addr metronome.Address) (*Account, error) {
	acc, ok, err := s.sm.Get(addr)
	if err != nil || !ok || acc == nil {
		return nil, err
	}
	return acc.Copy(), nil
}

// Committed returns the account at addr as last committed, ignoring pending changes.
func (s *State) Committed(addr metronome.Address) (*Account, error) {
	acc, _, err := s.load(addr)
	return acc, err
}

// Exists reports whether an account lives at addr.
func (s *State) Exists(addr metronome.Address) (bool, error) {
	acc, err := s.Get(addr)
	return acc != nil, err
}

// Set stores a copy of acc at addr.
func (s *State) Set(addr metronome.Address, acc *Account) {
	s.sm.Put(addr, acc.Copy())
}

// Delete removes the account at addr.
func (s *State) Delete(addr metronome.Address) {
	s.sm.Put(addr, nil)
}

// Checkpoint returns a revision to revert to.
func (s *State) Checkpoint() int {
	return s.sm.Push()
}

// RevertTo drops every change made after the checkpoint rev was taken.
func (s *State) RevertTo(rev int) {
	s.sm.PopTo(rev)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Changes returns the final value of every touched account; nil means deleted.
func (s *State) Changes() map[metronome.Address]*Account {
	changes := make(map[metronome.Address]*Account)
	s.sm.Journal(func(addr metronome.Address, acc *Account) bool {
		changes[addr] = acc
		return true
	})
	return changes
}

// Commit writes all pending changes into the store in one batch and returns the touched addresses.
func (s *State) Commit() ([]metronome.Address, error) {
	changes := s.Changes()
	batch := s.store.NewBatch()
	touched := make([]metronome.Address, 0, len(changes))
	for addr, acc := range changes {
		touched = append(touched, addr)
		if acc == nil {
			if err := batch.Delete(addr.Bytes()); err != nil {
				return nil, err
			}
			continue
		}
		data, err := rlp.EncodeToBytes(acc)
		if err != nil {
			return nil, errors.Wrapf(err, "encode account %v", addr)
		}
		if err := batch.Put(addr.Bytes(), data); err != nil {
			return nil, err
		}
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "commit state")
	}
	s.sm = stackedmap.New[metronome.Address, *Account](s.load)
	s.sm.Push()
	return touched, nil
}

// ForEach iterates committed accounts; pending changes are not visited.
func (s *State) ForEach(fn func(addr metronome.Address, acc *Account) bool) error {
	var decodeErr error
	err := s.store.Iterate(kv.Range{}, func(p kv.Pair) bool {
		var acc Account
		if err := rlp.DecodeBytes(p.Value(), &acc); err != nil {
			decodeErr = errors.Wrap(err, "decode account")
			return false
		}
		return fn(metronome.BytesToAddress(p.Key()), &acc)
	})
	if err != nil {
		return err
	}
	return decodeErr
}
