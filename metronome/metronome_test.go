// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metronome_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/metronome/metronome"
)

func TestParseAddress(t *testing.T) {
	s := "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"
	addr, err := metronome.ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, s, addr.String())

	noPrefix, err := metronome.ParseAddress(s[2:])
	require.NoError(t, err)
	assert.Equal(t, addr, noPrefix)

	_, err = metronome.ParseAddress("1x" + s[2:])
	assert.EqualError(t, err, "invalid prefix")
	_, err = metronome.ParseAddress("0x1234")
	assert.EqualError(t, err, "invalid length")

	data, err := json.Marshal(&addr)
	require.NoError(t, err)
	var decoded metronome.Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)
}

func TestBytes32(t *testing.T) {
	b := metronome.Blake2b([]byte("metronome"))
	parsed, err := metronome.ParseBytes32(b.String())
	require.NoError(t, err)
	assert.Equal(t, b, parsed)
	assert.False(t, b.IsZero())
	assert.True(t, metronome.Bytes32{}.IsZero())
	assert.Len(t, b.AbbrevString(), 2+8+len("…")+8)
}

func TestBlake2bMultiPart(t *testing.T) {
	assert.Equal(t,
		metronome.Blake2b([]byte("ab")),
		metronome.Blake2b([]byte("a"), []byte("b")))
}

func TestDiscriminators(t *testing.T) {
	assert.NotEqual(t, metronome.Sighash("pools_rotate"), metronome.Sighash("snapshot_close"))
	assert.NotEqual(t, metronome.Sighash("snapshot"), metronome.AccountDiscriminator("snapshot"))
	assert.Equal(t, metronome.Sighash("entry_close"), metronome.Sighash("entry_close"))
}

func TestProgramAddress(t *testing.T) {
	program := metronome.BytesToAddress([]byte("network"))
	a := metronome.ProgramAddress(program, []byte("snapshot"), []byte{1})
	b := metronome.ProgramAddress(program, []byte("snapshot"), []byte{2})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, metronome.ProgramAddress(program, []byte("snapshot"), []byte{1}))
	other := metronome.BytesToAddress([]byte("queue"))
	assert.NotEqual(t, a, metronome.ProgramAddress(other, []byte("snapshot"), []byte{1}))
}

func TestReferenceHash(t *testing.T) {
	assert.NotEqual(t, metronome.ReferenceHash(1), metronome.ReferenceHash(2))
	assert.Equal(t, metronome.ReferenceHash(7), metronome.ReferenceHash(7))
}
