// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metronome

// DiscriminatorLength is the length of instruction and account discriminators.
const DiscriminatorLength = 8

// Discriminator tags encoded instructions and account data.
type Discriminator [DiscriminatorLength]byte

// Sighash returns the discriminator prefixed to the data of instruction name.
func Sighash(name string) (d Discriminator) {
	h := Blake2b([]byte("global:" + name))
	copy(d[:], h[:DiscriminatorLength])
	return
}

// AccountDiscriminator returns the discriminator prefixed to account data of type name.
func AccountDiscriminator(name string) (d Discriminator) {
	h := Blake2b([]byte("account:" + name))
	copy(d[:], h[:DiscriminatorLength])
	return
}
