// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoesWaits(t *testing.T) {
	var (
		g       Goes
		count   atomic.Int32
		release = make(chan struct{})
	)
	for range 4 {
		g.Go(func() {
			<-release
			count.Add(1)
		})
	}

	select {
	case <-g.Done():
		t.Fatal("routines exited before release")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("routines did not exit")
	}
	assert.Equal(t, int32(4), count.Load())
}
