// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/metronome/rotation"
)

func TestReadNodeConfig(t *testing.T) {
	cfg, err := readNodeConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultNodeConfig(), cfg)

	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rotation:
  rotation-interval: 30
delivery:
  timeout: 3s
  max-retries: 5
  retry-status: [503]
workers: 8
`), 0o600))

	cfg, err = readNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, rotation.Params{RotationInterval: 30, GracePeriod: rotation.DefaultParams().GracePeriod}, cfg.Rotation)
	assert.Equal(t, 3*time.Second, cfg.Delivery.Timeout)
	assert.Equal(t, uint64(5), cfg.Delivery.MaxRetries)
	assert.Equal(t, []int{503}, cfg.Delivery.RetryStatus)
	// untouched settings keep their default
	assert.Equal(t, defaultNodeConfig().Delivery.RateLimit, cfg.Delivery.RateLimit)
	assert.Equal(t, 8, cfg.Workers)

	_, err = readNodeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("workers: [1"), 0o600))
	_, err = readNodeConfig(path)
	assert.Error(t, err)
}
