// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, LevelInfo, FromLegacyLevel(LegacyLevelInfo))
	assert.Equal(t, LevelTrace, FromLegacyLevel(5))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
	assert.Equal(t, LevelCrit, FromLegacyLevel(-1))
}

func TestTerminalHandler(t *testing.T) {
	var (
		out bytes.Buffer
		lvl slog.LevelVar
	)
	lvl.Set(LevelInfo)
	l := NewLogger(NewTerminalHandlerWithLevel(&out, &lvl, false)).With("pkg", "test")

	l.Debug("hidden")
	assert.Empty(t, out.String())

	l.Info("rotation submitted", "slot", uint64(120), "stake", uint256.NewInt(42), "err", errors.New("bad thing"))
	line := out.String()
	assert.Contains(t, line, "INFO ")
	assert.Contains(t, line, "rotation submitted")
	assert.Contains(t, line, "pkg=test")
	assert.Contains(t, line, "slot=120")
	assert.Contains(t, line, "stake=42")
	assert.Contains(t, line, `err="bad thing"`)

	out.Reset()
	lvl.Set(LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, out.String(), "DEBUG")
}

func TestJSONHandler(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger(JSONHandler(&out))
	l.Warn("stale", "n", uint256.NewInt(7))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "warn", rec["lvl"])
	assert.Equal(t, "stale", rec["msg"])
	assert.Equal(t, "7", rec["n"])
}

func TestWithContextFollowsDefault(t *testing.T) {
	pkgLogger := WithContext("pkg", "observer")

	var out bytes.Buffer
	prev := root.Load().(*swapLogger).get()
	SetDefault(NewLogger(LogfmtHandlerWithLevel(&out, new(slog.LevelVar))))
	defer SetDefault(prev)

	pkgLogger.Info("hello")
	assert.Contains(t, out.String(), "pkg=observer")
	assert.Contains(t, out.String(), "msg=hello")
}
