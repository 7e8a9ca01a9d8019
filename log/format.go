// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/holiman/uint256"
)

const (
	timeFormat        = "2006-01-02T15:04:05-0700"
	termTimeFormat    = "01-02|15:04:05.000"
	termMsgJust       = 40
	termCtxMaxPadding = 40
)

func levelColor(l slog.Level) int {
	switch {
	case l >= LevelCrit:
		return 35
	case l >= LevelError:
		return 31
	case l >= LevelWarn:
		return 33
	case l >= LevelInfo:
		return 32
	case l >= LevelDebug:
		return 36
	default:
		return 34
	}
}

func (h *TerminalHandler) format(buf []byte, r slog.Record) []byte {
	b := buf
	lvl := LevelAlignedString(r.Level)
	if h.useColor {
		b = fmt.Appendf(b, "\x1b[%dm%s\x1b[0m", levelColor(r.Level), lvl)
	} else {
		b = append(b, lvl...)
	}
	b = append(b, " ["...)
	b = r.Time.AppendFormat(b, termTimeFormat)
	b = append(b, "] "...)
	b = append(b, r.Message...)

	// align the context block when there is one
	if (r.NumAttrs()+len(h.attrs)) > 0 && len(r.Message) < termMsgJust {
		b = append(b, strings.Repeat(" ", termMsgJust-len(r.Message))...)
	}

	for _, a := range h.attrs {
		b = h.appendAttr(b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		b = h.appendAttr(b, a)
		return true
	})
	return append(b, '\n')
}

func (h *TerminalHandler) appendAttr(b []byte, a slog.Attr) []byte {
	b = append(b, ' ')
	if h.useColor {
		b = fmt.Appendf(b, "\x1b[%dm%s\x1b[0m=", levelColor(LevelInfo), a.Key)
	} else {
		b = append(b, a.Key...)
		b = append(b, '=')
	}
	v := FormatSlogValue(a.Value)
	if utf8.RuneCountInString(v) > termCtxMaxPadding*4 {
		v = v[:termCtxMaxPadding*4] + "…"
	}
	return append(b, v...)
}

// FormatSlogValue renders a value the way the terminal handler prints it.
func FormatSlogValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(timeFormat)
	}

	switch val := v.Any().(type) {
	case nil:
		return "<nil>"
	case error:
		return quoteIfNeeded(val.Error())
	case *big.Int:
		if val == nil {
			return "<nil>"
		}
		return val.String()
	case *uint256.Int:
		if val == nil {
			return "<nil>"
		}
		return val.Dec()
	case fmt.Stringer:
		if isNil(val) {
			return "<nil>"
		}
		return quoteIfNeeded(val.String())
	default:
		return quoteIfNeeded(fmt.Sprintf("%+v", val))
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " =\"\t\r\n") {
		return strconv.Quote(s)
	}
	return s
}
