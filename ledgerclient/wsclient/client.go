// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wsclient

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/ledgerclient/common"
	"github.com/vechain/metronome/runtime"
)

type Client struct {
	host   string
	scheme string
}

func NewClient(url string) (*Client, error) {
	var host string
	var scheme string

	if strings.Contains(url, "https://") || strings.Contains(url, "wss://") {
		host = strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "wss://")
		scheme = "wss"
	} else if strings.Contains(url, "http://") || strings.Contains(url, "ws://") {
		host = strings.TrimPrefix(strings.TrimPrefix(url, "http://"), "ws://")
		scheme = "ws"
	} else {
		return nil, fmt.Errorf("invalid url")
	}

	return &Client{
		host:   strings.TrimSuffix(host, "/"),
		scheme: scheme,
	}, nil
}

// SubscribeSlots streams the clock of every produced slot.
func (c *Client) SubscribeSlots() (*common.Subscription[*runtime.Clock], error) {
	conn, err := c.connect("/subscriptions/slot", "")
	if err != nil {
		return nil, fmt.Errorf("unable to connect - %w", err)
	}
	return subscribe[runtime.Clock](conn), nil
}

// SubscribeAccounts streams account changes matching query, e.g. "owner=0x..." or "address=0x...".
func (c *Client) SubscribeAccounts(query string) (*common.Subscription[*types.Account], error) {
	conn, err := c.connect("/subscriptions/account", query)
	if err != nil {
		return nil, fmt.Errorf("unable to connect - %w", err)
	}
	return subscribe[types.Account](conn), nil
}

// subscribe reads JSON messages of type T from conn until it fails or is unsubscribed.
// A read failure is delivered once as an EventWrapper carrying the error, then the channel closes.
func subscribe[T any](conn *websocket.Conn) *common.Subscription[*T] {
	eventChan := make(chan common.EventWrapper[*T])
	done := make(chan struct{})

	go func() {
		defer close(eventChan)
		defer conn.Close()

		for {
			var data T
			if err := conn.ReadJSON(&data); err != nil {
				select {
				case eventChan <- common.EventWrapper[*T]{Error: fmt.Errorf("%w: %w", common.ErrUnexpectedMsg, err)}:
				case <-done:
				}
				return
			}
			select {
			case eventChan <- common.EventWrapper[*T]{Data: &data}:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return &common.Subscription[*T]{
		EventChan: eventChan,
		Unsubscribe: func() error {
			once.Do(func() {
				close(done)
				// best effort, the reader may already have seen the peer go away
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second),
				)
				conn.Close()
			})
			return nil
		},
	}
}

func (c *Client) connect(endpoint, rawQuery string) (*websocket.Conn, error) {
	u := url.URL{
		Scheme:   c.scheme,
		Host:     c.host,
		Path:     endpoint,
		RawQuery: rawQuery,
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
