// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/metronome/api/restutil"
	"github.com/vechain/metronome/api/types"
	"github.com/vechain/metronome/log"
	"github.com/vechain/metronome/metronome"
	"github.com/vechain/metronome/runtime"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10

	// Size of the per connection buffer of pending notifications.
	bufferSize = 64
)

// Source publishes ledger notifications.
type Source interface {
	SubscribeSlots(ch chan<- runtime.Clock) event.Subscription
	SubscribeAccounts(ch chan<- *runtime.AccountChange) event.Subscription
}

type Subscriptions struct {
	source   Source
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
}

func New(source Source, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		source: source,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		done: make(chan struct{}),
	}
}

func (s *Subscriptions) handleSlotSubscription(w http.ResponseWriter, req *http.Request) error {
	ch := make(chan runtime.Clock, bufferSize)
	sub := s.source.SubscribeSlots(ch)
	defer sub.Unsubscribe()

	return pipe(s, w, req, ch, sub, func(clock runtime.Clock) (any, bool) {
		return &clock, true
	})
}

func (s *Subscriptions) handleAccountSubscription(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseAccountFilter(req)
	if err != nil {
		return restutil.BadRequest(err)
	}
	ch := make(chan *runtime.AccountChange, bufferSize)
	sub := s.source.SubscribeAccounts(ch)
	defer sub.Unsubscribe()

	return pipe(s, w, req, ch, sub, func(change *runtime.AccountChange) (any, bool) {
		if !filter.match(change) {
			return nil, false
		}
		return types.ConvertAccountChange(change), true
	})
}

type accountFilter struct {
	owner   *metronome.Address
	address *metronome.Address
}

func parseAccountFilter(req *http.Request) (*accountFilter, error) {
	var f accountFilter
	query := req.URL.Query()
	if s := query.Get("owner"); s != "" {
		owner, err := metronome.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "owner")
		}
		f.owner = &owner
	}
	if s := query.Get("address"); s != "" {
		addr, err := metronome.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "address")
		}
		f.address = &addr
	}
	return &f, nil
}

// match reports whether change passes the filter. Deleted accounts match their last owner.
func (f *accountFilter) match(change *runtime.AccountChange) bool {
	if f.address != nil && *f.address != change.Address {
		return false
	}
	if f.owner != nil && change.Owner() != *f.owner {
		return false
	}
	return true
}

// pipe upgrades the request and forwards converted notifications from ch until the
// peer goes away, the subscription fails or the server closes.
func pipe[T any](s *Subscriptions, w http.ResponseWriter, req *http.Request, ch <-chan T, sub event.Subscription, convert func(T) (any, bool)) error {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Debug("upgrade failed", "err", err)
		// the upgrader already replied
		return nil
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var closeMsg []byte
	for {
		select {
		case v := <-ch:
			msg, ok := convert(v)
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
		case err := <-sub.Err():
			if err != nil {
				closeMsg = websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
			} else {
				closeMsg = websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			}
			return writeClose(conn, closeMsg)
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-s.done:
			closeMsg = websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
			return writeClose(conn, closeMsg)
		case <-closed:
			return nil
		}
	}
}

func writeClose(conn *websocket.Conn, msg []byte) error {
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logger.Debug("failed to send close message", "err", err)
	}
	return nil
}

// Close disconnects every subscriber and waits for the handlers to return.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/slot").
		Methods(http.MethodGet).
		Name("WS /subscriptions/slot").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSlotSubscription))
	sub.Path("/account").
		Methods(http.MethodGet).
		Name("WS /subscriptions/account").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleAccountSubscription))
}
