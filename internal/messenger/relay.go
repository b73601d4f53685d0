package messenger

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xo-messenger-bot/internal/obslog"
)

// RelayState is the connection state of a Relay.
type RelayState int

const (
	RelayDisconnected RelayState = iota
	RelayConnecting
	RelayConnected
	RelayReconnecting
	RelayFailed
)

func (s RelayState) String() string {
	switch s {
	case RelayConnecting:
		return "connecting"
	case RelayConnected:
		return "connected"
	case RelayReconnecting:
		return "reconnecting"
	case RelayFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

var ErrRelayNotConnected = errors.New("relay not connected")

type EventCallback func(ev Event)

type StateCallback func(state RelayState)

type eventCallbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Relay is a websocket link to a message relay. Inbound frames are Messaging events and outbound
// frames are SendRequest bodies. It reconnects with backoff and pings to detect dead links.
type Relay struct {
	wsURL string

	conn   *websocket.Conn
	state  RelayState
	stateM sync.RWMutex
	writeM sync.Mutex

	eventCbs []eventCallbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	header               http.Header

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewRelay(wsURL string, maxReconnectAttempts int) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		wsURL:                wsURL,
		state:                RelayDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		header:               http.Header{},
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// SetHeader adds a handshake header, e.g. a relay auth token.
func (r *Relay) SetHeader(k, v string) {
	if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
		return
	}
	r.header.Set(k, v)
}

func (r *Relay) Connect(ctx context.Context) error {
	r.stateM.Lock()
	if r.state == RelayConnected || r.state == RelayConnecting {
		r.stateM.Unlock()
		return nil
	}
	r.stateM.Unlock()
	r.setState(RelayConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := r.dial(dialCtx)
	if err != nil {
		r.setState(RelayFailed)
		r.scheduleReconnect()
		return err
	}
	r.attach(conn)
	return nil
}

func (r *Relay) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, r.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      r.header.Clone(),
	})
	return conn, err
}

func (r *Relay) attach(conn *websocket.Conn) {
	r.stateM.Lock()
	r.conn = conn
	r.stateM.Unlock()
	r.setState(RelayConnected)
	obslog.L().Info("relay_connected", zap.String("url", r.wsURL))

	r.wg.Add(2)
	go r.listen(conn)
	go r.pingLoop(conn)
}

func (r *Relay) listen(conn *websocket.Conn) {
	defer r.wg.Done()
	for {
		var m Messaging
		if err := wsjson.Read(r.rootCtx, conn, &m); err != nil {
			if r.isStopping() {
				return
			}
			obslog.L().Warn("relay_read_failed", zap.Error(err))
			r.drop(conn, websocket.StatusGoingAway, "reconnect")
			return
		}
		ev, ok := m.Event()
		if !ok {
			continue
		}

		r.cbM.RLock()
		callbacks := make([]eventCallbackEntry, len(r.eventCbs))
		copy(callbacks, r.eventCbs)
		r.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(ev)
			}
		}
	}
}

func (r *Relay) pingLoop(conn *websocket.Conn) {
	defer r.wg.Done()
	t := time.NewTicker(r.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.rootCtx.Done():
			return
		case <-t.C:
			if r.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(r.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if r.isStopping() {
					return
				}
				r.drop(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// drop closes conn if it is still current and starts reconnecting.
func (r *Relay) drop(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	r.stateM.Lock()
	if r.conn != conn {
		r.stateM.Unlock()
		return
	}
	r.conn = nil
	r.stateM.Unlock()
	_ = conn.Close(code, reason)
	r.setState(RelayDisconnected)
	r.scheduleReconnect()
}

func (r *Relay) scheduleReconnect() {
	if r.maxReconnectAttempts <= 0 || r.isStopping() {
		return
	}
	r.setState(RelayReconnecting)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for attempt := 1; attempt <= r.maxReconnectAttempts; attempt++ {
			select {
			case <-r.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(r.rootCtx, 10*time.Second)
			conn, err := r.dial(dialCtx)
			cancel()
			if err != nil {
				obslog.L().Debug("relay_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if r.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			r.attach(conn)
			return
		}
		r.setState(RelayFailed)
	}()
}

// Send writes one SendRequest frame. Writes are serialised.
func (r *Relay) Send(ctx context.Context, recipientID, text string) error {
	conn := r.current()
	if conn == nil || r.State() != RelayConnected {
		return ErrRelayNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	r.writeM.Lock()
	defer r.writeM.Unlock()
	return wsjson.Write(ctx, conn, SendRequest{Recipient: Party{ID: recipientID}, Message: SendMessage{Text: text}})
}

func (r *Relay) OnEvent(cb EventCallback) int {
	r.cbM.Lock()
	defer r.cbM.Unlock()
	r.nextCbID++
	r.eventCbs = append(r.eventCbs, eventCallbackEntry{id: r.nextCbID, callback: cb})
	return r.nextCbID
}

func (r *Relay) RemoveEventCallback(id int) {
	r.cbM.Lock()
	defer r.cbM.Unlock()
	for i, cb := range r.eventCbs {
		if cb.id == id {
			r.eventCbs = append(r.eventCbs[:i], r.eventCbs[i+1:]...)
			break
		}
	}
}

func (r *Relay) OnStateChange(cb StateCallback) int {
	r.cbM.Lock()
	defer r.cbM.Unlock()
	r.nextCbID++
	r.stateCbs = append(r.stateCbs, stateCallbackEntry{id: r.nextCbID, callback: cb})
	return r.nextCbID
}

func (r *Relay) RemoveStateCallback(id int) {
	r.cbM.Lock()
	defer r.cbM.Unlock()
	for i, cb := range r.stateCbs {
		if cb.id == id {
			r.stateCbs = append(r.stateCbs[:i], r.stateCbs[i+1:]...)
			break
		}
	}
}

func (r *Relay) State() RelayState {
	r.stateM.RLock()
	defer r.stateM.RUnlock()
	return r.state
}

func (r *Relay) current() *websocket.Conn {
	r.stateM.RLock()
	defer r.stateM.RUnlock()
	return r.conn
}

func (r *Relay) setState(state RelayState) {
	r.stateM.Lock()
	r.state = state
	r.stateM.Unlock()

	r.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(r.stateCbs))
	copy(callbacks, r.stateCbs)
	r.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close stops reconnecting, closes the link and waits for background goroutines.
func (r *Relay) Close(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.stateM.Lock()
	conn := r.conn
	r.conn = nil
	r.stateM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	r.rootCancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		r.setState(RelayDisconnected)
		return nil
	}
}

func (r *Relay) isStopping() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}
