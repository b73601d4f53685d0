package messenger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// relayServer pushes one inbound event and forwards every outbound frame to sent.
func relayServer(t *testing.T, sent chan<- SendRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Relay-Token") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "")
		ctx := r.Context()
		_ = wsjson.Write(ctx, c, Messaging{Sender: Party{ID: "p"}, Message: &Message{Text: "echo", IsEcho: true}})
		_ = wsjson.Write(ctx, c, Messaging{Sender: Party{ID: "u1"}, ThreadKey: "g1", Message: &Message{MID: "m1", Text: "bot xo start"}})
		for {
			var req SendRequest
			if err := wsjson.Read(ctx, c, &req); err != nil {
				return
			}
			sent <- req
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRelayRoundTrip(t *testing.T) {
	sent := make(chan SendRequest, 4)
	srv := relayServer(t, sent)
	defer srv.Close()

	r := NewRelay(wsURL(srv), 0)
	r.SetHeader("X-Relay-Token", "k")
	events := make(chan Event, 4)
	r.OnEvent(func(ev Event) { events <- ev })
	var states atomic.Int32
	r.OnStateChange(func(RelayState) { states.Add(1) })

	require.NoError(t, r.Connect(context.Background()))
	assert.Equal(t, RelayConnected, r.State())

	select {
	case ev := <-events:
		assert.Equal(t, "g1", ev.ConversationID)
		assert.Equal(t, "u1", ev.SenderID)
		assert.Equal(t, "bot xo start", ev.Text)
	case <-time.After(3 * time.Second):
		t.Fatal("no inbound event")
	}

	require.NoError(t, NewEgress(ModeRelay, nil, r, nil).SendText(context.Background(), "g1", "hello"))
	select {
	case req := <-sent:
		assert.Equal(t, "g1", req.Recipient.ID)
		assert.Equal(t, "hello", req.Message.Text)
	case <-time.After(3 * time.Second):
		t.Fatal("no outbound frame")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, RelayDisconnected, r.State())
	assert.GreaterOrEqual(t, states.Load(), int32(2))
	assert.True(t, errors.Is(r.Send(context.Background(), "g1", "late"), ErrRelayNotConnected))
}

func TestRelayConnectFailure(t *testing.T) {
	sent := make(chan SendRequest, 1)
	srv := relayServer(t, sent)
	defer srv.Close()

	r := NewRelay(wsURL(srv), 0)
	require.Error(t, r.Connect(context.Background()))
	assert.Equal(t, RelayFailed, r.State())
	require.NoError(t, r.Close(context.Background()))
}
