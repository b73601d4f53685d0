package messenger

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events  chan Event
	release chan struct{}
}

func newRecorder() *recorder {
	return &recorder{events: make(chan Event, 16), release: make(chan struct{})}
}

func (r *recorder) HandleEvent(_ context.Context, ev Event) {
	<-r.release
	r.events <- ev
}

func newTestApp(t *testing.T) (*recorder, *Dispatcher, func(*http.Request) *http.Response) {
	t.Helper()
	rec := newRecorder()
	d := NewDispatcher(nil)
	app := NewApp(NewWebhook(context.Background(), "s3cret", rec, d, nil))
	do := func(req *http.Request) *http.Response {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}
	return rec, d, do
}

func TestWebhookVerify(t *testing.T) {
	_, _, do := newTestApp(t)

	resp := do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "12345", string(body))

	resp = do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=s3cret&hub.challenge=1", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhookRejectsNonPageObjects(t *testing.T) {
	_, _, do := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"instagram","entry":[]}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, do(req).StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{not json`))
	assert.Equal(t, http.StatusBadRequest, do(req).StatusCode)
}

const pagePayload = `{
  "object": "page",
  "entry": [{
    "id": "page-1",
    "time": 1700000000,
    "messaging": [
      {"sender": {"id": "u1"}, "recipient": {"id": "page-1"}, "timestamp": 1, "message": {"mid": "m1", "text": "xo start"}},
      {"sender": {"id": "u2"}, "recipient": {"id": "page-1"}, "timestamp": 2, "thread_key": "group-9", "message": {"mid": "m2", "text": "bot xo 5"}},
      {"sender": {"id": "u3"}, "recipient": {"id": "page-1"}, "timestamp": 3, "delivery": {"mids": ["m1"]}},
      {"sender": {"id": "page-1"}, "recipient": {"id": "u1"}, "timestamp": 4, "message": {"mid": "m3", "text": "echo", "is_echo": true}}
    ]
  }]
}`

func TestWebhookAcksBeforeHandling(t *testing.T) {
	rec, d, do := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(pagePayload))
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp := do(req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, rec.events, "handlers are still blocked when the ack is sent")

	close(rec.release)
	require.NoError(t, d.Drain(context.Background()))
	close(rec.events)

	got := map[string]Event{}
	for ev := range rec.events {
		got[ev.MID] = ev
	}
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got["m1"].ConversationID)
	assert.Equal(t, "group-9", got["m2"].ConversationID)
	assert.Equal(t, "u2", got["m2"].SenderID)
	assert.Equal(t, "bot xo 5", got["m2"].Text)
}

func TestHealthRoute(t *testing.T) {
	_, _, do := newTestApp(t)
	resp := do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
