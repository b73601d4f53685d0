package messenger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDryRunEgress(t *testing.T) {
	e := NewEgress(ModeDryRun, nil, nil, nil)
	assert.NoError(t, e.SendText(context.Background(), "42", "hi"))
}

func TestRelayEgressWithoutConnection(t *testing.T) {
	e := NewEgress(ModeRelay, nil, NewRelay("ws://127.0.0.1:1", 0), nil)
	assert.True(t, errors.Is(e.SendText(context.Background(), "42", "hi"), ErrRelayNotConnected))

	assert.Error(t, NewEgress(ModeRelay, nil, nil, nil).SendText(context.Background(), "42", "hi"))
	assert.Error(t, NewEgress(ModeGraph, nil, nil, nil).SendText(context.Background(), "42", "hi"))
}

func TestAutoEgressFallsBackToGraph(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"recipient_id":"42","message_id":"m"}`))
	}))
	defer srv.Close()

	e := NewEgress(ModeAuto, NewClient(srv.URL, "tok"), NewRelay("ws://127.0.0.1:1", 0), nil)
	require.NoError(t, e.SendText(context.Background(), "42", "hi"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcherDrain(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDispatcher(nil)
	var ran atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 5; i++ {
		require.True(t, d.Go("task", func() {
			<-release
			ran.Add(1)
		}))
	}
	require.True(t, d.Go("panics", func() { panic("boom") }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Drain(ctx), context.Canceled)
	assert.False(t, d.Go("late", func() {}))

	close(release)
	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}
