package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/common/cnst"
	"github.com/ysv/peatio-core/internal/common/config"
)

func newTestRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	b, err := NewRedisBus(zap.NewNop(), config.BusRedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestNewRedisBus_ConnectionError(t *testing.T) {
	_, err := NewRedisBus(zap.NewNop(), config.BusRedisConfig{Addr: "127.0.0.1:0"})
	assert.Error(t, err)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	b, _ := newTestRedisBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *Event, 10)
	require.NoError(t, b.Subscribe(ctx, cnst.EventsPattern, func(e *Event) {
		received <- e
	}))

	events := []*Event{
		{Scope: ScopePublic, Target: "btcusd", Stream: "order", Payload: json.RawMessage(`{"data":"order_1"}`)},
		{Scope: ScopePrivate, Target: "IDE8E2280FD1", Stream: "stream_1", Payload: json.RawMessage(`{"data":"p_1"}`)},
		{Scope: ScopePublic, Target: "ethusd", Stream: "trade", Payload: json.RawMessage(`{"data":"trade_1"}`)},
	}
	for _, e := range events {
		require.NoError(t, b.Publish(ctx, e))
	}

	for _, want := range events {
		select {
		case got := <-received:
			assert.Equal(t, want.Scope, got.Scope)
			assert.Equal(t, want.Target, got.Target)
			assert.Equal(t, want.Stream, got.Stream)
			assert.JSONEq(t, string(want.Payload), string(got.Payload))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestRedisBus_PublishInvalidEvent(t *testing.T) {
	b, _ := newTestRedisBus(t)
	err := b.Publish(context.Background(), &Event{Scope: "nope", Target: "t", Stream: "s"})
	assert.ErrorIs(t, err, cnst.ErrInvalidEvent)
}

func TestRedisBus_IgnoresGarbagePayloads(t *testing.T) {
	b, mr := newTestRedisBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *Event, 2)
	require.NoError(t, b.Subscribe(ctx, cnst.EventsPattern, func(e *Event) {
		received <- e
	}))

	// not JSON: dropped with a diagnostic, must not kill the consume loop
	mr.Publish(cnst.EventsChannelPrefix+".public.btcusd.order", "not-json")
	require.NoError(t, b.Publish(ctx, &Event{
		Scope: ScopePublic, Target: "btcusd", Stream: "order", Payload: json.RawMessage(`{"data":"ok"}`),
	}))

	select {
	case got := <-received:
		assert.Equal(t, "order", got.Stream)
		assert.JSONEq(t, `{"data":"ok"}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	assert.Empty(t, received)
}
