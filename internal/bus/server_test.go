package bus

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// startBusServer serves a registry over HTTP and returns a dialer
// pointed at it.
func startBusServer(t *testing.T) *HTTPDialer {
	t.Helper()
	registry := NewRegistry(Options{})
	t.Cleanup(registry.Shutdown)
	server := httptest.NewServer(NewServer(registry))
	t.Cleanup(server.Close)
	return &HTTPDialer{BaseURL: server.URL, Client: server.Client()}
}

func TestHTTPBroadcastSubscribeRoundTrip(t *testing.T) {
	dialer := startBusServer(t)
	room := dialer.Room("signing_42")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, stop, err := room.Subscribe(ctx, -1)
	require.NoError(t, err)
	defer stop()

	sent := Msg{Sender: 0, Receiver: party.None, Body: []byte("round-1")}
	id, err := room.Broadcast(ctx, sent)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	select {
	case ev := <-events:
		assert.Equal(t, uint64(0), ev.ID)
		assert.Equal(t, sent.Sender, ev.Msg.Sender)
		assert.Equal(t, sent.Receiver, ev.Msg.Receiver)
		assert.Equal(t, sent.Body, ev.Msg.Body)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestHTTPResumeAfterReconnect(t *testing.T) {
	dialer := startBusServer(t)
	room := dialer.Room("signing_43")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := byte(0); i < 4; i++ {
		_, err := room.Broadcast(ctx, Msg{Sender: 0, Receiver: party.None, Body: []byte{i}})
		require.NoError(t, err)
	}

	// first subscriber reads two events, then dies
	events, stop, err := room.Subscribe(ctx, -1)
	require.NoError(t, err)
	var last uint64
	for i := 0; i < 2; i++ {
		ev := <-events
		last = ev.ID
	}
	stop()

	// reconnect with the last seen id: the remaining events arrive in
	// order with no gaps or duplicates
	events2, stop2, err := room.Subscribe(ctx, int64(last))
	require.NoError(t, err)
	defer stop2()
	for want := last + 1; want < 4; want++ {
		select {
		case ev := <-events2:
			assert.Equal(t, want, ev.ID)
			assert.Equal(t, []byte{byte(want)}, ev.Msg.Body)
		case <-ctx.Done():
			t.Fatal("resume did not deliver")
		}
	}
}

func TestHTTPIssueUniqueIdx(t *testing.T) {
	dialer := startBusServer(t)
	room := dialer.Room("signing_44")
	ctx := context.Background()

	first, err := room.IssueUniqueIndex(ctx)
	require.NoError(t, err)
	second, err := room.IssueUniqueIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), first)
	assert.Equal(t, uint16(1), second)
}

func TestHTTPHistoryGap(t *testing.T) {
	registry := NewRegistry(Options{HistoryLimit: 2})
	t.Cleanup(registry.Shutdown)
	server := httptest.NewServer(NewServer(registry))
	t.Cleanup(server.Close)
	dialer := &HTTPDialer{BaseURL: server.URL, Client: server.Client()}

	room := dialer.Room("signing_45")
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, err := room.Broadcast(ctx, Msg{Sender: 0, Receiver: party.None, Body: []byte{byte(i)}})
		require.NoError(t, err)
	}
	_, _, err := room.Subscribe(ctx, 0)
	assert.ErrorIs(t, err, ErrHistoryGap)
}

func TestHTTPClose(t *testing.T) {
	dialer := startBusServer(t)
	room := dialer.Room("signing_46")
	ctx := context.Background()

	_, err := room.Broadcast(ctx, Msg{Sender: 0, Receiver: party.None, Body: []byte("x")})
	require.NoError(t, err)
	require.NoError(t, room.Close(ctx))

	// a closed room is gone; the next broadcast recreates it lazily
	// with fresh ids
	id, err := room.Broadcast(ctx, Msg{Sender: 0, Receiver: party.None, Body: []byte("y")})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}
