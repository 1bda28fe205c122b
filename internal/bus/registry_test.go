package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

func newTestRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	r := NewRegistry(opts)
	t.Cleanup(r.Shutdown)
	return r
}

func msgOf(sender party.ID, body string) Msg {
	return Msg{Sender: sender, Receiver: party.None, Body: []byte(body)}
}

func collect(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "stream ended early: %v", sub.Err())
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestBroadcastOrderingAndReplay(t *testing.T) {
	r := newTestRegistry(t, Options{})

	live, err := r.Subscribe("room-a", -1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		id, err := r.Broadcast("room-a", msgOf(0, string(rune('a'+i))))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id, "event ids are contiguous from 0")
	}

	events := collect(t, live, 5)
	for i, ev := range events {
		assert.Equal(t, uint64(i), ev.ID)
	}

	// resume after event 2 yields 3, 4 with no gaps or duplicates
	resumed, err := r.Subscribe("room-a", 2)
	require.NoError(t, err)
	tail := collect(t, resumed, 2)
	assert.Equal(t, uint64(3), tail[0].ID)
	assert.Equal(t, uint64(4), tail[1].ID)
	resumed.Close()
}

func TestHistoryGap(t *testing.T) {
	r := newTestRegistry(t, Options{HistoryLimit: 4})

	for i := 0; i < 10; i++ {
		_, err := r.Broadcast("room-b", msgOf(0, "x"))
		require.NoError(t, err)
	}
	// events 0..5 have been trimmed; resuming after 1 needs event 2
	_, err := r.Subscribe("room-b", 1)
	assert.ErrorIs(t, err, ErrHistoryGap)

	// the retained window still replays
	sub, err := r.Subscribe("room-b", 6)
	require.NoError(t, err)
	events := collect(t, sub, 3)
	assert.Equal(t, uint64(7), events[0].ID)
}

func TestSlowSubscriberDropped(t *testing.T) {
	r := newTestRegistry(t, Options{SubscriberBuffer: 2, HistoryLimit: 64})

	slow, err := r.Subscribe("room-c", -1)
	require.NoError(t, err)
	healthy, err := r.Subscribe("room-c", -1)
	require.NoError(t, err)

	// the healthy subscriber keeps draining while the slow one never
	// reads; each broadcast waits for the healthy reader so only the
	// slow buffer overflows
	drained := make(chan int, 1)
	acked := make(chan struct{}, 16)
	go func() {
		n := 0
		for range healthy.Events() {
			n++
			acked <- struct{}{}
			if n == 9 {
				break
			}
		}
		drained <- n
	}()

	// overflow the slow subscriber
	for i := 0; i < 8; i++ {
		_, err := r.Broadcast("room-c", msgOf(0, "x"))
		require.NoError(t, err)
		select {
		case <-acked:
		case <-time.After(2 * time.Second):
			t.Fatal("healthy subscriber starved")
		}
	}

	// the slow channel fills, then closes with the overflow error
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Events():
			if !ok {
				assert.ErrorIs(t, slow.Err(), ErrSlowSubscriber)
				goto dropped
			}
		case <-deadline:
			t.Fatal("slow subscriber was not dropped")
		}
	}
dropped:
	// the healthy subscriber and the room keep working
	_, err = r.Broadcast("room-c", msgOf(0, "y"))
	assert.NoError(t, err)
	select {
	case n := <-drained:
		assert.Equal(t, 9, n)
	case <-time.After(2 * time.Second):
		t.Fatal("healthy subscriber starved")
	}
}

func TestCloseRoom(t *testing.T) {
	r := newTestRegistry(t, Options{})
	sub, err := r.Subscribe("room-d", -1)
	require.NoError(t, err)
	_, err = r.Broadcast("room-d", msgOf(0, "x"))
	require.NoError(t, err)

	r.Close("room-d")

	// drain the delivered event, then observe the clean close
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				assert.NoError(t, sub.Err())
				return
			}
		case <-timeout:
			t.Fatal("subscription did not end on close")
		}
	}
}

func TestIssueUniqueIndex(t *testing.T) {
	r := newTestRegistry(t, Options{})
	for want := uint16(0); want < 3; want++ {
		got, err := r.IssueUniqueIndex("room-e")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// indices are per room
	got, err := r.IssueUniqueIndex("room-f")
	require.NoError(t, err)
	assert.Equal(t, uint16(0), got)
}

func TestInvalidRoomID(t *testing.T) {
	r := newTestRegistry(t, Options{})
	_, err := r.Broadcast("bad/room", msgOf(0, "x"))
	assert.ErrorIs(t, err, ErrInvalidRoomID)
	_, err = r.Subscribe("room with spaces", -1)
	assert.ErrorIs(t, err, ErrInvalidRoomID)
}

func TestMsgWireRoundTrip(t *testing.T) {
	original := Msg{Sender: 0, Receiver: 1, Body: []byte{1, 2, 3}}
	buf, err := original.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 1, 2, 3}, buf)

	var out Msg
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.Equal(t, original, out)

	broadcast := Msg{Sender: 1, Receiver: party.None, Body: nil}
	buf, err = broadcast.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0xFF, 0xFF}, buf)

	var out2 Msg
	require.NoError(t, out2.UnmarshalBinary(buf))
	assert.True(t, out2.IsBroadcast())
	assert.True(t, out2.IsFor(0))
	assert.False(t, out2.IsFor(1), "senders do not receive their own messages")
}
