package sigserv

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/internal/bus"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	"github.com/ruocuoguo23/wallet-mpc/pkg/protocol"
)

// roomTransport adapts a bus room to the driver's Transport. The
// coordinator owns it and drops both ends atomically at session end.
type roomTransport struct {
	handle bus.RoomHandle
	self   party.ID
	out    chan *protocol.Message
	stop   func()
}

// newRoomTransport subscribes to the room and starts decoding inbound
// events addressed to self.
func newRoomTransport(ctx context.Context, dialer bus.Dialer, roomID string, self party.ID) (*roomTransport, error) {
	handle := dialer.Room(roomID)
	events, stop, err := handle.Subscribe(ctx, -1)
	if err != nil {
		return nil, err
	}
	t := &roomTransport{
		handle: handle,
		self:   self,
		out:    make(chan *protocol.Message, bus.DefaultSubscriberBuffer),
		stop:   stop,
	}
	go t.pump(ctx, events)
	return t, nil
}

func (t *roomTransport) pump(ctx context.Context, events <-chan bus.Event) {
	defer close(t.out)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			// our own broadcasts come back from the room; drop them
			// along with messages addressed to the peer
			if !ev.Msg.IsFor(t.self) {
				continue
			}
			msg := &protocol.Message{}
			if err := msg.UnmarshalBinary(ev.Msg.Body); err != nil {
				log.WithError(err).Debug("dropped undecodable room message")
				continue
			}
			select {
			case t.out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Send implements protocol.Transport. Every message goes through the
// room's broadcast entry point; P2P routing is carried in the Msg
// header.
func (t *roomTransport) Send(ctx context.Context, msg *protocol.Message) error {
	body, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = t.handle.Broadcast(ctx, bus.Msg{
		Sender:   t.self,
		Receiver: msg.To,
		Body:     body,
	})
	return err
}

// Receive implements protocol.Transport.
func (t *roomTransport) Receive() <-chan *protocol.Message {
	return t.out
}

// Stop detaches from the room without closing it.
func (t *roomTransport) Stop() {
	t.stop()
}

// CloseRoom tears the room down for everyone.
func (t *roomTransport) CloseRoom(ctx context.Context) error {
	return t.handle.Close(ctx)
}
