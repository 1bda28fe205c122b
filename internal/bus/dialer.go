package bus

import (
	"context"
)

// Dialer opens handles onto rooms, hiding whether the registry is in
// this process or behind the gateway's HTTP surface.
type Dialer interface {
	Room(roomID string) RoomHandle
}

// RoomHandle is one caller's view of a room.
type RoomHandle interface {
	// Subscribe starts delivering events after lastEventID; pass -1
	// for the full stream. The stream ends when ctx is done, the room
	// closes, or the subscription errors; stop() releases it early.
	Subscribe(ctx context.Context, lastEventID int64) (events <-chan Event, stop func(), err error)
	// Broadcast publishes the message and returns its event id.
	Broadcast(ctx context.Context, msg Msg) (uint64, error)
	// IssueUniqueIndex allocates the next per-room index. Off the
	// signing critical path; kept for deployments that assign party
	// indices dynamically.
	IssueUniqueIndex(ctx context.Context) (uint16, error)
	// Close tears the room down.
	Close(ctx context.Context) error
}

// LocalDialer serves rooms from an in-process registry.
type LocalDialer struct {
	Registry *Registry
}

// Room implements Dialer.
func (d *LocalDialer) Room(roomID string) RoomHandle {
	return &localRoom{registry: d.Registry, roomID: roomID}
}

type localRoom struct {
	registry *Registry
	roomID   string
}

func (r *localRoom) Subscribe(ctx context.Context, lastEventID int64) (<-chan Event, func(), error) {
	sub, err := r.registry.Subscribe(r.roomID, lastEventID)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Event, cap(sub.Events()))
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					sub.Close()
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}

func (r *localRoom) Broadcast(ctx context.Context, msg Msg) (uint64, error) {
	return r.registry.Broadcast(r.roomID, msg)
}

func (r *localRoom) IssueUniqueIndex(ctx context.Context) (uint16, error) {
	return r.registry.IssueUniqueIndex(r.roomID)
}

func (r *localRoom) Close(ctx context.Context) error {
	r.registry.Close(r.roomID)
	return nil
}
