package bus

import (
	"errors"
	"regexp"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrRoomClosed is returned for operations on a closed room.
	ErrRoomClosed = errors.New("bus: room is closed")
	// ErrHistoryGap is returned when a resume point has been trimmed
	// out of the retained window. The subscriber must restart from 0.
	ErrHistoryGap = errors.New("bus: requested event is beyond the retained history")
	// ErrInvalidRoomID rejects ids outside [A-Za-z0-9_-].
	ErrInvalidRoomID = errors.New("bus: invalid room id")
	// ErrSlowSubscriber is reported on a subscription dropped for not
	// keeping up.
	ErrSlowSubscriber = errors.New("bus: subscriber buffer overflow")
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	// DefaultHistoryLimit bounds the per-room replay window.
	DefaultHistoryLimit = 1024
	// DefaultSubscriberBuffer is the per-subscription channel depth. A
	// slow subscriber is dropped rather than blocking the room.
	DefaultSubscriberBuffer = 256
	// DefaultIdleWindow is how long an untouched room survives.
	DefaultIdleWindow = 10 * time.Minute
)

// Options tune a Registry.
type Options struct {
	HistoryLimit     int
	SubscriberBuffer int
	IdleWindow       time.Duration
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if o.IdleWindow <= 0 {
		o.IdleWindow = DefaultIdleWindow
	}
	return o
}

// Registry owns all rooms. Cross-room operations are fully parallel;
// each room serializes its own state behind its own lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	opts  Options
	done  chan struct{}
	once  sync.Once
}

// NewRegistry creates an empty registry and starts the idle reaper.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		rooms: make(map[string]*room),
		opts:  opts.withDefaults(),
		done:  make(chan struct{}),
	}
	go r.reapLoop()
	return r
}

// Shutdown stops the reaper and closes every room.
func (r *Registry) Shutdown() {
	r.once.Do(func() { close(r.done) })
	r.mu.Lock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Close(id)
	}
}

func (r *Registry) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

func (r *Registry) reap() {
	cutoff := time.Now().Add(-r.opts.IdleWindow)
	r.mu.Lock()
	var stale []*room
	for id, rm := range r.rooms {
		rm.mu.Lock()
		idle := rm.lastActive.Before(cutoff) && len(rm.subscribers) == 0
		rm.mu.Unlock()
		if idle {
			stale = append(stale, rm)
			delete(r.rooms, id)
		}
	}
	r.mu.Unlock()
	for _, rm := range stale {
		rm.close()
		log.WithField("room", rm.id).Debug("reaped idle room")
	}
}

// getOrCreate returns the room, creating it lazily.
func (r *Registry) getOrCreate(roomID string) (*room, error) {
	if !roomIDPattern.MatchString(roomID) {
		return nil, ErrInvalidRoomID
	}
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return rm, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[roomID]; ok {
		return rm, nil
	}
	rm = newRoom(roomID, r.opts)
	r.rooms[roomID] = rm
	log.WithField("room", roomID).Debug("created room")
	return rm, nil
}

// Subscribe attaches a new subscription to the room, replaying history
// after lastEventID first. lastEventID < 0 subscribes from the start.
func (r *Registry) Subscribe(roomID string, lastEventID int64) (*Subscription, error) {
	rm, err := r.getOrCreate(roomID)
	if err != nil {
		return nil, err
	}
	return rm.subscribe(lastEventID)
}

// Broadcast appends the message to the room history and fans it out.
// The assigned event id is returned.
func (r *Registry) Broadcast(roomID string, msg Msg) (uint64, error) {
	rm, err := r.getOrCreate(roomID)
	if err != nil {
		return 0, err
	}
	return rm.publish(msg)
}

// IssueUniqueIndex hands out the next contiguous index for the room.
func (r *Registry) IssueUniqueIndex(roomID string) (uint16, error) {
	rm, err := r.getOrCreate(roomID)
	if err != nil {
		return 0, err
	}
	return rm.issueIndex(), nil
}

// Close terminates all subscriptions and discards the room's history.
func (r *Registry) Close(roomID string) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
	if ok {
		rm.close()
		log.WithField("room", roomID).Debug("closed room")
	}
}

// Rooms reports the number of live rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// room owns one session's stream. All state is behind its own lock so
// a slow room never blocks the others.
type room struct {
	id   string
	opts Options

	mu          sync.Mutex
	closed      bool
	history     []Event
	firstID     uint64
	nextID      uint64
	nextIndex   uint16
	subscribers map[*Subscription]struct{}
	lastActive  time.Time
}

func newRoom(id string, opts Options) *room {
	return &room{
		id:          id,
		opts:        opts,
		subscribers: make(map[*Subscription]struct{}),
		lastActive:  time.Now(),
	}
}

// Subscription is one attached consumer. Events are delivered in room
// order on a buffered channel; if the buffer overflows the
// subscription alone is dropped with ErrSlowSubscriber.
type Subscription struct {
	room *room
	ch   chan Event

	mu     sync.Mutex
	err    error
	closed bool
}

// Events yields replayed history first, then live messages, in order
// and without duplicates. The channel closes when the subscription or
// its room ends.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Err reports why the subscription ended, nil for a clean close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close detaches the subscription from the room.
func (s *Subscription) Close() {
	s.room.unsubscribe(s, nil)
}

func (s *Subscription) terminate(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}

func (rm *room) subscribe(lastEventID int64) (*Subscription, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return nil, ErrRoomClosed
	}
	from := uint64(0)
	if lastEventID >= 0 {
		from = uint64(lastEventID) + 1
	}
	if from < rm.firstID {
		return nil, ErrHistoryGap
	}
	if from > rm.nextID {
		from = rm.nextID
	}

	// replayed events are preallocated into the buffer so a fresh
	// subscription can never start out slow
	var pending []Event
	if from < rm.nextID {
		pending = rm.history[len(rm.history)-int(rm.nextID-from):]
	}
	sub := &Subscription{
		room: rm,
		ch:   make(chan Event, rm.opts.SubscriberBuffer+len(pending)),
	}
	for _, ev := range pending {
		sub.ch <- ev
	}
	rm.subscribers[sub] = struct{}{}
	rm.lastActive = time.Now()
	return sub, nil
}

func (rm *room) unsubscribe(sub *Subscription, err error) {
	rm.mu.Lock()
	_, ok := rm.subscribers[sub]
	if ok {
		delete(rm.subscribers, sub)
	}
	rm.mu.Unlock()
	if ok {
		sub.terminate(err)
	}
}

func (rm *room) publish(msg Msg) (uint64, error) {
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return 0, ErrRoomClosed
	}
	id := rm.nextID
	rm.nextID++
	rm.history = append(rm.history, Event{ID: id, Msg: msg})
	if len(rm.history) > rm.opts.HistoryLimit {
		trim := len(rm.history) - rm.opts.HistoryLimit
		rm.history = rm.history[trim:]
		rm.firstID += uint64(trim)
	}
	rm.lastActive = time.Now()

	var slow []*Subscription
	for sub := range rm.subscribers {
		select {
		case sub.ch <- Event{ID: id, Msg: msg}:
		default:
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		delete(rm.subscribers, sub)
	}
	rm.mu.Unlock()

	for _, sub := range slow {
		sub.terminate(ErrSlowSubscriber)
		log.WithField("room", rm.id).Warn("dropped slow subscriber")
	}
	return id, nil
}

func (rm *room) issueIndex() uint16 {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	idx := rm.nextIndex
	rm.nextIndex++
	rm.lastActive = time.Now()
	return idx
}

func (rm *room) close() {
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return
	}
	rm.closed = true
	subs := make([]*Subscription, 0, len(rm.subscribers))
	for sub := range rm.subscribers {
		subs = append(subs, sub)
	}
	rm.subscribers = make(map[*Subscription]struct{})
	rm.history = nil
	rm.mu.Unlock()
	for _, sub := range subs {
		sub.terminate(nil)
	}
}
