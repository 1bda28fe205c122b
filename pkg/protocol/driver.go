package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// StartFunc creates the first round of a protocol execution.
type StartFunc func() (round.Session, error)

// Transport is the bidirectional message channel a driver runs over.
// The coordinator owns both ends and tears them down at session end.
type Transport interface {
	// Send delivers an outgoing message. Broadcast when msg.To is
	// party.None.
	Send(ctx context.Context, msg *Message) error
	// Receive yields inbound messages in the order the room
	// serialized them. The channel is closed when the transport ends.
	Receive() <-chan *Message
}

// Scrubber is implemented by rounds holding ephemeral secrets.
type Scrubber interface {
	Scrub()
}

// ErrProtocolViolation is returned after repeated malformed deliveries
// from one sender.
type ErrProtocolViolation struct {
	Culprit party.ID
}

func (e ErrProtocolViolation) Error() string {
	return fmt.Sprintf("protocol: structural violation by party %d", e.Culprit)
}

// violationLimit is the number of tolerated bogus deliveries per
// sender before the session is aborted.
const violationLimit = 8

// Driver executes one session against a transport. It is not reusable.
type Driver struct {
	currentRound    round.Session
	rounds          map[round.Number]round.Session
	messages        map[round.Number]map[party.ID]*Message
	broadcast       map[round.Number]map[party.ID]*Message
	broadcastHashes map[round.Number][]byte
	violations      map[party.ID]int
	transport       Transport
	logger          *log.Entry
}

// NewDriver creates the first round and the queues for the rest.
func NewDriver(create StartFunc, transport Transport) (*Driver, error) {
	r, err := create()
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	d := &Driver{
		currentRound:    r,
		rounds:          map[round.Number]round.Session{r.Number(): r},
		messages:        newQueue(r.OtherPartyIDs(), r.FinalRoundNumber()),
		broadcast:       newQueue(r.OtherPartyIDs(), r.FinalRoundNumber()),
		broadcastHashes: map[round.Number][]byte{},
		violations:      map[party.ID]int{},
		transport:       transport,
		logger: log.WithFields(log.Fields{
			"protocol": r.ProtocolID(),
			"self":     r.SelfID(),
		}),
	}
	return d, nil
}

// Run drives the session to completion. The context deadline bounds the
// whole execution; on expiry the session unwinds and ephemeral secrets
// are scrubbed before returning.
func (d *Driver) Run(ctx context.Context) (result interface{}, err error) {
	defer d.scrub()

	// the first round has no inbound dependencies
	if err := d.finalize(ctx); err != nil {
		return nil, err
	}

	for {
		if out, done := d.checkTerminal(); done {
			return out.result, out.err
		}
		if d.receivedAll() {
			if !d.checkBroadcastHash() {
				return nil, &Error{Err: errors.New("broadcast verification failed")}
			}
			if err := d.finalize(ctx); err != nil {
				return nil, err
			}
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Warn("session deadline elapsed")
			return nil, ctx.Err()
		case msg, ok := <-d.transport.Receive():
			if !ok {
				return nil, &Error{Err: errors.New("transport closed before completion")}
			}
			if err := d.accept(msg); err != nil {
				return nil, err
			}
		}
	}
}

type terminal struct {
	result interface{}
	err    error
}

func (d *Driver) checkTerminal() (terminal, bool) {
	switch r := d.currentRound.(type) {
	case *round.Abort:
		return terminal{err: &Error{Culprits: r.Culprits, Err: r.Err}}, true
	case *round.Output:
		return terminal{result: r.Result}, true
	}
	return terminal{}, false
}

// canAccept performs the structural checks on an inbound message: it
// must target us, carry our protocol and session id, come from a known
// peer, and belong to a pending round.
func (d *Driver) canAccept(msg *Message) bool {
	r := d.currentRound
	if msg == nil || msg.Data == nil {
		return false
	}
	if !msg.IsFor(r.SelfID()) {
		return false
	}
	if msg.Protocol != r.ProtocolID() {
		return false
	}
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return false
	}
	if !r.PartyIDs().Contains(msg.From) {
		return false
	}
	if msg.RoundNumber > r.FinalRoundNumber() {
		return false
	}
	// messages for rounds already past are dropped silently
	if msg.RoundNumber < r.Number() && msg.RoundNumber > 0 {
		return false
	}
	return true
}

func (d *Driver) accept(msg *Message) error {
	if !d.canAccept(msg) || d.duplicate(msg) {
		return d.noteViolation(msg)
	}
	// round number 0 signals an abort by the peer
	if msg.RoundNumber == 0 {
		return &Error{Culprits: []party.ID{msg.From}, Err: fmt.Errorf("aborted by peer: %q", msg.Data)}
	}
	d.store(msg)

	if msg.Broadcast {
		if err := d.verifyBroadcastMessage(msg); err != nil {
			return &Error{Culprits: []party.ID{msg.From}, Err: err}
		}
		return nil
	}
	if err := d.verifyMessage(msg); err != nil {
		return &Error{Culprits: []party.ID{msg.From}, Err: err}
	}
	return nil
}

func (d *Driver) noteViolation(msg *Message) error {
	if msg == nil {
		return nil
	}
	from := msg.From
	d.violations[from]++
	if d.violations[from] > violationLimit {
		return ErrProtocolViolation{Culprit: from}
	}
	d.logger.WithField("from", from).Debug("discarded message")
	return nil
}

func (d *Driver) verifyBroadcastMessage(msg *Message) error {
	r, ok := d.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}
	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}
	if err = r.(round.BroadcastRound).StoreBroadcastMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if !expectsNormalMessage(r) {
		return nil
	}
	// process the P2P message that may have been waiting on this
	// broadcast
	if queued := d.messages[msg.RoundNumber][msg.From]; queued != nil {
		return d.verifyMessage(queued)
	}
	return nil
}

func (d *Driver) verifyMessage(msg *Message) error {
	r, ok := d.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}
	// broadcast-first rounds hold P2P bodies until the broadcast is in
	if _, ok = r.(round.BroadcastRound); ok {
		q := d.broadcast[msg.RoundNumber]
		if q == nil || q[msg.From] == nil {
			return nil
		}
	}
	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}
	if err = r.VerifyMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if err = r.StoreMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	return nil
}

func (d *Driver) finalize(ctx context.Context) error {
	out := make(chan *round.Message, d.currentRound.N()+1)
	r, err := d.currentRound.Finalize(out)
	close(out)
	if err != nil || r == nil {
		return &Error{Culprits: []party.ID{d.currentRound.SelfID()}, Err: err}
	}

	for roundMsg := range out {
		data, err := cbor.Marshal(roundMsg.Content)
		if err != nil {
			return fmt.Errorf("protocol: failed to marshal round message: %w", err)
		}
		msg := &Message{
			SSID:                  r.SSID(),
			From:                  r.SelfID(),
			To:                    roundMsg.To,
			Protocol:              r.ProtocolID(),
			RoundNumber:           roundMsg.Content.RoundNumber(),
			Data:                  data,
			Broadcast:             roundMsg.Broadcast,
			BroadcastVerification: d.broadcastHashes[r.Number()-1],
		}
		if err := d.transport.Send(ctx, msg); err != nil {
			return &Error{Err: fmt.Errorf("send failed: %w", err)}
		}
		if msg.Broadcast {
			d.store(msg)
		}
	}

	number := r.Number()
	if _, ok := d.rounds[number]; !ok {
		d.rounds[number] = r
	}
	d.currentRound = r
	d.logger.WithField("round", number).Debug("advanced to round")

	// messages that arrived ahead of this round were only buffered;
	// verify and store them now that the round exists
	for from, msg := range d.broadcast[number] {
		if msg == nil || from == r.SelfID() {
			continue
		}
		if err := d.verifyBroadcastMessage(msg); err != nil {
			return &Error{Culprits: []party.ID{from}, Err: err}
		}
	}
	for from, msg := range d.messages[number] {
		if msg == nil {
			continue
		}
		if err := d.verifyMessage(msg); err != nil {
			return &Error{Culprits: []party.ID{from}, Err: err}
		}
	}
	return nil
}

// receivedAll reports whether the current round has all expected
// messages, computing the broadcast transcript hash along the way.
func (d *Driver) receivedAll() bool {
	r := d.currentRound
	number := r.Number()
	if _, ok := r.(round.BroadcastRound); ok {
		if d.broadcast[number] == nil {
			return false
		}
		for _, id := range r.PartyIDs() {
			if d.broadcast[number][id] == nil {
				return false
			}
		}
		if d.broadcastHashes[number] == nil {
			hashState := r.Hash()
			for _, id := range r.PartyIDs() {
				msg := d.broadcast[number][id]
				_ = hashState.WriteAny(&hash.BytesWithDomain{
					TheDomain: "Message",
					Bytes:     msg.Hash(),
				})
			}
			d.broadcastHashes[number] = hashState.Sum()
		}
	}
	if expectsNormalMessage(r) {
		if d.messages[number] == nil {
			return false
		}
		for _, id := range r.OtherPartyIDs() {
			if d.messages[number][id] == nil {
				return false
			}
		}
	}
	return true
}

// checkBroadcastHash verifies that every peer echoed the same broadcast
// transcript for the previous round.
func (d *Driver) checkBroadcastHash() bool {
	number := d.currentRound.Number()
	previous := d.broadcastHashes[number-1]
	if previous == nil {
		return true
	}
	for _, msg := range d.messages[number] {
		if msg != nil && !bytes.Equal(previous, msg.BroadcastVerification) {
			return false
		}
	}
	for _, msg := range d.broadcast[number] {
		if msg != nil && msg.From != d.currentRound.SelfID() && !bytes.Equal(previous, msg.BroadcastVerification) {
			return false
		}
	}
	return true
}

func (d *Driver) duplicate(msg *Message) bool {
	if msg.RoundNumber == 0 {
		return false
	}
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = d.broadcast[msg.RoundNumber]
	} else {
		q = d.messages[msg.RoundNumber]
	}
	if q == nil {
		return false
	}
	return q[msg.From] != nil
}

func (d *Driver) store(msg *Message) {
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = d.broadcast[msg.RoundNumber]
	} else {
		q = d.messages[msg.RoundNumber]
	}
	if q == nil || q[msg.From] != nil {
		return
	}
	q[msg.From] = msg
}

// scrub erases ephemeral secrets from every round the session touched.
func (d *Driver) scrub() {
	for _, r := range d.rounds {
		if s, ok := r.(Scrubber); ok {
			s.Scrub()
		}
	}
	if s, ok := d.currentRound.(Scrubber); ok {
		s.Scrub()
	}
}

func expectsNormalMessage(r round.Session) bool {
	return r.MessageContent() != nil
}

// getRoundMessage decodes a wire body into the round's content type.
func getRoundMessage(msg *Message, r round.Session) (round.Message, error) {
	var content round.Content
	if msg.Broadcast {
		b, ok := r.(round.BroadcastRound)
		if !ok {
			return round.Message{}, errors.New("got broadcast message when none was expected")
		}
		content = b.BroadcastContent()
	} else {
		content = r.MessageContent()
	}
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return round.Message{}, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return round.Message{
		From:      msg.From,
		To:        msg.To,
		Content:   content,
		Broadcast: msg.Broadcast,
	}, nil
}

// newQueue allocates the per-round per-sender message slots. Broadcast
// queues include the self entry, filled at send time.
func newQueue(senders party.IDSlice, rounds round.Number) map[round.Number]map[party.ID]*Message {
	n := len(senders)
	q := make(map[round.Number]map[party.ID]*Message, rounds)
	for i := round.Number(1); i <= rounds; i++ {
		q[i] = make(map[party.ID]*Message, n+1)
	}
	return q
}
