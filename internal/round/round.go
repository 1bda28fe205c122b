// Package round defines the state-machine framework the protocol
// rounds are written against. A session advances by verifying and
// storing the messages of the current round, then finalizing into the
// next one.
package round

import (
	"errors"

	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Number is the index of a round, starting at 1.
type Number uint16

var (
	// ErrInvalidContent is returned when a message body has the wrong
	// type for the round.
	ErrInvalidContent = errors.New("round: message content has wrong type")
	// ErrNilFields is returned when a message body has missing fields.
	ErrNilFields = errors.New("round: message contains nil fields")
	// ErrDuplicate is returned when a second message from the same
	// sender arrives in one round.
	ErrDuplicate = errors.New("round: duplicate message from sender")
)

// Round is implemented by every state of the protocol machine.
type Round interface {
	// VerifyMessage checks a message before it is stored. Failure
	// attributes misbehaviour to the sender.
	VerifyMessage(msg Message) error
	// StoreMessage saves the relevant parts of a verified message.
	StoreMessage(msg Message) error
	// Finalize sends this round's outgoing messages to out and
	// returns the next round. It is called once all expected messages
	// are stored.
	Finalize(out chan<- *Message) (Session, error)
	// MessageContent returns a prototype of the round's P2P body, or
	// nil if the round expects none.
	MessageContent() Content
	// Number returns this round's index.
	Number() Number
}

// BroadcastRound is implemented by rounds that also expect a broadcast
// message.
type BroadcastRound interface {
	Round
	// StoreBroadcastMessage saves a broadcast body.
	StoreBroadcastMessage(msg Message) error
	// BroadcastContent returns a prototype of the broadcast body.
	BroadcastContent() BroadcastContent
}

// Session is a Round plus the session information shared by all rounds.
type Session interface {
	Round
	Group() curve.Curve
	Hash() *hash.Hash
	HashForID(party.ID) *hash.Hash
	ProtocolID() string
	SSID() []byte
	SelfID() party.ID
	PartyIDs() party.IDSlice
	OtherPartyIDs() party.IDSlice
	Threshold() int
	N() int
	FinalRoundNumber() Number
}
