// Package protocol drives a round-based session over an abstract
// transport, hiding queueing, ordering and deadline handling from the
// rounds themselves.
package protocol

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Message is the wire form of a round message.
type Message struct {
	// SSID identifies the session; messages from other sessions are
	// rejected.
	SSID []byte
	// From is the sender's session index.
	From party.ID
	// To is the receiver's session index; party.None for broadcast.
	To party.ID
	// Protocol guards against cross-protocol replays.
	Protocol string
	// RoundNumber tags the body with its round.
	RoundNumber round.Number
	// Data is the cbor-encoded round content.
	Data []byte
	// Broadcast marks reliably-broadcast bodies.
	Broadcast bool
	// BroadcastVerification echoes the hash of the previous round's
	// broadcasts.
	BroadcastVerification []byte
}

// IsFor reports whether id should process this message.
func (m *Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.To == party.None || m.To == id
}

// Hash returns a digest of the message for the echo-broadcast check.
func (m *Message) Hash() []byte {
	h := hash.New(
		&hash.BytesWithDomain{TheDomain: "SSID", Bytes: m.SSID},
		&hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte(m.Protocol)},
	)
	_ = h.WriteAny(uint16(m.From), uint16(m.To), uint16(m.RoundNumber), m.Data)
	return h.Sum()
}

// messageWire has Message's fields but none of its methods, so cbor
// encodes it field by field instead of calling MarshalBinary again.
type messageWire Message

// MarshalBinary encodes the message with cbor.
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*messageWire)(m))
}

// UnmarshalBinary decodes the message with cbor.
func (m *Message) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*messageWire)(m))
}
