// Package bus implements the per-session message broker: rooms with
// ordered, replayable event streams, an in-process registry, the HTTP
// server exposing it, and a client for remote registries.
package bus

import (
	"encoding/binary"
	"errors"

	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Msg is the routed payload exchanged through a room. Receiver is
// party.None for broadcast. The bus treats Body as opaque; it never
// sees keys, digests or secrets in the clear.
type Msg struct {
	Sender   party.ID
	Receiver party.ID
	Body     []byte
}

// IsBroadcast reports whether the message targets all other members.
func (m *Msg) IsBroadcast() bool { return m.Receiver == party.None }

// IsFor reports whether id should receive this message.
func (m *Msg) IsFor(id party.ID) bool {
	if m.Sender == id {
		return false
	}
	return m.IsBroadcast() || m.Receiver == id
}

// MarshalBinary encodes the canonical wire form: sender u16 big-endian,
// receiver u16 big-endian with 0xFFFF for broadcast, then the body.
func (m *Msg) MarshalBinary() ([]byte, error) {
	out := make([]byte, 4+len(m.Body))
	binary.BigEndian.PutUint16(out[0:2], uint16(m.Sender))
	binary.BigEndian.PutUint16(out[2:4], uint16(m.Receiver))
	copy(out[4:], m.Body)
	return out, nil
}

// UnmarshalBinary decodes the canonical wire form.
func (m *Msg) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return errors.New("bus: message shorter than header")
	}
	m.Sender = party.ID(binary.BigEndian.Uint16(data[0:2]))
	m.Receiver = party.ID(binary.BigEndian.Uint16(data[2:4]))
	m.Body = append([]byte(nil), data[4:]...)
	return nil
}

// Event is a message with its room-local sequence number.
type Event struct {
	ID  uint64
	Msg Msg
}
