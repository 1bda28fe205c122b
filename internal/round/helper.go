package round

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Info is the static description of a protocol execution.
type Info struct {
	// ProtocolID identifies the protocol and its version.
	ProtocolID string
	// FinalRoundNumber is the number of rounds before the output.
	FinalRoundNumber Number
	// SelfID is this party's session index.
	SelfID party.ID
	// PartyIDs is the sorted set of session indices of all parties.
	PartyIDs []party.ID
	// Threshold is the maximum number of corrupted parties tolerated.
	Threshold int
	// Group is the curve the protocol runs over.
	Group curve.Curve
	// RoomID salts the transcript, binding the session to its room.
	RoomID string
}

// Helper carries the session information shared by all rounds of one
// execution.
type Helper struct {
	info    Info
	ssid    []byte
	partyIDs party.IDSlice
	otherIDs party.IDSlice
	baseHash *hash.Hash
}

// NewSession validates the session parameters and derives the
// session-unique transcript salt from (room id, protocol id).
func NewSession(info Info, extra ...[]byte) (*Helper, error) {
	partyIDs := party.NewIDSlice(info.PartyIDs)
	if !partyIDs.Valid() {
		return nil, errors.New("round: session: duplicate party IDs")
	}
	if !partyIDs.Contains(info.SelfID) {
		return nil, errors.New("round: session: selfID not included in partyIDs")
	}
	if info.Threshold < 0 || info.Threshold > len(partyIDs)-1 {
		return nil, fmt.Errorf("round: session: threshold %d out of range", info.Threshold)
	}
	if info.Group == nil {
		return nil, errors.New("round: session: group is nil")
	}

	h := hash.New()
	_ = h.WriteAny(&hash.BytesWithDomain{TheDomain: "Protocol ID", Bytes: []byte(info.ProtocolID)})
	_ = h.WriteAny(&hash.BytesWithDomain{TheDomain: "Room ID", Bytes: []byte(info.RoomID)})
	_ = h.WriteAny(&hash.BytesWithDomain{TheDomain: "Group Name", Bytes: []byte(info.Group.Name())})
	threshold := make([]byte, 4)
	binary.BigEndian.PutUint32(threshold, uint32(info.Threshold))
	_ = h.WriteAny(&hash.BytesWithDomain{TheDomain: "Threshold", Bytes: threshold})
	for _, id := range partyIDs {
		_ = h.WriteAny(id)
	}
	for _, e := range extra {
		if len(e) != 0 {
			_ = h.WriteAny(&hash.BytesWithDomain{TheDomain: "Auxiliary Data", Bytes: e})
		}
	}

	ssid := h.Clone().Sum()

	return &Helper{
		info:     info,
		ssid:     ssid,
		partyIDs: partyIDs,
		otherIDs: partyIDs.Remove(info.SelfID),
		baseHash: h,
	}, nil
}

// Group returns the session curve.
func (h *Helper) Group() curve.Curve { return h.info.Group }

// Hash returns a clone of the session transcript hash.
func (h *Helper) Hash() *hash.Hash { return h.baseHash.Clone() }

// HashForID returns the transcript hash forked with the given party id.
func (h *Helper) HashForID(id party.ID) *hash.Hash {
	return h.baseHash.Fork(id)
}

// ProtocolID identifies the protocol.
func (h *Helper) ProtocolID() string { return h.info.ProtocolID }

// SSID is the session-unique identifier bound into every message.
func (h *Helper) SSID() []byte { return h.ssid }

// SelfID is this party's session index.
func (h *Helper) SelfID() party.ID { return h.info.SelfID }

// PartyIDs is the sorted set of all session indices.
func (h *Helper) PartyIDs() party.IDSlice { return h.partyIDs }

// OtherPartyIDs is PartyIDs without SelfID.
func (h *Helper) OtherPartyIDs() party.IDSlice { return h.otherIDs }

// Threshold is the corruption threshold.
func (h *Helper) Threshold() int { return h.info.Threshold }

// N is the number of parties in the session.
func (h *Helper) N() int { return len(h.partyIDs) }

// FinalRoundNumber is the last protocol round before the output.
func (h *Helper) FinalRoundNumber() Number { return h.info.FinalRoundNumber }

// RoomID returns the room this session is bound to.
func (h *Helper) RoomID() string { return h.info.RoomID }

// BroadcastMessage queues a broadcast body for all other parties.
func (h *Helper) BroadcastMessage(out chan<- *Message, broadcastContent BroadcastContent) error {
	select {
	case out <- &Message{From: h.info.SelfID, To: party.None, Broadcast: true, Content: broadcastContent}:
		return nil
	default:
		return errors.New("round: out channel is full")
	}
}

// SendMessage queues a P2P body for the given party.
func (h *Helper) SendMessage(out chan<- *Message, content Content, to party.ID) error {
	select {
	case out <- &Message{From: h.info.SelfID, To: to, Content: content}:
		return nil
	default:
		return errors.New("round: out channel is full")
	}
}

// AbortRound wraps an error and the culprits into a terminal session.
func (h *Helper) AbortRound(err error, culprits ...party.ID) Session {
	sort.Slice(culprits, func(i, j int) bool { return culprits[i] < culprits[j] })
	return &Abort{Helper: h, Culprits: culprits, Err: err}
}

// ResultRound wraps a protocol result into a terminal session.
func (h *Helper) ResultRound(result interface{}) Session {
	return &Output{Helper: h, Result: result}
}
