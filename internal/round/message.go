package round

import (
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Content is a round message body. Every body carries its round number
// so stray deliveries can be classified.
type Content interface {
	RoundNumber() Number
}

// BroadcastContent marks a body that is broadcast to all parties.
type BroadcastContent interface {
	Content
	Reliable() bool
}

// These structs are embedded in broadcast bodies to pick the broadcast
// flavour. Reliable broadcast adds an echo of the previous round's
// transcript hash.
type (
	ReliableBroadcastContent struct{}
	NormalBroadcastContent   struct{}
)

func (ReliableBroadcastContent) Reliable() bool { return true }
func (NormalBroadcastContent) Reliable() bool   { return false }

// Message is a routed round body. To == party.None means broadcast.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Content   Content
}
