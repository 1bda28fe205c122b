// Package sigserv hosts the sign coordinator and the participant RPC
// service around the protocol driver, the share store and the room
// bus.
package sigserv

import (
	"errors"
	"fmt"

	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Kind labels every failure surfaced over the RPC boundary.
type Kind string

const (
	KindUnknownAccount    Kind = "UNKNOWN_ACCOUNT"
	KindRoomExists        Kind = "ROOM_EXISTS"
	KindHistoryGap        Kind = "HISTORY_GAP"
	KindTimeout           Kind = "TIMEOUT"
	KindPeerUnreachable   Kind = "PEER_UNREACHABLE"
	KindDegenerateNonce   Kind = "DEGENERATE_NONCE"
	KindProtocolViolation Kind = "PROTOCOL_VIOLATION"
	KindCulprit           Kind = "CULPRIT"
	KindUnknownCulprit    Kind = "UNKNOWN_CULPRIT"
	KindCorruptShare      Kind = "CORRUPT_SHARE"
	KindInvalidRequest    Kind = "INVALID_REQUEST"
	KindInternal          Kind = "INTERNAL"
)

var (
	// ErrRoomExists rejects a duplicate tx id before a second session
	// can reuse presigning masks.
	ErrRoomExists = errors.New("sigserv: room already exists for tx id")
	// ErrTimeout reports an elapsed session deadline.
	ErrTimeout = errors.New("sigserv: session deadline elapsed")
	// ErrPeerUnreachable reports a peer that did not accept the
	// mirrored sign request.
	ErrPeerUnreachable = errors.New("sigserv: peer participant unreachable")
	// ErrDegenerateNonce is surfaced after the retry cap on R = O.
	ErrDegenerateNonce = errors.New("sigserv: degenerate nonce after retries")
	// ErrUnknownCulprit reports a failed signature whose attribution
	// was inconclusive.
	ErrUnknownCulprit = errors.New("sigserv: signature failed, culprit unknown")
	// ErrInvalidDigest rejects a request before any room is created.
	ErrInvalidDigest = errors.New("sigserv: digest must be exactly 32 bytes")
)

// CulpritError attributes a failed session to a specific party.
type CulpritError struct {
	// Party is the misbehaving session index.
	Party party.ID
	// Err describes the failure.
	Err error
}

func (e *CulpritError) Error() string {
	return fmt.Sprintf("sigserv: culprit party %d: %v", e.Party, e.Err)
}

func (e *CulpritError) Unwrap() error { return e.Err }

func isUnknownAccount(err error) bool {
	return errors.Is(err, keyshare.ErrNotFound)
}

// ViolationError attributes repeated structural misbehaviour.
type ViolationError struct {
	Party party.ID
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("sigserv: protocol violation by party %d", e.Party)
}
