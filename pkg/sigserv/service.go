package sigserv

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/internal/bus"
	"github.com/ruocuoguo23/wallet-mpc/pkg/ecdsa"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
	"github.com/ruocuoguo23/wallet-mpc/pkg/protocol"
	"github.com/ruocuoguo23/wallet-mpc/protocols/sign"
)

const (
	// DefaultSessionTimeout bounds one signing session end to end.
	DefaultSessionTimeout = 30 * time.Second
	// DefaultNonceRetries caps the signing attempts Sign makes when the
	// nonce is degenerate, the first attempt included.
	DefaultNonceRetries = 3
)

// Config assembles a Service.
type Config struct {
	// Store resolves account ids to key shares. Required.
	Store *keyshare.Store
	// Dialer reaches the room bus. Required.
	Dialer bus.Dialer
	// Peer mirrors sign requests to the remote participant. Nil for a
	// pure responder.
	Peer *PeerClient
	// SessionTimeout defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration
	// NonceRetries defaults to DefaultNonceRetries.
	NonceRetries int
	// Pool bounds proof parallelism.
	Pool *pool.Pool
}

// Service is both sides of the signing pipeline: the synchronous
// coordinator for locally initiated requests and the RPC handler for
// mirrored ones.
type Service struct {
	cfg        Config
	instanceID uint16
	counter    uint32

	mu     sync.Mutex
	active map[uint32]struct{}
}

// NewService validates the config and derives the instance id from the
// clock mixed with randomness, minimizing cross-instance tx id
// collisions.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("sigserv: nil share store")
	}
	if cfg.Dialer == nil {
		return nil, errors.New("sigserv: nil bus dialer")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.NonceRetries <= 0 {
		cfg.NonceRetries = DefaultNonceRetries
	}
	var seed [2]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		return nil, err
	}
	instanceID := uint16(time.Now().UnixNano()) ^ binary.BigEndian.Uint16(seed[:])
	return &Service{
		cfg:        cfg,
		instanceID: instanceID,
		active:     make(map[uint32]struct{}),
	}, nil
}

// NextTxID assembles (instance_id << 16) | counter with a wrapping
// per-instance counter.
func (s *Service) NextTxID() uint32 {
	c := atomic.AddUint32(&s.counter, 1)
	return uint32(s.instanceID)<<16 | (c & 0xFFFF)
}

// RoomID formats the bus room id for a tx id.
func RoomID(txID uint32) string {
	return fmt.Sprintf("signing_%d", txID)
}

// Sign is the synchronous entry point for locally initiated requests.
// It allocates the tx id, mirrors the request to the peer, drives the
// local session and returns the aggregated (r, s, v).
func (s *Service) Sign(ctx context.Context, accountID string, digest []byte) (*SignatureMessage, error) {
	if len(digest) != 32 {
		return nil, ErrInvalidDigest
	}
	// resolve before any room exists
	if _, err := s.cfg.Store.Lookup(accountID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.NonceRetries; attempt++ {
		req := &SignMessage{
			TxID:        s.NextTxID(),
			ExecutionID: uuidBytes(),
			Chain:       ChainEthereum,
			Data:        digest,
			AccountID:   accountID,
		}
		sig, err := s.SignRequest(ctx, req)
		if errors.Is(err, sign.ErrDegenerateNonce) {
			log.WithField("tx_id", req.TxID).Warn("degenerate nonce, restarting with fresh randomness")
			continue
		}
		return sig, err
	}
	return nil, ErrDegenerateNonce
}

// SignRequest initiates one session for an explicit request. Unlike
// Sign it performs no degenerate-nonce retries. A request whose tx id
// is held by a session still running on this service fails with
// ErrRoomExists; the tx id is released when that session returns, so a
// later request with the same tx id is not rejected.
func (s *Service) SignRequest(ctx context.Context, req *SignMessage) (*SignatureMessage, error) {
	return s.runSession(ctx, req, true)
}

// HandleSignTx serves the mirrored request from the initiating peer.
func (s *Service) HandleSignTx(ctx context.Context, req *SignMessage) (*SignatureMessage, error) {
	return s.runSession(ctx, req, false)
}

func (s *Service) runSession(ctx context.Context, req *SignMessage, initiator bool) (*SignatureMessage, error) {
	if len(req.Data) != 32 {
		return nil, ErrInvalidDigest
	}
	share, err := s.cfg.Store.Lookup(req.AccountID)
	if err != nil {
		return nil, err
	}

	// a second session on the same tx id would reuse presigning
	// masks; fail fast instead
	s.mu.Lock()
	if _, dup := s.active[req.TxID]; dup {
		s.mu.Unlock()
		return nil, ErrRoomExists
	}
	s.active[req.TxID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, req.TxID)
		s.mu.Unlock()
	}()

	roomID := RoomID(req.TxID)
	signers := allSigners(share)
	self := sessionIndex(share, signers)

	logger := log.WithFields(log.Fields{
		"tx_id":        req.TxID,
		"execution_id": fmt.Sprintf("%x", req.ExecutionID),
		"chain":        req.Chain,
		"account_id":   req.AccountID,
		"room":         roomID,
		"session_idx":  self,
	})
	logger.Info("starting signing session")

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()

	transport, err := newRoomTransport(ctx, s.cfg.Dialer, roomID, self)
	if err != nil {
		return nil, fmt.Errorf("sigserv: failed to join room: %w", err)
	}
	defer transport.Stop()

	// mirror the request to the peer; its coordinator runs the same
	// steps from the other side of the room
	var peerErr atomic.Value
	if initiator && s.cfg.Peer != nil {
		go func() {
			if _, err := s.cfg.Peer.SignTx(ctx, req); err != nil {
				peerErr.Store(err)
				cancel()
			}
		}()
	}

	driver, err := protocol.NewDriver(
		sign.StartSign(share, signers, roomID, req.Data, s.cfg.Pool), transport)
	if err != nil {
		return nil, err
	}
	result, runErr := driver.Run(ctx)

	if initiator {
		// the initiator owns room cleanup; use a fresh context since
		// the session one may already be done
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = transport.CloseRoom(closeCtx)
		closeCancel()
	}

	if runErr != nil {
		if stored := peerErr.Load(); stored != nil {
			return nil, stored.(error)
		}
		return nil, mapDriverError(runErr)
	}

	signature, ok := result.(*ecdsa.Signature)
	if !ok {
		return nil, fmt.Errorf("sigserv: unexpected driver result %T", result)
	}
	r, sBytes, v := signature.SigBytes()
	logger.Info("signing session completed")
	return &SignatureMessage{R: r, S: sBytes, V: v}, nil
}

func mapDriverError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	var violation protocol.ErrProtocolViolation
	if errors.As(err, &violation) {
		return &ViolationError{Party: violation.Culprit}
	}
	var protoErr *protocol.Error
	if errors.As(err, &protoErr) {
		switch {
		case errors.Is(protoErr.Err, sign.ErrDegenerateNonce):
			return sign.ErrDegenerateNonce
		case errors.Is(protoErr.Err, sign.ErrNotIdentifiable):
			return ErrUnknownCulprit
		case len(protoErr.Culprits) > 0:
			return &CulpritError{Party: protoErr.Culprits[0], Err: protoErr.Err}
		}
	}
	return err
}

// allSigners selects the active subset: every share index, since the
// deployment runs t-of-t.
func allSigners(share *keyshare.KeyShare) []uint16 {
	out := make([]uint16, share.N())
	for i := range out {
		out[i] = uint16(i + 1)
	}
	return out
}

// sessionIndex maps a share index to its session index: its position
// in the sorted signing subset, making share 1 session index 0 and
// share 2 session index 1, whichever side initiated.
func sessionIndex(share *keyshare.KeyShare, signers []uint16) party.ID {
	sorted := make([]uint16, len(signers))
	copy(sorted, signers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, idx := range sorted {
		if idx == share.I {
			return party.ID(i)
		}
	}
	return party.None
}

func uuidBytes() []byte {
	id := uuid.New()
	return id[:]
}
