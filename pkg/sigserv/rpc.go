package sigserv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Chain is an opaque routing tag carried through the RPC for audit;
// the core applies no per-chain logic.
type Chain int32

const (
	ChainUnspecified Chain = 0
	ChainEthereum    Chain = 1
	ChainBitcoin     Chain = 2
)

// SignMessage is the signing request crossing the coordinator
// boundary.
type SignMessage struct {
	// TxID is (instance_id << 16) | counter.
	TxID uint32 `json:"tx_id"`
	// ExecutionID is 16 opaque bytes kept for the audit trail only.
	ExecutionID []byte `json:"execution_id"`
	// Chain is the routing tag.
	Chain Chain `json:"chain"`
	// Data is the 32-byte digest, big-endian.
	Data []byte `json:"data"`
	// AccountID is the share store key.
	AccountID string `json:"account_id"`
}

// SignatureMessage is the RPC form of a produced signature.
type SignatureMessage struct {
	R []byte `json:"r"`
	S []byte `json:"s"`
	V uint32 `json:"v"`
}

// rpcError is the error body of a failed sign call.
type rpcError struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Culprit *party.ID `json:"culprit,omitempty"`
}

// KindOf classifies an error into its RPC kind and optional culprit.
func KindOf(err error) (Kind, *party.ID) {
	var culprit *CulpritError
	var violation *ViolationError
	switch {
	case errors.Is(err, ErrInvalidDigest):
		return KindInvalidRequest, nil
	case isUnknownAccount(err):
		return KindUnknownAccount, nil
	case errors.Is(err, ErrRoomExists):
		return KindRoomExists, nil
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout, nil
	case errors.Is(err, ErrPeerUnreachable):
		return KindPeerUnreachable, nil
	case errors.Is(err, ErrDegenerateNonce):
		return KindDegenerateNonce, nil
	case errors.Is(err, ErrUnknownCulprit):
		return KindUnknownCulprit, nil
	case errors.As(err, &culprit):
		return KindCulprit, &culprit.Party
	case errors.As(err, &violation):
		return KindProtocolViolation, &violation.Party
	default:
		return KindInternal, nil
	}
}

func errorFromKind(kind Kind, message string, culpritID *party.ID) error {
	switch kind {
	case KindUnknownAccount:
		return fmt.Errorf("sigserv: peer: unknown account: %s", message)
	case KindRoomExists:
		return ErrRoomExists
	case KindTimeout:
		return ErrTimeout
	case KindDegenerateNonce:
		return ErrDegenerateNonce
	case KindUnknownCulprit:
		return ErrUnknownCulprit
	case KindCulprit:
		if culpritID != nil {
			return &CulpritError{Party: *culpritID, Err: errors.New(message)}
		}
		return ErrUnknownCulprit
	case KindProtocolViolation:
		if culpritID != nil {
			return &ViolationError{Party: *culpritID}
		}
		return errors.New(message)
	default:
		return fmt.Errorf("sigserv: peer: %s: %s", kind, message)
	}
}

// PeerClient invokes the mirrored sign request on the remote
// participant.
type PeerClient struct {
	// BaseURL is the peer participant root, e.g. "http://peer:9000".
	BaseURL string
	// Client defaults to http.DefaultClient; per-call deadlines come
	// from the context.
	Client *http.Client
}

// SignTx mirrors the sign request to the peer and waits for its
// signature.
func (c *PeerClient) SignTx(ctx context.Context, req *SignMessage) (*SignatureMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.BaseURL, "/")+"/v1/sign_tx", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var rpcErr rpcError
		if err := json.NewDecoder(resp.Body).Decode(&rpcErr); err != nil {
			return nil, fmt.Errorf("%w: status %s", ErrPeerUnreachable, resp.Status)
		}
		return nil, errorFromKind(rpcErr.Kind, rpcErr.Message, rpcErr.Culprit)
	}
	var sig SignatureMessage
	if err := json.NewDecoder(resp.Body).Decode(&sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// Handler exposes a Service over HTTP:
//
//	POST /v1/sign_tx
func Handler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sign_tx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req SignMessage
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRPCError(w, KindInvalidRequest, err, nil)
			return
		}
		sig, err := svc.HandleSignTx(r.Context(), &req)
		if err != nil {
			kind, culprit := KindOf(err)
			log.WithFields(log.Fields{
				"tx_id":      req.TxID,
				"account_id": req.AccountID,
				"kind":       kind,
			}).WithError(err).Error("sign request failed")
			writeRPCError(w, kind, err, culprit)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sig)
	})
	return mux
}

func writeRPCError(w http.ResponseWriter, kind Kind, err error, culprit *party.ID) {
	status := http.StatusInternalServerError
	switch kind {
	case KindInvalidRequest, KindUnknownAccount:
		status = http.StatusBadRequest
	case KindRoomExists:
		status = http.StatusConflict
	case KindTimeout:
		status = http.StatusGatewayTimeout
	case KindPeerUnreachable:
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcError{Kind: kind, Message: err.Error(), Culprit: culprit})
}

// ProxyHandler forwards sign requests to an upstream participant,
// mirroring the gateway's pass-through surface.
func ProxyHandler(upstream *PeerClient) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sign_tx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req SignMessage
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRPCError(w, KindInvalidRequest, err, nil)
			return
		}
		log.WithFields(log.Fields{"tx_id": req.TxID, "account_id": req.AccountID}).Info("proxying sign request")
		sig, err := upstream.SignTx(r.Context(), &req)
		if err != nil {
			kind, culprit := KindOf(err)
			writeRPCError(w, kind, err, culprit)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sig)
	})
	return mux
}
