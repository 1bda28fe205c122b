// Package sign implements the interactive threshold signing protocol.
// A signing subset of t parties runs five rounds — commitments, MtA,
// openings, partial signatures, combination — plus an identifiable
// abort round entered when the combined signature does not verify.
package sign

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
	"github.com/ruocuoguo23/wallet-mpc/pkg/protocol"
)

// protocolSignID tags every message of this protocol version; it also
// salts the transcript together with the room id.
const protocolSignID = "wallet-mpc/sign-cggmp-v1"

// rounds is the number of protocol rounds including the abort round.
const rounds round.Number = 6

// ErrDegenerateNonce is returned when the joint nonce point collapses
// to the identity. The session must be restarted with fresh
// randomness; the coordinator owns the retry budget.
var ErrDegenerateNonce = errors.New("sign: degenerate nonce point")

// ErrInvalidSignature is the abort error when the culprit was
// identified; the driver carries the culprits alongside.
var ErrInvalidSignature = errors.New("sign: signature failed to verify")

// ErrNotIdentifiable is the abort error when re-checking the
// transcript could not attribute the failure.
var ErrNotIdentifiable = errors.New("sign: signature failed to verify, culprit not identifiable")

// StartSign builds the first round of the signing protocol.
//
// signers lists the participating 1-based share indices; the session
// index of each party is its position in the sorted signers list, so
// the initiating deployment maps share 1 to session index 0 and share
// 2 to session index 1. digest must be the 32-byte message hash.
func StartSign(share *keyshare.KeyShare, signers []uint16, roomID string, digest []byte, pl *pool.Pool) protocol.StartFunc {
	return func() (round.Session, error) {
		if share == nil {
			return nil, errors.New("sign: nil key share")
		}
		if len(digest) != 32 {
			return nil, fmt.Errorf("sign: digest must be 32 bytes, have %d", len(digest))
		}
		group := share.Group()

		sorted := make([]uint16, len(signers))
		copy(sorted, signers)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1] == sorted[i] {
				return nil, errors.New("sign: duplicate signer index")
			}
		}
		if len(sorted) < share.Threshold() {
			return nil, fmt.Errorf("sign: %d signers below threshold %d", len(sorted), share.Threshold())
		}
		selfSession := party.ID(0xFFFF)
		partyIDs := make([]party.ID, len(sorted))
		for i, shareIdx := range sorted {
			if int(shareIdx) < 1 || int(shareIdx) > share.N() {
				return nil, fmt.Errorf("sign: signer index %d out of range", shareIdx)
			}
			partyIDs[i] = party.ID(i)
			if shareIdx == share.I {
				selfSession = party.ID(i)
			}
		}
		if selfSession == party.ID(0xFFFF) {
			return nil, errors.New("sign: own share is not in the signing subset")
		}

		helper, err := round.NewSession(round.Info{
			ProtocolID:       protocolSignID,
			FinalRoundNumber: rounds,
			SelfID:           selfSession,
			PartyIDs:         partyIDs,
			Threshold:        len(partyIDs) - 1,
			Group:            group,
			RoomID:           roomID,
		}, digest)
		if err != nil {
			return nil, err
		}

		// form the effective shares x'ᵢ = λᵢ⋅xᵢ and X'ⱼ = λⱼ⋅Xⱼ for the
		// active subset
		lagrange := share.Lagrange(sorted)
		secretECDSA := group.NewScalar().Set(lagrange[share.I]).Mul(share.Xi)

		ecdsaPublic := make(map[party.ID]curve.Point, len(sorted))
		paillierKeys := make(map[party.ID]*paillier.PublicKey, len(sorted))
		pedersenParams := make(map[party.ID]*pedersen.Parameters, len(sorted))
		for i, shareIdx := range sorted {
			id := party.ID(i)
			ecdsaPublic[id] = lagrange[shareIdx].Act(share.PublicShares[shareIdx-1])
			paillierKeys[id] = share.PaillierPublic(shareIdx)
			pedersenParams[id] = share.Pedersen(shareIdx)
		}

		return &sign1{
			Helper:         helper,
			Pool:           pl,
			SecretECDSA:    secretECDSA,
			SecretPaillier: share.PaillierSecret(),
			PublicKey:      share.SharedPublicKey,
			ECDSA:          ecdsaPublic,
			Paillier:       paillierKeys,
			Pedersen:       pedersenParams,
			Digest:         digest,
		}, nil
	}
}
