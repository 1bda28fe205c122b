package sign

import (
	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/ecdsa"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

var _ round.BroadcastRound = (*sign5)(nil)

type sign5 struct {
	*sign4

	// BigR = R = δ⁻¹⋅Γ
	BigR curve.Point
	// Gamma = Γ = Σⱼ Γⱼ
	Gamma curve.Point
	// SigmaShares[j] = σⱼ
	SigmaShares map[party.ID]curve.Scalar
}

type broadcast5 struct {
	round.NormalBroadcastContent
	// SigmaShare = σᵢ
	SigmaShare curve.Scalar
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *sign5) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast5)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.SigmaShare == nil || body.SigmaShare.IsZero() {
		return round.ErrNilFields
	}
	r.SigmaShares[msg.From] = body.SigmaShare
	return nil
}

// VerifyMessage implements round.Round.
func (sign5) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (sign5) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - s = Σⱼ σⱼ
// - verify (r,s) against Y; on failure reveal the δ-leg transcript to
//   locate the culprit.
func (r *sign5) Finalize(out chan<- *round.Message) (round.Session, error) {
	S := r.Group().NewScalar()
	for _, SigmaJ := range r.SigmaShares {
		S.Add(SigmaJ)
	}

	signature := &ecdsa.Signature{R: r.BigR, S: S}
	if signature.Verify(r.PublicKey, r.Digest) {
		signature.Normalize()
		return r.ResultRound(signature), nil
	}

	// identifiable abort: reveal γᵢ, the plaintext of Kᵢ and the
	// plaintexts of the δ-leg MtA ciphertexts addressed to us; the
	// openings of Kᵢ and of those ciphertexts carry N-th residue proofs
	KPlain, KNonce, err := r.SecretPaillier.DecWithRandomness(r.K[r.SelfID()])
	if err != nil {
		return r, err
	}
	KReveal := newAbortNth(r.HashForID(r.SelfID()), r.SecretPaillier, r.K[r.SelfID()], KPlain, KNonce)

	DeltaReveals := make(map[party.ID]*abortNth, len(r.OtherPartyIDs()))
	for _, j := range r.OtherPartyIDs() {
		plain, nonce, err := r.SecretPaillier.DecWithRandomness(r.DeltaCiphertext[j][r.SelfID()])
		if err != nil {
			return r, err
		}
		DeltaReveals[j] = newAbortNth(r.HashForID(r.SelfID()), r.SecretPaillier, r.DeltaCiphertext[j][r.SelfID()], plain, nonce)
	}

	if err := r.BroadcastMessage(out, &broadcastAbort{
		GammaShare:   r.GammaShare.Clone(),
		KReveal:      KReveal,
		DeltaReveals: DeltaReveals,
	}); err != nil {
		return r, err
	}

	return &signAbort{
		sign5:       r,
		GammaShares: map[party.ID]*arith.Nat{r.SelfID(): r.GammaShare.Clone()},
		KShares:     map[party.ID]*arith.Nat{r.SelfID(): KPlain},
		DeltaAlphas: map[party.ID]map[party.ID]*arith.Nat{r.SelfID(): alphasOf(DeltaReveals)},
	}, nil
}

func alphasOf(reveals map[party.ID]*abortNth) map[party.ID]*arith.Nat {
	out := make(map[party.ID]*arith.Nat, len(reveals))
	for id, reveal := range reveals {
		out[id] = reveal.Plaintext
	}
	return out
}

// MessageContent implements round.Round.
func (sign5) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast5) RoundNumber() round.Number { return 5 }

// BroadcastContent implements round.BroadcastRound.
func (r *sign5) BroadcastContent() round.BroadcastContent {
	return &broadcast5{SigmaShare: r.Group().NewScalar()}
}

// Number implements round.Round.
func (sign5) Number() round.Number { return 5 }

