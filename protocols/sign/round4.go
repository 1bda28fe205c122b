package sign

import (
	"errors"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	zklogstar "github.com/ruocuoguo23/wallet-mpc/pkg/zk/logstar"
)

var _ round.BroadcastRound = (*sign4)(nil)

type sign4 struct {
	*sign3

	// DeltaShareAlpha[j] = αᵢⱼ
	DeltaShareAlpha map[party.ID]*arith.Nat
	// ChiShareAlpha[j] = α̂ᵢⱼ
	ChiShareAlpha map[party.ID]*arith.Nat
	// ChiShare = χᵢ as an integer
	ChiShare *arith.Nat
	// DeltaShares[j] = δⱼ
	DeltaShares map[party.ID]curve.Scalar
	// BigGammaShares[j] = Γⱼ
	BigGammaShares map[party.ID]curve.Point
}

type broadcast4 struct {
	round.NormalBroadcastContent
	// DeltaShare = δᵢ
	DeltaShare curve.Scalar
	// BigGammaShare = Γᵢ, opened against the round-2 commitment
	BigGammaShare curve.Point
	// GammaDecommitment opens the Γ commitment
	GammaDecommitment hash.Decommitment
}

type message4 struct {
	// LogProof binds Γᵢ to the ciphertext Gᵢ
	LogProof *zklogstar.Proofbuf
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// - open the Γⱼ commitment, store δⱼ and Γⱼ.
func (r *sign4) StoreBroadcastMessage(msg round.Message) error {
	from := msg.From
	body, ok := msg.Content.(*broadcast4)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.DeltaShare == nil || body.BigGammaShare == nil || body.DeltaShare.IsZero() {
		return round.ErrNilFields
	}
	if body.BigGammaShare.IsIdentity() {
		return errors.New("received identity Gamma share")
	}
	if !r.HashForID(from).Decommit(r.GammaCommitments[from], body.GammaDecommitment, body.BigGammaShare) {
		return errors.New("failed to decommit Gamma share")
	}
	r.DeltaShares[from] = body.DeltaShare
	r.BigGammaShares[from] = body.BigGammaShare
	return nil
}

// VerifyMessage implements round.Round.
//
// - verify the log* proof binding Γⱼ to Gⱼ.
func (r *sign4) VerifyMessage(msg round.Message) error {
	from, to := msg.From, msg.To
	body, ok := msg.Content.(*message4)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if !body.LogProof.VerifyMal(r.Group(), r.HashForID(from), zklogstar.Public{
		C:      r.G[from],
		X:      r.BigGammaShares[from],
		Prover: r.Paillier[from],
		Aux:    r.Pedersen[to],
	}) {
		return errors.New("failed to validate log* proof for Gamma share")
	}
	return nil
}

// StoreMessage implements round.Round.
func (sign4) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - Γ = Σⱼ Γⱼ, δ = Σⱼ δⱼ
// - R = δ⁻¹⋅Γ, r = R.x
// - σᵢ = kᵢ⋅m + r⋅χᵢ
func (r *sign4) Finalize(out chan<- *round.Message) (round.Session, error) {
	Gamma := r.Group().NewPoint()
	for _, GammaJ := range r.BigGammaShares {
		Gamma = Gamma.Add(GammaJ)
	}

	Delta := r.Group().NewScalar()
	for _, DeltaJ := range r.DeltaShares {
		Delta.Add(DeltaJ)
	}
	if Delta.IsZero() || Gamma.IsIdentity() {
		return r.AbortRound(ErrDegenerateNonce), nil
	}

	// R = δ⁻¹⋅Γ
	DeltaInv := r.Group().NewScalar().Set(Delta).Invert()
	BigR := DeltaInv.Act(Gamma)
	if BigR.IsIdentity() {
		return r.AbortRound(ErrDegenerateNonce), nil
	}
	RScalar := BigR.XScalar()
	if RScalar.IsZero() {
		return r.AbortRound(ErrDegenerateNonce), nil
	}

	// σᵢ = kᵢ⋅m + r⋅χᵢ
	m := curve.FromHash(r.Group(), r.Digest)
	ChiShareScalar := r.Group().NewScalar().SetNat(r.ChiShare.Clone().Mod1(r.Group().Order()))
	SigmaShare := r.Group().NewScalar().Set(r.KShare).Mul(m).
		Add(r.Group().NewScalar().Set(RScalar).Mul(ChiShareScalar))

	if err := r.BroadcastMessage(out, &broadcast5{SigmaShare: SigmaShare}); err != nil {
		return r, err
	}

	return &sign5{
		sign4:       r,
		BigR:        BigR,
		Gamma:       Gamma,
		SigmaShares: map[party.ID]curve.Scalar{r.SelfID(): SigmaShare},
	}, nil
}

// MessageContent implements round.Round.
func (r *sign4) MessageContent() round.Content {
	return &message4{LogProof: &zklogstar.Proofbuf{}}
}

// RoundNumber implements round.Content.
func (broadcast4) RoundNumber() round.Number { return 4 }

// RoundNumber implements round.Content.
func (message4) RoundNumber() round.Number { return 4 }

// BroadcastContent implements round.BroadcastRound.
func (r *sign4) BroadcastContent() round.BroadcastContent {
	return &broadcast4{
		DeltaShare:    r.Group().NewScalar(),
		BigGammaShare: r.Group().NewPoint(),
	}
}

// Number implements round.Round.
func (sign4) Number() round.Number { return 4 }

// Scrub implements protocol.Scrubber.
func (r *sign4) Scrub() {
	for _, a := range r.DeltaShareAlpha {
		a.Clear()
	}
	for _, a := range r.ChiShareAlpha {
		a.Clear()
	}
	if r.ChiShare != nil {
		r.ChiShare.Clear()
	}
	r.sign3.Scrub()
}
