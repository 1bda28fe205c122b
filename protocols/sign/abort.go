package sign

import (
	"errors"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	zknth "github.com/ruocuoguo23/wallet-mpc/pkg/zk/nth"
)

var _ round.BroadcastRound = (*signAbort)(nil)

// signAbort re-checks the δ leg of the transcript after a failed
// signature: every party opens γᵢ, kᵢ and the MtA decryptions, so each
// δⱼ can be recomputed and compared against the broadcast value.
type signAbort struct {
	*sign5
	// GammaShares[j] = γⱼ as revealed
	GammaShares map[party.ID]*arith.Nat
	// KShares[j] = kⱼ as revealed
	KShares map[party.ID]*arith.Nat
	// DeltaAlphas[j][l] = αⱼₗ as revealed by j
	DeltaAlphas map[party.ID]map[party.ID]*arith.Nat
}

type broadcastAbort struct {
	round.NormalBroadcastContent
	// GammaShare = γᵢ
	GammaShare *arith.Nat
	// KReveal opens Kᵢ
	KReveal *abortNth
	// DeltaReveals[j] opens the δ-leg ciphertext addressed to us by j
	DeltaReveals map[party.ID]*abortNth
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *signAbort) StoreBroadcastMessage(msg round.Message) error {
	from := msg.From
	body, ok := msg.Content.(*broadcastAbort)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.GammaShare == nil || body.KReveal == nil || body.DeltaReveals == nil {
		return round.ErrNilFields
	}

	public := r.Paillier[from]
	if !body.KReveal.Verify(r.HashForID(from), public, r.K[from]) {
		return errors.New("failed to verify opened k share")
	}

	// the revealed γ must match the Γ opened in round 4
	BigGammaActual := r.Group().NewScalar().SetNat(body.GammaShare.Clone().Mod1(r.Group().Order())).ActOnBase()
	if !r.BigGammaShares[from].Equal(BigGammaActual) {
		return errors.New("revealed gamma share does not match Gamma")
	}

	alphas := make(map[party.ID]*arith.Nat, len(body.DeltaReveals))
	for id, reveal := range body.DeltaReveals {
		// the ciphertext j opened is the one id produced for j
		cts, ok := r.DeltaCiphertext[id]
		if !ok || cts[from] == nil {
			return errors.New("opened decryption for unknown ciphertext")
		}
		if !reveal.Verify(r.HashForID(from), public, cts[from]) {
			return errors.New("failed to verify opened MtA decryption")
		}
		alphas[id] = reveal.Plaintext
	}
	r.GammaShares[from] = body.GammaShare
	r.KShares[from] = body.KReveal.Plaintext
	r.DeltaAlphas[from] = alphas
	return nil
}

// VerifyMessage implements round.Round.
func (signAbort) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (signAbort) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// Recompute every δⱼ from the revealed values. A mismatch with the
// broadcast δⱼ names the culprit; no mismatch means the cheat hid in
// the χ leg and cannot be attributed here.
func (r *signAbort) Finalize(chan<- *round.Message) (round.Session, error) {
	var (
		culprits   []party.ID
		delta, tmp arith.Nat
	)
	for _, j := range r.PartyIDs() {
		// δⱼ = kⱼ⋅γⱼ + Σ_{l≠j} (αⱼₗ + kₗ⋅γⱼ − αₗⱼ)
		delta.Mul(r.KShares[j], r.GammaShares[j], -1)
		for _, l := range r.PartyIDs() {
			if l == j {
				continue
			}
			delta.Add(&delta, r.DeltaAlphas[j][l], -1)
			tmp.Mul(r.KShares[l], r.GammaShares[j], -1)
			delta.Add(&delta, &tmp, -1)
			tmp.SetNat(r.DeltaAlphas[l][j]).Neg(1)
			delta.Add(&delta, &tmp, -1)
		}
		deltaScalar := r.Group().NewScalar().SetNat(delta.Clone().Mod1(r.Group().Order()))
		if !deltaScalar.Equal(r.DeltaShares[j]) {
			culprits = append(culprits, j)
		}
	}
	if len(culprits) == 0 {
		return r.AbortRound(ErrNotIdentifiable), nil
	}
	return r.AbortRound(ErrInvalidSignature, culprits...), nil
}

// MessageContent implements round.Round.
func (signAbort) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcastAbort) RoundNumber() round.Number { return 6 }

// BroadcastContent implements round.BroadcastRound.
func (signAbort) BroadcastContent() round.BroadcastContent { return &broadcastAbort{} }

// Number implements round.Round.
func (signAbort) Number() round.Number { return 6 }

// abortNth is one opened decryption: the plaintext, the hidden nonce
// ρᴺ (mod N²), and the proof that ρᴺ is a genuine N-th residue.
type abortNth struct {
	Plaintext *arith.Nat
	Nonce     *arith.Nat
	Proof     *zknth.Proofbuf
}

func newAbortNth(h *hash.Hash, sk *paillier.SecretKey, c *paillier.Ciphertext, plaintext, nonce *arith.Nat) *abortNth {
	nonceHidden := sk.ModulusSquared().Exp(nonce, sk.N())
	proof := zknth.NewProofMal(h, zknth.Public{
		N: sk.PublicKey,
		R: nonceHidden,
	}, zknth.Private{Rho: nonce})
	return &abortNth{
		Plaintext: plaintext,
		Nonce:     nonceHidden,
		Proof:     proof,
	}
}

// Verify checks that the opened plaintext and nonce reproduce the
// ciphertext and that the nonce component is an N-th residue.
func (msg *abortNth) Verify(h *hash.Hash, public *paillier.PublicKey, c *paillier.Ciphertext) bool {
	if msg == nil || msg.Plaintext == nil || !arith.IsValidNatModN(public.ModulusSquared().Nat(), msg.Nonce) {
		return false
	}
	one := arith.NewNat(1)
	cExpected := c.Nat()
	cActual := public.EncWithNonce(msg.Plaintext, one).Nat()
	cActual.ModMul(cActual, msg.Nonce, public.ModulusSquared().Nat())
	if cExpected.Eq(cActual) != 1 {
		return false
	}
	return msg.Proof.VerifyMal(h, zknth.Public{
		N: public,
		R: msg.Nonce,
	})
}
