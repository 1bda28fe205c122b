package sign

import (
	"errors"

	"github.com/ruocuoguo23/wallet-mpc/internal/mta"
	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	zkenc "github.com/ruocuoguo23/wallet-mpc/pkg/zk/enc"
)

var _ round.BroadcastRound = (*sign2)(nil)

type sign2 struct {
	*sign1

	// K[j] = Encⱼ(kⱼ)
	K map[party.ID]*paillier.Ciphertext
	// G[j] = Encⱼ(γⱼ)
	G map[party.ID]*paillier.Ciphertext
	// GammaCommitments[j] hides Γⱼ until round 3
	GammaCommitments map[party.ID]hash.Commitment

	// GammaShare = γᵢ
	GammaShare *arith.Nat
	// BigGammaShare = Γᵢ = γᵢ⋅G
	BigGammaShare curve.Point
	// GammaDecommitment opens our Γ commitment in round 3
	GammaDecommitment hash.Decommitment
	// KShare = kᵢ
	KShare curve.Scalar
	// KNonce = ρᵢ
	KNonce *arith.Nat
	// GNonce = νᵢ
	GNonce *arith.Nat
}

type broadcast2 struct {
	round.ReliableBroadcastContent
	// K = Kᵢ = Encᵢ(kᵢ)
	K *paillier.Ciphertext
	// G = Gᵢ = Encᵢ(γᵢ)
	G *paillier.Ciphertext
	// GammaCommitment hides Γᵢ
	GammaCommitment hash.Commitment
}

type message2 struct {
	// EncProof proves kᵢ ∈ ±2ˡ
	EncProof *zkenc.Proofbuf
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *sign2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.K == nil || body.G == nil {
		return round.ErrNilFields
	}
	if !r.Paillier[msg.From].ValidateCiphertexts(body.K, body.G) {
		return errors.New("received invalid ciphertext")
	}
	if err := body.GammaCommitment.Validate(); err != nil {
		return err
	}
	r.K[msg.From] = body.K
	r.G[msg.From] = body.G
	r.GammaCommitments[msg.From] = body.GammaCommitment
	return nil
}

// VerifyMessage implements round.Round.
//
// - verify the zkenc proof for Kⱼ.
func (r *sign2) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if !body.EncProof.VerifyMal(r.Group(), r.HashForID(msg.From), zkenc.Public{
		K:      r.K[msg.From],
		Prover: r.Paillier[msg.From],
		Aux:    r.Pedersen[msg.To],
	}) {
		return errors.New("failed to validate enc proof for K")
	}
	return nil
}

// StoreMessage implements round.Round.
func (sign2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// Run both MtA legs towards every peer:
// - δ leg: kⱼ⋅γᵢ with the aff-p proof (γᵢ committed as Gᵢ)
// - χ leg: kⱼ⋅x'ᵢ with the aff-g proof (x'ᵢ committed as X'ᵢ)
func (r *sign2) Finalize(out chan<- *round.Message) (round.Session, error) {
	otherIDs := r.OtherPartyIDs()
	n := len(otherIDs)

	type mtaOut struct {
		DeltaBeta *arith.Nat
		DeltaD    *paillier.Ciphertext
		ChiBeta   *arith.Nat
		ChiD      *paillier.Ciphertext
		msg       *message3
	}
	results := r.Pool.Parallelize(n, func(i int) interface{} {
		j := otherIDs[i]
		DeltaBeta, DeltaD, DeltaF, DeltaProof := mta.ProveAffP(r.Group(), r.HashForID(r.SelfID()),
			r.GammaShare, r.G[r.SelfID()], r.GNonce,
			r.K[j],
			r.SecretPaillier, r.Paillier[j], r.Pedersen[j])
		ChiBeta, ChiD, ChiF, ChiProof := mta.ProveAffG(r.Group(), r.HashForID(r.SelfID()),
			curve.MakeInt(r.SecretECDSA), r.ECDSA[r.SelfID()],
			r.K[j],
			r.SecretPaillier, r.Paillier[j], r.Pedersen[j])
		return mtaOut{
			DeltaBeta: DeltaBeta,
			DeltaD:    DeltaD,
			ChiBeta:   ChiBeta,
			ChiD:      ChiD,
			msg: &message3{
				DeltaF:     DeltaF,
				DeltaProof: DeltaProof,
				ChiF:       ChiF,
				ChiProof:   ChiProof,
			},
		}
	})

	DeltaShareBeta := make(map[party.ID]*arith.Nat, n)
	ChiShareBeta := make(map[party.ID]*arith.Nat, n)
	selfDelta := make(map[party.ID]*paillier.Ciphertext, n)
	selfChi := make(map[party.ID]*paillier.Ciphertext, n)
	msgs := make(map[party.ID]*message3, n)
	for i, res := range results {
		o := res.(mtaOut)
		j := otherIDs[i]
		DeltaShareBeta[j] = o.DeltaBeta
		ChiShareBeta[j] = o.ChiBeta
		selfDelta[j] = o.DeltaD
		selfChi[j] = o.ChiD
		msgs[j] = o.msg
	}
	DeltaCiphertext := map[party.ID]map[party.ID]*paillier.Ciphertext{r.SelfID(): selfDelta}
	ChiCiphertext := map[party.ID]map[party.ID]*paillier.Ciphertext{r.SelfID(): selfChi}

	// the full ciphertext maps are broadcast so the abort round can
	// re-check every pair, not only our own
	if err := r.BroadcastMessage(out, &broadcast3{
		DeltaCiphertext: selfDelta,
		ChiCiphertext:   selfChi,
	}); err != nil {
		return r, err
	}
	for j, msg := range msgs {
		if err := r.SendMessage(out, msg, j); err != nil {
			return r, err
		}
	}

	return &sign3{
		sign2:           r,
		DeltaShareBeta:  DeltaShareBeta,
		ChiShareBeta:    ChiShareBeta,
		DeltaCiphertext: DeltaCiphertext,
		ChiCiphertext:   ChiCiphertext,
	}, nil
}

// MessageContent implements round.Round.
func (r *sign2) MessageContent() round.Content {
	return &message2{EncProof: &zkenc.Proofbuf{}}
}

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// RoundNumber implements round.Content.
func (message2) RoundNumber() round.Number { return 2 }

// BroadcastContent implements round.BroadcastRound.
func (sign2) BroadcastContent() round.BroadcastContent { return &broadcast2{} }

// Number implements round.Round.
func (sign2) Number() round.Number { return 2 }

// Scrub implements protocol.Scrubber.
func (r *sign2) Scrub() {
	if r.GammaShare != nil {
		r.GammaShare.Clear()
	}
	if r.KShare != nil {
		r.KShare.Clear()
	}
	if r.KNonce != nil {
		r.KNonce.Clear()
	}
	if r.GNonce != nil {
		r.GNonce.Clear()
	}
	if r.SecretECDSA != nil {
		r.SecretECDSA.Clear()
	}
}
