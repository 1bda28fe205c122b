package sign

import (
	"errors"
	"fmt"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	zkaffg "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affg"
	zkaffp "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affp"
	zklogstar "github.com/ruocuoguo23/wallet-mpc/pkg/zk/logstar"
)

var _ round.BroadcastRound = (*sign3)(nil)

type sign3 struct {
	*sign2

	// DeltaShareBeta[j] = βᵢⱼ of the δ leg
	DeltaShareBeta map[party.ID]*arith.Nat
	// ChiShareBeta[j] = β̂ᵢⱼ of the χ leg
	ChiShareBeta map[party.ID]*arith.Nat
	// DeltaCiphertext[j][k] = Dⱼₖ, produced by j for k
	DeltaCiphertext map[party.ID]map[party.ID]*paillier.Ciphertext
	// ChiCiphertext[j][k] = D̂ⱼₖ
	ChiCiphertext map[party.ID]map[party.ID]*paillier.Ciphertext
}

type broadcast3 struct {
	round.NormalBroadcastContent
	// DeltaCiphertext[k] = Dⱼₖ for every recipient k
	DeltaCiphertext map[party.ID]*paillier.Ciphertext
	// ChiCiphertext[k] = D̂ⱼₖ
	ChiCiphertext map[party.ID]*paillier.Ciphertext
}

type message3 struct {
	// DeltaF = Fᵢⱼ, the sender-side mask encryption of the δ leg
	DeltaF     *paillier.Ciphertext
	DeltaProof *zkaffp.Proofbuf
	// ChiF = F̂ᵢⱼ
	ChiF     *paillier.Ciphertext
	ChiProof *zkaffg.Proofbuf
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *sign3) StoreBroadcastMessage(msg round.Message) error {
	from := msg.From
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.DeltaCiphertext == nil || body.ChiCiphertext == nil {
		return round.ErrNilFields
	}
	for _, id := range r.PartyIDs() {
		if id == from {
			continue
		}
		DeltaCiphertext, ChiCiphertext := body.DeltaCiphertext[id], body.ChiCiphertext[id]
		if !r.Paillier[id].ValidateCiphertexts(DeltaCiphertext, ChiCiphertext) {
			return errors.New("received invalid MtA ciphertext")
		}
	}
	r.DeltaCiphertext[from] = body.DeltaCiphertext
	r.ChiCiphertext[from] = body.ChiCiphertext
	return nil
}

// VerifyMessage implements round.Round.
//
// - verify the aff-p proof of the δ leg and the aff-g proof of the χ
//   leg against the ciphertexts addressed to us.
func (r *sign3) VerifyMessage(msg round.Message) error {
	from, to := msg.From, msg.To
	body, ok := msg.Content.(*message3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}

	if !body.DeltaProof.VerifyMal(r.Group(), r.HashForID(from), zkaffp.Public{
		Kv:       r.K[to],
		Dv:       r.DeltaCiphertext[from][to],
		Fp:       body.DeltaF,
		Xp:       r.G[from],
		Prover:   r.Paillier[from],
		Verifier: r.Paillier[to],
		Aux:      r.Pedersen[to],
	}) {
		return errors.New("failed to validate aff-p proof for the delta MtA")
	}

	if !body.ChiProof.VerifyMal(r.Group(), r.HashForID(from), zkaffg.Public{
		Kv:       r.K[to],
		Dv:       r.ChiCiphertext[from][to],
		Fp:       body.ChiF,
		Xp:       r.ECDSA[from],
		Prover:   r.Paillier[from],
		Verifier: r.Paillier[to],
		Aux:      r.Pedersen[to],
	}) {
		return errors.New("failed to validate aff-g proof for the chi MtA")
	}
	return nil
}

// StoreMessage implements round.Round.
func (sign3) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - decrypt the MtA outputs
// - δᵢ = γᵢkᵢ + Σⱼ (αᵢⱼ + βᵢⱼ)
// - χᵢ = x'ᵢkᵢ + Σⱼ (α̂ᵢⱼ + β̂ᵢⱼ)
// - open Γᵢ with the round-1 decommitment and a log* proof
func (r *sign3) Finalize(out chan<- *round.Message) (round.Session, error) {
	KShareInt := curve.MakeInt(r.KShare)
	DeltaShare := new(arith.Nat).Mul(r.GammaShare, KShareInt, -1)
	ChiShare := new(arith.Nat).Mul(curve.MakeInt(r.SecretECDSA), KShareInt, -1)

	DeltaSharesAlpha := make(map[party.ID]*arith.Nat, r.N())
	ChiSharesAlpha := make(map[party.ID]*arith.Nat, r.N())

	var culprits []party.ID
	for _, j := range r.OtherPartyIDs() {
		var err error
		DeltaSharesAlpha[j], err = r.SecretPaillier.Dec(r.DeltaCiphertext[j][r.SelfID()])
		if err != nil {
			culprits = append(culprits, j)
			continue
		}
		ChiSharesAlpha[j], err = r.SecretPaillier.Dec(r.ChiCiphertext[j][r.SelfID()])
		if err != nil {
			culprits = append(culprits, j)
			continue
		}
		DeltaShare.Add(DeltaShare, DeltaSharesAlpha[j], -1)
		DeltaShare.Add(DeltaShare, r.DeltaShareBeta[j], -1)
		ChiShare.Add(ChiShare, ChiSharesAlpha[j], -1)
		ChiShare.Add(ChiShare, r.ChiShareBeta[j], -1)
	}
	if culprits != nil {
		return r.AbortRound(fmt.Errorf("sign: failed to decrypt MtA share"), culprits...), nil
	}

	DeltaShareScalar := r.Group().NewScalar().SetNat(DeltaShare.Clone().Mod1(r.Group().Order()))
	if err := r.BroadcastMessage(out, &broadcast4{
		DeltaShare:        DeltaShareScalar,
		BigGammaShare:     r.BigGammaShare,
		GammaDecommitment: r.GammaDecommitment,
	}); err != nil {
		return r, err
	}

	otherIDs := r.OtherPartyIDs()
	errs := r.Pool.Parallelize(len(otherIDs), func(i int) interface{} {
		j := otherIDs[i]
		proof := zklogstar.NewProofMal(r.Group(), r.HashForID(r.SelfID()), zklogstar.Public{
			C:      r.G[r.SelfID()],
			X:      r.BigGammaShare,
			Prover: r.Paillier[r.SelfID()],
			Aux:    r.Pedersen[j],
		}, zklogstar.Private{
			X:   r.GammaShare,
			Rho: r.GNonce,
		})
		return r.SendMessage(out, &message4{LogProof: proof}, j)
	})
	for _, err := range errs {
		if err != nil {
			return r, err.(error)
		}
	}

	return &sign4{
		sign3:           r,
		DeltaShareAlpha: DeltaSharesAlpha,
		ChiShareAlpha:   ChiSharesAlpha,
		ChiShare:        ChiShare,
		DeltaShares:     map[party.ID]curve.Scalar{r.SelfID(): DeltaShareScalar},
		BigGammaShares:  map[party.ID]curve.Point{r.SelfID(): r.BigGammaShare},
	}, nil
}

// MessageContent implements round.Round.
func (r *sign3) MessageContent() round.Content {
	return &message3{
		DeltaProof: &zkaffp.Proofbuf{},
		ChiProof:   &zkaffg.Proofbuf{},
	}
}

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// BroadcastContent implements round.BroadcastRound.
func (sign3) BroadcastContent() round.BroadcastContent { return &broadcast3{} }

// Number implements round.Round.
func (sign3) Number() round.Number { return 3 }

// Scrub implements protocol.Scrubber.
func (r *sign3) Scrub() {
	for _, b := range r.DeltaShareBeta {
		b.Clear()
	}
	for _, b := range r.ChiShareBeta {
		b.Clear()
	}
	r.sign2.Scrub()
}
