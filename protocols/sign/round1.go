package sign

import (
	"crypto/rand"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
	zkenc "github.com/ruocuoguo23/wallet-mpc/pkg/zk/enc"
)

var _ round.Round = (*sign1)(nil)

type sign1 struct {
	*round.Helper

	Pool *pool.Pool

	// SecretECDSA = x'ᵢ = λᵢ⋅xᵢ, the effective share for this subset
	SecretECDSA curve.Scalar
	// SecretPaillier is this party's Paillier secret key
	SecretPaillier *paillier.SecretKey

	// PublicKey = Y
	PublicKey curve.Point
	// ECDSA[j] = X'ⱼ = λⱼ⋅Xⱼ
	ECDSA map[party.ID]curve.Point
	// Paillier[j] = Nⱼ
	Paillier map[party.ID]*paillier.PublicKey
	// Pedersen[j] = (Nⱼ, sⱼ, tⱼ)
	Pedersen map[party.ID]*pedersen.Parameters

	// Digest is the 32-byte message hash
	Digest []byte
}

// VerifyMessage implements round.Round.
func (sign1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (sign1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - sample kᵢ, γᵢ ∈ 𝔽
// - Kᵢ = Encᵢ(kᵢ;ρᵢ), Gᵢ = Encᵢ(γᵢ;νᵢ)
// - commit to Γᵢ = γᵢ⋅G
// - prove kᵢ in range towards each peer
func (r *sign1) Finalize(out chan<- *round.Message) (round.Session, error) {
	// γᵢ ∈ 𝔽, Γᵢ = γᵢ⋅G
	GammaShare := sample.ScalarUnit(rand.Reader, r.Group())
	BigGammaShare := GammaShare.ActOnBase()
	// Gᵢ = Encᵢ(γᵢ;νᵢ)
	G, GNonce := r.Paillier[r.SelfID()].Enc(curve.MakeInt(GammaShare))

	// kᵢ ∈ 𝔽
	KShare := sample.ScalarUnit(rand.Reader, r.Group())
	KShareInt := curve.MakeInt(KShare)
	// Kᵢ = Encᵢ(kᵢ;ρᵢ)
	K, KNonce := r.Paillier[r.SelfID()].Enc(KShareInt)

	GammaCommitment, GammaDecommitment, err := r.HashForID(r.SelfID()).Commit(BigGammaShare)
	if err != nil {
		return r, err
	}

	if err = r.BroadcastMessage(out, &broadcast2{
		K:               K,
		G:               G,
		GammaCommitment: GammaCommitment,
	}); err != nil {
		return r, err
	}

	otherIDs := r.OtherPartyIDs()
	errs := r.Pool.Parallelize(len(otherIDs), func(i int) interface{} {
		j := otherIDs[i]
		proof := zkenc.NewProofMal(r.Group(), r.HashForID(r.SelfID()), zkenc.Public{
			K:      K,
			Prover: r.Paillier[r.SelfID()],
			Aux:    r.Pedersen[j],
		}, zkenc.Private{
			K:   KShareInt,
			Rho: KNonce,
		})
		return r.SendMessage(out, &message2{EncProof: proof}, j)
	})
	for _, err := range errs {
		if err != nil {
			return r, err.(error)
		}
	}

	return &sign2{
		sign1:              r,
		K:                  map[party.ID]*paillier.Ciphertext{r.SelfID(): K},
		G:                  map[party.ID]*paillier.Ciphertext{r.SelfID(): G},
		GammaCommitments:   map[party.ID]hash.Commitment{},
		GammaShare:         curve.MakeInt(GammaShare),
		BigGammaShare:      BigGammaShare,
		GammaDecommitment:  GammaDecommitment,
		KShare:             KShare,
		KNonce:             KNonce,
		GNonce:             GNonce,
	}, nil
}

// MessageContent implements round.Round.
func (sign1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (sign1) Number() round.Number { return 1 }
