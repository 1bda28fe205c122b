// Package zklogstar proves that a Paillier ciphertext encrypts the
// discrete logarithm of a public group element ("log*" proof). It binds
// the revealed Γᵢ to the ciphertext Gᵢ committed in the first round.
package zklogstar

import (
	"crypto/rand"

	"github.com/fxamacker/cbor/v2"

	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
)

type Public struct {
	// C = Enc₀(x;ρ), encryption of x under the prover's key
	C *paillier.Ciphertext
	// X = x⋅G
	X curve.Point
	// G is the base point; nil selects the curve generator.
	G curve.Point

	Prover *paillier.PublicKey
	Aux    *pedersen.Parameters
}

type Private struct {
	// X is the plaintext of C and the discrete log of public.X.
	X *arith.Nat
	// Rho = ρ, the nonce of C.
	Rho *arith.Nat
}

type Commitment struct {
	// S = sˣtᵐ (mod N̂)
	S *arith.Nat
	// A = Enc₀(α; r)
	A *paillier.Ciphertext
	// Y = α⋅G
	Y curve.Point
	// D = sᵅtᵞ (mod N̂)
	D *arith.Nat
}

type Proof struct {
	*Commitment
	// Z1 = α + e⋅x
	Z1 *arith.Nat
	// Z2 = r⋅ρᵉ (mod N₀)
	Z2 *arith.Nat
	// Z3 = γ + e⋅m
	Z3 *arith.Nat
}

type proofCode struct {
	S  *arith.Nat
	A  *paillier.Ciphertext
	Y  []byte
	D  *arith.Nat
	Z1 *arith.Nat
	Z2 *arith.Nat
	Z3 *arith.Nat
}

type Proofbuf struct {
	Malbuf []byte
}

func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil || p.Y == nil {
		return false
	}
	if !public.Prover.ValidateCiphertexts(p.A) {
		return false
	}
	if !arith.IsValidNatModN(public.Prover.N(), p.Z2) {
		return false
	}
	return true
}

func NewProof(group curve.Curve, h *hash.Hash, public Public, private Private) *Proof {
	N := public.Prover.N()
	if public.G == nil {
		public.G = group.NewBasePoint()
	}

	alpha := sample.IntervalLEps(rand.Reader)
	r := sample.UnitModN(rand.Reader, N)
	mu := sample.IntervalLN(rand.Reader)
	gamma := sample.IntervalLEpsN(rand.Reader)

	commitment := &Commitment{
		S: public.Aux.Commit(private.X, mu),
		A: public.Prover.EncWithNonce(alpha, r),
		Y: group.NewScalar().SetNat(alpha.Clone()).Act(public.G),
		D: public.Aux.Commit(alpha, gamma),
	}

	e := challenge(h, group, public, commitment)

	z1 := new(arith.Nat).Mul(e, private.X, -1)
	z1.Add(z1, alpha, -1)
	z2 := public.Prover.Modulus().ExpI(private.Rho, e)
	z2.ModMul(z2, r, N)
	z3 := new(arith.Nat).Mul(e, mu, -1)
	z3.Add(z3, gamma, -1)

	return &Proof{Commitment: commitment, Z1: z1, Z2: z2, Z3: z3}
}

func (p *Proof) Verify(group curve.Curve, h *hash.Hash, public Public) bool {
	if !p.IsValid(public) {
		return false
	}
	if !arith.IsInIntervalLEps(p.Z1) {
		return false
	}
	if public.G == nil {
		public.G = group.NewBasePoint()
	}

	e := challenge(h, group, public, p.Commitment)

	if !public.Aux.Verify(p.Z1, p.Z3, e, p.D, p.S) {
		return false
	}

	// Enc(z₁;z₂) == A ⊕ (e ⊙ C)
	lhs := public.Prover.EncWithNonce(p.Z1, p.Z2)
	rhs := public.C.Clone().Mul(public.Prover, e).Add(public.Prover, p.A)
	if !lhs.Equal(rhs) {
		return false
	}

	// z₁⋅G == Y + e⋅X
	lhsPoint := group.NewScalar().SetNat(p.Z1.Clone()).Act(public.G)
	rhsPoint := group.NewScalar().SetNat(e.Clone()).Act(public.X).Add(p.Y)
	return lhsPoint.Equal(rhsPoint)
}

func challenge(h *hash.Hash, group curve.Curve, public Public, commitment *Commitment) *arith.Nat {
	_ = h.WriteAny(public.Aux, public.Prover, public.C, public.X, public.G,
		commitment.S, commitment.A, commitment.Y, commitment.D)
	return sample.IntervalScalar(h.Digest(), group)
}

func NewProofMal(group curve.Curve, h *hash.Hash, public Public, private Private) *Proofbuf {
	proof := NewProof(group, h, public, private)
	y, _ := proof.Y.MarshalBinary()
	code := &proofCode{
		S: proof.S, A: proof.A, Y: y, D: proof.D,
		Z1: proof.Z1, Z2: proof.Z2, Z3: proof.Z3,
	}
	buf, _ := cbor.Marshal(code)
	return &Proofbuf{Malbuf: buf}
}

func (p *Proofbuf) VerifyMal(group curve.Curve, h *hash.Hash, public Public) bool {
	if p == nil {
		return false
	}
	code := &proofCode{}
	if err := cbor.Unmarshal(p.Malbuf, code); err != nil {
		return false
	}
	y := group.NewPoint()
	if err := y.UnmarshalBinary(code.Y); err != nil {
		return false
	}
	proof := &Proof{
		Commitment: &Commitment{S: code.S, A: code.A, Y: y, D: code.D},
		Z1:         code.Z1, Z2: code.Z2, Z3: code.Z3,
	}
	return proof.Verify(group, h, public)
}
