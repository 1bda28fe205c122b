// Package zkenc proves that a Paillier ciphertext encrypts a plaintext
// in the ±2ˡ range ("enc" proof of CGGMP21).
package zkenc

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
	// K = Enc₀(k;ρ)
	K *paillier.Ciphertext

	Prover *paillier.PublicKey
	Aux    *pedersen.Parameters
}

type Private struct {
	// K = k, the plaintext of K
	K *arith.Nat
	// Rho = ρ, the nonce of K
	Rho *arith.Nat
}

type Commitment struct {
	// S = sᵏtᵘ (mod N̂)
	S *arith.Nat
	// A = Enc₀(α; r)
	A *paillier.Ciphertext
	// C = sᵅtᵞ (mod N̂)
	C *arith.Nat
}

type Proof struct {
	*Commitment
	// Z1 = α + e⋅k
	Z1 *arith.Nat
	// Z2 = r⋅ρᵉ (mod N₀)
	Z2 *arith.Nat
	// Z3 = γ + e⋅μ
	Z3 *arith.Nat
}

// Proofbuf carries the serialized proof inside round payloads.
type Proofbuf struct {
	Malbuf []byte
}

// IsValid performs the structural checks that precede verification.
func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil {
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

// NewProof proves that the plaintext of public.K lies in ±2ˡ⁺ᵉ.
func NewProof(group curve.Curve, h *hash.Hash, public Public, private Private) *Proof {
	N := public.Prover.N()
	NModulus := public.Prover.Modulus()

	alpha := sample.IntervalLEps(rand.Reader)
	r := sample.UnitModN(rand.Reader, N)
	mu := sample.IntervalLN(rand.Reader)
	gamma := sample.IntervalLEpsN(rand.Reader)

	commitment := &Commitment{
		S: public.Aux.Commit(private.K, mu),
		A: public.Prover.EncWithNonce(alpha, r),
		C: public.Aux.Commit(alpha, gamma),
	}

	e := challenge(h, group, public, commitment)

	// z1 = α + e⋅k
	z1 := new(arith.Nat).Mul(e, private.K, -1)
	z1.Add(z1, alpha, -1)
	// z2 = r⋅ρᵉ (mod N₀)
	z2 := new(arith.Nat).SetNat(NModulus.ExpI(private.Rho, e))
	z2.ModMul(z2, r, N)
	// z3 = γ + e⋅μ
	z3 := new(arith.Nat).Mul(e, mu, -1)
	z3.Add(z3, gamma, -1)

	return &Proof{Commitment: commitment, Z1: z1, Z2: z2, Z3: z3}
}

// Verify checks the proof against the public statement.
func (p *Proof) Verify(group curve.Curve, h *hash.Hash, public Public) bool {
	if !p.IsValid(public) {
		return false
	}
	if !arith.IsInIntervalLEps(p.Z1) {
		return false
	}

	e := challenge(h, group, public, p.Commitment)

	if !public.Aux.Verify(p.Z1, p.Z3, e, p.C, p.S) {
		return false
	}

	// Enc(z₁;z₂) == A ⊕ (e ⊙ K)
	lhs := public.Prover.EncWithNonce(p.Z1, p.Z2)
	rhs := public.K.Clone().Mul(public.Prover, e).Add(public.Prover, p.A)
	return lhs.Equal(rhs)
}

func challenge(h *hash.Hash, group curve.Curve, public Public, commitment *Commitment) *arith.Nat {
	_ = h.WriteAny(public.Aux, public.Prover, public.K,
		commitment.S, commitment.A, commitment.C)
	return sample.IntervalScalar(h.Digest(), group)
}

// NewProofMal creates a proof and serializes it for the wire.
func NewProofMal(group curve.Curve, h *hash.Hash, public Public, private Private) *Proofbuf {
	proof := NewProof(group, h, public, private)
	buf, _ := cbor.Marshal(proof)
	return &Proofbuf{Malbuf: buf}
}

// VerifyMal deserializes and verifies a proof received on the wire.
func (p *Proofbuf) VerifyMal(group curve.Curve, h *hash.Hash, public Public) bool {
	if p == nil {
		return false
	}
	proof := &Proof{}
	if err := cbor.Unmarshal(p.Malbuf, proof); err != nil {
		return false
	}
	return proof.Verify(group, h, public)
}
