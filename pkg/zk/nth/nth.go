// Package zknth proves knowledge of ρ with R = ρᴺ (mod N²), i.e. that
// R is an N-th residue. Used when decryptions are opened during an
// identifiable abort.
package zknth

import (
	"crypto/rand"

	"github.com/fxamacker/cbor/v2"

	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
)

type Public struct {
	// N is the Paillier public key
	N *paillier.PublicKey
	// R = ρᴺ (mod N²)
	R *arith.Nat
}

type Private struct {
	// Rho = ρ
	Rho *arith.Nat
}

type Commitment struct {
	// A = rᴺ (mod N²)
	A *arith.Nat
}

type Proof struct {
	*Commitment
	// Z = r⋅ρᵉ (mod N)
	Z *arith.Nat
}

type Proofbuf struct {
	Malbuf []byte
}

func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil {
		return false
	}
	if !arith.IsValidNatModN(public.N.ModulusSquared().Nat(), p.A) {
		return false
	}
	if !arith.IsValidNatModN(public.N.N(), p.Z) {
		return false
	}
	return true
}

func NewProof(h *hash.Hash, public Public, private Private) *Proof {
	N := public.N.N()
	r := sample.UnitModN(rand.Reader, N)
	// A = rᴺ (mod N²)
	A := public.N.ModulusSquared().Exp(r, N)

	commitment := &Commitment{A: A}
	e := challenge(h, public, commitment)

	// z = r⋅ρᵉ (mod N)
	z := public.N.Modulus().ExpI(private.Rho, e)
	z.ModMul(z, r, N)
	return &Proof{Commitment: commitment, Z: z}
}

func (p *Proof) Verify(h *hash.Hash, public Public) bool {
	if !p.IsValid(public) {
		return false
	}
	e := challenge(h, public, p.Commitment)

	// zᴺ == A⋅Rᵉ (mod N²)
	nSquared := public.N.ModulusSquared()
	lhs := nSquared.Exp(p.Z, public.N.N())
	rhs := nSquared.ExpI(public.R, e)
	rhs.ModMul(rhs, p.A, nSquared.Nat())
	return lhs.Eq(rhs) == 1
}

func challenge(h *hash.Hash, public Public, commitment *Commitment) *arith.Nat {
	_ = h.WriteAny(public.N, public.R, commitment.A)
	// the challenge is a positive SecParam-bit integer
	buf := make([]byte, 32)
	_, _ = h.Digest().Read(buf)
	return new(arith.Nat).SetBytes(buf)
}

func NewProofMal(h *hash.Hash, public Public, private Private) *Proofbuf {
	proof := NewProof(h, public, private)
	buf, _ := cbor.Marshal(proof)
	return &Proofbuf{Malbuf: buf}
}

func (p *Proofbuf) VerifyMal(h *hash.Hash, public Public) bool {
	if p == nil {
		return false
	}
	proof := &Proof{}
	if err := cbor.Unmarshal(p.Malbuf, proof); err != nil {
		return false
	}
	return proof.Verify(h, public)
}
