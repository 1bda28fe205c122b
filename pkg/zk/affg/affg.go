// Package zkaffg proves correctness of a Paillier affine operation
// whose multiplicative coefficient is committed as a group element
// ("aff-g" proof of CGGMP21). It accompanies the χ leg of the MtA.
package zkaffg

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
	// Kv is the receiver's ciphertext operated on, under Nᵥ
	Kv *paillier.Ciphertext
	// Dv = (x ⨀ Kv) ⨁ Encᵥ(y;s)
	Dv *paillier.Ciphertext
	// Fp = Encₚ(y;r)
	Fp *paillier.Ciphertext
	// Xp = x⋅G
	Xp curve.Point

	Prover, Verifier *paillier.PublicKey
	Aux              *pedersen.Parameters
}

type Private struct {
	// X = x, the multiplicative share
	X *arith.Nat
	// Y = y, the additive mask (−β)
	Y *arith.Nat
	// S is the nonce of Dv's fresh term
	S *arith.Nat
	// R is the nonce of Fp
	R *arith.Nat
}

type Commitment struct {
	// A = (α ⊙ Kv) ⊕ Encᵥ(β; ρ)
	A *paillier.Ciphertext
	// Bx = α⋅G
	Bx curve.Point
	// By = Encₚ(β; ρy)
	By *paillier.Ciphertext
	// E = sᵅtᵞ
	E *arith.Nat
	// S = sˣtᵐ
	S *arith.Nat
	// F = sᵝtᵟ
	F *arith.Nat
	// T = sʸtᵠ
	T *arith.Nat
}

type Proof struct {
	*Commitment
	// Z1 = α + e⋅x
	Z1 *arith.Nat
	// Z2 = β + e⋅y
	Z2 *arith.Nat
	// Z3 = γ + e⋅m
	Z3 *arith.Nat
	// Z4 = δ + e⋅μ
	Z4 *arith.Nat
	// W = ρ⋅sᵉ (mod Nᵥ)
	W *arith.Nat
	// Wy = ρy⋅rᵉ (mod Nₚ)
	Wy *arith.Nat
}

// proofCode is the wire form; the point is carried as compressed bytes.
type proofCode struct {
	A  *paillier.Ciphertext
	Bx []byte
	By *paillier.Ciphertext
	E  *arith.Nat
	S  *arith.Nat
	F  *arith.Nat
	T  *arith.Nat
	Z1 *arith.Nat
	Z2 *arith.Nat
	Z3 *arith.Nat
	Z4 *arith.Nat
	W  *arith.Nat
	Wy *arith.Nat
}

type Proofbuf struct {
	Malbuf []byte
}

func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil || p.Bx == nil {
		return false
	}
	if !public.Verifier.ValidateCiphertexts(p.A) {
		return false
	}
	if !public.Prover.ValidateCiphertexts(p.By) {
		return false
	}
	if !arith.IsValidNatModN(public.Verifier.N(), p.W) {
		return false
	}
	if !arith.IsValidNatModN(public.Prover.N(), p.Wy) {
		return false
	}
	return true
}

func NewProof(group curve.Curve, h *hash.Hash, public Public, private Private) *Proof {
	N0 := public.Verifier.N()
	N1 := public.Prover.N()

	alpha := sample.IntervalLEps(rand.Reader)
	beta := sample.IntervalLPrimeEps(rand.Reader)

	rho := sample.UnitModN(rand.Reader, N0)
	rhoY := sample.UnitModN(rand.Reader, N1)

	gamma := sample.IntervalLEpsN(rand.Reader)
	m := sample.IntervalLN(rand.Reader)
	delta := sample.IntervalLEpsN(rand.Reader)
	mu := sample.IntervalLN(rand.Reader)

	// A = (α ⊙ Kv) ⊕ Encᵥ(β; ρ)
	A := public.Kv.Clone().Mul(public.Verifier, alpha)
	A.Add(public.Verifier, public.Verifier.EncWithNonce(beta, rho))

	commitment := &Commitment{
		A:  A,
		Bx: group.NewScalar().SetNat(alpha.Clone()).ActOnBase(),
		By: public.Prover.EncWithNonce(beta, rhoY),
		E:  public.Aux.Commit(alpha, gamma),
		S:  public.Aux.Commit(private.X, m),
		F:  public.Aux.Commit(beta, delta),
		T:  public.Aux.Commit(private.Y, mu),
	}

	e := challenge(h, group, public, commitment)

	z1 := new(arith.Nat).Mul(e, private.X, -1)
	z1.Add(z1, alpha, -1)
	z2 := new(arith.Nat).Mul(e, private.Y, -1)
	z2.Add(z2, beta, -1)
	z3 := new(arith.Nat).Mul(e, m, -1)
	z3.Add(z3, gamma, -1)
	z4 := new(arith.Nat).Mul(e, mu, -1)
	z4.Add(z4, delta, -1)
	// w = ρ⋅sᵉ (mod N₀)
	w := public.Verifier.Modulus().ExpI(private.S, e)
	w.ModMul(w, rho, N0)
	// wy = ρy⋅rᵉ (mod N₁)
	wy := public.Prover.Modulus().ExpI(private.R, e)
	wy.ModMul(wy, rhoY, N1)

	return &Proof{
		Commitment: commitment,
		Z1:         z1, Z2: z2, Z3: z3, Z4: z4,
		W: w, Wy: wy,
	}
}

func (p *Proof) Verify(group curve.Curve, h *hash.Hash, public Public) bool {
	if !p.IsValid(public) {
		return false
	}
	if !arith.IsInIntervalLEps(p.Z1) {
		return false
	}
	if !arith.IsInIntervalLPrimeEps(p.Z2) {
		return false
	}

	e := challenge(h, group, public, p.Commitment)

	if !public.Aux.Verify(p.Z1, p.Z3, e, p.E, p.S) {
		return false
	}
	if !public.Aux.Verify(p.Z2, p.Z4, e, p.F, p.T) {
		return false
	}

	// (z₁ ⊙ Kv) ⊕ Encᵥ(z₂;w) == A ⊕ (e ⊙ Dv)
	lhs := public.Kv.Clone().Mul(public.Verifier, p.Z1)
	lhs.Add(public.Verifier, public.Verifier.EncWithNonce(p.Z2, p.W))
	rhs := public.Dv.Clone().Mul(public.Verifier, e)
	rhs.Add(public.Verifier, p.A)
	if !lhs.Equal(rhs) {
		return false
	}

	// z₁⋅G == Bx + e⋅Xp
	lhsPoint := group.NewScalar().SetNat(p.Z1.Clone()).ActOnBase()
	rhsPoint := group.NewScalar().SetNat(e.Clone()).Act(public.Xp).Add(p.Bx)
	if !lhsPoint.Equal(rhsPoint) {
		return false
	}

	// Encₚ(z₂;wy) == By ⊕ (e ⊙ Fp)
	lhsEnc := public.Prover.EncWithNonce(p.Z2, p.Wy)
	rhsEnc := public.Fp.Clone().Mul(public.Prover, e)
	rhsEnc.Add(public.Prover, p.By)
	return lhsEnc.Equal(rhsEnc)
}

func challenge(h *hash.Hash, group curve.Curve, public Public, commitment *Commitment) *arith.Nat {
	_ = h.WriteAny(public.Aux, public.Prover, public.Verifier,
		public.Kv, public.Dv, public.Fp, public.Xp,
		commitment.A, commitment.Bx, commitment.By,
		commitment.E, commitment.S, commitment.F, commitment.T)
	return sample.IntervalScalar(h.Digest(), group)
}

func NewProofMal(group curve.Curve, h *hash.Hash, public Public, private Private) *Proofbuf {
	proof := NewProof(group, h, public, private)
	bx, _ := proof.Bx.MarshalBinary()
	code := &proofCode{
		A: proof.A, Bx: bx, By: proof.By,
		E: proof.E, S: proof.S, F: proof.F, T: proof.T,
		Z1: proof.Z1, Z2: proof.Z2, Z3: proof.Z3, Z4: proof.Z4,
		W: proof.W, Wy: proof.Wy,
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
	bx := group.NewPoint()
	if err := bx.UnmarshalBinary(code.Bx); err != nil {
		return false
	}
	proof := &Proof{
		Commitment: &Commitment{
			A: code.A, Bx: bx, By: code.By,
			E: code.E, S: code.S, F: code.F, T: code.T,
		},
		Z1: code.Z1, Z2: code.Z2, Z3: code.Z3, Z4: code.Z4,
		W: code.W, Wy: code.Wy,
	}
	return proof.Verify(group, h, public)
}
