package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ruocuoguo23/wallet-mpc/internal/params"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

var (
	ErrPrimeBadLength = errors.New("paillier: prime factor has the wrong length")
	ErrNotBlum        = errors.New("paillier: prime factor is not 3 (mod 4)")
	ErrPrimeNil       = errors.New("paillier: prime is nil")
)

// SecretKey holds the factorization of N, enabling decryption and
// CRT-accelerated exponentiation.
type SecretKey struct {
	*PublicKey
	// p, q with N = p⋅q
	p, q *arith.Nat
	// phi = ϕ(N) = (p-1)(q-1)
	phi *arith.Nat
	// phiInv = ϕ⁻¹ (mod N)
	phiInv *arith.Nat
}

// KeyGen samples a fresh Paillier key pair.
func KeyGen(pl *pool.Pool) (*PublicKey, *SecretKey) {
	sk := NewSecretKey(pl)
	return sk.PublicKey, sk
}

// NewSecretKey samples suitable primes and builds the key.
func NewSecretKey(pl *pool.Pool) *SecretKey {
	return NewSecretKeyFromPrimes(sample.Paillier(rand.Reader, pl))
}

// NewSecretKeyFromPrimes assembles a key from the prime factors.
func NewSecretKeyFromPrimes(P, Q *arith.Nat) *SecretKey {
	one := arith.NewNat(1)
	n := new(arith.Nat).Mul(P, Q, -1)
	pMinus1 := new(arith.Nat).Sub(P, one, -1)
	qMinus1 := new(arith.Nat).Sub(Q, one, -1)
	phi := new(arith.Nat).Mul(pMinus1, qMinus1, -1)

	pk := &PublicKey{
		n:        arith.ModulusFromN(n),
		nSquared: arith.ModulusFromFactors(new(arith.Nat).Mul(P, P, -1), new(arith.Nat).Mul(Q, Q, -1)),
		nPlusOne: new(arith.Nat).Add(n, one, -1),
	}
	return &SecretKey{
		PublicKey: pk,
		p:         P,
		q:         Q,
		phi:       phi,
		phiInv:    new(arith.Nat).ModInverse(phi, n),
	}
}

// P returns the first prime factor.
func (sk *SecretKey) P() *arith.Nat { return sk.p }

// Q returns the second prime factor.
func (sk *SecretKey) Q() *arith.Nat { return sk.q }

// Phi returns ϕ(N).
func (sk *SecretKey) Phi() *arith.Nat { return sk.phi }

// Dec decrypts ct and returns the plaintext in ±(N-1)/2.
func (sk *SecretKey) Dec(ct *Ciphertext) (*arith.Nat, error) {
	if !sk.PublicKey.ValidateCiphertexts(ct) {
		return nil, errors.New("paillier: cannot decrypt invalid ciphertext")
	}
	n := sk.PublicKey.N()
	one := arith.NewNat(1)

	// r = ctᵠ (mod N²)
	result := sk.nSquared.Exp(ct.c, sk.phi)
	// r = (ctᵠ - 1) / N
	result.Sub(result, one, -1)
	result.Div(result, n)
	// r = [(ctᵠ - 1)/N] ⋅ ϕ⁻¹ (mod N)
	result.ModMul(result, sk.phiInv, n)
	return new(arith.Nat).SetModSymmetric(result, n), nil
}

// DecWithRandomness returns the plaintext together with the nonce used
// at encryption time. Needed by the identifiable-abort proofs.
func (sk *SecretKey) DecWithRandomness(ct *Ciphertext) (*arith.Nat, *arith.Nat, error) {
	m, err := sk.Dec(ct)
	if err != nil {
		return nil, nil, err
	}
	mNeg := m.Clone().Neg(1)
	// x = ct⋅(N+1)⁻ᵐ (mod N)
	x := new(arith.Nat).ExpI(sk.nPlusOne, mNeg, sk.PublicKey.N())
	x.ModMul(x, ct.c, sk.PublicKey.N())
	// ρ = x^(N⁻¹ mod ϕ) (mod N)
	nInv := new(arith.Nat).ModInverse(sk.PublicKey.N(), sk.phi)
	r := sk.n.Exp(x, nInv)
	return m, r, nil
}

// GeneratePedersen derives Pedersen parameters from this modulus.
func (sk *SecretKey) GeneratePedersen() (*pedersen.Parameters, *arith.Nat) {
	s, t, lambda := sample.Pedersen(rand.Reader, sk.phi, sk.PublicKey.N())
	return pedersen.New(sk.PublicKey.N(), s, t), lambda
}

// ValidatePrime checks that p has the right size and p ≡ 3 (mod 4).
func ValidatePrime(p *arith.Nat) error {
	if p == nil {
		return ErrPrimeNil
	}
	if bits := p.BitLen(); bits != params.BitsBlumPrime {
		return fmt.Errorf("invalid prime size: have %d, need %d: %w", bits, params.BitsBlumPrime, ErrPrimeBadLength)
	}
	if p.Byte(0)&0b11 != 3 {
		return ErrNotBlum
	}
	return nil
}
