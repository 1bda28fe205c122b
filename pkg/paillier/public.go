// Package paillier implements the additively homomorphic cryptosystem
// underlying the MtA sub-protocol and its range proofs.
package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/internal/params"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
)

var (
	ErrPaillierLength = errors.New("paillier: wrong bit length of modulus N")
	ErrPaillierEven   = errors.New("paillier: modulus N is even")
	ErrPaillierNil    = errors.New("paillier: modulus N is nil")
)

// PublicKey is a Paillier public key: the modulus N with cached N² and
// N+1.
type PublicKey struct {
	n        *arith.Modulus
	nSquared *arith.Modulus
	// nPlusOne = N + 1, the plaintext base
	nPlusOne *arith.Nat
}

// NewPublicKeyFromN wraps a modulus N.
func NewPublicKeyFromN(n *arith.Nat) *PublicKey {
	nSquared := new(arith.Nat).Mul(n, n, -1)
	return &PublicKey{
		n:        arith.ModulusFromN(n),
		nSquared: arith.ModulusFromN(nSquared),
		nPlusOne: new(arith.Nat).Add(n, arith.NewNat(1), -1),
	}
}

// ValidateN checks the bit length and parity of a candidate modulus.
func ValidateN(n *arith.Nat) error {
	if n == nil {
		return ErrPaillierNil
	}
	if bits := n.BitLen(); bits != params.BitsPaillier {
		return fmt.Errorf("have: %d, need %d: %w", bits, params.BitsPaillier, ErrPaillierLength)
	}
	if n.Bit(0) != 1 {
		return ErrPaillierEven
	}
	return nil
}

// N is the public modulus.
func (pk *PublicKey) N() *arith.Nat { return pk.n.Nat() }

// Modulus returns N as a modulus usable for exponentiation.
func (pk *PublicKey) Modulus() *arith.Modulus { return pk.n }

// ModulusSquared returns N².
func (pk *PublicKey) ModulusSquared() *arith.Modulus { return pk.nSquared }

// Enc encrypts m with a fresh nonce and returns both.
// The plaintext must be in ±(N-1)/2.
func (pk *PublicKey) Enc(m *arith.Nat) (*Ciphertext, *arith.Nat) {
	nonce := sample.UnitModN(rand.Reader, pk.N())
	return pk.EncWithNonce(m, nonce), nonce
}

// EncWithNonce computes ct = (1+N)ᵐ ρᴺ (mod N²).
func (pk *PublicKey) EncWithNonce(m, nonce *arith.Nat) *Ciphertext {
	nHalf := new(arith.Nat).Rsh(pk.N(), 1, -1)
	if m.Abs().Cmp(nHalf) == 1 {
		panic("paillier: plaintext outside of range ±(N-1)/2")
	}
	// (N+1)ᵐ mod N²
	c := pk.nSquared.ExpI(pk.nPlusOne, m)
	// ρᴺ mod N²
	rhoN := pk.nSquared.Exp(nonce, pk.N())
	out := new(arith.Nat).ModMul(c, rhoN, pk.nSquared.Nat())
	return &Ciphertext{c: out}
}

// Equal reports whether the two keys share a modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.N().Eq(other.N()) == 1
}

// ValidateCiphertexts checks ct ∈ [1, N²-1] with gcd(ct, N²) = 1.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		if ct.c.CmpMod(pk.nSquared.Nat()) != -1 {
			return false
		}
		if ct.c.IsUnit(pk.nSquared.Nat()) != 1 {
			return false
		}
	}
	return true
}

// WriteTo implements io.WriterTo for transcript hashing.
func (pk *PublicKey) WriteTo(w io.Writer) (int64, error) {
	if pk == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(pk.N().Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*PublicKey) Domain() string { return "Paillier PublicKey" }

// MarshalBinary encodes the modulus.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return pk.N().Bytes(), nil
}

// UnmarshalBinary rebuilds the key from a modulus encoding.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	n := new(arith.Nat).SetBytes(data)
	*pk = *NewPublicKeyFromN(n)
	return nil
}
