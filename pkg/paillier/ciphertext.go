package paillier

import (
	"crypto/rand"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
)

// Ciphertext is (1+N)ᵐ ρᴺ (mod N²).
type Ciphertext struct {
	c *arith.Nat
}

// Add sets ct to the homomorphic sum ct ⊕ ct₂ = ct ⋅ ct₂ (mod N²).
func (ct *Ciphertext) Add(pk *PublicKey, ct2 *Ciphertext) *Ciphertext {
	if ct2 == nil {
		return ct
	}
	ct.c.ModMul(ct.c, ct2.c, pk.nSquared.Nat())
	return ct
}

// Mul sets ct to the homomorphic product k ⊙ ct = ctᵏ (mod N²).
func (ct *Ciphertext) Mul(pk *PublicKey, k *arith.Nat) *Ciphertext {
	if k == nil {
		return ct
	}
	ct.c = pk.nSquared.ExpI(ct.c, k)
	return ct
}

// Equal reports ct ≡ ct₂ (mod N²).
func (ct *Ciphertext) Equal(ct2 *Ciphertext) bool {
	return ct.c.Eq(ct2.c) == 1
}

// Clone returns an independent copy.
func (ct *Ciphertext) Clone() *Ciphertext {
	return &Ciphertext{c: ct.c.Clone()}
}

// Randomize multiplies the embedded nonce by a fresh one (or by the
// provided one) and returns the nonce used.
func (ct *Ciphertext) Randomize(pk *PublicKey, nonce *arith.Nat) *arith.Nat {
	if nonce == nil {
		nonce = sample.UnitModN(rand.Reader, pk.N())
	}
	// ct ← ct ⋅ nonceᴺ (mod N²)
	tmp := pk.nSquared.Exp(nonce, pk.N())
	ct.c.ModMul(ct.c, tmp, pk.nSquared.Nat())
	return nonce
}

// Nat returns a copy of the raw ciphertext value.
func (ct *Ciphertext) Nat() *arith.Nat {
	return ct.c.Clone()
}

// WriteTo implements io.WriterTo for transcript hashing.
func (ct *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	if ct == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(ct.c.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Ciphertext) Domain() string { return "Paillier Ciphertext" }

func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	return ct.c.MarshalBinary()
}

func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	ct.c = new(arith.Nat)
	return ct.c.UnmarshalBinary(data)
}
