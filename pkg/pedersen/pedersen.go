// Package pedersen implements the commitment parameters used as the
// auxiliary verifier data of the range proofs.
package pedersen

import (
	"fmt"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

type Error string

const (
	ErrNilFields    Error = "contains nil field"
	ErrSEqualT      Error = "S cannot be equal to T"
	ErrNotValidModN Error = "S and T must be in [1,…,N-1] and coprime to N"
)

func (e Error) Error() string {
	return fmt.Sprintf("pedersen: %s", string(e))
}

// Parameters is the tuple (N, s, t) with s = tᵏ (mod N) for a secret λ.
type Parameters struct {
	n    *arith.Modulus
	s, t *arith.Nat
}

// New wraps the given parameters. Assumes ValidateParameters passed.
func New(n *arith.Nat, s, t *arith.Nat) *Parameters {
	return &Parameters{n: arith.ModulusFromN(n), s: s, t: t}
}

// ValidateParameters rejects nil fields, s or t outside ℤₙˣ, and s = t.
func ValidateParameters(n, s, t *arith.Nat) error {
	if n == nil || s == nil || t == nil {
		return ErrNilFields
	}
	if !arith.IsValidNatModN(n, s, t) {
		return ErrNotValidModN
	}
	if s.Cmp(t) == 0 {
		return ErrSEqualT
	}
	return nil
}

// N returns the modulus.
func (p *Parameters) N() *arith.Nat { return p.n.Nat() }

// S returns the first base.
func (p *Parameters) S() *arith.Nat { return p.s }

// T returns the second base.
func (p *Parameters) T() *arith.Nat { return p.t }

// Commit computes sˣ tʸ (mod N). The exponents stay secret; the
// commitment hides them.
func (p *Parameters) Commit(x, y *arith.Nat) *arith.Nat {
	sx := p.n.ExpI(p.s, x)
	ty := p.n.ExpI(p.t, y)
	return new(arith.Nat).ModMul(sx, ty, p.n.Nat())
}

// Verify checks sᵃ tᵇ ≡ S Tᵉ (mod N).
func (p *Parameters) Verify(a, b, e, S, T *arith.Nat) bool {
	if a == nil || b == nil || e == nil || S == nil || T == nil {
		return false
	}
	n := p.n.Nat()
	if !arith.IsValidNatModN(n, S, T) {
		return false
	}
	sa := p.n.ExpI(p.s, a)
	tb := p.n.ExpI(p.t, b)
	lhs := new(arith.Nat).ModMul(sa, tb, n)

	te := p.n.ExpI(T, e)
	rhs := new(arith.Nat).ModMul(te, S, n)
	return lhs.Eq(rhs) == 1
}

// WriteTo implements io.WriterTo for transcript hashing.
func (p *Parameters) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	total := int64(0)
	for _, i := range []*arith.Nat{p.n.Nat(), p.s, p.t} {
		n, err := w.Write(i.Bytes())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Domain implements hash.WriterToWithDomain.
func (*Parameters) Domain() string { return "Pedersen Parameters" }

// MarshalBinary encodes (N, s, t).
func (p *Parameters) MarshalBinary() ([]byte, error) {
	n := p.n.Nat().Bytes()
	s := p.s.Bytes()
	t := p.t.Bytes()
	out := make([]byte, 0, 6+len(n)+len(s)+len(t))
	for _, part := range [][]byte{n, s, t} {
		out = append(out, byte(len(part)>>8), byte(len(part)))
		out = append(out, part...)
	}
	return out, nil
}

// UnmarshalBinary decodes (N, s, t).
func (p *Parameters) UnmarshalBinary(data []byte) error {
	parts := make([]*arith.Nat, 0, 3)
	for i := 0; i < 3; i++ {
		if len(data) < 2 {
			return ErrNilFields
		}
		l := int(data[0])<<8 | int(data[1])
		data = data[2:]
		if len(data) < l {
			return ErrNilFields
		}
		parts = append(parts, new(arith.Nat).SetBytes(data[:l]))
		data = data[l:]
	}
	p.n = arith.ModulusFromN(parts[0])
	p.s = parts[1]
	p.t = parts[2]
	return nil
}
