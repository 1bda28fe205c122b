// Package arith provides the signed big-integer type used by the
// Paillier and zero-knowledge layers, together with a modulus type
// supporting CRT-accelerated exponentiation.
package arith

import (
	"errors"
	"io"
	"math/big"

	"github.com/ruocuoguo23/wallet-mpc/internal/params"
)

// Nat is a signed arbitrary-precision integer. The zero value holds 0
// and is ready to use as a receiver.
//
// All modular methods interpret their operands symmetrically: negative
// inputs are reduced into [0, m) first.
type Nat struct {
	i big.Int
}

// NewNat returns a Nat holding x.
func NewNat(x uint64) *Nat {
	return new(Nat).SetUint64(x)
}

// SetBytes interprets buf as a non-negative integer in big-endian order.
func (z *Nat) SetBytes(buf []byte) *Nat {
	z.i.SetBytes(buf)
	return z
}

// Bytes returns the absolute value of z in big-endian order.
func (z *Nat) Bytes() []byte {
	return z.i.Bytes()
}

// FillBytes writes the absolute value of z into buf, zero padded on the
// left. It panics if z does not fit.
func (z *Nat) FillBytes(buf []byte) []byte {
	return z.i.FillBytes(buf)
}

// SetUint64 sets z to x.
func (z *Nat) SetUint64(x uint64) *Nat {
	z.i.SetUint64(x)
	return z
}

// Uint64 returns the low 64 bits of z.
func (z *Nat) Uint64() uint64 {
	return z.i.Uint64()
}

// SetNat sets z to the value of x.
func (z *Nat) SetNat(x *Nat) *Nat {
	z.i.Set(&x.i)
	return z
}

// SetBig sets z to the value of x.
func (z *Nat) SetBig(x *big.Int) *Nat {
	z.i.Set(x)
	return z
}

// Big returns a copy of z as a big.Int.
func (z *Nat) Big() *big.Int {
	return new(big.Int).Set(&z.i)
}

// Clone returns a copy of z that can be mutated independently.
func (z *Nat) Clone() *Nat {
	return new(Nat).SetNat(z)
}

// Abs returns |z| in a new Nat.
func (z *Nat) Abs() *Nat {
	out := new(Nat)
	out.i.Abs(&z.i)
	return out
}

// Neg negates z in place when doit is non-zero and returns z.
func (z *Nat) Neg(doit int) *Nat {
	if doit != 0 {
		z.i.Neg(&z.i)
	}
	return z
}

// IsNegative reports whether z < 0.
func (z *Nat) IsNegative() bool {
	return z.i.Sign() < 0
}

// Add sets z = x + y. The cap argument is kept for call-site symmetry
// with the fixed-width API and is ignored.
func (z *Nat) Add(x, y *Nat, _ int) *Nat {
	z.i.Add(&x.i, &y.i)
	return z
}

// Sub sets z = x - y.
func (z *Nat) Sub(x, y *Nat, _ int) *Nat {
	z.i.Sub(&x.i, &y.i)
	return z
}

// Mul sets z = x ⋅ y.
func (z *Nat) Mul(x, y *Nat, _ int) *Nat {
	z.i.Mul(&x.i, &y.i)
	return z
}

// Div sets z = x / m, truncated.
func (z *Nat) Div(x, m *Nat) *Nat {
	z.i.Quo(&x.i, &m.i)
	return z
}

// Rsh sets z = x >> shift.
func (z *Nat) Rsh(x *Nat, shift uint, _ int) *Nat {
	z.i.Rsh(&x.i, shift)
	return z
}

// Lsh sets z = x << shift.
func (z *Nat) Lsh(x *Nat, shift uint, _ int) *Nat {
	z.i.Lsh(&x.i, shift)
	return z
}

// Mod sets z = x mod m, with 0 ≤ z < m.
func (z *Nat) Mod(x, m *Nat) *Nat {
	z.i.Mod(&x.i, &m.i)
	return z
}

// Mod1 reduces z in place modulo m and returns z.
func (z *Nat) Mod1(m *Nat) *Nat {
	z.i.Mod(&z.i, &m.i)
	return z
}

// ModAdd sets z = x + y (mod m).
func (z *Nat) ModAdd(x, y, m *Nat) *Nat {
	z.i.Add(&x.i, &y.i)
	z.i.Mod(&z.i, &m.i)
	return z
}

// ModSub sets z = x - y (mod m).
func (z *Nat) ModSub(x, y, m *Nat) *Nat {
	z.i.Sub(&x.i, &y.i)
	z.i.Mod(&z.i, &m.i)
	return z
}

// ModMul sets z = x ⋅ y (mod m).
func (z *Nat) ModMul(x, y, m *Nat) *Nat {
	z.i.Mul(&x.i, &y.i)
	z.i.Mod(&z.i, &m.i)
	return z
}

// ModNeg sets z = -x (mod m).
func (z *Nat) ModNeg(x, m *Nat) *Nat {
	z.i.Neg(&x.i)
	z.i.Mod(&z.i, &m.i)
	return z
}

// ModInverse sets z = x⁻¹ (mod m). z is set to 0 when no inverse exists.
func (z *Nat) ModInverse(x, m *Nat) *Nat {
	if z.i.ModInverse(&x.i, &m.i) == nil {
		z.i.SetUint64(0)
	}
	return z
}

// Exp sets z = x^|e| (mod m). The exponent is taken by absolute value;
// use ExpI when e may be negative.
func (z *Nat) Exp(x, e, m *Nat) *Nat {
	eAbs := new(big.Int).Abs(&e.i)
	z.i.Exp(&x.i, eAbs, &m.i)
	return z
}

// ExpI sets z = xᵉ (mod m), inverting the result when e < 0.
func (z *Nat) ExpI(x, e, m *Nat) *Nat {
	neg := e.i.Sign() < 0
	eAbs := new(big.Int).Abs(&e.i)
	z.i.Exp(&x.i, eAbs, &m.i)
	if neg {
		if z.i.ModInverse(&z.i, &m.i) == nil {
			z.i.SetUint64(0)
		}
	}
	return z
}

// Cmp compares z and y, returning -1, 0 or +1.
func (z *Nat) Cmp(y *Nat) int {
	return z.i.Cmp(&y.i)
}

// CmpMod compares |z| against the modulus m: -1 when |z| < m.
func (z *Nat) CmpMod(m *Nat) int {
	return new(big.Int).Abs(&z.i).Cmp(&m.i)
}

// Eq returns 1 when z == y.
func (z *Nat) Eq(y *Nat) int {
	if z.i.Cmp(&y.i) == 0 {
		return 1
	}
	return 0
}

// EqZero returns 1 when z == 0.
func (z *Nat) EqZero() int {
	if z.i.Sign() == 0 {
		return 1
	}
	return 0
}

// BitLen returns the bit length of |z|.
func (z *Nat) BitLen() int {
	return z.i.BitLen()
}

// Bit returns bit i of |z|.
func (z *Nat) Bit(i uint) uint {
	return z.i.Bit(int(i))
}

// Byte returns byte i of |z|, counted from the least significant end.
func (z *Nat) Byte(i int) byte {
	b := z.i.Bytes()
	if i >= len(b) {
		return 0
	}
	return b[len(b)-1-i]
}

// Coprime returns 1 when gcd(|x|, |y|) == 1.
func (x *Nat) Coprime(y *Nat) int {
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(&x.i), new(big.Int).Abs(&y.i))
	if g.Cmp(big.NewInt(1)) == 0 {
		return 1
	}
	return 0
}

// IsUnit returns 1 when z is invertible modulo m.
func (z *Nat) IsUnit(m *Nat) int {
	if z.i.Sign() == 0 {
		return 0
	}
	return z.Coprime(m)
}

// ProbablyPrime reports whether z is prime with error probability 4⁻ⁿ.
func (z *Nat) ProbablyPrime(n int) bool {
	return z.i.ProbablyPrime(n)
}

// SetModSymmetric sets z to x mod m, mapped into ±(m-1)/2.
func (z *Nat) SetModSymmetric(x, m *Nat) *Nat {
	z.i.Mod(&x.i, &m.i)
	half := new(big.Int).Rsh(&m.i, 1)
	if z.i.Cmp(half) > 0 {
		z.i.Sub(&z.i, &m.i)
	}
	return z
}

// Clear overwrites the limbs of z with zeros. Used to scrub ephemeral
// protocol secrets before a session's state is released.
func (z *Nat) Clear() {
	bits := z.i.Bits()
	for i := range bits {
		bits[i] = 0
	}
	z.i.SetUint64(0)
}

// MarshalBinary encodes z as a sign byte followed by |z| in big-endian
// order. Round payloads carry proof responses that can be negative, so
// the sign must survive the trip.
func (z *Nat) MarshalBinary() ([]byte, error) {
	sign := byte(0)
	if z.i.Sign() < 0 {
		sign = 1
	}
	return append([]byte{sign}, z.i.Bytes()...), nil
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (z *Nat) UnmarshalBinary(data []byte) error {
	if len(data) < 1 {
		return errors.New("arith: truncated Nat encoding")
	}
	z.i.SetBytes(data[1:])
	if data[0] == 1 {
		z.i.Neg(&z.i)
	}
	return nil
}

// WriteTo implements io.WriterTo for transcript hashing.
func (z *Nat) WriteTo(w io.Writer) (int64, error) {
	if z == nil {
		return 0, io.ErrUnexpectedEOF
	}
	buf, _ := z.MarshalBinary()
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Nat) Domain() string { return "Nat" }

func (z *Nat) String() string {
	return z.i.String()
}

// IsValidNatModN reports whether every argument lies in [1, N-1] and is
// coprime to N.
func IsValidNatModN(N *Nat, ints ...*Nat) bool {
	for _, n := range ints {
		if n == nil {
			return false
		}
		if n.i.Sign() != 1 {
			return false
		}
		if n.i.Cmp(&N.i) >= 0 {
			return false
		}
		if n.IsUnit(N) != 1 {
			return false
		}
	}
	return true
}

// IsInIntervalLEps reports whether n ∈ ±2^(ℓ+ε).
func IsInIntervalLEps(n *Nat) bool {
	return n != nil && n.BitLen() <= params.LPlusEpsilon
}

// IsInIntervalLPrimeEps reports whether n ∈ ±2^(ℓ'+ε).
func IsInIntervalLPrimeEps(n *Nat) bool {
	return n != nil && n.BitLen() <= params.LPrimePlusEpsilon
}
