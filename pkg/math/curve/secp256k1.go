package curve

import (
	"errors"
	"io"
	"math/big"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v3"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

// Secp256k1 is the secp256k1 group.
type Secp256k1 struct{}

var (
	secpOrder     = new(arith.Nat).SetBig(secp.S256().N)
	secpHalfOrder = new(arith.Nat).Rsh(secpOrder, 1, -1)
)

func (Secp256k1) Name() string { return "secp256k1" }

func (Secp256k1) NewPoint() Point { return &secp256k1Point{} }

func (Secp256k1) NewBasePoint() Point {
	return &secp256k1Point{
		x: new(big.Int).Set(secp.S256().Gx),
		y: new(big.Int).Set(secp.S256().Gy),
	}
}

func (Secp256k1) NewScalar() Scalar { return &secp256k1Scalar{} }

func (Secp256k1) ScalarBits() int { return 256 }

// SafeScalarBytes leaves 16 extra bytes so the reduction bias is ≤ 2⁻¹²⁸.
func (Secp256k1) SafeScalarBytes() int { return 48 }

func (Secp256k1) Order() *arith.Nat { return secpOrder.Clone() }

type secp256k1Scalar struct {
	v big.Int
}

func secpN() *big.Int { return secp.S256().N }

func (s *secp256k1Scalar) Curve() Curve { return Secp256k1{} }

func (s *secp256k1Scalar) other(t Scalar) *secp256k1Scalar {
	o, ok := t.(*secp256k1Scalar)
	if !ok {
		panic("curve: mixed scalar types")
	}
	return o
}

func (s *secp256k1Scalar) Add(t Scalar) Scalar {
	s.v.Add(&s.v, &s.other(t).v)
	s.v.Mod(&s.v, secpN())
	return s
}

func (s *secp256k1Scalar) Sub(t Scalar) Scalar {
	s.v.Sub(&s.v, &s.other(t).v)
	s.v.Mod(&s.v, secpN())
	return s
}

func (s *secp256k1Scalar) Mul(t Scalar) Scalar {
	s.v.Mul(&s.v, &s.other(t).v)
	s.v.Mod(&s.v, secpN())
	return s
}

func (s *secp256k1Scalar) Invert() Scalar {
	if s.v.ModInverse(&s.v, secpN()) == nil {
		s.v.SetUint64(0)
	}
	return s
}

func (s *secp256k1Scalar) Negate() Scalar {
	s.v.Neg(&s.v)
	s.v.Mod(&s.v, secpN())
	return s
}

func (s *secp256k1Scalar) Equal(t Scalar) bool {
	return s.v.Cmp(&s.other(t).v) == 0
}

func (s *secp256k1Scalar) IsZero() bool { return s.v.Sign() == 0 }

func (s *secp256k1Scalar) IsOverHalfOrder() bool {
	half := new(big.Int).Rsh(secpN(), 1)
	return s.v.Cmp(half) > 0
}

func (s *secp256k1Scalar) Set(t Scalar) Scalar {
	s.v.Set(&s.other(t).v)
	return s
}

func (s *secp256k1Scalar) SetNat(n *arith.Nat) Scalar {
	s.v.Mod(n.Big(), secpN())
	return s
}

func (s *secp256k1Scalar) Act(p Point) Point {
	q := p.(*secp256k1Point)
	if q.isIdentity() || s.v.Sign() == 0 {
		return &secp256k1Point{}
	}
	x, y := secp.S256().ScalarMult(q.x, q.y, s.v.Bytes())
	return pointFromAffine(x, y)
}

func (s *secp256k1Scalar) ActOnBase() Point {
	if s.v.Sign() == 0 {
		return &secp256k1Point{}
	}
	x, y := secp.S256().ScalarBaseMult(s.v.Bytes())
	return pointFromAffine(x, y)
}

func (s *secp256k1Scalar) Clear() {
	bits := s.v.Bits()
	for i := range bits {
		bits[i] = 0
	}
	s.v.SetUint64(0)
}

func (s *secp256k1Scalar) MarshalBinary() ([]byte, error) {
	out := make([]byte, 32)
	s.v.FillBytes(out)
	return out, nil
}

func (s *secp256k1Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return errors.New("curve: secp256k1 scalar must be 32 bytes")
	}
	s.v.SetBytes(data)
	if s.v.Cmp(secpN()) >= 0 {
		return errors.New("curve: scalar out of range")
	}
	return nil
}

func (s *secp256k1Scalar) WriteTo(w io.Writer) (int64, error) {
	buf, _ := s.MarshalBinary()
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*secp256k1Scalar) Domain() string { return "secp256k1 Scalar" }

// secp256k1Point stores affine coordinates; x == nil is the identity.
type secp256k1Point struct {
	x, y *big.Int
}

func pointFromAffine(x, y *big.Int) *secp256k1Point {
	if x == nil || (x.Sign() == 0 && y.Sign() == 0) {
		return &secp256k1Point{}
	}
	return &secp256k1Point{x: x, y: y}
}

func (p *secp256k1Point) Curve() Curve { return Secp256k1{} }

func (p *secp256k1Point) isIdentity() bool { return p.x == nil }

func (p *secp256k1Point) IsIdentity() bool { return p.isIdentity() }

func (p *secp256k1Point) Add(q Point) Point {
	o := q.(*secp256k1Point)
	if p.isIdentity() {
		return pointFromAffine(o.x, o.y)
	}
	if o.isIdentity() {
		return pointFromAffine(p.x, p.y)
	}
	// inverse points sum to the identity; the backend does not expect
	// this case
	if p.x.Cmp(o.x) == 0 && p.y.Cmp(o.y) != 0 {
		return &secp256k1Point{}
	}
	x, y := secp.S256().Add(p.x, p.y, o.x, o.y)
	return pointFromAffine(x, y)
}

func (p *secp256k1Point) Sub(q Point) Point {
	return p.Add(q.Negate())
}

func (p *secp256k1Point) Negate() Point {
	if p.isIdentity() {
		return &secp256k1Point{}
	}
	yNeg := new(big.Int).Sub(secp.S256().P, p.y)
	yNeg.Mod(yNeg, secp.S256().P)
	return &secp256k1Point{x: new(big.Int).Set(p.x), y: yNeg}
}

func (p *secp256k1Point) Equal(q Point) bool {
	o := q.(*secp256k1Point)
	if p.isIdentity() || o.isIdentity() {
		return p.isIdentity() == o.isIdentity()
	}
	return p.x.Cmp(o.x) == 0 && p.y.Cmp(o.y) == 0
}

func (p *secp256k1Point) XScalar() Scalar {
	if p.isIdentity() {
		return &secp256k1Scalar{}
	}
	s := &secp256k1Scalar{}
	s.v.Mod(p.x, secpN())
	return s
}

func (p *secp256k1Point) HasEvenY() bool {
	return !p.isIdentity() && p.y.Bit(0) == 0
}

func (p *secp256k1Point) XBytes() []byte {
	out := make([]byte, 32)
	if !p.isIdentity() {
		p.x.FillBytes(out)
	}
	return out
}

func (p *secp256k1Point) YBytes() []byte {
	out := make([]byte, 32)
	if !p.isIdentity() {
		p.y.FillBytes(out)
	}
	return out
}

// MarshalBinary uses compressed SEC1 form; the identity is one zero
// byte.
func (p *secp256k1Point) MarshalBinary() ([]byte, error) {
	if p.isIdentity() {
		return []byte{0}, nil
	}
	out := make([]byte, 33)
	out[0] = 2
	if p.y.Bit(0) == 1 {
		out[0] = 3
	}
	p.x.FillBytes(out[1:])
	return out, nil
}

func (p *secp256k1Point) UnmarshalBinary(data []byte) error {
	if len(data) == 1 && data[0] == 0 {
		p.x, p.y = nil, nil
		return nil
	}
	if len(data) != 33 || (data[0] != 2 && data[0] != 3) {
		return errors.New("curve: invalid compressed point")
	}
	pub, err := secp.ParsePubKey(data)
	if err != nil {
		return errors.New("curve: point not on secp256k1")
	}
	p.x = pub.X()
	p.y = pub.Y()
	return nil
}

func (p *secp256k1Point) WriteTo(w io.Writer) (int64, error) {
	buf, _ := p.MarshalBinary()
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*secp256k1Point) Domain() string { return "secp256k1 Point" }

// DecompressPoint reconstructs a point from its x coordinate and the
// parity of y. It is used by signature recovery.
func DecompressPoint(x *arith.Nat, oddY bool) (Point, error) {
	prefix := byte(2)
	if oddY {
		prefix = 3
	}
	buf := make([]byte, 33)
	buf[0] = prefix
	x.FillBytes(buf[1:])
	p := &secp256k1Point{}
	if err := p.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return p, nil
}
