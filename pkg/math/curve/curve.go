// Package curve hides the elliptic curve implementation behind a small
// capability interface so a second curve can be added without touching
// the protocol rounds.
package curve

import (
	"encoding"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

// Curve represents the group used for signing.
type Curve interface {
	NewPoint() Point
	NewBasePoint() Point
	NewScalar() Scalar
	Name() string
	// ScalarBits is the number of significant bits in a scalar.
	ScalarBits() int
	// SafeScalarBytes is the number of random bytes to sample so that
	// reduction modulo the order has negligible bias.
	SafeScalarBytes() int
	// Order returns the group order q.
	Order() *arith.Nat
}

// Scalar is an element of ℤ_q. Mutating methods operate on the receiver
// and return it.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	io.WriterTo

	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Negate() Scalar
	Equal(Scalar) bool
	IsZero() bool
	// IsOverHalfOrder reports whether the scalar exceeds q/2, the
	// low-s boundary.
	IsOverHalfOrder() bool
	Set(Scalar) Scalar
	SetNat(*arith.Nat) Scalar
	// Act returns s⋅P without mutating the receiver.
	Act(Point) Point
	// ActOnBase returns s⋅G.
	ActOnBase() Point
	// Clear scrubs the scalar value in place.
	Clear()
}

// Point is a group element, including the identity.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	io.WriterTo

	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Equal(Point) bool
	IsIdentity() bool
	// XScalar returns the affine x coordinate reduced modulo q.
	XScalar() Scalar
	// HasEvenY reports the parity of the affine y coordinate; used to
	// derive the signature recovery id.
	HasEvenY() bool
	// XBytes and YBytes return the 32-byte affine coordinates.
	XBytes() []byte
	YBytes() []byte
}

// MakeInt lifts a scalar into an arith.Nat in [0, q).
func MakeInt(s Scalar) *arith.Nat {
	b, _ := s.MarshalBinary()
	return new(arith.Nat).SetBytes(b)
}

// FromHash converts a digest to a scalar by reducing it modulo q, as in
// the conversion step of ECDSA.
func FromHash(group Curve, h []byte) Scalar {
	n := new(arith.Nat).SetBytes(h)
	return group.NewScalar().SetNat(n)
}
