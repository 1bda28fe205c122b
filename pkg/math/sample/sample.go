// Package sample draws the random values needed by the protocol:
// scalars, units modulo N, proof intervals and Paillier primes.
package sample

import (
	"fmt"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
)

const maxIterations = 255

// ErrMaxIterations is reported when rejection sampling fails to
// terminate, which indicates a broken entropy source.
var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// ModN samples a uniform element of ℤₙ.
func ModN(rand io.Reader, n *arith.Nat) *arith.Nat {
	out := new(arith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for {
		mustReadBits(rand, buf)
		out.SetBytes(buf)
		if out.CmpMod(n) == -1 {
			return out
		}
	}
}

// UnitModN samples u ∈ ℤₙˣ.
func UnitModN(rand io.Reader, n *arith.Nat) *arith.Nat {
	out := new(arith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for i := 0; i < maxIterations; i++ {
		mustReadBits(rand, buf)
		out.SetBytes(buf)
		if out.IsUnit(n) == 1 {
			return out
		}
	}
	panic(ErrMaxIterations)
}

// Pedersen generates s, t, λ with s = tᵏ (mod n), given ϕ(n).
func Pedersen(rand io.Reader, phi, n *arith.Nat) (s, t, lambda *arith.Nat) {
	lambda = ModN(rand, phi)
	tau := UnitModN(rand, n)
	// t = τ² mod N
	t = new(arith.Nat).ModMul(tau, tau, n)
	// s = tᵏ mod N
	s = new(arith.Nat).Exp(t, lambda, n)
	return
}

// Scalar samples a uniform curve scalar.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	buf := make([]byte, group.SafeScalarBytes())
	mustReadBits(rand, buf)
	n := new(arith.Nat).SetBytes(buf)
	return group.NewScalar().SetNat(n)
}

// ScalarUnit samples a uniform non-zero curve scalar.
func ScalarUnit(rand io.Reader, group curve.Curve) curve.Scalar {
	for i := 0; i < maxIterations; i++ {
		s := Scalar(rand, group)
		if !s.IsZero() {
			return s
		}
	}
	panic(ErrMaxIterations)
}

// ScalarPointPair samples x and returns (x, x⋅G).
func ScalarPointPair(rand io.Reader, group curve.Curve) (curve.Scalar, curve.Point) {
	s := Scalar(rand, group)
	return s, s.ActOnBase()
}

// IntervalScalar samples an integer in ±2^(scalar bits).
func IntervalScalar(rand io.Reader, group curve.Curve) *arith.Nat {
	return sampleNeg(rand, group.ScalarBits())
}
