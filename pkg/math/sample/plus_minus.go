package sample

import (
	"io"

	"github.com/ruocuoguo23/wallet-mpc/internal/params"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

func sampleNeg(rand io.Reader, bits int) *arith.Nat {
	buf := make([]byte, bits/8+1)
	mustReadBits(rand, buf)
	neg := int(buf[0] & 1)
	out := new(arith.Nat).SetBytes(buf[1:])
	out.Neg(neg)
	return out
}

// IntervalL samples from ±2ˡ.
func IntervalL(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.L)
}

// IntervalLPrime samples from ±2ˡ'.
func IntervalLPrime(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.LPrime)
}

// IntervalLEps samples from ±2ˡ⁺ᵉ.
func IntervalLEps(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.LPlusEpsilon)
}

// IntervalLPrimeEps samples from ±2ˡ'⁺ᵉ.
func IntervalLPrimeEps(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.LPrimePlusEpsilon)
}

// IntervalLN samples from ±2ˡ⋅N for a Paillier-sized N.
func IntervalLN(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.L+params.BitsIntModN)
}

// IntervalLEpsN samples from ±2ˡ⁺ᵉ⋅N for a Paillier-sized N.
func IntervalLEpsN(rand io.Reader) *arith.Nat {
	return sampleNeg(rand, params.LPlusEpsilon+params.BitsIntModN)
}
