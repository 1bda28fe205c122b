// Package params fixes the security parameters of the protocol.
//
// The constants follow the CGGMP21 parameter selection for 128-bit
// security: ℓ is the bit length of a curve scalar, ε the proof slack,
// and the Paillier modulus is at least 3072 bits (two 1536-bit Blum
// primes).
package params

const (
	// SecParam is the statistical security parameter κ.
	SecParam = 256
	// SecBytes = κ/8.
	SecBytes = SecParam / 8

	// L = ℓ, the bit length of a plaintext in the range proofs.
	L = 1 * SecParam
	// LPrime = ℓ', the bit length of the MtA mask β.
	LPrime = 5 * SecParam
	// Epsilon = ε, the slack added by the zero-knowledge range proofs.
	Epsilon = 2 * SecParam
	// LPlusEpsilon = ℓ+ε.
	LPlusEpsilon = L + Epsilon
	// LPrimePlusEpsilon = ℓ'+ε.
	LPrimePlusEpsilon = LPrime + Epsilon

	// BitsBlumPrime is the bit length of each Paillier prime factor.
	BitsBlumPrime = 1536
	// BitsPaillier is the bit length of a Paillier modulus N = p⋅q.
	BitsPaillier = 2 * BitsBlumPrime

	// BytesPaillier is the byte length of a Paillier modulus.
	BytesPaillier = BitsPaillier / 8
	// BytesCiphertext is the byte length of a Paillier ciphertext mod N².
	BytesCiphertext = 2 * BytesPaillier
	// BitsIntModN is the bit length of integers modulo N used in proofs.
	BitsIntModN = BitsPaillier
	// BytesIntModN is the byte length of integers modulo N.
	BytesIntModN = BitsIntModN / 8
)
