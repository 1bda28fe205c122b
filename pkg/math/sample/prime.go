package sample

import (
	cryptorand "crypto/rand"
	"io"
	"math/big"

	"github.com/ruocuoguo23/wallet-mpc/internal/params"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

// BlumPrime samples a prime p of params.BitsBlumPrime bits with
// p ≡ 3 (mod 4).
func BlumPrime(rand io.Reader) *arith.Nat {
	if rand == nil {
		rand = cryptorand.Reader
	}
	for {
		p, err := cryptorand.Prime(rand, params.BitsBlumPrime)
		if err != nil {
			continue
		}
		if new(big.Int).And(p, big.NewInt(3)).Int64() == 3 {
			return new(arith.Nat).SetBig(p)
		}
	}
}

// Paillier samples the two Blum prime factors of a Paillier modulus,
// in parallel when a pool is provided.
func Paillier(rand io.Reader, pl *pool.Pool) (p, q *arith.Nat) {
	if pl == nil {
		return BlumPrime(rand), BlumPrime(rand)
	}
	results := pl.Parallelize(2, func(int) interface{} {
		return BlumPrime(rand)
	})
	return results[0].(*arith.Nat), results[1].(*arith.Nat)
}
