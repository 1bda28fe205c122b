package mta_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/mta"
	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	zkaffg "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affg"
	zkaffp "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affp"
)

// TestMtAAffG checks the χ-leg conversion: sender share a, receiver
// share b, resulting in α + β = a⋅b.
func TestMtAAffG(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	sender := shares[0].PaillierSecret()
	receiver := shares[1].PaillierSecret()
	aux := shares[1].Pedersen(2)

	a := sample.IntervalL(rand.Reader)
	A := group.NewScalar().SetNat(a.Clone()).ActOnBase()
	b := sample.IntervalL(rand.Reader)
	B, _ := receiver.Enc(b)

	beta, D, F, proof := mta.ProveAffG(group, hash.New(), a, A, B, sender, receiver.PublicKey, aux)

	// receiver verifies and decrypts its additive share
	ok := proof.VerifyMal(group, hash.New(), zkaffg.Public{
		Kv: B, Dv: D, Fp: F, Xp: A,
		Prover: sender.PublicKey, Verifier: receiver.PublicKey, Aux: aux,
	})
	assert.True(t, ok)

	alpha, err := receiver.Dec(D)
	require.NoError(t, err)

	// α + β == a⋅b
	lhs := new(arith.Nat).Add(alpha, beta, -1)
	rhs := new(arith.Nat).Mul(a, b, -1)
	assert.Equal(t, 1, lhs.Eq(rhs))
}

// TestMtAAffP checks the δ-leg conversion with the sender's share
// committed as a ciphertext.
func TestMtAAffP(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	sender := shares[0].PaillierSecret()
	receiver := shares[1].PaillierSecret()
	aux := shares[1].Pedersen(2)

	a := sample.IntervalL(rand.Reader)
	ACipher, aNonce := sender.Enc(a)
	b := sample.IntervalL(rand.Reader)
	B, _ := receiver.Enc(b)

	beta, D, F, proof := mta.ProveAffP(group, hash.New(), a, ACipher, aNonce, B, sender, receiver.PublicKey, aux)

	ok := proof.VerifyMal(group, hash.New(), zkaffp.Public{
		Kv: B, Dv: D, Fp: F, Xp: ACipher,
		Prover: sender.PublicKey, Verifier: receiver.PublicKey, Aux: aux,
	})
	assert.True(t, ok)

	alpha, err := receiver.Dec(D)
	require.NoError(t, err)

	lhs := new(arith.Nat).Add(alpha, beta, -1)
	rhs := new(arith.Nat).Mul(a, b, -1)
	assert.Equal(t, 1, lhs.Eq(rhs))
}
