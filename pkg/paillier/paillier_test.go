package paillier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
)

func testKey(t *testing.T) *paillier.SecretKey {
	t.Helper()
	shares, err := test.Shares()
	require.NoError(t, err)
	return shares[0].PaillierSecret()
}

func TestEncDecRoundTrip(t *testing.T) {
	sk := testKey(t)
	values := []*arith.Nat{
		arith.NewNat(0),
		arith.NewNat(12345),
		arith.NewNat(12345).Neg(1),
		new(arith.Nat).SetBytes(make32(0xAB)),
	}
	for _, m := range values {
		ct, _ := sk.Enc(m)
		got, err := sk.Dec(ct)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Eq(m), "round trip of %s", m)
	}
}

func TestHomomorphicOps(t *testing.T) {
	sk := testKey(t)
	a := arith.NewNat(1111)
	b := arith.NewNat(2222)
	k := arith.NewNat(5)

	ctA, _ := sk.Enc(a)
	ctB, _ := sk.Enc(b)

	sum := ctA.Clone().Add(sk.PublicKey, ctB)
	gotSum, err := sk.Dec(sum)
	require.NoError(t, err)
	assert.Equal(t, uint64(3333), gotSum.Uint64())

	scaled := ctA.Clone().Mul(sk.PublicKey, k)
	gotScaled, err := sk.Dec(scaled)
	require.NoError(t, err)
	assert.Equal(t, uint64(5555), gotScaled.Uint64())
}

func TestDecWithRandomness(t *testing.T) {
	sk := testKey(t)
	m := arith.NewNat(424242)
	ct, nonce := sk.Enc(m)

	plain, gotNonce, err := sk.DecWithRandomness(ct)
	require.NoError(t, err)
	assert.Equal(t, 1, plain.Eq(m))
	assert.Equal(t, 1, gotNonce.Eq(nonce))

	// re-encrypting with the recovered nonce reproduces the ciphertext
	again := sk.EncWithNonce(plain, gotNonce)
	assert.True(t, ct.Equal(again))
}

func TestValidateCiphertexts(t *testing.T) {
	sk := testKey(t)
	ct, _ := sk.Enc(arith.NewNat(1))
	assert.True(t, sk.ValidateCiphertexts(ct))
	assert.False(t, sk.ValidateCiphertexts(nil))
}

func TestCiphertextMarshalRoundTrip(t *testing.T) {
	sk := testKey(t)
	ct, _ := sk.Enc(arith.NewNat(777))
	buf, err := ct.MarshalBinary()
	require.NoError(t, err)
	out := &paillier.Ciphertext{}
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.True(t, ct.Equal(out))
}

func TestRandomizePreservesPlaintext(t *testing.T) {
	sk := testKey(t)
	m := arith.NewNat(99)
	ct, _ := sk.Enc(m)
	before := ct.Nat()
	ct.Randomize(sk.PublicKey, nil)
	assert.Equal(t, 0, before.Eq(ct.Nat()), "randomize must change the ciphertext")
	got, err := sk.Dec(ct)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Eq(m))
}

func make32(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}
