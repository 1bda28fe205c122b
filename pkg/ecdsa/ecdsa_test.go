package ecdsa

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
)

// signPlain produces a signature in point form with a known private
// key, mirroring how the protocol assembles one: R = k⁻¹⋅G and
// s = k⋅(m + r⋅x).
func signPlain(group curve.Curve, x curve.Scalar, digest []byte) *Signature {
	k := sample.ScalarUnit(rand.Reader, group)
	kInv := group.NewScalar().Set(k).Invert()
	R := kInv.ActOnBase()
	r := R.XScalar()
	m := curve.FromHash(group, digest)
	s := group.NewScalar().Set(r).Mul(x).Add(m).Mul(k)
	return &Signature{R: R, S: s}
}

func TestSignVerify(t *testing.T) {
	group := curve.Secp256k1{}
	x := sample.ScalarUnit(rand.Reader, group)
	X := x.ActOnBase()
	digest := sha256.Sum256([]byte("hello"))

	sig := signPlain(group, x, digest[:])
	assert.True(t, sig.Verify(X, digest[:]))

	other := sha256.Sum256([]byte("other"))
	assert.False(t, sig.Verify(X, other[:]))
	assert.False(t, sig.Verify(sample.ScalarUnit(rand.Reader, group).ActOnBase(), digest[:]))
}

func TestNormalizeIdempotent(t *testing.T) {
	group := curve.Secp256k1{}
	x := sample.ScalarUnit(rand.Reader, group)
	X := x.ActOnBase()
	digest := sha256.Sum256([]byte("hello"))

	// find a high-s signature so Normalize actually flips
	var sig *Signature
	for {
		sig = signPlain(group, x, digest[:])
		if sig.IsOverHalfOrder() {
			break
		}
	}
	sig.Normalize()
	assert.False(t, sig.IsOverHalfOrder())
	assert.True(t, sig.Verify(X, digest[:]), "normalization preserves validity")

	// low_s(low_s(sig)) == low_s(sig)
	sCopy := group.NewScalar().Set(sig.S)
	sig.Normalize()
	assert.True(t, sig.S.Equal(sCopy))
}

func TestRecover(t *testing.T) {
	group := curve.Secp256k1{}
	digest := sha256.Sum256([]byte("hello"))

	for i := 0; i < 8; i++ {
		x := sample.ScalarUnit(rand.Reader, group)
		X := x.ActOnBase()
		sig := signPlain(group, x, digest[:])
		sig.Normalize()

		r, s, v := sig.SigBytes()
		require.LessOrEqual(t, v, uint32(1))

		recovered, err := Recover(group, digest[:], r, s, v)
		require.NoError(t, err)
		assert.True(t, recovered.Equal(X), "iteration %d", i)
	}
}

func TestRecoverRejectsBadInput(t *testing.T) {
	group := curve.Secp256k1{}
	digest := sha256.Sum256([]byte("hello"))
	zero := make([]byte, 32)

	_, err := Recover(group, digest[:], zero, zero, 0)
	assert.Error(t, err)
	_, err = Recover(group, digest[:], []byte{1}, []byte{1}, 2)
	assert.Error(t, err)
}

func TestEthereumAddress(t *testing.T) {
	group := curve.Secp256k1{}
	X := sample.ScalarUnit(rand.Reader, group).ActOnBase()
	addr := EthereumAddress(X)
	assert.NotEqual(t, [20]byte{}, addr)
	// deterministic for the same key
	assert.Equal(t, addr, EthereumAddress(X))
}
