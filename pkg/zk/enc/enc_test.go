package zkenc_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	zkenc "github.com/ruocuoguo23/wallet-mpc/pkg/zk/enc"
)

func TestEncProof(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	prover := shares[0].PaillierSecret()
	aux := shares[0].Pedersen(2)

	k := sample.IntervalL(rand.Reader)
	K, rho := prover.Enc(k)

	public := zkenc.Public{K: K, Prover: prover.PublicKey, Aux: aux}
	private := zkenc.Private{K: k, Rho: rho}

	proof := zkenc.NewProofMal(group, hash.New(), public, private)
	assert.True(t, proof.VerifyMal(group, hash.New(), public))
}

func TestEncProofRejectsWrongStatement(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	prover := shares[0].PaillierSecret()
	aux := shares[0].Pedersen(2)

	k := sample.IntervalL(rand.Reader)
	K, rho := prover.Enc(k)
	proof := zkenc.NewProofMal(group, hash.New(), zkenc.Public{K: K, Prover: prover.PublicKey, Aux: aux},
		zkenc.Private{K: k, Rho: rho})

	// different ciphertext
	other, _ := prover.Enc(sample.IntervalL(rand.Reader))
	assert.False(t, proof.VerifyMal(group, hash.New(), zkenc.Public{K: other, Prover: prover.PublicKey, Aux: aux}))

	// different transcript prefix
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Session", Bytes: []byte("other")})
	assert.False(t, proof.VerifyMal(group, h, zkenc.Public{K: K, Prover: prover.PublicKey, Aux: aux}))

	// garbage bytes
	bad := &zkenc.Proofbuf{Malbuf: []byte("not cbor")}
	assert.False(t, bad.VerifyMal(group, hash.New(), zkenc.Public{K: K, Prover: prover.PublicKey, Aux: aux}))
}
