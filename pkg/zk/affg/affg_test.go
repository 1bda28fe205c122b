package zkaffg_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	zkaffg "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affg"
)

func TestAffGProof(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	// party 1 proves towards party 2: the verifier owns Kv, the
	// prover owns x and y
	proverSK := shares[0].PaillierSecret()
	verifierSK := shares[1].PaillierSecret()
	aux := shares[1].Pedersen(2)

	kv := sample.IntervalL(rand.Reader)
	Kv, _ := verifierSK.Enc(kv)

	x := sample.IntervalL(rand.Reader)
	y := sample.IntervalLPrime(rand.Reader)

	// Dv = (x ⊙ Kv) ⊕ Encᵥ(y; s)
	Dv, s := verifierSK.Enc(y)
	Dv.Add(verifierSK.PublicKey, Kv.Clone().Mul(verifierSK.PublicKey, x))
	Fp, r := proverSK.Enc(y)
	Xp := group.NewScalar().SetNat(x.Clone()).ActOnBase()

	public := zkaffg.Public{
		Kv: Kv, Dv: Dv, Fp: Fp, Xp: Xp,
		Prover: proverSK.PublicKey, Verifier: verifierSK.PublicKey, Aux: aux,
	}
	proof := zkaffg.NewProofMal(group, hash.New(), public, zkaffg.Private{X: x, Y: y, S: s, R: r})
	assert.True(t, proof.VerifyMal(group, hash.New(), public))

	// the affine relation is verified: a proof for a different X fails
	public.Xp = sample.Scalar(rand.Reader, group).ActOnBase()
	assert.False(t, proof.VerifyMal(group, hash.New(), public))
}
