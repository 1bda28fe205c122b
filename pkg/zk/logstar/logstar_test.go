package zklogstar_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	zklogstar "github.com/ruocuoguo23/wallet-mpc/pkg/zk/logstar"
)

func TestLogStarProof(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	prover := shares[0].PaillierSecret()
	aux := shares[0].Pedersen(2)

	x := sample.IntervalL(rand.Reader)
	C, rho := prover.Enc(x)
	X := group.NewScalar().SetNat(x.Clone()).ActOnBase()

	public := zklogstar.Public{C: C, X: X, Prover: prover.PublicKey, Aux: aux}
	proof := zklogstar.NewProofMal(group, hash.New(), public, zklogstar.Private{X: x, Rho: rho})
	assert.True(t, proof.VerifyMal(group, hash.New(), public))

	// a statement with a different point must fail
	otherX := sample.Scalar(rand.Reader, group).ActOnBase()
	assert.False(t, proof.VerifyMal(group, hash.New(),
		zklogstar.Public{C: C, X: otherX, Prover: prover.PublicKey, Aux: aux}))
}

func TestLogStarCustomBase(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	group := curve.Secp256k1{}

	prover := shares[0].PaillierSecret()
	aux := shares[0].Pedersen(2)

	base := sample.ScalarUnit(rand.Reader, group).ActOnBase()
	x := sample.IntervalL(rand.Reader)
	C, rho := prover.Enc(x)
	X := group.NewScalar().SetNat(x.Clone()).Act(base)

	public := zklogstar.Public{C: C, X: X, G: base, Prover: prover.PublicKey, Aux: aux}
	proof := zklogstar.NewProofMal(group, hash.New(), public, zklogstar.Private{X: x, Rho: rho})
	assert.True(t, proof.VerifyMal(group, hash.New(), public))
}
