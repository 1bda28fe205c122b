package zknth_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	zknth "github.com/ruocuoguo23/wallet-mpc/pkg/zk/nth"
)

func TestNthProof(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	sk := shares[0].PaillierSecret()

	rho := sample.UnitModN(rand.Reader, sk.N())
	// R = ρᴺ (mod N²)
	R := sk.ModulusSquared().Exp(rho, sk.N())

	public := zknth.Public{N: sk.PublicKey, R: R}
	proof := zknth.NewProofMal(hash.New(), public, zknth.Private{Rho: rho})
	assert.True(t, proof.VerifyMal(hash.New(), public))

	// a different residue must fail
	other := sample.UnitModN(rand.Reader, sk.N())
	otherR := sk.ModulusSquared().Exp(other, sk.N())
	assert.False(t, proof.VerifyMal(hash.New(), zknth.Public{N: sk.PublicKey, R: otherR}))
}
