package pedersen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
)

func testParameters(t *testing.T) *pedersen.Parameters {
	t.Helper()
	shares, err := test.Shares()
	require.NoError(t, err)
	return shares[0].Pedersen(1)
}

func TestCommitVerify(t *testing.T) {
	ped := testParameters(t)

	x := arith.NewNat(1234)
	m := arith.NewNat(5678)
	S := ped.Commit(x, m)

	alpha := arith.NewNat(91)
	gamma := arith.NewNat(17)
	C := ped.Commit(alpha, gamma)

	e := arith.NewNat(3)
	// a = α + e⋅x, b = γ + e⋅m
	a := new(arith.Nat).Mul(e, x, -1)
	a.Add(a, alpha, -1)
	b := new(arith.Nat).Mul(e, m, -1)
	b.Add(b, gamma, -1)

	assert.True(t, ped.Verify(a, b, e, C, S))
	assert.False(t, ped.Verify(a, b, arith.NewNat(4), C, S))
	assert.False(t, ped.Verify(b, a, e, C, S))
	assert.False(t, ped.Verify(nil, b, e, C, S))
}

func TestCommitNegativeExponents(t *testing.T) {
	ped := testParameters(t)
	x := arith.NewNat(55).Neg(1)
	m := arith.NewNat(66).Neg(1)
	S := ped.Commit(x, m)
	assert.True(t, arith.IsValidNatModN(ped.N(), S))
}

func TestValidateParameters(t *testing.T) {
	ped := testParameters(t)
	assert.NoError(t, pedersen.ValidateParameters(ped.N(), ped.S(), ped.T()))
	assert.Error(t, pedersen.ValidateParameters(ped.N(), ped.S(), ped.S()))
	assert.Error(t, pedersen.ValidateParameters(ped.N(), arith.NewNat(0), ped.T()))
	assert.Error(t, pedersen.ValidateParameters(nil, ped.S(), ped.T()))
}

func TestParametersMarshalRoundTrip(t *testing.T) {
	ped := testParameters(t)
	buf, err := ped.MarshalBinary()
	require.NoError(t, err)
	out := &pedersen.Parameters{}
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.Equal(t, 1, ped.N().Eq(out.N()))
	assert.Equal(t, 1, ped.S().Eq(out.S()))
	assert.Equal(t, 1, ped.T().Eq(out.T()))
}
