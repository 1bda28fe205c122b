package curve

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
)

func randomScalar(t *testing.T, group Curve) Scalar {
	t.Helper()
	buf := make([]byte, group.SafeScalarBytes())
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return group.NewScalar().SetNat(new(arith.Nat).SetBytes(buf))
}

func TestScalarAlgebra(t *testing.T) {
	group := Secp256k1{}
	a := randomScalar(t, group)
	b := randomScalar(t, group)

	// (a + b) - b == a
	sum := group.NewScalar().Set(a).Add(b)
	assert.True(t, sum.Sub(b).Equal(a))

	// a ⋅ a⁻¹ == 1
	inv := group.NewScalar().Set(a).Invert()
	prod := inv.Mul(a)
	one := group.NewScalar().SetNat(arith.NewNat(1))
	assert.True(t, prod.Equal(one))

	// a + (-a) == 0
	neg := group.NewScalar().Set(a).Negate()
	assert.True(t, neg.Add(a).IsZero())
}

func TestPointAlgebra(t *testing.T) {
	group := Secp256k1{}
	a := randomScalar(t, group)
	b := randomScalar(t, group)

	// (a+b)⋅G == a⋅G + b⋅G
	sum := group.NewScalar().Set(a).Add(b)
	lhs := sum.ActOnBase()
	rhs := a.ActOnBase().Add(b.ActOnBase())
	assert.True(t, lhs.Equal(rhs))

	// P - P == O
	P := a.ActOnBase()
	assert.True(t, P.Sub(P).IsIdentity())

	// O + P == P
	assert.True(t, group.NewPoint().Add(P).Equal(P))

	// acting with zero gives the identity
	zero := group.NewScalar()
	assert.True(t, zero.ActOnBase().IsIdentity())
	assert.True(t, zero.Act(P).IsIdentity())
}

func TestPointMarshalRoundTrip(t *testing.T) {
	group := Secp256k1{}
	P := randomScalar(t, group).ActOnBase()

	buf, err := P.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, buf, 33)

	Q := group.NewPoint()
	require.NoError(t, Q.UnmarshalBinary(buf))
	assert.True(t, P.Equal(Q))

	// identity round trip
	idBuf, err := group.NewPoint().MarshalBinary()
	require.NoError(t, err)
	id := group.NewPoint()
	require.NoError(t, id.UnmarshalBinary(idBuf))
	assert.True(t, id.IsIdentity())
}

func TestScalarMarshalRoundTrip(t *testing.T) {
	group := Secp256k1{}
	a := randomScalar(t, group)
	buf, err := a.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, buf, 32)

	b := group.NewScalar()
	require.NoError(t, b.UnmarshalBinary(buf))
	assert.True(t, a.Equal(b))
}

func TestDecompressPoint(t *testing.T) {
	group := Secp256k1{}
	P := randomScalar(t, group).ActOnBase()

	x := new(arith.Nat).SetBytes(P.XBytes())
	recovered, err := DecompressPoint(x, !P.HasEvenY())
	require.NoError(t, err)
	assert.True(t, recovered.Equal(P))

	flipped, err := DecompressPoint(x, P.HasEvenY())
	require.NoError(t, err)
	assert.True(t, flipped.Equal(P.Negate()))
}

func TestFromHashReduces(t *testing.T) {
	group := Secp256k1{}
	// 32 bytes of 0xff exceeds the order and must reduce
	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = 0xff
	}
	s := FromHash(group, digest)
	assert.False(t, s.IsZero())
	buf, _ := s.MarshalBinary()
	assert.Len(t, buf, 32)
}
