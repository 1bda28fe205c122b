package hash

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
)

func TestHashWriteAny(t *testing.T) {
	group := curve.Secp256k1{}
	h := New()
	assert.NoError(t, h.WriteAny(
		new(arith.Nat).SetUint64(35),
		new(arith.Nat).SetUint64(35).Neg(1),
		[]byte{1, 4, 6},
		uint16(7),
		uint32(9),
		sample.Scalar(rand.Reader, group),
		sample.Scalar(rand.Reader, group).ActOnBase(),
		&BytesWithDomain{TheDomain: "Test", Bytes: []byte("payload")},
	))
	assert.Len(t, h.Sum(), DigestSize)
}

func TestHashDeterministicAndDomainSeparated(t *testing.T) {
	a := New()
	require.NoError(t, a.WriteAny([]byte("hello")))
	b := New()
	require.NoError(t, b.WriteAny([]byte("hello")))
	assert.Equal(t, a.Sum(), b.Sum())

	c := New()
	require.NoError(t, c.WriteAny(&BytesWithDomain{TheDomain: "other", Bytes: []byte("hello")}))
	assert.NotEqual(t, a.Sum(), c.Sum())
}

func TestHashCloneIndependent(t *testing.T) {
	h := New()
	require.NoError(t, h.WriteAny([]byte("prefix")))
	fork := h.Clone()
	require.NoError(t, fork.WriteAny([]byte("suffix")))
	assert.NotEqual(t, h.Sum(), fork.Sum())

	// Sum does not mutate the state
	first := h.Sum()
	assert.Equal(t, first, h.Sum())
}

func TestCommitDecommit(t *testing.T) {
	group := curve.Secp256k1{}
	point := sample.Scalar(rand.Reader, group).ActOnBase()

	h := New(&BytesWithDomain{TheDomain: "Session", Bytes: []byte("room-1")})
	c, d, err := h.Commit(point)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.NoError(t, d.Validate())

	assert.True(t, h.Decommit(c, d, point))

	// wrong value
	other := sample.Scalar(rand.Reader, group).ActOnBase()
	assert.False(t, h.Decommit(c, d, other))

	// wrong session prefix
	h2 := New(&BytesWithDomain{TheDomain: "Session", Bytes: []byte("room-2")})
	assert.False(t, h2.Decommit(c, d, point))

	// malformed inputs
	assert.False(t, h.Decommit(c[:5], d, point))
	assert.False(t, h.Decommit(c, d[:5], point))
}
