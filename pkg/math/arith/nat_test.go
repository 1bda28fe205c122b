package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNatSignedMarshal(t *testing.T) {
	values := []*Nat{
		NewNat(0),
		NewNat(42),
		NewNat(42).Neg(1),
		new(Nat).SetBytes([]byte{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99, 0x88, 0x77}),
		new(Nat).SetBytes([]byte{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99, 0x88, 0x77}).Neg(1),
	}
	for _, v := range values {
		buf, err := v.MarshalBinary()
		require.NoError(t, err)
		out := new(Nat)
		require.NoError(t, out.UnmarshalBinary(buf))
		assert.Equal(t, 1, v.Eq(out), "round trip of %s", v)
	}
}

func TestNatModArithmetic(t *testing.T) {
	m := NewNat(97)
	a := NewNat(63)
	b := NewNat(88)

	sum := new(Nat).ModAdd(a, b, m)
	assert.Equal(t, uint64((63+88)%97), sum.Uint64())

	diff := new(Nat).ModSub(a, b, m)
	assert.Equal(t, uint64((63-88+97)%97), diff.Uint64())

	prod := new(Nat).ModMul(a, b, m)
	assert.Equal(t, uint64(63*88%97), prod.Uint64())

	neg := new(Nat).ModNeg(a, m)
	check := new(Nat).ModAdd(a, neg, m)
	assert.Equal(t, 1, check.EqZero())
}

func TestNatExpI(t *testing.T) {
	m := NewNat(101)
	x := NewNat(7)

	e := NewNat(13)
	direct := new(Nat).Exp(x, e, m)

	// x^-13 ⋅ x^13 == 1 (mod m)
	eNeg := NewNat(13).Neg(1)
	inv := new(Nat).ExpI(x, eNeg, m)
	one := new(Nat).ModMul(direct, inv, m)
	assert.Equal(t, uint64(1), one.Uint64())
}

func TestNatSetModSymmetric(t *testing.T) {
	m := NewNat(100)
	low := new(Nat).SetModSymmetric(NewNat(49), m)
	assert.Equal(t, uint64(49), low.Uint64())
	assert.False(t, low.IsNegative())

	high := new(Nat).SetModSymmetric(NewNat(51), m)
	assert.True(t, high.IsNegative())
	assert.Equal(t, uint64(49), high.Abs().Uint64())
}

func TestModulusCRTMatchesDirect(t *testing.T) {
	p := NewNat(2003)
	q := NewNat(2011)
	m := ModulusFromFactors(p, q)
	plain := ModulusFromN(m.Nat())

	x := NewNat(1234567)
	e := NewNat(65537)
	assert.Equal(t, 1, m.Exp(x, e).Eq(plain.Exp(x, e)))

	eNeg := NewNat(3).Neg(1)
	assert.Equal(t, 1, m.ExpI(x, eNeg).Eq(plain.ExpI(x, eNeg)))
}

func TestNatClear(t *testing.T) {
	secret := new(Nat).SetBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	secret.Clear()
	assert.Equal(t, 1, secret.EqZero())
}

func TestIsValidNatModN(t *testing.T) {
	n := NewNat(35) // 5⋅7
	assert.True(t, IsValidNatModN(n, NewNat(2), NewNat(34)))
	assert.False(t, IsValidNatModN(n, NewNat(0)))
	assert.False(t, IsValidNatModN(n, NewNat(35)))
	assert.False(t, IsValidNatModN(n, NewNat(5)), "5 shares a factor with 35")
	assert.False(t, IsValidNatModN(n, nil))
}
