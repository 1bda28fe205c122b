// Package ecdsa holds the signature type assembled from the partial
// signature shares, its canonicalization and recovery-id logic.
package ecdsa

import (
	"errors"

	"golang.org/x/crypto/sha3"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
)

// Signature is an ECDSA signature in point form: R is the commitment
// point whose x coordinate is r, S the aggregated scalar.
type Signature struct {
	R curve.Point
	S curve.Scalar
}

// EmptySignature prepares a Signature for unmarshalling.
func EmptySignature(group curve.Curve) *Signature {
	return &Signature{R: group.NewPoint(), S: group.NewScalar()}
}

// Verify checks the signature against the public key X and the digest,
// recomputing R' = s⁻¹⋅(m⋅G + r⋅X) and comparing x coordinates.
func (sig *Signature) Verify(X curve.Point, digest []byte) bool {
	group := X.Curve()
	r := sig.R.XScalar()
	if r.IsZero() || sig.S.IsZero() {
		return false
	}
	m := curve.FromHash(group, digest)
	sInv := group.NewScalar().Set(sig.S).Invert()
	// R' = s⁻¹⋅m⋅G + s⁻¹⋅r⋅X
	u1 := group.NewScalar().Set(m).Mul(sInv)
	u2 := group.NewScalar().Set(r).Mul(sInv)
	RPrime := u1.ActOnBase().Add(u2.Act(X))
	if RPrime.IsIdentity() {
		return false
	}
	return RPrime.XScalar().Equal(r)
}

// IsOverHalfOrder reports whether s is in the malleable upper half.
func (sig *Signature) IsOverHalfOrder() bool {
	return sig.S.IsOverHalfOrder()
}

// Normalize flips s into the low-s form required of every returned
// signature. R is negated alongside so the recovery id stays
// consistent. Normalizing twice is a no-op.
func (sig *Signature) Normalize() {
	if sig.IsOverHalfOrder() {
		sig.S.Negate()
		sig.R = sig.R.Negate()
	}
}

// RecoveryID derives v such that recovering (digest, r, s, v) yields
// the signing key. The base parity comes from R.y; normalizing s flips
// it.
func (sig *Signature) RecoveryID() uint32 {
	v := uint32(0)
	if !sig.R.HasEvenY() {
		v = 1
	}
	if sig.IsOverHalfOrder() {
		v ^= 1
	}
	return v
}

// SigBytes returns the 32-byte big-endian r and s components in low-s
// form together with the recovery id.
func (sig *Signature) SigBytes() (r, s []byte, v uint32) {
	v = sig.RecoveryID()
	r = sig.R.XBytes()
	sc := sig.R.Curve().NewScalar().Set(sig.S)
	if sc.IsOverHalfOrder() {
		sc.Negate()
	}
	s, _ = sc.MarshalBinary()
	return r, s, v
}

// Recover reconstructs the public key from a recoverable signature.
// It mirrors ecrecover: R is decompressed from (r, v), and
// Q = r⁻¹⋅(s⋅R − m⋅G).
func Recover(group curve.Curve, digest []byte, rBytes, sBytes []byte, v uint32) (curve.Point, error) {
	if v > 1 {
		return nil, errors.New("ecdsa: recovery id out of range")
	}
	rNat := new(arith.Nat).SetBytes(rBytes)
	if rNat.EqZero() == 1 {
		return nil, errors.New("ecdsa: r is zero")
	}
	R, err := curve.DecompressPoint(rNat, v == 1)
	if err != nil {
		return nil, err
	}
	r := group.NewScalar().SetNat(rNat)
	s := group.NewScalar().SetNat(new(arith.Nat).SetBytes(sBytes))
	if r.IsZero() || s.IsZero() {
		return nil, errors.New("ecdsa: degenerate signature")
	}
	m := curve.FromHash(group, digest)
	rInv := group.NewScalar().Set(r).Invert()
	// Q = r⁻¹⋅s⋅R − r⁻¹⋅m⋅G
	u1 := group.NewScalar().Set(s).Mul(rInv)
	u2 := group.NewScalar().Set(m).Mul(rInv).Negate()
	Q := u1.Act(R).Add(u2.ActOnBase())
	if Q.IsIdentity() {
		return nil, errors.New("ecdsa: recovered point at infinity")
	}
	return Q, nil
}

// EthereumAddress computes the keccak-derived address of a public key.
func EthereumAddress(X curve.Point) [20]byte {
	var addr [20]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(X.XBytes())
	h.Write(X.YBytes())
	sum := h.Sum(nil)
	copy(addr[:], sum[12:])
	return addr
}
