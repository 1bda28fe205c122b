// Package keyshare defines the per-account key material held by a
// participant and the read-only store resolving account ids to shares.
package keyshare

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/polynomial"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
)

// ErrCorruptShare marks a share whose invariants do not hold. It is
// fatal at load time: the whole document is rejected.
var ErrCorruptShare = errors.New("keyshare: corrupt share")

// VSSSetup carries the threshold and the evaluation points of the
// sharing polynomial.
type VSSSetup struct {
	// MinSigners is the threshold t.
	MinSigners uint16 `json:"min_signers"`
	// Omegas[j] is ωⱼ₊₁, the distinct non-zero evaluation point of
	// party j+1.
	Omegas []*arith.Nat `json:"I"`
}

// AuxParty is one party's public auxiliary parameters (Nⱼ, sⱼ, tⱼ).
type AuxParty struct {
	N *arith.Nat `json:"N"`
	S *arith.Nat `json:"s"`
	T *arith.Nat `json:"t"`
}

// KeyShare is one party's share of a distributed ECDSA key. Shares are
// immutable for the lifetime of the process; mutation would invalidate
// the auxiliary proofs.
type KeyShare struct {
	// I is this party's 1-based index in the VSS setup.
	I uint16
	// SharedPublicKey is Y = x⋅G.
	SharedPublicKey curve.Point
	// PublicShares[j] is Xⱼ₊₁ = xⱼ₊₁⋅G.
	PublicShares []curve.Point
	// ChainCode is carried for derivation compatibility, opaque here.
	ChainCode []byte
	// Xi is this party's Shamir share xᵢ.
	Xi curve.Scalar
	// VSS is the sharing setup.
	VSS VSSSetup
	// P, Q are this party's Paillier factors.
	P, Q *arith.Nat
	// Aux[j] is party j+1's public auxiliary data.
	Aux []AuxParty
}

// Group returns the curve the share lives on.
func (s *KeyShare) Group() curve.Curve {
	return s.SharedPublicKey.Curve()
}

// N returns the number of parties in the setup.
func (s *KeyShare) N() int { return len(s.PublicShares) }

// Threshold returns the minimum number of signers t.
func (s *KeyShare) Threshold() int { return int(s.VSS.MinSigners) }

// PaillierSecret rebuilds this party's Paillier secret key.
func (s *KeyShare) PaillierSecret() *paillier.SecretKey {
	return paillier.NewSecretKeyFromPrimes(s.P, s.Q)
}

// PaillierPublic returns party j's (1-based) Paillier public key.
func (s *KeyShare) PaillierPublic(j uint16) *paillier.PublicKey {
	return paillier.NewPublicKeyFromN(s.Aux[j-1].N)
}

// Pedersen returns party j's (1-based) Pedersen parameters.
func (s *KeyShare) Pedersen(j uint16) *pedersen.Parameters {
	a := s.Aux[j-1]
	return pedersen.New(a.N, a.S, a.T)
}

// Omega returns party j's (1-based) evaluation point as a scalar.
func (s *KeyShare) Omega(j uint16) curve.Scalar {
	return s.Group().NewScalar().SetNat(s.VSS.Omegas[j-1].Clone())
}

// OmegaScalars returns all evaluation points keyed by 1-based index.
func (s *KeyShare) OmegaScalars() map[uint16]curve.Scalar {
	out := make(map[uint16]curve.Scalar, len(s.VSS.Omegas))
	for j := range s.VSS.Omegas {
		out[uint16(j+1)] = s.Omega(uint16(j + 1))
	}
	return out
}

// Lagrange returns the Lagrange coefficients at 0 for the given subset
// of 1-based share indices.
func (s *KeyShare) Lagrange(indices []uint16) map[uint16]curve.Scalar {
	return polynomial.Lagrange(s.Group(), s.OmegaScalars(), indices)
}

// Validate checks the structural invariants of the share:
// i is in range, g⋅xᵢ = Xᵢ, Σ λⱼ⋅Xⱼ = Y over the full party set, the
// chain code has 32 bytes, and the Paillier factors produce Nᵢ.
func (s *KeyShare) Validate() error {
	n := len(s.PublicShares)
	if n == 0 {
		return fmt.Errorf("%w: no public shares", ErrCorruptShare)
	}
	if s.I < 1 || int(s.I) > n {
		return fmt.Errorf("%w: index %d out of range 1..%d", ErrCorruptShare, s.I, n)
	}
	if int(s.VSS.MinSigners) < 2 || int(s.VSS.MinSigners) > n {
		return fmt.Errorf("%w: threshold %d out of range", ErrCorruptShare, s.VSS.MinSigners)
	}
	if len(s.VSS.Omegas) != n {
		return fmt.Errorf("%w: %d evaluation points for %d parties", ErrCorruptShare, len(s.VSS.Omegas), n)
	}
	if len(s.ChainCode) != 32 {
		return fmt.Errorf("%w: chain code must be 32 bytes", ErrCorruptShare)
	}
	if len(s.Aux) != n {
		return fmt.Errorf("%w: %d aux records for %d parties", ErrCorruptShare, len(s.Aux), n)
	}
	seen := make(map[string]bool, n)
	for j, w := range s.VSS.Omegas {
		if w == nil || w.EqZero() == 1 {
			return fmt.Errorf("%w: zero evaluation point for party %d", ErrCorruptShare, j+1)
		}
		k := w.String()
		if seen[k] {
			return fmt.Errorf("%w: duplicate evaluation point for party %d", ErrCorruptShare, j+1)
		}
		seen[k] = true
	}

	// g⋅xᵢ = Xᵢ
	if !s.Xi.ActOnBase().Equal(s.PublicShares[s.I-1]) {
		return fmt.Errorf("%w: public share does not match secret share", ErrCorruptShare)
	}

	// Σ λⱼ(S)⋅Xⱼ = Y over the full set
	all := make([]uint16, n)
	for j := range all {
		all[j] = uint16(j + 1)
	}
	lagrange := s.Lagrange(all)
	sum := s.Group().NewPoint()
	for _, j := range all {
		sum = sum.Add(lagrange[j].Act(s.PublicShares[j-1]))
	}
	if !sum.Equal(s.SharedPublicKey) {
		return fmt.Errorf("%w: public shares do not interpolate to the shared key", ErrCorruptShare)
	}

	// Nᵢ = pᵢ⋅qᵢ
	nOwn := new(arith.Nat).Mul(s.P, s.Q, -1)
	if nOwn.Eq(s.Aux[s.I-1].N) != 1 {
		return fmt.Errorf("%w: Paillier factors do not match aux modulus", ErrCorruptShare)
	}
	for j, a := range s.Aux {
		if a.N == nil || a.S == nil || a.T == nil {
			return fmt.Errorf("%w: nil aux field for party %d", ErrCorruptShare, j+1)
		}
		if err := pedersen.ValidateParameters(a.N, a.S, a.T); err != nil {
			return fmt.Errorf("%w: party %d: %v", ErrCorruptShare, j+1, err)
		}
	}
	return nil
}

// shareJSON is the document form of a share. Large integers are hex;
// points are compressed hex.
type shareJSON struct {
	I               uint16     `json:"i"`
	SharedPublicKey string     `json:"shared_public_key"`
	PublicShares    []string   `json:"public_shares"`
	ChainCode       string     `json:"chain_code"`
	Xi              string     `json:"x_i"`
	MinSigners      uint16     `json:"min_signers"`
	Omegas          []string   `json:"I"`
	P               string     `json:"p"`
	Q               string     `json:"q"`
	Aux             [][3]string `json:"aux"`
}

// MarshalJSON implements json.Marshaler.
func (s *KeyShare) MarshalJSON() ([]byte, error) {
	pub, err := s.SharedPublicKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	xi, _ := s.Xi.MarshalBinary()
	doc := shareJSON{
		I:               s.I,
		SharedPublicKey: hex.EncodeToString(pub),
		ChainCode:       hex.EncodeToString(s.ChainCode),
		Xi:              hex.EncodeToString(xi),
		MinSigners:      s.VSS.MinSigners,
		P:               hex.EncodeToString(s.P.Bytes()),
		Q:               hex.EncodeToString(s.Q.Bytes()),
	}
	for _, p := range s.PublicShares {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		doc.PublicShares = append(doc.PublicShares, hex.EncodeToString(b))
	}
	for _, w := range s.VSS.Omegas {
		doc.Omegas = append(doc.Omegas, hex.EncodeToString(w.Bytes()))
	}
	for _, a := range s.Aux {
		doc.Aux = append(doc.Aux, [3]string{
			hex.EncodeToString(a.N.Bytes()),
			hex.EncodeToString(a.S.Bytes()),
			hex.EncodeToString(a.T.Bytes()),
		})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler for the secp256k1 group.
func (s *KeyShare) UnmarshalJSON(data []byte) error {
	var doc shareJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	group := curve.Secp256k1{}
	pub, err := decodePoint(group, doc.SharedPublicKey)
	if err != nil {
		return err
	}
	xiBytes, err := hex.DecodeString(doc.Xi)
	if err != nil {
		return err
	}
	xi := group.NewScalar()
	if err := xi.UnmarshalBinary(xiBytes); err != nil {
		return err
	}
	chain, err := hex.DecodeString(doc.ChainCode)
	if err != nil {
		return err
	}
	s.I = doc.I
	s.SharedPublicKey = pub
	s.Xi = xi
	s.ChainCode = chain
	s.VSS = VSSSetup{MinSigners: doc.MinSigners}
	s.PublicShares = nil
	for _, p := range doc.PublicShares {
		point, err := decodePoint(group, p)
		if err != nil {
			return err
		}
		s.PublicShares = append(s.PublicShares, point)
	}
	for _, w := range doc.Omegas {
		b, err := hex.DecodeString(w)
		if err != nil {
			return err
		}
		s.VSS.Omegas = append(s.VSS.Omegas, new(arith.Nat).SetBytes(b))
	}
	if s.P, err = decodeNat(doc.P); err != nil {
		return err
	}
	if s.Q, err = decodeNat(doc.Q); err != nil {
		return err
	}
	s.Aux = nil
	for _, a := range doc.Aux {
		n, err := decodeNat(a[0])
		if err != nil {
			return err
		}
		sNat, err := decodeNat(a[1])
		if err != nil {
			return err
		}
		t, err := decodeNat(a[2])
		if err != nil {
			return err
		}
		s.Aux = append(s.Aux, AuxParty{N: n, S: sNat, T: t})
	}
	return nil
}

func decodePoint(group curve.Curve, s string) (curve.Point, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	p := group.NewPoint()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeNat(s string) (*arith.Nat, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(arith.Nat).SetBytes(b), nil
}
