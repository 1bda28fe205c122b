package keyshare

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/polynomial"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

// DealerConfig parameterizes a trusted-dealer share generation.
type DealerConfig struct {
	// Parties is n.
	Parties uint16
	// Threshold is t, the minimum number of signers.
	Threshold uint16
	// Secret is the key to split; nil samples a fresh one.
	Secret curve.Scalar
	// ChainCode is carried verbatim; nil samples 32 random bytes.
	ChainCode []byte
	// Rand defaults to crypto/rand.
	Rand io.Reader
	// Pool parallelizes Paillier key generation.
	Pool *pool.Pool
}

// Deal splits a secret into n shares with threshold t and equips every
// party with fresh Paillier and Pedersen auxiliary parameters. The
// evaluation points are ωⱼ = j.
func Deal(group curve.Curve, cfg DealerConfig) ([]*KeyShare, error) {
	if cfg.Parties < 2 {
		return nil, errors.New("keyshare: need at least 2 parties")
	}
	if cfg.Threshold < 2 || cfg.Threshold > cfg.Parties {
		return nil, errors.New("keyshare: threshold out of range")
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.Reader
	}
	secret := cfg.Secret
	if secret == nil {
		secret = sample.ScalarUnit(rng, group)
	}
	chainCode := cfg.ChainCode
	if chainCode == nil {
		chainCode = make([]byte, 32)
		if _, err := io.ReadFull(rng, chainCode); err != nil {
			return nil, err
		}
	}
	if len(chainCode) != 32 {
		return nil, errors.New("keyshare: chain code must be 32 bytes")
	}

	n := int(cfg.Parties)
	// f of degree t-1 with f(0) = x
	poly := polynomial.NewPolynomial(group, int(cfg.Threshold)-1, secret, rng)
	Y := secret.ActOnBase()

	omegas := make([]*arith.Nat, n)
	secrets := make([]curve.Scalar, n)
	publics := make([]curve.Point, n)
	for j := 0; j < n; j++ {
		omegas[j] = arith.NewNat(uint64(j + 1))
		omega := group.NewScalar().SetNat(omegas[j].Clone())
		secrets[j] = poly.Evaluate(omega)
		publics[j] = secrets[j].ActOnBase()
	}

	// per-party Paillier and Pedersen parameters
	type auxSecret struct {
		p, q *arith.Nat
		aux  AuxParty
	}
	auxResults := cfg.Pool.Parallelize(n, func(int) interface{} {
		sk := paillier.NewSecretKey(cfg.Pool)
		ped, _ := sk.GeneratePedersen()
		return auxSecret{
			p:   sk.P(),
			q:   sk.Q(),
			aux: AuxParty{N: ped.N(), S: ped.S(), T: ped.T()},
		}
	})

	auxPublic := make([]AuxParty, n)
	for j := 0; j < n; j++ {
		auxPublic[j] = auxResults[j].(auxSecret).aux
	}

	shares := make([]*KeyShare, n)
	for j := 0; j < n; j++ {
		a := auxResults[j].(auxSecret)
		shares[j] = &KeyShare{
			I:               uint16(j + 1),
			SharedPublicKey: Y,
			PublicShares:    publics,
			ChainCode:       chainCode,
			Xi:              secrets[j],
			VSS: VSSSetup{
				MinSigners: cfg.Threshold,
				Omegas:     omegas,
			},
			P:   a.p,
			Q:   a.q,
			Aux: auxPublic,
		}
	}
	return shares, nil
}
