// Package test provides shared fixtures for protocol tests: cached
// key shares (Paillier generation is expensive) and an in-memory round
// executor with tamper hooks.
package test

import (
	"crypto/rand"
	"sync"

	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

var (
	sharesOnce  sync.Once
	cachedPair  []*keyshare.KeyShare
	cachedError error
)

// Shares returns a cached 2-of-2 share set with a known random secret.
// The same set is shared by every test in the process because dealing
// fresh Paillier moduli dominates test time.
func Shares() ([]*keyshare.KeyShare, error) {
	sharesOnce.Do(func() {
		group := curve.Secp256k1{}
		pl := pool.NewPool(0)
		defer pl.TearDown()
		cachedPair, cachedError = keyshare.Deal(group, keyshare.DealerConfig{
			Parties:   2,
			Threshold: 2,
			Secret:    sample.ScalarUnit(rand.Reader, group),
			Pool:      pl,
		})
	})
	return cachedPair, cachedError
}
