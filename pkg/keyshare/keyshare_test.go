package keyshare_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

func oneNat() *arith.Nat { return arith.NewNat(1) }

func TestDealProducesValidShares(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	require.Len(t, shares, 2)

	for _, share := range shares {
		assert.NoError(t, share.Validate())
	}

	// both shares agree on the public material
	assert.True(t, shares[0].SharedPublicKey.Equal(shares[1].SharedPublicKey))
	assert.Equal(t, uint16(1), shares[0].I)
	assert.Equal(t, uint16(2), shares[1].I)
}

func TestLagrangeReconstructsSecret(t *testing.T) {
	group := curve.Secp256k1{}
	secret := sample.ScalarUnit(rand.Reader, group)
	pl := pool.NewPool(0)
	defer pl.TearDown()
	shares, err := keyshare.Deal(group, keyshare.DealerConfig{
		Parties:   3,
		Threshold: 2,
		Secret:    secret,
		Pool:      pl,
	})
	require.NoError(t, err)

	// any 2-subset interpolates back to the secret
	subsets := [][]uint16{{1, 2}, {1, 3}, {2, 3}}
	for _, subset := range subsets {
		lagrange := shares[0].Lagrange(subset)
		sum := group.NewScalar()
		for _, j := range subset {
			term := group.NewScalar().Set(lagrange[j]).Mul(shares[j-1].Xi)
			sum.Add(term)
		}
		assert.True(t, sum.Equal(secret), "subset %v", subset)
	}
}

func TestShareJSONRoundTrip(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	encoded, err := json.Marshal(shares[0])
	require.NoError(t, err)

	decoded := &keyshare.KeyShare{}
	require.NoError(t, json.Unmarshal(encoded, decoded))
	require.NoError(t, decoded.Validate())

	assert.Equal(t, shares[0].I, decoded.I)
	assert.True(t, shares[0].SharedPublicKey.Equal(decoded.SharedPublicKey))
	assert.True(t, shares[0].Xi.Equal(decoded.Xi))
	assert.Equal(t, shares[0].ChainCode, decoded.ChainCode)
}

func TestStoreLookup(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	store, err := keyshare.NewStore(map[string]*keyshare.KeyShare{"acct-1": shares[0]})
	require.NoError(t, err)

	got, err := store.Lookup("acct-1")
	require.NoError(t, err)
	assert.Equal(t, shares[0].I, got.I)

	_, err = store.Lookup("missing")
	assert.ErrorIs(t, err, keyshare.ErrNotFound)
}

// TestStoreRejectsCorruptShare covers the fatal load path: a document
// where g⋅xᵢ ≠ Xᵢ for one entry rejects the whole load.
func TestStoreRejectsCorruptShare(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	encoded, err := json.Marshal(shares[0])
	require.NoError(t, err)
	corrupt := &keyshare.KeyShare{}
	require.NoError(t, json.Unmarshal(encoded, corrupt))

	// replace the secret share so the public share no longer matches
	corrupt.Xi = corrupt.Group().NewScalar().Set(corrupt.Xi).
		Add(corrupt.Group().NewScalar().SetNat(oneNat()))

	_, err = keyshare.NewStore(map[string]*keyshare.KeyShare{
		"good": shares[1],
		"bad":  corrupt,
	})
	assert.ErrorIs(t, err, keyshare.ErrCorruptShare)
}

func TestLoadStoreDocument(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	doc := map[string]*keyshare.KeyShare{"acct-a": shares[0]}
	encoded, err := json.Marshal(doc)
	require.NoError(t, err)

	store, err := keyshare.LoadStore(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"acct-a"}, store.Accounts())
}

func TestDealValidation(t *testing.T) {
	group := curve.Secp256k1{}
	_, err := keyshare.Deal(group, keyshare.DealerConfig{Parties: 1, Threshold: 1})
	assert.Error(t, err)
	_, err = keyshare.Deal(group, keyshare.DealerConfig{Parties: 2, Threshold: 3})
	assert.Error(t, err)
	_, err = keyshare.Deal(group, keyshare.DealerConfig{Parties: 2, Threshold: 2, ChainCode: []byte("short")})
	assert.Error(t, err)
}
