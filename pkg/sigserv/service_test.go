package sigserv_test

import (
	"context"
	"crypto/sha256"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/bus"
	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/ecdsa"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/sigserv"
)

const account = "acct-test"

type fixture struct {
	initiator *sigserv.Service
	responder *sigserv.Service
	registry  *bus.Registry
	shares    []*keyshare.KeyShare
}

// newFixture wires two participants around one in-process bus: the
// responder serves the mirrored RPC behind an HTTP test server and the
// initiator points its peer client at it.
func newFixture(t *testing.T, timeout time.Duration, withPeer bool) *fixture {
	t.Helper()
	shares, err := test.Shares()
	require.NoError(t, err)

	registry := bus.NewRegistry(bus.Options{})
	t.Cleanup(registry.Shutdown)
	dialer := &bus.LocalDialer{Registry: registry}

	storeA, err := keyshare.NewStore(map[string]*keyshare.KeyShare{account: shares[0]})
	require.NoError(t, err)
	storeB, err := keyshare.NewStore(map[string]*keyshare.KeyShare{account: shares[1]})
	require.NoError(t, err)

	responder, err := sigserv.NewService(sigserv.Config{
		Store:          storeB,
		Dialer:         dialer,
		SessionTimeout: timeout,
	})
	require.NoError(t, err)

	var peer *sigserv.PeerClient
	if withPeer {
		server := httptest.NewServer(sigserv.Handler(responder))
		t.Cleanup(server.Close)
		peer = &sigserv.PeerClient{BaseURL: server.URL, Client: server.Client()}
	}

	initiator, err := sigserv.NewService(sigserv.Config{
		Store:          storeA,
		Dialer:         dialer,
		Peer:           peer,
		SessionTimeout: timeout,
	})
	require.NoError(t, err)

	return &fixture{initiator: initiator, responder: responder, registry: registry, shares: shares}
}

func digest(msg string) []byte {
	d := sha256.Sum256([]byte(msg))
	return d[:]
}

func TestSignEndToEnd(t *testing.T) {
	f := newFixture(t, time.Minute, true)

	sig, err := f.initiator.Sign(context.Background(), account, digest("hello"))
	require.NoError(t, err)

	recovered, err := ecdsa.Recover(curve.Secp256k1{}, digest("hello"), sig.R, sig.S, sig.V)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(f.shares[0].SharedPublicKey),
		"recovered key must be the shared public key")
}

func TestSignUnknownAccount(t *testing.T) {
	f := newFixture(t, time.Minute, true)
	_, err := f.initiator.Sign(context.Background(), "missing", digest("hello"))
	assert.ErrorIs(t, err, keyshare.ErrNotFound)
}

func TestSignRejectsBadDigest(t *testing.T) {
	f := newFixture(t, time.Minute, true)
	_, err := f.initiator.Sign(context.Background(), account, []byte("short"))
	assert.ErrorIs(t, err, sigserv.ErrInvalidDigest)
	// no room was created for the rejected request
	assert.Equal(t, 0, f.registry.Rooms())
}

func TestDuplicateTxIDFailsFast(t *testing.T) {
	f := newFixture(t, time.Minute, true)
	req := &sigserv.SignMessage{
		TxID:      0x00010001,
		Chain:     sigserv.ChainEthereum,
		Data:      digest("hello"),
		AccountID: account,
	}

	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.initiator.SignRequest(context.Background(), req)
		}(i)
	}
	wg.Wait()

	// exactly one session ran; the other was rejected before any
	// presigning mask could be reused
	okCount, dupCount := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case err == sigserv.ErrRoomExists:
			dupCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, dupCount)
}

func TestSignTimeoutWithoutPeer(t *testing.T) {
	// no peer is dispatched, so the session can never complete
	f := newFixture(t, 2*time.Second, false)

	start := time.Now()
	_, err := f.initiator.Sign(context.Background(), account, digest("hello"))
	assert.ErrorIs(t, err, sigserv.ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second, "timeout must fire within the deadline window")
}

func TestConcurrentSigns(t *testing.T) {
	if testing.Short() {
		t.Skip("full concurrent protocol runs are slow")
	}
	f := newFixture(t, 2*time.Minute, true)

	const n = 8
	type result struct {
		sig *sigserv.SignatureMessage
		err error
	}
	results := make([]result, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			sig, err := f.initiator.Sign(context.Background(), account, digest("hello"))
			results[i] = result{sig: sig, err: err}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, res := range results {
		require.NoError(t, res.err, "request %d", i)
		recovered, err := ecdsa.Recover(curve.Secp256k1{}, digest("hello"), res.sig.R, res.sig.S, res.sig.V)
		require.NoError(t, err)
		assert.True(t, recovered.Equal(f.shares[0].SharedPublicKey))

		// fresh presigning randomness: all r values pairwise distinct
		key := string(res.sig.R)
		assert.False(t, seen[key], "nonce reuse across sessions")
		seen[key] = true
	}
}

func TestKindClassification(t *testing.T) {
	kind, _ := sigserv.KindOf(sigserv.ErrRoomExists)
	assert.Equal(t, sigserv.KindRoomExists, kind)
	kind, _ = sigserv.KindOf(sigserv.ErrTimeout)
	assert.Equal(t, sigserv.KindTimeout, kind)
	kind, _ = sigserv.KindOf(keyshare.ErrNotFound)
	assert.Equal(t, sigserv.KindUnknownAccount, kind)
	kind, culprit := sigserv.KindOf(&sigserv.CulpritError{Party: 1})
	assert.Equal(t, sigserv.KindCulprit, kind)
	require.NotNil(t, culprit)
	assert.EqualValues(t, 1, *culprit)
}
