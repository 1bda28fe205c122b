package sign

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/internal/test"
	"github.com/ruocuoguo23/wallet-mpc/pkg/ecdsa"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

func digestOf(t *testing.T, msg string) []byte {
	t.Helper()
	d := sha256.Sum256([]byte(msg))
	return d[:]
}

func startSessions(t *testing.T, shares []*keyshare.KeyShare, roomID string, digest []byte) []round.Session {
	t.Helper()
	pl := pool.NewPool(0)
	t.Cleanup(pl.TearDown)

	signers := make([]uint16, len(shares))
	for i := range shares {
		signers[i] = uint16(i + 1)
	}
	sessions := make([]round.Session, len(shares))
	for i, share := range shares {
		s, err := StartSign(share, signers, roomID, digest, pl)()
		require.NoError(t, err)
		sessions[i] = s
	}
	return sessions
}

func runToCompletion(t *testing.T, sessions []round.Session, rule test.Rule) {
	t.Helper()
	for {
		err, done := test.Rounds(sessions, rule)
		require.NoError(t, err)
		if done {
			return
		}
	}
}

func TestSignTwoParty(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	digest := digestOf(t, "hello")
	sessions := startSessions(t, shares, "signing_65537", digest)
	runToCompletion(t, sessions, nil)

	for _, s := range sessions {
		out, ok := s.(*round.Output)
		require.True(t, ok, "expected output round, got %T", s)
		sig, ok := out.Result.(*ecdsa.Signature)
		require.True(t, ok)

		assert.True(t, sig.Verify(shares[0].SharedPublicKey, digest))
		assert.False(t, sig.IsOverHalfOrder(), "signature must be low-s")

		r, sBytes, v := sig.SigBytes()
		recovered, err := ecdsa.Recover(shares[0].Group(), digest, r, sBytes, v)
		require.NoError(t, err)
		assert.True(t, recovered.Equal(shares[0].SharedPublicKey),
			"recovered key must match the shared public key")
	}
}

func TestSignDistinctNonces(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	digest := digestOf(t, "hello")
	first := startSessions(t, shares, "signing_1", digest)
	second := startSessions(t, shares, "signing_2", digest)
	runToCompletion(t, first, nil)
	runToCompletion(t, second, nil)

	sigA := first[0].(*round.Output).Result.(*ecdsa.Signature)
	sigB := second[0].(*round.Output).Result.(*ecdsa.Signature)

	// fresh presigning randomness means distinct R points with
	// overwhelming probability
	assert.False(t, sigA.R.Equal(sigB.R), "nonce points must differ across sessions")
	assert.True(t, sigA.Verify(shares[0].SharedPublicKey, digest))
	assert.True(t, sigB.Verify(shares[0].SharedPublicKey, digest))
}

func TestStartSignValidation(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)
	pl := pool.NewPool(1)
	defer pl.TearDown()

	tests := []struct {
		name    string
		signers []uint16
		digest  []byte
	}{
		{"short digest", []uint16{1, 2}, []byte("too short")},
		{"long digest", []uint16{1, 2}, make([]byte, 33)},
		{"below threshold", []uint16{1}, make([]byte, 32)},
		{"duplicate signer", []uint16{1, 1}, make([]byte, 32)},
		{"unknown signer", []uint16{1, 7}, make([]byte, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StartSign(shares[0], tt.signers, "signing_9", tt.digest, pl)()
			assert.Error(t, err)
		})
	}

	// share not in the subset
	_, err = StartSign(shares[0], []uint16{2}, "signing_9", make([]byte, 32), pl)()
	assert.Error(t, err)
}

// tamperDelta corrupts party 1's δ broadcast in round 3. The content
// pointer is shared with the round state, so the cheater's own view
// stays consistent with what it sent.
type tamperDelta struct{}

func (tamperDelta) ModifyBefore(round.Session) {}
func (tamperDelta) ModifyAfter(round.Session)  {}
func (tamperDelta) ModifyContent(rNext round.Session, _ party.ID, content round.Content) {
	if rNext.SelfID() != 1 {
		return
	}
	if body, ok := content.(*broadcast4); ok {
		one := rNext.Group().NewScalar().SetNat(arith.NewNat(1))
		body.DeltaShare.Add(one)
	}
}

func TestSignIdentifiableAbort(t *testing.T) {
	shares, err := test.Shares()
	require.NoError(t, err)

	digest := digestOf(t, "hello")
	sessions := startSessions(t, shares, "signing_tamper", digest)
	runToCompletion(t, sessions, tamperDelta{})

	for i, s := range sessions {
		abort, ok := s.(*round.Abort)
		require.True(t, ok, "party %d: expected abort, got %T", i, s)
		assert.ErrorIs(t, abort.Err, ErrInvalidSignature)
		assert.Equal(t, []party.ID{1}, abort.Culprits, "party %d must identify the tampering party", i)
	}
}
