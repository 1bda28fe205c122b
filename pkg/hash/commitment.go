package hash

import (
	"crypto/rand"
	"errors"
	"io"
)

const commitNonceSize = 32

// Commitment is the hash of committed values under a fresh nonce.
type Commitment []byte

// Decommitment is the nonce revealed when opening a commitment.
type Decommitment []byte

var (
	// ErrInvalidCommitment is returned when a commitment has the wrong
	// format.
	ErrInvalidCommitment = errors.New("hash: invalid commitment")
	// ErrInvalidDecommitment is returned when a decommitment has the
	// wrong format.
	ErrInvalidDecommitment = errors.New("hash: invalid decommitment")
)

// Validate checks the commitment format.
func (c Commitment) Validate() error {
	if len(c) != DigestSize {
		return ErrInvalidCommitment
	}
	return nil
}

// Validate checks the decommitment format.
func (d Decommitment) Validate() error {
	if len(d) != commitNonceSize {
		return ErrInvalidDecommitment
	}
	return nil
}

// Commit hashes the given values together with a fresh random nonce.
// The transcript state already written to h is part of the commitment,
// binding it to the session.
func (h *Hash) Commit(vs ...interface{}) (Commitment, Decommitment, error) {
	nonce := make([]byte, commitNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	fork := h.Clone()
	if err := fork.WriteAny(vs...); err != nil {
		return nil, nil, err
	}
	if err := fork.WriteAny(nonce); err != nil {
		return nil, nil, err
	}
	return fork.Sum(), nonce, nil
}

// Decommit verifies that the commitment opens to the given values under
// the revealed nonce.
func (h *Hash) Decommit(c Commitment, d Decommitment, vs ...interface{}) bool {
	if c.Validate() != nil || d.Validate() != nil {
		return false
	}
	fork := h.Clone()
	if err := fork.WriteAny(vs...); err != nil {
		return false
	}
	if err := fork.WriteAny([]byte(d)); err != nil {
		return false
	}
	sum := fork.Sum()
	if len(sum) != len(c) {
		return false
	}
	diff := byte(0)
	for i := range sum {
		diff |= sum[i] ^ c[i]
	}
	return diff == 0
}
