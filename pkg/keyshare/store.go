package keyshare

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when an account id has no share.
var ErrNotFound = errors.New("keyshare: unknown account")

// Store maps account ids to key shares. It is built once at startup
// and never mutated afterwards, so lookups need no locking.
type Store struct {
	shares map[string]*KeyShare
}

// NewStore validates every share and builds the store. Any invariant
// violation rejects the whole load.
func NewStore(shares map[string]*KeyShare) (*Store, error) {
	out := make(map[string]*KeyShare, len(shares))
	for account, share := range shares {
		if share == nil {
			return nil, fmt.Errorf("%w: account %q: nil share", ErrCorruptShare, account)
		}
		if err := share.Validate(); err != nil {
			return nil, fmt.Errorf("account %q: %w", account, err)
		}
		out[account] = share
	}
	return &Store{shares: out}, nil
}

// LoadStore parses a decrypted share document: a JSON object mapping
// account ids to share records.
func LoadStore(r io.Reader) (*Store, error) {
	var doc map[string]*KeyShare
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("keyshare: failed to parse share document: %w", err)
	}
	return NewStore(doc)
}

// LoadStoreFile reads a share document from disk.
func LoadStoreFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadStore(f)
}

// Lookup resolves an account id to its share.
func (s *Store) Lookup(accountID string) (*KeyShare, error) {
	share, ok := s.shares[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, accountID)
	}
	return share, nil
}

// Accounts lists the account ids in the store.
func (s *Store) Accounts() []string {
	out := make([]string, 0, len(s.shares))
	for account := range s.shares {
		out = append(out, account)
	}
	return out
}

// Len returns the number of accounts.
func (s *Store) Len() int { return len(s.shares) }
