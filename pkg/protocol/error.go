package protocol

import (
	"fmt"

	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Error wraps a protocol failure with the parties responsible for it,
// when they could be identified.
type Error struct {
	// Culprits is empty when attribution was not possible.
	Culprits []party.ID
	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e Error) Error() string {
	if len(e.Culprits) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("culprits %v: %s", e.Culprits, e.Err)
}

// Unwrap implements errors.Wrapper.
func (e Error) Unwrap() error {
	return e.Err
}
