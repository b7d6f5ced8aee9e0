// internal/bridge/errors.go
package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWallet indicates no usable wallet bridge was found: nothing
	// registered, or the requested connector does not answer.
	ErrNoWallet = errors.New("no wallet bridge detected")

	// ErrDeprecatedConnector is returned for connector names that were
	// retired together with the old front-end. The lookup fails loudly
	// instead of silently routing to a replacement.
	ErrDeprecatedConnector = errors.New("wallet connector is deprecated")

	// ErrSessionClosed indicates a call on a session after Close.
	ErrSessionClosed = errors.New("bridge session closed")
)

// Error wraps a failed bridge call with the wallet and operation that
// produced it. Matched with errors.As for display, and errors.Is on
// the wrapped cause.
type Error struct {
	Wallet string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge %s: %s: %v", e.Wallet, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapOp builds a bridge Error unless err is nil.
func WrapOp(wallet, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Wallet: wallet, Op: op, Err: err}
}
