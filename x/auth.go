package x

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
)

// Authenticator tells which conditions signed the call carried by the
// context. Extensions receive it in their constructor, so that the command
// line client and the tests can plug in their own signers.
type Authenticator interface {
	// GetConditions returns the signers, main signer first.
	GetConditions(xswap.Context) []xswap.Condition
	// HasAddress returns true if any signer has this address.
	HasAddress(xswap.Context, xswap.Address) bool
}

// MainSigner returns the first signer or nil if there is none.
func MainSigner(ctx xswap.Context, auth Authenticator) xswap.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// RequireAddress returns ErrUnauthorized unless given address is
// authenticated in the context. An empty address is never authenticated.
func RequireAddress(ctx xswap.Context, auth Authenticator, addr xswap.Address) error {
	if len(addr) == 0 {
		return errors.Wrap(errors.ErrUnauthorized, "no address to authenticate")
	}
	if !auth.HasAddress(ctx, addr) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s did not sign", addr)
	}
	return nil
}

// StaticAuth authenticates the same set of conditions regardless of the
// context. It is used by command line tools, where the signer is declared
// once per process.
type StaticAuth []xswap.Condition

var _ Authenticator = StaticAuth(nil)

func (s StaticAuth) GetConditions(xswap.Context) []xswap.Condition {
	return s
}

func (s StaticAuth) HasAddress(_ xswap.Context, addr xswap.Address) bool {
	for _, c := range s {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
