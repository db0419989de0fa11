package xswaptest

import (
	"context"
	"fmt"

	"github.com/iov-one/xswap"
)

// CtxAuth authenticates the conditions stored in the context with
// SetConditions. Two instances only see each other's signers if they share
// the Key.
type CtxAuth struct {
	Key string
}

type signersKey string

// SetConditions returns a context signed by given conditions. The first
// one is the main signer.
func (a *CtxAuth) SetConditions(ctx xswap.Context, signers ...xswap.Condition) xswap.Context {
	return context.WithValue(ctx, signersKey(a.Key), signers)
}

func (a *CtxAuth) GetConditions(ctx xswap.Context) []xswap.Condition {
	switch v := ctx.Value(signersKey(a.Key)).(type) {
	case nil:
		return nil
	case []xswap.Condition:
		return v
	default:
		panic(fmt.Sprintf("signers stored as %T", v))
	}
}

func (a *CtxAuth) HasAddress(ctx xswap.Context, addr xswap.Address) bool {
	for _, c := range a.GetConditions(ctx) {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
