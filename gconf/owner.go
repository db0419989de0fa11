package gconf

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/x"
)

// OwnedConfig must have an Owner. A configuration update must be signed by
// the owner in order to be authorized to apply the change.
type OwnedConfig interface {
	Configuration
	GetOwner() xswap.Address
}

// Update loads the named configuration into conf, ensures that the current
// owner signed the call and applies the change made by patch. Patched
// configuration is validated before it is saved.
//
// If patch returns an error, nothing is written.
func Update(
	ctx xswap.Context,
	db xswap.KVStore,
	auth x.Authenticator,
	name string,
	conf OwnedConfig,
	patch func() error,
) error {
	if err := Load(db, name, conf); err != nil {
		return err
	}
	// Configuration owner must sign in order to authenticate the change.
	owner := conf.GetOwner()
	if owner == nil {
		return errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	if !auth.HasAddress(ctx, owner) {
		return errors.Wrap(errors.ErrUnauthorized, "owner did not sign")
	}
	if err := patch(); err != nil {
		return errors.Wrap(err, "cannot patch config")
	}
	return Save(db, name, conf)
}
