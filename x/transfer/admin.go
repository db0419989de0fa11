package transfer

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/gconf"
)

// SetInitiationEnabled allows or forbids initiation of new transfers. Only
// the authority can call it.
func (e *Engine) SetInitiationEnabled(ctx xswap.Context, enabled bool) error {
	return e.updateConf(ctx, "set_initiation_enabled", func(c *Configuration) {
		c.InitiationEnabled = enabled
	})
}

// SetFeeRecipient changes the address that receives the fee of redeemed
// destination transfers. Only the authority can call it.
func (e *Engine) SetFeeRecipient(ctx xswap.Context, addr xswap.Address) error {
	return e.updateConf(ctx, "set_fee_recipient", func(c *Configuration) {
		c.FeeRecipient = addr.Clone()
	})
}

// Configuration returns the currently stored configuration.
func (e *Engine) Configuration() (*Configuration, error) {
	return loadConf(e.db)
}

func (e *Engine) updateConf(ctx xswap.Context, op string, patch func(*Configuration)) (err error) {
	defer errors.Recover(&err)

	// Configuration changes are ordered with value moving operations.
	e.settle.Lock()
	defer e.settle.Unlock()

	cache := e.db.CacheWrap()
	defer cache.Discard()

	var conf Configuration
	err = gconf.Update(ctx, cache, e.auth, ConfigPkg, &conf, func() error {
		patch(&conf)
		return nil
	})
	if err != nil {
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	xswap.GetLogger(ctx).Info("configuration updated", "op", op)
	return nil
}
