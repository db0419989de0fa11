package ledger

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
)

const optKey = "ledger"

// GenesisAccount is used to parse the json from genesis file
// use xswap.Address, so address in hex, not base64
type GenesisAccount struct {
	Address xswap.Address `json:"address"`
	Account
}

// FromGenesis will parse initial account info from genesis
// and save it to the database
func (c Controller) FromGenesis(opts xswap.Options, db xswap.KVStore) error {
	var accts []GenesisAccount
	if err := opts.ReadOptions(optKey, &accts); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "read %s options: %s", optKey, err)
	}
	for _, a := range accts {
		if err := a.Address.Validate(); err != nil {
			return errors.Wrap(err, "genesis account")
		}
		acc := a.Account
		if err := c.save(db, a.Address, &acc); err != nil {
			return errors.Wrapf(err, "genesis account %s", a.Address)
		}
	}
	return nil
}
