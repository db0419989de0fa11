package gconf

import (
	"encoding/json"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/orm"
)

// Configuration is a singleton model holding the parameters of one
// extension.
type Configuration interface {
	orm.Model
}

// configs keeps every configuration under the name of its extension.
var configs = orm.NewBucket("config")

// Save validates and stores the configuration of the named extension,
// replacing the previous one.
func Save(db xswap.KVStore, name string, conf Configuration) error {
	if err := configs.Put(db, []byte(name), conf); err != nil {
		return errors.Wrapf(err, "save %s configuration", name)
	}
	return nil
}

// Load reads the configuration of the named extension into dst. ErrNotFound
// is returned if it was never saved.
func Load(db xswap.ReadOnlyKVStore, name string, dst Configuration) error {
	if err := configs.One(db, []byte(name), dst); err != nil {
		return errors.Wrapf(err, "load %s configuration", name)
	}
	return nil
}

// InitConfig stores the configuration found in the genesis options under
// "conf" and then the extension name.
func InitConfig(db xswap.KVStore, opts xswap.Options, name string, conf Configuration) error {
	var all map[string]json.RawMessage
	if err := opts.ReadOptions("conf", &all); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "genesis conf: %s", err)
	}
	raw, ok := all[name]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "genesis has no %s configuration", name)
	}
	if err := json.Unmarshal(raw, conf); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "genesis %s configuration: %s", name, err)
	}
	return Save(db, name, conf)
}
