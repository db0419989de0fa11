package transfer

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/gconf"
	"github.com/iov-one/xswap/orm"
)

// ConfigPkg is the name under which the configuration is stored.
const ConfigPkg = "transfer"

// Configuration holds the protocol parameters. It is stored in the database
// and can be modified only by its owner, the authority.
type Configuration struct {
	// Owner is the authority that accepts and bans transfers and
	// administers this configuration.
	Owner             xswap.Address `json:"owner"`
	FeeRecipient      xswap.Address `json:"fee_recipient"`
	InitiationEnabled bool          `json:"initiation_enabled"`
	FeePerTransfer    int64         `json:"fee_per_transfer"`

	TimeoutPerHoldingTransfer  xswap.UnixDuration `json:"timeout_per_holding_transfer"`
	TimeToRedeemAfterAcception xswap.UnixDuration `json:"time_to_redeem_after_acception"`
	TimeoutAfterAcception      xswap.UnixDuration `json:"timeout_after_acception"`
	TimeoutToIgnoreTransfer    xswap.UnixDuration `json:"timeout_to_ignore_transfer"`
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

func (c *Configuration) Marshal() ([]byte, error) {
	return orm.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return orm.Unmarshal(raw, c)
}

func (c *Configuration) GetOwner() xswap.Address {
	return c.Owner
}

// Validate returns ErrConfiguration if the timeouts are not ordered as the
// protocol requires. A redemption must become possible before it expires
// and a destination transfer must be ignored or expire before the holding
// of the source transfer ends.
func (c *Configuration) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(ErrConfiguration, "owner: "+err.Error())
	}
	if len(c.FeeRecipient) != 0 {
		if err := c.FeeRecipient.Validate(); err != nil {
			return errors.Wrap(ErrConfiguration, "fee recipient: "+err.Error())
		}
	}
	if c.FeePerTransfer < 0 {
		return errors.Wrapf(ErrConfiguration, "negative fee %d", c.FeePerTransfer)
	}
	if c.FeePerTransfer > 0 && len(c.FeeRecipient) == 0 {
		return errors.Wrap(ErrConfiguration, "fee recipient required")
	}
	durations := map[string]xswap.UnixDuration{
		"timeout per holding transfer":   c.TimeoutPerHoldingTransfer,
		"time to redeem after acception": c.TimeToRedeemAfterAcception,
		"timeout after acception":        c.TimeoutAfterAcception,
		"timeout to ignore transfer":     c.TimeoutToIgnoreTransfer,
	}
	for name, d := range durations {
		if d < 0 {
			return errors.Wrapf(ErrConfiguration, "negative %s", name)
		}
	}
	if c.TimeToRedeemAfterAcception >= c.TimeoutAfterAcception {
		return errors.Wrapf(ErrConfiguration,
			"time to redeem after acception %s must be shorter than timeout after acception %s",
			c.TimeToRedeemAfterAcception, c.TimeoutAfterAcception)
	}
	if c.TimeoutToIgnoreTransfer+c.TimeoutAfterAcception >= c.TimeoutPerHoldingTransfer {
		return errors.Wrapf(ErrConfiguration,
			"timeout to ignore %s and timeout after acception %s must be shorter than timeout per holding %s",
			c.TimeoutToIgnoreTransfer, c.TimeoutAfterAcception, c.TimeoutPerHoldingTransfer)
	}
	return nil
}

// InitConfig reads the configuration from the genesis options and stores it.
func InitConfig(db xswap.KVStore, opts xswap.Options) error {
	var conf Configuration
	return gconf.InitConfig(db, opts, ConfigPkg, &conf)
}

// loadConf returns the stored configuration.
func loadConf(db xswap.ReadOnlyKVStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, ConfigPkg, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}
