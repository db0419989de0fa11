package ledger

import (
	"math"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/orm"
)

// Controller moves value between accounts. All methods write through the
// given store.
type Controller struct {
	bucket orm.Bucket
}

// NewController returns a controller operating on the ledger bucket.
func NewController() Controller {
	return Controller{bucket: orm.NewBucket(BucketName)}
}

func (c Controller) account(db xswap.ReadOnlyKVStore, addr xswap.Address) (*Account, error) {
	if err := addr.Validate(); err != nil {
		return nil, errors.Wrap(err, "account address")
	}
	var acc Account
	switch err := c.bucket.One(db, addr, &acc); {
	case err == nil:
		return &acc, nil
	case errors.ErrNotFound.Is(err):
		return &Account{}, nil
	default:
		return nil, err
	}
}

func (c Controller) save(db xswap.KVStore, addr xswap.Address, acc *Account) error {
	return c.bucket.Put(db, addr, acc)
}

// Balance returns the balance of given address. An unknown address has a
// zero balance.
func (c Controller) Balance(db xswap.ReadOnlyKVStore, addr xswap.Address) (int64, error) {
	acc, err := c.account(db, addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Allowance returns how much value can be held from given address.
func (c Controller) Allowance(db xswap.ReadOnlyKVStore, addr xswap.Address) (int64, error) {
	acc, err := c.account(db, addr)
	if err != nil {
		return 0, err
	}
	return acc.Allowance, nil
}

// Approve sets the allowance of the owner. Any previous allowance is
// replaced.
func (c Controller) Approve(db xswap.KVStore, owner xswap.Address, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "negative allowance %d", amount)
	}
	acc, err := c.account(db, owner)
	if err != nil {
		return err
	}
	acc.Allowance = amount
	return c.save(db, owner, acc)
}

// Hold takes given amount from the owner into custody. The owner must have
// approved at least that amount and must own it.
func (c Controller) Hold(db xswap.KVStore, from xswap.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "non positive amount %d", amount)
	}
	acc, err := c.account(db, from)
	if err != nil {
		return err
	}
	if acc.Allowance < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "allowance %d, want %d", acc.Allowance, amount)
	}
	if acc.Balance < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "balance %d, want %d", acc.Balance, amount)
	}
	acc.Allowance -= amount
	acc.Balance -= amount
	if err := c.save(db, from, acc); err != nil {
		return err
	}
	return c.credit(db, CustodyAddress, amount)
}

// Mint creates given amount of value and credits it to the recipient.
func (c Controller) Mint(db xswap.KVStore, to xswap.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "non positive amount %d", amount)
	}
	return c.credit(db, to, amount)
}

// Burn destroys given amount of value kept in custody.
func (c Controller) Burn(db xswap.KVStore, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "non positive amount %d", amount)
	}
	return c.debitCustody(db, amount)
}

// Transfer moves given amount out of custody to the recipient.
func (c Controller) Transfer(db xswap.KVStore, to xswap.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "non positive amount %d", amount)
	}
	if err := c.debitCustody(db, amount); err != nil {
		return err
	}
	return c.credit(db, to, amount)
}

func (c Controller) credit(db xswap.KVStore, to xswap.Address, amount int64) error {
	acc, err := c.account(db, to)
	if err != nil {
		return err
	}
	if acc.Balance > math.MaxInt64-amount {
		return errors.Wrapf(errors.ErrOverflow, "balance of %s", to)
	}
	acc.Balance += amount
	return c.save(db, to, acc)
}

func (c Controller) debitCustody(db xswap.KVStore, amount int64) error {
	acc, err := c.account(db, CustodyAddress)
	if err != nil {
		return err
	}
	if acc.Balance < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "custody holds %d, want %d", acc.Balance, amount)
	}
	acc.Balance -= amount
	return c.save(db, CustodyAddress, acc)
}
