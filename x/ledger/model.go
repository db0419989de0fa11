package ledger

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/orm"
)

// BucketName is where we store the accounts
const BucketName = "ledger"

// Account is the state of a single address.
type Account struct {
	Balance   int64 `json:"balance"`
	Allowance int64 `json:"allowance"`
}

var _ orm.Model = (*Account)(nil)

func (a *Account) Marshal() ([]byte, error) {
	return orm.Marshal(a)
}

func (a *Account) Unmarshal(raw []byte) error {
	return orm.Unmarshal(raw, a)
}

// Validate ensures that the account does not hold a negative value.
func (a *Account) Validate() error {
	if a.Balance < 0 {
		return errors.Wrapf(errors.ErrInvalidState, "negative balance %d", a.Balance)
	}
	if a.Allowance < 0 {
		return errors.Wrapf(errors.ErrInvalidState, "negative allowance %d", a.Allowance)
	}
	return nil
}

// CustodyAddress is the account holding all value that was taken by a hold
// and was neither burned nor returned yet.
var CustodyAddress = xswap.NewCondition("ledger", "custody", []byte("htlc")).Address()
