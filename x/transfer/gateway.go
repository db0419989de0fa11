package transfer

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
)

// Gateway is the ledger that custodies the value moved by transfers.
//
// Each call receives the store of the running operation. A ledger kept in
// the same store must write through it, so that its movements are discarded
// together with the transfer when the operation fails. A ledger living
// elsewhere may ignore it.
type Gateway interface {
	// Hold takes the amount from the owner into custody. It fails if the
	// owner did not approve at least that amount.
	Hold(db xswap.KVStore, from xswap.Address, amount int64) error
	// Mint creates new value for the recipient.
	Mint(db xswap.KVStore, to xswap.Address, amount int64) error
	// Burn destroys value kept in custody.
	Burn(db xswap.KVStore, amount int64) error
	// Transfer returns value kept in custody to the recipient.
	Transfer(db xswap.KVStore, to xswap.Address, amount int64) error
}

// gatewayErr ensures that an error returned by a gateway carries a
// registered cause.
func gatewayErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Code(err) == 1 {
		return errors.Wrapf(ErrLedger, "%s: %s", op, err)
	}
	return errors.Wrap(err, op)
}
