package transfer

import "github.com/iov-one/xswap/errors"

var (
	// ErrInvalidSecret is returned when a disclosed secret does not match
	// the commitment of a transfer.
	ErrInvalidSecret = errors.Register(1000, "invalid secret")

	// ErrConfiguration is returned when the protocol configuration breaks
	// the timeout ordering or is otherwise unusable.
	ErrConfiguration = errors.Register(1001, "invalid configuration")

	// ErrInitiationDisabled is returned when a transfer is initiated while
	// the authority disabled initiations.
	ErrInitiationDisabled = errors.Register(1002, "initiation disabled")

	// ErrLedger is returned when a ledger gateway fails with an error that
	// does not carry any registered cause.
	ErrLedger = errors.Register(1003, "ledger")
)
