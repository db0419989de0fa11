package transfer

import (
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/x/hashlock"
)

// InitiateMsg describes a new transfer.
type InitiateMsg struct {
	// SecretHash is the commitment. It is the unique key of the transfer.
	SecretHash        []byte
	Value             int64
	IsDestination     bool
	HashType          hashlock.HashType
	SourceLedger      string
	DestinationLedger string
}

// Validate ensures the message can be used to create a transfer.
func (m InitiateMsg) Validate() error {
	if m.Value <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "value must be positive, got %d", m.Value)
	}
	if len(m.SecretHash) == 0 {
		return errors.Wrap(errors.ErrEmpty, "secret hash")
	}
	if !m.HashType.Supported() {
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported hash type %s", m.HashType)
	}
	if len(m.SecretHash) != m.HashType.Size() {
		return errors.Wrapf(errors.ErrInvalidInput,
			"%s secret hash must be %d bytes, got %d", m.HashType, m.HashType.Size(), len(m.SecretHash))
	}
	return nil
}
