package transfer

import (
	"bytes"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/orm"
)

// Ledger is the append only store of transfers, keyed by their
// commitment. Records are never deleted.
type Ledger struct {
	bucket orm.Bucket
}

// NewLedger returns a ledger using the transfer bucket.
func NewLedger() Ledger {
	return Ledger{bucket: orm.NewBucket("transfer")}
}

// Create stores a new transfer. It fails with ErrDuplicate if a transfer
// with the same commitment exists.
func (l Ledger) Create(db xswap.KVStore, key []byte, t *Transfer) error {
	if !bytes.Equal(key, t.SecretHash) {
		return errors.Wrap(errors.ErrInvalidInput, "key must be the secret hash")
	}
	return l.bucket.Create(db, key, t)
}

// Get returns the transfer stored under given key or nil if it does not
// exist.
func (l Ledger) Get(db xswap.ReadOnlyKVStore, key []byte) (*Transfer, error) {
	t, err := l.Load(db, key)
	if errors.ErrNotFound.Is(err) {
		return nil, nil
	}
	return t, err
}

// Load returns the transfer stored under given key or ErrNotFound.
func (l Ledger) Load(db xswap.ReadOnlyKVStore, key []byte) (*Transfer, error) {
	var t Transfer
	if err := l.bucket.One(db, key, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update loads the transfer, applies the mutation to a copy and saves the
// result. Nothing is written if fn returns an error or if the mutated
// transfer is not a valid successor of the stored one. Updated transfer is
// returned.
func (l Ledger) Update(db xswap.KVStore, key []byte, fn func(*Transfer) error) (*Transfer, error) {
	prev, err := l.Load(db, key)
	if err != nil {
		return nil, err
	}
	next := prev.Copy()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := checkUpdate(prev, next); err != nil {
		return nil, err
	}
	if err := l.bucket.Put(db, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Iterate calls fn for every transfer, ordered by the commitment.
func (l Ledger) Iterate(db xswap.ReadOnlyKVStore, fn func(*Transfer) error) error {
	return l.bucket.Iterate(db, func(key, raw []byte) error {
		var t Transfer
		if err := t.Unmarshal(raw); err != nil {
			return errors.Wrapf(err, "transfer %X", key)
		}
		return fn(&t)
	})
}
