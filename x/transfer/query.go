package transfer

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/x/hashlock"
)

// Query gives read only access to transfers. It never applies timeouts, so
// a transfer is returned in the state it was last written with.
type Query struct {
	db     xswap.ReadOnlyKVStore
	ledger Ledger
}

// NewQuery returns a query reading from given store.
func NewQuery(db xswap.ReadOnlyKVStore) Query {
	return Query{db: db, ledger: NewLedger()}
}

// Transfer returns the whole transfer stored under the key or ErrNotFound.
func (q Query) Transfer(key []byte) (*Transfer, error) {
	return q.ledger.Load(q.db, key)
}

// List returns all transfers, ordered by their commitment.
func (q Query) List() ([]*Transfer, error) {
	var res []*Transfer
	err := q.ledger.Iterate(q.db, func(t *Transfer) error {
		res = append(res, t)
		return nil
	})
	return res, err
}

func (q Query) InitTimestamp(key []byte) (xswap.UnixTime, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return 0, err
	}
	return t.InitTimestamp, nil
}

func (q Query) Initiator(key []byte) (xswap.Address, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return nil, err
	}
	return t.Initiator, nil
}

// Secret returns the last disclosed secret. It is empty until the first
// redeem call.
func (q Query) Secret(key []byte) ([]byte, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return nil, err
	}
	return t.Secret, nil
}

func (q Query) HashType(key []byte) (hashlock.HashType, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return 0, err
	}
	return t.HashType, nil
}

func (q Query) IsDestination(key []byte) (bool, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return false, err
	}
	return t.IsDestination, nil
}

func (q Query) Value(key []byte) (int64, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return 0, err
	}
	return t.Value, nil
}

func (q Query) State(key []byte) (State, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return 0, err
	}
	return t.State, nil
}

// AcceptionTimestamp returns zero for a transfer that was never accepted.
func (q Query) AcceptionTimestamp(key []byte) (xswap.UnixTime, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return 0, err
	}
	return t.AcceptionTimestamp, nil
}

func (q Query) SourceLedger(key []byte) (string, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return "", err
	}
	return t.SourceLedger, nil
}

func (q Query) DestinationLedger(key []byte) (string, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return "", err
	}
	return t.DestinationLedger, nil
}

func (q Query) Emptied(key []byte) (bool, error) {
	t, err := q.Transfer(key)
	if err != nil {
		return false, err
	}
	return t.Emptied, nil
}
