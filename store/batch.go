package store

import "github.com/iov-one/xswap/errors"

// Op is a single set operation
type Op struct {
	key   []byte
	value []byte
}

// Apply writes this operation to given store.
func (o Op) Apply(out SetWriter) error {
	return out.Set(o.key, o.value)
}

// Validate returns an error if this operation cannot be written to a
// persistent store.
func (o Op) Validate() error {
	if len(o.key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "batch key")
	}
	if o.value == nil {
		return errors.Wrapf(errors.ErrInvalidInput, "nil value at %X", o.key)
	}
	return nil
}

// SetOp is a helper to create a set operation
func SetOp(key, value []byte) Op {
	return Op{key: key, value: value}
}

// NonAtomicBatch just piles up ops and executes them later
// on the underlying store. Can be used when there is no better
// option (for in-memory stores).
//
// NOTE: Never use this for KVStores that are persistent
type NonAtomicBatch struct {
	out SetWriter
	ops []Op
}

var _ Batch = (*NonAtomicBatch)(nil)

// NewNonAtomicBatch creates an empty batch to be later writen
// to the KVStore
func NewNonAtomicBatch(out SetWriter) *NonAtomicBatch {
	return &NonAtomicBatch{
		out: out,
	}
}

// Set adds a set operation to the batch
func (b *NonAtomicBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

// Write writes all the ops to the underlying store and resets
func (b *NonAtomicBatch) Write() error {
	for _, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

// ShowOps is intended for testing only
func (b *NonAtomicBatch) ShowOps() []Op {
	return b.ops
}
