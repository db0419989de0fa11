package store

import (
	"sync"

	"github.com/iov-one/xswap/errors"
)

// Synchronized guards a CacheableKVStore with a read-write lock, so that it
// can be shared by concurrently running operations. Every operation must be
// executed on its own cache wrap created with CacheWrap. Writing a cache wrap
// back applies all of its changes under a single write lock, so readers never
// observe a partially written cache.
type Synchronized struct {
	mu sync.RWMutex
	kv KVStore
}

var _ CacheableKVStore = (*Synchronized)(nil)

// NewSynchronized wraps given store. The wrapped store must not be accessed
// directly anymore.
func NewSynchronized(kv KVStore) *Synchronized {
	return &Synchronized{kv: kv}
}

func (s *Synchronized) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kv.Get(key)
}

func (s *Synchronized) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kv.Has(key)
}

func (s *Synchronized) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Set(key, value)
}

// Iterator loads the whole range while holding the read lock. The returned
// iterator is not affected by later writes.
func (s *Synchronized) Iterator(start, end []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.kv.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var res []Model
	for it.Valid() {
		res = append(res, Model{Key: it.Key(), Value: it.Value()})
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return NewSliceIterator(res), nil
}

// CacheWrap returns a scratch pad on top of this store. Its Write applies
// all collected changes atomically.
func (s *Synchronized) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(s, &lockedBatch{s: s}, nil)
}

// lockedBatch collects set operations and applies them to the synchronized
// store while holding the write lock for the whole batch. A batch is written
// entirely or not at all: if any operation fails or panics, every key touched
// so far is restored to the value it had before the write.
type lockedBatch struct {
	s   *Synchronized
	ops []Op
}

func (b *lockedBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *lockedBatch) Write() (err error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, op := range b.ops {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	undo, err := snapshot(b.s.kv, b.ops)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrDatabase, "batch write panic: %v", r)
		}
		if err != nil {
			if rerr := undo.restore(b.s.kv); rerr != nil {
				err = errors.Wrapf(rerr, "rollback of %s", err)
			}
		}
	}()

	for _, op := range b.ops {
		if err := op.Apply(b.s.kv); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

// undoLog keeps the state of every key a batch is going to overwrite.
type undoLog []undoEntry

type undoEntry struct {
	key    []byte
	value  []byte
	exists bool
}

func snapshot(kv KVStore, ops []Op) (undoLog, error) {
	seen := make(map[string]struct{}, len(ops))
	undo := make(undoLog, 0, len(ops))
	for _, op := range ops {
		if _, ok := seen[string(op.key)]; ok {
			continue
		}
		seen[string(op.key)] = struct{}{}

		exists, err := kv.Has(op.key)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, err.Error())
		}
		var value []byte
		if exists {
			if value, err = kv.Get(op.key); err != nil {
				return nil, errors.Wrap(errors.ErrDatabase, err.Error())
			}
		}
		undo = append(undo, undoEntry{key: op.key, value: value, exists: exists})
	}
	return undo, nil
}

// restore writes back the snapshot. Keys that did not exist are removed,
// which requires the store to implement Deleter.
func (u undoLog) restore(kv KVStore) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrDatabase, "rollback panic: %v", r)
		}
	}()

	for i := len(u) - 1; i >= 0; i-- {
		e := u[i]
		if e.exists {
			if err := kv.Set(e.key, e.value); err != nil {
				return errors.Wrap(errors.ErrDatabase, err.Error())
			}
			continue
		}
		d, ok := kv.(Deleter)
		if !ok {
			return errors.Wrapf(errors.ErrDatabase, "cannot remove %X from %T", e.key, kv)
		}
		if err := d.Delete(e.key); err != nil {
			return errors.Wrap(errors.ErrDatabase, err.Error())
		}
	}
	return nil
}
