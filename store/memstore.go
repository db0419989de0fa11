package store

import (
	"github.com/google/btree"
)

// MemStore is a simple in-memory KVStore. There is no persistence here, use
// it for tests and as the backing of short lived processes.
type MemStore struct {
	bt *btree.BTree
}

var (
	_ CacheableKVStore = (*MemStore)(nil)
	_ Deleter          = (*MemStore)(nil)
)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{bt: btree.New(2)}
}

// Get returns nil iff key doesn't exist.
func (m *MemStore) Get(key []byte) ([]byte, error) {
	res := m.bt.Get(bkey{key})
	if res == nil {
		return nil, nil
	}
	return res.(setItem).value, nil
}

// Has returns true iff key exists.
func (m *MemStore) Has(key []byte) (bool, error) {
	return m.bt.Has(bkey{key}), nil
}

// Set writes the value directly to the btree.
func (m *MemStore) Set(key, value []byte) error {
	if key == nil {
		panic("nil key")
	}
	m.bt.ReplaceOrInsert(newSetItem(key, value))
	return nil
}

// Delete removes the key, if present.
func (m *MemStore) Delete(key []byte) error {
	m.bt.Delete(bkey{key})
	return nil
}

// Iterator returns all items within given range in ascending order. Items are
// copied when the iterator is created, so the store may be modified while
// iterating.
func (m *MemStore) Iterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(ascendBtree(m.bt, start, end)), nil
}

// CacheWrap returns a scratch pad that is written back to this store on
// Write.
func (m *MemStore) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(m, NewNonAtomicBatch(m), nil)
}
