package store

import "github.com/iov-one/xswap"

// Move references for all storage types into this package
// for shorter names everywhere

type ReadOnlyKVStore = xswap.ReadOnlyKVStore
type SetWriter = xswap.SetWriter
type KVStore = xswap.KVStore
type Iterator = xswap.Iterator
type CacheableKVStore = xswap.CacheableKVStore
type KVCacheWrap = xswap.KVCacheWrap
type CommitKVStore = xswap.CommitKVStore
type CommitID = xswap.CommitID
type Batch = xswap.Batch

// Model groups together key and value to return
type Model struct {
	Key   []byte
	Value []byte
}

// Deleter is implemented by stores that can remove a key. Records are never
// removed by the protocol, it is only used to roll back a failed batch.
type Deleter interface {
	Delete(key []byte) error
}
