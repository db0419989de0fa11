/*
Package store provides the KVStore implementations used by xswap.

MemStore is an in-memory btree, BTreeCacheWrap is the scratch pad every
operation is executed in, and Synchronized makes a store safe to share
between concurrently running operations. A persistent, versioned store is
provided by the store/iavl package.
*/
package store
