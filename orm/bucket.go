package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// Model is implemented by any entity that can be stored using a Bucket.
type Model interface {
	xswap.Persistent
	Validate() error
}

// Bucket is a prefixed subspace of the DB. All entities stored in a bucket
// are expected to be of the same type.
type Bucket struct {
	name   string
	prefix []byte
}

// NewBucket creates a bucket to store data. Name must be 3 to 10 lowercase
// letters or underscores, otherwise this function panics.
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of this bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix.
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b Bucket) DBKey(key []byte) []byte {
	out := make([]byte, len(b.prefix)+len(key))
	n := copy(out, b.prefix)
	copy(out[n:], key)
	return out
}

// Has returns true if an entity with given primary key exists.
func (b Bucket) Has(db xswap.ReadOnlyKVStore, key []byte) (bool, error) {
	if len(key) == 0 {
		return false, errors.Wrap(errors.ErrEmpty, "key")
	}
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return ok, nil
}

// One query the database for a single model instance. Lookup is done by the
// primary key. Result is loaded into given destination model.
// This method returns ErrNotFound if the entity does not exist in the
// database.
func (b Bucket) One(db xswap.ReadOnlyKVStore, key []byte, dest Model) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the %s bucket", dest, b.name)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "%s bucket", b.name)
	}
	return nil
}

// Put saves given model in the database, replacing any previous version.
func (b Bucket) Put(db xswap.KVStore, key []byte, m Model) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Create saves given model in the database. It fails with ErrDuplicate if an
// entity with the same key already exists.
func (b Bucket) Create(db xswap.KVStore, key []byte, m Model) error {
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(errors.ErrDuplicate, "%s bucket key %X", b.name, key)
	}
	return b.Put(db, key, m)
}

// Iterate calls fn for every entity stored in this bucket, in key order. The
// key given to fn does not contain the bucket prefix. Returning an error from
// fn stops the iteration and that error is returned.
func (b Bucket) Iterate(db xswap.ReadOnlyKVStore, fn func(key, raw []byte) error) error {
	start, end := prefixRange(b.prefix)
	it, err := db.Iterator(start, end)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	defer it.Close()

	for it.Valid() {
		if err := fn(it.Key()[len(b.prefix):], it.Value()); err != nil {
			return err
		}
		if err := it.Next(); err != nil {
			return errors.Wrap(errors.ErrDatabase, err.Error())
		}
	}
	return nil
}

// prefixRange turns a prefix into (start, end) to create an iterator. A nil
// end means there is no upper bound.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if prefix == nil {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return prefix, end
		}
	}
	// Every byte rolled over, there is no bigger key of this length.
	return prefix, nil
}
