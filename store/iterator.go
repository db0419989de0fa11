package store

import (
	"bytes"
)

// SliceIterator wraps an Iterator over a slice of models
type SliceIterator struct {
	data []Model
	idx  int
}

var _ Iterator = (*SliceIterator)(nil)

// NewSliceIterator creates a new Iterator over this slice
func NewSliceIterator(data []Model) *SliceIterator {
	return &SliceIterator{
		data: data,
	}
}

// Valid implements Iterator and returns true iff it can be read
func (s *SliceIterator) Valid() bool {
	return s.idx < len(s.data)
}

// Next moves the iterator to the next sequential key in the database, as
// defined by order of iteration.
//
// If Valid returns false, this method will panic.
func (s *SliceIterator) Next() error {
	s.assertValid()
	s.idx++
	return nil
}

func (s *SliceIterator) assertValid() {
	if s.idx >= len(s.data) {
		panic("Passed end of slice")
	}
}

// Key returns the key of the cursor.
func (s *SliceIterator) Key() (key []byte) {
	s.assertValid()
	return s.data[s.idx].Key
}

// Value returns the value of the cursor.
func (s *SliceIterator) Value() (value []byte) {
	s.assertValid()
	return s.data[s.idx].Value
}

// Close releases the Iterator.
func (s *SliceIterator) Close() {
	s.data = nil
}

// mergeIterator combines cached items with the parent iterator. When both
// contain the same key, the cached value wins.
type mergeIterator struct {
	cached []Model
	parent Iterator
}

var _ Iterator = (*mergeIterator)(nil)

func newMergeIterator(cached []Model, parent Iterator) *mergeIterator {
	return &mergeIterator{cached: cached, parent: parent}
}

// source marks where the current item comes from
type source int32

const (
	us source = iota
	parent
	both
	none
)

func (i *mergeIterator) Valid() bool {
	return i.firstKey() != none
}

func (i *mergeIterator) Next() error {
	switch i.firstKey() {
	case us:
		i.cached = i.cached[1:]
	case both:
		i.cached = i.cached[1:]
		return i.parent.Next()
	case parent:
		return i.parent.Next()
	default:
		panic("Advanced past the end!")
	}
	return nil
}

func (i *mergeIterator) Key() []byte {
	switch i.firstKey() {
	case us, both:
		return i.cached[0].Key
	case parent:
		return i.parent.Key()
	default:
		panic("Advanced past the end!")
	}
}

func (i *mergeIterator) Value() []byte {
	switch i.firstKey() {
	case us, both:
		return i.cached[0].Value
	case parent:
		return i.parent.Value()
	default:
		panic("Advanced past the end!")
	}
}

func (i *mergeIterator) Close() {
	i.parent.Close()
	i.cached = nil
}

// firstKey selects the source with the lowest key if any
func (i *mergeIterator) firstKey() source {
	parentValid := i.parent != nil && i.parent.Valid()
	if !parentValid {
		if len(i.cached) == 0 {
			return none
		}
		return us
	} else if len(i.cached) == 0 {
		return parent
	}

	switch cmp := bytes.Compare(i.parent.Key(), i.cached[0].Key); {
	case cmp < 0:
		return parent
	case cmp > 0:
		return us
	default:
		return both
	}
}
