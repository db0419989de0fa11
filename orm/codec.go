package orm

import (
	"reflect"

	"github.com/iov-one/xswap/errors"
	amino "github.com/tendermint/go-amino"
)

var cdc = amino.NewCodec()

// Marshal serializes given structure using the binary bare amino encoding. It
// is meant to be used by models to implement xswap.Persistent.
//
// A model with only zero value fields has an empty bare encoding. It is
// returned as an empty, non nil slice because persistent stores refuse to
// save a nil value.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(v)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidModel, "marshal %T: %s", v, err)
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

// Unmarshal deserializes data produced by Marshal into given pointer. Empty
// data resets the destination to its zero value.
func Unmarshal(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		rv := reflect.ValueOf(dest)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return errors.Wrapf(errors.ErrInvalidModel, "unmarshal into %T", dest)
		}
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		return nil
	}
	if err := cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrInvalidModel, "unmarshal %T: %s", dest, err)
	}
	return nil
}
