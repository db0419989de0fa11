package xswap

import (
	"encoding/json"
)

// Options are the genesis options.
// Each extension can look up it's key and parse the json as desired
type Options map[string]json.RawMessage

// ReadOptions reads the values stored under a given key,
// and parses the json into the given obj.
// Returns an error if it cannot parse.
// Noop and no error if key is missing
func (o Options) ReadOptions(key string, obj interface{}) error {
	msg := o[key]
	if len(msg) == 0 {
		return nil
	}
	return json.Unmarshal(msg, obj)
}

// Persistent supports efficient (de)serialization
// and is used by every model that is stored in a KVStore.
type Persistent interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}
