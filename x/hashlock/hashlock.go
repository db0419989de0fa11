package hashlock

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iov-one/xswap/errors"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// HashType identifies the hash function used to compute a commitment.
type HashType int32

const (
	SHA256 HashType = iota
	Keccak256
	RIPEMD160
)

var hashTypeNames = map[HashType]string{
	SHA256:    "sha256",
	Keccak256: "keccak256",
	RIPEMD160: "ripemd160",
}

// String returns the lowercase name of the hash function.
func (h HashType) String() string {
	if name, ok := hashTypeNames[h]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(h))
}

// Supported returns true if this package can compute digests of this type.
func (h HashType) Supported() bool {
	_, ok := hashTypeNames[h]
	return ok
}

// Size returns the digest length in bytes, or zero for an unsupported type.
func (h HashType) Size() int {
	switch h {
	case SHA256:
		return sha256.Size
	case Keccak256:
		return 32
	case RIPEMD160:
		return ripemd160.Size
	}
	return 0
}

// ParseHashType returns the hash type identified by given name. Lookup is
// case insensitive.
func ParseHashType(name string) (HashType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for h, n := range hashTypeNames {
		if n == name {
			return h, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInvalidType, "unknown hash type %q", name)
}

// MarshalJSON encodes the hash type using its name.
func (h HashType) MarshalJSON() ([]byte, error) {
	if !h.Supported() {
		return nil, errors.Wrapf(errors.ErrInvalidType, "hash type %d", int32(h))
	}
	return json.Marshal(h.String())
}

// UnmarshalJSON accepts either a name or a numeric identifier.
func (h *HashType) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		v, err := ParseHashType(name)
		if err != nil {
			return err
		}
		*h = v
		return nil
	}
	var n int32
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "hash type must be a name or a number")
	}
	*h = HashType(n)
	return nil
}

// Hash returns the digest of the secret computed with given hash function.
func Hash(secret []byte, h HashType) ([]byte, error) {
	switch h {
	case SHA256:
		sum := sha256.Sum256(secret)
		return sum[:], nil
	case Keccak256:
		d := sha3.NewLegacyKeccak256()
		d.Write(secret)
		return d.Sum(nil), nil
	case RIPEMD160:
		d := ripemd160.New()
		d.Write(secret)
		return d.Sum(nil), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidType, "hash type %d", int32(h))
	}
}

// Validate returns true if the secret hashed with given function is equal to
// the hash. An unsupported hash type never validates.
func Validate(secret, hash []byte, h HashType) bool {
	digest, err := Hash(secret, h)
	if err != nil {
		return false
	}
	return bytes.Equal(digest, hash)
}
