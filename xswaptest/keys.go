/*
Package xswaptest provides helpers for testing xswap extensions: mock
authenticators, unique conditions and deterministic keys.
*/
package xswaptest

import (
	"crypto/sha256"
	"encoding/binary"
	"sync/atomic"

	"github.com/iov-one/xswap"
)

var condSeq uint64

// NewCondition returns a new, unique condition. Each call returns a
// condition that was never returned before within this process.
func NewCondition() xswap.Condition {
	n := atomic.AddUint64(&condSeq, 1)
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, n)
	return xswap.NewCondition("test", "seq", id)
}

// NewCommitment returns a unique 32 byte value that can be used as a
// commitment key in tests that do not care about the secret.
func NewCommitment() []byte {
	h := sha256.Sum256(NewCondition())
	return h[:]
}
