/*
Package hashlock verifies secrets disclosed to unlock a hash time locked
transfer.

A commitment is the digest of a secret computed with one of the supported
hash functions. Validate recomputes that digest for a disclosed secret and
compares it with the commitment. Validation never fails loudly: an unknown
hash type simply does not validate.
*/
package hashlock
