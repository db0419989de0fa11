package transfer

import "github.com/iov-one/xswap"

// ignoreExpired returns true if a transfer that is still Initiated was not
// accepted in time and must be ignored. It applies to destination
// transfers.
func ignoreExpired(t *Transfer, now xswap.UnixTime, conf *Configuration) bool {
	return t.State == Initiated && now.Sub(t.InitTimestamp) > conf.TimeoutToIgnoreTransfer
}

// holdExpired returns true if a source transfer that is still Initiated was
// not redeemed before its holding timeout and must expire.
func holdExpired(t *Transfer, now xswap.UnixTime, conf *Configuration) bool {
	return !t.IsDestination && t.State == Initiated && now.Sub(t.InitTimestamp) > conf.TimeoutPerHoldingTransfer
}
