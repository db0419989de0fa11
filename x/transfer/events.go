package transfer

import (
	"strconv"
	"sync"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/x/hashlock"
	cmn "github.com/tendermint/tendermint/libs/common"
)

// Event is a notification published after a successful operation.
type Event interface {
	// Name returns the event type name.
	Name() string
	// Tags returns the event attributes as key value pairs.
	Tags() []cmn.KVPair
}

func tag(key, value string) cmn.KVPair {
	return cmn.KVPair{Key: []byte(key), Value: []byte(value)}
}

func boolTag(key string, value bool) cmn.KVPair {
	return tag(key, strconv.FormatBool(value))
}

// InitiatedEvent is published when a transfer is created.
type InitiatedEvent struct {
	Initiator         xswap.Address
	Timestamp         xswap.UnixTime
	SecretHash        cmn.HexBytes
	Value             int64
	IsDestination     bool
	HashType          hashlock.HashType
	SourceLedger      string
	DestinationLedger string
}

func (InitiatedEvent) Name() string { return "initiated" }

func (e InitiatedEvent) Tags() []cmn.KVPair {
	return []cmn.KVPair{
		tag("initiator", e.Initiator.String()),
		tag("timestamp", strconv.FormatInt(int64(e.Timestamp), 10)),
		tag("secret_hash", e.SecretHash.String()),
		tag("value", strconv.FormatInt(e.Value, 10)),
		boolTag("is_destination", e.IsDestination),
		tag("hash_type", e.HashType.String()),
		tag("source_ledger", e.SourceLedger),
		tag("destination_ledger", e.DestinationLedger),
	}
}

// AcceptedEvent is published when the authority accepts a destination
// transfer.
type AcceptedEvent struct {
	Timestamp  xswap.UnixTime
	SecretHash cmn.HexBytes
}

func (AcceptedEvent) Name() string { return "accepted" }

func (e AcceptedEvent) Tags() []cmn.KVPair {
	return []cmn.KVPair{
		tag("timestamp", strconv.FormatInt(int64(e.Timestamp), 10)),
		tag("secret_hash", e.SecretHash.String()),
	}
}

// BannedEvent is published when the authority bans a destination transfer.
type BannedEvent struct {
	SecretHash cmn.HexBytes
}

func (BannedEvent) Name() string { return "banned" }

func (e BannedEvent) Tags() []cmn.KVPair {
	return []cmn.KVPair{tag("secret_hash", e.SecretHash.String())}
}

// RedeemedEvent is published by every redeem call that does not fail,
// including calls that only downgraded the transfer.
type RedeemedEvent struct {
	Secret     cmn.HexBytes
	SecretHash cmn.HexBytes
}

func (RedeemedEvent) Name() string { return "redeemed" }

func (e RedeemedEvent) Tags() []cmn.KVPair {
	return []cmn.KVPair{
		tag("secret", e.Secret.String()),
		tag("secret_hash", e.SecretHash.String()),
	}
}

// RefundedEvent describes a refund. Refund does not publish it.
type RefundedEvent struct {
	SecretHash cmn.HexBytes
}

func (RefundedEvent) Name() string { return "refunded" }

func (e RefundedEvent) Tags() []cmn.KVPair {
	return []cmn.KVPair{tag("secret_hash", e.SecretHash.String())}
}

// Observer is notified about every published event.
type Observer interface {
	Notify(ctx xswap.Context, e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(xswap.Context, Event)

func (fn ObserverFunc) Notify(ctx xswap.Context, e Event) {
	fn(ctx, e)
}

// EventLog is an observer that keeps all events in memory. It is safe for
// concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

var _ Observer = (*EventLog)(nil)

func (l *EventLog) Notify(_ xswap.Context, e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Events returns a copy of all recorded events, in publication order.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]Event, len(l.events))
	copy(res, l.events)
	return res
}

// Reset drops all recorded events.
func (l *EventLog) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
