package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/orm"
	"github.com/iov-one/xswap/x/hashlock"
	cmn "github.com/tendermint/tendermint/libs/common"
)

// State is the lifecycle stage of a transfer.
type State int32

const (
	Initiated State = iota
	Accepted
	Banned
	Expired
	Ignored
	Finished
)

var stateNames = map[State]string{
	Initiated: "Initiated",
	Accepted:  "Accepted",
	Banned:    "Banned",
	Expired:   "Expired",
	Ignored:   "Ignored",
	Finished:  "Finished",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// MarshalJSON encodes the state using its name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the state name or its numeric value.
func (s *State) UnmarshalJSON(raw []byte) error {
	var n int32
	if err := json.Unmarshal(raw, &n); err == nil {
		*s = State(n)
		return s.Validate()
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "state must be a name or a number")
	}
	for st, n := range stateNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInvalidState, "unknown state %q", name)
}

// Validate returns an error if this is not a known state.
func (s State) Validate() error {
	if _, ok := stateNames[s]; !ok {
		return errors.Wrapf(errors.ErrInvalidState, "unknown state %d", int32(s))
	}
	return nil
}

// Terminal returns true if no further transition is possible from this state.
func (s State) Terminal() bool {
	switch s {
	case Banned, Expired, Ignored, Finished:
		return true
	}
	return false
}

// CanTransit returns true if a record in this state can be moved to the
// next state. Staying in the same state is always allowed.
func (s State) CanTransit(next State) bool {
	if s == next {
		return true
	}
	switch s {
	case Initiated:
		return next == Accepted || next == Ignored || next == Expired || next == Finished
	case Accepted:
		return next == Banned || next == Finished || next == Expired
	}
	return false
}

// Transfer is a single cross ledger transfer, stored under its commitment.
type Transfer struct {
	InitTimestamp      xswap.UnixTime    `json:"init_timestamp"`
	Initiator          xswap.Address     `json:"initiator"`
	Secret             cmn.HexBytes      `json:"secret"`
	SecretHash         cmn.HexBytes      `json:"secret_hash"`
	HashType           hashlock.HashType `json:"hash_type"`
	SourceLedger       string            `json:"source_ledger"`
	DestinationLedger  string            `json:"destination_ledger"`
	Emptied            bool              `json:"emptied"`
	IsDestination      bool              `json:"is_destination"`
	Value              int64             `json:"value"`
	State              State             `json:"state"`
	AcceptionTimestamp xswap.UnixTime    `json:"acception_timestamp"`
}

var _ orm.Model = (*Transfer)(nil)

func (t *Transfer) Marshal() ([]byte, error) {
	return orm.Marshal(t)
}

func (t *Transfer) Unmarshal(raw []byte) error {
	return orm.Unmarshal(raw, t)
}

// Validate ensures the transfer is valid.
func (t *Transfer) Validate() error {
	if len(t.SecretHash) == 0 {
		return errors.Wrap(errors.ErrEmpty, "secret hash")
	}
	if err := t.Initiator.Validate(); err != nil {
		return errors.Wrap(err, "initiator")
	}
	if err := t.InitTimestamp.Validate(); err != nil {
		return errors.Wrap(err, "init timestamp")
	}
	if err := t.AcceptionTimestamp.Validate(); err != nil {
		return errors.Wrap(err, "acception timestamp")
	}
	if t.Value <= 0 {
		return errors.Wrapf(errors.ErrInvalidAmount, "value %d", t.Value)
	}
	if err := t.State.Validate(); err != nil {
		return err
	}
	if (t.State == Initiated || t.State == Ignored) && !t.AcceptionTimestamp.IsZero() {
		return errors.Wrapf(errors.ErrInvalidModel, "acception timestamp set in %s state", t.State)
	}
	if t.IsDestination {
		if t.Emptied {
			return errors.Wrap(errors.ErrInvalidModel, "destination transfer cannot be emptied")
		}
	} else {
		switch t.State {
		case Accepted, Banned, Ignored:
			return errors.Wrapf(errors.ErrInvalidModel, "source transfer cannot be %s", t.State)
		}
		if t.Emptied && t.State != Expired {
			return errors.Wrapf(errors.ErrInvalidModel, "emptied transfer in %s state", t.State)
		}
	}
	return nil
}

// Copy returns a deep copy of this transfer.
func (t *Transfer) Copy() *Transfer {
	cpy := *t
	cpy.Initiator = t.Initiator.Clone()
	cpy.Secret = cloneBytes(t.Secret)
	cpy.SecretHash = cloneBytes(t.SecretHash)
	return &cpy
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// checkUpdate returns an error if next is not a valid successor of prev.
// Immutable fields must not change, emptied can only be set and the state
// must follow the lifecycle.
func checkUpdate(prev, next *Transfer) error {
	switch {
	case prev.InitTimestamp != next.InitTimestamp:
		return errors.Wrap(errors.ErrCannotBeModified, "init timestamp")
	case !prev.Initiator.Equals(next.Initiator):
		return errors.Wrap(errors.ErrCannotBeModified, "initiator")
	case !bytes.Equal(prev.SecretHash, next.SecretHash):
		return errors.Wrap(errors.ErrCannotBeModified, "secret hash")
	case prev.HashType != next.HashType:
		return errors.Wrap(errors.ErrCannotBeModified, "hash type")
	case prev.SourceLedger != next.SourceLedger:
		return errors.Wrap(errors.ErrCannotBeModified, "source ledger")
	case prev.DestinationLedger != next.DestinationLedger:
		return errors.Wrap(errors.ErrCannotBeModified, "destination ledger")
	case prev.IsDestination != next.IsDestination:
		return errors.Wrap(errors.ErrCannotBeModified, "destination flag")
	case prev.Value != next.Value:
		return errors.Wrap(errors.ErrCannotBeModified, "value")
	case prev.Emptied && !next.Emptied:
		return errors.Wrap(errors.ErrCannotBeModified, "emptied flag")
	case !prev.AcceptionTimestamp.IsZero() && prev.AcceptionTimestamp != next.AcceptionTimestamp:
		return errors.Wrap(errors.ErrCannotBeModified, "acception timestamp")
	}
	if !prev.State.CanTransit(next.State) {
		return errors.Wrapf(errors.ErrInvalidState, "%s cannot become %s", prev.State, next.State)
	}
	return nil
}
