package transfer

import (
	"fmt"
	"sync"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/gconf"
	"github.com/iov-one/xswap/store"
	"github.com/iov-one/xswap/x"
	"github.com/iov-one/xswap/x/hashlock"
)

// Engine executes the transfer lifecycle.
//
// Every operation runs in its own cache wrap of the store and either writes
// all of its changes, including those made by the gateway, or none of them.
// Operations on the same commitment are totally ordered. Operations moving
// value are additionally serialized with each other, so that ledger
// balances kept in the same store are never overwritten by a concurrent
// operation. Remaining operations on distinct commitments run in parallel.
type Engine struct {
	db        *store.Synchronized
	gw        Gateway
	auth      x.Authenticator
	ledger    Ledger
	observers []Observer

	locks  *keyLocks
	settle sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer that is notified about every event
// published by the engine.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// NewEngine validates and stores the configuration and returns an engine
// operating on given store. Any previously stored configuration is
// replaced. The store must not be used directly while the engine is in use.
func NewEngine(db xswap.KVStore, gw Gateway, auth x.Authenticator, conf Configuration, opts ...Option) (*Engine, error) {
	e, err := newEngine(db, gw, auth, opts)
	if err != nil {
		return nil, err
	}
	if err := gconf.Save(e.db, ConfigPkg, &conf); err != nil {
		return nil, errors.Wrap(err, "save configuration")
	}
	return e, nil
}

// LoadEngine returns an engine using the configuration already present in
// the store.
func LoadEngine(db xswap.KVStore, gw Gateway, auth x.Authenticator, opts ...Option) (*Engine, error) {
	e, err := newEngine(db, gw, auth, opts)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(e.db)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func newEngine(db xswap.KVStore, gw Gateway, auth x.Authenticator, opts []Option) (*Engine, error) {
	if db == nil {
		return nil, errors.Wrap(ErrConfiguration, "store required")
	}
	if gw == nil {
		return nil, errors.Wrap(ErrConfiguration, "ledger gateway required")
	}
	if auth == nil {
		return nil, errors.Wrap(ErrConfiguration, "authenticator required")
	}
	e := &Engine{
		db:     store.NewSynchronized(db),
		gw:     gw,
		auth:   auth,
		ledger: NewLedger(),
		locks:  newKeyLocks(),
	}
	for _, fn := range opts {
		fn(e)
	}
	return e, nil
}

// opFunc is the body of an operation. It receives the cache wrap of the
// operation and returns the resulting transfer together with the events to
// publish once the cache is written.
type opFunc func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error)

func (e *Engine) exec(ctx xswap.Context, op string, key []byte, settle bool, fn opFunc) (t *Transfer, err error) {
	defer errors.Recover(&err)

	if len(key) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "secret hash")
	}
	now, err := xswap.BlockNow(ctx)
	if err != nil {
		return nil, err
	}
	logger := xswap.GetLogger(ctx).With("op", op, "key", fmt.Sprintf("%X", key))

	unlock := e.locks.lock(key)
	defer unlock()
	if settle {
		e.settle.Lock()
		defer e.settle.Unlock()
	}

	cache := e.db.CacheWrap()
	defer cache.Discard()

	conf, err := loadConf(cache)
	if err != nil {
		return nil, err
	}
	t, events, err := fn(cache, conf, now)
	if err != nil {
		logger.Debug("operation rejected", "err", err)
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	logger.Info("transfer updated", "state", t.State)

	for _, ev := range events {
		for _, o := range e.observers {
			o.Notify(ctx, ev)
		}
	}
	return t, nil
}

// Initiate creates a new transfer signed by the main signer. A source
// transfer holds its value from the initiator, who must have approved at
// least that amount.
func (e *Engine) Initiate(ctx xswap.Context, msg InitiateMsg) (*Transfer, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	signer := x.MainSigner(ctx, e.auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "initiator signature required")
	}
	initiator := signer.Address()

	return e.exec(ctx, "initiate", msg.SecretHash, !msg.IsDestination,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			if !conf.InitiationEnabled {
				return nil, nil, errors.Wrap(ErrInitiationDisabled, "initiate")
			}
			switch prev, err := e.ledger.Get(db, msg.SecretHash); {
			case err != nil:
				return nil, nil, err
			case prev != nil:
				return nil, nil, errors.Wrapf(errors.ErrDuplicate, "transfer %X", msg.SecretHash)
			}

			t := &Transfer{
				InitTimestamp:     now,
				Initiator:         initiator,
				SecretHash:        cloneBytes(msg.SecretHash),
				HashType:          msg.HashType,
				SourceLedger:      msg.SourceLedger,
				DestinationLedger: msg.DestinationLedger,
				IsDestination:     msg.IsDestination,
				Value:             msg.Value,
				State:             Initiated,
			}
			if !t.IsDestination {
				if err := e.gw.Hold(db, initiator, t.Value); err != nil {
					return nil, nil, gatewayErr(err, "hold")
				}
			}
			if err := e.ledger.Create(db, t.SecretHash, t); err != nil {
				return nil, nil, errors.Wrap(err, "create transfer")
			}
			ev := InitiatedEvent{
				Initiator:         t.Initiator,
				Timestamp:         t.InitTimestamp,
				SecretHash:        t.SecretHash,
				Value:             t.Value,
				IsDestination:     t.IsDestination,
				HashType:          t.HashType,
				SourceLedger:      t.SourceLedger,
				DestinationLedger: t.DestinationLedger,
			}
			return t, []Event{ev}, nil
		})
}

// Accept marks a destination transfer as accepted by the authority. If the
// transfer waited too long for acceptance it becomes Ignored instead, and
// no error is returned. Any caller can trigger that downgrade.
func (e *Engine) Accept(ctx xswap.Context, key []byte) (*Transfer, error) {
	return e.exec(ctx, "accept", key, false,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			var events []Event
			t, err := e.ledger.Update(db, key, func(t *Transfer) error {
				if t.State != Initiated {
					return errors.Wrapf(errors.ErrInvalidState, "cannot accept %s transfer", t.State)
				}
				if !t.IsDestination {
					return errors.Wrap(errors.ErrInvalidState, "only destination transfer can be accepted")
				}
				// A late accept ignores the transfer whoever calls it.
				if ignoreExpired(t, now, conf) {
					t.State = Ignored
					return nil
				}
				if err := x.RequireAddress(ctx, e.auth, conf.Owner); err != nil {
					return errors.Wrap(err, "authority")
				}
				t.State = Accepted
				t.AcceptionTimestamp = now
				events = append(events, AcceptedEvent{Timestamp: now, SecretHash: t.SecretHash})
				return nil
			})
			return t, events, err
		})
}

// Ban stops an accepted destination transfer from being redeemed.
func (e *Engine) Ban(ctx xswap.Context, key []byte) (*Transfer, error) {
	return e.exec(ctx, "ban", key, false,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			if err := x.RequireAddress(ctx, e.auth, conf.Owner); err != nil {
				return nil, nil, errors.Wrap(err, "authority")
			}
			t, err := e.ledger.Update(db, key, func(t *Transfer) error {
				if t.State != Accepted {
					return errors.Wrapf(errors.ErrInvalidState, "cannot ban %s transfer", t.State)
				}
				if !t.IsDestination {
					return errors.Wrap(errors.ErrInvalidState, "only destination transfer can be banned")
				}
				t.State = Banned
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
			return t, []Event{BannedEvent{SecretHash: t.SecretHash}}, nil
		})
}

// Redeem discloses the secret of a transfer. A destination transfer mints
// its value to the initiator, minus the fee that is minted to the fee
// recipient. A source transfer burns its value.
//
// If the transfer timed out, it is downgraded instead and no error is
// returned. The disclosed secret is stored and a RedeemedEvent is published
// whenever this call does not fail.
func (e *Engine) Redeem(ctx xswap.Context, secret, key []byte) (*Transfer, error) {
	return e.exec(ctx, "redeem", key, true,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			t, err := e.ledger.Update(db, key, func(t *Transfer) error {
				var err error
				if t.IsDestination {
					err = e.redeemDestination(db, conf, now, t, secret)
				} else {
					err = e.redeemSource(db, conf, now, t, secret)
				}
				if err != nil {
					return err
				}
				t.Secret = cloneBytes(secret)
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
			return t, []Event{RedeemedEvent{Secret: t.Secret, SecretHash: t.SecretHash}}, nil
		})
}

func (e *Engine) redeemDestination(db xswap.KVStore, conf *Configuration, now xswap.UnixTime, t *Transfer, secret []byte) error {
	if ignoreExpired(t, now, conf) {
		t.State = Ignored
		return nil
	}
	if !hashlock.Validate(secret, t.SecretHash, t.HashType) {
		return errors.Wrap(ErrInvalidSecret, "redeem")
	}
	if conf.FeePerTransfer > t.Value {
		return errors.Wrapf(errors.ErrInvalidAmount, "fee %d exceeds value %d", conf.FeePerTransfer, t.Value)
	}
	if t.State != Accepted {
		return errors.Wrapf(errors.ErrInvalidState, "cannot redeem %s transfer", t.State)
	}
	elapsed := now.Sub(t.AcceptionTimestamp)
	if elapsed <= conf.TimeToRedeemAfterAcception {
		return errors.Wrapf(errors.ErrInvalidState, "redeem possible %s after acception, %s elapsed",
			conf.TimeToRedeemAfterAcception, elapsed)
	}
	if elapsed > conf.TimeoutAfterAcception {
		t.State = Expired
		return nil
	}

	t.State = Finished
	if amount := t.Value - conf.FeePerTransfer; amount > 0 {
		if err := e.gw.Mint(db, t.Initiator, amount); err != nil {
			return gatewayErr(err, "mint value")
		}
	}
	if conf.FeePerTransfer > 0 {
		if err := e.gw.Mint(db, conf.FeeRecipient, conf.FeePerTransfer); err != nil {
			return gatewayErr(err, "mint fee")
		}
	}
	return nil
}

func (e *Engine) redeemSource(db xswap.KVStore, conf *Configuration, now xswap.UnixTime, t *Transfer, secret []byte) error {
	if holdExpired(t, now, conf) {
		t.State = Expired
		return nil
	}
	if !hashlock.Validate(secret, t.SecretHash, t.HashType) {
		return errors.Wrap(ErrInvalidSecret, "redeem")
	}
	if t.State != Initiated {
		return errors.Wrapf(errors.ErrInvalidState, "cannot redeem %s transfer", t.State)
	}
	t.State = Finished
	if err := e.gw.Burn(db, t.Value); err != nil {
		return gatewayErr(err, "burn")
	}
	return nil
}

// Refund returns the value of an expired source transfer to its initiator.
// A transfer can be refunded only once.
func (e *Engine) Refund(ctx xswap.Context, key []byte) (*Transfer, error) {
	return e.exec(ctx, "refund", key, true,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			t, err := e.ledger.Update(db, key, func(t *Transfer) error {
				if holdExpired(t, now, conf) {
					t.State = Expired
				}
				if t.State != Expired {
					return errors.Wrapf(errors.ErrInvalidState, "cannot refund %s transfer", t.State)
				}
				if t.IsDestination {
					return errors.Wrap(errors.ErrInvalidState, "only source transfer can be refunded")
				}
				if t.Emptied {
					return errors.Wrap(errors.ErrInvalidState, "already refunded")
				}
				t.Emptied = true
				if err := e.gw.Transfer(db, t.Initiator, t.Value); err != nil {
					return gatewayErr(err, "transfer")
				}
				return nil
			})
			return t, nil, err
		})
}

// Touch applies the timeout relevant to the transfer and stores the
// downgrade, if any. It has no other effect and publishes no event.
func (e *Engine) Touch(ctx xswap.Context, key []byte) (*Transfer, error) {
	return e.exec(ctx, "touch", key, false,
		func(db xswap.KVStore, conf *Configuration, now xswap.UnixTime) (*Transfer, []Event, error) {
			t, err := e.ledger.Load(db, key)
			if err != nil {
				return nil, nil, err
			}
			switch {
			case t.IsDestination && ignoreExpired(t, now, conf):
				t, err = e.ledger.Update(db, key, func(t *Transfer) error {
					t.State = Ignored
					return nil
				})
			case holdExpired(t, now, conf):
				t, err = e.ledger.Update(db, key, func(t *Transfer) error {
					t.State = Expired
					return nil
				})
			}
			return t, nil, err
		})
}

// Query returns read access to committed transfers.
func (e *Engine) Query() Query {
	return NewQuery(e.db)
}
