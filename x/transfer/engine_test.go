package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/store"
	"github.com/iov-one/xswap/store/iavl"
	"github.com/iov-one/xswap/x/hashlock"
	"github.com/iov-one/xswap/x/ledger"
	"github.com/iov-one/xswap/xswaptest"
	"github.com/iov-one/xswap/xswaptest/assert"
	"github.com/stretchr/testify/require"
)

var _ Gateway = ledger.Controller{}

type fixture struct {
	engine *Engine
	bank   ledger.Controller
	events *EventLog
	auth   *xswaptest.CtxAuth
	owner  xswap.Condition
	alice  xswap.Condition
	fees   xswap.Address
}

// newFixture returns an engine backed by the in store ledger. Alice owns and
// approved 1000. Timeouts are: holding 1000, redeem after 50, redeem
// timeout 100, ignore 200. Fee is 5.
func newFixture(t testing.TB, mod func(*Configuration)) *fixture {
	t.Helper()
	return newFixtureOn(t, store.NewMemStore(), mod)
}

// newFixtureOn is newFixture writing to given store.
func newFixtureOn(t testing.TB, db xswap.KVStore, mod func(*Configuration)) *fixture {
	t.Helper()
	f := &fixture{
		bank:   ledger.NewController(),
		events: &EventLog{},
		auth:   &xswaptest.CtxAuth{Key: "transfer"},
		owner:  xswaptest.NewCondition(),
		alice:  xswaptest.NewCondition(),
		fees:   xswaptest.NewCondition().Address(),
	}
	conf := Configuration{
		Owner:                      f.owner.Address(),
		FeeRecipient:               f.fees,
		InitiationEnabled:          true,
		FeePerTransfer:             5,
		TimeoutPerHoldingTransfer:  1000,
		TimeToRedeemAfterAcception: 50,
		TimeoutAfterAcception:      100,
		TimeoutToIgnoreTransfer:    200,
	}
	if mod != nil {
		mod(&conf)
	}

	require.NoError(t, f.bank.Mint(db, f.alice.Address(), 1000))
	require.NoError(t, f.bank.Approve(db, f.alice.Address(), 1000))

	e, err := NewEngine(db, f.bank, f.auth, conf, WithObserver(f.events))
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *fixture) ctx(at int64, signers ...xswap.Condition) xswap.Context {
	ctx := xswap.WithBlockTime(context.Background(), time.Unix(at, 0))
	return f.auth.SetConditions(ctx, signers...)
}

func (f *fixture) balance(t testing.TB, addr xswap.Address) int64 {
	t.Helper()
	b, err := f.bank.Balance(f.engine.db, addr)
	require.NoError(t, err)
	return b
}

func (f *fixture) initiate(t testing.TB, at int64, secret []byte, value int64, isDestination bool) []byte {
	t.Helper()
	key := hashOf(t, secret)
	_, err := f.engine.Initiate(f.ctx(at, f.alice), InitiateMsg{
		SecretHash:        key,
		Value:             value,
		IsDestination:     isDestination,
		HashType:          hashlock.SHA256,
		SourceLedger:      "iov",
		DestinationLedger: "eth",
	})
	require.NoError(t, err)
	return key
}

func (f *fixture) state(t testing.TB, key []byte) State {
	t.Helper()
	s, err := f.engine.Query().State(key)
	require.NoError(t, err)
	return s
}

func hashOf(t testing.TB, secret []byte) []byte {
	t.Helper()
	h, err := hashlock.Hash(secret, hashlock.SHA256)
	require.NoError(t, err)
	return h
}

func TestNewEngine(t *testing.T) {
	owner := xswaptest.NewCondition().Address()
	valid := Configuration{
		Owner:                      owner,
		TimeoutPerHoldingTransfer:  1000,
		TimeToRedeemAfterAcception: 50,
		TimeoutAfterAcception:      100,
		TimeoutToIgnoreTransfer:    200,
	}
	broken := valid
	broken.TimeToRedeemAfterAcception = 150

	cases := map[string]struct {
		Gateway Gateway
		Conf    Configuration
		WantErr *errors.Error
	}{
		"valid": {
			Gateway: ledger.NewController(),
			Conf:    valid,
		},
		"timeouts out of order": {
			Gateway: ledger.NewController(),
			Conf:    broken,
			WantErr: ErrConfiguration,
		},
		"missing gateway": {
			Conf:    valid,
			WantErr: ErrConfiguration,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.NewMemStore()
			e, err := NewEngine(db, tc.Gateway, &xswaptest.CtxAuth{Key: "a"}, tc.Conf)
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.WantErr != nil {
				require.Nil(t, e)
				_, err := LoadEngine(db, ledger.NewController(), &xswaptest.CtxAuth{Key: "a"})
				assert.IsErr(t, errors.ErrNotFound, err)
				return
			}
			loaded, err := LoadEngine(db, tc.Gateway, &xswaptest.CtxAuth{Key: "a"})
			require.NoError(t, err)
			conf, err := loaded.Configuration()
			require.NoError(t, err)
			require.Equal(t, tc.Conf.TimeoutPerHoldingTransfer, conf.TimeoutPerHoldingTransfer)
			require.True(t, owner.Equals(conf.Owner))
		})
	}
}

func TestInitiate(t *testing.T) {
	stranger := xswaptest.NewCondition()

	cases := map[string]struct {
		Prepare     func(t testing.TB, f *fixture)
		Signer      func(f *fixture) []xswap.Condition
		Msg         InitiateMsg
		WantErr     *errors.Error
		WantBalance int64
		WantCustody int64
	}{
		"source transfer holds the value": {
			Msg:         InitiateMsg{Value: 100, HashType: hashlock.SHA256},
			WantBalance: 900,
			WantCustody: 100,
		},
		"destination transfer holds nothing": {
			Msg:         InitiateMsg{Value: 100, IsDestination: true, HashType: hashlock.SHA256},
			WantBalance: 1000,
		},
		"zero value": {
			Msg:         InitiateMsg{Value: 0, HashType: hashlock.SHA256},
			WantErr:     errors.ErrInvalidAmount,
			WantBalance: 1000,
		},
		"negative value": {
			Msg:         InitiateMsg{Value: -3, IsDestination: true, HashType: hashlock.SHA256},
			WantErr:     errors.ErrInvalidAmount,
			WantBalance: 1000,
		},
		"unsupported hash type": {
			Msg:         InitiateMsg{Value: 1, HashType: 9},
			WantErr:     errors.ErrInvalidInput,
			WantBalance: 1000,
		},
		"hash length does not match the hash type": {
			Msg:         InitiateMsg{Value: 1, HashType: hashlock.RIPEMD160},
			WantErr:     errors.ErrInvalidInput,
			WantBalance: 1000,
		},
		"initiation disabled": {
			Prepare: func(t testing.TB, f *fixture) {
				require.NoError(t, f.engine.SetInitiationEnabled(f.ctx(0, f.owner), false))
			},
			Msg:         InitiateMsg{Value: 100, HashType: hashlock.SHA256},
			WantErr:     ErrInitiationDisabled,
			WantBalance: 1000,
		},
		"allowance too low": {
			Prepare: func(t testing.TB, f *fixture) {
				require.NoError(t, f.bank.Approve(f.engine.db, f.alice.Address(), 99))
			},
			Msg:         InitiateMsg{Value: 100, HashType: hashlock.SHA256},
			WantErr:     errors.ErrInsufficientAmount,
			WantBalance: 1000,
		},
		"signer without funds": {
			Signer:      func(*fixture) []xswap.Condition { return []xswap.Condition{stranger} },
			Msg:         InitiateMsg{Value: 100, HashType: hashlock.SHA256},
			WantErr:     errors.ErrInsufficientAmount,
			WantBalance: 1000,
		},
		"no signer": {
			Signer:      func(*fixture) []xswap.Condition { return nil },
			Msg:         InitiateMsg{Value: 100, HashType: hashlock.SHA256},
			WantErr:     errors.ErrUnauthorized,
			WantBalance: 1000,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, nil)
			if tc.Prepare != nil {
				tc.Prepare(t, f)
			}
			signers := []xswap.Condition{f.alice}
			if tc.Signer != nil {
				signers = tc.Signer(f)
			}
			msg := tc.Msg
			msg.SecretHash = hashOf(t, []byte(testName))
			msg.SourceLedger = "iov"
			msg.DestinationLedger = "eth"

			tr, err := f.engine.Initiate(f.ctx(7, signers...), msg)
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			require.Equal(t, tc.WantBalance, f.balance(t, f.alice.Address()))
			require.Equal(t, tc.WantCustody, f.balance(t, ledger.CustodyAddress))

			if tc.WantErr != nil {
				_, err := f.engine.Query().Transfer(msg.SecretHash)
				assert.IsErr(t, errors.ErrNotFound, err)
				require.Empty(t, f.events.Events())
				return
			}

			want := &Transfer{
				InitTimestamp:     7,
				Initiator:         f.alice.Address(),
				SecretHash:        msg.SecretHash,
				HashType:          hashlock.SHA256,
				SourceLedger:      "iov",
				DestinationLedger: "eth",
				IsDestination:     msg.IsDestination,
				Value:             msg.Value,
				State:             Initiated,
			}
			require.Equal(t, want, tr)
			stored, err := f.engine.Query().Transfer(msg.SecretHash)
			require.NoError(t, err)
			require.Equal(t, want, stored)

			require.Equal(t, []Event{InitiatedEvent{
				Initiator:         f.alice.Address(),
				Timestamp:         7,
				SecretHash:        msg.SecretHash,
				Value:             msg.Value,
				IsDestination:     msg.IsDestination,
				HashType:          hashlock.SHA256,
				SourceLedger:      "iov",
				DestinationLedger: "eth",
			}}, f.events.Events())
		})
	}
}

func TestInitiateTwice(t *testing.T) {
	f := newFixture(t, nil)
	key := f.initiate(t, 0, []byte("once"), 100, false)

	_, err := f.engine.Initiate(f.ctx(1, f.alice), InitiateMsg{
		SecretHash: key,
		Value:      100,
		HashType:   hashlock.SHA256,
	})
	assert.IsErr(t, errors.ErrDuplicate, err)

	// Second attempt must not hold anything.
	require.Equal(t, int64(900), f.balance(t, f.alice.Address()))
	require.Len(t, f.events.Events(), 1)
}

func TestAccept(t *testing.T) {
	cases := map[string]struct {
		IsDestination bool
		AcceptAt      int64
		Signer        func(*fixture) xswap.Condition
		Twice         bool
		WantErr       *errors.Error
		WantState     State
		WantAccepted  xswap.UnixTime
		WantEvents    int
	}{
		"authority accepts in time": {
			IsDestination: true,
			AcceptAt:      10,
			WantState:     Accepted,
			WantAccepted:  10,
			WantEvents:    2,
		},
		"accept at the ignore timeout": {
			IsDestination: true,
			AcceptAt:      200,
			WantState:     Accepted,
			WantAccepted:  200,
			WantEvents:    2,
		},
		"accept after the ignore timeout": {
			IsDestination: true,
			AcceptAt:      201,
			WantState:     Ignored,
			WantEvents:    1,
		},
		"accept twice": {
			IsDestination: true,
			AcceptAt:      10,
			Twice:         true,
			WantErr:       errors.ErrInvalidState,
			WantState:     Accepted,
			WantAccepted:  10,
			WantEvents:    2,
		},
		"ignored transfer cannot be accepted": {
			IsDestination: true,
			AcceptAt:      300,
			Twice:         true,
			WantErr:       errors.ErrInvalidState,
			WantState:     Ignored,
			WantEvents:    1,
		},
		"source transfer": {
			AcceptAt:   10,
			WantErr:    errors.ErrInvalidState,
			WantState:  Initiated,
			WantEvents: 1,
		},
		"only the authority": {
			IsDestination: true,
			AcceptAt:      10,
			Signer:        func(f *fixture) xswap.Condition { return f.alice },
			WantErr:       errors.ErrUnauthorized,
			WantState:     Initiated,
			WantEvents:    1,
		},
		"late accept by anyone ignores the transfer": {
			IsDestination: true,
			AcceptAt:      500,
			Signer:        func(f *fixture) xswap.Condition { return f.alice },
			WantState:     Ignored,
			WantEvents:    1,
		},
		"late accept without a signer ignores the transfer": {
			IsDestination: true,
			AcceptAt:      201,
			Signer:        func(*fixture) xswap.Condition { return nil },
			WantState:     Ignored,
			WantEvents:    1,
		},
		"stranger cannot accept an ignored transfer": {
			IsDestination: true,
			AcceptAt:      500,
			Signer:        func(f *fixture) xswap.Condition { return f.alice },
			Twice:         true,
			WantErr:       errors.ErrInvalidState,
			WantState:     Ignored,
			WantEvents:    1,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, nil)
			key := f.initiate(t, 0, []byte("accept"), 100, tc.IsDestination)

			signers := []xswap.Condition{f.owner}
			if tc.Signer != nil {
				signers = nil
				if s := tc.Signer(f); s != nil {
					signers = append(signers, s)
				}
			}
			ctx := f.ctx(tc.AcceptAt, signers...)
			_, err := f.engine.Accept(ctx, key)
			if tc.Twice {
				require.NoError(t, err)
				_, err = f.engine.Accept(ctx, key)
			}
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}

			tr, err := f.engine.Query().Transfer(key)
			require.NoError(t, err)
			require.Equal(t, tc.WantState, tr.State)
			require.Equal(t, tc.WantAccepted, tr.AcceptionTimestamp)
			require.Len(t, f.events.Events(), tc.WantEvents)
		})
	}

	t.Run("unknown transfer", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.engine.Accept(f.ctx(1, f.owner), hashOf(t, []byte("nothing")))
		assert.IsErr(t, errors.ErrNotFound, err)
	})
}

func TestBan(t *testing.T) {
	f := newFixture(t, nil)
	secret := []byte("ban me")
	key := f.initiate(t, 0, secret, 100, true)

	_, err := f.engine.Ban(f.ctx(5, f.owner), key)
	assert.IsErr(t, errors.ErrInvalidState, err)

	_, err = f.engine.Accept(f.ctx(10, f.owner), key)
	require.NoError(t, err)

	_, err = f.engine.Ban(f.ctx(20, f.alice), key)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	tr, err := f.engine.Ban(f.ctx(20, f.owner), key)
	require.NoError(t, err)
	require.Equal(t, Banned, tr.State)
	require.Equal(t, BannedEvent{SecretHash: key}, f.events.Events()[2])

	// Once banned, redemption within the window fails.
	_, err = f.engine.Redeem(f.ctx(65, f.alice), secret, key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	_, err = f.engine.Ban(f.ctx(66, f.owner), key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	require.Equal(t, Banned, f.state(t, key))
	require.Equal(t, int64(0), f.balance(t, f.fees))

	source := f.initiate(t, 0, []byte("source"), 1, false)
	_, err = f.engine.Ban(f.ctx(20, f.owner), source)
	assert.IsErr(t, errors.ErrInvalidState, err)
}

// Destination transfer initiated at 0 and accepted at 10 can be redeemed
// only after 60 and not after 110.
func TestRedeemDestination(t *testing.T) {
	cases := map[string]struct {
		RedeemAt    int64
		Secret      string
		Value       int64
		Fee         int64
		WantErr     *errors.Error
		WantState   State
		WantMinted  int64
		WantFees    int64
		WantSecret  bool
		WantRedeems int
	}{
		"before the minimum wait": {
			RedeemAt:  30,
			Secret:    "secret",
			Value:     100,
			Fee:       5,
			WantErr:   errors.ErrInvalidState,
			WantState: Accepted,
		},
		"at the minimum wait": {
			RedeemAt:  60,
			Secret:    "secret",
			Value:     100,
			Fee:       5,
			WantErr:   errors.ErrInvalidState,
			WantState: Accepted,
		},
		"within the window": {
			RedeemAt:    65,
			Secret:      "secret",
			Value:       100,
			Fee:         5,
			WantState:   Finished,
			WantMinted:  95,
			WantFees:    5,
			WantSecret:  true,
			WantRedeems: 1,
		},
		"at the timeout": {
			RedeemAt:    110,
			Secret:      "secret",
			Value:       100,
			Fee:         5,
			WantState:   Finished,
			WantMinted:  95,
			WantFees:    5,
			WantSecret:  true,
			WantRedeems: 1,
		},
		"after the timeout": {
			RedeemAt:    200,
			Secret:      "secret",
			Value:       100,
			Fee:         5,
			WantState:   Expired,
			WantSecret:  true,
			WantRedeems: 1,
		},
		"invalid secret": {
			RedeemAt:  65,
			Secret:    "guess",
			Value:     100,
			Fee:       5,
			WantErr:   ErrInvalidSecret,
			WantState: Accepted,
		},
		"invalid secret after the timeout": {
			RedeemAt:  200,
			Secret:    "guess",
			Value:     100,
			Fee:       5,
			WantErr:   ErrInvalidSecret,
			WantState: Accepted,
		},
		"fee greater than value": {
			RedeemAt:  65,
			Secret:    "secret",
			Value:     4,
			Fee:       5,
			WantErr:   errors.ErrInvalidAmount,
			WantState: Accepted,
		},
		"fee equal to value": {
			RedeemAt:    65,
			Secret:      "secret",
			Value:       5,
			Fee:         5,
			WantState:   Finished,
			WantFees:    5,
			WantSecret:  true,
			WantRedeems: 1,
		},
		"no fee": {
			RedeemAt:    65,
			Secret:      "secret",
			Value:       100,
			WantState:   Finished,
			WantMinted:  100,
			WantSecret:  true,
			WantRedeems: 1,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, func(c *Configuration) { c.FeePerTransfer = tc.Fee })
			key := f.initiate(t, 0, []byte("secret"), tc.Value, true)
			_, err := f.engine.Accept(f.ctx(10, f.owner), key)
			require.NoError(t, err)
			f.events.Reset()

			_, err = f.engine.Redeem(f.ctx(tc.RedeemAt, f.alice), []byte(tc.Secret), key)
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}

			tr, err := f.engine.Query().Transfer(key)
			require.NoError(t, err)
			require.Equal(t, tc.WantState, tr.State)
			require.Equal(t, 1000+tc.WantMinted, f.balance(t, f.alice.Address()))
			require.Equal(t, tc.WantFees, f.balance(t, f.fees))
			if tc.WantSecret {
				require.Equal(t, []byte(tc.Secret), []byte(tr.Secret))
			} else {
				require.Empty(t, tr.Secret)
			}
			require.Len(t, f.events.Events(), tc.WantRedeems)
		})
	}
}

func TestRedeemSource(t *testing.T) {
	cases := map[string]struct {
		RedeemAt    int64
		Secret      string
		WantErr     *errors.Error
		WantState   State
		WantCustody int64
		WantSecret  bool
	}{
		"burns the value": {
			RedeemAt:    10,
			Secret:      "secret",
			WantState:   Finished,
			WantCustody: 0,
			WantSecret:  true,
		},
		"at the holding timeout": {
			RedeemAt:    1000,
			Secret:      "secret",
			WantState:   Finished,
			WantCustody: 0,
			WantSecret:  true,
		},
		"after the holding timeout": {
			RedeemAt:    1001,
			Secret:      "secret",
			WantState:   Expired,
			WantCustody: 100,
			WantSecret:  true,
		},
		"invalid secret": {
			RedeemAt:    10,
			Secret:      "guess",
			WantErr:     ErrInvalidSecret,
			WantState:   Initiated,
			WantCustody: 100,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, nil)
			key := f.initiate(t, 0, []byte("secret"), 100, false)
			f.events.Reset()

			_, err := f.engine.Redeem(f.ctx(tc.RedeemAt, f.alice), []byte(tc.Secret), key)
			if !tc.WantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}

			tr, err := f.engine.Query().Transfer(key)
			require.NoError(t, err)
			require.Equal(t, tc.WantState, tr.State)
			require.Equal(t, tc.WantCustody, f.balance(t, ledger.CustodyAddress))
			require.Equal(t, int64(900), f.balance(t, f.alice.Address()))
			if tc.WantSecret {
				require.Equal(t, []Event{RedeemedEvent{Secret: []byte(tc.Secret), SecretHash: key}}, f.events.Events())
			} else {
				require.Empty(t, tr.Secret)
				require.Empty(t, f.events.Events())
			}
		})
	}
}

func TestRedeemFinishedTransfer(t *testing.T) {
	f := newFixture(t, nil)
	secret := []byte("only once")
	key := f.initiate(t, 0, secret, 100, false)

	_, err := f.engine.Redeem(f.ctx(10, f.alice), secret, key)
	require.NoError(t, err)
	_, err = f.engine.Redeem(f.ctx(11, f.alice), secret, key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	// Terminal transfers are not downgraded anymore.
	_, err = f.engine.Redeem(f.ctx(5000, f.alice), secret, key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	require.Equal(t, Finished, f.state(t, key))
}

// A downgrade does not check the secret, but it stores the disclosed value
// and publishes the redeemed event anyway.
func TestRedeemDowngradePublishesEvent(t *testing.T) {
	f := newFixture(t, nil)
	dest := f.initiate(t, 0, []byte("destination"), 100, true)
	src := f.initiate(t, 0, []byte("source"), 100, false)
	f.events.Reset()

	tr, err := f.engine.Redeem(f.ctx(201, f.alice), []byte("wrong"), dest)
	require.NoError(t, err)
	require.Equal(t, Ignored, tr.State)
	require.Equal(t, []byte("wrong"), []byte(tr.Secret))

	tr, err = f.engine.Redeem(f.ctx(1001, f.alice), []byte("wrong too"), src)
	require.NoError(t, err)
	require.Equal(t, Expired, tr.State)

	require.Equal(t, []Event{
		RedeemedEvent{Secret: []byte("wrong"), SecretHash: dest},
		RedeemedEvent{Secret: []byte("wrong too"), SecretHash: src},
	}, f.events.Events())
	require.Equal(t, int64(100), f.balance(t, ledger.CustodyAddress))
	require.Equal(t, int64(1000-100), f.balance(t, f.alice.Address()))

	// Expired source transfer still can be refunded.
	_, err = f.engine.Refund(f.ctx(1002, f.alice), src)
	require.NoError(t, err)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
}

func TestRefund(t *testing.T) {
	f := newFixture(t, nil)
	key := f.initiate(t, 0, []byte("refund"), 100, false)
	require.Equal(t, int64(900), f.balance(t, f.alice.Address()))
	f.events.Reset()

	_, err := f.engine.Refund(f.ctx(500, f.alice), key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	_, err = f.engine.Refund(f.ctx(1000, f.alice), key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	require.Equal(t, Initiated, f.state(t, key))

	tr, err := f.engine.Refund(f.ctx(1001, f.alice), key)
	require.NoError(t, err)
	require.Equal(t, Expired, tr.State)
	require.True(t, tr.Emptied)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
	require.Equal(t, int64(0), f.balance(t, ledger.CustodyAddress))

	_, err = f.engine.Refund(f.ctx(1002, f.alice), key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))

	// Refund never publishes an event.
	require.Empty(t, f.events.Events())
}

func TestRefundDestination(t *testing.T) {
	f := newFixture(t, nil)
	secret := []byte("late")
	key := f.initiate(t, 0, secret, 100, true)
	_, err := f.engine.Accept(f.ctx(10, f.owner), key)
	require.NoError(t, err)
	tr, err := f.engine.Redeem(f.ctx(500, f.alice), secret, key)
	require.NoError(t, err)
	require.Equal(t, Expired, tr.State)

	_, err = f.engine.Refund(f.ctx(2000, f.alice), key)
	assert.IsErr(t, errors.ErrInvalidState, err)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
}

func TestTouch(t *testing.T) {
	f := newFixture(t, nil)
	dest := f.initiate(t, 0, []byte("dest"), 100, true)
	src := f.initiate(t, 0, []byte("src"), 100, false)
	accepted := f.initiate(t, 0, []byte("accepted"), 100, true)
	_, err := f.engine.Accept(f.ctx(1, f.owner), accepted)
	require.NoError(t, err)
	f.events.Reset()

	for _, key := range [][]byte{dest, src, accepted} {
		tr, err := f.engine.Touch(f.ctx(100, f.alice), key)
		require.NoError(t, err)
		require.NotEqual(t, Ignored, tr.State)
		require.NotEqual(t, Expired, tr.State)
	}

	tr, err := f.engine.Touch(f.ctx(201, f.alice), dest)
	require.NoError(t, err)
	require.Equal(t, Ignored, tr.State)

	tr, err = f.engine.Touch(f.ctx(201, f.alice), src)
	require.NoError(t, err)
	require.Equal(t, Initiated, tr.State)

	tr, err = f.engine.Touch(f.ctx(1001, f.alice), src)
	require.NoError(t, err)
	require.Equal(t, Expired, tr.State)
	require.False(t, tr.Emptied)

	// Only the two timeouts are applied. An accepted transfer expires
	// when redeemed too late, not when touched.
	tr, err = f.engine.Touch(f.ctx(5000, f.alice), accepted)
	require.NoError(t, err)
	require.Equal(t, Accepted, tr.State)

	require.Empty(t, f.events.Events())

	_, err = f.engine.Touch(f.ctx(1, f.alice), hashOf(t, []byte("missing")))
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestMissingBlockTime(t *testing.T) {
	f := newFixture(t, nil)
	ctx := f.auth.SetConditions(context.Background(), f.owner)
	_, err := f.engine.Touch(ctx, hashOf(t, []byte("x")))
	assert.IsErr(t, errors.ErrInvalidState, err)
}

// failingGateway fails to mint for one address.
type failingGateway struct {
	ledger.Controller
	reject xswap.Address
}

func (g failingGateway) Mint(db xswap.KVStore, to xswap.Address, amount int64) error {
	if to.Equals(g.reject) {
		return fmt.Errorf("ledger offline")
	}
	return g.Controller.Mint(db, to, amount)
}

func TestFailedRedeemWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	gw := failingGateway{Controller: f.bank, reject: f.fees}
	engine, err := LoadEngine(f.engine.db, gw, f.auth)
	require.NoError(t, err)
	f.engine = engine

	secret := []byte("all or nothing")
	key := f.initiate(t, 0, secret, 100, true)
	_, err = f.engine.Accept(f.ctx(10, f.owner), key)
	require.NoError(t, err)

	_, err = f.engine.Redeem(f.ctx(65, f.alice), secret, key)
	assert.IsErr(t, ErrLedger, err)

	// The initiator was minted to before the fee failed. That mint must
	// be discarded together with the state change.
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
	tr, err := f.engine.Query().Transfer(key)
	require.NoError(t, err)
	require.Equal(t, Accepted, tr.State)
	require.Empty(t, tr.Secret)
}

// dumpStore returns every key and value held by the store.
func dumpStore(t testing.TB, db xswap.ReadOnlyKVStore) []store.Model {
	t.Helper()
	it, err := db.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()
	var all []store.Model
	for it.Valid() {
		all = append(all, store.Model{Key: it.Key(), Value: it.Value()})
		require.NoError(t, it.Next())
	}
	return all
}

func TestFailedRedeemLeavesStoreUnchanged(t *testing.T) {
	db, err := iavl.NewMemCommitStore()
	require.NoError(t, err)
	f := newFixtureOn(t, db, nil)

	secret := []byte("untouched")
	key := f.initiate(t, 0, secret, 100, true)
	_, err = f.engine.Accept(f.ctx(10, f.owner), key)
	require.NoError(t, err)
	before := dumpStore(t, db)

	gw := failingGateway{Controller: f.bank, reject: f.fees}
	engine, err := LoadEngine(db, gw, f.auth)
	require.NoError(t, err)
	_, err = engine.Redeem(f.ctx(65, f.alice), secret, key)
	assert.IsErr(t, ErrLedger, err)

	require.Equal(t, before, dumpStore(t, db))
}

// brokenDisk fails the n-th Set it receives once armed.
type brokenDisk struct {
	*iavl.CommitStore
	armed  bool
	failAt int
	calls  int
}

func (b *brokenDisk) Set(key, value []byte) error {
	if b.armed {
		b.calls++
		if b.calls == b.failAt {
			return fmt.Errorf("cannot write %X", key)
		}
	}
	return b.CommitStore.Set(key, value)
}

func TestFailedWriteLeavesStoreUnchanged(t *testing.T) {
	// A source initiate writes the custody and alice accounts together with
	// the transfer record.
	for _, failAt := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("set %d fails", failAt), func(t *testing.T) {
			base, err := iavl.NewMemCommitStore()
			require.NoError(t, err)
			disk := &brokenDisk{CommitStore: base, failAt: failAt}
			f := newFixtureOn(t, disk, nil)
			before := dumpStore(t, base)

			disk.armed = true
			_, err = f.engine.Initiate(f.ctx(0, f.alice), InitiateMsg{
				SecretHash: hashOf(t, []byte("half written")),
				Value:      100,
				HashType:   hashlock.SHA256,
			})
			assert.IsErr(t, errors.ErrDatabase, err)

			require.Equal(t, before, dumpStore(t, base))
			disk.armed = false
			require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
		})
	}
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t, nil)
	gw := panicGateway{Controller: f.bank}
	engine, err := LoadEngine(f.engine.db, gw, f.auth)
	require.NoError(t, err)

	_, err = engine.Initiate(f.ctx(0, f.alice), InitiateMsg{
		SecretHash: hashOf(t, []byte("boom")),
		Value:      10,
		HashType:   hashlock.SHA256,
	})
	assert.IsErr(t, errors.ErrPanic, err)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))

	// Key lock must be released after a panic.
	key := f.initiate(t, 1, []byte("boom"), 10, false)
	require.Equal(t, Initiated, f.state(t, key))
}

type panicGateway struct {
	ledger.Controller
}

func (panicGateway) Hold(xswap.KVStore, xswap.Address, int64) error {
	panic("hold")
}

func TestAdmin(t *testing.T) {
	f := newFixture(t, nil)
	newFees := xswaptest.NewCondition().Address()

	assert.IsErr(t, errors.ErrUnauthorized, f.engine.SetInitiationEnabled(f.ctx(0, f.alice), false))
	assert.IsErr(t, errors.ErrUnauthorized, f.engine.SetFeeRecipient(f.ctx(0, f.alice), newFees))
	// Fee is not zero, so a recipient is required.
	assert.IsErr(t, ErrConfiguration, f.engine.SetFeeRecipient(f.ctx(0, f.owner), nil))

	require.NoError(t, f.engine.SetFeeRecipient(f.ctx(0, f.owner), newFees))
	require.NoError(t, f.engine.SetInitiationEnabled(f.ctx(0, f.owner), false))

	conf, err := f.engine.Configuration()
	require.NoError(t, err)
	require.False(t, conf.InitiationEnabled)
	require.True(t, newFees.Equals(conf.FeeRecipient))

	_, err = f.engine.Initiate(f.ctx(1, f.alice), InitiateMsg{
		SecretHash: hashOf(t, []byte("disabled")),
		Value:      1,
		HashType:   hashlock.SHA256,
	})
	assert.IsErr(t, ErrInitiationDisabled, err)

	require.NoError(t, f.engine.SetInitiationEnabled(f.ctx(2, f.owner), true))
	secret := []byte("enabled")
	key := f.initiate(t, 3, secret, 50, true)
	_, err = f.engine.Accept(f.ctx(4, f.owner), key)
	require.NoError(t, err)
	_, err = f.engine.Redeem(f.ctx(60, f.alice), secret, key)
	require.NoError(t, err)
	require.Equal(t, int64(5), f.balance(t, newFees))
	require.Equal(t, int64(0), f.balance(t, f.fees))
}

func TestQuery(t *testing.T) {
	f := newFixture(t, nil)
	secret := []byte("query")
	key := f.initiate(t, 3, secret, 100, true)
	_, err := f.engine.Accept(f.ctx(10, f.owner), key)
	require.NoError(t, err)
	_, err = f.engine.Redeem(f.ctx(65, f.alice), secret, key)
	require.NoError(t, err)

	q := f.engine.Query()

	ts, err := q.InitTimestamp(key)
	require.NoError(t, err)
	require.Equal(t, xswap.UnixTime(3), ts)

	initiator, err := q.Initiator(key)
	require.NoError(t, err)
	require.True(t, f.alice.Address().Equals(initiator))

	got, err := q.Secret(key)
	require.NoError(t, err)
	require.Equal(t, secret, got)

	ht, err := q.HashType(key)
	require.NoError(t, err)
	require.Equal(t, hashlock.SHA256, ht)

	dest, err := q.IsDestination(key)
	require.NoError(t, err)
	require.True(t, dest)

	value, err := q.Value(key)
	require.NoError(t, err)
	require.Equal(t, int64(100), value)

	state, err := q.State(key)
	require.NoError(t, err)
	require.Equal(t, Finished, state)

	acc, err := q.AcceptionTimestamp(key)
	require.NoError(t, err)
	require.Equal(t, xswap.UnixTime(10), acc)

	src, err := q.SourceLedger(key)
	require.NoError(t, err)
	require.Equal(t, "iov", src)

	dst, err := q.DestinationLedger(key)
	require.NoError(t, err)
	require.Equal(t, "eth", dst)

	emptied, err := q.Emptied(key)
	require.NoError(t, err)
	require.False(t, emptied)

	list, err := q.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	missing := hashOf(t, []byte("missing"))
	_, err = q.State(missing)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = q.Value(missing)
	assert.IsErr(t, errors.ErrNotFound, err)
}

// Queries never apply timeouts.
func TestQueryIsLazy(t *testing.T) {
	f := newFixture(t, nil)
	key := f.initiate(t, 0, []byte("lazy"), 100, false)

	// Expired long ago, but nobody touched the transfer yet.
	require.Equal(t, Initiated, f.state(t, key))
	_, err := f.engine.Touch(f.ctx(5000, f.alice), key)
	require.NoError(t, err)
	require.Equal(t, Expired, f.state(t, key))
}

// backends returns a fresh store of every kind the engine runs on.
func backends(t *testing.T) map[string]func() xswap.KVStore {
	return map[string]func() xswap.KVStore{
		"memstore": func() xswap.KVStore { return store.NewMemStore() },
		"iavl": func() xswap.KVStore {
			db, err := iavl.NewMemCommitStore()
			require.NoError(t, err)
			return db
		},
	}
}

func TestScenarioA(t *testing.T) {
	for name, newDB := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixtureOn(t, newDB(), func(c *Configuration) {
				c.TimeoutPerHoldingTransfer = 1000
				c.TimeToRedeemAfterAcception = 1
				c.TimeoutAfterAcception = 2
				c.TimeoutToIgnoreTransfer = 3
			})
			key := f.initiate(t, 0, []byte("scenario a"), 100, false)
			require.Equal(t, int64(900), f.balance(t, f.alice.Address()))

			_, err := f.engine.Refund(f.ctx(500, f.alice), key)
			assert.IsErr(t, errors.ErrInvalidState, err)

			tr, err := f.engine.Touch(f.ctx(1001, f.alice), key)
			require.NoError(t, err)
			require.Equal(t, Expired, tr.State)

			// Custody is drained to zero here.
			tr, err = f.engine.Refund(f.ctx(1001, f.alice), key)
			require.NoError(t, err)
			require.True(t, tr.Emptied)
			require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
			require.Equal(t, int64(0), f.balance(t, ledger.CustodyAddress))

			_, err = f.engine.Refund(f.ctx(1002, f.alice), key)
			assert.IsErr(t, errors.ErrInvalidState, err)
		})
	}
}

func TestScenarioB(t *testing.T) {
	for name, newDB := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixtureOn(t, newDB(), nil)
			secret := []byte("scenario b")
			key := f.initiate(t, 0, secret, 100, true)
			_, err := f.engine.Accept(f.ctx(10, f.owner), key)
			require.NoError(t, err)

			_, err = f.engine.Redeem(f.ctx(30, f.alice), secret, key)
			assert.IsErr(t, errors.ErrInvalidState, err)

			tr, err := f.engine.Redeem(f.ctx(65, f.alice), secret, key)
			require.NoError(t, err)
			require.Equal(t, Finished, tr.State)
			require.Equal(t, int64(1095), f.balance(t, f.alice.Address()))
			require.Equal(t, int64(5), f.balance(t, f.fees))

			fresh := []byte("scenario b fresh")
			other := f.initiate(t, 0, fresh, 100, true)
			_, err = f.engine.Accept(f.ctx(10, f.owner), other)
			require.NoError(t, err)
			tr, err = f.engine.Redeem(f.ctx(200, f.alice), fresh, other)
			require.NoError(t, err)
			require.Equal(t, Expired, tr.State)
			require.Equal(t, int64(1095), f.balance(t, f.alice.Address()))
		})
	}
}

func TestSourceRedeemDrainsAccounts(t *testing.T) {
	for name, newDB := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixtureOn(t, newDB(), nil)
			secret := []byte("everything")

			// Holding the whole approved balance leaves alice with a zero
			// account, burning it leaves a zero custody account.
			key := f.initiate(t, 0, secret, 1000, false)
			require.Equal(t, int64(0), f.balance(t, f.alice.Address()))
			allowance, err := f.bank.Allowance(f.engine.db, f.alice.Address())
			require.NoError(t, err)
			require.Equal(t, int64(0), allowance)

			tr, err := f.engine.Redeem(f.ctx(10, f.alice), secret, key)
			require.NoError(t, err)
			require.Equal(t, Finished, tr.State)
			require.Equal(t, int64(0), f.balance(t, ledger.CustodyAddress))
		})
	}
}

func TestConcurrentInitiate(t *testing.T) {
	f := newFixture(t, nil)

	const workers = 40
	keys := make([][]byte, workers)
	for i := range keys {
		keys[i] = hashOf(t, []byte(fmt.Sprintf("concurrent %d", i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.Initiate(f.ctx(0, f.alice), InitiateMsg{
				SecretHash: keys[i],
				Value:      10,
				HashType:   hashlock.SHA256,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int64(1000-workers*10), f.balance(t, f.alice.Address()))
	require.Equal(t, int64(workers*10), f.balance(t, ledger.CustodyAddress))
	list, err := f.engine.Query().List()
	require.NoError(t, err)
	require.Len(t, list, workers)
}

func TestConcurrentSameKey(t *testing.T) {
	f := newFixture(t, nil)
	secret := []byte("race")
	key := hashOf(t, secret)

	const workers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		dup int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Initiate(f.ctx(0, f.alice), InitiateMsg{
				SecretHash: key,
				Value:      10,
				HashType:   hashlock.SHA256,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.ErrDuplicate.Is(err):
				dup++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, dup)
	require.Equal(t, int64(990), f.balance(t, f.alice.Address()))

	// Concurrent redeem and refund of the same transfer after the holding
	// timeout. Exactly one refund can succeed.
	var refunds int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.engine.Refund(f.ctx(2000, f.alice), key)
			} else {
				_, err = f.engine.Redeem(f.ctx(2000, f.alice), secret, key)
			}
			if err == nil && i%2 == 0 {
				mu.Lock()
				refunds++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, refunds)
	require.Equal(t, int64(1000), f.balance(t, f.alice.Address()))
	require.Equal(t, int64(0), f.balance(t, ledger.CustodyAddress))
}
