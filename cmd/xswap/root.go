package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/store/iavl"
	"github.com/iov-one/xswap/x"
	"github.com/iov-one/xswap/x/ledger"
	"github.com/iov-one/xswap/x/transfer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tmflags "github.com/tendermint/tendermint/libs/cli/flags"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	flagHome     = "home"
	flagSigner   = "signer"
	flagTime     = "time"
	flagLogLevel = "log-level"

	dbName     = "xswap"
	configName = "xswap.toml"
)

// env is shared by all commands of a single invocation.
type env struct {
	conf   *viper.Viper
	out    io.Writer
	logger log.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	e := &env{
		conf:   viper.New(),
		out:    out,
		logger: log.NewNopLogger(),
	}

	root := &cobra.Command{
		Use:           "xswap",
		Short:         "Cross-ledger atomic transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(errOut)
		},
	}

	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".xswap")
	fl := root.PersistentFlags()
	fl.String(flagHome, defaultHome, "directory to store files under")
	fl.String(flagSigner, "", "name of the user signing the operation")
	fl.Int64(flagTime, 0, "block time as unix seconds, current time if not set")
	fl.String(flagLogLevel, "info", "log filter, for example \"info\" or \"*:error,xswap:debug\"")
	for _, name := range []string{flagHome, flagSigner, flagTime, flagLogLevel} {
		if err := e.conf.BindPFlag(name, fl.Lookup(name)); err != nil {
			panic(err)
		}
	}
	e.conf.SetEnvPrefix("XSWAP")
	e.conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.conf.AutomaticEnv()

	root.AddCommand(
		initCmd(e),
		addressCmd(e),
		hashCmd(e),
		initiateCmd(e),
		acceptCmd(e),
		banCmd(e),
		redeemCmd(e),
		refundCmd(e),
		touchCmd(e),
		showCmd(e),
		listCmd(e),
		approveCmd(e),
		balanceCmd(e),
		adminCmd(e),
		versionCmd(e),
	)
	return root
}

// setup reads the optional configuration file from the home directory and
// prepares the logger.
func (e *env) setup(errOut io.Writer) error {
	path := filepath.Join(e.conf.GetString(flagHome), configName)
	if _, err := os.Stat(path); err == nil {
		e.conf.SetConfigFile(path)
		if err := e.conf.ReadInConfig(); err != nil {
			return errors.Wrapf(errors.ErrInvalidInput, "read %s: %s", path, err)
		}
	}

	logger, err := tmflags.ParseLogLevel(e.conf.GetString(flagLogLevel),
		log.NewTMLogger(log.NewSyncWriter(errOut)), "info")
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "log level: %s", err)
	}
	e.logger = logger.With("module", "xswap")
	return nil
}

// signer returns the condition of the user declared with the signer flag.
func (e *env) signer() (xswap.Condition, error) {
	name := e.conf.GetString(flagSigner)
	if name == "" {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signer required")
	}
	return signerCondition(name), nil
}

// signerCondition maps a user name to the condition it signs with.
func signerCondition(name string) xswap.Condition {
	return xswap.NewCondition("cli", "user", []byte(name))
}

// context returns the context of the operation, carrying the block time and
// the logger.
func (e *env) context() xswap.Context {
	now := time.Now()
	if ts := e.conf.GetInt64(flagTime); ts != 0 {
		now = time.Unix(ts, 0)
	}
	ctx := xswap.WithLogger(context.Background(), e.logger)
	return xswap.WithBlockTime(ctx, now)
}

// state is the opened persistent store together with everything operating
// on it.
type state struct {
	db     *iavl.CommitStore
	bank   ledger.Controller
	engine *transfer.Engine
}

// open loads the store from the home directory. Unless the store was not
// initialized yet, the engine is loaded too.
func (e *env) open(withEngine bool) (*state, error) {
	home := e.conf.GetString(flagHome)
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "home directory: %s", err)
	}
	db, err := iavl.NewCommitStore(home, dbName)
	if err != nil {
		return nil, err
	}
	s := &state{db: db, bank: ledger.NewController()}
	if !withEngine {
		return s, nil
	}

	var auth x.StaticAuth
	if signer, err := e.signer(); err == nil {
		auth = x.StaticAuth{signer}
	}
	s.engine, err = transfer.LoadEngine(db, s.bank, auth,
		transfer.WithObserver(transfer.ObserverFunc(e.printEvent)))
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "not initialized, run init first")
	}
	return s, nil
}

// commit persists all changes and releases the store.
func (s *state) commit() error {
	defer s.db.Close()
	_, err := s.db.Commit()
	return err
}

func (s *state) close() {
	s.db.Close()
}

func (e *env) printEvent(_ xswap.Context, ev transfer.Event) {
	fmt.Fprintf(e.out, "event %s\n", ev.Name())
	for _, kv := range ev.Tags() {
		fmt.Fprintf(e.out, "  %s=%s\n", kv.Key, kv.Value)
	}
}

func (e *env) printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	_, err = fmt.Fprintln(e.out, string(raw))
	return err
}
