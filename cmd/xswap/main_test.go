package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/x/transfer"
	"github.com/iov-one/xswap/xswaptest/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command line with given arguments and returns what it
// printed.
func run(home string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, ioutil.Discard)
	cmd.SetArgs(append([]string{"--" + flagHome, home, "--" + flagLogLevel, "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()
	out, err := run(home, args...)
	require.NoError(t, err, "xswap %s", strings.Join(args, " "))
	return out
}

func setupHome(t *testing.T) (string, func()) {
	t.Helper()
	home, err := ioutil.TempDir("", "xswap")
	require.NoError(t, err)

	genesis := fmt.Sprintf(`{
		"conf": {
			"transfer": {
				"owner": %q,
				"fee_recipient": %q,
				"initiation_enabled": true,
				"fee_per_transfer": 5,
				"timeout_per_holding_transfer": 1000,
				"time_to_redeem_after_acception": 50,
				"timeout_after_acception": 100,
				"timeout_to_ignore_transfer": 200
			}
		},
		"ledger": [
			{"address": %q, "balance": 1000, "allowance": 0}
		]
	}`,
		signerCondition("authority").Address().String(),
		signerCondition("fees").Address().String(),
		signerCondition("alice").Address().String(),
	)
	path := filepath.Join(home, "genesis.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(genesis), 0644))
	mustRun(t, home, "init", "--genesis", path)

	return home, func() { os.RemoveAll(home) }
}

func readTransfer(t *testing.T, out string) transfer.Transfer {
	t.Helper()
	// Events are printed before the record.
	start := strings.Index(out, "{")
	require.True(t, start >= 0, out)
	var tr transfer.Transfer
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &tr))
	return tr
}

func TestSourceTransfer(t *testing.T) {
	home, cleanup := setupHome(t)
	defer cleanup()

	secret := hex.EncodeToString([]byte("my secret"))
	key := strings.TrimSpace(mustRun(t, home, "hash", secret))

	_, err := run(home, "--signer", "alice", "--time", "10", "initiate", key, "100")
	assert.IsErr(t, errors.ErrInsufficientAmount, err)

	mustRun(t, home, "--signer", "alice", "approve", "100")
	out := mustRun(t, home, "--signer", "alice", "--time", "10", "initiate", key, "100",
		"--source-ledger", "iov", "--destination-ledger", "eth")
	require.Contains(t, out, "event initiated")
	require.Contains(t, out, "value=100")
	tr := readTransfer(t, out)
	require.Equal(t, transfer.Initiated, tr.State)

	require.Equal(t, "balance=900 allowance=0\n", mustRun(t, home, "--signer", "alice", "balance"))

	out = mustRun(t, home, "--signer", "bob", "--time", "20", "redeem", secret, key)
	require.Contains(t, out, "event redeemed")
	require.Equal(t, transfer.Finished, readTransfer(t, out).State)

	tr = readTransfer(t, mustRun(t, home, "show", key))
	require.Equal(t, transfer.Finished, tr.State)
	require.Equal(t, "my secret", string(tr.Secret))
	require.Equal(t, "iov", tr.SourceLedger)

	list := mustRun(t, home, "list")
	require.Equal(t, fmt.Sprintf("%s\tFinished\t100\tsource\n", strings.ToUpper(key)), list)
}

func TestDestinationTransfer(t *testing.T) {
	home, cleanup := setupHome(t)
	defer cleanup()

	secret := hex.EncodeToString([]byte("destination"))
	key := strings.TrimSpace(mustRun(t, home, "hash", secret))

	mustRun(t, home, "--signer", "alice", "--time", "1", "initiate", key, "100", "--destination")

	_, err := run(home, "--signer", "alice", "--time", "10", "accept", key)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	out := mustRun(t, home, "--signer", "authority", "--time", "10", "accept", key)
	require.Contains(t, out, "event accepted")

	_, err = run(home, "--signer", "alice", "--time", "30", "redeem", secret, key)
	assert.IsErr(t, errors.ErrInvalidState, err)

	mustRun(t, home, "--signer", "alice", "--time", "65", "redeem", secret, key)
	require.Equal(t, "balance=1095 allowance=0\n", mustRun(t, home, "--signer", "alice", "balance"))
	fees := signerCondition("fees").Address().String()
	require.Equal(t, "balance=5 allowance=0\n", mustRun(t, home, "balance", fees))
}

func TestRefund(t *testing.T) {
	home, cleanup := setupHome(t)
	defer cleanup()

	key := strings.TrimSpace(mustRun(t, home, "hash", "cafe"))
	mustRun(t, home, "--signer", "alice", "approve", "100")
	mustRun(t, home, "--signer", "alice", "--time", "1", "initiate", key, "100")

	_, err := run(home, "--signer", "alice", "--time", "500", "refund", key)
	assert.IsErr(t, errors.ErrInvalidState, err)

	tr := readTransfer(t, mustRun(t, home, "--time", "1002", "touch", key))
	require.Equal(t, transfer.Expired, tr.State)

	out := mustRun(t, home, "--signer", "alice", "--time", "1002", "refund", key)
	require.NotContains(t, out, "event")
	require.True(t, readTransfer(t, out).Emptied)
	require.Equal(t, "balance=1000 allowance=0\n", mustRun(t, home, "--signer", "alice", "balance"))

	_, err = run(home, "--signer", "alice", "--time", "1002", "refund", key)
	assert.IsErr(t, errors.ErrInvalidState, err)
}

func TestAdmin(t *testing.T) {
	home, cleanup := setupHome(t)
	defer cleanup()

	_, err := run(home, "--signer", "alice", "admin", "disable")
	assert.IsErr(t, errors.ErrUnauthorized, err)
	mustRun(t, home, "--signer", "authority", "admin", "disable")

	key := strings.TrimSpace(mustRun(t, home, "hash", "beef"))
	_, err = run(home, "--signer", "alice", "--time", "1", "initiate", key, "1", "--destination")
	assert.IsErr(t, transfer.ErrInitiationDisabled, err)

	bob := signerCondition("bob").Address().String()
	mustRun(t, home, "--signer", "authority", "admin", "fee-recipient", bob)
	mustRun(t, home, "--signer", "authority", "admin", "enable")

	var conf transfer.Configuration
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, home, "admin", "show")), &conf))
	require.True(t, conf.InitiationEnabled)
	require.Equal(t, bob, conf.FeeRecipient.String())
}

func TestNotInitialized(t *testing.T) {
	home, err := ioutil.TempDir("", "xswap")
	require.NoError(t, err)
	defer os.RemoveAll(home)

	_, err = run(home, "list")
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestHashTypes(t *testing.T) {
	cases := map[string]struct {
		Type string
		Want string
	}{
		"sha256": {
			Type: "sha256",
			Want: "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD\n",
		},
		"keccak256": {
			Type: "keccak256",
			Want: "4E03657AEA45A94FC7D47BA826C8D667C0D1E6E33A64A036EC44F58FA12D6C45\n",
		},
		"ripemd160": {
			Type: "ripemd160",
			Want: "8EB208F7E05D987A9B044A8E98C6B087F15A0BFC\n",
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			out, err := run(os.TempDir(), "hash", "--type", tc.Type, hex.EncodeToString([]byte("abc")))
			require.NoError(t, err)
			require.Equal(t, tc.Want, out)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run(os.TempDir(), "version")
	require.NoError(t, err)
	require.Equal(t, xswap.Version()+"\n", out)
}
