package main

import (
	"strconv"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/x/hashlock"
	"github.com/iov-one/xswap/x/transfer"
	"github.com/spf13/cobra"
)

func initiateCmd(e *env) *cobra.Command {
	var (
		isDestination bool
		hashType      string
		source        string
		destination   string
	)
	cmd := &cobra.Command{
		Use:   "initiate <secret-hash-hex> <value>",
		Short: "Create a new transfer signed by the signer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := decodeHex(args[0], "secret hash")
			if err != nil {
				return err
			}
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidAmount, "value: %s", err)
			}
			h, err := hashlock.ParseHashType(hashType)
			if err != nil {
				return err
			}
			msg := transfer.InitiateMsg{
				SecretHash:        key,
				Value:             value,
				IsDestination:     isDestination,
				HashType:          h,
				SourceLedger:      source,
				DestinationLedger: destination,
			}
			return e.mutate(func(ctx xswap.Context, s *state) (*transfer.Transfer, error) {
				return s.engine.Initiate(ctx, msg)
			})
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&isDestination, "destination", false, "transfer is the destination leg, nothing is held")
	fl.StringVar(&hashType, "hash-type", hashlock.SHA256.String(), "hash function of the commitment")
	fl.StringVar(&source, "source-ledger", "", "name of the source ledger")
	fl.StringVar(&destination, "destination-ledger", "", "name of the destination ledger")
	return cmd
}

func acceptCmd(e *env) *cobra.Command {
	return keyCmd(e, "accept", "Accept a destination transfer, authority only", (*transfer.Engine).Accept)
}

func banCmd(e *env) *cobra.Command {
	return keyCmd(e, "ban", "Ban an accepted destination transfer, authority only", (*transfer.Engine).Ban)
}

func refundCmd(e *env) *cobra.Command {
	return keyCmd(e, "refund", "Return the value of an expired source transfer", (*transfer.Engine).Refund)
}

func touchCmd(e *env) *cobra.Command {
	return keyCmd(e, "touch", "Apply the timeouts of a transfer", (*transfer.Engine).Touch)
}

// keyCmd returns a command running an engine operation that takes only the
// commitment.
func keyCmd(e *env, name, short string, op func(*transfer.Engine, xswap.Context, []byte) (*transfer.Transfer, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <secret-hash-hex>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := decodeHex(args[0], "secret hash")
			if err != nil {
				return err
			}
			return e.mutate(func(ctx xswap.Context, s *state) (*transfer.Transfer, error) {
				return op(s.engine, ctx, key)
			})
		},
	}
}

func redeemCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <secret-hex> <secret-hash-hex>",
		Short: "Disclose the secret of a transfer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := decodeHex(args[0], "secret")
			if err != nil {
				return err
			}
			key, err := decodeHex(args[1], "secret hash")
			if err != nil {
				return err
			}
			return e.mutate(func(ctx xswap.Context, s *state) (*transfer.Transfer, error) {
				return s.engine.Redeem(ctx, secret, key)
			})
		},
	}
}

// mutate runs an engine operation, commits its result and prints the
// resulting transfer.
func (e *env) mutate(fn func(xswap.Context, *state) (*transfer.Transfer, error)) error {
	s, err := e.open(true)
	if err != nil {
		return err
	}
	t, err := fn(e.context(), s)
	if err != nil {
		s.close()
		return err
	}
	if err := s.commit(); err != nil {
		return err
	}
	return e.printJSON(t)
}
