package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/iov-one/xswap/x/hashlock"
	"github.com/iov-one/xswap/x/transfer"
	"github.com/spf13/cobra"
)

func initCmd(e *env) *cobra.Command {
	var genesis string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store the configuration and initial accounts from a genesis file",
		Long: `Store the configuration and initial accounts from a genesis file.

The genesis file is a JSON object. The protocol configuration is read from
"conf"."transfer" and the initial accounts from "ledger". Running init again
replaces the configuration and the listed accounts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := ioutil.ReadFile(genesis)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidInput, "read genesis: %s", err)
			}
			var opts xswap.Options
			if err := json.Unmarshal(raw, &opts); err != nil {
				return errors.Wrapf(errors.ErrInvalidInput, "decode genesis: %s", err)
			}

			s, err := e.open(false)
			if err != nil {
				return err
			}
			if err := transfer.InitConfig(s.db, opts); err != nil {
				s.close()
				return err
			}
			if err := s.bank.FromGenesis(opts, s.db); err != nil {
				s.close()
				return err
			}
			if err := s.commit(); err != nil {
				return err
			}
			e.logger.Info("initialized", "genesis", genesis)
			return nil
		},
	}
	cmd.Flags().StringVar(&genesis, "genesis", "genesis.json", "path to the genesis file")
	return cmd
}

func addressCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "address <name>",
		Short: "Print the address of a signer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := signerCondition(args[0])
			b32, err := c.Address().Bech32()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "%s\t%s\t%s\n", c, c.Address(), b32)
			return err
		},
	}
}

func hashCmd(e *env) *cobra.Command {
	var hashType string
	cmd := &cobra.Command{
		Use:   "hash <secret-hex>",
		Short: "Print the commitment of a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := decodeHex(args[0], "secret")
			if err != nil {
				return err
			}
			h, err := hashlock.ParseHashType(hashType)
			if err != nil {
				return err
			}
			digest, err := hashlock.Hash(secret, h)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "%X\n", digest)
			return err
		},
	}
	cmd.Flags().StringVar(&hashType, "type", hashlock.SHA256.String(), "hash function")
	return cmd
}

func decodeHex(s, what string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s must be hex encoded: %s", what, err)
	}
	return raw, nil
}

func versionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(e.out, xswap.Version())
			return err
		},
	}
}
