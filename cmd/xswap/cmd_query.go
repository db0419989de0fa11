package main

import (
	"fmt"
	"strconv"

	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/errors"
	"github.com/spf13/cobra"
)

func showCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <secret-hash-hex>",
		Short: "Print a transfer as last written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := decodeHex(args[0], "secret hash")
			if err != nil {
				return err
			}
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.close()
			t, err := s.engine.Query().Transfer(key)
			if err != nil {
				return err
			}
			return e.printJSON(t)
		},
	}
}

func listCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.close()
			all, err := s.engine.Query().List()
			if err != nil {
				return err
			}
			for _, t := range all {
				if _, err := fmt.Fprintf(e.out, "%s\t%s\t%d\t%s\n", t.SecretHash, t.State, t.Value, leg(t.IsDestination)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func leg(isDestination bool) string {
	if isDestination {
		return "destination"
	}
	return "source"
}

func approveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <amount>",
		Short: "Allow transfers of the signer to hold up to the amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidAmount, "amount: %s", err)
			}
			signer, err := e.signer()
			if err != nil {
				return err
			}
			s, err := e.open(false)
			if err != nil {
				return err
			}
			if err := s.bank.Approve(s.db, signer.Address(), amount); err != nil {
				s.close()
				return err
			}
			return s.commit()
		},
	}
}

func balanceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Print the balance and allowance of an address, the signer by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr xswap.Address
			if len(args) == 1 {
				a, err := xswap.ParseAddress(args[0])
				if err != nil {
					return err
				}
				addr = a
			} else {
				signer, err := e.signer()
				if err != nil {
					return err
				}
				addr = signer.Address()
			}

			s, err := e.open(false)
			if err != nil {
				return err
			}
			defer s.close()
			balance, err := s.bank.Balance(s.db, addr)
			if err != nil {
				return err
			}
			allowance, err := s.bank.Allowance(s.db, addr)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "balance=%d allowance=%d\n", balance, allowance)
			return err
		},
	}
}
