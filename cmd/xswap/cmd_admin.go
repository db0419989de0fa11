package main

import (
	"github.com/iov-one/xswap"
	"github.com/iov-one/xswap/x/transfer"
	"github.com/spf13/cobra"
)

func adminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Change the configuration, authority only",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Allow initiation of new transfers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.configure(func(ctx xswap.Context, eng *transfer.Engine) error {
					return eng.SetInitiationEnabled(ctx, true)
				})
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Forbid initiation of new transfers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.configure(func(ctx xswap.Context, eng *transfer.Engine) error {
					return eng.SetInitiationEnabled(ctx, false)
				})
			},
		},
		&cobra.Command{
			Use:   "fee-recipient <address>",
			Short: "Change the recipient of transfer fees",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := xswap.ParseAddress(args[0])
				if err != nil {
					return err
				}
				return e.configure(func(ctx xswap.Context, eng *transfer.Engine) error {
					return eng.SetFeeRecipient(ctx, addr)
				})
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := e.open(true)
				if err != nil {
					return err
				}
				defer s.close()
				conf, err := s.engine.Configuration()
				if err != nil {
					return err
				}
				return e.printJSON(conf)
			},
		},
	)
	return cmd
}

// configure runs a configuration change and commits it.
func (e *env) configure(fn func(xswap.Context, *transfer.Engine) error) error {
	s, err := e.open(true)
	if err != nil {
		return err
	}
	if err := fn(e.context(), s.engine); err != nil {
		s.close()
		return err
	}
	return s.commit()
}
