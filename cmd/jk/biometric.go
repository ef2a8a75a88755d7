package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBiometricCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biometric",
		Short: "Unlock with a platform biometric instead of the password",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether biometric unlock is available and enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				on, err := e.app.Biometric.IsEnabled(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "available: %s\nenabled:   %s\n",
					onOff(e.app.Biometric.IsAvailable(ctx)), onOff(on))
				return nil
			},
		},
		&cobra.Command{
			Use:   "enable",
			Short: "Escrow your password behind a biometric credential",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				pw, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				if err := e.app.EnableBiometric(cmd.Context(), pw); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "biometric unlock enabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Delete the biometric credential",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := e.app.Biometric.Disable(cmd.Context()); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "biometric unlock disabled")
				return nil
			},
		},
	)
	return cmd
}
