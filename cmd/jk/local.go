package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLocalCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Password-protected entries kept on this device only",
	}
	cmd.AddCommand(newLocalEncryptCmd(e), newLocalDecryptCmd(e), newLocalListCmd(e), newLocalUnlockAllCmd(e))
	return cmd
}

func newLocalEncryptCmd(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "encrypt <entry-id>",
		Short: "Encrypt content under its own password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			pw, err := newPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			stop := startSpinner("Encrypting...")
			err = e.app.SaveLocal(cmd.Context(), args[0], content, pw)
			stop()
			if err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "saved %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "content file, - for stdin")
	return cmd
}

func newLocalDecryptCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <entry-id>",
		Short: "Print a local entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword("Entry password: ")
			if err != nil {
				return err
			}
			b, err := e.app.ReadLocal(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func newLocalListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := e.app.LocalEntries(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newLocalUnlockAllCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock-all",
		Short: "Try one password against every local entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			stop := startSpinner("Trying entries...")
			res, err := e.app.UnlockAll(cmd.Context(), pw)
			stop()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.SuccessCount == 0 {
				warn(out, "no entry opened with that password")
				return nil
			}
			ok(out, "%d entr%s unlocked", res.SuccessCount, plural(res.SuccessCount, "y", "ies"))
			for _, id := range res.UnlockedEntries {
				fmt.Fprintln(out, "  "+id)
			}
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
