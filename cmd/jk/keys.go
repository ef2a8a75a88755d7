package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/e2e"
)

func newLoginCmd(e *env) *cobra.Command {
	var tok string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the bearer token issued by the identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tok == "" {
				return errors.New("--token is required")
			}
			info, err := saveToken(e.cfg.Client.Dir, tok)
			if err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "logged in as %s until %s", info.UserID, info.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&tok, "token", "", "bearer token")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := removeToken(e.cfg.Client.Dir); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show key, login and biometric state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			st, err := e.app.Keys.State(ctx)
			if err != nil {
				return err
			}
			user := e.userID
			if user == "" {
				user = "(not logged in)"
			}
			bio, err := e.app.Biometric.IsEnabled(ctx)
			if err != nil {
				return err
			}
			local, err := e.app.LocalEntries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "user:       %s\n", user)
			fmt.Fprintf(out, "keys:       %s\n", st)
			fmt.Fprintf(out, "biometric:  %s\n", onOff(bio))
			fmt.Fprintf(out, "local:      %d entries\n", len(local))
			fmt.Fprintf(out, "backend:    %s\n", e.cfg.Client.APIURL)
			return nil
		},
	}
}

func newSignupCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create your keypair, protect it with a password and back it up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.needUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			setup, err := e.app.Keys.DetectSetup(ctx, e.userID)
			if err != nil {
				return err
			}
			if setup == e2e.SetupExisting {
				return errors.New("keys already exist for this account; run: jk unlock, or jk restore on a new device")
			}

			pw, err := newPassword(out)
			if err != nil {
				return err
			}
			kp, err := cc.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer kp.Wipe()

			stop := startSpinner("Protecting your key...")
			err = e.app.Keys.Signup(ctx, e.userID, kp, pw)
			stop()

			var se *e2e.SyncError
			switch {
			case errors.As(err, &se):
				warn(out, "keys created on this device but not backed up: %v", se.Err)
				return nil
			case err != nil:
				return err
			}
			ok(out, "keys created and backed up")
			return nil
		},
	}
}

func newUnlockCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Check that your password opens the stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "unlocked")
			return nil
		},
	}
}

func newRestoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Fetch your key backup onto this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.needUser(); err != nil {
				return err
			}
			pw, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			stop := startSpinner("Restoring your key...")
			err = e.app.Keys.RestoreFromCloud(cmd.Context(), e.userID, pw)
			stop()
			if err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "keys restored")
			return nil
		},
	}
}

func newResetCmd(e *env) *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Irrecoverably delete your keys and every grant",
		Long: fmt.Sprintf(`Deletes the backed-up key, every grant you issued or received and the
key on this device. Entries encrypted for you become unreadable.

Pass --confirm %q to proceed.`, e2e.ConfirmReset),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Reset(cmd.Context(), e.userID, confirm); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "keys deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "confirmation phrase")
	return cmd
}

// unlock opens the stored key for this invocation, by biometric when enabled.
func (e *env) unlock(cmd *cobra.Command) error {
	if e.app.Keys.IsUnlocked() {
		return nil
	}
	return e.app.UnlockWithBiometric(cmd.Context(), func() (string, error) {
		return readPassword("Password: ")
	})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
