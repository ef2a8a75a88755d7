package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/journal-keeper/internal/passwordstrength"
)

func newStrengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strength [password]",
		Short: "Rate a password; prompts when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				var err error
				if pw, err = readPassword("Password: "); err != nil {
					return err
				}
			}
			s := passwordstrength.Evaluate(pw)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d/4)\n", strengthLabel(s), s)
			return nil
		},
	}
}
