package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/and161185/journal-keeper/internal/journal"
	"github.com/and161185/journal-keeper/internal/model"
)

func newPublishCmd(e *env) *cobra.Command {
	var d journal.Draft
	var file string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Encrypt an entry and publish it to you and the given readers",
		Example: `  jk publish --title "Day 1" --file day1.txt --to 5b0c...-uuid
  echo "hello" | jk publish --title greeting --public`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.needUser(); err != nil {
				return err
			}
			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			d.Content = string(content)
			if err := e.unlock(cmd); err != nil {
				return err
			}
			id, err := e.app.Publish(cmd.Context(), d)
			if err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "published %s to %d reader(s)", id, len(d.Recipients)+1)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.ID, "id", "", "entry id to replace (default: new entry)")
	f.StringVar(&d.Title, "title", "", "entry title")
	f.StringVarP(&file, "file", "f", "-", "content file, - for stdin")
	f.StringSliceVar(&d.Recipients, "to", nil, "reader user ids")
	f.BoolVar(&d.Public, "public", false, "allow share links")
	return cmd
}

func newOpenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "open <entry-id>",
		Short: "Decrypt and print an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			pt, err := e.app.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printEntry(cmd.OutOrStdout(), pt)
			return nil
		},
	}
}

func newSharedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "shared",
		Short: "List entries others shared with you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			list, err := e.app.SharedWithMe(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "nothing shared with you yet")
				return nil
			}
			for _, s := range list {
				if s.Err != nil {
					warn(out, "%s from %s: cannot decrypt", s.ID, s.AuthorID)
					continue
				}
				fmt.Fprintf(out, "%s  %-24s  from %s\n", s.ID, s.Plaintext.Title, s.AuthorID)
			}
			return nil
		},
	}
}

func newShareCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "share <entry-id> <user-id>",
		Short: "Give one more reader access to an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			if err := e.app.Share(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "shared %s with %s", args[0], args[1])
			return nil
		},
	}
}

func newRevokeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <entry-id> <user-id>",
		Short: "Remove a reader's grant",
		Long: `Removes the reader's grant from the backend. A reader who already opened
the entry may keep its key; run jk rotate to re-encrypt the entry.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.needUser(); err != nil {
				return err
			}
			if err := e.app.Revoke(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "revoked %s from %s", args[1], args[0])
			return nil
		},
	}
}

func newRotateCmd(e *env) *cobra.Command {
	var (
		to     []string
		public bool
	)
	cmd := &cobra.Command{
		Use:   "rotate <entry-id>",
		Short: "Re-encrypt an entry under a fresh key for the given readers only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			if err := e.app.Rotate(cmd.Context(), args[0], to, public); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "rotated %s for %d reader(s)", args[0], len(to)+1)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "reader user ids to keep")
	cmd.Flags().BoolVar(&public, "public", false, "allow share links")
	return cmd
}

func newUnpublishCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish <entry-id>",
		Short: "Delete a published entry and all its grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.needUser(); err != nil {
				return err
			}
			if err := e.app.Unpublish(cmd.Context(), args[0]); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "unpublished %s", args[0])
			return nil
		},
	}
}

func newShareLinkCmd(e *env) *cobra.Command {
	var toClipboard bool
	cmd := &cobra.Command{
		Use:   "share-link <entry-id>",
		Short: "Print a link that lets anyone read a public entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.unlock(cmd); err != nil {
				return err
			}
			link, err := e.app.CreateShareLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if toClipboard {
				if err := clipboard.WriteAll(link); err != nil {
					warn(out, "clipboard unavailable: %v", err)
				} else {
					ok(out, "link copied to clipboard")
					return nil
				}
			}
			fmt.Fprintln(out, link)
			return nil
		},
	}
	cmd.Flags().BoolVar(&toClipboard, "copy", false, "copy the link instead of printing it")
	return cmd
}

func newOpenLinkCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "open-link <url-or-token>",
		Short: "Read an entry from a share link; no keys needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := e.app.OpenShareLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printEntry(cmd.OutOrStdout(), pt)
			return nil
		},
	}
}

// readContent reads file, or in when file is "-".
func readContent(in io.Reader, file string) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if file == "" || file == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, errors.New("empty content")
	}
	return b, nil
}

func printEntry(out io.Writer, pt *model.EntryPlaintext) {
	if pt.Title != "" {
		fmt.Fprintf(out, "# %s\n\n", pt.Title)
	}
	fmt.Fprintln(out, pt.Content)
}
